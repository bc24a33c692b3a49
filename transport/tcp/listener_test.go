//go:build linux

package tcp_test

import (
	"net"
	"strconv"
	"testing"

	"github.com/momentics/hioload-httpd/api"
	"github.com/momentics/hioload-httpd/transport/tcp"
)

func TestListenEphemeralPort(t *testing.T) {
	l, err := tcp.Listen("127.0.0.1", 0, 16)
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	if l.Port() == 0 {
		t.Fatal("ephemeral port not resolved")
	}
	c, err := net.Dial("tcp", "127.0.0.1:"+strconv.Itoa(l.Port()))
	if err != nil {
		t.Fatalf("dial %s: %v", l.Addr(), err)
	}
	c.Close()
}

func TestListenBindConflict(t *testing.T) {
	busy, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer busy.Close()
	port := busy.Addr().(*net.TCPAddr).Port
	_, err = tcp.Listen("127.0.0.1", port, 16)
	if api.CodeOf(err) != api.ErrCodeBind {
		t.Errorf("code = %v, err = %v; want bind failure", api.CodeOf(err), err)
	}
}

func TestListenRejectsBadInput(t *testing.T) {
	if _, err := tcp.Listen("", 70000, 16); api.CodeOf(err) != api.ErrCodeInvalidArgument {
		t.Errorf("port 70000: %v", err)
	}
	if _, err := tcp.Listen("::1", 0, 16); api.CodeOf(err) != api.ErrCodeInvalidArgument {
		t.Errorf("ipv6 host: %v", err)
	}
}
