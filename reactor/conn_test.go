//go:build linux

package reactor_test

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-httpd/api"
	"github.com/momentics/hioload-httpd/reactor"
)

func pair(t *testing.T) (*reactor.Conn, int) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		t.Fatal(err)
	}
	unix.SetNonblock(fds[0], true)
	t.Cleanup(func() {
		unix.Close(fds[0])
		unix.Close(fds[1])
	})
	return reactor.NewConn(fds[0], api.RoleClient), fds[1]
}

func TestConnFillDrainsSocket(t *testing.T) {
	c, peer := pair(t)
	payload := bytes.Repeat([]byte("x"), 10000)
	unix.Write(peer, payload)

	n, err := c.Fill(1024, 0)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(payload) || !bytes.Equal(c.In, payload) {
		t.Fatalf("Fill read %d bytes, buffer %d", n, len(c.In))
	}

	// nothing left: Fill returns immediately
	if n, err = c.Fill(1024, 0); n != 0 || err != nil {
		t.Errorf("second Fill = %d, %v", n, err)
	}
}

func TestConnFillLimit(t *testing.T) {
	c, peer := pair(t)
	unix.Write(peer, bytes.Repeat([]byte("y"), 4096))
	if _, err := c.Fill(512, 1000); !errors.Is(err, api.ErrRequestTooLarge) {
		t.Errorf("Fill over limit = %v", err)
	}
}

func TestConnFillEOF(t *testing.T) {
	c, peer := pair(t)
	unix.Write(peer, []byte("GET"))
	unix.Shutdown(peer, unix.SHUT_WR)
	n, err := c.Fill(64, 0)
	if n != 3 || !errors.Is(err, io.EOF) {
		t.Errorf("Fill = %d, %v; want 3, EOF", n, err)
	}
}

func TestConnConsume(t *testing.T) {
	c, _ := pair(t)
	c.In = append(c.In, "first|second"...)
	c.Consume(6)
	if string(c.In) != "second" {
		t.Errorf("after Consume: %q", c.In)
	}
	c.Consume(100)
	if len(c.In) != 0 {
		t.Errorf("over-consume left %q", c.In)
	}
}

func TestConnWriteQueuesAndFlushes(t *testing.T) {
	c, peer := pair(t)
	unix.SetNonblock(peer, true)
	unix.SetsockoptInt(c.Fd(), unix.SOL_SOCKET, unix.SO_SNDBUF, 4096)
	big := bytes.Repeat([]byte("z"), 1<<20)
	n, err := c.Write(big)
	if err != nil || n != len(big) {
		t.Fatalf("Write = %d, %v", n, err)
	}
	if c.Pending() == 0 {
		t.Fatal("expected output to be queued behind a full socket buffer")
	}

	var got []byte
	buf := make([]byte, 64*1024)
	deadline := time.Now().Add(5 * time.Second)
	for len(got) < len(big) && time.Now().Before(deadline) {
		if m, _ := unix.Read(peer, buf); m > 0 {
			got = append(got, buf[:m]...)
		}
		if _, err := c.Flush(); err != nil {
			t.Fatal(err)
		}
	}
	if !bytes.Equal(got, big) {
		t.Errorf("peer received %d bytes, want %d", len(got), len(big))
	}
	if c.Pending() != 0 {
		t.Errorf("pending = %d after full drain", c.Pending())
	}
}

func TestConnReadBadDescriptor(t *testing.T) {
	c := reactor.NewConn(-1, api.RoleClient)
	if _, err := c.Read(make([]byte, 1)); !errors.Is(err, api.ErrConnClosed) {
		t.Errorf("read on bad fd = %v", err)
	}
	if c.Armed() {
		t.Error("unregistered conn reports armed")
	}
}
