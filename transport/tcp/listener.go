// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Raw socket/bind/listen sequence for the reactor's listening descriptor.

package tcp

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-httpd/api"
)

// Listener is a bound, listening, non-blocking socket.
type Listener struct {
	fd   int
	addr *unix.SockaddrInet4
}

// Listen binds host:port (empty host = all interfaces) and starts listening with backlog.
// Port 0 picks an ephemeral port, readable from Port.
func Listen(host string, port, backlog int) (*Listener, error) {
	if port < 0 || port > 65535 {
		return nil, api.NewError(api.ErrCodeInvalidArgument, "listen", api.ErrInvalidArgument).
			WithContext("port", port)
	}
	sa := &unix.SockaddrInet4{Port: port}
	if host != "" {
		ip := net.ParseIP(host).To4()
		if ip == nil {
			return nil, api.NewError(api.ErrCodeInvalidArgument, "listen: not an IPv4 address", api.ErrInvalidArgument).
				WithContext("host", host)
		}
		copy(sa.Addr[:], ip)
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, api.NewError(api.ErrCodeSocket, "socket", err)
	}
	unix.CloseOnExec(fd)
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, api.NewError(api.ErrCodeSocket, "setsockopt SO_REUSEADDR", err)
	}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, api.NewError(api.ErrCodeBind, "bind", err).WithContext("port", port)
	}
	if err := unix.Listen(fd, backlog); err != nil {
		unix.Close(fd)
		return nil, api.NewError(api.ErrCodeListen, "listen", err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, api.NewError(api.ErrCodeSocket, "set nonblock", err)
	}

	l := &Listener{fd: fd, addr: sa}
	if bound, err := unix.Getsockname(fd); err == nil {
		if in4, ok := bound.(*unix.SockaddrInet4); ok {
			l.addr = in4
		}
	}
	return l, nil
}

// Fd returns the listening descriptor. Ownership passes to whoever registers it.
func (l *Listener) Fd() int { return l.fd }

// Port returns the bound port.
func (l *Listener) Port() int { return l.addr.Port }

// Addr returns host:port of the bound socket.
func (l *Listener) Addr() string {
	return fmt.Sprintf("%s:%d", net.IP(l.addr.Addr[:]).String(), l.addr.Port)
}

// Close closes the descriptor directly; use it only when no reactor owns it.
func (l *Listener) Close() error {
	return unix.Close(l.fd)
}
