//go:build linux
// +build linux

// File: reactor/reactor_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux epoll(7)-based poller with an eventfd for cross-goroutine wakeups.

package reactor

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-httpd/api"
)

// epollPoller is an edge-triggered epoll poller.
type epollPoller struct {
	epfd   int
	wakefd int
	raw    []unix.EpollEvent
}

// NewPoller constructs the epoll poller.
func NewPoller() (Poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll create: %w", err)
	}
	wakefd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		unix.Close(epfd)
		return nil, fmt.Errorf("eventfd: %w", err)
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(wakefd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wakefd, &ev); err != nil {
		unix.Close(wakefd)
		unix.Close(epfd)
		return nil, fmt.Errorf("epoll ctl add eventfd: %w", err)
	}
	return &epollPoller{epfd: epfd, wakefd: wakefd}, nil
}

func epollMask(interest api.Interest) uint32 {
	events := uint32(unix.EPOLLET | unix.EPOLLRDHUP)
	if interest&api.InterestRead != 0 {
		events |= unix.EPOLLIN
	}
	if interest&api.InterestWrite != 0 {
		events |= unix.EPOLLOUT
	}
	return events
}

func (p *epollPoller) Add(fd int, interest api.Interest, oneshot bool) error {
	ev := unix.EpollEvent{Events: epollMask(interest), Fd: int32(fd)}
	if oneshot {
		ev.Events |= unix.EPOLLONESHOT
	}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return fmt.Errorf("epoll ctl add fd=%d: %w", fd, err)
	}
	return nil
}

func (p *epollPoller) Modify(fd int, interest api.Interest) error {
	ev := unix.EpollEvent{Events: epollMask(interest) | unix.EPOLLONESHOT, Fd: int32(fd)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, &ev); err != nil {
		return fmt.Errorf("epoll ctl mod fd=%d: %w", fd, err)
	}
	return nil
}

func (p *epollPoller) Delete(fd int) error {
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return fmt.Errorf("epoll ctl del fd=%d: %w", fd, err)
	}
	return nil
}

func (p *epollPoller) Wait(events []Event) (int, error) {
	if len(p.raw) < len(events) {
		p.raw = make([]unix.EpollEvent, len(events))
	}
	n, err := unix.EpollWait(p.epfd, p.raw[:len(events)], -1)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, fmt.Errorf("epoll wait: %w", err)
	}
	out := 0
	for i := 0; i < n; i++ {
		raw := p.raw[i]
		if int(raw.Fd) == p.wakefd {
			p.drainWake()
			continue
		}
		var ready api.Readiness
		if raw.Events&unix.EPOLLIN != 0 {
			ready |= api.ReadyRead
		}
		if raw.Events&unix.EPOLLOUT != 0 {
			ready |= api.ReadyWrite
		}
		if raw.Events&(unix.EPOLLHUP|unix.EPOLLRDHUP) != 0 {
			ready |= api.ReadyHangup
		}
		if raw.Events&unix.EPOLLERR != 0 {
			ready |= api.ReadyError
		}
		events[out] = Event{Fd: int(raw.Fd), Ready: ready}
		out++
	}
	return out, nil
}

func (p *epollPoller) Wake() error {
	var one [8]byte
	binary.LittleEndian.PutUint64(one[:], 1)
	if _, err := unix.Write(p.wakefd, one[:]); err != nil && err != unix.EAGAIN {
		return fmt.Errorf("eventfd write: %w", err)
	}
	return nil
}

func (p *epollPoller) drainWake() {
	var buf [8]byte
	for {
		if _, err := unix.Read(p.wakefd, buf[:]); err != nil {
			return
		}
	}
}

// Close closes the epoll instance and its eventfd.
func (p *epollPoller) Close() error {
	unix.Close(p.wakefd)
	return unix.Close(p.epfd)
}
