//go:build linux || darwin

package tcp

import (
	"net/netip"
	"sync/atomic"

	"github.com/sagernet/sing-fetch/common/control"
	E "github.com/sagernet/sing-fetch/common/exceptions"

	"golang.org/x/sys/unix"
)

// Listener is a bound, non-blocking accept socket.
type Listener struct {
	fd      int
	addr    netip.AddrPort
	control control.Func
	closed  atomic.Bool
}

func Listen(bind netip.AddrPort, optionList ...Option) (*Listener, error) {
	o := newOptions(optionList)
	family, sockaddr := toSockaddr(bind)
	fd, err := unix.Socket(family, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, E.Cause(err, "create listener socket")
	}
	err = control.Apply(fd, control.NonBlock(), control.ReuseAddr(), o.control)
	if err != nil {
		unix.Close(fd)
		return nil, err
	}
	err = unix.Bind(fd, sockaddr)
	if err != nil {
		unix.Close(fd)
		return nil, E.Cause(err, "bind ", bind)
	}
	err = unix.Listen(fd, o.backlog)
	if err != nil {
		unix.Close(fd)
		return nil, E.Cause(err, "listen ", bind)
	}
	return &Listener{
		fd:      fd,
		addr:    localAddr(fd),
		control: o.control,
	}, nil
}

func (l *Listener) FD() int {
	return l.fd
}

func (l *Listener) Addr() netip.AddrPort {
	return l.addr
}

// Accept returns the next pending connection, or nil without error when no
// connection is pending.
func (l *Listener) Accept() (*Endpoint, error) {
	if l.closed.Load() {
		return nil, unix.EBADF
	}
	for {
		fd, sockaddr, err := unix.Accept(l.fd)
		switch err {
		case nil:
		case unix.EINTR, unix.ECONNABORTED:
			continue
		case unix.EAGAIN:
			return nil, nil
		default:
			return nil, E.Cause(err, "accept")
		}
		if l.control != nil {
			if err = l.control(fd); err != nil {
				unix.Close(fd)
				return nil, E.Cause(err, "configure accepted socket")
			}
		}
		endpoint, err := NewEndpoint(fd, fromSockaddr(sockaddr))
		if err != nil {
			unix.Close(fd)
			return nil, err
		}
		return endpoint, nil
	}
}

func (l *Listener) Close() error {
	if l == nil || l.closed.Swap(true) {
		return nil
	}
	return unix.Close(l.fd)
}

func (l *Listener) IsClosed() bool {
	return l.closed.Load()
}
