//go:build linux || darwin

package tcp

import (
	"io"
	"net/netip"
	"strconv"
	"sync/atomic"

	E "github.com/sagernet/sing-fetch/common/exceptions"

	"golang.org/x/sys/unix"
)

// Endpoint is a connected, non-blocking TCP socket that owns its descriptor.
//
// Read returns (0, nil) when no data is available yet and (0, io.EOF) once the
// peer has finished sending. Write returns the number of bytes the kernel
// accepted, which is zero when the send buffer is full.
type Endpoint struct {
	fd     int
	local  netip.AddrPort
	remote netip.AddrPort
	closed atomic.Bool
}

// NewEndpoint takes ownership of a connected socket and switches it to
// non-blocking mode.
func NewEndpoint(fd int, remote netip.AddrPort) (*Endpoint, error) {
	err := unix.SetNonblock(fd, true)
	if err != nil {
		return nil, E.Cause(err, "set non-blocking")
	}
	unix.CloseOnExec(fd)
	return &Endpoint{
		fd:     fd,
		local:  localAddr(fd),
		remote: remote,
	}, nil
}

func (e *Endpoint) FD() int {
	return e.fd
}

func (e *Endpoint) LocalAddr() netip.AddrPort {
	return e.local
}

func (e *Endpoint) RemoteAddr() netip.AddrPort {
	return e.remote
}

func (e *Endpoint) String() string {
	if e.remote.IsValid() {
		return e.remote.String()
	}
	return "fd:" + strconv.Itoa(e.fd)
}

func (e *Endpoint) Read(p []byte) (int, error) {
	if e.closed.Load() {
		return 0, unix.EBADF
	}
	if len(p) == 0 {
		return 0, nil
	}
	for {
		n, err := unix.Read(e.fd, p)
		switch err {
		case nil:
			if n == 0 {
				return 0, io.EOF
			}
			return n, nil
		case unix.EINTR:
			continue
		case unix.EAGAIN:
			return 0, nil
		default:
			return 0, err
		}
	}
}

func (e *Endpoint) Write(p []byte) (int, error) {
	if e.closed.Load() {
		return 0, unix.EBADF
	}
	if len(p) == 0 {
		return 0, nil
	}
	for {
		n, err := unix.Write(e.fd, p)
		switch err {
		case nil:
			return n, nil
		case unix.EINTR:
			continue
		case unix.EAGAIN:
			return 0, nil
		default:
			return 0, err
		}
	}
}

// CloseWrite shuts down the sending side, which the peer observes as end of stream.
func (e *Endpoint) CloseWrite() error {
	if e.closed.Load() {
		return unix.EBADF
	}
	return unix.Shutdown(e.fd, unix.SHUT_WR)
}

func (e *Endpoint) Close() error {
	if e.closed.Swap(true) {
		return nil
	}
	return unix.Close(e.fd)
}

func (e *Endpoint) IsClosed() bool {
	return e.closed.Load()
}
