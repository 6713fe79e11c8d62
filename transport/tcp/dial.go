//go:build linux || darwin

package tcp

import (
	"context"
	"net/netip"
	"time"

	"github.com/sagernet/sing-fetch/common/control"
	E "github.com/sagernet/sing-fetch/common/exceptions"

	"golang.org/x/sys/unix"
)

const connectPollInterval = 50 * time.Millisecond

var ErrConnectTimeout error = connectTimeoutError{}

type connectTimeoutError struct{}

func (connectTimeoutError) Error() string {
	return "connect timed out"
}

func (connectTimeoutError) Timeout() bool {
	return true
}

// Dial connects to remote and returns a non-blocking endpoint. The connect
// itself is waited for here, so a failure surfaces before any event loop runs.
func Dial(ctx context.Context, remote netip.AddrPort, optionList ...Option) (*Endpoint, error) {
	o := newOptions(optionList)
	family, sockaddr := toSockaddr(remote)
	fd, err := unix.Socket(family, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, E.Cause(err, "create socket")
	}
	err = control.Apply(fd, control.NonBlock(), o.control)
	if err != nil {
		unix.Close(fd)
		return nil, err
	}
	err = unix.Connect(fd, sockaddr)
	if err == unix.EINPROGRESS || err == unix.EINTR {
		err = waitConnect(ctx, fd, o.dialTimeout)
	}
	if err != nil {
		unix.Close(fd)
		return nil, E.Cause(err, "connect ", remote)
	}
	endpoint, err := NewEndpoint(fd, remote)
	if err != nil {
		unix.Close(fd)
		return nil, err
	}
	return endpoint, nil
}

func waitConnect(ctx context.Context, fd int, timeout time.Duration) error {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	if ctxDeadline, loaded := ctx.Deadline(); loaded && (deadline.IsZero() || ctxDeadline.Before(deadline)) {
		deadline = ctxDeadline
	}
	pollFDs := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLOUT}}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		wait := connectPollInterval
		if !deadline.IsZero() {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				return ErrConnectTimeout
			}
			if remaining < wait {
				wait = remaining
			}
		}
		n, err := unix.Poll(pollFDs, int(wait/time.Millisecond)+1)
		if err == unix.EINTR {
			continue
		} else if err != nil {
			return err
		}
		if n == 0 {
			continue
		}
		socketErr, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
		if err != nil {
			return err
		}
		if socketErr != 0 {
			return unix.Errno(socketErr)
		}
		return nil
	}
}
