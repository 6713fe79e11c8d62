package exceptions

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"syscall"
)

// IsClosed reports errors caused by a peer going away or a socket being closed
// locally. Such errors end a connection without being worth a warning.
func IsClosed(err error) bool {
	return IsMulti(err,
		io.EOF,
		io.ErrClosedPipe,
		io.ErrUnexpectedEOF,
		net.ErrClosed,
		os.ErrClosed,
		context.Canceled,
		syscall.EPIPE,
		syscall.ECONNRESET,
		syscall.ECONNABORTED,
		syscall.ENOTCONN,
		syscall.EBADF,
	) || errors.Is(err, syscall.ESHUTDOWN)
}
