// Package fetch holds the per-connection state machines of the file fetch
// protocol. A connection only moves forward when its reactor hands it a
// readiness event; it never blocks.
package fetch

import (
	"errors"
	"io"

	"github.com/sagernet/sing-fetch/common/buf"
	E "github.com/sagernet/sing-fetch/common/exceptions"
	"github.com/sagernet/sing-fetch/common/poll"
	"github.com/sagernet/sing-fetch/common/resource"

	"github.com/sirupsen/logrus"
)

var ErrAbandoned = E.New("connection abandoned")

// Endpoint is a non-blocking connected socket. Read and Write return (0, nil)
// when the operation would block; Read returns io.EOF at end of stream.
type Endpoint interface {
	io.ReadWriteCloser
	String() string
}

// Registration is the connection's entry in its reactor.
type Registration interface {
	SetInterest(interest poll.Interest) error
	Cancel() error
}

// connection carries what both roles share: the endpoint, its registration,
// traffic counters and teardown.
type connection struct {
	endpoint     Endpoint
	registration Registration
	logger       *logrus.Entry
	bytesRead    int64
	bytesWritten int64
	err          error
	done         bool
}

func (c *connection) Bind(registration Registration) {
	c.registration = registration
}

func (c *connection) BytesRead() int64 {
	return c.bytesRead
}

func (c *connection) BytesWritten() int64 {
	return c.bytesWritten
}

// Err returns the error that ended the connection, if any.
func (c *connection) Err() error {
	return c.err
}

func (c *connection) setInterest(interest poll.Interest) error {
	if c.registration == nil {
		return nil
	}
	return c.registration.SetInterest(interest)
}

// readPastLimit reads once more after a buffer has reached its limit. A
// non-zero count means the peer sent more than the limit allows; io.EOF or
// (0, nil) mean the buffered bytes are all there is for now.
func (c *connection) readPastLimit() (bool, error) {
	var extra [1]byte
	n, err := c.endpoint.Read(extra[:])
	c.bytesRead += int64(n)
	return n > 0, err
}

func limitExceeded(limit int) error {
	return E.Extend(buf.ErrBufferLimit, "limit ", limit)
}

// teardown deregisters and closes the endpoint exactly once.
func (c *connection) teardown(err error) bool {
	if c.done {
		return false
	}
	c.done = true
	c.err = err
	if c.registration != nil {
		if cancelErr := c.registration.Cancel(); cancelErr != nil {
			c.logger.Trace("cancel registration: ", cancelErr)
		}
	}
	if closeErr := c.endpoint.Close(); closeErr != nil && !E.IsClosed(closeErr) {
		c.logger.Debug("close endpoint: ", closeErr)
	}
	logger := c.logger.WithFields(logrus.Fields{
		"read":    c.bytesRead,
		"written": c.bytesWritten,
	})
	switch {
	case err == nil:
		logger.Debug("connection closed")
	case errors.Is(err, ErrAbandoned):
		logger.Debug("connection abandoned")
	case errors.Is(err, resource.ErrNotFound), errors.Is(err, resource.ErrInvalidName):
		logger.Info("closed without response: ", err)
	case E.IsClosed(err):
		logger.Debug("connection closed: ", err)
	default:
		logger.Warn("connection closed: ", err)
	}
	return true
}
