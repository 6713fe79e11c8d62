package fetch

import (
	"io"

	"github.com/sagernet/sing-fetch/common/buf"
	E "github.com/sagernet/sing-fetch/common/exceptions"
	"github.com/sagernet/sing-fetch/common/poll"

	"github.com/sirupsen/logrus"
)

const DefaultMaxBufferSize = 64 << 20

type ClientConnOptions struct {
	Name          string
	Framing       Framing
	BufferSize    int
	MaxBufferSize int
	Logger        *logrus.Entry
	// OnDone is called once the connection completes or closes.
	OnDone func(conn *ClientConn)
}

type clientState interface {
	clientState() State
}

type sendingRequest struct {
	pending []byte
}

type awaitingResponse struct {
	buffer *buf.Buffer
}

type complete struct {
	data []byte
}

type clientClosed struct{}

func (*sendingRequest) clientState() State   { return StateSendingRequest }
func (*awaitingResponse) clientState() State { return StateAwaitingResponse }
func (*complete) clientState() State         { return StateComplete }
func (clientClosed) clientState() State      { return StateClosed }

// ClientConn sends one request and collects the response until the server
// closes the stream. It starts in StateSendingRequest with writable interest.
type ClientConn struct {
	connection
	bufferSize    int
	maxBufferSize int
	onDone        func(conn *ClientConn)
	state         clientState
}

func NewClientConn(endpoint Endpoint, options ClientConnOptions) *ClientConn {
	if options.BufferSize <= 0 {
		options.BufferSize = buf.DefaultSize
	}
	if options.MaxBufferSize <= 0 {
		options.MaxBufferSize = DefaultMaxBufferSize
	}
	logger := options.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &ClientConn{
		connection: connection{
			endpoint: endpoint,
			logger:   logger,
		},
		bufferSize:    options.BufferSize,
		maxBufferSize: options.MaxBufferSize,
		onDone:        options.OnDone,
		state: &sendingRequest{
			pending: options.Framing.EncodeRequest(options.Name),
		},
	}
}

func (c *ClientConn) State() State {
	return c.state.clientState()
}

// Result returns the drained response once the connection is complete, or
// the error that closed it.
func (c *ClientConn) Result() ([]byte, error) {
	switch state := c.state.(type) {
	case *complete:
		return state.data, nil
	case clientClosed:
		if c.err == nil {
			return nil, E.New("connection closed")
		}
		return nil, c.err
	default:
		return nil, E.New("response pending in state ", c.State())
	}
}

func (c *ClientConn) HandleEvent(event poll.Event) {
	switch state := c.state.(type) {
	case *sendingRequest:
		c.sendRequest(state)
	case *awaitingResponse:
		c.readResponse(state)
	}
}

func (c *ClientConn) HandleError(err error) {
	c.close(err)
}

func (c *ClientConn) Close() error {
	c.close(ErrAbandoned)
	return nil
}

func (c *ClientConn) sendRequest(state *sendingRequest) {
	n, err := c.endpoint.Write(state.pending)
	c.bytesWritten += int64(n)
	state.pending = state.pending[n:]
	if err != nil {
		c.close(E.Cause(err, "write request"))
		return
	}
	if len(state.pending) > 0 {
		return
	}
	c.logger.Trace("request sent")
	c.state = &awaitingResponse{
		buffer: buf.NewLimited(c.bufferSize, c.maxBufferSize),
	}
	err = c.setInterest(poll.Readable)
	if err != nil {
		c.close(E.Cause(err, "switch to readable"))
		return
	}
	c.logger.Debug("state ", StateAwaitingResponse)
}

// readResponse drains everything the socket holds, growing the buffer
// whenever it fills up.
func (c *ClientConn) readResponse(state *awaitingResponse) {
	for {
		if state.buffer.IsFull() {
			if !state.buffer.CanGrow() {
				c.readResponseAtLimit(state)
				return
			}
			err := state.buffer.Grow()
			if err != nil {
				c.close(E.Cause(err, "read response"))
				return
			}
			c.logger.Trace("response buffer grown to ", state.buffer.Cap())
		}
		n, err := state.buffer.ReadOnceFrom(c.endpoint)
		c.bytesRead += int64(n)
		if err != nil {
			if err == io.EOF {
				c.finish(state)
			} else {
				c.close(E.Cause(err, "read response"))
			}
			return
		}
		if n == 0 {
			return
		}
		c.logger.Trace("read ", n, " bytes")
	}
}

// readResponseAtLimit completes a response that fills the limit exactly and
// fails one that goes past it. Until the server closes, it keeps waiting.
func (c *ClientConn) readResponseAtLimit(state *awaitingResponse) {
	exceeded, err := c.readPastLimit()
	switch {
	case exceeded:
		c.close(E.Cause(limitExceeded(state.buffer.Limit()), "read response"))
	case err == io.EOF:
		c.finish(state)
	case err != nil:
		c.close(E.Cause(err, "read response"))
	}
}

func (c *ClientConn) finish(state *awaitingResponse) {
	data := state.buffer.ToOwned()
	state.buffer.Release()
	c.state = &complete{data}
	c.logger.Info("received ", len(data), " bytes")
	c.teardown(nil)
	if c.onDone != nil {
		c.onDone(c)
	}
}

func (c *ClientConn) close(err error) {
	switch state := c.state.(type) {
	case clientClosed, *complete:
		return
	case *awaitingResponse:
		state.buffer.Release()
	}
	c.state = clientClosed{}
	if c.teardown(err) && c.onDone != nil {
		c.onDone(c)
	}
}
