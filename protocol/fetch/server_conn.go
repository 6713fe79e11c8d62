package fetch

import (
	"io"

	"github.com/sagernet/sing-fetch/common/buf"
	E "github.com/sagernet/sing-fetch/common/exceptions"
	"github.com/sagernet/sing-fetch/common/poll"
	"github.com/sagernet/sing-fetch/common/resource"

	"github.com/sirupsen/logrus"
)

const DefaultMaxRequestSize = 4 << 10

type ServerConnOptions struct {
	Resolver       resource.Resolver
	Framing        Framing
	BufferSize     int
	MaxRequestSize int
	Logger         *logrus.Entry
	OnClose        func(conn *ServerConn)
}

type serverState interface {
	serverState() State
}

type awaitingRequest struct {
	buffer *buf.Buffer
}

type resolvingResource struct {
	name string
}

type awaitingResourceSend struct {
	name      string
	resource  resource.Resource
	buffer    *buf.Buffer
	exhausted bool
}

type serverClosed struct{}

func (*awaitingRequest) serverState() State      { return StateAwaitingRequest }
func (*resolvingResource) serverState() State    { return StateResolvingResource }
func (*awaitingResourceSend) serverState() State { return StateAwaitingResourceSend }
func (serverClosed) serverState() State          { return StateClosed }

// ServerConn answers a single request on an accepted endpoint. It starts in
// StateAwaitingRequest with readable interest.
type ServerConn struct {
	connection
	resolver       resource.Resolver
	framing        Framing
	bufferSize     int
	maxRequestSize int
	onClose        func(conn *ServerConn)
	state          serverState
}

func NewServerConn(endpoint Endpoint, options ServerConnOptions) *ServerConn {
	if options.BufferSize <= 0 {
		options.BufferSize = buf.DefaultSize
	}
	if options.MaxRequestSize <= 0 {
		options.MaxRequestSize = DefaultMaxRequestSize
	}
	logger := options.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &ServerConn{
		connection: connection{
			endpoint: endpoint,
			logger:   logger,
		},
		resolver:       options.Resolver,
		framing:        options.Framing,
		bufferSize:     options.BufferSize,
		maxRequestSize: options.MaxRequestSize,
		onClose:        options.OnClose,
		state: &awaitingRequest{
			buffer: buf.NewLimited(options.BufferSize, options.MaxRequestSize),
		},
	}
}

func (c *ServerConn) State() State {
	return c.state.serverState()
}

func (c *ServerConn) HandleEvent(event poll.Event) {
	switch state := c.state.(type) {
	case *awaitingRequest:
		c.readRequest(state)
	case *awaitingResourceSend:
		c.sendResource(state)
	}
}

// HandleError closes the connection after a failure reported by the reactor.
func (c *ServerConn) HandleError(err error) {
	c.close(err)
}

// Close abandons the connection wherever it is.
func (c *ServerConn) Close() error {
	c.close(ErrAbandoned)
	return nil
}

func (c *ServerConn) readRequest(state *awaitingRequest) {
	for {
		if state.buffer.IsFull() {
			if !state.buffer.CanGrow() {
				c.readRequestAtLimit(state)
				return
			}
			err := state.buffer.Grow()
			if err != nil {
				c.close(E.Cause(err, "read request"))
				return
			}
			c.logger.Trace("request buffer grown to ", state.buffer.Cap())
		}
		n, err := state.buffer.ReadOnceFrom(c.endpoint)
		c.bytesRead += int64(n)
		if err != nil {
			if err == io.EOF {
				c.endOfRequest(state)
			} else {
				c.close(E.Cause(err, "read request"))
			}
			return
		}
		if n == 0 {
			break
		}
		c.logger.Trace("read ", n, " bytes")
		if c.framing == FramingLine {
			if name, loaded := splitLine(state.buffer.Bytes()); loaded {
				c.resolve(name)
				return
			}
		}
	}
	if c.framing == FramingRaw && !state.buffer.IsEmpty() {
		c.resolve(string(state.buffer.Bytes()))
	}
}

// endOfRequest handles a peer that stopped sending. With raw framing the bytes
// received so far are the name; a line without its terminator is dropped.
func (c *ServerConn) endOfRequest(state *awaitingRequest) {
	if c.framing == FramingRaw && !state.buffer.IsEmpty() {
		c.logger.Trace("request ended by peer")
		c.resolve(string(state.buffer.Bytes()))
		return
	}
	c.close(nil)
}

// readRequestAtLimit accepts a raw request that fills the limit exactly. A
// line request that reaches the limit without its terminator is too long.
func (c *ServerConn) readRequestAtLimit(state *awaitingRequest) {
	if c.framing == FramingLine {
		c.close(E.Cause(limitExceeded(state.buffer.Limit()), "read request"))
		return
	}
	exceeded, err := c.readPastLimit()
	switch {
	case exceeded:
		c.close(E.Cause(limitExceeded(state.buffer.Limit()), "read request"))
	case err == nil || err == io.EOF:
		c.resolve(string(state.buffer.Bytes()))
	default:
		c.close(E.Cause(err, "read request"))
	}
}

func (c *ServerConn) resolve(name string) {
	c.releaseState()
	c.state = &resolvingResource{name}
	c.logger.Debug("state ", StateResolvingResource, ": ", name)

	if c.resolver == nil {
		c.close(E.Extend(resource.ErrNotFound, name))
		return
	}
	found, err := c.resolver.Resolve(name)
	if err != nil {
		c.close(err)
		return
	}
	c.logger.Info("resolved ", name)
	c.state = &awaitingResourceSend{
		name:     name,
		resource: found,
		buffer:   buf.NewSize(c.bufferSize),
	}
	err = c.setInterest(poll.Writable)
	if err != nil {
		c.close(E.Cause(err, "switch to writable"))
		return
	}
	c.logger.Debug("state ", StateAwaitingResourceSend)
}

// sendResource writes at most one chunk per event. A short write leaves the
// remainder in the buffer for the next writable event.
func (c *ServerConn) sendResource(state *awaitingResourceSend) {
	if state.buffer.IsEmpty() && !state.exhausted {
		state.buffer.Reset()
		n, err := state.buffer.ReadChunkFrom(state.resource)
		if err != nil {
			if err != io.EOF {
				c.close(E.Cause(err, "read resource ", state.name))
				return
			}
			state.exhausted = true
		}
		if n > 0 {
			c.logger.Trace("loaded ", n, " bytes of ", state.name)
		}
	}
	if !state.buffer.IsEmpty() {
		n, err := c.endpoint.Write(state.buffer.Bytes())
		state.buffer.Advance(n)
		c.bytesWritten += int64(n)
		if err != nil {
			c.close(E.Cause(err, "write response"))
			return
		}
		if n > 0 {
			c.logger.Trace("wrote ", n, " bytes")
		}
	}
	if state.exhausted && state.buffer.IsEmpty() {
		c.logger.Info("sent ", state.name, " (", c.bytesWritten, " bytes)")
		c.close(nil)
	}
}

func (c *ServerConn) releaseState() {
	switch state := c.state.(type) {
	case *awaitingRequest:
		state.buffer.Release()
	case *awaitingResourceSend:
		state.buffer.Release()
		if err := state.resource.Close(); err != nil {
			c.logger.Debug("close resource: ", err)
		}
	}
}

func (c *ServerConn) close(err error) {
	if _, isClosed := c.state.(serverClosed); isClosed {
		return
	}
	c.releaseState()
	c.state = serverClosed{}
	if c.teardown(err) && c.onClose != nil {
		c.onClose(c)
	}
}
