package fetch

import (
	"context"

	E "github.com/sagernet/sing-fetch/common/exceptions"
	"github.com/sagernet/sing-fetch/common/json/badoption"
	"github.com/sagernet/sing-fetch/common/log"
	"github.com/sagernet/sing-fetch/common/poll"
	F "github.com/sagernet/sing-fetch/protocol/fetch"
	"github.com/sagernet/sing-fetch/transport/reactor"
	"github.com/sagernet/sing-fetch/transport/tcp"

	"github.com/sirupsen/logrus"
)

type Client struct {
	logger  *logrus.Entry
	options ClientOptions
}

func NewClient(options ClientOptions) *Client {
	logger := options.Logger
	if logger == nil {
		logger = log.NewLogger("client")
	}
	if options.Host == "" {
		options.Host = "localhost"
	}
	if options.Port == 0 {
		options.Port = DefaultPort
	}
	if options.PollTimeout <= 0 {
		options.PollTimeout = badoption.Duration(DefaultPollTimeout)
	}
	return &Client{
		logger:  logger,
		options: options,
	}
}

// Fetch requests name over a fresh connection and returns everything the
// server sent before closing it. Each call runs its own event loop.
func (c *Client) Fetch(ctx context.Context, name string) (*Response, error) {
	remote, err := tcp.ResolveAddr(c.options.Host, c.options.Port)
	if err != nil {
		return nil, err
	}
	var dialOptions []tcp.Option
	if c.options.DialTimeout > 0 {
		dialOptions = append(dialOptions, tcp.WithDialTimeout(c.options.DialTimeout.Build()))
	}
	endpoint, err := tcp.Dial(ctx, remote, dialOptions...)
	if err != nil {
		return nil, err
	}
	logger := c.logger.WithField("remote", endpoint.String())
	logger.Debug("connected")

	loop, err := reactor.New(logger, reactor.WithPollTimeout(c.options.PollTimeout.Build()))
	if err != nil {
		endpoint.Close()
		return nil, err
	}
	defer loop.Close()

	conn := F.NewClientConn(endpoint, F.ClientConnOptions{
		Name:          name,
		Framing:       c.options.Framing,
		BufferSize:    c.options.BufferSize.Value(),
		MaxBufferSize: c.options.MaxBufferSize.Value(),
		Logger:        logger,
		OnDone: func(*F.ClientConn) {
			loop.Stop()
		},
	})
	registration, err := loop.Register(endpoint.FD(), poll.Writable, conn)
	if err != nil {
		endpoint.Close()
		return nil, E.Cause(err, "register connection")
	}
	conn.Bind(registration)

	runErr := loop.Run(ctx)
	if runErr != nil && !conn.State().IsTerminal() {
		return nil, E.Cause(runErr, "fetch ", name)
	}
	data, err := conn.Result()
	if err != nil {
		return nil, E.Cause(err, "fetch ", name)
	}
	return &Response{name, data}, nil
}
