package fetch

import (
	"context"
	"net/netip"
	"sync"
	"time"

	"github.com/sagernet/sing-fetch/common/control"
	E "github.com/sagernet/sing-fetch/common/exceptions"
	"github.com/sagernet/sing-fetch/common/log"
	"github.com/sagernet/sing-fetch/common/poll"
	"github.com/sagernet/sing-fetch/common/resource"
	F "github.com/sagernet/sing-fetch/protocol/fetch"
	"github.com/sagernet/sing-fetch/transport/reactor"
	"github.com/sagernet/sing-fetch/transport/tcp"

	"github.com/sirupsen/logrus"
)

// Server answers fetch requests on one listener from a single reactor.
type Server struct {
	ctx      context.Context
	logger   *logrus.Entry
	options  ServerOptions
	resolver resource.Resolver
	bind     netip.AddrPort

	access   sync.Mutex
	listener *tcp.Listener
	reactor  *reactor.Reactor
	started  bool
	done     chan struct{}

	listenerRegistration *reactor.Registration
	acceptDelay          time.Duration
	nextID               uint64
}

const (
	minAcceptDelay = 5 * time.Millisecond
	maxAcceptDelay = time.Second
)

func NewServer(ctx context.Context, options ServerOptions) (*Server, error) {
	bind, err := tcp.ResolveAddr(options.Host, options.Port)
	if err != nil {
		return nil, err
	}
	logger := options.Logger
	if logger == nil {
		logger = log.NewLogger("server")
	}
	return &Server{
		ctx:      ctx,
		logger:   logger,
		options:  options,
		resolver: options.resolver(),
		bind:     bind,
		done:     make(chan struct{}),
	}, nil
}

func (s *Server) prepare() error {
	s.access.Lock()
	defer s.access.Unlock()
	if s.started {
		return E.New("server already started")
	}
	listener, err := tcp.Listen(s.bind, tcp.WithControl(control.Append(
		control.NoDelay(),
		control.SetKeepAlivePeriod(DefaultKeepAlive, DefaultKeepAlive/2),
	)))
	if err != nil {
		return err
	}
	loop, err := reactor.New(s.logger)
	if err != nil {
		listener.Close()
		return err
	}
	registration, err := loop.Register(listener.FD(), poll.Readable, reactor.HandlerFunc(s.accept))
	if err != nil {
		loop.Close()
		listener.Close()
		return E.Cause(err, "register listener")
	}
	s.listenerRegistration = registration
	s.listener = listener
	s.reactor = loop
	s.started = true
	s.logger.Info("listening on ", listener.Addr())
	return nil
}

// Start binds the listener and serves in a new goroutine. A bind failure is
// returned before any event loop runs.
func (s *Server) Start() error {
	err := s.prepare()
	if err != nil {
		return err
	}
	go func() {
		defer close(s.done)
		if err := s.run(); err != nil {
			s.logger.Error("serve: ", err)
		}
	}()
	return nil
}

// Serve binds the listener and serves on the calling goroutine until the
// context is done or Close is called.
func (s *Server) Serve() error {
	err := s.prepare()
	if err != nil {
		return err
	}
	defer close(s.done)
	return s.run()
}

func (s *Server) run() error {
	err := s.reactor.Run(s.ctx)
	if err != nil && E.IsClosed(err) {
		return nil
	}
	return err
}

// Addr returns the bound address, which carries the real port when the
// configured one was zero.
func (s *Server) Addr() netip.AddrPort {
	s.access.Lock()
	defer s.access.Unlock()
	if s.listener == nil {
		return s.bind
	}
	return s.listener.Addr()
}

// Done is closed once the event loop has returned.
func (s *Server) Done() <-chan struct{} {
	return s.done
}

// Close stops the event loop and abandons connections still in flight.
func (s *Server) Close() error {
	s.access.Lock()
	defer s.access.Unlock()
	if !s.started {
		return nil
	}
	return E.Errors(
		s.reactor.Close(),
		s.listener.Close(),
	)
}

func (s *Server) accept(event poll.Event) {
	for {
		endpoint, err := s.listener.Accept()
		if err != nil {
			s.pauseAccept(err)
			return
		}
		if endpoint == nil {
			return
		}
		s.acceptDelay = 0
		s.nextID++
		logger := s.logger.WithFields(logrus.Fields{
			"conn":   s.nextID,
			"remote": endpoint.String(),
		})
		logger.Info("accepted connection")
		conn := F.NewServerConn(endpoint, F.ServerConnOptions{
			Resolver:       s.resolver,
			Framing:        s.options.Framing,
			BufferSize:     s.options.BufferSize.Value(),
			MaxRequestSize: s.options.MaxRequestSize.Value(),
			Logger:         logger,
		})
		registration, err := s.reactor.Register(endpoint.FD(), poll.Readable, conn)
		if err != nil {
			logger.Warn("register connection: ", err)
			endpoint.Close()
			continue
		}
		conn.Bind(registration)
	}
}

func nextAcceptDelay(delay time.Duration) time.Duration {
	if delay == 0 {
		return minAcceptDelay
	}
	delay *= 2
	if delay > maxAcceptDelay {
		delay = maxAcceptDelay
	}
	return delay
}

// pauseAccept stops watching the listener after a failed accept and resumes
// once the backoff delay has passed. The listener is level triggered, so a
// persistent failure such as running out of descriptors would otherwise be
// retried on every cycle.
func (s *Server) pauseAccept(err error) {
	s.acceptDelay = nextAcceptDelay(s.acceptDelay)
	delay := s.acceptDelay
	s.logger.Warn("accept: ", err, "; retrying in ", delay)
	registration := s.listenerRegistration
	if pauseErr := registration.SetInterest(poll.None); pauseErr != nil {
		s.logger.Debug("pause listener: ", pauseErr)
		return
	}
	loop := s.reactor
	time.AfterFunc(delay, func() {
		loop.Post(func() {
			if resumeErr := registration.SetInterest(poll.Readable); resumeErr != nil {
				s.logger.Debug("resume listener: ", resumeErr)
			}
		})
	})
}
