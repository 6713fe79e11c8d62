// Package reactor drives non-blocking sockets from a single event loop.
//
// A Reactor owns one poller and the table of registrations made against it.
// Every handler runs on the goroutine that calls Poll or Run, so the table and
// the state behind each handler never need locking. Only Register, Post, Stop
// and Close may be called from other goroutines.
package reactor

import (
	"context"
	"io"
	"sync"
	"time"

	E "github.com/sagernet/sing-fetch/common/exceptions"
	"github.com/sagernet/sing-fetch/common/poll"

	"github.com/eapache/queue"
	"github.com/sirupsen/logrus"
)

var ErrClosed = E.New("reactor closed")

// Handler receives readiness events for one registration. HandleEvent must not
// block.
type Handler interface {
	HandleEvent(event poll.Event)
}

type HandlerFunc func(event poll.Event)

func (f HandlerFunc) HandleEvent(event poll.Event) {
	f(event)
}

// poller is the readiness notifier a Reactor drives; *poll.Poller on
// supported platforms.
type poller interface {
	Add(fd int, id uint64, interest poll.Interest) error
	Modify(fd int, id uint64, interest poll.Interest) error
	Remove(fd int) error
	Wait(events []poll.Event, timeout time.Duration) (int, error)
	Wakeup() error
	Close() error
}

type Reactor struct {
	logger      *logrus.Entry
	poller      poller
	pollTimeout time.Duration
	events      []poll.Event

	registrations map[uint64]*Registration
	cycle         uint64

	access  sync.Mutex
	pending *queue.Queue
	nextID  uint64
	stopped bool
	closed  bool
	running bool
	runDone chan struct{}
}

func New(logger *logrus.Entry, options ...Option) (*Reactor, error) {
	poller, err := poll.New()
	if err != nil {
		return nil, E.Cause(err, "create poller")
	}
	return newWithPoller(logger, poller, options...), nil
}

func newWithPoller(logger *logrus.Entry, poller poller, options ...Option) *Reactor {
	r := &Reactor{
		logger:        logger,
		poller:        poller,
		pollTimeout:   -1,
		events:        make([]poll.Event, poll.DefaultEventBatch),
		registrations: make(map[uint64]*Registration),
		pending:       queue.New(),
	}
	for _, option := range options {
		option(r)
	}
	return r
}

// Register queues fd for admission with the given interest. The registration
// becomes visible to the poller at the start of the next cycle, so a handler
// that registers a new descriptor never sees it in the same cycle.
func (r *Reactor) Register(fd int, interest poll.Interest, handler Handler) (*Registration, error) {
	r.access.Lock()
	defer r.access.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	r.nextID++
	registration := &Registration{
		reactor:  r,
		id:       r.nextID,
		fd:       fd,
		interest: interest,
		handler:  handler,
	}
	r.pending.Add(registration)
	if r.running {
		r.poller.Wakeup()
	}
	return registration, nil
}

// Post queues f to run on the reactor goroutine at the start of the next
// cycle, before pending registrations are admitted. It is the way for other
// goroutines, timers included, to touch registrations.
func (r *Reactor) Post(f func()) error {
	r.access.Lock()
	defer r.access.Unlock()
	if r.closed {
		return ErrClosed
	}
	r.pending.Add(f)
	if r.running {
		r.poller.Wakeup()
	}
	return nil
}

// Len returns the number of admitted and pending registrations.
func (r *Reactor) Len() int {
	r.access.Lock()
	defer r.access.Unlock()
	count := len(r.registrations)
	for i := 0; i < r.pending.Length(); i++ {
		if _, isRegistration := r.pending.Get(i).(*Registration); isRegistration {
			count++
		}
	}
	return count
}

func (r *Reactor) admitPending() {
	r.access.Lock()
	var (
		tasks    []func()
		admitted []*Registration
	)
	for r.pending.Length() > 0 {
		switch item := r.pending.Remove().(type) {
		case func():
			tasks = append(tasks, item)
		case *Registration:
			admitted = append(admitted, item)
		}
	}
	r.access.Unlock()

	for _, task := range tasks {
		task()
	}
	for _, registration := range admitted {
		if registration.state != registrationPending {
			continue
		}
		err := r.poller.Add(registration.fd, registration.id, registration.interest)
		if err != nil {
			registration.state = registrationCancelled
			r.logger.WithField("fd", registration.fd).Warn("admit registration: ", err)
			if errorHandler, isErrorHandler := registration.handler.(E.Handler); isErrorHandler {
				errorHandler.HandleError(E.Cause(err, "register fd ", registration.fd))
			}
			continue
		}
		registration.state = registrationActive
		r.registrations[registration.id] = registration
	}
}

// Poll runs one cycle: pending registrations are admitted, the poller is
// waited on for at most timeout (negative blocks) and every ready registration
// is handed exactly one event. It returns the number of events dispatched.
func (r *Reactor) Poll(timeout time.Duration) (int, error) {
	r.access.Lock()
	if r.closed {
		r.access.Unlock()
		return 0, ErrClosed
	}
	r.access.Unlock()

	r.admitPending()
	r.cycle++

	n, err := r.poller.Wait(r.events, timeout)
	if err != nil {
		return 0, E.Cause(err, "poll")
	}

	var handled int
	for _, event := range r.events[:n] {
		registration, loaded := r.registrations[event.ID]
		if !loaded || registration.state != registrationActive {
			continue
		}
		if registration.lastCycle == r.cycle {
			continue
		}
		if !event.Ready(registration.interest) {
			continue
		}
		registration.lastCycle = r.cycle
		registration.handler.HandleEvent(event)
		handled++
	}
	return handled, nil
}

// Run polls until ctx is done or Stop or Close is called. A failed wait is
// logged and the loop carries on with the next cycle.
func (r *Reactor) Run(ctx context.Context) error {
	r.access.Lock()
	if r.closed {
		r.access.Unlock()
		return ErrClosed
	}
	if r.running {
		r.access.Unlock()
		return E.New("reactor already running")
	}
	r.running = true
	r.stopped = false
	r.runDone = make(chan struct{})
	runDone := r.runDone
	r.access.Unlock()

	stopWatch := context.AfterFunc(ctx, r.Stop)
	defer func() {
		stopWatch()
		r.access.Lock()
		r.running = false
		r.access.Unlock()
		close(runDone)
	}()

	for {
		r.access.Lock()
		stopped := r.stopped
		r.access.Unlock()
		if stopped {
			return ctx.Err()
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		_, err := r.Poll(r.pollTimeout)
		if err != nil {
			if E.IsMulti(err, ErrClosed, poll.ErrClosed) {
				return nil
			}
			r.logger.Warn(err)
		}
	}
}

// Stop makes Run return after the current cycle.
func (r *Reactor) Stop() {
	r.access.Lock()
	defer r.access.Unlock()
	r.stopped = true
	if !r.closed {
		r.poller.Wakeup()
	}
}

// Close stops the loop, waits for Run to return and cancels every
// registration. Handlers implementing io.Closer are closed, which abandons
// their connections. Close must not be called from a handler; use Stop.
func (r *Reactor) Close() error {
	r.access.Lock()
	if r.closed {
		r.access.Unlock()
		return nil
	}
	r.stopped = true
	runDone := r.runDone
	running := r.running
	if running {
		r.poller.Wakeup()
	}
	r.access.Unlock()

	if running {
		<-runDone
	}

	r.access.Lock()
	r.closed = true
	var abandoned []*Registration
	for r.pending.Length() > 0 {
		if registration, isRegistration := r.pending.Remove().(*Registration); isRegistration {
			abandoned = append(abandoned, registration)
		}
	}
	r.access.Unlock()

	for id, registration := range r.registrations {
		abandoned = append(abandoned, registration)
		delete(r.registrations, id)
	}
	for _, registration := range abandoned {
		if registration.state == registrationCancelled {
			continue
		}
		registration.state = registrationCancelled
		if closer, isCloser := registration.handler.(io.Closer); isCloser {
			closer.Close()
		}
	}
	return r.poller.Close()
}
