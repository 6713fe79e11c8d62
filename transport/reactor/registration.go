package reactor

import (
	"github.com/sagernet/sing-fetch/common/poll"
)

type registrationState uint8

const (
	registrationPending registrationState = iota
	registrationActive
	registrationCancelled
)

// Registration binds one descriptor, its current interest and its handler.
// Its methods must only be called from the reactor goroutine, normally from
// the handler that owns it.
type Registration struct {
	reactor   *Reactor
	id        uint64
	fd        int
	interest  poll.Interest
	handler   Handler
	state     registrationState
	lastCycle uint64
}

func (r *Registration) ID() uint64 {
	return r.id
}

func (r *Registration) FD() int {
	return r.fd
}

func (r *Registration) Interest() poll.Interest {
	return r.interest
}

func (r *Registration) IsActive() bool {
	return r.state != registrationCancelled
}

// SetInterest replaces the watched readiness set.
func (r *Registration) SetInterest(interest poll.Interest) error {
	switch r.state {
	case registrationCancelled:
		return ErrClosed
	case registrationPending:
		r.interest = interest
		return nil
	}
	if interest == r.interest {
		return nil
	}
	err := r.reactor.poller.Modify(r.fd, r.id, interest)
	if err != nil {
		return err
	}
	r.interest = interest
	return nil
}

// Cancel removes the registration from the reactor. It must be called before
// the descriptor is closed. Cancelling twice is a no-op.
func (r *Registration) Cancel() error {
	state := r.state
	r.state = registrationCancelled
	if state != registrationActive {
		return nil
	}
	delete(r.reactor.registrations, r.id)
	return r.reactor.poller.Remove(r.fd)
}
