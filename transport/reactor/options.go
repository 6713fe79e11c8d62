package reactor

import (
	"time"

	"github.com/sagernet/sing-fetch/common/poll"
)

type Option func(*Reactor)

// WithPollTimeout bounds each wait so the loop can check for closure even when
// no descriptor becomes ready. Negative blocks until an event arrives.
func WithPollTimeout(timeout time.Duration) Option {
	return func(r *Reactor) {
		r.pollTimeout = timeout
	}
}

func WithEventBatch(size int) Option {
	return func(r *Reactor) {
		if size > 0 {
			r.events = make([]poll.Event, size)
		}
	}
}
