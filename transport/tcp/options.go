package tcp

import (
	"time"

	"github.com/sagernet/sing-fetch/common/control"
)

const (
	DefaultBacklog     = 128
	DefaultDialTimeout = 10 * time.Second
)

type Option func(*options)

type options struct {
	backlog     int
	dialTimeout time.Duration
	control     control.Func
}

func newOptions(optionList []Option) options {
	o := options{
		backlog:     DefaultBacklog,
		dialTimeout: DefaultDialTimeout,
	}
	for _, option := range optionList {
		option(&o)
	}
	return o
}

func WithBacklog(backlog int) Option {
	return func(o *options) {
		if backlog > 0 {
			o.backlog = backlog
		}
	}
}

func WithDialTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.dialTimeout = timeout
	}
}

// WithControl runs f on every socket before bind or connect, and on every
// accepted socket.
func WithControl(f control.Func) Option {
	return func(o *options) {
		o.control = control.Append(o.control, f)
	}
}
