// Package poll wraps the platform readiness notifier (epoll on Linux, kqueue
// on Darwin) behind one level-triggered interface.
//
// Each registered file descriptor carries a caller chosen ID which is reported
// back in events instead of the descriptor, so a descriptor number recycled by
// the kernel can never be mistaken for its previous owner. ID zero is reserved.
package poll

import (
	"strings"
	"time"

	E "github.com/sagernet/sing-fetch/common/exceptions"
)

var (
	ErrUnsupported = E.New("poll: platform not supported")
	ErrClosed      = E.New("poll: poller closed")
	ErrReservedID  = E.New("poll: id 0 is reserved")
)

// Interest is the set of readiness conditions watched for a descriptor.
// A listener becomes acceptable when it is readable.
type Interest uint8

const (
	Readable Interest = 1 << iota
	Writable

	None Interest = 0
)

func (i Interest) String() string {
	if i == None {
		return "none"
	}
	var names []string
	if i&Readable != 0 {
		names = append(names, "readable")
	}
	if i&Writable != 0 {
		names = append(names, "writable")
	}
	return strings.Join(names, "|")
}

type Event struct {
	ID       uint64
	Readable bool
	Writable bool
	Hangup   bool
	Error    bool
}

// Ready reports whether the event satisfies interest. Hangup and error
// conditions satisfy any interest so that the following I/O call reports them.
func (e Event) Ready(interest Interest) bool {
	if e.Hangup || e.Error {
		return true
	}
	return interest&Readable != 0 && e.Readable || interest&Writable != 0 && e.Writable
}

const DefaultEventBatch = 128

func timeoutMillis(timeout time.Duration) int {
	if timeout < 0 {
		return -1
	}
	millis := int(timeout / time.Millisecond)
	if millis == 0 && timeout > 0 {
		millis = 1
	}
	return millis
}
