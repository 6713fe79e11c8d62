package exceptions

import (
	"errors"
	"os"
)

type TimeoutError interface {
	Timeout() bool
}

// IsTimeout reports deadline errors and any wrapped error whose Timeout
// method returns true, net.Error and context.DeadlineExceeded included.
func IsTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var timeoutErr TimeoutError
	if errors.As(err, &timeoutErr) {
		return timeoutErr.Timeout()
	}
	return false
}
