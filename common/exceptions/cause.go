package exceptions

import "errors"

// Root returns the innermost error in a chain of single-cause wrappers.
func Root(err error) error {
	for {
		inner := errors.Unwrap(err)
		if inner == nil {
			return err
		}
		err = inner
	}
}
