package exceptions

import (
	"errors"
	"strings"
)

type MultiError interface {
	error
	Unwrap() []error
}

type multiError struct {
	errors []error
}

func (e *multiError) Error() string {
	messages := make([]string, 0, len(e.errors))
	for _, err := range e.errors {
		messages = append(messages, err.Error())
	}
	return "multi error: (" + strings.Join(messages, " | ") + ")"
}

func (e *multiError) Unwrap() []error {
	return e.errors
}

// Errors joins the non-nil errors. It returns nil when none is left and the
// error itself when exactly one is.
func Errors(errs ...error) error {
	var filtered []error
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	switch len(filtered) {
	case 0:
		return nil
	case 1:
		return filtered[0]
	}
	return &multiError{filtered}
}

// IsMulti reports whether err matches any target. A multi error matches only
// when every member does.
func IsMulti(err error, targetList ...error) bool {
	if multiErr, isMulti := err.(MultiError); isMulti {
		for _, inner := range multiErr.Unwrap() {
			if !IsMulti(inner, targetList...) {
				return false
			}
		}
		return true
	}
	for _, target := range targetList {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
