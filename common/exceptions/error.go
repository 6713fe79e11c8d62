package exceptions

import (
	"errors"
	"fmt"
)

type Exception interface {
	error
	Cause() error
}

type exception struct {
	message string
	cause   error
}

func (e *exception) Error() string {
	if e.cause == nil {
		return e.message
	}
	return e.message + ": " + e.cause.Error()
}

func (e *exception) Cause() error {
	return e.cause
}

func (e *exception) Unwrap() error {
	return e.cause
}

func New(message ...any) error {
	return errors.New(fmt.Sprint(message...))
}

// Cause wraps err with a message. A nil cause yields a plain error.
func Cause(cause error, message ...any) error {
	if cause == nil {
		return New(message...)
	}
	return &exception{fmt.Sprint(message...), cause}
}

// Extend appends detail to an existing error while keeping it matchable with errors.Is.
func Extend(cause error, message ...any) error {
	if cause == nil {
		return nil
	}
	return &extendedError{cause, fmt.Sprint(message...)}
}

type extendedError struct {
	cause   error
	message string
}

func (e *extendedError) Error() string {
	return e.cause.Error() + ": " + e.message
}

func (e *extendedError) Unwrap() error {
	return e.cause
}

type Handler interface {
	HandleError(err error)
}

type HandlerFunc func(err error)

func (f HandlerFunc) HandleError(err error) {
	f(err)
}
