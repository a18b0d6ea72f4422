package config

import (
	"errors"
	"fmt"
)

// ErrInvalid matches every *Error via errors.Is.
var ErrInvalid = errors.New("invalid configuration")

// Error reports configuration that cannot be used, such as an unknown
// decoration field or a malformed key-path tree.
type Error struct {
	// Source names where the configuration came from, e.g. a file path.
	Source string
	Msg    string
	Err    error
}

// Errorf builds an *Error with a formatted message.
func Errorf(source, format string, args ...any) *Error {
	return &Error{Source: source, Msg: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	msg := e.Msg
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Source == "" {
		return "config: " + msg
	}
	return fmt.Sprintf("config %s: %s", e.Source, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is makes every Error match ErrInvalid.
func (e *Error) Is(target error) bool { return target == ErrInvalid }
