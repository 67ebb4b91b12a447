package graph

import (
	"errors"
	"fmt"
)

// ErrInvalidGraphInput is matched by every InputError via errors.Is.
var ErrInvalidGraphInput = errors.New("invalid graph input")

// InputError describes a pipeline document that cannot be validated: a node
// without an identifier, a duplicated identifier, or collections that do not
// decode into the expected shape.
type InputError struct {
	Field string // e.g. "nodes[3].id"
	Msg   string
	Err   error
}

func (e *InputError) Error() string {
	if e == nil {
		return ""
	}
	msg := ErrInvalidGraphInput.Error()
	if e.Field != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Field)
	}
	if e.Msg != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Msg)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *InputError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrInvalidGraphInput, e.Err}
	}
	return []error{ErrInvalidGraphInput}
}
