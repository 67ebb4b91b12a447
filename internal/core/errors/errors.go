package errors

import (
	"context"
	"errors"
	"fmt"

	"pipelinedag/internal/engine/graph"
)

type ErrorCode string

const (
	CodeInvalidGraphInput ErrorCode = "INVALID_GRAPH_INPUT"
	CodeValidationError   ErrorCode = "VALIDATION_ERROR"
	CodeLimitExceeded     ErrorCode = "LIMIT_EXCEEDED"
	CodeRateLimited       ErrorCode = "RATE_LIMITED"
	CodeTimeout           ErrorCode = "TIMEOUT"
	CodeNotFound          ErrorCode = "NOT_FOUND"
	CodeInternal          ErrorCode = "INTERNAL_ERROR"
)

type DomainError struct {
	Code    ErrorCode
	Message string
	Err     error
	Context map[string]interface{}
}

const (
	CtxField     = "field"
	CtxOperation = "operation"
	CtxRequestID = "request_id"
	CtxLimit     = "limit"
)

func (e *DomainError) WithContext(key string, value interface{}) *DomainError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

func (e *DomainError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if len(e.Context) > 0 {
		msg += fmt.Sprintf(" %v", e.Context)
	}
	return msg
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

func New(code ErrorCode, msg string) error {
	return &DomainError{Code: code, Message: msg}
}

func Wrap(err error, code ErrorCode, msg string) error {
	return &DomainError{Code: code, Message: msg, Err: err}
}

// AddContext attaches key/value context, wrapping plain errors as internal.
func AddContext(err error, key string, value interface{}) error {
	var de *DomainError
	if errors.As(err, &de) {
		de.WithContext(key, value)
		return de
	}
	return &DomainError{
		Code:    CodeInternal,
		Message: "wrapped error",
		Err:     err,
		Context: map[string]interface{}{key: value},
	}
}

func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// CodeOf classifies err. Graph input errors and context expiry are
// recognised even when they were never wrapped in a DomainError.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	switch {
	case errors.Is(err, graph.ErrInvalidGraphInput):
		return CodeInvalidGraphInput
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return CodeTimeout
	default:
		return CodeInternal
	}
}

// FromGraph wraps a graph package error with the matching code.
func FromGraph(err error) error {
	if err == nil {
		return nil
	}
	var de *DomainError
	if errors.As(err, &de) {
		return err
	}
	code := CodeOf(err)
	var inputErr *graph.InputError
	if errors.As(err, &inputErr) {
		wrapped := &DomainError{Code: code, Message: "pipeline graph rejected", Err: err}
		if inputErr.Field != "" {
			wrapped.WithContext(CtxField, inputErr.Field)
		}
		return wrapped
	}
	if code == CodeTimeout {
		return Wrap(err, code, "pipeline validation did not finish in time")
	}
	return Wrap(err, code, "pipeline validation failed")
}
