// Package apperr defines the error kinds shared by every interface of the
// service. Handlers translate a Kind into their own representation: an HTTP
// status plus envelope for REST, an extensions map for GraphQL.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindNotFound         Kind = "not_found"
	KindInvalidReference Kind = "invalid_reference"
	KindValidation       Kind = "validation"
	KindConflict         Kind = "conflict"
	KindUnauthorized     Kind = "unauthorized"
	KindForbidden        Kind = "forbidden"
	KindInternal         Kind = "internal"
)

type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Extensions is picked up by graphql-go when formatting resolver errors.
func (e *Error) Extensions() map[string]interface{} {
	ext := map[string]interface{}{"kind": string(e.Kind)}
	if e.Op != "" {
		ext["op"] = e.Op
	}
	return ext
}

func New(kind Kind, op, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

func NotFound(op, format string, args ...interface{}) *Error {
	return New(KindNotFound, op, format, args...)
}

func InvalidReference(op, format string, args ...interface{}) *Error {
	return New(KindInvalidReference, op, format, args...)
}

func Validation(op, format string, args ...interface{}) *Error {
	return New(KindValidation, op, format, args...)
}

func Conflict(op, format string, args ...interface{}) *Error {
	return New(KindConflict, op, format, args...)
}

func Unauthorized(op, format string, args ...interface{}) *Error {
	return New(KindUnauthorized, op, format, args...)
}

func Forbidden(op, format string, args ...interface{}) *Error {
	return New(KindForbidden, op, format, args...)
}

// Internal hides err from the caller-facing message but keeps it for logs.
func Internal(op string, err error) *Error {
	return &Error{Kind: KindInternal, Op: op, Message: "internal error", Err: err}
}

func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
