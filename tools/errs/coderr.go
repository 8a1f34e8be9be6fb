package errs

import (
	stderrors "errors"

	"github.com/pkg/errors"
)

// Error codes carried back to clients on the message-error event.
const (
	CodeValidation = 1400
	CodeForbidden  = 1403
	CodeNotFound   = 1404
	CodeTransient  = 1503
)

type CodeError struct {
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
	Detail string `json:"detail,omitempty"`
}

func NewCodeError(code int, msg string) *CodeError {
	return &CodeError{Code: code, Msg: msg}
}

func (e *CodeError) Error() string {
	if e.Detail == "" {
		return e.Msg
	}
	return e.Msg + ": " + e.Detail
}

func (e *CodeError) WithDetail(detail string) *CodeError {
	d := detail
	if e.Detail != "" {
		d = e.Detail + ", " + detail
	}
	return &CodeError{Code: e.Code, Msg: e.Msg, Detail: d}
}

// Is makes CodeError comparable by code under errors.Is.
func (e *CodeError) Is(target error) bool {
	var t *CodeError
	if !stderrors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

func ErrNotFound(msg string) *CodeError   { return NewCodeError(CodeNotFound, msg) }
func ErrForbidden(msg string) *CodeError  { return NewCodeError(CodeForbidden, msg) }
func ErrValidation(msg string) *CodeError { return NewCodeError(CodeValidation, msg) }

// ErrTransient tags a store failure so callers can tell primary-write
// failures apart from programming errors.
func ErrTransient(msg string, cause error) *CodeError {
	ce := NewCodeError(CodeTransient, msg)
	if cause != nil {
		ce = ce.WithDetail(cause.Error())
	}
	return ce
}

// CodeOf extracts the wire code, defaulting to CodeTransient for
// untagged errors so nothing internal leaks to clients.
func CodeOf(err error) int {
	var ce *CodeError
	if stderrors.As(err, &ce) {
		return ce.Code
	}
	return CodeTransient
}

// MsgOf extracts the client-safe message of an error.
func MsgOf(err error) string {
	var ce *CodeError
	if stderrors.As(err, &ce) {
		return ce.Msg
	}
	return "internal error"
}

func IsNotFound(err error) bool   { return CodeOf(err) == CodeNotFound }
func IsForbidden(err error) bool  { return CodeOf(err) == CodeForbidden }
func IsValidation(err error) bool { return CodeOf(err) == CodeValidation }
func IsTransient(err error) bool  { return CodeOf(err) == CodeTransient }

// New and Wrap re-export pkg/errors so call sites keep one import.
func New(msg string) error { return errors.New(msg) }

func Wrap(err error, msg string) error { return errors.Wrap(err, msg) }

func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}
