package entity

import (
	"errors"
	"fmt"
)

// ErrorKind classifies pipeline failures.
type ErrorKind string

const (
	KindMediaOpen      ErrorKind = "media_open"
	KindEncode         ErrorKind = "encode"
	KindAnalysis       ErrorKind = "analysis"
	KindIO             ErrorKind = "io"
	KindCancelled      ErrorKind = "cancelled"
	KindInvalidRequest ErrorKind = "invalid_request"
)

// Sentinels for errors.Is; every *Error matches the sentinel of its kind.
var (
	ErrMediaOpen        = &Error{Kind: KindMediaOpen}
	ErrEncode           = &Error{Kind: KindEncode}
	ErrAnalysis         = &Error{Kind: KindAnalysis}
	ErrIO               = &Error{Kind: KindIO}
	ErrProcessCancelled = &Error{Kind: KindCancelled}
	ErrInvalidRequest   = &Error{Kind: KindInvalidRequest}
)

// Error is a typed pipeline error.
type Error struct {
	Kind ErrorKind
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Op != "" {
		msg = e.Op
	}
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Op == "" || t.Op == e.Op)
}

func NewMediaOpenError(path string, err error) error {
	return &Error{Kind: KindMediaOpen, Op: "open video", Path: path, Err: err}
}

func NewEncodeError(path string, err error) error {
	return &Error{Kind: KindEncode, Op: "encode frame", Path: path, Err: err}
}

func NewAnalysisError(err error) error {
	return &Error{Kind: KindAnalysis, Op: "analyze frames", Err: err}
}

func NewIOError(op, path string, err error) error {
	return &Error{Kind: KindIO, Op: op, Path: path, Err: err}
}

func NewInvalidRequestError(format string, args ...any) error {
	return &Error{Kind: KindInvalidRequest, Op: "invalid request", Err: fmt.Errorf(format, args...)}
}

// Cancelled reports a user-requested abort.
func Cancelled() error {
	return &Error{Kind: KindCancelled, Op: "processing was cancelled by user"}
}

// IsCancelled reports whether err is the cancellation signal.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrProcessCancelled)
}

// KindOf returns the pipeline kind of err, or "" when err is not a pipeline error.
func KindOf(err error) ErrorKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}
