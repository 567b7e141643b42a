package model

import "errors"

// Sentinel errors shared across packages.
var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidPage   = errors.New("page out of range")
	ErrSessionClosed = errors.New("session already closed")
)

// Status discriminates a Result.
type Status int

// Result states. The zero Result is Empty.
const (
	StatusEmpty Status = iota
	StatusOK
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusEmpty:
		return "empty"
	case StatusOK:
		return "ok"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result carries a computed value, the absence of one, or the store
// failure that prevented computing it.
type Result[T any] struct {
	Status Status
	Value  T
	Err    error
}

// Ok wraps a computed value.
func Ok[T any](v T) Result[T] {
	return Result[T]{Status: StatusOK, Value: v}
}

// Empty marks a result with no data behind it.
func Empty[T any]() Result[T] {
	return Result[T]{Status: StatusEmpty}
}

// Failed wraps a store failure.
func Failed[T any](err error) Result[T] {
	return Result[T]{Status: StatusFailed, Err: err}
}

// OK reports whether the result holds a value.
func (r Result[T]) OK() bool {
	return r.Status == StatusOK
}
