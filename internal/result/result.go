// Package result provides a tagged success/failure value for per-item
// pipeline steps that degrade instead of returning an error.
package result

import "fmt"

// Status is the tag of a Result.
type Status string

const (
	StatusOk     Status = "ok"
	StatusFailed Status = "failed"
)

// Result holds either a value or the reason the value could not be produced.
type Result[T any] struct {
	status Status
	value  T
	reason string
}

// Ok wraps a successfully produced value.
func Ok[T any](v T) Result[T] {
	return Result[T]{status: StatusOk, value: v}
}

// Failed records a failure reason. The zero T is never exposed as a value.
func Failed[T any](reason string) Result[T] {
	return Result[T]{status: StatusFailed, reason: reason}
}

// Failedf is Failed with formatting.
func Failedf[T any](format string, args ...any) Result[T] {
	return Failed[T](fmt.Sprintf(format, args...))
}

// FromError returns Failed with err's message when err is non-nil.
func FromError[T any](v T, err error) Result[T] {
	if err != nil {
		return Failed[T](err.Error())
	}
	return Ok(v)
}

func (r Result[T]) Status() Status { return r.status }
func (r Result[T]) IsOk() bool     { return r.status == StatusOk }

// Value returns the value and whether the result is Ok.
func (r Result[T]) Value() (T, bool) {
	if r.status != StatusOk {
		var zero T
		return zero, false
	}
	return r.value, true
}

// ValueOr returns the value, or fallback when the result failed.
func (r Result[T]) ValueOr(fallback T) T {
	if r.status != StatusOk {
		return fallback
	}
	return r.value
}

// Reason is empty for Ok results.
func (r Result[T]) Reason() string { return r.reason }

func (r Result[T]) String() string {
	if r.IsOk() {
		return fmt.Sprintf("ok(%v)", r.value)
	}
	return fmt.Sprintf("failed(%s)", r.reason)
}
