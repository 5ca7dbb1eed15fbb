package model

// Result is a success-or-failure sum crossing every gateway boundary.
// A failure always carries a StructuredError, never a raw error.
type Result[T any] struct {
	value T
	err   *StructuredError
}

func Ok[T any](value T) Result[T] {
	return Result[T]{value: value}
}

func Fail[T any](err StructuredError) Result[T] {
	return Result[T]{err: &err}
}

func (r Result[T]) IsOk() bool {
	return r.err == nil
}

// Value returns the success value. Zero value on failure.
func (r Result[T]) Value() T {
	return r.value
}

// Err returns the failure. Nil on success.
func (r Result[T]) Err() *StructuredError {
	return r.err
}

func (r Result[T]) Unpack() (T, error) {
	if r.err != nil {
		return r.value, r.err
	}
	return r.value, nil
}
