package authalligator

// Result is the outcome of a call that reached the service: exactly one of a
// success payload or an AccountError.
type Result[T any] struct {
	value      *T
	accountErr *AccountError
}

func success[T any](v *T) Result[T] {
	return Result[T]{value: v}
}

func failure[T any](e *AccountError) Result[T] {
	return Result[T]{accountErr: e}
}

// OK reports whether the call succeeded.
func (r Result[T]) OK() bool {
	return r.value != nil
}

// Value returns the success payload and true, or nil and false on an AccountError.
func (r Result[T]) Value() (*T, bool) {
	return r.value, r.value != nil
}

// AccountError returns the domain error, or nil on success.
func (r Result[T]) AccountError() *AccountError {
	return r.accountErr
}

// Unwrap converts the result into the usual (value, error) pair, with the
// AccountError as the error.
func (r Result[T]) Unwrap() (*T, error) {
	if r.accountErr != nil {
		return nil, r.accountErr
	}
	return r.value, nil
}
