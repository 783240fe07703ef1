package utils

import "fmt"

// ReturnPanic recovers a panic into *ptr. Meant to be deferred in a function with a
// named error result.
func ReturnPanic(ptr *error) {
	switch perr := recover().(type) {
	case nil:
	case error:
		*ptr = perr
	default:
		*ptr = fmt.Errorf("panic: %v", perr)
	}
}

func Must[T any](t T, err error) T {
	if err != nil {
		panic(err)
	}

	return t
}
