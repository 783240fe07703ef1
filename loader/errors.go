package loader

import "errors"

var (
	ErrNilQuery     = errors.New("loader: query must not be nil")
	ErrInvalidLimit = errors.New("loader: limit must be at least 1")
	ErrInvalidSkip  = errors.New("loader: skip must not be negative")
)
