package numbers

import "errors"

var (
	ErrNotPositive = errors.New("number is not positive")
	ErrOutOfRange  = errors.New("number is out of range")
)
