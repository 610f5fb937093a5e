package numbers

import "fmt"

// MaxMagnitude bounds generated and supplied numbers.
const MaxMagnitude = 1000

func Validate(value int64) error {
	if value < -MaxMagnitude || value > MaxMagnitude {
		return fmt.Errorf("%w: %d not in [-%d, %d]", ErrOutOfRange, value, MaxMagnitude, MaxMagnitude)
	}
	return nil
}

// Accepted reports whether a number may be kept. Rejected numbers are still
// inserted, and the failed request rolls them back.
func Accepted(value int64) bool {
	return value > 0
}
