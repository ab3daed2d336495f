package resultcache

import (
	"errors"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrTimeout = errors.New("classification timed out")
)
