package classifier

import (
	"errors"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrWeights = errors.New("invalid model weights")
)
