package repository

import "errors"

// Sentinel kinds for result-store errors.
var (
	ErrNotFound = errors.New("result not found")
	ErrExpired  = errors.New("result expired")
)
