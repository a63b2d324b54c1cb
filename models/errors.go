package models

import "errors"

// Store-level errors. Every store implementation maps its driver-specific
// signals onto these.
var (
	ErrNotFound        = errors.New("record not found")
	ErrUniqueViolation = errors.New("unique constraint violation")
)
