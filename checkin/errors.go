package checkin

import (
	"errors"
	"fmt"
	"time"

	"github.com/dev-brewery/koinon-rms-sub010/models"
)

var (
	// ErrConflict means a bounded uniqueness retry loop ran out of attempts.
	// It is an operator problem, not something a kiosk can fix.
	ErrConflict = errors.New("unique insert retries exhausted")

	// ErrNotFound covers both missing records and records the caller may not
	// see. The two are never told apart outside this package.
	ErrNotFound = errors.New("not found")

	ErrCapacityRejected = errors.New("capacity rejected")
	ErrRateLimited      = errors.New("rate limited")
	ErrDuplicateCheckIn = errors.New("already checked in")
	ErrInactivePerson   = errors.New("person is inactive")
	ErrNotEligible      = errors.New("not eligible for this location and schedule")
	ErrInvalidQuery     = errors.New("invalid search query")
)

const (
	RejectCapacity = "capacity"
	RejectRatio    = "ratio"
)

// CapacityError is returned when the capacity gate rejects an admission.
// Reason is RejectCapacity or RejectRatio.
type CapacityError struct {
	LocationID int64
	Reason     string
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("location %d rejected check-in: %s", e.LocationID, e.Reason)
}

func (e *CapacityError) Unwrap() error { return ErrCapacityRejected }

type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("too many failed attempts, retry after %s", e.RetryAfter.Round(time.Second))
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }

// ReasonOf returns the short machine-readable reason reported to callers for err.
func ReasonOf(err error) string {
	var capErr *CapacityError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &capErr):
		return capErr.Reason
	case errors.Is(err, ErrNotFound), errors.Is(err, models.ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrDuplicateCheckIn):
		return "duplicate"
	case errors.Is(err, ErrInactivePerson):
		return "inactive"
	case errors.Is(err, ErrNotEligible):
		return "not_eligible"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrInvalidQuery):
		return "invalid_query"
	}
	return "internal"
}
