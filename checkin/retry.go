package checkin

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/dev-brewery/koinon-rms-sub010/models"
)

const (
	DefaultCodeAttempts       = 10
	DefaultOccurrenceAttempts = 3
)

// UniqueRetryWriter inserts a candidate whose natural key is guarded by a
// store uniqueness constraint. A models.ErrUniqueViolation from Insert is not
// a failure: the writer first asks Existing for the row that won the race,
// then falls back to Next for a fresh candidate, and tries again. No locks are
// taken, so the same writer is safe across processes sharing one store.
//
// Context cancellation is left to the store calls; MaxAttempts only bounds the
// number of conflicts tolerated.
type UniqueRetryWriter[C, R any] struct {
	Name        string
	MaxAttempts int

	Insert func(ctx context.Context, candidate C) (R, error)

	// Existing returns the row holding the candidate's key. found=false
	// means the caller should retry.
	Existing func(ctx context.Context, candidate C) (row R, found bool, err error)

	// Next builds a replacement candidate after a conflict.
	Next func() (C, error)
}

func (w *UniqueRetryWriter[C, R]) Write(ctx context.Context, candidate C) (R, error) {
	var zero R
	attempts := w.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		row, err := w.Insert(ctx, candidate)
		if err == nil {
			return row, nil
		}
		if !errors.Is(err, models.ErrUniqueViolation) {
			return zero, err
		}

		if w.Existing != nil {
			existing, found, err := w.Existing(ctx, candidate)
			if err != nil {
				return zero, err
			}
			if found {
				return existing, nil
			}
		}

		if w.Next != nil && attempt < attempts {
			candidate, err = w.Next()
			if err != nil {
				return zero, err
			}
		}
	}

	log.Printf("%s: unique insert gave up after %d conflicting attempts", w.Name, attempts)
	return zero, fmt.Errorf("%s: %w after %d attempts", w.Name, ErrConflict, attempts)
}
