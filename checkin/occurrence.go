package checkin

import (
	"context"
	"errors"
	"fmt"

	"github.com/dev-brewery/koinon-rms-sub010/models"
)

// OccurrenceResolver returns the single occurrence row for a schedule,
// location and date, creating it on first use.
type OccurrenceResolver struct {
	store       OccurrenceStore
	clock       Clock
	maxAttempts int
}

func NewOccurrenceResolver(store OccurrenceStore, clock Clock, maxAttempts int) *OccurrenceResolver {
	if maxAttempts <= 0 {
		maxAttempts = DefaultOccurrenceAttempts
	}
	return &OccurrenceResolver{store: store, clock: clock, maxAttempts: maxAttempts}
}

func (r *OccurrenceResolver) Resolve(ctx context.Context, scheduleID, locationID int64, date models.Date) (*models.Occurrence, error) {
	key := models.OccurrenceKey{ScheduleID: scheduleID, LocationID: locationID, Date: date}

	occ, err := r.store.FindOccurrence(ctx, key)
	if err == nil {
		return occ, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("error finding occurrence: %w", err)
	}

	// Two kiosks can both miss above. Only one insert wins; the loser reads
	// the winner's row back through Existing.
	writer := &UniqueRetryWriter[models.OccurrenceKey, *models.Occurrence]{
		Name:        "occurrence",
		MaxAttempts: r.maxAttempts,
		Insert: func(ctx context.Context, k models.OccurrenceKey) (*models.Occurrence, error) {
			return r.store.InsertOccurrence(ctx, k, r.clock.Now())
		},
		Existing: func(ctx context.Context, k models.OccurrenceKey) (*models.Occurrence, bool, error) {
			occ, err := r.store.FindOccurrence(ctx, k)
			if errors.Is(err, models.ErrNotFound) {
				return nil, false, nil
			}
			if err != nil {
				return nil, false, err
			}
			return occ, true, nil
		},
	}
	return writer.Write(ctx, key)
}
