package checkin_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dev-brewery/koinon-rms-sub010/checkin"
	"github.com/dev-brewery/koinon-rms-sub010/db"
	"github.com/dev-brewery/koinon-rms-sub010/models"
)

func TestOccurrenceResolver_CreatesOnceAndReuses(t *testing.T) {
	store := db.NewMemoryStore()
	clock := checkin.NewFrozenClock(sundayMorning)
	resolver := checkin.NewOccurrenceResolver(store, clock, 0)
	date := models.DateOf(sundayMorning)

	first, err := resolver.Resolve(context.Background(), scheduleNine, roomOne, date)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	second, err := resolver.Resolve(context.Background(), scheduleNine, roomOne, date)
	if err != nil {
		t.Fatalf("Resolve again: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("expected the same occurrence, got %d and %d", first.ID, second.ID)
	}

	other, err := resolver.Resolve(context.Background(), scheduleNine, roomOne, models.DateOf(date.In(time.UTC).AddDate(0, 0, 7)))
	if err != nil {
		t.Fatalf("Resolve next week: %v", err)
	}
	if other.ID == first.ID {
		t.Error("a different date must get its own occurrence")
	}
	if got := store.OccurrenceCount(); got != 2 {
		t.Errorf("expected 2 occurrences, got %d", got)
	}
}

func TestOccurrenceResolver_ConcurrentMissesConvergeOnOneRow(t *testing.T) {
	const callers = 10

	mem := db.NewMemoryStore()
	racing := newRacingStore(mem, callers)
	resolver := checkin.NewOccurrenceResolver(racing, checkin.NewFrozenClock(sundayMorning), 0)
	date := models.DateOf(sundayMorning)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ids := make([]int64, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			occ, err := resolver.Resolve(ctx, scheduleNine, roomOne, date)
			errs[i] = err
			if occ != nil {
				ids[i] = occ.ID
			}
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("caller %d: %v", i, err)
		}
		if ids[i] != ids[0] {
			t.Errorf("caller %d got occurrence %d, caller 0 got %d", i, ids[i], ids[0])
		}
	}
	if got := mem.OccurrenceCount(); got != 1 {
		t.Errorf("expected exactly 1 occurrence row, got %d", got)
	}
	if racing.conflicts != callers-1 {
		t.Errorf("expected %d insert conflicts, got %d", callers-1, racing.conflicts)
	}
}

// vanishingStore reports a conflict on every insert but never finds the row.
type vanishingStore struct {
	inserts int
}

func (s *vanishingStore) FindOccurrence(context.Context, models.OccurrenceKey) (*models.Occurrence, error) {
	return nil, models.ErrNotFound
}

func (s *vanishingStore) InsertOccurrence(context.Context, models.OccurrenceKey, time.Time) (*models.Occurrence, error) {
	s.inserts++
	return nil, models.ErrUniqueViolation
}

func TestOccurrenceResolver_GivesUpAfterMaxAttempts(t *testing.T) {
	store := &vanishingStore{}
	resolver := checkin.NewOccurrenceResolver(store, checkin.NewFrozenClock(sundayMorning), 3)

	_, err := resolver.Resolve(context.Background(), scheduleNine, roomOne, models.DateOf(sundayMorning))
	if !errors.Is(err, checkin.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if store.inserts != 3 {
		t.Errorf("expected 3 insert attempts, got %d", store.inserts)
	}
}
