package checkin_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dev-brewery/koinon-rms-sub010/checkin"
	"github.com/dev-brewery/koinon-rms-sub010/db"
	"github.com/dev-brewery/koinon-rms-sub010/models"
)

// scriptedCodes returns the given codes in order, repeating the last one.
func scriptedCodes(codes ...string) checkin.CodeGenerator {
	var mu sync.Mutex
	i := 0
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		code := codes[i]
		if i < len(codes)-1 {
			i++
		}
		return code, nil
	}
}

// countingCodes counts insert attempts against the wrapped store.
type countingCodes struct {
	*db.MemoryStore
	mu      sync.Mutex
	inserts int
}

func (c *countingCodes) InsertSecurityCode(ctx context.Context, code string, issueDate models.Date, createdAt time.Time) (*models.SecurityCode, error) {
	c.mu.Lock()
	c.inserts++
	c.mu.Unlock()
	return c.MemoryStore.InsertSecurityCode(ctx, code, issueDate, createdAt)
}

func TestRandomCodes_UseUnambiguousAlphabet(t *testing.T) {
	gen := checkin.RandomCodes(6)
	for i := 0; i < 200; i++ {
		code, err := gen()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("expected 6 characters, got %q", code)
		}
		for _, r := range code {
			if !strings.ContainsRune(checkin.CodeAlphabet, r) {
				t.Fatalf("code %q contains %q outside the alphabet", code, r)
			}
		}
	}
}

func TestSecurityCodeAllocator_RetriesWithFreshCodeOnCollision(t *testing.T) {
	store := &countingCodes{MemoryStore: db.NewMemoryStore()}
	date := models.DateOf(sundayMorning)
	alloc := checkin.NewSecurityCodeAllocator(store, checkin.NewFrozenClock(sundayMorning), scriptedCodes("AAAA", "AAAA", "BBBB"), 0)

	first, err := alloc.Allocate(context.Background(), date)
	if err != nil {
		t.Fatalf("first Allocate: %v", err)
	}
	second, err := alloc.Allocate(context.Background(), date)
	if err != nil {
		t.Fatalf("second Allocate: %v", err)
	}

	if first.Code != "AAAA" || second.Code != "BBBB" {
		t.Errorf("expected AAAA then BBBB, got %s then %s", first.Code, second.Code)
	}
	if store.inserts != 3 {
		t.Errorf("expected 3 insert attempts, got %d", store.inserts)
	}
}

func TestSecurityCodeAllocator_SameCodeOnAnotherDay(t *testing.T) {
	store := db.NewMemoryStore()
	alloc := checkin.NewSecurityCodeAllocator(store, checkin.NewFrozenClock(sundayMorning), scriptedCodes("AAAA"), 0)
	today := models.DateOf(sundayMorning)

	if _, err := alloc.Allocate(context.Background(), today); err != nil {
		t.Fatalf("Allocate today: %v", err)
	}
	code, err := alloc.Allocate(context.Background(), models.DateOf(sundayMorning.AddDate(0, 0, 7)))
	if err != nil {
		t.Fatalf("Allocate next week: %v", err)
	}
	if code.Code != "AAAA" {
		t.Errorf("expected AAAA to be reusable on a new day, got %s", code.Code)
	}
}

func TestSecurityCodeAllocator_ExhaustionIsConflict(t *testing.T) {
	store := &countingCodes{MemoryStore: db.NewMemoryStore()}
	date := models.DateOf(sundayMorning)
	alloc := checkin.NewSecurityCodeAllocator(store, checkin.NewFrozenClock(sundayMorning), scriptedCodes("AAAA"), 0)

	if _, err := alloc.Allocate(context.Background(), date); err != nil {
		t.Fatalf("first Allocate: %v", err)
	}
	store.inserts = 0

	_, err := alloc.Allocate(context.Background(), date)
	if !errors.Is(err, checkin.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if store.inserts != checkin.DefaultCodeAttempts {
		t.Errorf("expected %d attempts, got %d", checkin.DefaultCodeAttempts, store.inserts)
	}
}

func TestSecurityCodeAllocator_ConcurrentCodesAreDistinct(t *testing.T) {
	const callers = 100

	store := db.NewMemoryStore()
	alloc := checkin.NewSecurityCodeAllocator(store, checkin.NewFrozenClock(sundayMorning), checkin.RandomCodes(4), 0)
	date := models.DateOf(sundayMorning)

	codes := make([]string, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			code, err := alloc.Allocate(context.Background(), date)
			errs[i] = err
			if code != nil {
				codes[i] = code.Code
			}
		}(i)
	}
	wg.Wait()

	seen := make(map[string]int, callers)
	for i, err := range errs {
		if err != nil {
			t.Fatalf("caller %d: %v", i, err)
		}
		if prev, dup := seen[codes[i]]; dup {
			t.Errorf("callers %d and %d both got %s", prev, i, codes[i])
		}
		seen[codes[i]] = i
	}
}
