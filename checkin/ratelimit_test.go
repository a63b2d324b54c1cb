package checkin

import (
	"sync"
	"testing"
	"time"
)

func TestPickupRateLimiter(t *testing.T) {
	start := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	clock := NewFrozenClock(start)
	l := NewPickupRateLimiter(clock, 3, 10*time.Minute)

	for i := 0; i < 3; i++ {
		if allowed, _ := l.Attempt(1, "a"); !allowed {
			t.Fatalf("limited after %d failures", i)
		}
		clock.Advance(time.Minute)
	}

	allowed, retryAfter := l.Attempt(1, "a")
	if allowed {
		t.Fatal("expected the pair to be limited after 3 failures")
	}
	// oldest failure at 9:00 expires at 9:10; it is now 9:03
	if retryAfter != 7*time.Minute {
		t.Errorf("expected retry after 7m, got %v", retryAfter)
	}

	if allowed, _ := l.Attempt(2, "a"); !allowed {
		t.Error("another attendance must not be limited")
	}
	if allowed, _ := l.Attempt(1, "b"); !allowed {
		t.Error("another client must not be limited")
	}

	clock.Advance(7 * time.Minute)
	if allowed, _ := l.Attempt(1, "a"); !allowed {
		t.Error("expected the oldest failure to slide out of the window")
	}
}

func TestPickupRateLimiter_LimitedAttemptsAreNotCounted(t *testing.T) {
	clock := NewFrozenClock(time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC))
	l := NewPickupRateLimiter(clock, 2, 10*time.Minute)

	l.Attempt(1, "a")
	l.Attempt(1, "a")
	for i := 0; i < 5; i++ {
		l.Attempt(1, "a")
	}
	if n := len(l.failures[pickupKey{1, "a"}]); n != 2 {
		t.Errorf("expected 2 recorded failures, got %d", n)
	}
}

func TestPickupRateLimiter_ResetClearsFailures(t *testing.T) {
	clock := NewFrozenClock(time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC))
	l := NewPickupRateLimiter(clock, 2, time.Minute)

	l.Attempt(1, "a")
	l.Reset(1, "a")
	l.Attempt(1, "a")
	if allowed, _ := l.Attempt(1, "a"); !allowed {
		t.Error("reset should have cleared the earlier failure")
	}
}

func TestPickupRateLimiter_RetryAfterAtLeastOneSecond(t *testing.T) {
	clock := NewFrozenClock(time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC))
	l := NewPickupRateLimiter(clock, 1, time.Minute)

	l.Attempt(1, "a")
	clock.Advance(time.Minute - time.Millisecond)
	allowed, retryAfter := l.Attempt(1, "a")
	if allowed || retryAfter != time.Second {
		t.Errorf("expected limited with 1s retry, got %v %v", allowed, retryAfter)
	}
}

func TestPickupRateLimiter_ConcurrentAttemptsStayWithinLimit(t *testing.T) {
	clock := NewFrozenClock(time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC))
	l := NewPickupRateLimiter(clock, 5, 15*time.Minute)

	const callers = 50
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if ok, _ := l.Attempt(7, "10.0.0.1"); ok {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	close(start)
	wg.Wait()

	if allowed != 5 {
		t.Errorf("expected exactly 5 attempts through, got %d", allowed)
	}
}

func TestPickupRateLimiter_Prune(t *testing.T) {
	clock := NewFrozenClock(time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC))
	l := NewPickupRateLimiter(clock, 5, time.Minute)

	l.Attempt(1, "a")
	l.Attempt(2, "a")
	clock.Advance(30 * time.Second)
	l.Attempt(3, "a")

	clock.Advance(45 * time.Second)
	if removed := l.Prune(); removed != 2 {
		t.Errorf("expected 2 stale pairs pruned, got %d", removed)
	}
	if len(l.failures) != 1 {
		t.Errorf("expected 1 pair left, got %d", len(l.failures))
	}
}
