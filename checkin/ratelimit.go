package checkin

import (
	"log"
	"sync"
	"time"
)

const (
	DefaultPickupMaxFailures = 5
	DefaultPickupWindow      = 15 * time.Minute
)

type pickupKey struct {
	attendanceID int64
	clientIP     string
}

// PickupRateLimiter counts failed pickup-code attempts per attendance record
// and client over a sliding window. State is process-local and lost on
// restart.
type PickupRateLimiter struct {
	mu          sync.Mutex
	clock       Clock
	maxFailures int
	window      time.Duration
	failures    map[pickupKey][]time.Time
}

func NewPickupRateLimiter(clock Clock, maxFailures int, window time.Duration) *PickupRateLimiter {
	if maxFailures <= 0 {
		maxFailures = DefaultPickupMaxFailures
	}
	if window <= 0 {
		window = DefaultPickupWindow
	}
	return &PickupRateLimiter{
		clock:       clock,
		maxFailures: maxFailures,
		window:      window,
		failures:    make(map[pickupKey][]time.Time),
	}
}

// Attempt checks the pair against the limit and, when it is under, counts
// this attempt as a failure in the same step. A verified attempt clears the
// count with Reset. When the pair is limited, retryAfter is how long until
// its oldest failure leaves the window.
func (l *PickupRateLimiter) Attempt(attendanceID int64, clientIP string) (allowed bool, retryAfter time.Duration) {
	now := l.clock.Now()
	key := pickupKey{attendanceID, clientIP}

	l.mu.Lock()
	defer l.mu.Unlock()

	recent := l.trim(key, now)
	if len(recent) >= l.maxFailures {
		retryAfter = recent[len(recent)-l.maxFailures].Add(l.window).Sub(now)
		if retryAfter < time.Second {
			retryAfter = time.Second
		}
		return false, retryAfter
	}

	recent = append(recent, now)
	l.failures[key] = recent
	if len(recent) == l.maxFailures {
		log.Printf("pickup: attendance %d locked for client %s after %d attempts", attendanceID, clientIP, len(recent))
	}
	return true, 0
}

func (l *PickupRateLimiter) Reset(attendanceID int64, clientIP string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.failures, pickupKey{attendanceID, clientIP})
}

// Prune drops pairs whose failures have all aged out of the window.
func (l *PickupRateLimiter) Prune() int {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key := range l.failures {
		if len(l.trim(key, now)) == 0 {
			removed++
		}
	}
	return removed
}

// trim must be called with mu held.
func (l *PickupRateLimiter) trim(key pickupKey, now time.Time) []time.Time {
	times := l.failures[key]
	cutoff := now.Add(-l.window)
	i := 0
	for i < len(times) && !times[i].After(cutoff) {
		i++
	}
	times = times[i:]
	if len(times) == 0 {
		delete(l.failures, key)
		return nil
	}
	l.failures[key] = times
	return times
}
