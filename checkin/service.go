package checkin

import (
	"time"

	"github.com/dev-brewery/koinon-rms-sub010/models"
)

// Options tunes the check-in service. Zero values fall back to defaults.
type Options struct {
	Location           *time.Location
	SearchFloor        time.Duration
	CodeLength         int
	CodeAttempts       int
	OccurrenceAttempts int
	PickupMaxFailures  int
	PickupWindow       time.Duration
	Codes              CodeGenerator
}

// Service wires the check-in components over one store and clock.
type Service struct {
	Store       Store
	Clock       Clock
	Location    *time.Location
	Gate        *ConstantTimeGate
	Loader      *FamilyLoader
	Capacity    *CapacityGate
	Occurrences *OccurrenceResolver
	Codes       *SecurityCodeAllocator
	Recorder    *Recorder
	Searcher    *Searcher
	Limiter     *PickupRateLimiter
	Pickup      *PickupVerifier
}

func NewService(store Store, clock Clock, opts Options) *Service {
	if clock == nil {
		clock = SystemClock()
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	codes := opts.Codes
	if codes == nil {
		codes = RandomCodes(opts.CodeLength)
	}

	s := &Service{Store: store, Clock: clock, Location: loc}
	s.Gate = NewConstantTimeGate(opts.SearchFloor)
	s.Loader = NewFamilyLoader(store, clock, loc)
	s.Capacity = NewCapacityGate(store)
	s.Occurrences = NewOccurrenceResolver(store, clock, opts.OccurrenceAttempts)
	s.Codes = NewSecurityCodeAllocator(store, clock, codes, opts.CodeAttempts)
	s.Recorder = NewRecorder(store, s.Gate, s.Loader, s.Capacity, s.Occurrences, s.Codes, clock)
	s.Searcher = NewSearcher(store, s.Gate, clock, loc)
	s.Limiter = NewPickupRateLimiter(clock, opts.PickupMaxFailures, opts.PickupWindow)
	s.Pickup = NewPickupVerifier(store, s.Limiter, s.Gate, s.Recorder)
	return s
}

// Today is the service date in the configured time zone.
func (s *Service) Today() models.Date {
	return models.DateOf(s.Clock.Now().In(s.Location))
}
