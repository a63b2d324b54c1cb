package checkin

import (
	"context"
	"errors"
	"fmt"

	"github.com/dev-brewery/koinon-rms-sub010/models"
)

type Outcome int

const (
	Admit Outcome = iota
	Redirect
	Reject
)

func (o Outcome) String() string {
	switch o {
	case Admit:
		return "admit"
	case Redirect:
		return "redirect"
	case Reject:
		return "reject"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Decision is the capacity gate's answer. LocationID is the room to use on
// Admit and Redirect; Reason is set on Reject.
type Decision struct {
	Outcome    Outcome
	LocationID int64
	Reason     string
}

// CapacityGate admits children into rooms against head count and staff ratio.
//
// Admission is check-then-act: the count is read, then the caller writes. Two
// simultaneous admissions can both pass, so a room can exceed its maximum by
// at most the number of concurrent check-ins for it. That overshoot is
// accepted in exchange for not serializing kiosk traffic.
type CapacityGate struct {
	store LocationStore
}

func NewCapacityGate(store LocationStore) *CapacityGate {
	return &CapacityGate{store: store}
}

func (g *CapacityGate) Admit(ctx context.Context, locationID int64, date models.Date) (Decision, error) {
	loc, err := g.store.GetLocation(ctx, locationID)
	if errors.Is(err, models.ErrNotFound) {
		return Decision{}, ErrNotFound
	}
	if err != nil {
		return Decision{}, fmt.Errorf("error loading location: %w", err)
	}

	reason, err := g.check(ctx, loc, date)
	if err != nil {
		return Decision{}, err
	}
	if reason == "" {
		return Decision{Outcome: Admit, LocationID: loc.ID}, nil
	}
	if reason != RejectCapacity || loc.OverflowLocationID == nil {
		return Decision{Outcome: Reject, LocationID: loc.ID, Reason: reason}, nil
	}

	overflow, err := g.store.GetLocation(ctx, *loc.OverflowLocationID)
	if errors.Is(err, models.ErrNotFound) {
		return Decision{Outcome: Reject, LocationID: loc.ID, Reason: reason}, nil
	}
	if err != nil {
		return Decision{}, fmt.Errorf("error loading overflow location: %w", err)
	}
	if !overflow.IsActive {
		return Decision{Outcome: Reject, LocationID: loc.ID, Reason: reason}, nil
	}

	overflowReason, err := g.check(ctx, overflow, date)
	if err != nil {
		return Decision{}, err
	}
	if overflowReason != "" {
		return Decision{Outcome: Reject, LocationID: loc.ID, Reason: overflowReason}, nil
	}
	return Decision{Outcome: Redirect, LocationID: overflow.ID}, nil
}

// Occupancy reports the live counts for a room.
func (g *CapacityGate) Occupancy(ctx context.Context, locationID int64, date models.Date) (*models.Occupancy, error) {
	loc, err := g.store.GetLocation(ctx, locationID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error loading location: %w", err)
	}
	children, staff, err := g.store.CountOpenAttendance(ctx, locationID, date)
	if err != nil {
		return nil, fmt.Errorf("error counting attendance: %w", err)
	}
	return &models.Occupancy{
		LocationID:  loc.ID,
		Date:        date,
		Children:    children,
		Staff:       staff,
		MaxCapacity: loc.MaxCapacity,
		StaffRatio:  loc.StaffRatio,
	}, nil
}

// check returns the reject reason for one more child in loc, or "".
func (g *CapacityGate) check(ctx context.Context, loc *models.Location, date models.Date) (string, error) {
	if loc.MaxCapacity <= 0 && loc.StaffRatio <= 0 {
		return "", nil
	}
	children, staff, err := g.store.CountOpenAttendance(ctx, loc.ID, date)
	if err != nil {
		return "", fmt.Errorf("error counting attendance: %w", err)
	}
	if loc.MaxCapacity > 0 && children >= loc.MaxCapacity {
		return RejectCapacity, nil
	}
	if loc.StaffRatio > 0 && (children+1) > staff*loc.StaffRatio {
		return RejectRatio, nil
	}
	return "", nil
}
