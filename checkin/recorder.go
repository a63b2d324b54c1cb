package checkin

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/dev-brewery/koinon-rms-sub010/models"
	"github.com/google/uuid"
)

// Recorder runs check-in and check-out. Per person the steps are
// validate, admit, resolve occurrence, allocate code, insert attendance.
// Occurrence and code allocation absorb all write contention, so the final
// attendance insert needs no retry.
//
// The lookup and authorization prefix of every operation runs behind the
// constant-time gate, so a missing record and a hidden one cost the same.
type Recorder struct {
	store       AttendanceStore
	gate        *ConstantTimeGate
	loader      *FamilyLoader
	capacity    *CapacityGate
	occurrences *OccurrenceResolver
	codes       *SecurityCodeAllocator
	clock       Clock
}

func NewRecorder(store AttendanceStore, gate *ConstantTimeGate, loader *FamilyLoader, capacity *CapacityGate, occurrences *OccurrenceResolver, codes *SecurityCodeAllocator, clock Clock) *Recorder {
	return &Recorder{
		store:       store,
		gate:        gate,
		loader:      loader,
		capacity:    capacity,
		occurrences: occurrences,
		codes:       codes,
		clock:       clock,
	}
}

// CheckIn checks one person into a room for a schedule.
func (r *Recorder) CheckIn(ctx context.Context, auth Authorizer, req models.CheckinRequest, kioskID string) (*models.CheckinResponse, error) {
	var (
		fc     *FamilyCheckinContext
		member *MemberContext
	)
	err := r.gate.Run(ctx, "check-in lookup", func(ctx context.Context) error {
		var err error
		fc, err = r.loader.LoadPeople(ctx, auth, []int64{req.PersonID})
		if err != nil {
			return err
		}
		member = fc.Member(req.PersonID)
		if member == nil || !member.Authorized || !auth.CanAccessLocation(ctx, req.LocationID) {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sel := models.Selection{PersonID: req.PersonID, LocationID: req.LocationID, ScheduleID: req.ScheduleID}
	return r.checkInMember(ctx, auth, fc, member, sel, "", kioskID)
}

// BatchCheckIn checks in several members of one family. Members succeed or
// fail independently: a full room for one child does not undo a sibling's
// check-in. Every result shares one batch id.
func (r *Recorder) BatchCheckIn(ctx context.Context, auth Authorizer, familyID int64, selections []models.Selection, kioskID string) (*models.FamilyCheckinResponse, error) {
	fc, err := Gated(ctx, r.gate, "family check-in lookup", func(ctx context.Context) (*FamilyCheckinContext, error) {
		return r.loader.Load(ctx, auth, familyID)
	})
	if err != nil {
		return nil, err
	}

	resp := &models.FamilyCheckinResponse{
		BatchID: uuid.NewString(),
		Results: make([]models.PersonResult, 0, len(selections)),
	}
	for _, sel := range selections {
		result := models.PersonResult{PersonID: sel.PersonID}

		member := fc.Member(sel.PersonID)
		var checkin *models.CheckinResponse
		if member == nil {
			err = ErrNotFound
		} else {
			checkin, err = r.checkInMember(ctx, auth, fc, member, sel, resp.BatchID, kioskID)
		}

		if err != nil {
			result.Error = publicError(err)
			result.Reason = ReasonOf(err)
		} else {
			result.Checkin = checkin
		}
		resp.Results = append(resp.Results, result)
	}
	return resp, nil
}

func (r *Recorder) checkInMember(ctx context.Context, auth Authorizer, fc *FamilyCheckinContext, member *MemberContext, sel models.Selection, batchID, kioskID string) (*models.CheckinResponse, error) {
	if !member.Authorized || !auth.CanAccessLocation(ctx, sel.LocationID) {
		return nil, ErrNotFound
	}
	if !member.Person.IsActive {
		return nil, ErrInactivePerson
	}
	opt, ok := member.Option(sel.LocationID, sel.ScheduleID)
	if !ok {
		return nil, ErrNotEligible
	}
	if member.HasOpen(sel.ScheduleID, sel.LocationID, fc.Date) {
		return nil, ErrDuplicateCheckIn
	}

	target := sel.LocationID
	redirected := false
	if !opt.IsStaff() {
		decision, err := r.capacity.Admit(ctx, sel.LocationID, fc.Date)
		if err != nil {
			return nil, err
		}
		switch decision.Outcome {
		case Reject:
			return nil, &CapacityError{LocationID: sel.LocationID, Reason: decision.Reason}
		case Redirect:
			// The caller must be able to label and release the child where
			// they land.
			if !auth.CanAccessLocation(ctx, decision.LocationID) {
				return nil, &CapacityError{LocationID: sel.LocationID, Reason: RejectCapacity}
			}
			target = decision.LocationID
			redirected = true
			if member.HasOpen(sel.ScheduleID, target, fc.Date) {
				return nil, ErrDuplicateCheckIn
			}
		}
	}

	occ, err := r.occurrences.Resolve(ctx, sel.ScheduleID, target, fc.Date)
	if err != nil {
		return nil, err
	}
	code, err := r.codes.Allocate(ctx, fc.Date)
	if err != nil {
		return nil, err
	}

	att := &models.Attendance{
		PersonID:       member.Person.ID,
		OccurrenceID:   occ.ID,
		GroupID:        opt.Group.ID,
		SecurityCodeID: code.ID,
		BatchID:        batchID,
		KioskID:        kioskID,
		IsStaff:        opt.IsStaff(),
		StartTime:      r.clock.Now(),
	}
	if err := r.store.InsertAttendance(ctx, att); err != nil {
		// The partial unique index on open attendance closes the race where
		// two kiosks pass the duplicate check at the same instant.
		if errors.Is(err, models.ErrUniqueViolation) {
			return nil, ErrDuplicateCheckIn
		}
		return nil, fmt.Errorf("error inserting attendance: %w", err)
	}

	member.Open = append(member.Open, models.AttendanceDetail{
		Attendance:     *att,
		Code:           code.Code,
		LocationID:     target,
		ScheduleID:     sel.ScheduleID,
		OccurrenceDate: fc.Date,
		Person:         member.Person,
	})

	return &models.CheckinResponse{
		AttendanceID: att.ID,
		Code:         code.Code,
		LocationID:   target,
		Redirected:   redirected,
	}, nil
}

// CheckOut closes an attendance. Closing an already closed row is not an
// error; the response says so.
func (r *Recorder) CheckOut(ctx context.Context, auth Authorizer, attendanceID int64) (*models.CheckoutResponse, error) {
	detail, err := Gated(ctx, r.gate, "check-out lookup", func(ctx context.Context) (*models.AttendanceDetail, error) {
		detail, err := r.store.GetAttendanceDetail(ctx, attendanceID)
		if errors.Is(err, models.ErrNotFound) {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("error loading attendance: %w", err)
		}
		if !auth.CanAccessPerson(ctx, detail.PersonID) || !auth.CanAccessLocation(ctx, detail.LocationID) {
			return nil, ErrNotFound
		}
		return detail, nil
	})
	if err != nil {
		return nil, err
	}
	return r.close(ctx, detail)
}

// close ends an attendance the caller has already been authorized for.
func (r *Recorder) close(ctx context.Context, detail *models.AttendanceDetail) (*models.CheckoutResponse, error) {
	resp := &models.CheckoutResponse{AttendanceID: detail.ID}
	if !detail.IsOpen() {
		resp.AlreadyClosed = true
		return resp, nil
	}

	closed, err := r.store.CloseAttendance(ctx, detail.ID, r.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("error closing attendance: %w", err)
	}
	resp.AlreadyClosed = !closed
	return resp, nil
}

// publicError is the message put in a per-person batch result. Internal
// failures are logged and reduced to a generic message.
func publicError(err error) string {
	switch ReasonOf(err) {
	case "internal":
		log.Printf("family check-in: %v", err)
		return "check-in failed"
	case "conflict":
		log.Printf("family check-in: %v", err)
		return "check-in unavailable, contact an administrator"
	case "not_found":
		return ErrNotFound.Error()
	}
	return err.Error()
}
