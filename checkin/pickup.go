package checkin

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/dev-brewery/koinon-rms-sub010/models"
)

// PickupVerifier checks a parent's security code against an attendance
// record before a child is released.
type PickupVerifier struct {
	store    AttendanceStore
	limiter  *PickupRateLimiter
	gate     *ConstantTimeGate
	recorder *Recorder
}

func NewPickupVerifier(store AttendanceStore, limiter *PickupRateLimiter, gate *ConstantTimeGate, recorder *Recorder) *PickupVerifier {
	return &PickupVerifier{store: store, limiter: limiter, gate: gate, recorder: recorder}
}

// Verify returns Authorized=false for a wrong code, an unknown record, a
// record the caller may not see and an already released child alike. Every
// attempt takes one of the client's failures for the record up front and a
// match gives them back, so concurrent guesses cannot exceed the limit. Once
// they are used up, Verify returns a *RateLimitError without looking at the
// code.
func (v *PickupVerifier) Verify(ctx context.Context, auth Authorizer, req models.PickupRequest, clientIP string) (*models.PickupResponse, error) {
	if allowed, retryAfter := v.limiter.Attempt(req.AttendanceID, clientIP); !allowed {
		return nil, &RateLimitError{RetryAfter: retryAfter}
	}

	detail, err := Gated(ctx, v.gate, "pickup verify", func(ctx context.Context) (*models.AttendanceDetail, error) {
		return v.match(ctx, auth, req.AttendanceID, req.Code)
	})
	if err != nil {
		return nil, err
	}
	if detail == nil {
		return &models.PickupResponse{Authorized: false}, nil
	}
	v.limiter.Reset(req.AttendanceID, clientIP)

	resp := &models.PickupResponse{Authorized: true}
	if req.Checkout {
		out, err := v.recorder.close(ctx, detail)
		if err != nil {
			return nil, err
		}
		resp.CheckedOut = !out.AlreadyClosed
	}
	return resp, nil
}

// match returns the attendance when code releases it, or nil.
func (v *PickupVerifier) match(ctx context.Context, auth Authorizer, attendanceID int64, code string) (*models.AttendanceDetail, error) {
	detail, err := v.store.GetAttendanceDetail(ctx, attendanceID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error loading attendance: %w", err)
	}

	visible := auth.CanAccessPerson(ctx, detail.PersonID) && auth.CanAccessLocation(ctx, detail.LocationID)
	same := subtle.ConstantTimeCompare([]byte(NormalizeCode(code)), []byte(detail.Code)) == 1
	if visible && same && detail.IsOpen() {
		return detail, nil
	}
	return nil, nil
}
