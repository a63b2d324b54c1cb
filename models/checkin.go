package models

import "time"

type CheckinRequest struct {
	PersonID   int64 `json:"person_id" binding:"required"`
	LocationID int64 `json:"location_id" binding:"required"`
	ScheduleID int64 `json:"schedule_id" binding:"required"`
}

type Selection struct {
	PersonID   int64 `json:"person_id" binding:"required"`
	LocationID int64 `json:"location_id" binding:"required"`
	ScheduleID int64 `json:"schedule_id" binding:"required"`
}

type FamilyCheckinRequest struct {
	FamilyID   int64       `json:"family_id" binding:"required"`
	Selections []Selection `json:"selections" binding:"required,min=1,dive"`
}

type CheckinResponse struct {
	AttendanceID int64  `json:"attendance_id"`
	Code         string `json:"code"`
	LocationID   int64  `json:"location_id"`
	Redirected   bool   `json:"redirected,omitempty"`
}

// PersonResult is the per-person outcome of a family check-in. Exactly one
// of Checkin and Error is set.
type PersonResult struct {
	PersonID int64            `json:"person_id"`
	Checkin  *CheckinResponse `json:"checkin,omitempty"`
	Error    string           `json:"error,omitempty"`
	Reason   string           `json:"reason,omitempty"`
}

type FamilyCheckinResponse struct {
	BatchID string         `json:"batch_id"`
	Results []PersonResult `json:"results"`
}

type CheckoutResponse struct {
	AttendanceID  int64 `json:"attendance_id"`
	AlreadyClosed bool  `json:"already_closed"`
}

type PickupRequest struct {
	AttendanceID int64  `json:"attendance_id" binding:"required"`
	Code         string `json:"code" binding:"required"`
	Checkout     bool   `json:"checkout"`
}

type PickupResponse struct {
	Authorized    bool           `json:"authorized"`
	RetryAfter    *time.Duration `json:"-"`
	RetryAfterSec int            `json:"retry_after_seconds,omitempty"`
	CheckedOut    bool           `json:"checked_out,omitempty"`
}

type LabelsRequest struct {
	AttendanceIDs []int64 `json:"attendance_ids" binding:"required,min=1"`
}

type SearchQuery struct {
	Phone string `form:"phone"`
	Name  string `form:"name"`
	Code  string `form:"code"`
}
