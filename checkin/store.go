package checkin

import (
	"context"
	"time"

	"github.com/dev-brewery/koinon-rms-sub010/models"
)

// OccurrenceStore persists occurrences.
// InsertOccurrence returns models.ErrUniqueViolation when a row with the same
// natural key already exists.
type OccurrenceStore interface {
	FindOccurrence(ctx context.Context, key models.OccurrenceKey) (*models.Occurrence, error)
	InsertOccurrence(ctx context.Context, key models.OccurrenceKey, createdAt time.Time) (*models.Occurrence, error)
}

// CodeStore reserves security codes. InsertSecurityCode returns
// models.ErrUniqueViolation when the code was already issued on that date.
type CodeStore interface {
	InsertSecurityCode(ctx context.Context, code string, issueDate models.Date, createdAt time.Time) (*models.SecurityCode, error)
}

// FamilyStore feeds the batch loader. Each method is one round trip for any
// number of people.
type FamilyStore interface {
	FamilyMembers(ctx context.Context, familyID int64) ([]models.FamilyMember, error)
	PeopleByID(ctx context.Context, personIDs []int64) ([]models.Person, error)
	CheckinOptions(ctx context.Context, personIDs []int64) ([]models.CheckinOption, error)
	OpenAttendance(ctx context.Context, personIDs []int64, date models.Date) ([]models.AttendanceDetail, error)
}

type LocationStore interface {
	GetLocation(ctx context.Context, locationID int64) (*models.Location, error)
	CountOpenAttendance(ctx context.Context, locationID int64, date models.Date) (children, staff int, err error)
}

// AttendanceStore writes attendance rows. InsertAttendance returns
// models.ErrUniqueViolation when the person already has an open row for the
// occurrence. CloseAttendance reports false when the row was already closed.
type AttendanceStore interface {
	InsertAttendance(ctx context.Context, a *models.Attendance) error
	GetAttendanceDetail(ctx context.Context, attendanceID int64) (*models.AttendanceDetail, error)
	AttendanceDetails(ctx context.Context, attendanceIDs []int64) ([]models.AttendanceDetail, error)
	CloseAttendance(ctx context.Context, attendanceID int64, endTime time.Time) (bool, error)
}

// SearchStore answers kiosk family searches.
type SearchStore interface {
	FamiliesByPhone(ctx context.Context, digits string) ([]models.FamilyMatch, error)
	FamiliesByName(ctx context.Context, name string) ([]models.FamilyMatch, error)
	FamiliesByCode(ctx context.Context, code string, date models.Date) ([]models.FamilyMatch, error)
}

// Store is everything the check-in core needs from persistence.
// Implementations: db.Store (postgres, sqlite3), db.MemoryStore
type Store interface {
	OccurrenceStore
	CodeStore
	FamilyStore
	LocationStore
	AttendanceStore
	SearchStore
}

// Authorizer is consulted before any state transition. A denial is reported
// exactly like a missing record.
type Authorizer interface {
	CanAccessPerson(ctx context.Context, personID int64) bool
	CanAccessLocation(ctx context.Context, locationID int64) bool
	CanAccessFamily(ctx context.Context, familyID int64) bool
}

// BatchAuthorizer is an optional upgrade of Authorizer that answers for many
// ids at once. The loader and the searcher use it when available.
type BatchAuthorizer interface {
	CanAccessPeople(ctx context.Context, personIDs []int64) map[int64]bool
	CanAccessFamilies(ctx context.Context, familyIDs []int64) map[int64]bool
}

func authorizePeople(ctx context.Context, auth Authorizer, ids []int64) map[int64]bool {
	if b, ok := auth.(BatchAuthorizer); ok {
		return b.CanAccessPeople(ctx, ids)
	}
	allowed := make(map[int64]bool, len(ids))
	for _, id := range ids {
		allowed[id] = auth.CanAccessPerson(ctx, id)
	}
	return allowed
}

func authorizeFamilies(ctx context.Context, auth Authorizer, ids []int64) map[int64]bool {
	if b, ok := auth.(BatchAuthorizer); ok {
		return b.CanAccessFamilies(ctx, ids)
	}
	allowed := make(map[int64]bool, len(ids))
	for _, id := range ids {
		allowed[id] = auth.CanAccessFamily(ctx, id)
	}
	return allowed
}

// AllowAll grants every check. Used by operator tooling and tests.
type AllowAll struct{}

func (AllowAll) CanAccessPerson(context.Context, int64) bool   { return true }
func (AllowAll) CanAccessLocation(context.Context, int64) bool { return true }
func (AllowAll) CanAccessFamily(context.Context, int64) bool   { return true }
