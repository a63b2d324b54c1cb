package checkin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dev-brewery/koinon-rms-sub010/models"
)

// MemberContext is everything a check-in decision needs for one person.
type MemberContext struct {
	Person     models.Person
	Role       string
	Authorized bool
	Options    []models.CheckinOption
	Open       []models.AttendanceDetail
}

// Option returns the eligible option for the location and schedule.
func (m *MemberContext) Option(locationID, scheduleID int64) (models.CheckinOption, bool) {
	for _, opt := range m.Options {
		if opt.Location.ID == locationID && opt.Schedule.ID == scheduleID {
			return opt, true
		}
	}
	return models.CheckinOption{}, false
}

// HasOpen reports whether the member already holds an open attendance for
// the occurrence key.
func (m *MemberContext) HasOpen(scheduleID, locationID int64, date models.Date) bool {
	for _, a := range m.Open {
		if a.ScheduleID == scheduleID && a.LocationID == locationID && a.OccurrenceDate == date {
			return true
		}
	}
	return false
}

// FamilyCheckinContext is a snapshot of a family taken in one pass.
type FamilyCheckinContext struct {
	FamilyID int64
	Now      time.Time
	Date     models.Date
	Members  map[int64]*MemberContext
	Order    []int64
}

func (f *FamilyCheckinContext) Member(personID int64) *MemberContext {
	return f.Members[personID]
}

// FamilyLoader hydrates check-in state for a whole family with a constant
// number of store round trips: members, options, open attendance.
type FamilyLoader struct {
	store FamilyStore
	clock Clock
	loc   *time.Location
}

func NewFamilyLoader(store FamilyStore, clock Clock, loc *time.Location) *FamilyLoader {
	if loc == nil {
		loc = time.Local
	}
	return &FamilyLoader{store: store, clock: clock, loc: loc}
}

// Load snapshots a family. A missing family and one the caller may not see
// both return ErrNotFound.
func (l *FamilyLoader) Load(ctx context.Context, auth Authorizer, familyID int64) (*FamilyCheckinContext, error) {
	if !auth.CanAccessFamily(ctx, familyID) {
		return nil, ErrNotFound
	}

	members, err := l.store.FamilyMembers(ctx, familyID)
	if errors.Is(err, models.ErrNotFound) || (err == nil && len(members) == 0) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error loading family members: %w", err)
	}

	fc := l.newContext(familyID)
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		if _, seen := fc.Members[m.Person.ID]; seen {
			continue
		}
		fc.Members[m.Person.ID] = &MemberContext{Person: m.Person, Role: m.Role}
		fc.Order = append(fc.Order, m.Person.ID)
		ids = append(ids, m.Person.ID)
	}

	if err := l.hydrate(ctx, auth, fc, ids); err != nil {
		return nil, err
	}
	return fc, nil
}

// LoadPeople snapshots an arbitrary set of people, used for single check-ins.
func (l *FamilyLoader) LoadPeople(ctx context.Context, auth Authorizer, personIDs []int64) (*FamilyCheckinContext, error) {
	people, err := l.store.PeopleByID(ctx, personIDs)
	if err != nil {
		return nil, fmt.Errorf("error loading people: %w", err)
	}

	fc := l.newContext(0)
	ids := make([]int64, 0, len(people))
	for _, p := range people {
		fc.Members[p.ID] = &MemberContext{Person: p}
		fc.Order = append(fc.Order, p.ID)
		ids = append(ids, p.ID)
	}
	if len(ids) == 0 {
		return fc, nil
	}

	if err := l.hydrate(ctx, auth, fc, ids); err != nil {
		return nil, err
	}
	return fc, nil
}

func (l *FamilyLoader) newContext(familyID int64) *FamilyCheckinContext {
	now := l.clock.Now().In(l.loc)
	return &FamilyCheckinContext{
		FamilyID: familyID,
		Now:      now,
		Date:     models.DateOf(now),
		Members:  make(map[int64]*MemberContext),
	}
}

func (l *FamilyLoader) hydrate(ctx context.Context, auth Authorizer, fc *FamilyCheckinContext, ids []int64) error {
	allowed := authorizePeople(ctx, auth, ids)
	for id, m := range fc.Members {
		m.Authorized = allowed[id]
	}

	options, err := l.store.CheckinOptions(ctx, ids)
	if err != nil {
		return fmt.Errorf("error loading check-in options: %w", err)
	}
	for _, opt := range options {
		m := fc.Members[opt.PersonID]
		if m == nil || !eligible(m.Person, opt, fc.Now) {
			continue
		}
		m.Options = append(m.Options, opt)
	}

	open, err := l.store.OpenAttendance(ctx, ids, fc.Date)
	if err != nil {
		return fmt.Errorf("error loading open attendance: %w", err)
	}
	for _, a := range open {
		if m := fc.Members[a.PersonID]; m != nil {
			m.Open = append(m.Open, a)
		}
	}
	return nil
}

// eligible filters an option down to what can be used right now: an active
// room, an open check-in window, and for non-leaders the group's age and
// grade range.
func eligible(p models.Person, opt models.CheckinOption, now time.Time) bool {
	if !opt.Location.IsActive || !opt.Schedule.IsCheckinOpen(now) {
		return false
	}
	if opt.IsStaff() {
		return true
	}

	g := opt.Group
	if g.MinAgeMonths != nil || g.MaxAgeMonths != nil {
		months, ok := p.AgeInMonths(now)
		if !ok {
			return false
		}
		if g.MinAgeMonths != nil && months < *g.MinAgeMonths {
			return false
		}
		if g.MaxAgeMonths != nil && months > *g.MaxAgeMonths {
			return false
		}
	}
	if g.MinGrade != nil || g.MaxGrade != nil {
		if p.Grade == nil {
			return false
		}
		if g.MinGrade != nil && *p.Grade < *g.MinGrade {
			return false
		}
		if g.MaxGrade != nil && *p.Grade > *g.MaxGrade {
			return false
		}
	}
	return true
}
