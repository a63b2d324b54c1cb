package checkin_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dev-brewery/koinon-rms-sub010/checkin"
	"github.com/dev-brewery/koinon-rms-sub010/db"
	"github.com/dev-brewery/koinon-rms-sub010/models"
)

// sundayMorning is inside the 8:00-9:30 check-in window of the 9:00 service.
var sundayMorning = time.Date(2026, 10, 18, 8, 30, 0, 0, time.UTC)

const (
	scheduleNine int64 = 1

	roomOne          int64 = 10
	toddlers         int64 = 11
	toddlersOverflow int64 = 12
	nursery          int64 = 13
	closet           int64 = 14

	groupKids       int64 = 20
	groupNursery    int64 = 21
	groupVolunteers int64 = 22

	smithFamily int64 = 100
	anna        int64 = 1001
	ben         int64 = 1002
	cora        int64 = 1003
	dan         int64 = 1004
	eve         int64 = 1005
	finn        int64 = 1006

	jonesFamily int64 = 200
	gus         int64 = 2001
)

func intPtr(i int) *int { return &i }

func monthsBefore(t time.Time, months int) *time.Time {
	b := t.AddDate(0, -months, 0)
	return &b
}

// seedCampus loads two families on two campuses. Room 1 is unlimited,
// Toddlers holds 2 and spills into Toddlers Overflow, Nursery needs one
// leader per 2 children, and the Closet holds 1 with nowhere to spill.
func seedCampus(store *db.MemoryStore) {
	store.AddSchedule(models.Schedule{ID: scheduleNine, Name: "Sunday 9:00", Weekday: time.Sunday, StartMinute: 9 * 60, CheckinBeforeMinutes: 60, CheckinAfterMinutes: 30})

	store.AddLocation(models.Location{ID: roomOne, Name: "Room 1", CampusID: 1, IsActive: true})
	store.AddLocation(models.Location{ID: toddlersOverflow, Name: "Toddlers Overflow", CampusID: 1, MaxCapacity: 5, IsActive: true})
	overflow := toddlersOverflow
	store.AddLocation(models.Location{ID: toddlers, Name: "Toddlers", CampusID: 1, MaxCapacity: 2, OverflowLocationID: &overflow, IsActive: true})
	store.AddLocation(models.Location{ID: nursery, Name: "Nursery", CampusID: 1, MaxCapacity: 10, StaffRatio: 2, IsActive: true})
	store.AddLocation(models.Location{ID: closet, Name: "Closet", CampusID: 1, MaxCapacity: 1, IsActive: true})

	store.AddGroup(models.Group{ID: groupKids, Name: "Kids"})
	store.AddGroup(models.Group{ID: groupNursery, Name: "Nursery", MinAgeMonths: intPtr(0), MaxAgeMonths: intPtr(23)})
	store.AddGroup(models.Group{ID: groupVolunteers, Name: "Volunteers"})
	for _, loc := range []int64{roomOne, toddlers, closet} {
		store.AddGroupLocation(groupKids, loc, scheduleNine)
	}
	store.AddGroupLocation(groupNursery, nursery, scheduleNine)
	store.AddGroupLocation(groupVolunteers, nursery, scheduleNine)

	store.AddFamily(models.Family{ID: smithFamily, Name: "Smith Family", CampusID: 1})
	people := []struct {
		p     models.Person
		role  string
		group int64
		gRole string
	}{
		{models.Person{ID: anna, FirstName: "Anna", LastName: "Smith", IsActive: true}, models.FamilyRoleAdult, groupVolunteers, models.GroupRoleLeader},
		{models.Person{ID: ben, FirstName: "Ben", LastName: "Smith", IsActive: true}, models.FamilyRoleChild, groupKids, models.GroupRoleMember},
		{models.Person{ID: cora, FirstName: "Cora", LastName: "Smith", IsActive: true, AllergyNote: "peanuts"}, models.FamilyRoleChild, groupKids, models.GroupRoleMember},
		{models.Person{ID: dan, FirstName: "Daniel", NickName: "Danny", LastName: "Smith", IsActive: true}, models.FamilyRoleChild, groupKids, models.GroupRoleMember},
		{models.Person{ID: eve, FirstName: "Eve", LastName: "Smith", BirthDate: monthsBefore(sundayMorning, 8), IsActive: true}, models.FamilyRoleChild, groupNursery, models.GroupRoleMember},
		{models.Person{ID: finn, FirstName: "Finn", LastName: "Smith", IsActive: false}, models.FamilyRoleChild, groupKids, models.GroupRoleMember},
	}
	for _, x := range people {
		store.AddPerson(x.p)
		store.AddFamilyMember(smithFamily, x.p.ID, x.role)
		store.AddGroupMember(x.group, x.p.ID, x.gRole)
	}
	store.AddPhone(anna, "(555) 123-4567")

	store.AddFamily(models.Family{ID: jonesFamily, Name: "Jones Family", CampusID: 2})
	store.AddPerson(models.Person{ID: gus, FirstName: "Gus", LastName: "Jones", IsActive: true})
	store.AddFamilyMember(jonesFamily, gus, models.FamilyRoleChild)
	store.AddGroupMember(groupKids, gus, models.GroupRoleMember)
	store.AddPhone(gus, "555-999-0000")
}

type testEnv struct {
	store *db.MemoryStore
	clock *checkin.FrozenClock
	svc   *checkin.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := db.NewMemoryStore()
	seedCampus(store)
	return newTestEnvWith(t, store, store)
}

// newTestEnvWith builds the service over backing, which may wrap mem.
func newTestEnvWith(t *testing.T, mem *db.MemoryStore, backing checkin.Store) *testEnv {
	t.Helper()
	return newTestEnvFloor(t, mem, backing, 5*time.Millisecond)
}

func newTestEnvFloor(t *testing.T, mem *db.MemoryStore, backing checkin.Store, floor time.Duration) *testEnv {
	t.Helper()
	clock := checkin.NewFrozenClock(sundayMorning)
	svc := checkin.NewService(backing, clock, checkin.Options{
		Location:    time.UTC,
		SearchFloor: floor,
	})
	return &testEnv{store: mem, clock: clock, svc: svc}
}

func (e *testEnv) checkIn(t *testing.T, personID, locationID int64) *models.CheckinResponse {
	t.Helper()
	resp, err := e.svc.Recorder.CheckIn(context.Background(), checkin.AllowAll{}, models.CheckinRequest{
		PersonID: personID, LocationID: locationID, ScheduleID: scheduleNine,
	}, "kiosk-1")
	if err != nil {
		t.Fatalf("CheckIn(%d, %d): %v", personID, locationID, err)
	}
	return resp
}

// denyAll refuses everything.
type denyAll struct{}

func (denyAll) CanAccessPerson(context.Context, int64) bool   { return false }
func (denyAll) CanAccessLocation(context.Context, int64) bool { return false }
func (denyAll) CanAccessFamily(context.Context, int64) bool   { return false }

// onlyFamily sees one family and its people.
type onlyFamily struct {
	familyID int64
	people   map[int64]bool
}

func (a onlyFamily) CanAccessPerson(_ context.Context, id int64) bool { return a.people[id] }
func (a onlyFamily) CanAccessLocation(context.Context, int64) bool    { return true }
func (a onlyFamily) CanAccessFamily(_ context.Context, id int64) bool { return id == a.familyID }

// onlyRooms sees every person but only the listed rooms.
type onlyRooms map[int64]bool

func (onlyRooms) CanAccessPerson(context.Context, int64) bool          { return true }
func (a onlyRooms) CanAccessLocation(_ context.Context, id int64) bool { return a[id] }
func (onlyRooms) CanAccessFamily(context.Context, int64) bool          { return true }

// slowStore adds a fixed delay to every read the check-in and check-out
// lookups make, so the number of reads shows up in the latency.
type slowStore struct {
	*db.MemoryStore
	delay time.Duration
}

func (s *slowStore) wait() { time.Sleep(s.delay) }

func (s *slowStore) PeopleByID(ctx context.Context, ids []int64) ([]models.Person, error) {
	s.wait()
	return s.MemoryStore.PeopleByID(ctx, ids)
}

func (s *slowStore) CheckinOptions(ctx context.Context, ids []int64) ([]models.CheckinOption, error) {
	s.wait()
	return s.MemoryStore.CheckinOptions(ctx, ids)
}

func (s *slowStore) OpenAttendance(ctx context.Context, ids []int64, date models.Date) ([]models.AttendanceDetail, error) {
	s.wait()
	return s.MemoryStore.OpenAttendance(ctx, ids, date)
}

func (s *slowStore) GetAttendanceDetail(ctx context.Context, id int64) (*models.AttendanceDetail, error) {
	s.wait()
	return s.MemoryStore.GetAttendanceDetail(ctx, id)
}

// openBarrierStore holds the first `waiters` OpenAttendance reads until all
// of them have read, so every caller passes the duplicate check.
type openBarrierStore struct {
	*db.MemoryStore

	waiters int

	mu      sync.Mutex
	arrived int
	release chan struct{}
}

func newOpenBarrierStore(mem *db.MemoryStore, waiters int) *openBarrierStore {
	return &openBarrierStore{MemoryStore: mem, waiters: waiters, release: make(chan struct{})}
}

func (b *openBarrierStore) OpenAttendance(ctx context.Context, ids []int64, date models.Date) ([]models.AttendanceDetail, error) {
	open, err := b.MemoryStore.OpenAttendance(ctx, ids, date)

	b.mu.Lock()
	b.arrived++
	n := b.arrived
	if n == b.waiters {
		close(b.release)
	}
	b.mu.Unlock()

	if n <= b.waiters {
		select {
		case <-b.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return open, err
}

// racingStore makes the first `waiters` FindOccurrence calls all read before
// any of them returns, so every caller misses and races to insert.
type racingStore struct {
	*db.MemoryStore

	waiters int

	mu        sync.Mutex
	arrived   int
	release   chan struct{}
	conflicts int
	inserts   int
}

func newRacingStore(mem *db.MemoryStore, waiters int) *racingStore {
	return &racingStore{MemoryStore: mem, waiters: waiters, release: make(chan struct{})}
}

func (r *racingStore) FindOccurrence(ctx context.Context, key models.OccurrenceKey) (*models.Occurrence, error) {
	occ, err := r.MemoryStore.FindOccurrence(ctx, key)

	r.mu.Lock()
	r.arrived++
	n := r.arrived
	if n == r.waiters {
		close(r.release)
	}
	r.mu.Unlock()

	if n <= r.waiters {
		select {
		case <-r.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return occ, err
}

func (r *racingStore) InsertOccurrence(ctx context.Context, key models.OccurrenceKey, createdAt time.Time) (*models.Occurrence, error) {
	occ, err := r.MemoryStore.InsertOccurrence(ctx, key, createdAt)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inserts++
	if errors.Is(err, models.ErrUniqueViolation) {
		r.conflicts++
	}
	return occ, err
}
