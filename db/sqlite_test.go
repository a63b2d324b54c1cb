package db_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/dev-brewery/koinon-rms-sub010/checkin"
	"github.com/dev-brewery/koinon-rms-sub010/db"
	"github.com/dev-brewery/koinon-rms-sub010/models"
)

var sundayMorning = time.Date(2026, 10, 18, 8, 30, 0, 0, time.UTC)

// newSQLiteStore returns a migrated and seeded store in a temp directory.
func newSQLiteStore(t *testing.T) *db.Store {
	t.Helper()
	store, err := db.Open(db.Config{
		Driver: db.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "checkin.db"),
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if err := store.Migrate(); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if err := db.SeedData(store.DB(), store.Driver(), db.DemoFixture(sundayMorning)); err != nil {
		t.Fatalf("SeedData: %v", err)
	}
	return store
}

func TestSQLite_MigrateAndSeedAreRepeatable(t *testing.T) {
	store := newSQLiteStore(t)

	if err := store.Migrate(); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
	if err := db.SeedData(store.DB(), store.Driver(), db.DemoFixture(sundayMorning)); err != nil {
		t.Fatalf("second SeedData: %v", err)
	}

	var phones int
	if err := store.DB().QueryRow(`SELECT COUNT(*) FROM phone_numbers`).Scan(&phones); err != nil {
		t.Fatalf("count phones: %v", err)
	}
	if phones != 2 {
		t.Errorf("expected 2 phone numbers after reseeding, got %d", phones)
	}
}

func TestSQLite_OccurrenceUniqueness(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()
	key := models.OccurrenceKey{ScheduleID: 1, LocationID: 2, Date: models.DateOf(sundayMorning)}

	if _, err := store.FindOccurrence(ctx, key); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound before insert, got %v", err)
	}

	occ, err := store.InsertOccurrence(ctx, key, sundayMorning)
	if err != nil {
		t.Fatalf("InsertOccurrence: %v", err)
	}
	if _, err := store.InsertOccurrence(ctx, key, sundayMorning); !errors.Is(err, models.ErrUniqueViolation) {
		t.Fatalf("expected ErrUniqueViolation on the second insert, got %v", err)
	}

	found, err := store.FindOccurrence(ctx, key)
	if err != nil {
		t.Fatalf("FindOccurrence: %v", err)
	}
	if found.ID != occ.ID || found.OccurrenceDate != key.Date {
		t.Errorf("expected occurrence %d on %v, got %+v", occ.ID, key.Date, found)
	}
}

func TestSQLite_SecurityCodeUniquenessPerDay(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()
	today := models.DateOf(sundayMorning)

	if _, err := store.InsertSecurityCode(ctx, "ABCD", today, sundayMorning); err != nil {
		t.Fatalf("InsertSecurityCode: %v", err)
	}
	if _, err := store.InsertSecurityCode(ctx, "ABCD", today, sundayMorning); !errors.Is(err, models.ErrUniqueViolation) {
		t.Fatalf("expected ErrUniqueViolation, got %v", err)
	}
	if _, err := store.InsertSecurityCode(ctx, "ABCD", models.DateOf(sundayMorning.AddDate(0, 0, 1)), sundayMorning); err != nil {
		t.Fatalf("same code on another day: %v", err)
	}
}

func TestSQLite_OpenAttendanceIsUniquePerOccurrence(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()
	today := models.DateOf(sundayMorning)

	occ, err := store.InsertOccurrence(ctx, models.OccurrenceKey{ScheduleID: 1, LocationID: 4, Date: today}, sundayMorning)
	if err != nil {
		t.Fatalf("InsertOccurrence: %v", err)
	}
	code, err := store.InsertSecurityCode(ctx, "WXYZ", today, sundayMorning)
	if err != nil {
		t.Fatalf("InsertSecurityCode: %v", err)
	}

	att := &models.Attendance{PersonID: 4, OccurrenceID: occ.ID, GroupID: 3, SecurityCodeID: code.ID, BatchID: "batch", StartTime: sundayMorning}
	if err := store.InsertAttendance(ctx, att); err != nil {
		t.Fatalf("InsertAttendance: %v", err)
	}
	dup := *att
	if err := store.InsertAttendance(ctx, &dup); !errors.Is(err, models.ErrUniqueViolation) {
		t.Fatalf("expected ErrUniqueViolation for a second open row, got %v", err)
	}

	open, err := store.OpenAttendance(ctx, []int64{4, 2}, today)
	if err != nil {
		t.Fatalf("OpenAttendance: %v", err)
	}
	if len(open) != 1 || open[0].Code != "WXYZ" || open[0].LocationName != "Elementary" || open[0].OccurrenceDate != today {
		t.Fatalf("unexpected open attendance %+v", open)
	}
	if open[0].Person.DisplayName() != "Danny Smith" {
		t.Errorf("expected Danny Smith, got %q", open[0].Person.DisplayName())
	}

	children, staff, err := store.CountOpenAttendance(ctx, 4, today)
	if err != nil || children != 1 || staff != 0 {
		t.Errorf("expected 1 child 0 staff, got %d %d %v", children, staff, err)
	}

	closed, err := store.CloseAttendance(ctx, att.ID, sundayMorning.Add(time.Hour))
	if err != nil || !closed {
		t.Fatalf("first CloseAttendance: %v %v", closed, err)
	}
	closed, err = store.CloseAttendance(ctx, att.ID, sundayMorning.Add(2*time.Hour))
	if err != nil || closed {
		t.Fatalf("second CloseAttendance: expected false, got %v %v", closed, err)
	}
	if _, err := store.CloseAttendance(ctx, 99999, sundayMorning); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound for an unknown row, got %v", err)
	}

	// the partial index only covers open rows
	if err := store.InsertAttendance(ctx, &models.Attendance{PersonID: 4, OccurrenceID: occ.ID, GroupID: 3, SecurityCodeID: code.ID, StartTime: sundayMorning}); err != nil {
		t.Fatalf("re-check-in after close: %v", err)
	}
}

func TestSQLite_FamilyQueries(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	members, err := store.FamilyMembers(ctx, 1)
	if err != nil {
		t.Fatalf("FamilyMembers: %v", err)
	}
	if len(members) != 4 {
		t.Fatalf("expected 4 Smith members, got %d", len(members))
	}
	if _, err := store.FamilyMembers(ctx, 999); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound for an unknown family, got %v", err)
	}

	options, err := store.CheckinOptions(ctx, []int64{1, 2})
	if err != nil {
		t.Fatalf("CheckinOptions: %v", err)
	}
	var annaLeads, benToddlers bool
	for _, opt := range options {
		if opt.PersonID == 1 && opt.IsStaff() {
			annaLeads = true
		}
		if opt.PersonID == 2 && opt.Location.ID == 2 && opt.Location.OverflowLocationID != nil && *opt.Location.OverflowLocationID == 3 {
			benToddlers = true
		}
	}
	if !annaLeads || !benToddlers {
		t.Errorf("missing options in %+v", options)
	}

	byPhone, err := store.FamiliesByPhone(ctx, "4567")
	if err != nil || len(byPhone) != 1 || byPhone[0].Family.ID != 1 {
		t.Errorf("FamiliesByPhone: %+v %v", byPhone, err)
	}
	byName, err := store.FamiliesByName(ctx, "garcia")
	if err != nil || len(byName) != 1 || byName[0].Family.ID != 2 || len(byName[0].Members) != 3 {
		t.Errorf("FamiliesByName: %+v %v", byName, err)
	}

	campuses, err := store.FamilyCampuses(ctx, []int64{1, 2, 3})
	if err != nil || campuses[1] != 1 || campuses[2] != 1 || len(campuses) != 2 {
		t.Errorf("FamilyCampuses: %v %v", campuses, err)
	}
	people, err := store.PersonCampuses(ctx, []int64{2, 6})
	if err != nil || len(people[2]) != 1 || len(people[6]) != 1 {
		t.Errorf("PersonCampuses: %v %v", people, err)
	}
}

func TestSQLite_Kiosks(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()
	k := &models.Kiosk{ID: "kiosk-a", Name: "Lobby", CampusID: 1, LocationIDs: []int64{2, 1, 2}, SecretHash: "hash", CreatedAt: sundayMorning}

	if err := store.InsertKiosk(ctx, k); err != nil {
		t.Fatalf("InsertKiosk: %v", err)
	}
	if err := store.InsertKiosk(ctx, k); !errors.Is(err, models.ErrUniqueViolation) {
		t.Errorf("expected ErrUniqueViolation, got %v", err)
	}

	got, err := store.GetKiosk(ctx, "kiosk-a")
	if err != nil {
		t.Fatalf("GetKiosk: %v", err)
	}
	if got.Name != "Lobby" || len(got.LocationIDs) != 2 || got.LocationIDs[0] != 1 {
		t.Errorf("unexpected kiosk %+v", got)
	}
	if _, err := store.GetKiosk(ctx, "missing"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// The check-in service runs unchanged on the SQL store.
func TestSQLite_CheckinFlow(t *testing.T) {
	store := newSQLiteStore(t)
	clock := checkin.NewFrozenClock(sundayMorning)
	svc := checkin.NewService(store, clock, checkin.Options{Location: time.UTC, SearchFloor: time.Millisecond})
	ctx := context.Background()
	auth := checkin.AllowAll{}

	resp, err := svc.Recorder.BatchCheckIn(ctx, auth, 2, []models.Selection{
		{PersonID: 6, LocationID: 2, ScheduleID: 1},
		{PersonID: 7, LocationID: 2, ScheduleID: 1},
	}, "kiosk-a")
	if err != nil {
		t.Fatalf("BatchCheckIn: %v", err)
	}
	for _, r := range resp.Results {
		if r.Checkin == nil {
			t.Fatalf("person %d failed: %s", r.PersonID, r.Error)
		}
	}

	// Toddlers holds two; Ben spills into the overflow room.
	ben, err := svc.Recorder.CheckIn(ctx, auth, models.CheckinRequest{PersonID: 2, LocationID: 2, ScheduleID: 1}, "kiosk-a")
	if err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	if !ben.Redirected || ben.LocationID != 3 {
		t.Errorf("expected redirect to 3, got %+v", ben)
	}

	if _, err := svc.Recorder.CheckIn(ctx, auth, models.CheckinRequest{PersonID: 2, LocationID: 2, ScheduleID: 1}, "kiosk-a"); !errors.Is(err, checkin.ErrDuplicateCheckIn) {
		t.Errorf("expected ErrDuplicateCheckIn, got %v", err)
	}

	found, err := svc.Searcher.Search(ctx, auth, models.SearchQuery{Code: ben.Code})
	if err != nil || len(found) != 1 || found[0].Family.ID != 1 {
		t.Errorf("search by code: %+v %v", found, err)
	}

	pickup, err := svc.Pickup.Verify(ctx, auth, models.PickupRequest{AttendanceID: ben.AttendanceID, Code: ben.Code, Checkout: true}, "127.0.0.1")
	if err != nil || !pickup.Authorized || !pickup.CheckedOut {
		t.Fatalf("pickup: %+v %v", pickup, err)
	}
	out, err := svc.Recorder.CheckOut(ctx, auth, ben.AttendanceID)
	if err != nil || !out.AlreadyClosed {
		t.Errorf("second checkout: %+v %v", out, err)
	}
}
