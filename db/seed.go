package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dev-brewery/koinon-rms-sub010/models"
)

type FixtureGroupLocation struct {
	GroupID    int64
	LocationID int64
	ScheduleID int64
}

type FixtureMembership struct {
	GroupID int64
	Role    string
}

type FixtureMember struct {
	Person      models.Person
	Role        string
	Phone       string
	Memberships []FixtureMembership
}

type FixtureFamily struct {
	Family  models.Family
	Members []FixtureMember
}

// Fixture is a self-contained campus with explicit ids. Overflow locations
// must come before the locations that point at them.
type Fixture struct {
	Locations      []models.Location
	Schedules      []models.Schedule
	Groups         []models.Group
	GroupLocations []FixtureGroupLocation
	Families       []FixtureFamily
}

func intPtr(i int) *int       { return &i }
func int64Ptr(i int64) *int64 { return &i }

func birthday(now time.Time, months int) *time.Time {
	b := now.AddDate(0, -months, 0)
	b = time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return &b
}

// DemoFixture builds one campus with a Sunday 9:00 and 10:45 service. Ages
// are relative to now so the children stay in their rooms.
func DemoFixture(now time.Time) Fixture {
	return Fixture{
		Locations: []models.Location{
			{ID: 3, Name: "Toddlers Overflow", CampusID: 1, MaxCapacity: 5, IsActive: true},
			{ID: 1, Name: "Nursery", CampusID: 1, MaxCapacity: 8, StaffRatio: 4, IsActive: true},
			{ID: 2, Name: "Toddlers", CampusID: 1, MaxCapacity: 2, OverflowLocationID: int64Ptr(3), IsActive: true},
			{ID: 4, Name: "Elementary", CampusID: 1, MaxCapacity: 30, IsActive: true},
		},
		Schedules: []models.Schedule{
			{ID: 1, Name: "Sunday 9:00", Weekday: time.Sunday, StartMinute: 9 * 60, CheckinBeforeMinutes: 60, CheckinAfterMinutes: 30},
			{ID: 2, Name: "Sunday 10:45", Weekday: time.Sunday, StartMinute: 10*60 + 45, CheckinBeforeMinutes: 45, CheckinAfterMinutes: 30},
		},
		Groups: []models.Group{
			{ID: 1, Name: "Nursery", MinAgeMonths: intPtr(0), MaxAgeMonths: intPtr(23)},
			{ID: 2, Name: "Toddlers", MinAgeMonths: intPtr(24), MaxAgeMonths: intPtr(47)},
			{ID: 3, Name: "Elementary", MinGrade: intPtr(0), MaxGrade: intPtr(5)},
			{ID: 4, Name: "Kids Volunteers"},
		},
		GroupLocations: []FixtureGroupLocation{
			{GroupID: 1, LocationID: 1, ScheduleID: 1},
			{GroupID: 1, LocationID: 1, ScheduleID: 2},
			{GroupID: 2, LocationID: 2, ScheduleID: 1},
			{GroupID: 2, LocationID: 2, ScheduleID: 2},
			{GroupID: 3, LocationID: 4, ScheduleID: 1},
			{GroupID: 3, LocationID: 4, ScheduleID: 2},
			{GroupID: 4, LocationID: 1, ScheduleID: 1},
			{GroupID: 4, LocationID: 2, ScheduleID: 1},
		},
		Families: []FixtureFamily{
			{
				Family: models.Family{ID: 1, Name: "Smith Family", CampusID: 1},
				Members: []FixtureMember{
					{Person: models.Person{ID: 1, FirstName: "Anna", LastName: "Smith", IsActive: true}, Role: models.FamilyRoleAdult, Phone: "(555) 123-4567",
						Memberships: []FixtureMembership{{GroupID: 4, Role: models.GroupRoleLeader}}},
					{Person: models.Person{ID: 2, FirstName: "Ben", LastName: "Smith", BirthDate: birthday(now, 30), IsActive: true}, Role: models.FamilyRoleChild,
						Memberships: []FixtureMembership{{GroupID: 2, Role: models.GroupRoleMember}}},
					{Person: models.Person{ID: 3, FirstName: "Cora", LastName: "Smith", BirthDate: birthday(now, 10), IsActive: true, AllergyNote: "peanuts"}, Role: models.FamilyRoleChild,
						Memberships: []FixtureMembership{{GroupID: 1, Role: models.GroupRoleMember}}},
					{Person: models.Person{ID: 4, FirstName: "Daniel", NickName: "Danny", LastName: "Smith", BirthDate: birthday(now, 90), Grade: intPtr(2), IsActive: true}, Role: models.FamilyRoleChild,
						Memberships: []FixtureMembership{{GroupID: 3, Role: models.GroupRoleMember}}},
				},
			},
			{
				Family: models.Family{ID: 2, Name: "Garcia Family", CampusID: 1},
				Members: []FixtureMember{
					{Person: models.Person{ID: 5, FirstName: "Luis", LastName: "Garcia", IsActive: true}, Role: models.FamilyRoleAdult, Phone: "555-987-6543"},
					{Person: models.Person{ID: 6, FirstName: "Maya", LastName: "Garcia", BirthDate: birthday(now, 36), IsActive: true}, Role: models.FamilyRoleChild,
						Memberships: []FixtureMembership{{GroupID: 2, Role: models.GroupRoleMember}}},
					{Person: models.Person{ID: 7, FirstName: "Nico", LastName: "Garcia", BirthDate: birthday(now, 40), IsActive: true}, Role: models.FamilyRoleChild,
						Memberships: []FixtureMembership{{GroupID: 2, Role: models.GroupRoleMember}}},
				},
			},
		},
	}
}

// SeedData writes a fixture in one transaction. Rows that already exist are
// left alone.
func SeedData(db *sql.DB, driver string, f Fixture) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	for _, l := range f.Locations {
		if _, err = tx.Exec(`
			INSERT INTO locations (id, name, campus_id, max_capacity, staff_ratio, overflow_location_id, is_active)
			VALUES ($1, $2, $3, $4, $5, $6, $7) ON CONFLICT DO NOTHING
		`, l.ID, l.Name, l.CampusID, l.MaxCapacity, l.StaffRatio, l.OverflowLocationID, l.IsActive); err != nil {
			return fmt.Errorf("error seeding locations: %w", err)
		}
	}

	for _, s := range f.Schedules {
		if _, err = tx.Exec(`
			INSERT INTO schedules (id, name, weekday, start_minute, checkin_before_minutes, checkin_after_minutes)
			VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT DO NOTHING
		`, s.ID, s.Name, int(s.Weekday), s.StartMinute, s.CheckinBeforeMinutes, s.CheckinAfterMinutes); err != nil {
			return fmt.Errorf("error seeding schedules: %w", err)
		}
	}

	for _, g := range f.Groups {
		if _, err = tx.Exec(`
			INSERT INTO checkin_groups (id, name, min_age_months, max_age_months, min_grade, max_grade)
			VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT DO NOTHING
		`, g.ID, g.Name, g.MinAgeMonths, g.MaxAgeMonths, g.MinGrade, g.MaxGrade); err != nil {
			return fmt.Errorf("error seeding groups: %w", err)
		}
	}

	for _, gl := range f.GroupLocations {
		if _, err = tx.Exec(`
			INSERT INTO group_locations (group_id, location_id, schedule_id)
			VALUES ($1, $2, $3) ON CONFLICT DO NOTHING
		`, gl.GroupID, gl.LocationID, gl.ScheduleID); err != nil {
			return fmt.Errorf("error seeding group locations: %w", err)
		}
	}

	for _, fam := range f.Families {
		if _, err = tx.Exec(`
			INSERT INTO families (id, name, campus_id) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING
		`, fam.Family.ID, fam.Family.Name, fam.Family.CampusID); err != nil {
			return fmt.Errorf("error seeding families: %w", err)
		}

		for _, m := range fam.Members {
			p := m.Person
			var birth interface{}
			if p.BirthDate != nil {
				birth = models.DateOf(*p.BirthDate)
			}
			if _, err = tx.Exec(`
				INSERT INTO people (id, first_name, nick_name, last_name, birth_date, grade, is_active, allergy_note)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8) ON CONFLICT DO NOTHING
			`, p.ID, p.FirstName, nullString(p.NickName), p.LastName, birth, p.Grade, p.IsActive, nullString(p.AllergyNote)); err != nil {
				return fmt.Errorf("error seeding people: %w", err)
			}

			if _, err = tx.Exec(`
				INSERT INTO family_members (family_id, person_id, role) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING
			`, fam.Family.ID, p.ID, m.Role); err != nil {
				return fmt.Errorf("error seeding family members: %w", err)
			}

			if m.Phone != "" {
				if _, err = tx.Exec(`
					INSERT INTO phone_numbers (person_id, number)
					SELECT $1, $2 WHERE NOT EXISTS (
						SELECT 1 FROM phone_numbers WHERE person_id = $1 AND number = $2
					)
				`, p.ID, digitsOnly(m.Phone)); err != nil {
					return fmt.Errorf("error seeding phone numbers: %w", err)
				}
			}

			for _, gm := range m.Memberships {
				if _, err = tx.Exec(`
					INSERT INTO group_members (group_id, person_id, role, is_active)
					VALUES ($1, $2, $3, $4) ON CONFLICT DO NOTHING
				`, gm.GroupID, p.ID, gm.Role, true); err != nil {
					return fmt.Errorf("error seeding group members: %w", err)
				}
			}
		}
	}

	if driver == DriverPostgres {
		for _, table := range []string{"locations", "schedules", "checkin_groups", "families", "people"} {
			if _, err = tx.Exec(fmt.Sprintf(
				`SELECT setval(pg_get_serial_sequence('%s', 'id'), COALESCE((SELECT MAX(id) FROM %s), 1))`, table, table,
			)); err != nil {
				return fmt.Errorf("error resetting %s sequence: %w", table, err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}

	return nil
}

// Load copies a fixture into the memory store.
func (m *MemoryStore) Load(f Fixture) {
	for _, l := range f.Locations {
		m.AddLocation(l)
	}
	for _, s := range f.Schedules {
		m.AddSchedule(s)
	}
	for _, g := range f.Groups {
		m.AddGroup(g)
	}
	for _, gl := range f.GroupLocations {
		m.AddGroupLocation(gl.GroupID, gl.LocationID, gl.ScheduleID)
	}
	for _, fam := range f.Families {
		m.AddFamily(fam.Family)
		for _, member := range fam.Members {
			m.AddPerson(member.Person)
			m.AddFamilyMember(fam.Family.ID, member.Person.ID, member.Role)
			if member.Phone != "" {
				m.AddPhone(member.Person.ID, member.Phone)
			}
			for _, gm := range member.Memberships {
				m.AddGroupMember(gm.GroupID, member.Person.ID, gm.Role)
			}
		}
	}
}
