package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/dev-brewery/koinon-rms-sub010/models"
)

const personColumns = `p.id, p.first_name, COALESCE(p.nick_name, ''), p.last_name, p.birth_date, p.grade, p.is_active, COALESCE(p.allergy_note, '')`

func scanPerson(row scanner, extra ...interface{}) (*models.Person, error) {
	var (
		p     models.Person
		birth sql.NullTime
		grade sql.NullInt64
	)
	dest := append(extra, &p.ID, &p.FirstName, &p.NickName, &p.LastName, &birth, &grade, &p.IsActive, &p.AllergyNote)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	applyPersonNulls(&p, birth, grade)
	return &p, nil
}

func applyPersonNulls(p *models.Person, birth sql.NullTime, grade sql.NullInt64) {
	if birth.Valid {
		t := birth.Time
		p.BirthDate = &t
	}
	if grade.Valid {
		g := int(grade.Int64)
		p.Grade = &g
	}
}

func (s *Store) FamilyMembers(ctx context.Context, familyID int64) ([]models.FamilyMember, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT fm.family_id, fm.role, `+personColumns+`
		FROM family_members fm
		JOIN people p ON p.id = fm.person_id
		WHERE fm.family_id = $1
		ORDER BY fm.role, p.id
	`, familyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := []models.FamilyMember{}
	for rows.Next() {
		var m models.FamilyMember
		p, err := scanPerson(rows, &m.FamilyID, &m.Role)
		if err != nil {
			return nil, err
		}
		m.Person = *p
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, models.ErrNotFound
	}
	return members, nil
}

func (s *Store) PeopleByID(ctx context.Context, personIDs []int64) ([]models.Person, error) {
	if len(personIDs) == 0 {
		return []models.Person{}, nil
	}
	cond, args := s.d.inList("p.id", 1, uniqueIDs(personIDs))
	rows, err := s.db.QueryContext(ctx, `SELECT `+personColumns+` FROM people p WHERE `+cond+` ORDER BY p.id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	people := []models.Person{}
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, err
		}
		people = append(people, *p)
	}
	return people, rows.Err()
}

// CheckinOptions joins active group memberships to the rooms and schedules
// each group meets in.
func (s *Store) CheckinOptions(ctx context.Context, personIDs []int64) ([]models.CheckinOption, error) {
	if len(personIDs) == 0 {
		return []models.CheckinOption{}, nil
	}
	cond, args := s.d.inList("gm.person_id", 1, uniqueIDs(personIDs))
	rows, err := s.db.QueryContext(ctx, `
		SELECT gm.person_id, gm.role,
			g.id, g.name, g.min_age_months, g.max_age_months, g.min_grade, g.max_grade,
			`+locationColumns+`,
			s.id, s.name, s.weekday, s.start_minute, s.checkin_before_minutes, s.checkin_after_minutes
		FROM group_members gm
		JOIN checkin_groups g ON g.id = gm.group_id
		JOIN group_locations gl ON gl.group_id = g.id
		JOIN locations l ON l.id = gl.location_id
		JOIN schedules s ON s.id = gl.schedule_id
		WHERE gm.is_active AND `+cond+`
		ORDER BY gm.person_id, s.start_minute, l.id
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	options := []models.CheckinOption{}
	for rows.Next() {
		var (
			opt                models.CheckinOption
			minAge, maxAge     sql.NullInt64
			minGrade, maxGrade sql.NullInt64
			overflow           sql.NullInt64
			weekday            int
		)
		err := rows.Scan(
			&opt.PersonID, &opt.MemberRole,
			&opt.Group.ID, &opt.Group.Name, &minAge, &maxAge, &minGrade, &maxGrade,
			&opt.Location.ID, &opt.Location.Name, &opt.Location.CampusID, &opt.Location.MaxCapacity,
			&opt.Location.StaffRatio, &overflow, &opt.Location.IsActive,
			&opt.Schedule.ID, &opt.Schedule.Name, &weekday, &opt.Schedule.StartMinute,
			&opt.Schedule.CheckinBeforeMinutes, &opt.Schedule.CheckinAfterMinutes,
		)
		if err != nil {
			return nil, err
		}
		opt.Group.MinAgeMonths = nullInt(minAge)
		opt.Group.MaxAgeMonths = nullInt(maxAge)
		opt.Group.MinGrade = nullInt(minGrade)
		opt.Group.MaxGrade = nullInt(maxGrade)
		if overflow.Valid {
			opt.Location.OverflowLocationID = &overflow.Int64
		}
		opt.Schedule.Weekday = time.Weekday(weekday)
		options = append(options, opt)
	}
	return options, rows.Err()
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}
