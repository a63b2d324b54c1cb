package db

import (
	"context"

	"github.com/dev-brewery/koinon-rms-sub010/models"
)

// Phone numbers are stored as digits only; a search matches on the suffix so
// kiosks can take the last four digits.
func (s *Store) FamiliesByPhone(ctx context.Context, digits string) ([]models.FamilyMatch, error) {
	ids, err := s.familyIDs(ctx, `
		SELECT DISTINCT fm.family_id
		FROM phone_numbers ph
		JOIN family_members fm ON fm.person_id = ph.person_id
		WHERE ph.number LIKE $1
	`, "%"+digits)
	if err != nil {
		return nil, err
	}
	return s.familyMatches(ctx, ids)
}

func (s *Store) FamiliesByName(ctx context.Context, name string) ([]models.FamilyMatch, error) {
	ids, err := s.familyIDs(ctx, `
		SELECT DISTINCT f.id
		FROM families f
		JOIN family_members fm ON fm.family_id = f.id
		JOIN people p ON p.id = fm.person_id
		WHERE LOWER(f.name) LIKE $1
			OR LOWER(p.first_name || ' ' || p.last_name) LIKE $2
			OR LOWER(COALESCE(p.nick_name, '') || ' ' || p.last_name) LIKE $3
			OR LOWER(p.last_name) LIKE $4
	`, "%"+name+"%", name+"%", name+"%", name+"%")
	if err != nil {
		return nil, err
	}
	return s.familyMatches(ctx, ids)
}

func (s *Store) FamiliesByCode(ctx context.Context, code string, date models.Date) ([]models.FamilyMatch, error) {
	ids, err := s.familyIDs(ctx, `
		SELECT DISTINCT fm.family_id
		FROM security_codes sc
		JOIN attendances a ON a.security_code_id = sc.id
		JOIN family_members fm ON fm.person_id = a.person_id
		WHERE sc.code = $1 AND sc.issue_date = $2
	`, code, date)
	if err != nil {
		return nil, err
	}
	return s.familyMatches(ctx, ids)
}

func (s *Store) familyIDs(ctx context.Context, query string, args ...interface{}) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// familyMatches loads the families and all their members in one query.
func (s *Store) familyMatches(ctx context.Context, familyIDs []int64) ([]models.FamilyMatch, error) {
	if len(familyIDs) == 0 {
		return []models.FamilyMatch{}, nil
	}
	cond, args := s.d.inList("f.id", 1, familyIDs)
	rows, err := s.db.QueryContext(ctx, `
		SELECT f.id, f.name, f.campus_id, fm.role, `+personColumns+`
		FROM families f
		JOIN family_members fm ON fm.family_id = f.id
		JOIN people p ON p.id = fm.person_id
		WHERE `+cond+`
		ORDER BY f.id, fm.role, p.id
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := []models.FamilyMatch{}
	for rows.Next() {
		var (
			f    models.Family
			role string
		)
		p, err := scanPerson(rows, &f.ID, &f.Name, &f.CampusID, &role)
		if err != nil {
			return nil, err
		}
		if n := len(matches); n == 0 || matches[n-1].Family.ID != f.ID {
			matches = append(matches, models.FamilyMatch{Family: f})
		}
		last := &matches[len(matches)-1]
		last.Members = append(last.Members, models.FamilyMember{FamilyID: f.ID, Role: role, Person: *p})
	}
	return matches, rows.Err()
}

// FamilyCampuses maps family ids to their campus.
func (s *Store) FamilyCampuses(ctx context.Context, familyIDs []int64) (map[int64]int64, error) {
	out := make(map[int64]int64, len(familyIDs))
	if len(familyIDs) == 0 {
		return out, nil
	}
	cond, args := s.d.inList("id", 1, uniqueIDs(familyIDs))
	rows, err := s.db.QueryContext(ctx, `SELECT id, campus_id FROM families WHERE `+cond, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id, campus int64
		if err := rows.Scan(&id, &campus); err != nil {
			return nil, err
		}
		out[id] = campus
	}
	return out, rows.Err()
}

// PersonCampuses maps person ids to the campuses of every family they
// belong to.
func (s *Store) PersonCampuses(ctx context.Context, personIDs []int64) (map[int64][]int64, error) {
	out := make(map[int64][]int64, len(personIDs))
	if len(personIDs) == 0 {
		return out, nil
	}
	cond, args := s.d.inList("fm.person_id", 1, uniqueIDs(personIDs))
	rows, err := s.db.QueryContext(ctx, `
		SELECT fm.person_id, f.campus_id
		FROM family_members fm
		JOIN families f ON f.id = fm.family_id
		WHERE `+cond, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id, campus int64
		if err := rows.Scan(&id, &campus); err != nil {
			return nil, err
		}
		out[id] = append(out[id], campus)
	}
	return out, rows.Err()
}
