package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dev-brewery/koinon-rms-sub010/models"
)

const attendanceDetailSelect = `
	SELECT a.id, a.person_id, a.occurrence_id, a.group_id, a.security_code_id,
		COALESCE(a.batch_id, ''), COALESCE(a.kiosk_id, ''), a.is_staff, a.start_time, a.end_time,
		sc.code, o.location_id, l.name, o.schedule_id, o.occurrence_date,
		` + personColumns + `
	FROM attendances a
	JOIN occurrences o ON o.id = a.occurrence_id
	JOIN security_codes sc ON sc.id = a.security_code_id
	JOIN locations l ON l.id = o.location_id
	JOIN people p ON p.id = a.person_id
`

func (s *Store) InsertAttendance(ctx context.Context, a *models.Attendance) error {
	var end sql.NullTime
	if a.EndTime != nil {
		end = sql.NullTime{Time: a.EndTime.UTC(), Valid: true}
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO attendances (person_id, occurrence_id, group_id, security_code_id, batch_id, kiosk_id, is_staff, start_time, end_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, a.PersonID, a.OccurrenceID, a.GroupID, a.SecurityCodeID,
		nullString(a.BatchID), nullString(a.KioskID), a.IsStaff, a.StartTime.UTC(), end,
	).Scan(&a.ID)
	if s.d.isUniqueViolation(err) {
		return models.ErrUniqueViolation
	}
	return err
}

func (s *Store) GetAttendanceDetail(ctx context.Context, attendanceID int64) (*models.AttendanceDetail, error) {
	row := s.db.QueryRowContext(ctx, attendanceDetailSelect+` WHERE a.id = $1`, attendanceID)
	d, err := scanAttendanceDetail(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	return d, err
}

func (s *Store) AttendanceDetails(ctx context.Context, attendanceIDs []int64) ([]models.AttendanceDetail, error) {
	if len(attendanceIDs) == 0 {
		return []models.AttendanceDetail{}, nil
	}
	cond, args := s.d.inList("a.id", 1, uniqueIDs(attendanceIDs))
	return s.queryAttendanceDetails(ctx, attendanceDetailSelect+` WHERE `+cond+` ORDER BY a.id`, args...)
}

func (s *Store) OpenAttendance(ctx context.Context, personIDs []int64, date models.Date) ([]models.AttendanceDetail, error) {
	if len(personIDs) == 0 {
		return []models.AttendanceDetail{}, nil
	}
	cond, args := s.d.inList("a.person_id", 2, uniqueIDs(personIDs))
	query := attendanceDetailSelect + `
		WHERE a.end_time IS NULL AND o.occurrence_date = $1 AND ` + cond + `
		ORDER BY a.id`
	return s.queryAttendanceDetails(ctx, query, append([]interface{}{date}, args...)...)
}

// CloseAttendance sets the end time only on an open row, so concurrent
// check-outs of the same record close it once.
func (s *Store) CloseAttendance(ctx context.Context, attendanceID int64, endTime time.Time) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE attendances
		SET end_time = $1
		WHERE id = $2 AND end_time IS NULL
	`, endTime.UTC(), attendanceID)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error verifying update: %w", err)
	}
	if rowsAffected > 0 {
		return true, nil
	}

	var exists bool
	err = s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM attendances WHERE id = $1
		)
	`, attendanceID).Scan(&exists)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, models.ErrNotFound
	}
	return false, nil
}

func (s *Store) queryAttendanceDetails(ctx context.Context, query string, args ...interface{}) ([]models.AttendanceDetail, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	details := []models.AttendanceDetail{}
	for rows.Next() {
		d, err := scanAttendanceDetail(rows)
		if err != nil {
			return nil, err
		}
		details = append(details, *d)
	}
	return details, rows.Err()
}

func scanAttendanceDetail(row scanner) (*models.AttendanceDetail, error) {
	var (
		d       models.AttendanceDetail
		end     sql.NullTime
		birth   sql.NullTime
		grade   sql.NullInt64
		batchID string
		kioskID string
	)
	err := row.Scan(
		&d.ID,
		&d.PersonID,
		&d.OccurrenceID,
		&d.GroupID,
		&d.SecurityCodeID,
		&batchID,
		&kioskID,
		&d.IsStaff,
		&d.StartTime,
		&end,
		&d.Code,
		&d.LocationID,
		&d.LocationName,
		&d.ScheduleID,
		&d.OccurrenceDate,
		&d.Person.ID,
		&d.Person.FirstName,
		&d.Person.NickName,
		&d.Person.LastName,
		&birth,
		&grade,
		&d.Person.IsActive,
		&d.Person.AllergyNote,
	)
	if err != nil {
		return nil, err
	}
	d.BatchID = batchID
	d.KioskID = kioskID
	if end.Valid {
		t := end.Time
		d.EndTime = &t
	}
	applyPersonNulls(&d.Person, birth, grade)
	return &d, nil
}
