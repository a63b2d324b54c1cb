package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/dev-brewery/koinon-rms-sub010/models"
)

type Config struct {
	Driver   string
	DSN      string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

// DataSource returns the DSN, building a postgres URL from the parts when
// none is given.
func (c Config) DataSource() string {
	if c.DSN != "" || c.Driver != DriverPostgres {
		return c.DSN
	}
	return fmt.Sprintf("postgresql://%s:%s@%s:%d/%s?sslmode=disable",
		c.User, c.Password, c.Host, c.Port, c.DBName)
}

// Store implements the check-in persistence on database/sql. All
// get-or-create paths rely on table constraints, not on locks.
type Store struct {
	db *sql.DB
	d  dialect
}

// Open connects, pings and returns a Store for the configured driver.
func Open(cfg Config) (*Store, error) {
	d, err := dialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(d.name(), cfg.DataSource())
	if err != nil {
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}
	if d.name() == DriverSQLite {
		// one writer at a time; concurrent requests queue on the pool
		db.SetMaxOpenConns(1)
	}

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error pinging database: %w", err)
	}

	log.Printf("connected to %s database", d.name())
	return &Store{db: db, d: d}, nil
}

// NewStore wraps an existing connection.
func NewStore(db *sql.DB, driver string) (*Store, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, d: d}, nil
}

func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Driver() string {
	return s.d.name()
}

func (s *Store) Migrate() error {
	return InitSchema(s.db, s.d.name())
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// insertReturningID runs an INSERT ... ON CONFLICT DO NOTHING RETURNING id.
// A conflict shows up as no row, or as a driver unique error for
// constraints the statement does not name.
func (s *Store) insertReturningID(ctx context.Context, query string, args ...interface{}) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) || s.d.isUniqueViolation(err) {
		return 0, models.ErrUniqueViolation
	}
	return id, err
}

// Occurrences

func (s *Store) FindOccurrence(ctx context.Context, key models.OccurrenceKey) (*models.Occurrence, error) {
	var occ models.Occurrence
	err := s.db.QueryRowContext(ctx, `
		SELECT id, schedule_id, location_id, occurrence_date, created_at
		FROM occurrences
		WHERE schedule_id = $1 AND location_id = $2 AND occurrence_date = $3
	`, key.ScheduleID, key.LocationID, key.Date).Scan(
		&occ.ID,
		&occ.ScheduleID,
		&occ.LocationID,
		&occ.OccurrenceDate,
		&occ.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &occ, nil
}

func (s *Store) InsertOccurrence(ctx context.Context, key models.OccurrenceKey, createdAt time.Time) (*models.Occurrence, error) {
	id, err := s.insertReturningID(ctx, `
		INSERT INTO occurrences (schedule_id, location_id, occurrence_date, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (schedule_id, location_id, occurrence_date) DO NOTHING
		RETURNING id
	`, key.ScheduleID, key.LocationID, key.Date, createdAt.UTC())
	if err != nil {
		return nil, err
	}
	return &models.Occurrence{
		ID:             id,
		ScheduleID:     key.ScheduleID,
		LocationID:     key.LocationID,
		OccurrenceDate: key.Date,
		CreatedAt:      createdAt,
	}, nil
}

// Security codes

func (s *Store) InsertSecurityCode(ctx context.Context, code string, issueDate models.Date, createdAt time.Time) (*models.SecurityCode, error) {
	id, err := s.insertReturningID(ctx, `
		INSERT INTO security_codes (code, issue_date, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (code, issue_date) DO NOTHING
		RETURNING id
	`, code, issueDate, createdAt.UTC())
	if err != nil {
		return nil, err
	}
	return &models.SecurityCode{ID: id, Code: code, IssueDate: issueDate, CreatedAt: createdAt}, nil
}

// Locations

func (s *Store) GetLocation(ctx context.Context, locationID int64) (*models.Location, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+locationColumns+`
		FROM locations l
		WHERE l.id = $1
	`, locationID)
	loc, err := scanLocation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	return loc, err
}

func (s *Store) CountOpenAttendance(ctx context.Context, locationID int64, date models.Date) (children, staff int, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN a.is_staff THEN 0 ELSE 1 END), 0),
			COALESCE(SUM(CASE WHEN a.is_staff THEN 1 ELSE 0 END), 0)
		FROM attendances a
		JOIN occurrences o ON o.id = a.occurrence_id
		WHERE o.location_id = $1 AND o.occurrence_date = $2 AND a.end_time IS NULL
	`, locationID, date).Scan(&children, &staff)
	return children, staff, err
}

const locationColumns = `l.id, l.name, l.campus_id, l.max_capacity, l.staff_ratio, l.overflow_location_id, l.is_active`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanLocation(row scanner) (*models.Location, error) {
	var (
		loc      models.Location
		overflow sql.NullInt64
	)
	if err := row.Scan(&loc.ID, &loc.Name, &loc.CampusID, &loc.MaxCapacity, &loc.StaffRatio, &overflow, &loc.IsActive); err != nil {
		return nil, err
	}
	if overflow.Valid {
		loc.OverflowLocationID = &overflow.Int64
	}
	return &loc, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
