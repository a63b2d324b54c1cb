package db

import (
	"database/sql"
	"fmt"
)

const PostgresSchema = `
CREATE TABLE IF NOT EXISTS people (
    id BIGSERIAL PRIMARY KEY,
    first_name VARCHAR(100) NOT NULL,
    nick_name VARCHAR(100),
    last_name VARCHAR(100) NOT NULL,
    birth_date DATE,
    grade INTEGER,
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    allergy_note TEXT
);

CREATE TABLE IF NOT EXISTS families (
    id BIGSERIAL PRIMARY KEY,
    name VARCHAR(255) NOT NULL,
    campus_id BIGINT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS family_members (
    family_id BIGINT NOT NULL REFERENCES families(id) ON DELETE CASCADE,
    person_id BIGINT NOT NULL REFERENCES people(id) ON DELETE CASCADE,
    role VARCHAR(20) NOT NULL,
    PRIMARY KEY (family_id, person_id)
);

CREATE TABLE IF NOT EXISTS phone_numbers (
    id BIGSERIAL PRIMARY KEY,
    person_id BIGINT NOT NULL REFERENCES people(id) ON DELETE CASCADE,
    number VARCHAR(20) NOT NULL
);
CREATE INDEX IF NOT EXISTS phone_numbers_number_idx ON phone_numbers (number);

CREATE TABLE IF NOT EXISTS locations (
    id BIGSERIAL PRIMARY KEY,
    name VARCHAR(255) NOT NULL,
    campus_id BIGINT NOT NULL DEFAULT 0,
    max_capacity INTEGER NOT NULL DEFAULT 0,
    staff_ratio INTEGER NOT NULL DEFAULT 0,
    overflow_location_id BIGINT REFERENCES locations(id),
    is_active BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE TABLE IF NOT EXISTS schedules (
    id BIGSERIAL PRIMARY KEY,
    name VARCHAR(255) NOT NULL,
    weekday INTEGER NOT NULL,
    start_minute INTEGER NOT NULL,
    checkin_before_minutes INTEGER NOT NULL DEFAULT 30,
    checkin_after_minutes INTEGER NOT NULL DEFAULT 30
);

CREATE TABLE IF NOT EXISTS checkin_groups (
    id BIGSERIAL PRIMARY KEY,
    name VARCHAR(255) NOT NULL,
    min_age_months INTEGER,
    max_age_months INTEGER,
    min_grade INTEGER,
    max_grade INTEGER
);

CREATE TABLE IF NOT EXISTS group_members (
    group_id BIGINT NOT NULL REFERENCES checkin_groups(id) ON DELETE CASCADE,
    person_id BIGINT NOT NULL REFERENCES people(id) ON DELETE CASCADE,
    role VARCHAR(20) NOT NULL DEFAULT 'member',
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    PRIMARY KEY (group_id, person_id)
);

CREATE TABLE IF NOT EXISTS group_locations (
    group_id BIGINT NOT NULL REFERENCES checkin_groups(id) ON DELETE CASCADE,
    location_id BIGINT NOT NULL REFERENCES locations(id) ON DELETE CASCADE,
    schedule_id BIGINT NOT NULL REFERENCES schedules(id) ON DELETE CASCADE,
    PRIMARY KEY (group_id, location_id, schedule_id)
);

CREATE TABLE IF NOT EXISTS occurrences (
    id BIGSERIAL PRIMARY KEY,
    schedule_id BIGINT NOT NULL REFERENCES schedules(id),
    location_id BIGINT NOT NULL REFERENCES locations(id),
    occurrence_date DATE NOT NULL,
    created_at TIMESTAMPTZ NOT NULL,
    UNIQUE (schedule_id, location_id, occurrence_date)
);

CREATE TABLE IF NOT EXISTS security_codes (
    id BIGSERIAL PRIMARY KEY,
    code VARCHAR(16) NOT NULL,
    issue_date DATE NOT NULL,
    created_at TIMESTAMPTZ NOT NULL,
    UNIQUE (code, issue_date)
);

CREATE TABLE IF NOT EXISTS attendances (
    id BIGSERIAL PRIMARY KEY,
    person_id BIGINT NOT NULL REFERENCES people(id),
    occurrence_id BIGINT NOT NULL REFERENCES occurrences(id),
    group_id BIGINT NOT NULL,
    security_code_id BIGINT NOT NULL REFERENCES security_codes(id),
    batch_id VARCHAR(36),
    kiosk_id VARCHAR(36),
    is_staff BOOLEAN NOT NULL DEFAULT FALSE,
    start_time TIMESTAMPTZ NOT NULL,
    end_time TIMESTAMPTZ
);
CREATE UNIQUE INDEX IF NOT EXISTS attendances_open_uidx ON attendances (person_id, occurrence_id) WHERE end_time IS NULL;
CREATE INDEX IF NOT EXISTS attendances_occurrence_idx ON attendances (occurrence_id);

CREATE TABLE IF NOT EXISTS kiosks (
    id VARCHAR(36) PRIMARY KEY,
    name VARCHAR(255) NOT NULL,
    campus_id BIGINT NOT NULL DEFAULT 0,
    secret_hash VARCHAR(255) NOT NULL,
    created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS kiosk_locations (
    kiosk_id VARCHAR(36) NOT NULL REFERENCES kiosks(id) ON DELETE CASCADE,
    location_id BIGINT NOT NULL REFERENCES locations(id) ON DELETE CASCADE,
    PRIMARY KEY (kiosk_id, location_id)
);
`

const SQLiteSchema = `
CREATE TABLE IF NOT EXISTS people (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    first_name TEXT NOT NULL,
    nick_name TEXT,
    last_name TEXT NOT NULL,
    birth_date DATE,
    grade INTEGER,
    is_active BOOLEAN NOT NULL DEFAULT 1,
    allergy_note TEXT
);

CREATE TABLE IF NOT EXISTS families (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    campus_id INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS family_members (
    family_id INTEGER NOT NULL REFERENCES families(id) ON DELETE CASCADE,
    person_id INTEGER NOT NULL REFERENCES people(id) ON DELETE CASCADE,
    role TEXT NOT NULL,
    PRIMARY KEY (family_id, person_id)
);

CREATE TABLE IF NOT EXISTS phone_numbers (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    person_id INTEGER NOT NULL REFERENCES people(id) ON DELETE CASCADE,
    number TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS phone_numbers_number_idx ON phone_numbers (number);

CREATE TABLE IF NOT EXISTS locations (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    campus_id INTEGER NOT NULL DEFAULT 0,
    max_capacity INTEGER NOT NULL DEFAULT 0,
    staff_ratio INTEGER NOT NULL DEFAULT 0,
    overflow_location_id INTEGER REFERENCES locations(id),
    is_active BOOLEAN NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS schedules (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    weekday INTEGER NOT NULL,
    start_minute INTEGER NOT NULL,
    checkin_before_minutes INTEGER NOT NULL DEFAULT 30,
    checkin_after_minutes INTEGER NOT NULL DEFAULT 30
);

CREATE TABLE IF NOT EXISTS checkin_groups (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    min_age_months INTEGER,
    max_age_months INTEGER,
    min_grade INTEGER,
    max_grade INTEGER
);

CREATE TABLE IF NOT EXISTS group_members (
    group_id INTEGER NOT NULL REFERENCES checkin_groups(id) ON DELETE CASCADE,
    person_id INTEGER NOT NULL REFERENCES people(id) ON DELETE CASCADE,
    role TEXT NOT NULL DEFAULT 'member',
    is_active BOOLEAN NOT NULL DEFAULT 1,
    PRIMARY KEY (group_id, person_id)
);

CREATE TABLE IF NOT EXISTS group_locations (
    group_id INTEGER NOT NULL REFERENCES checkin_groups(id) ON DELETE CASCADE,
    location_id INTEGER NOT NULL REFERENCES locations(id) ON DELETE CASCADE,
    schedule_id INTEGER NOT NULL REFERENCES schedules(id) ON DELETE CASCADE,
    PRIMARY KEY (group_id, location_id, schedule_id)
);

CREATE TABLE IF NOT EXISTS occurrences (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    schedule_id INTEGER NOT NULL REFERENCES schedules(id),
    location_id INTEGER NOT NULL REFERENCES locations(id),
    occurrence_date DATE NOT NULL,
    created_at DATETIME NOT NULL,
    UNIQUE (schedule_id, location_id, occurrence_date)
);

CREATE TABLE IF NOT EXISTS security_codes (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    code TEXT NOT NULL,
    issue_date DATE NOT NULL,
    created_at DATETIME NOT NULL,
    UNIQUE (code, issue_date)
);

CREATE TABLE IF NOT EXISTS attendances (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    person_id INTEGER NOT NULL REFERENCES people(id),
    occurrence_id INTEGER NOT NULL REFERENCES occurrences(id),
    group_id INTEGER NOT NULL,
    security_code_id INTEGER NOT NULL REFERENCES security_codes(id),
    batch_id TEXT,
    kiosk_id TEXT,
    is_staff BOOLEAN NOT NULL DEFAULT 0,
    start_time DATETIME NOT NULL,
    end_time DATETIME
);
CREATE UNIQUE INDEX IF NOT EXISTS attendances_open_uidx ON attendances (person_id, occurrence_id) WHERE end_time IS NULL;
CREATE INDEX IF NOT EXISTS attendances_occurrence_idx ON attendances (occurrence_id);

CREATE TABLE IF NOT EXISTS kiosks (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    campus_id INTEGER NOT NULL DEFAULT 0,
    secret_hash TEXT NOT NULL,
    created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS kiosk_locations (
    kiosk_id TEXT NOT NULL REFERENCES kiosks(id) ON DELETE CASCADE,
    location_id INTEGER NOT NULL REFERENCES locations(id) ON DELETE CASCADE,
    PRIMARY KEY (kiosk_id, location_id)
);
`

// InitSchema initializes the database schema
func InitSchema(db *sql.DB, driver string) error {
	d, err := dialectFor(driver)
	if err != nil {
		return err
	}
	if _, err := db.Exec(d.schema()); err != nil {
		return fmt.Errorf("error initializing database schema: %w", err)
	}
	return nil
}
