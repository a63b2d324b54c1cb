package models

import "time"

type Occurrence struct {
	ID             int64     `json:"id"`
	ScheduleID     int64     `json:"schedule_id"`
	LocationID     int64     `json:"location_id"`
	OccurrenceDate Date      `json:"occurrence_date"`
	CreatedAt      time.Time `json:"created_at"`
}

// OccurrenceKey is the natural key of an occurrence.
type OccurrenceKey struct {
	ScheduleID int64
	LocationID int64
	Date       Date
}

type SecurityCode struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	IssueDate Date      `json:"issue_date"`
	CreatedAt time.Time `json:"created_at"`
}

// Attendance is one check-in of a person into an occurrence. EndTime is nil
// while the person is checked in.
type Attendance struct {
	ID             int64      `json:"id"`
	PersonID       int64      `json:"person_id"`
	OccurrenceID   int64      `json:"occurrence_id"`
	GroupID        int64      `json:"group_id"`
	SecurityCodeID int64      `json:"security_code_id"`
	BatchID        string     `json:"batch_id,omitempty"`
	KioskID        string     `json:"kiosk_id,omitempty"`
	IsStaff        bool       `json:"is_staff"`
	StartTime      time.Time  `json:"start_time"`
	EndTime        *time.Time `json:"end_time,omitempty"`
}

func (a Attendance) IsOpen() bool {
	return a.EndTime == nil
}

// AttendanceDetail joins an attendance row with what a label or a pickup
// check needs.
type AttendanceDetail struct {
	Attendance
	Code           string `json:"code"`
	LocationID     int64  `json:"location_id"`
	LocationName   string `json:"location_name"`
	ScheduleID     int64  `json:"schedule_id"`
	OccurrenceDate Date   `json:"occurrence_date"`
	Person         Person `json:"person"`
}

type Label struct {
	AttendanceID int64     `json:"attendance_id"`
	PersonName   string    `json:"person_name"`
	LocationName string    `json:"location_name"`
	Code         string    `json:"code"`
	AllergyNote  string    `json:"allergy_note,omitempty"`
	StartTime    time.Time `json:"start_time"`
}
