package models

import "time"

type Schedule struct {
	ID                   int64        `json:"id"`
	Name                 string       `json:"name"`
	Weekday              time.Weekday `json:"weekday"`
	StartMinute          int          `json:"start_minute"` // minutes after midnight
	CheckinBeforeMinutes int          `json:"checkin_before_minutes"`
	CheckinAfterMinutes  int          `json:"checkin_after_minutes"`
}

// StartOn returns the schedule start time on the calendar day of t.
func (s Schedule) StartOn(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location()).Add(time.Duration(s.StartMinute) * time.Minute)
}

// IsCheckinOpen reports whether now falls inside the check-in window of
// today's occurrence of the schedule.
func (s Schedule) IsCheckinOpen(now time.Time) bool {
	if now.Weekday() != s.Weekday {
		return false
	}
	start := s.StartOn(now)
	opens := start.Add(-time.Duration(s.CheckinBeforeMinutes) * time.Minute)
	closes := start.Add(time.Duration(s.CheckinAfterMinutes) * time.Minute)
	return !now.Before(opens) && now.Before(closes)
}
