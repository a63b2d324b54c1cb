package models

import "time"

type Person struct {
	ID          int64      `json:"id"`
	FirstName   string     `json:"first_name"`
	NickName    string     `json:"nick_name,omitempty"`
	LastName    string     `json:"last_name"`
	BirthDate   *time.Time `json:"birth_date,omitempty"`
	Grade       *int       `json:"grade,omitempty"`
	IsActive    bool       `json:"is_active"`
	AllergyNote string     `json:"allergy_note,omitempty"`
}

// DisplayName prefers the nick name, the way labels are printed.
func (p Person) DisplayName() string {
	first := p.FirstName
	if p.NickName != "" {
		first = p.NickName
	}
	return first + " " + p.LastName
}

// AgeInMonths returns the completed months between the birth date and on.
// ok is false when no birth date is recorded.
func (p Person) AgeInMonths(on time.Time) (months int, ok bool) {
	if p.BirthDate == nil {
		return 0, false
	}
	b := *p.BirthDate
	months = (on.Year()-b.Year())*12 + int(on.Month()) - int(b.Month())
	if on.Day() < b.Day() {
		months--
	}
	if months < 0 {
		months = 0
	}
	return months, true
}
