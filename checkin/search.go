package checkin

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/dev-brewery/koinon-rms-sub010/models"
)

const (
	MinPhoneDigits = 4
	MinNameLength  = 2
)

// Searcher serves the kiosk lookups that run before a check-in. Every entry
// point goes through the constant-time gate, and results the caller may not
// see are dropped, so an unauthorized family looks exactly like no family.
type Searcher struct {
	store Store
	gate  *ConstantTimeGate
	clock Clock
	loc   *time.Location
}

func NewSearcher(store Store, gate *ConstantTimeGate, clock Clock, loc *time.Location) *Searcher {
	if loc == nil {
		loc = time.Local
	}
	return &Searcher{store: store, gate: gate, clock: clock, loc: loc}
}

// Search finds families by exactly one of phone, name or today's security
// code. An empty result is not an error.
func (s *Searcher) Search(ctx context.Context, auth Authorizer, q models.SearchQuery) ([]models.FamilyMatch, error) {
	kind, term, err := normalizeQuery(q)
	if err != nil {
		return nil, err
	}

	return Gated(ctx, s.gate, "search by "+kind, func(ctx context.Context) ([]models.FamilyMatch, error) {
		var (
			matches []models.FamilyMatch
			err     error
		)
		switch kind {
		case "phone":
			matches, err = s.store.FamiliesByPhone(ctx, term)
		case "name":
			matches, err = s.store.FamiliesByName(ctx, term)
		case "code":
			matches, err = s.store.FamiliesByCode(ctx, term, models.DateOf(s.clock.Now().In(s.loc)))
		}
		if err != nil {
			return nil, fmt.Errorf("error searching families: %w", err)
		}
		return filterFamilies(ctx, auth, matches), nil
	})
}

// Labels returns printable labels for the attendance ids the caller may see.
// Missing and unauthorized ids are both silently left out.
func (s *Searcher) Labels(ctx context.Context, auth Authorizer, attendanceIDs []int64) ([]models.Label, error) {
	return Gated(ctx, s.gate, "labels", func(ctx context.Context) ([]models.Label, error) {
		details, err := s.store.AttendanceDetails(ctx, attendanceIDs)
		if err != nil {
			return nil, fmt.Errorf("error loading attendance: %w", err)
		}

		personIDs := make([]int64, 0, len(details))
		for _, d := range details {
			personIDs = append(personIDs, d.PersonID)
		}
		allowed := authorizePeople(ctx, auth, personIDs)

		labels := make([]models.Label, 0, len(details))
		for _, d := range details {
			if !allowed[d.PersonID] || !auth.CanAccessLocation(ctx, d.LocationID) {
				continue
			}
			labels = append(labels, models.Label{
				AttendanceID: d.ID,
				PersonName:   d.Person.DisplayName(),
				LocationName: d.LocationName,
				Code:         d.Code,
				AllergyNote:  d.Person.AllergyNote,
				StartTime:    d.StartTime,
			})
		}
		return labels, nil
	})
}

func filterFamilies(ctx context.Context, auth Authorizer, matches []models.FamilyMatch) []models.FamilyMatch {
	if len(matches) == 0 {
		return []models.FamilyMatch{}
	}
	ids := make([]int64, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.Family.ID)
	}
	allowed := authorizeFamilies(ctx, auth, ids)

	out := make([]models.FamilyMatch, 0, len(matches))
	for _, m := range matches {
		if allowed[m.Family.ID] {
			out = append(out, m)
		}
	}
	return out
}

func normalizeQuery(q models.SearchQuery) (kind, term string, err error) {
	set := 0
	for _, v := range []string{q.Phone, q.Name, q.Code} {
		if strings.TrimSpace(v) != "" {
			set++
		}
	}
	if set != 1 {
		return "", "", fmt.Errorf("%w: exactly one of phone, name or code is required", ErrInvalidQuery)
	}

	switch {
	case strings.TrimSpace(q.Phone) != "":
		digits := DigitsOnly(q.Phone)
		if len(digits) < MinPhoneDigits {
			return "", "", fmt.Errorf("%w: phone needs at least %d digits", ErrInvalidQuery, MinPhoneDigits)
		}
		return "phone", digits, nil
	case strings.TrimSpace(q.Name) != "":
		name := strings.ToLower(strings.Join(strings.Fields(q.Name), " "))
		if len(name) < MinNameLength {
			return "", "", fmt.Errorf("%w: name is too short", ErrInvalidQuery)
		}
		return "name", name, nil
	default:
		code := NormalizeCode(q.Code)
		if code == "" {
			return "", "", fmt.Errorf("%w: code is empty", ErrInvalidQuery)
		}
		return "code", code, nil
	}
}

// DigitsOnly strips formatting from a phone number.
func DigitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeCode upper-cases a typed code and drops spaces and dashes.
func NormalizeCode(s string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(s) {
		if r == ' ' || r == '-' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
