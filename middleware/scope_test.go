package middleware

import (
	"context"
	"errors"
	"testing"

	"github.com/dev-brewery/koinon-rms-sub010/models"
)

type stubLookup struct {
	families  map[int64]int64
	people    map[int64][]int64
	locations map[int64]int64
	err       error
}

func (s *stubLookup) FamilyCampuses(ctx context.Context, ids []int64) (map[int64]int64, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make(map[int64]int64)
	for _, id := range ids {
		if c, ok := s.families[id]; ok {
			out[id] = c
		}
	}
	return out, nil
}

func (s *stubLookup) PersonCampuses(ctx context.Context, ids []int64) (map[int64][]int64, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make(map[int64][]int64)
	for _, id := range ids {
		out[id] = s.people[id]
	}
	return out, nil
}

func (s *stubLookup) GetLocation(ctx context.Context, id int64) (*models.Location, error) {
	campus, ok := s.locations[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &models.Location{ID: id, CampusID: campus, IsActive: true}, nil
}

func newLookup() *stubLookup {
	return &stubLookup{
		families:  map[int64]int64{100: 1, 200: 2},
		people:    map[int64][]int64{1001: {1}, 2001: {2}, 3001: {1, 2}},
		locations: map[int64]int64{10: 1, 11: 1, 20: 2},
	}
}

func TestScopeAuthorizer_Campus(t *testing.T) {
	ctx := context.Background()
	a := NewScopeAuthorizer(newLookup(), &models.Claims{Role: models.RoleStaff, CampusID: 1})

	if !a.CanAccessFamily(ctx, 100) || a.CanAccessFamily(ctx, 200) || a.CanAccessFamily(ctx, 999) {
		t.Error("family access should follow the campus")
	}
	people := a.CanAccessPeople(ctx, []int64{1001, 2001, 3001})
	if !people[1001] || people[2001] || !people[3001] {
		t.Errorf("unexpected people access: %v", people)
	}
	if !a.CanAccessLocation(ctx, 10) || a.CanAccessLocation(ctx, 20) || a.CanAccessLocation(ctx, 404) {
		t.Error("location access should follow the campus")
	}
}

func TestScopeAuthorizer_KioskRooms(t *testing.T) {
	ctx := context.Background()
	a := NewScopeAuthorizer(newLookup(), &models.Claims{Role: models.RoleKiosk, CampusID: 1, LocationIDs: []int64{10}})

	if !a.CanAccessLocation(ctx, 10) {
		t.Error("expected access to the registered room")
	}
	if a.CanAccessLocation(ctx, 11) {
		t.Error("expected no access to an unregistered room on the same campus")
	}
	if !a.CanAccessPerson(ctx, 1001) {
		t.Error("room scope should not restrict people on the campus")
	}
}

func TestScopeAuthorizer_Admin(t *testing.T) {
	ctx := context.Background()
	a := NewScopeAuthorizer(newLookup(), &models.Claims{Role: models.RoleAdmin, CampusID: 1, LocationIDs: []int64{10}})

	if !a.CanAccessFamily(ctx, 200) || !a.CanAccessPerson(ctx, 2001) || !a.CanAccessLocation(ctx, 20) {
		t.Error("admin should reach every campus and room")
	}
}

func TestScopeAuthorizer_LookupErrorDenies(t *testing.T) {
	ctx := context.Background()
	lookup := newLookup()
	lookup.err = errors.New("db down")
	a := NewScopeAuthorizer(lookup, &models.Claims{Role: models.RoleStaff, CampusID: 1})

	if a.CanAccessFamily(ctx, 100) || a.CanAccessPerson(ctx, 1001) {
		t.Error("lookup failures must deny")
	}
}
