package middleware

import (
	"context"
	"log"

	"github.com/dev-brewery/koinon-rms-sub010/models"
)

// ScopeLookup resolves the campus of families, people and rooms.
// Implementations: db.Store, db.MemoryStore.
type ScopeLookup interface {
	FamilyCampuses(ctx context.Context, familyIDs []int64) (map[int64]int64, error)
	PersonCampuses(ctx context.Context, personIDs []int64) (map[int64][]int64, error)
	GetLocation(ctx context.Context, locationID int64) (*models.Location, error)
}

// ScopeAuthorizer limits a token to its campus and, for kiosks, to the rooms
// it was registered for. Lookup failures deny.
type ScopeAuthorizer struct {
	lookup ScopeLookup
	claims *models.Claims
}

func NewScopeAuthorizer(lookup ScopeLookup, claims *models.Claims) *ScopeAuthorizer {
	return &ScopeAuthorizer{lookup: lookup, claims: claims}
}

func (a *ScopeAuthorizer) anyCampus() bool {
	return a.claims.Role == models.RoleAdmin || a.claims.CampusID == 0
}

func (a *ScopeAuthorizer) CanAccessPerson(ctx context.Context, personID int64) bool {
	return a.CanAccessPeople(ctx, []int64{personID})[personID]
}

func (a *ScopeAuthorizer) CanAccessFamily(ctx context.Context, familyID int64) bool {
	return a.CanAccessFamilies(ctx, []int64{familyID})[familyID]
}

func (a *ScopeAuthorizer) CanAccessLocation(ctx context.Context, locationID int64) bool {
	if a.claims.Role != models.RoleAdmin && len(a.claims.LocationIDs) > 0 {
		found := false
		for _, id := range a.claims.LocationIDs {
			if id == locationID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if a.anyCampus() {
		return true
	}
	loc, err := a.lookup.GetLocation(ctx, locationID)
	if err != nil {
		return false
	}
	return loc.CampusID == a.claims.CampusID
}

func (a *ScopeAuthorizer) CanAccessPeople(ctx context.Context, personIDs []int64) map[int64]bool {
	allowed := make(map[int64]bool, len(personIDs))
	if a.anyCampus() {
		for _, id := range personIDs {
			allowed[id] = true
		}
		return allowed
	}
	campuses, err := a.lookup.PersonCampuses(ctx, personIDs)
	if err != nil {
		log.Printf("Error resolving person campuses: %v", err)
		return allowed
	}
	for _, id := range personIDs {
		for _, campus := range campuses[id] {
			if campus == a.claims.CampusID {
				allowed[id] = true
				break
			}
		}
	}
	return allowed
}

func (a *ScopeAuthorizer) CanAccessFamilies(ctx context.Context, familyIDs []int64) map[int64]bool {
	allowed := make(map[int64]bool, len(familyIDs))
	if a.anyCampus() {
		for _, id := range familyIDs {
			allowed[id] = true
		}
		return allowed
	}
	campuses, err := a.lookup.FamilyCampuses(ctx, familyIDs)
	if err != nil {
		log.Printf("Error resolving family campuses: %v", err)
		return allowed
	}
	for _, id := range familyIDs {
		if campus, ok := campuses[id]; ok && campus == a.claims.CampusID {
			allowed[id] = true
		}
	}
	return allowed
}
