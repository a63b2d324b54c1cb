package db

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dev-brewery/koinon-rms-sub010/models"
)

type memFamilyMember struct {
	familyID int64
	personID int64
	role     string
}

type memGroupMember struct {
	groupID  int64
	personID int64
	role     string
	active   bool
}

type memGroupLocation struct {
	groupID    int64
	locationID int64
	scheduleID int64
}

type codeKey struct {
	code string
	date models.Date
}

type openKey struct {
	personID     int64
	occurrenceID int64
}

// MemoryStore is an in-process store with the same uniqueness guarantees as
// the SQL schema: one occurrence per natural key, one code per day, one open
// attendance per person and occurrence. Every method holds one mutex, which
// makes each insert an atomic check-and-set.
type MemoryStore struct {
	mu sync.Mutex

	people         map[int64]models.Person
	families       map[int64]models.Family
	familyMembers  []memFamilyMember
	phones         map[int64][]string
	locations      map[int64]models.Location
	schedules      map[int64]models.Schedule
	groups         map[int64]models.Group
	groupMembers   []memGroupMember
	groupLocations []memGroupLocation
	kiosks         map[string]models.Kiosk

	occurrences  map[int64]models.Occurrence
	occByKey     map[models.OccurrenceKey]int64
	codes        map[int64]models.SecurityCode
	codeByKey    map[codeKey]int64
	attendances  map[int64]models.Attendance
	openByPerson map[openKey]int64

	nextID int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		people:       make(map[int64]models.Person),
		families:     make(map[int64]models.Family),
		phones:       make(map[int64][]string),
		locations:    make(map[int64]models.Location),
		schedules:    make(map[int64]models.Schedule),
		groups:       make(map[int64]models.Group),
		kiosks:       make(map[string]models.Kiosk),
		occurrences:  make(map[int64]models.Occurrence),
		occByKey:     make(map[models.OccurrenceKey]int64),
		codes:        make(map[int64]models.SecurityCode),
		codeByKey:    make(map[codeKey]int64),
		attendances:  make(map[int64]models.Attendance),
		openByPerson: make(map[openKey]int64),
	}
}

// id must be called with mu held.
func (m *MemoryStore) id(given int64) int64 {
	if given != 0 {
		if given > m.nextID {
			m.nextID = given
		}
		return given
	}
	m.nextID++
	return m.nextID
}

// Fixture loading

func (m *MemoryStore) AddPerson(p models.Person) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = m.id(p.ID)
	m.people[p.ID] = p
	return p.ID
}

func (m *MemoryStore) AddFamily(f models.Family) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	f.ID = m.id(f.ID)
	m.families[f.ID] = f
	return f.ID
}

func (m *MemoryStore) AddFamilyMember(familyID, personID int64, role string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.familyMembers = append(m.familyMembers, memFamilyMember{familyID: familyID, personID: personID, role: role})
}

func (m *MemoryStore) AddPhone(personID int64, number string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.phones[personID] = append(m.phones[personID], digitsOnly(number))
}

func (m *MemoryStore) AddLocation(l models.Location) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	l.ID = m.id(l.ID)
	m.locations[l.ID] = l
	return l.ID
}

func (m *MemoryStore) AddSchedule(s models.Schedule) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = m.id(s.ID)
	m.schedules[s.ID] = s
	return s.ID
}

func (m *MemoryStore) AddGroup(g models.Group) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	g.ID = m.id(g.ID)
	m.groups[g.ID] = g
	return g.ID
}

func (m *MemoryStore) AddGroupMember(groupID, personID int64, role string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.groupMembers = append(m.groupMembers, memGroupMember{groupID: groupID, personID: personID, role: role, active: true})
}

func (m *MemoryStore) AddGroupLocation(groupID, locationID, scheduleID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.groupLocations = append(m.groupLocations, memGroupLocation{groupID: groupID, locationID: locationID, scheduleID: scheduleID})
}

// Occurrences

func (m *MemoryStore) FindOccurrence(ctx context.Context, key models.OccurrenceKey) (*models.Occurrence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.occByKey[key]
	if !ok {
		return nil, models.ErrNotFound
	}
	occ := m.occurrences[id]
	return &occ, nil
}

func (m *MemoryStore) InsertOccurrence(ctx context.Context, key models.OccurrenceKey, createdAt time.Time) (*models.Occurrence, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.occByKey[key]; exists {
		return nil, models.ErrUniqueViolation
	}
	occ := models.Occurrence{
		ID:             m.id(0),
		ScheduleID:     key.ScheduleID,
		LocationID:     key.LocationID,
		OccurrenceDate: key.Date,
		CreatedAt:      createdAt,
	}
	m.occurrences[occ.ID] = occ
	m.occByKey[key] = occ.ID
	return &occ, nil
}

// OccurrenceCount returns how many occurrence rows exist.
func (m *MemoryStore) OccurrenceCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.occurrences)
}

// Security codes

func (m *MemoryStore) InsertSecurityCode(ctx context.Context, code string, issueDate models.Date, createdAt time.Time) (*models.SecurityCode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := codeKey{code: code, date: issueDate}
	if _, exists := m.codeByKey[key]; exists {
		return nil, models.ErrUniqueViolation
	}
	sc := models.SecurityCode{ID: m.id(0), Code: code, IssueDate: issueDate, CreatedAt: createdAt}
	m.codes[sc.ID] = sc
	m.codeByKey[key] = sc.ID
	return &sc, nil
}

// Attendance

func (m *MemoryStore) InsertAttendance(ctx context.Context, a *models.Attendance) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := openKey{personID: a.PersonID, occurrenceID: a.OccurrenceID}
	if a.EndTime == nil {
		if _, exists := m.openByPerson[key]; exists {
			return models.ErrUniqueViolation
		}
	}
	a.ID = m.id(0)
	m.attendances[a.ID] = *a
	if a.EndTime == nil {
		m.openByPerson[key] = a.ID
	}
	return nil
}

func (m *MemoryStore) GetAttendanceDetail(ctx context.Context, attendanceID int64) (*models.AttendanceDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attendances[attendanceID]
	if !ok {
		return nil, models.ErrNotFound
	}
	d := m.detail(a)
	return &d, nil
}

func (m *MemoryStore) AttendanceDetails(ctx context.Context, attendanceIDs []int64) ([]models.AttendanceDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.AttendanceDetail{}
	for _, id := range uniqueIDs(attendanceIDs) {
		if a, ok := m.attendances[id]; ok {
			out = append(out, m.detail(a))
		}
	}
	return out, nil
}

func (m *MemoryStore) CloseAttendance(ctx context.Context, attendanceID int64, endTime time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attendances[attendanceID]
	if !ok {
		return false, models.ErrNotFound
	}
	if a.EndTime != nil {
		return false, nil
	}
	a.EndTime = &endTime
	m.attendances[attendanceID] = a
	delete(m.openByPerson, openKey{personID: a.PersonID, occurrenceID: a.OccurrenceID})
	return true, nil
}

func (m *MemoryStore) OpenAttendance(ctx context.Context, personIDs []int64, date models.Date) ([]models.AttendanceDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wanted := idSet(personIDs)
	out := []models.AttendanceDetail{}
	for _, a := range m.sortedAttendance() {
		if !wanted[a.PersonID] || a.EndTime != nil {
			continue
		}
		if m.occurrences[a.OccurrenceID].OccurrenceDate != date {
			continue
		}
		out = append(out, m.detail(a))
	}
	return out, nil
}

// AttendanceCount returns how many attendance rows exist.
func (m *MemoryStore) AttendanceCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.attendances)
}

// detail must be called with mu held.
func (m *MemoryStore) detail(a models.Attendance) models.AttendanceDetail {
	occ := m.occurrences[a.OccurrenceID]
	return models.AttendanceDetail{
		Attendance:     a,
		Code:           m.codes[a.SecurityCodeID].Code,
		LocationID:     occ.LocationID,
		LocationName:   m.locations[occ.LocationID].Name,
		ScheduleID:     occ.ScheduleID,
		OccurrenceDate: occ.OccurrenceDate,
		Person:         m.people[a.PersonID],
	}
}

// sortedAttendance must be called with mu held.
func (m *MemoryStore) sortedAttendance() []models.Attendance {
	out := make([]models.Attendance, 0, len(m.attendances))
	for _, a := range m.attendances {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Locations

func (m *MemoryStore) GetLocation(ctx context.Context, locationID int64) (*models.Location, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locations[locationID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &l, nil
}

func (m *MemoryStore) CountOpenAttendance(ctx context.Context, locationID int64, date models.Date) (children, staff int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.attendances {
		if a.EndTime != nil {
			continue
		}
		occ := m.occurrences[a.OccurrenceID]
		if occ.LocationID != locationID || occ.OccurrenceDate != date {
			continue
		}
		if a.IsStaff {
			staff++
		} else {
			children++
		}
	}
	return children, staff, nil
}

// Families

func (m *MemoryStore) FamilyMembers(ctx context.Context, familyID int64) ([]models.FamilyMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.families[familyID]; !ok {
		return nil, models.ErrNotFound
	}
	return m.membersOf(familyID), nil
}

// membersOf must be called with mu held.
func (m *MemoryStore) membersOf(familyID int64) []models.FamilyMember {
	out := []models.FamilyMember{}
	for _, fm := range m.familyMembers {
		if fm.familyID != familyID {
			continue
		}
		if p, ok := m.people[fm.personID]; ok {
			out = append(out, models.FamilyMember{FamilyID: familyID, Role: fm.role, Person: p})
		}
	}
	return out
}

func (m *MemoryStore) PeopleByID(ctx context.Context, personIDs []int64) ([]models.Person, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Person{}
	for _, id := range uniqueIDs(personIDs) {
		if p, ok := m.people[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *MemoryStore) CheckinOptions(ctx context.Context, personIDs []int64) ([]models.CheckinOption, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wanted := idSet(personIDs)
	out := []models.CheckinOption{}
	for _, gm := range m.groupMembers {
		if !wanted[gm.personID] || !gm.active {
			continue
		}
		for _, gl := range m.groupLocations {
			if gl.groupID != gm.groupID {
				continue
			}
			out = append(out, models.CheckinOption{
				PersonID:   gm.personID,
				Group:      m.groups[gm.groupID],
				MemberRole: gm.role,
				Location:   m.locations[gl.locationID],
				Schedule:   m.schedules[gl.scheduleID],
			})
		}
	}
	return out, nil
}

// Search

func (m *MemoryStore) FamiliesByPhone(ctx context.Context, digits string) ([]models.FamilyMatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	familyIDs := map[int64]bool{}
	for _, fm := range m.familyMembers {
		for _, number := range m.phones[fm.personID] {
			if strings.HasSuffix(number, digits) {
				familyIDs[fm.familyID] = true
			}
		}
	}
	return m.matches(familyIDs), nil
}

func (m *MemoryStore) FamiliesByName(ctx context.Context, name string) ([]models.FamilyMatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	familyIDs := map[int64]bool{}
	for _, f := range m.families {
		if strings.Contains(strings.ToLower(f.Name), name) {
			familyIDs[f.ID] = true
		}
	}
	for _, fm := range m.familyMembers {
		p := m.people[fm.personID]
		full := strings.ToLower(p.FirstName + " " + p.LastName)
		nick := strings.ToLower(p.NickName + " " + p.LastName)
		if strings.HasPrefix(full, name) || (p.NickName != "" && strings.HasPrefix(nick, name)) ||
			strings.HasPrefix(strings.ToLower(p.LastName), name) {
			familyIDs[fm.familyID] = true
		}
	}
	return m.matches(familyIDs), nil
}

func (m *MemoryStore) FamiliesByCode(ctx context.Context, code string, date models.Date) ([]models.FamilyMatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	codeID, ok := m.codeByKey[codeKey{code: code, date: date}]
	if !ok {
		return []models.FamilyMatch{}, nil
	}
	familyIDs := map[int64]bool{}
	for _, a := range m.attendances {
		if a.SecurityCodeID != codeID {
			continue
		}
		for _, fm := range m.familyMembers {
			if fm.personID == a.PersonID {
				familyIDs[fm.familyID] = true
			}
		}
	}
	return m.matches(familyIDs), nil
}

// matches must be called with mu held.
func (m *MemoryStore) matches(familyIDs map[int64]bool) []models.FamilyMatch {
	ids := make([]int64, 0, len(familyIDs))
	for id := range familyIDs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]models.FamilyMatch, 0, len(ids))
	for _, id := range ids {
		f, ok := m.families[id]
		if !ok {
			continue
		}
		out = append(out, models.FamilyMatch{Family: f, Members: m.membersOf(id)})
	}
	return out
}

// Authorization scope

func (m *MemoryStore) FamilyCampuses(ctx context.Context, familyIDs []int64) (map[int64]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int64]int64, len(familyIDs))
	for _, id := range familyIDs {
		if f, ok := m.families[id]; ok {
			out[id] = f.CampusID
		}
	}
	return out, nil
}

func (m *MemoryStore) PersonCampuses(ctx context.Context, personIDs []int64) (map[int64][]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wanted := idSet(personIDs)
	out := make(map[int64][]int64, len(personIDs))
	for _, fm := range m.familyMembers {
		if wanted[fm.personID] {
			out[fm.personID] = append(out[fm.personID], m.families[fm.familyID].CampusID)
		}
	}
	return out, nil
}

// Kiosks

func (m *MemoryStore) InsertKiosk(ctx context.Context, k *models.Kiosk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.kiosks[k.ID]; exists {
		return models.ErrUniqueViolation
	}
	m.kiosks[k.ID] = *k
	return nil
}

func (m *MemoryStore) GetKiosk(ctx context.Context, id string) (*models.Kiosk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k, ok := m.kiosks[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &k, nil
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (m *MemoryStore) Driver() string {
	return DriverMemory
}

func idSet(ids []int64) map[int64]bool {
	set := make(map[int64]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
