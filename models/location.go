package models

type Location struct {
	ID                 int64  `json:"id"`
	Name               string `json:"name"`
	CampusID           int64  `json:"campus_id"`
	MaxCapacity        int    `json:"max_capacity"` // 0 means unlimited
	StaffRatio         int    `json:"staff_ratio"`  // children per staff member, 0 disables the check
	OverflowLocationID *int64 `json:"overflow_location_id,omitempty"`
	IsActive           bool   `json:"is_active"`
}

// Occupancy is the live head count of a location for one day, derived from
// open attendance rows.
type Occupancy struct {
	LocationID  int64 `json:"location_id"`
	Date        Date  `json:"date"`
	Children    int   `json:"children"`
	Staff       int   `json:"staff"`
	MaxCapacity int   `json:"max_capacity"`
	StaffRatio  int   `json:"staff_ratio"`
}
