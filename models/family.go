package models

const (
	FamilyRoleAdult = "adult"
	FamilyRoleChild = "child"
)

type Family struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	CampusID int64  `json:"campus_id"`
}

type FamilyMember struct {
	FamilyID int64  `json:"family_id"`
	Role     string `json:"role"`
	Person   Person `json:"person"`
}

// FamilyMatch is one search hit, a family with its members.
type FamilyMatch struct {
	Family  Family         `json:"family"`
	Members []FamilyMember `json:"members"`
}
