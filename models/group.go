package models

const (
	GroupRoleMember = "member"
	GroupRoleLeader = "leader"
)

type Group struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	MinAgeMonths *int   `json:"min_age_months,omitempty"`
	MaxAgeMonths *int   `json:"max_age_months,omitempty"`
	MinGrade     *int   `json:"min_grade,omitempty"`
	MaxGrade     *int   `json:"max_grade,omitempty"`
}

// CheckinOption is one (group, location, schedule) a person could be checked
// into, joined from their group memberships.
type CheckinOption struct {
	PersonID   int64    `json:"person_id"`
	Group      Group    `json:"group"`
	MemberRole string   `json:"member_role"`
	Location   Location `json:"location"`
	Schedule   Schedule `json:"schedule"`
}

func (o CheckinOption) IsStaff() bool {
	return o.MemberRole == GroupRoleLeader
}
