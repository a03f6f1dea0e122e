// model/subject.go
package model

import "time"

// RoleAssignment links a subject to a role. The assignment flagged primary
// (or the first assignment when none is flagged) supplies subject.role.name.
type RoleAssignment struct {
	RoleID     string    `json:"role_id"`
	RoleName   string    `json:"role_name"`
	IsPrimary  bool      `json:"is_primary"`
	AssignedAt time.Time `json:"assigned_at,omitempty"`
}

// Money carries an amount plus currency, used for approval limits and
// resource values so conditions can address the .amount leaf directly.
type Money struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency,omitempty"`
}

// Subject is the stored record the attribute resolver reads for a requester.
type Subject struct {
	ID              string                 `json:"id"`
	Name            string                 `json:"name"`
	Email           string                 `json:"email,omitempty"`
	Active          bool                   `json:"active"`
	DepartmentID    string                 `json:"department_id,omitempty"`
	Location        string                 `json:"location,omitempty"`
	ClearanceLevel  string                 `json:"clearance_level,omitempty"`
	ApprovalLimit   *Money                 `json:"approval_limit,omitempty"`
	RoleAssignments []RoleAssignment       `json:"role_assignments,omitempty"`
	Attributes      map[string]interface{} `json:"attributes,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

// PrimaryRole returns the designated primary role assignment: the first
// assignment flagged primary, else the first assignment found.
func (s *Subject) PrimaryRole() (RoleAssignment, bool) {
	for _, ra := range s.RoleAssignments {
		if ra.IsPrimary {
			return ra, true
		}
	}
	if len(s.RoleAssignments) > 0 {
		return s.RoleAssignments[0], true
	}
	return RoleAssignment{}, false
}
