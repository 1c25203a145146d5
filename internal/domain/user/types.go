package user

import "errors"

var ErrInvalidRole = errors.New("invalid role")

type Role string

const (
	RolePatient Role = "patient"
	RoleNurse   Role = "nurse"
	RoleDoctor  Role = "doctor"
	RoleAdmin   Role = "admin"
)

func (r Role) String() string {
	return string(r)
}

func (r Role) IsValid() bool {
	switch r {
	case RolePatient, RoleNurse, RoleDoctor, RoleAdmin:
		return true
	default:
		return false
	}
}

// IsReviewer reports whether the role may hold a request for review.
func (r Role) IsReviewer() bool {
	return r == RoleNurse || r == RoleDoctor
}

func NewRole(s string) (Role, error) {
	role := Role(s)
	if !role.IsValid() {
		return "", ErrInvalidRole
	}
	return role, nil
}
