package domain

import "strings"

// Role is the caller's authorization level.
type Role int

const (
	RoleUser Role = iota
	RoleAdmin
)

// ParseRole maps a claim value to a Role. Anything that is not "admin" is a
// standard user.
func ParseRole(s string) Role {
	if strings.EqualFold(strings.TrimSpace(s), "admin") {
		return RoleAdmin
	}
	return RoleUser
}

func (r Role) String() string {
	if r == RoleAdmin {
		return "admin"
	}
	return "user"
}
