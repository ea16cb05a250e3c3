package role

import "strings"

// Role selects which fixed content pools apply to a user.
type Role string

const (
	Student Role = "student"
	Teacher Role = "teacher"
	Admin   Role = "admin"
)

// All lists the known roles in navigation order.
func All() []Role {
	return []Role{Student, Teacher, Admin}
}

// Known reports whether r is one of the closed set of roles.
func (r Role) Known() bool {
	switch r {
	case Student, Teacher, Admin:
		return true
	}
	return false
}

// Next cycles to the following role, wrapping after admin.
// Unrecognized roles restart at student.
func (r Role) Next() Role {
	roles := All()
	for i, candidate := range roles {
		if candidate == r {
			return roles[(i+1)%len(roles)]
		}
	}
	return Student
}

func (r Role) String() string {
	return string(r)
}

// Parse normalizes user input. Unknown values are kept as-is so callers can
// still resolve them to the fallback profile.
func Parse(raw string) Role {
	return Role(strings.ToLower(strings.TrimSpace(raw)))
}
