package enums

import "fmt"

// UserKind maps to the user_kind enum in Postgres.
type UserKind string

const (
	UserKindPerson  UserKind = "person"
	UserKindCompany UserKind = "company"
)

var validUserKinds = []UserKind{
	UserKindPerson,
	UserKindCompany,
}

// String implements fmt.Stringer.
func (k UserKind) String() string {
	return string(k)
}

// IsValid reports whether the value is a known UserKind.
func (k UserKind) IsValid() bool {
	for _, candidate := range validUserKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// SystemRole is carried in access tokens.
type SystemRole string

const (
	SystemRoleUser  SystemRole = "user"
	SystemRoleAdmin SystemRole = "admin"
)

var validSystemRoles = []SystemRole{
	SystemRoleUser,
	SystemRoleAdmin,
}

// String implements fmt.Stringer.
func (r SystemRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known SystemRole.
func (r SystemRole) IsValid() bool {
	for _, candidate := range validSystemRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseSystemRole converts raw input into a SystemRole.
func ParseSystemRole(value string) (SystemRole, error) {
	for _, candidate := range validSystemRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid system role %q", value)
}
