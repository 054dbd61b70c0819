package enums

import (
	"fmt"
	"strings"
)

// UserRole is the marketplace-wide role of an authenticated user.
type UserRole string

const (
	UserRoleCustomer UserRole = "customer"
	UserRoleMerchant UserRole = "merchant"
	UserRoleAdmin    UserRole = "admin"
	UserRoleHubStaff UserRole = "hub_staff"
)

var validUserRoles = []UserRole{
	UserRoleCustomer,
	UserRoleMerchant,
	UserRoleAdmin,
	UserRoleHubStaff,
}

// String implements fmt.Stringer.
func (u UserRole) String() string {
	return string(u)
}

// IsValid reports whether the value is a known UserRole.
func (u UserRole) IsValid() bool {
	for _, candidate := range validUserRoles {
		if candidate == u {
			return true
		}
	}
	return false
}

// ParseUserRole converts raw input into a UserRole.
func ParseUserRole(value string) (UserRole, error) {
	lowered := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validUserRoles {
		if string(candidate) == lowered {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user role %q", value)
}
