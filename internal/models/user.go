package models

// Role is the privilege level of an OFS account.
type Role string

const (
	RoleNormal Role = "normal"
	RoleAdmin  Role = "admin"
)

// ParseRole maps a wire role string to a Role. Anything that is not "admin"
// (including the empty string) is a normal user.
func ParseRole(s string) Role {
	if Role(s) == RoleAdmin {
		return RoleAdmin
	}
	return RoleNormal
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleNormal || r == RoleAdmin
}

// UserRecord is one row of user_list. The authoritative copy lives on the server.
type UserRecord struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	IsActive bool   `json:"is_active"`
}

// Status renders the active flag the way the user table shows it.
func (u UserRecord) Status() string {
	if u.IsActive {
		return "Active"
	}
	return "Inactive"
}
