package models

// User roles.
const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

// User represents a user account in the system.
type User struct {
	Model
	Name         string `gorm:"size:255;not null" json:"name"`
	Email        string `gorm:"size:255;not null;uniqueIndex" json:"email"`
	PasswordHash string `gorm:"size:255;not null" json:"-"` // Never expose this to the client
	Role         string `gorm:"size:50;not null" json:"role"`
	Active       bool   `gorm:"not null" json:"active"`
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
