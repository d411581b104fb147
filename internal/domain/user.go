package domain

import "time"

// UserRole mirrors the role names owned by the identity service.
type UserRole string

const (
	RoleSuperAdmin UserRole = "SUPER_ADMIN"
	RoleAdmin      UserRole = "ADMIN"
)

// User is a read-mostly mirror of an admin user owned by the identity
// service. Tickets reference users for assignment and audit attribution;
// this service never manages credentials beyond the dev seeder.
type User struct {
	ID           string
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	Role         UserRole
	IsDeleted    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DisplayName is the human-readable form used in audit messages and mail.
func (u *User) DisplayName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
