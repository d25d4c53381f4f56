package models

import "time"

type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusBanned    UserStatus = "banned"
	UserStatusSuspended UserStatus = "suspended"
)

type AdminRole string

const (
	AdminRoleSuperAdmin AdminRole = "superadmin"
	AdminRoleAdmin      AdminRole = "admin"
	AdminRoleModerator  AdminRole = "moderator"
)

type User struct {
	ID           string
	Email        string
	PasswordHash []byte
	DisplayName  string
	Status       UserStatus
	StatusReason *string
	StatusExpiry *time.Time
	AvatarURL    *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type AdminUser struct {
	ID               string
	Email            string
	PasswordHash     []byte
	DisplayName      string
	Role             AdminRole
	Permissions      []string
	IsActive         bool
	FailedLoginCount int
	LockUntil        *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// RefreshToken is one link in a rotation chain. All tokens descending
// from the same login share FamilyID; a replayed (already consumed)
// token revokes the whole family.
type RefreshToken struct {
	ID            string
	PrincipalID   string
	PrincipalKind string
	FamilyID      string
	TokenHash     []byte
	Consumed      bool
	Revoked       bool
	ExpiresAt     time.Time
	CreatedAt     time.Time
	ConsumedAt    *time.Time
}
