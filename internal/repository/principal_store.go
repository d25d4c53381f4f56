package repository

import (
	"context"
	"errors"
	"time"

	"clipcast/api/internal/gate"
	"clipcast/api/internal/models"
)

// PrincipalStore adapts the user and admin repositories to the gate's
// store interface, mapping stored rows onto lifecycle states.
type PrincipalStore struct {
	users  *UserRepository
	admins *AdminRepository
}

func NewPrincipalStore(users *UserRepository, admins *AdminRepository) *PrincipalStore {
	return &PrincipalStore{users: users, admins: admins}
}

func (s *PrincipalStore) FindPrincipal(ctx context.Context, kind gate.PrincipalKind, id string) (gate.Principal, error) {
	switch kind {
	case gate.PrincipalAdmin:
		admin, err := s.admins.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, ErrAdminNotFound) {
				return gate.Principal{}, gate.ErrNotFound
			}
			return gate.Principal{}, err
		}
		return AdminPrincipal(admin), nil
	default:
		user, err := s.users.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, ErrUserNotFound) {
				return gate.Principal{}, gate.ErrNotFound
			}
			return gate.Principal{}, err
		}
		return UserPrincipal(user), nil
	}
}

func (s *PrincipalStore) ClearExpiredRestriction(ctx context.Context, kind gate.PrincipalKind, id string) error {
	// Admin restrictions are a plain is_active flag without expiry, so
	// only user rows ever auto-revert.
	if kind == gate.PrincipalAdmin {
		return nil
	}
	return s.users.ClearExpiredRestriction(ctx, id)
}

// UserPrincipal maps a user row onto the gate's principal view.
func UserPrincipal(user models.User) gate.Principal {
	state := gate.Active()
	if user.Status != models.UserStatusActive {
		reason := ""
		if user.StatusReason != nil {
			reason = *user.StatusReason
		}
		state = gate.Restricted(gate.RestrictionKind(user.Status), reason, user.StatusExpiry)
	}

	return gate.Principal{
		ID:          user.ID,
		Kind:        gate.PrincipalUser,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Role:        gate.RoleUser,
		State:       state,
	}
}

// AdminPrincipal maps an admin row onto the gate's principal view.
// An unexpired lock wins over the active flag; a deactivated admin is
// a permanent restriction.
func AdminPrincipal(admin models.AdminUser) gate.Principal {
	state := gate.Active()
	switch {
	case admin.LockUntil != nil && time.Now().Before(*admin.LockUntil):
		state = gate.Locked(*admin.LockUntil)
	case !admin.IsActive:
		state = gate.Restricted(gate.RestrictionSuspended, "account deactivated", nil)
	}

	return gate.Principal{
		ID:          admin.ID,
		Kind:        gate.PrincipalAdmin,
		Email:       admin.Email,
		DisplayName: admin.DisplayName,
		Role:        gate.Role(admin.Role),
		Permissions: gate.PermissionSetFromStrings(admin.Permissions),
		State:       state,
	}
}
