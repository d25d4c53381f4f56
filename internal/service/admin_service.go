package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"clipcast/api/internal/gate"
	"clipcast/api/internal/ids"
	"clipcast/api/internal/models"
	"clipcast/api/internal/repository"
	"clipcast/api/internal/security"
	"clipcast/api/internal/storage"
)

var ErrInvalidDuration = errors.New("restriction duration must be positive")

// AdminService carries the back-office mutations: user moderation,
// admin account management, settings. Every mutation leaves an
// activity record.
type AdminService struct {
	users    *repository.UserRepository
	admins   *repository.AdminRepository
	videos   *repository.VideoRepository
	posts    *repository.PostRepository
	tokens   *repository.RefreshTokenRepository
	settings *repository.SettingRepository
	store    *storage.ObjectStore
	activity *ActivityLogger
	log      zerolog.Logger
}

func NewAdminService(
	users *repository.UserRepository,
	admins *repository.AdminRepository,
	videos *repository.VideoRepository,
	posts *repository.PostRepository,
	tokens *repository.RefreshTokenRepository,
	settings *repository.SettingRepository,
	store *storage.ObjectStore,
	activity *ActivityLogger,
	log zerolog.Logger,
) *AdminService {
	return &AdminService{
		users:    users,
		admins:   admins,
		videos:   videos,
		posts:    posts,
		tokens:   tokens,
		settings: settings,
		store:    store,
		activity: activity,
		log:      log,
	}
}

type RestrictInput struct {
	AdminID      string
	UserID       string
	Status       models.UserStatus // banned or suspended
	Reason       string
	DurationDays int // 0 = permanent
}

// RestrictUser bans or suspends a user, optionally with an expiry a
// number of days out. The expiry is always strictly in the future or
// absent.
func (s *AdminService) RestrictUser(ctx context.Context, input RestrictInput) error {
	if input.DurationDays < 0 {
		return ErrInvalidDuration
	}

	var expiry *time.Time
	if input.DurationDays > 0 {
		t := time.Now().UTC().Add(time.Duration(input.DurationDays) * 24 * time.Hour)
		expiry = &t
	}

	err := s.users.SetRestriction(ctx, input.UserID, input.Status, input.Reason, expiry)
	s.activity.Record(input.AdminID, "user."+string(input.Status), "user", input.UserID, map[string]any{
		"reason":       input.Reason,
		"durationDays": input.DurationDays,
	}, err == nil)
	if err != nil {
		return err
	}

	// A restricted user should not keep refreshing sessions.
	if err := s.tokens.RevokeByPrincipal(ctx, string(gate.PrincipalUser), input.UserID); err != nil {
		s.log.Error().Err(err).Str("user_id", input.UserID).Msg("revoke tokens failed")
	}
	return nil
}

func (s *AdminService) ReactivateUser(ctx context.Context, adminID string, userID string) error {
	err := s.users.Reactivate(ctx, userID)
	s.activity.Record(adminID, "user.reactivate", "user", userID, nil, err == nil)
	return err
}

// DeleteUser removes the account and cascades to owned resources:
// posts, video rows and their stored objects, refresh tokens.
func (s *AdminService) DeleteUser(ctx context.Context, adminID string, userID string) error {
	if err := s.posts.DeleteByUser(ctx, userID); err != nil {
		s.activity.Record(adminID, "user.delete", "user", userID, nil, false)
		return err
	}

	objectKeys, err := s.videos.DeleteByUser(ctx, userID)
	if err != nil {
		s.activity.Record(adminID, "user.delete", "user", userID, nil, false)
		return err
	}
	for _, key := range objectKeys {
		if err := s.store.RemoveVideo(ctx, key); err != nil {
			s.log.Warn().Err(err).Str("object_key", key).Msg("object cleanup failed")
		}
	}

	if err := s.tokens.RevokeByPrincipal(ctx, string(gate.PrincipalUser), userID); err != nil {
		s.log.Error().Err(err).Str("user_id", userID).Msg("revoke tokens failed")
	}

	err = s.users.Delete(ctx, userID)
	s.activity.Record(adminID, "user.delete", "user", userID, map[string]any{
		"videosRemoved": len(objectKeys),
	}, err == nil)
	return err
}

func (s *AdminService) ListUsers(ctx context.Context, limit int, offset int) ([]models.User, error) {
	return s.users.List(ctx, limit, offset)
}

type CreateAdminInput struct {
	ActorID     string
	Email       string
	Password    string
	DisplayName string
	Role        models.AdminRole
	Permissions []string
}

func (s *AdminService) CreateAdmin(ctx context.Context, input CreateAdminInput) (models.AdminUser, error) {
	passwordHash, err := security.HashPassword(input.Password)
	if err != nil {
		return models.AdminUser{}, err
	}

	admin := models.AdminUser{
		ID:           ids.New(),
		Email:        input.Email,
		PasswordHash: passwordHash,
		DisplayName:  input.DisplayName,
		Role:         input.Role,
		Permissions:  input.Permissions,
		IsActive:     true,
	}

	err = s.admins.Create(ctx, admin)
	s.activity.Record(input.ActorID, "admin.create", "admin", admin.ID, map[string]any{
		"role": string(input.Role),
	}, err == nil)
	if err != nil {
		return models.AdminUser{}, err
	}
	return admin, nil
}

func (s *AdminService) ListAdmins(ctx context.Context, limit int, offset int) ([]models.AdminUser, error) {
	return s.admins.List(ctx, limit, offset)
}

func (s *AdminService) SetAdminActive(ctx context.Context, actorID string, adminID string, active bool) error {
	err := s.admins.SetActive(ctx, adminID, active)
	s.activity.Record(actorID, "admin.set_active", "admin", adminID, map[string]any{
		"active": active,
	}, err == nil)
	return err
}

func (s *AdminService) UpdateAdminRole(ctx context.Context, actorID string, adminID string, role models.AdminRole, permissions []string) error {
	err := s.admins.UpdateRole(ctx, adminID, role, permissions)
	s.activity.Record(actorID, "admin.update_role", "admin", adminID, map[string]any{
		"role":        string(role),
		"permissions": permissions,
	}, err == nil)
	return err
}

func (s *AdminService) ListSettings(ctx context.Context) ([]models.Setting, error) {
	return s.settings.List(ctx)
}

func (s *AdminService) PutSetting(ctx context.Context, adminID string, key string, value string) error {
	err := s.settings.Upsert(ctx, models.Setting{
		Key:       key,
		Value:     value,
		UpdatedBy: adminID,
	})
	s.activity.Record(adminID, "setting.put", "setting", key, nil, err == nil)
	return err
}
