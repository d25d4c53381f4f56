package service

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clipcast/api/internal/config"
	"clipcast/api/internal/gate"
	"clipcast/api/internal/models"
	"clipcast/api/internal/repository"
	"clipcast/api/internal/security"
)

type memUserStore struct {
	byID    map[string]models.User
	byEmail map[string]string
}

func newMemUserStore() *memUserStore {
	return &memUserStore{byID: make(map[string]models.User), byEmail: make(map[string]string)}
}

func (s *memUserStore) Create(_ context.Context, user models.User) error {
	s.byID[user.ID] = user
	s.byEmail[user.Email] = user.ID
	return nil
}

func (s *memUserStore) FindByEmail(_ context.Context, email string) (models.User, error) {
	id, ok := s.byEmail[email]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	return s.byID[id], nil
}

func (s *memUserStore) GetByID(_ context.Context, id string) (models.User, error) {
	user, ok := s.byID[id]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	return user, nil
}

func (s *memUserStore) ClearExpiredRestriction(_ context.Context, id string) error {
	user, ok := s.byID[id]
	if !ok {
		return nil
	}
	user.Status = models.UserStatusActive
	user.StatusReason = nil
	user.StatusExpiry = nil
	s.byID[id] = user
	return nil
}

func (s *memUserStore) restrict(id string, status models.UserStatus, reason string, expiry *time.Time) {
	user := s.byID[id]
	user.Status = status
	user.StatusReason = &reason
	user.StatusExpiry = expiry
	s.byID[id] = user
}

type memAdminStore struct {
	byID        map[string]models.AdminUser
	byEmail     map[string]string
	lockFor     time.Duration
	resetCalled int
}

func newMemAdminStore() *memAdminStore {
	return &memAdminStore{byID: make(map[string]models.AdminUser), byEmail: make(map[string]string)}
}

func (s *memAdminStore) put(admin models.AdminUser) {
	s.byID[admin.ID] = admin
	s.byEmail[admin.Email] = admin.ID
}

func (s *memAdminStore) FindByEmail(_ context.Context, email string) (models.AdminUser, error) {
	id, ok := s.byEmail[email]
	if !ok {
		return models.AdminUser{}, repository.ErrAdminNotFound
	}
	return s.byID[id], nil
}

func (s *memAdminStore) GetByID(_ context.Context, id string) (models.AdminUser, error) {
	admin, ok := s.byID[id]
	if !ok {
		return models.AdminUser{}, repository.ErrAdminNotFound
	}
	return admin, nil
}

func (s *memAdminStore) RecordFailedLogin(_ context.Context, id string, maxFailures int, lockFor time.Duration) (int, error) {
	admin := s.byID[id]
	admin.FailedLoginCount++
	if admin.FailedLoginCount >= maxFailures {
		until := time.Now().Add(lockFor)
		admin.LockUntil = &until
	}
	s.byID[id] = admin
	s.lockFor = lockFor
	return admin.FailedLoginCount, nil
}

func (s *memAdminStore) ResetLockout(_ context.Context, id string) error {
	admin := s.byID[id]
	admin.FailedLoginCount = 0
	admin.LockUntil = nil
	s.byID[id] = admin
	s.resetCalled++
	return nil
}

type memTokenStore struct {
	byID            map[string]models.RefreshToken
	revokedFamilies []string
}

func newMemTokenStore() *memTokenStore {
	return &memTokenStore{byID: make(map[string]models.RefreshToken)}
}

func (s *memTokenStore) Create(_ context.Context, token models.RefreshToken) error {
	s.byID[token.ID] = token
	return nil
}

func (s *memTokenStore) FindByHash(_ context.Context, hash []byte) (models.RefreshToken, error) {
	for _, token := range s.byID {
		if bytes.Equal(token.TokenHash, hash) {
			return token, nil
		}
	}
	return models.RefreshToken{}, repository.ErrRefreshTokenNotFound
}

func (s *memTokenStore) Consume(_ context.Context, id string) (bool, error) {
	token, ok := s.byID[id]
	if !ok || token.Consumed || token.Revoked {
		return false, nil
	}
	now := time.Now()
	token.Consumed = true
	token.ConsumedAt = &now
	s.byID[id] = token
	return true, nil
}

func (s *memTokenStore) RevokeFamily(_ context.Context, familyID string) error {
	s.revokedFamilies = append(s.revokedFamilies, familyID)
	for id, token := range s.byID {
		if token.FamilyID == familyID {
			token.Revoked = true
			s.byID[id] = token
		}
	}
	return nil
}

func (s *memTokenStore) RevokeByPrincipal(_ context.Context, principalKind string, principalID string) error {
	for id, token := range s.byID {
		if token.PrincipalKind == principalKind && token.PrincipalID == principalID {
			token.Revoked = true
			s.byID[id] = token
		}
	}
	return nil
}

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		Security: config.SecurityConfig{
			JWTAccessSecret: "test-secret",
			JWTAccessTTL:    15 * time.Minute,
			RefreshTTL:      7 * 24 * time.Hour,
			MaxFailedLogins: 5,
			LockoutDuration: 15 * time.Minute,
		},
	}
}

type authFixture struct {
	svc    *AuthService
	users  *memUserStore
	admins *memAdminStore
	tokens *memTokenStore
}

func newAuthFixture() *authFixture {
	users := newMemUserStore()
	admins := newMemAdminStore()
	tokens := newMemTokenStore()
	svc := NewAuthService(users, admins, tokens, testConfig(), zerolog.Nop())
	return &authFixture{svc: svc, users: users, admins: admins, tokens: tokens}
}

func (f *authFixture) register(t *testing.T, email, password string) AuthResult {
	t.Helper()
	result, err := f.svc.Register(context.Background(), RegisterInput{
		Email:       email,
		Password:    password,
		DisplayName: "Tester",
	})
	require.NoError(t, err)
	return result
}

func TestRegisterAndLogin(t *testing.T) {
	f := newAuthFixture()

	result := f.register(t, "Alice@Example.com", "hunter22")
	assert.NotEmpty(t, result.AccessToken)
	assert.NotEmpty(t, result.RefreshToken)
	assert.Equal(t, gate.PrincipalUser, result.Principal.Kind)
	assert.Equal(t, "alice@example.com", result.Principal.Email, "email is normalized")

	claims, err := security.ParseAccessToken(result.AccessToken, "test-secret")
	require.NoError(t, err)
	assert.Equal(t, result.Principal.ID, claims.Subject)
	assert.Equal(t, "user", claims.PrincipalKind)

	login, err := f.svc.Login(context.Background(), LoginInput{Email: "alice@example.com", Password: "hunter22"})
	require.NoError(t, err)
	assert.Equal(t, result.Principal.ID, login.Principal.ID)

	_, err = f.svc.Login(context.Background(), LoginInput{Email: "alice@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.svc.Login(context.Background(), LoginInput{Email: "nobody@example.com", Password: "hunter22"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newAuthFixture()
	f.register(t, "alice@example.com", "hunter22")

	_, err := f.svc.Register(context.Background(), RegisterInput{Email: "alice@example.com", Password: "other"})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestLoginBannedUser(t *testing.T) {
	f := newAuthFixture()
	result := f.register(t, "alice@example.com", "hunter22")

	expiry := time.Now().Add(7 * 24 * time.Hour).UTC().Truncate(time.Second)
	f.users.restrict(result.Principal.ID, models.UserStatusBanned, "spam", &expiry)

	_, err := f.svc.Login(context.Background(), LoginInput{Email: "alice@example.com", Password: "hunter22"})
	require.Error(t, err)

	var gerr *gate.Error
	require.True(t, errors.As(err, &gerr))
	assert.Equal(t, gate.KindAccountRestricted, gerr.Kind)
	assert.Equal(t, "banned until "+expiry.Format(time.RFC1123)+": spam", gerr.Message)
	assert.Equal(t, gate.RestrictionBanned, gerr.Status)
}

func TestLoginRevertsExpiredBan(t *testing.T) {
	f := newAuthFixture()
	result := f.register(t, "alice@example.com", "hunter22")

	expiry := time.Now().Add(-time.Hour)
	f.users.restrict(result.Principal.ID, models.UserStatusBanned, "spam", &expiry)

	login, err := f.svc.Login(context.Background(), LoginInput{Email: "alice@example.com", Password: "hunter22"})
	require.NoError(t, err, "expired ban must not block login")
	assert.Equal(t, gate.StateActive, login.Principal.State.Kind)

	stored, err := f.users.GetByID(context.Background(), result.Principal.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UserStatusActive, stored.Status, "stored record flipped back to active")
	assert.Nil(t, stored.StatusReason)
	assert.Nil(t, stored.StatusExpiry)
}

func TestRefreshRotation(t *testing.T) {
	f := newAuthFixture()
	result := f.register(t, "alice@example.com", "hunter22")

	rotated, err := f.svc.Refresh(context.Background(), result.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, result.RefreshToken, rotated.RefreshToken)
	assert.Equal(t, result.Principal.ID, rotated.Principal.ID)

	// The rotated token inherits the original family.
	first, err := f.tokens.FindByHash(context.Background(), security.HashRefreshToken(result.RefreshToken))
	require.NoError(t, err)
	second, err := f.tokens.FindByHash(context.Background(), security.HashRefreshToken(rotated.RefreshToken))
	require.NoError(t, err)
	assert.Equal(t, first.FamilyID, second.FamilyID)
	assert.True(t, first.Consumed)
	assert.False(t, second.Consumed)
}

func TestRefreshReuseRevokesFamily(t *testing.T) {
	f := newAuthFixture()
	result := f.register(t, "alice@example.com", "hunter22")

	rotated, err := f.svc.Refresh(context.Background(), result.RefreshToken)
	require.NoError(t, err)

	// Replaying the consumed token is a compromise signal.
	_, err = f.svc.Refresh(context.Background(), result.RefreshToken)
	require.Error(t, err)
	var gerr *gate.Error
	require.True(t, errors.As(err, &gerr))
	assert.Equal(t, gate.KindRefreshTokenReused, gerr.Kind)
	assert.Len(t, f.tokens.revokedFamilies, 1)

	// The descendant issued before the replay is dead too.
	_, err = f.svc.Refresh(context.Background(), rotated.RefreshToken)
	require.Error(t, err)
	require.True(t, errors.As(err, &gerr))
	assert.Equal(t, gate.KindRefreshTokenReused, gerr.Kind)
}

func TestRefreshUnknownToken(t *testing.T) {
	f := newAuthFixture()

	_, err := f.svc.Refresh(context.Background(), "never-issued")
	require.Error(t, err)
	var gerr *gate.Error
	require.True(t, errors.As(err, &gerr))
	assert.Equal(t, gate.KindInvalidToken, gerr.Kind)
}

func TestRefreshExpiredToken(t *testing.T) {
	f := newAuthFixture()
	result := f.register(t, "alice@example.com", "hunter22")

	far := time.Now().Add(30 * 24 * time.Hour)
	f.svc.WithClock(func() time.Time { return far })

	_, err := f.svc.Refresh(context.Background(), result.RefreshToken)
	require.Error(t, err)
	var gerr *gate.Error
	require.True(t, errors.As(err, &gerr))
	assert.Equal(t, gate.KindTokenExpired, gerr.Kind)
}

func TestRefreshBannedPrincipal(t *testing.T) {
	f := newAuthFixture()
	result := f.register(t, "alice@example.com", "hunter22")

	f.users.restrict(result.Principal.ID, models.UserStatusBanned, "spam", nil)

	_, err := f.svc.Refresh(context.Background(), result.RefreshToken)
	require.Error(t, err)
	var gerr *gate.Error
	require.True(t, errors.As(err, &gerr))
	assert.Equal(t, gate.KindAccountRestricted, gerr.Kind)

	// The status rejection happens before consume, so the token is
	// still unconsumed and no family revocation fired.
	token, err := f.tokens.FindByHash(context.Background(), security.HashRefreshToken(result.RefreshToken))
	require.NoError(t, err)
	assert.False(t, token.Consumed)
	assert.Empty(t, f.tokens.revokedFamilies)
}

func TestLogoutRevokesOutstandingTokens(t *testing.T) {
	f := newAuthFixture()
	result := f.register(t, "alice@example.com", "hunter22")

	require.NoError(t, f.svc.Logout(context.Background(), result.Principal))

	_, err := f.svc.Refresh(context.Background(), result.RefreshToken)
	require.Error(t, err)
	var gerr *gate.Error
	require.True(t, errors.As(err, &gerr))
	assert.Equal(t, gate.KindRefreshTokenReused, gerr.Kind)
}

func newTestAdmin(t *testing.T, f *authFixture, email, password string, role models.AdminRole) models.AdminUser {
	t.Helper()
	hash, err := security.HashPassword(password)
	require.NoError(t, err)
	admin := models.AdminUser{
		ID:           "adm-" + email,
		Email:        email,
		PasswordHash: hash,
		DisplayName:  "Admin",
		Role:         role,
		Permissions:  []string{"users"},
		IsActive:     true,
	}
	f.admins.put(admin)
	return admin
}

func TestAdminLogin(t *testing.T) {
	f := newAuthFixture()
	newTestAdmin(t, f, "root@example.com", "s3cret", models.AdminRoleSuperAdmin)

	result, err := f.svc.AdminLogin(context.Background(), LoginInput{Email: "root@example.com", Password: "s3cret"})
	require.NoError(t, err)
	assert.Equal(t, gate.PrincipalAdmin, result.Principal.Kind)
	assert.Equal(t, gate.RoleSuperAdmin, result.Principal.Role)

	claims, err := security.ParseAccessToken(result.AccessToken, "test-secret")
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.PrincipalKind)
	assert.Equal(t, "superadmin", claims.Role)
}

func TestAdminLoginLockout(t *testing.T) {
	f := newAuthFixture()
	admin := newTestAdmin(t, f, "ops@example.com", "s3cret", models.AdminRoleAdmin)

	for i := 0; i < 5; i++ {
		_, err := f.svc.AdminLogin(context.Background(), LoginInput{Email: "ops@example.com", Password: "wrong"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}

	stored, err := f.admins.GetByID(context.Background(), admin.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, stored.FailedLoginCount)
	require.NotNil(t, stored.LockUntil)
	assert.Equal(t, 15*time.Minute, f.admins.lockFor)

	// Even the correct password is rejected while locked.
	_, err = f.svc.AdminLogin(context.Background(), LoginInput{Email: "ops@example.com", Password: "s3cret"})
	require.Error(t, err)
	var gerr *gate.Error
	require.True(t, errors.As(err, &gerr))
	assert.Equal(t, gate.KindAccountLocked, gerr.Kind)
}

func TestAdminLoginResetsLockoutCounter(t *testing.T) {
	f := newAuthFixture()
	admin := newTestAdmin(t, f, "ops@example.com", "s3cret", models.AdminRoleAdmin)

	for i := 0; i < 3; i++ {
		_, err := f.svc.AdminLogin(context.Background(), LoginInput{Email: "ops@example.com", Password: "wrong"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}

	_, err := f.svc.AdminLogin(context.Background(), LoginInput{Email: "ops@example.com", Password: "s3cret"})
	require.NoError(t, err)

	stored, err := f.admins.GetByID(context.Background(), admin.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.FailedLoginCount)
	assert.GreaterOrEqual(t, f.admins.resetCalled, 1)
}

func TestDeactivatedAdminLogin(t *testing.T) {
	f := newAuthFixture()
	admin := newTestAdmin(t, f, "ops@example.com", "s3cret", models.AdminRoleAdmin)
	admin.IsActive = false
	f.admins.put(admin)

	_, err := f.svc.AdminLogin(context.Background(), LoginInput{Email: "ops@example.com", Password: "s3cret"})
	require.Error(t, err)
	var gerr *gate.Error
	require.True(t, errors.As(err, &gerr))
	assert.Equal(t, gate.KindAccountRestricted, gerr.Kind)
	assert.Equal(t, gate.RestrictionSuspended, gerr.Status)
}
