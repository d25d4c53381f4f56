package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"clipcast/api/internal/config"
	"clipcast/api/internal/gate"
	"clipcast/api/internal/ids"
	"clipcast/api/internal/models"
	"clipcast/api/internal/repository"
	"clipcast/api/internal/security"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
)

type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	ClearExpiredRestriction(ctx context.Context, id string) error
}

type AdminStore interface {
	FindByEmail(ctx context.Context, email string) (models.AdminUser, error)
	GetByID(ctx context.Context, id string) (models.AdminUser, error)
	RecordFailedLogin(ctx context.Context, id string, maxFailures int, lockFor time.Duration) (int, error)
	ResetLockout(ctx context.Context, id string) error
}

type RefreshTokenStore interface {
	Create(ctx context.Context, token models.RefreshToken) error
	FindByHash(ctx context.Context, hash []byte) (models.RefreshToken, error)
	Consume(ctx context.Context, id string) (bool, error)
	RevokeFamily(ctx context.Context, familyID string) error
	RevokeByPrincipal(ctx context.Context, principalKind string, principalID string) error
}

// AuthService issues and rotates session credentials. Account status
// is evaluated through the same gate transition the per-request
// middleware uses, so login and in-flight requests cannot disagree.
type AuthService struct {
	users  UserStore
	admins AdminStore
	tokens RefreshTokenStore
	cfg    *config.AppConfig
	log    zerolog.Logger
	now    func() time.Time
}

func NewAuthService(users UserStore, admins AdminStore, tokens RefreshTokenStore, cfg *config.AppConfig, log zerolog.Logger) *AuthService {
	return &AuthService{
		users:  users,
		admins: admins,
		tokens: tokens,
		cfg:    cfg,
		log:    log,
		now:    time.Now,
	}
}

// WithClock overrides the service time source, for tests.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.now = now
	return s
}

type RegisterInput struct {
	Email       string
	Password    string
	DisplayName string
}

type AuthResult struct {
	AccessToken  string
	RefreshToken string
	Principal    gate.Principal
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (AuthResult, error) {
	input.Email = strings.TrimSpace(strings.ToLower(input.Email))
	if input.Email == "" || input.Password == "" {
		return AuthResult{}, fmt.Errorf("email and password required")
	}

	if _, err := s.users.FindByEmail(ctx, input.Email); err == nil {
		return AuthResult{}, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return AuthResult{}, err
	}

	passwordHash, err := security.HashPassword(input.Password)
	if err != nil {
		return AuthResult{}, err
	}

	user := models.User{
		ID:           ids.New(),
		Email:        input.Email,
		PasswordHash: passwordHash,
		DisplayName:  input.DisplayName,
		Status:       models.UserStatusActive,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return AuthResult{}, err
	}

	return s.issueTokens(ctx, repository.UserPrincipal(user), "")
}

type LoginInput struct {
	Email    string
	Password string
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (AuthResult, error) {
	input.Email = strings.TrimSpace(strings.ToLower(input.Email))
	user, err := s.users.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, err
	}

	principal, gerr := s.checkStatus(ctx, repository.UserPrincipal(user))
	if gerr != nil {
		return AuthResult{}, gerr
	}

	ok, err := security.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil || !ok {
		return AuthResult{}, ErrInvalidCredentials
	}

	return s.issueTokens(ctx, principal, "")
}

// AdminLogin adds lockout bookkeeping on top of the user flow:
// repeated bad passwords lock the account for a configured window.
func (s *AuthService) AdminLogin(ctx context.Context, input LoginInput) (AuthResult, error) {
	input.Email = strings.TrimSpace(strings.ToLower(input.Email))
	admin, err := s.admins.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, repository.ErrAdminNotFound) {
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, err
	}

	principal, gerr := s.checkStatus(ctx, repository.AdminPrincipal(admin))
	if gerr != nil {
		return AuthResult{}, gerr
	}

	ok, err := security.VerifyPassword(input.Password, admin.PasswordHash)
	if err != nil || !ok {
		count, recErr := s.admins.RecordFailedLogin(ctx, admin.ID, s.cfg.Security.MaxFailedLogins, s.cfg.Security.LockoutDuration)
		if recErr != nil {
			s.log.Error().Err(recErr).Str("admin_id", admin.ID).Msg("record failed login")
		} else if count >= s.cfg.Security.MaxFailedLogins {
			s.log.Warn().Str("admin_id", admin.ID).Int("failures", count).Msg("admin account locked")
		}
		return AuthResult{}, ErrInvalidCredentials
	}

	if err := s.admins.ResetLockout(ctx, admin.ID); err != nil {
		s.log.Error().Err(err).Str("admin_id", admin.ID).Msg("reset lockout")
	}

	return s.issueTokens(ctx, principal, "")
}

// Refresh rotates a refresh token. The consume step is a conditional
// single-writer update; losing it means the presented token was
// already rotated, which revokes the whole family.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (AuthResult, error) {
	hash := security.HashRefreshToken(refreshToken)
	token, err := s.tokens.FindByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, repository.ErrRefreshTokenNotFound) {
			return AuthResult{}, gate.ErrInvalidToken()
		}
		return AuthResult{}, err
	}

	if token.Revoked {
		return AuthResult{}, gate.ErrRefreshTokenReused()
	}
	if s.now().After(token.ExpiresAt) {
		return AuthResult{}, gate.ErrTokenExpired()
	}

	principal, gerr := s.loadPrincipal(ctx, token)
	if gerr != nil {
		return AuthResult{}, gerr
	}

	principal, gerr = s.checkStatus(ctx, principal)
	if gerr != nil {
		return AuthResult{}, gerr
	}

	consumed, err := s.tokens.Consume(ctx, token.ID)
	if err != nil {
		return AuthResult{}, err
	}
	if !consumed {
		// Replay of an already-rotated token: compromise signal,
		// invalidate every descendant.
		if err := s.tokens.RevokeFamily(ctx, token.FamilyID); err != nil {
			s.log.Error().Err(err).Str("family_id", token.FamilyID).Msg("revoke token family")
		}
		s.log.Warn().
			Str("principal_id", token.PrincipalID).
			Str("family_id", token.FamilyID).
			Msg("refresh token reuse detected")
		return AuthResult{}, gate.ErrRefreshTokenReused()
	}

	return s.issueTokens(ctx, principal, token.FamilyID)
}

// Logout revokes every outstanding refresh token of the principal.
func (s *AuthService) Logout(ctx context.Context, principal gate.Principal) error {
	return s.tokens.RevokeByPrincipal(ctx, string(principal.Kind), principal.ID)
}

func (s *AuthService) loadPrincipal(ctx context.Context, token models.RefreshToken) (gate.Principal, error) {
	switch gate.PrincipalKind(token.PrincipalKind) {
	case gate.PrincipalAdmin:
		admin, err := s.admins.GetByID(ctx, token.PrincipalID)
		if err != nil {
			if errors.Is(err, repository.ErrAdminNotFound) {
				return gate.Principal{}, gate.ErrPrincipalNotFound()
			}
			return gate.Principal{}, err
		}
		return repository.AdminPrincipal(admin), nil
	default:
		user, err := s.users.GetByID(ctx, token.PrincipalID)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return gate.Principal{}, gate.ErrPrincipalNotFound()
			}
			return gate.Principal{}, err
		}
		return repository.UserPrincipal(user), nil
	}
}

// checkStatus is the login-side twin of the middleware status gate:
// same transition function, same revert side effect.
func (s *AuthService) checkStatus(ctx context.Context, principal gate.Principal) (gate.Principal, error) {
	now := s.now()

	if principal.State.Kind == gate.StateLocked && now.Before(principal.State.Until) {
		return gate.Principal{}, gate.ErrAccountLocked(principal.State.Until)
	}

	effective, reverted := gate.Evaluate(principal.State, now)
	if reverted && principal.Kind == gate.PrincipalUser {
		if err := s.users.ClearExpiredRestriction(ctx, principal.ID); err != nil {
			s.log.Error().Err(err).Str("user_id", principal.ID).Msg("restriction revert failed")
		}
	}

	if effective.Kind == gate.StateRestricted {
		return gate.Principal{}, gate.ErrAccountRestricted(effective.Restriction, effective.Reason, effective.Expiry)
	}

	principal.State = effective
	return principal, nil
}

func (s *AuthService) issueTokens(ctx context.Context, principal gate.Principal, familyID string) (AuthResult, error) {
	refreshToken, refreshHash, err := security.GenerateRefreshToken(64)
	if err != nil {
		return AuthResult{}, err
	}

	tokenID := ids.New()
	if familyID == "" {
		familyID = tokenID
	}

	record := models.RefreshToken{
		ID:            tokenID,
		PrincipalID:   principal.ID,
		PrincipalKind: string(principal.Kind),
		FamilyID:      familyID,
		TokenHash:     refreshHash,
		ExpiresAt:     s.now().Add(s.cfg.Security.RefreshTTL),
	}
	if err := s.tokens.Create(ctx, record); err != nil {
		return AuthResult{}, err
	}

	accessToken, err := security.GenerateAccessToken(
		s.cfg.Security.JWTAccessSecret,
		principal.ID,
		string(principal.Kind),
		string(principal.Role),
		tokenID,
		s.cfg.Security.JWTAccessTTL,
	)
	if err != nil {
		return AuthResult{}, err
	}

	return AuthResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Principal:    principal,
	}, nil
}
