// Package gate is the access-control core: it decides, for every
// authenticated request, whether the acting principal may proceed,
// based on token validity, account lifecycle state and, for admin
// principals, role and permission membership. Both the login path and
// the per-request middleware run through the same decision functions.
package gate

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"clipcast/api/internal/security"
)

type PrincipalKind string

const (
	PrincipalUser  PrincipalKind = "user"
	PrincipalAdmin PrincipalKind = "admin"
)

// Principal is the freshly loaded server-side view of the requester.
// Token claims are only used to locate the record; status, role and
// permissions always come from the store.
type Principal struct {
	ID          string
	Kind        PrincipalKind
	Email       string
	DisplayName string
	Role        Role
	Permissions PermissionSet
	State       AccountState
}

// ErrNotFound is returned by PrincipalStore implementations when the
// subject of a structurally valid token no longer exists.
var ErrNotFound = errors.New("principal not found")

type PrincipalStore interface {
	FindPrincipal(ctx context.Context, kind PrincipalKind, id string) (Principal, error)
	// ClearExpiredRestriction flips a restriction whose expiry has
	// passed back to active, clearing reason and expiry. It must be
	// conditional on the stored expiry so concurrent calls are
	// idempotent, and a no-op when the record is already active.
	ClearExpiredRestriction(ctx context.Context, kind PrincipalKind, id string) error
}

// Check is one step of an authorization pipeline.
type Check func(Principal) *Error

type Gate struct {
	store  PrincipalStore
	secret string
	log    zerolog.Logger
	now    func() time.Time
}

type Option func(*Gate)

// WithClock overrides the gate's time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

func New(store PrincipalStore, accessSecret string, log zerolog.Logger, opts ...Option) *Gate {
	g := &Gate{
		store:  store,
		secret: accessSecret,
		log:    log,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Authenticate verifies the bearer token and resolves its subject to
// a stored principal.
func (g *Gate) Authenticate(ctx context.Context, token string) (Principal, *Error) {
	if token == "" {
		return Principal{}, ErrMissingToken()
	}

	claims, err := security.ParseAccessToken(token, g.secret)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Principal{}, ErrTokenExpired()
		}
		return Principal{}, ErrInvalidToken()
	}

	kind := PrincipalKind(claims.PrincipalKind)
	if kind != PrincipalUser && kind != PrincipalAdmin {
		return Principal{}, ErrInvalidToken()
	}

	principal, err := g.store.FindPrincipal(ctx, kind, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Principal{}, ErrPrincipalNotFound()
		}
		g.log.Error().Err(err).Str("principal_id", claims.Subject).Msg("principal lookup failed")
		return Principal{}, ErrInvalidToken()
	}

	return principal, nil
}

// AuthorizeStatus admits active principals, auto-reverts expired
// restrictions and rejects everything else. The returned principal
// carries the effective state.
func (g *Gate) AuthorizeStatus(ctx context.Context, principal Principal) (Principal, *Error) {
	now := g.now()

	if principal.State.Kind == StateLocked && now.Before(principal.State.Until) {
		return Principal{}, ErrAccountLocked(principal.State.Until)
	}

	effective, reverted := Evaluate(principal.State, now)
	if reverted {
		if err := g.store.ClearExpiredRestriction(ctx, principal.Kind, principal.ID); err != nil {
			g.log.Error().Err(err).Str("principal_id", principal.ID).Msg("restriction revert failed")
		}
	}

	if effective.Kind == StateRestricted {
		return Principal{}, ErrAccountRestricted(effective.Restriction, effective.Reason, effective.Expiry)
	}

	principal.State = effective
	return principal, nil
}

// RequireRole is a pipeline check passing iff the principal's role is
// in the allowed set.
func RequireRole(allowed ...Role) Check {
	return func(p Principal) *Error {
		for _, role := range allowed {
			if p.Role == role {
				return nil
			}
		}
		return ErrInsufficientRole(allowed)
	}
}

// RequirePermission is a pipeline check with any-of semantics.
// Superadmins hold every permission implicitly.
func RequirePermission(required ...Permission) Check {
	return func(p Principal) *Error {
		if p.Role == RoleSuperAdmin {
			return nil
		}
		if p.Permissions.Any(required...) {
			return nil
		}
		return ErrInsufficientPermission(required)
	}
}

// Admit runs the full pipeline: authenticate, status, then the given
// checks in order, short-circuiting on the first failure. The
// ordering is load-bearing: a restricted admin must never reach a
// role or permission check.
func (g *Gate) Admit(ctx context.Context, token string, checks ...Check) (Principal, *Error) {
	principal, gerr := g.Authenticate(ctx, token)
	if gerr != nil {
		return Principal{}, gerr
	}

	principal, gerr = g.AuthorizeStatus(ctx, principal)
	if gerr != nil {
		return Principal{}, gerr
	}

	for _, check := range checks {
		if gerr := check(principal); gerr != nil {
			return Principal{}, gerr
		}
	}

	return principal, nil
}
