package gate

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clipcast/api/internal/security"
)

const testSecret = "gate-test-secret"

type fakeStore struct {
	principals map[string]Principal
	reverted   []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{principals: make(map[string]Principal)}
}

func (s *fakeStore) put(p Principal) {
	s.principals[string(p.Kind)+":"+p.ID] = p
}

func (s *fakeStore) FindPrincipal(_ context.Context, kind PrincipalKind, id string) (Principal, error) {
	p, ok := s.principals[string(kind)+":"+id]
	if !ok {
		return Principal{}, ErrNotFound
	}
	return p, nil
}

func (s *fakeStore) ClearExpiredRestriction(_ context.Context, kind PrincipalKind, id string) error {
	key := string(kind) + ":" + id
	s.reverted = append(s.reverted, key)
	if p, ok := s.principals[key]; ok {
		p.State = Active()
		s.principals[key] = p
	}
	return nil
}

func signToken(t *testing.T, principalID string, kind PrincipalKind, role Role, ttl time.Duration) string {
	t.Helper()
	token, err := security.GenerateAccessToken(testSecret, principalID, string(kind), string(role), "jti-1", ttl)
	require.NoError(t, err)
	return token
}

func newTestGate(store PrincipalStore, now time.Time, opts ...Option) *Gate {
	opts = append([]Option{WithClock(func() time.Time { return now })}, opts...)
	return New(store, testSecret, zerolog.Nop(), opts...)
}

func TestAuthenticate(t *testing.T) {
	now := time.Now()
	store := newFakeStore()
	store.put(Principal{ID: "u1", Kind: PrincipalUser, Email: "a@b.c", State: Active()})
	g := newTestGate(store, now)

	t.Run("missing token", func(t *testing.T) {
		_, gerr := g.Authenticate(context.Background(), "")
		require.NotNil(t, gerr)
		assert.Equal(t, KindMissingToken, gerr.Kind)
		assert.Equal(t, http.StatusUnauthorized, gerr.HTTPStatus())
	})

	t.Run("garbage token", func(t *testing.T) {
		_, gerr := g.Authenticate(context.Background(), "not.a.jwt")
		require.NotNil(t, gerr)
		assert.Equal(t, KindInvalidToken, gerr.Kind)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token, err := security.GenerateAccessToken("other-secret", "u1", "user", "user", "jti", time.Minute)
		require.NoError(t, err)
		_, gerr := g.Authenticate(context.Background(), token)
		require.NotNil(t, gerr)
		assert.Equal(t, KindInvalidToken, gerr.Kind)
	})

	t.Run("expired token", func(t *testing.T) {
		token := signToken(t, "u1", PrincipalUser, RoleUser, -time.Minute)
		_, gerr := g.Authenticate(context.Background(), token)
		require.NotNil(t, gerr)
		assert.Equal(t, KindTokenExpired, gerr.Kind)
		assert.Equal(t, http.StatusUnauthorized, gerr.HTTPStatus())
	})

	t.Run("unknown principal kind claim", func(t *testing.T) {
		token, err := security.GenerateAccessToken(testSecret, "u1", "robot", "user", "jti", time.Minute)
		require.NoError(t, err)
		_, gerr := g.Authenticate(context.Background(), token)
		require.NotNil(t, gerr)
		assert.Equal(t, KindInvalidToken, gerr.Kind)
	})

	t.Run("deleted principal", func(t *testing.T) {
		token := signToken(t, "ghost", PrincipalUser, RoleUser, time.Minute)
		_, gerr := g.Authenticate(context.Background(), token)
		require.NotNil(t, gerr)
		assert.Equal(t, KindPrincipalNotFound, gerr.Kind)
	})

	t.Run("valid token resolves stored principal", func(t *testing.T) {
		token := signToken(t, "u1", PrincipalUser, RoleUser, time.Minute)
		principal, gerr := g.Authenticate(context.Background(), token)
		require.Nil(t, gerr)
		assert.Equal(t, "u1", principal.ID)
		assert.Equal(t, "a@b.c", principal.Email)
	})
}

func TestAuthorizeStatus(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("active passes", func(t *testing.T) {
		store := newFakeStore()
		g := newTestGate(store, now)
		p, gerr := g.AuthorizeStatus(context.Background(), Principal{ID: "u1", Kind: PrincipalUser, State: Active()})
		require.Nil(t, gerr)
		assert.Equal(t, StateActive, p.State.Kind)
		assert.Empty(t, store.reverted)
	})

	t.Run("permanent ban carries exact copy", func(t *testing.T) {
		g := newTestGate(newFakeStore(), now)
		state := Restricted(RestrictionBanned, "spam", nil)
		_, gerr := g.AuthorizeStatus(context.Background(), Principal{ID: "u1", Kind: PrincipalUser, State: state})
		require.NotNil(t, gerr)
		assert.Equal(t, KindAccountRestricted, gerr.Kind)
		assert.Equal(t, "banned permanently: spam", gerr.Message)
		assert.Equal(t, http.StatusForbidden, gerr.HTTPStatus())
		assert.Equal(t, RestrictionBanned, gerr.Status)
		assert.Equal(t, "spam", gerr.Reason)
		assert.Nil(t, gerr.Expiry)
	})

	t.Run("timed suspension names the deadline", func(t *testing.T) {
		g := newTestGate(newFakeStore(), now)
		expiry := now.Add(48 * time.Hour)
		state := Restricted(RestrictionSuspended, "tos violation", &expiry)
		_, gerr := g.AuthorizeStatus(context.Background(), Principal{ID: "u1", Kind: PrincipalUser, State: state})
		require.NotNil(t, gerr)
		assert.Equal(t, "suspended until "+expiry.UTC().Format(time.RFC1123)+": tos violation", gerr.Message)
		require.NotNil(t, gerr.Expiry)
		assert.True(t, gerr.Expiry.Equal(expiry))
	})

	t.Run("expired restriction reverts and passes", func(t *testing.T) {
		store := newFakeStore()
		g := newTestGate(store, now)
		expiry := now.Add(-time.Hour)
		state := Restricted(RestrictionBanned, "spam", &expiry)
		p, gerr := g.AuthorizeStatus(context.Background(), Principal{ID: "u1", Kind: PrincipalUser, State: state})
		require.Nil(t, gerr)
		assert.Equal(t, StateActive, p.State.Kind)
		assert.Equal(t, []string{"user:u1"}, store.reverted)
	})

	t.Run("locked admin is rejected before status", func(t *testing.T) {
		g := newTestGate(newFakeStore(), now)
		until := now.Add(10 * time.Minute)
		_, gerr := g.AuthorizeStatus(context.Background(), Principal{ID: "a1", Kind: PrincipalAdmin, State: Locked(until)})
		require.NotNil(t, gerr)
		assert.Equal(t, KindAccountLocked, gerr.Kind)
		assert.Equal(t, http.StatusForbidden, gerr.HTTPStatus())
		require.NotNil(t, gerr.Until)
		assert.True(t, gerr.Until.Equal(until))
	})

	t.Run("elapsed lock passes", func(t *testing.T) {
		store := newFakeStore()
		g := newTestGate(store, now)
		p, gerr := g.AuthorizeStatus(context.Background(), Principal{ID: "a1", Kind: PrincipalAdmin, State: Locked(now.Add(-time.Minute))})
		require.Nil(t, gerr)
		assert.Equal(t, StateActive, p.State.Kind)
		assert.Empty(t, store.reverted, "lock expiry is not a restriction revert")
	})
}

func TestRequireRole(t *testing.T) {
	check := RequireRole(RoleAdmin, RoleSuperAdmin)

	assert.Nil(t, check(Principal{Role: RoleAdmin}))
	assert.Nil(t, check(Principal{Role: RoleSuperAdmin}))

	gerr := check(Principal{Role: RoleModerator})
	require.NotNil(t, gerr)
	assert.Equal(t, KindInsufficientRole, gerr.Kind)
	assert.Equal(t, "requires one of roles: admin, superadmin", gerr.Message)
	assert.Equal(t, http.StatusForbidden, gerr.HTTPStatus())
}

func TestRequirePermission(t *testing.T) {
	check := RequirePermission(PermMedia, PermVideos)

	t.Run("any-of accepts partial hold", func(t *testing.T) {
		p := Principal{Role: RoleModerator, Permissions: NewPermissionSet(PermMedia)}
		assert.Nil(t, check(p))
	})

	t.Run("no overlap rejected", func(t *testing.T) {
		p := Principal{Role: RoleAdmin, Permissions: NewPermissionSet(PermUsers)}
		gerr := check(p)
		require.NotNil(t, gerr)
		assert.Equal(t, KindInsufficientPermission, gerr.Kind)
		assert.Equal(t, "requires one of permissions: media, videos", gerr.Message)
		assert.Equal(t, []Permission{PermMedia, PermVideos}, gerr.Required)
	})

	t.Run("superadmin bypasses explicit grants", func(t *testing.T) {
		p := Principal{Role: RoleSuperAdmin, Permissions: NewPermissionSet()}
		assert.Nil(t, check(p))
	})
}

func TestAdmitPipeline(t *testing.T) {
	now := time.Now()
	store := newFakeStore()
	store.put(Principal{
		ID:          "a1",
		Kind:        PrincipalAdmin,
		Role:        RoleModerator,
		Permissions: NewPermissionSet(PermMedia),
		State:       Active(),
	})
	g := newTestGate(store, now)

	t.Run("passes all checks", func(t *testing.T) {
		token := signToken(t, "a1", PrincipalAdmin, RoleModerator, time.Minute)
		p, gerr := g.Admit(context.Background(), token,
			RequireRole(RoleModerator, RoleAdmin, RoleSuperAdmin),
			RequirePermission(PermMedia))
		require.Nil(t, gerr)
		assert.Equal(t, "a1", p.ID)
	})

	t.Run("checks run in order", func(t *testing.T) {
		token := signToken(t, "a1", PrincipalAdmin, RoleModerator, time.Minute)
		_, gerr := g.Admit(context.Background(), token,
			RequireRole(RoleSuperAdmin),
			RequirePermission(PermSettings))
		require.NotNil(t, gerr)
		assert.Equal(t, KindInsufficientRole, gerr.Kind, "role check fails before permission check runs")
	})

	t.Run("restricted principal never reaches role checks", func(t *testing.T) {
		banned := newFakeStore()
		banned.put(Principal{
			ID:    "a2",
			Kind:  PrincipalAdmin,
			Role:  RoleSuperAdmin,
			State: Restricted(RestrictionBanned, "abuse", nil),
		})
		bg := newTestGate(banned, now)

		token := signToken(t, "a2", PrincipalAdmin, RoleSuperAdmin, time.Minute)
		_, gerr := bg.Admit(context.Background(), token, RequireRole(RoleSuperAdmin))
		require.NotNil(t, gerr)
		assert.Equal(t, KindAccountRestricted, gerr.Kind)
	})
}
