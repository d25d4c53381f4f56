package gate

import (
	"sort"
	"time"
)

type Role string

const (
	RoleUser       Role = "user"
	RoleModerator  Role = "moderator"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superadmin"
)

type Permission string

const (
	PermUsers          Permission = "users"
	PermMedia          Permission = "media"
	PermVideos         Permission = "videos"
	PermPosts          Permission = "posts"
	PermAnalytics      Permission = "analytics"
	PermSettings       Permission = "settings"
	PermSocialAccounts Permission = "socialaccounts"
)

type PermissionSet map[Permission]struct{}

func NewPermissionSet(perms ...Permission) PermissionSet {
	set := make(PermissionSet, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}

func PermissionSetFromStrings(perms []string) PermissionSet {
	set := make(PermissionSet, len(perms))
	for _, p := range perms {
		set[Permission(p)] = struct{}{}
	}
	return set
}

// Any reports whether the set intersects required. Empty required is
// vacuously satisfied.
func (s PermissionSet) Any(required ...Permission) bool {
	if len(required) == 0 {
		return true
	}
	for _, p := range required {
		if _, ok := s[p]; ok {
			return true
		}
	}
	return false
}

func (s PermissionSet) Strings() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, string(p))
	}
	sort.Strings(out)
	return out
}

type StateKind string

const (
	StateActive     StateKind = "active"
	StateRestricted StateKind = "restricted"
	StateLocked     StateKind = "locked"
)

// RestrictionKind distinguishes the two product labels for the same
// mechanical restriction.
type RestrictionKind string

const (
	RestrictionBanned    RestrictionKind = "banned"
	RestrictionSuspended RestrictionKind = "suspended"
)

// AccountState is the lifecycle state of a principal as stored.
// Restricted carries an optional expiry; a nil Expiry is permanent.
type AccountState struct {
	Kind        StateKind
	Restriction RestrictionKind
	Reason      string
	Expiry      *time.Time
	Until       time.Time // locked only
}

func Active() AccountState {
	return AccountState{Kind: StateActive}
}

func Restricted(kind RestrictionKind, reason string, expiry *time.Time) AccountState {
	return AccountState{Kind: StateRestricted, Restriction: kind, Reason: reason, Expiry: expiry}
}

func Locked(until time.Time) AccountState {
	return AccountState{Kind: StateLocked, Until: until}
}

// Evaluate resolves the effective state at now. It is the single
// transition function shared by the login path and the per-request
// gate. reverted is true when a restriction has expired and the
// stored record should be flipped back to active; the write itself is
// the caller's responsibility and must be idempotent.
func Evaluate(state AccountState, now time.Time) (effective AccountState, reverted bool) {
	switch state.Kind {
	case StateLocked:
		if now.Before(state.Until) {
			return state, false
		}
		return Active(), false
	case StateRestricted:
		if state.Expiry != nil && !now.Before(*state.Expiry) {
			return Active(), true
		}
		return state, false
	default:
		return Active(), false
	}
}
