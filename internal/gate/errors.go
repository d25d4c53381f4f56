package gate

import (
	"fmt"
	"strings"
	"time"
)

type ErrorKind string

const (
	KindMissingToken           ErrorKind = "missing_token"
	KindInvalidToken           ErrorKind = "invalid_token"
	KindTokenExpired           ErrorKind = "token_expired"
	KindPrincipalNotFound      ErrorKind = "principal_not_found"
	KindAccountRestricted      ErrorKind = "account_restricted"
	KindAccountLocked          ErrorKind = "account_locked"
	KindInsufficientRole       ErrorKind = "insufficient_role"
	KindInsufficientPermission ErrorKind = "insufficient_permission"
	KindRefreshTokenReused     ErrorKind = "refresh_token_reused"
)

// Error is a terminal gate decision. Message is product copy shown to
// the client verbatim; the structured fields let callers render or
// log precisely.
type Error struct {
	Kind     ErrorKind
	Message  string
	Status   RestrictionKind
	Reason   string
	Expiry   *time.Time
	Until    *time.Time
	Allowed  []Role
	Required []Permission
}

func (e *Error) Error() string {
	return e.Message
}

// HTTPStatus maps the decision to its response class: identity
// failures are 401, authorization failures 403.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindMissingToken, KindInvalidToken, KindTokenExpired, KindPrincipalNotFound, KindRefreshTokenReused:
		return 401
	default:
		return 403
	}
}

func ErrMissingToken() *Error {
	return &Error{Kind: KindMissingToken, Message: "authentication required"}
}

func ErrInvalidToken() *Error {
	return &Error{Kind: KindInvalidToken, Message: "invalid token"}
}

func ErrTokenExpired() *Error {
	return &Error{Kind: KindTokenExpired, Message: "token expired"}
}

func ErrPrincipalNotFound() *Error {
	return &Error{Kind: KindPrincipalNotFound, Message: "account no longer exists"}
}

// ErrAccountRestricted renders the exact ban/suspension copy:
// "banned permanently: <reason>" or "banned until <date>: <reason>".
func ErrAccountRestricted(kind RestrictionKind, reason string, expiry *time.Time) *Error {
	var msg string
	if expiry == nil {
		msg = fmt.Sprintf("%s permanently: %s", kind, reason)
	} else {
		msg = fmt.Sprintf("%s until %s: %s", kind, expiry.UTC().Format(time.RFC1123), reason)
	}
	return &Error{
		Kind:    KindAccountRestricted,
		Message: msg,
		Status:  kind,
		Reason:  reason,
		Expiry:  expiry,
	}
}

func ErrAccountLocked(until time.Time) *Error {
	return &Error{
		Kind:    KindAccountLocked,
		Message: fmt.Sprintf("account locked until %s", until.UTC().Format(time.RFC1123)),
		Until:   &until,
	}
}

func ErrInsufficientRole(allowed []Role) *Error {
	names := make([]string, len(allowed))
	for i, r := range allowed {
		names[i] = string(r)
	}
	return &Error{
		Kind:    KindInsufficientRole,
		Message: fmt.Sprintf("requires one of roles: %s", strings.Join(names, ", ")),
		Allowed: allowed,
	}
}

func ErrInsufficientPermission(required []Permission) *Error {
	names := make([]string, len(required))
	for i, p := range required {
		names[i] = string(p)
	}
	return &Error{
		Kind:     KindInsufficientPermission,
		Message:  fmt.Sprintf("requires one of permissions: %s", strings.Join(names, ", ")),
		Required: required,
	}
}

func ErrRefreshTokenReused() *Error {
	return &Error{Kind: KindRefreshTokenReused, Message: "refresh token already used"}
}
