package session

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// TokenStore persists the bearer token, the login flag, and the serialized
// user profile across page loads. Implementations must treat unparsable
// stored values as a logged-out state, clear the stale entries, and never
// surface the parse failure to the caller.
type TokenStore interface {
	Save(ctx context.Context, token string, user *User) error
	Load(ctx context.Context) (StoredState, error)
	Clear(ctx context.Context) error
}

// AuthAPI is the contract of the external GiraffeSpace authentication
// service. The token it returns is an opaque three-segment string whose
// middle segment carries at least exp and iat (seconds since epoch).
type AuthAPI interface {
	Login(ctx context.Context, identifier, password string) (*LoginResponse, error)
	UpdateProfile(ctx context.Context, userID string, patch map[string]any) (*UpdateResponse, error)
}

// Config holds session options
type Config interface {
	GetAPIBaseURL() string
	GetCookieName() string
	GetLoginRoute() string
	GetHomeRoute() string
	GetCookieDuration() time.Duration
	GetExtendedCookieDuration() time.Duration
	GetCheckInterval() time.Duration
	GetMaxSessionAge() time.Duration
	GetPublicPrefixes() []string
}

// DefaultLogger returns the package's printf-style stdout logger.
func DefaultLogger() Logger {
	return defLogger{}
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] SESSION "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] SESSION "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] SESSION "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] SESSION "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
