// Package routeguard gates page routes on the presence of a live auth
// cookie. Requests without a decodable, unexpired token are bounced to the
// login route with the original path preserved in a redirect query
// parameter, and a short lived marker cookie tells the login page why.
package routeguard

import (
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-router"

	session "github.com/giraffespace/go-session"
)

type Config struct {
	Filter         func(router.Context) bool
	SuccessHandler router.HandlerFunc
	ErrorHandler   router.ErrorHandler

	// CookieName is the cookie holding the auth token.
	CookieName string
	// LoginRoute is where unauthenticated requests get sent.
	LoginRoute string
	// RedirectParam carries the originally requested path on the login URL.
	RedirectParam string
	// PublicPrefixes are the paths that never require a session. "/" matches
	// the home route only, every other entry also matches its sub-paths.
	PublicPrefixes []string
	// MaxSessionAge is the rolling window measured from the token's iat.
	MaxSessionAge time.Duration
	// ContextKey is where decoded claims are stored for downstream handlers.
	ContextKey string

	Clock  func() time.Time
	Logger session.Logger
}

// New builds the guard middleware. Zero-value config fields fall back to
// the package defaults, see GetDefaultConfig.
func New(config ...Config) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		cfg := GetDefaultConfig(config...)
		return func(ctx router.Context) error {
			if cfg.Filter != nil && cfg.Filter(ctx) {
				return ctx.Next()
			}

			path := ctx.Path()
			if isPublicPath(path, cfg.PublicPrefixes) {
				return ctx.Next()
			}

			token := ctx.Cookies(cfg.CookieName)
			if token == "" {
				session.SetMarkerCookie(ctx, session.CauseExpired)
				return cfg.ErrorHandler(ctx, session.ErrNotAuthenticated)
			}

			claims, err := session.DecodeClaims(token)
			if err != nil {
				// A token we cannot read is handled as an expired one.
				session.SetMarkerCookie(ctx, session.CauseExpired)
				return cfg.ErrorHandler(ctx, err)
			}

			now := cfg.Clock()

			if session.Expired(claims, now) {
				session.SetMarkerCookie(ctx, session.CauseExpired)
				cfg.Logger.Info("route guard rejected token on %s: %s", path, session.CauseExpired)
				return cfg.ErrorHandler(ctx, session.ErrTokenExpired)
			}

			if session.OverMaxAge(claims, now, cfg.MaxSessionAge) {
				session.SetMarkerCookie(ctx, session.CauseMaxAge)
				cfg.Logger.Info("route guard rejected token on %s: %s", path, session.CauseMaxAge)
				return cfg.ErrorHandler(ctx, session.ErrTokenExpired)
			}

			ctx.Locals(cfg.ContextKey, claims)

			return cfg.SuccessHandler(ctx)
		}
	}
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.CookieName == "" {
		cfg.CookieName = session.CookieAuthToken
	}

	if cfg.LoginRoute == "" {
		cfg.LoginRoute = "/login"
	}

	if cfg.RedirectParam == "" {
		cfg.RedirectParam = "redirect"
	}

	if cfg.PublicPrefixes == nil {
		cfg.PublicPrefixes = session.DefaultPublicPrefixes
	}

	if cfg.MaxSessionAge <= 0 {
		cfg.MaxSessionAge = session.DefaultMaxSessionAge
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = "session_claims"
	}

	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	if cfg.Logger == nil {
		cfg.Logger = session.DefaultLogger()
	}

	if cfg.SuccessHandler == nil {
		cfg.SuccessHandler = func(ctx router.Context) error {
			return ctx.Next()
		}
	}

	if cfg.ErrorHandler == nil {
		loginRoute := cfg.LoginRoute
		redirectParam := cfg.RedirectParam
		cfg.ErrorHandler = func(c router.Context, err error) error {
			target := loginRoute + "?" + redirectParam + "=" + url.QueryEscape(c.Path())
			status := router.StatusSeeOther
			if c.Method() == "GET" {
				status = router.StatusFound
			}
			return c.Redirect(target, status)
		}
	}

	return cfg
}

// isPublicPath reports whether path is covered by the allow list. The bare
// "/" entry matches only the home route so that every other page stays
// guarded by default.
func isPublicPath(path string, prefixes []string) bool {
	if path == "" {
		path = "/"
	}
	for _, p := range prefixes {
		if p == "" {
			continue
		}
		if p == "/" {
			if path == "/" {
				return true
			}
			continue
		}
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}
