package session

import (
	"time"

	"github.com/goliatone/go-router"
)

// CookieAuthToken is the cookie that mirrors the stored token so the route
// guard can read it on every request.
const CookieAuthToken = "auth-token"

// MarkerCookieMaxAge bounds how long an expiry marker survives; it only has
// to outlive the redirect it decorates.
const MarkerCookieMaxAge = 60 * time.Second

// SetAuthCookie writes the token mirror cookie with path "/" and a lax
// same-site policy, readable by the edge middleware on every request.
func SetAuthCookie(c router.Context, token string, duration time.Duration) {
	c.Cookie(&router.Cookie{
		Name:     CookieAuthToken,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(duration),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

// ClearAuthCookie removes the token mirror cookie.
func ClearAuthCookie(c router.Context) {
	expireCookie(c, CookieAuthToken)
}

// SetMarkerCookie tags the response with the expiry cause so the client can
// show the matching notice after the redirect.
func SetMarkerCookie(c router.Context, cause ExpiryCause) {
	if cause == CauseNone {
		return
	}

	c.Cookie(&router.Cookie{
		Name:     string(cause),
		Value:    "true",
		Path:     "/",
		Expires:  time.Now().Add(MarkerCookieMaxAge),
		HTTPOnly: false,
		Secure:   true,
		SameSite: "Lax",
	})
}

// ConsumeMarker reads the expiry marker cookies, clears them, and returns
// the cause they carried. The notice is therefore shown exactly once.
func ConsumeMarker(c router.Context) ExpiryCause {
	if c.Cookies(string(CauseMaxAge)) != "" {
		clearMarkerCookies(c)
		return CauseMaxAge
	}

	if c.Cookies(string(CauseExpired)) != "" {
		clearMarkerCookies(c)
		return CauseExpired
	}

	return CauseNone
}

func clearMarkerCookies(c router.Context) {
	expireCookie(c, string(CauseExpired))
	expireCookie(c, string(CauseMaxAge))
}

func expireCookie(c router.Context, name string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}
