package session

import "time"

// DefaultMaxSessionAge is the rolling window after which a session is ended
// regardless of the server-issued exp claim.
const DefaultMaxSessionAge = 24 * time.Hour

// DefaultCheckInterval is how often the Monitor re-evaluates a logged-in
// session.
const DefaultCheckInterval = 5 * time.Minute

// ExpiryCause identifies which predicate ended a session. The non-empty
// values double as the marker cookie names the route guard sets after a
// redirect, so the client can show the matching notice.
type ExpiryCause string

const (
	CauseNone    ExpiryCause = ""
	CauseExpired ExpiryCause = "token-expired"
	CauseMaxAge  ExpiryCause = "token-expired-24h"
)

// Notice returns the user-facing message for the cause.
func (c ExpiryCause) Notice() string {
	switch c {
	case CauseExpired:
		return "Your session has expired. Please log in again."
	case CauseMaxAge:
		return "Your session has expired after 24 hours. Please log in again."
	default:
		return ""
	}
}

// Expired reports whether the claims fail the hard expiry check at the
// given instant. Nil claims or a missing exp claim count as expired.
func Expired(claims *SessionClaims, now time.Time) bool {
	if claims == nil {
		return true
	}

	exp := claims.Expires()
	if exp.IsZero() {
		return true
	}

	return !now.Before(exp)
}

// OverMaxAge reports whether the claims fail the rolling maximum-age check
// at the given instant, independent of the server-issued exp. Nil claims or
// a missing iat claim count as over age.
func OverMaxAge(claims *SessionClaims, now time.Time, window time.Duration) bool {
	if claims == nil {
		return true
	}

	if window <= 0 {
		window = DefaultMaxSessionAge
	}

	iat := claims.Issued()
	if iat.IsZero() {
		return true
	}

	return !now.Before(iat.Add(window))
}

// Evaluate runs both predicates against a raw token and returns the first
// cause that fires, hard expiry before the rolling window. A token that
// cannot be decoded is reported as hard-expired.
func Evaluate(token string, now time.Time, window time.Duration) ExpiryCause {
	claims, err := DecodeClaims(token)
	if err != nil {
		return CauseExpired
	}

	if Expired(claims, now) {
		return CauseExpired
	}

	if OverMaxAge(claims, now, window) {
		return CauseMaxAge
	}

	return CauseNone
}
