package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is the claim set this subsystem consumes from a token. The
// token itself is an opaque signed string issued by the external
// authentication service; only the payload segment is decoded, the
// signature is never verified here.
type SessionClaims struct {
	jwt.RegisteredClaims
	UID  string `json:"uid,omitempty"`
	Role string `json:"role,omitempty"`
}

// UserID returns the user id carried by the token.
func (c *SessionClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.RegisteredClaims.Subject
}

// Expires returns the exp claim, or the zero time when absent.
func (c *SessionClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// Issued returns the iat claim, or the zero time when absent.
func (c *SessionClaims) Issued() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

var unverifiedParser = jwt.NewParser()

// DecodeClaims decodes the payload segment of a token without verifying its
// signature. It is the single decoder shared by the Monitor and the route
// guard middleware so both sides reach the same allow/deny decision for any
// given token. Wrong segment count, bad base64, or non-JSON payloads all
// return ErrTokenMalformed.
func DecodeClaims(token string) (*SessionClaims, error) {
	if token == "" {
		return nil, ErrTokenMalformed
	}

	claims := &SessionClaims{}
	if _, _, err := unverifiedParser.ParseUnverified(token, claims); err != nil {
		return nil, ErrTokenMalformed
	}

	return claims, nil
}
