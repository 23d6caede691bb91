package models

import "time"

type TokenKind string

const (
	TokenAccess  TokenKind = "access"
	TokenRefresh TokenKind = "refresh"
)

// RevocationRecord blacklists one jti until the token would have expired
// anyway.
type RevocationRecord struct {
	JTI       string    `json:"jti"`
	Subject   string    `json:"subject"`
	ExpiresAt time.Time `json:"expires_at"`
	RevokedAt time.Time `json:"revoked_at"`
}
