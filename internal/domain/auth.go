package domain

import "time"

// TokenKind differentiates access vs refresh credentials.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

// Token is an issued, signed credential together with its claims.
type Token struct {
	ID        string
	Kind      TokenKind
	Value     string
	Principal Principal
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// TokenPair is what login and refresh hand back to the client.
// Rotated reports whether Refresh differs from the credential that was presented.
type TokenPair struct {
	Access  Token
	Refresh Token
	Rotated bool
}
