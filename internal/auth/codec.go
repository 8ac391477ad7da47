package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/spec-kit/rserve-session/internal/domain"
)

// Claims describes the JWT payload shared by access and refresh tokens.
// The restaurant id travels in the registered "sub" claim.
type Claims struct {
	Role domain.Role      `json:"role,omitempty"`
	Kind domain.TokenKind `json:"typ,omitempty"`
	jwt.RegisteredClaims
}

// Principal returns the identity carried by the claims.
func (c *Claims) Principal() domain.Principal {
	return domain.Principal{RestaurantID: c.Subject, Role: c.Role}
}

// Codec signs and parses HS256 tokens with a single process-wide key.
type Codec struct {
	key []byte
	now func() time.Time
}

// NewCodec builds a codec. now may be nil, in which case time.Now is used.
func NewCodec(secret []byte, now func() time.Time) (*Codec, error) {
	if len(secret) == 0 {
		return nil, errors.New("auth: signing key is empty")
	}
	if now == nil {
		now = time.Now
	}
	return &Codec{key: append([]byte(nil), secret...), now: now}, nil
}

// Encode stamps iat, exp (now+ttl) and a jti onto claims and signs them.
func (c *Codec) Encode(claims Claims, ttl time.Duration) (string, error) {
	return c.sign(&claims, ttl)
}

// sign fills the registered time claims in place so callers can read back
// exactly what was signed (NumericDate truncates to whole seconds).
func (c *Codec) sign(claims *Claims, ttl time.Duration) (string, error) {
	now := c.now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.key)
}

// Decode verifies the signature and expiry of tokenStr and returns its claims.
// Failures are ErrExpired, ErrMalformed or ErrInvalid.
func (c *Codec) Decode(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
		return c.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	)
	switch {
	case err == nil:
		return claims, nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, wrap(KindExpired, err)
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return nil, wrap(KindInvalid, err)
	default:
		return nil, wrap(KindMalformed, err)
	}
}
