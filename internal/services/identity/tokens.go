package identity

import (
	"fmt"
	"time"

	"github.com/benvon/smart-tasks/internal/models"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// TokenIssuer signs and verifies HS256 access tokens
type TokenIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer creates a token issuer
func NewTokenIssuer(secret, issuer string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue returns a signed token for user and its expiry
func (ti *TokenIssuer) Issue(user *models.User) (string, time.Time, error) {
	now := ti.now().UTC().Truncate(time.Second)
	expiresAt := now.Add(ti.ttl)

	token, err := jwt.NewBuilder().
		Issuer(ti.issuer).
		Subject(user.ID.String()).
		IssuedAt(now).
		Expiration(expiresAt).
		Claim("email", user.Email).
		Build()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to build token: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, ti.secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return string(signed), expiresAt, nil
}

// Parse verifies the signature, issuer and expiry of tokenString and extracts its claims
func (ti *TokenIssuer) Parse(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.Parse([]byte(tokenString),
		jwt.WithKey(jwa.HS256, ti.secret),
		jwt.WithValidate(true),
		jwt.WithIssuer(ti.issuer),
		jwt.WithClock(jwt.ClockFunc(ti.now)),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims := &models.JWTClaims{
		Sub: token.Subject(),
		Iss: token.Issuer(),
		Exp: token.Expiration().Unix(),
		Iat: token.IssuedAt().Unix(),
	}
	if email, ok := token.Get("email"); ok {
		if s, ok := email.(string); ok {
			claims.Email = s
		}
	}
	if claims.Sub == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims, nil
}
