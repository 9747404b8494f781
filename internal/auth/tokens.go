package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenConfig holds the signing material and expiry policy for both token kinds.
// The two secrets must be distinct (enforced by config validation).
type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// Default token lifetimes, applied when the config leaves them zero.
const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
)

// TokenService issues and verifies the two token kinds.
//
// Access tokens are short-lived and prove recent authentication; refresh
// tokens are longer-lived and are exchanged for new access tokens. Each kind
// is signed with its own secret so the two cannot be substituted for one
// another. Tokens are stateless: verification is signature plus expiry, with
// no storage lookup.
type TokenService struct {
	cfg TokenConfig
}

// NewTokenService creates a token service with the given signing configuration.
func NewTokenService(cfg TokenConfig) *TokenService {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = defaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = defaultRefreshTTL
	}
	return &TokenService{cfg: cfg}
}

// RefreshTTL returns the configured refresh token lifetime. The HTTP layer
// uses it to align cookie expiry with token expiry.
func (s *TokenService) RefreshTTL() time.Duration {
	return s.cfg.RefreshTTL
}

// IssueAccessToken creates a signed access token bound to the given principal id.
func (s *TokenService) IssueAccessToken(userID string) (string, error) {
	return issueToken(userID, s.cfg.AccessSecret, s.cfg.AccessTTL)
}

// IssueRefreshToken creates a signed refresh token bound to the given principal id.
func (s *TokenService) IssueRefreshToken(userID string) (string, error) {
	return issueToken(userID, s.cfg.RefreshSecret, s.cfg.RefreshTTL)
}

// VerifyAccessToken validates an access token and returns the embedded principal id.
// Fails with ErrTokenExpired when the expiry has elapsed, otherwise
// ErrTokenInvalid for bad signatures and malformed tokens.
func (s *TokenService) VerifyAccessToken(raw string) (string, error) {
	return verifyToken(raw, s.cfg.AccessSecret)
}

// VerifyRefreshToken validates a refresh token and returns the embedded principal id.
func (s *TokenService) VerifyRefreshToken(raw string) (string, error) {
	return verifyToken(raw, s.cfg.RefreshSecret)
}

// issueToken signs a token carrying the principal id as subject.
func issueToken(userID, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        uuid.NewString(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// verifyToken validates signature, algorithm, and expiry, returning the subject.
func verifyToken(raw, secret string) (string, error) {
	token, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("%w: %w", ErrTokenExpired, err)
		}
		return "", fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid {
		return "", ErrTokenInvalid
	}

	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}

	return claims.Subject, nil
}
