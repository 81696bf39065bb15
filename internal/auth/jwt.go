package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTokenTTL is how long device access tokens are valid unless configured.
const DefaultTokenTTL = 24 * time.Hour

var (
	ErrInvalidAccessToken = errors.New("invalid access token")
	ErrAccessTokenExpired = errors.New("access token has expired")
)

// JWTConfig holds configuration for the JWT service.
type JWTConfig struct {
	// SigningKey is the HS256 secret.
	SigningKey string

	// Issuer and Audience are written into and required on every token.
	Issuer   string
	Audience string

	// TTL is the token lifetime (default 24h).
	TTL time.Duration

	// Now overrides the token clock (optional).
	Now func() time.Time
}

// JWTService signs and verifies device access tokens. The device id is the
// token subject.
type JWTService struct {
	key    []byte
	issuer string
	aud    string
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

func NewJWTService(cfg JWTConfig) *JWTService {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTokenTTL
	}
	return &JWTService{
		key:    []byte(cfg.SigningKey),
		issuer: cfg.Issuer,
		aud:    cfg.Audience,
		ttl:    cfg.TTL,
		now:    cfg.Now,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(cfg.Issuer),
			jwt.WithAudience(cfg.Audience),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
			jwt.WithTimeFunc(cfg.Now),
		),
	}
}

// TTL returns the lifetime of issued tokens.
func (s *JWTService) TTL() time.Duration {
	return s.ttl
}

// GenerateAccessToken signs a token for deviceID and returns it with its expiry.
func (s *JWTService) GenerateAccessToken(deviceID string) (string, time.Time, error) {
	now := s.now().Truncate(time.Second)
	exp := now.Add(s.ttl)

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    s.issuer,
		Subject:   deviceID,
		Audience:  jwt.ClaimStrings{s.aud},
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString(s.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing access token: %w", err)
	}
	return signed, exp, nil
}

// ValidateAccessToken verifies tokenString and returns its device id.
func (s *JWTService) ValidateAccessToken(tokenString string) (string, error) {
	var claims jwt.RegisteredClaims
	if _, err := s.parser.ParseWithClaims(tokenString, &claims, s.keyFunc); err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrAccessTokenExpired
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidAccessToken, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidAccessToken)
	}
	return claims.Subject, nil
}

func (s *JWTService) keyFunc(*jwt.Token) (any, error) {
	return s.key, nil
}
