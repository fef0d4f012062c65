package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrWrongTokenUse = errors.New("token used for wrong purpose")
)

const (
	TokenUseAccess  = "access"
	TokenUseRefresh = "refresh"
	TokenUseReset   = "reset"
)

const resetTokenExpiry = time.Hour

// Claims are the application claims embedded in issued tokens. Degraded
// marks sessions issued without a resolved profile; such sessions carry a
// placeholder role and are re-checked at the middleware layer.
type Claims struct {
	UserID   uuid.UUID `json:"uid"`
	Email    string    `json:"email"`
	Role     string    `json:"role"`
	Degraded bool      `json:"degraded,omitempty"`
	TokenUse string    `json:"token_use"`
	jwt.RegisteredClaims
}

// JWTService issues and verifies access/refresh token pairs.
type JWTService interface {
	GenerateAccessToken(userID uuid.UUID, email, role string, degraded bool) (string, error)
	GenerateRefreshToken(userID uuid.UUID, email string) (string, error)
	GenerateResetToken(userID uuid.UUID, email string) (string, error)
	ValidateToken(token string) (*Claims, error)
	ValidateRefreshToken(token string) (*Claims, error)
	ValidateResetToken(token string) (*Claims, error)
}

// Config holds signing keys and lifetimes.
type Config struct {
	Secret        string
	RefreshSecret string
	Expiry        time.Duration
	RefreshExpiry time.Duration
	Issuer        string
}

type jwtService struct {
	cfg Config
}

func NewJWTService(cfg Config) JWTService {
	if cfg.Expiry <= 0 {
		cfg.Expiry = 24 * time.Hour
	}
	if cfg.RefreshExpiry <= 0 {
		cfg.RefreshExpiry = 7 * 24 * time.Hour
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "schedule-api"
	}
	return &jwtService{cfg: cfg}
}

func (s *jwtService) GenerateAccessToken(userID uuid.UUID, email, role string, degraded bool) (string, error) {
	claims := &Claims{
		UserID:   userID,
		Email:    email,
		Role:     role,
		Degraded: degraded,
		TokenUse: TokenUseAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.cfg.Expiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

func (s *jwtService) GenerateRefreshToken(userID uuid.UUID, email string) (string, error) {
	claims := &Claims{
		UserID:   userID,
		Email:    email,
		TokenUse: TokenUseRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.cfg.RefreshExpiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.refreshKey()))
	if err != nil {
		return "", fmt.Errorf("failed to sign refresh token: %w", err)
	}
	return signed, nil
}

// GenerateResetToken issues a short-lived single-purpose token embedded
// in password reset links. Reset tokens are stateless: possession of a
// valid one is the proof of the email round trip.
func (s *jwtService) GenerateResetToken(userID uuid.UUID, email string) (string, error) {
	claims := &Claims{
		UserID:   userID,
		Email:    email,
		TokenUse: TokenUseReset,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(resetTokenExpiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign reset token: %w", err)
	}
	return signed, nil
}

func (s *jwtService) ValidateToken(token string) (*Claims, error) {
	claims, err := s.parse(token, s.cfg.Secret)
	if err != nil {
		return nil, err
	}
	if claims.TokenUse != TokenUseAccess {
		return nil, ErrWrongTokenUse
	}
	return claims, nil
}

func (s *jwtService) ValidateRefreshToken(token string) (*Claims, error) {
	claims, err := s.parse(token, s.refreshKey())
	if err != nil {
		return nil, err
	}
	if claims.TokenUse != TokenUseRefresh {
		return nil, ErrWrongTokenUse
	}
	return claims, nil
}

func (s *jwtService) ValidateResetToken(token string) (*Claims, error) {
	claims, err := s.parse(token, s.cfg.Secret)
	if err != nil {
		return nil, err
	}
	if claims.TokenUse != TokenUseReset {
		return nil, ErrWrongTokenUse
	}
	return claims, nil
}

func (s *jwtService) parse(token, secret string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *jwtService) refreshKey() string {
	if s.cfg.RefreshSecret != "" {
		return s.cfg.RefreshSecret
	}
	return s.cfg.Secret
}
