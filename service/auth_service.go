package service

import (
	"errors"
	"fmt"
	"go-vidtube-api/config"
	"go-vidtube-api/logger"
	"go-vidtube-api/model"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// bcryptCost is the password hashing work factor.
const bcryptCost = 14

// ErrInvalidToken is returned for every token verification failure. The
// sub-cause (bad signature, malformed payload, expiry) is intentionally not
// exposed; callers only need valid vs invalid.
var ErrInvalidToken = errors.New("invalid or expired token")

// AuthService owns password hashing and token signing/verification. Secrets
// and TTLs are read from the loaded config at call time.
type AuthService struct{}

func NewAuthService() *AuthService {
	return &AuthService{}
}

func (s *AuthService) HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to hash password")
		return "", err
	}
	return string(bytes), nil
}

func (s *AuthService) CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// GenerateAccessToken issues a short-lived token carrying the public
// identity fields, signed with the access secret.
func (s *AuthService) GenerateAccessToken(user *model.User) (string, error) {
	cfg := config.AppConfig.JWT
	now := time.Now()

	claims := &model.AccessClaims{
		UserID:   user.ID.String(),
		Username: user.Username,
		FullName: user.FullName,
		Email:    user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.AccessTokenTTL)),
		},
	}

	return s.signToken(claims, cfg.AccessTokenSecret)
}

// GenerateRefreshToken issues a longer-lived token carrying only the user
// ID, signed with the refresh secret. The jti makes every issued token
// string distinct even within the same second.
func (s *AuthService) GenerateRefreshToken(user *model.User) (string, error) {
	cfg := config.AppConfig.JWT
	now := time.Now()

	claims := &model.RefreshClaims{
		UserID: user.ID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.RefreshTokenTTL)),
		},
	}

	return s.signToken(claims, cfg.RefreshTokenSecret)
}

func (s *AuthService) signToken(claims jwt.Claims, secret string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		logger.Log.WithError(err).Error("Failed to sign JWT")
		return "", fmt.Errorf("failed to sign token string: %w", err)
	}
	return tokenString, nil
}

func (s *AuthService) ValidateAccessToken(tokenString string) (*model.AccessClaims, error) {
	claims := &model.AccessClaims{}
	if err := s.parseToken(tokenString, claims, config.AppConfig.JWT.AccessTokenSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

func (s *AuthService) ValidateRefreshToken(tokenString string) (*model.RefreshClaims, error) {
	claims := &model.RefreshClaims{}
	if err := s.parseToken(tokenString, claims, config.AppConfig.JWT.RefreshTokenSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

func (s *AuthService) parseToken(tokenString string, claims jwt.Claims, secret string) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	if err != nil || !token.Valid {
		return ErrInvalidToken
	}
	return nil
}
