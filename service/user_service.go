package service

import (
	"context"
	"database/sql"
	"errors"
	"go-vidtube-api/logger"
	"go-vidtube-api/model"
	"go-vidtube-api/repository"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

var (
	ErrMissingFields       = errors.New("all fields are required")
	ErrAvatarRequired      = errors.New("avatar file is required")
	ErrCoverImageRequired  = errors.New("cover image file is required")
	ErrUserAlreadyExists   = errors.New("user already exists")
	ErrUserNotFound        = errors.New("user does not exist")
	ErrInvalidCredentials  = errors.New("invalid user credentials")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrRefreshTokenReused  = errors.New("refresh token is expired or used")
)

// TokenPair is the access/refresh pair handed to the client on login and on
// every refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// UserService owns the session lifecycle: registration, login, refresh
// rotation, logout and password changes. It enforces the one-active-refresh-
// token-per-user invariant.
type UserService struct {
	repo repository.IUserRepository
	auth *AuthService
}

func NewUserService(repo repository.IUserRepository, auth *AuthService) *UserService {
	return &UserService{repo: repo, auth: auth}
}

// Register creates a new user. The avatar URL must already be resolved by
// the media store: a failed upload aborts registration upstream, so no
// record is ever created without an avatar.
func (s *UserService) Register(ctx context.Context, req model.RegisterRequest, avatarURL, coverImageURL string) (*model.User, error) {
	fullName := strings.TrimSpace(req.FullName)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	username := strings.ToLower(strings.TrimSpace(req.Username))

	if fullName == "" || email == "" || username == "" || strings.TrimSpace(req.Password) == "" {
		return nil, ErrMissingFields
	}
	if avatarURL == "" {
		return nil, ErrAvatarRequired
	}

	exists, err := s.repo.ExistsByUsernameOrEmail(ctx, username, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrUserAlreadyExists
	}

	hashedPassword, err := s.auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username:   username,
		Email:      email,
		FullName:   fullName,
		Avatar:     avatarURL,
		CoverImage: coverImageURL,
		Password:   hashedPassword,
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		// The unique indexes are the real uniqueness guarantee; the
		// existence pre-check above can race with a concurrent register.
		if isUniqueViolation(err) {
			return nil, ErrUserAlreadyExists
		}
		return nil, err
	}

	logger.Log.WithFields(logrus.Fields{
		"user_id":  user.ID,
		"username": user.Username,
	}).Info("User registered successfully")

	return user, nil
}

// Login verifies the credentials and issues a fresh token pair. The new
// refresh token is persisted onto the user row before the pair is returned,
// which is the rotation point: any previously issued refresh token stops
// matching the stored value.
func (s *UserService) Login(ctx context.Context, identifier, password string) (*model.User, *TokenPair, error) {
	identifier = strings.ToLower(strings.TrimSpace(identifier))

	user, err := s.repo.GetUserByUsernameOrEmail(ctx, identifier)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, ErrUserNotFound
		}
		return nil, nil, err
	}

	if !s.auth.CheckPasswordHash(password, user.Password) {
		return nil, nil, ErrInvalidCredentials
	}

	pair, err := s.issueTokenPair(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	logger.Log.WithFields(logrus.Fields{
		"user_id":  user.ID,
		"username": user.Username,
	}).Info("User logged in successfully")

	return user, pair, nil
}

// RefreshSession exchanges a valid refresh token for a new pair. A token
// that verifies cryptographically but no longer equals the stored value has
// been rotated away or revoked; presenting it is treated as reuse.
func (s *UserService) RefreshSession(ctx context.Context, presentedToken string) (*TokenPair, error) {
	claims, err := s.auth.ValidateRefreshToken(presentedToken)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}

	if user.RefreshToken == nil || *user.RefreshToken != presentedToken {
		logger.Log.WithField("user_id", user.ID).Warn("Rotated or revoked refresh token presented")
		return nil, ErrRefreshTokenReused
	}

	return s.issueTokenPair(ctx, user)
}

// Logout clears the stored refresh token so every previously issued refresh
// token becomes unusable regardless of its own expiry. Idempotent.
func (s *UserService) Logout(ctx context.Context, userID uuid.UUID) error {
	if err := s.repo.UpdateRefreshToken(ctx, userID, nil); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return err
	}

	logger.Log.WithField("user_id", userID).Info("User logged out")
	return nil
}

// ChangePassword re-hashes and persists the new password after verifying
// the old one. Existing access tokens stay valid until their natural
// expiry; that trade-off is accepted, not an oversight.
func (s *UserService) ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUserNotFound
		}
		return err
	}

	if !s.auth.CheckPasswordHash(oldPassword, user.Password) {
		return ErrInvalidCredentials
	}

	hashedPassword, err := s.auth.HashPassword(newPassword)
	if err != nil {
		return err
	}

	if err := s.repo.UpdatePassword(ctx, userID, hashedPassword); err != nil {
		return err
	}

	logger.Log.WithField("user_id", userID).Info("Password changed successfully")
	return nil
}

// UpdateAccountDetails patches the mutable profile fields.
func (s *UserService) UpdateAccountDetails(ctx context.Context, userID uuid.UUID, fullName, email string) (*model.User, error) {
	fullName = strings.TrimSpace(fullName)
	email = strings.ToLower(strings.TrimSpace(email))
	if fullName == "" || email == "" {
		return nil, ErrMissingFields
	}

	user, err := s.repo.UpdateAccountDetails(ctx, userID, fullName, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		if isUniqueViolation(err) {
			return nil, ErrUserAlreadyExists
		}
		return nil, err
	}
	return user, nil
}

// UpdateAvatar points the account at a newly uploaded avatar URL. Deleting
// the replaced asset is the caller's concern; the old URL is still on the
// user the caller resolved before uploading.
func (s *UserService) UpdateAvatar(ctx context.Context, userID uuid.UUID, avatarURL string) (*model.User, error) {
	if avatarURL == "" {
		return nil, ErrAvatarRequired
	}

	user, err := s.repo.UpdateAvatar(ctx, userID, avatarURL)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	logger.Log.WithField("user_id", userID).Info("Avatar updated")
	return user, nil
}

// UpdateCoverImage points the account at a newly uploaded cover image URL.
func (s *UserService) UpdateCoverImage(ctx context.Context, userID uuid.UUID, coverImageURL string) (*model.User, error) {
	if coverImageURL == "" {
		return nil, ErrCoverImageRequired
	}

	user, err := s.repo.UpdateCoverImage(ctx, userID, coverImageURL)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	logger.Log.WithField("user_id", userID).Info("Cover image updated")
	return user, nil
}

// issueTokenPair generates both tokens and persists the refresh token. The
// write completes before the pair is returned so a client can never hold a
// refresh token the store does not know about.
func (s *UserService) issueTokenPair(ctx context.Context, user *model.User) (*TokenPair, error) {
	accessToken, err := s.auth.GenerateAccessToken(user)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.auth.GenerateRefreshToken(user)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateRefreshToken(ctx, user.ID, &refreshToken); err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
