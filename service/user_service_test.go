package service

import (
	"context"
	"database/sql"
	"errors"
	"go-vidtube-api/model"
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockUserRepo struct{ mock.Mock }

func (m *mockUserRepo) CreateUser(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepo) GetUserByUsernameOrEmail(ctx context.Context, identifier string) (*model.User, error) {
	args := m.Called(ctx, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockUserRepo) GetUserByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockUserRepo) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	args := m.Called(ctx, username, email)
	return args.Bool(0), args.Error(1)
}

func (m *mockUserRepo) UpdateRefreshToken(ctx context.Context, id uuid.UUID, token *string) error {
	args := m.Called(ctx, id, token)
	return args.Error(0)
}

func (m *mockUserRepo) UpdatePassword(ctx context.Context, id uuid.UUID, hashedPassword string) error {
	args := m.Called(ctx, id, hashedPassword)
	return args.Error(0)
}

func (m *mockUserRepo) UpdateAccountDetails(ctx context.Context, id uuid.UUID, fullName, email string) (*model.User, error) {
	args := m.Called(ctx, id, fullName, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockUserRepo) UpdateAvatar(ctx context.Context, id uuid.UUID, avatarURL string) (*model.User, error) {
	args := m.Called(ctx, id, avatarURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockUserRepo) UpdateCoverImage(ctx context.Context, id uuid.UUID, coverImageURL string) (*model.User, error) {
	args := m.Called(ctx, id, coverImageURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func registerRequest() model.RegisterRequest {
	return model.RegisterRequest{
		FullName: "Ana Example",
		Email:    "Ana@X.com",
		Username: "Ana",
		Password: "Secret1!pass",
	}
}

func TestUserService_Register(t *testing.T) {
	ctx := context.Background()
	authService := NewAuthService()

	t.Run("success normalizes and hashes", func(t *testing.T) {
		mockRepo := new(mockUserRepo)
		mockRepo.On("ExistsByUsernameOrEmail", ctx, "ana", "ana@x.com").Return(false, nil).Once()
		mockRepo.On("CreateUser", ctx, mock.MatchedBy(func(u *model.User) bool {
			return u.Username == "ana" && u.Email == "ana@x.com" && u.Avatar == "https://media.test/a.png"
		})).Return(nil).Once()

		userService := NewUserService(mockRepo, authService)
		user, err := userService.Register(ctx, registerRequest(), "https://media.test/a.png", "")

		assert.NoError(t, err)
		assert.NotNil(t, user)
		assert.NotEqual(t, "Secret1!pass", user.Password, "plaintext must never be stored")
		assert.True(t, authService.CheckPasswordHash("Secret1!pass", user.Password))
		mockRepo.AssertExpectations(t)
	})

	t.Run("blank fields", func(t *testing.T) {
		mockRepo := new(mockUserRepo)
		userService := NewUserService(mockRepo, authService)

		req := registerRequest()
		req.FullName = "   "
		_, err := userService.Register(ctx, req, "https://media.test/a.png", "")

		assert.ErrorIs(t, err, ErrMissingFields)
		mockRepo.AssertNotCalled(t, "CreateUser")
	})

	t.Run("missing avatar", func(t *testing.T) {
		mockRepo := new(mockUserRepo)
		userService := NewUserService(mockRepo, authService)

		_, err := userService.Register(ctx, registerRequest(), "", "")

		assert.ErrorIs(t, err, ErrAvatarRequired)
		mockRepo.AssertNotCalled(t, "CreateUser")
	})

	t.Run("duplicate identity", func(t *testing.T) {
		mockRepo := new(mockUserRepo)
		mockRepo.On("ExistsByUsernameOrEmail", ctx, "ana", "ana@x.com").Return(true, nil).Once()

		userService := NewUserService(mockRepo, authService)
		_, err := userService.Register(ctx, registerRequest(), "https://media.test/a.png", "")

		assert.ErrorIs(t, err, ErrUserAlreadyExists)
		mockRepo.AssertNotCalled(t, "CreateUser")
	})

	t.Run("unique violation on insert maps to conflict", func(t *testing.T) {
		mockRepo := new(mockUserRepo)
		mockRepo.On("ExistsByUsernameOrEmail", ctx, "ana", "ana@x.com").Return(false, nil).Once()
		mockRepo.On("CreateUser", ctx, mock.Anything).Return(&pq.Error{Code: "23505"}).Once()

		userService := NewUserService(mockRepo, authService)
		_, err := userService.Register(ctx, registerRequest(), "https://media.test/a.png", "")

		assert.ErrorIs(t, err, ErrUserAlreadyExists)
		mockRepo.AssertExpectations(t)
	})
}

func TestUserService_Login(t *testing.T) {
	ctx := context.Background()
	authService := NewAuthService()

	hashed, err := authService.HashPassword("Secret1!pass")
	assert.NoError(t, err)

	storedUser := func() *model.User {
		return &model.User{
			ID:       uuid.New(),
			Username: "ana",
			Email:    "ana@x.com",
			FullName: "Ana Example",
			Avatar:   "https://media.test/a.png",
			Password: hashed,
		}
	}

	t.Run("success persists the returned refresh token", func(t *testing.T) {
		user := storedUser()
		var persisted *string

		mockRepo := new(mockUserRepo)
		mockRepo.On("GetUserByUsernameOrEmail", ctx, "ana").Return(user, nil).Once()
		mockRepo.On("UpdateRefreshToken", ctx, user.ID, mock.AnythingOfType("*string")).
			Run(func(args mock.Arguments) { persisted = args.Get(2).(*string) }).
			Return(nil).Once()

		userService := NewUserService(mockRepo, authService)
		loggedIn, pair, err := userService.Login(ctx, "Ana", "Secret1!pass")

		assert.NoError(t, err)
		assert.Equal(t, user.ID, loggedIn.ID)
		assert.NotEmpty(t, pair.AccessToken)
		assert.NotEmpty(t, pair.RefreshToken)
		if assert.NotNil(t, persisted) {
			assert.Equal(t, pair.RefreshToken, *persisted, "stored value must equal the returned refresh token")
		}
		mockRepo.AssertExpectations(t)
	})

	t.Run("unknown identifier", func(t *testing.T) {
		mockRepo := new(mockUserRepo)
		mockRepo.On("GetUserByUsernameOrEmail", ctx, "ghost").Return(nil, sql.ErrNoRows).Once()

		userService := NewUserService(mockRepo, authService)
		_, _, err := userService.Login(ctx, "ghost", "whatever123")

		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("wrong password issues nothing", func(t *testing.T) {
		user := storedUser()
		mockRepo := new(mockUserRepo)
		mockRepo.On("GetUserByUsernameOrEmail", ctx, "ana").Return(user, nil).Once()

		userService := NewUserService(mockRepo, authService)
		_, _, err := userService.Login(ctx, "ana", "wrong")

		assert.ErrorIs(t, err, ErrInvalidCredentials)
		mockRepo.AssertNotCalled(t, "UpdateRefreshToken")
	})

	t.Run("repository failure surfaces as-is", func(t *testing.T) {
		expectedError := errors.New("database error")
		mockRepo := new(mockUserRepo)
		mockRepo.On("GetUserByUsernameOrEmail", ctx, "ana").Return(nil, expectedError).Once()

		userService := NewUserService(mockRepo, authService)
		_, _, err := userService.Login(ctx, "ana", "Secret1!pass")

		assert.ErrorIs(t, err, expectedError)
	})
}

func TestUserService_RefreshSession(t *testing.T) {
	ctx := context.Background()
	authService := NewAuthService()

	user := &model.User{
		ID:       uuid.New(),
		Username: "ana",
		Email:    "ana@x.com",
		FullName: "Ana Example",
	}

	t.Run("rotation yields a different token and detects reuse", func(t *testing.T) {
		original, err := authService.GenerateRefreshToken(user)
		assert.NoError(t, err)
		user.RefreshToken = &original

		mockRepo := new(mockUserRepo)
		mockRepo.On("GetUserByID", ctx, user.ID).Return(user, nil)
		mockRepo.On("UpdateRefreshToken", ctx, user.ID, mock.AnythingOfType("*string")).
			Run(func(args mock.Arguments) { user.RefreshToken = args.Get(2).(*string) }).
			Return(nil)

		userService := NewUserService(mockRepo, authService)

		pair, err := userService.RefreshSession(ctx, original)
		assert.NoError(t, err)
		assert.NotEqual(t, original, pair.RefreshToken, "rotation must produce a new token string")
		assert.Equal(t, pair.RefreshToken, *user.RefreshToken)

		// The pre-rotation token is cryptographically valid but no longer
		// matches the stored value.
		_, err = userService.RefreshSession(ctx, original)
		assert.ErrorIs(t, err, ErrRefreshTokenReused)

		// The rotated token keeps working.
		next, err := userService.RefreshSession(ctx, pair.RefreshToken)
		assert.NoError(t, err)
		assert.NotEqual(t, pair.RefreshToken, next.RefreshToken)
	})

	t.Run("garbage token", func(t *testing.T) {
		mockRepo := new(mockUserRepo)
		userService := NewUserService(mockRepo, authService)

		_, err := userService.RefreshSession(ctx, "not-a-refresh-token")
		assert.ErrorIs(t, err, ErrInvalidRefreshToken)
		mockRepo.AssertNotCalled(t, "GetUserByID")
	})

	t.Run("identity deleted after issuance", func(t *testing.T) {
		ghost := &model.User{ID: uuid.New(), Username: "ghost"}
		token, err := authService.GenerateRefreshToken(ghost)
		assert.NoError(t, err)

		mockRepo := new(mockUserRepo)
		mockRepo.On("GetUserByID", ctx, ghost.ID).Return(nil, sql.ErrNoRows).Once()

		userService := NewUserService(mockRepo, authService)
		_, err = userService.RefreshSession(ctx, token)
		assert.ErrorIs(t, err, ErrInvalidRefreshToken)
	})

	t.Run("logged-out user has no stored token", func(t *testing.T) {
		loggedOut := &model.User{ID: uuid.New(), Username: "out"}
		token, err := authService.GenerateRefreshToken(loggedOut)
		assert.NoError(t, err)

		mockRepo := new(mockUserRepo)
		mockRepo.On("GetUserByID", ctx, loggedOut.ID).Return(loggedOut, nil).Once()

		userService := NewUserService(mockRepo, authService)
		_, err = userService.RefreshSession(ctx, token)
		assert.ErrorIs(t, err, ErrRefreshTokenReused)
	})
}

func TestUserService_Logout(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("clears the stored token", func(t *testing.T) {
		mockRepo := new(mockUserRepo)
		mockRepo.On("UpdateRefreshToken", ctx, userID, (*string)(nil)).Return(nil).Once()

		userService := NewUserService(mockRepo, NewAuthService())
		err := userService.Logout(ctx, userID)

		assert.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})

	t.Run("idempotent for unknown users", func(t *testing.T) {
		mockRepo := new(mockUserRepo)
		mockRepo.On("UpdateRefreshToken", ctx, userID, (*string)(nil)).Return(sql.ErrNoRows).Once()

		userService := NewUserService(mockRepo, NewAuthService())
		err := userService.Logout(ctx, userID)

		assert.NoError(t, err, "logging out twice is not an error")
	})
}

func TestUserService_ChangePassword(t *testing.T) {
	ctx := context.Background()
	authService := NewAuthService()

	hashed, err := authService.HashPassword("OldSecret1!")
	assert.NoError(t, err)
	user := &model.User{ID: uuid.New(), Username: "ana", Password: hashed}

	t.Run("wrong old password", func(t *testing.T) {
		mockRepo := new(mockUserRepo)
		mockRepo.On("GetUserByID", ctx, user.ID).Return(user, nil).Once()

		userService := NewUserService(mockRepo, authService)
		err := userService.ChangePassword(ctx, user.ID, "notTheOldOne", "NewSecret1!")

		assert.ErrorIs(t, err, ErrInvalidCredentials)
		mockRepo.AssertNotCalled(t, "UpdatePassword")
	})

	t.Run("success re-hashes the new password", func(t *testing.T) {
		var storedHash string
		mockRepo := new(mockUserRepo)
		mockRepo.On("GetUserByID", ctx, user.ID).Return(user, nil).Once()
		mockRepo.On("UpdatePassword", ctx, user.ID, mock.AnythingOfType("string")).
			Run(func(args mock.Arguments) { storedHash = args.String(2) }).
			Return(nil).Once()

		userService := NewUserService(mockRepo, authService)
		err := userService.ChangePassword(ctx, user.ID, "OldSecret1!", "NewSecret1!")

		assert.NoError(t, err)
		assert.True(t, authService.CheckPasswordHash("NewSecret1!", storedHash))
		assert.NotEqual(t, "NewSecret1!", storedHash)
		mockRepo.AssertExpectations(t)
	})
}

func TestUserService_UpdateAccountDetails(t *testing.T) {
	ctx := context.Background()
	authService := NewAuthService()
	userID := uuid.New()

	t.Run("success", func(t *testing.T) {
		updated := &model.User{ID: userID, FullName: "New Name", Email: "new@x.com"}
		mockRepo := new(mockUserRepo)
		mockRepo.On("UpdateAccountDetails", ctx, userID, "New Name", "new@x.com").Return(updated, nil).Once()

		userService := NewUserService(mockRepo, authService)
		user, err := userService.UpdateAccountDetails(ctx, userID, " New Name ", "New@X.com")

		assert.NoError(t, err)
		assert.Equal(t, updated, user)
		mockRepo.AssertExpectations(t)
	})

	t.Run("email taken", func(t *testing.T) {
		mockRepo := new(mockUserRepo)
		mockRepo.On("UpdateAccountDetails", ctx, userID, "New Name", "taken@x.com").
			Return(nil, &pq.Error{Code: "23505"}).Once()

		userService := NewUserService(mockRepo, authService)
		_, err := userService.UpdateAccountDetails(ctx, userID, "New Name", "taken@x.com")

		assert.ErrorIs(t, err, ErrUserAlreadyExists)
	})

	t.Run("blank fields", func(t *testing.T) {
		mockRepo := new(mockUserRepo)
		userService := NewUserService(mockRepo, authService)

		_, err := userService.UpdateAccountDetails(ctx, userID, "", "new@x.com")
		assert.ErrorIs(t, err, ErrMissingFields)
		mockRepo.AssertNotCalled(t, "UpdateAccountDetails")
	})
}

func TestUserService_UpdateAvatar(t *testing.T) {
	ctx := context.Background()
	authService := NewAuthService()
	userID := uuid.New()

	t.Run("success", func(t *testing.T) {
		updated := &model.User{ID: userID, Avatar: "https://media.test/new.png"}
		mockRepo := new(mockUserRepo)
		mockRepo.On("UpdateAvatar", ctx, userID, "https://media.test/new.png").Return(updated, nil).Once()

		userService := NewUserService(mockRepo, authService)
		user, err := userService.UpdateAvatar(ctx, userID, "https://media.test/new.png")

		assert.NoError(t, err)
		assert.Equal(t, updated, user)
		mockRepo.AssertExpectations(t)
	})

	t.Run("empty URL", func(t *testing.T) {
		mockRepo := new(mockUserRepo)
		userService := NewUserService(mockRepo, authService)

		_, err := userService.UpdateAvatar(ctx, userID, "")
		assert.ErrorIs(t, err, ErrAvatarRequired)
		mockRepo.AssertNotCalled(t, "UpdateAvatar")
	})

	t.Run("unknown user", func(t *testing.T) {
		mockRepo := new(mockUserRepo)
		mockRepo.On("UpdateAvatar", ctx, userID, "https://media.test/new.png").Return(nil, sql.ErrNoRows).Once()

		userService := NewUserService(mockRepo, authService)
		_, err := userService.UpdateAvatar(ctx, userID, "https://media.test/new.png")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestUserService_UpdateCoverImage(t *testing.T) {
	ctx := context.Background()
	authService := NewAuthService()
	userID := uuid.New()

	t.Run("success", func(t *testing.T) {
		updated := &model.User{ID: userID, CoverImage: "https://media.test/cover.png"}
		mockRepo := new(mockUserRepo)
		mockRepo.On("UpdateCoverImage", ctx, userID, "https://media.test/cover.png").Return(updated, nil).Once()

		userService := NewUserService(mockRepo, authService)
		user, err := userService.UpdateCoverImage(ctx, userID, "https://media.test/cover.png")

		assert.NoError(t, err)
		assert.Equal(t, updated, user)
		mockRepo.AssertExpectations(t)
	})

	t.Run("empty URL", func(t *testing.T) {
		mockRepo := new(mockUserRepo)
		userService := NewUserService(mockRepo, authService)

		_, err := userService.UpdateCoverImage(ctx, userID, "")
		assert.ErrorIs(t, err, ErrCoverImageRequired)
		mockRepo.AssertNotCalled(t, "UpdateCoverImage")
	})
}
