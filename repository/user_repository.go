package repository

import (
	"context"
	"database/sql"
	"go-vidtube-api/logger"
	"go-vidtube-api/model"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// IUserRepository defines the contract for user database operations. The
// auth service depends on this interface only, never on *sql.DB directly.
type IUserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByUsernameOrEmail(ctx context.Context, identifier string) (*model.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
	UpdateRefreshToken(ctx context.Context, id uuid.UUID, token *string) error
	UpdatePassword(ctx context.Context, id uuid.UUID, hashedPassword string) error
	UpdateAccountDetails(ctx context.Context, id uuid.UUID, fullName, email string) (*model.User, error)
	UpdateAvatar(ctx context.Context, id uuid.UUID, avatarURL string) (*model.User, error)
	UpdateCoverImage(ctx context.Context, id uuid.UUID, coverImageURL string) (*model.User, error)
}

// UserRepository implements IUserRepository.
type UserRepository struct {
	DB *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{DB: db}
}

const userColumns = `id, username, email, full_name, avatar, cover_image, password, refresh_token, created_at, updated_at`

func scanUser(row *sql.Row) (*model.User, error) {
	user := &model.User{}
	var refreshToken sql.NullString
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.FullName,
		&user.Avatar, &user.CoverImage, &user.Password, &refreshToken,
		&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if refreshToken.Valid {
		user.RefreshToken = &refreshToken.String
	}
	return user, nil
}

func (r *UserRepository) CreateUser(ctx context.Context, user *model.User) error {
	log := logger.Log.WithFields(logrus.Fields{
		"username": user.Username,
		"email":    user.Email,
	})
	log.Info("Executing query to create a new user")

	query := `INSERT INTO users (username, email, full_name, avatar, cover_image, password)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at, updated_at`
	err := r.DB.QueryRowContext(ctx, query, user.Username, user.Email, user.FullName,
		user.Avatar, user.CoverImage, user.Password).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		log.WithError(err).Error("Failed to execute create user query")
		return err
	}
	return nil
}

// GetUserByUsernameOrEmail looks up a user by a single identifier that may
// be either the username or the email. Identifiers are stored lowercased,
// so callers normalize before querying.
func (r *UserRepository) GetUserByUsernameOrEmail(ctx context.Context, identifier string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1 OR email = $1`
	user, err := scanUser(r.DB.QueryRowContext(ctx, query, identifier))
	if err != nil {
		if err != sql.ErrNoRows {
			logger.Log.WithError(err).Error("Failed to execute get user by identifier query")
		}
		return nil, err
	}
	return user, nil
}

func (r *UserRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if err != sql.ErrNoRows {
			logger.Log.WithField("user_id", id).WithError(err).Error("Failed to execute get user by ID query")
		}
		return nil, err
	}
	return user, nil
}

func (r *UserRepository) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1 OR email = $2)`
	err := r.DB.QueryRowContext(ctx, query, username, email).Scan(&exists)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to execute user existence query")
		return false, err
	}
	return exists, nil
}

// UpdateRefreshToken overwrites the stored refresh token value. Passing nil
// clears it, which permanently invalidates every previously issued refresh
// token for that user.
func (r *UserRepository) UpdateRefreshToken(ctx context.Context, id uuid.UUID, token *string) error {
	log := logger.Log.WithField("user_id", id)
	log.Info("Executing query to update the stored refresh token")

	query := `UPDATE users SET refresh_token = $1, updated_at = now() WHERE id = $2`
	res, err := r.DB.ExecContext(ctx, query, token, id)
	if err != nil {
		log.WithError(err).Error("Failed to execute update refresh token query")
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, hashedPassword string) error {
	log := logger.Log.WithField("user_id", id)
	log.Info("Executing query to update the password hash")

	query := `UPDATE users SET password = $1, updated_at = now() WHERE id = $2`
	res, err := r.DB.ExecContext(ctx, query, hashedPassword, id)
	if err != nil {
		log.WithError(err).Error("Failed to execute update password query")
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *UserRepository) UpdateAccountDetails(ctx context.Context, id uuid.UUID, fullName, email string) (*model.User, error) {
	log := logger.Log.WithField("user_id", id)
	log.Info("Executing query to update account details")

	query := `UPDATE users SET full_name = $1, email = $2, updated_at = now() WHERE id = $3
		RETURNING ` + userColumns
	user, err := scanUser(r.DB.QueryRowContext(ctx, query, fullName, email, id))
	if err != nil {
		if err != sql.ErrNoRows {
			log.WithError(err).Error("Failed to execute update account details query")
		}
		return nil, err
	}
	return user, nil
}

func (r *UserRepository) UpdateAvatar(ctx context.Context, id uuid.UUID, avatarURL string) (*model.User, error) {
	log := logger.Log.WithField("user_id", id)
	log.Info("Executing query to update the avatar")

	query := `UPDATE users SET avatar = $1, updated_at = now() WHERE id = $2
		RETURNING ` + userColumns
	user, err := scanUser(r.DB.QueryRowContext(ctx, query, avatarURL, id))
	if err != nil {
		if err != sql.ErrNoRows {
			log.WithError(err).Error("Failed to execute update avatar query")
		}
		return nil, err
	}
	return user, nil
}

func (r *UserRepository) UpdateCoverImage(ctx context.Context, id uuid.UUID, coverImageURL string) (*model.User, error) {
	log := logger.Log.WithField("user_id", id)
	log.Info("Executing query to update the cover image")

	query := `UPDATE users SET cover_image = $1, updated_at = now() WHERE id = $2
		RETURNING ` + userColumns
	user, err := scanUser(r.DB.QueryRowContext(ctx, query, coverImageURL, id))
	if err != nil {
		if err != sql.ErrNoRows {
			log.WithError(err).Error("Failed to execute update cover image query")
		}
		return nil, err
	}
	return user, nil
}
