package handler

import (
	"context"
	"database/sql"
	"errors"
	"go-vidtube-api/common"
	"go-vidtube-api/model"
	"go-vidtube-api/repository"
	"go-vidtube-api/service"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type contextKey string

// UserKey holds the resolved *model.User for the current request.
const UserKey contextKey = "user"

// AuthMiddleware verifies the access token and resolves it to a user before
// any protected handler runs. It is the only place identity trust is
// established: downstream handlers read the user from the request context
// and never need another database round-trip to know who is calling.
type AuthMiddleware struct {
	repo repository.IUserRepository
	auth *service.AuthService
}

func NewAuthMiddleware(repo repository.IUserRepository, auth *service.AuthService) *AuthMiddleware {
	return &AuthMiddleware{repo: repo, auth: auth}
}

func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := extractAccessToken(r)
		if tokenString == "" {
			common.NewAppError(http.StatusUnauthorized, "Unauthorized request", nil).Send(w)
			return
		}

		claims, err := m.auth.ValidateAccessToken(tokenString)
		if err != nil {
			common.NewAppError(http.StatusUnauthorized, "Invalid or expired access token", err).Send(w)
			return
		}

		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			common.NewAppError(http.StatusUnauthorized, "Invalid access token", err).Send(w)
			return
		}

		// Re-resolving the user on every request trades a read for the
		// ability to immediately reject tokens of deleted accounts. Only a
		// missing row means the token is bad; anything else is ours.
		user, err := m.repo.GetUserByID(r.Context(), userID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				common.NewAppError(http.StatusUnauthorized, "Invalid access token", err).Send(w)
			} else {
				common.NewAppError(http.StatusInternalServerError, "Could not verify the request identity", err).Send(w)
			}
			return
		}

		ctx := context.WithValue(r.Context(), UserKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractAccessToken prefers the cookie; mobile clients without cookie
// support fall back to the standard bearer header.
func extractAccessToken(r *http.Request) string {
	if cookie, err := r.Cookie(accessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	authHeader := r.Header.Get("Authorization")
	headerParts := strings.Split(authHeader, " ")
	if len(headerParts) == 2 && strings.ToLower(headerParts[0]) == "bearer" {
		return headerParts[1]
	}
	return ""
}

// userFromContext returns the user attached by AuthMiddleware.
func userFromContext(r *http.Request) (*model.User, bool) {
	user, ok := r.Context().Value(UserKey).(*model.User)
	return user, ok
}
