package router

import (
	"go-vidtube-api/handler"
	"net/http"
)

func NewRouter(userHandler *handler.UserHandler, authMiddleware *handler.AuthMiddleware) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", handler.HealthCheck)

	// Public session endpoints.
	mux.Handle("POST /api/v1/users/register", handler.ErrorHandlingMiddleware(userHandler.Register))
	mux.Handle("POST /api/v1/users/login", handler.ErrorHandlingMiddleware(userHandler.Login))
	mux.Handle("POST /api/v1/users/refresh-token", handler.ErrorHandlingMiddleware(userHandler.RefreshToken))

	// Protected endpoints: the auth middleware runs before each handler and
	// fails closed.
	mux.Handle("POST /api/v1/users/logout", authMiddleware.Handler(handler.ErrorHandlingMiddleware(userHandler.Logout)))
	mux.Handle("POST /api/v1/users/change-password", authMiddleware.Handler(handler.ErrorHandlingMiddleware(userHandler.ChangePassword)))
	mux.Handle("GET /api/v1/users/current-user", authMiddleware.Handler(handler.ErrorHandlingMiddleware(userHandler.CurrentUser)))
	mux.Handle("PATCH /api/v1/users/update-account", authMiddleware.Handler(handler.ErrorHandlingMiddleware(userHandler.UpdateAccount)))
	mux.Handle("PATCH /api/v1/users/update-avatar", authMiddleware.Handler(handler.ErrorHandlingMiddleware(userHandler.UpdateAvatar)))
	mux.Handle("PATCH /api/v1/users/update-cover-image", authMiddleware.Handler(handler.ErrorHandlingMiddleware(userHandler.UpdateCoverImage)))

	return mux
}
