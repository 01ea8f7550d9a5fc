package handler

import (
	"encoding/json"
	"go-vidtube-api/common"
	"go-vidtube-api/config"
	"go-vidtube-api/logger"
	"go-vidtube-api/model"
	"go-vidtube-api/service"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	accessTokenCookie  = "accessToken"
	refreshTokenCookie = "refreshToken"

	maxUploadSize = 10 << 20 // avatar / cover image uploads
)

type UserHandler struct {
	service *service.UserService
	media   service.IMediaStore
}

func NewUserHandler(service *service.UserService, media service.IMediaStore) *UserHandler {
	return &UserHandler{service: service, media: media}
}

// loginResponse mirrors the cookie payload in the body for clients that
// cannot use cookies.
type loginResponse struct {
	User         *model.User `json:"user"`
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
}

// Register godoc
// @Summary      Register a new user
// @Description  Creates a user from a multipart form. The avatar file is mandatory; registration fails if it cannot be stored.
// @Tags         users
// @Accept       multipart/form-data
// @Produce      json
// @Success      201  {object}  model.User
// @Failure      400  {object}  common.AppError "Missing fields or avatar file"
// @Failure      409  {object}  common.AppError "Username or email already taken"
// @Failure      500  {object}  common.AppError
// @Router       /api/v1/users/register [post]
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) *common.AppError {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return common.NewAppError(http.StatusBadRequest, "Invalid multipart form data", err)
	}

	// Trim before validating so padded input cannot sneak a too-short value
	// past the min tags. The password is taken verbatim.
	req := model.RegisterRequest{
		FullName: strings.TrimSpace(r.FormValue("fullName")),
		Email:    strings.TrimSpace(r.FormValue("email")),
		Username: strings.TrimSpace(r.FormValue("username")),
		Password: r.FormValue("password"),
	}
	if appErr := common.ValidateStruct(&req); appErr != nil {
		return appErr
	}

	avatarFile, avatarHeader, err := r.FormFile("avatar")
	if err != nil {
		return common.NewAppError(http.StatusBadRequest, "Avatar file is required", err)
	}
	defer avatarFile.Close()

	avatar, err := h.media.Upload(r.Context(), avatarFile, avatarHeader.Filename, avatarHeader.Header.Get("Content-Type"))
	if err != nil {
		// Avatar presence is mandatory; a failed upload must not leave a
		// user record behind.
		return common.NewAppError(http.StatusBadRequest, "Avatar file is required", err)
	}

	coverImageURL := ""
	if coverFile, coverHeader, err := r.FormFile("coverImage"); err == nil {
		defer coverFile.Close()
		if cover, err := h.media.Upload(r.Context(), coverFile, coverHeader.Filename, coverHeader.Header.Get("Content-Type")); err == nil {
			coverImageURL = cover.URL
		} else {
			logger.Log.WithError(err).Warn("Cover image upload failed, continuing without it")
		}
	}

	user, err := h.service.Register(r.Context(), req, avatar.URL, coverImageURL)
	if err != nil {
		switch err {
		case service.ErrMissingFields, service.ErrAvatarRequired:
			return common.NewAppError(http.StatusBadRequest, err.Error(), err)
		case service.ErrUserAlreadyExists:
			return common.NewAppError(http.StatusConflict, err.Error(), err)
		default:
			return common.NewAppError(http.StatusInternalServerError, "Something went wrong while registering the user", err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(user)
	return nil
}

// Login godoc
// @Summary      Authenticate with username or email
// @Description  Verifies the credentials, issues an access/refresh token pair and sets both as http-only cookies.
// @Tags         users
// @Accept       json
// @Produce      json
// @Success      200  {object}  loginResponse
// @Failure      400  {object}  common.AppError
// @Failure      401  {object}  common.AppError "Wrong password"
// @Failure      404  {object}  common.AppError "No account for the identifier"
// @Router       /api/v1/users/login [post]
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.LoginRequest
	if appErr := common.ValidateAndDecode(r, &req); appErr != nil {
		return appErr
	}

	identifier := req.Username
	if identifier == "" {
		identifier = req.Email
	}
	if identifier == "" {
		return common.NewAppError(http.StatusBadRequest, "Username or email is required", nil)
	}

	user, pair, err := h.service.Login(r.Context(), identifier, req.Password)
	if err != nil {
		switch err {
		case service.ErrUserNotFound:
			return common.NewAppError(http.StatusNotFound, err.Error(), err)
		case service.ErrInvalidCredentials:
			return common.NewAppError(http.StatusUnauthorized, err.Error(), err)
		default:
			return common.NewAppError(http.StatusInternalServerError, "Could not log in", err)
		}
	}

	setAuthCookies(w, pair)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(loginResponse{
		User:         user,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
	return nil
}

// RefreshToken godoc
// @Summary      Rotate the refresh token
// @Description  Exchanges a valid refresh token (cookie or body) for a new token pair. The presented token is invalidated.
// @Tags         users
// @Produce      json
// @Success      200  {object}  service.TokenPair
// @Failure      401  {object}  common.AppError "Missing, invalid, expired or already used refresh token"
// @Router       /api/v1/users/refresh-token [post]
func (h *UserHandler) RefreshToken(w http.ResponseWriter, r *http.Request) *common.AppError {
	presentedToken := ""
	if cookie, err := r.Cookie(refreshTokenCookie); err == nil {
		presentedToken = cookie.Value
	}
	if presentedToken == "" {
		var req model.RefreshRequest
		// The body is an optional fallback; decode errors mean no token.
		_ = json.NewDecoder(r.Body).Decode(&req)
		presentedToken = req.RefreshToken
	}
	if presentedToken == "" {
		return common.NewAppError(http.StatusUnauthorized, "Unauthorized request", nil)
	}

	pair, err := h.service.RefreshSession(r.Context(), presentedToken)
	if err != nil {
		switch err {
		case service.ErrInvalidRefreshToken, service.ErrRefreshTokenReused:
			return common.NewAppError(http.StatusUnauthorized, err.Error(), err)
		default:
			return common.NewAppError(http.StatusInternalServerError, "Could not refresh session", err)
		}
	}

	setAuthCookies(w, pair)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(pair)
	return nil
}

// Logout godoc
// @Summary      Log out the current user
// @Description  Clears the stored refresh token and both auth cookies. Safe to call repeatedly.
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]string
// @Failure      401  {object}  common.AppError
// @Router       /api/v1/users/logout [post]
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) *common.AppError {
	user, ok := userFromContext(r)
	if !ok {
		return common.NewAppError(http.StatusUnauthorized, "Unauthorized request", nil)
	}

	if err := h.service.Logout(r.Context(), user.ID); err != nil {
		return common.NewAppError(http.StatusInternalServerError, "Could not log out", err)
	}

	clearAuthCookies(w)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"message": "User logged out"})
	return nil
}

// ChangePassword godoc
// @Summary      Change the current user's password
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]string
// @Failure      401  {object}  common.AppError "Old password does not match"
// @Router       /api/v1/users/change-password [post]
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.ChangePasswordRequest
	if appErr := common.ValidateAndDecode(r, &req); appErr != nil {
		return appErr
	}

	user, ok := userFromContext(r)
	if !ok {
		return common.NewAppError(http.StatusUnauthorized, "Unauthorized request", nil)
	}

	if err := h.service.ChangePassword(r.Context(), user.ID, req.OldPassword, req.NewPassword); err != nil {
		switch err {
		case service.ErrInvalidCredentials:
			return common.NewAppError(http.StatusUnauthorized, "Incorrect old password", err)
		case service.ErrUserNotFound:
			return common.NewAppError(http.StatusUnauthorized, "Unauthorized request", err)
		default:
			return common.NewAppError(http.StatusInternalServerError, "Could not change password", err)
		}
	}

	logger.Log.WithFields(logrus.Fields{"user_id": user.ID}).Info("Password change request completed")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"message": "Password changed successfully"})
	return nil
}

// CurrentUser returns the identity resolved by the auth middleware.
func (h *UserHandler) CurrentUser(w http.ResponseWriter, r *http.Request) *common.AppError {
	user, ok := userFromContext(r)
	if !ok {
		return common.NewAppError(http.StatusUnauthorized, "Unauthorized request", nil)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(user)
	return nil
}

// UpdateAccount patches the caller's full name and email.
func (h *UserHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.UpdateAccountRequest
	if appErr := common.ValidateAndDecode(r, &req); appErr != nil {
		return appErr
	}

	user, ok := userFromContext(r)
	if !ok {
		return common.NewAppError(http.StatusUnauthorized, "Unauthorized request", nil)
	}

	updated, err := h.service.UpdateAccountDetails(r.Context(), user.ID, req.FullName, req.Email)
	if err != nil {
		switch err {
		case service.ErrMissingFields:
			return common.NewAppError(http.StatusBadRequest, err.Error(), err)
		case service.ErrUserAlreadyExists:
			return common.NewAppError(http.StatusConflict, err.Error(), err)
		case service.ErrUserNotFound:
			return common.NewAppError(http.StatusUnauthorized, "Unauthorized request", err)
		default:
			return common.NewAppError(http.StatusInternalServerError, "Could not update account details", err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(updated)
	return nil
}

// UpdateAvatar godoc
// @Summary      Replace the current user's avatar
// @Description  Uploads the new avatar, points the account at it and deletes the replaced asset.
// @Tags         users
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  model.User
// @Failure      400  {object}  common.AppError "Missing avatar file or failed upload"
// @Failure      401  {object}  common.AppError
// @Router       /api/v1/users/update-avatar [patch]
func (h *UserHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) *common.AppError {
	user, ok := userFromContext(r)
	if !ok {
		return common.NewAppError(http.StatusUnauthorized, "Unauthorized request", nil)
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return common.NewAppError(http.StatusBadRequest, "Invalid multipart form data", err)
	}

	avatarFile, avatarHeader, err := r.FormFile("avatar")
	if err != nil {
		return common.NewAppError(http.StatusBadRequest, "Avatar file is required", err)
	}
	defer avatarFile.Close()

	avatar, err := h.media.Upload(r.Context(), avatarFile, avatarHeader.Filename, avatarHeader.Header.Get("Content-Type"))
	if err != nil {
		return common.NewAppError(http.StatusBadRequest, "Could not upload avatar", err)
	}

	updated, err := h.service.UpdateAvatar(r.Context(), user.ID, avatar.URL)
	if err != nil {
		switch err {
		case service.ErrUserNotFound:
			return common.NewAppError(http.StatusUnauthorized, "Unauthorized request", err)
		default:
			return common.NewAppError(http.StatusInternalServerError, "Could not update avatar", err)
		}
	}

	// The account already points at the new asset; losing the old one only
	// leaks storage, so a failed delete is logged and not surfaced.
	if user.Avatar != "" {
		if err := h.media.Delete(r.Context(), user.Avatar); err != nil {
			logger.Log.WithError(err).Warn("Failed to delete replaced avatar")
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(updated)
	return nil
}

// UpdateCoverImage godoc
// @Summary      Replace the current user's cover image
// @Tags         users
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  model.User
// @Failure      400  {object}  common.AppError "Missing cover image file or failed upload"
// @Failure      401  {object}  common.AppError
// @Router       /api/v1/users/update-cover-image [patch]
func (h *UserHandler) UpdateCoverImage(w http.ResponseWriter, r *http.Request) *common.AppError {
	user, ok := userFromContext(r)
	if !ok {
		return common.NewAppError(http.StatusUnauthorized, "Unauthorized request", nil)
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return common.NewAppError(http.StatusBadRequest, "Invalid multipart form data", err)
	}

	coverFile, coverHeader, err := r.FormFile("coverImage")
	if err != nil {
		return common.NewAppError(http.StatusBadRequest, "Cover image file is required", err)
	}
	defer coverFile.Close()

	cover, err := h.media.Upload(r.Context(), coverFile, coverHeader.Filename, coverHeader.Header.Get("Content-Type"))
	if err != nil {
		return common.NewAppError(http.StatusBadRequest, "Could not upload cover image", err)
	}

	updated, err := h.service.UpdateCoverImage(r.Context(), user.ID, cover.URL)
	if err != nil {
		switch err {
		case service.ErrUserNotFound:
			return common.NewAppError(http.StatusUnauthorized, "Unauthorized request", err)
		default:
			return common.NewAppError(http.StatusInternalServerError, "Could not update cover image", err)
		}
	}

	if user.CoverImage != "" {
		if err := h.media.Delete(r.Context(), user.CoverImage); err != nil {
			logger.Log.WithError(err).Warn("Failed to delete replaced cover image")
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(updated)
	return nil
}

// setAuthCookies delivers both tokens as same-site, http-only, secure
// cookies with lifetimes matching the token TTLs.
func setAuthCookies(w http.ResponseWriter, pair *service.TokenPair) {
	jwtCfg := config.AppConfig.JWT

	http.SetCookie(w, &http.Cookie{
		Name:     accessTokenCookie,
		Value:    pair.AccessToken,
		Path:     "/",
		MaxAge:   int(jwtCfg.AccessTokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     refreshTokenCookie,
		Value:    pair.RefreshToken,
		Path:     "/",
		MaxAge:   int(jwtCfg.RefreshTokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
}

// clearAuthCookies expires both cookies with flags matching the ones they
// were set with.
func clearAuthCookies(w http.ResponseWriter) {
	for _, name := range []string{accessTokenCookie, refreshTokenCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   true,
			SameSite: http.SameSiteStrictMode,
		})
	}
}
