package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/authsvc/internal/apperrors"
	"github.com/nkiryanov/authsvc/internal/handlers/render"
	"github.com/nkiryanov/authsvc/internal/handlers/userctx"
	"github.com/nkiryanov/authsvc/internal/logger"
	"github.com/nkiryanov/authsvc/internal/models"
	"github.com/nkiryanov/authsvc/internal/service/auth"
)

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

func newTokenResponse(pair models.TokenPair) tokenResponse {
	return tokenResponse{
		AccessToken:  pair.Access.Value,
		RefreshToken: pair.Refresh.Value,
		TokenType:    models.TokenTypeBearer,
	}
}

func handleSignup(authService authService, logger logger.Logger) http.Handler {
	type request struct {
		FullName string `json:"full_name" validate:"required,min=2,max=150"`
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required,min=6,max=255"`
	}
	type response struct {
		ID        uuid.UUID `json:"id"`
		FullName  string    `json:"full_name"`
		Email     string    `json:"email"`
		CreatedAt time.Time `json:"created_at"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		user, err := authService.Signup(r.Context(), auth.SignupParams{
			FullName: data.FullName,
			Email:    data.Email,
			Password: data.Password,
		})
		switch {
		case err == nil:
			render.JSONWithStatus(w, response{
				ID:        user.ID,
				FullName:  user.FullName,
				Email:     user.Email,
				CreatedAt: user.CreatedAt,
			}, http.StatusCreated)
		case errors.Is(err, apperrors.ErrUserAlreadyExists):
			render.ServiceError(w, "Account already exists", http.StatusConflict)
		default:
			logger.Error("signup failed", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleLogin(authService authService, logger logger.Logger) http.Handler {
	type request struct {
		Username string `form:"username" validate:"required"`
		Password string `form:"password" validate:"required"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindFormAndValidate[request](w, r)
		if err != nil {
			return
		}

		pair, err := authService.Login(r.Context(), data.Username, data.Password)
		switch {
		case err == nil:
			render.JSON(w, newTokenResponse(pair))
		case errors.Is(err, apperrors.ErrUserNotFound):
			render.ServiceError(w, "Invalid email", http.StatusUnauthorized)
		case errors.Is(err, apperrors.ErrInvalidPassword):
			render.ServiceError(w, "Invalid password", http.StatusUnauthorized)
		case errors.Is(err, apperrors.ErrUserBanned):
			render.ServiceError(w, "You were banned by an administrator", http.StatusUnauthorized)
		default:
			logger.Error("login failed", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleRefreshToken(authService authService, logger logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		refresh, err := authService.GetBearer(r)
		if err != nil {
			render.ServiceError(w, "Not authenticated", http.StatusUnauthorized)
			return
		}

		pair, err := authService.Refresh(r.Context(), refresh)
		switch {
		case err == nil:
			render.JSON(w, newTokenResponse(pair))
		case errors.Is(err, apperrors.ErrRefreshTokenRevoked), errors.Is(err, apperrors.ErrRefreshTokenMismatch):
			render.ServiceError(w, "Invalid refresh token", http.StatusUnauthorized)
		case errors.Is(err, apperrors.ErrRefreshTokenInvalid):
			render.ServiceError(w, "Could not validate credentials", http.StatusUnauthorized)
		default:
			logger.Error("refresh token failed", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleLogout(authService authService, logger logger.Logger) http.Handler {
	type response struct {
		Message string `json:"message"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Could not validate credentials", http.StatusUnauthorized)
			return
		}

		err := authService.Logout(r.Context(), user)
		if err != nil {
			logger.Error("logout failed", "error", err, "user_id", user.ID)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, response{Message: "Logout successful."})
	})
}
