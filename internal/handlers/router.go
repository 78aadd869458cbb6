package handlers

import (
	"context"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/nkiryanov/authsvc/internal/handlers/middleware"
	"github.com/nkiryanov/authsvc/internal/logger"
	"github.com/nkiryanov/authsvc/internal/models"
	"github.com/nkiryanov/authsvc/internal/service/auth"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

// Router mounts auth endpoints under /auth/
// CORS is enabled only if allowed origins are set
func NewRouter(authService authService, logger logger.Logger, allowedOrigins []string) http.Handler {
	withAuth := middleware.NewAuth(authService).Auth

	authmux := http.NewServeMux()

	authmux.Handle("POST /signup", handleSignup(authService, logger))
	authmux.Handle("POST /login", handleLogin(authService, logger))
	authmux.Handle("GET /refresh_token", handleRefreshToken(authService, logger))
	authmux.Handle("POST /logout", withAuth(handleLogout(authService, logger)))

	root := http.NewServeMux()
	root.Handle("/auth/", http.StripPrefix("/auth", authmux))

	mds := []func(http.Handler) http.Handler{
		chimw.RequestID,
		middleware.LoggerMiddleware(logger),
		chimw.Recoverer,
	}
	if len(allowedOrigins) > 0 {
		mds = append(mds, middleware.CORS(allowedOrigins))
	}

	return chain(root, mds...)
}

type authService interface {
	// Register user
	// Has to return apperrors.ErrUserAlreadyExists if full name or email is taken
	Signup(ctx context.Context, params auth.SignupParams) (models.User, error)

	// Login user with username (full name) and password
	// Has to return apperrors.ErrUserNotFound, apperrors.ErrInvalidPassword or apperrors.ErrUserBanned
	Login(ctx context.Context, username string, password string) (models.TokenPair, error)

	// Refresh tokens using refresh token
	// If token can't be decoded: has to return apperrors.ErrRefreshTokenInvalid
	// If token revoked: apperrors.ErrRefreshTokenRevoked
	// If token is not the stored one: apperrors.ErrRefreshTokenMismatch
	Refresh(ctx context.Context, refresh string) (models.TokenPair, error)

	// Revoke user current refresh token
	Logout(ctx context.Context, user models.User) error

	// Get bearer credential from request
	GetBearer(r *http.Request) (string, error)

	// Get request and return user if it authenticated or error
	GetUserFromRequest(ctx context.Context, r *http.Request) (models.User, error)
}
