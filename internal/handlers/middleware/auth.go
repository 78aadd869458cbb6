package middleware

import (
	"context"
	"net/http"

	"github.com/nkiryanov/authsvc/internal/handlers/render"
	"github.com/nkiryanov/authsvc/internal/handlers/userctx"
	"github.com/nkiryanov/authsvc/internal/models"
)

type authService interface {
	// Resolve user from bearer access token in request
	GetUserFromRequest(ctx context.Context, r *http.Request) (models.User, error)
}

type Auth struct {
	authService authService
}

func NewAuth(as authService) *Auth {
	return &Auth{authService: as}
}

// Put authenticated user into request context
// Any failure (no header, bad token, unknown user) is rendered as 401
func (a *Auth) Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := a.authService.GetUserFromRequest(r.Context(), r)
		if err != nil {
			render.ServiceError(w, "Could not validate credentials", http.StatusUnauthorized)
			return
		}

		ctx := userctx.New(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
