package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/nkiryanov/authsvc/internal/apperrors"
	"github.com/nkiryanov/authsvc/internal/logger"
	"github.com/nkiryanov/authsvc/internal/models"
	"github.com/nkiryanov/authsvc/internal/repository"
)

const (
	defaultAuthHeaderName = "Authorization"
	defaultAuthScheme     = "Bearer"
)

// Interface to create or compare user password hashes
type PasswordHasher interface {
	// Generate Hash from password
	Hash(password string) (string, error)

	// Compare known hashedPassword and user provided password
	// Must be protected against timing attacks
	Compare(hashedPassword string, password string) error
}

// Issues and decodes access and refresh tokens
type TokenManager interface {
	GeneratePair(email string) (models.TokenPair, error)
	DecodeRefresh(refresh string) (models.TokenClaims, error)
	ParseAccess(access string) (models.TokenClaims, error)
	RefreshTTL() time.Duration
}

type Config struct {
	// Hasher to use during signup or login
	// DefaultHasher is used if not set
	Hasher PasswordHasher

	// Header and scheme the bearer credential is read from
	AuthHeaderName string
	AuthScheme     string

	Logger logger.Logger
}

// Data user sends on signup
type SignupParams struct {
	FullName string
	Email    string
	Password string
}

type AuthService struct {
	hasher PasswordHasher
	tokens TokenManager

	// Storage to access long term data, every operation runs in its own transaction
	storage repository.Storage

	authHeaderName string
	authScheme     string

	logger logger.Logger
}

func NewService(cfg Config, tokens TokenManager, storage repository.Storage) (*AuthService, error) {
	if tokens == nil || storage == nil {
		return nil, errors.New("token manager and storage must not be nil")
	}

	if cfg.Hasher == nil {
		cfg.Hasher = DefaultHasher
	}
	if cfg.AuthHeaderName == "" {
		cfg.AuthHeaderName = defaultAuthHeaderName
	}
	if cfg.AuthScheme == "" {
		cfg.AuthScheme = defaultAuthScheme
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNoOpLogger()
	}

	return &AuthService{
		hasher:         cfg.Hasher,
		tokens:         tokens,
		storage:        storage,
		authHeaderName: cfg.AuthHeaderName,
		authScheme:     cfg.AuthScheme,
		logger:         cfg.Logger,
	}, nil
}

// Register new user
// Username (full name) is checked first, email uniqueness is left to the storage
func (s *AuthService) Signup(ctx context.Context, params SignupParams) (models.User, error) {
	var user models.User

	hash, err := s.hasher.Hash(params.Password)
	if err != nil {
		return user, fmt.Errorf("can't use this as password, error=%w", err)
	}

	err = s.storage.InTx(ctx, func(st repository.Storage) error {
		_, err := st.User().GetUserByUsername(ctx, params.FullName)
		switch {
		case err == nil:
			return apperrors.ErrUserAlreadyExists
		case !errors.Is(err, apperrors.ErrUserNotFound):
			return err
		}

		user, err = st.User().CreateUser(ctx, repository.CreateUserParams{
			Email:          params.Email,
			FullName:       params.FullName,
			HashedPassword: hash,
		})
		return err
	})
	if err != nil {
		return models.User{}, err
	}

	s.logger.Info("user signed up", "user_id", user.ID)
	return user, nil
}

// Password grant: check credentials and issue new token pair
// The refresh token is stored on the user and replaces the previous one
func (s *AuthService) Login(ctx context.Context, username string, password string) (models.TokenPair, error) {
	var pair models.TokenPair

	user, err := s.storage.User().GetUserByUsername(ctx, username)
	if err != nil {
		return pair, err
	}

	if err := s.hasher.Compare(user.HashedPassword, password); err != nil {
		return pair, apperrors.ErrInvalidPassword
	}

	if user.Ban {
		return pair, apperrors.ErrUserBanned
	}

	pair, err = s.tokens.GeneratePair(user.Email)
	if err != nil {
		return pair, fmt.Errorf("token could not generated, sorry. %w", err)
	}

	err = s.storage.User().UpdateRefreshToken(ctx, user.ID, &pair.Refresh.Value)
	if err != nil {
		return models.TokenPair{}, err
	}

	return pair, nil
}

// Exchange refresh token for a new pair
// Token has to be not revoked and equal to the one stored on the user.
// If it is not equal the stored token is cleared, so the whole chain has to log in again
func (s *AuthService) Refresh(ctx context.Context, refresh string) (models.TokenPair, error) {
	var pair models.TokenPair

	claims, err := s.tokens.DecodeRefresh(refresh)
	if err != nil {
		return pair, err
	}

	mismatch := false
	err = s.storage.InTx(ctx, func(st repository.Storage) error {
		revoked, err := st.Blacklist().IsBlacklisted(ctx, refresh)
		if err != nil {
			return err
		}
		if revoked {
			return apperrors.ErrRefreshTokenRevoked
		}

		user, err := st.User().GetUserByEmail(ctx, claims.Email, repository.WithForUpdate())
		if err != nil {
			if errors.Is(err, apperrors.ErrUserNotFound) {
				return fmt.Errorf("%w: %w", apperrors.ErrRefreshTokenInvalid, err)
			}
			return err
		}

		// Cleared token has to be committed, so the error is returned after the transaction
		if !user.HasRefreshToken(refresh) {
			mismatch = true
			s.logger.Warn("refresh token mismatch, stored token cleared", "user_id", user.ID)
			return st.User().UpdateRefreshToken(ctx, user.ID, nil)
		}

		pair, err = s.tokens.GeneratePair(user.Email)
		if err != nil {
			return fmt.Errorf("token could not generated, sorry. %w", err)
		}

		return st.User().UpdateRefreshToken(ctx, user.ID, &pair.Refresh.Value)
	})

	switch {
	case err != nil:
		return models.TokenPair{}, err
	case mismatch:
		return models.TokenPair{}, apperrors.ErrRefreshTokenMismatch
	}

	return pair, nil
}

// Revoke user's current refresh token
// Stored token stays on the user, the blacklist is what rejects it later
func (s *AuthService) Logout(ctx context.Context, user models.User) error {
	if user.RefreshToken == nil {
		s.logger.Debug("logout without refresh token", "user_id", user.ID)
		return nil
	}
	token := *user.RefreshToken

	// Entry lives as long as the token itself could be used
	expiresAt := time.Now().Add(s.tokens.RefreshTTL())
	if claims, err := s.tokens.DecodeRefresh(token); err == nil {
		expiresAt = claims.ExpiresAt
	}

	return s.storage.InTx(ctx, func(st repository.Storage) error {
		_, err := st.Blacklist().Add(ctx, user.ID, token, expiresAt)
		return err
	})
}

// Resolve user the access token was issued to
func (s *AuthService) GetCurrentUser(ctx context.Context, access string) (models.User, error) {
	claims, err := s.tokens.ParseAccess(access)
	if err != nil {
		return models.User{}, err
	}

	user, err := s.storage.User().GetUserByEmail(ctx, claims.Email)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return models.User{}, fmt.Errorf("%w: %w", apperrors.ErrAccessTokenInvalid, err)
		}
		return models.User{}, err
	}

	return user, nil
}

// Get user from bearer access token in request header
func (s *AuthService) GetUserFromRequest(ctx context.Context, r *http.Request) (models.User, error) {
	access, err := s.GetBearer(r)
	if err != nil {
		return models.User{}, err
	}

	return s.GetCurrentUser(ctx, access)
}

// Get bearer credential from request header
// Returns apperrors.ErrNotAuthenticated if header is missing or has other scheme
func (s *AuthService) GetBearer(r *http.Request) (string, error) {
	header := r.Header.Get(s.authHeaderName)
	if header == "" {
		return "", apperrors.ErrNotAuthenticated
	}

	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, s.authScheme) {
		return "", apperrors.ErrNotAuthenticated
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", apperrors.ErrNotAuthenticated
	}

	return token, nil
}
