package tokenmanager

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/nkiryanov/authsvc/internal/apperrors"
	"github.com/nkiryanov/authsvc/internal/models"
)

const (
	defaultAccessTokenTTL  = 15 * time.Minute
	defaultSigningMethod   = "HS256"
	defaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// Values of 'scope' claim: the same secret signs both tokens, scope tells them apart
const (
	ScopeAccess  = "access_token"
	ScopeRefresh = "refresh_token"
)

type Claims struct {
	jwt.RegisteredClaims
	Scope string `json:"scope"`
}

// Token manager with sensible default
type Config struct {
	// Secret key to sign tokens
	// Required to be set
	SecretKey string

	// JWT MAC (Message Authentication Code) algorithm
	// If not set than default is used
	Alg string

	// Access and refresh token lifetimes
	// If not set than default is used
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type TokenManager struct {
	// Secret key to sign tokens
	key string

	// JWT MAC (Message Authentication Code) algorithm
	alg jwt.SigningMethod

	// Access and refresh token lifetimes
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func New(cfg Config) (*TokenManager, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("secret key must not be empty")
	}

	if cfg.Alg == "" {
		cfg.Alg = defaultSigningMethod
	}

	alg := jwt.GetSigningMethod(cfg.Alg)
	if _, ok := alg.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("signing method %q is not supported, use one of HMAC", cfg.Alg)
	}

	setDefaultDuration := func(field *time.Duration, def time.Duration) {
		if *field == 0 {
			*field = def
		}
	}
	setDefaultDuration(&cfg.AccessTTL, defaultAccessTokenTTL)
	setDefaultDuration(&cfg.RefreshTTL, defaultRefreshTokenTTL)

	return &TokenManager{
		key:        cfg.SecretKey,
		alg:        alg,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
	}, nil
}

func (m *TokenManager) RefreshTTL() time.Duration {
	return m.refreshTTL
}

// Issue access and refresh tokens with email as subject
func (m *TokenManager) GeneratePair(email string) (models.TokenPair, error) {
	var pair models.TokenPair
	now := time.Now().Truncate(time.Second)

	access, err := m.issue(email, ScopeAccess, now, m.accessTTL)
	if err != nil {
		return pair, fmt.Errorf("error while signing access token. Err: %w", err)
	}

	refresh, err := m.issue(email, ScopeRefresh, now, m.refreshTTL)
	if err != nil {
		return pair, fmt.Errorf("error while signing refresh token. Err: %w", err)
	}

	return models.TokenPair{Access: access, Refresh: refresh}, nil
}

func (m *TokenManager) issue(email string, scope string, now time.Time, ttl time.Duration) (models.IssuedToken, error) {
	expiresAt := now.Add(ttl)

	// jti makes tokens issued within the same second different
	token := jwt.NewWithClaims(
		m.alg,
		Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				ID:        uuid.NewString(),
				Subject:   email,
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(expiresAt),
			},
			Scope: scope,
		},
	)

	value, err := token.SignedString([]byte(m.key))
	if err != nil {
		return models.IssuedToken{}, err
	}

	return models.IssuedToken{Value: value, ExpiresAt: expiresAt}, nil
}

// Parse and validate refresh token
// Any failure is reported as apperrors.ErrRefreshTokenInvalid
func (m *TokenManager) DecodeRefresh(refresh string) (models.TokenClaims, error) {
	claims, err := m.parse(refresh, ScopeRefresh)
	if err != nil {
		return claims, fmt.Errorf("%w: %w", apperrors.ErrRefreshTokenInvalid, err)
	}
	return claims, nil
}

// Parse and validate access token
// Any failure is reported as apperrors.ErrAccessTokenInvalid
func (m *TokenManager) ParseAccess(access string) (models.TokenClaims, error) {
	claims, err := m.parse(access, ScopeAccess)
	if err != nil {
		return claims, fmt.Errorf("%w: %w", apperrors.ErrAccessTokenInvalid, err)
	}
	return claims, nil
}

func (m *TokenManager) parse(value string, scope string) (models.TokenClaims, error) {
	claims := &Claims{}

	_, err := jwt.ParseWithClaims(
		value,
		claims,
		func(t *jwt.Token) (any, error) {
			return []byte(m.key), nil
		},
		jwt.WithValidMethods([]string{m.alg.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		return models.TokenClaims{}, fmt.Errorf("error while parsing or validating token. Err: %w", err)
	}

	if claims.Scope != scope {
		return models.TokenClaims{}, fmt.Errorf("invalid scope for token: %q", claims.Scope)
	}

	if claims.Subject == "" {
		return models.TokenClaims{}, errors.New("token has no subject")
	}

	return models.TokenClaims{
		ID:        claims.ID,
		Email:     claims.Subject,
		Scope:     claims.Scope,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
