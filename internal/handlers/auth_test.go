package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/nkiryanov/authsvc/internal/logger"
	"github.com/nkiryanov/authsvc/internal/repository"
	"github.com/nkiryanov/authsvc/internal/repository/postgres"
	"github.com/nkiryanov/authsvc/internal/service/auth"
	"github.com/nkiryanov/authsvc/internal/service/auth/tokenmanager"
	"github.com/nkiryanov/authsvc/internal/testutil"
)

type testResponse struct {
	Code int
	Body string
}

func (r testResponse) tokens(t *testing.T) tokenResponse {
	var tokens tokenResponse
	err := json.Unmarshal([]byte(r.Body), &tokens)
	require.NoError(t, err, "token response expected. Body: %s", r.Body)
	return tokens
}

func do(t *testing.T, req *http.Request) testResponse {
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	return testResponse{Code: resp.StatusCode, Body: string(body)}
}

func Test_AuthHandler(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	// Run http server with production router and auth service on top of test transaction
	withTx := func(dbpool *pgxpool.Pool, t *testing.T, fn func(url string, storage repository.Storage)) {
		testutil.WithTx(dbpool, t, func(tx pgx.Tx) {
			storage := postgres.NewStorage(tx)

			tokenManager, err := tokenmanager.New(tokenmanager.Config{SecretKey: "test-secret"})
			require.NoError(t, err, "token manager should be created without errors")

			s, err := auth.NewService(auth.Config{Hasher: auth.BcryptHasher{Cost: bcrypt.MinCost}}, tokenManager, storage)
			require.NoError(t, err, "auth service starting error", err)

			srv := httptest.NewServer(NewRouter(s, logger.NewNoOpLogger(), nil))
			defer srv.Close()

			fn(srv.URL, storage)
		})
	}

	signup := func(t *testing.T, baseURL string, data string) testResponse {
		req, err := http.NewRequest(http.MethodPost, baseURL+"/auth/signup", strings.NewReader(data))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		return do(t, req)
	}

	login := func(t *testing.T, baseURL string, username string, password string) testResponse {
		form := url.Values{"username": {username}, "password": {password}}
		req, err := http.NewRequest(http.MethodPost, baseURL+"/auth/login", strings.NewReader(form.Encode()))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return do(t, req)
	}

	refresh := func(t *testing.T, baseURL string, token string) testResponse {
		req, err := http.NewRequest(http.MethodGet, baseURL+"/auth/refresh_token", nil)
		require.NoError(t, err)
		if token != "" {
			req.Header.Set("Authorization", testutil.Bearer(token))
		}
		return do(t, req)
	}

	logout := func(t *testing.T, baseURL string, token string) testResponse {
		req, err := http.NewRequest(http.MethodPost, baseURL+"/auth/logout", nil)
		require.NoError(t, err)
		if token != "" {
			req.Header.Set("Authorization", testutil.Bearer(token))
		}
		return do(t, req)
	}

	const alice = `{"full_name": "alice", "email": "alice@example.com", "password": "secret-pwd"}`

	t.Run("signup ok", func(t *testing.T) {
		withTx(pg.Pool, t, func(url string, storage repository.Storage) {
			resp := signup(t, url, alice)

			require.Equalf(t, http.StatusCreated, resp.Code, "not expected code. Body: %s", resp.Body)

			var body map[string]any
			err := json.Unmarshal([]byte(resp.Body), &body)
			require.NoError(t, err)
			assert.Equal(t, "alice", body["full_name"])
			assert.Equal(t, "alice@example.com", body["email"])
			assert.NotEmpty(t, body["id"])
			assert.NotEmpty(t, body["created_at"])
			assert.NotContains(t, body, "password")
			assert.NotContains(t, resp.Body, "secret-pwd", "password must not be returned")
		})
	})

	t.Run("signup conflict", func(t *testing.T) {
		withTx(pg.Pool, t, func(url string, storage repository.Storage) {
			resp := signup(t, url, alice)
			require.Equal(t, http.StatusCreated, resp.Code)

			resp = signup(t, url, `{"full_name": "alice", "email": "new@example.com", "password": "secret-pwd"}`)

			require.Equalf(t, http.StatusConflict, resp.Code, "not expected code. Body: %s", resp.Body)
			require.JSONEq(t, `
				{
					"error": "service_error",
					"message": "Account already exists"
				}`, resp.Body)
		})
	})

	t.Run("signup validation failed", func(t *testing.T) {
		withTx(pg.Pool, t, func(url string, storage repository.Storage) {
			resp := signup(t, url, `{"full_name": "a", "email": "not-email", "password": "123"}`)

			require.Equalf(t, http.StatusBadRequest, resp.Code, "not expected code. Body: %s", resp.Body)
			require.JSONEq(t, `
				{
					"error": "validation_failed",
					"message": "Request validation failed",
					"fields": {
						"full_name": "Value is too short (minimum 2)",
						"email": "Invalid email address",
						"password": "Value is too short (minimum 6)"
					}
				}`, resp.Body)
		})
	})

	t.Run("login ok", func(t *testing.T) {
		withTx(pg.Pool, t, func(url string, storage repository.Storage) {
			require.Equal(t, http.StatusCreated, signup(t, url, alice).Code)

			resp := login(t, url, "alice", "secret-pwd")

			require.Equalf(t, http.StatusOK, resp.Code, "not expected code. Body: %s", resp.Body)
			tokens := resp.tokens(t)
			assert.NotEmpty(t, tokens.AccessToken)
			assert.NotEmpty(t, tokens.RefreshToken)
			assert.Equal(t, "bearer", tokens.TokenType)
		})
	})

	t.Run("login failed", func(t *testing.T) {
		tests := []struct {
			name     string
			username string
			password string
			ban      bool
			message  string
		}{
			{name: "unknown user", username: "bob", password: "secret-pwd", message: "Invalid email"},
			{name: "wrong password", username: "alice", password: "wrong-pwd", message: "Invalid password"},
			{name: "banned", username: "alice", password: "secret-pwd", ban: true, message: "You were banned by an administrator"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				withTx(pg.Pool, t, func(url string, storage repository.Storage) {
					require.Equal(t, http.StatusCreated, signup(t, url, alice).Code)
					if tt.ban {
						user, err := storage.User().GetUserByUsername(t.Context(), "alice")
						require.NoError(t, err)
						require.NoError(t, storage.User().SetBan(t.Context(), user.ID, true))
					}

					resp := login(t, url, tt.username, tt.password)

					require.Equalf(t, http.StatusUnauthorized, resp.Code, "not expected code. Body: %s", resp.Body)
					require.JSONEq(t, `{"error": "service_error", "message": "`+tt.message+`"}`, resp.Body)
				})
			})
		}
	})

	t.Run("login without password", func(t *testing.T) {
		withTx(pg.Pool, t, func(url string, storage repository.Storage) {
			resp := login(t, url, "alice", "")

			require.Equalf(t, http.StatusBadRequest, resp.Code, "not expected code. Body: %s", resp.Body)
			require.Contains(t, resp.Body, "validation_failed")
		})
	})

	t.Run("refresh ok", func(t *testing.T) {
		withTx(pg.Pool, t, func(url string, storage repository.Storage) {
			require.Equal(t, http.StatusCreated, signup(t, url, alice).Code)
			initial := login(t, url, "alice", "secret-pwd").tokens(t)

			resp := refresh(t, url, initial.RefreshToken)

			require.Equalf(t, http.StatusOK, resp.Code, "not expected code. Body: %s", resp.Body)
			rotated := resp.tokens(t)
			assert.NotEqual(t, initial.RefreshToken, rotated.RefreshToken)
			assert.Equal(t, "bearer", rotated.TokenType)
		})
	})

	t.Run("refresh with stale token clears stored one", func(t *testing.T) {
		withTx(pg.Pool, t, func(url string, storage repository.Storage) {
			require.Equal(t, http.StatusCreated, signup(t, url, alice).Code)
			initial := login(t, url, "alice", "secret-pwd").tokens(t)
			rotated := refresh(t, url, initial.RefreshToken).tokens(t)

			resp := refresh(t, url, initial.RefreshToken)

			require.Equalf(t, http.StatusUnauthorized, resp.Code, "not expected code. Body: %s", resp.Body)
			require.JSONEq(t, `{"error": "service_error", "message": "Invalid refresh token"}`, resp.Body)

			user, err := storage.User().GetUserByUsername(t.Context(), "alice")
			require.NoError(t, err)
			require.Nil(t, user.RefreshToken)

			resp = refresh(t, url, rotated.RefreshToken)
			require.Equal(t, http.StatusUnauthorized, resp.Code, "rotated token is not usable after mismatch")
		})
	})

	t.Run("refresh failed", func(t *testing.T) {
		withTx(pg.Pool, t, func(url string, storage repository.Storage) {
			require.Equal(t, http.StatusCreated, signup(t, url, alice).Code)
			tokens := login(t, url, "alice", "secret-pwd").tokens(t)

			tests := []struct {
				name    string
				token   string
				message string
			}{
				{name: "no header", token: "", message: "Not authenticated"},
				{name: "garbage token", token: "not-a-jwt", message: "Could not validate credentials"},
				{name: "access token", token: tokens.AccessToken, message: "Could not validate credentials"},
			}

			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					resp := refresh(t, url, tt.token)

					require.Equalf(t, http.StatusUnauthorized, resp.Code, "not expected code. Body: %s", resp.Body)
					require.JSONEq(t, `{"error": "service_error", "message": "`+tt.message+`"}`, resp.Body)
				})
			}
		})
	})

	t.Run("logout then refresh is rejected", func(t *testing.T) {
		withTx(pg.Pool, t, func(url string, storage repository.Storage) {
			require.Equal(t, http.StatusCreated, signup(t, url, alice).Code)
			tokens := login(t, url, "alice", "secret-pwd").tokens(t)

			resp := logout(t, url, tokens.AccessToken)

			require.Equalf(t, http.StatusOK, resp.Code, "not expected code. Body: %s", resp.Body)
			require.JSONEq(t, `{"message": "Logout successful."}`, resp.Body)

			resp = refresh(t, url, tokens.RefreshToken)
			require.Equalf(t, http.StatusUnauthorized, resp.Code, "not expected code. Body: %s", resp.Body)
			require.JSONEq(t, `{"error": "service_error", "message": "Invalid refresh token"}`, resp.Body)
		})
	})

	t.Run("logout unauthenticated", func(t *testing.T) {
		withTx(pg.Pool, t, func(url string, storage repository.Storage) {
			require.Equal(t, http.StatusCreated, signup(t, url, alice).Code)
			tokens := login(t, url, "alice", "secret-pwd").tokens(t)

			tests := []struct {
				name  string
				token string
			}{
				{name: "no header", token: ""},
				{name: "refresh token instead of access", token: tokens.RefreshToken},
				{name: "garbage", token: "not-a-jwt"},
			}

			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					resp := logout(t, url, tt.token)

					require.Equalf(t, http.StatusUnauthorized, resp.Code, "not expected code. Body: %s", resp.Body)
					require.JSONEq(t, `{"error": "service_error", "message": "Could not validate credentials"}`, resp.Body)
				})
			}
		})
	})

	t.Run("wrong method", func(t *testing.T) {
		withTx(pg.Pool, t, func(url string, storage repository.Storage) {
			req, err := http.NewRequest(http.MethodGet, url+"/auth/login", nil)
			require.NoError(t, err)

			resp := do(t, req)

			require.Equal(t, http.StatusMethodNotAllowed, resp.Code)
		})
	})
}
