package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"electroCare/business/policy"
	"electroCare/domain"
	"electroCare/pkg/config"
	"electroCare/pkg/utils"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSessions map[string]string

func (f fakeSessions) ValidateToken(_ context.Context, token string) (string, error) {
	id, ok := f[token]
	if !ok {
		return "", domain.ErrUnauthorized
	}
	return id, nil
}

type fakeUsers map[uint]domain.User

func (f fakeUsers) FindByID(_ context.Context, id uint) (domain.User, error) {
	u, ok := f[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func errorCodeOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error.Code
}

func TestAuthMiddleware(t *testing.T) {
	utils.SetJWTConfig("test-secret", time.Hour)

	token, err := utils.GenerateJWT("7", domain.RoleUser)
	require.NoError(t, err)
	orphan, err := utils.GenerateJWT("8", domain.RoleUser)
	require.NoError(t, err)
	stolen, err := utils.GenerateJWT("9", domain.RoleUser)
	require.NoError(t, err)

	sessions := fakeSessions{token: "7", orphan: "8", stolen: "7"}
	// Promoted after the token was issued.
	users := fakeUsers{7: {ID: 7, Role: domain.RoleTechnician}}

	e := echo.New()
	auth := AuthMiddleware(sessions, users)
	handler := auth(func(c echo.Context) error {
		actor, ok := ActorFrom(c)
		require.True(t, ok)
		return c.JSON(http.StatusOK, map[string]any{"id": actor.ID, "role": actor.Role, "token": c.Get("token")})
	})

	tests := []struct {
		name       string
		header     string
		query      string
		wantStatus int
	}{
		{"bearer header", "Bearer " + token, "", http.StatusOK},
		{"query token", "", "?access_token=" + token, http.StatusOK},
		{"missing", "", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, "", http.StatusUnauthorized},
		{"garbage token", "Bearer not-a-jwt", "", http.StatusUnauthorized},
		{"revoked session", "Bearer " + mustToken(t, "7"), "", http.StatusUnauthorized},
		{"session for another user", "Bearer " + stolen, "", http.StatusUnauthorized},
		{"deleted user", "Bearer " + orphan, "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/auth/me"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}
			rec := httptest.NewRecorder()

			require.NoError(t, handler(e.NewContext(req, rec)))
			assert.Equal(t, tt.wantStatus, rec.Code)

			if tt.wantStatus == http.StatusOK {
				var body map[string]any
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.Equal(t, domain.RoleTechnician, body["role"], "role comes from the users table")
				assert.Equal(t, token, body["token"])
			} else {
				assert.Equal(t, "UNAUTHORIZED", errorCodeOf(t, rec))
			}
		})
	}
}

func mustToken(t *testing.T, userID string) string {
	t.Helper()

	// A second token for the same user with a distinct expiry never stored
	// in the session map.
	utils.SetJWTConfig("test-secret", 2*time.Hour)
	defer utils.SetJWTConfig("test-secret", time.Hour)

	token, err := utils.GenerateJWT(userID, domain.RoleUser)
	require.NoError(t, err)
	return token
}

func TestRequireAction(t *testing.T) {
	e := echo.New()
	ok := func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }

	tests := []struct {
		name       string
		role       any
		action     policy.Action
		wantStatus int
	}{
		{"technician updates status", domain.RoleTechnician, policy.RepairUpdateStatus, http.StatusNoContent},
		{"user cannot update status", domain.RoleUser, policy.RepairUpdateStatus, http.StatusForbidden},
		{"shop reviews listings", domain.RoleShop, policy.ListingReview, http.StatusNoContent},
		{"admin cannot apply", domain.RoleAdmin, policy.ApplicationSubmit, http.StatusForbidden},
		{"unauthenticated", nil, policy.WalletUse, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)
			if tt.role != nil {
				c.Set("user_id", uint(1))
				c.Set("role", tt.role)
			}

			require.NoError(t, RequireAction(tt.action)(ok)(c))
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestErrorHandler(t *testing.T) {
	e := echo.New()

	t.Run("echo error keeps status", func(t *testing.T) {
		rec := httptest.NewRecorder()
		ErrorHandler(echo.NewHTTPError(http.StatusNotFound, "route not found"), e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec))

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "NOT_FOUND", errorCodeOf(t, rec))
		assert.Contains(t, rec.Body.String(), "route not found")
	})

	t.Run("unknown error is hidden", func(t *testing.T) {
		rec := httptest.NewRecorder()
		ErrorHandler(errors.New("pq: connection reset"), e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "pq:")
	})
}

func TestRequestLoggerPassesErrorsToHandler(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler
	e.Use(RequestLogger())
	e.GET("/boom", func(c echo.Context) error { return errors.New("boom") })
	e.GET("/ok", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit(t *testing.T) {
	e := echo.New()
	next := func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }

	t.Run("disabled passes through", func(t *testing.T) {
		mw := RateLimit(config.RateLimitConfig{Enabled: false}, nil)
		rec := httptest.NewRecorder()
		require.NoError(t, mw(next)(e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("no redis passes through", func(t *testing.T) {
		mw := RateLimit(config.RateLimitConfig{Enabled: true, Capacity: 1}, nil)
		for range 3 {
			rec := httptest.NewRecorder()
			require.NoError(t, mw(next)(e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)))
			assert.Equal(t, http.StatusNoContent, rec.Code)
		}
	})

	t.Run("key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.Header.Set(echo.HeaderXRealIP, "10.0.0.1")
		c := e.NewContext(req, httptest.NewRecorder())
		c.SetPath("/api/auth/login")
		assert.Equal(t, "rl:ip:10.0.0.1:user:anon:route:POST /api/auth/login", rateKey("rl", c))

		c.Set("user_id", uint(42))
		assert.Equal(t, "rl:ip:10.0.0.1:user:42:route:POST /api/auth/login", rateKey("rl", c))
	})
}
