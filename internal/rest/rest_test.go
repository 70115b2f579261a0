package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"electroCare/domain"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newContext builds a request context as the auth middleware would leave it.
// A nil actor leaves the request unauthenticated.
func newContext(method, target, body string, actor *domain.Actor) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}

	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if actor != nil {
		c.Set("user_id", actor.ID)
		c.Set("role", actor.Role)
		c.Set("token", "session-token")
	}

	return c, rec
}

func withID(c echo.Context, id string) echo.Context {
	c.SetParamNames("id")
	c.SetParamValues(id)
	return c
}

func decodeMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var body ResponseError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Message
}

func TestStatusFromError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("bad price: %w", domain.ErrInvalidInput), http.StatusBadRequest},
		{domain.ErrUnauthorized, http.StatusUnauthorized},
		{fmt.Errorf("role user: %w", domain.ErrForbidden), http.StatusForbidden},
		{fmt.Errorf("repair 4: %w", domain.ErrNotFound), http.StatusNotFound},
		{domain.ErrConflict, http.StatusConflict},
		{fmt.Errorf("pending to pending: %w", domain.ErrInvalidTransition), http.StatusConflict},
		{domain.ErrInsufficientFunds, http.StatusUnprocessableEntity},
		{fmt.Errorf("xendit: %w", domain.ErrUpstream), http.StatusBadGateway},
		{errors.New("driver: bad connection"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFromError(tt.err))
		})
	}
}

func TestErrorResponseHidesInternalErrors(t *testing.T) {
	c, rec := newContext(http.MethodGet, "/", "", nil)

	require.NoError(t, errorResponse(c, errors.New("pq: password authentication failed")))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", decodeMessage(t, rec))
}

func TestParamID(t *testing.T) {
	c, _ := newContext(http.MethodGet, "/", "", nil)

	id, err := paramID(withID(c, "12"), "id")
	require.NoError(t, err)
	assert.Equal(t, uint(12), id)

	for _, raw := range []string{"0", "-1", "abc", ""} {
		_, err := paramID(withID(c, raw), "id")
		assert.Error(t, err, raw)
	}
}
