package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendEmail(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		var got payloadSendEmail
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v3.1/send", r.URL.Path)
			assert.True(t, strings.HasPrefix(r.Header.Get("Authorization"), "Basic "))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		repo := NewMailjetRepository(MailjetConfig{
			MailjetBaseURL:           srv.URL,
			MailjetBasicAuthUsername: "key",
			MailjetBasicAuthPassword: "secret",
			MailjetSenderEmail:       "noreply@electrocare.app",
			MailjetSenderName:        "ElectroCare",
		})

		err := repo.SendEmail(context.Background(), "Ada", "ada@example.com", "Hello", "<b>hi</b>")
		require.NoError(t, err)

		require.Len(t, got.Messages, 1)
		assert.Equal(t, "ada@example.com", got.Messages[0].To[0].Email)
		assert.Equal(t, "Hello", got.Messages[0].Subject)
		assert.Equal(t, "noreply@electrocare.app", got.Messages[0].From.Email)
	})

	t.Run("negative response", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer srv.Close()

		repo := NewMailjetRepository(MailjetConfig{MailjetBaseURL: srv.URL})
		err := repo.SendEmail(context.Background(), "Ada", "ada@example.com", "Hello", "hi")
		assert.EqualError(t, err, "mailer service return negative response 401")
	})
}
