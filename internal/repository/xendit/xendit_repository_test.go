package xendit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"electroCare/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisburse(t *testing.T) {
	payout := domain.PayoutRequest{
		ExternalID:  "wd-1",
		Amount:      decimal.NewFromInt(25),
		Method:      domain.WithdrawalMethodMpesa,
		Account:     "254700000000",
		AccountName: "Ada",
		Description: "withdrawal",
	}

	t.Run("success", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, _, ok := r.BasicAuth()
			assert.True(t, ok)
			assert.Equal(t, "xnd_secret", user)
			assert.Equal(t, "wd-1", r.Header.Get("X-IDEMPOTENCY-KEY"))

			var body domain.XenditDisbursementRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "MPESA", body.BankCode)
			assert.Equal(t, 25.0, body.Amount)

			_ = json.NewEncoder(w).Encode(domain.XenditDisbursementResponse{ID: "disb_1", Status: "PENDING"})
		}))
		defer srv.Close()

		repo := NewXenditRepository(XenditConfig{XenditApi: "xnd_secret", XenditUrl: srv.URL})
		res, err := repo.Disburse(context.Background(), payout)
		require.NoError(t, err)
		assert.Equal(t, "disb_1", res.Reference)
	})

	t.Run("provider error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error_code":"INVALID_DESTINATION","message":"bad account"}`))
		}))
		defer srv.Close()

		repo := NewXenditRepository(XenditConfig{XenditUrl: srv.URL})
		_, err := repo.Disburse(context.Background(), payout)
		assert.True(t, errors.Is(err, domain.ErrUpstream))
		assert.Contains(t, err.Error(), "INVALID_DESTINATION")
	})

	t.Run("unsupported method", func(t *testing.T) {
		repo := NewXenditRepository(XenditConfig{XenditUrl: "http://unused"})
		bad := payout
		bad.Method = "paypal"
		_, err := repo.Disburse(context.Background(), bad)
		assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	})
}
