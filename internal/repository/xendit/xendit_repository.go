package xendit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"electroCare/domain"
)

type XenditConfig struct {
	XenditApi string
	XenditUrl string
}

// XenditRepository sends withdrawal payouts through the Xendit
// disbursement API.
type XenditRepository struct {
	xenditConfig XenditConfig
	client       *http.Client
}

func NewXenditRepository(cfg XenditConfig) *XenditRepository {
	return &XenditRepository{
		xenditConfig: cfg,
		client:       &http.Client{Timeout: 15 * time.Second},
	}
}

var bankCodes = map[string]string{
	domain.WithdrawalMethodMpesa: "MPESA",
	domain.WithdrawalMethodBank:  "BANK_TRANSFER",
}

func (r *XenditRepository) Disburse(ctx context.Context, req domain.PayoutRequest) (domain.PayoutResult, error) {
	bankCode, ok := bankCodes[req.Method]
	if !ok {
		return domain.PayoutResult{}, fmt.Errorf("unsupported payout method %q: %w", req.Method, domain.ErrInvalidInput)
	}

	amount, _ := req.Amount.Float64()
	body, err := json.Marshal(domain.XenditDisbursementRequest{
		ExternalID:        req.ExternalID,
		Amount:            amount,
		BankCode:          bankCode,
		AccountHolderName: req.AccountName,
		AccountNumber:     req.Account,
		Description:       req.Description,
	})
	if err != nil {
		return domain.PayoutResult{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.xenditConfig.XenditUrl, bytes.NewReader(body))
	if err != nil {
		return domain.PayoutResult{}, err
	}
	httpReq.Header.Add("Content-Type", "application/json")
	httpReq.Header.Add("X-IDEMPOTENCY-KEY", req.ExternalID)
	httpReq.SetBasicAuth(r.xenditConfig.XenditApi, "")

	res, err := r.client.Do(httpReq)
	if err != nil {
		return domain.PayoutResult{}, fmt.Errorf("payout request failed: %v: %w", err, domain.ErrUpstream)
	}
	defer res.Body.Close()

	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		return domain.PayoutResult{}, err
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		var xErr domain.XenditErrorResponse
		_ = json.Unmarshal(resBody, &xErr)
		return domain.PayoutResult{}, fmt.Errorf("payout rejected (%d %s): %w", res.StatusCode, xErr.ErrorCode, domain.ErrUpstream)
	}

	var disbursement domain.XenditDisbursementResponse
	if err := json.Unmarshal(resBody, &disbursement); err != nil {
		return domain.PayoutResult{}, fmt.Errorf("invalid payout response: %w", domain.ErrUpstream)
	}

	if strings.EqualFold(disbursement.Status, "FAILED") {
		return domain.PayoutResult{}, fmt.Errorf("payout %s failed: %w", disbursement.ID, domain.ErrUpstream)
	}

	return domain.PayoutResult{
		Reference: disbursement.ID,
		Status:    disbursement.Status,
	}, nil
}
