package domain

import "time"

// XenditDisbursementRequest is the body of POST /disbursements.
type XenditDisbursementRequest struct {
	ExternalID        string  `json:"external_id"`
	Amount            float64 `json:"amount"`
	BankCode          string  `json:"bank_code"`
	AccountHolderName string  `json:"account_holder_name"`
	AccountNumber     string  `json:"account_number"`
	Description       string  `json:"description"`
}

type XenditDisbursementResponse struct {
	ID                      string    `json:"id"`
	UserID                  string    `json:"user_id"`
	ExternalID              string    `json:"external_id"`
	Amount                  float64   `json:"amount"`
	BankCode                string    `json:"bank_code"`
	AccountHolderName       string    `json:"account_holder_name"`
	DisbursementDescription string    `json:"disbursement_description"`
	Status                  string    `json:"status"`
	Created                 time.Time `json:"created"`
}

type XenditErrorResponse struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}
