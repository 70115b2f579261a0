package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TransactionTopUp              = "top_up"
	TransactionPoints             = "POINTS"
	TransactionRedeem             = "redeem"
	TransactionElectroCoin        = "electro_coin_redemption"
	TransactionWithdrawal         = "withdrawal"
	TransactionWithdrawalReleased = "withdrawal_released"
	TransactionReferralBonus      = "referral_bonus"

	// PointsPerDollar is the points-to-balance redemption rate.
	PointsPerDollar = 100
	// MinWithdrawalAmount is the smallest amount a withdrawal may request.
	MinWithdrawalAmount = 10
)

const (
	WithdrawalMethodMpesa = "mpesa"
	WithdrawalMethodBank  = "bank"

	WithdrawalPending  = "pending"
	WithdrawalApproved = "approved"
	WithdrawalRejected = "rejected"
	WithdrawalFailed   = "failed"
)

// Wallet holds a user's funds. Reserved is the part of Balance held by
// pending withdrawals and is not spendable.
type Wallet struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	UserID       uint            `gorm:"column:user_id;unique;not null" json:"user_id"`
	Balance      decimal.Decimal `gorm:"column:balance;type:numeric(14,2);not null;default:0" json:"balance"`
	Reserved     decimal.Decimal `gorm:"column:reserved;type:numeric(14,2);not null;default:0" json:"reserved"`
	Points       int64           `gorm:"column:points;not null;default:0" json:"points"`
	ElectroCoins int64           `gorm:"column:electro_coins;not null;default:0" json:"electro_coins"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func (Wallet) TableName() string {
	return "wallets"
}

// IsMoney reports whether d fits the two decimal place money columns
// without rounding.
func IsMoney(d decimal.Decimal) bool {
	return d.Equal(d.Round(2))
}

func (w Wallet) Spendable() decimal.Decimal {
	return w.Balance.Sub(w.Reserved)
}

// Transaction is an append-only ledger row. Every column is a signed delta
// of the matching wallet field: Amount moves Balance, Held moves Reserved.
// Summing a wallet's rows yields its current state.
type Transaction struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	WalletID     uint            `gorm:"column:wallet_id;not null;index" json:"wallet_id"`
	UserID       uint            `gorm:"column:user_id;not null;index" json:"user_id"`
	Type         string          `gorm:"column:type;not null" json:"type"`
	Amount       decimal.Decimal `gorm:"column:amount;type:numeric(14,2);not null" json:"amount"`
	Held         decimal.Decimal `gorm:"column:held;type:numeric(14,2);not null;default:0" json:"held"`
	Points       int64           `gorm:"column:points;not null;default:0" json:"points"`
	ElectroCoins int64           `gorm:"column:electro_coins;not null;default:0" json:"electro_coins"`
	Description  string          `gorm:"column:description" json:"description"`
	CreatedAt    time.Time       `json:"created_at"`
}

func (Transaction) TableName() string {
	return "transactions"
}

func WithdrawalRequestType(method string) string {
	return "withdrawal_" + method
}

type Withdrawal struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	UserID     uint            `gorm:"column:user_id;not null;index" json:"user_id"`
	WalletID   uint            `gorm:"column:wallet_id;not null" json:"wallet_id"`
	Amount     decimal.Decimal `gorm:"column:amount;type:numeric(14,2);not null" json:"amount"`
	Method     string          `gorm:"column:method;not null" json:"method"`
	Account    string          `gorm:"column:account;not null" json:"account"`
	Status     string          `gorm:"column:status;default:pending" json:"status"`
	PayoutRef  string          `gorm:"column:payout_ref" json:"payout_ref,omitempty"`
	Reason     string          `gorm:"column:reason" json:"reason,omitempty"`
	ReviewedBy *uint           `gorm:"column:reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt *time.Time      `gorm:"column:reviewed_at" json:"reviewed_at,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func (Withdrawal) TableName() string {
	return "withdrawals"
}

// PayoutRequest is sent to the external disbursement provider.
type PayoutRequest struct {
	ExternalID  string
	Amount      decimal.Decimal
	Method      string
	Account     string
	AccountName string
	Description string
}

type PayoutResult struct {
	Reference string
	Status    string
}
