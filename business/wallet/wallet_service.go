package wallet

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"electroCare/business/policy"
	"electroCare/domain"
	"electroCare/pkg/logger"
	"electroCare/pkg/metrics"

	"github.com/shopspring/decimal"
)

// WalletRepository contract interface
type WalletRepository interface {
	Create(ctx context.Context, wallet *domain.Wallet) error
	FindByUserID(ctx context.Context, userID uint) (domain.Wallet, error)
	FindByUserIDForUpdate(ctx context.Context, userID uint) (domain.Wallet, error)
	Update(ctx context.Context, wallet *domain.Wallet) error
	CreateTransaction(ctx context.Context, tx *domain.Transaction) error
	ListTransactions(ctx context.Context, userID uint) ([]domain.Transaction, error)

	CreateWithdrawal(ctx context.Context, w *domain.Withdrawal) error
	FindWithdrawalForUpdate(ctx context.Context, id uint) (domain.Withdrawal, error)
	UpdateWithdrawal(ctx context.Context, w *domain.Withdrawal) error
	ListWithdrawals(ctx context.Context, status string) ([]domain.Withdrawal, error)
	ListWithdrawalsByUser(ctx context.Context, userID uint) ([]domain.Withdrawal, error)
}

type UserRepository interface {
	FindByID(ctx context.Context, id uint) (domain.User, error)
}

// PayoutRepository sends money out of the platform.
type PayoutRepository interface {
	Disburse(ctx context.Context, req domain.PayoutRequest) (domain.PayoutResult, error)
}

type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type walletService struct {
	walletRepo WalletRepository
	userRepo   UserRepository
	payoutRepo PayoutRepository
	tx         Transactor
	now        func() time.Time
}

func NewWalletService(walletRepo WalletRepository, userRepo UserRepository, payoutRepo PayoutRepository, tx Transactor) *walletService {
	return &walletService{
		walletRepo: walletRepo,
		userRepo:   userRepo,
		payoutRepo: payoutRepo,
		tx:         tx,
		now:        time.Now,
	}
}

type WithdrawalInput struct {
	Amount  decimal.Decimal
	Method  string
	Account string
}

// GetWallet returns the user's wallet, creating an empty one for accounts
// that predate wallets.
func (s *walletService) GetWallet(ctx context.Context, userID uint) (domain.Wallet, error) {
	wallet, err := s.walletRepo.FindByUserID(ctx, userID)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		logger.Error("Failed to get wallet", err)
		return domain.Wallet{}, err
	}

	wallet = domain.Wallet{UserID: userID}
	if err := s.walletRepo.Create(ctx, &wallet); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return s.walletRepo.FindByUserID(ctx, userID)
		}
		logger.Error("Failed to create wallet", err)
		return domain.Wallet{}, err
	}

	return wallet, nil
}

func (s *walletService) ListTransactions(ctx context.Context, userID uint) ([]domain.Transaction, error) {
	txs, err := s.walletRepo.ListTransactions(ctx, userID)
	if err != nil {
		logger.Error("Failed to list transactions", err)
		return nil, err
	}

	return txs, nil
}

// mutate runs fn against the locked wallet and stores the wallet together
// with the ledger row fn returns.
func (s *walletService) mutate(ctx context.Context, userID uint, operation string, fn func(ctx context.Context, w *domain.Wallet) (domain.Transaction, error)) (domain.Wallet, error) {
	var wallet domain.Wallet
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		wallet, err = s.lockWallet(ctx, userID)
		if err != nil {
			return err
		}

		entry, err := fn(ctx, &wallet)
		if err != nil {
			return err
		}

		if err := s.walletRepo.Update(ctx, &wallet); err != nil {
			return err
		}

		entry.WalletID = wallet.ID
		entry.UserID = wallet.UserID
		return s.walletRepo.CreateTransaction(ctx, &entry)
	})
	if err != nil {
		logger.Error("Wallet operation failed", err, "operation", operation, "user_id", userID)
		return domain.Wallet{}, err
	}

	metrics.WalletOperations.WithLabelValues(operation).Inc()

	return wallet, nil
}

func (s *walletService) lockWallet(ctx context.Context, userID uint) (domain.Wallet, error) {
	wallet, err := s.walletRepo.FindByUserIDForUpdate(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		wallet = domain.Wallet{UserID: userID}
		err = s.walletRepo.Create(ctx, &wallet)
	}

	return wallet, err
}

func (s *walletService) TopUp(ctx context.Context, userID uint, amount decimal.Decimal) (domain.Wallet, error) {
	if !amount.IsPositive() {
		return domain.Wallet{}, fmt.Errorf("amount must be positive: %w", domain.ErrInvalidInput)
	}
	if !domain.IsMoney(amount) {
		return domain.Wallet{}, fmt.Errorf("amount has more than two decimal places: %w", domain.ErrInvalidInput)
	}

	return s.mutate(ctx, userID, domain.TransactionTopUp, func(_ context.Context, w *domain.Wallet) (domain.Transaction, error) {
		w.Balance = w.Balance.Add(amount)

		return domain.Transaction{
			Type:        domain.TransactionTopUp,
			Amount:      amount,
			Description: "Wallet top up",
		}, nil
	})
}

// RedeemPoints converts whole hundreds of points into balance. The
// remainder stays on the wallet.
func (s *walletService) RedeemPoints(ctx context.Context, userID uint) (domain.Wallet, error) {
	return s.mutate(ctx, userID, domain.TransactionRedeem, func(_ context.Context, w *domain.Wallet) (domain.Transaction, error) {
		if w.Points < domain.PointsPerDollar {
			return domain.Transaction{}, fmt.Errorf("at least %d points are needed: %w", domain.PointsPerDollar, domain.ErrInsufficientFunds)
		}

		dollars := w.Points / domain.PointsPerDollar
		redeemed := dollars * domain.PointsPerDollar
		w.Points -= redeemed
		w.Balance = w.Balance.Add(decimal.NewFromInt(dollars))

		return domain.Transaction{
			Type:        domain.TransactionPoints,
			Amount:      decimal.NewFromInt(dollars),
			Points:      -redeemed,
			Description: fmt.Sprintf("Redeemed %d points for %d", redeemed, dollars),
		}, nil
	})
}

func (s *walletService) RedeemElectroCoins(ctx context.Context, userID uint, amount int64) (domain.Wallet, error) {
	if amount <= 0 {
		return domain.Wallet{}, fmt.Errorf("amount must be positive: %w", domain.ErrInvalidInput)
	}

	return s.mutate(ctx, userID, domain.TransactionElectroCoin, func(_ context.Context, w *domain.Wallet) (domain.Transaction, error) {
		if amount > w.ElectroCoins {
			return domain.Transaction{}, fmt.Errorf("only %d electro coins available: %w", w.ElectroCoins, domain.ErrInsufficientFunds)
		}

		w.ElectroCoins -= amount
		w.Balance = w.Balance.Add(decimal.NewFromInt(amount))

		return domain.Transaction{
			Type:         domain.TransactionElectroCoin,
			Amount:       decimal.NewFromInt(amount),
			ElectroCoins: -amount,
			Description:  fmt.Sprintf("Redeemed %d electro coins", amount),
		}, nil
	})
}

// RequestWithdrawal holds the amount on the wallet until an admin reviews
// the request. The balance itself only drops once the payout succeeds.
func (s *walletService) RequestWithdrawal(ctx context.Context, userID uint, in WithdrawalInput) (domain.Withdrawal, error) {
	method := strings.ToLower(strings.TrimSpace(in.Method))
	if method != domain.WithdrawalMethodMpesa && method != domain.WithdrawalMethodBank {
		return domain.Withdrawal{}, fmt.Errorf("unknown withdrawal method %q: %w", in.Method, domain.ErrInvalidInput)
	}

	if strings.TrimSpace(in.Account) == "" {
		return domain.Withdrawal{}, fmt.Errorf("account is required: %w", domain.ErrInvalidInput)
	}

	if in.Amount.LessThan(decimal.NewFromInt(domain.MinWithdrawalAmount)) {
		return domain.Withdrawal{}, fmt.Errorf("minimum withdrawal is %d: %w", domain.MinWithdrawalAmount, domain.ErrInvalidInput)
	}

	if !domain.IsMoney(in.Amount) {
		return domain.Withdrawal{}, fmt.Errorf("amount has more than two decimal places: %w", domain.ErrInvalidInput)
	}

	var withdrawal domain.Withdrawal
	_, err := s.mutate(ctx, userID, domain.WithdrawalRequestType(method), func(ctx context.Context, w *domain.Wallet) (domain.Transaction, error) {
		if in.Amount.GreaterThan(w.Spendable()) {
			return domain.Transaction{}, fmt.Errorf("amount exceeds spendable balance %s: %w", w.Spendable().StringFixed(2), domain.ErrInsufficientFunds)
		}

		w.Reserved = w.Reserved.Add(in.Amount)

		withdrawal = domain.Withdrawal{
			UserID:   w.UserID,
			WalletID: w.ID,
			Amount:   in.Amount,
			Method:   method,
			Account:  strings.TrimSpace(in.Account),
			Status:   domain.WithdrawalPending,
		}
		if err := s.walletRepo.CreateWithdrawal(ctx, &withdrawal); err != nil {
			return domain.Transaction{}, err
		}

		return domain.Transaction{
			Type:        domain.WithdrawalRequestType(method),
			Held:        in.Amount,
			Description: fmt.Sprintf("Withdrawal request #%d via %s", withdrawal.ID, method),
		}, nil
	})
	if err != nil {
		return domain.Withdrawal{}, err
	}

	return withdrawal, nil
}

// ApproveWithdrawal pays the withdrawal out. The withdrawal row stays locked
// across the payout call so it is disbursed at most once. When the provider
// fails the hold is released and the withdrawal marked failed before the
// error is returned.
func (s *walletService) ApproveWithdrawal(ctx context.Context, id uint, reviewer domain.Actor) (domain.Withdrawal, error) {
	if !policy.Can(reviewer.Role, policy.WithdrawalReview) {
		return domain.Withdrawal{}, fmt.Errorf("role %s cannot review withdrawals: %w", reviewer.Role, domain.ErrForbidden)
	}

	var (
		withdrawal domain.Withdrawal
		payoutErr  error
	)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		withdrawal, err = s.pendingWithdrawal(ctx, id)
		if err != nil {
			return err
		}

		wallet, err := s.walletRepo.FindByUserIDForUpdate(ctx, withdrawal.UserID)
		if err != nil {
			return err
		}

		accountName := ""
		if user, err := s.userRepo.FindByID(ctx, withdrawal.UserID); err == nil {
			accountName = user.Name
		}

		result, err := s.payoutRepo.Disburse(ctx, domain.PayoutRequest{
			ExternalID:  "ec-withdrawal-" + strconv.FormatUint(uint64(withdrawal.ID), 10),
			Amount:      withdrawal.Amount,
			Method:      withdrawal.Method,
			Account:     withdrawal.Account,
			AccountName: accountName,
			Description: fmt.Sprintf("ElectroCare withdrawal #%d", withdrawal.ID),
		})
		if err != nil {
			payoutErr = err
			return s.release(ctx, &wallet, &withdrawal, reviewer, domain.WithdrawalFailed, "payout failed")
		}

		wallet.Balance = wallet.Balance.Sub(withdrawal.Amount)
		wallet.Reserved = wallet.Reserved.Sub(withdrawal.Amount)
		if err := s.walletRepo.Update(ctx, &wallet); err != nil {
			return err
		}

		markReviewed(&withdrawal, reviewer, domain.WithdrawalApproved, s.now())
		withdrawal.PayoutRef = result.Reference

		err = s.walletRepo.UpdateWithdrawal(ctx, &withdrawal)
		if err != nil {
			return err
		}

		return s.walletRepo.CreateTransaction(ctx, &domain.Transaction{
			WalletID:    wallet.ID,
			UserID:      wallet.UserID,
			Type:        domain.TransactionWithdrawal,
			Amount:      withdrawal.Amount.Neg(),
			Held:        withdrawal.Amount.Neg(),
			Description: fmt.Sprintf("Withdrawal #%d paid out, ref %s", withdrawal.ID, result.Reference),
		})
	})
	if err != nil {
		logger.Error("Failed to approve withdrawal", err, "withdrawal_id", id)
		return domain.Withdrawal{}, err
	}

	if payoutErr != nil {
		logger.Error("Withdrawal payout failed, hold released", payoutErr, "withdrawal_id", id)
		metrics.WalletOperations.WithLabelValues("withdrawal_failed").Inc()
		if errors.Is(payoutErr, domain.ErrUpstream) {
			return withdrawal, payoutErr
		}
		return withdrawal, fmt.Errorf("payout failed: %v: %w", payoutErr, domain.ErrUpstream)
	}

	metrics.WalletOperations.WithLabelValues(domain.TransactionWithdrawal).Inc()

	return withdrawal, nil
}

func (s *walletService) RejectWithdrawal(ctx context.Context, id uint, reviewer domain.Actor, reason string) (domain.Withdrawal, error) {
	if !policy.Can(reviewer.Role, policy.WithdrawalReview) {
		return domain.Withdrawal{}, fmt.Errorf("role %s cannot review withdrawals: %w", reviewer.Role, domain.ErrForbidden)
	}

	var withdrawal domain.Withdrawal
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		withdrawal, err = s.pendingWithdrawal(ctx, id)
		if err != nil {
			return err
		}

		wallet, err := s.walletRepo.FindByUserIDForUpdate(ctx, withdrawal.UserID)
		if err != nil {
			return err
		}

		if strings.TrimSpace(reason) == "" {
			reason = "rejected by admin"
		}

		return s.release(ctx, &wallet, &withdrawal, reviewer, domain.WithdrawalRejected, strings.TrimSpace(reason))
	})
	if err != nil {
		logger.Error("Failed to reject withdrawal", err, "withdrawal_id", id)
		return domain.Withdrawal{}, err
	}

	metrics.WalletOperations.WithLabelValues("withdrawal_rejected").Inc()

	return withdrawal, nil
}

func (s *walletService) pendingWithdrawal(ctx context.Context, id uint) (domain.Withdrawal, error) {
	withdrawal, err := s.walletRepo.FindWithdrawalForUpdate(ctx, id)
	if err != nil {
		return domain.Withdrawal{}, err
	}

	if withdrawal.Status != domain.WithdrawalPending {
		return domain.Withdrawal{}, fmt.Errorf("withdrawal is %s: %w", withdrawal.Status, domain.ErrInvalidTransition)
	}

	return withdrawal, nil
}

// release returns a held amount to the spendable balance and closes the
// withdrawal with the given status.
func (s *walletService) release(ctx context.Context, wallet *domain.Wallet, w *domain.Withdrawal, reviewer domain.Actor, status, reason string) error {
	wallet.Reserved = wallet.Reserved.Sub(w.Amount)
	if wallet.Reserved.IsNegative() {
		wallet.Reserved = decimal.Zero
	}
	if err := s.walletRepo.Update(ctx, wallet); err != nil {
		return err
	}

	markReviewed(w, reviewer, status, s.now())
	w.Reason = reason
	if err := s.walletRepo.UpdateWithdrawal(ctx, w); err != nil {
		return err
	}

	return s.walletRepo.CreateTransaction(ctx, &domain.Transaction{
		WalletID:    wallet.ID,
		UserID:      wallet.UserID,
		Type:        domain.TransactionWithdrawalReleased,
		Held:        w.Amount.Neg(),
		Description: fmt.Sprintf("Withdrawal #%d %s: %s", w.ID, status, reason),
	})
}

func markReviewed(w *domain.Withdrawal, reviewer domain.Actor, status string, at time.Time) {
	w.Status = status
	w.ReviewedBy = &reviewer.ID
	w.ReviewedAt = &at
}

func (s *walletService) ListWithdrawals(ctx context.Context, status string) ([]domain.Withdrawal, error) {
	return s.walletRepo.ListWithdrawals(ctx, status)
}

func (s *walletService) ListMyWithdrawals(ctx context.Context, userID uint) ([]domain.Withdrawal, error) {
	return s.walletRepo.ListWithdrawalsByUser(ctx, userID)
}
