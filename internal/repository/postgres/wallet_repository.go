package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"electroCare/domain"

	"gorm.io/gorm"
)

type WalletRepository struct {
	DB *gorm.DB
}

func NewWalletRepository(db *gorm.DB) *WalletRepository {
	return &WalletRepository{
		DB: db,
	}
}

func (r *WalletRepository) Create(ctx context.Context, wallet *domain.Wallet) error {
	return conn(ctx, r.DB).Create(wallet).Error
}

func (r *WalletRepository) FindByUserID(ctx context.Context, userID uint) (domain.Wallet, error) {
	return r.findByUserID(ctx, userID, false)
}

// FindByUserIDForUpdate locks the wallet row until the surrounding
// transaction ends.
func (r *WalletRepository) FindByUserIDForUpdate(ctx context.Context, userID uint) (domain.Wallet, error) {
	return r.findByUserID(ctx, userID, true)
}

func (r *WalletRepository) findByUserID(ctx context.Context, userID uint, lock bool) (domain.Wallet, error) {
	var wallet domain.Wallet

	q := conn(ctx, r.DB)
	if lock {
		q = q.Clauses(forUpdate)
	}

	err := q.Where("user_id = ?", userID).First(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Wallet{}, fmt.Errorf("wallet %w", domain.ErrNotFound)
		}
		return domain.Wallet{}, err
	}

	return wallet, nil
}

func (r *WalletRepository) Update(ctx context.Context, wallet *domain.Wallet) error {
	wallet.UpdatedAt = time.Now()

	result := conn(ctx, r.DB).Model(&domain.Wallet{}).Where("id = ?", wallet.ID).
		Select("balance", "reserved", "points", "electro_coins", "updated_at").
		Updates(wallet)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return fmt.Errorf("wallet %w", domain.ErrNotFound)
	}

	return nil
}

func (r *WalletRepository) CreateTransaction(ctx context.Context, tx *domain.Transaction) error {
	return conn(ctx, r.DB).Create(tx).Error
}

func (r *WalletRepository) ListTransactions(ctx context.Context, userID uint) ([]domain.Transaction, error) {
	var txs []domain.Transaction

	err := conn(ctx, r.DB).Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").Find(&txs).Error
	if err != nil {
		return nil, err
	}

	return txs, nil
}

func (r *WalletRepository) CreateWithdrawal(ctx context.Context, w *domain.Withdrawal) error {
	return conn(ctx, r.DB).Create(w).Error
}

func (r *WalletRepository) FindWithdrawalForUpdate(ctx context.Context, id uint) (domain.Withdrawal, error) {
	var w domain.Withdrawal

	err := conn(ctx, r.DB).Clauses(forUpdate).First(&w, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Withdrawal{}, fmt.Errorf("withdrawal %w", domain.ErrNotFound)
		}
		return domain.Withdrawal{}, err
	}

	return w, nil
}

func (r *WalletRepository) UpdateWithdrawal(ctx context.Context, w *domain.Withdrawal) error {
	w.UpdatedAt = time.Now()

	return conn(ctx, r.DB).Model(&domain.Withdrawal{}).Where("id = ?", w.ID).
		Select("status", "payout_ref", "reason", "reviewed_by", "reviewed_at", "updated_at").
		Updates(w).Error
}

func (r *WalletRepository) ListWithdrawals(ctx context.Context, status string) ([]domain.Withdrawal, error) {
	var ws []domain.Withdrawal

	q := conn(ctx, r.DB).Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}

	if err := q.Find(&ws).Error; err != nil {
		return nil, err
	}

	return ws, nil
}

func (r *WalletRepository) ListWithdrawalsByUser(ctx context.Context, userID uint) ([]domain.Withdrawal, error) {
	var ws []domain.Withdrawal

	err := conn(ctx, r.DB).Where("user_id = ?", userID).Order("created_at DESC").Find(&ws).Error
	if err != nil {
		return nil, err
	}

	return ws, nil
}
