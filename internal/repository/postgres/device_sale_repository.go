package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"electroCare/domain"

	"gorm.io/gorm"
)

type DeviceSaleRepository struct {
	DB *gorm.DB
}

func NewDeviceSaleRepository(db *gorm.DB) *DeviceSaleRepository {
	return &DeviceSaleRepository{
		DB: db,
	}
}

func (r *DeviceSaleRepository) Create(ctx context.Context, sale *domain.DeviceSale) error {
	if err := conn(ctx, r.DB).Create(sale).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("serial number %s already used: %w", sale.SerialNumber, domain.ErrConflict)
		}
		return err
	}

	return nil
}

func (r *DeviceSaleRepository) FindByID(ctx context.Context, id uint) (domain.DeviceSale, error) {
	return r.find(ctx, id, false)
}

func (r *DeviceSaleRepository) FindByIDForUpdate(ctx context.Context, id uint) (domain.DeviceSale, error) {
	return r.find(ctx, id, true)
}

func (r *DeviceSaleRepository) find(ctx context.Context, id uint, lock bool) (domain.DeviceSale, error) {
	var sale domain.DeviceSale

	q := conn(ctx, r.DB)
	if lock {
		q = q.Clauses(forUpdate)
	}

	if err := q.First(&sale, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.DeviceSale{}, fmt.Errorf("listing %w", domain.ErrNotFound)
		}
		return domain.DeviceSale{}, err
	}

	return sale, nil
}

func (r *DeviceSaleRepository) Update(ctx context.Context, sale *domain.DeviceSale) error {
	sale.UpdatedAt = time.Now()

	return conn(ctx, r.DB).Model(&domain.DeviceSale{}).Where("id = ?", sale.ID).
		Select("status", "rejection_reason", "points_awarded", "reviewed_by", "updated_at").
		Updates(sale).Error
}

// ListApproved is the public feed. Unusable devices never appear in it.
func (r *DeviceSaleRepository) ListApproved(ctx context.Context, category string) ([]domain.DeviceSale, error) {
	q := conn(ctx, r.DB).Where("status = ? AND condition <> ?", domain.SaleStatusApproved, domain.ConditionUnusable)
	if category != "" {
		q = q.Where("category = ?", category)
	}

	return r.list(q)
}

func (r *DeviceSaleRepository) ListByUser(ctx context.Context, userID uint) ([]domain.DeviceSale, error) {
	return r.list(conn(ctx, r.DB).Where("user_id = ?", userID))
}

func (r *DeviceSaleRepository) ListPending(ctx context.Context) ([]domain.DeviceSale, error) {
	return r.list(conn(ctx, r.DB).Where("status = ?", domain.SaleStatusPending))
}

func (r *DeviceSaleRepository) list(q *gorm.DB) ([]domain.DeviceSale, error) {
	var sales []domain.DeviceSale

	if err := q.Order("created_at DESC").Find(&sales).Error; err != nil {
		return nil, err
	}

	return sales, nil
}

func (r *DeviceSaleRepository) CreatePurchase(ctx context.Context, p *domain.DevicePurchase) error {
	return conn(ctx, r.DB).Create(p).Error
}

func (r *DeviceSaleRepository) FindPurchaseForUpdate(ctx context.Context, id uint) (domain.DevicePurchase, error) {
	var p domain.DevicePurchase

	if err := conn(ctx, r.DB).Clauses(forUpdate).First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.DevicePurchase{}, fmt.Errorf("purchase %w", domain.ErrNotFound)
		}
		return domain.DevicePurchase{}, err
	}

	return p, nil
}

func (r *DeviceSaleRepository) UpdatePurchase(ctx context.Context, p *domain.DevicePurchase) error {
	p.UpdatedAt = time.Now()

	return conn(ctx, r.DB).Model(&domain.DevicePurchase{}).Where("id = ?", p.ID).
		Select("status", "reviewed_by", "updated_at").
		Updates(p).Error
}

func (r *DeviceSaleRepository) ListPurchases(ctx context.Context, status string) ([]domain.DevicePurchase, error) {
	q := conn(ctx, r.DB)
	if status != "" {
		q = q.Where("status = ?", status)
	}

	return r.listPurchases(q)
}

func (r *DeviceSaleRepository) ListPurchasesByBuyer(ctx context.Context, buyerID uint) ([]domain.DevicePurchase, error) {
	return r.listPurchases(conn(ctx, r.DB).Where("buyer_id = ?", buyerID))
}

func (r *DeviceSaleRepository) listPurchases(q *gorm.DB) ([]domain.DevicePurchase, error) {
	var ps []domain.DevicePurchase

	if err := q.Order("created_at DESC").Find(&ps).Error; err != nil {
		return nil, err
	}

	return ps, nil
}
