package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"electroCare/domain"

	"gorm.io/gorm"
)

type RepairRepository struct {
	DB *gorm.DB
}

func NewRepairRepository(db *gorm.DB) *RepairRepository {
	return &RepairRepository{
		DB: db,
	}
}

func (r *RepairRepository) Create(ctx context.Context, repair *domain.RepairRequest) error {
	if err := conn(ctx, r.DB).Create(repair).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("request id %s already used: %w", repair.RequestID, domain.ErrConflict)
		}
		return err
	}

	return nil
}

func (r *RepairRepository) FindByID(ctx context.Context, id uint) (domain.RepairRequest, error) {
	return r.find(ctx, id, false)
}

func (r *RepairRepository) FindByIDForUpdate(ctx context.Context, id uint) (domain.RepairRequest, error) {
	return r.find(ctx, id, true)
}

func (r *RepairRepository) find(ctx context.Context, id uint, lock bool) (domain.RepairRequest, error) {
	var repair domain.RepairRequest

	q := conn(ctx, r.DB)
	if lock {
		q = q.Clauses(forUpdate)
	}

	if err := q.First(&repair, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.RepairRequest{}, fmt.Errorf("repair request %w", domain.ErrNotFound)
		}
		return domain.RepairRequest{}, err
	}

	return repair, nil
}

func (r *RepairRepository) Update(ctx context.Context, repair *domain.RepairRequest) error {
	repair.UpdatedAt = time.Now()

	return conn(ctx, r.DB).Model(&domain.RepairRequest{}).Where("id = ?", repair.ID).
		Select("technician_id", "shop_id", "delivery_person_id", "status", "cost",
			"estimated_time", "accepted_at", "completed_at", "updated_at").
		Updates(repair).Error
}

func (r *RepairRepository) ListByUser(ctx context.Context, userID uint) ([]domain.RepairRequest, error) {
	return r.list(conn(ctx, r.DB).Where("user_id = ?", userID))
}

func (r *RepairRepository) ListAll(ctx context.Context) ([]domain.RepairRequest, error) {
	return r.list(conn(ctx, r.DB))
}

// ListForShop returns the open queue plus everything the shop accepted.
func (r *RepairRepository) ListForShop(ctx context.Context, shopUserID uint) ([]domain.RepairRequest, error) {
	return r.list(conn(ctx, r.DB).
		Where("status IN ? OR shop_id = ?", []string{domain.RepairPending, domain.RepairAssigned}, shopUserID))
}

// ListForDelivery returns open delivery requests plus the caller's own jobs.
func (r *RepairRepository) ListForDelivery(ctx context.Context, deliveryUserID uint) ([]domain.RepairRequest, error) {
	return r.list(conn(ctx, r.DB).
		Where("(delivery = ? AND status IN ?) OR delivery_person_id = ?",
			true, []string{domain.RepairPending, domain.RepairAccepted}, deliveryUserID))
}

func (r *RepairRepository) ListForTechnician(ctx context.Context, technicianID uint) ([]domain.RepairRequest, error) {
	return r.list(conn(ctx, r.DB).
		Where("(status = ? AND technician_id IS NULL) OR technician_id = ?", domain.RepairPending, technicianID))
}

func (r *RepairRepository) list(q *gorm.DB) ([]domain.RepairRequest, error) {
	var repairs []domain.RepairRequest

	if err := q.Order("created_at DESC").Find(&repairs).Error; err != nil {
		return nil, err
	}

	return repairs, nil
}
