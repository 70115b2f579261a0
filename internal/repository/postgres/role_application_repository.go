package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"electroCare/domain"

	"gorm.io/gorm"
)

type RoleApplicationRepository struct {
	DB *gorm.DB
}

func NewRoleApplicationRepository(db *gorm.DB) *RoleApplicationRepository {
	return &RoleApplicationRepository{
		DB: db,
	}
}

func (r *RoleApplicationRepository) Create(ctx context.Context, app *domain.RoleApplication) error {
	if err := conn(ctx, r.DB).Create(app).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("an application is already pending: %w", domain.ErrConflict)
		}
		return err
	}

	return nil
}

func (r *RoleApplicationRepository) HasPending(ctx context.Context, userID uint) (bool, error) {
	var count int64

	err := conn(ctx, r.DB).Model(&domain.RoleApplication{}).
		Where("user_id = ? AND status = ?", userID, domain.ApplicationPending).
		Count(&count).Error
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

func (r *RoleApplicationRepository) FindByIDForUpdate(ctx context.Context, id uint) (domain.RoleApplication, error) {
	var app domain.RoleApplication

	if err := conn(ctx, r.DB).Clauses(forUpdate).First(&app, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.RoleApplication{}, fmt.Errorf("application %w", domain.ErrNotFound)
		}
		return domain.RoleApplication{}, err
	}

	return app, nil
}

func (r *RoleApplicationRepository) Update(ctx context.Context, app *domain.RoleApplication) error {
	app.UpdatedAt = time.Now()

	return conn(ctx, r.DB).Model(&domain.RoleApplication{}).Where("id = ?", app.ID).
		Select("status", "notes", "reviewed_by", "updated_at").
		Updates(app).Error
}

func (r *RoleApplicationRepository) ListByStatus(ctx context.Context, status string) ([]domain.RoleApplication, error) {
	q := conn(ctx, r.DB)
	if status != "" {
		q = q.Where("status = ?", status)
	}

	return r.list(q)
}

func (r *RoleApplicationRepository) ListByUser(ctx context.Context, userID uint) ([]domain.RoleApplication, error) {
	return r.list(conn(ctx, r.DB).Where("user_id = ?", userID))
}

func (r *RoleApplicationRepository) list(q *gorm.DB) ([]domain.RoleApplication, error) {
	var apps []domain.RoleApplication

	if err := q.Order("created_at DESC").Find(&apps).Error; err != nil {
		return nil, err
	}

	return apps, nil
}
