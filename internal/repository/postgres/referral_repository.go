package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"electroCare/domain"

	"gorm.io/gorm"
)

type ReferralRepository struct {
	DB *gorm.DB
}

func NewReferralRepository(db *gorm.DB) *ReferralRepository {
	return &ReferralRepository{
		DB: db,
	}
}

func (r *ReferralRepository) Create(ctx context.Context, referral *domain.Referral) error {
	return conn(ctx, r.DB).Create(referral).Error
}

func (r *ReferralRepository) FindPendingByReferredForUpdate(ctx context.Context, referredID uint) (domain.Referral, error) {
	var referral domain.Referral

	err := conn(ctx, r.DB).Clauses(forUpdate).
		Where("referred_id = ? AND status = ?", referredID, domain.ReferralPending).
		First(&referral).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Referral{}, fmt.Errorf("referral %w", domain.ErrNotFound)
		}
		return domain.Referral{}, err
	}

	return referral, nil
}

func (r *ReferralRepository) Complete(ctx context.Context, id uint, points int64, at time.Time) error {
	result := conn(ctx, r.DB).Model(&domain.Referral{}).
		Where("id = ? AND status = ?", id, domain.ReferralPending).
		Updates(map[string]any{
			"status":         domain.ReferralCompleted,
			"points_awarded": points,
			"completed_at":   at,
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return fmt.Errorf("referral already completed: %w", domain.ErrConflict)
	}

	return nil
}
