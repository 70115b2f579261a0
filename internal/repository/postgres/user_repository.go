package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"electroCare/domain"

	"gorm.io/gorm"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{
		DB: db,
	}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	if err := conn(ctx, r.DB).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("email already exists: %w", domain.ErrConflict)
		}
		return err
	}

	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id uint) (domain.User, error) {
	var user domain.User

	err := conn(ctx, r.DB).First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, fmt.Errorf("user %w", domain.ErrNotFound)
		}
		return domain.User{}, err
	}

	return user, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.findOne(ctx, "email = ?", email)
}

func (r *UserRepository) FindByReferralCode(ctx context.Context, code string) (domain.User, error) {
	return r.findOne(ctx, "referral_code = ?", code)
}

func (r *UserRepository) findOne(ctx context.Context, query string, arg any) (domain.User, error) {
	var user domain.User

	err := conn(ctx, r.DB).Where(query, arg).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, fmt.Errorf("user %w", domain.ErrNotFound)
		}
		return domain.User{}, err
	}

	return user, nil
}

func (r *UserRepository) FindAll(ctx context.Context) ([]domain.User, error) {
	var users []domain.User

	if err := conn(ctx, r.DB).Order("id").Find(&users).Error; err != nil {
		return nil, err
	}

	return users, nil
}

// FindByRole returns every user with the role, or all users when role is empty.
func (r *UserRepository) FindByRole(ctx context.Context, role string) ([]domain.User, error) {
	var users []domain.User

	q := conn(ctx, r.DB).Order("id")
	if role != "" {
		q = q.Where("role = ?", role)
	}

	if err := q.Find(&users).Error; err != nil {
		return nil, err
	}

	return users, nil
}

func (r *UserRepository) UpdateRole(ctx context.Context, id uint, role string) error {
	return r.updateColumn(ctx, id, "role", role)
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id uint, passwordHash string) error {
	return r.updateColumn(ctx, id, "password", passwordHash)
}

func (r *UserRepository) UpdateEmailVerification(ctx context.Context, id uint, isVerified bool) error {
	return r.updateColumn(ctx, id, "is_verified", isVerified)
}

func (r *UserRepository) updateColumn(ctx context.Context, id uint, column string, value any) error {
	result := conn(ctx, r.DB).Model(&domain.User{}).Where("id = ?", id).
		Updates(map[string]any{column: value, "updated_at": time.Now()})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return fmt.Errorf("user %w", domain.ErrNotFound)
	}

	return nil
}
