package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"electroCare/domain"

	"gorm.io/gorm"
)

type ShopRepository struct {
	DB *gorm.DB
}

func NewShopRepository(db *gorm.DB) *ShopRepository {
	return &ShopRepository{
		DB: db,
	}
}

func (r *ShopRepository) Create(ctx context.Context, shop *domain.Shop) error {
	if err := conn(ctx, r.DB).Create(shop).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("shop code %s already exists: %w", shop.Code, domain.ErrConflict)
		}
		return err
	}

	return nil
}

func (r *ShopRepository) FindAll(ctx context.Context) ([]domain.Shop, error) {
	var shops []domain.Shop

	if err := conn(ctx, r.DB).Order("name").Find(&shops).Error; err != nil {
		return nil, err
	}

	return shops, nil
}

func (r *ShopRepository) FindByLocation(ctx context.Context, location string) (domain.Shop, error) {
	return r.findOne(ctx, "LOWER(location) = ?", strings.ToLower(strings.TrimSpace(location)))
}

func (r *ShopRepository) FindByOwner(ctx context.Context, ownerID uint) (domain.Shop, error) {
	return r.findOne(ctx, "owner_id = ?", ownerID)
}

func (r *ShopRepository) findOne(ctx context.Context, query string, arg any) (domain.Shop, error) {
	var shop domain.Shop

	if err := conn(ctx, r.DB).Where(query, arg).First(&shop).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Shop{}, fmt.Errorf("shop %w", domain.ErrNotFound)
		}
		return domain.Shop{}, err
	}

	return shop, nil
}
