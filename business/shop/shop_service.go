package shop

import (
	"context"
	"fmt"
	"strings"

	"electroCare/domain"
	"electroCare/pkg/logger"
)

type ShopRepository interface {
	Create(ctx context.Context, shop *domain.Shop) error
	FindAll(ctx context.Context) ([]domain.Shop, error)
}

type UserRepository interface {
	FindByID(ctx context.Context, id uint) (domain.User, error)
}

type shopService struct {
	shopRepo ShopRepository
	userRepo UserRepository
}

func NewShopService(shopRepo ShopRepository, userRepo UserRepository) *shopService {
	return &shopService{
		shopRepo: shopRepo,
		userRepo: userRepo,
	}
}

type CreateInput struct {
	OwnerID  uint
	Name     string
	Code     string
	Location string
}

// CreateShop registers a shop for a user who already holds the shop role.
// Codes are stored upper case and appear in marketplace serial numbers.
func (s *shopService) CreateShop(ctx context.Context, in CreateInput) (domain.Shop, error) {
	code := strings.ToUpper(strings.TrimSpace(in.Code))
	if code == "" || strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Location) == "" {
		return domain.Shop{}, fmt.Errorf("name, code and location are required: %w", domain.ErrInvalidInput)
	}

	if code == domain.OnlineShopCode || strings.ContainsAny(code, "-/ ") {
		return domain.Shop{}, fmt.Errorf("shop code %q is reserved or malformed: %w", code, domain.ErrInvalidInput)
	}

	owner, err := s.userRepo.FindByID(ctx, in.OwnerID)
	if err != nil {
		return domain.Shop{}, err
	}

	if owner.Role != domain.RoleShop {
		return domain.Shop{}, fmt.Errorf("user %d does not have the shop role: %w", owner.ID, domain.ErrInvalidInput)
	}

	shop := domain.Shop{
		OwnerID:  owner.ID,
		Name:     strings.TrimSpace(in.Name),
		Code:     code,
		Location: strings.TrimSpace(in.Location),
	}
	if err := s.shopRepo.Create(ctx, &shop); err != nil {
		logger.Error("Failed to create shop", err)
		return domain.Shop{}, err
	}

	return shop, nil
}

func (s *shopService) ListShops(ctx context.Context) ([]domain.Shop, error) {
	return s.shopRepo.FindAll(ctx)
}
