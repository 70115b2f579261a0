package marketplace

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"electroCare/business/policy"
	"electroCare/domain"
	"electroCare/pkg/logger"
	"electroCare/pkg/metrics"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// DeviceSaleRepository contract interface
type DeviceSaleRepository interface {
	Create(ctx context.Context, sale *domain.DeviceSale) error
	FindByID(ctx context.Context, id uint) (domain.DeviceSale, error)
	FindByIDForUpdate(ctx context.Context, id uint) (domain.DeviceSale, error)
	Update(ctx context.Context, sale *domain.DeviceSale) error
	ListApproved(ctx context.Context, category string) ([]domain.DeviceSale, error)
	ListByUser(ctx context.Context, userID uint) ([]domain.DeviceSale, error)
	ListPending(ctx context.Context) ([]domain.DeviceSale, error)

	CreatePurchase(ctx context.Context, p *domain.DevicePurchase) error
	FindPurchaseForUpdate(ctx context.Context, id uint) (domain.DevicePurchase, error)
	UpdatePurchase(ctx context.Context, p *domain.DevicePurchase) error
	ListPurchases(ctx context.Context, status string) ([]domain.DevicePurchase, error)
	ListPurchasesByBuyer(ctx context.Context, buyerID uint) ([]domain.DevicePurchase, error)
}

type ShopRepository interface {
	FindByLocation(ctx context.Context, location string) (domain.Shop, error)
	FindByOwner(ctx context.Context, ownerID uint) (domain.Shop, error)
}

type WalletRepository interface {
	Create(ctx context.Context, wallet *domain.Wallet) error
	FindByUserIDForUpdate(ctx context.Context, userID uint) (domain.Wallet, error)
	Update(ctx context.Context, wallet *domain.Wallet) error
	CreateTransaction(ctx context.Context, tx *domain.Transaction) error
}

type SequenceRepository interface {
	Next(ctx context.Context, scope, period string) (int64, error)
}

type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type marketplaceService struct {
	saleRepo   DeviceSaleRepository
	shopRepo   ShopRepository
	walletRepo WalletRepository
	seqRepo    SequenceRepository
	tx         Transactor
	now        func() time.Time
}

func NewMarketplaceService(
	saleRepo DeviceSaleRepository,
	shopRepo ShopRepository,
	walletRepo WalletRepository,
	seqRepo SequenceRepository,
	tx Transactor,
) *marketplaceService {
	return &marketplaceService{
		saleRepo:   saleRepo,
		shopRepo:   shopRepo,
		walletRepo: walletRepo,
		seqRepo:    seqRepo,
		tx:         tx,
		now:        time.Now,
	}
}

type ListingInput struct {
	DeviceName  string
	Description string
	Price       decimal.Decimal
	Images      []string
	Condition   string
	Category    string
	SubCategory string
	Location    string
}

// PostListing stores a new listing with its serial number. Admin and shop
// listings skip the review queue.
func (s *marketplaceService) PostListing(ctx context.Context, actor domain.Actor, in ListingInput) (domain.DeviceSale, error) {
	if !policy.Can(actor.Role, policy.ListingCreate) {
		return domain.DeviceSale{}, fmt.Errorf("role %s cannot post listings: %w", actor.Role, domain.ErrForbidden)
	}

	prefix, ok := domain.SerialPrefix(in.Condition)
	if !ok {
		return domain.DeviceSale{}, fmt.Errorf("unknown condition %q: %w", in.Condition, domain.ErrInvalidInput)
	}

	if domain.IsPremiumCondition(in.Condition) && !policy.Can(actor.Role, policy.ListingCreatePremium) {
		return domain.DeviceSale{}, fmt.Errorf("only shops and admins may list %s devices: %w", in.Condition, domain.ErrForbidden)
	}

	if strings.TrimSpace(in.DeviceName) == "" {
		return domain.DeviceSale{}, fmt.Errorf("device name is required: %w", domain.ErrInvalidInput)
	}

	if !in.Price.IsPositive() {
		return domain.DeviceSale{}, fmt.Errorf("price must be positive: %w", domain.ErrInvalidInput)
	}
	if !domain.IsMoney(in.Price) {
		return domain.DeviceSale{}, fmt.Errorf("price has more than two decimal places: %w", domain.ErrInvalidInput)
	}

	if len(in.Images) > domain.MaxListingImages {
		return domain.DeviceSale{}, fmt.Errorf("at most %d images: %w", domain.MaxListingImages, domain.ErrInvalidInput)
	}

	status := domain.SaleStatusPending
	if policy.Can(actor.Role, policy.ListingAutoApprove) {
		status = domain.SaleStatusApproved
	}

	sale := domain.DeviceSale{
		UserID:      actor.ID,
		DeviceName:  strings.TrimSpace(in.DeviceName),
		Description: in.Description,
		Price:       in.Price,
		Images:      datatypes.JSONSlice[string](append([]string{}, in.Images...)),
		Condition:   in.Condition,
		Status:      status,
		Category:    in.Category,
		SubCategory: in.SubCategory,
		Location:    strings.TrimSpace(in.Location),
	}

	code, err := s.shopCode(ctx, actor, sale.Location)
	if err != nil {
		return domain.DeviceSale{}, err
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		seq, err := s.seqRepo.Next(ctx, domain.SequenceSale, domain.SequenceGlobalPeriod)
		if err != nil {
			return err
		}
		sale.SerialNumber = fmt.Sprintf("%s-%s-%s-%03d", prefix, s.now().Local().Format("020106"), code, seq)

		return s.saleRepo.Create(ctx, &sale)
	})
	if err != nil {
		logger.Error("Failed to create listing", err)
		return domain.DeviceSale{}, err
	}

	return sale, nil
}

// shopCode resolves the serial's shop segment: the shop at the listing
// location, then the seller's own shop, then ONLINE.
func (s *marketplaceService) shopCode(ctx context.Context, actor domain.Actor, location string) (string, error) {
	if location != "" {
		shop, err := s.shopRepo.FindByLocation(ctx, location)
		if err == nil {
			return shop.Code, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return "", err
		}
	}

	if actor.Role == domain.RoleShop {
		shop, err := s.shopRepo.FindByOwner(ctx, actor.ID)
		if err == nil {
			return shop.Code, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return "", err
		}
	}

	return domain.OnlineShopCode, nil
}

func (s *marketplaceService) ListListings(ctx context.Context, category string) ([]domain.DeviceSale, error) {
	sales, err := s.saleRepo.ListApproved(ctx, strings.TrimSpace(category))
	if err != nil {
		logger.Error("Failed to list listings", err)
		return nil, err
	}

	return sales, nil
}

func (s *marketplaceService) ListMine(ctx context.Context, userID uint) ([]domain.DeviceSale, error) {
	return s.saleRepo.ListByUser(ctx, userID)
}

// ReviewQueue lists pending listings, Unusable ones included.
func (s *marketplaceService) ReviewQueue(ctx context.Context, actor domain.Actor) ([]domain.DeviceSale, error) {
	if !policy.Can(actor.Role, policy.ListingReview) {
		return nil, fmt.Errorf("role %s cannot review listings: %w", actor.Role, domain.ErrForbidden)
	}

	return s.saleRepo.ListPending(ctx)
}

// ApproveSale publishes a pending listing and credits the seller with the
// awarded points in the same transaction.
func (s *marketplaceService) ApproveSale(ctx context.Context, id uint, reviewer domain.Actor, points int64) (domain.DeviceSale, error) {
	if !policy.Can(reviewer.Role, policy.ListingReview) {
		return domain.DeviceSale{}, fmt.Errorf("role %s cannot review listings: %w", reviewer.Role, domain.ErrForbidden)
	}

	if points < 0 {
		return domain.DeviceSale{}, fmt.Errorf("points must not be negative: %w", domain.ErrInvalidInput)
	}

	var sale domain.DeviceSale
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		sale, err = s.saleRepo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}

		if sale.Status != domain.SaleStatusPending {
			return fmt.Errorf("listing is %s: %w", sale.Status, domain.ErrInvalidTransition)
		}

		sale.Status = domain.SaleStatusApproved
		sale.PointsAwarded = points
		sale.ReviewedBy = &reviewer.ID
		if err := s.saleRepo.Update(ctx, &sale); err != nil {
			return err
		}

		if points == 0 {
			return nil
		}

		wallet, err := s.walletRepo.FindByUserIDForUpdate(ctx, sale.UserID)
		if errors.Is(err, domain.ErrNotFound) {
			wallet = domain.Wallet{UserID: sale.UserID}
			err = s.walletRepo.Create(ctx, &wallet)
		}
		if err != nil {
			return err
		}

		wallet.Points += points
		if err := s.walletRepo.Update(ctx, &wallet); err != nil {
			return err
		}

		return s.walletRepo.CreateTransaction(ctx, &domain.Transaction{
			WalletID:    wallet.ID,
			UserID:      wallet.UserID,
			Type:        domain.TransactionPoints,
			Points:      points,
			Description: fmt.Sprintf("+%d points for listing %s", points, sale.SerialNumber),
		})
	})
	if err != nil {
		logger.Error("Failed to approve listing", err, "sale_id", id)
		return domain.DeviceSale{}, err
	}

	metrics.ListingReviews.WithLabelValues("sale_approved").Inc()

	return sale, nil
}

func (s *marketplaceService) RejectSale(ctx context.Context, id uint, reviewer domain.Actor, reason string) (domain.DeviceSale, error) {
	if !policy.Can(reviewer.Role, policy.ListingReview) {
		return domain.DeviceSale{}, fmt.Errorf("role %s cannot review listings: %w", reviewer.Role, domain.ErrForbidden)
	}

	var sale domain.DeviceSale
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		sale, err = s.saleRepo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}

		if sale.Status != domain.SaleStatusPending {
			return fmt.Errorf("listing is %s: %w", sale.Status, domain.ErrInvalidTransition)
		}

		sale.Status = domain.SaleStatusRejected
		sale.RejectionReason = strings.TrimSpace(reason)
		sale.ReviewedBy = &reviewer.ID

		return s.saleRepo.Update(ctx, &sale)
	})
	if err != nil {
		logger.Error("Failed to reject listing", err, "sale_id", id)
		return domain.DeviceSale{}, err
	}

	metrics.ListingReviews.WithLabelValues("sale_rejected").Inc()

	return sale, nil
}

// PurchaseListing records a purchase request. The listing is not reserved,
// so several buyers may have pending requests for it at once.
func (s *marketplaceService) PurchaseListing(ctx context.Context, saleID uint, buyer domain.Actor, price *decimal.Decimal) (domain.DevicePurchase, error) {
	if !policy.Can(buyer.Role, policy.PurchaseCreate) {
		return domain.DevicePurchase{}, fmt.Errorf("role %s cannot purchase: %w", buyer.Role, domain.ErrForbidden)
	}

	sale, err := s.saleRepo.FindByID(ctx, saleID)
	if err != nil {
		return domain.DevicePurchase{}, err
	}

	if sale.Status != domain.SaleStatusApproved {
		return domain.DevicePurchase{}, fmt.Errorf("listing is %s: %w", sale.Status, domain.ErrConflict)
	}

	if sale.UserID == buyer.ID {
		return domain.DevicePurchase{}, fmt.Errorf("cannot buy your own listing: %w", domain.ErrInvalidInput)
	}

	purchase := domain.DevicePurchase{
		SaleID:  sale.ID,
		BuyerID: buyer.ID,
		Price:   sale.Price,
		Status:  domain.PurchasePending,
	}
	if price != nil {
		if !price.IsPositive() {
			return domain.DevicePurchase{}, fmt.Errorf("price must be positive: %w", domain.ErrInvalidInput)
		}
		if !domain.IsMoney(*price) {
			return domain.DevicePurchase{}, fmt.Errorf("price has more than two decimal places: %w", domain.ErrInvalidInput)
		}
		purchase.Price = *price
	}

	if err := s.saleRepo.CreatePurchase(ctx, &purchase); err != nil {
		logger.Error("Failed to create purchase", err)
		return domain.DevicePurchase{}, err
	}

	return purchase, nil
}

// ApprovePurchase marks the purchase approved and the listing sold. The
// listing row is locked, so only one purchase per listing can win.
func (s *marketplaceService) ApprovePurchase(ctx context.Context, id uint, reviewer domain.Actor) (domain.DevicePurchase, error) {
	if !policy.Can(reviewer.Role, policy.PurchaseReview) {
		return domain.DevicePurchase{}, fmt.Errorf("role %s cannot review purchases: %w", reviewer.Role, domain.ErrForbidden)
	}

	var purchase domain.DevicePurchase
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		purchase, err = s.saleRepo.FindPurchaseForUpdate(ctx, id)
		if err != nil {
			return err
		}

		if purchase.Status != domain.PurchasePending {
			return fmt.Errorf("purchase is %s: %w", purchase.Status, domain.ErrInvalidTransition)
		}

		sale, err := s.saleRepo.FindByIDForUpdate(ctx, purchase.SaleID)
		if err != nil {
			return err
		}

		if sale.Status != domain.SaleStatusApproved {
			return fmt.Errorf("listing is already %s: %w", sale.Status, domain.ErrConflict)
		}

		purchase.Status = domain.PurchaseApproved
		purchase.ReviewedBy = &reviewer.ID
		if err := s.saleRepo.UpdatePurchase(ctx, &purchase); err != nil {
			return err
		}

		sale.Status = domain.SaleStatusSold
		return s.saleRepo.Update(ctx, &sale)
	})
	if err != nil {
		logger.Error("Failed to approve purchase", err, "purchase_id", id)
		return domain.DevicePurchase{}, err
	}

	metrics.ListingReviews.WithLabelValues("purchase_approved").Inc()

	return purchase, nil
}

func (s *marketplaceService) RejectPurchase(ctx context.Context, id uint, reviewer domain.Actor) (domain.DevicePurchase, error) {
	if !policy.Can(reviewer.Role, policy.PurchaseReview) {
		return domain.DevicePurchase{}, fmt.Errorf("role %s cannot review purchases: %w", reviewer.Role, domain.ErrForbidden)
	}

	var purchase domain.DevicePurchase
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		purchase, err = s.saleRepo.FindPurchaseForUpdate(ctx, id)
		if err != nil {
			return err
		}

		if purchase.Status != domain.PurchasePending {
			return fmt.Errorf("purchase is %s: %w", purchase.Status, domain.ErrInvalidTransition)
		}

		purchase.Status = domain.PurchaseRejected
		purchase.ReviewedBy = &reviewer.ID

		return s.saleRepo.UpdatePurchase(ctx, &purchase)
	})
	if err != nil {
		logger.Error("Failed to reject purchase", err, "purchase_id", id)
		return domain.DevicePurchase{}, err
	}

	metrics.ListingReviews.WithLabelValues("purchase_rejected").Inc()

	return purchase, nil
}

// CompletePurchase is the buyer confirming the device was handed over.
func (s *marketplaceService) CompletePurchase(ctx context.Context, id uint, buyer domain.Actor) (domain.DevicePurchase, error) {
	var purchase domain.DevicePurchase
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		purchase, err = s.saleRepo.FindPurchaseForUpdate(ctx, id)
		if err != nil {
			return err
		}

		if purchase.BuyerID != buyer.ID {
			return fmt.Errorf("purchase belongs to another buyer: %w", domain.ErrForbidden)
		}

		if purchase.Status != domain.PurchaseApproved {
			return fmt.Errorf("purchase is %s: %w", purchase.Status, domain.ErrInvalidTransition)
		}

		purchase.Status = domain.PurchaseCompleted

		return s.saleRepo.UpdatePurchase(ctx, &purchase)
	})
	if err != nil {
		logger.Error("Failed to complete purchase", err, "purchase_id", id)
		return domain.DevicePurchase{}, err
	}

	metrics.ListingReviews.WithLabelValues("purchase_completed").Inc()

	return purchase, nil
}

func (s *marketplaceService) ListPurchases(ctx context.Context, status string) ([]domain.DevicePurchase, error) {
	return s.saleRepo.ListPurchases(ctx, status)
}

func (s *marketplaceService) ListMyPurchases(ctx context.Context, buyerID uint) ([]domain.DevicePurchase, error) {
	return s.saleRepo.ListPurchasesByBuyer(ctx, buyerID)
}
