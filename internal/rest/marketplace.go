package rest

import (
	"context"
	"net/http"
	"time"

	"electroCare/business/marketplace"
	"electroCare/domain"
	"electroCare/internal/middleware"
	"electroCare/pkg/logger"

	"github.com/AMFarhan21/fres"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type (
	MarketplaceService interface {
		PostListing(ctx context.Context, actor domain.Actor, in marketplace.ListingInput) (domain.DeviceSale, error)
		ListListings(ctx context.Context, category string) ([]domain.DeviceSale, error)
		ListMine(ctx context.Context, userID uint) ([]domain.DeviceSale, error)
		ReviewQueue(ctx context.Context, actor domain.Actor) ([]domain.DeviceSale, error)
		ApproveSale(ctx context.Context, id uint, reviewer domain.Actor, points int64) (domain.DeviceSale, error)
		RejectSale(ctx context.Context, id uint, reviewer domain.Actor, reason string) (domain.DeviceSale, error)
		PurchaseListing(ctx context.Context, saleID uint, buyer domain.Actor, price *decimal.Decimal) (domain.DevicePurchase, error)
		ApprovePurchase(ctx context.Context, id uint, reviewer domain.Actor) (domain.DevicePurchase, error)
		RejectPurchase(ctx context.Context, id uint, reviewer domain.Actor) (domain.DevicePurchase, error)
		CompletePurchase(ctx context.Context, id uint, buyer domain.Actor) (domain.DevicePurchase, error)
		ListPurchases(ctx context.Context, status string) ([]domain.DevicePurchase, error)
		ListMyPurchases(ctx context.Context, buyerID uint) ([]domain.DevicePurchase, error)
	}

	MarketplaceHandler struct {
		marketplaceService MarketplaceService
		validate           *validator.Validate
		timeout            time.Duration
	}

	PostListingRequest struct {
		DeviceName  string          `json:"device_name" validate:"required,max=150"`
		Description string          `json:"description"`
		Price       decimal.Decimal `json:"price"`
		Images      []string        `json:"images" validate:"max=5,dive,url"`
		Condition   string          `json:"condition" validate:"required,oneof=New Used Refurbished Unusable"`
		Category    string          `json:"category" validate:"max=100"`
		SubCategory string          `json:"sub_category" validate:"max=100"`
		Location    string          `json:"location" validate:"max=150"`
	}

	PurchaseRequest struct {
		SaleID uint             `json:"sale_id" validate:"required"`
		Price  *decimal.Decimal `json:"price"`
	}

	ReviewSaleRequest struct {
		SaleID uint   `json:"sale_id" validate:"required"`
		Points int64  `json:"points" validate:"gte=0"`
		Reason string `json:"reason" validate:"max=255"`
	}

	ReviewPurchaseRequest struct {
		PurchaseID uint `json:"purchase_id" validate:"required"`
	}
)

func NewMarketplaceHandler(marketplaceService MarketplaceService) *MarketplaceHandler {
	return &MarketplaceHandler{
		marketplaceService: marketplaceService,
		validate:           validator.New(),
		timeout:            10 * time.Second,
	}
}

func (h *MarketplaceHandler) PostListing(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return unauthorized(c)
	}

	var req PostListingRequest
	if err := c.Bind(&req); err != nil {
		logger.Error("Invalid request body", err)
		return badRequest(c, err)
	}

	if err := h.validate.Struct(&req); err != nil {
		logger.Error("Failed to validate listing", err)
		return badRequest(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	sale, err := h.marketplaceService.PostListing(ctx, actor, marketplace.ListingInput{
		DeviceName:  req.DeviceName,
		Description: req.Description,
		Price:       req.Price,
		Images:      req.Images,
		Condition:   req.Condition,
		Category:    req.Category,
		SubCategory: req.SubCategory,
		Location:    req.Location,
	})
	if err != nil {
		logger.Error("Failed to post listing", err)
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusCreated, fres.Response.StatusCreated(sale))
}

func (h *MarketplaceHandler) ListListings(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	sales, err := h.marketplaceService.ListListings(ctx, c.QueryParam("category"))
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(sales))
}

func (h *MarketplaceHandler) ListMine(c echo.Context) error {
	userID, ok := c.Get("user_id").(uint)
	if !ok {
		return unauthorized(c)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	sales, err := h.marketplaceService.ListMine(ctx, userID)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(sales))
}

func (h *MarketplaceHandler) ReviewQueue(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return unauthorized(c)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	sales, err := h.marketplaceService.ReviewQueue(ctx, actor)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(sales))
}

func (h *MarketplaceHandler) Purchase(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return unauthorized(c)
	}

	var req PurchaseRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}

	if err := h.validate.Struct(&req); err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	purchase, err := h.marketplaceService.PurchaseListing(ctx, req.SaleID, actor, req.Price)
	if err != nil {
		logger.Error("Failed to create purchase", err, "sale_id", req.SaleID)
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusCreated, fres.Response.StatusCreated(purchase))
}

func (h *MarketplaceHandler) ListMyPurchases(c echo.Context) error {
	userID, ok := c.Get("user_id").(uint)
	if !ok {
		return unauthorized(c)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	purchases, err := h.marketplaceService.ListMyPurchases(ctx, userID)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(purchases))
}

func (h *MarketplaceHandler) ApproveSale(c echo.Context) error {
	return h.reviewSale(c, true)
}

func (h *MarketplaceHandler) RejectSale(c echo.Context) error {
	return h.reviewSale(c, false)
}

func (h *MarketplaceHandler) reviewSale(c echo.Context, approve bool) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return unauthorized(c)
	}

	var req ReviewSaleRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}

	if err := h.validate.Struct(&req); err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	var (
		sale domain.DeviceSale
		err  error
	)
	if approve {
		sale, err = h.marketplaceService.ApproveSale(ctx, req.SaleID, actor, req.Points)
	} else {
		sale, err = h.marketplaceService.RejectSale(ctx, req.SaleID, actor, req.Reason)
	}
	if err != nil {
		logger.Error("Failed to review sale", err, "sale_id", req.SaleID, "approve", approve)
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(sale))
}

func (h *MarketplaceHandler) ApprovePurchase(c echo.Context) error {
	return h.reviewPurchase(c, true)
}

func (h *MarketplaceHandler) RejectPurchase(c echo.Context) error {
	return h.reviewPurchase(c, false)
}

func (h *MarketplaceHandler) reviewPurchase(c echo.Context, approve bool) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return unauthorized(c)
	}

	var req ReviewPurchaseRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}

	if err := h.validate.Struct(&req); err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	var (
		purchase domain.DevicePurchase
		err      error
	)
	if approve {
		purchase, err = h.marketplaceService.ApprovePurchase(ctx, req.PurchaseID, actor)
	} else {
		purchase, err = h.marketplaceService.RejectPurchase(ctx, req.PurchaseID, actor)
	}
	if err != nil {
		logger.Error("Failed to review purchase", err, "purchase_id", req.PurchaseID, "approve", approve)
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(purchase))
}

func (h *MarketplaceHandler) CompletePurchase(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return unauthorized(c)
	}

	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	purchase, err := h.marketplaceService.CompletePurchase(ctx, id, actor)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(purchase))
}

func (h *MarketplaceHandler) ListPurchases(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	purchases, err := h.marketplaceService.ListPurchases(ctx, c.QueryParam("status"))
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(purchases))
}
