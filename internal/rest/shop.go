package rest

import (
	"context"
	"net/http"
	"time"

	"electroCare/business/shop"
	"electroCare/domain"
	"electroCare/pkg/logger"

	"github.com/AMFarhan21/fres"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type (
	ShopService interface {
		CreateShop(ctx context.Context, in shop.CreateInput) (domain.Shop, error)
		ListShops(ctx context.Context) ([]domain.Shop, error)
	}

	ShopHandler struct {
		shopService ShopService
		validate    *validator.Validate
		timeout     time.Duration
	}

	CreateShopRequest struct {
		OwnerID  uint   `json:"owner_id" validate:"required"`
		Name     string `json:"name" validate:"required,max=150"`
		Code     string `json:"code" validate:"required,alphanum,max=20"`
		Location string `json:"location" validate:"required,max=150"`
	}
)

func NewShopHandler(shopService ShopService) *ShopHandler {
	return &ShopHandler{
		shopService: shopService,
		validate:    validator.New(),
		timeout:     10 * time.Second,
	}
}

func (h *ShopHandler) CreateShop(c echo.Context) error {
	var req CreateShopRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}

	if err := h.validate.Struct(&req); err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	created, err := h.shopService.CreateShop(ctx, shop.CreateInput{
		OwnerID:  req.OwnerID,
		Name:     req.Name,
		Code:     req.Code,
		Location: req.Location,
	})
	if err != nil {
		logger.Error("Failed to create shop", err, "code", req.Code)
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusCreated, fres.Response.StatusCreated(created))
}

func (h *ShopHandler) ListShops(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	shops, err := h.shopService.ListShops(ctx)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(shops))
}
