package rest

import (
	"context"
	"net/http"
	"time"

	"electroCare/business/repair"
	"electroCare/domain"
	"electroCare/internal/middleware"
	"electroCare/pkg/logger"

	"github.com/AMFarhan21/fres"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type (
	RepairService interface {
		Create(ctx context.Context, actor domain.Actor, in repair.CreateInput) (domain.RepairView, error)
		Accept(ctx context.Context, id uint, actor domain.Actor, in repair.AcceptInput) (domain.RepairView, error)
		UpdateStatus(ctx context.Context, id uint, actor domain.Actor, status string) (domain.RepairView, error)
		AssignTechnician(ctx context.Context, id uint, actor domain.Actor, technicianID uint) (domain.RepairView, error)
		Track(ctx context.Context, id uint, actor domain.Actor, in repair.TrackInput) error
		ListMine(ctx context.Context, userID uint) ([]domain.RepairView, error)
		ListQueue(ctx context.Context, actor domain.Actor) ([]domain.RepairView, error)
		ListTechQueue(ctx context.Context, actor domain.Actor) ([]domain.RepairView, error)
		Get(ctx context.Context, id uint, actor domain.Actor) (domain.RepairView, error)
	}

	RepairHandler struct {
		repairService RepairService
		validate      *validator.Validate
		timeout       time.Duration
	}

	CreateRepairRequest struct {
		DeviceType    string `json:"device_type" validate:"required,max=100"`
		DeviceModel   string `json:"device_model" validate:"max=100"`
		Issue         string `json:"issue" validate:"required"`
		Delivery      bool   `json:"delivery"`
		Address       string `json:"address" validate:"required_if=Delivery true"`
		PaymentMethod string `json:"payment_method" validate:"omitempty,oneof=online cod"`
	}

	AcceptRepairRequest struct {
		Cost          *decimal.Decimal `json:"cost"`
		EstimatedTime string           `json:"estimated_time" validate:"max=100"`
	}

	UpdateRepairStatusRequest struct {
		Status string `json:"status" validate:"required"`
	}

	AssignTechnicianRequest struct {
		TechnicianID uint `json:"technician_id" validate:"required"`
	}

	TrackRepairRequest struct {
		Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
		Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
		Note      string  `json:"note" validate:"max=255"`
	}
)

func NewRepairHandler(repairService RepairService) *RepairHandler {
	return &RepairHandler{
		repairService: repairService,
		validate:      validator.New(),
		timeout:       10 * time.Second,
	}
}

func (h *RepairHandler) Create(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return unauthorized(c)
	}

	var req CreateRepairRequest
	if err := c.Bind(&req); err != nil {
		logger.Error("Invalid request body", err)
		return badRequest(c, err)
	}

	if err := h.validate.Struct(&req); err != nil {
		logger.Error("Failed to validate repair request", err)
		return badRequest(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	view, err := h.repairService.Create(ctx, actor, repair.CreateInput{
		DeviceType:    req.DeviceType,
		DeviceModel:   req.DeviceModel,
		Issue:         req.Issue,
		Delivery:      req.Delivery,
		Address:       req.Address,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		logger.Error("Failed to create repair request", err)
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusCreated, fres.Response.StatusCreated(view))
}

func (h *RepairHandler) Accept(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return unauthorized(c)
	}

	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, err)
	}

	var req AcceptRepairRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}

	if err := h.validate.Struct(&req); err != nil {
		return badRequest(c, err)
	}

	in := repair.AcceptInput{EstimatedTime: req.EstimatedTime}
	if req.Cost != nil {
		in.Cost = *req.Cost
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	view, err := h.repairService.Accept(ctx, id, actor, in)
	if err != nil {
		logger.Error("Failed to accept repair", err, "repair_id", id)
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(view))
}

func (h *RepairHandler) UpdateStatus(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return unauthorized(c)
	}

	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, err)
	}

	var req UpdateRepairStatusRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}

	if err := h.validate.Struct(&req); err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	view, err := h.repairService.UpdateStatus(ctx, id, actor, req.Status)
	if err != nil {
		logger.Error("Failed to update repair status", err, "repair_id", id, "status", req.Status)
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(view))
}

func (h *RepairHandler) AssignTechnician(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return unauthorized(c)
	}

	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, err)
	}

	var req AssignTechnicianRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}

	if err := h.validate.Struct(&req); err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	view, err := h.repairService.AssignTechnician(ctx, id, actor, req.TechnicianID)
	if err != nil {
		logger.Error("Failed to assign technician", err, "repair_id", id)
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(view))
}

func (h *RepairHandler) Track(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return unauthorized(c)
	}

	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, err)
	}

	var req TrackRepairRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}

	if err := h.validate.Struct(&req); err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	err = h.repairService.Track(ctx, id, actor, repair.TrackInput{
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Note:      req.Note,
	})
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK("Tracking update sent"))
}

func (h *RepairHandler) ListMine(c echo.Context) error {
	userID, ok := c.Get("user_id").(uint)
	if !ok {
		return unauthorized(c)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	repairs, err := h.repairService.ListMine(ctx, userID)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(repairs))
}

func (h *RepairHandler) ListQueue(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return unauthorized(c)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	repairs, err := h.repairService.ListQueue(ctx, actor)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(repairs))
}

func (h *RepairHandler) ListTechQueue(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return unauthorized(c)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	repairs, err := h.repairService.ListTechQueue(ctx, actor)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(repairs))
}

func (h *RepairHandler) Get(c echo.Context) error {
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

	view, err := h.repairService.Get(ctx, id, actor)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(view))
}
