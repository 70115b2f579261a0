package rest

import (
	"context"
	"net/http"
	"time"

	"electroCare/business/recruitment"
	"electroCare/domain"
	"electroCare/internal/middleware"
	"electroCare/pkg/logger"

	"github.com/AMFarhan21/fres"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type (
	RecruitmentService interface {
		Apply(ctx context.Context, actor domain.Actor, in recruitment.ApplyInput) (domain.RoleApplication, error)
		Approve(ctx context.Context, id uint, reviewer domain.Actor) (domain.RoleApplication, error)
		Reject(ctx context.Context, id uint, reviewer domain.Actor, reason string) (domain.RoleApplication, error)
		ListPending(ctx context.Context) ([]domain.RoleApplication, error)
		ListMine(ctx context.Context, userID uint) ([]domain.RoleApplication, error)
	}

	RecruitmentHandler struct {
		recruitmentService RecruitmentService
		validate           *validator.Validate
		timeout            time.Duration
	}

	ApplyRequest struct {
		Documents []string `json:"documents" validate:"required,min=1,max=10,dive,url"`
		Notes     string   `json:"notes" validate:"max=1000"`
	}

	RejectApplicationRequest struct {
		Reason string `json:"reason" validate:"max=255"`
	}
)

func NewRecruitmentHandler(recruitmentService RecruitmentService) *RecruitmentHandler {
	return &RecruitmentHandler{
		recruitmentService: recruitmentService,
		validate:           validator.New(),
		timeout:            10 * time.Second,
	}
}

func (h *RecruitmentHandler) ApplyTechnician(c echo.Context) error {
	return h.apply(c, domain.RoleTechnician)
}

func (h *RecruitmentHandler) ApplyDelivery(c echo.Context) error {
	return h.apply(c, domain.RoleDelivery)
}

func (h *RecruitmentHandler) apply(c echo.Context, role string) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return unauthorized(c)
	}

	var req ApplyRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}

	if err := h.validate.Struct(&req); err != nil {
		logger.Error("Failed to validate role application", err)
		return badRequest(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	app, err := h.recruitmentService.Apply(ctx, actor, recruitment.ApplyInput{
		Role:      role,
		Documents: req.Documents,
		Notes:     req.Notes,
	})
	if err != nil {
		logger.Error("Failed to submit role application", err, "role", role)
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusCreated, fres.Response.StatusCreated(app))
}

func (h *RecruitmentHandler) ListMine(c echo.Context) error {
	userID, ok := c.Get("user_id").(uint)
	if !ok {
		return unauthorized(c)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	apps, err := h.recruitmentService.ListMine(ctx, userID)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(apps))
}

func (h *RecruitmentHandler) ListPending(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	apps, err := h.recruitmentService.ListPending(ctx)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(apps))
}

func (h *RecruitmentHandler) Approve(c echo.Context) error {
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

	app, err := h.recruitmentService.Approve(ctx, id, actor)
	if err != nil {
		logger.Error("Failed to approve role application", err, "application_id", id)
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(app))
}

func (h *RecruitmentHandler) Reject(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return unauthorized(c)
	}

	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, err)
	}

	var req RejectApplicationRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}

	if err := h.validate.Struct(&req); err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	app, err := h.recruitmentService.Reject(ctx, id, actor, req.Reason)
	if err != nil {
		logger.Error("Failed to reject role application", err, "application_id", id)
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(app))
}
