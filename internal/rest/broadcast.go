package rest

import (
	"context"
	"net/http"
	"time"

	"electroCare/domain"
	"electroCare/internal/middleware"
	"electroCare/pkg/logger"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type BroadcastService interface {
	Enqueue(ctx context.Context, actor domain.Actor, subject, message, role string) (domain.BroadcastJob, error)
}

type BroadcastHandler struct {
	broadcastService BroadcastService
	validate         *validator.Validate
	timeout          time.Duration
}

func NewBroadcastHandler(broadcastService BroadcastService) *BroadcastHandler {
	return &BroadcastHandler{
		broadcastService: broadcastService,
		validate:         validator.New(),
		timeout:          10 * time.Second,
	}
}

type BroadcastRequest struct {
	Subject string `json:"subject" validate:"required,max=200"`
	Message string `json:"message" validate:"required"`
	Role    string `json:"role" validate:"omitempty,oneof=user technician delivery admin shop"`
}

// Broadcast queues the email and answers 202; delivery happens in the
// background consumer.
func (h *BroadcastHandler) Broadcast(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return unauthorized(c)
	}

	var req BroadcastRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}

	if err := h.validate.Struct(&req); err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	job, err := h.broadcastService.Enqueue(ctx, actor, req.Subject, req.Message, req.Role)
	if err != nil {
		logger.Error("Failed to queue broadcast", err)
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusAccepted, map[string]interface{}{
		"message": "Broadcast queued",
		"job":     job,
	})
}
