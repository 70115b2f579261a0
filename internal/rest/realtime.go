package rest

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"electroCare/business/policy"
	"electroCare/domain"
	"electroCare/internal/middleware"
	"electroCare/pkg/logger"

	"github.com/labstack/echo/v4"
)

type (
	// RealtimeHub upgrades a request into a websocket subscribed to rooms.
	RealtimeHub interface {
		Serve(w http.ResponseWriter, r *http.Request, userID uint, rooms []string) error
	}

	RepairViewer interface {
		Get(ctx context.Context, id uint, actor domain.Actor) (domain.RepairView, error)
	}

	RealtimeHandler struct {
		hub     RealtimeHub
		repairs RepairViewer
		timeout time.Duration
	}
)

func NewRealtimeHandler(hub RealtimeHub, repairs RepairViewer) *RealtimeHandler {
	return &RealtimeHandler{
		hub:     hub,
		repairs: repairs,
		timeout: 5 * time.Second,
	}
}

// Subscribe joins the rooms named by the repeated room query parameter. A
// repair room needs read access to that repair.
func (h *RealtimeHandler) Subscribe(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return unauthorized(c)
	}

	rooms := c.QueryParams()["room"]
	if len(rooms) == 0 {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "at least one room is required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	for _, room := range rooms {
		if err := h.authorizeRoom(ctx, actor, room); err != nil {
			return errorResponse(c, err)
		}
	}

	if err := h.hub.Serve(c.Response(), c.Request(), actor.ID, rooms); err != nil {
		// The upgrader has already written the failure response.
		logger.Warn("Websocket upgrade failed", err, "user_id", actor.ID)
	}

	return nil
}

func (h *RealtimeHandler) authorizeRoom(ctx context.Context, actor domain.Actor, room string) error {
	switch room {
	case domain.RoomRepairs:
		if policy.Can(actor.Role, policy.RepairViewQueue) || policy.Can(actor.Role, policy.RepairViewTechQueue) {
			return nil
		}
		return fmt.Errorf("cannot watch the repair feed: %w", domain.ErrForbidden)
	case domain.RoomDeliveries:
		if policy.Can(actor.Role, policy.RepairTrack) || policy.Can(actor.Role, policy.RepairViewAny) {
			return nil
		}
		return fmt.Errorf("cannot watch delivery requests: %w", domain.ErrForbidden)
	}

	raw, ok := strings.CutPrefix(room, "repair:")
	if !ok {
		return fmt.Errorf("unknown room %q: %w", room, domain.ErrInvalidInput)
	}

	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return fmt.Errorf("unknown room %q: %w", room, domain.ErrInvalidInput)
	}

	_, err = h.repairs.Get(ctx, uint(id), actor)
	return err
}
