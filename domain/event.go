package domain

import (
	"strconv"
	"time"
)

const (
	EventRepairUpdate    = "repair_update"
	EventDeliveryRequest = "delivery_request"
	EventTrackingUpdate  = "tracking_update"

	RoomRepairs    = "repairs"
	RoomDeliveries = "deliveries"
)

func RepairRoom(id uint) string {
	return "repair:" + strconv.FormatUint(uint64(id), 10)
}

// Event is a realtime notification pushed to subscribed clients so they
// refetch. Delivery is at most once.
type Event struct {
	Type      string    `json:"type"`
	Room      string    `json:"room"`
	Payload   any       `json:"payload,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type TrackingUpdate struct {
	RepairID  uint    `json:"repair_id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Note      string  `json:"note,omitempty"`
}

// BroadcastJob is queued by admins and fanned out to recipients by the
// broadcast consumer.
type BroadcastJob struct {
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	Role      string    `json:"role,omitempty"`
	RequestBy uint      `json:"request_by"`
	CreatedAt time.Time `json:"created_at"`
}
