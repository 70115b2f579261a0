package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	RepairPending    = "pending"
	RepairAccepted   = "accepted"
	RepairAssigned   = "assigned"
	RepairInTransit  = "in_transit"
	RepairInProgress = "in_progress"
	RepairComplete   = "repair_complete"

	PaymentMethodOnline   = "online"
	PaymentMethodCOD      = "cod"
	OnlinePaymentDiscount = 10

	// AcceptanceWindow is shown to dashboards after acceptance. Nothing
	// happens when it elapses.
	AcceptanceWindow = 15 * time.Minute
)

// DeliveryFlatCost is charged whenever a delivery actor accepts a repair.
var DeliveryFlatCost = decimal.NewFromInt(100)

var repairTransitions = map[string][]string{
	RepairPending:    {RepairAccepted, RepairInTransit, RepairAssigned},
	RepairAssigned:   {RepairAccepted, RepairInProgress, RepairComplete},
	RepairAccepted:   {RepairInTransit, RepairAssigned, RepairInProgress, RepairComplete},
	RepairInTransit:  {RepairInProgress, RepairComplete},
	RepairInProgress: {RepairComplete},
}

// CanTransitionRepair reports whether a repair may move from one status to
// another. repair_complete has no outgoing edges.
func CanTransitionRepair(from, to string) bool {
	for _, next := range repairTransitions[from] {
		if next == to {
			return true
		}
	}

	return false
}

func IsValidRepairStatus(status string) bool {
	_, ok := repairTransitions[status]
	return ok || status == RepairComplete
}

type RepairRequest struct {
	ID               uint             `gorm:"primaryKey" json:"id"`
	RequestID        string           `gorm:"column:request_id;unique;not null" json:"request_id"`
	UserID           uint             `gorm:"column:user_id;not null;index" json:"user_id"`
	TechnicianID     *uint            `gorm:"column:technician_id;index" json:"technician_id,omitempty"`
	ShopID           *uint            `gorm:"column:shop_id" json:"shop_id,omitempty"`
	DeliveryPersonID *uint            `gorm:"column:delivery_person_id" json:"delivery_person_id,omitempty"`
	DeviceType       string           `gorm:"column:device_type;not null" json:"device_type"`
	DeviceModel      string           `gorm:"column:device_model" json:"device_model"`
	Issue            string           `gorm:"column:issue;not null" json:"issue"`
	Status           string           `gorm:"column:status;not null;default:pending;index" json:"status"`
	Delivery         bool             `gorm:"column:delivery;default:false" json:"delivery"`
	Address          string           `gorm:"column:address" json:"address,omitempty"`
	Cost             *decimal.Decimal `gorm:"column:cost;type:numeric(14,2)" json:"cost,omitempty"`
	EstimatedTime    string           `gorm:"column:estimated_time" json:"estimated_time,omitempty"`
	PaymentMethod    string           `gorm:"column:payment_method;default:cod" json:"payment_method"`
	Discount         int              `gorm:"column:discount;default:0" json:"discount"`
	AcceptedAt       *time.Time       `gorm:"column:accepted_at" json:"accepted_at,omitempty"`
	CompletedAt      *time.Time       `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

func (RepairRequest) TableName() string {
	return "repair_requests"
}

// RepairView decorates a repair with its informational acceptance window.
type RepairView struct {
	RepairRequest
	AcceptanceExpiresAt  *time.Time `json:"acceptance_expires_at,omitempty"`
	AcceptanceWindowOpen bool       `json:"acceptance_window_open"`
}

func NewRepairView(r RepairRequest, now time.Time) RepairView {
	view := RepairView{RepairRequest: r}
	if r.AcceptedAt != nil {
		exp := r.AcceptedAt.Add(AcceptanceWindow)
		view.AcceptanceExpiresAt = &exp
		view.AcceptanceWindowOpen = now.Before(exp)
	}

	return view
}
