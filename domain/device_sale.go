package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	ConditionNew         = "New"
	ConditionUsed        = "Used"
	ConditionRefurbished = "Refurbished"
	ConditionUnusable    = "Unusable"

	SaleStatusPending  = "pending"
	SaleStatusApproved = "approved"
	SaleStatusRejected = "rejected"
	SaleStatusSold     = "sold"

	PurchasePending   = "pending"
	PurchaseApproved  = "approved"
	PurchaseRejected  = "rejected"
	PurchaseCompleted = "completed"

	MaxListingImages = 5
	OnlineShopCode   = "ONLINE"
)

var conditionPrefixes = map[string]string{
	ConditionNew:         "N",
	ConditionRefurbished: "R",
	ConditionUsed:        "U",
	ConditionUnusable:    "U",
}

// SerialPrefix returns the serial-number letter for a listing condition.
func SerialPrefix(condition string) (string, bool) {
	p, ok := conditionPrefixes[condition]
	return p, ok
}

// IsPremiumCondition reports whether only privileged sellers may list
// devices in this condition.
func IsPremiumCondition(condition string) bool {
	return condition == ConditionNew || condition == ConditionRefurbished
}

type DeviceSale struct {
	ID              uint                        `gorm:"primaryKey" json:"id"`
	UserID          uint                        `gorm:"column:user_id;not null;index" json:"user_id"`
	DeviceName      string                      `gorm:"column:device_name;not null" json:"device_name"`
	Description     string                      `gorm:"column:description" json:"description"`
	Price           decimal.Decimal             `gorm:"column:price;type:numeric(14,2);not null" json:"price"`
	Images          datatypes.JSONSlice[string] `gorm:"column:images" json:"images"`
	Condition       string                      `gorm:"column:condition;not null" json:"condition"`
	Status          string                      `gorm:"column:status;not null;default:pending;index" json:"status"`
	Category        string                      `gorm:"column:category" json:"category"`
	SubCategory     string                      `gorm:"column:sub_category" json:"sub_category"`
	Location        string                      `gorm:"column:location" json:"location"`
	SerialNumber    string                      `gorm:"column:serial_number;unique;not null" json:"serial_number"`
	RejectionReason string                      `gorm:"column:rejection_reason" json:"rejection_reason,omitempty"`
	PointsAwarded   int64                       `gorm:"column:points_awarded;default:0" json:"points_awarded"`
	ReviewedBy      *uint                       `gorm:"column:reviewed_by" json:"reviewed_by,omitempty"`
	CreatedAt       time.Time                   `json:"created_at"`
	UpdatedAt       time.Time                   `json:"updated_at"`
}

func (DeviceSale) TableName() string {
	return "device_sales"
}

type DevicePurchase struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	SaleID     uint            `gorm:"column:sale_id;not null;index" json:"sale_id"`
	BuyerID    uint            `gorm:"column:buyer_id;not null;index" json:"buyer_id"`
	Price      decimal.Decimal `gorm:"column:price;type:numeric(14,2);not null" json:"price"`
	Status     string          `gorm:"column:status;not null;default:pending" json:"status"`
	ReviewedBy *uint           `gorm:"column:reviewed_by" json:"reviewed_by,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func (DevicePurchase) TableName() string {
	return "device_purchases"
}
