package domain

import (
	"time"

	"gorm.io/datatypes"
)

const (
	ApplicationPending  = "pending"
	ApplicationApproved = "approved"
	ApplicationRejected = "rejected"
)

// IsApplicableRole reports whether users may apply for the role.
func IsApplicableRole(role string) bool {
	return role == RoleTechnician || role == RoleDelivery
}

type RoleApplication struct {
	ID            uint                        `gorm:"primaryKey" json:"id"`
	UserID        uint                        `gorm:"column:user_id;not null;index" json:"user_id"`
	RequestedRole string                      `gorm:"column:requested_role;not null" json:"requested_role"`
	Status        string                      `gorm:"column:status;not null;default:pending" json:"status"`
	Documents     datatypes.JSONSlice[string] `gorm:"column:documents" json:"documents"`
	Notes         string                      `gorm:"column:notes" json:"notes,omitempty"`
	ReviewedBy    *uint                       `gorm:"column:reviewed_by" json:"reviewed_by,omitempty"`
	CreatedAt     time.Time                   `json:"created_at"`
	UpdatedAt     time.Time                   `json:"updated_at"`
}

func (RoleApplication) TableName() string {
	return "role_applications"
}
