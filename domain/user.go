package domain

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Name         string         `gorm:"column:name;not null" json:"name"`
	Email        string         `gorm:"column:email;unique;not null" json:"email"`
	Phone        string         `gorm:"column:phone" json:"phone"`
	Password     string         `gorm:"column:password;not null" json:"-"`
	Role         string         `gorm:"column:role;default:user" json:"role"`
	IsVerified   bool           `gorm:"column:is_verified;default:false" json:"is_verified"`
	ReferralCode string         `gorm:"column:referral_code;unique" json:"referral_code"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// UserProfile is the authenticated caller's view of themselves.
type UserProfile struct {
	User   User   `json:"user"`
	Wallet Wallet `json:"wallet"`
}
