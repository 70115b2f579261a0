package domain

import "time"

type Shop struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OwnerID   uint      `gorm:"column:owner_id;not null" json:"owner_id"`
	Name      string    `gorm:"column:name;not null" json:"name"`
	Code      string    `gorm:"column:code;unique;not null" json:"code"`
	Location  string    `gorm:"column:location;not null" json:"location"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Shop) TableName() string {
	return "shops"
}
