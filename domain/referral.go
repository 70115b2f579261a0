package domain

import "time"

const (
	ReferralPending   = "pending"
	ReferralCompleted = "completed"

	// ReferralBonusPoints is credited to the referrer once the referred
	// user verifies their email.
	ReferralBonusPoints = 5
)

type Referral struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	ReferrerID    uint       `gorm:"column:referrer_id;not null" json:"referrer_id"`
	ReferredID    uint       `gorm:"column:referred_id;unique;not null" json:"referred_id"`
	Status        string     `gorm:"column:status;default:pending" json:"status"`
	PointsAwarded int64      `gorm:"column:points_awarded;default:0" json:"points_awarded"`
	CompletedAt   *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func (Referral) TableName() string {
	return "referrals"
}
