package postgres

import (
	"context"

	"gorm.io/gorm"
)

type SequenceRepository struct {
	DB *gorm.DB
}

func NewSequenceRepository(db *gorm.DB) *SequenceRepository {
	return &SequenceRepository{
		DB: db,
	}
}

// Next atomically increments and returns the counter for scope/period,
// starting at 1.
func (r *SequenceRepository) Next(ctx context.Context, scope, period string) (int64, error) {
	var value int64

	err := conn(ctx, r.DB).Raw(
		`INSERT INTO sequences (scope, period, value) VALUES (?, ?, 1)
		 ON CONFLICT (scope, period) DO UPDATE SET value = sequences.value + 1
		 RETURNING value`,
		scope, period,
	).Scan(&value).Error
	if err != nil {
		return 0, err
	}

	return value, nil
}
