package domain

const (
	SequenceRepair = "repair"
	SequenceSale   = "sale"
	// SequenceGlobalPeriod is the period key for counters that never reset.
	SequenceGlobalPeriod = "all"
)

type Sequence struct {
	Scope  string `gorm:"primaryKey;column:scope"`
	Period string `gorm:"primaryKey;column:period"`
	Value  int64  `gorm:"column:value;not null"`
}

func (Sequence) TableName() string {
	return "sequences"
}
