package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCanTransitionRepair(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{RepairPending, RepairAccepted, true},
		{RepairPending, RepairInTransit, true},
		{RepairPending, RepairAssigned, true},
		{RepairPending, RepairComplete, false},
		{RepairAssigned, RepairInProgress, true},
		{RepairAccepted, RepairComplete, true},
		{RepairInTransit, RepairAccepted, false},
		{RepairInProgress, RepairComplete, true},
		{RepairComplete, RepairPending, false},
		{RepairComplete, RepairInProgress, false},
		{RepairAccepted, RepairPending, false},
	}

	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransitionRepair(tt.from, tt.to))
		})
	}
}

func TestIsValidRepairStatus(t *testing.T) {
	assert.True(t, IsValidRepairStatus(RepairComplete))
	assert.True(t, IsValidRepairStatus(RepairInTransit))
	assert.False(t, IsValidRepairStatus("cancelled"))
}

func TestNewRepairView(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("not accepted", func(t *testing.T) {
		view := NewRepairView(RepairRequest{Status: RepairPending}, now)
		assert.Nil(t, view.AcceptanceExpiresAt)
		assert.False(t, view.AcceptanceWindowOpen)
	})

	t.Run("inside window", func(t *testing.T) {
		accepted := now.Add(-5 * time.Minute)
		view := NewRepairView(RepairRequest{AcceptedAt: &accepted}, now)
		assert.Equal(t, accepted.Add(15*time.Minute), *view.AcceptanceExpiresAt)
		assert.True(t, view.AcceptanceWindowOpen)
	})

	t.Run("window elapsed", func(t *testing.T) {
		accepted := now.Add(-20 * time.Minute)
		view := NewRepairView(RepairRequest{AcceptedAt: &accepted, Status: RepairAccepted}, now)
		assert.False(t, view.AcceptanceWindowOpen)
		assert.Equal(t, RepairAccepted, view.Status)
	})
}

func TestSerialPrefix(t *testing.T) {
	for cond, want := range map[string]string{
		ConditionNew:         "N",
		ConditionRefurbished: "R",
		ConditionUsed:        "U",
		ConditionUnusable:    "U",
	} {
		got, ok := SerialPrefix(cond)
		assert.True(t, ok)
		assert.Equal(t, want, got)
	}

	_, ok := SerialPrefix("Broken")
	assert.False(t, ok)
}

func TestWalletSpendable(t *testing.T) {
	w := Wallet{Balance: decimal.NewFromInt(100), Reserved: decimal.NewFromInt(30)}
	assert.True(t, w.Spendable().Equal(decimal.NewFromInt(70)))
}
