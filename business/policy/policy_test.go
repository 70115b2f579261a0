package policy

import (
	"testing"

	"electroCare/domain"

	"github.com/stretchr/testify/assert"
)

func TestCan(t *testing.T) {
	tests := []struct {
		role   string
		action Action
		want   bool
	}{
		{domain.RoleUser, RepairCreate, true},
		{domain.RoleUser, RepairAccept, false},
		{domain.RoleDelivery, RepairAccept, true},
		{domain.RoleShop, RepairUpdateStatus, false},
		{domain.RoleTechnician, RepairUpdateStatus, true},
		{domain.RoleUser, ListingCreatePremium, false},
		{domain.RoleTechnician, ListingCreatePremium, false},
		{domain.RoleShop, ListingCreatePremium, true},
		{domain.RoleAdmin, ListingAutoApprove, true},
		{domain.RoleTechnician, ListingReview, true},
		{domain.RoleShop, PurchaseReview, false},
		{domain.RoleAdmin, WithdrawalReview, true},
		{domain.RoleUser, ApplicationSubmit, true},
		{domain.RoleTechnician, ApplicationSubmit, false},
		{"", WalletUse, false},
		{domain.RoleAdmin, Action("nope"), false},
	}

	for _, tt := range tests {
		t.Run(tt.role+"/"+string(tt.action), func(t *testing.T) {
			assert.Equal(t, tt.want, Can(tt.role, tt.action))
		})
	}
}
