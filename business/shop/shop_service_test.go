package shop

import (
	"context"
	"testing"

	"electroCare/domain"
	"electroCare/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateShop(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := NewShopService(store.Shops(), store.Users())

	owner := domain.User{Name: "Fixit", Email: "fixit@example.com", Password: "x", Role: domain.RoleShop}
	require.NoError(t, store.Users().Create(ctx, &owner))
	plain := domain.User{Name: "Ann", Email: "ann@example.com", Password: "x", Role: domain.RoleUser}
	require.NoError(t, store.Users().Create(ctx, &plain))

	shop, err := svc.CreateShop(ctx, CreateInput{OwnerID: owner.ID, Name: "Fixit CBD", Code: " cbd ", Location: "Nairobi CBD"})
	require.NoError(t, err)
	assert.Equal(t, "CBD", shop.Code)

	tests := []struct {
		name    string
		in      CreateInput
		wantErr error
	}{
		{"duplicate code", CreateInput{OwnerID: owner.ID, Name: "Other", Code: "CBD", Location: "Westlands"}, domain.ErrConflict},
		{"owner lacks shop role", CreateInput{OwnerID: plain.ID, Name: "Ann's", Code: "ANN", Location: "Kisumu"}, domain.ErrInvalidInput},
		{"unknown owner", CreateInput{OwnerID: 999, Name: "Ghost", Code: "GH", Location: "Mombasa"}, domain.ErrNotFound},
		{"reserved code", CreateInput{OwnerID: owner.ID, Name: "Web", Code: "online", Location: "Web"}, domain.ErrInvalidInput},
		{"code with dash", CreateInput{OwnerID: owner.ID, Name: "Dash", Code: "A-B", Location: "Thika"}, domain.ErrInvalidInput},
		{"missing location", CreateInput{OwnerID: owner.ID, Name: "Nowhere", Code: "NW"}, domain.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateShop(ctx, tt.in)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	shops, err := svc.ListShops(ctx)
	require.NoError(t, err)
	assert.Len(t, shops, 1)
}
