package rest

import (
	"context"
	"net/http"
	"testing"

	"electroCare/business/shop"
	"electroCare/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockShopService struct {
	mock.Mock
}

func (m *mockShopService) CreateShop(ctx context.Context, in shop.CreateInput) (domain.Shop, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(domain.Shop), args.Error(1)
}

func (m *mockShopService) ListShops(ctx context.Context) ([]domain.Shop, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Shop), args.Error(1)
}

type mockBroadcastService struct {
	mock.Mock
}

func (m *mockBroadcastService) Enqueue(ctx context.Context, actor domain.Actor, subject, message, role string) (domain.BroadcastJob, error) {
	args := m.Called(ctx, actor, subject, message, role)
	return args.Get(0).(domain.BroadcastJob), args.Error(1)
}

func TestShopHandler(t *testing.T) {
	svc := new(mockShopService)
	svc.On("CreateShop", mock.Anything, shop.CreateInput{OwnerID: 20, Name: "Fixit", Code: "CBD", Location: "Nairobi CBD"}).
		Return(domain.Shop{ID: 1, Code: "CBD"}, nil)
	svc.On("CreateShop", mock.Anything, shop.CreateInput{OwnerID: 20, Name: "Again", Code: "CBD", Location: "Westlands"}).
		Return(domain.Shop{}, domain.ErrConflict)
	svc.On("ListShops", mock.Anything).Return([]domain.Shop{{ID: 1}}, nil)
	h := NewShopHandler(svc)

	c, rec := newContext(http.MethodPost, "/api/admin/shops", `{"owner_id":20,"name":"Fixit","code":"CBD","location":"Nairobi CBD"}`, &adminActor)
	require.NoError(t, h.CreateShop(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	c, rec = newContext(http.MethodPost, "/api/admin/shops", `{"owner_id":20,"name":"Again","code":"CBD","location":"Westlands"}`, &adminActor)
	require.NoError(t, h.CreateShop(c))
	assert.Equal(t, http.StatusConflict, rec.Code)

	c, rec = newContext(http.MethodPost, "/api/admin/shops", `{"owner_id":20,"name":"Dash","code":"A-B","location":"Thika"}`, &adminActor)
	require.NoError(t, h.CreateShop(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	c, rec = newContext(http.MethodGet, "/api/shops", "", &customer)
	require.NoError(t, h.ListShops(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	svc.AssertExpectations(t)
}

func TestBroadcastHandler(t *testing.T) {
	svc := new(mockBroadcastService)
	svc.On("Enqueue", mock.Anything, adminActor, "Holiday hours", "Closed Monday", domain.RoleTechnician).
		Return(domain.BroadcastJob{Subject: "Holiday hours"}, nil)
	svc.On("Enqueue", mock.Anything, adminActor, "Outage", "Queue down", "").
		Return(domain.BroadcastJob{}, domain.ErrUpstream)
	h := NewBroadcastHandler(svc)

	c, rec := newContext(http.MethodPost, "/api/admin/broadcast", `{"subject":"Holiday hours","message":"Closed Monday","role":"technician"}`, &adminActor)
	require.NoError(t, h.Broadcast(c))
	assert.Equal(t, http.StatusAccepted, rec.Code)

	c, rec = newContext(http.MethodPost, "/api/admin/broadcast", `{"subject":"Outage","message":"Queue down"}`, &adminActor)
	require.NoError(t, h.Broadcast(c))
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	c, rec = newContext(http.MethodPost, "/api/admin/broadcast", `{"subject":"Hi","message":"x","role":"wizard"}`, &adminActor)
	require.NoError(t, h.Broadcast(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	svc.AssertExpectations(t)
}
