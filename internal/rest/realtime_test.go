package rest

import (
	"context"
	"net/http"
	"testing"

	"electroCare/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockHub struct {
	mock.Mock
}

func (m *mockHub) Serve(w http.ResponseWriter, r *http.Request, userID uint, rooms []string) error {
	return m.Called(userID, rooms).Error(0)
}

type mockRepairViewer struct {
	mock.Mock
}

func (m *mockRepairViewer) Get(ctx context.Context, id uint, actor domain.Actor) (domain.RepairView, error) {
	args := m.Called(ctx, id, actor)
	return args.Get(0).(domain.RepairView), args.Error(1)
}

func TestRealtimeAuthorizeRoom(t *testing.T) {
	viewer := new(mockRepairViewer)
	viewer.On("Get", mock.Anything, uint(5), customer).Return(domain.RepairView{}, nil)
	viewer.On("Get", mock.Anything, uint(6), customer).Return(domain.RepairView{}, domain.ErrForbidden)
	h := NewRealtimeHandler(new(mockHub), viewer)

	tests := []struct {
		name    string
		actor   domain.Actor
		room    string
		wantErr error
	}{
		{"own repair", customer, "repair:5", nil},
		{"someone else's repair", customer, "repair:6", domain.ErrForbidden},
		{"feed for shop", shopActor, domain.RoomRepairs, nil},
		{"feed for technician", technician, domain.RoomRepairs, nil},
		{"feed for customer", customer, domain.RoomRepairs, domain.ErrForbidden},
		{"deliveries for courier", courier, domain.RoomDeliveries, nil},
		{"deliveries for admin", adminActor, domain.RoomDeliveries, nil},
		{"deliveries for shop", shopActor, domain.RoomDeliveries, domain.ErrForbidden},
		{"unknown room", customer, "lobby", domain.ErrInvalidInput},
		{"bad repair id", customer, "repair:abc", domain.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := h.authorizeRoom(context.Background(), tt.actor, tt.room)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestRealtimeSubscribe(t *testing.T) {
	t.Run("Joins permitted rooms", func(t *testing.T) {
		hub := new(mockHub)
		hub.On("Serve", courier.ID, []string{domain.RoomDeliveries, domain.RoomRepairs}).Return(nil)
		c, _ := newContext(http.MethodGet, "/api/realtime?room=deliveries&room=repairs", "", &courier)

		require.NoError(t, NewRealtimeHandler(hub, new(mockRepairViewer)).Subscribe(c))
		hub.AssertExpectations(t)
	})

	t.Run("One forbidden room rejects the request", func(t *testing.T) {
		hub := new(mockHub)
		c, rec := newContext(http.MethodGet, "/api/realtime?room=repairs&room=deliveries", "", &shopActor)

		require.NoError(t, NewRealtimeHandler(hub, new(mockRepairViewer)).Subscribe(c))
		assert.Equal(t, http.StatusForbidden, rec.Code)
		hub.AssertNotCalled(t, "Serve", mock.Anything, mock.Anything)
	})

	t.Run("No room", func(t *testing.T) {
		c, rec := newContext(http.MethodGet, "/api/realtime", "", &courier)

		require.NoError(t, NewRealtimeHandler(new(mockHub), new(mockRepairViewer)).Subscribe(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
