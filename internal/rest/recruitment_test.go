package rest

import (
	"context"
	"net/http"
	"testing"

	"electroCare/business/recruitment"
	"electroCare/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRecruitmentService struct {
	mock.Mock
}

func (m *mockRecruitmentService) Apply(ctx context.Context, actor domain.Actor, in recruitment.ApplyInput) (domain.RoleApplication, error) {
	args := m.Called(ctx, actor, in)
	return args.Get(0).(domain.RoleApplication), args.Error(1)
}

func (m *mockRecruitmentService) Approve(ctx context.Context, id uint, reviewer domain.Actor) (domain.RoleApplication, error) {
	args := m.Called(ctx, id, reviewer)
	return args.Get(0).(domain.RoleApplication), args.Error(1)
}

func (m *mockRecruitmentService) Reject(ctx context.Context, id uint, reviewer domain.Actor, reason string) (domain.RoleApplication, error) {
	args := m.Called(ctx, id, reviewer, reason)
	return args.Get(0).(domain.RoleApplication), args.Error(1)
}

func (m *mockRecruitmentService) ListPending(ctx context.Context) ([]domain.RoleApplication, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.RoleApplication), args.Error(1)
}

func (m *mockRecruitmentService) ListMine(ctx context.Context, userID uint) ([]domain.RoleApplication, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]domain.RoleApplication), args.Error(1)
}

func TestRecruitmentHandlerApply(t *testing.T) {
	docs := []string{"https://cdn.example.com/id.pdf"}

	t.Run("Technician", func(t *testing.T) {
		svc := new(mockRecruitmentService)
		svc.On("Apply", mock.Anything, customer, recruitment.ApplyInput{
			Role: domain.RoleTechnician, Documents: docs, Notes: "5 years",
		}).Return(domain.RoleApplication{ID: 1}, nil)
		c, rec := newContext(http.MethodPost, "/api/recruitment/apply-technician",
			`{"documents":["https://cdn.example.com/id.pdf"],"notes":"5 years"}`, &customer)

		require.NoError(t, NewRecruitmentHandler(svc).ApplyTechnician(c))
		assert.Equal(t, http.StatusCreated, rec.Code)
		svc.AssertExpectations(t)
	})

	t.Run("Delivery while pending", func(t *testing.T) {
		svc := new(mockRecruitmentService)
		svc.On("Apply", mock.Anything, customer, mock.MatchedBy(func(in recruitment.ApplyInput) bool {
			return in.Role == domain.RoleDelivery
		})).Return(domain.RoleApplication{}, domain.ErrConflict)
		c, rec := newContext(http.MethodPost, "/api/recruitment/apply-delivery", `{"documents":["https://cdn.example.com/id.pdf"]}`, &customer)

		require.NoError(t, NewRecruitmentHandler(svc).ApplyDelivery(c))
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("No documents", func(t *testing.T) {
		svc := new(mockRecruitmentService)
		c, rec := newContext(http.MethodPost, "/api/recruitment/apply-technician", `{"documents":[]}`, &customer)

		require.NoError(t, NewRecruitmentHandler(svc).ApplyTechnician(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRecruitmentHandlerReview(t *testing.T) {
	svc := new(mockRecruitmentService)
	svc.On("ListPending", mock.Anything).Return([]domain.RoleApplication{{ID: 1}}, nil)
	svc.On("ListMine", mock.Anything, customer.ID).Return([]domain.RoleApplication{}, nil)
	svc.On("Approve", mock.Anything, uint(1), adminActor).Return(domain.RoleApplication{ID: 1, Status: domain.ApplicationApproved}, nil)
	svc.On("Reject", mock.Anything, uint(2), adminActor, "expired licence").Return(domain.RoleApplication{}, domain.ErrInvalidTransition)
	h := NewRecruitmentHandler(svc)

	c, rec := newContext(http.MethodGet, "/api/admin/applications", "", &adminActor)
	require.NoError(t, h.ListPending(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	c, rec = newContext(http.MethodGet, "/api/recruitment/my", "", &customer)
	require.NoError(t, h.ListMine(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	c, rec = newContext(http.MethodPost, "/api/admin/applications/1/approve", "", &adminActor)
	require.NoError(t, h.Approve(withID(c, "1")))
	assert.Equal(t, http.StatusOK, rec.Code)

	c, rec = newContext(http.MethodPost, "/api/admin/applications/2/reject", `{"reason":"expired licence"}`, &adminActor)
	require.NoError(t, h.Reject(withID(c, "2")))
	assert.Equal(t, http.StatusConflict, rec.Code)

	svc.AssertExpectations(t)
}
