package recruitment

import (
	"context"
	"testing"

	"electroCare/domain"
	"electroCare/internal/repository/memory"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var admin = domain.Actor{ID: 999, Role: domain.RoleAdmin}

func setup(t *testing.T) (*recruitmentService, *memory.Store, domain.Actor) {
	t.Helper()

	store := memory.NewStore()
	u := domain.User{Name: "Ann", Email: "ann@example.com", Password: "x", Role: domain.RoleUser}
	require.NoError(t, store.Users().Create(context.Background(), &u))

	svc := NewRecruitmentService(store.RoleApplications(), store.Users(), store.Transactor(), validator.New())

	return svc, store, domain.Actor{ID: u.ID, Role: u.Role}
}

var docs = []string{"https://files.example.com/id.pdf"}

func TestApply(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		actor   func(domain.Actor) domain.Actor
		in      ApplyInput
		wantErr error
	}{
		{"technician", nil, ApplyInput{Role: domain.RoleTechnician, Documents: docs}, nil},
		{"delivery", nil, ApplyInput{Role: domain.RoleDelivery, Documents: docs}, nil},
		{"admin role is not applicable", nil, ApplyInput{Role: domain.RoleAdmin, Documents: docs}, domain.ErrInvalidInput},
		{"shop role is not applicable", nil, ApplyInput{Role: domain.RoleShop, Documents: docs}, domain.ErrInvalidInput},
		{"no documents", nil, ApplyInput{Role: domain.RoleTechnician, Documents: []string{" "}}, domain.ErrInvalidInput},
		{"document must be a url", nil, ApplyInput{Role: domain.RoleTechnician, Documents: []string{"passport"}}, domain.ErrInvalidInput},
		{
			"only plain users apply",
			func(a domain.Actor) domain.Actor { a.Role = domain.RoleDelivery; return a },
			ApplyInput{Role: domain.RoleTechnician, Documents: docs},
			domain.ErrForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, actor := setup(t)
			if tt.actor != nil {
				actor = tt.actor(actor)
			}

			app, err := svc.Apply(ctx, actor, tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, domain.ApplicationPending, app.Status)
			assert.Equal(t, tt.in.Role, app.RequestedRole)
			assert.Equal(t, docs, []string(app.Documents))
		})
	}
}

func TestApplyWhilePending(t *testing.T) {
	ctx := context.Background()
	svc, _, actor := setup(t)

	first, err := svc.Apply(ctx, actor, ApplyInput{Role: domain.RoleTechnician, Documents: docs})
	require.NoError(t, err)

	_, err = svc.Apply(ctx, actor, ApplyInput{Role: domain.RoleDelivery, Documents: docs})
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = svc.Reject(ctx, first.ID, admin, "blurry scan")
	require.NoError(t, err)

	_, err = svc.Apply(ctx, actor, ApplyInput{Role: domain.RoleDelivery, Documents: docs})
	assert.NoError(t, err, "reapplying after a rejection is allowed")

	mine, err := svc.ListMine(ctx, actor.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 2)
}

func TestApproveChangesRole(t *testing.T) {
	ctx := context.Background()
	svc, store, actor := setup(t)

	app, err := svc.Apply(ctx, actor, ApplyInput{Role: domain.RoleDelivery, Documents: docs, Notes: "have a motorbike"})
	require.NoError(t, err)

	pending, err := svc.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	_, err = svc.Approve(ctx, app.ID, actor)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	approved, err := svc.Approve(ctx, app.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, domain.ApplicationApproved, approved.Status)
	assert.Equal(t, "have a motorbike", approved.Notes)

	u, err := store.Users().FindByID(ctx, actor.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleDelivery, u.Role)

	_, err = svc.Reject(ctx, app.ID, admin, "too late")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	pending, err = svc.ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestApproveRollsBackWhenUserIsGone(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := setup(t)

	ghost := domain.Actor{ID: 4242, Role: domain.RoleUser}
	app, err := svc.Apply(ctx, ghost, ApplyInput{Role: domain.RoleTechnician, Documents: docs})
	require.NoError(t, err)

	_, err = svc.Approve(ctx, app.ID, admin)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	got, err := store.RoleApplications().FindByIDForUpdate(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ApplicationPending, got.Status)
}
