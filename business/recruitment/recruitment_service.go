package recruitment

import (
	"context"
	"fmt"
	"strings"

	"electroCare/business/policy"
	"electroCare/domain"
	"electroCare/pkg/logger"
	"electroCare/pkg/metrics"

	"github.com/go-playground/validator/v10"
	"gorm.io/datatypes"
)

// RoleApplicationRepository contract interface
type RoleApplicationRepository interface {
	Create(ctx context.Context, app *domain.RoleApplication) error
	HasPending(ctx context.Context, userID uint) (bool, error)
	FindByIDForUpdate(ctx context.Context, id uint) (domain.RoleApplication, error)
	Update(ctx context.Context, app *domain.RoleApplication) error
	ListByStatus(ctx context.Context, status string) ([]domain.RoleApplication, error)
	ListByUser(ctx context.Context, userID uint) ([]domain.RoleApplication, error)
}

type UserRepository interface {
	UpdateRole(ctx context.Context, id uint, role string) error
}

type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type recruitmentService struct {
	appRepo  RoleApplicationRepository
	userRepo UserRepository
	tx       Transactor
	validate *validator.Validate
}

func NewRecruitmentService(appRepo RoleApplicationRepository, userRepo UserRepository, tx Transactor, validate *validator.Validate) *recruitmentService {
	return &recruitmentService{
		appRepo:  appRepo,
		userRepo: userRepo,
		tx:       tx,
		validate: validate,
	}
}

type ApplyInput struct {
	Role      string
	Documents []string
	Notes     string
}

// Apply files an application for a professional role. Only plain users may
// apply and each user has at most one pending application.
func (s *recruitmentService) Apply(ctx context.Context, actor domain.Actor, in ApplyInput) (domain.RoleApplication, error) {
	if !policy.Can(actor.Role, policy.ApplicationSubmit) {
		return domain.RoleApplication{}, fmt.Errorf("role %s cannot apply for another role: %w", actor.Role, domain.ErrForbidden)
	}

	if !domain.IsApplicableRole(in.Role) {
		return domain.RoleApplication{}, fmt.Errorf("cannot apply for role %q: %w", in.Role, domain.ErrInvalidInput)
	}

	docs := make([]string, 0, len(in.Documents))
	for _, d := range in.Documents {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		if err := s.validate.Var(d, "url"); err != nil {
			return domain.RoleApplication{}, fmt.Errorf("document %q is not a url: %w", d, domain.ErrInvalidInput)
		}
		docs = append(docs, d)
	}
	if len(docs) == 0 {
		return domain.RoleApplication{}, fmt.Errorf("at least one document is required: %w", domain.ErrInvalidInput)
	}

	pending, err := s.appRepo.HasPending(ctx, actor.ID)
	if err != nil {
		return domain.RoleApplication{}, err
	}
	if pending {
		return domain.RoleApplication{}, fmt.Errorf("an application is already pending: %w", domain.ErrConflict)
	}

	app := domain.RoleApplication{
		UserID:        actor.ID,
		RequestedRole: in.Role,
		Status:        domain.ApplicationPending,
		Documents:     datatypes.JSONSlice[string](docs),
		Notes:         strings.TrimSpace(in.Notes),
	}
	if err := s.appRepo.Create(ctx, &app); err != nil {
		logger.Error("Failed to create role application", err)
		return domain.RoleApplication{}, err
	}

	metrics.RoleApplications.WithLabelValues("submitted").Inc()

	return app, nil
}

// Approve grants the requested role. The application and the user's role
// change together.
func (s *recruitmentService) Approve(ctx context.Context, id uint, reviewer domain.Actor) (domain.RoleApplication, error) {
	return s.decide(ctx, id, reviewer, domain.ApplicationApproved, "")
}

func (s *recruitmentService) Reject(ctx context.Context, id uint, reviewer domain.Actor, reason string) (domain.RoleApplication, error) {
	return s.decide(ctx, id, reviewer, domain.ApplicationRejected, reason)
}

func (s *recruitmentService) decide(ctx context.Context, id uint, reviewer domain.Actor, status, reason string) (domain.RoleApplication, error) {
	if !policy.Can(reviewer.Role, policy.ApplicationReview) {
		return domain.RoleApplication{}, fmt.Errorf("role %s cannot review applications: %w", reviewer.Role, domain.ErrForbidden)
	}

	var app domain.RoleApplication
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		app, err = s.appRepo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}

		if app.Status != domain.ApplicationPending {
			return fmt.Errorf("application is %s: %w", app.Status, domain.ErrInvalidTransition)
		}

		app.Status = status
		app.ReviewedBy = &reviewer.ID
		if reason = strings.TrimSpace(reason); reason != "" {
			app.Notes = reason
		}
		if err := s.appRepo.Update(ctx, &app); err != nil {
			return err
		}

		if status != domain.ApplicationApproved {
			return nil
		}

		return s.userRepo.UpdateRole(ctx, app.UserID, app.RequestedRole)
	})
	if err != nil {
		logger.Error("Failed to review role application", err, "application_id", id)
		return domain.RoleApplication{}, err
	}

	metrics.RoleApplications.WithLabelValues(status).Inc()

	return app, nil
}

func (s *recruitmentService) ListPending(ctx context.Context) ([]domain.RoleApplication, error) {
	return s.appRepo.ListByStatus(ctx, domain.ApplicationPending)
}

func (s *recruitmentService) ListMine(ctx context.Context, userID uint) ([]domain.RoleApplication, error) {
	return s.appRepo.ListByUser(ctx, userID)
}
