package repair

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"electroCare/business/policy"
	"electroCare/domain"
	"electroCare/pkg/logger"
	"electroCare/pkg/metrics"

	"github.com/shopspring/decimal"
)

// RepairRepository contract interface
type RepairRepository interface {
	Create(ctx context.Context, repair *domain.RepairRequest) error
	FindByID(ctx context.Context, id uint) (domain.RepairRequest, error)
	FindByIDForUpdate(ctx context.Context, id uint) (domain.RepairRequest, error)
	Update(ctx context.Context, repair *domain.RepairRequest) error
	ListByUser(ctx context.Context, userID uint) ([]domain.RepairRequest, error)
	ListAll(ctx context.Context) ([]domain.RepairRequest, error)
	ListForShop(ctx context.Context, shopUserID uint) ([]domain.RepairRequest, error)
	ListForDelivery(ctx context.Context, deliveryUserID uint) ([]domain.RepairRequest, error)
	ListForTechnician(ctx context.Context, technicianID uint) ([]domain.RepairRequest, error)
}

type UserRepository interface {
	FindByID(ctx context.Context, id uint) (domain.User, error)
}

type SequenceRepository interface {
	Next(ctx context.Context, scope, period string) (int64, error)
}

// EventPublisher pushes realtime notifications. Failures are logged and
// never fail the operation that produced the event.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}

type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type repairService struct {
	repairRepo RepairRepository
	userRepo   UserRepository
	seqRepo    SequenceRepository
	events     EventPublisher
	tx         Transactor
	now        func() time.Time
}

func NewRepairService(
	repairRepo RepairRepository,
	userRepo UserRepository,
	seqRepo SequenceRepository,
	events EventPublisher,
	tx Transactor,
) *repairService {
	return &repairService{
		repairRepo: repairRepo,
		userRepo:   userRepo,
		seqRepo:    seqRepo,
		events:     events,
		tx:         tx,
		now:        time.Now,
	}
}

type CreateInput struct {
	DeviceType    string
	DeviceModel   string
	Issue         string
	Delivery      bool
	Address       string
	PaymentMethod string
}

type AcceptInput struct {
	Cost          decimal.Decimal
	EstimatedTime string
}

type TrackInput struct {
	Latitude  float64
	Longitude float64
	Note      string
}

func (s *repairService) Create(ctx context.Context, actor domain.Actor, in CreateInput) (domain.RepairView, error) {
	if !policy.Can(actor.Role, policy.RepairCreate) {
		return domain.RepairView{}, fmt.Errorf("role %s cannot create repairs: %w", actor.Role, domain.ErrForbidden)
	}

	if strings.TrimSpace(in.DeviceType) == "" || strings.TrimSpace(in.Issue) == "" {
		return domain.RepairView{}, fmt.Errorf("device type and issue are required: %w", domain.ErrInvalidInput)
	}

	if in.Delivery && strings.TrimSpace(in.Address) == "" {
		return domain.RepairView{}, fmt.Errorf("address is required for delivery: %w", domain.ErrInvalidInput)
	}

	method := strings.ToLower(strings.TrimSpace(in.PaymentMethod))
	if method == "" {
		method = domain.PaymentMethodCOD
	}
	if method != domain.PaymentMethodOnline && method != domain.PaymentMethodCOD {
		return domain.RepairView{}, fmt.Errorf("unknown payment method %q: %w", in.PaymentMethod, domain.ErrInvalidInput)
	}

	discount := 0
	if method == domain.PaymentMethodOnline {
		discount = domain.OnlinePaymentDiscount
	}

	repair := domain.RepairRequest{
		UserID:        actor.ID,
		DeviceType:    strings.TrimSpace(in.DeviceType),
		DeviceModel:   strings.TrimSpace(in.DeviceModel),
		Issue:         strings.TrimSpace(in.Issue),
		Status:        domain.RepairPending,
		Delivery:      in.Delivery,
		Address:       strings.TrimSpace(in.Address),
		PaymentMethod: method,
		Discount:      discount,
	}

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		day := s.now().Local().Format("20060102")

		seq, err := s.seqRepo.Next(ctx, domain.SequenceRepair, day)
		if err != nil {
			return err
		}
		repair.RequestID = fmt.Sprintf("EC/%s/%03d", day, seq)

		return s.repairRepo.Create(ctx, &repair)
	})
	if err != nil {
		logger.Error("Failed to create repair request", err)
		return domain.RepairView{}, err
	}

	metrics.RepairTransitions.WithLabelValues(repair.Status).Inc()
	s.publish(ctx, domain.EventRepairUpdate, repair, domain.RepairRoom(repair.ID), domain.RoomRepairs)
	if repair.Delivery {
		s.publish(ctx, domain.EventDeliveryRequest, repair, domain.RoomDeliveries)
	}

	return domain.NewRepairView(repair, s.now()), nil
}

// Accept records a quote. Delivery actors may only take repairs that asked
// for delivery and always move them in transit at the flat delivery cost;
// everyone else moves the repair to accepted.
func (s *repairService) Accept(ctx context.Context, id uint, actor domain.Actor, in AcceptInput) (domain.RepairView, error) {
	if !policy.Can(actor.Role, policy.RepairAccept) {
		return domain.RepairView{}, fmt.Errorf("role %s cannot accept repairs: %w", actor.Role, domain.ErrForbidden)
	}

	var repair domain.RepairRequest
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		repair, err = s.repairRepo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}

		now := s.now()
		if actor.Role == domain.RoleDelivery {
			if !repair.Delivery {
				return fmt.Errorf("repair did not request delivery: %w", domain.ErrInvalidTransition)
			}
			if !canDeliveryAccept(repair.Status) {
				return fmt.Errorf("cannot accept delivery from %s: %w", repair.Status, domain.ErrInvalidTransition)
			}
			cost := domain.DeliveryFlatCost
			repair.Status = domain.RepairInTransit
			repair.Cost = &cost
			repair.DeliveryPersonID = &actor.ID
			repair.AcceptedAt = &now

			return s.repairRepo.Update(ctx, &repair)
		}

		if repair.Status != domain.RepairPending && repair.Status != domain.RepairAssigned {
			return fmt.Errorf("cannot accept repair from %s: %w", repair.Status, domain.ErrInvalidTransition)
		}
		if in.Cost.IsNegative() {
			return fmt.Errorf("cost must not be negative: %w", domain.ErrInvalidInput)
		}
		if !domain.IsMoney(in.Cost) {
			return fmt.Errorf("cost has more than two decimal places: %w", domain.ErrInvalidInput)
		}
		if repair.Status == domain.RepairAssigned && actor.Role == domain.RoleTechnician &&
			repair.TechnicianID != nil && *repair.TechnicianID != actor.ID {
			return fmt.Errorf("repair is assigned to another technician: %w", domain.ErrForbidden)
		}

		cost := in.Cost
		repair.Status = domain.RepairAccepted
		repair.Cost = &cost
		repair.EstimatedTime = strings.TrimSpace(in.EstimatedTime)
		repair.AcceptedAt = &now

		switch actor.Role {
		case domain.RoleShop:
			repair.ShopID = &actor.ID
		case domain.RoleTechnician:
			repair.TechnicianID = &actor.ID
		}

		return s.repairRepo.Update(ctx, &repair)
	})
	if err != nil {
		logger.Error("Failed to accept repair", err, "repair_id", id)
		return domain.RepairView{}, err
	}

	metrics.RepairTransitions.WithLabelValues(repair.Status).Inc()
	s.publish(ctx, domain.EventRepairUpdate, repair, domain.RepairRoom(repair.ID), domain.RoomRepairs)
	if repair.Delivery {
		s.publish(ctx, domain.EventRepairUpdate, repair, domain.RoomDeliveries)
	}

	return domain.NewRepairView(repair, s.now()), nil
}

func canDeliveryAccept(status string) bool {
	return status == domain.RepairPending || status == domain.RepairAssigned || status == domain.RepairAccepted
}

// UpdateStatus moves a repair along the transition table. An unclaimed
// repair is claimed by the calling technician.
func (s *repairService) UpdateStatus(ctx context.Context, id uint, actor domain.Actor, status string) (domain.RepairView, error) {
	if !policy.Can(actor.Role, policy.RepairUpdateStatus) {
		return domain.RepairView{}, fmt.Errorf("role %s cannot update repair status: %w", actor.Role, domain.ErrForbidden)
	}

	if !domain.IsValidRepairStatus(status) {
		return domain.RepairView{}, fmt.Errorf("unknown status %q: %w", status, domain.ErrInvalidInput)
	}

	var repair domain.RepairRequest
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		repair, err = s.repairRepo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}

		if repair.TechnicianID != nil && *repair.TechnicianID != actor.ID {
			return fmt.Errorf("repair belongs to another technician: %w", domain.ErrForbidden)
		}

		if !domain.CanTransitionRepair(repair.Status, status) {
			return fmt.Errorf("cannot move repair from %s to %s: %w", repair.Status, status, domain.ErrInvalidTransition)
		}

		repair.TechnicianID = &actor.ID
		repair.Status = status
		if status == domain.RepairComplete {
			now := s.now()
			repair.CompletedAt = &now
		}

		return s.repairRepo.Update(ctx, &repair)
	})
	if err != nil {
		logger.Error("Failed to update repair status", err, "repair_id", id)
		return domain.RepairView{}, err
	}

	metrics.RepairTransitions.WithLabelValues(repair.Status).Inc()
	s.publish(ctx, domain.EventRepairUpdate, repair, domain.RepairRoom(repair.ID), domain.RoomRepairs)

	return domain.NewRepairView(repair, s.now()), nil
}

func (s *repairService) AssignTechnician(ctx context.Context, id uint, actor domain.Actor, technicianID uint) (domain.RepairView, error) {
	if !policy.Can(actor.Role, policy.RepairAssign) {
		return domain.RepairView{}, fmt.Errorf("role %s cannot assign technicians: %w", actor.Role, domain.ErrForbidden)
	}

	tech, err := s.userRepo.FindByID(ctx, technicianID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.RepairView{}, fmt.Errorf("technician %d not found: %w", technicianID, domain.ErrInvalidInput)
		}
		return domain.RepairView{}, err
	}
	if tech.Role != domain.RoleTechnician {
		return domain.RepairView{}, fmt.Errorf("user %d is not a technician: %w", technicianID, domain.ErrInvalidInput)
	}

	var repair domain.RepairRequest
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		repair, err = s.repairRepo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}

		if !domain.CanTransitionRepair(repair.Status, domain.RepairAssigned) {
			return fmt.Errorf("cannot assign repair in %s: %w", repair.Status, domain.ErrInvalidTransition)
		}

		repair.Status = domain.RepairAssigned
		repair.TechnicianID = &tech.ID
		if actor.Role == domain.RoleShop && repair.ShopID == nil {
			repair.ShopID = &actor.ID
		}

		return s.repairRepo.Update(ctx, &repair)
	})
	if err != nil {
		logger.Error("Failed to assign technician", err, "repair_id", id)
		return domain.RepairView{}, err
	}

	metrics.RepairTransitions.WithLabelValues(repair.Status).Inc()
	s.publish(ctx, domain.EventRepairUpdate, repair, domain.RepairRoom(repair.ID), domain.RoomRepairs)

	return domain.NewRepairView(repair, s.now()), nil
}

// Track relays a delivery person's position to the repair room. Positions
// are not persisted.
func (s *repairService) Track(ctx context.Context, id uint, actor domain.Actor, in TrackInput) error {
	if !policy.Can(actor.Role, policy.RepairTrack) {
		return fmt.Errorf("role %s cannot send tracking updates: %w", actor.Role, domain.ErrForbidden)
	}

	if in.Latitude < -90 || in.Latitude > 90 || in.Longitude < -180 || in.Longitude > 180 {
		return fmt.Errorf("coordinates out of range: %w", domain.ErrInvalidInput)
	}

	repair, err := s.repairRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if repair.DeliveryPersonID == nil || *repair.DeliveryPersonID != actor.ID {
		return fmt.Errorf("repair is not assigned to this delivery person: %w", domain.ErrForbidden)
	}

	if repair.Status != domain.RepairInTransit {
		return fmt.Errorf("repair is not in transit: %w", domain.ErrInvalidTransition)
	}

	s.publish(ctx, domain.EventTrackingUpdate, domain.TrackingUpdate{
		RepairID:  repair.ID,
		Latitude:  in.Latitude,
		Longitude: in.Longitude,
		Note:      in.Note,
	}, domain.RepairRoom(repair.ID))

	return nil
}

func (s *repairService) ListMine(ctx context.Context, userID uint) ([]domain.RepairView, error) {
	repairs, err := s.repairRepo.ListByUser(ctx, userID)
	if err != nil {
		logger.Error("Failed to list user repairs", err)
		return nil, err
	}

	return s.views(repairs), nil
}

// ListQueue is the dashboard feed for admins, shops and delivery staff.
func (s *repairService) ListQueue(ctx context.Context, actor domain.Actor) ([]domain.RepairView, error) {
	if !policy.Can(actor.Role, policy.RepairViewQueue) {
		return nil, fmt.Errorf("role %s has no repair queue: %w", actor.Role, domain.ErrForbidden)
	}

	var (
		repairs []domain.RepairRequest
		err     error
	)
	switch actor.Role {
	case domain.RoleAdmin:
		repairs, err = s.repairRepo.ListAll(ctx)
	case domain.RoleShop:
		repairs, err = s.repairRepo.ListForShop(ctx, actor.ID)
	default:
		repairs, err = s.repairRepo.ListForDelivery(ctx, actor.ID)
	}
	if err != nil {
		logger.Error("Failed to list repair queue", err)
		return nil, err
	}

	return s.views(repairs), nil
}

func (s *repairService) ListTechQueue(ctx context.Context, actor domain.Actor) ([]domain.RepairView, error) {
	if !policy.Can(actor.Role, policy.RepairViewTechQueue) {
		return nil, fmt.Errorf("role %s has no technician queue: %w", actor.Role, domain.ErrForbidden)
	}

	repairs, err := s.repairRepo.ListForTechnician(ctx, actor.ID)
	if err != nil {
		logger.Error("Failed to list technician queue", err)
		return nil, err
	}

	return s.views(repairs), nil
}

// Get returns a repair to its owner, anyone attached to it, or an admin.
func (s *repairService) Get(ctx context.Context, id uint, actor domain.Actor) (domain.RepairView, error) {
	repair, err := s.repairRepo.FindByID(ctx, id)
	if err != nil {
		return domain.RepairView{}, err
	}

	if !canView(repair, actor) {
		return domain.RepairView{}, fmt.Errorf("repair %d: %w", id, domain.ErrForbidden)
	}

	return domain.NewRepairView(repair, s.now()), nil
}

func canView(r domain.RepairRequest, actor domain.Actor) bool {
	if policy.Can(actor.Role, policy.RepairViewAny) || r.UserID == actor.ID {
		return true
	}

	for _, id := range []*uint{r.TechnicianID, r.ShopID, r.DeliveryPersonID} {
		if id != nil && *id == actor.ID {
			return true
		}
	}

	return false
}

func (s *repairService) views(repairs []domain.RepairRequest) []domain.RepairView {
	now := s.now()
	out := make([]domain.RepairView, 0, len(repairs))
	for _, r := range repairs {
		out = append(out, domain.NewRepairView(r, now))
	}

	return out
}

func (s *repairService) publish(ctx context.Context, eventType string, payload any, rooms ...string) {
	for _, room := range rooms {
		err := s.events.Publish(ctx, domain.Event{
			Type:      eventType,
			Room:      room,
			Payload:   payload,
			CreatedAt: s.now(),
		})
		if err != nil {
			logger.Warn("Failed to publish realtime event", err, "type", eventType, "room", room)
			continue
		}
		metrics.RealtimeEvents.WithLabelValues(eventType).Inc()
	}
}
