package broadcast

import (
	"context"
	"fmt"
	"strings"
	"time"

	"electroCare/business/policy"
	"electroCare/domain"
	"electroCare/pkg/logger"
)

// JobQueue hands broadcast jobs to the consumer process.
type JobQueue interface {
	Publish(ctx context.Context, job domain.BroadcastJob) error
}

type UserRepository interface {
	FindByRole(ctx context.Context, role string) ([]domain.User, error)
}

// NotificationRepository contract interface
type NotificationRepository interface {
	SendEmail(ctx context.Context, toName, toEmail, subject, message string) error
}

type broadcastService struct {
	queue     JobQueue
	userRepo  UserRepository
	notifRepo NotificationRepository
	timeout   time.Duration
	now       func() time.Time
}

// NewBroadcastService wires the broadcaster. With a nil queue jobs are
// delivered in-process on a background goroutine.
func NewBroadcastService(queue JobQueue, userRepo UserRepository, notifRepo NotificationRepository) *broadcastService {
	return &broadcastService{
		queue:     queue,
		userRepo:  userRepo,
		notifRepo: notifRepo,
		timeout:   10 * time.Minute,
		now:       time.Now,
	}
}

type Result struct {
	Recipients int `json:"recipients"`
	Sent       int `json:"sent"`
	Failed     int `json:"failed"`
}

func (s *broadcastService) Enqueue(ctx context.Context, actor domain.Actor, subject, message, role string) (domain.BroadcastJob, error) {
	if !policy.Can(actor.Role, policy.BroadcastSend) {
		return domain.BroadcastJob{}, fmt.Errorf("role %s cannot broadcast: %w", actor.Role, domain.ErrForbidden)
	}

	subject, message, role = strings.TrimSpace(subject), strings.TrimSpace(message), strings.TrimSpace(role)
	if subject == "" || message == "" {
		return domain.BroadcastJob{}, fmt.Errorf("subject and message are required: %w", domain.ErrInvalidInput)
	}

	if role != "" && !domain.IsValidRole(role) {
		return domain.BroadcastJob{}, fmt.Errorf("unknown role %q: %w", role, domain.ErrInvalidInput)
	}

	job := domain.BroadcastJob{
		Subject:   subject,
		Message:   message,
		Role:      role,
		RequestBy: actor.ID,
		CreatedAt: s.now(),
	}

	if s.queue == nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
			defer cancel()

			if _, err := s.Deliver(ctx, job); err != nil {
				logger.Error("Broadcast delivery failed", err)
			}
		}()
		return job, nil
	}

	if err := s.queue.Publish(ctx, job); err != nil {
		logger.Error("Failed to enqueue broadcast", err)
		return domain.BroadcastJob{}, fmt.Errorf("failed to enqueue broadcast: %v: %w", err, domain.ErrUpstream)
	}

	return job, nil
}

// Deliver emails every recipient of the job. Individual send failures are
// logged and skipped; only a failed recipient lookup fails the job.
func (s *broadcastService) Deliver(ctx context.Context, job domain.BroadcastJob) (Result, error) {
	users, err := s.userRepo.FindByRole(ctx, job.Role)
	if err != nil {
		return Result{}, err
	}

	res := Result{Recipients: len(users)}
	for _, u := range users {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		if err := s.notifRepo.SendEmail(ctx, u.Name, u.Email, job.Subject, job.Message); err != nil {
			logger.Warn("Failed to send broadcast email", err, "user_id", u.ID)
			res.Failed++
			continue
		}
		res.Sent++
	}

	logger.Info("Broadcast delivered", "role", job.Role, "sent", res.Sent, "failed", res.Failed)

	return res, nil
}
