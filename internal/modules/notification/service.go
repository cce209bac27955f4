package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"tapbook/internal/domain"
	"tapbook/internal/pkg/apperr"
	"tapbook/internal/repository"
)

const notifyTimeout = 5 * time.Second

type Service struct {
	repo   Repository
	pusher Pusher
	log    logrus.FieldLogger
}

func NewService(repo Repository, pusher Pusher, log logrus.FieldLogger) *Service {
	return &Service{repo: repo, pusher: pusher, log: log}
}

type template struct {
	title   string
	message func(p map[string]any) string
}

func at(p map[string]any) string {
	if t, ok := p["start"].(time.Time); ok {
		return t.UTC().Format("2006-01-02 15:04 MST")
	}
	return "the scheduled time"
}

var templates = map[domain.NotificationKind]template{
	domain.NotifBookingCreated: {"New booking", func(p map[string]any) string {
		return fmt.Sprintf("A customer booked %s.", at(p))
	}},
	domain.NotifBookingConfirmed: {"Booking confirmed", func(p map[string]any) string {
		return fmt.Sprintf("Your appointment at %s is confirmed.", at(p))
	}},
	domain.NotifBookingDeclined: {"Booking declined", func(p map[string]any) string {
		return fmt.Sprintf("Your appointment at %s was declined: %v", at(p), p["note"])
	}},
	domain.NotifBookingCancelled: {"Booking cancelled", func(p map[string]any) string {
		return fmt.Sprintf("The appointment at %s was cancelled: %v", at(p), p["note"])
	}},
	domain.NotifBookingRescheduled: {"Booking rescheduled", func(p map[string]any) string {
		return fmt.Sprintf("An appointment moved to %s.", at(p))
	}},
	domain.NotifBookingCompleted: {"Appointment completed", func(p map[string]any) string {
		return "Your appointment is complete. You can now leave a review."
	}},
	domain.NotifBookingReminder: {"Upcoming appointment", func(p map[string]any) string {
		return fmt.Sprintf("Reminder: your appointment starts at %s.", at(p))
	}},
	domain.NotifNewReview: {"New review", func(p map[string]any) string {
		return fmt.Sprintf("You received a %v star review.", p["rating"])
	}},
}

// Notify stores the notification and pushes it to the user's open connections.
// Failures are logged and never reach the caller.
func (s *Service) Notify(ctx context.Context, userID int64, kind domain.NotificationKind, payload map[string]any) {
	// the triggering request may already be finished
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	n := &domain.Notification{UserID: userID, Kind: kind, Title: string(kind), Data: payload}
	if t, ok := templates[kind]; ok {
		n.Title = t.title
		n.Message = t.message(payload)
	}

	if err := s.repo.Create(ctx, n); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{"user_id": userID, "kind": kind}).Warn("notification not stored")
		return
	}
	if s.pusher != nil {
		s.pusher.Push(userID, Event{Type: EventNotification, Payload: n})
	}
}

func (s *Service) List(ctx context.Context, userID int64, unreadOnly bool, limit, offset int) (*ListResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	list, err := s.repo.ListForUser(ctx, userID, unreadOnly, limit, offset)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	unread, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return &ListResponse{Notifications: list, UnreadCount: unread}, nil
}

func (s *Service) MarkRead(ctx context.Context, userID, id int64) error {
	if err := s.repo.MarkRead(ctx, userID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return apperr.Storage(err)
	}
	return nil
}

func (s *Service) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	n, err := s.repo.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, apperr.Storage(err)
	}
	return n, nil
}
