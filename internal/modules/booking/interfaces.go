package booking

import (
	"context"
	"time"

	"tapbook/internal/domain"
	"tapbook/internal/repository"
)

type AppointmentStore interface {
	FindOverlapping(ctx context.Context, scope repository.Scope, ownerID int64, start, end time.Time, excludeID int64) ([]domain.Appointment, error)
	CreateIfFree(ctx context.Context, a *domain.Appointment) error
	UpdateSlotIfFree(ctx context.Context, a *domain.Appointment) error
	UpdateStatus(ctx context.Context, id int64, from []domain.AppointmentStatus, to domain.AppointmentStatus, note string) error
	GetByID(ctx context.Context, id int64) (*domain.Appointment, error)
	ListForCustomer(ctx context.Context, customerID int64, f repository.AppointmentFilter) ([]domain.Appointment, error)
	ListForProvider(ctx context.Context, providerID int64, f repository.AppointmentFilter) ([]domain.Appointment, error)
	ListBlockingStartingIn(ctx context.Context, providerID int64, from, to time.Time) ([]domain.Appointment, error)
}

type ServiceStore interface {
	GetByID(ctx context.Context, id int64) (*domain.Service, error)
}

type UserStore interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

type RatingReader interface {
	RatingForService(ctx context.Context, serviceID int64) (domain.RatingSummary, error)
}

// Notifier is fire-and-forget; it never reports failures.
type Notifier interface {
	Notify(ctx context.Context, userID int64, kind domain.NotificationKind, payload map[string]any)
}

type Recorder interface {
	BookingAccepted()
	BookingRejected(reason string)
	Transition(status string)
}

type noopRecorder struct{}

func (noopRecorder) BookingAccepted()       {}
func (noopRecorder) BookingRejected(string) {}
func (noopRecorder) Transition(string)      {}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, int64, domain.NotificationKind, map[string]any) {}
