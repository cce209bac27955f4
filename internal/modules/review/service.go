package review

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"tapbook/internal/domain"
	"tapbook/internal/pkg/apperr"
	"tapbook/internal/repository"
)

type ReviewRepository interface {
	Create(ctx context.Context, rv *domain.Review) error
	ListForService(ctx context.Context, serviceID int64, limit, offset int) ([]domain.Review, error)
	RatingForService(ctx context.Context, serviceID int64) (domain.RatingSummary, error)
}

type AppointmentReader interface {
	GetByID(ctx context.Context, id int64) (*domain.Appointment, error)
}

type ServiceReader interface {
	GetByID(ctx context.Context, id int64) (*domain.Service, error)
}

type Notifier interface {
	Notify(ctx context.Context, userID int64, kind domain.NotificationKind, payload map[string]any)
}

type Service struct {
	reviews      ReviewRepository
	appointments AppointmentReader
	services     ServiceReader
	notifier     Notifier
	log          logrus.FieldLogger
}

func NewService(reviews ReviewRepository, appointments AppointmentReader, services ServiceReader, notifier Notifier, log logrus.FieldLogger) *Service {
	return &Service{reviews: reviews, appointments: appointments, services: services, notifier: notifier, log: log}
}

// Create records a review of a completed appointment. The author's side of the
// appointment decides the direction; each side reviews at most once.
func (s *Service) Create(ctx context.Context, authorID int64, req CreateReviewRequest) (*domain.Review, error) {
	if req.AppointmentID <= 0 || req.Rating < 1 || req.Rating > 5 {
		return nil, ErrInvalidRequest
	}

	a, err := s.appointments.GetByID(ctx, req.AppointmentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAppointmentNotFound
		}
		return nil, apperr.Storage(err)
	}

	rv := &domain.Review{
		AppointmentID: a.ID,
		ServiceID:     a.ServiceID,
		AuthorID:      authorID,
		Rating:        req.Rating,
		Comment:       strings.TrimSpace(req.Comment),
	}
	switch authorID {
	case a.CustomerID:
		rv.Direction = domain.ReviewOfProvider
		rv.SubjectID = a.ProviderID
	case a.ProviderID:
		rv.Direction = domain.ReviewOfCustomer
		rv.SubjectID = a.CustomerID
	default:
		return nil, ErrNotParticipant
	}

	if a.Status != domain.StatusCompleted {
		return nil, ErrNotReviewable
	}

	if err := s.reviews.Create(ctx, rv); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrConflict
		}
		return nil, apperr.Storage(err)
	}

	s.log.WithFields(logrus.Fields{"review_id": rv.ID, "appointment_id": a.ID, "direction": rv.Direction}).Info("review created")
	if s.notifier != nil {
		s.notifier.Notify(ctx, rv.SubjectID, domain.NotifNewReview, map[string]any{
			"review_id":      rv.ID,
			"appointment_id": a.ID,
			"rating":         rv.Rating,
		})
	}
	return rv, nil
}

// ListForService returns the customer reviews of a service with its rating summary.
func (s *Service) ListForService(ctx context.Context, serviceID int64, limit, offset int) (*ListResponse, error) {
	if _, err := s.services.GetByID(ctx, serviceID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrServiceNotFound
		}
		return nil, apperr.Storage(err)
	}

	list, err := s.reviews.ListForService(ctx, serviceID, limit, offset)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	rating, err := s.AverageRating(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	return &ListResponse{Reviews: list, Rating: rating}, nil
}

func (s *Service) AverageRating(ctx context.Context, serviceID int64) (domain.RatingSummary, error) {
	r, err := s.reviews.RatingForService(ctx, serviceID)
	if err != nil {
		return domain.RatingSummary{}, apperr.Storage(err)
	}
	return r, nil
}
