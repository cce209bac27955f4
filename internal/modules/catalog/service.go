package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"tapbook/internal/domain"
	"tapbook/internal/pkg/apperr"
	"tapbook/internal/repository"
)

type Service struct {
	services ServiceRepository
	ratings  RatingReader
	log      logrus.FieldLogger
}

func NewService(services ServiceRepository, ratings RatingReader, log logrus.FieldLogger) *Service {
	return &Service{services: services, ratings: ratings, log: log}
}

/* ---------- PROVIDER ---------- */

// CreateService publishes the provider's listing. A provider owns at most one.
func (s *Service) CreateService(ctx context.Context, providerID int64, req CreateServiceRequest) (*domain.Service, error) {
	if req.Price.IsNegative() {
		return nil, ErrInvalidInput
	}
	if err := req.BusinessHours.Validate(); err != nil {
		return nil, &apperr.Error{Kind: apperr.KindInput, Code: ErrInvalidHours.Code, Message: err.Error()}
	}

	if _, err := s.services.GetByProvider(ctx, providerID); err == nil {
		return nil, ErrServiceExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Storage(err)
	}

	svc := &domain.Service{
		ProviderID:      providerID,
		Name:            strings.TrimSpace(req.Name),
		Category:        strings.ToLower(strings.TrimSpace(req.Category)),
		Description:     strings.TrimSpace(req.Description),
		Price:           req.Price.Round(2),
		DurationMinutes: req.DurationMinutes,
		Address:         strings.TrimSpace(req.Address),
		BusinessHours:   req.BusinessHours,
	}
	if err := s.services.Create(ctx, svc); err != nil {
		// lost a race with a concurrent create for the same provider
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrServiceExists
		}
		return nil, apperr.Storage(err)
	}

	s.log.WithFields(logrus.Fields{"service_id": svc.ID, "provider_id": providerID}).Info("service created")
	return svc, nil
}

func (s *Service) UpdateService(ctx context.Context, providerID, serviceID int64, req UpdateServiceRequest) (*domain.Service, error) {
	svc, err := s.owned(ctx, providerID, serviceID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		svc.Name = strings.TrimSpace(*req.Name)
	}
	if req.Category != nil {
		svc.Category = strings.ToLower(strings.TrimSpace(*req.Category))
	}
	if req.Description != nil {
		svc.Description = strings.TrimSpace(*req.Description)
	}
	if req.Price != nil {
		if req.Price.IsNegative() {
			return nil, ErrInvalidInput
		}
		svc.Price = req.Price.Round(2)
	}
	if req.DurationMinutes != nil {
		svc.DurationMinutes = *req.DurationMinutes
	}
	if req.Address != nil {
		svc.Address = strings.TrimSpace(*req.Address)
	}

	if err := s.services.Update(ctx, svc); err != nil {
		return nil, s.mapErr(err)
	}
	return svc, nil
}

// UpdateBusinessHours replaces the weekly schedule. Existing appointments are not touched.
func (s *Service) UpdateBusinessHours(ctx context.Context, providerID, serviceID int64, hours domain.BusinessHours) (*domain.Service, error) {
	if err := hours.Validate(); err != nil {
		return nil, &apperr.Error{Kind: apperr.KindInput, Code: ErrInvalidHours.Code, Message: err.Error()}
	}
	svc, err := s.owned(ctx, providerID, serviceID)
	if err != nil {
		return nil, err
	}
	svc.BusinessHours = hours
	if err := s.services.Update(ctx, svc); err != nil {
		return nil, s.mapErr(err)
	}
	return svc, nil
}

// DeleteService removes the listing; appointments already made for it stay.
func (s *Service) DeleteService(ctx context.Context, providerID, serviceID int64) error {
	if _, err := s.owned(ctx, providerID, serviceID); err != nil {
		return err
	}
	if err := s.services.Delete(ctx, serviceID); err != nil {
		return s.mapErr(err)
	}
	s.log.WithFields(logrus.Fields{"service_id": serviceID, "provider_id": providerID}).Info("service deleted")
	return nil
}

func (s *Service) GetMine(ctx context.Context, providerID int64) (*ServiceView, error) {
	svc, err := s.services.GetByProvider(ctx, providerID)
	if err != nil {
		return nil, s.mapErr(err)
	}
	return s.view(ctx, svc), nil
}

/* ---------- PUBLIC ---------- */

func (s *Service) GetService(ctx context.Context, id int64) (*ServiceView, error) {
	svc, err := s.services.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapErr(err)
	}
	return s.view(ctx, svc), nil
}

func (s *Service) ListServices(ctx context.Context, f repository.ServiceFilter) (*ListServicesResponse, error) {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	list, total, err := s.services.List(ctx, f)
	if err != nil {
		return nil, apperr.Storage(err)
	}

	ids := make([]int64, 0, len(list))
	for _, svc := range list {
		ids = append(ids, svc.ID)
	}
	ratings := s.ratingsFor(ctx, ids...)

	out := &ListServicesResponse{
		Services: make([]ServiceView, 0, len(list)),
		Total:    total,
		Limit:    f.Limit,
		Offset:   f.Offset,
	}
	for _, svc := range list {
		out.Services = append(out.Services, ServiceView{Service: svc, Rating: ratings[svc.ID]})
	}
	return out, nil
}

func (s *Service) view(ctx context.Context, svc *domain.Service) *ServiceView {
	return &ServiceView{Service: *svc, Rating: s.ratingsFor(ctx, svc.ID)[svc.ID]}
}

// ratingsFor never fails; a listing without ratings is still a listing.
func (s *Service) ratingsFor(ctx context.Context, ids ...int64) map[int64]domain.RatingSummary {
	if s.ratings == nil || len(ids) == 0 {
		return map[int64]domain.RatingSummary{}
	}
	m, err := s.ratings.RatingsForServices(ctx, ids...)
	if err != nil {
		s.log.WithError(err).Warn("rating lookup failed")
		return map[int64]domain.RatingSummary{}
	}
	return m
}

func (s *Service) owned(ctx context.Context, providerID, serviceID int64) (*domain.Service, error) {
	svc, err := s.services.GetByID(ctx, serviceID)
	if err != nil {
		return nil, s.mapErr(err)
	}
	if svc.ProviderID != providerID {
		return nil, ErrForbidden
	}
	return svc, nil
}

func (s *Service) mapErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrServiceNotFound
	}
	return apperr.Storage(err)
}
