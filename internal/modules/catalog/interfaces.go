package catalog

import (
	"context"

	"tapbook/internal/domain"
	"tapbook/internal/repository"
)

type ServiceRepository interface {
	Create(ctx context.Context, s *domain.Service) error
	GetByID(ctx context.Context, id int64) (*domain.Service, error)
	GetByProvider(ctx context.Context, providerID int64) (*domain.Service, error)
	Update(ctx context.Context, s *domain.Service) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, f repository.ServiceFilter) ([]domain.Service, int64, error)
}

type RatingReader interface {
	RatingsForServices(ctx context.Context, serviceIDs ...int64) (map[int64]domain.RatingSummary, error)
}
