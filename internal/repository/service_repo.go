package repository

import (
	"context"
	"strings"
	"time"

	"tapbook/internal/domain"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ServiceRepository struct {
	db *gorm.DB
}

func NewServiceRepository(db *gorm.DB) *ServiceRepository {
	return &ServiceRepository{db: db}
}

type serviceModel struct {
	ID              int64                `gorm:"column:id;primaryKey"`
	ProviderID      int64                `gorm:"column:provider_id;uniqueIndex;not null"`
	Name            string               `gorm:"column:name;not null"`
	Category        string               `gorm:"column:category;index"`
	Description     *string              `gorm:"column:description"`
	Price           decimal.Decimal      `gorm:"column:price;type:numeric(12,2);not null"`
	DurationMinutes int                  `gorm:"column:duration_minutes;not null"`
	Address         string               `gorm:"column:address"`
	BusinessHours   domain.BusinessHours `gorm:"column:business_hours;type:text"`
	CreatedAt       time.Time            `gorm:"column:created_at"`
	UpdatedAt       time.Time            `gorm:"column:updated_at"`
}

func (serviceModel) TableName() string { return "services" }

func toDomainService(m serviceModel) *domain.Service {
	var desc string
	if m.Description != nil {
		desc = *m.Description
	}
	return &domain.Service{
		ID:              m.ID,
		ProviderID:      m.ProviderID,
		Name:            m.Name,
		Category:        m.Category,
		Description:     desc,
		Price:           m.Price,
		DurationMinutes: m.DurationMinutes,
		Address:         m.Address,
		BusinessHours:   m.BusinessHours,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func toServiceModel(s *domain.Service) serviceModel {
	var desc *string
	if s.Description != "" {
		v := s.Description
		desc = &v
	}
	return serviceModel{
		ID:              s.ID,
		ProviderID:      s.ProviderID,
		Name:            s.Name,
		Category:        s.Category,
		Description:     desc,
		Price:           s.Price,
		DurationMinutes: s.DurationMinutes,
		Address:         s.Address,
		BusinessHours:   s.BusinessHours,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}

type ServiceFilter struct {
	Category string
	Query    string
	Limit    int
	Offset   int
}

func (r *ServiceRepository) Create(ctx context.Context, s *domain.Service) error {
	m := toServiceModel(s)
	tx := r.db.WithContext(ctx).Create(&m)
	if tx.Error != nil {
		return mapErr(tx.Error)
	}
	*s = *toDomainService(m)
	return nil
}

func (r *ServiceRepository) GetByID(ctx context.Context, id int64) (*domain.Service, error) {
	var m serviceModel
	tx := r.db.WithContext(ctx).First(&m, id)
	if tx.Error != nil {
		return nil, mapErr(tx.Error)
	}
	return toDomainService(m), nil
}

func (r *ServiceRepository) GetByProvider(ctx context.Context, providerID int64) (*domain.Service, error) {
	var m serviceModel
	tx := r.db.WithContext(ctx).Where("provider_id = ?", providerID).First(&m)
	if tx.Error != nil {
		return nil, mapErr(tx.Error)
	}
	return toDomainService(m), nil
}

func (r *ServiceRepository) Update(ctx context.Context, s *domain.Service) error {
	m := toServiceModel(s)
	m.UpdatedAt = time.Now().UTC()
	tx := r.db.WithContext(ctx).Model(&serviceModel{}).Where("id = ?", s.ID).Updates(map[string]any{
		"name":             m.Name,
		"category":         m.Category,
		"description":      m.Description,
		"price":            m.Price,
		"duration_minutes": m.DurationMinutes,
		"address":          m.Address,
		"business_hours":   m.BusinessHours,
		"updated_at":       m.UpdatedAt,
	})
	if tx.Error != nil {
		return mapErr(tx.Error)
	}
	if tx.RowsAffected == 0 {
		return ErrNotFound
	}
	s.UpdatedAt = m.UpdatedAt
	return nil
}

// Delete removes the listing only. Appointments that reference it are kept.
func (r *ServiceRepository) Delete(ctx context.Context, id int64) error {
	tx := r.db.WithContext(ctx).Delete(&serviceModel{}, id)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ServiceRepository) List(ctx context.Context, f ServiceFilter) ([]domain.Service, int64, error) {
	q := r.db.WithContext(ctx).Model(&serviceModel{})
	if f.Category != "" {
		q = q.Where("LOWER(category) = ?", strings.ToLower(strings.TrimSpace(f.Category)))
	}
	if f.Query != "" {
		like := "%" + strings.ToLower(strings.TrimSpace(f.Query)) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var rows []serviceModel
	if err := q.Order("id ASC").Limit(limit).Offset(f.Offset).Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	out := make([]domain.Service, 0, len(rows))
	for _, m := range rows {
		out = append(out, *toDomainService(m))
	}
	return out, total, nil
}
