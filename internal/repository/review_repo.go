package repository

import (
	"context"
	"time"

	"tapbook/internal/domain"

	"gorm.io/gorm"
)

type ReviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

type reviewModel struct {
	ID            int64     `gorm:"column:id;primaryKey"`
	AppointmentID int64     `gorm:"column:appointment_id;not null;uniqueIndex:idx_reviews_once,priority:1"`
	ServiceID     int64     `gorm:"column:service_id;not null;index"`
	AuthorID      int64     `gorm:"column:author_id;not null"`
	SubjectID     int64     `gorm:"column:subject_id;not null;index"`
	Direction     string    `gorm:"column:direction;not null;uniqueIndex:idx_reviews_once,priority:2"`
	Rating        int       `gorm:"column:rating;not null"`
	Comment       *string   `gorm:"column:comment"`
	CreatedAt     time.Time `gorm:"column:created_at"`
}

func (reviewModel) TableName() string { return "reviews" }

func toDomainReview(m reviewModel) *domain.Review {
	return &domain.Review{
		ID:            m.ID,
		AppointmentID: m.AppointmentID,
		ServiceID:     m.ServiceID,
		AuthorID:      m.AuthorID,
		SubjectID:     m.SubjectID,
		Direction:     domain.ReviewDirection(m.Direction),
		Rating:        m.Rating,
		Comment:       deref(m.Comment),
		CreatedAt:     m.CreatedAt,
	}
}

func toReviewModel(r *domain.Review) reviewModel {
	return reviewModel{
		ID:            r.ID,
		AppointmentID: r.AppointmentID,
		ServiceID:     r.ServiceID,
		AuthorID:      r.AuthorID,
		SubjectID:     r.SubjectID,
		Direction:     string(r.Direction),
		Rating:        r.Rating,
		Comment:       optional(r.Comment),
		CreatedAt:     r.CreatedAt,
	}
}

// Create returns ErrDuplicate when the appointment already has a review in that direction.
func (r *ReviewRepository) Create(ctx context.Context, rv *domain.Review) error {
	m := toReviewModel(rv)
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return mapErr(err)
	}
	*rv = *toDomainReview(m)
	return nil
}

func (r *ReviewRepository) ListForService(ctx context.Context, serviceID int64, limit, offset int) ([]domain.Review, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var rows []reviewModel
	err := r.db.WithContext(ctx).
		Where("service_id = ? AND direction = ?", serviceID, string(domain.ReviewOfProvider)).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.Review, 0, len(rows))
	for _, m := range rows {
		out = append(out, *toDomainReview(m))
	}
	return out, nil
}

type ratingRow struct {
	ServiceID int64   `gorm:"column:service_id"`
	Average   float64 `gorm:"column:average"`
	Count     int64   `gorm:"column:count"`
}

// RatingsForServices aggregates customer reviews per service. Services without reviews
// are absent from the result.
func (r *ReviewRepository) RatingsForServices(ctx context.Context, serviceIDs ...int64) (map[int64]domain.RatingSummary, error) {
	out := make(map[int64]domain.RatingSummary, len(serviceIDs))
	if len(serviceIDs) == 0 {
		return out, nil
	}

	var rows []ratingRow
	err := r.db.WithContext(ctx).Model(&reviewModel{}).
		Select("service_id, AVG(rating) AS average, COUNT(*) AS count").
		Where("service_id IN ? AND direction = ?", serviceIDs, string(domain.ReviewOfProvider)).
		Group("service_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ServiceID] = domain.RatingSummary{Average: row.Average, Count: row.Count}
	}
	return out, nil
}

func (r *ReviewRepository) RatingForService(ctx context.Context, serviceID int64) (domain.RatingSummary, error) {
	m, err := r.RatingsForServices(ctx, serviceID)
	if err != nil {
		return domain.RatingSummary{}, err
	}
	return m[serviceID], nil
}
