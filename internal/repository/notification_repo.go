package repository

import (
	"context"
	"encoding/json"
	"time"

	"tapbook/internal/domain"

	"gorm.io/gorm"
)

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

type notificationModel struct {
	ID        int64     `gorm:"column:id;primaryKey"`
	UserID    int64     `gorm:"column:user_id;not null;index:idx_notifications_user_unread,priority:1"`
	Kind      string    `gorm:"column:kind;not null"`
	Title     string    `gorm:"column:title;not null"`
	Message   *string   `gorm:"column:message"`
	IsRead    bool      `gorm:"column:is_read;not null;default:false;index:idx_notifications_user_unread,priority:2"`
	Data      *string   `gorm:"column:data;type:text"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (notificationModel) TableName() string { return "notifications" }

func toDomainNotification(m notificationModel) domain.Notification {
	n := domain.Notification{
		ID:        m.ID,
		UserID:    m.UserID,
		Kind:      domain.NotificationKind(m.Kind),
		Title:     m.Title,
		Message:   deref(m.Message),
		IsRead:    m.IsRead,
		CreatedAt: m.CreatedAt,
	}
	if m.Data != nil && *m.Data != "" {
		_ = json.Unmarshal([]byte(*m.Data), &n.Data)
	}
	return n
}

func (r *NotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	m := notificationModel{
		UserID:  n.UserID,
		Kind:    string(n.Kind),
		Title:   n.Title,
		Message: optional(n.Message),
		IsRead:  n.IsRead,
	}
	if len(n.Data) > 0 {
		b, err := json.Marshal(n.Data)
		if err != nil {
			return err
		}
		m.Data = optional(string(b))
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return err
	}
	n.ID = m.ID
	n.CreatedAt = m.CreatedAt
	return nil
}

func (r *NotificationRepository) ListForUser(ctx context.Context, userID int64, unreadOnly bool, limit, offset int) ([]domain.Notification, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}
	var rows []notificationModel
	if err := q.Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Notification, 0, len(rows))
	for _, m := range rows {
		out = append(out, toDomainNotification(m))
	}
	return out, nil
}

func (r *NotificationRepository) CountUnread(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&notificationModel{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

func (r *NotificationRepository) MarkRead(ctx context.Context, userID, id int64) error {
	res := r.db.WithContext(ctx).Model(&notificationModel{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	res := r.db.WithContext(ctx).Model(&notificationModel{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}
