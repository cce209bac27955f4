package notification

import (
	"context"

	"tapbook/internal/domain"
)

type Repository interface {
	Create(ctx context.Context, n *domain.Notification) error
	ListForUser(ctx context.Context, userID int64, unreadOnly bool, limit, offset int) ([]domain.Notification, error)
	CountUnread(ctx context.Context, userID int64) (int64, error)
	MarkRead(ctx context.Context, userID, id int64) error
	MarkAllRead(ctx context.Context, userID int64) (int64, error)
}

// Pusher delivers an event to a user's live connections.
type Pusher interface {
	Push(userID int64, ev Event) bool
}
