package notification

import "tapbook/internal/domain"

type ListResponse struct {
	Notifications []domain.Notification `json:"notifications"`
	UnreadCount   int64                 `json:"unread_count"`
}

type MarkAllResponse struct {
	Updated int64 `json:"updated"`
}
