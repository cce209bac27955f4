package domain

import "time"

type NotificationKind string

const (
	NotifBookingCreated     NotificationKind = "booking_created"
	NotifBookingConfirmed   NotificationKind = "booking_confirmed"
	NotifBookingDeclined    NotificationKind = "booking_declined"
	NotifBookingCancelled   NotificationKind = "booking_cancelled"
	NotifBookingRescheduled NotificationKind = "booking_rescheduled"
	NotifBookingCompleted   NotificationKind = "booking_completed"
	NotifBookingReminder    NotificationKind = "booking_reminder"
	NotifNewReview          NotificationKind = "new_review"
)

type Notification struct {
	ID        int64            `json:"id"`
	UserID    int64            `json:"user_id"`
	Kind      NotificationKind `json:"kind"`
	Title     string           `json:"title"`
	Message   string           `json:"message,omitempty"`
	IsRead    bool             `json:"is_read"`
	Data      map[string]any   `json:"data,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}
