package models

import "time"

// Notification types understood by the feed. Unknown values still render,
// with a generic message.
const (
	NotificationConnectRequest  = "connect_request"
	NotificationConnectAccepted = "connect_accepted"
	NotificationLike            = "like"
	NotificationComment         = "comment"
)

// Notification represents a user notification (PostgreSQL).
// Notifications are append-only: accepting a connect request creates a
// new connect_accepted notification rather than mutating this one. Only
// IsRead changes after creation.
type Notification struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	Type       string    `json:"type" gorm:"size:30;index"`
	FromUserID uint      `json:"from_user_id" gorm:"index"`
	ToUserID   uint      `json:"to_user_id" gorm:"index"`
	IsRead     bool      `json:"is_read" gorm:"default:false;index"`
	CreatedAt  time.Time `json:"created_at" gorm:"index"`
}
