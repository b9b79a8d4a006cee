package models

import "gorm.io/gorm"

// Connection statuses. The only transition this service performs is
// pending -> friends; there is no reverse transition.
const (
	ConnectionPending = "pending"
	ConnectionFriends = "friends"
)

// Connection represents a connect request between two users. UserIDA is
// the requester, UserIDB the receiver. At most one connection may exist
// per unordered user pair; the repository enforces this at create time.
type Connection struct {
	gorm.Model `json:"-"`
	ID         uint   `json:"id" gorm:"primaryKey"`
	UserIDA    uint   `json:"user_id_a" gorm:"index"`
	UserIDB    uint   `json:"user_id_b" gorm:"index"`
	Status     string `json:"status" gorm:"type:varchar(20);default:'pending';index"`
}

// CreateConnectionRequest defines the request body for sending a connect request
type CreateConnectionRequest struct {
	ReceiverID uint `json:"receiver_id" validate:"required"`
}
