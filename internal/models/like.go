package models

import "time"

// Like represents a user liking a post (PostgreSQL)
type Like struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	PostID    string    `json:"post_id" gorm:"size:24;index:idx_post_user,unique"`
	UserID    uint      `json:"user_id" gorm:"index:idx_post_user,unique"`
	CreatedAt time.Time `json:"created_at"`
}
