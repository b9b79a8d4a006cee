package repositories

import (
	"testing"
	"time"

	"github.com/connectup/backend/internal/models"
)

func TestGetByRecipientID_NewestFirst(t *testing.T) {
	db := newTestDB(t)
	repo := NewPostgresNotificationRepository(db)

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	rows := []models.Notification{
		{Type: models.NotificationLike, FromUserID: 2, ToUserID: 1, CreatedAt: base},
		{Type: models.NotificationComment, FromUserID: 3, ToUserID: 1, CreatedAt: base.Add(time.Minute)},
		{Type: models.NotificationLike, FromUserID: 2, ToUserID: 9, CreatedAt: base}, // other recipient
	}
	for i := range rows {
		if err := db.Create(&rows[i]).Error; err != nil {
			t.Fatalf("create notification: %v", err)
		}
	}

	got, err := repo.GetByRecipientID(1, 0)
	if err != nil {
		t.Fatalf("GetByRecipientID: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("notification count = %d, want 2", len(got))
	}
	if got[0].Type != models.NotificationComment {
		t.Fatalf("newest first violated, got %q on top", got[0].Type)
	}
}

func TestGetByRecipientID_Limit(t *testing.T) {
	db := newTestDB(t)
	repo := NewPostgresNotificationRepository(db)

	for i := 0; i < 5; i++ {
		n := models.Notification{Type: models.NotificationLike, FromUserID: 2, ToUserID: 1}
		if err := db.Create(&n).Error; err != nil {
			t.Fatalf("create notification: %v", err)
		}
	}

	got, err := repo.GetByRecipientID(1, 3)
	if err != nil {
		t.Fatalf("GetByRecipientID: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("notification count = %d, want limit 3", len(got))
	}
}

func TestUnreadCountAndMarkRead(t *testing.T) {
	db := newTestDB(t)
	repo := NewPostgresNotificationRepository(db)

	a := models.Notification{Type: models.NotificationLike, FromUserID: 2, ToUserID: 1}
	b := models.Notification{Type: models.NotificationComment, FromUserID: 3, ToUserID: 1}
	for _, n := range []*models.Notification{&a, &b} {
		if err := db.Create(n).Error; err != nil {
			t.Fatalf("create notification: %v", err)
		}
	}

	count, err := repo.GetUnreadCount(1)
	if err != nil {
		t.Fatalf("GetUnreadCount: %v", err)
	}
	if count != 2 {
		t.Fatalf("unread = %d, want 2", count)
	}

	if err := repo.MarkAsRead(a.ID); err != nil {
		t.Fatalf("MarkAsRead: %v", err)
	}
	count, _ = repo.GetUnreadCount(1)
	if count != 1 {
		t.Fatalf("unread after MarkAsRead = %d, want 1", count)
	}

	if err := repo.MarkAllAsRead(1); err != nil {
		t.Fatalf("MarkAllAsRead: %v", err)
	}
	count, _ = repo.GetUnreadCount(1)
	if count != 0 {
		t.Fatalf("unread after MarkAllAsRead = %d, want 0", count)
	}
}
