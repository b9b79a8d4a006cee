package repositories

import (
	"errors"
	"fmt"
	"testing"

	"github.com/connectup/backend/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	db, err := gorm.Open(dsn, &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Connection{}, &models.Notification{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestCreateConnection_EnforcesPairUniqueness(t *testing.T) {
	db := newTestDB(t)
	repo := NewPostgresConnectionRepository(db)

	if err := repo.CreateConnection(&models.Connection{UserIDA: 1, UserIDB: 2}); err != nil {
		t.Fatalf("first create: %v", err)
	}

	// Same orientation
	err := repo.CreateConnection(&models.Connection{UserIDA: 1, UserIDB: 2})
	if !errors.Is(err, ErrConnectionExists) {
		t.Fatalf("duplicate create error = %v, want ErrConnectionExists", err)
	}

	// Reversed orientation is the same unordered pair
	err = repo.CreateConnection(&models.Connection{UserIDA: 2, UserIDB: 1})
	if !errors.Is(err, ErrConnectionExists) {
		t.Fatalf("reversed create error = %v, want ErrConnectionExists", err)
	}

	var count int64
	db.Model(&models.Connection{}).Count(&count)
	if count != 1 {
		t.Fatalf("connection rows = %d, want 1", count)
	}
}

func TestCreateConnection_DefaultsToPending(t *testing.T) {
	db := newTestDB(t)
	repo := NewPostgresConnectionRepository(db)

	conn := &models.Connection{UserIDA: 1, UserIDB: 2, Status: "friends"} // caller cannot skip pending
	if err := repo.CreateConnection(conn); err != nil {
		t.Fatalf("create: %v", err)
	}
	if conn.Status != models.ConnectionPending {
		t.Fatalf("status %q, want %q", conn.Status, models.ConnectionPending)
	}
}

func TestGetPendingForReceiver_FiltersAndOrders(t *testing.T) {
	db := newTestDB(t)
	repo := NewPostgresConnectionRepository(db)

	rows := []models.Connection{
		{UserIDA: 2, UserIDB: 1, Status: models.ConnectionPending},
		{UserIDA: 3, UserIDB: 1, Status: models.ConnectionFriends}, // already accepted
		{UserIDA: 4, UserIDB: 1, Status: models.ConnectionPending},
		{UserIDA: 1, UserIDB: 5, Status: models.ConnectionPending}, // user 1 is the requester here
	}
	for i := range rows {
		if err := db.Create(&rows[i]).Error; err != nil {
			t.Fatalf("create connection: %v", err)
		}
	}

	pending, err := repo.GetPendingForReceiver(1)
	if err != nil {
		t.Fatalf("GetPendingForReceiver: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("pending count = %d, want 2", len(pending))
	}
	if pending[0].ID > pending[1].ID {
		t.Fatalf("pending index not ordered by id ascending")
	}
	for _, conn := range pending {
		if conn.UserIDB != 1 || conn.Status != models.ConnectionPending {
			t.Fatalf("unexpected pending entry: %+v", conn)
		}
	}
}

func TestGetFriendIDs_BothOrientations(t *testing.T) {
	db := newTestDB(t)
	repo := NewPostgresConnectionRepository(db)

	rows := []models.Connection{
		{UserIDA: 1, UserIDB: 2, Status: models.ConnectionFriends},
		{UserIDA: 3, UserIDB: 1, Status: models.ConnectionFriends},
		{UserIDA: 4, UserIDB: 1, Status: models.ConnectionPending},
	}
	for i := range rows {
		if err := db.Create(&rows[i]).Error; err != nil {
			t.Fatalf("create connection: %v", err)
		}
	}

	ids, err := repo.GetFriendIDs(1)
	if err != nil {
		t.Fatalf("GetFriendIDs: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("friend count = %d, want 2", len(ids))
	}
	seen := map[uint]bool{}
	for _, id := range ids {
		seen[id] = true
	}
	if !seen[2] || !seen[3] {
		t.Fatalf("friend ids = %v, want {2, 3}", ids)
	}
}
