package feed

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/connectup/backend/internal/models"
	"github.com/connectup/backend/internal/repositories"
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

func newTestService(db *gorm.DB) *Service {
	return NewService(
		db,
		repositories.NewPostgresNotificationRepository(db),
		repositories.NewPostgresConnectionRepository(db),
		repositories.NewPostgresUserRepository(db),
	)
}

func createUser(t *testing.T, db *gorm.DB, name string) *models.User {
	t.Helper()
	user := &models.User{
		Name:        name,
		Username:    name,
		Email:       name + "@example.com",
		FirebaseUID: "uid-" + name,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return user
}

func TestLoadFeed_OrderAndEnrichment(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(db)
	ctx := context.Background()

	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	carol := createUser(t, db, "carol")

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	rows := []models.Notification{
		{Type: models.NotificationLike, FromUserID: bob.ID, ToUserID: alice.ID, CreatedAt: base},
		{Type: models.NotificationComment, FromUserID: carol.ID, ToUserID: alice.ID, CreatedAt: base.Add(time.Hour)},
		{Type: models.NotificationConnectRequest, FromUserID: bob.ID, ToUserID: alice.ID, CreatedAt: base.Add(2 * time.Hour)},
		// Addressed to someone else, must not show up
		{Type: models.NotificationLike, FromUserID: alice.ID, ToUserID: bob.ID, CreatedAt: base},
	}
	for i := range rows {
		if err := db.Create(&rows[i]).Error; err != nil {
			t.Fatalf("create notification: %v", err)
		}
	}

	session, err := svc.LoadFeed(ctx, alice.ID)
	if err != nil {
		t.Fatalf("LoadFeed: %v", err)
	}

	if len(session.Notifications) != 3 {
		t.Fatalf("expected 3 notifications, got %d", len(session.Notifications))
	}
	for i := 1; i < len(session.Notifications); i++ {
		if session.Notifications[i-1].CreatedAt.Before(session.Notifications[i].CreatedAt) {
			t.Fatalf("feed not ordered newest first at index %d", i)
		}
	}
	if got := session.Notifications[0].Type; got != models.NotificationConnectRequest {
		t.Fatalf("newest notification type: %s", got)
	}
	for _, n := range session.Notifications {
		want := map[uint]string{bob.ID: "bob", carol.ID: "carol"}[n.FromUserID]
		if n.FromUserName != want {
			t.Fatalf("sender %d enriched as %q, want %q", n.FromUserID, n.FromUserName, want)
		}
	}
}

func TestLoadFeed_TieBreakDeterministic(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(db)
	ctx := context.Background()

	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		n := models.Notification{Type: models.NotificationLike, FromUserID: bob.ID, ToUserID: alice.ID, CreatedAt: at}
		if err := db.Create(&n).Error; err != nil {
			t.Fatalf("create notification: %v", err)
		}
	}

	first, err := svc.LoadFeed(ctx, alice.ID)
	if err != nil {
		t.Fatalf("LoadFeed: %v", err)
	}
	for run := 0; run < 3; run++ {
		again, err := svc.LoadFeed(ctx, alice.ID)
		if err != nil {
			t.Fatalf("LoadFeed: %v", err)
		}
		for i := range first.Notifications {
			if first.Notifications[i].ID != again.Notifications[i].ID {
				t.Fatalf("order not stable across loads at index %d", i)
			}
		}
	}
	// Equal timestamps fall back to id descending
	for i := 1; i < len(first.Notifications); i++ {
		if first.Notifications[i-1].ID < first.Notifications[i].ID {
			t.Fatalf("tie-break not id descending at index %d", i)
		}
	}
}

func TestLoadFeed_MissingSenderFallsBackToID(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(db)
	ctx := context.Background()

	alice := createUser(t, db, "alice")

	const ghostID uint = 9999
	n := models.Notification{Type: models.NotificationLike, FromUserID: ghostID, ToUserID: alice.ID}
	if err := db.Create(&n).Error; err != nil {
		t.Fatalf("create notification: %v", err)
	}

	session, err := svc.LoadFeed(ctx, alice.ID)
	if err != nil {
		t.Fatalf("LoadFeed: %v", err)
	}
	if len(session.Notifications) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(session.Notifications))
	}
	want := strconv.FormatUint(uint64(ghostID), 10)
	if got := session.Notifications[0].FromUserName; got != want {
		t.Fatalf("fallback name %q, want %q", got, want)
	}
}

var errConnectionStoreDown = errors.New("connection store unavailable")

// unavailableConnectionRepository fails every pending-index read.
type unavailableConnectionRepository struct {
	repositories.ConnectionRepository
}

func (unavailableConnectionRepository) GetPendingForReceiver(userID uint) ([]models.Connection, error) {
	return nil, errConnectionStoreDown
}

func TestLoadFeed_PendingIndexFailureKeepsFeed(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	conn := models.Connection{UserIDA: bob.ID, UserIDB: alice.ID, Status: models.ConnectionPending}
	if err := db.Create(&conn).Error; err != nil {
		t.Fatalf("create connection: %v", err)
	}
	request := models.Notification{Type: models.NotificationConnectRequest, FromUserID: bob.ID, ToUserID: alice.ID}
	if err := db.Create(&request).Error; err != nil {
		t.Fatalf("create notification: %v", err)
	}

	svc := NewService(
		db,
		repositories.NewPostgresNotificationRepository(db),
		unavailableConnectionRepository{repositories.NewPostgresConnectionRepository(db)},
		repositories.NewPostgresUserRepository(db),
	)

	session, err := svc.LoadFeed(ctx, alice.ID)
	if err != nil {
		t.Fatalf("LoadFeed: %v", err)
	}
	if len(session.Notifications) != 1 {
		t.Fatalf("feed length = %d, want the feed served despite the index failure", len(session.Notifications))
	}
	if session.Notifications[0].FromUserName != "bob" {
		t.Fatalf("sender enriched as %q, want bob", session.Notifications[0].FromUserName)
	}
	if !errors.Is(session.PendingErr, errConnectionStoreDown) {
		t.Fatalf("PendingErr = %v, want the index load failure", session.PendingErr)
	}

	// Accepts are refused until a reload succeeds, with no mutation.
	if err := session.Accept(ctx, request.ID); !errors.Is(err, errConnectionStoreDown) {
		t.Fatalf("Accept error = %v, want the recorded index failure", err)
	}
	var got models.Connection
	if err := db.First(&got, conn.ID).Error; err != nil {
		t.Fatalf("find connection: %v", err)
	}
	if got.Status != models.ConnectionPending {
		t.Fatalf("connection status %q, want untouched %q", got.Status, models.ConnectionPending)
	}
	var ackCount int64
	db.Model(&models.Notification{}).Where("type = ?", models.NotificationConnectAccepted).Count(&ackCount)
	if ackCount != 0 {
		t.Fatalf("acceptance notifications = %d, want 0", ackCount)
	}
}

func TestAccept_TransitionsAndNotifiesBack(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(db)
	ctx := context.Background()

	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	conn := models.Connection{UserIDA: bob.ID, UserIDB: alice.ID, Status: models.ConnectionPending}
	if err := db.Create(&conn).Error; err != nil {
		t.Fatalf("create connection: %v", err)
	}
	request := models.Notification{Type: models.NotificationConnectRequest, FromUserID: bob.ID, ToUserID: alice.ID}
	if err := db.Create(&request).Error; err != nil {
		t.Fatalf("create notification: %v", err)
	}

	session, err := svc.LoadFeed(ctx, alice.ID)
	if err != nil {
		t.Fatalf("LoadFeed: %v", err)
	}
	if len(session.Pending) != 1 {
		t.Fatalf("expected 1 pending connection, got %d", len(session.Pending))
	}

	if err := session.Accept(ctx, request.ID); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	var got models.Connection
	if err := db.First(&got, conn.ID).Error; err != nil {
		t.Fatalf("find connection: %v", err)
	}
	if got.Status != models.ConnectionFriends {
		t.Fatalf("connection status %q, want %q", got.Status, models.ConnectionFriends)
	}

	var ack models.Notification
	err = db.Where("type = ? AND to_user_id = ? AND from_user_id = ?",
		models.NotificationConnectAccepted, bob.ID, alice.ID).First(&ack).Error
	if err != nil {
		t.Fatalf("find acceptance notification: %v", err)
	}

	if len(session.Pending) != 0 {
		t.Fatalf("pending index not patched, %d entries left", len(session.Pending))
	}
}

func TestAccept_NoMatchMutatesNothing(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(db)
	ctx := context.Background()

	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	// Stale notification: the connection record never existed
	request := models.Notification{Type: models.NotificationConnectRequest, FromUserID: bob.ID, ToUserID: alice.ID}
	if err := db.Create(&request).Error; err != nil {
		t.Fatalf("create notification: %v", err)
	}

	session, err := svc.LoadFeed(ctx, alice.ID)
	if err != nil {
		t.Fatalf("LoadFeed: %v", err)
	}

	if err := session.Accept(ctx, request.ID); !errors.Is(err, ErrConnectionNotFound) {
		t.Fatalf("Accept error = %v, want ErrConnectionNotFound", err)
	}

	var connCount, notifCount int64
	db.Model(&models.Connection{}).Count(&connCount)
	db.Model(&models.Notification{}).Count(&notifCount)
	if connCount != 0 {
		t.Fatalf("connection rows created: %d", connCount)
	}
	if notifCount != 1 {
		t.Fatalf("notification rows = %d, want the original 1", notifCount)
	}
}

func TestAccept_SecondCallIsNotFound(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(db)
	ctx := context.Background()

	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	conn := models.Connection{UserIDA: bob.ID, UserIDB: alice.ID, Status: models.ConnectionPending}
	if err := db.Create(&conn).Error; err != nil {
		t.Fatalf("create connection: %v", err)
	}
	request := models.Notification{Type: models.NotificationConnectRequest, FromUserID: bob.ID, ToUserID: alice.ID}
	if err := db.Create(&request).Error; err != nil {
		t.Fatalf("create notification: %v", err)
	}

	session, err := svc.LoadFeed(ctx, alice.ID)
	if err != nil {
		t.Fatalf("LoadFeed: %v", err)
	}
	if err := session.Accept(ctx, request.ID); err != nil {
		t.Fatalf("first Accept: %v", err)
	}

	// A fresh session no longer sees a pending match
	session, err = svc.LoadFeed(ctx, alice.ID)
	if err != nil {
		t.Fatalf("LoadFeed: %v", err)
	}
	if err := session.Accept(ctx, request.ID); !errors.Is(err, ErrConnectionNotFound) {
		t.Fatalf("second Accept error = %v, want ErrConnectionNotFound", err)
	}

	var ackCount int64
	db.Model(&models.Notification{}).Where("type = ?", models.NotificationConnectAccepted).Count(&ackCount)
	if ackCount != 1 {
		t.Fatalf("acceptance notifications = %d, want 1", ackCount)
	}
}

func TestAccept_RejectsNonConnectRequest(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(db)
	ctx := context.Background()

	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	like := models.Notification{Type: models.NotificationLike, FromUserID: bob.ID, ToUserID: alice.ID}
	if err := db.Create(&like).Error; err != nil {
		t.Fatalf("create notification: %v", err)
	}

	session, err := svc.LoadFeed(ctx, alice.ID)
	if err != nil {
		t.Fatalf("LoadFeed: %v", err)
	}
	if err := session.Accept(ctx, like.ID); !errors.Is(err, ErrNotConnectRequest) {
		t.Fatalf("Accept error = %v, want ErrNotConnectRequest", err)
	}
	if err := session.Accept(ctx, 424242); !errors.Is(err, ErrNotificationNotFound) {
		t.Fatalf("Accept error = %v, want ErrNotificationNotFound", err)
	}
}

func TestAccept_DuplicatePendingTakesFirstByID(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(db)
	ctx := context.Background()

	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	// Two pending rows for the same pair: the uniqueness invariant was
	// violated upstream. Matching must still be deterministic.
	first := models.Connection{UserIDA: bob.ID, UserIDB: alice.ID, Status: models.ConnectionPending}
	second := models.Connection{UserIDA: bob.ID, UserIDB: alice.ID, Status: models.ConnectionPending}
	if err := db.Create(&first).Error; err != nil {
		t.Fatalf("create connection: %v", err)
	}
	if err := db.Create(&second).Error; err != nil {
		t.Fatalf("create connection: %v", err)
	}
	request := models.Notification{Type: models.NotificationConnectRequest, FromUserID: bob.ID, ToUserID: alice.ID}
	if err := db.Create(&request).Error; err != nil {
		t.Fatalf("create notification: %v", err)
	}

	session, err := svc.LoadFeed(ctx, alice.ID)
	if err != nil {
		t.Fatalf("LoadFeed: %v", err)
	}
	if err := session.Accept(ctx, request.ID); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	var got models.Connection
	if err := db.First(&got, first.ID).Error; err != nil {
		t.Fatalf("find connection: %v", err)
	}
	if got.Status != models.ConnectionFriends {
		t.Fatalf("lowest-id connection status %q, want %q", got.Status, models.ConnectionFriends)
	}
	got = models.Connection{}
	if err := db.First(&got, second.ID).Error; err != nil {
		t.Fatalf("find connection: %v", err)
	}
	if got.Status != models.ConnectionPending {
		t.Fatalf("duplicate connection status %q, want untouched %q", got.Status, models.ConnectionPending)
	}
}

func TestEndToEnd_AliceAcceptsBob(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(db)
	ctx := context.Background()

	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	connRepo := repositories.NewPostgresConnectionRepository(db)
	conn := &models.Connection{UserIDA: bob.ID, UserIDB: alice.ID}
	if err := connRepo.CreateConnection(conn); err != nil {
		t.Fatalf("CreateConnection: %v", err)
	}
	request := models.Notification{Type: models.NotificationConnectRequest, FromUserID: bob.ID, ToUserID: alice.ID}
	if err := db.Create(&request).Error; err != nil {
		t.Fatalf("create notification: %v", err)
	}

	session, err := svc.LoadFeed(ctx, alice.ID)
	if err != nil {
		t.Fatalf("LoadFeed: %v", err)
	}
	if got := session.Notifications[0].Message(); got != "bob sent you a connect request" {
		t.Fatalf("rendered message %q", got)
	}

	if err := session.Accept(ctx, request.ID); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	// Bob's feed now carries the acceptance
	bobSession, err := svc.LoadFeed(ctx, bob.ID)
	if err != nil {
		t.Fatalf("LoadFeed(bob): %v", err)
	}
	if len(bobSession.Notifications) != 1 {
		t.Fatalf("bob's feed has %d notifications, want 1", len(bobSession.Notifications))
	}
	ack := bobSession.Notifications[0]
	if ack.Type != models.NotificationConnectAccepted || ack.FromUserID != alice.ID {
		t.Fatalf("unexpected acceptance notification: %+v", ack)
	}
	if got := ack.Message(); got != "alice accepted your connect request" {
		t.Fatalf("rendered message %q", got)
	}
}
