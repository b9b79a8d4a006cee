package feed

import (
	"context"
	"errors"
	"log"
	"strconv"

	"github.com/connectup/backend/internal/models"
	"github.com/connectup/backend/internal/repositories"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

var (
	// ErrConnectionNotFound is returned by Accept when no pending
	// connection matches the notification's sender. This happens when
	// the request was already accepted elsewhere or the notification is
	// stale.
	ErrConnectionNotFound = errors.New("connection not found")

	// ErrNotificationNotFound is returned when the notification is not
	// part of the loaded feed.
	ErrNotificationNotFound = errors.New("notification not found")

	// ErrNotConnectRequest is returned when Accept is invoked on a
	// notification that is not a connect request.
	ErrNotConnectRequest = errors.New("notification is not a connect request")
)

// defaultFeedLimit bounds a single feed fetch. There is no pagination
// beyond this, and Accept only resolves notifications inside this
// window; older connect requests still show up in the
// pending-connections listing.
const defaultFeedLimit = 50

// EnrichedNotification is a notification with the sender's display name
// resolved. FromUserName falls back to the raw sender ID when the user
// record is missing.
type EnrichedNotification struct {
	models.Notification
	FromUserName string `json:"from_user_name"`
}

// Message renders the human-readable feed line for a notification
func (n *EnrichedNotification) Message() string {
	switch n.Type {
	case models.NotificationConnectRequest:
		return n.FromUserName + " sent you a connect request"
	case models.NotificationConnectAccepted:
		return n.FromUserName + " accepted your connect request"
	case models.NotificationLike:
		return n.FromUserName + " liked your post"
	case models.NotificationComment:
		return n.FromUserName + " commented on your post"
	default:
		return "New notification"
	}
}

// Service loads notification feeds and reconciles connect-request
// accepts. The accept transition and its notify-back insert run in a
// single transaction, so a failure rolls both back.
type Service struct {
	db            *gorm.DB
	notifications repositories.NotificationRepository
	connections   repositories.ConnectionRepository
	users         repositories.UserRepository
	feedLimit     int
}

// NewService creates a new feed Service
func NewService(
	db *gorm.DB,
	notifRepo repositories.NotificationRepository,
	connRepo repositories.ConnectionRepository,
	userRepo repositories.UserRepository,
) *Service {
	return &Service{
		db:            db,
		notifications: notifRepo,
		connections:   connRepo,
		users:         userRepo,
		feedLimit:     defaultFeedLimit,
	}
}

// Session is the request-scoped projection of one user's feed: the
// enriched notification list plus the pending-connection index used for
// accept matching. It is rebuilt on every load and patched in place on
// accept; it is not shared across requests.
type Session struct {
	svc    *Service
	UserID uint

	Notifications []EnrichedNotification
	Pending       []models.Connection

	// PendingErr records a failed pending-index load. The notification
	// feed is still served; accepts fail until a reload succeeds.
	PendingErr error
}

// LoadFeed builds a feed session for the given user: all notifications
// addressed to the user, newest first, each enriched with the sender's
// display name, plus the user's pending connection index.
//
// A failed notification query is a real error. A failed pending-index
// query alone does not discard the feed; it is recorded on the session.
func (s *Service) LoadFeed(ctx context.Context, userID uint) (*Session, error) {
	notifications, err := s.notifications.GetByRecipientID(userID, s.feedLimit)
	if err != nil {
		return nil, err
	}

	session := &Session{
		svc:           s,
		UserID:        userID,
		Notifications: s.enrich(notifications),
	}

	pending, err := s.connections.GetPendingForReceiver(userID)
	if err != nil {
		log.Printf("feed: pending connection index load failed for user %d: %v", userID, err)
		session.PendingErr = err
	} else {
		session.Pending = pending
	}

	return session, nil
}

// enrich resolves sender display names for a batch of notifications.
// Distinct senders are resolved concurrently; the result is only
// assembled once every lookup has finished. Enrichment is best-effort:
// a missing or unreadable user record degrades to the raw sender ID.
func (s *Service) enrich(notifications []models.Notification) []EnrichedNotification {
	senderIDs := make([]uint, 0)
	seen := make(map[uint]bool)
	for _, n := range notifications {
		if !seen[n.FromUserID] {
			seen[n.FromUserID] = true
			senderIDs = append(senderIDs, n.FromUserID)
		}
	}

	names := make([]string, len(senderIDs))
	var g errgroup.Group
	for i, id := range senderIDs {
		i, id := i, id
		g.Go(func() error {
			user, err := s.users.GetUserByID(id)
			if err != nil {
				if !errors.Is(err, gorm.ErrRecordNotFound) {
					log.Printf("feed: resolving sender %d failed: %v", id, err)
				}
				names[i] = strconv.FormatUint(uint64(id), 10)
				return nil
			}
			names[i] = user.Name
			return nil
		})
	}
	// The lookups never return an error; failures degrade to the raw ID.
	_ = g.Wait()

	nameByID := make(map[uint]string, len(senderIDs))
	for i, id := range senderIDs {
		nameByID[id] = names[i]
	}

	enriched := make([]EnrichedNotification, len(notifications))
	for i, n := range notifications {
		enriched[i] = EnrichedNotification{
			Notification: n,
			FromUserName: nameByID[n.FromUserID],
		}
	}
	return enriched
}
