package feed

import (
	"context"
	"log"

	"github.com/connectup/backend/internal/models"
	"gorm.io/gorm"
)

// Accept reconciles a connect-request notification: it locates the
// pending connection from the notification's sender to the session
// user, transitions it to friends, and notifies the original requester.
//
// Matching is deterministic: the pending index is ordered by id, and
// the first entry for the sender wins. More than one match means the
// one-connection-per-pair invariant was violated upstream; it is logged
// and the first match is taken.
//
// The status update and the notify-back insert run in one transaction.
// The update is guarded on status = pending, so a request already
// accepted by a concurrent call (or a second Accept for the same
// notification) yields ErrConnectionNotFound with no mutation.
func (s *Session) Accept(ctx context.Context, notificationID uint) error {
	var notif *EnrichedNotification
	for i := range s.Notifications {
		if s.Notifications[i].ID == notificationID {
			notif = &s.Notifications[i]
			break
		}
	}
	if notif == nil {
		return ErrNotificationNotFound
	}
	if notif.Type != models.NotificationConnectRequest {
		return ErrNotConnectRequest
	}

	if s.PendingErr != nil {
		return s.PendingErr
	}

	matchIdx := -1
	matches := 0
	for i, conn := range s.Pending {
		if conn.UserIDA == notif.FromUserID && conn.UserIDB == s.UserID {
			if matchIdx < 0 {
				matchIdx = i
			}
			matches++
		}
	}
	if matchIdx < 0 {
		return ErrConnectionNotFound
	}
	if matches > 1 {
		log.Printf("feed: %d pending connections for pair (%d, %d), taking id %d",
			matches, notif.FromUserID, s.UserID, s.Pending[matchIdx].ID)
	}
	match := s.Pending[matchIdx]

	err := s.svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Connection{}).
			Where("id = ? AND status = ?", match.ID, models.ConnectionPending).
			Update("status", models.ConnectionFriends)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConnectionNotFound
		}

		return tx.Create(&models.Notification{
			Type:       models.NotificationConnectAccepted,
			FromUserID: s.UserID,
			ToUserID:   notif.FromUserID,
		}).Error
	})
	if err != nil {
		return err
	}

	// Patch the projection so the request no longer shows as pending
	// without a re-fetch.
	s.Pending = append(s.Pending[:matchIdx], s.Pending[matchIdx+1:]...)
	return nil
}
