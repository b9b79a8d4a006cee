package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/connectup/backend/internal/repositories"
	"github.com/connectup/backend/internal/services/feed"
	"github.com/labstack/echo/v4"
)

// NotificationHandler handles notification-related HTTP requests
type NotificationHandler struct {
	feedService            *feed.Service
	notificationRepository repositories.NotificationRepository
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(feedService *feed.Service, notifRepo repositories.NotificationRepository) *NotificationHandler {
	return &NotificationHandler{
		feedService:            feedService,
		notificationRepository: notifRepo,
	}
}

// RegisterNotificationRoutes registers notification routes
func (h *NotificationHandler) RegisterNotificationRoutes(g *echo.Group) {
	g.GET("/notifications", h.GetNotifications)
	g.POST("/notifications/:id/accept", h.AcceptConnectRequest)
	g.GET("/notifications/unread-count", h.GetUnreadCount)
	g.PUT("/notifications/:id/read", h.MarkAsRead)
	g.PUT("/notifications/read-all", h.MarkAllAsRead)
}

// FeedItem is one rendered notification in the feed payload
type FeedItem struct {
	feed.EnrichedNotification
	Message string `json:"message"`
}

// GetNotifications returns the user's notification feed, newest first
func (h *NotificationHandler) GetNotifications(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	session, err := h.feedService.LoadFeed(c.Request().Context(), currentUserID)
	if err != nil {
		// A load failure is a real error, not an empty inbox.
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load notifications")
	}

	items := make([]FeedItem, len(session.Notifications))
	for i := range session.Notifications {
		items[i] = FeedItem{
			EnrichedNotification: session.Notifications[i],
			Message:              session.Notifications[i].Message(),
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data": echo.Map{
			"notifications": items,
			"pending_count": len(session.Pending),
		},
	})
}

// AcceptConnectRequest accepts the connect request behind a notification
func (h *NotificationHandler) AcceptConnectRequest(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	notifID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid notification ID")
	}

	ctx := c.Request().Context()
	session, err := h.feedService.LoadFeed(ctx, currentUserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load notifications")
	}

	if err := session.Accept(ctx, uint(notifID)); err != nil {
		switch {
		case errors.Is(err, feed.ErrConnectionNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "Connection not found")
		case errors.Is(err, feed.ErrNotificationNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "Notification not found")
		case errors.Is(err, feed.ErrNotConnectRequest):
			return echo.NewHTTPError(http.StatusBadRequest, "Notification is not a connect request")
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    echo.Map{"pending_count": len(session.Pending)},
	})
}

// GetUnreadCount returns the unread notification count
func (h *NotificationHandler) GetUnreadCount(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	count, err := h.notificationRepository.GetUnreadCount(currentUserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"count": count}})
}

// MarkAsRead marks a notification as read
func (h *NotificationHandler) MarkAsRead(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	notifID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid notification ID")
	}

	if err := h.notificationRepository.MarkAsRead(uint(notifID)); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// MarkAllAsRead marks all notifications as read
func (h *NotificationHandler) MarkAllAsRead(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	if err := h.notificationRepository.MarkAllAsRead(currentUserID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}
