package handlers

import (
	"net/http"

	"github.com/connectup/backend/internal/models"
	"github.com/connectup/backend/internal/repositories"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// ConnectionHandler handles HTTP requests related to connections
type ConnectionHandler struct {
	connectionRepository   repositories.ConnectionRepository
	userRepository         repositories.UserRepository
	notificationRepository repositories.NotificationRepository
}

// NewConnectionHandler creates a new ConnectionHandler
func NewConnectionHandler(
	connRepo repositories.ConnectionRepository,
	userRepo repositories.UserRepository,
	notifRepo repositories.NotificationRepository,
) *ConnectionHandler {
	return &ConnectionHandler{
		connectionRepository:   connRepo,
		userRepository:         userRepo,
		notificationRepository: notifRepo,
	}
}

// RegisterConnectionRoutes registers connection-related routes
func (h *ConnectionHandler) RegisterConnectionRoutes(g *echo.Group) {
	g.POST("/connections/request", h.SendConnectRequest)
	g.GET("/connections/pending", h.GetPendingConnections)
	g.GET("/connections/friends", h.GetFriends)
}

// PendingConnection is a pending connection with the requester resolved
type PendingConnection struct {
	models.Connection
	Requester models.UserCompact `json:"requester"`
}

// SendConnectRequest creates a pending connection and notifies the receiver
func (h *ConnectionHandler) SendConnectRequest(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.CreateConnectionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if currentUserID == req.ReceiverID {
		return echo.NewHTTPError(http.StatusBadRequest, "Cannot send a connect request to yourself")
	}

	// Check if receiver exists
	if _, err := h.userRepository.GetUserByID(req.ReceiverID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "Receiver user not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	conn := &models.Connection{
		UserIDA: currentUserID,
		UserIDB: req.ReceiverID,
	}

	if err := h.connectionRepository.CreateConnection(conn); err != nil {
		if err == repositories.ErrConnectionExists {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	notif := &models.Notification{
		Type:       models.NotificationConnectRequest,
		FromUserID: currentUserID,
		ToUserID:   req.ReceiverID,
	}
	if err := h.notificationRepository.CreateNotification(notif); err != nil {
		c.Logger().Errorf("connect request notification not created: %v", err)
	}

	return c.JSON(http.StatusCreated, conn)
}

// GetPendingConnections retrieves pending connect requests addressed to
// the authenticated user, with each requester resolved
func (h *ConnectionHandler) GetPendingConnections(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	pending, err := h.connectionRepository.GetPendingForReceiver(currentUserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	enriched := make([]PendingConnection, len(pending))
	for i, conn := range pending {
		enriched[i] = PendingConnection{Connection: conn}
		if requester, err := h.userRepository.GetUserByID(conn.UserIDA); err == nil {
			enriched[i].Requester = requester.ToCompact()
		}
	}
	return c.JSON(http.StatusOK, enriched)
}

// GetFriends retrieves the authenticated user's accepted connections
func (h *ConnectionHandler) GetFriends(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	friendIDs, err := h.connectionRepository.GetFriendIDs(currentUserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	friends := make([]models.UserCompact, 0, len(friendIDs))
	for _, id := range friendIDs {
		user, err := h.userRepository.GetUserByID(id)
		if err != nil {
			continue
		}
		friends = append(friends, user.ToCompact())
	}
	return c.JSON(http.StatusOK, friends)
}
