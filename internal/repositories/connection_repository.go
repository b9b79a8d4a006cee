package repositories

import (
	"errors"

	"github.com/connectup/backend/internal/models"
	"gorm.io/gorm"
)

var (
	// ErrConnectionExists is returned when a connection already exists
	// between a user pair, in either orientation.
	ErrConnectionExists = errors.New("a connection already exists between these users")
)

// ConnectionRepository defines the interface for connection data operations
type ConnectionRepository interface {
	CreateConnection(conn *models.Connection) error
	GetConnectionByID(id uint) (*models.Connection, error)
	GetConnectionByPair(userIDA, userIDB uint) (*models.Connection, error)
	GetPendingForReceiver(userID uint) ([]models.Connection, error)
	GetFriendIDs(userID uint) ([]uint, error)
}

// PostgresConnectionRepository implements ConnectionRepository for PostgreSQL
type PostgresConnectionRepository struct {
	db *gorm.DB
}

// NewPostgresConnectionRepository creates a new PostgresConnectionRepository
func NewPostgresConnectionRepository(db *gorm.DB) *PostgresConnectionRepository {
	return &PostgresConnectionRepository{db: db}
}

// CreateConnection creates a new pending connection. At most one
// connection may exist per unordered user pair, so both orientations are
// checked before the insert.
func (r *PostgresConnectionRepository) CreateConnection(conn *models.Connection) error {
	var existing models.Connection
	err := r.db.Where("(user_id_a = ? AND user_id_b = ?) OR (user_id_a = ? AND user_id_b = ?)",
		conn.UserIDA, conn.UserIDB, conn.UserIDB, conn.UserIDA).First(&existing).Error

	if err == nil {
		return ErrConnectionExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	conn.Status = models.ConnectionPending
	return r.db.Create(conn).Error
}

// GetConnectionByID retrieves a connection by ID
func (r *PostgresConnectionRepository) GetConnectionByID(id uint) (*models.Connection, error) {
	var conn models.Connection
	if err := r.db.First(&conn, id).Error; err != nil {
		return nil, err
	}
	return &conn, nil
}

// GetConnectionByPair retrieves the connection between two users, in
// either orientation.
func (r *PostgresConnectionRepository) GetConnectionByPair(userIDA, userIDB uint) (*models.Connection, error) {
	var conn models.Connection
	err := r.db.Where("(user_id_a = ? AND user_id_b = ?) OR (user_id_a = ? AND user_id_b = ?)",
		userIDA, userIDB, userIDB, userIDA).First(&conn).Error
	if err != nil {
		return nil, err
	}
	return &conn, nil
}

// GetPendingForReceiver retrieves all pending connections where the
// given user is the receiving party, in deterministic id order.
func (r *PostgresConnectionRepository) GetPendingForReceiver(userID uint) ([]models.Connection, error) {
	var conns []models.Connection
	if err := r.db.Where("user_id_b = ? AND status = ?", userID, models.ConnectionPending).
		Order("id ASC").
		Find(&conns).Error; err != nil {
		return nil, err
	}
	return conns, nil
}

// GetFriendIDs retrieves the IDs of all users connected to the given
// user with status friends.
func (r *PostgresConnectionRepository) GetFriendIDs(userID uint) ([]uint, error) {
	var conns []models.Connection
	if err := r.db.Where("(user_id_a = ? OR user_id_b = ?) AND status = ?",
		userID, userID, models.ConnectionFriends).Find(&conns).Error; err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(conns))
	for _, c := range conns {
		if c.UserIDA == userID {
			ids = append(ids, c.UserIDB)
		} else {
			ids = append(ids, c.UserIDA)
		}
	}
	return ids, nil
}
