package repositories

import (
	"context"
	"time"

	"github.com/connectup/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MessageRepository defines the interface for direct message operations
type MessageRepository interface {
	CreateMessage(ctx context.Context, message *models.Message) error
	GetConversation(ctx context.Context, userID, otherUserID uint, limit int64) ([]models.Message, error)
	MarkConversationSeen(ctx context.Context, userID, otherUserID uint) error
}

// MongoMessageRepository implements MessageRepository for MongoDB
type MongoMessageRepository struct {
	collection *mongo.Collection
}

// NewMongoMessageRepository creates a new MongoMessageRepository
func NewMongoMessageRepository(db *mongo.Database) *MongoMessageRepository {
	return &MongoMessageRepository{collection: db.Collection("messages")}
}

// CreateMessage stores a new direct message
func (r *MongoMessageRepository) CreateMessage(ctx context.Context, message *models.Message) error {
	message.ID = primitive.NewObjectID()
	message.CreatedAt = time.Now()
	message.Seen = false
	_, err := r.collection.InsertOne(ctx, message)
	return err
}

// GetConversation retrieves messages between two users, oldest first
func (r *MongoMessageRepository) GetConversation(ctx context.Context, userID, otherUserID uint, limit int64) ([]models.Message, error) {
	filter := bson.M{
		"sender_id":   bson.M{"$in": []uint{userID, otherUserID}},
		"receiver_id": bson.M{"$in": []uint{userID, otherUserID}},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var messages []models.Message
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// MarkConversationSeen marks all messages from otherUserID to userID as seen
func (r *MongoMessageRepository) MarkConversationSeen(ctx context.Context, userID, otherUserID uint) error {
	filter := bson.M{"sender_id": otherUserID, "receiver_id": userID, "seen": false}
	_, err := r.collection.UpdateMany(ctx, filter, bson.M{"$set": bson.M{"seen": true}})
	return err
}
