package repositories

import (
	"context"
	"fmt"

	"github.com/Blunt0FF/Krealgram-sub001/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/gorm"
)

type ConversationRepository interface {
	Create(ctx context.Context, conv *models.Conversation) error
	GetByID(ctx context.Context, id string) (*models.Conversation, error)
	AddToSet(ctx context.Context, id string, field models.ConversationArray, value string) (*models.Conversation, error)
	Pull(ctx context.Context, id string, field models.ConversationArray, value string) (*models.Conversation, error)
}

type MessageRepository interface {
	Create(ctx context.Context, msg *models.Message) error
	GetByID(ctx context.Context, id string) (*models.Message, error)
	Exists(ctx context.Context, id string) (bool, error)
	ListByConversation(ctx context.Context, conversationID string, skip, limit int64) ([]models.Message, error)
	// DeleteOwned deletes the message only if senderID sent it. It returns a
	// not-found error when no message matches both id and sender.
	DeleteOwned(ctx context.Context, id, senderID string) (*models.Message, error)
}

type MongoConversationRepository struct {
	collection *mongo.Collection
}

func NewMongoConversationRepository(db *mongo.Database) *MongoConversationRepository {
	return &MongoConversationRepository{collection: db.Collection(collConversations)}
}

func (r *MongoConversationRepository) Create(ctx context.Context, conv *models.Conversation) error {
	_, err := r.collection.InsertOne(ctx, conv)
	return err
}

func (r *MongoConversationRepository) GetByID(ctx context.Context, id string) (*models.Conversation, error) {
	var conv models.Conversation
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&conv); err != nil {
		return nil, notFound(err, "conversation", id)
	}
	return &conv, nil
}

func (r *MongoConversationRepository) AddToSet(ctx context.Context, id string, field models.ConversationArray, value string) (*models.Conversation, error) {
	return r.update(ctx, id, bson.M{"$addToSet": bson.M{string(field): value}})
}

func (r *MongoConversationRepository) Pull(ctx context.Context, id string, field models.ConversationArray, value string) (*models.Conversation, error) {
	return r.update(ctx, id, bson.M{"$pull": bson.M{string(field): value}})
}

func (r *MongoConversationRepository) update(ctx context.Context, id string, update bson.M) (*models.Conversation, error) {
	var conv models.Conversation
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&conv); err != nil {
		return nil, notFound(err, "conversation", id)
	}
	return &conv, nil
}

type MongoMessageRepository struct {
	collection *mongo.Collection
}

func NewMongoMessageRepository(db *mongo.Database) *MongoMessageRepository {
	return &MongoMessageRepository{collection: db.Collection(collMessages)}
}

func (r *MongoMessageRepository) Create(ctx context.Context, msg *models.Message) error {
	_, err := r.collection.InsertOne(ctx, msg)
	return err
}

func (r *MongoMessageRepository) GetByID(ctx context.Context, id string) (*models.Message, error) {
	var msg models.Message
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&msg); err != nil {
		return nil, notFound(err, "message", id)
	}
	return &msg, nil
}

func (r *MongoMessageRepository) Exists(ctx context.Context, id string) (bool, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	return n > 0, err
}

// ListByConversation returns messages newest first.
func (r *MongoMessageRepository) ListByConversation(ctx context.Context, conversationID string, skip, limit int64) ([]models.Message, error) {
	opts := options.Find().SetSkip(skip).SetLimit(limit).SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"conversation_id": conversationID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	msgs := []models.Message{}
	if err := cursor.All(ctx, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *MongoMessageRepository) DeleteOwned(ctx context.Context, id, senderID string) (*models.Message, error) {
	var msg models.Message
	if err := r.collection.FindOneAndDelete(ctx, bson.M{"_id": id, "sender_id": senderID}).Decode(&msg); err != nil {
		return nil, notFound(err, "message", id)
	}
	return &msg, nil
}

type PostgresConversationRepository struct {
	db *gorm.DB
}

func NewPostgresConversationRepository(db *gorm.DB) *PostgresConversationRepository {
	return &PostgresConversationRepository{db: db}
}

func (r *PostgresConversationRepository) Create(ctx context.Context, conv *models.Conversation) error {
	return gormConn(ctx, r.db).Create(conv).Error
}

func (r *PostgresConversationRepository) GetByID(ctx context.Context, id string) (*models.Conversation, error) {
	var conv models.Conversation
	if err := firstOrNotFound(gormConn(ctx, r.db), &conv, "conversation", id); err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *PostgresConversationRepository) AddToSet(ctx context.Context, id string, field models.ConversationArray, value string) (*models.Conversation, error) {
	return r.modify(ctx, id, field, func(list []string) ([]string, bool) { return addToSet(list, value) })
}

func (r *PostgresConversationRepository) Pull(ctx context.Context, id string, field models.ConversationArray, value string) (*models.Conversation, error) {
	return r.modify(ctx, id, field, func(list []string) ([]string, bool) { return pull(list, value) })
}

func (r *PostgresConversationRepository) modify(ctx context.Context, id string, field models.ConversationArray, fn func([]string) ([]string, bool)) (*models.Conversation, error) {
	var conv models.Conversation
	err := gormConn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := firstOrNotFound(forUpdate(tx), &conv, "conversation", id); err != nil {
			return err
		}
		arr := conv.Array(field)
		if arr == nil {
			return fmt.Errorf("unknown conversation array %q", field)
		}
		next, changed := fn(*arr)
		if !changed {
			return nil
		}
		*arr = next
		return tx.Save(&conv).Error
	})
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

type PostgresMessageRepository struct {
	db *gorm.DB
}

func NewPostgresMessageRepository(db *gorm.DB) *PostgresMessageRepository {
	return &PostgresMessageRepository{db: db}
}

func (r *PostgresMessageRepository) Create(ctx context.Context, msg *models.Message) error {
	return gormConn(ctx, r.db).Create(msg).Error
}

func (r *PostgresMessageRepository) GetByID(ctx context.Context, id string) (*models.Message, error) {
	var msg models.Message
	if err := firstOrNotFound(gormConn(ctx, r.db), &msg, "message", id); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *PostgresMessageRepository) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := gormConn(ctx, r.db).Model(&models.Message{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (r *PostgresMessageRepository) ListByConversation(ctx context.Context, conversationID string, skip, limit int64) ([]models.Message, error) {
	msgs := []models.Message{}
	err := gormConn(ctx, r.db).Where("conversation_id = ?", conversationID).
		Order("created_at DESC").
		Offset(int(skip)).Limit(int(limit)).
		Find(&msgs).Error
	return msgs, err
}

func (r *PostgresMessageRepository) DeleteOwned(ctx context.Context, id, senderID string) (*models.Message, error) {
	var msg models.Message
	err := gormConn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		var found []models.Message
		if err := forUpdate(tx).Where("id = ? AND sender_id = ?", id, senderID).Limit(1).Find(&found).Error; err != nil {
			return err
		}
		if len(found) == 0 {
			return models.NewNotFoundError("message", id)
		}
		msg = found[0]
		res := tx.Where("id = ? AND sender_id = ?", id, senderID).Delete(&models.Message{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("message", id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &msg, nil
}
