package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Blunt0FF/Krealgram-sub001/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

const (
	collUsers         = "users"
	collPosts         = "posts"
	collComments      = "comments"
	collConversations = "conversations"
	collMessages      = "messages"
	collNotifications = "notifications"
)

// relationCollection maps a relation kind to its ledger collection.
func relationCollection(kind models.RelationKind) string {
	switch kind {
	case models.RelationLike:
		return "likes"
	case models.RelationFollow:
		return "follows"
	}
	return "relations"
}

// MongoTxManager runs transactions on a replica set through client sessions.
// It commits and aborts explicitly so a failed transaction is never retried here.
type MongoTxManager struct {
	client *mongo.Client
}

func NewMongoTxManager(client *mongo.Client) *MongoTxManager {
	return &MongoTxManager{client: client}
}

func (m *MongoTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	sess, err := m.client.StartSession()
	if err != nil {
		return models.NewTransientError(err)
	}
	defer sess.EndSession(context.WithoutCancel(ctx))

	txOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	return mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
		if err := sess.StartTransaction(txOpts); err != nil {
			return models.NewTransientError(err)
		}
		if err := fn(sc); err != nil {
			_ = sess.AbortTransaction(context.WithoutCancel(sc))
			if isTransientMongoError(err) {
				return models.NewTransientError(err)
			}
			return err
		}
		if err := sess.CommitTransaction(sc); err != nil {
			_ = sess.AbortTransaction(context.WithoutCancel(sc))
			return models.NewTransientError(err)
		}
		return nil
	})
}

func isTransientMongoError(err error) bool {
	var labeled mongo.LabeledError
	if errors.As(err, &labeled) && labeled.HasErrorLabel("TransientTransactionError") {
		return true
	}
	return mongo.IsNetworkError(err) || mongo.IsTimeout(err)
}

// notFound converts mongo.ErrNoDocuments into the domain not-found error.
func notFound(err error, resource, id string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.NewNotFoundError(resource, id)
	}
	return err
}

// NewMongoStore wires every repository to db.
func NewMongoStore(client *mongo.Client, db *mongo.Database) *Store {
	return &Store{
		Tx:            NewMongoTxManager(client),
		Users:         NewMongoUserRepository(db),
		Posts:         NewMongoPostRepository(db),
		Comments:      NewMongoCommentRepository(db),
		Conversations: NewMongoConversationRepository(db),
		Messages:      NewMongoMessageRepository(db),
		Relations:     NewMongoRelationRepository(db),
		Notifications: NewMongoNotificationRepository(db),
		close:         client.Disconnect,
	}
}

// EnsureIndexes creates the unique constraints the engine relies on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	edge := func(name string) mongo.IndexModel {
		return mongo.IndexModel{
			Keys:    bson.D{{Key: "subject_id", Value: 1}, {Key: "object_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(name),
		}
	}
	byObject := mongo.IndexModel{Keys: bson.D{{Key: "object_id", Value: 1}}}

	indexes := map[string][]mongo.IndexModel{
		relationCollection(models.RelationLike):   {edge("uniq_like_subject_object"), byObject},
		relationCollection(models.RelationFollow): {edge("uniq_follow_subject_object"), byObject},
		collNotifications: {
			{Keys: bson.D{{Key: "recipient_id", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uniq_recipient")},
			{Keys: bson.D{{Key: "notifications.post_id", Value: 1}}},
		},
		collUsers: {
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		collComments: {{Keys: bson.D{{Key: "post_id", Value: 1}}}},
		collMessages: {{Keys: bson.D{{Key: "conversation_id", Value: 1}}}},
	}

	for coll, idx := range indexes {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
	}
	return nil
}
