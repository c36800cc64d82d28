package repositories

import (
	"context"
	"errors"

	"github.com/Blunt0FF/Krealgram-sub001/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NotificationRepository stores one inbox document per recipient. Every
// method keeps UnreadCount equal to the number of unread entries.
type NotificationRepository interface {
	// Get returns the recipient's inbox, or an empty inbox if none exists yet.
	Get(ctx context.Context, recipientID string) (*models.NotificationInbox, error)
	// Add prepends n. For deduplicated kinds it is a no-op, reported as
	// false, when an entry with the same (sender, kind, post) exists.
	Add(ctx context.Context, recipientID string, n models.Notification) (bool, error)
	// Remove drops every entry matching m and reports whether any was removed.
	Remove(ctx context.Context, recipientID string, m models.NotificationMatcher) (bool, error)
	// MarkRead flips one unread entry to read. It reports false when the
	// entry is missing or already read.
	MarkRead(ctx context.Context, recipientID, notificationID string) (bool, error)
	MarkAllRead(ctx context.Context, recipientID string) error
	// PullByPost removes entries referencing postID from every inbox.
	PullByPost(ctx context.Context, postID string) (int64, error)
}

var errZeroMatcher = errors.New("notification matcher selects every entry")

type MongoNotificationRepository struct {
	collection *mongo.Collection
}

func NewMongoNotificationRepository(db *mongo.Database) *MongoNotificationRepository {
	return &MongoNotificationRepository{collection: db.Collection(collNotifications)}
}

func (r *MongoNotificationRepository) Get(ctx context.Context, recipientID string) (*models.NotificationInbox, error) {
	var inbox models.NotificationInbox
	err := r.collection.FindOne(ctx, bson.M{"recipient_id": recipientID}).Decode(&inbox)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return emptyInbox(recipientID), nil
	}
	if err != nil {
		return nil, err
	}
	if inbox.Notifications == nil {
		inbox.Notifications = []models.Notification{}
	}
	return &inbox, nil
}

func (r *MongoNotificationRepository) Add(ctx context.Context, recipientID string, n models.Notification) (bool, error) {
	// Create the inbox first so the conditional push below never needs an upsert.
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"recipient_id": recipientID},
		bson.M{"$setOnInsert": bson.M{"notifications": bson.A{}, "unread_count": 0}},
		options.Update().SetUpsert(true))
	if err != nil {
		return false, err
	}

	filter := bson.M{"recipient_id": recipientID}
	if n.Kind.Deduplicated() {
		filter["notifications"] = bson.M{"$not": bson.M{"$elemMatch": elemFilter(models.DedupMatcher(n))}}
	}
	unread := 0
	if !n.Read {
		unread = 1
	}
	update := bson.M{
		"$push": bson.M{"notifications": bson.M{"$each": bson.A{n}, "$position": 0}},
		"$inc":  bson.M{"unread_count": unread},
	}
	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (r *MongoNotificationRepository) Remove(ctx context.Context, recipientID string, m models.NotificationMatcher) (bool, error) {
	if m.IsZero() {
		return false, errZeroMatcher
	}
	filter := bson.M{
		"recipient_id":  recipientID,
		"notifications": bson.M{"$elemMatch": elemFilter(m)},
	}
	res, err := r.collection.UpdateOne(ctx, filter, removeEntries(m))
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (r *MongoNotificationRepository) MarkRead(ctx context.Context, recipientID, notificationID string) (bool, error) {
	filter := bson.M{
		"recipient_id":  recipientID,
		"notifications": bson.M{"$elemMatch": bson.M{"id": notificationID, "read": false}},
	}
	update := bson.M{
		"$set": bson.M{"notifications.$.read": true},
		"$inc": bson.M{"unread_count": -1},
	}
	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (r *MongoNotificationRepository) MarkAllRead(ctx context.Context, recipientID string) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"recipient_id": recipientID},
		bson.M{"$set": bson.M{"notifications.$[].read": true, "unread_count": 0}})
	return err
}

func (r *MongoNotificationRepository) PullByPost(ctx context.Context, postID string) (int64, error) {
	m := models.NotificationMatcher{PostID: postID}
	res, err := r.collection.UpdateMany(ctx, bson.M{"notifications.post_id": postID}, removeEntries(m))
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// elemFilter is the $elemMatch query for m.
func elemFilter(m models.NotificationMatcher) bson.M {
	f := bson.M{}
	for k, v := range matcherFields(m) {
		f[k] = v
	}
	return f
}

// entryCond is the aggregation expression for m over $$this.
func entryCond(m models.NotificationMatcher) bson.M {
	conds := bson.A{}
	for k, v := range matcherFields(m) {
		conds = append(conds, bson.M{"$eq": bson.A{"$$this." + k, v}})
	}
	return bson.M{"$and": conds}
}

func matcherFields(m models.NotificationMatcher) map[string]string {
	fields := map[string]string{}
	if m.ID != "" {
		fields["id"] = m.ID
	}
	if m.SenderID != "" {
		fields["sender_id"] = m.SenderID
	}
	if m.Kind != "" {
		fields["kind"] = string(m.Kind)
	}
	if m.PostID != "" {
		fields["post_id"] = m.PostID
	}
	if m.CommentID != "" {
		fields["comment_id"] = m.CommentID
	}
	return fields
}

// removeEntries is a pipeline update dropping entries that match m. The
// unread counter is decremented by the unread entries removed, never below 0.
// Both fields are computed from the pre-update document.
func removeEntries(m models.NotificationMatcher) mongo.Pipeline {
	cond := entryCond(m)
	removedUnread := bson.M{"$size": bson.M{"$filter": bson.M{
		"input": "$notifications",
		"cond":  bson.M{"$and": bson.A{cond, bson.M{"$eq": bson.A{"$$this.read", false}}}},
	}}}
	return mongo.Pipeline{{{Key: "$set", Value: bson.D{
		{Key: "unread_count", Value: bson.M{"$max": bson.A{0, bson.M{"$subtract": bson.A{"$unread_count", removedUnread}}}}},
		{Key: "notifications", Value: bson.M{"$filter": bson.M{
			"input": "$notifications",
			"cond":  bson.M{"$not": bson.A{cond}},
		}}},
	}}}}
}

func emptyInbox(recipientID string) *models.NotificationInbox {
	return &models.NotificationInbox{RecipientID: recipientID, Notifications: []models.Notification{}}
}

// PostgresNotificationRepository stores each inbox as one row with a JSON
// column. Mutations lock the row and rewrite the list.
type PostgresNotificationRepository struct {
	db *gorm.DB
}

func NewPostgresNotificationRepository(db *gorm.DB) *PostgresNotificationRepository {
	return &PostgresNotificationRepository{db: db}
}

func (r *PostgresNotificationRepository) Get(ctx context.Context, recipientID string) (*models.NotificationInbox, error) {
	inbox, err := r.find(gormConn(ctx, r.db), recipientID)
	if err != nil || inbox != nil {
		return inbox, err
	}
	return emptyInbox(recipientID), nil
}

func (r *PostgresNotificationRepository) find(db *gorm.DB, recipientID string) (*models.NotificationInbox, error) {
	var inboxes []models.NotificationInbox
	if err := db.Where("recipient_id = ?", recipientID).Limit(1).Find(&inboxes).Error; err != nil {
		return nil, err
	}
	if len(inboxes) == 0 {
		return nil, nil
	}
	if inboxes[0].Notifications == nil {
		inboxes[0].Notifications = []models.Notification{}
	}
	return &inboxes[0], nil
}

// lock creates the inbox row if needed and locks it.
func (r *PostgresNotificationRepository) lock(tx *gorm.DB, recipientID string) (*models.NotificationInbox, error) {
	seed := models.NotificationInbox{
		ID:            models.NewID(),
		RecipientID:   recipientID,
		Notifications: []models.Notification{},
	}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "recipient_id"}},
		DoNothing: true,
	}).Create(&seed).Error
	if err != nil {
		return nil, err
	}
	inbox, err := r.find(forUpdate(tx), recipientID)
	if err != nil {
		return nil, err
	}
	if inbox == nil {
		return nil, models.NewNotFoundError("notification inbox", recipientID)
	}
	return inbox, nil
}

func (r *PostgresNotificationRepository) save(tx *gorm.DB, inbox *models.NotificationInbox) error {
	inbox.UnreadCount = inbox.CountUnread()
	return tx.Save(inbox).Error
}

func (r *PostgresNotificationRepository) Add(ctx context.Context, recipientID string, n models.Notification) (bool, error) {
	added := false
	err := gormConn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		inbox, err := r.lock(tx, recipientID)
		if err != nil {
			return err
		}
		if n.Kind.Deduplicated() && inbox.Find(models.DedupMatcher(n)) >= 0 {
			return nil
		}
		inbox.Notifications = append([]models.Notification{n}, inbox.Notifications...)
		added = true
		return r.save(tx, inbox)
	})
	return added, err
}

func (r *PostgresNotificationRepository) Remove(ctx context.Context, recipientID string, m models.NotificationMatcher) (bool, error) {
	if m.IsZero() {
		return false, errZeroMatcher
	}
	removed := false
	err := gormConn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		inbox, err := r.find(forUpdate(tx), recipientID)
		if err != nil || inbox == nil {
			return err
		}
		removed = dropMatching(inbox, m)
		if !removed {
			return nil
		}
		return r.save(tx, inbox)
	})
	return removed, err
}

func (r *PostgresNotificationRepository) MarkRead(ctx context.Context, recipientID, notificationID string) (bool, error) {
	changed := false
	err := gormConn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		inbox, err := r.find(forUpdate(tx), recipientID)
		if err != nil || inbox == nil {
			return err
		}
		i := inbox.Find(models.NotificationMatcher{ID: notificationID})
		if i < 0 || inbox.Notifications[i].Read {
			return nil
		}
		inbox.Notifications[i].Read = true
		changed = true
		return r.save(tx, inbox)
	})
	return changed, err
}

func (r *PostgresNotificationRepository) MarkAllRead(ctx context.Context, recipientID string) error {
	return gormConn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		inbox, err := r.find(forUpdate(tx), recipientID)
		if err != nil || inbox == nil {
			return err
		}
		for i := range inbox.Notifications {
			inbox.Notifications[i].Read = true
		}
		return r.save(tx, inbox)
	})
}

func (r *PostgresNotificationRepository) PullByPost(ctx context.Context, postID string) (int64, error) {
	var modified int64
	err := gormConn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		var inboxes []models.NotificationInbox
		err := forUpdate(tx).Where("notifications LIKE ?", `%"post_id":"`+postID+`"%`).Find(&inboxes).Error
		if err != nil {
			return err
		}
		for i := range inboxes {
			if !dropMatching(&inboxes[i], models.NotificationMatcher{PostID: postID}) {
				continue
			}
			if err := r.save(tx, &inboxes[i]); err != nil {
				return err
			}
			modified++
		}
		return nil
	})
	return modified, err
}

// dropMatching removes entries matching m in place and reports whether any were removed.
func dropMatching(inbox *models.NotificationInbox, m models.NotificationMatcher) bool {
	kept := make([]models.Notification, 0, len(inbox.Notifications))
	for _, n := range inbox.Notifications {
		if !m.Matches(n) {
			kept = append(kept, n)
		}
	}
	removed := len(kept) != len(inbox.Notifications)
	inbox.Notifications = kept
	return removed
}
