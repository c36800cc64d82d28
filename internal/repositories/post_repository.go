package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/Blunt0FF/Krealgram-sub001/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/gorm"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id string) (*models.Post, error)
	Exists(ctx context.Context, id string) (bool, error)
	ListByOwner(ctx context.Context, ownerID string, skip, limit int64) ([]models.Post, error)
	AddToSet(ctx context.Context, id string, field models.PostArray, value string) (*models.Post, error)
	Pull(ctx context.Context, id string, field models.PostArray, value string) (*models.Post, error)
	// DeleteOwned deletes the post only if ownerID owns it. It returns a
	// not-found error when no post matches both id and owner.
	DeleteOwned(ctx context.Context, id, ownerID string) (*models.Post, error)
}

// MongoPostRepository implements PostRepository for MongoDB
type MongoPostRepository struct {
	collection *mongo.Collection
}

// NewMongoPostRepository creates a new MongoPostRepository
func NewMongoPostRepository(db *mongo.Database) *MongoPostRepository {
	return &MongoPostRepository{collection: db.Collection(collPosts)}
}

// Create creates a new post in MongoDB
func (r *MongoPostRepository) Create(ctx context.Context, post *models.Post) error {
	_, err := r.collection.InsertOne(ctx, post)
	return err
}

// GetByID retrieves a post by ID from MongoDB
func (r *MongoPostRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&post); err != nil {
		return nil, notFound(err, "post", id)
	}
	return &post, nil
}

func (r *MongoPostRepository) Exists(ctx context.Context, id string) (bool, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	return n > 0, err
}

// ListByOwner retrieves posts by a specific user, newest first
func (r *MongoPostRepository) ListByOwner(ctx context.Context, ownerID string, skip, limit int64) ([]models.Post, error) {
	findOptions := options.Find().SetSkip(skip).SetLimit(limit).SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"owner_id": ownerID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	posts := []models.Post{}
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *MongoPostRepository) AddToSet(ctx context.Context, id string, field models.PostArray, value string) (*models.Post, error) {
	return r.update(ctx, id, bson.M{"$addToSet": bson.M{string(field): value}})
}

func (r *MongoPostRepository) Pull(ctx context.Context, id string, field models.PostArray, value string) (*models.Post, error) {
	return r.update(ctx, id, bson.M{"$pull": bson.M{string(field): value}})
}

func (r *MongoPostRepository) update(ctx context.Context, id string, update bson.M) (*models.Post, error) {
	update["$set"] = bson.M{"updated_at": time.Now().UTC()}
	var post models.Post
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&post); err != nil {
		return nil, notFound(err, "post", id)
	}
	return &post, nil
}

func (r *MongoPostRepository) DeleteOwned(ctx context.Context, id, ownerID string) (*models.Post, error) {
	var post models.Post
	if err := r.collection.FindOneAndDelete(ctx, bson.M{"_id": id, "owner_id": ownerID}).Decode(&post); err != nil {
		return nil, notFound(err, "post", id)
	}
	return &post, nil
}

// PostgresPostRepository implements PostRepository for PostgreSQL
type PostgresPostRepository struct {
	db *gorm.DB
}

// NewPostgresPostRepository creates a new PostgresPostRepository
func NewPostgresPostRepository(db *gorm.DB) *PostgresPostRepository {
	return &PostgresPostRepository{db: db}
}

// Create creates a new post in PostgreSQL
func (r *PostgresPostRepository) Create(ctx context.Context, post *models.Post) error {
	return gormConn(ctx, r.db).Create(post).Error
}

// GetByID retrieves a post by ID from PostgreSQL
func (r *PostgresPostRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	if err := firstOrNotFound(gormConn(ctx, r.db), &post, "post", id); err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *PostgresPostRepository) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := gormConn(ctx, r.db).Model(&models.Post{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// ListByOwner retrieves posts by a specific user, newest first
func (r *PostgresPostRepository) ListByOwner(ctx context.Context, ownerID string, skip, limit int64) ([]models.Post, error) {
	posts := []models.Post{}
	err := gormConn(ctx, r.db).Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Offset(int(skip)).Limit(int(limit)).
		Find(&posts).Error
	return posts, err
}

func (r *PostgresPostRepository) AddToSet(ctx context.Context, id string, field models.PostArray, value string) (*models.Post, error) {
	return r.modify(ctx, id, field, func(list []string) ([]string, bool) { return addToSet(list, value) })
}

func (r *PostgresPostRepository) Pull(ctx context.Context, id string, field models.PostArray, value string) (*models.Post, error) {
	return r.modify(ctx, id, field, func(list []string) ([]string, bool) { return pull(list, value) })
}

func (r *PostgresPostRepository) modify(ctx context.Context, id string, field models.PostArray, fn func([]string) ([]string, bool)) (*models.Post, error) {
	var post models.Post
	err := gormConn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := firstOrNotFound(forUpdate(tx), &post, "post", id); err != nil {
			return err
		}
		arr := post.Array(field)
		if arr == nil {
			return fmt.Errorf("unknown post array %q", field)
		}
		next, changed := fn(*arr)
		if !changed {
			return nil
		}
		*arr = next
		post.UpdatedAt = time.Now().UTC()
		return tx.Save(&post).Error
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *PostgresPostRepository) DeleteOwned(ctx context.Context, id, ownerID string) (*models.Post, error) {
	var post models.Post
	err := gormConn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		var posts []models.Post
		if err := forUpdate(tx).Where("id = ? AND owner_id = ?", id, ownerID).Limit(1).Find(&posts).Error; err != nil {
			return err
		}
		if len(posts) == 0 {
			return models.NewNotFoundError("post", id)
		}
		post = posts[0]
		res := tx.Where("id = ? AND owner_id = ?", id, ownerID).Delete(&models.Post{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("post", id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}
