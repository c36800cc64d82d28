package repositories

import (
	"context"

	"github.com/Blunt0FF/Krealgram-sub001/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/gorm"
)

// CommentRepository defines the interface for comment data operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id string) (*models.Comment, error)
	Exists(ctx context.Context, id string) (bool, error)
	ListByPost(ctx context.Context, postID string) ([]models.Comment, error)
	// DeleteOwned deletes the comment only if authorID wrote it. It returns a
	// not-found error when no comment matches both id and author.
	DeleteOwned(ctx context.Context, id, authorID string) (*models.Comment, error)
	DeleteByPost(ctx context.Context, postID string) (int64, error)
}

// MongoCommentRepository implements CommentRepository for MongoDB
type MongoCommentRepository struct {
	collection *mongo.Collection
}

// NewMongoCommentRepository creates a new MongoCommentRepository
func NewMongoCommentRepository(db *mongo.Database) *MongoCommentRepository {
	return &MongoCommentRepository{collection: db.Collection(collComments)}
}

// Create creates a new comment in MongoDB
func (r *MongoCommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	_, err := r.collection.InsertOne(ctx, comment)
	return err
}

func (r *MongoCommentRepository) GetByID(ctx context.Context, id string) (*models.Comment, error) {
	var comment models.Comment
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&comment); err != nil {
		return nil, notFound(err, "comment", id)
	}
	return &comment, nil
}

func (r *MongoCommentRepository) Exists(ctx context.Context, id string) (bool, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	return n > 0, err
}

// ListByPost retrieves comments for a specific post, oldest first
func (r *MongoCommentRepository) ListByPost(ctx context.Context, postID string) ([]models.Comment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"post_id": postID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	comments := []models.Comment{}
	if err := cursor.All(ctx, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

func (r *MongoCommentRepository) DeleteOwned(ctx context.Context, id, authorID string) (*models.Comment, error) {
	var comment models.Comment
	if err := r.collection.FindOneAndDelete(ctx, bson.M{"_id": id, "author_id": authorID}).Decode(&comment); err != nil {
		return nil, notFound(err, "comment", id)
	}
	return &comment, nil
}

func (r *MongoCommentRepository) DeleteByPost(ctx context.Context, postID string) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{"post_id": postID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// PostgresCommentRepository implements CommentRepository for PostgreSQL
type PostgresCommentRepository struct {
	db *gorm.DB
}

// NewPostgresCommentRepository creates a new PostgresCommentRepository
func NewPostgresCommentRepository(db *gorm.DB) *PostgresCommentRepository {
	return &PostgresCommentRepository{db: db}
}

// Create creates a new comment in PostgreSQL
func (r *PostgresCommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	return gormConn(ctx, r.db).Create(comment).Error
}

func (r *PostgresCommentRepository) GetByID(ctx context.Context, id string) (*models.Comment, error) {
	var comment models.Comment
	if err := firstOrNotFound(gormConn(ctx, r.db), &comment, "comment", id); err != nil {
		return nil, err
	}
	return &comment, nil
}

func (r *PostgresCommentRepository) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := gormConn(ctx, r.db).Model(&models.Comment{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// ListByPost retrieves comments for a specific post, oldest first
func (r *PostgresCommentRepository) ListByPost(ctx context.Context, postID string) ([]models.Comment, error) {
	comments := []models.Comment{}
	err := gormConn(ctx, r.db).Where("post_id = ?", postID).Order("created_at ASC").Find(&comments).Error
	return comments, err
}

func (r *PostgresCommentRepository) DeleteOwned(ctx context.Context, id, authorID string) (*models.Comment, error) {
	var comment models.Comment
	err := gormConn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		var found []models.Comment
		if err := forUpdate(tx).Where("id = ? AND author_id = ?", id, authorID).Limit(1).Find(&found).Error; err != nil {
			return err
		}
		if len(found) == 0 {
			return models.NewNotFoundError("comment", id)
		}
		comment = found[0]
		res := tx.Where("id = ? AND author_id = ?", id, authorID).Delete(&models.Comment{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("comment", id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

func (r *PostgresCommentRepository) DeleteByPost(ctx context.Context, postID string) (int64, error) {
	res := gormConn(ctx, r.db).Where("post_id = ?", postID).Delete(&models.Comment{})
	return res.RowsAffected, res.Error
}
