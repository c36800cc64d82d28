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

// UserRepository defines the interface for user data operations
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	// AddToSet adds value to the named array unless present and returns the updated user.
	AddToSet(ctx context.Context, id string, field models.UserArray, value string) (*models.User, error)
	// Pull removes every occurrence of value from the named array and returns the updated user.
	Pull(ctx context.Context, id string, field models.UserArray, value string) (*models.User, error)
	// PullFromAll removes value from the named array of every user holding it.
	PullFromAll(ctx context.Context, field models.UserArray, value string) (int64, error)
	TouchLastSeen(ctx context.Context, id string, at time.Time) error
}

// MongoUserRepository implements UserRepository for MongoDB
type MongoUserRepository struct {
	collection *mongo.Collection
}

// NewMongoUserRepository creates a new MongoUserRepository
func NewMongoUserRepository(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{collection: db.Collection(collUsers)}
}

// Create inserts a new user in MongoDB
func (r *MongoUserRepository) Create(ctx context.Context, user *models.User) error {
	if _, err := r.collection.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("create user %q: %w", user.Username, ErrDuplicate)
		}
		return err
	}
	return nil
}

// GetByID retrieves a user by ID from MongoDB
func (r *MongoUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user); err != nil {
		return nil, notFound(err, "user", id)
	}
	return &user, nil
}

// GetByUsername retrieves a user by username from MongoDB
func (r *MongoUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.collection.FindOne(ctx, bson.M{"username": username}).Decode(&user); err != nil {
		return nil, notFound(err, "user", username)
	}
	return &user, nil
}

func (r *MongoUserRepository) AddToSet(ctx context.Context, id string, field models.UserArray, value string) (*models.User, error) {
	return r.update(ctx, id, bson.M{"$addToSet": bson.M{string(field): value}})
}

func (r *MongoUserRepository) Pull(ctx context.Context, id string, field models.UserArray, value string) (*models.User, error) {
	return r.update(ctx, id, bson.M{"$pull": bson.M{string(field): value}})
}

func (r *MongoUserRepository) update(ctx context.Context, id string, update bson.M) (*models.User, error) {
	var user models.User
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&user); err != nil {
		return nil, notFound(err, "user", id)
	}
	return &user, nil
}

func (r *MongoUserRepository) PullFromAll(ctx context.Context, field models.UserArray, value string) (int64, error) {
	res, err := r.collection.UpdateMany(ctx,
		bson.M{string(field): value},
		bson.M{"$pull": bson.M{string(field): value}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *MongoUserRepository) TouchLastSeen(ctx context.Context, id string, at time.Time) error {
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"last_seen_at": at.UTC()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return models.NewNotFoundError("user", id)
	}
	return nil
}

// PostgresUserRepository implements UserRepository for PostgreSQL.
// Array columns hold JSON, so set operations lock the row and rewrite it.
type PostgresUserRepository struct {
	db *gorm.DB
}

// NewPostgresUserRepository creates a new PostgresUserRepository
func NewPostgresUserRepository(db *gorm.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

// Create creates a new user in PostgreSQL
func (r *PostgresUserRepository) Create(ctx context.Context, user *models.User) error {
	if err := gormConn(ctx, r.db).Create(user).Error; err != nil {
		return duplicate(err, fmt.Sprintf("create user %q", user.Username))
	}
	return nil
}

// GetByID retrieves a user by ID from PostgreSQL
func (r *PostgresUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := firstOrNotFound(gormConn(ctx, r.db), &user, "user", id); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *PostgresUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var users []models.User
	if err := gormConn(ctx, r.db).Where("username = ?", username).Limit(1).Find(&users).Error; err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, models.NewNotFoundError("user", username)
	}
	return &users[0], nil
}

func (r *PostgresUserRepository) AddToSet(ctx context.Context, id string, field models.UserArray, value string) (*models.User, error) {
	return r.modify(ctx, id, field, func(list []string) ([]string, bool) { return addToSet(list, value) })
}

func (r *PostgresUserRepository) Pull(ctx context.Context, id string, field models.UserArray, value string) (*models.User, error) {
	return r.modify(ctx, id, field, func(list []string) ([]string, bool) { return pull(list, value) })
}

func (r *PostgresUserRepository) modify(ctx context.Context, id string, field models.UserArray, fn func([]string) ([]string, bool)) (*models.User, error) {
	var user models.User
	err := gormConn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := firstOrNotFound(forUpdate(tx), &user, "user", id); err != nil {
			return err
		}
		arr := user.Array(field)
		if arr == nil {
			return fmt.Errorf("unknown user array %q", field)
		}
		next, changed := fn(*arr)
		if !changed {
			return nil
		}
		*arr = next
		return tx.Save(&user).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *PostgresUserRepository) PullFromAll(ctx context.Context, field models.UserArray, value string) (int64, error) {
	var modified int64
	err := gormConn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		var users []models.User
		err := forUpdate(tx).Where(fmt.Sprintf("%s LIKE ?", field), jsonElementPattern(value)).Find(&users).Error
		if err != nil {
			return err
		}
		for i := range users {
			arr := users[i].Array(field)
			if arr == nil {
				return fmt.Errorf("unknown user array %q", field)
			}
			next, changed := pull(*arr, value)
			if !changed {
				continue
			}
			*arr = next
			if err := tx.Save(&users[i]).Error; err != nil {
				return err
			}
			modified++
		}
		return nil
	})
	return modified, err
}

func (r *PostgresUserRepository) TouchLastSeen(ctx context.Context, id string, at time.Time) error {
	res := gormConn(ctx, r.db).Model(&models.User{}).Where("id = ?", id).Update("last_seen_at", at.UTC())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("user", id)
	}
	return nil
}

// jsonElementPattern is a LIKE pattern matching a string element of a JSON array column.
func jsonElementPattern(value string) string {
	return `%"` + value + `"%`
}
