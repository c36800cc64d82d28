package repositories

import (
	"context"
	"fmt"

	"github.com/Blunt0FF/Krealgram-sub001/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

// RelationRepository is the ledger of like and follow edges. It is the source
// of truth for whether subject -> object holds.
type RelationRepository interface {
	Find(ctx context.Context, kind models.RelationKind, subjectID, objectID string) (*models.Relation, error)
	Insert(ctx context.Context, rel *models.Relation) error
	Delete(ctx context.Context, kind models.RelationKind, subjectID, objectID string) (bool, error)
	DeleteByObject(ctx context.Context, kind models.RelationKind, objectID string) (int64, error)
	Count(ctx context.Context, kind models.RelationKind, objectID string) (int64, error)
}

// MongoRelationRepository keeps one collection per relation kind.
type MongoRelationRepository struct {
	db *mongo.Database
}

// NewMongoRelationRepository creates a new MongoRelationRepository
func NewMongoRelationRepository(db *mongo.Database) *MongoRelationRepository {
	return &MongoRelationRepository{db: db}
}

func (r *MongoRelationRepository) collection(kind models.RelationKind) *mongo.Collection {
	return r.db.Collection(relationCollection(kind))
}

// Find returns the edge subject -> object, or a not-found error.
func (r *MongoRelationRepository) Find(ctx context.Context, kind models.RelationKind, subjectID, objectID string) (*models.Relation, error) {
	var rel models.Relation
	err := r.collection(kind).FindOne(ctx, bson.M{"subject_id": subjectID, "object_id": objectID}).Decode(&rel)
	if err != nil {
		return nil, notFound(err, string(kind), subjectID+"->"+objectID)
	}
	return &rel, nil
}

// Insert stores a new edge. A concurrent insert of the same edge yields ErrDuplicate.
func (r *MongoRelationRepository) Insert(ctx context.Context, rel *models.Relation) error {
	if _, err := r.collection(rel.Kind).InsertOne(ctx, rel); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("insert %s relation: %w", rel.Kind, ErrDuplicate)
		}
		return err
	}
	return nil
}

// Delete removes the edge and reports whether it existed.
func (r *MongoRelationRepository) Delete(ctx context.Context, kind models.RelationKind, subjectID, objectID string) (bool, error) {
	res, err := r.collection(kind).DeleteOne(ctx, bson.M{"subject_id": subjectID, "object_id": objectID})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

// DeleteByObject removes every edge pointing at objectID.
func (r *MongoRelationRepository) DeleteByObject(ctx context.Context, kind models.RelationKind, objectID string) (int64, error) {
	res, err := r.collection(kind).DeleteMany(ctx, bson.M{"object_id": objectID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// Count returns the number of edges pointing at objectID.
func (r *MongoRelationRepository) Count(ctx context.Context, kind models.RelationKind, objectID string) (int64, error) {
	return r.collection(kind).CountDocuments(ctx, bson.M{"object_id": objectID})
}

// PostgresRelationRepository keeps every kind in one table keyed by (kind, subject, object).
type PostgresRelationRepository struct {
	db *gorm.DB
}

// NewPostgresRelationRepository creates a new PostgresRelationRepository
func NewPostgresRelationRepository(db *gorm.DB) *PostgresRelationRepository {
	return &PostgresRelationRepository{db: db}
}

func (r *PostgresRelationRepository) Find(ctx context.Context, kind models.RelationKind, subjectID, objectID string) (*models.Relation, error) {
	var rels []models.Relation
	err := gormConn(ctx, r.db).
		Where("kind = ? AND subject_id = ? AND object_id = ?", kind, subjectID, objectID).
		Limit(1).Find(&rels).Error
	if err != nil {
		return nil, err
	}
	if len(rels) == 0 {
		return nil, models.NewNotFoundError(string(kind), subjectID+"->"+objectID)
	}
	return &rels[0], nil
}

func (r *PostgresRelationRepository) Insert(ctx context.Context, rel *models.Relation) error {
	if err := gormConn(ctx, r.db).Create(rel).Error; err != nil {
		return duplicate(err, fmt.Sprintf("insert %s relation", rel.Kind))
	}
	return nil
}

func (r *PostgresRelationRepository) Delete(ctx context.Context, kind models.RelationKind, subjectID, objectID string) (bool, error) {
	res := gormConn(ctx, r.db).
		Where("kind = ? AND subject_id = ? AND object_id = ?", kind, subjectID, objectID).
		Delete(&models.Relation{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *PostgresRelationRepository) DeleteByObject(ctx context.Context, kind models.RelationKind, objectID string) (int64, error) {
	res := gormConn(ctx, r.db).Where("kind = ? AND object_id = ?", kind, objectID).Delete(&models.Relation{})
	return res.RowsAffected, res.Error
}

func (r *PostgresRelationRepository) Count(ctx context.Context, kind models.RelationKind, objectID string) (int64, error) {
	var count int64
	err := gormConn(ctx, r.db).Model(&models.Relation{}).
		Where("kind = ? AND object_id = ?", kind, objectID).Count(&count).Error
	return count, err
}
