package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RelationKind identifies a binary relation kept in the relation ledger.
type RelationKind string

const (
	RelationLike   RelationKind = "like"   // user -> post
	RelationFollow RelationKind = "follow" // user -> user
)

// Valid reports whether k is a known relation kind.
func (k RelationKind) Valid() bool {
	return k == RelationLike || k == RelationFollow
}

// Relation is one row of the relation ledger. (Kind, SubjectID, ObjectID) is unique.
type Relation struct {
	ID        string       `json:"id" bson:"_id" gorm:"primaryKey"`
	Kind      RelationKind `json:"kind" bson:"kind" gorm:"size:16;uniqueIndex:idx_relation_edge"`
	SubjectID string       `json:"subject_id" bson:"subject_id" gorm:"uniqueIndex:idx_relation_edge"`
	ObjectID  string       `json:"object_id" bson:"object_id" gorm:"index;uniqueIndex:idx_relation_edge"`
	CreatedAt time.Time    `json:"created_at" bson:"created_at"`
}

// NewRelation builds a ledger row for subject -> object.
func NewRelation(kind RelationKind, subjectID, objectID string) *Relation {
	return &Relation{
		ID:        NewID(),
		Kind:      kind,
		SubjectID: subjectID,
		ObjectID:  objectID,
		CreatedAt: time.Now().UTC(),
	}
}

// NewID returns a new 24-hex identifier usable by every store backend.
func NewID() string {
	return primitive.NewObjectID().Hex()
}
