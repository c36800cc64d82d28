package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Blunt0FF/Krealgram-sub001/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type txKey struct{}

// PostgresTxManager runs transactions through GORM. The open *gorm.DB
// transaction travels in the context so repositories can join it.
type PostgresTxManager struct {
	db *gorm.DB
}

func NewPostgresTxManager(db *gorm.DB) *PostgresTxManager {
	return &PostgresTxManager{db: db}
}

func (m *PostgresTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}

	var fnErr error
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fnErr = fn(context.WithValue(ctx, txKey{}, tx))
		return fnErr
	})
	if err != nil && fnErr == nil {
		// fn succeeded, so the failure came from begin or commit
		return models.NewTransientError(err)
	}
	return err
}

// gormConn returns the transaction carried by ctx, or db bound to ctx.
func gormConn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return db.WithContext(ctx)
}

// forUpdate locks selected rows until the transaction ends. SQLite locks the
// whole database on write and has no row locking clause.
func forUpdate(db *gorm.DB) *gorm.DB {
	if db.Dialector.Name() == "postgres" {
		return db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return db
}

// firstOrNotFound loads one row into dest, translating gorm.ErrRecordNotFound.
func firstOrNotFound(db *gorm.DB, dest any, resource, id string) error {
	if err := db.Where("id = ?", id).Take(dest).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError(resource, id)
		}
		return err
	}
	return nil
}

// duplicate translates a unique violation into ErrDuplicate.
func duplicate(err error, what string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%s: %w", what, ErrDuplicate)
	}
	return err
}

// AutoMigrate creates the tables and unique indexes for the relational backend.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Post{},
		&models.Comment{},
		&models.Conversation{},
		&models.Message{},
		&models.Relation{},
		&models.NotificationInbox{},
	)
}

// NewPostgresStore wires every repository to db. db should be opened with
// gorm.Config{TranslateError: true} so unique violations surface as ErrDuplicate.
func NewPostgresStore(db *gorm.DB) *Store {
	return &Store{
		Tx:            NewPostgresTxManager(db),
		Users:         NewPostgresUserRepository(db),
		Posts:         NewPostgresPostRepository(db),
		Comments:      NewPostgresCommentRepository(db),
		Conversations: NewPostgresConversationRepository(db),
		Messages:      NewPostgresMessageRepository(db),
		Relations:     NewPostgresRelationRepository(db),
		Notifications: NewPostgresNotificationRepository(db),
		close: func(context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	}
}
