package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DocumentModel is the GORM persistence model for the documents table. Every collection shares
// the table; attributes live in a jsonb column.
type DocumentModel struct {
	Collection  string         `gorm:"type:varchar(64);primaryKey"`
	ID          string         `gorm:"type:varchar(128);primaryKey"`
	Data        map[string]any `gorm:"type:jsonb;serializer:json;not null"`
	Permissions []string       `gorm:"type:jsonb;serializer:json"`
	CreatedAt   time.Time      `gorm:"type:timestamptz;not null;default:now()"`
	UpdatedAt   time.Time      `gorm:"type:timestamptz;not null;default:now()"`
}

// TableName specifies the table name for GORM.
func (DocumentModel) TableName() string {
	return "documents"
}

// GormDocuments is the PostgreSQL-backed Documents implementation. The gorm.DB must be opened
// with TranslateError so duplicate keys surface as gorm.ErrDuplicatedKey.
type GormDocuments struct {
	db *gorm.DB
}

// NewGormDocuments creates a GORM-based document store.
func NewGormDocuments(db *gorm.DB) *GormDocuments {
	return &GormDocuments{db: db}
}

// AutoMigrate creates or updates the documents table.
func (r *GormDocuments) AutoMigrate() error {
	return r.db.AutoMigrate(&DocumentModel{})
}

// Get retrieves a document by collection and id.
func (r *GormDocuments) Get(ctx context.Context, collection, id string) (*Document, error) {
	var model DocumentModel
	if err := r.db.WithContext(ctx).Where("collection = ? AND id = ?", collection, id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrDocumentNotFound)
		}
		return nil, err
	}
	return toDocument(&model), nil
}

// Update merges data into the stored attributes under a row lock.
func (r *GormDocuments) Update(ctx context.Context, collection, id string, data map[string]any) (*Document, error) {
	var model DocumentModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("collection = ? AND id = ?", collection, id).
			First(&model).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%s/%s: %w", collection, id, ErrDocumentNotFound)
			}
			return err
		}

		if model.Data == nil {
			model.Data = make(map[string]any, len(data))
		}
		for k, v := range data {
			model.Data[k] = v
		}
		model.UpdatedAt = time.Now().UTC()
		return tx.Save(&model).Error
	})
	if err != nil {
		return nil, err
	}
	return toDocument(&model), nil
}

// Create inserts a new document.
func (r *GormDocuments) Create(ctx context.Context, collection, id string, data map[string]any, permissions []string) (*Document, error) {
	now := time.Now().UTC()
	model := DocumentModel{
		Collection:  collection,
		ID:          id,
		Data:        cloneData(data),
		Permissions: permissions,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrDocumentExists)
		}
		return nil, err
	}
	return toDocument(&model), nil
}

// ListByField retrieves documents whose string attribute equals value, newest first.
func (r *GormDocuments) ListByField(ctx context.Context, collection, field, value string) ([]*Document, error) {
	var models []DocumentModel
	if err := r.db.WithContext(ctx).
		Where("collection = ? AND data ->> ? = ?", collection, field, value).
		Order("created_at DESC").
		Find(&models).Error; err != nil {
		return nil, err
	}

	docs := make([]*Document, len(models))
	for i := range models {
		docs[i] = toDocument(&models[i])
	}
	return docs, nil
}

func toDocument(m *DocumentModel) *Document {
	return &Document{
		ID:          m.ID,
		Collection:  m.Collection,
		Data:        cloneData(m.Data),
		Permissions: append([]string(nil), m.Permissions...),
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}
