// Package appdata stores the merchant-configured app-data documents, one
// JSON payload per store.
package appdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/storelink/correios-bridge/internal/shipping"
)

// ErrNotFound indicates no app-data document exists for the store.
var ErrNotFound = errors.New("no app data for store")

// Document is one merchant's app-data payload.
type Document struct {
	StoreID   int64     `gorm:"primaryKey;column:store_id"`
	Payload   []byte    `gorm:"column:payload"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

// TableName sets the app-data table name.
func (Document) TableName() string {
	return "app_data"
}

// Store reads and merges app-data documents.
type Store struct {
	db *gorm.DB
}

// NewStore binds a GORM DB to app-data persistence.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Settings loads and decodes the merchant settings for a store. Returns
// ErrNotFound when the store has no document.
func (s *Store) Settings(ctx context.Context, storeID int64) (*shipping.Settings, error) {
	doc, err := s.load(ctx, storeID)
	if err != nil {
		return nil, err
	}

	var settings shipping.Settings
	if len(doc.Payload) > 0 {
		if err := json.Unmarshal(doc.Payload, &settings); err != nil {
			return nil, fmt.Errorf("decoding app data for store %d: %w", storeID, err)
		}
	}
	return &settings, nil
}

// Merge overlays the patch keys onto the stored document, preserving every
// other field.
func (s *Store) Merge(ctx context.Context, storeID int64, patch map[string]any) error {
	base := map[string]any{}

	doc, err := s.load(ctx, storeID)
	switch {
	case err == nil:
		if len(doc.Payload) > 0 {
			if err := json.Unmarshal(doc.Payload, &base); err != nil {
				return fmt.Errorf("decoding app data for store %d: %w", storeID, err)
			}
		}
	case errors.Is(err, ErrNotFound):
		doc = nil
	default:
		return err
	}

	for key, value := range patch {
		base[key] = value
	}
	payload, err := json.Marshal(base)
	if err != nil {
		return fmt.Errorf("encoding app data for store %d: %w", storeID, err)
	}

	db := s.db.WithContext(ctx)
	if doc == nil {
		return db.Create(&Document{StoreID: storeID, Payload: payload}).Error
	}
	return db.Model(&Document{}).Where("store_id = ?", storeID).
		Updates(map[string]any{"payload": payload, "updated_at": time.Now()}).Error
}

func (s *Store) load(ctx context.Context, storeID int64) (*Document, error) {
	var doc Document
	err := s.db.WithContext(ctx).First(&doc, "store_id = ?", storeID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

var _ shipping.AppDataMerger = (*Store)(nil)
