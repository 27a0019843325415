package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/smartdash/energy-backend-go/internal/database/models"
	"github.com/smartdash/energy-backend-go/internal/database/repositories"
)

// ErrDocumentNotFound is returned when a configuration document has never
// been saved.
var ErrDocumentNotFound = errors.New("config document not found")

// ConfigRepository implements repositories.ConfigRepository
type ConfigRepository struct {
	db *sqlx.DB
}

// NewConfigRepository creates a new ConfigRepository
func NewConfigRepository(db *sqlx.DB) repositories.ConfigRepository {
	return &ConfigRepository{db: db}
}

// Get retrieves a configuration document by key
func (r *ConfigRepository) Get(ctx context.Context, key string) (*models.ConfigDocument, error) {
	query := `
		SELECT key, value, updated_at
		FROM config_documents
		WHERE key = ?
	`

	doc := &models.ConfigDocument{}
	err := r.db.GetContext(ctx, doc, query, key)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get config document: %w", err)
	}

	return doc, nil
}

// Set creates or replaces a configuration document
func (r *ConfigRepository) Set(ctx context.Context, doc *models.ConfigDocument) error {
	query := `
		INSERT INTO config_documents (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, query, doc.Key, doc.Value, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set config document: %w", err)
	}

	return nil
}
