package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/benvon/questline/internal/models"
	"github.com/google/uuid"
)

// ContentRepository handles content unit database operations
type ContentRepository struct {
	db *DB
}

// NewContentRepository creates a new content repository
func NewContentRepository(db *DB) *ContentRepository {
	return &ContentRepository{db: db}
}

// Create persists a content unit before its analysis job is enqueued
func (r *ContentRepository) Create(ctx context.Context, content *models.ContentUnit) error {
	query := `
		INSERT INTO content_units (id, user_id, text, source_kind, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`

	if content.ID == uuid.Nil {
		content.ID = uuid.New()
	}
	if content.CreatedAt.IsZero() {
		content.CreatedAt = time.Now()
	}

	err := r.db.QueryRowContext(ctx, query,
		content.ID,
		content.UserID,
		content.Text,
		content.SourceKind,
		content.CreatedAt,
	).Scan(&content.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create content unit: %w", err)
	}

	return nil
}

// GetByID retrieves a content unit by ID
func (r *ContentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ContentUnit, error) {
	content := &models.ContentUnit{}

	query := `
		SELECT id, user_id, text, source_kind, created_at
		FROM content_units
		WHERE id = $1
	`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&content.ID,
		&content.UserID,
		&content.Text,
		&content.SourceKind,
		&content.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("content unit not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get content unit: %w", err)
	}

	return content, nil
}
