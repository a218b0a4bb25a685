package models

import (
	"time"

	"github.com/google/uuid"
)

// SourceKind identifies where a piece of user text came from
type SourceKind string

const (
	SourceKindChat    SourceKind = "chat"
	SourceKindJournal SourceKind = "journal"
)

// ContentUnit is a piece of free-form user text that triggers analysis.
// It is produced by the surrounding persistence layer and never mutated here.
type ContentUnit struct {
	ID         uuid.UUID  `json:"id"`
	UserID     uuid.UUID  `json:"user_id"`
	Text       string     `json:"text"`
	SourceKind SourceKind `json:"source_kind"`
	CreatedAt  time.Time  `json:"created_at"`
}
