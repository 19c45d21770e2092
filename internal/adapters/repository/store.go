// Package repository defines the result store interface and errors.
package repository

import (
	"context"
	"time"

	"github.com/okian/mcf/internal/domain/model"
)

// Summary is the listing form of a stored result.
type Summary struct {
	ID        string        `json:"id"`
	CreatedAt time.Time     `json:"created_at"`
	Subjects  int           `json:"subjects"`
	Times     int           `json:"times"`
	Methods   model.Methods `json:"methods"`
}

// Store provides read/write access to computed results.
type Store interface {
	// Put stores res under res.ID, replacing an existing entry with that id.
	Put(ctx context.Context, res model.Result) error

	// Get returns the result stored under id.
	// Returns ErrNotFound if the id is unknown.
	Get(ctx context.Context, id string) (model.Result, error)

	// List returns up to limit summaries, newest first.
	List(ctx context.Context, limit int) ([]Summary, error)

	// Count returns the number of stored results.
	Count(ctx context.Context) int

	// Close releases background resources. Later calls fail with ErrClosed.
	Close() error
}
