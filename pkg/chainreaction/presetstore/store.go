// Package presetstore persists authored chain presets.
//
// Stores hold serialized preset definitions keyed by preset key. They never
// hold run output.
package presetstore

import (
	"context"
	"errors"
	"time"
)

// Store persists serialized presets.
// Implementations must be safe for concurrent use.
type Store interface {
	// Save stores a preset under key, overwriting any existing entry.
	Save(ctx context.Context, key string, data []byte) error

	// Load retrieves a preset.
	// Returns ErrNotFound if the key doesn't exist.
	Load(ctx context.Context, key string) ([]byte, error)

	// List returns metadata for all stored presets, ordered by first save.
	// Returns an empty slice (not error) if the store is empty.
	List(ctx context.Context) ([]Info, error)

	// Delete removes a preset.
	// Returns nil if the key doesn't exist.
	Delete(ctx context.Context, key string) error

	// Close releases any resources (connections, files).
	Close() error
}

// Info provides metadata without loading the preset.
type Info struct {
	Key       string
	Sequence  int
	UpdatedAt time.Time
	Size      int64
}

// Sentinel errors for store operations.
var (
	// ErrNotFound indicates a preset doesn't exist.
	ErrNotFound = errors.New("preset not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("preset store closed")
)
