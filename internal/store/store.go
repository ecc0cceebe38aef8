// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"

	"github.com/ashureev/valentine/internal/domain"
)

// Recorder is the write side used by the session sink.
type Recorder interface {
	// CreateResponse inserts a new record and assigns its ID.
	CreateResponse(ctx context.Context, resp *domain.Response) error

	// UpdateResponse applies a partial update to an existing record.
	// Returns an errdefs.ErrNotFound class error if the record does not exist.
	UpdateResponse(ctx context.Context, id string, patch domain.Patch) error
}

// Repository defines the interface for persisting Valentine response records.
type Repository interface {
	Recorder

	// GetResponse retrieves a record by ID.
	GetResponse(ctx context.Context, id string) (*domain.Response, error)

	// CountResponses returns the number of records, optionally filtered by final response.
	CountResponses(ctx context.Context, final domain.FinalResponse) (int64, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
