package db

import (
	"context"
	"database/sql"
)

// Store is the counter store handed to the selection engine and recorder.
// It holds the process-wide *sql.DB; it does not own its lifecycle.
type Store struct {
	db *sql.DB
}

// NewStore wraps an initialized database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureExists creates a zeroed record for contactID if absent.
func (s *Store) EnsureExists(ctx context.Context, contactID string) error {
	return EnsureCounter(ctx, s.db, contactID)
}

// GetCounters returns (proposed, engaged), (0, 0) for an unknown id.
func (s *Store) GetCounters(ctx context.Context, contactID string) (proposed, engaged int64, err error) {
	c, err := GetCounters(ctx, s.db, contactID)
	if err != nil {
		return 0, 0, err
	}
	return c.Proposed, c.Engaged, nil
}

// IncrementProposed atomically bumps the proposed counter.
func (s *Store) IncrementProposed(ctx context.Context, contactID string) error {
	return IncrementProposed(ctx, s.db, contactID)
}

// IncrementEngaged atomically bumps the engaged counter.
func (s *Store) IncrementEngaged(ctx context.Context, contactID string) error {
	return IncrementEngaged(ctx, s.db, contactID)
}
