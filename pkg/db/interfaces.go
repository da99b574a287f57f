package db

import "context"

// RunStore defines the interface for allocation run database operations
type RunStore interface {
	// InsertRun stores a run and its placements atomically
	InsertRun(ctx context.Context, run *AllocationRun, placements []Placement) error

	// GetRuns returns up to limit runs, most recent first
	GetRuns(ctx context.Context, limit int) ([]AllocationRun, error)

	GetPlacements(ctx context.Context, runID string) ([]Placement, error)
}

// Database defines the interface for all database operations.
// postgres.DB implements this interface.
type Database interface {
	RunStore
	Close()
}
