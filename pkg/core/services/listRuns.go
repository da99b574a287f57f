package services

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/jakechorley/clinic-allocator/pkg/db"
)

// ListRunsStore defines the database operations needed to list runs
type ListRunsStore interface {
	GetRuns(ctx context.Context, limit int) ([]db.AllocationRun, error)
	GetPlacements(ctx context.Context, runID string) ([]db.Placement, error)
}

// ClinicTally counts one clinic's placements in a run
type ClinicTally struct {
	ClinicCode string
	Assigned   int
	Waitlisted int
	Fill       int
}

// RunSummary is a stored run with its placements tallied per clinic
type RunSummary struct {
	Run     db.AllocationRun
	Clinics []ClinicTally
}

// ListRuns returns up to count of the most recent runs, newest first
func ListRuns(ctx context.Context, store ListRunsStore, logger *zap.Logger, count int) ([]RunSummary, error) {
	if count <= 0 {
		return nil, fmt.Errorf("count must be positive, got %d", count)
	}
	if store == nil {
		return nil, fmt.Errorf("no database configured")
	}

	logger.Debug("Fetching runs", zap.Int("limit", count))
	runs, err := store.GetRuns(ctx, count)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch runs: %w", err)
	}
	logger.Debug("Found runs", zap.Int("count", len(runs)))

	summaries := make([]RunSummary, 0, len(runs))
	for _, run := range runs {
		placements, err := store.GetPlacements(ctx, run.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch placements for run %s: %w", run.ID, err)
		}
		summaries = append(summaries, RunSummary{
			Run:     run,
			Clinics: tallyPlacements(placements),
		})
	}

	return summaries, nil
}

// tallyPlacements groups placements by clinic, ordered by clinic code
func tallyPlacements(placements []db.Placement) []ClinicTally {
	byClinic := make(map[string]*ClinicTally)
	for _, p := range placements {
		tally, ok := byClinic[p.ClinicCode]
		if !ok {
			tally = &ClinicTally{ClinicCode: p.ClinicCode}
			byClinic[p.ClinicCode] = tally
		}
		switch p.Status {
		case db.StatusAssigned:
			tally.Assigned++
			if p.Fill {
				tally.Fill++
			}
		case db.StatusWaitlisted:
			tally.Waitlisted++
		}
	}

	tallies := make([]ClinicTally, 0, len(byClinic))
	for _, tally := range byClinic {
		tallies = append(tallies, *tally)
	}
	sort.Slice(tallies, func(i, j int) bool {
		return tallies[i].ClinicCode < tallies[j].ClinicCode
	})
	return tallies
}
