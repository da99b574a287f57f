package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/clinic-allocator/pkg/db"
)

var placementColumns = []string{
	"id", "run_id", "clinic_code", "date_key", "kind", "status", "slot_order", "position",
	"volunteer_name", "volunteer_email", "rank", "year", "elective", "fill", "preassigned",
}

// InsertRun inserts a run and copies its placements in one transaction
func (d *DB) InsertRun(ctx context.Context, run *db.AllocationRun, placements []db.Placement) error {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO allocation_run (id, created_at, env, seed, volunteer_count, assigned_count,
			waitlisted_count, unassigned_count, warning_count, success)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, run.ID, run.CreatedAt.UTC(), run.Env, run.Seed, run.VolunteerCount, run.AssignedCount,
		run.WaitlistedCount, run.UnassignedCount, run.WarningCount, run.Success)
	if err != nil {
		return fmt.Errorf("failed to insert allocation run: %w", err)
	}

	if len(placements) > 0 {
		copied, err := tx.CopyFrom(ctx, pgx.Identifier{"placement"}, placementColumns, pgx.CopyFromRows(placementRows(placements)))
		if err != nil {
			return fmt.Errorf("failed to copy placements: %w", err)
		}
		if int(copied) != len(placements) {
			return fmt.Errorf("copied %d of %d placements", copied, len(placements))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetRuns retrieves the most recent runs
func (d *DB) GetRuns(ctx context.Context, limit int) ([]db.AllocationRun, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, created_at, env, seed, volunteer_count, assigned_count,
			waitlisted_count, unassigned_count, warning_count, success
		FROM allocation_run
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query allocation runs: %w", err)
	}
	defer rows.Close()

	var runs []db.AllocationRun
	for rows.Next() {
		var r db.AllocationRun
		if err := rows.Scan(&r.ID, &r.CreatedAt, &r.Env, &r.Seed, &r.VolunteerCount, &r.AssignedCount,
			&r.WaitlistedCount, &r.UnassignedCount, &r.WarningCount, &r.Success); err != nil {
			return nil, fmt.Errorf("failed to scan allocation run: %w", err)
		}
		runs = append(runs, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating allocation runs: %w", err)
	}

	return runs, nil
}

// selectPlacementsSQL orders by slot_order rather than date_key, which sorts as text
const selectPlacementsSQL = `
	SELECT id, run_id, clinic_code, date_key, kind, status, slot_order, position,
		volunteer_name, volunteer_email, rank, year, elective, fill, preassigned
	FROM placement
	WHERE run_id = $1
	ORDER BY slot_order, kind, status, position
`

// GetPlacements retrieves a run's placements in the order the run produced its slots,
// then by kind, status and position
func (d *DB) GetPlacements(ctx context.Context, runID string) ([]db.Placement, error) {
	rows, err := d.pool.Query(ctx, selectPlacementsSQL, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query placements: %w", err)
	}
	defer rows.Close()

	var placements []db.Placement
	for rows.Next() {
		var p db.Placement
		if err := rows.Scan(&p.ID, &p.RunID, &p.ClinicCode, &p.DateKey, &p.Kind, &p.Status, &p.SlotOrder, &p.Position,
			&p.VolunteerName, &p.VolunteerEmail, &p.Rank, &p.Year, &p.Elective, &p.Fill, &p.Preassigned); err != nil {
			return nil, fmt.Errorf("failed to scan placement: %w", err)
		}
		placements = append(placements, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating placements: %w", err)
	}

	return placements, nil
}

// placementRows flattens placements into CopyFrom rows in placementColumns order
func placementRows(placements []db.Placement) [][]any {
	rows := make([][]any, len(placements))
	for i, p := range placements {
		rows[i] = []any{
			p.ID, p.RunID, p.ClinicCode, p.DateKey, p.Kind, p.Status, p.SlotOrder, p.Position,
			p.VolunteerName, p.VolunteerEmail, p.Rank, p.Year, p.Elective, p.Fill, p.Preassigned,
		}
	}
	return rows
}
