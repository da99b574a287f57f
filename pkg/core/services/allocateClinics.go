package services

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jakechorley/clinic-allocator/internal/config"
	"github.com/jakechorley/clinic-allocator/pkg/clients/sheetsclient"
	"github.com/jakechorley/clinic-allocator/pkg/core/allocator"
	"github.com/jakechorley/clinic-allocator/pkg/db"
	"github.com/jakechorley/clinic-allocator/pkg/intake"
	"github.com/jakechorley/clinic-allocator/pkg/metrics"
)

// ResponseSource reads the sign-up form responses sheet
type ResponseSource interface {
	GetRows(spreadsheetID, sheetRange string) ([][]string, error)
}

// AllocationPublisher writes a run's results to a spreadsheet tab
type AllocationPublisher interface {
	PublishAllocation(spreadsheetID, title string, results []allocator.SlotResult) error
}

// AllocateClinicsStore defines the database operations needed to save a run
type AllocateClinicsStore interface {
	InsertRun(ctx context.Context, run *db.AllocationRun, placements []db.Placement) error
}

// AllocateOptions are the per-invocation switches of AllocateClinics
type AllocateOptions struct {
	Env string

	// DryRun skips saving and publishing
	DryRun bool

	// ForceCommit saves and publishes even if the final state failed validation
	ForceCommit bool

	// NoPublish skips publishing to the results sheet
	NoPublish bool

	// CSVPath overrides the configured responses source
	CSVPath string

	// Seed overrides the configured seed when non-zero
	Seed uint64

	// Now defaults to time.Now
	Now func() time.Time
}

// AllocateClinicsResult contains the allocation results
type AllocateClinicsResult struct {
	RunID string
	Seed  uint64

	// VolunteerCount is the number of responses that were parsed
	VolunteerCount int

	// IntakeWarnings are non-fatal problems found while reading responses
	IntakeWarnings []string

	Outcome  *allocator.AllocationOutcome
	Results  []allocator.SlotResult
	Duration time.Duration

	Saved        bool
	PublishedTab string
}

// Success reports whether the final allocation passed validation
func (r *AllocateClinicsResult) Success() bool {
	return r.Outcome != nil && r.Outcome.Success
}

// AllocateClinics reads the responses, runs the allocator, and records the run.
// store and publisher may be nil, in which case the run is not saved or published.
func AllocateClinics(
	ctx context.Context,
	store AllocateClinicsStore,
	source ResponseSource,
	publisher AllocationPublisher,
	cfg *config.Config,
	logger *zap.Logger,
	opts AllocateOptions,
) (*AllocateClinicsResult, error) {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	logger.Debug("Starting allocateClinics",
		zap.Bool("dry_run", opts.DryRun),
		zap.Bool("force_commit", opts.ForceCommit),
		zap.String("csv_path", opts.CSVPath))

	rows, err := loadResponseRows(source, cfg, opts)
	if err != nil {
		return nil, err
	}
	logger.Debug("Loaded response rows", zap.Int("count", len(rows)))

	var since time.Time
	if cfg.Responses.Since != "" {
		since, err = time.Parse("2006-01-02", cfg.Responses.Since)
		if err != nil {
			return nil, fmt.Errorf("invalid responses.since: %w", err)
		}
	}

	clinics := cfg.ClinicDefinitions()
	volunteers, intakeWarnings, err := intake.ParseResponses(rows, clinics, since)
	if err != nil {
		return nil, fmt.Errorf("failed to parse responses: %w", err)
	}
	for _, warning := range intakeWarnings {
		logger.Warn("Response warning", zap.String("detail", warning))
	}
	logger.Info("Parsed responses", zap.Int("volunteers", len(volunteers)))

	constraints, err := cfg.Constraints()
	if err != nil {
		return nil, err
	}

	offeredDates, err := cfg.OfferedDates()
	if err != nil {
		return nil, err
	}

	preassignments, err := resolvePreassignments(cfg, volunteers)
	if err != nil {
		return nil, err
	}

	extraDates := make([][]string, 0, len(offeredDates))
	for _, dates := range offeredDates {
		extraDates = append(extraDates, dates)
	}
	dateOrder := intake.DateKeys(volunteers, extraDates...)

	seed := opts.Seed
	if seed == 0 {
		seed = cfg.Seed
	}
	if seed == 0 {
		seed = uint64(now().UnixNano())
	}
	logger.Debug("Using seed", zap.Uint64("seed", seed))

	started := now()
	outcome, err := allocator.Allocate(allocator.AllocationConfig{
		Clinics:        clinics,
		Constraints:    constraints,
		OfferedDates:   offeredDates,
		Volunteers:     volunteers,
		DateOrder:      dateOrder,
		Preassignments: preassignments,
		DisableFill:    cfg.DisableFill,
		Rand:           rand.New(rand.NewPCG(seed, seed)),
	})
	if err != nil {
		return nil, fmt.Errorf("allocation failed: %w", err)
	}
	duration := now().Sub(started)

	for _, warning := range outcome.Warnings {
		logger.Warn("Allocation warning",
			zap.String("volunteer", warning.Volunteer),
			zap.String("detail", warning.Message))
	}
	for _, verr := range outcome.ValidationErrors {
		logger.Error("Validation error", zap.String("detail", verr.String()))
	}

	result := &AllocateClinicsResult{
		RunID:          uuid.NewString(),
		Seed:           seed,
		VolunteerCount: len(volunteers),
		IntakeWarnings: intakeWarnings,
		Outcome:        outcome,
		Results:        outcome.Results(),
		Duration:       duration,
	}

	logger.Info("Allocation complete",
		zap.String("run_id", result.RunID),
		zap.Bool("success", outcome.Success),
		zap.Int("slots", len(result.Results)),
		zap.Int("unassigned", len(outcome.Unassigned)),
		zap.Duration("duration", duration))

	if cfg.MetricsFile != "" {
		m := metrics.New()
		m.Record(outcome, duration)
		if err := m.WriteTextfile(cfg.MetricsFile); err != nil {
			return nil, err
		}
		logger.Debug("Wrote metrics", zap.String("path", cfg.MetricsFile))
	}

	if opts.DryRun {
		logger.Info("Dry run: allocation not saved or published")
		return result, nil
	}

	if !outcome.Success && !opts.ForceCommit {
		logger.Warn("Allocation failed validation: not saved or published")
		return result, nil
	}

	createdAt := now()

	if store != nil {
		run := buildRun(result, opts.Env, createdAt)
		placements := buildPlacements(result.RunID, result.Results)
		if err := store.InsertRun(ctx, run, placements); err != nil {
			return nil, fmt.Errorf("failed to save allocation run: %w", err)
		}
		result.Saved = true
		logger.Info("Saved allocation run",
			zap.String("run_id", run.ID),
			zap.Int("placements", len(placements)))
	} else {
		logger.Debug("No database configured: run not saved")
	}

	if publisher != nil && !opts.NoPublish && cfg.Results.SheetID != "" {
		title := sheetsclient.AllocationTabTitle(createdAt)
		if err := publisher.PublishAllocation(cfg.Results.SheetID, title, result.Results); err != nil {
			return nil, fmt.Errorf("failed to publish allocation: %w", err)
		}
		result.PublishedTab = title
		logger.Info("Published allocation", zap.String("tab", title))
	}

	return result, nil
}

// loadResponseRows reads the responses from CSV when a path is set, otherwise from the sheet
func loadResponseRows(source ResponseSource, cfg *config.Config, opts AllocateOptions) ([][]string, error) {
	csvPath := opts.CSVPath
	if csvPath == "" {
		csvPath = cfg.Responses.CSVPath
	}
	if csvPath != "" {
		return intake.ReadCSV(csvPath)
	}

	if cfg.Responses.SheetID == "" {
		return nil, fmt.Errorf("no responses source configured")
	}
	if source == nil {
		return nil, fmt.Errorf("responses sheet %s configured but no sheets client available", cfg.Responses.SheetID)
	}

	rows, err := source.GetRows(cfg.Responses.SheetID, cfg.Responses.Tab)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch responses: %w", err)
	}
	return rows, nil
}

// buildRun summarises a result as a run record
func buildRun(result *AllocateClinicsResult, env string, createdAt time.Time) *db.AllocationRun {
	run := &db.AllocationRun{
		ID:              result.RunID,
		CreatedAt:       createdAt,
		Env:             env,
		Seed:            strconv.FormatUint(result.Seed, 10),
		VolunteerCount:  result.VolunteerCount,
		UnassignedCount: len(result.Outcome.Unassigned),
		WarningCount:    len(result.IntakeWarnings) + len(result.Outcome.Warnings),
		Success:         result.Outcome.Success,
	}

	for _, slot := range result.Results {
		run.AssignedCount += len(slot.DefaultAssignments) + len(slot.TranslatorAssignments)
		run.WaitlistedCount += len(slot.DefaultWaitlist) + len(slot.TranslatorWaitlist)
	}

	return run
}

// buildPlacements flattens slot results into placement records
func buildPlacements(runID string, results []allocator.SlotResult) []db.Placement {
	var placements []db.Placement

	add := func(slotOrder int, slot allocator.SlotResult, status string, list []allocator.Placement) {
		for i, p := range list {
			placements = append(placements, db.Placement{
				ID:             uuid.NewString(),
				RunID:          runID,
				ClinicCode:     slot.Clinic.Code,
				DateKey:        slot.DateKey,
				Kind:           p.Kind.String(),
				Status:         status,
				SlotOrder:      slotOrder,
				Position:       i,
				VolunteerName:  p.Name,
				VolunteerEmail: p.Email,
				Rank:           p.Rank,
				Year:           int(p.Year),
				Elective:       p.Elective,
				Fill:           p.Fill,
				Preassigned:    p.Preassigned,
			})
		}
	}

	for i, slot := range results {
		add(i, slot, db.StatusAssigned, slot.DefaultAssignments)
		add(i, slot, db.StatusAssigned, slot.TranslatorAssignments)
		add(i, slot, db.StatusWaitlisted, slot.DefaultWaitlist)
		add(i, slot, db.StatusWaitlisted, slot.TranslatorWaitlist)
	}

	return placements
}
