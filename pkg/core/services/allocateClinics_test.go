package services

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/clinic-allocator/internal/config"
	"github.com/jakechorley/clinic-allocator/pkg/core/allocator"
	"github.com/jakechorley/clinic-allocator/pkg/core/model"
	"github.com/jakechorley/clinic-allocator/pkg/db"
	"github.com/jakechorley/clinic-allocator/pkg/intake"
)

// mockAllocateClinicsStore implements AllocateClinicsStore for testing
type mockAllocateClinicsStore struct {
	run        *db.AllocationRun
	placements []db.Placement
	insertErr  error
}

func (m *mockAllocateClinicsStore) InsertRun(ctx context.Context, run *db.AllocationRun, placements []db.Placement) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.run = run
	m.placements = placements
	return nil
}

// mockResponseSource implements ResponseSource for testing
type mockResponseSource struct {
	rows      [][]string
	getErr    error
	requested []string
}

func (m *mockResponseSource) GetRows(spreadsheetID, sheetRange string) ([][]string, error) {
	m.requested = append(m.requested, spreadsheetID+"!"+sheetRange)
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.rows, nil
}

// mockPublisher implements AllocationPublisher for testing
type mockPublisher struct {
	spreadsheetID string
	title         string
	results       []allocator.SlotResult
	calls         int
}

func (m *mockPublisher) PublishAllocation(spreadsheetID, title string, results []allocator.SlotResult) error {
	m.calls++
	m.spreadsheetID = spreadsheetID
	m.title = title
	m.results = results
	return nil
}

var fixedNow = time.Date(2026, 3, 1, 14, 5, 0, 0, time.UTC)

func testClinic(code string) config.ClinicConfig {
	return config.ClinicConfig{
		Code:       code,
		Name:       "Clinic " + code,
		MaxDefault: 1,
		YearMax:    []int{1, 1, 1, 1, 1},
		YearGroups: []string{"u", "1", "2", "3", "4"},
		TieBreak:   "yearAscending",
	}
}

func testConfig() *config.Config {
	return &config.Config{
		Responses: config.ResponsesConfig{SheetID: "responses-sheet", Tab: "Form Responses 1"},
		Results:   config.ResultsConfig{SheetID: "results-sheet"},
		Seed:      7,
		Clinics:   []config.ClinicConfig{testClinic("MD"), testClinic("Derm")},
	}
}

// testResponses has Ana (MS2, ranks MD then Derm) and Ben (MS3, MD only), both free on 3/14
func testResponses() [][]string {
	return [][]string{
		{
			"Email Address",
			intake.HeaderName,
			intake.HeaderYear,
			intake.HeaderTranslator,
			intake.HeaderInterests,
			"Select Date Availability for MD",
			"Select Date Availability for Derm",
			intake.HeaderRanking,
		},
		{"ana@example.com", "Ana Diaz", "MS2", "No", "MD; Derm", "3/14", "03/14", "MD;Derm"},
		{"ben@example.com", "Ben Ortiz", "MS3", "No", "MD", "3/14", "", "MD;Derm"},
	}
}

func testOptions() AllocateOptions {
	return AllocateOptions{
		Env: "test",
		Now: func() time.Time { return fixedNow },
	}
}

func TestAllocateClinics_SavesAndPublishes(t *testing.T) {
	store := &mockAllocateClinicsStore{}
	source := &mockResponseSource{rows: testResponses()}
	publisher := &mockPublisher{}

	result, err := AllocateClinics(context.Background(), store, source, publisher, testConfig(), zap.NewNop(), testOptions())
	require.NoError(t, err)

	assert.Equal(t, []string{"responses-sheet!Form Responses 1"}, source.requested)
	assert.True(t, result.Success())
	assert.True(t, result.Saved)
	assert.Equal(t, uint64(7), result.Seed)
	assert.Equal(t, 2, result.VolunteerCount)

	require.Len(t, result.Results, 2)
	md, derm := result.Results[0], result.Results[1]
	assert.Equal(t, "MD", md.Clinic.Code)
	assert.Equal(t, "3/14", md.DateKey)
	require.Len(t, md.DefaultAssignments, 1)
	assert.Equal(t, "Ana Diaz", md.DefaultAssignments[0].Name)
	require.Len(t, md.DefaultWaitlist, 1)
	assert.Equal(t, "Ben Ortiz", md.DefaultWaitlist[0].Name)
	assert.Equal(t, "Derm", derm.Clinic.Code)
	assert.Empty(t, derm.DefaultAssignments)
	assert.Equal(t, 1, derm.UnfilledDefault)

	require.NotNil(t, store.run)
	assert.Equal(t, result.RunID, store.run.ID)
	assert.Equal(t, fixedNow, store.run.CreatedAt)
	assert.Equal(t, "test", store.run.Env)
	assert.Equal(t, "7", store.run.Seed)
	assert.Equal(t, 2, store.run.VolunteerCount)
	assert.Equal(t, 1, store.run.AssignedCount)
	assert.Equal(t, 1, store.run.WaitlistedCount)
	assert.Equal(t, 1, store.run.UnassignedCount)
	assert.Equal(t, 1, store.run.WarningCount)
	assert.True(t, store.run.Success)

	require.Len(t, store.placements, 2)
	assert.Equal(t, db.StatusAssigned, store.placements[0].Status)
	assert.Equal(t, "Ana Diaz", store.placements[0].VolunteerName)
	assert.Equal(t, "MD", store.placements[0].ClinicCode)
	assert.Equal(t, 2, store.placements[0].Year)
	assert.Equal(t, 1, store.placements[0].Rank)
	assert.Equal(t, db.StatusWaitlisted, store.placements[1].Status)
	assert.Equal(t, "Ben Ortiz", store.placements[1].VolunteerName)
	assert.Equal(t, result.RunID, store.placements[1].RunID)

	assert.Equal(t, 1, publisher.calls)
	assert.Equal(t, "results-sheet", publisher.spreadsheetID)
	assert.Equal(t, "Allocation 2026-03-01 14:05", publisher.title)
	assert.Equal(t, "Allocation 2026-03-01 14:05", result.PublishedTab)
	assert.Len(t, publisher.results, 2)
}

func TestAllocateClinics_DryRunSkipsSideEffects(t *testing.T) {
	store := &mockAllocateClinicsStore{}
	publisher := &mockPublisher{}
	opts := testOptions()
	opts.DryRun = true

	result, err := AllocateClinics(context.Background(), store, &mockResponseSource{rows: testResponses()}, publisher, testConfig(), zap.NewNop(), opts)
	require.NoError(t, err)

	assert.True(t, result.Success())
	assert.False(t, result.Saved)
	assert.Empty(t, result.PublishedTab)
	assert.Nil(t, store.run)
	assert.Zero(t, publisher.calls)
}

func TestAllocateClinics_NoPublishStillSaves(t *testing.T) {
	store := &mockAllocateClinicsStore{}
	publisher := &mockPublisher{}
	opts := testOptions()
	opts.NoPublish = true

	result, err := AllocateClinics(context.Background(), store, &mockResponseSource{rows: testResponses()}, publisher, testConfig(), zap.NewNop(), opts)
	require.NoError(t, err)

	assert.True(t, result.Saved)
	assert.NotNil(t, store.run)
	assert.Zero(t, publisher.calls)
}

func TestAllocateClinics_WithoutStoreOrPublisher(t *testing.T) {
	result, err := AllocateClinics(context.Background(), nil, &mockResponseSource{rows: testResponses()}, nil, testConfig(), zap.NewNop(), testOptions())
	require.NoError(t, err)

	assert.True(t, result.Success())
	assert.False(t, result.Saved)
	assert.Empty(t, result.PublishedTab)
}

func TestAllocateClinics_ReadsCSVOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "responses.csv")
	file, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, csv.NewWriter(file).WriteAll(testResponses()))
	require.NoError(t, file.Close())

	opts := testOptions()
	opts.CSVPath = path
	opts.DryRun = true

	result, err := AllocateClinics(context.Background(), nil, nil, nil, testConfig(), zap.NewNop(), opts)
	require.NoError(t, err)

	assert.Equal(t, 2, result.VolunteerCount)
	require.Len(t, result.Results, 2)
	assert.Equal(t, "Ana Diaz", result.Results[0].DefaultAssignments[0].Name)
}

func TestAllocateClinics_SheetWithoutClient(t *testing.T) {
	_, err := AllocateClinics(context.Background(), nil, nil, nil, testConfig(), zap.NewNop(), testOptions())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no sheets client available")
}

func TestAllocateClinics_SourceError(t *testing.T) {
	source := &mockResponseSource{getErr: errors.New("quota exceeded")}

	_, err := AllocateClinics(context.Background(), nil, source, nil, testConfig(), zap.NewNop(), testOptions())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to fetch responses")
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestAllocateClinics_PreassignmentByEmail(t *testing.T) {
	cfg := testConfig()
	cfg.Preassignments = []config.PreassignmentConfig{
		{Volunteer: "BEN@example.com", Clinic: "MD", Date: "03/14"},
	}
	store := &mockAllocateClinicsStore{}

	result, err := AllocateClinics(context.Background(), store, &mockResponseSource{rows: testResponses()}, nil, cfg, zap.NewNop(), testOptions())
	require.NoError(t, err)
	require.True(t, result.Success())

	md, derm := result.Results[0], result.Results[1]
	require.Len(t, md.DefaultAssignments, 1)
	assert.Equal(t, "Ben Ortiz", md.DefaultAssignments[0].Name)
	assert.True(t, md.DefaultAssignments[0].Preassigned)
	require.Len(t, derm.DefaultAssignments, 1)
	assert.Equal(t, "Ana Diaz", derm.DefaultAssignments[0].Name)
	assert.Equal(t, 2, derm.DefaultAssignments[0].Rank)

	assert.Equal(t, 0, store.run.UnassignedCount)
	assert.Equal(t, 2, store.run.AssignedCount)
}

func TestAllocateClinics_UnknownPreassignedVolunteer(t *testing.T) {
	cfg := testConfig()
	cfg.Preassignments = []config.PreassignmentConfig{
		{Volunteer: "Cara Lee", Clinic: "MD", Date: "3/14"},
	}

	_, err := AllocateClinics(context.Background(), nil, &mockResponseSource{rows: testResponses()}, nil, cfg, zap.NewNop(), testOptions())

	var cfgErr *allocator.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "MD", cfgErr.Clinic)
	assert.Contains(t, cfgErr.Reason, `"Cara Lee" did not respond`)
}

func TestAllocateClinics_BadRowIsDataIntegrityError(t *testing.T) {
	rows := testResponses()
	rows[2][2] = "Graduated"

	_, err := AllocateClinics(context.Background(), nil, &mockResponseSource{rows: rows}, nil, testConfig(), zap.NewNop(), testOptions())

	var dataErr *allocator.DataIntegrityError
	require.ErrorAs(t, err, &dataErr)
	assert.Equal(t, "Ben Ortiz", dataErr.Volunteer)
}

func TestAllocateClinics_StoreErrorIsReturned(t *testing.T) {
	store := &mockAllocateClinicsStore{insertErr: errors.New("connection refused")}

	_, err := AllocateClinics(context.Background(), store, &mockResponseSource{rows: testResponses()}, nil, testConfig(), zap.NewNop(), testOptions())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to save allocation run")
}

func TestAllocateClinics_WritesMetricsFile(t *testing.T) {
	cfg := testConfig()
	cfg.MetricsFile = filepath.Join(t.TempDir(), "allocation.prom")
	opts := testOptions()
	opts.DryRun = true

	_, err := AllocateClinics(context.Background(), nil, &mockResponseSource{rows: testResponses()}, nil, cfg, zap.NewNop(), opts)
	require.NoError(t, err)

	content, err := os.ReadFile(cfg.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), `clinic_assigned_volunteers{clinic="MD",kind="default"} 1`)
	assert.Contains(t, string(content), "allocation_unassigned_volunteers 1")
}

func TestAllocateClinics_SeedOverride(t *testing.T) {
	opts := testOptions()
	opts.DryRun = true
	opts.Seed = 42

	result, err := AllocateClinics(context.Background(), nil, &mockResponseSource{rows: testResponses()}, nil, testConfig(), zap.NewNop(), opts)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), result.Seed)

	cfg := testConfig()
	cfg.Seed = 0
	result, err = AllocateClinics(context.Background(), nil, &mockResponseSource{rows: testResponses()}, nil, cfg, zap.NewNop(), testOptions())
	require.NoError(t, err)
	assert.Equal(t, uint64(fixedNow.UnixNano()), result.Seed)
}

func TestAllocateClinics_PaddedConfiguredDatesMatchResponses(t *testing.T) {
	cfg := testConfig()
	cfg.Clinics[0].Dates = []string{"03/14", "3/21 (PM)"}
	cfg.Clinics[1].Dates = []string{"03/14"}
	source := &mockResponseSource{rows: testResponses()}

	result, err := AllocateClinics(context.Background(), nil, source, nil, cfg, zap.NewNop(), testOptions())
	require.NoError(t, err)
	require.True(t, result.Success())

	require.Len(t, result.Results, 3)
	md := result.Results[0]
	assert.Equal(t, "3/14", md.DateKey)
	require.Len(t, md.DefaultAssignments, 1)
	assert.Equal(t, "Ana Diaz", md.DefaultAssignments[0].Name)
	require.Len(t, md.DefaultWaitlist, 1)
	assert.Equal(t, "Ben Ortiz", md.DefaultWaitlist[0].Name)
	assert.Equal(t, "3/21(PM)", result.Results[1].DateKey)

	for _, warning := range result.Outcome.Warnings {
		assert.NotContains(t, warning.Message, "does not run on")
		assert.NotContains(t, warning.Message, "not in any clinic pool")
	}
}

func TestBuildPlacements_SlotOrderFollowsResults(t *testing.T) {
	md := model.ClinicDefinition{Code: "MD", Name: "Agape MD"}
	results := []allocator.SlotResult{
		{
			Clinic:             md,
			DateKey:            "3/14",
			DefaultAssignments: []allocator.Placement{{Name: "Ana Diaz"}, {Name: "Ben Ortiz"}},
		},
		{
			Clinic:          md,
			DateKey:         "10/1",
			DefaultWaitlist: []allocator.Placement{{Name: "Cara Lee"}},
		},
	}

	placements := buildPlacements("run-1", results)

	require.Len(t, placements, 3)
	assert.Equal(t, 0, placements[0].SlotOrder)
	assert.Equal(t, 0, placements[0].Position)
	assert.Equal(t, 0, placements[1].SlotOrder)
	assert.Equal(t, 1, placements[1].Position)
	assert.Equal(t, "10/1", placements[2].DateKey)
	assert.Equal(t, 1, placements[2].SlotOrder)
	assert.Equal(t, db.StatusWaitlisted, placements[2].Status)
}
