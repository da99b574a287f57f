package db

import "time"

// Placement statuses
const (
	StatusAssigned   = "assigned"
	StatusWaitlisted = "waitlisted"
)

// AllocationRun represents one persisted allocation run
type AllocationRun struct {
	ID        string
	CreatedAt time.Time
	Env       string

	// Seed is the random seed used for tie-breaks, kept as text to preserve the full uint64
	Seed string

	VolunteerCount  int
	AssignedCount   int
	WaitlistedCount int
	UnassignedCount int
	WarningCount    int

	// Success is false when the final state failed validation
	Success bool
}

// Placement is one volunteer listed against a clinic date in a run
type Placement struct {
	ID         string
	RunID      string
	ClinicCode string
	DateKey    string
	Kind       string
	Status     string

	// SlotOrder is the 0-based index of the clinic-date within the run's results,
	// which follow clinic order and then chronological date order
	SlotOrder int

	// Position is the 0-based order within the assignment or waitlist
	Position int

	VolunteerName  string
	VolunteerEmail string
	Rank           int
	Year           int
	Elective       bool
	Fill           bool
	Preassigned    bool
}
