package allocator

import (
	"math/rand/v2"
	"slices"

	"github.com/jakechorley/clinic-allocator/pkg/core/model"
)

// Preassignment commits a volunteer to a clinic-date before allocation starts
type Preassignment struct {
	// VolunteerID is the index of the volunteer in AllocationConfig.Volunteers
	VolunteerID int
	ClinicIndex int
	DateKey     string
}

// AllocationConfig contains everything needed for one allocation run
type AllocationConfig struct {
	// Clinics in their stable order
	Clinics []model.ClinicDefinition

	// Constraints has one entry per clinic, in the same order as Clinics
	Constraints []ClinicConstraints

	// OfferedDates optionally restricts the date-keys each clinic offers.
	// A nil entry (or a nil map) means the clinic offers every date a volunteer marks.
	OfferedDates map[int][]string

	// Volunteers are referenced by their index in this slice
	Volunteers []model.Volunteer

	// DateOrder is the order dates are processed in. Dates not listed are processed
	// afterwards in lexical order.
	DateOrder []string

	Preassignments []Preassignment

	// DisableFill stops volunteers being admitted beyond their year quota
	// when a slot still has room after the quota rounds
	DisableFill bool

	// Rand resolves random tie-breaks. Required only if a clinic uses TieBreakRandom.
	Rand *rand.Rand
}

// Candidate is a volunteer taking part in an allocation run
type Candidate struct {
	// ID is the index of the volunteer in AllocationConfig.Volunteers
	ID int

	Volunteer model.Volunteer

	// clinicRank maps clinic index to 1-based preference rank
	clinicRank []int

	// AvailableDates is the union of date-keys the volunteer is pooled for at any clinic
	AvailableDates []string

	// ConsumedDates holds the date-keys this volunteer has been assigned on
	ConsumedDates map[string]bool

	// AssignmentCount is the number of slots this volunteer has been admitted to
	AssignmentCount int
}

// Rank returns the 1-based rank of the clinic in the volunteer's preferences
func (c *Candidate) Rank(clinicIndex int) (int, bool) {
	if clinicIndex < 0 || clinicIndex >= len(c.clinicRank) {
		return 0, false
	}
	rank := c.clinicRank[clinicIndex]
	return rank, rank > 0
}

// IsAvailable returns true if the volunteer is pooled for the date at any clinic
func (c *Candidate) IsAvailable(dateKey string) bool {
	return slices.Contains(c.AvailableDates, dateKey)
}

// QuotaTracker counts default volunteers admitted from a set of years sharing one quota
type QuotaTracker struct {
	Years []model.Year
	Count int
	Max   int
}

// Covers returns true if the year belongs to this quota group
func (q *QuotaTracker) Covers(year model.Year) bool {
	return slices.Contains(q.Years, year)
}

// HasRoom returns true if another volunteer can be admitted under this quota
func (q *QuotaTracker) HasRoom() bool {
	return q.Count < q.Max
}

// ClinicSlot is one clinic on one date
type ClinicSlot struct {
	ClinicIndex int
	DateKey     string

	// Raw candidate pools, in insertion order
	DefaultPool    []int
	TranslatorPool []int

	DefaultAssignments    []int
	TranslatorAssignments []int

	// Waitlists hold the candidates left in the ranked queue when allocation finished
	DefaultWaitlist    []int
	TranslatorWaitlist []int

	// Quotas are this slot's own copies of the clinic's year groups
	Quotas []*QuotaTracker

	// FillAdmissions are default volunteers admitted without an open quota group
	FillAdmissions []int

	// Preassigned are volunteers committed before allocation started
	Preassigned []int
}

// Pool returns the raw candidate pool for a kind
func (s *ClinicSlot) Pool(kind model.Kind) []int {
	if kind == model.KindSpanishTranslator {
		return s.TranslatorPool
	}
	return s.DefaultPool
}

// Assignments returns the admitted volunteers of a kind
func (s *ClinicSlot) Assignments(kind model.Kind) []int {
	if kind == model.KindSpanishTranslator {
		return s.TranslatorAssignments
	}
	return s.DefaultAssignments
}

// Waitlist returns the leftover queue of a kind
func (s *ClinicSlot) Waitlist(kind model.Kind) []int {
	if kind == model.KindSpanishTranslator {
		return s.TranslatorWaitlist
	}
	return s.DefaultWaitlist
}

func (s *ClinicSlot) addToPool(kind model.Kind, id int) {
	if kind == model.KindSpanishTranslator {
		s.TranslatorPool = append(s.TranslatorPool, id)
	} else {
		s.DefaultPool = append(s.DefaultPool, id)
	}
}

func (s *ClinicSlot) addAssignment(kind model.Kind, id int) {
	if kind == model.KindSpanishTranslator {
		s.TranslatorAssignments = append(s.TranslatorAssignments, id)
	} else {
		s.DefaultAssignments = append(s.DefaultAssignments, id)
	}
}

func (s *ClinicSlot) setWaitlist(kind model.Kind, ids []int) {
	if kind == model.KindSpanishTranslator {
		s.TranslatorWaitlist = ids
	} else {
		s.DefaultWaitlist = ids
	}
}

// AllocationState is the mutable state owned by a single allocation run
type AllocationState struct {
	Clinics     []model.ClinicDefinition
	Constraints []ClinicConstraints
	Candidates  []*Candidate

	// Slots are ordered by clinic index, then by date processing order
	Slots []*ClinicSlot

	// slotIndex maps clinic index -> date-key -> slot
	slotIndex []map[string]*ClinicSlot

	// Dates in processing order
	Dates []string

	Warnings []Warning
}

// Slot returns the slot for a clinic on a date, or nil if the clinic does not offer it
func (s *AllocationState) Slot(clinicIndex int, dateKey string) *ClinicSlot {
	if clinicIndex < 0 || clinicIndex >= len(s.slotIndex) {
		return nil
	}
	return s.slotIndex[clinicIndex][dateKey]
}

func (s *AllocationState) warn(volunteer, message string) {
	s.Warnings = append(s.Warnings, Warning{Volunteer: volunteer, Message: message})
}
