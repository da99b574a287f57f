package allocator

import (
	"fmt"
	"slices"
	"sort"

	"github.com/jakechorley/clinic-allocator/pkg/core/model"
)

// InitAllocation validates the configuration and builds the candidate pools.
//
// Returns a *ConfigurationError if a constraint table or preassignment is malformed,
// or a *DataIntegrityError if a volunteer violates the input contract.
func InitAllocation(config AllocationConfig) (*AllocationState, error) {
	if len(config.Constraints) != len(config.Clinics) {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("%d clinics but %d constraint tables", len(config.Clinics), len(config.Constraints))}
	}

	for i, constraints := range config.Constraints {
		if err := constraints.Validate(config.Clinics[i].Code); err != nil {
			return nil, err
		}
		if constraints.TieBreak == model.TieBreakRandom && config.Rand == nil {
			return nil, &ConfigurationError{Clinic: config.Clinics[i].Code, Reason: "random tie-break requires a random source"}
		}
	}

	candidates, err := InitCandidates(config.Volunteers, len(config.Clinics))
	if err != nil {
		return nil, err
	}

	state := &AllocationState{
		Clinics:     config.Clinics,
		Constraints: config.Constraints,
		Candidates:  candidates,
		slotIndex:   make([]map[string]*ClinicSlot, len(config.Clinics)),
	}
	for i := range state.slotIndex {
		state.slotIndex[i] = make(map[string]*ClinicSlot)
	}

	BuildPools(state, config.OfferedDates)

	if err := ApplyPreassignments(state, config.Preassignments, config.OfferedDates); err != nil {
		return nil, err
	}

	state.Dates = orderDates(state, config.DateOrder)
	state.Slots = orderSlots(state)

	return state, nil
}

// InitCandidates checks every volunteer against the input contract and wraps them
// as candidates with a stable integer id.
func InitCandidates(volunteers []model.Volunteer, clinicCount int) ([]*Candidate, error) {
	candidates := make([]*Candidate, len(volunteers))

	for id, volunteer := range volunteers {
		label := volunteer.Label()

		if !volunteer.Year.IsValid() {
			return nil, &DataIntegrityError{Volunteer: label, Reason: fmt.Sprintf("year %d is outside 0..%d", int(volunteer.Year), model.NumYears-1)}
		}

		if len(volunteer.Ranking) != clinicCount {
			return nil, &DataIntegrityError{Volunteer: label, Reason: fmt.Sprintf("ranking lists %d clinics but %d are configured", len(volunteer.Ranking), clinicCount)}
		}

		clinicRank := make([]int, clinicCount)
		for position, clinicIdx := range volunteer.Ranking {
			if clinicIdx < 0 || clinicIdx >= clinicCount {
				return nil, &DataIntegrityError{Volunteer: label, Reason: fmt.Sprintf("ranking references unknown clinic %d", clinicIdx)}
			}
			if clinicRank[clinicIdx] != 0 {
				return nil, &DataIntegrityError{Volunteer: label, Reason: fmt.Sprintf("ranking lists clinic %d more than once", clinicIdx)}
			}
			clinicRank[clinicIdx] = position + 1
		}

		for clinicIdx := range volunteer.Availability {
			if clinicIdx < 0 || clinicIdx >= clinicCount {
				return nil, &DataIntegrityError{Volunteer: label, Reason: fmt.Sprintf("availability references unknown clinic %d", clinicIdx)}
			}
		}

		candidates[id] = &Candidate{
			ID:            id,
			Volunteer:     volunteer,
			clinicRank:    clinicRank,
			ConsumedDates: make(map[string]bool),
		}
	}

	return candidates, nil
}

// BuildPools inserts every candidate into the pool of each clinic-date they are
// available for. Pools are raw: no capacity or cross-clinic exclusivity is applied.
//
// offeredDates restricts the dates a clinic offers. Clinics without an entry offer
// every date a candidate marks for them.
func BuildPools(state *AllocationState, offeredDates map[int][]string) {
	for clinicIdx, dates := range offeredDates {
		if clinicIdx < 0 || clinicIdx >= len(state.slotIndex) {
			continue
		}
		for _, date := range dates {
			state.ensureSlot(clinicIdx, date)
		}
	}

	for _, candidate := range state.Candidates {
		volunteer := candidate.Volunteer
		label := volunteer.Label()
		pooled := false
		availableSet := make(map[string]bool)

		clinicIndices := make([]int, 0, len(volunteer.Availability))
		for clinicIdx := range volunteer.Availability {
			clinicIndices = append(clinicIndices, clinicIdx)
		}
		sort.Ints(clinicIndices)

		for _, clinicIdx := range clinicIndices {
			constraints := state.Constraints[clinicIdx]
			if !constraints.Admits(volunteer) {
				continue
			}

			_, restricted := offeredDates[clinicIdx]
			seen := make(map[string]bool)

			for _, date := range volunteer.Availability[clinicIdx] {
				if date == "" || seen[date] {
					continue
				}
				seen[date] = true

				slot := state.Slot(clinicIdx, date)
				if slot == nil {
					if restricted {
						state.warn(label, fmt.Sprintf("%s does not run on %s", state.Clinics[clinicIdx].Code, date))
						continue
					}
					slot = state.ensureSlot(clinicIdx, date)
				}

				slot.addToPool(volunteer.Kind, candidate.ID)
				availableSet[date] = true
				pooled = true
			}
		}

		candidate.AvailableDates = make([]string, 0, len(availableSet))
		for date := range availableSet {
			candidate.AvailableDates = append(candidate.AvailableDates, date)
		}
		sort.Strings(candidate.AvailableDates)

		if !pooled {
			state.warn(label, "not in any clinic pool")
		}
	}
}

func (s *AllocationState) ensureSlot(clinicIdx int, date string) *ClinicSlot {
	if slot, ok := s.slotIndex[clinicIdx][date]; ok {
		return slot
	}
	slot := &ClinicSlot{
		ClinicIndex: clinicIdx,
		DateKey:     date,
		Quotas:      s.Constraints[clinicIdx].newQuotaTrackers(),
	}
	s.slotIndex[clinicIdx][date] = slot
	return slot
}

// orderDates returns every offered date: those listed in preferred first, then the rest lexically
func orderDates(state *AllocationState, preferred []string) []string {
	all := make(map[string]bool)
	for _, slots := range state.slotIndex {
		for date := range slots {
			all[date] = true
		}
	}

	ordered := make([]string, 0, len(all))
	for _, date := range preferred {
		if all[date] && !slices.Contains(ordered, date) {
			ordered = append(ordered, date)
		}
	}

	rest := make([]string, 0)
	for date := range all {
		if !slices.Contains(ordered, date) {
			rest = append(rest, date)
		}
	}
	sort.Strings(rest)

	return append(ordered, rest...)
}

func orderSlots(state *AllocationState) []*ClinicSlot {
	slots := make([]*ClinicSlot, 0)
	for clinicIdx := range state.Clinics {
		for _, date := range state.Dates {
			if slot := state.Slot(clinicIdx, date); slot != nil {
				slots = append(slots, slot)
			}
		}
	}
	return slots
}
