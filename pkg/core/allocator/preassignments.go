package allocator

import (
	"fmt"

	"github.com/jakechorley/clinic-allocator/pkg/core/model"
)

// ApplyPreassignments commits fixed volunteer placements before allocation starts.
// Preassigned volunteers take capacity and, where one is open, a year quota place.
// They do not need to have marked the date as available.
func ApplyPreassignments(state *AllocationState, preassignments []Preassignment, offeredDates map[int][]string) error {
	for _, pre := range preassignments {
		if pre.VolunteerID < 0 || pre.VolunteerID >= len(state.Candidates) {
			return &ConfigurationError{Reason: fmt.Sprintf("preassignment references unknown volunteer %d", pre.VolunteerID)}
		}
		if pre.ClinicIndex < 0 || pre.ClinicIndex >= len(state.Clinics) {
			return &ConfigurationError{Reason: fmt.Sprintf("preassignment references unknown clinic %d", pre.ClinicIndex)}
		}

		candidate := state.Candidates[pre.VolunteerID]
		clinicCode := state.Clinics[pre.ClinicIndex].Code
		constraints := state.Constraints[pre.ClinicIndex]
		label := candidate.Volunteer.Label()

		slot := state.Slot(pre.ClinicIndex, pre.DateKey)
		if slot == nil {
			if _, restricted := offeredDates[pre.ClinicIndex]; restricted {
				return &ConfigurationError{Clinic: clinicCode, Reason: fmt.Sprintf("%s is preassigned on %s but the clinic does not run that day", label, pre.DateKey)}
			}
			slot = state.ensureSlot(pre.ClinicIndex, pre.DateKey)
		}

		if !constraints.Admits(candidate.Volunteer) {
			return &ConfigurationError{Clinic: clinicCode, Reason: fmt.Sprintf("%s is preassigned but the clinic requires elective volunteers", label)}
		}
		if candidate.ConsumedDates[pre.DateKey] {
			return &ConfigurationError{Clinic: clinicCode, Reason: fmt.Sprintf("%s is preassigned more than once on %s", label, pre.DateKey)}
		}

		kind := candidate.Volunteer.Kind
		if !slot.HasCapacity(constraints, kind) {
			return &ConfigurationError{Clinic: clinicCode, Reason: fmt.Sprintf("preassignments on %s exceed the %s max of %d", pre.DateKey, kind, constraints.MaxFor(kind))}
		}

		adm := admission{id: candidate.ID}
		if kind == model.KindDefault {
			adm.quota = slot.OpenQuota(candidate.Volunteer.Year)
		}
		slot.record(candidate, adm)
		slot.Preassigned = append(slot.Preassigned, candidate.ID)

		candidate.ConsumedDates[pre.DateKey] = true
		candidate.AssignmentCount++
	}

	return nil
}
