package allocator

import (
	"fmt"
	"slices"

	"github.com/jakechorley/clinic-allocator/pkg/core/model"
)

// SlotValidationError represents a validation error for a specific clinic slot
type SlotValidationError struct {
	ClinicCode  string
	DateKey     string
	Check       string
	Description string
}

func (e SlotValidationError) String() string {
	return fmt.Sprintf("%s %s [%s]: %s", e.ClinicCode, e.DateKey, e.Check, e.Description)
}

const (
	CheckCapacity     = "Capacity"
	CheckQuota        = "Quota"
	CheckDoubleBooked = "DoubleBooked"
	CheckWaitlist     = "Waitlist"
	CheckElective     = "Elective"
	CheckAssignments  = "AssignmentCount"
)

// ValidateState checks the final allocation state against the allocator's guarantees:
//   - assignments never exceed a clinic's global max
//   - year quotas hold, except for fill admissions and preassignments
//   - no volunteer is assigned twice on the same date
//   - every pooled volunteer is assigned, waitlisted, or claimed by another clinic that day
//   - clinics requiring electives only admit elective volunteers
func ValidateState(state *AllocationState) []SlotValidationError {
	var errors []SlotValidationError

	add := func(slot *ClinicSlot, check, description string) {
		errors = append(errors, SlotValidationError{
			ClinicCode:  state.Clinics[slot.ClinicIndex].Code,
			DateKey:     slot.DateKey,
			Check:       check,
			Description: description,
		})
	}

	// bookings counts assignments per volunteer per date
	bookings := make(map[int]map[string]int)

	for _, slot := range state.Slots {
		constraints := state.Constraints[slot.ClinicIndex]

		for _, kind := range volunteerKinds {
			assigned := slot.Assignments(kind)
			if len(assigned) > constraints.MaxFor(kind) {
				add(slot, CheckCapacity, fmt.Sprintf("%d %s volunteers assigned but max is %d", len(assigned), kind, constraints.MaxFor(kind)))
			}

			for _, id := range assigned {
				if bookings[id] == nil {
					bookings[id] = make(map[string]int)
				}
				bookings[id][slot.DateKey]++

				volunteer := state.Candidates[id].Volunteer
				if constraints.Elective == model.ElectiveRequire && !volunteer.Elective {
					add(slot, CheckElective, fmt.Sprintf("%s is not an elective volunteer", volunteer.Label()))
				}
			}

			waitlist := slot.Waitlist(kind)
			for _, id := range slot.Pool(kind) {
				isAssigned := slices.Contains(assigned, id)
				isWaitlisted := slices.Contains(waitlist, id)
				label := state.Candidates[id].Volunteer.Label()

				switch {
				case isAssigned && isWaitlisted:
					add(slot, CheckWaitlist, fmt.Sprintf("%s is both assigned and waitlisted", label))
				case !isAssigned && !isWaitlisted && !state.Candidates[id].ConsumedDates[slot.DateKey]:
					add(slot, CheckWaitlist, fmt.Sprintf("%s was pooled but is neither assigned nor waitlisted", label))
				}
			}
		}

		for _, quota := range slot.Quotas {
			count := 0
			for _, id := range slot.DefaultAssignments {
				if slices.Contains(slot.FillAdmissions, id) || slices.Contains(slot.Preassigned, id) {
					continue
				}
				if quota.Covers(state.Candidates[id].Volunteer.Year) {
					count++
				}
			}
			if count > quota.Max {
				add(slot, CheckQuota, fmt.Sprintf("%d volunteers from %v assigned but quota is %d", count, quota.Years, quota.Max))
			}
		}
	}

	for id, dates := range bookings {
		for _, slot := range state.Slots {
			if dates[slot.DateKey] > 1 && (slices.Contains(slot.DefaultAssignments, id) || slices.Contains(slot.TranslatorAssignments, id)) {
				add(slot, CheckDoubleBooked, fmt.Sprintf("%s is assigned %d times on %s", state.Candidates[id].Volunteer.Label(), dates[slot.DateKey], slot.DateKey))
			}
		}

		candidate := state.Candidates[id]
		total := 0
		for _, count := range dates {
			total += count
		}
		if total != candidate.AssignmentCount || len(dates) != len(candidate.ConsumedDates) {
			errors = append(errors, SlotValidationError{
				Check:       CheckAssignments,
				Description: fmt.Sprintf("%s has %d assignments over %d dates but counted %d", candidate.Volunteer.Label(), total, len(dates), candidate.AssignmentCount),
			})
		}
	}

	return errors
}
