package allocator

import (
	"slices"

	"github.com/jakechorley/clinic-allocator/pkg/core/model"
)

// Placement is a volunteer listed against a slot, annotated for reporting
type Placement struct {
	VolunteerID int
	Name        string
	Email       string
	Kind        model.Kind
	Year        model.Year
	Elective    bool

	// Rank is the volunteer's 1-based preference for the clinic
	Rank int

	Fill        bool
	Preassigned bool
}

// SlotResult is the rendered view of one clinic on one date
type SlotResult struct {
	Clinic  model.ClinicDefinition
	DateKey string

	DefaultAssignments    []Placement
	TranslatorAssignments []Placement
	DefaultWaitlist       []Placement
	TranslatorWaitlist    []Placement

	// UnfilledDefault and UnfilledTranslators are the places left below the global maxes
	UnfilledDefault     int
	UnfilledTranslators int
}

// Results projects the outcome into one SlotResult per clinic-date, ordered by
// clinic then date
func (o *AllocationOutcome) Results() []SlotResult {
	state := o.State
	results := make([]SlotResult, 0, len(state.Slots))

	for _, slot := range state.Slots {
		constraints := state.Constraints[slot.ClinicIndex]
		result := SlotResult{
			Clinic:                state.Clinics[slot.ClinicIndex],
			DateKey:               slot.DateKey,
			DefaultAssignments:    placements(state, slot, slot.DefaultAssignments),
			TranslatorAssignments: placements(state, slot, slot.TranslatorAssignments),
			DefaultWaitlist:       placements(state, slot, slot.DefaultWaitlist),
			TranslatorWaitlist:    placements(state, slot, slot.TranslatorWaitlist),
			UnfilledDefault:       max(constraints.MaxDefault-len(slot.DefaultAssignments), 0),
			UnfilledTranslators:   max(constraints.MaxTranslators-len(slot.TranslatorAssignments), 0),
		}
		results = append(results, result)
	}

	return results
}

func placements(state *AllocationState, slot *ClinicSlot, ids []int) []Placement {
	out := make([]Placement, 0, len(ids))
	for _, id := range ids {
		candidate := state.Candidates[id]
		rank, _ := candidate.Rank(slot.ClinicIndex)
		out = append(out, Placement{
			VolunteerID: id,
			Name:        candidate.Volunteer.Name,
			Email:       candidate.Volunteer.Email,
			Kind:        candidate.Volunteer.Kind,
			Year:        candidate.Volunteer.Year,
			Elective:    candidate.Volunteer.Elective,
			Rank:        rank,
			Fill:        slices.Contains(slot.FillAdmissions, id),
			Preassigned: slices.Contains(slot.Preassigned, id),
		})
	}
	return out
}
