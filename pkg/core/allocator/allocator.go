package allocator

import (
	"math/rand/v2"

	"github.com/jakechorley/clinic-allocator/pkg/core/model"
)

// Allocator runs the breadth-first assignment of candidates to clinic slots
type Allocator struct {
	state       *AllocationState
	rand        *rand.Rand
	disableFill bool
}

// AllocationOutcome represents the result of an allocation run
type AllocationOutcome struct {
	// State is the final allocation state
	State *AllocationState

	// Success indicates the final state passed every validation check
	Success bool

	// Unassigned are candidates who were pooled somewhere but admitted nowhere
	Unassigned []*Candidate

	Warnings         []Warning
	ValidationErrors []SlotValidationError
}

// passPhase selects how strictly year quotas are applied in a round
type passPhase int

const (
	phaseQuota passPhase = iota
	phaseFill
)

// volunteerKinds are processed in this order for each date
var volunteerKinds = []model.Kind{model.KindDefault, model.KindSpanishTranslator}

// Allocate runs the main allocation loop.
//
// Each (date, kind) pair is processed independently: one ranked queue per clinic
// offering the date, then rounds in which every active queue admits at most one
// candidate, until a round admits nobody. Once a clinic admits a volunteer, they are
// removed from every other clinic's queue for that date.
func Allocate(config AllocationConfig) (*AllocationOutcome, error) {
	state, err := InitAllocation(config)
	if err != nil {
		return nil, err
	}

	allocator := &Allocator{
		state:       state,
		rand:        config.Rand,
		disableFill: config.DisableFill,
	}

	for _, date := range state.Dates {
		for _, kind := range volunteerKinds {
			if err := allocator.allocateDate(date, kind); err != nil {
				return nil, err
			}
		}
	}

	return allocator.buildOutcome(), nil
}

// allocateDate runs Setup, the quota rounds, the fill rounds and the waitlist for one date and kind
func (a *Allocator) allocateDate(date string, kind model.Kind) error {
	queues := make([]*candidateQueue, 0)

	for clinicIdx := range a.state.Clinics {
		slot := a.state.Slot(clinicIdx, date)
		if slot == nil {
			continue
		}

		ranked, err := RankQueue(a.state, slot, kind)
		if err != nil {
			return err
		}

		// Preassigned volunteers have already consumed the date
		ids := make([]int, 0, len(ranked))
		for _, id := range ranked {
			if !a.state.Candidates[id].ConsumedDates[date] {
				ids = append(ids, id)
			}
		}

		queues = append(queues, newCandidateQueue(slot, kind, ids))
	}

	a.runRounds(date, queues, phaseQuota)
	if !a.disableFill && kind == model.KindDefault {
		a.runRounds(date, queues, phaseFill)
	}

	for _, queue := range queues {
		queue.slot.setWaitlist(kind, queue.remaining())
	}

	return nil
}

// runRounds repeats rounds across the queues until one admits nobody
func (a *Allocator) runRounds(date string, queues []*candidateQueue, phase passPhase) {
	for {
		admitted := 0

		for _, queue := range queues {
			if !queue.active {
				continue
			}

			constraints := a.state.Constraints[queue.slot.ClinicIndex]
			if queue.len() == 0 {
				queue.active = false
				continue
			}

			adm, ok := a.pickCandidate(queue, constraints, phase)
			if !ok {
				// Global max reached: nobody else can enter this slot in any phase
				if !queue.slot.HasCapacity(constraints, queue.kind) {
					queue.active = false
				}
				continue
			}

			a.commit(queue.slot, date, adm)

			for _, other := range queues {
				other.remove(adm.id)
			}
			admitted++
		}

		if admitted == 0 {
			return
		}
	}
}

// pickCandidate returns the best admissible candidate in the queue.
// Under a random tie-break, the choice is drawn among admissible candidates tied with the best.
func (a *Allocator) pickCandidate(queue *candidateQueue, constraints ClinicConstraints, phase passPhase) (admission, bool) {
	if !queue.slot.HasCapacity(constraints, queue.kind) {
		return admission{}, false
	}

	clinicIdx := queue.slot.ClinicIndex
	allowFill := phase == phaseFill

	var best *Candidate
	var bestAdmission admission
	var ties []admission

	for _, id := range queue.ids[queue.head:] {
		if !queue.contains(id) {
			continue
		}
		candidate := a.state.Candidates[id]

		if best != nil && compareCandidates(constraints, clinicIdx, best, candidate) != 0 {
			break
		}

		adm, ok := queue.slot.evaluate(constraints, candidate, allowFill)
		if !ok {
			continue
		}

		if best == nil {
			best = candidate
			bestAdmission = adm
			if constraints.TieBreak != model.TieBreakRandom {
				return bestAdmission, true
			}
		}
		ties = append(ties, adm)
	}

	if best == nil {
		return admission{}, false
	}
	if len(ties) > 1 {
		return ties[a.rand.IntN(len(ties))], true
	}
	return bestAdmission, true
}

// commit admits a candidate into a slot and marks the date consumed
func (a *Allocator) commit(slot *ClinicSlot, date string, adm admission) {
	candidate := a.state.Candidates[adm.id]
	slot.record(candidate, adm)
	candidate.ConsumedDates[date] = true
	candidate.AssignmentCount++
}

// buildOutcome creates the final allocation outcome report
func (a *Allocator) buildOutcome() *AllocationOutcome {
	outcome := &AllocationOutcome{
		State:            a.state,
		Unassigned:       []*Candidate{},
		ValidationErrors: []SlotValidationError{},
	}

	for _, candidate := range a.state.Candidates {
		if candidate.AssignmentCount == 0 && len(candidate.AvailableDates) > 0 {
			outcome.Unassigned = append(outcome.Unassigned, candidate)
			a.state.warn(candidate.Volunteer.Label(), "no assignment on any date")
		}
	}

	outcome.Warnings = a.state.Warnings
	outcome.ValidationErrors = ValidateState(a.state)
	outcome.Success = len(outcome.ValidationErrors) == 0

	return outcome
}
