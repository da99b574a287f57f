package allocator

import (
	"fmt"
	"sort"

	"github.com/jakechorley/clinic-allocator/pkg/core/model"
)

// RankQueue orders a slot's raw pool for one volunteer kind.
//
// Candidates are ordered by:
//  1. The rank they gave this clinic (1 = most preferred)
//  2. Elective volunteers first, if the clinic prefers electives
//  3. Year ascending or descending, per the clinic's tie-break
//
// With TieBreakRandom, remaining ties keep pool order and are drawn at random on admission.
// Returns a *DataIntegrityError if a pooled volunteer has no rank for the clinic.
func RankQueue(state *AllocationState, slot *ClinicSlot, kind model.Kind) ([]int, error) {
	pool := slot.Pool(kind)
	queue := make([]int, 0, len(pool))

	for _, id := range pool {
		if id < 0 || id >= len(state.Candidates) {
			return nil, &DataIntegrityError{Reason: fmt.Sprintf("pool for %s on %s references unknown volunteer %d",
				state.Clinics[slot.ClinicIndex].Code, slot.DateKey, id)}
		}
		if _, ok := state.Candidates[id].Rank(slot.ClinicIndex); !ok {
			return nil, &DataIntegrityError{
				Volunteer: state.Candidates[id].Volunteer.Label(),
				Reason:    fmt.Sprintf("no rank for clinic %s", state.Clinics[slot.ClinicIndex].Code),
			}
		}
		queue = append(queue, id)
	}

	constraints := state.Constraints[slot.ClinicIndex]
	sort.SliceStable(queue, func(i, j int) bool {
		a, b := state.Candidates[queue[i]], state.Candidates[queue[j]]
		return compareCandidates(constraints, slot.ClinicIndex, a, b) < 0
	})

	return queue, nil
}

// compareCandidates returns a negative number if a should be considered before b,
// positive if after, and zero if they are tied under the clinic's policy
func compareCandidates(constraints ClinicConstraints, clinicIdx int, a, b *Candidate) int {
	rankA, _ := a.Rank(clinicIdx)
	rankB, _ := b.Rank(clinicIdx)
	if rankA != rankB {
		return rankA - rankB
	}

	if constraints.Elective == model.ElectivePrefer && a.Volunteer.Elective != b.Volunteer.Elective {
		if a.Volunteer.Elective {
			return -1
		}
		return 1
	}

	switch constraints.TieBreak {
	case model.TieBreakYearAscending:
		return int(a.Volunteer.Year) - int(b.Volunteer.Year)
	case model.TieBreakYearDescending:
		return int(b.Volunteer.Year) - int(a.Volunteer.Year)
	}
	return 0
}

// candidateQueue is a ranked queue that supports O(1) removal by volunteer id
type candidateQueue struct {
	slot    *ClinicSlot
	kind    model.Kind
	ids     []int
	present map[int]bool
	head    int
	active  bool
}

func newCandidateQueue(slot *ClinicSlot, kind model.Kind, ids []int) *candidateQueue {
	present := make(map[int]bool, len(ids))
	for _, id := range ids {
		present[id] = true
	}
	return &candidateQueue{
		slot:    slot,
		kind:    kind,
		ids:     ids,
		present: present,
		active:  true,
	}
}

func (q *candidateQueue) remove(id int) {
	delete(q.present, id)
	for q.head < len(q.ids) && !q.present[q.ids[q.head]] {
		q.head++
	}
}

func (q *candidateQueue) contains(id int) bool {
	return q.present[id]
}

func (q *candidateQueue) len() int {
	return len(q.present)
}

// remaining returns the candidates still queued, in ranked order
func (q *candidateQueue) remaining() []int {
	ids := make([]int, 0, len(q.present))
	for _, id := range q.ids[q.head:] {
		if q.present[id] {
			ids = append(ids, id)
		}
	}
	return ids
}
