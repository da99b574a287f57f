package allocator

import "github.com/jakechorley/clinic-allocator/pkg/core/model"

// admission is a decision to admit a candidate into a slot
type admission struct {
	id int

	// quota is the open year group the candidate is admitted under (default kind only)
	quota *QuotaTracker

	// fill is set when a default candidate is admitted without an open year group
	fill bool
}

// HasCapacity returns true if the slot is below the clinic's global max for the kind
func (s *ClinicSlot) HasCapacity(constraints ClinicConstraints, kind model.Kind) bool {
	return len(s.Assignments(kind)) < constraints.MaxFor(kind)
}

// OpenQuota returns a year group covering the year that still has room, or nil
func (s *ClinicSlot) OpenQuota(year model.Year) *QuotaTracker {
	for _, quota := range s.Quotas {
		if quota.Covers(year) && quota.HasRoom() {
			return quota
		}
	}
	return nil
}

// quotaFor returns the year group covering the year regardless of room
func (s *ClinicSlot) quotaFor(year model.Year) *QuotaTracker {
	for _, quota := range s.Quotas {
		if quota.Covers(year) {
			return quota
		}
	}
	return nil
}

// evaluate decides whether a candidate may enter the slot.
//
// The global max always applies. Translators bypass year quotas. A default candidate
// needs an open year group unless allowFill is set, in which case it is admitted as a
// fill admission while the slot has room.
func (s *ClinicSlot) evaluate(constraints ClinicConstraints, candidate *Candidate, allowFill bool) (admission, bool) {
	kind := candidate.Volunteer.Kind
	if !s.HasCapacity(constraints, kind) {
		return admission{}, false
	}

	if kind == model.KindSpanishTranslator {
		return admission{id: candidate.ID}, true
	}

	if quota := s.OpenQuota(candidate.Volunteer.Year); quota != nil {
		return admission{id: candidate.ID, quota: quota}, true
	}

	if allowFill {
		return admission{id: candidate.ID, fill: true}, true
	}

	return admission{}, false
}

// record applies an admission's effect on the slot's counters and assignment sets
func (s *ClinicSlot) record(candidate *Candidate, adm admission) {
	kind := candidate.Volunteer.Kind
	s.addAssignment(kind, candidate.ID)

	if kind != model.KindDefault {
		return
	}

	if adm.quota != nil {
		adm.quota.Count++
		return
	}

	// Admitted outside an open group: still counted against its group so
	// later candidates of the same years see the group as full
	if quota := s.quotaFor(candidate.Volunteer.Year); quota != nil {
		quota.Count++
	}
	if adm.fill {
		s.FillAdmissions = append(s.FillAdmissions, candidate.ID)
	}
}
