package allocator

import (
	"fmt"
	"slices"

	"github.com/jakechorley/clinic-allocator/pkg/core/model"
)

// ClinicConstraints apply to every date a clinic offers
type ClinicConstraints struct {
	// MaxDefault is the number of general volunteers admitted per date
	MaxDefault int

	// MaxTranslators is the number of Spanish translators admitted per date.
	// Translators are not subject to year quotas.
	MaxTranslators int

	// YearMax is the per-year maximum, indexed by model.Year
	YearMax [model.NumYears]int

	// YearGroups partitions the years into groups sharing one quota.
	// Every year appears in exactly one group and all members of a group
	// declare the same YearMax, which is the group's quota.
	YearGroups [][]model.Year

	Elective model.ElectiveMode
	TieBreak model.TieBreak
}

// Validate checks the constraint table is internally consistent.
// clinic is used to label errors.
func (c ClinicConstraints) Validate(clinic string) error {
	if c.MaxDefault < 0 {
		return &ConfigurationError{Clinic: clinic, Reason: fmt.Sprintf("max default volunteers is negative (%d)", c.MaxDefault)}
	}
	if c.MaxTranslators < 0 {
		return &ConfigurationError{Clinic: clinic, Reason: fmt.Sprintf("max translators is negative (%d)", c.MaxTranslators)}
	}
	for year, max := range c.YearMax {
		if max < 0 {
			return &ConfigurationError{Clinic: clinic, Reason: fmt.Sprintf("max for %s is negative (%d)", model.Year(year), max)}
		}
	}

	switch c.Elective {
	case model.ElectivePrefer, model.ElectiveIndifferent, model.ElectiveRequire:
	default:
		return &ConfigurationError{Clinic: clinic, Reason: fmt.Sprintf("unknown elective mode %q", c.Elective)}
	}
	switch c.TieBreak {
	case model.TieBreakRandom, model.TieBreakYearAscending, model.TieBreakYearDescending:
	default:
		return &ConfigurationError{Clinic: clinic, Reason: fmt.Sprintf("unknown tie-break %q", c.TieBreak)}
	}

	groupOf := make(map[model.Year]int)
	for groupIdx, group := range c.YearGroups {
		if len(group) == 0 {
			return &ConfigurationError{Clinic: clinic, Reason: fmt.Sprintf("year group %d is empty", groupIdx+1)}
		}
		for _, year := range group {
			if !year.IsValid() {
				return &DataIntegrityError{Reason: fmt.Sprintf("clinic %s year group %d references undeclared year %d", clinic, groupIdx+1, int(year))}
			}
			if prev, ok := groupOf[year]; ok {
				return &ConfigurationError{Clinic: clinic, Reason: fmt.Sprintf("%s is in year groups %d and %d", year, prev+1, groupIdx+1)}
			}
			groupOf[year] = groupIdx
		}
	}
	for year := model.YearUndergrad; year <= model.YearMS4; year++ {
		if _, ok := groupOf[year]; !ok {
			return &ConfigurationError{Clinic: clinic, Reason: fmt.Sprintf("%s is not in any year group", year)}
		}
	}

	// The group quota is the shared per-year max, so the per-year table only
	// reconciles with the groups when every member declares the same value
	for groupIdx, group := range c.YearGroups {
		quota := c.YearMax[group[0]]
		for _, year := range group {
			if c.YearMax[year] != quota {
				return &ConfigurationError{Clinic: clinic, Reason: fmt.Sprintf(
					"year group %d does not reconcile: %s max is %d but %s max is %d",
					groupIdx+1, group[0], quota, year, c.YearMax[year])}
			}
		}
	}

	return nil
}

// GroupFor returns the index of the year group containing the year, or -1
func (c ClinicConstraints) GroupFor(year model.Year) int {
	for i, group := range c.YearGroups {
		if slices.Contains(group, year) {
			return i
		}
	}
	return -1
}

// newQuotaTrackers materialises a fresh set of quota trackers for one slot
func (c ClinicConstraints) newQuotaTrackers() []*QuotaTracker {
	trackers := make([]*QuotaTracker, len(c.YearGroups))
	for i, group := range c.YearGroups {
		trackers[i] = &QuotaTracker{
			Years: slices.Clone(group),
			Max:   c.YearMax[group[0]],
		}
	}
	return trackers
}

// MaxFor returns the global max for a volunteer kind
func (c ClinicConstraints) MaxFor(kind model.Kind) int {
	if kind == model.KindSpanishTranslator {
		return c.MaxTranslators
	}
	return c.MaxDefault
}

// Admits returns false if the clinic's elective mode excludes the volunteer entirely
func (c ClinicConstraints) Admits(volunteer model.Volunteer) bool {
	return c.Elective != model.ElectiveRequire || volunteer.Elective
}
