package services

import (
	"fmt"
	"strings"

	"github.com/jakechorley/clinic-allocator/internal/config"
	"github.com/jakechorley/clinic-allocator/pkg/core/allocator"
	"github.com/jakechorley/clinic-allocator/pkg/core/model"
	"github.com/jakechorley/clinic-allocator/pkg/intake"
)

// resolvePreassignments maps configured preassignments onto volunteer and clinic indices.
// Volunteers are matched by email first, then by name, case-insensitively.
func resolvePreassignments(cfg *config.Config, volunteers []model.Volunteer) ([]allocator.Preassignment, error) {
	if len(cfg.Preassignments) == 0 {
		return nil, nil
	}

	byEmail := make(map[string]int)
	byName := make(map[string]int)
	for i, v := range volunteers {
		if v.Email != "" {
			byEmail[strings.ToLower(v.Email)] = i
		}
		if v.Name != "" {
			byName[strings.ToLower(v.Name)] = i
		}
	}

	preassignments := make([]allocator.Preassignment, 0, len(cfg.Preassignments))
	for _, pre := range cfg.Preassignments {
		key := strings.ToLower(strings.TrimSpace(pre.Volunteer))
		id, ok := byEmail[key]
		if !ok {
			id, ok = byName[key]
		}
		if !ok {
			return nil, &allocator.ConfigurationError{
				Clinic: pre.Clinic,
				Reason: fmt.Sprintf("preassigned volunteer %q did not respond", pre.Volunteer),
			}
		}

		clinicIdx := cfg.ClinicIndex(pre.Clinic)
		if clinicIdx < 0 {
			return nil, &allocator.ConfigurationError{
				Clinic: pre.Clinic,
				Reason: "preassignment references an unknown clinic",
			}
		}

		preassignments = append(preassignments, allocator.Preassignment{
			VolunteerID: id,
			ClinicIndex: clinicIdx,
			DateKey:     normaliseDate(pre.Date),
		})
	}

	return preassignments, nil
}

// normaliseDate brings a configured date into the same form as response date-keys
func normaliseDate(date string) string {
	if key, ok := intake.NormaliseDateKey(date); ok {
		return key
	}
	return strings.TrimSpace(date)
}
