package services

import (
	"github.com/jakechorley/clinic-allocator/internal/config"
	"github.com/jakechorley/clinic-allocator/pkg/core/allocator"
	"github.com/jakechorley/clinic-allocator/pkg/core/model"
	"github.com/jakechorley/clinic-allocator/pkg/intake"
)

// ClinicSummary is one clinic's resolved constraint table
type ClinicSummary struct {
	Clinic      model.ClinicDefinition
	Constraints allocator.ClinicConstraints

	// OfferedDates is empty when the clinic runs on every date volunteers mark
	OfferedDates []string
}

// CheckConfig validates the configuration without running an allocation
func CheckConfig(cfg *config.Config) ([]ClinicSummary, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	constraints, err := cfg.Constraints()
	if err != nil {
		return nil, err
	}

	offered, err := cfg.OfferedDates()
	if err != nil {
		return nil, err
	}

	summaries := make([]ClinicSummary, len(cfg.Clinics))
	for i, clinic := range cfg.ClinicDefinitions() {
		summaries[i] = ClinicSummary{
			Clinic:       clinic,
			Constraints:  constraints[i],
			OfferedDates: intake.SortDateKeys(offered[i]),
		}
	}

	return summaries, nil
}
