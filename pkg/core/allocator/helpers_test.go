package allocator

import (
	"math/rand/v2"

	"github.com/jakechorley/clinic-allocator/pkg/core/model"
)

var allYears = []model.Year{model.YearUndergrad, model.YearMS1, model.YearMS2, model.YearMS3, model.YearMS4}

// twoClinics returns clinic definitions for tests that need a second clinic to rank
func twoClinics() []model.ClinicDefinition {
	return []model.ClinicDefinition{
		{Code: "C", Name: "Clinic C"},
		{Code: "D", Name: "Clinic D"},
	}
}

// openConstraints puts every year in one group whose quota equals maxDefault
func openConstraints(maxDefault int) ClinicConstraints {
	return ClinicConstraints{
		MaxDefault:     maxDefault,
		MaxTranslators: 1,
		YearMax:        [model.NumYears]int{maxDefault, maxDefault, maxDefault, maxDefault, maxDefault},
		YearGroups:     [][]model.Year{allYears},
		Elective:       model.ElectiveIndifferent,
		TieBreak:       model.TieBreakYearAscending,
	}
}

// splitConstraints uses groups {Undergrad} {MS1} {MS2, MS3, MS4}, undergrads closed
func splitConstraints(maxDefault, ms1Max, seniorMax int) ClinicConstraints {
	return ClinicConstraints{
		MaxDefault:     maxDefault,
		MaxTranslators: 1,
		YearMax:        [model.NumYears]int{0, ms1Max, seniorMax, seniorMax, seniorMax},
		YearGroups: [][]model.Year{
			{model.YearUndergrad},
			{model.YearMS1},
			{model.YearMS2, model.YearMS3, model.YearMS4},
		},
		Elective: model.ElectiveIndifferent,
		TieBreak: model.TieBreakYearAscending,
	}
}

func volunteer(name string, year model.Year, ranking []int, availability map[int][]string) model.Volunteer {
	return model.Volunteer{
		Name:         name,
		Email:        name + "@example.com",
		Year:         year,
		Kind:         model.KindDefault,
		Ranking:      ranking,
		Availability: availability,
	}
}

func translator(name string, year model.Year, ranking []int, availability map[int][]string) model.Volunteer {
	v := volunteer(name, year, ranking, availability)
	v.Kind = model.KindSpanishTranslator
	return v
}

func seeded(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

// names resolves candidate ids to volunteer names
func names(state *AllocationState, ids []int) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, state.Candidates[id].Volunteer.Name)
	}
	return out
}
