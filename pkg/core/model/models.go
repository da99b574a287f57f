package model

import (
	"fmt"
	"strings"
)

// Year is a volunteer's declared year of study.
// YearUndergrad sits below the first medical year.
type Year int

const (
	YearUndergrad Year = iota
	YearMS1
	YearMS2
	YearMS3
	YearMS4
)

// NumYears is the number of distinct years a clinic constrains
const NumYears = 5

func (y Year) IsValid() bool {
	return y >= YearUndergrad && y <= YearMS4
}

func (y Year) String() string {
	if y == YearUndergrad {
		return "Undergrad"
	}
	if y.IsValid() {
		return fmt.Sprintf("MS%d", int(y))
	}
	return fmt.Sprintf("Year(%d)", int(y))
}

// Kind determines which capacity pool a volunteer is drawn from
type Kind int

const (
	KindDefault Kind = iota
	KindSpanishTranslator
)

func (k Kind) String() string {
	switch k {
	case KindDefault:
		return "Default"
	case KindSpanishTranslator:
		return "Spanish translator"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ElectiveMode is a clinic's policy towards elective-course volunteers
type ElectiveMode string

const (
	ElectivePrefer      ElectiveMode = "prefer"
	ElectiveIndifferent ElectiveMode = "indifferent"
	ElectiveRequire     ElectiveMode = "require"
)

// ParseElectiveMode accepts the closed set of elective mode names, case-insensitively.
func ParseElectiveMode(s string) (ElectiveMode, error) {
	switch normalizeEnum(s) {
	case "prefer", "preferelective":
		return ElectivePrefer, nil
	case "indifferent", "":
		return ElectiveIndifferent, nil
	case "require", "requireelective", "required":
		return ElectiveRequire, nil
	}
	return "", fmt.Errorf("unknown elective mode %q (expected prefer, indifferent or require)", s)
}

// TieBreak is the secondary order applied between candidates with equal rank
type TieBreak string

const (
	TieBreakRandom         TieBreak = "random"
	TieBreakYearAscending  TieBreak = "yearAscending"
	TieBreakYearDescending TieBreak = "yearDescending"
)

// ParseTieBreak accepts the closed set of tie-break names, case-insensitively.
func ParseTieBreak(s string) (TieBreak, error) {
	switch normalizeEnum(s) {
	case "random", "":
		return TieBreakRandom, nil
	case "yearascending", "ascending":
		return TieBreakYearAscending, nil
	case "yeardescending", "descending":
		return TieBreakYearDescending, nil
	}
	return "", fmt.Errorf("unknown tie-break %q (expected random, yearAscending or yearDescending)", s)
}

func normalizeEnum(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(s)
}

// ClinicDefinition identifies a clinic. Its index in the configured list is its identity.
type ClinicDefinition struct {
	Code string
	Name string
}

// Volunteer is a parsed form response
type Volunteer struct {
	Name     string
	Email    string
	Year     Year
	Elective bool
	Kind     Kind

	// Ranking lists clinic indices, most preferred first. Every clinic appears exactly once.
	Ranking []int

	// Availability maps a clinic index to the date-keys the volunteer can attend.
	// Clinics the volunteer is not interested in are absent.
	Availability map[int][]string
}

// Label returns the best human-readable identity for the volunteer
func (v Volunteer) Label() string {
	if v.Name != "" {
		return v.Name
	}
	return v.Email
}
