package intake

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jakechorley/clinic-allocator/pkg/core/allocator"
	"github.com/jakechorley/clinic-allocator/pkg/core/model"
)

// Sign-up form column titles
const (
	HeaderName       = "First and Last Name"
	HeaderYear       = "What year are you in?"
	HeaderInterests  = "Please select any clinics you are interested in volunteering with"
	HeaderTranslator = "Are you interested in being a translator (Spanish) instead of a general volunteer?"
	HeaderStartTime  = "Start time"
	HeaderRanking    = "Please rank your clinic preference"
)

// dateKeyPattern matches M/D with an optional session suffix such as "(PM)"
var dateKeyPattern = regexp.MustCompile(`(1[0-2]|0?[1-9])/(3[01]|[12][0-9]|0?[1-9])(\s*\([A-Za-z]+\))?`)

// columns holds resolved header positions, -1 when absent
type columns struct {
	name         int
	email        int
	year         int
	interests    int
	translator   int
	elective     int
	startTime    int
	ranking      int
	availability []int
}

// ParseResponses converts raw form rows (header first) into volunteers.
//
// Rows submitted before since are skipped when since is non-zero. Returned warnings are
// non-fatal observations about individual rows. A row that cannot be interpreted is
// returned as a *allocator.DataIntegrityError.
func ParseResponses(rows [][]string, clinics []model.ClinicDefinition, since time.Time) ([]model.Volunteer, []string, error) {
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("responses are empty")
	}

	cols, warnings, err := resolveColumns(rows[0], clinics)
	if err != nil {
		return nil, nil, err
	}
	if !since.IsZero() && cols.startTime < 0 {
		return nil, nil, fmt.Errorf("responses have no %q column to filter by", HeaderStartTime)
	}

	volunteers := make([]model.Volunteer, 0, len(rows)-1)

	for r, row := range rows[1:] {
		rowNum := r + 2
		if isBlank(row) {
			continue
		}

		if !since.IsZero() {
			submitted, err := ParseTimestamp(cell(row, cols.startTime))
			if err != nil {
				return nil, nil, fmt.Errorf("row %d: %w", rowNum, err)
			}
			if submitted.Before(since) {
				continue
			}
		}

		volunteer, rowWarnings, err := parseRow(row, cols, clinics)
		if err != nil {
			return nil, nil, err
		}
		for _, w := range rowWarnings {
			warnings = append(warnings, fmt.Sprintf("row %d: %s", rowNum, w))
		}
		volunteers = append(volunteers, volunteer)
	}

	return volunteers, warnings, nil
}

func resolveColumns(header []string, clinics []model.ClinicDefinition) (columns, []string, error) {
	cols := columns{
		name:       indexOf(header, HeaderName),
		year:       indexOf(header, HeaderYear),
		interests:  indexOf(header, HeaderInterests),
		translator: indexOf(header, HeaderTranslator),
		startTime:  indexOf(header, HeaderStartTime),
		ranking:    indexOf(header, HeaderRanking),
		email:      -1,
		elective:   -1,
	}

	for i, title := range header {
		lower := strings.ToLower(title)
		if cols.email < 0 && strings.Contains(lower, "email") {
			cols.email = i
		}
		if cols.elective < 0 && strings.Contains(lower, "elective") {
			cols.elective = i
		}
	}

	for title, idx := range map[string]int{
		HeaderName:      cols.name,
		HeaderYear:      cols.year,
		HeaderInterests: cols.interests,
		HeaderRanking:   cols.ranking,
	} {
		if idx < 0 {
			return columns{}, nil, fmt.Errorf("responses are missing the %q column", title)
		}
	}

	var warnings []string
	cols.availability = make([]int, len(clinics))
	for c, clinic := range clinics {
		cols.availability[c] = -1
		code := strings.ToLower(clinic.Code)

		for i, title := range header {
			lower := strings.ToLower(title)
			if !strings.Contains(lower, "date") || !strings.Contains(lower, "availability") || !strings.Contains(lower, code) {
				continue
			}
			if cols.availability[c] >= 0 {
				return columns{}, nil, fmt.Errorf("more than one availability column for clinic %s", clinic.Code)
			}
			cols.availability[c] = i
		}

		if cols.availability[c] < 0 {
			warnings = append(warnings, fmt.Sprintf("no availability column for clinic %s", clinic.Code))
		}
	}

	return cols, warnings, nil
}

func parseRow(row []string, cols columns, clinics []model.ClinicDefinition) (model.Volunteer, []string, error) {
	volunteer := model.Volunteer{
		Name:         strings.TrimSpace(cell(row, cols.name)),
		Email:        strings.TrimSpace(cell(row, cols.email)),
		Kind:         model.KindDefault,
		Availability: make(map[int][]string),
	}
	label := volunteer.Label()

	year, err := ParseYear(cell(row, cols.year))
	if err != nil {
		return model.Volunteer{}, nil, &allocator.DataIntegrityError{Volunteer: label, Reason: err.Error()}
	}
	volunteer.Year = year

	if isYes(cell(row, cols.translator)) {
		volunteer.Kind = model.KindSpanishTranslator
	}
	volunteer.Elective = isYes(cell(row, cols.elective))

	ranking, err := ParseRanking(cell(row, cols.ranking), clinics)
	if err != nil {
		return model.Volunteer{}, nil, &allocator.DataIntegrityError{Volunteer: label, Reason: err.Error()}
	}
	volunteer.Ranking = ranking

	var warnings []string
	interests := strings.ToLower(cell(row, cols.interests))
	for c, clinic := range clinics {
		if !strings.Contains(interests, strings.ToLower(clinic.Code)) || cols.availability[c] < 0 {
			continue
		}

		answer := cell(row, cols.availability[c])
		if strings.Contains(strings.ToLower(answer), "no") {
			continue
		}

		dates := ExtractDateKeys(answer)
		if len(dates) == 0 {
			warnings = append(warnings, fmt.Sprintf("%s is interested in %s but gave no dates", label, clinic.Code))
			continue
		}
		volunteer.Availability[c] = dates
	}

	return volunteer, warnings, nil
}

// ParseYear maps a year answer to a model.Year. "Undergrad" answers are year 0 and
// medical school answers are identified by their first digit.
func ParseYear(answer string) (model.Year, error) {
	lower := strings.ToLower(answer)
	if strings.Contains(lower, "undergrad") {
		return model.YearUndergrad, nil
	}
	for _, r := range lower {
		if r >= '1' && r <= '4' {
			return model.Year(r - '0'), nil
		}
	}
	return 0, fmt.Errorf("unrecognised year %q", answer)
}

// ParseRanking resolves a ';'-separated ranking answer to clinic indices, best first.
// Each entry is matched to the first clinic whose code it contains.
func ParseRanking(answer string, clinics []model.ClinicDefinition) ([]int, error) {
	var ranking []int
	for _, entry := range strings.Split(answer, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		lower := strings.ToLower(entry)
		found := -1
		for c, clinic := range clinics {
			if strings.Contains(lower, strings.ToLower(clinic.Code)) {
				found = c
				break
			}
		}
		if found < 0 {
			return nil, fmt.Errorf("ranking entry %q matches no clinic", entry)
		}
		ranking = append(ranking, found)
	}
	return ranking, nil
}

// ExtractDateKeys returns the normalised date-keys in a ';'-separated availability answer
func ExtractDateKeys(answer string) []string {
	var keys []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(answer, ";") {
		match := dateKeyPattern.FindStringSubmatch(part)
		if match == nil {
			continue
		}
		key := normaliseDateKey(match[1], match[2], match[3])
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}
	return keys
}

func normaliseDateKey(month, day, suffix string) string {
	m, _ := strconv.Atoi(month)
	d, _ := strconv.Atoi(day)
	return fmt.Sprintf("%d/%d%s", m, d, strings.ToUpper(strings.TrimSpace(suffix)))
}

func indexOf(header []string, title string) int {
	for i, h := range header {
		if strings.TrimSpace(h) == title {
			return i
		}
	}
	return -1
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func isYes(answer string) bool {
	return strings.Contains(strings.ToLower(answer), "y")
}

func isBlank(row []string) bool {
	for _, value := range row {
		if strings.TrimSpace(value) != "" {
			return false
		}
	}
	return true
}
