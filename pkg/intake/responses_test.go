package intake

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/clinic-allocator/pkg/core/allocator"
	"github.com/jakechorley/clinic-allocator/pkg/core/model"
)

var testClinics = []model.ClinicDefinition{
	{Code: "MD", Name: "Agape MD Clinic"},
	{Code: "Dermatology", Name: "Agape Dermatology Clinic"},
	{Code: "Shelter", Name: "UGM Shelter Clinic"},
}

var testHeader = []string{
	HeaderStartTime,
	"Email",
	HeaderName,
	HeaderYear,
	"Are you enrolled in the clinic elective?",
	HeaderTranslator,
	HeaderInterests,
	"Select Date Availability for Agape MD",
	"Select Date Availability for Agape Dermatology",
	"Select Date Availability for UGM Shelter",
	HeaderRanking,
}

func testRow(start, email, name, year, elective, translator, interests, md, derm, shelter, ranking string) []string {
	return []string{start, email, name, year, elective, translator, interests, md, derm, shelter, ranking}
}

func TestParseResponses_BuildsVolunteers(t *testing.T) {
	rows := [][]string{
		testHeader,
		testRow("2025-02-01 09:00:00", "ana@example.com", "Ana Diaz", "MS2", "Yes", "No",
			"Agape MD; UGM Shelter", "3/14; 03/21 (PM);", "", "No Dates Available / Not Interested",
			"Agape MD;UGM Shelter;Agape Dermatology"),
		testRow("2025-02-02 10:30:00", "ben@example.com", "Ben Ode", "Undergrad", "", "Yes",
			"Agape Dermatology", "", "4/4;4/11", "",
			"Agape Dermatology;Agape MD;UGM Shelter"),
	}

	volunteers, warnings, err := ParseResponses(rows, testClinics, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, volunteers, 2)

	ana := volunteers[0]
	assert.Equal(t, "Ana Diaz", ana.Name)
	assert.Equal(t, "ana@example.com", ana.Email)
	assert.Equal(t, model.YearMS2, ana.Year)
	assert.True(t, ana.Elective)
	assert.Equal(t, model.KindDefault, ana.Kind)
	assert.Equal(t, []int{0, 2, 1}, ana.Ranking)
	assert.Equal(t, map[int][]string{0: {"3/14", "3/21(PM)"}}, ana.Availability)

	ben := volunteers[1]
	assert.Equal(t, model.YearUndergrad, ben.Year)
	assert.False(t, ben.Elective)
	assert.Equal(t, model.KindSpanishTranslator, ben.Kind)
	assert.Equal(t, []int{1, 0, 2}, ben.Ranking)
	assert.Equal(t, map[int][]string{1: {"4/4", "4/11"}}, ben.Availability)
}

func TestParseResponses_SkipsEarlySubmissionsAndBlankRows(t *testing.T) {
	rows := [][]string{
		testHeader,
		testRow("45658.25", "old@example.com", "Old Response", "MS1", "", "", "Agape MD", "3/14", "", "", "MD;Dermatology;Shelter"),
		{"", "", ""},
		testRow("45700.5", "new@example.com", "New Response", "MS1", "", "", "Agape MD", "3/14", "", "", "MD;Dermatology;Shelter"),
	}

	since := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	volunteers, _, err := ParseResponses(rows, testClinics, since)
	require.NoError(t, err)

	require.Len(t, volunteers, 1)
	assert.Equal(t, "New Response", volunteers[0].Name)
}

func TestParseResponses_InterestedWithoutDatesWarns(t *testing.T) {
	rows := [][]string{
		testHeader,
		testRow("", "cy@example.com", "Cy", "MS3", "", "", "UGM Shelter", "", "", "whenever", "Shelter;MD;Dermatology"),
	}

	volunteers, warnings, err := ParseResponses(rows, testClinics, time.Time{})
	require.NoError(t, err)

	assert.Empty(t, volunteers[0].Availability)
	assert.Equal(t, []string{"row 2: Cy is interested in Shelter but gave no dates"}, warnings)
}

func TestParseResponses_UnknownRankingEntry(t *testing.T) {
	rows := [][]string{
		testHeader,
		testRow("", "", "Dee", "MS1", "", "", "Agape MD", "3/14", "", "", "MD;Podiatry;Shelter"),
	}

	_, _, err := ParseResponses(rows, testClinics, time.Time{})

	var dataErr *allocator.DataIntegrityError
	require.ErrorAs(t, err, &dataErr)
	assert.Equal(t, "Dee", dataErr.Volunteer)
	assert.Contains(t, err.Error(), "Podiatry")
}

func TestParseResponses_UnrecognisedYear(t *testing.T) {
	rows := [][]string{
		testHeader,
		testRow("", "eve@example.com", "", "Resident", "", "", "", "", "", "", "MD;Dermatology;Shelter"),
	}

	_, _, err := ParseResponses(rows, testClinics, time.Time{})

	var dataErr *allocator.DataIntegrityError
	require.ErrorAs(t, err, &dataErr)
	assert.Equal(t, "eve@example.com", dataErr.Volunteer)
}

func TestParseResponses_HeaderProblems(t *testing.T) {
	t.Run("missing required column", func(t *testing.T) {
		_, _, err := ParseResponses([][]string{{HeaderName, HeaderYear}}, testClinics, time.Time{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing")
	})

	t.Run("duplicate availability column", func(t *testing.T) {
		header := append(append([]string{}, testHeader...), "Date availability (MD, second form)")
		_, _, err := ParseResponses([][]string{header}, testClinics, time.Time{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "more than one availability column for clinic MD")
	})

	t.Run("missing availability column", func(t *testing.T) {
		header := testHeader[:len(testHeader)-2]
		header = append(append([]string{}, header...), HeaderRanking)
		_, warnings, err := ParseResponses([][]string{header}, testClinics, time.Time{})
		require.NoError(t, err)
		assert.Equal(t, []string{"no availability column for clinic Shelter"}, warnings)
	})

	t.Run("since without start time", func(t *testing.T) {
		header := testHeader[1:]
		_, _, err := ParseResponses([][]string{header}, testClinics, time.Now())
		require.Error(t, err)
		assert.Contains(t, err.Error(), HeaderStartTime)
	})

	t.Run("empty", func(t *testing.T) {
		_, _, err := ParseResponses(nil, testClinics, time.Time{})
		assert.Error(t, err)
	})
}

func TestParseYear(t *testing.T) {
	cases := map[string]model.Year{
		"Undergrad":        model.YearUndergrad,
		"undergraduate":    model.YearUndergrad,
		"MS1":              model.YearMS1,
		"3rd year medical": model.YearMS3,
		"MS 4":             model.YearMS4,
	}
	for answer, expected := range cases {
		year, err := ParseYear(answer)
		require.NoError(t, err, answer)
		assert.Equal(t, expected, year, answer)
	}

	_, err := ParseYear("PGY5")
	assert.Error(t, err)
}

func TestExtractDateKeys(t *testing.T) {
	assert.Equal(t, []string{"3/14", "3/21(PM)", "12/1"},
		ExtractDateKeys("Friday 03/14; 3/21 (pm);12/01;3/14;"))
	assert.Empty(t, ExtractDateKeys("whenever works"))
}

func TestReadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "responses.csv")
	content := "First and Last Name,What year are you in?\n\"Diaz, Ana\",MS2\nBen\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	rows, err := ReadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{HeaderName, HeaderYear},
		{"Diaz, Ana", "MS2"},
		{"Ben"},
	}, rows)

	_, err = ReadCSV(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}
