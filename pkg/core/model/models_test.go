package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseElectiveMode_AcceptsClosedSet(t *testing.T) {
	cases := map[string]ElectiveMode{
		"Prefer":           ElectivePrefer,
		"indifferent":      ElectiveIndifferent,
		"":                 ElectiveIndifferent,
		"RequireElective":  ElectiveRequire,
		"require elective": ElectiveRequire,
	}
	for input, expected := range cases {
		mode, err := ParseElectiveMode(input)
		require.NoError(t, err, input)
		assert.Equal(t, expected, mode, input)
	}
}

func TestParseElectiveMode_RejectsUnknown(t *testing.T) {
	_, err := ParseElectiveMode("sometimes")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sometimes")
}

func TestParseTieBreak(t *testing.T) {
	mode, err := ParseTieBreak("Year Ascending")
	require.NoError(t, err)
	assert.Equal(t, TieBreakYearAscending, mode)

	mode, err = ParseTieBreak("year_descending")
	require.NoError(t, err)
	assert.Equal(t, TieBreakYearDescending, mode)

	mode, err = ParseTieBreak("")
	require.NoError(t, err)
	assert.Equal(t, TieBreakRandom, mode)

	_, err = ParseTieBreak("alphabetical")
	assert.Error(t, err)
}

func TestYearString(t *testing.T) {
	assert.Equal(t, "Undergrad", YearUndergrad.String())
	assert.Equal(t, "MS3", YearMS3.String())
	assert.False(t, Year(5).IsValid())
}
