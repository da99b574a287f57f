package intake

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jakechorley/clinic-allocator/pkg/core/model"
)

// excelEpoch is day zero of spreadsheet serial dates
var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// wholeDateKeyPattern matches a value that is exactly one date-key
var wholeDateKeyPattern = regexp.MustCompile(`^` + dateKeyPattern.String() + `$`)

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006",
}

// ParseTimestamp parses a form submission time, either a spreadsheet serial number or
// one of the common text layouts. Times without a zone are read as UTC.
func ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("submission time is empty")
	}

	if serial, err := strconv.ParseFloat(value, 64); err == nil {
		ms := math.Round(serial * 24 * 60 * 60 * 1000)
		return excelEpoch.Add(time.Duration(ms) * time.Millisecond), nil
	}

	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognised submission time %q", value)
}

// NormaliseDateKey brings a configured date such as "03/14" or "3/21 (pm)" into the
// form response date-keys take ("3/14", "3/21(PM)"). It reports false when the value
// is not a single date-key.
func NormaliseDateKey(value string) (string, bool) {
	match := wholeDateKeyPattern.FindStringSubmatch(strings.TrimSpace(value))
	if match == nil {
		return "", false
	}
	return normaliseDateKey(match[1], match[2], match[3]), true
}

// SortDateKeys orders date-keys by month then day. Keys on the same day keep a lexical
// order, and keys without a leading M/D sort last.
func SortDateKeys(keys []string) []string {
	sorted := append([]string{}, keys...)
	sort.SliceStable(sorted, func(i, j int) bool {
		mi, di, okI := monthDay(sorted[i])
		mj, dj, okJ := monthDay(sorted[j])
		switch {
		case okI != okJ:
			return okI
		case !okI:
			return sorted[i] < sorted[j]
		case mi != mj:
			return mi < mj
		case di != dj:
			return di < dj
		}
		return sorted[i] < sorted[j]
	})
	return sorted
}

// DateKeys returns every distinct date-key volunteers marked, in calendar order
func DateKeys(volunteers []model.Volunteer, extra ...[]string) []string {
	seen := make(map[string]bool)
	var keys []string
	add := func(key string) {
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}

	for _, v := range volunteers {
		for _, dates := range v.Availability {
			for _, key := range dates {
				add(key)
			}
		}
	}
	for _, dates := range extra {
		for _, key := range dates {
			add(key)
		}
	}

	return SortDateKeys(keys)
}

func monthDay(key string) (int, int, bool) {
	match := dateKeyPattern.FindStringSubmatchIndex(key)
	if match == nil || match[0] != 0 {
		return 0, 0, false
	}
	month, _ := strconv.Atoi(key[match[2]:match[3]])
	day, _ := strconv.Atoi(key[match[4]:match[5]])
	return month, day, true
}
