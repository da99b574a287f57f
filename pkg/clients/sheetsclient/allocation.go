package sheetsclient

import (
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/sheets/v4"

	"github.com/jakechorley/clinic-allocator/pkg/core/allocator"
	"github.com/jakechorley/clinic-allocator/pkg/core/model"
)

// AllocationHeader is the first row of a published allocation tab
var AllocationHeader = []interface{}{
	"Clinic", "Date", "Kind", "Status", "#", "Volunteer", "Email", "Year", "Rank", "Notes",
}

const (
	statusAssigned   = "Assigned"
	statusWaitlisted = "Waitlisted"
	statusUnfilled   = "Unfilled"
)

// AllocationTabTitle names the tab for a run, e.g. "Allocation 2026-03-01 14:05"
func AllocationTabTitle(createdAt time.Time) string {
	return "Allocation " + createdAt.Format("2006-01-02 15:04")
}

// PublishAllocation writes the results to a tab, creating it if needed.
// An existing tab with the same title is cleared and overwritten.
func (c *Client) PublishAllocation(spreadsheetID, title string, results []allocator.SlotResult) error {
	exists, err := c.hasSheet(spreadsheetID, title)
	if err != nil {
		return err
	}

	if exists {
		_, err = c.service.Spreadsheets.Values.Clear(spreadsheetID, title, &sheets.ClearValuesRequest{}).Do()
		if err != nil {
			return fmt.Errorf("failed to clear tab %q: %w", title, err)
		}
	} else {
		if _, err := c.CreateSheet(spreadsheetID, title); err != nil {
			return fmt.Errorf("failed to create tab: %w", err)
		}
	}

	_, err = c.service.Spreadsheets.Values.Update(
		spreadsheetID,
		fmt.Sprintf("'%s'!A1", title),
		&sheets.ValueRange{Values: BuildAllocationRows(results)},
	).ValueInputOption("RAW").Do()
	if err != nil {
		return fmt.Errorf("failed to write allocation to tab %q: %w", title, err)
	}

	return nil
}

// BuildAllocationRows flattens results into sheet rows: per clinic-date, assigned then
// waitlisted volunteers for each kind, then a row for any places left unfilled
func BuildAllocationRows(results []allocator.SlotResult) [][]interface{} {
	rows := [][]interface{}{AllocationHeader}

	for _, result := range results {
		kinds := []struct {
			kind     model.Kind
			assigned []allocator.Placement
			waitlist []allocator.Placement
			unfilled int
		}{
			{model.KindDefault, result.DefaultAssignments, result.DefaultWaitlist, result.UnfilledDefault},
			{model.KindSpanishTranslator, result.TranslatorAssignments, result.TranslatorWaitlist, result.UnfilledTranslators},
		}

		for _, k := range kinds {
			for i, p := range k.assigned {
				rows = append(rows, placementRow(result, k.kind, statusAssigned, i+1, p))
			}
			for i, p := range k.waitlist {
				rows = append(rows, placementRow(result, k.kind, statusWaitlisted, i+1, p))
			}
			if k.unfilled > 0 {
				rows = append(rows, []interface{}{
					result.Clinic.Code, result.DateKey, k.kind.String(), statusUnfilled, k.unfilled,
					"", "", "", "", "",
				})
			}
		}
	}

	return rows
}

func placementRow(result allocator.SlotResult, kind model.Kind, status string, position int, p allocator.Placement) []interface{} {
	return []interface{}{
		result.Clinic.Code,
		result.DateKey,
		kind.String(),
		status,
		position,
		p.Name,
		p.Email,
		p.Year.String(),
		p.Rank,
		placementNotes(p),
	}
}

func placementNotes(p allocator.Placement) string {
	var notes []string
	if p.Preassigned {
		notes = append(notes, "preassigned")
	}
	if p.Fill {
		notes = append(notes, "fill")
	}
	if p.Elective {
		notes = append(notes, "elective")
	}
	return strings.Join(notes, ", ")
}
