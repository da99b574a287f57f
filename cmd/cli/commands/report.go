package commands

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jakechorley/clinic-allocator/pkg/core/allocator"
	"github.com/jakechorley/clinic-allocator/pkg/core/services"
)

const dateColumnWidth = 12

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	clinicStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	dateStyle     = lipgloss.NewStyle().Width(dateColumnWidth)
	assignedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	waitlistStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	unfilledStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	noteStyle     = lipgloss.NewStyle().Faint(true)
	successStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2"))
	failureStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))
)

// renderAllocation formats a run as one block per clinic with a line per date
func renderAllocation(result *services.AllocateClinicsResult, opts services.AllocateOptions) string {
	var b strings.Builder

	b.WriteString("\n" + titleStyle.Render("Clinic Allocation") + "\n\n")
	fmt.Fprintf(&b, "Run ID:     %s\n", result.RunID)
	fmt.Fprintf(&b, "Seed:       %d\n", result.Seed)
	fmt.Fprintf(&b, "Volunteers: %d\n", result.VolunteerCount)
	fmt.Fprintf(&b, "Status:     %s\n\n", runStatus(result, opts))

	currentClinic := ""
	for _, slot := range result.Results {
		if slot.Clinic.Code != currentClinic {
			currentClinic = slot.Clinic.Code
			b.WriteString(clinicStyle.Render(fmt.Sprintf("%s  %s", slot.Clinic.Code, slot.Clinic.Name)) + "\n")
		}
		b.WriteString("  " + dateStyle.Render(slot.DateKey) + renderSlot(slot) + "\n")
	}
	if len(result.Results) > 0 {
		b.WriteString("\n")
	}

	if len(result.IntakeWarnings) > 0 {
		fmt.Fprintf(&b, "Response warnings (%d):\n", len(result.IntakeWarnings))
		for _, warning := range result.IntakeWarnings {
			b.WriteString("  • " + warning + "\n")
		}
		b.WriteString("\n")
	}

	if outcome := result.Outcome; outcome != nil {
		if len(outcome.ValidationErrors) > 0 {
			b.WriteString(failureStyle.Render(fmt.Sprintf("Validation errors (%d):", len(outcome.ValidationErrors))) + "\n")
			for _, verr := range outcome.ValidationErrors {
				b.WriteString("  • " + verr.String() + "\n")
			}
			b.WriteString("\n")
		}

		if len(outcome.Unassigned) > 0 {
			names := make([]string, 0, len(outcome.Unassigned))
			for _, candidate := range outcome.Unassigned {
				names = append(names, candidate.Volunteer.Label())
			}
			fmt.Fprintf(&b, "Unassigned (%d): %s\n\n", len(names), strings.Join(names, ", "))
		}

		if len(outcome.Warnings) > 0 {
			fmt.Fprintf(&b, "Warnings (%d):\n", len(outcome.Warnings))
			for _, warning := range outcome.Warnings {
				b.WriteString("  • " + warning.String() + "\n")
			}
			b.WriteString("\n")
		}
	}

	if result.PublishedTab != "" {
		fmt.Fprintf(&b, "Published to tab %q\n", result.PublishedTab)
	}

	return b.String()
}

func runStatus(result *services.AllocateClinicsResult, opts services.AllocateOptions) string {
	switch {
	case opts.DryRun:
		return noteStyle.Render("DRY RUN (not saved)")
	case result.Success() && result.Saved:
		return successStyle.Render("SUCCESS (saved)")
	case result.Success():
		return successStyle.Render("SUCCESS (no database configured)")
	case result.Saved:
		return failureStyle.Render("FORCED (saved despite validation errors)")
	}
	return failureStyle.Render("FAILED (not saved)")
}

// renderSlot lists the assigned volunteers then the waitlists and any open places
func renderSlot(slot allocator.SlotResult) string {
	var parts []string

	if names := placementNames(slot.DefaultAssignments, assignedStyle); names != "" {
		parts = append(parts, names)
	}
	if names := placementNames(slot.TranslatorAssignments, assignedStyle); names != "" {
		parts = append(parts, "translators: "+names)
	}
	if len(parts) == 0 {
		parts = append(parts, noteStyle.Render("none"))
	}

	if names := placementNames(slot.DefaultWaitlist, waitlistStyle); names != "" {
		parts = append(parts, "waitlist: "+names)
	}
	if names := placementNames(slot.TranslatorWaitlist, waitlistStyle); names != "" {
		parts = append(parts, "translator waitlist: "+names)
	}

	if slot.UnfilledDefault > 0 {
		parts = append(parts, unfilledStyle.Render(fmt.Sprintf("%d open", slot.UnfilledDefault)))
	}
	if slot.UnfilledTranslators > 0 {
		parts = append(parts, unfilledStyle.Render(fmt.Sprintf("%d translator open", slot.UnfilledTranslators)))
	}

	return strings.Join(parts, "  |  ")
}

func placementNames(placements []allocator.Placement, style lipgloss.Style) string {
	names := make([]string, 0, len(placements))
	for _, p := range placements {
		name := style.Render(p.Name) + noteStyle.Render(" ("+p.Year.String()+")")
		if p.Preassigned {
			name += noteStyle.Render(" [pre]")
		}
		if p.Fill {
			name += noteStyle.Render(" [fill]")
		}
		names = append(names, name)
	}
	return strings.Join(names, ", ")
}

// renderRuns formats saved runs, newest first
func renderRuns(summaries []services.RunSummary) string {
	if len(summaries) == 0 {
		return "\nNo allocation runs saved yet.\n"
	}

	var b strings.Builder
	b.WriteString("\n" + titleStyle.Render(fmt.Sprintf("Allocation runs (last %d)", len(summaries))) + "\n\n")

	for _, summary := range summaries {
		run := summary.Run
		status := successStyle.Render("ok")
		if !run.Success {
			status = failureStyle.Render("forced")
		}

		fmt.Fprintf(&b, "%s  %s  %s  env=%s seed=%s\n",
			run.CreatedAt.Local().Format("2006-01-02 15:04"), run.ID, status, run.Env, run.Seed)
		fmt.Fprintf(&b, "  volunteers %d, assigned %d, waitlisted %d, unassigned %d, warnings %d\n",
			run.VolunteerCount, run.AssignedCount, run.WaitlistedCount, run.UnassignedCount, run.WarningCount)
		for _, clinic := range summary.Clinics {
			line := fmt.Sprintf("  %-12s assigned %d, waitlisted %d", clinic.ClinicCode, clinic.Assigned, clinic.Waitlisted)
			if clinic.Fill > 0 {
				line += fmt.Sprintf(" (%d fill)", clinic.Fill)
			}
			b.WriteString(line + "\n")
		}
		b.WriteString("\n")
	}

	return b.String()
}

// renderClinics formats the resolved constraint tables
func renderClinics(summaries []services.ClinicSummary) string {
	var b strings.Builder
	b.WriteString("\n" + successStyle.Render("Configuration is valid") + "\n\n")

	for _, summary := range summaries {
		c := summary.Constraints
		b.WriteString(clinicStyle.Render(fmt.Sprintf("%s  %s", summary.Clinic.Code, summary.Clinic.Name)) + "\n")
		fmt.Fprintf(&b, "  max %d default, %d translators\n", c.MaxDefault, c.MaxTranslators)
		fmt.Fprintf(&b, "  quotas: %s\n", formatYearGroups(c))
		fmt.Fprintf(&b, "  elective %s, tie-break %s\n", c.Elective, c.TieBreak)
		if len(summary.OfferedDates) > 0 {
			fmt.Fprintf(&b, "  runs on: %s\n", strings.Join(summary.OfferedDates, ", "))
		} else {
			b.WriteString("  runs on: any date\n")
		}
		b.WriteString("\n")
	}

	return b.String()
}

// formatYearGroups renders groups like "Undergrad 0, MS1 2, MS2+MS3+MS4 3"
func formatYearGroups(c allocator.ClinicConstraints) string {
	groups := make([]string, 0, len(c.YearGroups))
	for _, group := range c.YearGroups {
		years := make([]string, len(group))
		for i, year := range group {
			years[i] = year.String()
		}
		quota := 0
		if len(group) > 0 && group[0].IsValid() {
			quota = c.YearMax[group[0]]
		}
		groups = append(groups, fmt.Sprintf("%s %d", strings.Join(years, "+"), quota))
	}
	return strings.Join(groups, ", ")
}
