// Package tui renders the wizard's markdown content and chrome for the
// terminal.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/gangwayhq/gangway/pkg/flow"
)

// NewRenderer returns a function that renders markdown using glamour,
// auto-detecting a light or dark terminal background.
func NewRenderer() func(string) (string, error) {
	r, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
	)

	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}

// StepHeading builds the markdown heading for one wizard step,
// including its position and estimated duration.
func StepHeading(step flow.Step, position, total int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", step.Name)
	fmt.Fprintf(&sb, "**Step %d of %d**", position, total)
	if step.EstimatedMinutes > 0 {
		fmt.Fprintf(&sb, " · about %d min", step.EstimatedMinutes)
	}
	if step.GovernmentRequired {
		sb.WriteString(" · government form")
	}
	sb.WriteString("\n")
	if step.Description != "" {
		fmt.Fprintf(&sb, "\n%s\n", step.Description)
	}
	return sb.String()
}

// ProgressBar renders a text progress bar for the given percentage.
func ProgressBar(percent, width int) string {
	if width <= 0 {
		width = 20
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := percent * width / 100
	return fmt.Sprintf("[%s%s] %d%%",
		strings.Repeat("█", filled),
		strings.Repeat("░", width-filled),
		percent,
	)
}

// StatusIcon maps a step state to its list marker.
func StatusIcon(state flow.StepStatus) string {
	switch state {
	case flow.StatusComplete:
		return "✓"
	case flow.StatusInProgress:
		return "▸"
	case flow.StatusLocked:
		return "🔒"
	default:
		return "○"
	}
}
