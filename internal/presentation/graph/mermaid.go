package graph

import (
	"fmt"
	"strings"

	"github.com/gangwayhq/gangway/pkg/registry"
)

// Overlay contains session state to visualize on the step graph.
type Overlay struct {
	CompletedSteps []string
	CurrentStepID  string
}

// GenerateMermaid produces a Mermaid flowchart from the step registry.
// It applies semantic styling:
// - Required steps: [Rectangle]
// - Optional steps: ([Stadium])
// - Government-mandated steps: [[Subroutine]]
// Dependency edges point from prerequisite to dependent step and are
// resolved through the registry, so steps that rely on the implicit
// all-prior-required rule still get their edges. Overlay styles
// (Completed/Current) are applied if provided.
func GenerateMermaid(reg *registry.Registry, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, step := range reg.Steps() {
		safeID := sanitizeMermaidID(step.ID)

		opener, closer := "[", "]"
		switch {
		case step.GovernmentRequired:
			opener, closer = "[[", "]]"
		case !step.Required:
			opener, closer = "([", "])"
		}

		label := step.Name
		if step.EstimatedMinutes > 0 {
			label = fmt.Sprintf("%s <br/> ~%d min", step.Name, step.EstimatedMinutes)
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, label, closer))

		for _, dep := range reg.Dependencies(step.ID) {
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", sanitizeMermaidID(dep), safeID))
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text for high contrast regardless of theme.
		sb.WriteString("    classDef completed fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, id := range overlay.CompletedSteps {
			safeID := sanitizeMermaidID(id)
			if safeID != "" && !seen[safeID] {
				seen[safeID] = true
				sb.WriteString(fmt.Sprintf("    class %s completed;\n", safeID))
			}
		}

		if overlay.CurrentStepID != "" {
			sb.WriteString(fmt.Sprintf("    class %s current;\n", sanitizeMermaidID(overlay.CurrentStepID)))
		}
	}

	return sb.String()
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	return s
}
