package agent

import (
	"fmt"
	"strings"

	"github.com/herdworks/yakbot/internal/linear"
)

// groundingPrompt renders the snapshot into the system instruction for
// one turn. The model sees the live board so it can resolve loose task
// references without extra round-trips.
func groundingPrompt(snap *linear.Snapshot) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "You are yakbot, a task assistant for the %s team's Linear workspace.\n", snap.Team.Name)
	sb.WriteString("You receive short chat messages about project work and keep the tracker up to date using the available tools.\n\n")

	sb.WriteString("Current issues:\n")
	if len(snap.Issues) == 0 {
		sb.WriteString("(none)\n")
	}
	for _, iss := range snap.Issues {
		fmt.Fprintf(&sb, "- %s: %s [%s", iss.Identifier, iss.Title, stateName(iss.State))
		if iss.Assignee != nil {
			fmt.Fprintf(&sb, ", assignee: %s", iss.Assignee.Name)
		}
		if iss.Project != nil {
			fmt.Fprintf(&sb, ", project: %s", iss.Project.Name)
		}
		if iss.DueDate != "" {
			fmt.Fprintf(&sb, ", due %s", iss.DueDate)
		}
		sb.WriteString("]\n")
	}

	sb.WriteString("\nWorkflow states: ")
	names := make([]string, len(snap.States))
	for i, s := range snap.States {
		names[i] = s.Name
	}
	sb.WriteString(strings.Join(names, ", "))
	sb.WriteString("\n\n")

	sb.WriteString("Guidelines:\n")
	sb.WriteString("- People refer to tasks loosely; match them to issues by identifier or title without demanding exact wording.\n")
	sb.WriteString("- If a reference is genuinely ambiguous, ask instead of guessing.\n")
	sb.WriteString("- Reply briefly, in plain text. No markdown formatting.\n")
	sb.WriteString("- After making changes, confirm what you did in one or two sentences.\n")

	return sb.String()
}

func stateName(s *linear.WorkflowState) string {
	if s == nil {
		return "unknown"
	}
	return s.Name
}
