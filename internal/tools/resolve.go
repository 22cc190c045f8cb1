package tools

import (
	"strings"

	"github.com/herdworks/yakbot/internal/linear"
)

// Resolution maps the model's human-friendly references onto snapshot
// entities. Matching is deliberately loose where references are
// conversational (projects, members) and exact where they are keys
// (issue identifiers, state names, labels).

// findIssue matches exactly on identifier, case-insensitively.
func findIssue(snap *linear.Snapshot, identifier string) *linear.Issue {
	for i := range snap.Issues {
		if strings.EqualFold(snap.Issues[i].Identifier, identifier) {
			return &snap.Issues[i]
		}
	}
	return nil
}

// findState matches exactly on state name, case-insensitively.
func findState(snap *linear.Snapshot, name string) *linear.WorkflowState {
	for i := range snap.States {
		if strings.EqualFold(snap.States[i].Name, name) {
			return &snap.States[i]
		}
	}
	return nil
}

// stateNames lists all valid state names, for failure messages that let
// the model self-correct.
func stateNames(snap *linear.Snapshot) []string {
	names := make([]string, len(snap.States))
	for i, s := range snap.States {
		names[i] = s.Name
	}
	return names
}

// findProject matches on a case-insensitive substring of the project
// name. First match wins; project references are conversational and
// ambiguity is accepted rather than disambiguated.
func findProject(snap *linear.Snapshot, name string) *linear.Project {
	needle := strings.ToLower(name)
	if needle == "" {
		// An empty needle is a substring of everything; never let it
		// match the first entry by accident.
		return nil
	}
	for i := range snap.Projects {
		if strings.Contains(strings.ToLower(snap.Projects[i].Name), needle) {
			return &snap.Projects[i]
		}
	}
	return nil
}

// findMember matches a case-insensitive substring of either the full
// name or the display name. First match wins.
func findMember(snap *linear.Snapshot, name string) *linear.Member {
	needle := strings.ToLower(name)
	if needle == "" {
		return nil
	}
	for i := range snap.Members {
		m := &snap.Members[i]
		if strings.Contains(strings.ToLower(m.Name), needle) ||
			strings.Contains(strings.ToLower(m.DisplayName), needle) {
			return m
		}
	}
	return nil
}

// memberNames lists all known member names for failure messages.
func memberNames(snap *linear.Snapshot) []string {
	names := make([]string, len(snap.Members))
	for i, m := range snap.Members {
		names[i] = m.Name
	}
	return names
}

// findLabel matches exactly on label name, case-insensitively. A nil
// return means the label does not exist yet and may be created.
func findLabel(snap *linear.Snapshot, name string) *linear.Label {
	for i := range snap.Labels {
		if strings.EqualFold(snap.Labels[i].Name, name) {
			return &snap.Labels[i]
		}
	}
	return nil
}
