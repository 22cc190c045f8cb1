package tools

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/herdworks/yakbot/internal/linear"
)

// Tracker is the mutation surface of the Linear client consumed by the
// executor. Tests substitute a recording fake.
type Tracker interface {
	UpdateIssue(ctx context.Context, issueID string, fields map[string]any) error
	CreateIssue(ctx context.Context, in linear.CreateIssueInput) (identifier, id string, err error)
	CreateComment(ctx context.Context, issueID, body string) error
	CreateProject(ctx context.Context, teamID, name string) (string, error)
	CreateLabel(ctx context.Context, teamID, name string) (linear.Label, error)
}

// Executor resolves operation parameters against a snapshot and applies
// side effects through the tracker. Every path returns an Outcome;
// tracker errors are wrapped, never propagated.
type Executor struct {
	tracker Tracker
	logger  *slog.Logger
}

// NewExecutor creates an executor over the given tracker.
func NewExecutor(tracker Tracker, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{tracker: tracker, logger: logger}
}

// Execute runs one named operation. Dispatch is over the fixed
// operation set; an unknown name is a Failure outcome, not an error.
// The snapshot is read-only input; a stale snapshot means resolution
// reflects turn-start state, which is accepted.
func (e *Executor) Execute(ctx context.Context, name string, args map[string]any, snap *linear.Snapshot) Outcome {
	e.logger.Info("executing operation", "operation", name)

	var out Outcome
	switch name {
	case "set_status":
		out = e.setStatus(ctx, args, snap)
	case "set_priority":
		out = e.setPriority(ctx, args, snap)
	case "add_comment":
		out = e.addComment(ctx, args, snap)
	case "add_label":
		out = e.addLabel(ctx, args, snap)
	case "create_issue":
		out = e.createIssue(ctx, args, snap)
	case "create_project":
		out = e.createProject(ctx, args, snap)
	case "assign_issue":
		out = e.assignIssue(ctx, args, snap)
	case "set_due_date":
		out = e.setDueDate(ctx, args, snap)
	default:
		out = failure("unknown operation %q", name)
	}

	if !out.Success {
		e.logger.Warn("operation failed", "operation", name, "reason", out.Error)
	}
	return out
}

func (e *Executor) setStatus(ctx context.Context, args map[string]any, snap *linear.Snapshot) Outcome {
	issue := findIssue(snap, stringArg(args, "issue_id"))
	if issue == nil {
		return failure("no issue found with identifier %q", stringArg(args, "issue_id"))
	}
	state := findState(snap, stringArg(args, "status"))
	if state == nil {
		return failure("unknown status %q; valid states are: %s",
			stringArg(args, "status"), strings.Join(stateNames(snap), ", "))
	}

	if err := e.tracker.UpdateIssue(ctx, issue.ID, map[string]any{"stateId": state.ID}); err != nil {
		return failure("update %s: %v", issue.Identifier, err)
	}
	return success(map[string]any{"issue": issue.Identifier, "status": state.Name})
}

func (e *Executor) setPriority(ctx context.Context, args map[string]any, snap *linear.Snapshot) Outcome {
	issue := findIssue(snap, stringArg(args, "issue_id"))
	if issue == nil {
		return failure("no issue found with identifier %q", stringArg(args, "issue_id"))
	}
	priority, ok := intArg(args, "priority")
	if !ok {
		return failure("priority must be a number")
	}

	// The ordinal is passed through as given; range validation is the
	// tracker's problem.
	if err := e.tracker.UpdateIssue(ctx, issue.ID, map[string]any{"priority": priority}); err != nil {
		return failure("update %s: %v", issue.Identifier, err)
	}
	return success(map[string]any{"issue": issue.Identifier, "priority": priority})
}

func (e *Executor) addComment(ctx context.Context, args map[string]any, snap *linear.Snapshot) Outcome {
	issue := findIssue(snap, stringArg(args, "issue_id"))
	if issue == nil {
		return failure("no issue found with identifier %q", stringArg(args, "issue_id"))
	}
	body := stringArg(args, "body")
	if body == "" {
		return failure("comment body is empty")
	}

	if err := e.tracker.CreateComment(ctx, issue.ID, body); err != nil {
		return failure("comment on %s: %v", issue.Identifier, err)
	}
	return success(map[string]any{"issue": issue.Identifier, "commented": true})
}

func (e *Executor) addLabel(ctx context.Context, args map[string]any, snap *linear.Snapshot) Outcome {
	issue := findIssue(snap, stringArg(args, "issue_id"))
	if issue == nil {
		return failure("no issue found with identifier %q", stringArg(args, "issue_id"))
	}
	name := stringArg(args, "label")
	if name == "" {
		return failure("label name is empty")
	}

	label := findLabel(snap, name)
	created := false
	if label == nil {
		// Implicit creation: a label the workspace has never seen is
		// created rather than rejected. There is no undo and no dedup
		// against concurrent creation.
		newLabel, err := e.tracker.CreateLabel(ctx, snap.Team.ID, name)
		if err != nil {
			return failure("create label %q: %v", name, err)
		}
		label = &newLabel
		created = true
	}

	// Idempotent by id membership: re-adding an attached label is a
	// successful no-op with no mutation.
	labelIDs := make([]string, 0, len(issue.Labels)+1)
	for _, l := range issue.Labels {
		if l.ID == label.ID {
			return success(map[string]any{
				"issue": issue.Identifier, "label": label.Name, "already_present": true,
			})
		}
		labelIDs = append(labelIDs, l.ID)
	}
	labelIDs = append(labelIDs, label.ID)

	if err := e.tracker.UpdateIssue(ctx, issue.ID, map[string]any{"labelIds": labelIDs}); err != nil {
		return failure("label %s: %v", issue.Identifier, err)
	}
	result := map[string]any{"issue": issue.Identifier, "label": label.Name}
	if created {
		result["label_created"] = true
	}
	return success(result)
}

func (e *Executor) createIssue(ctx context.Context, args map[string]any, snap *linear.Snapshot) Outcome {
	title := stringArg(args, "title")
	if title == "" {
		return failure("issue title is empty")
	}

	in := linear.CreateIssueInput{
		TeamID:      snap.Team.ID,
		Title:       title,
		Description: stringArg(args, "description"),
	}

	if name := stringArg(args, "project"); name != "" {
		project := findProject(snap, name)
		if project == nil {
			return failure("no project matching %q", name)
		}
		in.ProjectID = project.ID
	}
	if name := stringArg(args, "status"); name != "" {
		state := findState(snap, name)
		if state == nil {
			return failure("unknown status %q; valid states are: %s",
				name, strings.Join(stateNames(snap), ", "))
		}
		in.StateID = state.ID
	}

	parentIdent, parentID, err := e.tracker.CreateIssue(ctx, in)
	if err != nil {
		return failure("create issue: %v", err)
	}

	// Children are created sequentially with no rollback: a failure
	// partway leaves the parent and earlier children committed. This is
	// an at-least-once, non-transactional operation.
	children := stringSliceArg(args, "children")
	var createdChildren []string
	for _, childTitle := range children {
		childIdent, _, err := e.tracker.CreateIssue(ctx, linear.CreateIssueInput{
			TeamID:    snap.Team.ID,
			Title:     childTitle,
			ProjectID: in.ProjectID,
			ParentID:  parentID,
		})
		if err != nil {
			return failure("created %s but failed on child %q: %v (already created: %s)",
				parentIdent, childTitle, err, strings.Join(createdChildren, ", "))
		}
		createdChildren = append(createdChildren, childIdent)
	}

	result := map[string]any{"issue": parentIdent}
	if len(createdChildren) > 0 {
		result["children"] = createdChildren
	}
	return success(result)
}

func (e *Executor) createProject(ctx context.Context, args map[string]any, snap *linear.Snapshot) Outcome {
	name := stringArg(args, "name")
	if name == "" {
		return failure("project name is empty")
	}

	if _, err := e.tracker.CreateProject(ctx, snap.Team.ID, name); err != nil {
		return failure("create project %q: %v", name, err)
	}
	return success(map[string]any{"project": name})
}

func (e *Executor) assignIssue(ctx context.Context, args map[string]any, snap *linear.Snapshot) Outcome {
	issue := findIssue(snap, stringArg(args, "issue_id"))
	if issue == nil {
		return failure("no issue found with identifier %q", stringArg(args, "issue_id"))
	}
	name := stringArg(args, "member")
	if name == "" {
		return failure("member name is empty")
	}
	member := findMember(snap, name)
	if member == nil {
		return failure("no member matching %q; team members are: %s",
			name, strings.Join(memberNames(snap), ", "))
	}

	if err := e.tracker.UpdateIssue(ctx, issue.ID, map[string]any{"assigneeId": member.ID}); err != nil {
		return failure("assign %s: %v", issue.Identifier, err)
	}
	return success(map[string]any{"issue": issue.Identifier, "assignee": member.Name})
}

func (e *Executor) setDueDate(ctx context.Context, args map[string]any, snap *linear.Snapshot) Outcome {
	issue := findIssue(snap, stringArg(args, "issue_id"))
	if issue == nil {
		return failure("no issue found with identifier %q", stringArg(args, "issue_id"))
	}

	due := strings.TrimSpace(stringArg(args, "due_date"))
	fields := map[string]any{"dueDate": due}
	if due == "" {
		// Blank input clears the due date via an explicit null.
		fields["dueDate"] = nil
	}

	if err := e.tracker.UpdateIssue(ctx, issue.ID, fields); err != nil {
		return failure("update %s: %v", issue.Identifier, err)
	}
	if due == "" {
		return success(map[string]any{"issue": issue.Identifier, "due_date_cleared": true})
	}
	return success(map[string]any{"issue": issue.Identifier, "due_date": due})
}

// Argument extraction. The model sends JSON, so numbers arrive as
// float64 and anything may be missing or mistyped.

func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

func intArg(args map[string]any, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	default:
		return 0, false
	}
}

func stringSliceArg(args map[string]any, key string) []string {
	raw, ok := args[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Describe returns a short log-friendly rendering of an operation call.
func Describe(name string, args map[string]any) string {
	if id := stringArg(args, "issue_id"); id != "" {
		return fmt.Sprintf("%s(%s)", name, id)
	}
	return name
}
