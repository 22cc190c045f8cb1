// Package linear provides the Linear GraphQL API client and the
// per-invocation workspace snapshot the agent grounds itself on.
package linear

// Team identifies the workspace team the bot operates in.
type Team struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Name string `json:"name"`
}

// WorkflowState is a column on the team's board. States are referenced,
// never created, by the agent.
type WorkflowState struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"` // backlog, unstarted, started, completed, canceled
}

// Label is an issue label. Labels may be created on demand when the
// model references one that does not exist yet.
type Label struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Project groups issues under the team.
type Project struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Member is a team member who can be assigned issues.
type Member struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

// Issue is one tracker issue as read at snapshot time. Identifier is
// the human-facing key ("YAK-42") and uniquely identifies the issue
// within a snapshot.
type Issue struct {
	ID          string         `json:"id"`
	Identifier  string         `json:"identifier"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Priority    int            `json:"priority"` // 0 none … 4 low
	DueDate     string         `json:"dueDate"`  // YYYY-MM-DD, empty when unset
	State       *WorkflowState `json:"state"`
	Assignee    *Member        `json:"assignee"`
	Project     *Project       `json:"project"`
	Labels      []Label        `json:"labels"`
}

// Snapshot is an immutable read of tracker state taken once per turn or
// per digest run. It is built by [Client.FetchSnapshot], passed by
// pointer, and never mutated; staleness across turns is accepted.
type Snapshot struct {
	Team     Team
	Issues   []Issue
	States   []WorkflowState
	Labels   []Label
	Projects []Project
	Members  []Member
}
