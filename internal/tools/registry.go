// Package tools defines the operations the agent may invoke against
// the tracker, and executes them.
package tools

// Tool describes one callable operation: a name, a description for the
// model, and a JSON schema for its parameters. Definitions are static;
// the catalog is fixed at process start.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Registry is the static catalog of operations. Order is stable and is
// presented to the model verbatim.
type Registry struct {
	tools []Tool
}

// NewRegistry builds the operation catalog.
func NewRegistry() *Registry {
	r := &Registry{}

	r.add(Tool{
		Name:        "set_status",
		Description: "Move an issue to a workflow state (e.g. Todo, In Progress, Done).",
		Parameters: schema(map[string]any{
			"issue_id": prop("string", "The issue identifier, e.g. YAK-42"),
			"status":   prop("string", "The workflow state name to move the issue to"),
		}, "issue_id", "status"),
	})

	r.add(Tool{
		Name:        "set_priority",
		Description: "Set an issue's priority. 0 = none, 1 = urgent, 2 = high, 3 = medium, 4 = low.",
		Parameters: schema(map[string]any{
			"issue_id": prop("string", "The issue identifier, e.g. YAK-42"),
			"priority": prop("integer", "Priority ordinal, 0 through 4"),
		}, "issue_id", "priority"),
	})

	r.add(Tool{
		Name:        "add_comment",
		Description: "Add a comment to an issue.",
		Parameters: schema(map[string]any{
			"issue_id": prop("string", "The issue identifier, e.g. YAK-42"),
			"body":     prop("string", "The comment text (markdown allowed)"),
		}, "issue_id", "body"),
	})

	r.add(Tool{
		Name:        "add_label",
		Description: "Add a label to an issue. The label is created if it does not exist yet.",
		Parameters: schema(map[string]any{
			"issue_id": prop("string", "The issue identifier, e.g. YAK-42"),
			"label":    prop("string", "The label name"),
		}, "issue_id", "label"),
	})

	r.add(Tool{
		Name:        "create_issue",
		Description: "Create a new issue, optionally with child issues under it.",
		Parameters: schema(map[string]any{
			"title":       prop("string", "The issue title"),
			"description": prop("string", "Optional issue description (markdown allowed)"),
			"project":     prop("string", "Optional project name to file the issue under"),
			"status":      prop("string", "Optional workflow state name for the new issue"),
			"children": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Optional titles of child issues to create under the new issue",
			},
		}, "title"),
	})

	r.add(Tool{
		Name:        "create_project",
		Description: "Create a new project in the team.",
		Parameters: schema(map[string]any{
			"name": prop("string", "The project name"),
		}, "name"),
	})

	r.add(Tool{
		Name:        "assign_issue",
		Description: "Assign an issue to a team member by name.",
		Parameters: schema(map[string]any{
			"issue_id": prop("string", "The issue identifier, e.g. YAK-42"),
			"member":   prop("string", "The member's name, or part of it"),
		}, "issue_id", "member"),
	})

	r.add(Tool{
		Name:        "set_due_date",
		Description: "Set or clear an issue's due date. Pass an empty string to clear it.",
		Parameters: schema(map[string]any{
			"issue_id": prop("string", "The issue identifier, e.g. YAK-42"),
			"due_date": prop("string", "Due date as YYYY-MM-DD, or empty to clear"),
		}, "issue_id", "due_date"),
	})

	return r
}

func (r *Registry) add(t Tool) {
	r.tools = append(r.tools, t)
}

// Tools returns the catalog in registration order.
func (r *Registry) Tools() []Tool {
	return r.tools
}

// Has reports whether the named operation exists.
func (r *Registry) Has(name string) bool {
	for _, t := range r.tools {
		if t.Name == name {
			return true
		}
	}
	return false
}

// List returns the catalog in the function-definition format the model
// client expects, in stable registration order.
func (r *Registry) List() []map[string]any {
	result := make([]map[string]any, 0, len(r.tools))
	for _, t := range r.tools {
		result = append(result, map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        t.Name,
				"description": t.Description,
				"parameters":  t.Parameters,
			},
		})
	}
	return result
}

func schema(props map[string]any, required ...string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func prop(typ, desc string) map[string]any {
	return map[string]any{"type": typ, "description": desc}
}
