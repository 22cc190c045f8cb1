package linear

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/herdworks/yakbot/internal/httpkit"
)

const defaultEndpoint = "https://api.linear.app/graphql"

// Client is a Linear GraphQL API client. The API key is injected at
// construction; nothing in this package reaches for ambient credentials.
type Client struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a Linear client. endpoint may be empty to use the
// public API; tests point it at an httptest server.
func NewClient(apiKey, endpoint string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	return &Client{
		apiKey:     apiKey,
		endpoint:   endpoint,
		logger:     logger.With("provider", "linear"),
		httpClient: httpkit.NewClient(),
	}
}

// graphQLError is one entry in a GraphQL "errors" array.
type graphQLError struct {
	Message string `json:"message"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

// do executes one GraphQL request and decodes the "data" object into
// out. API-reported errors and transport failures both surface as
// returned errors; callers at the turn boundary convert them into
// user-visible diagnostics.
func (c *Client) do(ctx context.Context, query string, variables map[string]any, out any) error {
	body, err := json.Marshal(map[string]any{
		"query":     query,
		"variables": variables,
	})
	if err != nil {
		return fmt.Errorf("marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("linear request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody := httpkit.ReadErrorBody(resp.Body, 4096)
		return fmt.Errorf("linear API error %d: %s", resp.StatusCode, errBody)
	}

	var gql graphQLResponse
	if err := json.NewDecoder(resp.Body).Decode(&gql); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if len(gql.Errors) > 0 {
		msgs := make([]string, len(gql.Errors))
		for i, e := range gql.Errors {
			msgs[i] = e.Message
		}
		return fmt.Errorf("linear graphql: %s", strings.Join(msgs, "; "))
	}

	if out != nil {
		if err := json.Unmarshal(gql.Data, out); err != nil {
			return fmt.Errorf("decode data: %w", err)
		}
	}
	return nil
}

const issueFields = `
	id
	identifier
	title
	description
	priority
	dueDate
	state { id name type }
	assignee { id name displayName }
	project { id name }
	labels { nodes { id name } }
`

// wireIssue matches the GraphQL issue shape; labels arrive behind a
// nodes wrapper that we flatten into [Issue].
type wireIssue struct {
	Issue
	Labels struct {
		Nodes []Label `json:"nodes"`
	} `json:"labels"`
}

func (w *wireIssue) flatten() Issue {
	iss := w.Issue
	iss.Labels = w.Labels.Nodes
	return iss
}

// FetchTeam returns the first team visible to the API key. The bot
// operates within exactly one team.
func (c *Client) FetchTeam(ctx context.Context) (Team, error) {
	var data struct {
		Teams struct {
			Nodes []Team `json:"nodes"`
		} `json:"teams"`
	}
	err := c.do(ctx, `query { teams(first: 1) { nodes { id key name } } }`, nil, &data)
	if err != nil {
		return Team{}, fmt.Errorf("fetch team: %w", err)
	}
	if len(data.Teams.Nodes) == 0 {
		return Team{}, fmt.Errorf("fetch team: no teams visible to this API key")
	}
	return data.Teams.Nodes[0], nil
}

// FetchActiveIssues returns the team's issues that are not completed or
// canceled, in the API's default order.
func (c *Client) FetchActiveIssues(ctx context.Context, teamID string) ([]Issue, error) {
	var data struct {
		Issues struct {
			Nodes []wireIssue `json:"nodes"`
		} `json:"issues"`
	}
	query := fmt.Sprintf(`query($teamId: ID!) {
		issues(
			first: 100
			filter: {
				team: { id: { eq: $teamId } }
				state: { type: { nin: ["completed", "canceled"] } }
			}
		) { nodes { %s } }
	}`, issueFields)

	if err := c.do(ctx, query, map[string]any{"teamId": teamID}, &data); err != nil {
		return nil, fmt.Errorf("fetch issues: %w", err)
	}

	issues := make([]Issue, len(data.Issues.Nodes))
	for i := range data.Issues.Nodes {
		issues[i] = data.Issues.Nodes[i].flatten()
	}
	return issues, nil
}

// FetchWorkflowStates returns the team's board columns.
func (c *Client) FetchWorkflowStates(ctx context.Context, teamID string) ([]WorkflowState, error) {
	var data struct {
		WorkflowStates struct {
			Nodes []WorkflowState `json:"nodes"`
		} `json:"workflowStates"`
	}
	query := `query($teamId: ID!) {
		workflowStates(filter: { team: { id: { eq: $teamId } } }) {
			nodes { id name type }
		}
	}`
	if err := c.do(ctx, query, map[string]any{"teamId": teamID}, &data); err != nil {
		return nil, fmt.Errorf("fetch workflow states: %w", err)
	}
	return data.WorkflowStates.Nodes, nil
}

// FetchLabels returns all issue labels visible to the API key.
func (c *Client) FetchLabels(ctx context.Context) ([]Label, error) {
	var data struct {
		IssueLabels struct {
			Nodes []Label `json:"nodes"`
		} `json:"issueLabels"`
	}
	if err := c.do(ctx, `query { issueLabels { nodes { id name } } }`, nil, &data); err != nil {
		return nil, fmt.Errorf("fetch labels: %w", err)
	}
	return data.IssueLabels.Nodes, nil
}

// FetchProjects returns the team's projects.
func (c *Client) FetchProjects(ctx context.Context, teamID string) ([]Project, error) {
	var data struct {
		Team struct {
			Projects struct {
				Nodes []Project `json:"nodes"`
			} `json:"projects"`
		} `json:"team"`
	}
	query := `query($teamId: String!) {
		team(id: $teamId) { projects { nodes { id name } } }
	}`
	if err := c.do(ctx, query, map[string]any{"teamId": teamID}, &data); err != nil {
		return nil, fmt.Errorf("fetch projects: %w", err)
	}
	return data.Team.Projects.Nodes, nil
}

// FetchMembers returns the team's members.
func (c *Client) FetchMembers(ctx context.Context, teamID string) ([]Member, error) {
	var data struct {
		Team struct {
			Members struct {
				Nodes []Member `json:"nodes"`
			} `json:"members"`
		} `json:"team"`
	}
	query := `query($teamId: String!) {
		team(id: $teamId) { members { nodes { id name displayName } } }
	}`
	if err := c.do(ctx, query, map[string]any{"teamId": teamID}, &data); err != nil {
		return nil, fmt.Errorf("fetch members: %w", err)
	}
	return data.Team.Members.Nodes, nil
}

// UpdateIssue applies the given fields to an issue. fields uses the
// GraphQL IssueUpdateInput names (stateId, priority, assigneeId,
// dueDate, labelIds); a nil value sends an explicit null, which is how
// a due date is cleared.
func (c *Client) UpdateIssue(ctx context.Context, issueID string, fields map[string]any) error {
	query := `mutation($id: String!, $input: IssueUpdateInput!) {
		issueUpdate(id: $id, input: $input) { success }
	}`
	err := c.do(ctx, query, map[string]any{"id": issueID, "input": fields}, nil)
	if err != nil {
		return fmt.Errorf("update issue: %w", err)
	}
	return nil
}

// CreateIssueInput carries the fields for issue creation. Optional
// references are empty strings when unset.
type CreateIssueInput struct {
	TeamID      string
	Title       string
	Description string
	ProjectID   string
	StateID     string
	ParentID    string
}

// CreateIssue creates one issue and returns its identifier and id.
func (c *Client) CreateIssue(ctx context.Context, in CreateIssueInput) (identifier, id string, err error) {
	input := map[string]any{
		"teamId": in.TeamID,
		"title":  in.Title,
	}
	if in.Description != "" {
		input["description"] = in.Description
	}
	if in.ProjectID != "" {
		input["projectId"] = in.ProjectID
	}
	if in.StateID != "" {
		input["stateId"] = in.StateID
	}
	if in.ParentID != "" {
		input["parentId"] = in.ParentID
	}

	var data struct {
		IssueCreate struct {
			Issue struct {
				ID         string `json:"id"`
				Identifier string `json:"identifier"`
			} `json:"issue"`
		} `json:"issueCreate"`
	}
	query := `mutation($input: IssueCreateInput!) {
		issueCreate(input: $input) { issue { id identifier } }
	}`
	if err := c.do(ctx, query, map[string]any{"input": input}, &data); err != nil {
		return "", "", fmt.Errorf("create issue: %w", err)
	}
	return data.IssueCreate.Issue.Identifier, data.IssueCreate.Issue.ID, nil
}

// CreateComment appends a comment to an issue.
func (c *Client) CreateComment(ctx context.Context, issueID, body string) error {
	query := `mutation($input: CommentCreateInput!) {
		commentCreate(input: $input) { success }
	}`
	vars := map[string]any{"input": map[string]any{"issueId": issueID, "body": body}}
	if err := c.do(ctx, query, vars, nil); err != nil {
		return fmt.Errorf("create comment: %w", err)
	}
	return nil
}

// CreateProject creates a project under the given team and returns its id.
func (c *Client) CreateProject(ctx context.Context, teamID, name string) (string, error) {
	var data struct {
		ProjectCreate struct {
			Project struct {
				ID string `json:"id"`
			} `json:"project"`
		} `json:"projectCreate"`
	}
	query := `mutation($input: ProjectCreateInput!) {
		projectCreate(input: $input) { project { id } }
	}`
	vars := map[string]any{"input": map[string]any{"teamIds": []string{teamID}, "name": name}}
	if err := c.do(ctx, query, vars, &data); err != nil {
		return "", fmt.Errorf("create project: %w", err)
	}
	return data.ProjectCreate.Project.ID, nil
}

// CreateLabel creates an issue label and returns it. Creation is
// irreversible from the agent's point of view; concurrent duplicate
// creation is not guarded against.
func (c *Client) CreateLabel(ctx context.Context, teamID, name string) (Label, error) {
	var data struct {
		IssueLabelCreate struct {
			IssueLabel Label `json:"issueLabel"`
		} `json:"issueLabelCreate"`
	}
	query := `mutation($input: IssueLabelCreateInput!) {
		issueLabelCreate(input: $input) { issueLabel { id name } }
	}`
	vars := map[string]any{"input": map[string]any{"teamId": teamID, "name": name}}
	if err := c.do(ctx, query, vars, &data); err != nil {
		return Label{}, fmt.Errorf("create label: %w", err)
	}
	return data.IssueLabelCreate.IssueLabel, nil
}
