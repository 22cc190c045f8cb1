package linear

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// FetchSnapshot reads the full workspace state in one fan-out. The team
// is fetched first (the other reads are scoped by it), then issues,
// states, labels, projects, and members are fetched concurrently with
// join-all semantics: the snapshot is ready only when every read has
// completed, and any single failure aborts the whole fetch. No partial
// snapshot is ever returned.
func (c *Client) FetchSnapshot(ctx context.Context) (*Snapshot, error) {
	team, err := c.FetchTeam(ctx)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{Team: team}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		issues, err := c.FetchActiveIssues(ctx, team.ID)
		if err != nil {
			return err
		}
		snap.Issues = issues
		return nil
	})
	g.Go(func() error {
		states, err := c.FetchWorkflowStates(ctx, team.ID)
		if err != nil {
			return err
		}
		snap.States = states
		return nil
	})
	g.Go(func() error {
		labels, err := c.FetchLabels(ctx)
		if err != nil {
			return err
		}
		snap.Labels = labels
		return nil
	})
	g.Go(func() error {
		projects, err := c.FetchProjects(ctx, team.ID)
		if err != nil {
			return err
		}
		snap.Projects = projects
		return nil
	})
	g.Go(func() error {
		members, err := c.FetchMembers(ctx, team.ID)
		if err != nil {
			return err
		}
		snap.Members = members
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetch snapshot: %w", err)
	}
	return snap, nil
}
