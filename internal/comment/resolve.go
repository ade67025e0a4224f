package comment

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"

	"github.com/mjpieters/pyright-analysis-action/internal/githubapi"
	"github.com/mjpieters/pyright-analysis-action/internal/graphql"
)

// WorkflowRun is what a workflow_run event tells us about the run that triggered it.
type WorkflowRun struct {
	BaseRepositoryID string
	HeadRepositoryID string
	HeadBranch       string
	HeadSHA          string
	CreatedAt        time.Time
}

// PullRequestFromWorkflowRun finds the node id of the pull request a workflow run was
// triggered for. workflow_run events frequently carry an empty pull_requests list (always
// for runs from forks), so the pull request is looked up by head branch name instead.
//
// Branch names are not unique, not even within one head repository: closed and merged
// pull requests may reuse a name. The head sha recorded for the run can be stale when
// commits were pushed or the branch was force pushed after the run was created, so it is
// checked against each candidate's head, its last 100 commits and the head before the
// first force push since the run started. found is false when no candidate shares the
// run's head repository.
func PullRequestFromWorkflowRun(ctx context.Context, r graphql.Requester, run WorkflowRun) (id string, found bool, err error) {
	vars := githubapi.PullRequestsForBranchVars{
		RepositoryID: run.BaseRepositoryID,
		HeadRefName:  run.HeadBranch,
	}
	if !run.CreatedAt.IsZero() {
		vars.Since = &run.CreatedAt
	}

	candidates, err := githubapi.PullRequestsForBranch(r).Execute(ctx, vars)
	if err != nil {
		return "", false, fmt.Errorf("query pull requests for branch %q: %w", run.HeadBranch, err)
	}

	candidates = lo.Filter(candidates, func(pr githubapi.PullRequestCandidate, _ int) bool {
		return pr.HeadRepository != nil && pr.HeadRepository.ID == run.HeadRepositoryID
	})
	id, found = selectCandidate(candidates, run.HeadSHA)
	return id, found, nil
}

// selectCandidate picks among candidates that already share the run's head repository.
// Candidates are ordered most recently updated first; without a hash match the first
// one wins.
func selectCandidate(candidates []githubapi.PullRequestCandidate, headSHA string) (string, bool) {
	switch len(candidates) {
	case 0:
		return "", false
	case 1:
		return candidates[0].ID, true
	}

	for _, pr := range candidates {
		if lo.Contains(knownHeads(pr), headSHA) {
			return pr.ID, true
		}
	}
	return candidates[0].ID, true
}

// knownHeads lists every commit the run's head sha could legitimately refer to.
func knownHeads(pr githubapi.PullRequestCandidate) []string {
	heads := make([]string, 0, len(pr.Commits.Nodes)+2)
	heads = append(heads, pr.HeadRefOID)
	heads = append(heads, lo.Map(pr.Commits.Nodes, func(c githubapi.PullRequestCommit, _ int) string {
		return c.Commit.OID
	})...)
	if len(pr.TimelineItems.Nodes) > 0 {
		if before := pr.TimelineItems.Nodes[0].BeforeCommit; before != nil {
			heads = append(heads, before.OID)
		}
	}
	return heads
}
