package comment

import (
	"context"
	"fmt"

	"github.com/google/go-github/v61/github"

	"github.com/mjpieters/pyright-analysis-action/internal/githubapi"
	"github.com/mjpieters/pyright-analysis-action/internal/graphql"
)

// PlanKind says how the pull request for an event is found.
type PlanKind int

const (
	// PlanSkip means the event can not be tied to a pull request.
	PlanSkip PlanKind = iota
	// PlanDirect means the event names the pull request number itself.
	PlanDirect
	// PlanAttached means a workflow_run event lists the pull request it ran for.
	PlanAttached
	// PlanWorkflowRun means the pull request has to be deduced from the run's head branch.
	PlanWorkflowRun
)

func (k PlanKind) String() string {
	switch k {
	case PlanDirect:
		return "direct"
	case PlanAttached:
		return "attached"
	case PlanWorkflowRun:
		return "workflow-run"
	default:
		return "skip"
	}
}

// Plan is the outcome of classifying an event.
type Plan struct {
	Kind PlanKind
	// RepositoryID and Number are set for PlanDirect and PlanAttached.
	RepositoryID string
	Number       int
	// Run is set for PlanWorkflowRun.
	Run WorkflowRun
	// Reason is set for PlanSkip.
	Reason string
}

func isPullRequestEvent(name string) bool {
	return name == "pull_request" || name == "pull_request_target"
}

// Classify decides how to find the pull request for a GitHub Actions event. Only a
// malformed payload is an error; events that can not be tied to a pull request produce a
// PlanSkip with a reason.
func Classify(eventName string, payload []byte) (Plan, error) {
	switch {
	case isPullRequestEvent(eventName):
		parsed, err := github.ParseWebHook("pull_request", payload)
		if err != nil {
			return Plan{}, fmt.Errorf("parse %s event payload: %w", eventName, err)
		}
		event, ok := parsed.(*github.PullRequestEvent)
		if !ok {
			return Plan{}, fmt.Errorf("unexpected payload type %T for %s event", parsed, eventName)
		}
		return Plan{
			Kind:         PlanDirect,
			RepositoryID: event.GetRepo().GetNodeID(),
			Number:       event.GetNumber(),
		}, nil

	case eventName == "workflow_run":
		parsed, err := github.ParseWebHook(eventName, payload)
		if err != nil {
			return Plan{}, fmt.Errorf("parse %s event payload: %w", eventName, err)
		}
		event, ok := parsed.(*github.WorkflowRunEvent)
		if !ok {
			return Plan{}, fmt.Errorf("unexpected payload type %T for %s event", parsed, eventName)
		}
		return classifyWorkflowRun(event), nil

	default:
		return Plan{
			Kind:   PlanSkip,
			Reason: fmt.Sprintf("Workflow was not triggered by a pull_request or workflow_run event (%q)", eventName),
		}, nil
	}
}

func classifyWorkflowRun(event *github.WorkflowRunEvent) Plan {
	run := event.GetWorkflowRun()
	if run == nil || !isPullRequestEvent(run.GetEvent()) {
		return Plan{
			Kind:   PlanSkip,
			Reason: "This workflow_run event was not triggered by a pull_request workflow",
		}
	}

	for _, pr := range run.PullRequests {
		if pr == nil {
			continue
		}
		return Plan{
			Kind:         PlanAttached,
			RepositoryID: event.GetRepo().GetNodeID(),
			Number:       pr.GetNumber(),
		}
	}

	if run.GetHeadBranch() == "" {
		return Plan{
			Kind:   PlanSkip,
			Reason: "No head branch reported for workflow_run parent workflow",
		}
	}

	return Plan{
		Kind: PlanWorkflowRun,
		Run: WorkflowRun{
			BaseRepositoryID: run.GetRepository().GetNodeID(),
			HeadRepositoryID: run.GetHeadRepository().GetNodeID(),
			HeadBranch:       run.GetHeadBranch(),
			HeadSHA:          run.GetHeadSHA(),
			CreatedAt:        run.GetCreatedAt().Time,
		},
	}
}

// ResolvePullRequest classifies the event and returns the node id of its pull request.
// When no pull request can be determined the error is a *NotCommenting.
func ResolvePullRequest(ctx context.Context, r graphql.Requester, eventName string, payload []byte) (string, error) {
	plan, err := Classify(eventName, payload)
	if err != nil {
		return "", err
	}

	switch plan.Kind {
	case PlanDirect, PlanAttached:
		return PullRequestIDFromNumber(ctx, r, plan.RepositoryID, plan.Number)
	case PlanWorkflowRun:
		id, found, err := PullRequestFromWorkflowRun(ctx, r, plan.Run)
		if err != nil {
			return "", err
		}
		if !found {
			return "", notCommenting("No PR found for this workflow_run event")
		}
		return id, nil
	default:
		return "", notCommenting(plan.Reason)
	}
}

// PullRequestIDFromNumber maps a pull request number in a repository to its node id.
func PullRequestIDFromNumber(ctx context.Context, r graphql.Requester, repositoryID string, number int) (string, error) {
	id, err := githubapi.PullRequestID(r).Execute(ctx, githubapi.PullRequestIDVars{
		RepositoryID: repositoryID,
		Number:       number,
	})
	if err != nil {
		return "", fmt.Errorf("look up pull request #%d: %w", number, err)
	}
	if id == "" {
		return "", notCommenting(fmt.Sprintf("Pull request #%d not found", number))
	}
	return id, nil
}
