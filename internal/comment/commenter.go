package comment

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/mjpieters/pyright-analysis-action/internal/githubapi"
	"github.com/mjpieters/pyright-analysis-action/internal/graphql"
)

// Commenter posts or updates this action's summary comment on one pull request.
type Commenter struct {
	// PullRequestID is the node id of the pull request.
	PullRequestID string

	context  Context
	comments *graphql.PagedQuery[githubapi.CommentsForPullRequestVars, []githubapi.IssueComment]
	update   *graphql.Mutation[githubapi.UpdateCommentInput, string]
	add      *graphql.Mutation[githubapi.AddCommentInput, string]
}

// New returns a Commenter for a known pull request node id.
func New(r graphql.Requester, pullRequestID string, c Context) *Commenter {
	return &Commenter{
		PullRequestID: pullRequestID,
		context:       c,
		comments:      githubapi.CommentsForPullRequest(r),
		update:        githubapi.UpdateComment(r),
		add:           githubapi.AddComment(r),
	}
}

// FromEvent resolves the pull request for a GitHub Actions event and returns a Commenter
// for it. The error is a *NotCommenting when the event has no pull request to comment on.
func FromEvent(ctx context.Context, r graphql.Requester, eventName string, payload []byte, c Context) (*Commenter, error) {
	id, err := ResolvePullRequest(ctx, r, eventName, payload)
	if err != nil {
		return nil, err
	}
	return New(r, id, c), nil
}

// Marker is the HTML comment that marks a comment as ours for this context.
func (c *Commenter) Marker() string {
	return c.context.Marker()
}

// ExistingCommentID returns the node id of the first visible comment we authored that
// carries our marker, or "" when there is none. Pages are fetched only until a match is
// found.
func (c *Commenter) ExistingCommentID(ctx context.Context) (string, error) {
	marker := c.Marker()
	vars := githubapi.CommentsForPullRequestVars{PullRequestID: c.PullRequestID}
	for page, err := range c.comments.Pages(ctx, vars) {
		if err != nil {
			return "", fmt.Errorf("list pull request comments: %w", err)
		}
		match, ok := lo.Find(page, func(cmt githubapi.IssueComment) bool {
			return cmt.ViewerDidAuthor && !cmt.IsMinimized && strings.Contains(cmt.Body, marker)
		})
		if ok {
			return match.ID, nil
		}
	}
	return "", nil
}

// PostOrUpdate updates our existing comment with summary, or creates one when there is
// none, and returns the comment URL. Two runs racing for the same pull request and
// context can both end up creating a comment.
func (c *Commenter) PostOrUpdate(ctx context.Context, summary string) (string, error) {
	body := summary + "\n\n" + c.Marker()

	existing, err := c.ExistingCommentID(ctx)
	if err != nil {
		return "", err
	}

	if existing != "" {
		url, err := c.update.Execute(ctx, githubapi.UpdateCommentInput{ID: existing, Body: body})
		if err != nil {
			return "", fmt.Errorf("update comment %s: %w", existing, err)
		}
		return url, nil
	}

	url, err := c.add.Execute(ctx, githubapi.AddCommentInput{SubjectID: c.PullRequestID, Body: body})
	if err != nil {
		return "", fmt.Errorf("add comment to %s: %w", c.PullRequestID, err)
	}
	return url, nil
}
