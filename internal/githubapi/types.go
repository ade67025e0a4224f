package githubapi

import (
	"strings"
	"time"
)

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphqlResponse struct {
	Data   any            `json:"data"`
	Errors []ErrorMessage `json:"errors"`
}

// ErrorMessage is one entry of a GraphQL "errors" array.
type ErrorMessage struct {
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
	Path    []any  `json:"path,omitempty"`
}

// GraphQLError reports errors returned in an otherwise successful HTTP response.
type GraphQLError struct {
	Errors []ErrorMessage
}

func (e *GraphQLError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, m := range e.Errors {
		msgs = append(msgs, m.Message)
	}
	return "github graphql errors: " + strings.Join(msgs, "; ")
}

// Connection is the nodes list of a GraphQL connection.
type Connection[T any] struct {
	Nodes []T `json:"nodes"`
}

// Node is any object identified only by its node id.
type Node struct {
	ID string `json:"id"`
}

// Commit carries a git object id.
type Commit struct {
	OID string `json:"oid"`
}

// ForcePushEvent is a HeadRefForcePushedEvent timeline item.
type ForcePushEvent struct {
	// BeforeCommit is the branch head before the force push; nil when GitHub no
	// longer has the commit.
	BeforeCommit *Commit `json:"beforeCommit"`
}

// PullRequestCommit wraps a commit in a pull request's commit list.
type PullRequestCommit struct {
	Commit Commit `json:"commit"`
}

// PullRequestCandidate is a pull request returned by the branch lookup.
type PullRequestCandidate struct {
	ID         string `json:"id"`
	HeadRefOID string `json:"headRefOid"`

	// HeadRepository is nil when the head repository was deleted.
	HeadRepository *Node                         `json:"headRepository"`
	TimelineItems  Connection[ForcePushEvent]    `json:"timelineItems"`
	Commits        Connection[PullRequestCommit] `json:"commits"`
}

// IssueComment is the subset of a pull request comment needed to find our own comment.
type IssueComment struct {
	ID              string `json:"id"`
	IsMinimized     bool   `json:"isMinimized"`
	ViewerDidAuthor bool   `json:"viewerDidAuthor"`
	Body            string `json:"body"`
}

// PullRequestsForBranchVars are the variables of PullRequestsForBranch.
type PullRequestsForBranchVars struct {
	RepositoryID string     `json:"repository_id"`
	HeadRefName  string     `json:"headRefName"`
	Since        *time.Time `json:"since"`
}

// CommentsForPullRequestVars are the variables of CommentsForPullRequest.
type CommentsForPullRequestVars struct {
	// PullRequestID is the node id of the pull request.
	PullRequestID string `json:"pr_id"`
}

// PullRequestIDVars are the variables of PullRequestID.
type PullRequestIDVars struct {
	RepositoryID string `json:"repository_id"`
	Number       int    `json:"number"`
}

// UpdateCommentInput is the UpdateIssueCommentInput of UpdateComment.
type UpdateCommentInput struct {
	ID   string `json:"id"`
	Body string `json:"body"`
}

// AddCommentInput is the AddCommentInput of AddComment.
type AddCommentInput struct {
	SubjectID string `json:"subjectId"`
	Body      string `json:"body"`
}
