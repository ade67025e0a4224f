package githubapi

import "github.com/mjpieters/pyright-analysis-action/internal/graphql"

// pullRequestsForBranchQuery lists up to 100 pull requests against a repository with a
// given head branch name, most recently updated first. Per pull request it includes the
// first force push recorded since the workflow run was created and the last 100 commits,
// so callers can match the run's head sha even after the branch moved on.
const pullRequestsForBranchQuery = `
query PrsForBranch($repository_id: ID!, $headRefName: String!, $since: DateTime) {
  node(id: $repository_id) {
    ... on Repository {
      pullRequests(
        headRefName: $headRefName
        first: 100
        orderBy: {field: UPDATED_AT, direction: DESC}
      ) {
        nodes {
          id
          headRefOid
          headRepository { id }
          timelineItems(
            since: $since
            itemTypes: [HEAD_REF_FORCE_PUSHED_EVENT]
            first: 1
          ) {
            nodes {
              ... on HeadRefForcePushedEvent {
                beforeCommit { oid }
              }
            }
          }
          commits(last: 100) {
            nodes { commit { oid } }
          }
        }
      }
    }
  }
}`

const commentsForPullRequestQuery = `
query CommentsForPR($pr_id: ID!, $cursor: String) {
  node(id: $pr_id) {
    ... on PullRequest {
      comments(first: 100, after: $cursor) {
        nodes {
          id
          isMinimized
          viewerDidAuthor
          body
        }
        pageInfo {
          endCursor
          hasNextPage
        }
      }
    }
  }
}`

const pullRequestIDQuery = `
query PullRequestId($repository_id: ID!, $number: Int!) {
  node(id: $repository_id) {
    ... on Repository {
      pullRequest(number: $number) { id }
    }
  }
}`

const updateCommentMutation = `
mutation UpdateComment($input: UpdateIssueCommentInput!) {
  updateIssueComment(input: $input) {
    issueComment { url }
  }
}`

const addCommentMutation = `
mutation AddComment($input: AddCommentInput!) {
  addComment(input: $input) {
    commentEdge { node { url } }
  }
}`

// PullRequestsForBranch finds candidate pull requests for a workflow run's head branch.
func PullRequestsForBranch(r graphql.Requester) *graphql.Query[PullRequestsForBranchVars, []PullRequestCandidate] {
	return graphql.NewQuery[PullRequestsForBranchVars, []PullRequestCandidate](r, pullRequestsForBranchQuery)
}

// CommentsForPullRequest pages through a pull request's comments in creation order.
func CommentsForPullRequest(r graphql.Requester) *graphql.PagedQuery[CommentsForPullRequestVars, []IssueComment] {
	return graphql.NewPagedQuery[CommentsForPullRequestVars, []IssueComment](r, commentsForPullRequestQuery)
}

// PullRequestID maps a pull request number in a repository to its node id. The result
// is empty when the repository has no such pull request.
func PullRequestID(r graphql.Requester) *graphql.Query[PullRequestIDVars, string] {
	return graphql.NewQuery[PullRequestIDVars, string](r, pullRequestIDQuery)
}

// UpdateComment replaces a comment body and returns the comment URL.
func UpdateComment(r graphql.Requester) *graphql.Mutation[UpdateCommentInput, string] {
	return graphql.NewMutation[UpdateCommentInput, string](r, updateCommentMutation)
}

// AddComment posts a new comment on a subject and returns the comment URL.
func AddComment(r graphql.Requester) *graphql.Mutation[AddCommentInput, string] {
	return graphql.NewMutation[AddCommentInput, string](r, addCommentMutation)
}
