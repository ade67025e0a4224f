// Package githubapi provides the GitHub GraphQL transport and the typed queries used to
// find pull requests and their comments.
package githubapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/go-github/v61/github"
	"golang.org/x/oauth2"
)

// DefaultGraphQLURL is the public GitHub GraphQL endpoint.
const DefaultGraphQLURL = "https://api.github.com/graphql"

// Options configures a Client.
type Options struct {
	// Token authenticates requests; empty sends anonymous requests.
	Token string
	// GraphQLURL overrides the GraphQL endpoint (GITHUB_GRAPHQL_URL on runners).
	GraphQLURL string
	// HTTPClient replaces the base HTTP client; the token transport wraps its transport.
	HTTPClient *http.Client
}

// Client sends GraphQL documents to GitHub. It implements graphql.Requester.
type Client struct {
	logger     *slog.Logger
	gh         *github.Client
	graphqlURL string
}

func NewClient(ctx context.Context, logger *slog.Logger, opts Options) *Client {
	httpClient := opts.HTTPClient
	if token := strings.TrimSpace(opts.Token); token != "" {
		if httpClient != nil {
			ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
		}
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(ctx, ts)
	}

	graphqlURL := strings.TrimSpace(opts.GraphQLURL)
	if graphqlURL == "" {
		graphqlURL = DefaultGraphQLURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		logger:     logger,
		gh:         github.NewClient(httpClient),
		graphqlURL: graphqlURL,
	}
}

// Request posts one GraphQL document and returns the "data" member of the response.
// A response carrying an "errors" array is reported as a *GraphQLError.
func (c *Client) Request(ctx context.Context, query string, variables map[string]any) (any, error) {
	req, err := c.gh.NewRequest(http.MethodPost, c.graphqlURL, graphqlRequest{
		Query:     query,
		Variables: variables,
	})
	if err != nil {
		return nil, fmt.Errorf("build github graphql request: %w", err)
	}

	c.logger.Debug("github graphql query", "operation", OperationName(query), "variables", variables)

	var resp graphqlResponse
	if _, err := c.gh.Do(ctx, req, &resp); err != nil {
		return nil, fmt.Errorf("github graphql request failed: %w", err)
	}
	if len(resp.Errors) > 0 {
		return nil, &GraphQLError{Errors: resp.Errors}
	}
	return resp.Data, nil
}

// OperationName returns the name following the query or mutation keyword of a document.
func OperationName(document string) string {
	fields := strings.Fields(document)
	for i, field := range fields {
		if (field == "query" || field == "mutation") && i+1 < len(fields) {
			name, _, _ := strings.Cut(fields[i+1], "(")
			return name
		}
	}
	return ""
}
