package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mjpieters/pyright-analysis-action/internal/githubapi"
	"github.com/mjpieters/pyright-analysis-action/internal/smokeshow"
	"github.com/mjpieters/pyright-analysis-action/internal/treemap"
)

const testReport = `{
	"version": "1.1.391",
	"time": "1735043053980",
	"summary": {"filesAnalyzed": 2, "errorCount": 0, "warningCount": 0, "informationCount": 0, "timeInSec": 0.5},
	"typeCompleteness": {
		"packageName": "foobar",
		"moduleName": "foobar",
		"completenessScore": 0.5,
		"modules": [{"name": "foobar"}],
		"symbols": [
			{"category": "function", "name": "foobar.spam", "isExported": true, "isTypeKnown": true, "isTypeAmbiguous": false, "referenceCount": 1, "diagnostics": []},
			{"category": "function", "name": "foobar.eggs", "isExported": true, "isTypeKnown": false, "isTypeAmbiguous": false, "referenceCount": 1, "diagnostics": []}
		]
	}
}`

var actionEnvKeys = []string{
	"INPUT_REPORT", "INPUT_DIV_ID", "INPUT_TEMPLATE", "INPUT_TEMPLATE_FILE", "INPUT_COMMENT_ON_PR",
	"INPUT_GITHUB_TOKEN", "INPUT_LOG_LEVEL", "SMOKESHOW_AUTH_KEY", "RUNNER_DEBUG",
	"GITHUB_STEP_SUMMARY", "GITHUB_OUTPUT", "GITHUB_EVENT_NAME", "GITHUB_EVENT_PATH",
	"GITHUB_API_URL", "GITHUB_GRAPHQL_URL", "GITHUB_WORKFLOW", "GITHUB_JOB", "GITHUB_TOKEN", "GH_TOKEN",
}

// isolate unsets the runner variables for the duration of the test and disables colour.
func isolate(t *testing.T) string {
	t.Helper()
	for _, key := range actionEnvKeys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
	noColor := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = noColor })

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "report.json"), []byte(testReport), 0o600))
	return dir
}

type fakePublisher struct {
	key     string
	page    string
	preview []byte
	calls   int
	err     error
}

func (f *fakePublisher) Publish(_ context.Context, key, page string, preview []byte) (smokeshow.Result, error) {
	f.calls++
	f.key, f.page, f.preview = key, page, preview
	if f.err != nil {
		return smokeshow.Result{}, f.err
	}
	return smokeshow.Result{
		Expiration: time.Date(2025, 1, 9, 3, 4, 5, 0, time.UTC),
		HTMLURL:    "https://smokeshow.example/site/",
		PreviewURL: "https://smokeshow.example/site/preview.svg",
	}, nil
}

func runCLI(t *testing.T, opts *Options, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	cmd := newRootCommand(opts, nil)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	// a nil slice makes cobra fall back to os.Args
	cmd.SetArgs(append([]string{}, args...))
	err = cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestActionWithTemplateFile(t *testing.T) {
	dir := isolate(t)
	t.Setenv("SMOKESHOW_AUTH_KEY", "env-key")
	tmplPath := filepath.Join(dir, "template.html")
	require.NoError(t, os.WriteFile(tmplPath, []byte("<main>{{ graph }}</main>"), 0o600))
	outputPath := filepath.Join(dir, "output")
	summaryPath := filepath.Join(dir, "summary.md")

	pub := &fakePublisher{}
	stdout, _, err := runCLI(t, &Options{publisher: pub},
		filepath.Join(dir, "report.json"),
		"--template-file", tmplPath,
		"--div-id", "graph",
		"--output", outputPath,
		"--step-summary", summaryPath,
	)
	require.NoError(t, err)

	assert.Equal(t, "env-key", pub.key)
	assert.True(t, strings.HasPrefix(pub.page, "<main><div>"), pub.page)
	assert.True(t, strings.HasSuffix(pub.page, "</div></main>"))
	assert.Contains(t, pub.page, `<div id="graph"`)
	assert.NotContains(t, pub.page, "<html>")
	assert.True(t, bytes.HasPrefix(pub.preview, []byte("<svg")))

	md := readFile(t, summaryPath)
	assert.Contains(t, md, "## Pyright Type Completeness Visualisation")
	assert.Contains(t, md, "[interactive graph for `foobar`](https://smokeshow.example/site/)")
	assert.Contains(t, md, "*Page available until 2025-01-09T03:04:05+00:00.*")

	assert.Equal(t, "comment_url=\n"+
		"expiration=2025-01-09T03:04:05+00:00\n"+
		"html_url=https://smokeshow.example/site/\n"+
		"preview_url=https://smokeshow.example/site/preview.svg\n", readFile(t, outputPath))

	assert.NotContains(t, stdout, "Summary:")
	assert.Contains(t, stdout, "Report generated")
}

func TestActionPrintsSummaryWithoutStepSummary(t *testing.T) {
	dir := isolate(t)
	pub := &fakePublisher{}

	stdout, _, err := runCLI(t, &Options{publisher: pub}, filepath.Join(dir, "report.json"))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(pub.page, "<html>"))
	assert.Empty(t, pub.key)
	assert.Contains(t, stdout, "\nSummary:\n\n## Pyright Type Completeness Visualisation\n")
	assert.True(t, strings.HasSuffix(stdout, "Report generated\n"))
}

func TestActionReadsInputsFromEnvironment(t *testing.T) {
	dir := isolate(t)
	t.Setenv("INPUT_REPORT", filepath.Join(dir, "report.json"))
	t.Setenv("INPUT_DIV_ID", "env-div")
	t.Setenv("INPUT_TEMPLATE", "<body>{{graph}}</body>")
	t.Setenv("GITHUB_OUTPUT", filepath.Join(dir, "output"))

	pub := &fakePublisher{}
	_, _, err := runCLI(t, &Options{publisher: pub})
	require.NoError(t, err)
	assert.Contains(t, pub.page, `<div id="env-div"`)
	assert.True(t, strings.HasPrefix(pub.page, "<body><div>"))
	assert.Contains(t, readFile(t, filepath.Join(dir, "output")), "html_url=https://smokeshow.example/site/\n")

	_, _, err = runCLI(t, &Options{publisher: pub}, "--div-id", "flag-div")
	require.NoError(t, err)
	assert.Contains(t, pub.page, `<div id="flag-div"`)
}

func TestActionEnvFile(t *testing.T) {
	dir := isolate(t)
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(
		"INPUT_REPORT="+filepath.Join(dir, "report.json")+"\nINPUT_DIV_ID=file-div\n"), 0o600))

	pub := &fakePublisher{}
	_, _, err := runCLI(t, &Options{publisher: pub}, "--env-file", envFile)
	require.NoError(t, err)
	assert.Contains(t, pub.page, `<div id="file-div"`)
}

func TestActionInputErrors(t *testing.T) {
	tests := []struct {
		name    string
		args    func(dir string) []string
		wantErr string
	}{
		{
			name:    "no report",
			args:    func(string) []string { return nil },
			wantErr: "INPUT_REPORT",
		},
		{
			name: "template and template file",
			args: func(dir string) []string {
				return []string{filepath.Join(dir, "report.json"), "--template", "{{ graph }}", "--template-file", "x.html"}
			},
			wantErr: "either a template string or a template file",
		},
		{
			name: "template without slot",
			args: func(dir string) []string {
				return []string{filepath.Join(dir, "report.json"), "--template", "<body>{{ chart }}</body>"}
			},
			wantErr: treemap.ErrNoSlot.Error(),
		},
		{
			name: "missing report file",
			args: func(dir string) []string {
				return []string{filepath.Join(dir, "missing.json")}
			},
			wantErr: "open report",
		},
		{
			name: "too many arguments",
			args: func(dir string) []string {
				return []string{"a.json", "b.json"}
			},
			wantErr: "accepts at most 1 arg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := isolate(t)
			pub := &fakePublisher{}
			_, _, err := runCLI(t, &Options{publisher: pub}, tt.args(dir)...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Zero(t, pub.calls)
		})
	}
}

func TestActionInvalidCommentOnPR(t *testing.T) {
	dir := isolate(t)
	t.Setenv("INPUT_COMMENT_ON_PR", "sometimes")

	_, _, err := runCLI(t, &Options{publisher: &fakePublisher{}}, filepath.Join(dir, "report.json"))
	assert.ErrorContains(t, err, "INPUT_COMMENT_ON_PR")
}

func TestActionPublishError(t *testing.T) {
	dir := isolate(t)
	pub := &fakePublisher{err: assert.AnError}

	stdout, _, err := runCLI(t, &Options{publisher: pub}, filepath.Join(dir, "report.json"))
	assert.ErrorIs(t, err, assert.AnError)
	assert.NotContains(t, stdout, "Report generated")
}

type gqlCall struct {
	operation     string
	authorization string
	variables     map[string]any
}

func newGitHubServer(t *testing.T, responses map[string]string) (*httptest.Server, func() []gqlCall) {
	t.Helper()
	var (
		mu    sync.Mutex
		calls []gqlCall
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Query     string         `json:"query"`
			Variables map[string]any `json:"variables"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		op := githubapi.OperationName(body.Query)
		mu.Lock()
		calls = append(calls, gqlCall{operation: op, authorization: r.Header.Get("Authorization"), variables: body.Variables})
		mu.Unlock()

		response, ok := responses[op]
		if !assert.True(t, ok, "unexpected operation %q", op) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv, func() []gqlCall {
		mu.Lock()
		defer mu.Unlock()
		return append([]gqlCall(nil), calls...)
	}
}

func TestActionCommentsOnPullRequest(t *testing.T) {
	dir := isolate(t)
	srv, calls := newGitHubServer(t, map[string]string{
		"PullRequestId": `{"data": {"node": {"pullRequest": {"id": "PR_1"}}}}`,
		"CommentsForPR": `{"data": {"node": {"comments": {"nodes": [], "pageInfo": {"endCursor": null, "hasNextPage": false}}}}}`,
		"AddComment":    `{"data": {"addComment": {"commentEdge": {"node": {"url": "https://github.com/o/r/pull/42#issuecomment-1"}}}}}`,
	})
	eventPath := filepath.Join(dir, "event.json")
	require.NoError(t, os.WriteFile(eventPath, []byte(`{"action": "opened", "number": 42, "repository": {"node_id": "R_1"}}`), 0o600))

	t.Setenv("INPUT_COMMENT_ON_PR", "true")
	t.Setenv("INPUT_GITHUB_TOKEN", "tok")
	t.Setenv("GITHUB_EVENT_NAME", "pull_request")
	t.Setenv("GITHUB_EVENT_PATH", eventPath)
	t.Setenv("GITHUB_GRAPHQL_URL", srv.URL+"/graphql")
	t.Setenv("GITHUB_WORKFLOW", "CI")
	t.Setenv("GITHUB_JOB", "types")
	t.Setenv("GITHUB_OUTPUT", filepath.Join(dir, "output"))

	stdout, _, err := runCLI(t, &Options{publisher: &fakePublisher{}, httpClient: srv.Client()}, filepath.Join(dir, "report.json"))
	require.NoError(t, err)

	assert.Contains(t, stdout, "Comment posted or updated at https://github.com/o/r/pull/42#issuecomment-1\n")
	assert.Contains(t, readFile(t, filepath.Join(dir, "output")), "comment_url=https://github.com/o/r/pull/42#issuecomment-1\n")

	got := calls()
	require.Len(t, got, 3)
	assert.Equal(t, []string{"PullRequestId", "CommentsForPR", "AddComment"},
		[]string{got[0].operation, got[1].operation, got[2].operation})
	assert.Equal(t, "Bearer tok", got[0].authorization)
	assert.Equal(t, map[string]any{"repository_id": "R_1", "number": float64(42)}, got[0].variables)

	input := got[2].variables["input"].(map[string]any)
	assert.Equal(t, "PR_1", input["subjectId"])
	body := input["body"].(string)
	assert.True(t, strings.HasPrefix(body, "## Pyright Type Completeness Visualisation\n"))
	assert.True(t, strings.HasSuffix(body, "\n\n<!-- pyright-analysis-action workflow='CI', jobid='types' -->"))
}

func TestActionSkipsCommentForUnsupportedEvent(t *testing.T) {
	dir := isolate(t)
	eventPath := filepath.Join(dir, "event.json")
	require.NoError(t, os.WriteFile(eventPath, []byte(`{"ref": "refs/heads/main"}`), 0o600))

	stdout, _, err := runCLI(t, &Options{publisher: &fakePublisher{}},
		filepath.Join(dir, "report.json"),
		"--comment-on-pr",
		"--github-token", "tok",
		"--event-name", "push",
		"--event-path", eventPath,
		"--graphql-url", "http://127.0.0.1:1/graphql",
	)
	require.NoError(t, err)
	assert.Contains(t, stdout,
		`::notice::Skipping posting a PR comment: Workflow was not triggered by a pull_request or workflow_run event ("push")`)
	assert.Contains(t, stdout, "Report generated")
}

func TestActionSkipsCommentWithoutToken(t *testing.T) {
	dir := isolate(t)
	eventPath := filepath.Join(dir, "event.json")
	require.NoError(t, os.WriteFile(eventPath, []byte(`{"ref": "refs/heads/main"}`), 0o600))
	outputPath := filepath.Join(dir, "output")

	stdout, _, err := runCLI(t, &Options{publisher: &fakePublisher{}},
		filepath.Join(dir, "report.json"),
		"--comment-on-pr",
		"--event-name", "push",
		"--event-path", eventPath,
		"--output", outputPath,
	)
	require.NoError(t, err)
	assert.Contains(t, stdout,
		`::notice::Skipping posting a PR comment: Workflow was not triggered by a pull_request or workflow_run event ("push")`)
	assert.Contains(t, stdout, "Report generated")

	written, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	assert.Contains(t, string(written), "html_url=")
	assert.Contains(t, string(written), "comment_url=")
}

func TestActionCommentRequiresToken(t *testing.T) {
	dir := isolate(t)
	eventPath := filepath.Join(dir, "event.json")
	require.NoError(t, os.WriteFile(eventPath, []byte(`{"action": "opened", "number": 42, "repository": {"node_id": "R_1"}}`), 0o600))

	_, _, err := runCLI(t, &Options{publisher: &fakePublisher{}},
		filepath.Join(dir, "report.json"),
		"--comment-on-pr",
		"--event-name", "pull_request",
		"--event-path", eventPath,
	)
	assert.ErrorContains(t, err, "requires --github-token")
}

func TestActionWithoutEventSkipsComment(t *testing.T) {
	dir := isolate(t)

	stdout, _, err := runCLI(t, &Options{publisher: &fakePublisher{}}, filepath.Join(dir, "report.json"), "--comment-on-pr")
	require.NoError(t, err)
	assert.NotContains(t, stdout, "Comment posted")
	assert.NotContains(t, stdout, "::notice::")
}

func TestSmoketest(t *testing.T) {
	isolate(t)
	pub := &fakePublisher{}

	stdout, _, err := runCLI(t, &Options{publisher: pub}, "--smoketest")
	require.NoError(t, err)
	assert.Equal(t, "Action container smoketest\nTest passed\n", stdout)
	assert.Zero(t, pub.calls)
}

func TestRunnerDebugEnablesDebugLogging(t *testing.T) {
	dir := isolate(t)
	t.Setenv("RUNNER_DEBUG", "1")

	_, stderr, err := runCLI(t, &Options{publisher: &fakePublisher{}}, filepath.Join(dir, "report.json"))
	require.NoError(t, err)
	assert.Contains(t, stderr, "logger initialized")
}

func TestGraphQLURL(t *testing.T) {
	tests := []struct {
		explicit string
		apiURL   string
		expected string
	}{
		{expected: githubapi.DefaultGraphQLURL},
		{apiURL: "https://api.github.com", expected: "https://api.github.com/graphql"},
		{apiURL: "https://ghe.example.com/api/v3/", expected: "https://ghe.example.com/api/graphql"},
		{explicit: "https://custom/graphql", apiURL: "https://api.github.com", expected: "https://custom/graphql"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, graphqlURL(tt.explicit, tt.apiURL))
	}
}

func TestParseEnvBool(t *testing.T) {
	v, ok := parseEnvBool(" true ")
	assert.True(t, v)
	assert.True(t, ok)
	_, ok = parseEnvBool("")
	assert.False(t, ok)
	_, ok = parseEnvBool("maybe")
	assert.False(t, ok)
}
