package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mjpieters/pyright-analysis-action/internal/comment"
	"github.com/mjpieters/pyright-analysis-action/internal/env"
	"github.com/mjpieters/pyright-analysis-action/internal/ghoutput"
	"github.com/mjpieters/pyright-analysis-action/internal/githubapi"
	"github.com/mjpieters/pyright-analysis-action/internal/report"
	"github.com/mjpieters/pyright-analysis-action/internal/smokeshow"
	"github.com/mjpieters/pyright-analysis-action/internal/summary"
	"github.com/mjpieters/pyright-analysis-action/internal/treemap"
)

const (
	previewScale = 0.5
	projectURL   = "https://github.com/mjpieters/pyright-analysis-action"
)

// actionConfig is the fully resolved set of action inputs.
type actionConfig struct {
	ReportPath   string
	DivID        string
	Template     string
	TemplateFile string
	CommentOnPR  bool
	SmokeshowKey string
	GitHubToken  string
	StepSummary  string
	Output       string
	EventName    string
	EventPath    string
	APIURL       string
	GraphQLURL   string
	Workflow     string
	Job          string
}

// publisher uploads the rendered graph somewhere public.
type publisher interface {
	Publish(ctx context.Context, key, page string, preview []byte) (smokeshow.Result, error)
}

// newActionCommand creates the command that visualises a report, publishes it and
// reports the result.
func newActionCommand(opts *Options) *cobra.Command {
	var (
		cfg       actionConfig
		smoketest bool
	)

	cmd := &cobra.Command{
		Use:   "pyright-analysis-action [REPORT]",
		Short: "Visualise Pyright type completeness and publish the graph",
		Long: "pyright-analysis-action turns a Pyright --outputjson --verifytypes report into an interactive " +
			"treemap, publishes it on smokeshow, writes a job summary and optionally comments on the pull request.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := LoggerFromContext(cmd.Context())
			if smoketest {
				return runSmoketest(cmd.OutOrStdout())
			}

			if err := resolveActionConfig(cmd, args, opts.Vars, &cfg); err != nil {
				return err
			}

			r := &runner{
				logger:     logger,
				out:        cmd.OutOrStdout(),
				in:         cmd.InOrStdin(),
				publisher:  opts.publisher,
				httpClient: opts.httpClient,
			}
			if r.publisher == nil {
				r.publisher = smokeshow.NewClient(logger, smokeshow.Options{
					UserAgent: fmt.Sprintf("pyright-analysis-action/%s (%s)", Version, projectURL),
				})
			}
			return r.run(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.DivID, "div-id", "", "Id of the graph container element (defaults to a random id)")
	cmd.Flags().StringVar(&cfg.Template, "template", "", "HTML template with a {{ graph }} slot")
	cmd.Flags().StringVar(&cfg.TemplateFile, "template-file", "", "Path to an HTML template with a {{ graph }} slot")
	cmd.Flags().BoolVar(&cfg.CommentOnPR, "comment-on-pr", false, "Post or update a comment with the summary on the pull request")
	cmd.Flags().StringVar(&cfg.SmokeshowKey, "smokeshow-auth-key", "", "Smokeshow site creation key (generated when empty)")
	cmd.Flags().StringVar(&cfg.GitHubToken, "github-token", "", "GitHub token used to comment (defaults to INPUT_GITHUB_TOKEN or GITHUB_TOKEN)")
	cmd.Flags().StringVar(&cfg.StepSummary, "step-summary", "", "Job summary file (defaults to GITHUB_STEP_SUMMARY)")
	cmd.Flags().StringVar(&cfg.Output, "output", "", "Step outputs file (defaults to GITHUB_OUTPUT)")
	cmd.Flags().StringVar(&cfg.EventName, "event-name", "", "Triggering event name (defaults to GITHUB_EVENT_NAME)")
	cmd.Flags().StringVar(&cfg.EventPath, "event-path", "", "Triggering event payload file (defaults to GITHUB_EVENT_PATH)")
	cmd.Flags().StringVar(&cfg.APIURL, "api-url", "", "GitHub REST API URL (defaults to GITHUB_API_URL)")
	cmd.Flags().StringVar(&cfg.GraphQLURL, "graphql-url", "", "GitHub GraphQL API URL (defaults to GITHUB_GRAPHQL_URL)")
	cmd.Flags().StringVar(&cfg.Workflow, "workflow", "", "Workflow name recorded in the comment marker (defaults to GITHUB_WORKFLOW)")
	cmd.Flags().StringVar(&cfg.Job, "job", "", "Job id recorded in the comment marker (defaults to GITHUB_JOB)")
	cmd.Flags().BoolVar(&smoketest, "smoketest", false, "Render an empty report and exit")
	_ = cmd.Flags().MarkHidden("smoketest")

	return cmd
}

// resolveActionConfig fills cfg from the positional argument and the environment.
// Explicit flags win; a present env var overrides a flag default.
func resolveActionConfig(cmd *cobra.Command, args []string, vars env.Vars, cfg *actionConfig) error {
	envCfg := actionEnv{}
	if err := parseEnv(&envCfg, vars); err != nil {
		return err
	}

	if len(args) > 0 {
		cfg.ReportPath = args[0]
	} else if envPresent(vars, "INPUT_REPORT") {
		cfg.ReportPath = envCfg.Report
	}
	if strings.TrimSpace(cfg.ReportPath) == "" {
		return errors.New("a Pyright report is required: pass it as an argument or set INPUT_REPORT")
	}

	flags := cmd.Flags()
	stringInputs := []struct {
		flag   string
		envKey string
		target *string
		value  string
	}{
		{"div-id", "INPUT_DIV_ID", &cfg.DivID, envCfg.DivID},
		{"template", "INPUT_TEMPLATE", &cfg.Template, envCfg.Template},
		{"template-file", "INPUT_TEMPLATE_FILE", &cfg.TemplateFile, envCfg.TemplateFile},
		{"smokeshow-auth-key", "SMOKESHOW_AUTH_KEY", &cfg.SmokeshowKey, envCfg.SmokeshowAuthKey},
		{"step-summary", "GITHUB_STEP_SUMMARY", &cfg.StepSummary, envCfg.StepSummary},
		{"output", "GITHUB_OUTPUT", &cfg.Output, envCfg.Output},
		{"event-name", "GITHUB_EVENT_NAME", &cfg.EventName, envCfg.EventName},
		{"event-path", "GITHUB_EVENT_PATH", &cfg.EventPath, envCfg.EventPath},
		{"api-url", "GITHUB_API_URL", &cfg.APIURL, envCfg.APIURL},
		{"graphql-url", "GITHUB_GRAPHQL_URL", &cfg.GraphQLURL, envCfg.GraphQLURL},
		{"workflow", "GITHUB_WORKFLOW", &cfg.Workflow, envCfg.Workflow},
		{"job", "GITHUB_JOB", &cfg.Job, envCfg.Job},
	}
	for _, in := range stringInputs {
		if !flags.Changed(in.flag) && envPresent(vars, in.envKey) {
			*in.target = in.value
		}
	}

	if !flags.Changed("comment-on-pr") && envPresent(vars, "INPUT_COMMENT_ON_PR") {
		v, ok := parseEnvBool(envCfg.CommentOnPR)
		if !ok {
			return fmt.Errorf("invalid INPUT_COMMENT_ON_PR value %q", envCfg.CommentOnPR)
		}
		cfg.CommentOnPR = v
	}
	if !flags.Changed("github-token") {
		cfg.GitHubToken = lookupGitHubToken(vars, envCfg.GitHubToken)
	}
	cfg.GraphQLURL = graphqlURL(cfg.GraphQLURL, cfg.APIURL)
	return nil
}

// graphqlURL derives the GraphQL endpoint from the REST API URL when it is not given.
func graphqlURL(explicit, apiURL string) string {
	if strings.TrimSpace(explicit) != "" {
		return strings.TrimSpace(explicit)
	}
	api := strings.TrimRight(strings.TrimSpace(apiURL), "/")
	if api == "" {
		return githubapi.DefaultGraphQLURL
	}
	return strings.TrimSuffix(api, "/v3") + "/graphql"
}

type runner struct {
	logger     *slog.Logger
	out        io.Writer
	in         io.Reader
	publisher  publisher
	httpClient *http.Client
}

func (r *runner) run(ctx context.Context, cfg actionConfig) error {
	tmpl, useTemplate, err := loadTemplate(cfg)
	if err != nil {
		return err
	}

	results, err := r.readReport(cfg.ReportPath)
	if err != nil {
		return err
	}
	tc := results.TypeCompleteness
	r.logger.Info("report loaded",
		"package", tc.PackageName,
		"pyright", results.Version,
		"symbols", len(tc.Symbols),
		"completeness", tc.CompletenessScore,
	)

	fig := treemap.New(tc)
	page, err := fig.HTML(treemap.HTMLOptions{DivID: cfg.DivID, FullHTML: !useTemplate})
	if err != nil {
		return err
	}
	if useTemplate {
		if page, err = treemap.ApplyTemplate(tmpl, page); err != nil {
			return err
		}
	}
	preview := fig.SVG(previewScale)

	published, err := r.publisher.Publish(ctx, cfg.SmokeshowKey, page, preview)
	if err != nil {
		return err
	}

	md, err := summary.Render(summary.Data{
		PackageName: tc.PackageName,
		HTMLURL:     published.HTMLURL,
		PreviewURL:  published.PreviewURL,
		Expiration:  published.Expiration,
	})
	if err != nil {
		return err
	}

	commentURL, err := r.comment(ctx, cfg, md)
	if err != nil {
		return err
	}

	if cfg.StepSummary != "" {
		if err := ghoutput.AppendSummary(cfg.StepSummary, md); err != nil {
			return err
		}
	} else {
		_, _ = color.New(color.FgCyan, color.Bold).Fprintln(r.out, "\nSummary:")
		_, _ = fmt.Fprintf(r.out, "\n%s\n", md)
	}

	err = ghoutput.Write(cfg.Output, map[string]string{
		"html_url":    published.HTMLURL,
		"preview_url": published.PreviewURL,
		"expiration":  summary.FullTimestamp(published.Expiration),
		"comment_url": commentURL,
	})
	if err != nil {
		return err
	}

	_, _ = color.New(color.FgGreen, color.Bold).Fprintln(r.out, "Report generated")
	return nil
}

// loadTemplate returns the user template, if any, after checking it has a graph slot.
func loadTemplate(cfg actionConfig) (string, bool, error) {
	if cfg.Template != "" && cfg.TemplateFile != "" {
		return "", false, errors.New("provide either a template string or a template file, not both")
	}
	tmpl := cfg.Template
	if cfg.TemplateFile != "" {
		data, err := os.ReadFile(cfg.TemplateFile)
		if err != nil {
			return "", false, fmt.Errorf("read template file: %w", err)
		}
		tmpl = string(data)
	}
	if tmpl == "" {
		return "", false, nil
	}
	if !treemap.HasSlot(tmpl) {
		return "", false, treemap.ErrNoSlot
	}
	return tmpl, true, nil
}

func (r *runner) readReport(path string) (*report.Results, error) {
	if path == "-" {
		return report.Parse(r.in)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open report: %w", err)
	}
	defer func() { _ = f.Close() }()
	return report.Parse(f)
}

// comment posts or updates the PR comment and returns its URL. Events that cannot be
// tied to a pull request are reported and skipped.
func (r *runner) comment(ctx context.Context, cfg actionConfig, md string) (string, error) {
	if !cfg.CommentOnPR || cfg.EventName == "" || cfg.EventPath == "" {
		return "", nil
	}

	payload, err := os.ReadFile(cfg.EventPath)
	if err != nil {
		return "", fmt.Errorf("read event payload: %w", err)
	}
	plan, err := comment.Classify(cfg.EventName, payload)
	if err != nil {
		return "", err
	}
	if plan.Kind == comment.PlanSkip {
		r.skipComment(plan.Reason)
		return "", nil
	}
	if cfg.GitHubToken == "" {
		return "", errors.New("commenting on pull requests requires --github-token, INPUT_GITHUB_TOKEN or GITHUB_TOKEN")
	}

	client := githubapi.NewClient(ctx, r.logger, githubapi.Options{
		Token:      cfg.GitHubToken,
		GraphQLURL: cfg.GraphQLURL,
		HTTPClient: r.httpClient,
	})
	markerContext := comment.Context{
		comment.Optional("workflow", cfg.Workflow),
		comment.Optional("jobid", cfg.Job),
	}

	commenter, err := comment.FromEvent(ctx, client, cfg.EventName, payload, markerContext)
	var skip *comment.NotCommenting
	if errors.As(err, &skip) {
		r.skipComment(skip.Reason)
		return "", nil
	}
	if err != nil {
		return "", err
	}

	url, err := commenter.PostOrUpdate(ctx, md)
	if err != nil {
		return "", err
	}
	_, _ = fmt.Fprintf(r.out, "Comment posted or updated at %s\n", url)
	return url, nil
}

func (r *runner) skipComment(reason string) {
	message := "Skipping posting a PR comment: " + reason
	ghoutput.Notice(r.out, message)
	r.logger.Info(message)
}
