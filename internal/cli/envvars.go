package cli

import (
	"strconv"
	"strings"

	envparse "github.com/caarlos0/env/v11"

	"github.com/mjpieters/pyright-analysis-action/internal/env"
)

// baseEnv defines root CLI defaults.
type baseEnv struct {
	// LogLevel is the logging level from INPUT_LOG_LEVEL.
	LogLevel string `env:"INPUT_LOG_LEVEL"`
	// RunnerDebug is set to 1 by the runner when step debug logging is enabled.
	RunnerDebug string `env:"RUNNER_DEBUG"`
}

// actionEnv captures the action inputs and the runner context.
type actionEnv struct {
	// Report is the Pyright JSON report path from INPUT_REPORT.
	Report string `env:"INPUT_REPORT"`
	// DivID is the graph container id from INPUT_DIV_ID.
	DivID string `env:"INPUT_DIV_ID"`
	// Template is an inline HTML template from INPUT_TEMPLATE.
	Template string `env:"INPUT_TEMPLATE"`
	// TemplateFile is an HTML template path from INPUT_TEMPLATE_FILE.
	TemplateFile string `env:"INPUT_TEMPLATE_FILE"`
	// CommentOnPR toggles the PR comment from INPUT_COMMENT_ON_PR.
	CommentOnPR string `env:"INPUT_COMMENT_ON_PR"`
	// GitHubToken is the API token from INPUT_GITHUB_TOKEN.
	GitHubToken string `env:"INPUT_GITHUB_TOKEN"`
	// SmokeshowAuthKey is a pre-generated site creation key from SMOKESHOW_AUTH_KEY.
	SmokeshowAuthKey string `env:"SMOKESHOW_AUTH_KEY"`

	StepSummary string `env:"GITHUB_STEP_SUMMARY"`
	Output      string `env:"GITHUB_OUTPUT"`
	EventName   string `env:"GITHUB_EVENT_NAME"`
	EventPath   string `env:"GITHUB_EVENT_PATH"`
	APIURL      string `env:"GITHUB_API_URL"`
	GraphQLURL  string `env:"GITHUB_GRAPHQL_URL"`
	Workflow    string `env:"GITHUB_WORKFLOW"`
	Job         string `env:"GITHUB_JOB"`
}

// parseEnv fills target from vars via caarlos0/env.
func parseEnv(target any, vars env.Vars) error {
	return envparse.ParseWithOptions(target, envparse.Options{Environment: vars})
}

// envPresent reports whether a non-empty env var exists.
func envPresent(vars env.Vars, key string) bool {
	return vars.Present(key)
}

// parseEnvBool parses a boolean string and reports if it was present and valid.
func parseEnvBool(value string) (bool, bool) {
	if strings.TrimSpace(value) == "" {
		return false, false
	}
	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return false, false
	}
	return parsed, true
}

// lookupGitHubToken returns the first non-empty token variable.
func lookupGitHubToken(vars env.Vars, actionToken string) string {
	candidates := []string{actionToken, vars["GITHUB_TOKEN"], vars["GH_TOKEN"]}
	for _, v := range candidates {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
