// Package ghoutput writes GitHub Actions step outputs, job summaries and workflow commands.
package ghoutput

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// Write appends step outputs to the file at path, normally $GITHUB_OUTPUT.
// Nothing is written when path is empty.
func Write(path string, values map[string]string) error {
	path = strings.TrimSpace(path)
	if path == "" || len(values) == 0 {
		return nil
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open outputs file: %w", err)
	}
	defer func() { _ = f.Close() }()

	keys := make([]string, 0, len(values))
	for k := range values {
		if strings.TrimSpace(k) == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if err := writeOutput(f, key, values[key]); err != nil {
			return fmt.Errorf("write output %s: %w", key, err)
		}
	}
	return nil
}

// writeOutput uses key=value for single line values and the heredoc form otherwise.
func writeOutput(w io.Writer, key, value string) error {
	if !strings.ContainsAny(value, "\r\n") {
		_, err := fmt.Fprintf(w, "%s=%s\n", key, value)
		return err
	}
	delimiter := "EOF"
	for strings.Contains(value, delimiter) {
		delimiter += "_"
	}
	_, err := fmt.Fprintf(w, "%s<<%s\n%s\n%s\n", key, delimiter, value, delimiter)
	return err
}

// AppendSummary adds markdown to the job summary file at path, normally $GITHUB_STEP_SUMMARY.
func AppendSummary(path, markdown string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open step summary: %w", err)
	}
	defer func() { _ = f.Close() }()

	if !strings.HasSuffix(markdown, "\n") {
		markdown += "\n"
	}
	if _, err := io.WriteString(f, markdown); err != nil {
		return fmt.Errorf("write step summary: %w", err)
	}
	return nil
}

// Notice emits a ::notice:: workflow command.
func Notice(w io.Writer, message string) {
	_, _ = fmt.Fprintf(w, "::notice::%s\n", escapeData(message))
}

func escapeData(value string) string {
	value = strings.ReplaceAll(value, "%", "%25")
	value = strings.ReplaceAll(value, "\r", "%0D")
	value = strings.ReplaceAll(value, "\n", "%0A")
	return value
}
