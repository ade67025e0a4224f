package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/mjpieters/pyright-analysis-action/internal/report"
	"github.com/mjpieters/pyright-analysis-action/internal/treemap"
)

// runSmoketest renders an empty report to check the container image works.
func runSmoketest(out io.Writer) error {
	_, _ = color.New(color.FgYellow, color.Bold).Fprintln(out, "Action container smoketest")

	fig := treemap.New(&report.TypeCompleteness{
		PackageName:                   "foo",
		ModuleName:                    "foo",
		IgnoreUnknownTypesFromImports: true,
	})
	if _, err := fig.HTML(treemap.HTMLOptions{FullHTML: true}); err != nil {
		return fmt.Errorf("smoketest: %w", err)
	}
	if len(fig.SVG(previewScale)) == 0 {
		return errors.New("smoketest: empty preview image")
	}

	_, _ = color.New(color.FgGreen, color.Bold).Fprintln(out, "Test passed")
	return nil
}
