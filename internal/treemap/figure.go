// Package treemap renders a type completeness report as an interactive Plotly treemap
// and as a static SVG preview.
package treemap

import (
	"fmt"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/mjpieters/pyright-analysis-action/internal/report"
)

// Figure holds the symbol hierarchy of one package, ready for rendering.
type Figure struct {
	Package string
	Score   float64
	Root    *report.Node
}

// New builds a figure from the typeCompleteness section of a Pyright report.
func New(tc *report.TypeCompleteness) *Figure {
	return &Figure{
		Package: tc.PackageName,
		Score:   tc.CompletenessScore,
		Root:    report.BuildTree(tc),
	}
}

// Title is the heading shown above both renderings.
func (f *Figure) Title() string {
	return fmt.Sprintf("Type completeness for %s: %.1f%%", f.Package, f.Score*100)
}

const emptyColour = "#cccccc"

var (
	lowColour  = colorful.Color{R: 0.843, G: 0.188, B: 0.153}
	midColour  = colorful.Color{R: 0.996, G: 0.878, B: 0.545}
	highColour = colorful.Color{R: 0.102, G: 0.596, B: 0.314}
)

// colour maps a node to a red-yellow-green scale by the share of known symbols.
func colour(counts report.SymbolCounts) string {
	if counts.Total() == 0 {
		return emptyColour
	}
	c := counts.Completeness()
	if c < 0.5 {
		return lowColour.BlendLab(midColour, c*2).Clamped().Hex()
	}
	return midColour.BlendLab(highColour, (c-0.5)*2).Clamped().Hex()
}
