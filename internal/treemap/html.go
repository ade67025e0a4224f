package treemap

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/mjpieters/pyright-analysis-action/internal/report"
)

// PlotlyURL is the CDN build of plotly.js referenced by the rendered pages.
const PlotlyURL = "https://cdn.plot.ly/plotly-2.35.2.min.js"

//go:embed templates/*.tmpl
var htmlTemplates embed.FS

var pageTemplates = template.Must(template.ParseFS(htmlTemplates, "templates/*.tmpl"))

// ErrNoSlot is returned when a user supplied template has nowhere to put the graph.
var ErrNoSlot = errors.New("can't find a '{{ graph }}' slot in the provided template")

var templateSlot = regexp.MustCompile(`\{\{\s*graph\s*\}\}`)

// HTMLOptions controls the HTML rendering.
type HTMLOptions struct {
	// DivID is the id of the graph container; a random id is used when empty.
	DivID string
	// FullHTML renders a complete page instead of a fragment.
	FullHTML bool
}

type trace struct {
	Type          string   `json:"type"`
	IDs           []string `json:"ids"`
	Labels        []string `json:"labels"`
	Parents       []string `json:"parents"`
	Values        []int    `json:"values"`
	BranchValues  string   `json:"branchvalues"`
	Marker        marker   `json:"marker"`
	CustomData    [][]any  `json:"customdata"`
	HoverTemplate string   `json:"hovertemplate"`
}

type marker struct {
	Colors []string `json:"colors"`
}

const hoverTemplate = "<b>%{id}</b> (%{customdata[0]})<br>" +
	"Completeness: %{customdata[1]:.1f}%<br>" +
	"Known: %{customdata[2]}<br>Ambiguous: %{customdata[3]}<br>Unknown: %{customdata[4]}" +
	"<extra></extra>"

func (f *Figure) trace() trace {
	t := trace{Type: "treemap", BranchValues: "total", HoverTemplate: hoverTemplate}
	f.Root.Walk(func(n *report.Node, _ int) {
		parent := ""
		if n.Parent != nil {
			parent = n.Parent.ID
		}
		t.IDs = append(t.IDs, n.ID)
		t.Labels = append(t.Labels, n.Label)
		t.Parents = append(t.Parents, parent)
		t.Values = append(t.Values, n.Counts.Total())
		t.Marker.Colors = append(t.Marker.Colors, colour(n.Counts))
		t.CustomData = append(t.CustomData, []any{
			n.Kind,
			n.Counts.Completeness() * 100,
			n.Counts.WithKnownType,
			n.Counts.WithAmbiguousType,
			n.Counts.WithUnknownType,
		})
	})
	return t
}

// HTML renders the interactive treemap.
func (f *Figure) HTML(opts HTMLOptions) (string, error) {
	divID := opts.DivID
	if divID == "" {
		divID = uuid.NewString()
	}
	data := struct {
		Title     string
		DivID     string
		PlotlyURL string
		Data      []trace
		Layout    map[string]any
	}{
		Title:     f.Title(),
		DivID:     divID,
		PlotlyURL: PlotlyURL,
		Data:      []trace{f.trace()},
		Layout: map[string]any{
			"title":  map[string]any{"text": f.Title()},
			"margin": map[string]int{"t": 50, "l": 25, "r": 25, "b": 25},
		},
	}

	name := "graph"
	if opts.FullHTML {
		name = "page"
	}
	var sb strings.Builder
	if err := pageTemplates.ExecuteTemplate(&sb, name, data); err != nil {
		return "", fmt.Errorf("render treemap html: %w", err)
	}
	return sb.String(), nil
}

// HasSlot reports whether tmpl contains a {{ graph }} slot.
func HasSlot(tmpl string) bool {
	return templateSlot.MatchString(tmpl)
}

// ApplyTemplate replaces the first {{ graph }} slot in tmpl with graph.
func ApplyTemplate(tmpl, graph string) (string, error) {
	loc := templateSlot.FindStringIndex(tmpl)
	if loc == nil {
		return "", ErrNoSlot
	}
	return tmpl[:loc[0]] + graph + tmpl[loc[1]:], nil
}
