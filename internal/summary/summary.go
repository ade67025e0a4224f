// Package summary renders the markdown summary shared by the job summary and the PR comment.
package summary

import (
	"embed"
	"fmt"
	"strings"
	"text/template"
	"time"
)

//go:embed templates/*.tmpl
var summaryTemplates embed.FS

const (
	tmplName = "templates/summary.md.tmpl"

	secondsLayout      = "2006-01-02T15:04:05-07:00"
	microsecondsLayout = "2006-01-02T15:04:05.000000-07:00"
)

// Data is what the summary shows.
type Data struct {
	PackageName string
	HTMLURL     string
	PreviewURL  string
	Expiration  time.Time
}

// Render renders the summary markdown.
func Render(d Data) (string, error) {
	tmplData, err := summaryTemplates.ReadFile(tmplName)
	if err != nil {
		return "", fmt.Errorf("load summary template %s: %w", tmplName, err)
	}

	tmpl, err := template.New(tmplName).Parse(string(tmplData))
	if err != nil {
		return "", fmt.Errorf("parse summary template: %w", err)
	}

	data := struct {
		PackageName string
		HTMLURL     string
		PreviewURL  string
		Expiration  string
	}{
		PackageName: d.PackageName,
		HTMLURL:     d.HTMLURL,
		PreviewURL:  d.PreviewURL,
		Expiration:  Timestamp(d.Expiration),
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("render summary: %w", err)
	}
	return sb.String(), nil
}

// Timestamp formats t with second precision and a numeric UTC offset.
func Timestamp(t time.Time) string {
	return t.Format(secondsLayout)
}

// FullTimestamp is Timestamp with microseconds added when t has any.
func FullTimestamp(t time.Time) string {
	if t.Nanosecond()/1000 == 0 {
		return t.Format(secondsLayout)
	}
	return t.Format(microsecondsLayout)
}
