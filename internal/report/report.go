// Package report decodes Pyright JSON reports produced with --outputjson --verifytypes.
package report

import (
	"errors"
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrNoTypeCompleteness is returned for reports produced without --verifytypes.
var ErrNoTypeCompleteness = errors.New("report has no typeCompleteness section; run pyright with --verifytypes")

// Results is the top level of a Pyright JSON report.
type Results struct {
	Version          string            `json:"version"`
	Time             string            `json:"time"`
	Summary          Summary           `json:"summary"`
	TypeCompleteness *TypeCompleteness `json:"typeCompleteness"`
}

type Summary struct {
	FilesAnalyzed    int     `json:"filesAnalyzed"`
	ErrorCount       int     `json:"errorCount"`
	WarningCount     int     `json:"warningCount"`
	InformationCount int     `json:"informationCount"`
	TimeInSec        float64 `json:"timeInSec"`
}

// SymbolCounts tallies symbols by how well their type is known.
type SymbolCounts struct {
	WithKnownType     int `json:"withKnownType"`
	WithAmbiguousType int `json:"withAmbiguousType"`
	WithUnknownType   int `json:"withUnknownType"`
}

// Total is the number of symbols counted.
func (c SymbolCounts) Total() int {
	return c.WithKnownType + c.WithAmbiguousType + c.WithUnknownType
}

// Completeness is the fraction of symbols with a known type, 0 when there are none.
func (c SymbolCounts) Completeness() float64 {
	total := c.Total()
	if total == 0 {
		return 0
	}
	return float64(c.WithKnownType) / float64(total)
}

// Add returns the sum of two tallies.
func (c SymbolCounts) Add(o SymbolCounts) SymbolCounts {
	return SymbolCounts{
		WithKnownType:     c.WithKnownType + o.WithKnownType,
		WithAmbiguousType: c.WithAmbiguousType + o.WithAmbiguousType,
		WithUnknownType:   c.WithUnknownType + o.WithUnknownType,
	}
}

type TypeCompleteness struct {
	PackageName                   string       `json:"packageName"`
	ModuleName                    string       `json:"moduleName"`
	IgnoreUnknownTypesFromImports bool         `json:"ignoreUnknownTypesFromImports"`
	ExportedSymbolCounts          SymbolCounts `json:"exportedSymbolCounts"`
	OtherSymbolCounts             SymbolCounts `json:"otherSymbolCounts"`
	MissingFunctionDocStringCount int          `json:"missingFunctionDocStringCount"`
	MissingClassDocStringCount    int          `json:"missingClassDocStringCount"`
	MissingDefaultParamCount      int          `json:"missingDefaultParamCount"`
	CompletenessScore             float64      `json:"completenessScore"`
	Modules                       []Module     `json:"modules"`
	Symbols                       []Symbol     `json:"symbols"`
}

type Module struct {
	Name string `json:"name"`
}

// Symbol is one symbol reported by --verifytypes.
type Symbol struct {
	Category        string       `json:"category"`
	Name            string       `json:"name"`
	ReferenceCount  int          `json:"referenceCount"`
	IsExported      bool         `json:"isExported"`
	IsTypeKnown     bool         `json:"isTypeKnown"`
	IsTypeAmbiguous bool         `json:"isTypeAmbiguous"`
	Diagnostics     []Diagnostic `json:"diagnostics"`
}

// Counts classifies the symbol itself as known, ambiguous or unknown.
func (s Symbol) Counts() SymbolCounts {
	switch {
	case s.IsTypeKnown:
		return SymbolCounts{WithKnownType: 1}
	case s.IsTypeAmbiguous:
		return SymbolCounts{WithAmbiguousType: 1}
	default:
		return SymbolCounts{WithUnknownType: 1}
	}
}

type Diagnostic struct {
	File     string `json:"file"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	Range    *Range `json:"range,omitempty"`
}

type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Parse decodes a report and checks that it carries type completeness data.
func Parse(r io.Reader) (*Results, error) {
	var results Results
	if err := json.NewDecoder(r).Decode(&results); err != nil {
		return nil, fmt.Errorf("decode pyright report: %w", err)
	}
	if results.TypeCompleteness == nil {
		return nil, ErrNoTypeCompleteness
	}
	if results.TypeCompleteness.PackageName == "" {
		return nil, errors.New("pyright report has an empty packageName")
	}
	return &results, nil
}
