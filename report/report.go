// Package report defines the error taxonomy and the non-fatal warnings that
// slidesmith components return alongside their results.
//
// Fatal conditions are returned as errors ([ParseError], [GenerationError],
// [AssemblyError]) and can be inspected with errors.As. Non-fatal conditions
// are collected as [Warning] values and never dropped silently.
package report

import (
	"fmt"
	"strings"
)

// Kind classifies a non-fatal condition.
type Kind int

const (
	// ClassificationFallback means a shape's metadata was ambiguous or malformed
	// and defaults were applied.
	ClassificationFallback Kind = iota + 1
	// NoMatchFound means an outline section did not clear the similarity threshold.
	NoMatchFound
	// SubstitutionNotApplied means no paragraph on a slide matched the replacement map.
	SubstitutionNotApplied
	// AssemblyReference means a selection referenced a slide that does not exist.
	AssemblyReference
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case ClassificationFallback:
		return "ClassificationFallback"
	case NoMatchFound:
		return "NoMatchFound"
	case SubstitutionNotApplied:
		return "SubstitutionNotApplied"
	case AssemblyReference:
		return "AssemblyReference"
	default:
		return "Unknown"
	}
}

// Warning is a non-fatal condition reported next to a successful result.
type Warning struct {
	Kind    Kind   `json:"kind"`
	Slide   int    `json:"slide"`   // 0-indexed slide, -1 when not slide-specific
	Element int    `json:"element"` // shape id, 0 when not element-specific
	Section string `json:"section,omitempty"`
	Message string `json:"message"`
}

// Warningf builds a warning for a slide.
func Warningf(kind Kind, slide int, format string, args ...any) Warning {
	return Warning{Kind: kind, Slide: slide, Message: fmt.Sprintf(format, args...)}
}

// String formats the warning for display.
func (w Warning) String() string {
	var b strings.Builder
	b.WriteString(w.Kind.String())
	if w.Slide >= 0 {
		fmt.Fprintf(&b, " slide %d", w.Slide+1)
	}
	if w.Element > 0 {
		fmt.Fprintf(&b, " shape %d", w.Element)
	}
	if w.Section != "" {
		fmt.Fprintf(&b, " section %q", w.Section)
	}
	b.WriteString(": ")
	b.WriteString(w.Message)
	return b.String()
}

// FormatWarnings joins warnings into a multi-line string.
func FormatWarnings(warnings []Warning) string {
	lines := make([]string, len(warnings))
	for i, w := range warnings {
		lines[i] = w.String()
	}
	return strings.Join(lines, "\n")
}

// Filter returns the warnings of the given kind.
func Filter(warnings []Warning, kind Kind) []Warning {
	var out []Warning
	for _, w := range warnings {
		if w.Kind == kind {
			out = append(out, w)
		}
	}
	return out
}

// ParseError reports a source document that is not a valid deck container.
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("parse deck: %v", e.Err)
	}
	return fmt.Sprintf("parse deck %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// GenerationError reports that structured output for a slide could not be
// parsed after all attempts were exhausted.
type GenerationError struct {
	SlideID  string
	Attempts int
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generate content for slide %s: no valid output after %d attempts: %v", e.SlideID, e.Attempts, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// AssemblyError reports a selection that leaves nothing to assemble.
type AssemblyError struct {
	Indices []int
	Reason  string
}

func (e *AssemblyError) Error() string {
	return fmt.Sprintf("assemble deck: %s (selection %v)", e.Reason, e.Indices)
}
