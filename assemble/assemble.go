// Package assemble builds output decks from selected source slides.
//
// Subset mode copies the whole source deck, drops the slides that were not
// selected and substitutes text in place, so every shape of a kept slide
// survives. Fresh mode starts from the source's masters and layouts and adds
// one slide per selection from the same layout, carrying only placeholder
// text across.
package assemble

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/tsawler/slidesmith/model"
	"github.com/tsawler/slidesmith/pptx"
	"github.com/tsawler/slidesmith/report"
	"github.com/tsawler/slidesmith/substitute"
)

// Mode selects how a deck is assembled.
type Mode string

const (
	ModeSubset Mode = "subset"
	ModeFresh  Mode = "fresh"
)

// ParseMode converts a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeSubset, ModeFresh:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown assembly mode %q (want subset or fresh)", s)
}

// Selection picks a source slide (0-indexed) and the text to substitute on it.
type Selection struct {
	SourceIndex  int
	Replacements substitute.Replacements
}

// Output is an assembled deck.
type Output struct {
	Package  *pptx.Package
	Changes  []substitute.Change
	Warnings []report.Warning
}

// Assembler builds decks. The zero value is ready to use.
type Assembler struct {
	Logger *slog.Logger
}

func (a *Assembler) logger() *slog.Logger {
	if a == nil || a.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return a.Logger
}

// Assemble dispatches to Subset or Fresh.
func (a *Assembler) Assemble(src *pptx.Package, mode Mode, selections []Selection) (*Output, error) {
	switch mode {
	case ModeSubset:
		return a.Subset(src, selections)
	case ModeFresh:
		return a.Fresh(src, selections)
	}
	return nil, fmt.Errorf("unknown assembly mode %q", mode)
}

func referenceWarning(index, count int) report.Warning {
	return report.Warningf(report.AssemblyReference, index,
		"selection references slide %d but the source has %d slides", index+1, count)
}

func notAppliedWarning(index int) report.Warning {
	return report.Warningf(report.SubstitutionNotApplied, index,
		"no paragraph on slide %d matched the replacement text", index+1)
}

// Subset copies src, keeps the selected slides in their original order and
// substitutes text in place. It fails when no selection refers to an
// existing slide. A slide selected more than once is kept once, with the
// replacement maps merged in selection order.
func (a *Assembler) Subset(src *pptx.Package, selections []Selection) (*Output, error) {
	log := a.logger()
	out := &Output{}
	count := src.SlideCount()

	repl := make(map[int]substitute.Replacements)
	var requested []int
	for _, sel := range selections {
		requested = append(requested, sel.SourceIndex)
		if sel.SourceIndex < 0 || sel.SourceIndex >= count {
			out.Warnings = append(out.Warnings, referenceWarning(sel.SourceIndex, count))
			continue
		}
		merged, ok := repl[sel.SourceIndex]
		if !ok {
			merged = substitute.Replacements{}
			repl[sel.SourceIndex] = merged
		}
		for k, v := range sel.Replacements {
			merged[k] = v
		}
	}
	if len(repl) == 0 {
		reason := "empty selection"
		if len(selections) > 0 {
			reason = "no selected slide exists in the source"
		}
		return nil, &report.AssemblyError{Indices: requested, Reason: reason}
	}

	keep := make([]int, 0, len(repl))
	for i := range repl {
		keep = append(keep, i)
	}
	sort.Ints(keep)

	pkg, err := src.Clone()
	if err != nil {
		return nil, fmt.Errorf("copying source deck: %w", err)
	}
	if err := pkg.KeepSlides(keep); err != nil {
		return nil, fmt.Errorf("removing unselected slides: %w", err)
	}

	for pos, index := range keep {
		r := repl[index]
		if len(r) == 0 {
			continue
		}
		res, err := substitute.ApplyPackage(pkg, pos, r)
		if err != nil {
			return nil, fmt.Errorf("substituting text on slide %d: %w", index+1, err)
		}
		out.Changes = append(out.Changes, res.Changes...)
		if !res.Applied {
			out.Warnings = append(out.Warnings, notAppliedWarning(index))
		}
	}

	for _, w := range out.Warnings {
		log.Warn("assembly", "warning", w.String())
	}
	log.Info("assembled subset deck", "kept", len(keep), "source_slides", count, "changes", len(out.Changes))
	out.Package = pkg
	return out, nil
}

// Fresh builds a deck from the masters and layouts of src with one slide per
// valid selection, in selection order. Each new slide uses the layout of its
// source slide, and only placeholder text is copied. Selections of missing
// slides are skipped with a warning.
func (a *Assembler) Fresh(src *pptx.Package, selections []Selection) (*Output, error) {
	sources := make([]Source, len(selections))
	for i, sel := range selections {
		sources[i] = Source{Package: src, Selection: sel}
	}
	return a.FreshFrom(src, sources)
}

// Source is a selection from a particular deck.
type Source struct {
	Package *pptx.Package
	Selection
}

// FreshFrom is Fresh with slides drawn from several decks. The masters and
// layouts come from template. A slide from another deck uses the template
// layout with the same name, or the closest layout with a title and body
// when there is none.
func (a *Assembler) FreshFrom(template *pptx.Package, sources []Source) (*Output, error) {
	log := a.logger()
	out := &Output{}

	pkg, err := template.NewFromTemplate()
	if err != nil {
		return nil, fmt.Errorf("creating deck from template: %w", err)
	}
	var layouts []*pptx.Layout

	for _, src := range sources {
		source, err := src.Package.Slide(src.SourceIndex)
		if err != nil {
			out.Warnings = append(out.Warnings, referenceWarning(src.SourceIndex, src.Package.SlideCount()))
			continue
		}
		if source.LayoutPath == "" {
			return nil, fmt.Errorf("slide %d has no layout", src.SourceIndex+1)
		}

		layoutPath := source.LayoutPath
		if src.Package != template {
			if layouts == nil {
				if layouts, err = template.Layouts(); err != nil {
					return nil, fmt.Errorf("reading template layouts: %w", err)
				}
			}
			l := closestLayout(layouts, source.LayoutName)
			if l == nil {
				return nil, &report.AssemblyError{Indices: []int{src.SourceIndex}, Reason: "template has no layouts"}
			}
			if !strings.EqualFold(l.Name, source.LayoutName) {
				out.Warnings = append(out.Warnings, report.Warningf(report.AssemblyReference, src.SourceIndex,
					"layout %q is not in the template, using %q", source.LayoutName, l.Name))
			}
			layoutPath = l.Path
		}

		f := newFiller(source, src.Replacements)
		if _, err := pkg.AddSlide(layoutPath, f.fill); err != nil {
			return nil, fmt.Errorf("adding slide from source slide %d: %w", src.SourceIndex+1, err)
		}
		out.Changes = append(out.Changes, f.changes...)
		if len(src.Replacements) > 0 && !f.applied {
			out.Warnings = append(out.Warnings, notAppliedWarning(src.SourceIndex))
		}
	}

	for _, w := range out.Warnings {
		log.Warn("assembly", "warning", w.String())
	}
	log.Info("assembled fresh deck", "slides", pkg.SlideCount(), "selections", len(sources))
	out.Package = pkg
	return out, nil
}

// closestLayout returns the layout named name, else the first layout with
// both a title and a body placeholder, else the first layout.
func closestLayout(layouts []*pptx.Layout, name string) *pptx.Layout {
	for _, l := range layouts {
		if strings.EqualFold(l.Name, name) {
			return l
		}
	}
	for _, l := range layouts {
		var title, body bool
		for _, sh := range l.Placeholders() {
			title = title || sh.Placeholder.IsTitle()
			body = body || sh.Placeholder.Kind == "body"
		}
		if title && body {
			return l
		}
	}
	if len(layouts) > 0 {
		return layouts[0]
	}
	return nil
}

// filler copies placeholder text from a source slide into the placeholders
// of a new slide.
type filler struct {
	sources []*pptx.Shape
	used    map[*pptx.Shape]bool
	repl    substitute.Replacements

	applied bool
	changes []substitute.Change
}

func newFiller(source *pptx.Slide, repl substitute.Replacements) *filler {
	f := &filler{used: make(map[*pptx.Shape]bool), repl: repl}
	for i := range source.Shapes {
		sh := &source.Shapes[i]
		if sh.Placeholder != nil && sh.HasTextFrame {
			f.sources = append(f.sources, sh)
		}
	}
	return f
}

// match finds the source placeholder for a layout placeholder: same kind
// and index first, then same kind, then same non-zero index.
func (f *filler) match(ph *model.Placeholder) *pptx.Shape {
	rules := []func(*model.Placeholder) bool{
		func(s *model.Placeholder) bool { return s.Kind == ph.Kind && s.Index == ph.Index },
		func(s *model.Placeholder) bool { return s.Kind == ph.Kind },
		func(s *model.Placeholder) bool { return ph.Index != 0 && s.Index == ph.Index },
	}
	for _, rule := range rules {
		for _, sh := range f.sources {
			if !f.used[sh] && rule(sh.Placeholder) {
				f.used[sh] = true
				return sh
			}
		}
	}
	return nil
}

func (f *filler) fill(layoutShape pptx.Shape) []model.Paragraph {
	src := f.match(layoutShape.Placeholder)
	if src == nil {
		return nil
	}
	paras := make([]model.Paragraph, len(src.Paragraphs))
	for i, p := range src.Paragraphs {
		paras[i] = p
		paras[i].Runs = append([]model.Run(nil), p.Runs...)
		texts, ok := substitute.Rewrite(p.RunTexts(), f.repl)
		if !ok {
			continue
		}
		substitute.SetRunTexts(&paras[i], texts)
		f.applied = true
		f.changes = append(f.changes, substitute.NewChange(src.ID, i, p.RunText(), paras[i].Text))
	}
	return paras
}
