package slidesmith

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/tsawler/slidesmith/assemble"
	"github.com/tsawler/slidesmith/generate"
	"github.com/tsawler/slidesmith/match"
	"github.com/tsawler/slidesmith/model"
	"github.com/tsawler/slidesmith/pptx"
	"github.com/tsawler/slidesmith/report"
	"github.com/tsawler/slidesmith/store"
	"github.com/tsawler/slidesmith/substitute"
)

// GenerateResult is the outcome of building a deck from a brief.
type GenerateResult struct {
	Path        string // Written deck
	Mode        assemble.Mode
	Outline     []match.Section
	Assignments []match.Assignment
	Unmatched   []match.Section
	Changes     []substitute.Change
	Warnings    []report.Warning
}

// Generate builds a deck for brief. It asks the completer for an outline,
// assigns a stored slide to each section, generates replacement text for
// every assigned slide and assembles the result into OutputDir.
//
// When every assigned slide comes from the same deck the deck is assembled
// in mode, subset when mode is empty. Slides from several decks are always
// assembled fresh on the layouts of the deck of the first assignment.
func (s *Service) Generate(ctx context.Context, brief generate.Brief, mode assemble.Mode) (*GenerateResult, error) {
	if s.Store == nil || s.Embedder == nil {
		return nil, ErrNoStore
	}
	if s.Completer == nil {
		return nil, fmt.Errorf("slidesmith: completer is required")
	}
	log := s.logger()
	result := &GenerateResult{}

	start := time.Now()
	sections, err := generate.Outline(ctx, s.Completer, brief)
	s.Metrics.ObserveGeneration("outline", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	result.Outline = sections
	log.Info("generated outline", "sections", len(sections))

	records, err := s.Store.ListCandidates(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing candidate slides: %w", err)
	}
	matched, err := s.matcher().Match(ctx, s.Embedder, sections, store.Candidates(records))
	if err != nil {
		return nil, err
	}
	result.Assignments = matched.Assignments
	result.Unmatched = matched.Unmatched
	result.Warnings = append(result.Warnings, matched.Warnings...)

	similarities := make([]float64, len(matched.Assignments))
	for i, a := range matched.Assignments {
		similarities[i] = a.Similarity
	}
	s.Metrics.ObserveMatch(similarities, len(matched.Unmatched))

	if len(matched.Assignments) == 0 {
		s.Metrics.ObserveWarnings(result.Warnings)
		return nil, &report.AssemblyError{Reason: "no stored slide matched the outline"}
	}

	picked, err := s.loadAssigned(ctx, matched.Assignments)
	if err != nil {
		return nil, err
	}

	contexts := make([]generate.SlideContext, len(picked))
	for i, p := range picked {
		contexts[i] = generate.SlideContext{
			SlideID:     strconv.FormatInt(p.record.ID, 10),
			SourceIndex: p.record.Index,
			SlideType:   p.record.SlideType,
			Section:     p.section,
			Brief:       brief,
			Paragraphs:  paragraphKeys(p.record),
		}
	}
	start = time.Now()
	generated, err := s.writer().Generate(ctx, s.Completer, contexts)
	s.Metrics.ObserveGeneration("replacements", time.Since(start), err)
	if err != nil {
		return nil, err
	}

	out, mode, err := s.assembleAssigned(picked, generated, mode)
	if err != nil {
		return nil, err
	}
	result.Mode = mode
	result.Changes = out.Changes
	result.Warnings = append(result.Warnings, out.Warnings...)

	path, err := s.save(out.Package)
	if err != nil {
		return nil, err
	}
	result.Path = path

	s.Metrics.ObserveSubstitutions(string(mode), len(out.Changes))
	s.Metrics.ObserveAssembly(string(mode))
	s.Metrics.ObserveWarnings(result.Warnings)
	log.Info("generated deck",
		"path", path,
		"mode", mode,
		"slides", out.Package.SlideCount(),
		"unmatched", len(matched.Unmatched),
		"changes", len(out.Changes))
	return result, nil
}

// assigned is a matched slide with its full record and source deck.
type assigned struct {
	section match.Section
	record  *store.SlideRecord
	deck    *pptx.Package
}

func (s *Service) loadAssigned(ctx context.Context, assignments []match.Assignment) ([]assigned, error) {
	decks := make(map[int64]*pptx.Package)
	out := make([]assigned, 0, len(assignments))
	for _, a := range assignments {
		rec, err := s.Store.GetSlide(ctx, a.Candidate.ID)
		if err != nil {
			return nil, fmt.Errorf("loading slide %d: %w", a.Candidate.ID, err)
		}
		deck, ok := decks[rec.PresentationID]
		if !ok {
			pres, err := s.Store.GetPresentation(ctx, rec.PresentationID)
			if err != nil {
				return nil, fmt.Errorf("loading presentation %d: %w", rec.PresentationID, err)
			}
			if deck, err = pptx.Open(pres.StoragePath); err != nil {
				return nil, err
			}
			decks[rec.PresentationID] = deck
		}
		out = append(out, assigned{section: a.Section, record: rec, deck: deck})
	}
	return out, nil
}

func (s *Service) assembleAssigned(picked []assigned, generated []substitute.Generated, mode assemble.Mode) (*assemble.Output, assemble.Mode, error) {
	if mode == "" {
		mode = assemble.ModeSubset
	}
	single := true
	for _, p := range picked[1:] {
		single = single && p.deck == picked[0].deck
	}

	a := s.assembler()
	if single {
		selections := make([]assemble.Selection, len(picked))
		for i, p := range picked {
			selections[i] = assemble.Selection{SourceIndex: p.record.Index, Replacements: generated[i].Content}
		}
		out, err := a.Assemble(picked[0].deck, mode, selections)
		return out, mode, err
	}

	if mode != assemble.ModeFresh {
		s.logger().Info("slides come from several decks, assembling fresh", "requested", mode)
	}
	sources := make([]assemble.Source, len(picked))
	for i, p := range picked {
		sources[i] = assemble.Source{
			Package:   p.deck,
			Selection: assemble.Selection{SourceIndex: p.record.Index, Replacements: generated[i].Content},
		}
	}
	out, err := a.FreshFrom(picked[0].deck, sources)
	return out, assemble.ModeFresh, err
}

// save writes pkg into OutputDir under a unique name.
func (s *Service) save(pkg *pptx.Package) (string, error) {
	dir := s.OutputDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generating output name: %w", err)
	}
	path := filepath.Join(dir, "presentation_"+id.String()+".pptx")
	if err := pkg.Save(path); err != nil {
		return "", fmt.Errorf("saving deck: %w", err)
	}
	return path, nil
}

// paragraphKeys lists the distinct non-empty paragraph texts of a slide as
// the substitution engine will look them up.
func paragraphKeys(rec *store.SlideRecord) []string {
	if rec.Schema == nil {
		return nil
	}
	seen := make(map[string]bool)
	var keys []string
	rec.Schema.Paragraphs(func(_ *model.Element, _ int, p *model.Paragraph) bool {
		if k := p.Key(); k != "" && !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
		return true
	})
	return keys
}
