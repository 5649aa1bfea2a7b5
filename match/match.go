// Package match assigns outline sections to stored slides by embedding
// similarity.
//
// Assignment is greedy and follows outline order: each section takes the
// best remaining candidate, and a chosen candidate is removed from the pool
// for every later section. Earlier sections therefore get first pick.
package match

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"

	"golang.org/x/text/cases"

	"github.com/tsawler/slidesmith/internal/spacedjson"
	"github.com/tsawler/slidesmith/report"
)

// Defaults.
const (
	DefaultThreshold     = 0.7
	DefaultCategoryBoost = 1.2
)

// Section is one entry of a presentation outline.
type Section struct {
	Number      int      `json:"slide_number" yaml:"slide_number"`
	Label       string   `json:"section" yaml:"section"`
	Description string   `json:"description" yaml:"description"`
	Keywords    []string `json:"keywords" yaml:"keywords"`
}

// QueryText is the text embedded to search for the section.
func (s Section) QueryText() string {
	keywords := s.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	return spacedjson.Object{
		{Key: "section", Value: s.Label},
		{Key: "description", Value: s.Description},
		{Key: "keywords", Value: keywords},
	}.String()
}

// Candidate is a stored slide that can be matched.
type Candidate struct {
	ID        int64
	Category  string
	Embedding []float32
	Ref       any // Caller data carried through to the assignment
}

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// EmbedderFunc adapts a function to Embedder.
type EmbedderFunc func(ctx context.Context, text string) ([]float32, error)

// Embed calls f.
func (f EmbedderFunc) Embed(ctx context.Context, text string) ([]float32, error) {
	return f(ctx, text)
}

// Assignment pairs a section with the chosen candidate.
type Assignment struct {
	Section    Section
	Candidate  Candidate
	Similarity float64 // Raw cosine similarity
	Score      float64 // Similarity after the category boost
}

// Result is the outcome of matching an outline.
type Result struct {
	Assignments []Assignment
	Unmatched   []Section
	Warnings    []report.Warning
}

// Matcher scores candidates against sections.
type Matcher struct {
	Threshold     float64
	CategoryBoost float64
	Logger        *slog.Logger
}

// New returns a Matcher with the default threshold and boost.
func New() *Matcher {
	return &Matcher{Threshold: DefaultThreshold, CategoryBoost: DefaultCategoryBoost}
}

func (m *Matcher) logger() *slog.Logger {
	if m.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return m.Logger
}

// Match assigns sections to candidates in section order. Sections without
// a candidate reaching the threshold are reported as warnings. An embedder
// failure aborts the whole request.
func (m *Matcher) Match(ctx context.Context, embedder Embedder, sections []Section, pool []Candidate) (*Result, error) {
	log := m.logger()
	fold := cases.Fold()
	used := make(map[int64]bool)
	result := &Result{}

	for _, section := range sections {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		query, err := embedder.Embed(ctx, section.QueryText())
		if err != nil {
			return nil, fmt.Errorf("embedding section %d (%q): %w", section.Number, section.Label, err)
		}
		label := fold.String(section.Label)

		best := -1
		bestScore := math.Inf(-1)
		var bestSim float64
		for i := range pool {
			c := &pool[i]
			if used[c.ID] {
				continue
			}
			sim, err := Cosine(query, c.Embedding)
			if err != nil {
				log.Debug("candidate skipped", "candidate", c.ID, "section", section.Label, "error", err)
				continue
			}
			score := sim
			if label == fold.String(c.Category) {
				score *= m.CategoryBoost
			}
			if score > bestScore {
				best, bestScore, bestSim = i, score, sim
			}
		}

		if best < 0 || bestScore < m.Threshold {
			w := report.Warningf(report.NoMatchFound, -1, "no good match found for section %q", section.Label)
			w.Section = section.Label
			if best >= 0 {
				w.Message += fmt.Sprintf(" (best score %.3f below %.2f)", bestScore, m.Threshold)
			}
			log.Warn("no match", "section", section.Label, "best", bestScore)
			result.Unmatched = append(result.Unmatched, section)
			result.Warnings = append(result.Warnings, w)
			continue
		}

		used[pool[best].ID] = true
		log.Debug("section matched", "section", section.Label, "candidate", pool[best].ID, "score", bestScore)
		result.Assignments = append(result.Assignments, Assignment{
			Section:    section,
			Candidate:  pool[best],
			Similarity: bestSim,
			Score:      bestScore,
		})
	}
	return result, nil
}
