// Package schema builds the ShapeTree Model of each slide of a deck and
// derives the semantic metadata used for retrieval.
package schema

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/tsawler/slidesmith/model"
	"github.com/tsawler/slidesmith/ocr"
	"github.com/tsawler/slidesmith/pptx"
	"github.com/tsawler/slidesmith/report"
)

// Result holds the slide models of a deck and the warnings raised while
// building them.
type Result struct {
	Slides   []*model.Slide
	Warnings []report.Warning
}

// Extractor converts parsed decks into slide models. Each configuration
// method returns a new Extractor, so a configured Extractor is safe for
// concurrent use.
type Extractor struct {
	logger     *slog.Logger
	recognizer ocr.Recognizer
	slides     []int // nil means all slides
}

// New returns an Extractor with logging discarded and OCR disabled.
func New() *Extractor {
	return &Extractor{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func (x *Extractor) clone() *Extractor {
	out := *x
	if x.slides != nil {
		out.slides = append([]int(nil), x.slides...)
	}
	return &out
}

// WithLogger sets the logger. Warnings are mirrored to it.
func (x *Extractor) WithLogger(logger *slog.Logger) *Extractor {
	out := x.clone()
	if logger != nil {
		out.logger = logger
	}
	return out
}

// WithRecognizer enables text recognition on raster pictures.
func (x *Extractor) WithRecognizer(r ocr.Recognizer) *Extractor {
	out := x.clone()
	out.recognizer = r
	return out
}

// Slides restricts extraction to the given slides (0-indexed).
func (x *Extractor) Slides(indices ...int) *Extractor {
	out := x.clone()
	out.slides = append([]int(nil), indices...)
	return out
}

// ExtractFile opens a deck and extracts it.
func (x *Extractor) ExtractFile(ctx context.Context, filename string) (*Result, error) {
	pkg, err := pptx.Open(filename)
	if err != nil {
		return nil, err
	}
	return x.Extract(ctx, pkg)
}

// ExtractBytes extracts a deck held in memory.
func (x *Extractor) ExtractBytes(ctx context.Context, data []byte) (*Result, error) {
	pkg, err := pptx.OpenBytes(data)
	if err != nil {
		return nil, err
	}
	return x.Extract(ctx, pkg)
}

// Extract builds one model per selected slide, in deck order.
func (x *Extractor) Extract(ctx context.Context, pkg *pptx.Package) (*Result, error) {
	slides, err := x.selected(pkg)
	if err != nil {
		return nil, err
	}

	result := &Result{Slides: make([]*model.Slide, 0, len(slides))}
	for _, s := range slides {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m, warnings := x.slide(ctx, pkg, s)
		if err := m.Validate(); err != nil {
			return nil, fmt.Errorf("slide %d: %w", s.Index+1, err)
		}
		for _, w := range warnings {
			x.logger.Warn("slide model", "warning", w.String())
		}
		x.logger.Debug("extracted slide", "index", s.Index, "layout", m.LayoutName, "elements", len(m.Elements))
		result.Slides = append(result.Slides, m)
		result.Warnings = append(result.Warnings, warnings...)
	}
	return result, nil
}

func (x *Extractor) selected(pkg *pptx.Package) ([]*pptx.Slide, error) {
	if x.slides == nil {
		return pkg.Slides(), nil
	}
	out := make([]*pptx.Slide, 0, len(x.slides))
	for _, i := range x.slides {
		s, err := pkg.Slide(i)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Slide builds the model of one parsed slide.
func (x *Extractor) Slide(ctx context.Context, pkg *pptx.Package, s *pptx.Slide) (*model.Slide, []report.Warning) {
	return x.slide(ctx, pkg, s)
}

func (x *Extractor) slide(ctx context.Context, pkg *pptx.Package, s *pptx.Slide) (*model.Slide, []report.Warning) {
	var warnings []report.Warning
	warn := func(element int, format string, args ...any) {
		w := report.Warningf(report.ClassificationFallback, s.Index, format, args...)
		w.Element = element
		warnings = append(warnings, w)
	}

	m := &model.Slide{
		SlideID:    slideID(s),
		Index:      s.Index,
		LayoutName: s.LayoutName,
		Elements:   make([]model.Element, 0, len(s.Shapes)),
		Background: s.Background,
	}

	seen := make(map[int]bool, len(s.Shapes))
	maxID := 0
	for i := range s.Shapes {
		maxID = max(maxID, s.Shapes[i].ID)
	}
	for i := range s.Shapes {
		sh := &s.Shapes[i]
		e := x.element(ctx, pkg, sh, warn)
		if seen[e.ID] {
			maxID++
			warn(e.ID, "duplicate shape id %d on %q, renumbered to %d", e.ID, sh.Name, maxID)
			e.ID = maxID
		}
		seen[e.ID] = true
		m.Elements = append(m.Elements, e)
	}
	// Detach from the codec's parsed state.
	return m.Clone(), warnings
}

func (x *Extractor) element(ctx context.Context, pkg *pptx.Package, sh *pptx.Shape, warn func(int, string, ...any)) model.Element {
	e := model.Element{
		ID:          sh.ID,
		Name:        sh.Name,
		Geometry:    sh.Geometry,
		Placeholder: sh.Placeholder,
		Fill:        sh.Fill,
	}
	if sh.PlaceholderErr != nil {
		warn(sh.ID, "shape %q: placeholder metadata unreadable (%v), classified by content", sh.Name, sh.PlaceholderErr)
	}

	switch {
	case sh.HasChart():
		e.Kind = model.KindChart
		e.Chart = sh.Chart
		if e.Chart == nil {
			e.Chart = &model.Chart{Kind: "unknown"}
			warn(sh.ID, "shape %q: chart data unreadable (%v), empty chart recorded", sh.Name, sh.ChartErr)
		}
	case sh.HasTable():
		e.Kind = model.KindTable
		e.Table = sh.Table
	case hasRenderableText(sh):
		e.Kind = model.KindText
		e.Text = sh.Paragraphs
	case sh.Type == pptx.ShapePicture:
		e.Kind = model.KindPicture
		pic, err := x.picture(ctx, pkg, sh.Image)
		if err != nil {
			warn(sh.ID, "shape %q: %v", sh.Name, err)
		}
		e.Picture = pic
	default:
		e.Kind = model.KindGeneric
	}
	return e
}

// hasRenderableText reports whether a text body holds any visible text.
// All paragraphs are kept so that paragraph indices match the document.
func hasRenderableText(sh *pptx.Shape) bool {
	if !sh.HasTextFrame {
		return false
	}
	for i := range sh.Paragraphs {
		if strings.TrimSpace(sh.Paragraphs[i].Text) != "" {
			return true
		}
	}
	return false
}

func slideID(s *pptx.Slide) string {
	if s.ID != "" {
		return s.ID
	}
	return strings.TrimSuffix(path.Base(s.Path), ".xml")
}
