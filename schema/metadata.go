package schema

import (
	"sort"
	"strings"

	"github.com/tsawler/slidesmith/internal/spacedjson"
	"github.com/tsawler/slidesmith/model"
)

// Slide categories.
const (
	CategoryDataVisualization = "data_visualization"
	CategoryDataPresentation  = "data_presentation"
	CategoryVisual            = "visual"
	CategoryContent           = "content"
)

// Slide types.
const (
	TypeTitleSlide      = "title_slide"
	TypeTitleAndContent = "title_and_content"
	TypeChartSlide      = "chart_slide"
	TypeTableSlide      = "table_slide"
	TypeImageSlide      = "image_slide"
	TypeTextSlide       = "text_slide"
)

// UntitledSlide is the title of slides without a readable title shape.
const UntitledSlide = "Untitled Slide"

var purposes = map[string]string{
	TypeTitleSlide: "To introduce the presentation",
	TypeChartSlide: "To visualize data or trends",
	TypeTableSlide: "To present structured data",
	TypeImageSlide: "To provide visual information",
	TypeTextSlide:  "To convey textual information",
}

const defaultPurpose = "To present information"

// Category classifies a slide by its strongest content: any chart, then any
// table, then more than one picture.
func Category(s *model.Slide) string {
	switch {
	case s.Has(model.KindChart):
		return CategoryDataVisualization
	case s.Has(model.KindTable):
		return CategoryDataPresentation
	case s.Count(model.KindPicture) > 1:
		return CategoryVisual
	default:
		return CategoryContent
	}
}

// SlideType derives the slide type from the layout name first and the
// content second.
func SlideType(s *model.Slide) string {
	layout := strings.ToLower(s.LayoutName)
	if strings.Contains(layout, "title") {
		if strings.Contains(layout, "content") {
			return TypeTitleAndContent
		}
		return TypeTitleSlide
	}
	switch {
	case s.Has(model.KindChart):
		return TypeChartSlide
	case s.Has(model.KindTable):
		return TypeTableSlide
	case s.Has(model.KindPicture):
		return TypeImageSlide
	default:
		return TypeTextSlide
	}
}

// Purpose maps a slide type to a short purpose statement.
func Purpose(slideType string) string {
	if p, ok := purposes[slideType]; ok {
		return p
	}
	return defaultPurpose
}

// Title returns the text of the first title placeholder, else of the first
// text element whose name contains "Title", else UntitledSlide.
func Title(s *model.Slide) string {
	for i := range s.Elements {
		e := &s.Elements[i]
		if e.Kind == model.KindText && e.Placeholder.IsTitle() {
			if t := strings.TrimSpace(e.PlainText()); t != "" {
				return t
			}
		}
	}
	for i := range s.Elements {
		e := &s.Elements[i]
		if e.Kind == model.KindText && e.Placeholder == nil && strings.Contains(e.Name, "Title") {
			if t := strings.TrimSpace(e.PlainText()); t != "" {
				return t
			}
		}
	}
	return UntitledSlide
}

// Tags returns the lower-cased layout name followed by the sorted set of
// content kinds present on the slide.
func Tags(s *model.Slide) []string {
	seen := make(map[string]bool)
	for i := range s.Elements {
		switch k := s.Elements[i].Kind; k {
		case model.KindChart, model.KindTable, model.KindPicture, model.KindText:
			seen[k.String()] = true
		}
	}
	kinds := make([]string, 0, len(seen))
	for k := range seen {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return append([]string{strings.ToLower(s.LayoutName)}, kinds...)
}

// Metadata is the derived semantic description of a slide.
type Metadata struct {
	Title     string   `json:"title" yaml:"title"`
	Purpose   string   `json:"purpose" yaml:"purpose"`
	Category  string   `json:"category" yaml:"category"`
	SlideType string   `json:"slide_type" yaml:"slide_type"`
	Tags      []string `json:"tags" yaml:"tags"`
}

// Describe derives the metadata of a slide.
func Describe(s *model.Slide) Metadata {
	st := SlideType(s)
	return Metadata{
		Title:     Title(s),
		Purpose:   Purpose(st),
		Category:  Category(s),
		SlideType: st,
		Tags:      Tags(s),
	}
}

// SemanticText is the text embedded for similarity search.
func (m Metadata) SemanticText() string {
	return spacedjson.Object{
		{Key: "title", Value: m.Title},
		{Key: "purpose", Value: m.Purpose},
		{Key: "category", Value: m.Category},
		{Key: "tags", Value: m.Tags},
	}.String()
}
