package model

import (
	"encoding/json"
	"fmt"
)

// Slide is the ShapeTree Model of one slide.
type Slide struct {
	SlideID    string    `json:"slide_id"`
	Index      int       `json:"index"` // 0-indexed position in the source deck
	LayoutName string    `json:"layout_name"`
	Elements   []Element `json:"elements"`
	Background *Fill     `json:"background,omitempty"`
}

// Clone returns a deep copy of the slide.
func (s *Slide) Clone() *Slide {
	out := *s
	if s.Elements != nil {
		out.Elements = make([]Element, len(s.Elements))
		for i, e := range s.Elements {
			out.Elements[i] = e.clone()
		}
	}
	if s.Background != nil {
		bg := *s.Background
		out.Background = &bg
	}
	return &out
}

// Element returns the element with the given id, or nil.
func (s *Slide) Element(id int) *Element {
	for i := range s.Elements {
		if s.Elements[i].ID == id {
			return &s.Elements[i]
		}
	}
	return nil
}

// ElementsOf returns the elements of the given kind in draw order.
func (s *Slide) ElementsOf(kind Kind) []*Element {
	var out []*Element
	for i := range s.Elements {
		if s.Elements[i].Kind == kind {
			out = append(out, &s.Elements[i])
		}
	}
	return out
}

// Count returns how many elements of the given kind the slide has.
func (s *Slide) Count(kind Kind) int {
	n := 0
	for i := range s.Elements {
		if s.Elements[i].Kind == kind {
			n++
		}
	}
	return n
}

// Has reports whether the slide has at least one element of the given kind.
func (s *Slide) Has(kind Kind) bool {
	for i := range s.Elements {
		if s.Elements[i].Kind == kind {
			return true
		}
	}
	return false
}

// Paragraphs calls fn for every paragraph of every text element, in order.
// Returning false stops the walk.
func (s *Slide) Paragraphs(fn func(e *Element, index int, p *Paragraph) bool) {
	for i := range s.Elements {
		e := &s.Elements[i]
		if e.Kind != KindText {
			continue
		}
		for j := range e.Text {
			if !fn(e, j, &e.Text[j]) {
				return
			}
		}
	}
}

// Validate checks element id uniqueness and payload consistency.
func (s *Slide) Validate() error {
	seen := make(map[int]bool, len(s.Elements))
	for i := range s.Elements {
		e := &s.Elements[i]
		if seen[e.ID] {
			return fmt.Errorf("slide %s: duplicate element id %d", s.SlideID, e.ID)
		}
		seen[e.ID] = true
		if err := e.Validate(); err != nil {
			return fmt.Errorf("slide %s: %w", s.SlideID, err)
		}
	}
	return nil
}

// MarshalIndent returns the slide as indented JSON.
func (s *Slide) MarshalIndent() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// Decode parses a slide from its JSON form.
func Decode(data []byte) (*Slide, error) {
	var s Slide
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decoding slide model: %w", err)
	}
	return &s, nil
}
