package model

import (
	"fmt"
	"strings"
)

// Kind is the closed set of element kinds.
type Kind int

const (
	KindGeneric Kind = iota
	KindText
	KindTable
	KindChart
	KindPicture
)

// Kinds lists every kind in declaration order.
var Kinds = []Kind{KindGeneric, KindText, KindTable, KindChart, KindPicture}

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindTable:
		return "table"
	case KindChart:
		return "chart"
	case KindPicture:
		return "picture"
	default:
		return "generic"
	}
}

// ParseKind converts a kind name back into a Kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if strings.EqualFold(k.String(), s) {
			return k, nil
		}
	}
	return KindGeneric, fmt.Errorf("unknown element kind %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Placeholder binds an element to a role in the slide layout.
type Placeholder struct {
	Kind  string `json:"kind"`  // title, ctrTitle, subTitle, body, dt, ftr, sldNum, ...
	Index int    `json:"index"` // idx attribute, 0 when absent
}

// IsTitle reports whether the placeholder is a title or centered title.
func (p *Placeholder) IsTitle() bool {
	return p != nil && (p.Kind == "title" || p.Kind == "ctrTitle")
}

// IsFooter reports whether the placeholder is a footer, date or slide number.
func (p *Placeholder) IsFooter() bool {
	if p == nil {
		return false
	}
	switch p.Kind {
	case "ftr", "dt", "sldNum":
		return true
	}
	return false
}

// FillKind describes how a shape or background is filled.
type FillKind string

const (
	FillNone     FillKind = "none"
	FillSolid    FillKind = "solid"
	FillGradient FillKind = "gradient"
	FillPattern  FillKind = "pattern"
	FillPicture  FillKind = "picture"
	FillGroup    FillKind = "group"
)

// Fill is a fill descriptor. RGB is set for solid fills with an explicit color.
type Fill struct {
	Kind FillKind `json:"kind"`
	RGB  string   `json:"rgb,omitempty"`
}

// Picture references an image part. The model owns no pixel data.
type Picture struct {
	Filename       string `json:"filename"`
	Format         string `json:"format"` // Lower-case extension without dot
	PixelWidth     int    `json:"pixel_width,omitempty"`
	PixelHeight    int    `json:"pixel_height,omitempty"`
	RecognizedText string `json:"recognized_text,omitempty"`
}

// ContentType returns the MIME-style content type, e.g. "image/png".
func (p *Picture) ContentType() string {
	if p == nil || p.Format == "" {
		return "image"
	}
	return "image/" + p.Format
}

// Element is one shape on a slide.
type Element struct {
	ID          int          `json:"id"`
	Name        string       `json:"name"`
	Kind        Kind         `json:"kind"`
	Geometry    Geometry     `json:"geometry"`
	Placeholder *Placeholder `json:"placeholder,omitempty"`

	// Payloads. Only the one matching Kind is set.
	Text    []Paragraph `json:"paragraphs,omitempty"`
	Table   *Table      `json:"table,omitempty"`
	Chart   *Chart      `json:"chart,omitempty"`
	Picture *Picture    `json:"picture,omitempty"`
	Fill    *Fill       `json:"fill,omitempty"`
}

// IsPlaceholder reports whether the element is bound to a layout placeholder.
func (e *Element) IsPlaceholder() bool {
	return e.Placeholder != nil
}

// PlainText returns the element's text: paragraphs joined by newlines for
// text elements, tab/newline separated cells for tables, the title for charts.
func (e *Element) PlainText() string {
	switch e.Kind {
	case KindText:
		parts := make([]string, 0, len(e.Text))
		for _, p := range e.Text {
			parts = append(parts, p.Text)
		}
		return strings.Join(parts, "\n")
	case KindTable:
		if e.Table != nil {
			return e.Table.PlainText()
		}
	case KindChart:
		if e.Chart != nil && e.Chart.Title != nil {
			return *e.Chart.Title
		}
	case KindPicture:
		if e.Picture != nil {
			return e.Picture.RecognizedText
		}
	}
	return ""
}

// Validate checks that the payload matches the kind.
func (e *Element) Validate() error {
	switch e.Kind {
	case KindText:
		if e.Table != nil || e.Chart != nil || e.Picture != nil {
			return fmt.Errorf("element %d: text element carries a non-text payload", e.ID)
		}
	case KindTable:
		if e.Table == nil {
			return fmt.Errorf("element %d: table element without table", e.ID)
		}
	case KindChart:
		if e.Chart == nil {
			return fmt.Errorf("element %d: chart element without chart", e.ID)
		}
	case KindPicture:
		if e.Picture == nil {
			return fmt.Errorf("element %d: picture element without picture", e.ID)
		}
	case KindGeneric:
		if len(e.Text) > 0 || e.Table != nil || e.Chart != nil || e.Picture != nil {
			return fmt.Errorf("element %d: generic element carries content", e.ID)
		}
	default:
		return fmt.Errorf("element %d: unknown kind %d", e.ID, int(e.Kind))
	}
	return nil
}

// clone deep copies the element.
func (e Element) clone() Element {
	out := e
	if e.Placeholder != nil {
		ph := *e.Placeholder
		out.Placeholder = &ph
	}
	if e.Text != nil {
		out.Text = make([]Paragraph, len(e.Text))
		for i, p := range e.Text {
			out.Text[i] = p.clone()
		}
	}
	if e.Table != nil {
		out.Table = e.Table.clone()
	}
	if e.Chart != nil {
		out.Chart = e.Chart.clone()
	}
	if e.Picture != nil {
		pic := *e.Picture
		out.Picture = &pic
	}
	if e.Fill != nil {
		fill := *e.Fill
		out.Fill = &fill
	}
	return out
}
