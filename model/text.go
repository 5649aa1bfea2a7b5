package model

import "strings"

// Font holds the run-level formatting attributes. Nil pointers mean the
// attribute is inherited from the layout or master.
type Font struct {
	Name      string   `json:"name,omitempty"`
	SizePt    *float64 `json:"size_pt,omitempty"`
	Bold      *bool    `json:"bold,omitempty"`
	Italic    *bool    `json:"italic,omitempty"`
	Underline *bool    `json:"underline,omitempty"`
	RGB       string   `json:"rgb,omitempty"` // Hex RRGGBB
}

func (f Font) clone() Font {
	out := f
	if f.SizePt != nil {
		v := *f.SizePt
		out.SizePt = &v
	}
	if f.Bold != nil {
		v := *f.Bold
		out.Bold = &v
	}
	if f.Italic != nil {
		v := *f.Italic
		out.Italic = &v
	}
	if f.Underline != nil {
		v := *f.Underline
		out.Underline = &v
	}
	return out
}

// Equal reports whether two fonts carry the same attributes.
func (f Font) Equal(other Font) bool {
	return f.Name == other.Name && f.RGB == other.RGB &&
		eqFloat(f.SizePt, other.SizePt) &&
		eqBool(f.Bold, other.Bold) &&
		eqBool(f.Italic, other.Italic) &&
		eqBool(f.Underline, other.Underline)
}

func eqFloat(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func eqBool(a, b *bool) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// LineBreak is the text of a break run: a soft line break inside a
// paragraph.
const LineBreak = "\v"

// Run is a span of text sharing one set of formatting attributes. A break
// run has Break set and LineBreak as its text.
type Run struct {
	Text  string `json:"text"`
	Font  Font   `json:"font"`
	Break bool   `json:"break,omitempty"`
}

// Paragraph is a sequence of runs.
type Paragraph struct {
	Text      string `json:"text"`
	Level     int    `json:"level"`               // Indent level (0-8)
	Alignment string `json:"alignment,omitempty"` // l, ctr, r, just, dist
	Runs      []Run  `json:"runs"`
}

// RunText returns the concatenation of the run texts.
func (p *Paragraph) RunText() string {
	if len(p.Runs) == 1 {
		return p.Runs[0].Text
	}
	var sb strings.Builder
	for _, r := range p.Runs {
		sb.WriteString(r.Text)
	}
	return sb.String()
}

// Key returns the trimmed run text used to look up replacements.
func (p *Paragraph) Key() string {
	return strings.TrimSpace(p.RunText())
}

// DisplayText returns Text with line breaks as newlines.
func (p *Paragraph) DisplayText() string {
	return strings.ReplaceAll(p.Text, LineBreak, "\n")
}

// Sync recomputes Text from the runs.
func (p *Paragraph) Sync() {
	p.Text = p.RunText()
}

// RunTexts returns the text of each run.
func (p *Paragraph) RunTexts() []string {
	out := make([]string, len(p.Runs))
	for i, r := range p.Runs {
		out[i] = r.Text
	}
	return out
}

func (p Paragraph) clone() Paragraph {
	out := p
	if p.Runs != nil {
		out.Runs = make([]Run, len(p.Runs))
		for i, r := range p.Runs {
			out.Runs[i] = Run{Text: r.Text, Font: r.Font.clone(), Break: r.Break}
		}
	}
	return out
}

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool { return &b }

// FloatPtr returns a pointer to f.
func FloatPtr(f float64) *float64 { return &f }
