package pptx

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/tsawler/slidesmith/model"
)

// TextParagraph is a paragraph of a slide-level shape as presented to a
// RewriteFunc. Fields count as runs and line breaks as runs whose text is
// model.LineBreak.
type TextParagraph struct {
	ShapeID int
	Index   int      // Paragraph index within the shape's text body
	Runs    []string // Run texts in order
}

// RewriteFunc returns replacement run texts for a paragraph. It must return
// exactly one text per run, and false to leave the paragraph untouched. A
// break run may only be kept as model.LineBreak or cleared to "", which
// removes the break.
type RewriteFunc func(TextParagraph) ([]string, bool)

// span locates an element in the raw part.
type span struct {
	tagStart, contentStart, contentEnd int64
	selfClosing                        bool
	name                               xml.Name
}

type runSpan struct {
	text   string
	t      *span // nil when the run has no a:t
	end    int64 // Offset of the closing tag of a:r, -1 when self-closing
	prefix string

	// Line breaks (a:br) are reported as runs with LineBreak as text. They
	// cannot hold text; clearing one removes the element.
	isBreak        bool
	brStart, brEnd int64
}

type paraSpan struct {
	shapeID int
	index   int
	runs    []*runSpan
}

type edit struct {
	start, end int64
	repl       []byte
}

// RewriteParagraphs rewrites the text of runs in the text bodies of the
// slide's shapes. Only the contents of a:t elements change; every other
// byte of the slide part is preserved. It returns the number of paragraphs
// changed.
func (p *Package) RewriteParagraphs(slideIndex int, fn RewriteFunc) (int, error) {
	slide, err := p.Slide(slideIndex)
	if err != nil {
		return 0, err
	}
	data := p.parts[slide.Path]
	paras, err := scanParagraphs(data)
	if err != nil {
		return 0, fmt.Errorf("scanning %s: %w", slide.Path, err)
	}

	var edits []edit
	changed := 0
	for _, para := range paras {
		old := make([]string, len(para.runs))
		for i, r := range para.runs {
			old[i] = r.text
		}
		texts, ok := fn(TextParagraph{ShapeID: para.shapeID, Index: para.index, Runs: old})
		if !ok {
			continue
		}
		if len(texts) != len(old) {
			return 0, fmt.Errorf("shape %d paragraph %d: got %d run texts, want %d", para.shapeID, para.index, len(texts), len(old))
		}
		touched := false
		for i, r := range para.runs {
			if texts[i] == old[i] {
				continue
			}
			if r.isBreak && texts[i] != "" {
				return 0, fmt.Errorf("shape %d paragraph %d: run %d is a line break and cannot hold text", para.shapeID, para.index, i)
			}
			e, ok := runEdit(r, texts[i])
			if !ok {
				continue
			}
			edits = append(edits, e)
			touched = true
		}
		if touched {
			changed++
		}
	}
	if len(edits) == 0 {
		return 0, nil
	}

	p.setPart(slide.Path, applyEdits(data, edits))
	if err := p.parse(); err != nil {
		return 0, fmt.Errorf("reparsing after rewrite: %w", err)
	}
	return changed, nil
}

func runEdit(r *runSpan, text string) (edit, bool) {
	if r.isBreak {
		return edit{start: r.brStart, end: r.brEnd}, true
	}
	var esc bytes.Buffer
	_ = xml.EscapeText(&esc, []byte(strings.ReplaceAll(text, model.LineBreak, " ")))

	switch {
	case r.t != nil && !r.t.selfClosing:
		return edit{start: r.t.contentStart, end: r.t.contentEnd, repl: esc.Bytes()}, true
	case r.t != nil:
		name := rawName(r.t.name)
		repl := fmt.Sprintf("<%s>%s</%s>", name, esc.String(), name)
		return edit{start: r.t.tagStart, end: r.t.contentStart, repl: []byte(repl)}, true
	case r.end >= 0:
		name := rawName(xml.Name{Space: r.prefix, Local: "t"})
		repl := fmt.Sprintf("<%s>%s</%s>", name, esc.String(), name)
		return edit{start: r.end, end: r.end, repl: []byte(repl)}, true
	}
	return edit{}, false
}

func rawName(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

// applyEdits splices non-overlapping edits into data.
func applyEdits(data []byte, edits []edit) []byte {
	sort.Slice(edits, func(i, j int) bool { return edits[i].start < edits[j].start })
	var out bytes.Buffer
	out.Grow(len(data))
	var pos int64
	for _, e := range edits {
		out.Write(data[pos:e.start])
		out.Write(e.repl)
		pos = e.end
	}
	out.Write(data[pos:])
	return out.Bytes()
}

// scanParagraphs locates the runs of every paragraph in the text bodies of
// slide-level shapes. Group members, table cells and fields are not
// included.
func scanParagraphs(data []byte) ([]*paraSpan, error) {
	d := xml.NewDecoder(bytes.NewReader(data))

	var (
		stack   []string
		spDepth int // Stack depth of the current slide-level p:sp, 0 outside
		shapeID int
		pIndex  int
		paras   []*paraSpan
		para    *paraSpan
		run     *runSpan
		text    *span
		buf     bytes.Buffer
	)

	for {
		start := d.InputOffset()
		tok, err := d.RawToken()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		end := d.InputOffset()

		switch t := tok.(type) {
		case xml.StartElement:
			stack = append(stack, t.Name.Local)
			n := len(stack)
			selfClosing := end >= 2 && data[end-2] == '/' && data[end-1] == '>'

			switch {
			case spDepth == 0 && t.Name.Local == "sp" && isSlideLevel(stack):
				spDepth = n
				shapeID = 0
				pIndex = 0
			case spDepth == 0:
			case n == spDepth+2 && t.Name.Local == "cNvPr" && stack[spDepth] == "nvSpPr":
				for _, a := range t.Attr {
					if a.Name.Local == "id" && a.Name.Space == "" {
						fmt.Sscanf(a.Value, "%d", &shapeID)
					}
				}
			case n == spDepth+2 && t.Name.Local == "p" && stack[spDepth] == "txBody":
				para = &paraSpan{shapeID: shapeID, index: pIndex}
				pIndex++
				paras = append(paras, para)
			case n == spDepth+3 && isRun(t.Name.Local) && para != nil && stack[spDepth+1] == "p":
				run = &runSpan{end: -1, prefix: t.Name.Space}
				para.runs = append(para.runs, run)
			case n == spDepth+3 && t.Name.Local == "br" && para != nil && stack[spDepth+1] == "p":
				run = &runSpan{end: -1, prefix: t.Name.Space, text: model.LineBreak, isBreak: true, brStart: start}
				para.runs = append(para.runs, run)
			case n == spDepth+4 && t.Name.Local == "t" && run != nil && !run.isBreak && isRun(stack[spDepth+2]) && run.t == nil:
				text = &span{tagStart: start, contentStart: end, name: t.Name, selfClosing: selfClosing}
				if selfClosing {
					text.contentEnd = end
				}
				run.t = text
				buf.Reset()
			}

		case xml.CharData:
			if text != nil && len(stack) == spDepth+4 {
				buf.Write(t)
			}

		case xml.EndElement:
			n := len(stack)
			if n == 0 {
				return nil, fmt.Errorf("unexpected end element %s", t.Name.Local)
			}
			switch {
			case spDepth == 0:
			case n == spDepth+4 && text != nil:
				if !text.selfClosing {
					text.contentEnd = start
				}
				run.text = buf.String()
				text = nil
			case n == spDepth+3 && run != nil && run.isBreak:
				run.brEnd = end
				run = nil
			case n == spDepth+3 && run != nil && isRun(t.Name.Local):
				if start != end {
					run.end = start
				}
				run = nil
			case n == spDepth+2 && t.Name.Local == "p":
				para = nil
			case n == spDepth:
				spDepth = 0
			}
			stack = stack[:n-1]
		}
	}
	return paras, nil
}

// isRun reports whether a paragraph child carries text: a run or a field.
func isRun(local string) bool {
	return local == "r" || local == "fld"
}

// isSlideLevel reports whether the p:sp on top of the stack is a direct
// child of the slide's shape tree, possibly wrapped in mc:AlternateContent.
func isSlideLevel(stack []string) bool {
	n := len(stack)
	if n == 4 && stack[1] == "cSld" && stack[2] == "spTree" {
		return true
	}
	return n == 6 && stack[1] == "cSld" && stack[2] == "spTree" &&
		stack[3] == "AlternateContent" && stack[4] == "Choice"
}
