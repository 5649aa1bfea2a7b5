// Package substitute replaces paragraph text while leaving formatting in
// place.
//
// A paragraph is addressed by its text: the concatenation of its run texts
// with surrounding whitespace trimmed. When a paragraph has several runs the
// replacement goes into the first text run and the others are emptied, so the
// paragraph takes that run's formatting. Line breaks inside a replaced
// paragraph are removed.
package substitute

import (
	"sort"
	"strings"

	"github.com/tsawler/slidesmith/model"
	"github.com/tsawler/slidesmith/pptx"
)

// Replacements maps trimmed original paragraph text to its replacement.
type Replacements map[string]string

// Rewrite applies a replacement to the run texts of one paragraph. It
// returns the new run texts and whether the paragraph matched. Paragraphs
// without runs or without visible text never match. A blank replacement is
// written as a single space so the run keeps its text element.
func Rewrite(runs []string, repl Replacements) ([]string, bool) {
	if len(runs) == 0 || len(repl) == 0 {
		return nil, false
	}
	key := strings.TrimSpace(strings.Join(runs, ""))
	if key == "" {
		return nil, false
	}
	text, ok := repl[key]
	if !ok {
		return nil, false
	}
	if strings.TrimSpace(text) == "" {
		text = " "
	}
	out := make([]string, len(runs))
	for i, r := range runs {
		if r != model.LineBreak {
			out[i] = text
			break
		}
	}
	return out, true
}

// SetRunTexts writes texts produced by Rewrite into p. Break runs cleared
// by the rewrite are removed.
func SetRunTexts(p *model.Paragraph, texts []string) {
	runs := p.Runs[:0]
	for i, r := range p.Runs {
		r.Text = texts[i]
		if r.Break && r.Text == "" {
			continue
		}
		runs = append(runs, r)
	}
	p.Runs = runs
	p.Sync()
}

// Result reports what a substitution did.
type Result struct {
	Slide   *model.Slide // Substituted copy; nil for document substitutions
	Applied bool         // At least one paragraph matched
	Changes []Change
}

// Apply substitutes text in a copy of the slide model. The input is not
// modified.
func Apply(slide *model.Slide, repl Replacements) Result {
	out := slide.Clone()
	res := Result{Slide: out}
	out.Paragraphs(func(e *model.Element, index int, p *model.Paragraph) bool {
		old := p.RunTexts()
		texts, ok := Rewrite(old, repl)
		if !ok {
			return true
		}
		SetRunTexts(p, texts)
		res.Applied = true
		res.Changes = append(res.Changes, NewChange(e.ID, index, strings.Join(old, ""), p.Text))
		return true
	})
	return res
}

// ApplyPackage substitutes text in a slide of a live document. Only the
// text of matching runs changes in the slide part.
func ApplyPackage(pkg *pptx.Package, slideIndex int, repl Replacements) (Result, error) {
	var res Result
	_, err := pkg.RewriteParagraphs(slideIndex, func(tp pptx.TextParagraph) ([]string, bool) {
		texts, ok := Rewrite(tp.Runs, repl)
		if !ok {
			return nil, false
		}
		res.Applied = true
		res.Changes = append(res.Changes, NewChange(tp.ShapeID, tp.Index, strings.Join(tp.Runs, ""), strings.Join(texts, "")))
		return texts, true
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

// FromDiff derives replacements from an edited copy of a slide model.
// Paragraphs are paired by element id and paragraph index; text elements
// and paragraphs that exist only in the edited copy are ignored. When the
// same original text is edited in two places, the first edit wins.
func FromDiff(original, modified *model.Slide) Replacements {
	repl := Replacements{}
	modified.Paragraphs(func(e *model.Element, index int, p *model.Paragraph) bool {
		orig := original.Element(e.ID)
		if orig == nil || index >= len(orig.Text) {
			return true
		}
		key := orig.Text[index].Key()
		if key == "" {
			return true
		}
		text := p.RunText()
		if strings.TrimSpace(text) == key {
			return true
		}
		if _, dup := repl[key]; !dup {
			repl[key] = text
		}
		return true
	})
	return repl
}

// Generated is a replacement map produced for one source slide.
type Generated struct {
	SlideIndex int          `json:"slide_id"`
	Content    Replacements `json:"content"`
}

// Merge combines generated maps into one. Later maps override earlier
// ones for the same key. It also returns the distinct slide indices in
// ascending order.
func Merge(items []Generated) (Replacements, []int) {
	merged := Replacements{}
	seen := make(map[int]bool)
	var indices []int
	for _, item := range items {
		if item.Content == nil {
			continue
		}
		for k, v := range item.Content {
			merged[k] = v
		}
		if !seen[item.SlideIndex] {
			seen[item.SlideIndex] = true
			indices = append(indices, item.SlideIndex)
		}
	}
	sort.Ints(indices)
	return merged, indices
}
