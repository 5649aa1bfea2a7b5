package substitute

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/tsawler/slidesmith/internal/testdeck"
	"github.com/tsawler/slidesmith/model"
	"github.com/tsawler/slidesmith/pptx"
)

// ============================================================================
// Rewrite
// ============================================================================

func TestRewrite(t *testing.T) {
	repl := Replacements{
		"Old Title":   "New Title",
		"Hello World": "Greetings",
		"Blank":       "   ",
		"":            "never",
		"Line\vBreak": "Joined",
	}
	tests := []struct {
		name   string
		runs   []string
		want   []string
		wantOK bool
	}{
		{"single run", []string{"Old Title"}, []string{"New Title"}, true},
		{"trimmed key", []string{"  Old Title\t"}, []string{"New Title"}, true},
		{"multi run", []string{"Hello ", "World"}, []string{"Greetings", ""}, true},
		{"multi run blank", []string{"Bl", "ank"}, []string{" ", ""}, true},
		{"single run blank", []string{"Blank"}, []string{" "}, true},
		{"no match", []string{"Other"}, nil, false},
		{"partial text", []string{"Old"}, nil, false},
		{"no runs", nil, nil, false},
		{"empty text", []string{"", " "}, nil, false},
		{"line break", []string{"Line", model.LineBreak, "Break"}, []string{"Joined", "", ""}, true},
		{"leading break", []string{model.LineBreak, "Line", model.LineBreak, "Break"}, []string{"", "Joined", "", ""}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Rewrite(tt.runs, repl)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Rewrite() = %q, want %q", got, tt.want)
			}
		})
	}

	if _, ok := Rewrite([]string{"Old Title"}, nil); ok {
		t.Error("nil map matched")
	}
}

// ============================================================================
// Model substitution
// ============================================================================

func font(size float64, bold bool) model.Font {
	return model.Font{Name: "Calibri", SizePt: model.FloatPtr(size), Bold: model.BoolPtr(bold), RGB: "1F4E79"}
}

func sampleSlide() *model.Slide {
	para := func(runs ...model.Run) model.Paragraph {
		p := model.Paragraph{Runs: runs}
		p.Sync()
		return p
	}
	return &model.Slide{
		SlideID: "256",
		Elements: []model.Element{
			{ID: 2, Kind: model.KindText, Placeholder: &model.Placeholder{Kind: "title"}, Text: []model.Paragraph{
				para(model.Run{Text: "Old Title", Font: font(40, true)}),
			}},
			{ID: 3, Kind: model.KindText, Text: []model.Paragraph{
				para(model.Run{Text: "Hello ", Font: font(18, false)}, model.Run{Text: "World", Font: font(24, true)}),
				para(),
				para(model.Run{Text: "Unchanged", Font: font(18, false)}),
			}},
			{ID: 4, Kind: model.KindTable, Table: model.NewTable(1, 1)},
		},
	}
}

func TestApply_SingleRun(t *testing.T) {
	in := sampleSlide()
	res := Apply(in, Replacements{"Old Title": "New Title"})
	if !res.Applied {
		t.Fatal("Applied = false")
	}
	run := res.Slide.Elements[0].Text[0].Runs[0]
	if run.Text != "New Title" || !run.Font.Equal(font(40, true)) {
		t.Errorf("run = %+v", run)
	}
	if res.Slide.Elements[0].Text[0].Text != "New Title" {
		t.Errorf("paragraph text not synced: %q", res.Slide.Elements[0].Text[0].Text)
	}
	if in.Elements[0].Text[0].Runs[0].Text != "Old Title" {
		t.Error("input slide was modified")
	}
	if len(res.Changes) != 1 || res.Changes[0].ElementID != 2 || res.Changes[0].Old != "Old Title" {
		t.Errorf("changes = %+v", res.Changes)
	}
}

func TestApply_MultiRun(t *testing.T) {
	res := Apply(sampleSlide(), Replacements{"Hello World": "Greetings"})
	p := res.Slide.Elements[1].Text[0]
	if len(p.Runs) != 2 {
		t.Fatalf("runs = %d, want 2", len(p.Runs))
	}
	if p.Runs[0].Text != "Greetings" || p.Runs[1].Text != "" {
		t.Errorf("runs = %q", p.RunTexts())
	}
	if !p.Runs[0].Font.Equal(font(18, false)) {
		t.Errorf("first run font changed: %+v", p.Runs[0].Font)
	}
	if p.Text != "Greetings" {
		t.Errorf("Text = %q", p.Text)
	}
	if c := res.Changes[0]; c.ElementID != 3 || c.Paragraph != 0 {
		t.Errorf("change = %+v", c)
	}
}

func TestApply_RemovesLineBreaks(t *testing.T) {
	p := model.Paragraph{Runs: []model.Run{
		{Text: "Line", Font: font(18, false)},
		{Text: model.LineBreak, Break: true},
		{Text: "Break", Font: font(18, false)},
	}}
	p.Sync()
	in := &model.Slide{Elements: []model.Element{{ID: 2, Kind: model.KindText, Text: []model.Paragraph{p}}}}

	res := Apply(in, Replacements{"Line\vBreak": "Joined"})
	got := res.Slide.Elements[0].Text[0]
	if got.Text != "Joined" || len(got.Runs) != 2 {
		t.Fatalf("paragraph = %+v", got)
	}
	for _, r := range got.Runs {
		if r.Break {
			t.Errorf("break run kept: %+v", got.Runs)
		}
	}
	if len(in.Elements[0].Text[0].Runs) != 3 {
		t.Error("input slide was modified")
	}
}

func TestApply_EmptyMap(t *testing.T) {
	in := sampleSlide()
	res := Apply(in, Replacements{})
	if res.Applied || len(res.Changes) != 0 {
		t.Errorf("Applied = %v, changes = %v", res.Applied, res.Changes)
	}
	if !reflect.DeepEqual(res.Slide, in) {
		t.Error("empty map changed the slide")
	}
}

func TestChange_Summary(t *testing.T) {
	c := NewChange(3, 1, "Hello", "Hello World")
	if c.Summary != "Hello{+ World+}" || c.Inserted != 6 || c.Deleted != 0 {
		t.Errorf("change = %+v", c)
	}
	c = NewChange(3, 1, "Hello World", "Hello")
	if c.Summary != "Hello[- World-]" || c.Deleted != 6 {
		t.Errorf("change = %+v", c)
	}
}

// ============================================================================
// Document substitution
// ============================================================================

func docDeck() []byte {
	return testdeck.Deck{Slides: []testdeck.Slide{{
		Layout: 1,
		Shapes: []string{
			testdeck.Sp(2, "Title 1", testdeck.Ph("title", 0), testdeck.P("Old Title")),
			testdeck.Sp(3, "Body", testdeck.Ph("", 1), testdeck.P("Hello ", "World")+testdeck.P()),
			testdeck.Group(4, "Group", testdeck.Sp(5, "Inner", "", testdeck.P("Old Title"))),
			testdeck.Table(6, "Table", [][]string{{"Old Title"}}),
		},
	}}}.Bytes()
}

func TestApplyPackage(t *testing.T) {
	pkg, err := pptx.OpenBytes(docDeck())
	if err != nil {
		t.Fatal(err)
	}
	res, err := ApplyPackage(pkg, 0, Replacements{"Old Title": "New Title", "Hello World": "Greetings"})
	if err != nil {
		t.Fatalf("ApplyPackage failed: %v", err)
	}
	if !res.Applied || len(res.Changes) != 2 || res.Slide != nil {
		t.Fatalf("result = %+v", res)
	}

	slide, _ := pkg.Slide(0)
	if got := slide.Shapes[0].Text(); got != "New Title" {
		t.Errorf("title = %q", got)
	}
	body := slide.Shapes[1].Paragraphs[0]
	if got := body.RunTexts(); !reflect.DeepEqual(got, []string{"Greetings", ""}) {
		t.Errorf("body runs = %q", got)
	}
	if f := body.Runs[0].Font; f.Bold == nil || !*f.Bold || f.SizePt == nil || *f.SizePt != 24 || f.RGB != "1F4E79" {
		t.Errorf("first run font = %+v", f)
	}
	if got := slide.Shapes[2].Children[0].Text(); got != "Old Title" {
		t.Errorf("group child rewritten: %q", got)
	}
	if got := slide.Shapes[3].Table.Cell(0, 0).Text; got != "Old Title" {
		t.Errorf("table cell rewritten: %q", got)
	}
}

func TestApplyPackage_NoMatch(t *testing.T) {
	pkg, err := pptx.OpenBytes(docDeck())
	if err != nil {
		t.Fatal(err)
	}
	before, _ := pkg.Part("ppt/slides/slide1.xml")
	res, err := ApplyPackage(pkg, 0, Replacements{"Nothing": "x"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Applied {
		t.Error("Applied = true")
	}
	after, _ := pkg.Part("ppt/slides/slide1.xml")
	if !bytes.Equal(before, after) {
		t.Error("slide part changed without a match")
	}

	if _, err := ApplyPackage(pkg, 5, Replacements{"a": "b"}); err == nil {
		t.Error("expected error for missing slide")
	}
}

// ============================================================================
// Diff and merge
// ============================================================================

func TestFromDiff(t *testing.T) {
	orig := sampleSlide()
	mod := orig.Clone()
	mod.Elements[0].Text[0].Runs[0].Text = "Quarterly Review"
	mod.Elements[1].Text[2].Runs[0].Text = " Unchanged "
	mod.Elements[1].Text = append(mod.Elements[1].Text, model.Paragraph{Runs: []model.Run{{Text: "added"}}})
	mod.Elements = append(mod.Elements, model.Element{ID: 9, Kind: model.KindText, Text: []model.Paragraph{{Runs: []model.Run{{Text: "new shape"}}}}})

	got := FromDiff(orig, mod)
	want := Replacements{"Old Title": "Quarterly Review"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FromDiff() = %v, want %v", got, want)
	}

	applied := Apply(orig, got)
	if applied.Slide.Elements[0].Text[0].Text != "Quarterly Review" {
		t.Error("derived replacements do not reproduce the edit")
	}
}

func TestMerge(t *testing.T) {
	merged, indices := Merge([]Generated{
		{SlideIndex: 5, Content: Replacements{"a": "1", "b": "2"}},
		{SlideIndex: 2, Content: Replacements{"b": "3"}},
		{SlideIndex: 5, Content: Replacements{"c": "4"}},
		{SlideIndex: 9},
	})
	if want := (Replacements{"a": "1", "b": "3", "c": "4"}); !reflect.DeepEqual(merged, want) {
		t.Errorf("merged = %v, want %v", merged, want)
	}
	if want := []int{2, 5}; !reflect.DeepEqual(indices, want) {
		t.Errorf("indices = %v, want %v", indices, want)
	}
}
