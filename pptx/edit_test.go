package pptx

import (
	"strings"
	"testing"

	"github.com/tsawler/slidesmith/internal/testdeck"
	"github.com/tsawler/slidesmith/model"
)

// ============================================================================
// RewriteParagraphs
// ============================================================================

func TestRewriteParagraphs_PreservesOtherBytes(t *testing.T) {
	pkg := openDeck(t, testdeck.Numbered(2))
	before, _ := pkg.Part("ppt/slides/slide1.xml")
	before = append([]byte(nil), before...)

	n, err := pkg.RewriteParagraphs(0, func(tp TextParagraph) ([]string, bool) {
		if strings.Join(tp.Runs, "") == "Slide 1" {
			return []string{"Introduction"}, true
		}
		return nil, false
	})
	if err != nil {
		t.Fatalf("RewriteParagraphs failed: %v", err)
	}
	if n != 1 {
		t.Errorf("changed = %d, want 1", n)
	}

	after, _ := pkg.Part("ppt/slides/slide1.xml")
	want := strings.Replace(string(before), "<a:t>Slide 1</a:t>", "<a:t>Introduction</a:t>", 1)
	if string(after) != want {
		t.Errorf("slide part changed beyond the run text:\n got %s\nwant %s", after, want)
	}

	slide, _ := pkg.Slide(0)
	if slide.Title() != "Introduction" {
		t.Errorf("Title after rewrite = %q", slide.Title())
	}
	other, _ := pkg.Slide(1)
	if other.Title() != "Slide 2" {
		t.Errorf("other slide changed: %q", other.Title())
	}
}

func TestRewriteParagraphs_MultiRun(t *testing.T) {
	d := testdeck.Deck{Slides: []testdeck.Slide{{
		Shapes: []string{testdeck.Sp(2, "Body", "", testdeck.P("Hello ", "brave ", "world"))},
	}}}
	pkg := openDeck(t, d)
	slide, _ := pkg.Slide(0)
	fontBefore := slide.Shapes[0].Paragraphs[0].Runs[1].Font

	var seen TextParagraph
	_, err := pkg.RewriteParagraphs(0, func(tp TextParagraph) ([]string, bool) {
		seen = tp
		return []string{"Goodbye", "", ""}, true
	})
	if err != nil {
		t.Fatal(err)
	}
	if seen.ShapeID != 2 || seen.Index != 0 || len(seen.Runs) != 3 {
		t.Errorf("paragraph seen = %+v", seen)
	}

	slide, _ = pkg.Slide(0)
	para := slide.Shapes[0].Paragraphs[0]
	if len(para.Runs) != 3 {
		t.Fatalf("run count = %d, want 3", len(para.Runs))
	}
	if para.Text != "Goodbye" || para.Runs[0].Text != "Goodbye" || para.Runs[2].Text != "" {
		t.Errorf("paragraph = %+v", para)
	}
	if !para.Runs[1].Font.Equal(fontBefore) {
		t.Errorf("run font changed: %+v", para.Runs[1].Font)
	}
}

func TestRewriteParagraphs_LineBreaks(t *testing.T) {
	d := testdeck.Deck{Slides: []testdeck.Slide{{
		Shapes: []string{testdeck.Sp(2, "Body", "", brokenParagraph)},
	}}}
	pkg := openDeck(t, d)

	var seen TextParagraph
	n, err := pkg.RewriteParagraphs(0, func(tp TextParagraph) ([]string, bool) {
		seen = tp
		return []string{"Single line", "", "", ""}, true
	})
	if err != nil || n != 1 {
		t.Fatalf("RewriteParagraphs = %d, %v", n, err)
	}
	want := []string{"Line one", model.LineBreak, "Line two ", "3"}
	if strings.Join(seen.Runs, "|") != strings.Join(want, "|") {
		t.Errorf("runs seen = %q, want %q", seen.Runs, want)
	}

	slide, _ := pkg.Slide(0)
	part, _ := pkg.Part(slide.Path)
	if strings.Contains(string(part), "a:br") {
		t.Error("cleared line break still in the slide part")
	}
	if !strings.Contains(string(part), `type="slidenum"`) {
		t.Error("field element was removed")
	}
	para := slide.Shapes[0].Paragraphs[0]
	if para.Text != "Single line" || len(para.Runs) != 3 {
		t.Errorf("paragraph = %+v", para)
	}
}

func TestRewriteParagraphs_KeepsUntouchedBreaks(t *testing.T) {
	pkg := openDeck(t, testdeck.Deck{Slides: []testdeck.Slide{{
		Shapes: []string{testdeck.Sp(2, "Body", "", brokenParagraph)},
	}}})

	_, err := pkg.RewriteParagraphs(0, func(tp TextParagraph) ([]string, bool) {
		return []string{"First", model.LineBreak, "Second", "3"}, true
	})
	if err != nil {
		t.Fatal(err)
	}
	slide, _ := pkg.Slide(0)
	if got := slide.Shapes[0].Paragraphs[0].Text; got != "First\vSecond3" {
		t.Errorf("Text = %q", got)
	}

	_, err = pkg.RewriteParagraphs(0, func(tp TextParagraph) ([]string, bool) {
		return []string{"", "text in a break", "", ""}, true
	})
	if err == nil {
		t.Error("expected error when a break is given text")
	}
}

func TestRewriteParagraphs_Escaping(t *testing.T) {
	pkg := openDeck(t, testdeck.Numbered(1))
	_, err := pkg.RewriteParagraphs(0, func(tp TextParagraph) ([]string, bool) {
		if tp.Runs[0] == "Body 1" {
			return []string{`Q&A <live> "now"`}, true
		}
		return nil, false
	})
	if err != nil {
		t.Fatal(err)
	}

	data, err := pkg.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	reopened, err := OpenBytes(data)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	slide, _ := reopened.Slide(0)
	if got := slide.Shapes[1].Text(); got != `Q&A <live> "now"` {
		t.Errorf("text = %q", got)
	}
}

func TestRewriteParagraphs_Scope(t *testing.T) {
	pkg := openDeck(t, testdeck.Deck{Slides: []testdeck.Slide{mixedSlide()}})

	var shapes []int
	_, err := pkg.RewriteParagraphs(0, func(tp TextParagraph) ([]string, bool) {
		shapes = append(shapes, tp.ShapeID)
		return nil, false
	})
	if err != nil {
		t.Fatal(err)
	}
	// Title and body only: group members and table cells are not offered.
	if len(shapes) != 2 || shapes[0] != 2 || shapes[1] != 7 {
		t.Errorf("shapes offered = %v, want [2 7]", shapes)
	}
}

func TestRewriteParagraphs_SelfClosingText(t *testing.T) {
	shape := `<p:sp><p:nvSpPr><p:cNvPr id="2" name="Empty"/><p:cNvSpPr/><p:nvPr/></p:nvSpPr><p:spPr/>` +
		`<p:txBody><a:bodyPr/><a:p><a:r><a:rPr lang="en-US" i="1"/><a:t/></a:r></a:p></p:txBody></p:sp>`
	pkg := openDeck(t, testdeck.Deck{Slides: []testdeck.Slide{{Shapes: []string{shape}}}})

	_, err := pkg.RewriteParagraphs(0, func(tp TextParagraph) ([]string, bool) {
		return []string{"filled"}, true
	})
	if err != nil {
		t.Fatal(err)
	}
	slide, _ := pkg.Slide(0)
	run := slide.Shapes[0].Paragraphs[0].Runs[0]
	if run.Text != "filled" || run.Font.Italic == nil || !*run.Font.Italic {
		t.Errorf("run = %+v", run)
	}
}

func TestRewriteParagraphs_Errors(t *testing.T) {
	pkg := openDeck(t, testdeck.Numbered(1))
	if _, err := pkg.RewriteParagraphs(5, func(TextParagraph) ([]string, bool) { return nil, false }); err == nil {
		t.Error("expected error for slide index out of range")
	}
	_, err := pkg.RewriteParagraphs(0, func(tp TextParagraph) ([]string, bool) {
		return []string{"a", "b"}, true
	})
	if err == nil {
		t.Error("expected error for wrong run count")
	}
}

// ============================================================================
// KeepSlides
// ============================================================================

func TestKeepSlides(t *testing.T) {
	pkg := openDeck(t, testdeck.Numbered(5))
	if err := pkg.KeepSlides([]int{4, 0, 2}); err != nil {
		t.Fatalf("KeepSlides failed: %v", err)
	}

	if got := strings.Join(slideTitles(pkg), ","); got != "Slide 1,Slide 3,Slide 5" {
		t.Errorf("titles = %s", got)
	}
	for _, gone := range []string{
		"ppt/slides/slide2.xml",
		"ppt/slides/_rels/slide2.xml.rels",
		"ppt/notesSlides/notesSlide2.xml",
		"ppt/slides/slide4.xml",
	} {
		if _, ok := pkg.Part(gone); ok {
			t.Errorf("part %s still present", gone)
		}
	}
	ct, _ := pkg.Part(partContentTypes)
	if strings.Contains(string(ct), "/ppt/slides/slide2.xml") || !strings.Contains(string(ct), "/ppt/slides/slide3.xml") {
		t.Errorf("content types not updated: %s", ct)
	}
	rels, _ := pkg.Part(partPresRels)
	if strings.Contains(string(rels), "slides/slide4.xml") {
		t.Errorf("presentation rels still reference slide4: %s", rels)
	}
	if _, ok := pkg.Part("ppt/slideLayouts/slideLayout2.xml"); !ok {
		t.Error("layouts must be kept")
	}

	data, err := pkg.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	reopened, err := OpenBytes(data)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	slide, _ := reopened.Slide(1)
	if slide.Title() != "Slide 3" || slide.Notes != "Notes 3" || slide.ID != "258" {
		t.Errorf("slide 2 after reopen = %q %q %q", slide.Title(), slide.Notes, slide.ID)
	}
}

func TestKeepSlides_DropsLinksToRemovedSlides(t *testing.T) {
	d := testdeck.Numbered(3)
	d.Slides[0].Shapes = append(d.Slides[0].Shapes, testdeck.Sp(9, "Links", "",
		`<a:p><a:r><a:rPr lang="en-US"><a:hlinkClick r:id="rId50" action="ppaction://hlinksldjump"/></a:rPr><a:t>Two</a:t></a:r></a:p>`+
			`<a:p><a:r><a:rPr lang="en-US"><a:hlinkClick r:id="rId51" action="ppaction://hlinksldjump"/></a:rPr><a:t>Three</a:t></a:r></a:p>`))
	data := replacePart(t, d.Bytes(), "ppt/slides/_rels/slide1.xml.rels", func(s string) string {
		return strings.Replace(s, "</Relationships>",
			`<Relationship Id="rId50" Type="`+relSlide+`" Target="slide2.xml"/>`+
				`<Relationship Id="rId51" Type="`+relSlide+`" Target="slide3.xml"/></Relationships>`, 1)
	})
	pkg, err := OpenBytes(data)
	if err != nil {
		t.Fatal(err)
	}

	if err := pkg.KeepSlides([]int{0, 2}); err != nil {
		t.Fatalf("KeepSlides failed: %v", err)
	}

	rels, _ := pkg.Part("ppt/slides/_rels/slide1.xml.rels")
	if strings.Contains(string(rels), "slide2.xml") || strings.Contains(string(rels), `"rId50"`) {
		t.Errorf("link to removed slide kept: %s", rels)
	}
	if !strings.Contains(string(rels), "slide3.xml") || !strings.Contains(string(rels), "slideLayout") {
		t.Errorf("other relationships lost: %s", rels)
	}
	part, _ := pkg.Part("ppt/slides/slide1.xml")
	if strings.Contains(string(part), `r:id="rId50"`) {
		t.Errorf("hyperlink to removed slide kept: %s", part)
	}
	if !strings.Contains(string(part), `r:id="rId51"`) || !strings.Contains(string(part), "<a:t>Two</a:t>") {
		t.Errorf("text or surviving hyperlink lost: %s", part)
	}

	out, err := pkg.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	reopened, err := OpenBytes(out)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if got := strings.Join(slideTitles(reopened), ","); got != "Slide 1,Slide 3" {
		t.Errorf("titles = %s", got)
	}
}

func TestKeepSlides_OutOfRange(t *testing.T) {
	pkg := openDeck(t, testdeck.Numbered(2))
	if err := pkg.KeepSlides([]int{0, 2}); err == nil {
		t.Error("expected error")
	}
	if pkg.SlideCount() != 2 {
		t.Errorf("failed call must not modify the package, got %d slides", pkg.SlideCount())
	}
}

func TestClone_Independent(t *testing.T) {
	pkg := openDeck(t, testdeck.Numbered(3))
	clone, err := pkg.Clone()
	if err != nil {
		t.Fatal(err)
	}
	if err := clone.KeepSlides([]int{0}); err != nil {
		t.Fatal(err)
	}
	if pkg.SlideCount() != 3 || clone.SlideCount() != 1 {
		t.Errorf("counts = %d, %d", pkg.SlideCount(), clone.SlideCount())
	}
}

// ============================================================================
// NewFromTemplate / AddSlide
// ============================================================================

func TestNewFromTemplate(t *testing.T) {
	pkg := openDeck(t, testdeck.Numbered(3))
	empty, err := pkg.NewFromTemplate()
	if err != nil {
		t.Fatalf("NewFromTemplate failed: %v", err)
	}
	if empty.SlideCount() != 0 {
		t.Errorf("SlideCount = %d, want 0", empty.SlideCount())
	}
	layouts, err := empty.Layouts()
	if err != nil {
		t.Fatal(err)
	}
	if len(layouts) != 2 || layouts[1].Name != "Title and Content" {
		t.Errorf("layouts = %+v", layouts)
	}
	for _, part := range []string{"ppt/slideMasters/slideMaster1.xml", "ppt/theme/theme1.xml"} {
		if _, ok := empty.Part(part); !ok {
			t.Errorf("missing %s", part)
		}
	}
	if pkg.SlideCount() != 3 {
		t.Error("source must not change")
	}
}

func TestAddSlide(t *testing.T) {
	pkg := openDeck(t, testdeck.Numbered(2))
	deck, err := pkg.NewFromTemplate()
	if err != nil {
		t.Fatal(err)
	}

	var offered []string
	slide, err := deck.AddSlide("ppt/slideLayouts/slideLayout2.xml", func(ph Shape) []model.Paragraph {
		offered = append(offered, ph.Placeholder.Kind)
		if ph.Placeholder.IsTitle() {
			return []model.Paragraph{{Text: "Fresh & new"}}
		}
		return []model.Paragraph{
			{Text: "point", Runs: []model.Run{{Text: "point", Font: model.Font{Bold: model.BoolPtr(true)}}}},
			{Text: "detail", Level: 1},
		}
	})
	if err != nil {
		t.Fatalf("AddSlide failed: %v", err)
	}
	if strings.Join(offered, ",") != "title,body" {
		t.Errorf("placeholders offered = %v (footer must be skipped)", offered)
	}
	if slide.LayoutName != "Title and Content" || slide.ID != "256" {
		t.Errorf("slide = %+v", slide)
	}

	data, err := deck.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	reopened, err := OpenBytes(data)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if reopened.SlideCount() != 1 {
		t.Fatalf("SlideCount = %d", reopened.SlideCount())
	}
	s, _ := reopened.Slide(0)
	if s.Title() != "Fresh & new" {
		t.Errorf("Title = %q", s.Title())
	}
	body := s.Shapes[1]
	if body.Placeholder == nil || body.Placeholder.Index != 1 || len(body.Paragraphs) != 2 {
		t.Fatalf("body = %+v", body)
	}
	if body.Paragraphs[1].Level != 1 || *body.Paragraphs[0].Runs[0].Font.Bold != true {
		t.Errorf("body paragraphs = %+v", body.Paragraphs)
	}
}

func TestAddSlide_LineBreaks(t *testing.T) {
	pkg := openDeck(t, testdeck.Numbered(1))
	deck, err := pkg.NewFromTemplate()
	if err != nil {
		t.Fatal(err)
	}
	_, err = deck.AddSlide("ppt/slideLayouts/slideLayout2.xml", func(ph Shape) []model.Paragraph {
		if !ph.Placeholder.IsTitle() {
			return nil
		}
		p := model.Paragraph{Runs: []model.Run{
			{Text: "Quarterly"},
			{Text: model.LineBreak, Break: true},
			{Text: "review\vsummary"},
		}}
		p.Sync()
		return []model.Paragraph{p}
	})
	if err != nil {
		t.Fatal(err)
	}

	s, _ := deck.Slide(0)
	part, _ := deck.Part(s.Path)
	if got := strings.Count(string(part), "<a:br>"); got != 2 {
		t.Errorf("a:br count = %d, want 2", got)
	}
	if strings.Contains(string(part), "\v") {
		t.Error("vertical tab written into the part")
	}
	if got := s.Shapes[0].Paragraphs[0].Text; got != "Quarterly\vreview\vsummary" {
		t.Errorf("Text = %q", got)
	}
}

func TestAddSlide_AppendsAfterExisting(t *testing.T) {
	pkg := openDeck(t, testdeck.Numbered(2))
	slide, err := pkg.AddSlide("ppt/slideLayouts/slideLayout1.xml", nil)
	if err != nil {
		t.Fatal(err)
	}
	if pkg.SlideCount() != 3 || slide.Index != 2 {
		t.Errorf("count = %d, index = %d", pkg.SlideCount(), slide.Index)
	}
	if slide.Path != "ppt/slides/slide3.xml" || slide.ID != "258" {
		t.Errorf("path = %s id = %s", slide.Path, slide.ID)
	}
	if _, err := pkg.AddSlide("ppt/slideLayouts/missing.xml", nil); err == nil {
		t.Error("expected error for unknown layout")
	}
}

func TestInsertSlideID_CreatesList(t *testing.T) {
	pres := `<p:presentation xmlns:p="p-ns" xmlns:rel="` + nsRelationships + `"><p:sldMasterIdLst/><p:sldSz cx="1" cy="1"/></p:presentation>`
	out, err := insertSlideID([]byte(pres), 300, "rId9")
	if err != nil {
		t.Fatal(err)
	}
	want := `<p:sldMasterIdLst/><p:sldIdLst><p:sldId id="300" rel:id="rId9"/></p:sldIdLst><p:sldSz`
	if !strings.Contains(string(out), want) {
		t.Errorf("got %s", out)
	}
}
