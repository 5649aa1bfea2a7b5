package assemble

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/tsawler/slidesmith/internal/testdeck"
	"github.com/tsawler/slidesmith/pptx"
	"github.com/tsawler/slidesmith/report"
	"github.com/tsawler/slidesmith/substitute"
)

// ============================================================================
// Helpers
// ============================================================================

func openDeck(t *testing.T, d testdeck.Deck) *pptx.Package {
	t.Helper()
	pkg, err := pptx.OpenBytes(d.Bytes())
	if err != nil {
		t.Fatalf("OpenBytes failed: %v", err)
	}
	return pkg
}

func titles(pkg *pptx.Package) []string {
	var out []string
	for _, s := range pkg.Slides() {
		out = append(out, s.Title())
	}
	return out
}

// reopen saves and reloads a package so assertions run against the written
// archive.
func reopen(t *testing.T, pkg *pptx.Package) *pptx.Package {
	t.Helper()
	data, err := pkg.Bytes()
	if err != nil {
		t.Fatalf("Bytes failed: %v", err)
	}
	out, err := pptx.OpenBytes(data)
	if err != nil {
		t.Fatalf("reopening assembled deck: %v", err)
	}
	return out
}

func sel(index int, pairs ...string) Selection {
	s := Selection{SourceIndex: index}
	if len(pairs) > 0 {
		s.Replacements = substitute.Replacements{}
		for i := 0; i+1 < len(pairs); i += 2 {
			s.Replacements[pairs[i]] = pairs[i+1]
		}
	}
	return s
}

func TestParseMode(t *testing.T) {
	for _, s := range []string{"subset", "fresh"} {
		if m, err := ParseMode(s); err != nil || string(m) != s {
			t.Errorf("ParseMode(%q) = %q, %v", s, m, err)
		}
	}
	if _, err := ParseMode("merge"); err == nil {
		t.Error("expected error for unknown mode")
	}
}

// ============================================================================
// Subset mode
// ============================================================================

func TestSubset_KeepsOriginalOrder(t *testing.T) {
	src := openDeck(t, testdeck.Numbered(5))
	var a Assembler

	out, err := a.Subset(src, []Selection{sel(4), sel(0), sel(2, "Body 3", "Rewritten")})
	if err != nil {
		t.Fatalf("Subset failed: %v", err)
	}
	pkg := reopen(t, out.Package)

	if got, want := titles(pkg), []string{"Slide 1", "Slide 3", "Slide 5"}; !reflect.DeepEqual(got, want) {
		t.Errorf("titles = %v, want %v", got, want)
	}
	if got := pkg.Slides()[1].Shapes[1].Text(); got != "Rewritten" {
		t.Errorf("body = %q", got)
	}
	if got := pkg.Slides()[2].Notes; got != "Notes 5" {
		t.Errorf("notes = %q", got)
	}
	if len(out.Changes) != 1 || len(out.Warnings) != 0 {
		t.Errorf("changes = %v, warnings = %v", out.Changes, out.Warnings)
	}
	if src.SlideCount() != 5 {
		t.Errorf("source modified: %d slides", src.SlideCount())
	}

	for _, name := range pkg.PartNames() {
		if strings.HasSuffix(name, "slide2.xml") || strings.HasSuffix(name, "slide4.xml") {
			t.Errorf("removed slide part %s still present", name)
		}
	}
}

func TestSubset_PreservesFormatting(t *testing.T) {
	src := openDeck(t, testdeck.Numbered(2))
	out, err := (&Assembler{}).Subset(src, []Selection{sel(1, "Slide 2", "Closing")})
	if err != nil {
		t.Fatal(err)
	}
	run := out.Package.Slides()[0].Shapes[0].Paragraphs[0].Runs[0]
	if run.Text != "Closing" || run.Font.Name != "Calibri" || run.Font.SizePt == nil || *run.Font.SizePt != 24 {
		t.Errorf("run = %+v", run)
	}
}

func TestSubset_Warnings(t *testing.T) {
	src := openDeck(t, testdeck.Numbered(3))
	out, err := (&Assembler{}).Subset(src, []Selection{sel(1, "missing text", "x"), sel(7)})
	if err != nil {
		t.Fatal(err)
	}
	if out.Package.SlideCount() != 1 {
		t.Errorf("slides = %d, want 1", out.Package.SlideCount())
	}
	if got := report.Filter(out.Warnings, report.AssemblyReference); len(got) != 1 || got[0].Slide != 7 {
		t.Errorf("reference warnings = %v", got)
	}
	if got := report.Filter(out.Warnings, report.SubstitutionNotApplied); len(got) != 1 || got[0].Slide != 1 {
		t.Errorf("substitution warnings = %v", got)
	}
}

func TestSubset_DuplicateSelection(t *testing.T) {
	src := openDeck(t, testdeck.Numbered(3))
	out, err := (&Assembler{}).Subset(src, []Selection{sel(1, "Slide 2", "A"), sel(1, "Body 2", "B")})
	if err != nil {
		t.Fatal(err)
	}
	pkg := out.Package
	if pkg.SlideCount() != 1 {
		t.Fatalf("slides = %d, want 1", pkg.SlideCount())
	}
	s := pkg.Slides()[0]
	if s.Title() != "A" || s.Shapes[1].Text() != "B" {
		t.Errorf("slide = %q / %q", s.Title(), s.Shapes[1].Text())
	}
}

func TestSubset_InvalidSelection(t *testing.T) {
	src := openDeck(t, testdeck.Numbered(3))
	for name, sels := range map[string][]Selection{
		"empty":       nil,
		"all invalid": {sel(-1), sel(3)},
	} {
		_, err := (&Assembler{}).Subset(src, sels)
		var aerr *report.AssemblyError
		if !errors.As(err, &aerr) {
			t.Errorf("%s: error = %v, want AssemblyError", name, err)
		}
	}
}

// ============================================================================
// Fresh mode
// ============================================================================

func TestFresh_SelectionOrder(t *testing.T) {
	src := openDeck(t, testdeck.Numbered(3))
	out, err := (&Assembler{}).Fresh(src, []Selection{sel(2, "Body 3", "Third"), sel(0), sel(9)})
	if err != nil {
		t.Fatalf("Fresh failed: %v", err)
	}
	pkg := reopen(t, out.Package)

	if got, want := titles(pkg), []string{"Slide 3", "Slide 1"}; !reflect.DeepEqual(got, want) {
		t.Errorf("titles = %v, want %v", got, want)
	}
	first := pkg.Slides()[0]
	if first.LayoutName != "Title and Content" {
		t.Errorf("layout = %q", first.LayoutName)
	}
	if len(first.Shapes) != 2 {
		t.Fatalf("shapes = %d, want title and body only", len(first.Shapes))
	}
	body := first.Shapes[1]
	if body.Text() != "Third" {
		t.Errorf("body = %q", body.Text())
	}
	if f := body.Paragraphs[0].Runs[0].Font; f.Bold == nil || !*f.Bold || f.RGB != "1F4E79" {
		t.Errorf("body font = %+v", f)
	}
	if first.Notes != "" {
		t.Errorf("notes copied: %q", first.Notes)
	}

	if got := report.Filter(out.Warnings, report.AssemblyReference); len(got) != 1 {
		t.Errorf("warnings = %v", out.Warnings)
	}
	if len(out.Changes) != 1 {
		t.Errorf("changes = %v", out.Changes)
	}
}

func TestFresh_PlaceholderMatching(t *testing.T) {
	d := testdeck.Deck{Slides: []testdeck.Slide{{
		Layout: 1,
		Shapes: []string{
			testdeck.Pic(2, "Logo", "rId10"),
			testdeck.Sp(3, "Content", testdeck.Ph("", 7), testdeck.P("Moved body")),
			testdeck.Sp(4, "Heading", testdeck.Ph("title", 0), testdeck.P("Heading")),
			testdeck.Sp(5, "Free text", "", testdeck.P("Not a placeholder")),
		},
		Images: map[string][]byte{"rId10": testdeck.PNG(2, 2)},
	}}}
	src := openDeck(t, d)
	out, err := (&Assembler{}).Fresh(src, []Selection{sel(0)})
	if err != nil {
		t.Fatal(err)
	}
	s := out.Package.Slides()[0]
	if len(s.Shapes) != 2 {
		t.Fatalf("shapes = %d, want 2", len(s.Shapes))
	}
	if s.Shapes[0].Text() != "Heading" || s.Shapes[1].Text() != "Moved body" {
		t.Errorf("texts = %q, %q", s.Shapes[0].Text(), s.Shapes[1].Text())
	}
	for _, sh := range s.Shapes {
		if sh.Type != pptx.ShapeAuto {
			t.Errorf("unexpected %v shape copied", sh.Type)
		}
	}
}

func TestFresh_AllInvalid(t *testing.T) {
	src := openDeck(t, testdeck.Numbered(2))
	out, err := (&Assembler{}).Fresh(src, []Selection{sel(5)})
	if err != nil {
		t.Fatalf("Fresh failed: %v", err)
	}
	if out.Package.SlideCount() != 0 || len(out.Warnings) != 1 {
		t.Errorf("slides = %d, warnings = %v", out.Package.SlideCount(), out.Warnings)
	}
}

func TestAssemble_Dispatch(t *testing.T) {
	src := openDeck(t, testdeck.Numbered(2))
	a := &Assembler{}
	if _, err := a.Assemble(src, ModeSubset, []Selection{sel(0)}); err != nil {
		t.Errorf("subset: %v", err)
	}
	if _, err := a.Assemble(src, ModeFresh, []Selection{sel(0)}); err != nil {
		t.Errorf("fresh: %v", err)
	}
	if _, err := a.Assemble(src, Mode("other"), nil); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestFreshFrom_MultipleDecks(t *testing.T) {
	template := openDeck(t, testdeck.Numbered(2))
	other := openDeck(t, testdeck.Deck{
		Layouts: []testdeck.Layout{
			{Name: "Two Content", Placeholders: []testdeck.Placeholder{
				{Type: "title", Name: "Title 1"},
				{Idx: 1, Name: "Content Placeholder 2"},
			}},
			testdeck.TitleOnly,
		},
		Slides: []testdeck.Slide{
			{Layout: 0, Shapes: []string{
				testdeck.Sp(2, "Title 1", testdeck.Ph("title", 0), testdeck.P("Market")),
				testdeck.Sp(3, "Content Placeholder 2", testdeck.Ph("", 1), testdeck.P("Growth")),
			}},
			{Layout: 1, Shapes: []string{
				testdeck.Sp(2, "Title 1", testdeck.Ph("title", 0), testdeck.P("Thanks")),
			}},
		},
	})

	out, err := (&Assembler{}).FreshFrom(template, []Source{
		{Package: template, Selection: sel(1)},
		{Package: other, Selection: sel(0, "Growth", "Expansion")},
		{Package: other, Selection: sel(1)},
		{Package: other, Selection: sel(4)},
	})
	if err != nil {
		t.Fatalf("FreshFrom failed: %v", err)
	}
	pkg := reopen(t, out.Package)

	if got, want := titles(pkg), []string{"Slide 2", "Market", "Thanks"}; !reflect.DeepEqual(got, want) {
		t.Errorf("titles = %v, want %v", got, want)
	}
	slides := pkg.Slides()
	if slides[1].LayoutName != "Title and Content" {
		t.Errorf("fallback layout = %q", slides[1].LayoutName)
	}
	if slides[1].Shapes[1].Text() != "Expansion" {
		t.Errorf("body = %q", slides[1].Shapes[1].Text())
	}
	if slides[2].LayoutName != "Title Only" {
		t.Errorf("same-name layout = %q", slides[2].LayoutName)
	}
	if got := report.Filter(out.Warnings, report.AssemblyReference); len(got) != 2 {
		t.Errorf("warnings = %v", out.Warnings)
	}
}

func TestClosestLayout(t *testing.T) {
	if closestLayout(nil, "Any") != nil {
		t.Error("expected nil for no layouts")
	}
	pkg := openDeck(t, testdeck.Numbered(1))
	layouts, err := pkg.Layouts()
	if err != nil {
		t.Fatal(err)
	}
	if l := closestLayout(layouts, "title only"); l == nil || l.Name != "Title Only" {
		t.Errorf("case-insensitive lookup = %+v", l)
	}
	if l := closestLayout(layouts, "Comparison"); l == nil || l.Name != "Title and Content" {
		t.Errorf("fallback = %+v", l)
	}
}
