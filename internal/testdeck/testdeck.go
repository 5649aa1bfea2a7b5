// Package testdeck builds small but complete PPTX packages for tests.
package testdeck

import (
	"archive/zip"
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sort"
	"strings"
)

const (
	nsP   = "http://schemas.openxmlformats.org/presentationml/2006/main"
	nsA   = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsR   = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsC   = "http://schemas.openxmlformats.org/drawingml/2006/chart"
	nsRel = "http://schemas.openxmlformats.org/package/2006/relationships"

	relBase = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/"
	ctBase  = "application/vnd.openxmlformats-officedocument."
	decl    = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"
)

// Deck describes a presentation.
type Deck struct {
	Title   string
	Layouts []Layout // Defaults to TitleOnly and TitleAndContent
	Slides  []Slide
	// OmitSlideList writes a presentation part without p:sldIdLst.
	OmitSlideList bool
}

// Layout is a slide layout with placeholders.
type Layout struct {
	Name         string
	Placeholders []Placeholder
}

// Placeholder is a layout placeholder.
type Placeholder struct {
	Type string // Empty for body
	Idx  int
	Name string
}

// Slide is one slide. Shapes are raw spTree children.
type Slide struct {
	Layout     int // Index into Deck.Layouts
	Shapes     []string
	Notes      string
	Background string            // Raw p:bg element
	Charts     map[string]string // Relationship id -> chart part XML
	Images     map[string][]byte // Relationship id -> PNG bytes
}

// TitleOnly is a layout with a single title placeholder.
var TitleOnly = Layout{
	Name:         "Title Only",
	Placeholders: []Placeholder{{Type: "title", Name: "Title 1"}},
}

// TitleAndContent is a layout with a title, a body and a footer.
var TitleAndContent = Layout{
	Name: "Title and Content",
	Placeholders: []Placeholder{
		{Type: "title", Name: "Title 1"},
		{Idx: 1, Name: "Content Placeholder 2"},
		{Type: "ftr", Idx: 11, Name: "Footer Placeholder 3"},
	},
}

// Bytes renders the deck as a PPTX archive.
func (d Deck) Bytes() []byte {
	layouts := d.Layouts
	if len(layouts) == 0 {
		layouts = []Layout{TitleOnly, TitleAndContent}
	}

	files := map[string]string{}
	var names []string
	put := func(name, content string) {
		if _, ok := files[name]; !ok {
			names = append(names, name)
		}
		files[name] = content
	}

	var overrides []string
	override := func(part, ct string) {
		overrides = append(overrides, fmt.Sprintf(`<Override PartName="/%s" ContentType="%s"/>`, part, ct))
	}

	override("ppt/presentation.xml", ctBase+"presentationml.presentation.main+xml")
	put("_rels/.rels", rels(
		rel("rId1", "officeDocument", "ppt/presentation.xml"),
		rel("rId2", "metadata/core-properties", "docProps/core.xml"),
	))
	put("docProps/core.xml", decl+`<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" xmlns:dc="http://purl.org/dc/elements/1.1/"><dc:title>`+
		escape(d.Title)+`</dc:title><dc:creator>testdeck</dc:creator></cp:coreProperties>`)
	override("docProps/core.xml", "application/vnd.openxmlformats-package.core-properties+xml")

	put("ppt/slideMasters/slideMaster1.xml", decl+`<p:sldMaster xmlns:a="`+nsA+`" xmlns:r="`+nsR+`" xmlns:p="`+nsP+
		`"><p:cSld><p:spTree><p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/></p:spTree></p:cSld></p:sldMaster>`)
	override("ppt/slideMasters/slideMaster1.xml", ctBase+"presentationml.slideMaster+xml")
	masterRels := []string{rel("rId100", "theme", "../theme/theme1.xml")}
	put("ppt/theme/theme1.xml", decl+`<a:theme xmlns:a="`+nsA+`" name="Office Theme"/>`)
	override("ppt/theme/theme1.xml", ctBase+"theme+xml")

	for i, l := range layouts {
		part := fmt.Sprintf("ppt/slideLayouts/slideLayout%d.xml", i+1)
		put(part, layoutXML(l))
		put(relsOf(part), rels(rel("rId1", "slideMaster", "../slideMasters/slideMaster1.xml")))
		override(part, ctBase+"presentationml.slideLayout+xml")
		masterRels = append(masterRels, rel(fmt.Sprintf("rId%d", i+1), "slideLayout", fmt.Sprintf("../slideLayouts/slideLayout%d.xml", i+1)))
	}
	put(relsOf("ppt/slideMasters/slideMaster1.xml"), rels(masterRels...))

	presRels := []string{rel("rId1", "slideMaster", "slideMasters/slideMaster1.xml")}
	var sldIDs strings.Builder
	chartN, imageN := 0, 0
	for i, s := range d.Slides {
		part := fmt.Sprintf("ppt/slides/slide%d.xml", i+1)
		rid := fmt.Sprintf("rId%d", i+2)
		presRels = append(presRels, rel(rid, "slide", fmt.Sprintf("slides/slide%d.xml", i+1)))
		fmt.Fprintf(&sldIDs, `<p:sldId id="%d" r:id="%s"/>`, 256+i, rid)
		override(part, ctBase+"presentationml.slide+xml")

		put(part, slideXML(s))
		slideRels := []string{rel("rId1", "slideLayout", fmt.Sprintf("../slideLayouts/slideLayout%d.xml", s.Layout+1))}

		for _, id := range sortedKeys(s.Charts) {
			chartN++
			chartPart := fmt.Sprintf("ppt/charts/chart%d.xml", chartN)
			put(chartPart, s.Charts[id])
			override(chartPart, ctBase+"drawingml.chart+xml")
			slideRels = append(slideRels, rel(id, "chart", fmt.Sprintf("../charts/chart%d.xml", chartN)))
		}
		for _, id := range sortedKeys(s.Images) {
			imageN++
			put(fmt.Sprintf("ppt/media/image%d.png", imageN), string(s.Images[id]))
			slideRels = append(slideRels, rel(id, "image", fmt.Sprintf("../media/image%d.png", imageN)))
		}
		if s.Notes != "" {
			notesPart := fmt.Sprintf("ppt/notesSlides/notesSlide%d.xml", i+1)
			put(notesPart, notesXML(s.Notes))
			put(relsOf(notesPart), rels(rel("rId1", "slide", fmt.Sprintf("../slides/slide%d.xml", i+1))))
			override(notesPart, ctBase+"presentationml.notesSlide+xml")
			slideRels = append(slideRels, rel("rId99", "notesSlide", fmt.Sprintf("../notesSlides/notesSlide%d.xml", i+1)))
		}
		put(relsOf(part), rels(slideRels...))
	}
	put("ppt/_rels/presentation.xml.rels", rels(presRels...))

	var pres strings.Builder
	pres.WriteString(decl + `<p:presentation xmlns:a="` + nsA + `" xmlns:r="` + nsR + `" xmlns:p="` + nsP + `">`)
	pres.WriteString(`<p:sldMasterIdLst><p:sldMasterId id="2147483648" r:id="rId1"/></p:sldMasterIdLst>`)
	if !d.OmitSlideList {
		pres.WriteString(`<p:sldIdLst>` + sldIDs.String() + `</p:sldIdLst>`)
	}
	pres.WriteString(`<p:sldSz cx="9144000" cy="6858000"/><p:notesSz cx="6858000" cy="9144000"/></p:presentation>`)
	put("ppt/presentation.xml", pres.String())

	ct := decl + `<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
		`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
		`<Default Extension="xml" ContentType="application/xml"/>` +
		`<Default Extension="png" ContentType="image/png"/>` +
		strings.Join(overrides, "") + `</Types>`

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	write := func(name, content string) {
		w, err := zw.Create(name)
		if err != nil {
			panic(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			panic(err)
		}
	}
	write("[Content_Types].xml", ct)
	for _, name := range names {
		write(name, files[name])
	}
	if err := zw.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func layoutXML(l Layout) string {
	var b strings.Builder
	b.WriteString(decl + `<p:sldLayout xmlns:a="` + nsA + `" xmlns:r="` + nsR + `" xmlns:p="` + nsP + `">`)
	fmt.Fprintf(&b, `<p:cSld name="%s"><p:spTree><p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/>`, escape(l.Name))
	for i, ph := range l.Placeholders {
		b.WriteString(Sp(i+2, ph.Name, Ph(ph.Type, ph.Idx), P()))
	}
	b.WriteString(`</p:spTree></p:cSld></p:sldLayout>`)
	return b.String()
}

func slideXML(s Slide) string {
	var b strings.Builder
	b.WriteString(decl + `<p:sld xmlns:a="` + nsA + `" xmlns:r="` + nsR + `" xmlns:p="` + nsP + `"><p:cSld>`)
	b.WriteString(s.Background)
	b.WriteString(`<p:spTree><p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/>`)
	for _, sh := range s.Shapes {
		b.WriteString(sh)
	}
	b.WriteString(`</p:spTree></p:cSld><p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr></p:sld>`)
	return b.String()
}

func notesXML(text string) string {
	return decl + `<p:notes xmlns:a="` + nsA + `" xmlns:r="` + nsR + `" xmlns:p="` + nsP + `"><p:cSld><p:spTree>` +
		`<p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/>` +
		Sp(2, "Slide Image Placeholder 1", Ph("sldImg", 0), "") +
		Sp(3, "Notes Placeholder 2", Ph("body", 1), P(text)) +
		`</p:spTree></p:cSld></p:notes>`
}

func rel(id, typ, target string) string {
	return fmt.Sprintf(`<Relationship Id="%s" Type="%s%s" Target="%s"/>`, id, relBase, typ, target)
}

func rels(items ...string) string {
	return decl + `<Relationships xmlns="` + nsRel + `">` + strings.Join(items, "") + `</Relationships>`
}

func relsOf(part string) string {
	i := strings.LastIndex(part, "/")
	return part[:i] + "/_rels/" + part[i+1:] + ".rels"
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func escape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
	return r.Replace(s)
}

// Ph renders a p:ph element. An empty type omits the attribute, a zero idx
// omits idx.
func Ph(typ string, idx int) string {
	var b strings.Builder
	b.WriteString(`<p:ph`)
	if typ != "" {
		fmt.Fprintf(&b, ` type="%s"`, typ)
	}
	if idx != 0 {
		fmt.Fprintf(&b, ` idx="%d"`, idx)
	}
	b.WriteString(`/>`)
	return b.String()
}

// RawPh renders a p:ph element with a literal idx value.
func RawPh(typ, idx string) string {
	return fmt.Sprintf(`<p:ph type="%s" idx="%s"/>`, typ, idx)
}

// Sp renders a shape. ph is a p:ph element or empty; body is the txBody
// paragraphs or empty for a shape without a text frame.
func Sp(id int, name, ph, body string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<p:sp><p:nvSpPr><p:cNvPr id="%d" name="%s"/><p:cNvSpPr/><p:nvPr>%s</p:nvPr></p:nvSpPr>`, id, escape(name), ph)
	fmt.Fprintf(&b, `<p:spPr><a:xfrm><a:off x="%d" y="457200"/><a:ext cx="8229600" cy="1143000"/></a:xfrm></p:spPr>`, 457200*id)
	if body != "" {
		b.WriteString(`<p:txBody><a:bodyPr/><a:lstStyle/>` + body + `</p:txBody>`)
	}
	b.WriteString(`</p:sp>`)
	return b.String()
}

// P renders a paragraph with one run per argument. Every run carries an
// explicit size, bold flag and color so formatting can be checked after
// edits. No arguments gives an empty paragraph.
func P(runs ...string) string {
	if len(runs) == 0 {
		return `<a:p><a:endParaRPr lang="en-US"/></a:p>`
	}
	var b strings.Builder
	b.WriteString(`<a:p>`)
	for _, r := range runs {
		fmt.Fprintf(&b, `<a:r><a:rPr lang="en-US" sz="2400" b="1"><a:solidFill><a:srgbClr val="1F4E79"/></a:solidFill><a:latin typeface="Calibri"/></a:rPr><a:t>%s</a:t></a:r>`, escape(r))
	}
	b.WriteString(`</a:p>`)
	return b.String()
}

// Pic renders a picture referencing an image relationship.
func Pic(id int, name, rid string) string {
	return fmt.Sprintf(`<p:pic><p:nvPicPr><p:cNvPr id="%d" name="%s"/><p:cNvPicPr/><p:nvPr/></p:nvPicPr>`+
		`<p:blipFill><a:blip r:embed="%s"/><a:stretch><a:fillRect/></a:stretch></p:blipFill>`+
		`<p:spPr><a:xfrm><a:off x="914400" y="914400"/><a:ext cx="1828800" cy="1828800"/></a:xfrm></p:spPr></p:pic>`,
		id, escape(name), rid)
}

// Table renders a graphic frame holding a table.
func Table(id int, name string, rows [][]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<p:graphicFrame><p:nvGraphicFramePr><p:cNvPr id="%d" name="%s"/><p:cNvGraphicFramePr/><p:nvPr/></p:nvGraphicFramePr>`, id, escape(name))
	b.WriteString(`<p:xfrm><a:off x="457200" y="1600200"/><a:ext cx="8229600" cy="1483360"/></p:xfrm>`)
	b.WriteString(`<a:graphic><a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/table"><a:tbl><a:tblGrid>`)
	if len(rows) > 0 {
		for range rows[0] {
			b.WriteString(`<a:gridCol w="2743200"/>`)
		}
	}
	b.WriteString(`</a:tblGrid>`)
	for _, row := range rows {
		b.WriteString(`<a:tr h="370840">`)
		for _, cell := range row {
			b.WriteString(`<a:tc><a:txBody><a:bodyPr/><a:lstStyle/>` + P(cell) + `</a:txBody><a:tcPr/></a:tc>`)
		}
		b.WriteString(`</a:tr>`)
	}
	b.WriteString(`</a:tbl></a:graphicData></a:graphic></p:graphicFrame>`)
	return b.String()
}

// ChartFrame renders a graphic frame referencing a chart relationship.
func ChartFrame(id int, name, rid string) string {
	return fmt.Sprintf(`<p:graphicFrame><p:nvGraphicFramePr><p:cNvPr id="%d" name="%s"/><p:cNvGraphicFramePr/><p:nvPr/></p:nvGraphicFramePr>`+
		`<p:xfrm><a:off x="457200" y="1600200"/><a:ext cx="8229600" cy="4525963"/></p:xfrm>`+
		`<a:graphic><a:graphicData uri="%s"><c:chart xmlns:c="%s" r:id="%s"/></a:graphicData></a:graphic></p:graphicFrame>`,
		id, escape(name), nsC, nsC, rid)
}

// Chart renders a chart part with one series. An empty title omits c:title.
func Chart(kind, title string, categories []string, series string, values []float64) string {
	var b strings.Builder
	b.WriteString(decl + `<c:chartSpace xmlns:c="` + nsC + `" xmlns:a="` + nsA + `" xmlns:r="` + nsR + `"><c:chart>`)
	if title != "" {
		b.WriteString(`<c:title><c:tx><c:rich><a:bodyPr/><a:p><a:r><a:t>` + escape(title) + `</a:t></a:r></a:p></c:rich></c:tx></c:title>`)
	}
	fmt.Fprintf(&b, `<c:autoTitleDeleted val="0"/><c:plotArea><c:layout/><c:%s>`, kind)
	b.WriteString(`<c:ser><c:idx val="0"/><c:order val="0"/>`)
	b.WriteString(`<c:tx><c:strRef><c:f>Sheet1!$B$1</c:f><c:strCache><c:ptCount val="1"/><c:pt idx="0"><c:v>` + escape(series) + `</c:v></c:pt></c:strCache></c:strRef></c:tx>`)
	fmt.Fprintf(&b, `<c:cat><c:strRef><c:f>Sheet1!$A$2</c:f><c:strCache><c:ptCount val="%d"/>`, len(categories))
	for i, c := range categories {
		fmt.Fprintf(&b, `<c:pt idx="%d"><c:v>%s</c:v></c:pt>`, i, escape(c))
	}
	b.WriteString(`</c:strCache></c:strRef></c:cat>`)
	fmt.Fprintf(&b, `<c:val><c:numRef><c:f>Sheet1!$B$2</c:f><c:numCache><c:formatCode>General</c:formatCode><c:ptCount val="%d"/>`, len(values))
	for i, v := range values {
		fmt.Fprintf(&b, `<c:pt idx="%d"><c:v>%g</c:v></c:pt>`, i, v)
	}
	b.WriteString(`</c:numCache></c:numRef></c:val></c:ser>`)
	fmt.Fprintf(&b, `<c:axId val="1"/><c:axId val="2"/></c:%s></c:plotArea></c:chart></c:chartSpace>`, kind)
	return b.String()
}

// Group renders a group shape around children.
func Group(id int, name string, children ...string) string {
	return fmt.Sprintf(`<p:grpSp><p:nvGrpSpPr><p:cNvPr id="%d" name="%s"/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr>`+
		`<p:grpSpPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="914400" cy="914400"/><a:chOff x="0" y="0"/><a:chExt cx="914400" cy="914400"/></a:xfrm></p:grpSpPr>%s</p:grpSp>`,
		id, escape(name), strings.Join(children, ""))
}

// PNG returns an encoded image of the given size.
func PNG(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 0x1f, G: 0x4e, B: 0x79, A: 0xff})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// Numbered returns a deck of n title-and-content slides whose titles are
// "Slide 1" ... "Slide n" and whose bodies read "Body 1" ... "Body n".
func Numbered(n int) Deck {
	d := Deck{Title: "Numbered"}
	for i := 1; i <= n; i++ {
		d.Slides = append(d.Slides, Slide{
			Layout: 1,
			Shapes: []string{
				Sp(2, "Title 1", Ph("title", 0), P(fmt.Sprintf("Slide %d", i))),
				Sp(3, "Content Placeholder 2", Ph("", 1), P(fmt.Sprintf("Body %d", i))),
			},
			Notes: fmt.Sprintf("Notes %d", i),
		})
	}
	return d
}
