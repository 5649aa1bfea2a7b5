package pptx

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tsawler/slidesmith/model"
)

// KeepSlides removes every slide whose index is not listed. Slides are
// removed from the last to the first so the remaining order is unchanged.
// For each removed slide the sldId entry, the presentation relationship, the
// slide part with its relationships, its content type override and its notes
// slide are deleted.
func (p *Package) KeepSlides(indices []int) error {
	keep := make(map[int]bool, len(indices))
	for _, i := range indices {
		if i < 0 || i >= len(p.slides) {
			return fmt.Errorf("slide index %d out of range (0-%d)", i, len(p.slides)-1)
		}
		keep[i] = true
	}
	return p.removeSlides(func(i int) bool { return !keep[i] })
}

// NewFromTemplate returns an empty presentation that shares the masters,
// layouts, theme and document properties of p.
func (p *Package) NewFromTemplate() (*Package, error) {
	out, err := p.Clone()
	if err != nil {
		return nil, err
	}
	if err := out.removeSlides(func(int) bool { return true }); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Package) removeSlides(drop func(int) bool) error {
	ids := make(map[string]bool)
	rids := make(map[string]bool)
	var removed []string

	for i := len(p.slides) - 1; i >= 0; i-- {
		if !drop(i) {
			continue
		}
		s := p.slides[i]
		if s.ID != "" {
			ids[s.ID] = true
		}
		if s.rID != "" {
			rids[s.rID] = true
		}
		removed = append(removed, s.Path, relsPath(s.Path))
		if s.NotesPath != "" {
			removed = append(removed, s.NotesPath, relsPath(s.NotesPath))
		}
	}
	if len(removed) == 0 {
		return nil
	}

	if len(ids) > 0 {
		data, err := removeElements(p.parts[partPresentation], func(el xml.StartElement) bool {
			return el.Name.Local == "sldId" && ids[unqualifiedAttr(el, "id")]
		})
		if err != nil {
			return fmt.Errorf("editing presentation: %w", err)
		}
		p.setPart(partPresentation, data)
	}

	if len(rids) > 0 {
		kept := p.presRels.Relationship[:0]
		for _, rel := range p.presRels.Relationship {
			if !rids[rel.ID] {
				kept = append(kept, rel)
			}
		}
		p.presRels.Relationship = kept
		if err := p.putXML(partPresRels, p.presRels); err != nil {
			return err
		}
	}

	gone := make(map[string]bool, len(removed))
	for _, name := range removed {
		gone["/"+name] = true
		p.deletePart(name)
	}
	for i, s := range p.slides {
		if drop(i) {
			continue
		}
		if err := p.dropSlideLinks(s.Path, gone); err != nil {
			return err
		}
	}
	overrides := p.contentTypes.Override[:0]
	for _, o := range p.contentTypes.Override {
		if !gone[o.PartName] {
			overrides = append(overrides, o)
		}
	}
	p.contentTypes.Override = overrides
	if err := p.putXML(partContentTypes, p.contentTypes); err != nil {
		return err
	}

	return p.parse()
}

// dropSlideLinks removes the relationships of part that target a removed
// slide, together with the hyperlinks that use them. gone holds removed
// part names with a leading slash.
func (p *Package) dropSlideLinks(part string, gone map[string]bool) error {
	rels, err := p.readRels(part)
	if err != nil {
		return err
	}
	dead := make(map[string]bool)
	kept := rels.Relationship[:0]
	for _, rel := range rels.Relationship {
		if rel.Type == relSlide && rel.TargetMode != "External" && gone["/"+resolvePart(part, rel.Target)] {
			dead[rel.ID] = true
			continue
		}
		kept = append(kept, rel)
	}
	if len(dead) == 0 {
		return nil
	}
	rels.Relationship = kept

	data, err := removeElements(p.parts[part], func(el xml.StartElement) bool {
		switch el.Name.Local {
		case "hlinkClick", "hlinkMouseOver":
			return dead[relationshipAttr(el)]
		}
		return false
	})
	if err != nil {
		return fmt.Errorf("editing %s: %w", part, err)
	}
	p.setPart(part, data)
	return p.putXML(relsPath(part), rels)
}

// relationshipAttr returns the value of a prefixed id attribute (r:id).
func relationshipAttr(el xml.StartElement) string {
	for _, a := range el.Attr {
		if a.Name.Space != "" && a.Name.Local == "id" {
			return a.Value
		}
	}
	return ""
}

// FillFunc supplies the paragraphs of a placeholder cloned from a layout.
// Returning nil leaves the placeholder empty.
type FillFunc func(layoutShape Shape) []model.Paragraph

// AddSlide appends a slide built from a layout. Every layout placeholder
// except date, footer and slide number is cloned onto the slide and filled
// through fill, which may be nil.
func (p *Package) AddSlide(layoutPath string, fill FillFunc) (*Slide, error) {
	layout, err := p.Layout(layoutPath)
	if err != nil {
		return nil, err
	}

	num := 0
	for _, name := range p.order {
		if strings.HasPrefix(name, "ppt/slides/slide") && strings.HasSuffix(name, ".xml") {
			num = max(num, extractSlideNumber(name))
		}
	}
	name := fmt.Sprintf("ppt/slides/slide%d.xml", num+1)

	p.setPart(name, renderSlide(layout, fill))
	slideRels := &relationshipsXML{
		XMLName: xml.Name{Space: nsPackageRels, Local: "Relationships"},
		Relationship: []relationshipXML{
			{ID: "rId1", Type: relSlideLayout, Target: relTarget(name, layoutPath)},
		},
	}
	if err := p.putXML(relsPath(name), slideRels); err != nil {
		return nil, err
	}

	rid := nextRelID(p.presRels)
	p.presRels.XMLName = xml.Name{Space: nsPackageRels, Local: "Relationships"}
	p.presRels.Relationship = append(p.presRels.Relationship, relationshipXML{
		ID:     rid,
		Type:   relSlide,
		Target: relTarget(partPresentation, name),
	})
	if err := p.putXML(partPresRels, p.presRels); err != nil {
		return nil, err
	}

	p.contentTypes.Override = append(p.contentTypes.Override, overrideXML{
		PartName:    "/" + name,
		ContentType: contentTypeSlide,
	})
	if err := p.putXML(partContentTypes, p.contentTypes); err != nil {
		return nil, err
	}

	pres, err := insertSlideID(p.parts[partPresentation], p.nextSlideID(), rid)
	if err != nil {
		return nil, fmt.Errorf("editing presentation: %w", err)
	}
	p.setPart(partPresentation, pres)

	if err := p.parse(); err != nil {
		return nil, err
	}
	return p.slides[len(p.slides)-1], nil
}

func nextRelID(rels *relationshipsXML) string {
	n := 0
	for _, rel := range rels.Relationship {
		if v, err := strconv.Atoi(strings.TrimPrefix(rel.ID, "rId")); err == nil && v > n {
			n = v
		}
	}
	return fmt.Sprintf("rId%d", n+1)
}

// nextSlideID returns an unused sldId id. Valid ids start at 256.
func (p *Package) nextSlideID() uint64 {
	var n uint64 = 255
	if p.presentation.SlideIdList != nil {
		for _, sid := range p.presentation.SlideIdList.SlideId {
			if v, err := strconv.ParseUint(sid.ID, 10, 32); err == nil && v > n {
				n = v
			}
		}
	}
	return n + 1
}

func unqualifiedAttr(el xml.StartElement, local string) string {
	for _, a := range el.Attr {
		if a.Name.Space == "" && a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// removeElements deletes every element for which match reports true,
// together with its subtree, leaving the rest of data untouched.
func removeElements(data []byte, match func(xml.StartElement) bool) ([]byte, error) {
	d := xml.NewDecoder(bytes.NewReader(data))
	var (
		edits    []edit
		depth    int
		cutDepth = -1
		cutStart int64
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
			depth++
			if cutDepth < 0 && match(t) {
				cutDepth = depth
				cutStart = start
			}
		case xml.EndElement:
			if depth == cutDepth {
				edits = append(edits, edit{start: cutStart, end: end})
				cutDepth = -1
			}
			depth--
		}
	}
	if len(edits) == 0 {
		return data, nil
	}
	return applyEdits(data, edits), nil
}

// insertSlideID adds a sldId entry at the end of the slide id list,
// creating the list when the presentation has none.
func insertSlideID(data []byte, id uint64, rid string) ([]byte, error) {
	d := xml.NewDecoder(bytes.NewReader(data))
	var (
		depth   int
		pPrefix string
		rPrefix string
		declare bool
	)
	entry := func() string {
		decl := ""
		if declare {
			decl = fmt.Sprintf(` xmlns:%s="%s"`, rPrefix, nsRelationships)
		}
		return fmt.Sprintf(`<%s id="%d" %s:id="%s"%s/>`,
			rawName(xml.Name{Space: pPrefix, Local: "sldId"}), id, rPrefix, rid, decl)
	}
	list := func() string {
		name := rawName(xml.Name{Space: pPrefix, Local: "sldIdLst"})
		return "<" + name + ">" + entry() + "</" + name + ">"
	}

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
			depth++
			if depth == 1 {
				pPrefix = t.Name.Space
				for _, a := range t.Attr {
					if a.Name.Space == "xmlns" && a.Value == nsRelationships {
						rPrefix = a.Name.Local
					}
				}
				if rPrefix == "" {
					rPrefix, declare = "r", true
				}
				continue
			}
			if depth != 2 {
				continue
			}
			if t.Name.Local == "sldIdLst" {
				if data[end-2] == '/' {
					return applyEdits(data, []edit{{start: start, end: end, repl: []byte(list())}}), nil
				}
				continue
			}
			if presentationAfterSlideList[t.Name.Local] {
				return applyEdits(data, []edit{{start: start, end: start, repl: []byte(list())}}), nil
			}
		case xml.EndElement:
			if depth == 2 && t.Name.Local == "sldIdLst" {
				return applyEdits(data, []edit{{start: start, end: start, repl: []byte(entry())}}), nil
			}
			if depth == 1 {
				return applyEdits(data, []edit{{start: start, end: start, repl: []byte(list())}}), nil
			}
			depth--
		}
	}
	return nil, fmt.Errorf("presentation element not found")
}

// presentationAfterSlideList names the children of p:presentation that
// follow p:sldIdLst in schema order.
var presentationAfterSlideList = map[string]bool{
	"sldSz":            true,
	"notesSz":          true,
	"smartTags":        true,
	"embeddedFontLst":  true,
	"custShowLst":      true,
	"photoAlbum":       true,
	"custDataLst":      true,
	"kinsoku":          true,
	"defaultTextStyle": true,
	"modifyVerifier":   true,
	"extLst":           true,
}

// renderSlide writes a slide part holding clones of the layout's
// placeholders.
func renderSlide(layout *Layout, fill FillFunc) []byte {
	var b strings.Builder
	b.WriteString(xmlDeclaration)
	fmt.Fprintf(&b, `<p:sld xmlns:a="%s" xmlns:r="%s" xmlns:p="%s">`, nsDrawingML, nsRelationships, nsPresentationML)
	b.WriteString(`<p:cSld><p:spTree><p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr>`)
	b.WriteString(`<p:grpSpPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="0" cy="0"/><a:chOff x="0" y="0"/><a:chExt cx="0" cy="0"/></a:xfrm></p:grpSpPr>`)

	id := 2
	for _, sh := range layout.Placeholders() {
		if sh.Placeholder.IsFooter() {
			continue
		}
		var paras []model.Paragraph
		if fill != nil {
			paras = fill(sh)
		}
		writePlaceholder(&b, id, sh, paras)
		id++
	}

	b.WriteString(`</p:spTree></p:cSld><p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr></p:sld>`)
	return []byte(b.String())
}

func writePlaceholder(b *strings.Builder, id int, sh Shape, paras []model.Paragraph) {
	fmt.Fprintf(b, `<p:sp><p:nvSpPr><p:cNvPr id="%d" name="%s"/>`, id, escapeText(sh.Name))
	b.WriteString(`<p:cNvSpPr><a:spLocks noGrp="1"/></p:cNvSpPr><p:nvPr><p:ph`)
	if sh.Placeholder.Kind != "body" {
		fmt.Fprintf(b, ` type="%s"`, escapeText(sh.Placeholder.Kind))
	}
	if sh.Placeholder.Index != 0 {
		fmt.Fprintf(b, ` idx="%d"`, sh.Placeholder.Index)
	}
	b.WriteString(`/></p:nvPr></p:nvSpPr><p:spPr/><p:txBody><a:bodyPr/><a:lstStyle/>`)

	if len(paras) == 0 {
		b.WriteString(`<a:p><a:endParaRPr lang="en-US" dirty="0"/></a:p>`)
	}
	for _, para := range paras {
		b.WriteString(`<a:p>`)
		if para.Level > 0 || para.Alignment != "" {
			b.WriteString(`<a:pPr`)
			if para.Level > 0 {
				fmt.Fprintf(b, ` lvl="%d"`, para.Level)
			}
			if para.Alignment != "" {
				fmt.Fprintf(b, ` algn="%s"`, escapeText(para.Alignment))
			}
			b.WriteString(`/>`)
		}
		runs := para.Runs
		if len(runs) == 0 && para.Text != "" {
			runs = []model.Run{{Text: para.Text}}
		}
		for _, run := range runs {
			writeRun(b, run)
		}
		b.WriteString(`</a:p>`)
	}
	b.WriteString(`</p:txBody></p:sp>`)
}

// writeRun writes a run. Line breaks, whether a break run or embedded in
// the text, become a:br elements carrying the run's properties.
func writeRun(b *strings.Builder, run model.Run) {
	if run.Break {
		writeBreak(b, run.Font)
		return
	}
	for i, part := range strings.Split(run.Text, model.LineBreak) {
		if i > 0 {
			writeBreak(b, run.Font)
			if part == "" {
				continue
			}
		}
		b.WriteString(`<a:r>`)
		writeRunProperties(b, run.Font)
		b.WriteString(`<a:t>`)
		b.WriteString(escapeText(part))
		b.WriteString(`</a:t></a:r>`)
	}
}

func writeBreak(b *strings.Builder, f model.Font) {
	b.WriteString(`<a:br>`)
	writeRunProperties(b, f)
	b.WriteString(`</a:br>`)
}

func writeRunProperties(b *strings.Builder, f model.Font) {
	b.WriteString(`<a:rPr lang="en-US" dirty="0"`)
	if f.SizePt != nil {
		fmt.Fprintf(b, ` sz="%d"`, int(*f.SizePt*100+0.5))
	}
	if f.Bold != nil {
		fmt.Fprintf(b, ` b="%s"`, boolAttr(*f.Bold))
	}
	if f.Italic != nil {
		fmt.Fprintf(b, ` i="%s"`, boolAttr(*f.Italic))
	}
	if f.Underline != nil {
		if *f.Underline {
			b.WriteString(` u="sng"`)
		} else {
			b.WriteString(` u="none"`)
		}
	}
	if f.RGB == "" && f.Name == "" {
		b.WriteString(`/>`)
		return
	}
	b.WriteString(`>`)
	if f.RGB != "" {
		fmt.Fprintf(b, `<a:solidFill><a:srgbClr val="%s"/></a:solidFill>`, escapeText(f.RGB))
	}
	if f.Name != "" {
		fmt.Fprintf(b, `<a:latin typeface="%s"/>`, escapeText(f.Name))
	}
	b.WriteString(`</a:rPr>`)
}

func boolAttr(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

func escapeText(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
