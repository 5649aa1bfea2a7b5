package pptx

import (
	"encoding/xml"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/tsawler/slidesmith/model"
)

// ShapeType is the native element a shape was read from.
type ShapeType int

const (
	ShapeAuto         ShapeType = iota // p:sp
	ShapePicture                       // p:pic
	ShapeGraphicFrame                  // p:graphicFrame
	ShapeGroup                         // p:grpSp
	ShapeConnector                     // p:cxnSp
)

func (t ShapeType) String() string {
	switch t {
	case ShapeAuto:
		return "sp"
	case ShapePicture:
		return "pic"
	case ShapeGraphicFrame:
		return "graphicFrame"
	case ShapeGroup:
		return "grpSp"
	case ShapeConnector:
		return "cxnSp"
	default:
		return "unknown"
	}
}

// Slide is a parsed slide.
type Slide struct {
	Index      int    // 0-indexed position in the presentation
	ID         string // sldId id attribute
	Path       string // Part name, e.g. ppt/slides/slide3.xml
	LayoutPath string
	LayoutName string
	Shapes     []Shape // Draw order
	Background *model.Fill
	NotesPath  string
	Notes      string // Speaker notes

	rID string // Relationship id in the presentation part
}

// Shape is one native shape of a slide or layout.
type Shape struct {
	Type     ShapeType
	ID       int
	Name     string
	Geometry model.Geometry
	Fill     *model.Fill

	Placeholder *model.Placeholder
	// PlaceholderErr is set when the shape is a placeholder whose metadata
	// could not be read. Placeholder is nil in that case.
	PlaceholderErr error

	HasTextFrame bool
	Paragraphs   []model.Paragraph

	GraphicURI string // graphicData uri of graphic frames
	Table      *model.Table
	Chart      *model.Chart
	ChartPart  string
	ChartErr   error // Chart part missing or unreadable

	Image *Image

	Children []Shape // Group members
}

// Image references the media behind a picture.
type Image struct {
	Part     string // Embedded media part, empty for linked images
	Link     string // External target of linked images
	Ext      string // Lower-case extension without dot
	Filename string
}

// HasChart reports whether the shape is a graphic frame holding a chart.
func (s *Shape) HasChart() bool {
	return s.Type == ShapeGraphicFrame && (s.GraphicURI == uriChart || s.ChartPart != "")
}

// HasTable reports whether the shape is a graphic frame holding a table.
func (s *Shape) HasTable() bool {
	return s.Type == ShapeGraphicFrame && s.Table != nil
}

// Text returns the paragraphs of the shape joined by newlines.
func (s *Shape) Text() string {
	lines := make([]string, len(s.Paragraphs))
	for i := range s.Paragraphs {
		lines[i] = s.Paragraphs[i].DisplayText()
	}
	return strings.Join(lines, "\n")
}

// Layout is a parsed slide layout.
type Layout struct {
	Path   string
	Name   string
	Shapes []Shape
}

// Placeholders returns the layout shapes that are placeholders.
func (l *Layout) Placeholders() []Shape {
	var out []Shape
	for _, s := range l.Shapes {
		if s.Placeholder != nil {
			out = append(out, s)
		}
	}
	return out
}

// parseSlide parses a single slide part.
func (p *Package) parseSlide(ref slideRef, index int) (*Slide, error) {
	data, ok := p.parts[ref.path]
	if !ok {
		return nil, fmt.Errorf("slide part not found")
	}

	var sx slideXML
	if err := xml.Unmarshal(data, &sx); err != nil {
		return nil, err
	}
	rels, err := p.readRels(ref.path)
	if err != nil {
		return nil, err
	}

	slide := &Slide{
		Index: index,
		ID:    ref.id,
		Path:  ref.path,
		rID:   ref.rID,
	}
	slide.Shapes = p.convertShapes(sx.CSld.SpTree.Shapes, ref.path, rels)
	if sx.CSld.Bg != nil {
		slide.Background = convertBackground(sx.CSld.Bg)
	}

	if rel := rels.byType(relSlideLayout); rel != nil {
		slide.LayoutPath = resolvePart(ref.path, rel.Target)
		layout, err := p.Layout(slide.LayoutPath)
		if err != nil {
			return nil, err
		}
		slide.LayoutName = layout.Name
	}

	if rel := rels.byType(relNotesSlide); rel != nil {
		slide.NotesPath = resolvePart(ref.path, rel.Target)
		slide.Notes = p.parseNotes(slide.NotesPath)
	}
	return slide, nil
}

// Layout returns the parsed layout part. Layouts are parsed once.
func (p *Package) Layout(name string) (*Layout, error) {
	if l, ok := p.layouts[name]; ok {
		return l, nil
	}
	data, ok := p.parts[name]
	if !ok {
		return nil, fmt.Errorf("layout part %s not found", name)
	}
	var lx slideXML
	if err := xml.Unmarshal(data, &lx); err != nil {
		return nil, fmt.Errorf("parsing layout %s: %w", name, err)
	}
	rels, err := p.readRels(name)
	if err != nil {
		return nil, err
	}
	l := &Layout{
		Path:   name,
		Name:   lx.CSld.Name,
		Shapes: p.convertShapes(lx.CSld.SpTree.Shapes, name, rels),
	}
	p.layouts[name] = l
	return l, nil
}

// Layouts returns every slide layout part in the package.
func (p *Package) Layouts() ([]*Layout, error) {
	var out []*Layout
	for _, name := range p.order {
		if !strings.HasPrefix(name, "ppt/slideLayouts/") || !strings.HasSuffix(name, ".xml") {
			continue
		}
		l, err := p.Layout(name)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

// parseNotes extracts the text of a notes slide. Notes are optional and a
// broken notes part yields no text.
func (p *Package) parseNotes(name string) string {
	data, ok := p.parts[name]
	if !ok {
		return ""
	}
	var notes slideXML
	if err := xml.Unmarshal(data, &notes); err != nil {
		return ""
	}

	var lines []string
	for _, sx := range notes.CSld.SpTree.Shapes {
		sp := sx.Sp
		if sp == nil || sp.TxBody == nil {
			continue
		}
		// Skip the slide image placeholder
		if ph := sp.NvSpPr.NvPr.Ph; ph != nil && ph.Type == "sldImg" {
			continue
		}
		for i := range sp.TxBody.P {
			para := convertParagraph(&sp.TxBody.P[i])
			if text := strings.TrimSpace(para.DisplayText()); text != "" {
				lines = append(lines, text)
			}
		}
	}
	return strings.Join(lines, "\n")
}

func (p *Package) convertShapes(in []shapeXML, part string, rels *relationshipsXML) []Shape {
	out := make([]Shape, 0, len(in))
	for _, sx := range in {
		switch {
		case sx.Sp != nil:
			out = append(out, convertSp(sx.Sp))
		case sx.Pic != nil:
			out = append(out, convertPic(sx.Pic, part, rels))
		case sx.Frame != nil:
			out = append(out, p.convertFrame(sx.Frame, part, rels))
		case sx.Group != nil:
			g := sx.Group
			s := Shape{
				Type:     ShapeGroup,
				ID:       g.NvGrpSpPr.CNvPr.ID,
				Name:     g.NvGrpSpPr.CNvPr.Name,
				Geometry: convertXfrm(g.GrpSpPr.Xfrm),
				Children: p.convertShapes(g.Shapes, part, rels),
			}
			out = append(out, s)
		case sx.Cxn != nil:
			c := sx.Cxn
			out = append(out, Shape{
				Type:     ShapeConnector,
				ID:       c.NvCxnSpPr.CNvPr.ID,
				Name:     c.NvCxnSpPr.CNvPr.Name,
				Geometry: convertXfrm(c.SpPr.Xfrm),
			})
		}
	}
	return out
}

func convertSp(sp *spXML) Shape {
	s := Shape{
		Type:     ShapeAuto,
		ID:       sp.NvSpPr.CNvPr.ID,
		Name:     sp.NvSpPr.CNvPr.Name,
		Geometry: convertXfrm(sp.SpPr.Xfrm),
		Fill:     convertFill(&sp.SpPr.fillPropsXML),
	}
	s.Placeholder, s.PlaceholderErr = convertPlaceholder(sp.NvSpPr.NvPr.Ph)
	if sp.TxBody != nil {
		s.HasTextFrame = true
		s.Paragraphs = convertParagraphs(sp.TxBody.P)
	}
	return s
}

func convertPic(pic *picXML, part string, rels *relationshipsXML) Shape {
	s := Shape{
		Type:     ShapePicture,
		ID:       pic.NvPicPr.CNvPr.ID,
		Name:     pic.NvPicPr.CNvPr.Name,
		Geometry: convertXfrm(pic.SpPr.Xfrm),
	}
	s.Placeholder, s.PlaceholderErr = convertPlaceholder(pic.NvPicPr.NvPr.Ph)

	blip := pic.BlipFill.Blip
	if blip == nil {
		return s
	}
	img := &Image{}
	if rel := rels.byID(blip.Embed); rel != nil && blip.Embed != "" {
		img.Part = resolvePart(part, rel.Target)
		img.Filename = path.Base(img.Part)
	} else if rel := rels.byID(blip.Link); rel != nil && blip.Link != "" {
		img.Link = rel.Target
		img.Filename = path.Base(rel.Target)
	}
	img.Ext = strings.ToLower(strings.TrimPrefix(path.Ext(img.Filename), "."))
	if img.Filename != "" {
		s.Image = img
	}
	return s
}

func (p *Package) convertFrame(gf *graphicFrameXML, part string, rels *relationshipsXML) Shape {
	gd := &gf.Graphic.GraphicData
	s := Shape{
		Type:       ShapeGraphicFrame,
		ID:         gf.NvGraphicFramePr.CNvPr.ID,
		Name:       gf.NvGraphicFramePr.CNvPr.Name,
		Geometry:   convertXfrm(gf.Xfrm),
		GraphicURI: gd.URI,
	}
	s.Placeholder, s.PlaceholderErr = convertPlaceholder(gf.NvGraphicFramePr.NvPr.Ph)

	if gd.Tbl != nil {
		s.Table = convertTable(gd.Tbl)
	}
	if gd.Chart != nil {
		rel := rels.byID(gd.Chart.RID)
		if rel == nil {
			s.ChartErr = fmt.Errorf("chart relationship %q not found", gd.Chart.RID)
			return s
		}
		s.ChartPart = resolvePart(part, rel.Target)
		data, ok := p.parts[s.ChartPart]
		if !ok {
			s.ChartErr = fmt.Errorf("chart part %s not found", s.ChartPart)
			return s
		}
		s.Chart, s.ChartErr = parseChart(data)
	}
	return s
}

// convertPlaceholder reads p:ph. The type defaults to body as OOXML defines.
func convertPlaceholder(ph *phXML) (*model.Placeholder, error) {
	if ph == nil {
		return nil, nil
	}
	out := &model.Placeholder{Kind: ph.Type}
	if out.Kind == "" {
		out.Kind = "body"
	}
	if ph.Idx != "" {
		idx, err := strconv.ParseUint(strings.TrimSpace(ph.Idx), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid placeholder idx %q", ph.Idx)
		}
		out.Index = int(idx)
	}
	return out, nil
}

func convertXfrm(x *xfrmXML) model.Geometry {
	if x == nil {
		return model.Geometry{}
	}
	return model.Geometry{
		X:        x.Off.X,
		Y:        x.Off.Y,
		Width:    x.Ext.Cx,
		Height:   x.Ext.Cy,
		Rotation: float64(x.Rot) / 60000,
	}
}

func convertFill(f *fillPropsXML) *model.Fill {
	switch {
	case f.NoFill != nil:
		return &model.Fill{Kind: model.FillNone}
	case f.SolidFill != nil:
		fill := &model.Fill{Kind: model.FillSolid}
		if f.SolidFill.SrgbClr != nil {
			fill.RGB = strings.ToUpper(f.SolidFill.SrgbClr.Val)
		}
		return fill
	case f.GradFill != nil:
		return &model.Fill{Kind: model.FillGradient}
	case f.PattFill != nil:
		return &model.Fill{Kind: model.FillPattern}
	case f.BlipFill != nil:
		return &model.Fill{Kind: model.FillPicture}
	case f.GrpFill != nil:
		return &model.Fill{Kind: model.FillGroup}
	}
	return nil
}

func convertBackground(bg *bgXML) *model.Fill {
	if bg.BgPr != nil {
		return convertFill(bg.BgPr)
	}
	if bg.BgRef != nil && bg.BgRef.SrgbClr != nil {
		return &model.Fill{Kind: model.FillSolid, RGB: strings.ToUpper(bg.BgRef.SrgbClr.Val)}
	}
	return nil
}

func convertParagraphs(ps []pXML) []model.Paragraph {
	out := make([]model.Paragraph, len(ps))
	for i := range ps {
		out[i] = convertParagraph(&ps[i])
	}
	return out
}

// convertParagraph extracts runs and formatting from a paragraph. Fields
// become ordinary runs and line breaks become break runs, so the paragraph
// text is the concatenation of its runs.
func convertParagraph(p *pXML) model.Paragraph {
	para := model.Paragraph{
		Runs: make([]model.Run, 0, len(p.Content)),
	}
	if p.PPr != nil {
		para.Level = p.PPr.Lvl
		para.Alignment = p.PPr.Algn
	}
	for i := range p.Content {
		c := &p.Content[i]
		text, ok := c.text()
		if !ok {
			continue
		}
		run := model.Run{Text: text, Break: c.XMLName.Local == "br"}
		if c.RPr != nil {
			run.Font = convertFont(c.RPr)
		}
		para.Runs = append(para.Runs, run)
	}
	para.Sync()
	return para
}

func convertFont(rpr *rPrXML) model.Font {
	var f model.Font
	if rpr.Latin != nil {
		f.Name = rpr.Latin.Typeface
	}
	if rpr.Sz > 0 {
		f.SizePt = model.FloatPtr(float64(rpr.Sz) / 100)
	}
	f.Bold = parseBoolAttr(rpr.B)
	f.Italic = parseBoolAttr(rpr.I)
	switch rpr.U {
	case "":
	case "none":
		f.Underline = model.BoolPtr(false)
	default:
		f.Underline = model.BoolPtr(true)
	}
	if rpr.SolidFill != nil && rpr.SolidFill.SrgbClr != nil {
		f.RGB = strings.ToUpper(rpr.SolidFill.SrgbClr.Val)
	}
	return f
}

// parseBoolAttr reads an xsd:boolean attribute. Absent or invalid values
// are nil.
func parseBoolAttr(v string) *bool {
	switch v {
	case "1", "true":
		return model.BoolPtr(true)
	case "0", "false":
		return model.BoolPtr(false)
	}
	return nil
}

// convertTable extracts a table from a graphic frame.
func convertTable(tbl *tblXML) *model.Table {
	table := &model.Table{
		Rows:        make([][]model.Cell, 0, len(tbl.Tr)),
		RowCount:    len(tbl.Tr),
		ColumnCount: len(tbl.TblGrid.GridCol),
	}
	for i, tr := range tbl.Tr {
		row := make([]model.Cell, 0, len(tr.Tc))
		for j, tc := range tr.Tc {
			cell := model.Cell{
				Row:     i,
				Col:     j,
				RowSpan: max(tc.RowSpan, 1),
				ColSpan: max(tc.GridSpan, 1),
				Height:  tr.H,
			}
			if j < len(tbl.TblGrid.GridCol) {
				cell.Width = tbl.TblGrid.GridCol[j].W
			}
			if tc.TxBody != nil {
				var lines []string
				for k := range tc.TxBody.P {
					para := convertParagraph(&tc.TxBody.P[k])
					if text := strings.TrimSpace(para.DisplayText()); text != "" {
						lines = append(lines, text)
					}
				}
				cell.Text = strings.Join(lines, "\n")
			}
			row = append(row, cell)
		}
		if len(row) > table.ColumnCount {
			table.ColumnCount = len(row)
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

// Title returns the text of the first title placeholder.
func (s *Slide) Title() string {
	for i := range s.Shapes {
		if s.Shapes[i].Placeholder.IsTitle() {
			return strings.TrimSpace(s.Shapes[i].Text())
		}
	}
	return ""
}

// walk visits the shapes of the slide depth first.
func (s *Slide) walk(fn func(*Shape)) {
	var visit func([]Shape)
	visit = func(shapes []Shape) {
		for i := range shapes {
			fn(&shapes[i])
			visit(shapes[i].Children)
		}
	}
	visit(s.Shapes)
}

// Text returns all text from the slide as a single string.
func (s *Slide) Text() string {
	var b strings.Builder
	title := s.Title()
	if title != "" {
		b.WriteString(title)
		b.WriteString("\n\n")
	}
	s.walk(func(sh *Shape) {
		if sh.Placeholder.IsTitle() || sh.Placeholder.IsFooter() {
			return
		}
		wrote := false
		for _, para := range sh.Paragraphs {
			if strings.TrimSpace(para.Text) == "" {
				continue
			}
			for i := 0; i < para.Level; i++ {
				b.WriteString("  ")
			}
			b.WriteString(para.DisplayText())
			b.WriteString("\n")
			wrote = true
		}
		if sh.Table != nil {
			b.WriteString(sh.Table.PlainText())
			b.WriteString("\n")
			wrote = true
		}
		if wrote {
			b.WriteString("\n")
		}
	})
	return strings.TrimSpace(b.String())
}

// Markdown returns the slide content as markdown.
func (s *Slide) Markdown() string {
	var b strings.Builder
	if title := s.Title(); title != "" {
		b.WriteString("# ")
		b.WriteString(title)
		b.WriteString("\n\n")
	}
	s.walk(func(sh *Shape) {
		if sh.Placeholder.IsTitle() || sh.Placeholder.IsFooter() {
			return
		}
		for _, para := range sh.Paragraphs {
			if strings.TrimSpace(para.Text) == "" {
				continue
			}
			if para.Level > 0 {
				b.WriteString(strings.Repeat("  ", para.Level-1))
				b.WriteString("- ")
				b.WriteString(strings.ReplaceAll(para.Text, model.LineBreak, " "))
				b.WriteString("\n")
				continue
			}
			b.WriteString(para.DisplayText())
			b.WriteString("\n\n")
		}
		if sh.Table != nil {
			b.WriteString("\n")
			b.WriteString(sh.Table.ToMarkdown())
			b.WriteString("\n")
		}
		if sh.Chart != nil && sh.Chart.HasTitle() {
			fmt.Fprintf(&b, "_Chart: %s_\n\n", *sh.Chart.Title)
		}
	})
	if s.Notes != "" {
		b.WriteString("\n> **Notes:** ")
		b.WriteString(strings.ReplaceAll(s.Notes, "\n", "\n> "))
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

// Markdown returns the whole presentation as markdown, slides separated by
// horizontal rules.
func (p *Package) Markdown() string {
	parts := make([]string, len(p.slides))
	for i, s := range p.slides {
		parts[i] = s.Markdown()
	}
	return strings.Join(parts, "\n\n---\n\n")
}
