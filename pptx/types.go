// Package pptx provides PPTX (Office Open XML Presentation) document parsing
// and in-place editing.
package pptx

import (
	"encoding/xml"

	"github.com/tsawler/slidesmith/model"
)

// XML namespaces used in PPTX files.
const (
	nsPresentationML = "http://schemas.openxmlformats.org/presentationml/2006/main"
	nsDrawingML      = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsRelationships  = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsPackageRels    = "http://schemas.openxmlformats.org/package/2006/relationships"
	nsContentTypes   = "http://schemas.openxmlformats.org/package/2006/content-types"
	nsChart          = "http://schemas.openxmlformats.org/drawingml/2006/chart"
)

// Relationship types.
const (
	relSlide       = nsRelationships + "/slide"
	relSlideLayout = nsRelationships + "/slideLayout"
	relNotesSlide  = nsRelationships + "/notesSlide"
	relChart       = nsRelationships + "/chart"
	relImage       = nsRelationships + "/image"
)

// Graphic data URIs.
const (
	uriTable = "http://schemas.openxmlformats.org/drawingml/2006/table"
	uriChart = nsChart
)

const contentTypeSlide = "application/vnd.openxmlformats-officedocument.presentationml.slide+xml"

// presentationXML represents the ppt/presentation.xml file structure.
type presentationXML struct {
	XMLName     xml.Name        `xml:"presentation"`
	SlideIdList *slideIdListXML `xml:"sldIdLst"`
	SlideSz     *slideSzXML     `xml:"sldSz"`
}

type slideIdListXML struct {
	SlideId []slideIdXML `xml:"sldId"`
}

type slideIdXML struct {
	ID  string
	RID string
}

// UnmarshalXML reads the unqualified id and the r:id attributes separately;
// both have the local name "id".
func (s *slideIdXML) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for _, a := range start.Attr {
		if a.Name.Local != "id" {
			continue
		}
		switch a.Name.Space {
		case "":
			s.ID = a.Value
		case nsRelationships:
			s.RID = a.Value
		}
	}
	return d.Skip()
}

type slideSzXML struct {
	Cx int64 `xml:"cx,attr"` // Width in EMUs
	Cy int64 `xml:"cy,attr"` // Height in EMUs
}

// slideXML represents a slide, slide layout or notes slide part. Only the
// common cSld subtree is read.
type slideXML struct {
	XMLName xml.Name `xml:""`
	CSld    cSldXML  `xml:"cSld"`
}

type cSldXML struct {
	Name   string    `xml:"name,attr"`
	Bg     *bgXML    `xml:"bg"`
	SpTree spTreeXML `xml:"spTree"`
}

type bgXML struct {
	BgPr  *fillPropsXML `xml:"bgPr"`
	BgRef *bgRefXML     `xml:"bgRef"`
}

type bgRefXML struct {
	Idx       int          `xml:"idx,attr"`
	SrgbClr   *colorValXML `xml:"srgbClr"`
	SchemeClr *colorValXML `xml:"schemeClr"`
}

// fillPropsXML captures the fill choice of spPr and bgPr.
type fillPropsXML struct {
	NoFill    *struct{}     `xml:"noFill"`
	SolidFill *solidFillXML `xml:"solidFill"`
	GradFill  *struct{}     `xml:"gradFill"`
	PattFill  *struct{}     `xml:"pattFill"`
	BlipFill  *struct{}     `xml:"blipFill"`
	GrpFill   *struct{}     `xml:"grpFill"`
}

type solidFillXML struct {
	SrgbClr   *colorValXML `xml:"srgbClr"`
	SchemeClr *colorValXML `xml:"schemeClr"`
}

type colorValXML struct {
	Val string `xml:"val,attr"`
}

// spTreeXML is the ordered shape tree of a slide.
type spTreeXML struct {
	NvGrpSpPr nvGrpSpPrXML
	Shapes    []shapeXML // Draw order
}

// shapeXML is one child of a shape tree. Exactly one pointer is set.
type shapeXML struct {
	Sp    *spXML
	Pic   *picXML
	Frame *graphicFrameXML
	Group *grpSpXML
	Cxn   *cxnSpXML
}

type nvGrpSpPrXML struct {
	CNvPr cNvPrXML `xml:"cNvPr"`
}

type cNvPrXML struct {
	ID    int    `xml:"id,attr"`
	Name  string `xml:"name,attr"`
	Title string `xml:"title,attr"`
	Descr string `xml:"descr,attr"`
}

// spXML represents a shape element.
type spXML struct {
	NvSpPr nvSpPrXML  `xml:"nvSpPr"`
	SpPr   spPrXML    `xml:"spPr"`
	TxBody *txBodyXML `xml:"txBody"`
}

type nvSpPrXML struct {
	CNvPr cNvPrXML `xml:"cNvPr"`
	NvPr  nvPrXML  `xml:"nvPr"`
}

type nvPrXML struct {
	Ph *phXML `xml:"ph"` // Placeholder info
}

// phXML keeps idx as text so a malformed value does not abort the slide.
type phXML struct {
	Type string `xml:"type,attr"` // title, body, subTitle, ctrTitle, etc.
	Idx  string `xml:"idx,attr"`
}

type spPrXML struct {
	Xfrm *xfrmXML `xml:"xfrm"`
	fillPropsXML
}

type xfrmXML struct {
	Rot int64  `xml:"rot,attr"` // 60000ths of a degree
	Off offXML `xml:"off"`
	Ext extXML `xml:"ext"`
}

type offXML struct {
	X int64 `xml:"x,attr"` // X position in EMUs
	Y int64 `xml:"y,attr"` // Y position in EMUs
}

type extXML struct {
	Cx int64 `xml:"cx,attr"` // Width in EMUs
	Cy int64 `xml:"cy,attr"` // Height in EMUs
}

// txBodyXML represents text body content.
type txBodyXML struct {
	BodyPr bodyPrXML `xml:"bodyPr"`
	P      []pXML    `xml:"p"` // Paragraphs
}

type bodyPrXML struct {
	Anchor string `xml:"anchor,attr"` // t, ctr, b (top, center, bottom)
	Wrap   string `xml:"wrap,attr"`
}

// pXML represents a paragraph. Runs (a:r), fields (a:fld) and line breaks
// (a:br) are kept in document order in Content.
type pXML struct {
	PPr        *pPrXML       `xml:"pPr"`        // Paragraph properties
	Content    []pContentXML `xml:",any"`       // Runs, fields and breaks
	EndParaRPr *rPrXML       `xml:"endParaRPr"` // End paragraph run properties
}

// pContentXML is a child of a paragraph: a:r, a:fld or a:br.
type pContentXML struct {
	XMLName xml.Name
	Type    string  `xml:"type,attr"` // Field type (slidenum, datetime, ...)
	RPr     *rPrXML `xml:"rPr"`       // Run properties
	T       string  `xml:"t"`         // Text content
}

// text returns the text of a run or field, LineBreak for a break and ""
// for anything else.
func (c *pContentXML) text() (string, bool) {
	switch c.XMLName.Local {
	case "r", "fld":
		return c.T, true
	case "br":
		return model.LineBreak, true
	}
	return "", false
}

type pPrXML struct {
	Lvl       int           `xml:"lvl,attr"`  // Bullet level (0-8)
	Algn      string        `xml:"algn,attr"` // Alignment: l, ctr, r, just
	BuNone    *struct{}     `xml:"buNone"`    // No bullet
	BuChar    *buCharXML    `xml:"buChar"`    // Character bullet
	BuAutoNum *buAutoNumXML `xml:"buAutoNum"` // Numbered list
}

type buCharXML struct {
	Char string `xml:"char,attr"` // Bullet character
}

type buAutoNumXML struct {
	Type string `xml:"type,attr"` // arabicPeriod, alphaLcParenR, etc.
}

// rPrXML keeps boolean attributes as text; OOXML allows 1/0/true/false.
type rPrXML struct {
	Lang      string        `xml:"lang,attr"`
	Sz        int           `xml:"sz,attr"` // Font size in hundredths of a point
	B         string        `xml:"b,attr"`
	I         string        `xml:"i,attr"`
	U         string        `xml:"u,attr"` // Underline type
	Latin     *typefaceXML  `xml:"latin"`
	SolidFill *solidFillXML `xml:"solidFill"`
}

type typefaceXML struct {
	Typeface string `xml:"typeface,attr"`
}

// picXML represents a picture element.
type picXML struct {
	NvPicPr  nvSpPrXML   `xml:"nvPicPr"`
	BlipFill blipFillXML `xml:"blipFill"`
	SpPr     spPrXML     `xml:"spPr"`
}

type blipFillXML struct {
	Blip *blipXML `xml:"blip"`
}

type blipXML struct {
	Embed string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships embed,attr"`
	Link  string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships link,attr"`
}

// graphicFrameXML represents a graphic frame (tables, charts).
type graphicFrameXML struct {
	NvGraphicFramePr nvSpPrXML  `xml:"nvGraphicFramePr"`
	Xfrm             *xfrmXML   `xml:"xfrm"`
	Graphic          graphicXML `xml:"graphic"`
}

type graphicXML struct {
	GraphicData graphicDataXML `xml:"graphicData"`
}

type graphicDataXML struct {
	URI   string       `xml:"uri,attr"`
	Tbl   *tblXML      `xml:"tbl"`   // Table
	Chart *chartRefXML `xml:"chart"` // Chart reference
}

type chartRefXML struct {
	RID string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
}

// tblXML represents a table.
type tblXML struct {
	TblGrid tblGridXML `xml:"tblGrid"`
	Tr      []trXML    `xml:"tr"` // Table rows
}

type tblGridXML struct {
	GridCol []gridColXML `xml:"gridCol"`
}

type gridColXML struct {
	W int64 `xml:"w,attr"` // Width in EMUs
}

type trXML struct {
	H  int64   `xml:"h,attr"` // Row height in EMUs
	Tc []tcXML `xml:"tc"`     // Table cells
}

type tcXML struct {
	TxBody   *txBodyXML `xml:"txBody"`
	RowSpan  int        `xml:"rowSpan,attr"`
	GridSpan int        `xml:"gridSpan,attr"`
	VMerge   string     `xml:"vMerge,attr"` // Vertical merge continuation
	HMerge   string     `xml:"hMerge,attr"` // Horizontal merge continuation
}

// grpSpXML represents a group of shapes.
type grpSpXML struct {
	NvGrpSpPr nvGrpSpPrXML
	GrpSpPr   spPrXML
	Shapes    []shapeXML
}

// cxnSpXML represents a connector.
type cxnSpXML struct {
	NvCxnSpPr nvSpPrXML `xml:"nvCxnSpPr"`
	SpPr      spPrXML   `xml:"spPr"`
}

// relationshipsXML represents .rels files.
type relationshipsXML struct {
	XMLName      xml.Name          `xml:"http://schemas.openxmlformats.org/package/2006/relationships Relationships"`
	Relationship []relationshipXML `xml:"Relationship"`
}

type relationshipXML struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr,omitempty"`
}

// byID returns the relationship with the given id.
func (r *relationshipsXML) byID(id string) *relationshipXML {
	if r == nil {
		return nil
	}
	for i := range r.Relationship {
		if r.Relationship[i].ID == id {
			return &r.Relationship[i]
		}
	}
	return nil
}

// byType returns the first relationship of the given type.
func (r *relationshipsXML) byType(typ string) *relationshipXML {
	if r == nil {
		return nil
	}
	for i := range r.Relationship {
		if r.Relationship[i].Type == typ {
			return &r.Relationship[i]
		}
	}
	return nil
}

// contentTypesXML represents [Content_Types].xml.
type contentTypesXML struct {
	XMLName  xml.Name      `xml:"http://schemas.openxmlformats.org/package/2006/content-types Types"`
	Default  []defaultXML  `xml:"Default"`
	Override []overrideXML `xml:"Override"`
}

type defaultXML struct {
	Extension   string `xml:"Extension,attr"`
	ContentType string `xml:"ContentType,attr"`
}

type overrideXML struct {
	PartName    string `xml:"PartName,attr"`
	ContentType string `xml:"ContentType,attr"`
}

// corePropertiesXML represents docProps/core.xml.
type corePropertiesXML struct {
	XMLName     xml.Name `xml:"coreProperties"`
	Title       string   `xml:"title"`
	Subject     string   `xml:"subject"`
	Creator     string   `xml:"creator"`
	Keywords    string   `xml:"keywords"`
	Description string   `xml:"description"`
	LastModBy   string   `xml:"lastModifiedBy"`
}

// appPropertiesXML represents docProps/app.xml.
type appPropertiesXML struct {
	XMLName     xml.Name `xml:"Properties"`
	Application string   `xml:"Application"`
	Company     string   `xml:"Company"`
	Slides      int      `xml:"Slides"`
	Notes       int      `xml:"Notes"`
}
