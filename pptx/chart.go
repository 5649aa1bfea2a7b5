package pptx

import (
	"encoding/xml"
	"strconv"
	"strings"

	"github.com/tsawler/slidesmith/model"
)

// chartSpaceXML represents a chart part (c:chartSpace).
type chartSpaceXML struct {
	XMLName xml.Name     `xml:"chartSpace"`
	Chart   chartBodyXML `xml:"chart"`
}

type chartBodyXML struct {
	Title            *chartTitleXML `xml:"title"`
	AutoTitleDeleted *boolValXML    `xml:"autoTitleDeleted"`
	PlotArea         plotAreaXML    `xml:"plotArea"`
}

type boolValXML struct {
	Val string `xml:"val,attr"`
}

type chartTitleXML struct {
	Tx *struct {
		Rich *struct {
			P []pXML `xml:"p"`
		} `xml:"rich"`
		StrRef *strRefXML `xml:"strRef"`
	} `xml:"tx"`
}

// plotAreaXML keeps the first plot element (barChart, lineChart, ...).
type plotAreaXML struct {
	Kind   string
	Series []serXML
}

func (p *plotAreaXML) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch el := tok.(type) {
		case xml.StartElement:
			if p.Kind != "" || !strings.HasSuffix(el.Name.Local, "Chart") {
				if err := d.Skip(); err != nil {
					return err
				}
				continue
			}
			var plot struct {
				Ser []serXML `xml:"ser"`
			}
			if err := d.DecodeElement(&plot, &el); err != nil {
				return err
			}
			p.Kind = el.Name.Local
			p.Series = plot.Ser
		case xml.EndElement:
			return nil
		}
	}
}

type serXML struct {
	Tx   *serTxXML   `xml:"tx"`
	Cat  *dataRefXML `xml:"cat"`
	Val  *dataRefXML `xml:"val"`
	XVal *dataRefXML `xml:"xVal"`
	YVal *dataRefXML `xml:"yVal"`
}

type serTxXML struct {
	StrRef *strRefXML `xml:"strRef"`
	V      string     `xml:"v"`
}

type dataRefXML struct {
	StrRef *strRefXML `xml:"strRef"`
	NumRef *numRefXML `xml:"numRef"`
	StrLit *cacheXML  `xml:"strLit"`
	NumLit *cacheXML  `xml:"numLit"`
}

type strRefXML struct {
	F        string    `xml:"f"`
	StrCache *cacheXML `xml:"strCache"`
}

type numRefXML struct {
	F        string    `xml:"f"`
	NumCache *cacheXML `xml:"numCache"`
}

type cacheXML struct {
	PtCount *struct {
		Val int `xml:"val,attr"`
	} `xml:"ptCount"`
	Pt []ptXML `xml:"pt"`
}

type ptXML struct {
	Idx int    `xml:"idx,attr"`
	V   string `xml:"v"`
}

// points returns the cached values indexed by idx; gaps stay empty.
func (c *cacheXML) points() []string {
	if c == nil {
		return nil
	}
	n := 0
	if c.PtCount != nil {
		n = c.PtCount.Val
	}
	for _, pt := range c.Pt {
		if pt.Idx+1 > n {
			n = pt.Idx + 1
		}
	}
	out := make([]string, n)
	for _, pt := range c.Pt {
		if pt.Idx >= 0 {
			out[pt.Idx] = pt.V
		}
	}
	return out
}

func (r *dataRefXML) cache() *cacheXML {
	switch {
	case r == nil:
		return nil
	case r.StrRef != nil:
		return r.StrRef.StrCache
	case r.NumRef != nil:
		return r.NumRef.NumCache
	case r.StrLit != nil:
		return r.StrLit
	default:
		return r.NumLit
	}
}

func (t *serTxXML) text() string {
	if t == nil {
		return ""
	}
	if t.StrRef != nil {
		if pts := t.StrRef.StrCache.points(); len(pts) > 0 {
			return pts[0]
		}
	}
	return t.V
}

func (t *chartTitleXML) text() string {
	if t == nil || t.Tx == nil {
		return ""
	}
	if t.Tx.Rich != nil {
		var lines []string
		for _, p := range t.Tx.Rich.P {
			var b strings.Builder
			for i := range p.Content {
				if text, ok := p.Content[i].text(); ok {
					b.WriteString(strings.ReplaceAll(text, model.LineBreak, " "))
				}
			}
			lines = append(lines, b.String())
		}
		return strings.Join(lines, "\n")
	}
	if t.Tx.StrRef != nil {
		if pts := t.Tx.StrRef.StrCache.points(); len(pts) > 0 {
			return pts[0]
		}
	}
	return ""
}

// parseChart converts a chart part into the model's chart descriptor.
func parseChart(data []byte) (*model.Chart, error) {
	var cs chartSpaceXML
	if err := xml.Unmarshal(data, &cs); err != nil {
		return nil, err
	}

	chart := &model.Chart{Kind: cs.Chart.PlotArea.Kind}
	if chart.Kind == "" {
		chart.Kind = "unknown"
	}
	if cs.Chart.Title != nil {
		title := cs.Chart.Title.text()
		chart.Title = &title
	}

	for i, ser := range cs.Chart.PlotArea.Series {
		cat, val := ser.Cat, ser.Val
		if cat == nil && val == nil {
			cat, val = ser.XVal, ser.YVal
		}
		if i == 0 {
			chart.Categories = cat.cache().points()
		}
		series := model.Series{Name: ser.Tx.text()}
		for _, v := range val.cache().points() {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				f = 0
			}
			series.Values = append(series.Values, f)
		}
		chart.Series = append(chart.Series, series)
	}
	return chart, nil
}
