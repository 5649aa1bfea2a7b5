package model

// Chart is the data carried by a chart element.
type Chart struct {
	Kind       string   `json:"kind"` // Plot element name, e.g. barChart, lineChart, pieChart
	Title      *string  `json:"title,omitempty"`
	Categories []string `json:"categories"`
	Series     []Series `json:"series"`
}

// Series is one named data series.
type Series struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

// HasTitle reports whether the chart carries a title.
func (c *Chart) HasTitle() bool {
	return c != nil && c.Title != nil
}

func (c *Chart) clone() *Chart {
	out := *c
	if c.Title != nil {
		title := *c.Title
		out.Title = &title
	}
	out.Categories = append([]string(nil), c.Categories...)
	if c.Series != nil {
		out.Series = make([]Series, len(c.Series))
		for i, s := range c.Series {
			out.Series[i] = Series{Name: s.Name, Values: append([]float64(nil), s.Values...)}
		}
	}
	return &out
}
