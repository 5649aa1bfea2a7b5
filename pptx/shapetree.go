package pptx

import "encoding/xml"

// UnmarshalXML decodes the shape tree keeping the draw order of its children.
func (t *spTreeXML) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	return decodeContainer(d, &t.NvGrpSpPr, nil, &t.Shapes)
}

// UnmarshalXML decodes a group shape keeping the draw order of its children.
func (g *grpSpXML) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	return decodeContainer(d, &g.NvGrpSpPr, &g.GrpSpPr, &g.Shapes)
}

// decodeContainer reads the children of spTree or grpSp until the closing tag.
func decodeContainer(d *xml.Decoder, nv *nvGrpSpPrXML, pr *spPrXML, shapes *[]shapeXML) error {
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "nvGrpSpPr":
				if err := d.DecodeElement(nv, &el); err != nil {
					return err
				}
			case "grpSpPr":
				if pr == nil {
					if err := d.Skip(); err != nil {
						return err
					}
					continue
				}
				if err := d.DecodeElement(pr, &el); err != nil {
					return err
				}
			case "AlternateContent":
				if err := decodeAlternate(d, shapes); err != nil {
					return err
				}
			default:
				ok, err := decodeShape(d, el, shapes)
				if err != nil {
					return err
				}
				if !ok {
					if err := d.Skip(); err != nil {
						return err
					}
				}
			}
		case xml.EndElement:
			return nil
		}
	}
}

// decodeShape decodes a drawable child. It reports false for elements that
// are not shapes (extLst and similar), leaving them for the caller to skip.
func decodeShape(d *xml.Decoder, el xml.StartElement, shapes *[]shapeXML) (bool, error) {
	var s shapeXML
	switch el.Name.Local {
	case "sp":
		s.Sp = &spXML{}
		if err := d.DecodeElement(s.Sp, &el); err != nil {
			return true, err
		}
	case "pic":
		s.Pic = &picXML{}
		if err := d.DecodeElement(s.Pic, &el); err != nil {
			return true, err
		}
	case "graphicFrame":
		s.Frame = &graphicFrameXML{}
		if err := d.DecodeElement(s.Frame, &el); err != nil {
			return true, err
		}
	case "grpSp":
		s.Group = &grpSpXML{}
		if err := d.DecodeElement(s.Group, &el); err != nil {
			return true, err
		}
	case "cxnSp":
		s.Cxn = &cxnSpXML{}
		if err := d.DecodeElement(s.Cxn, &el); err != nil {
			return true, err
		}
	default:
		return false, nil
	}
	*shapes = append(*shapes, s)
	return true, nil
}

// decodeAlternate takes the shapes of the first mc:Choice and ignores the
// fallback branches.
func decodeAlternate(d *xml.Decoder, shapes *[]shapeXML) error {
	chosen := false
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch el := tok.(type) {
		case xml.StartElement:
			if el.Name.Local != "Choice" || chosen {
				if err := d.Skip(); err != nil {
					return err
				}
				continue
			}
			chosen = true
			if err := decodeChoice(d, shapes); err != nil {
				return err
			}
		case xml.EndElement:
			return nil
		}
	}
}

func decodeChoice(d *xml.Decoder, shapes *[]shapeXML) error {
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch el := tok.(type) {
		case xml.StartElement:
			ok, err := decodeShape(d, el, shapes)
			if err != nil {
				return err
			}
			if !ok {
				if err := d.Skip(); err != nil {
					return err
				}
			}
		case xml.EndElement:
			return nil
		}
	}
}
