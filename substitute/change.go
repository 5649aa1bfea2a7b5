package substitute

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Change records one substituted paragraph.
type Change struct {
	ElementID int    `json:"element_id"`
	Paragraph int    `json:"paragraph"`
	Old       string `json:"old"`
	New       string `json:"new"`
	Inserted  int    `json:"inserted"` // Characters added
	Deleted   int    `json:"deleted"`  // Characters removed
	Summary   string `json:"summary"`  // Word-diff style: kept [-removed-]{+added+}
}

// NewChange describes the rewrite of one paragraph.
func NewChange(elementID, paragraph int, before, after string) Change {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(before, after, false))

	c := Change{ElementID: elementID, Paragraph: paragraph, Old: before, New: after}
	var sb strings.Builder
	for _, d := range diffs {
		n := len([]rune(d.Text))
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			c.Inserted += n
			sb.WriteString("{+" + d.Text + "+}")
		case diffmatchpatch.DiffDelete:
			c.Deleted += n
			sb.WriteString("[-" + d.Text + "-]")
		default:
			sb.WriteString(d.Text)
		}
	}
	c.Summary = sb.String()
	return c
}

// String formats the change for logs.
func (c Change) String() string {
	return fmt.Sprintf("element %d paragraph %d: %s (+%d -%d)", c.ElementID, c.Paragraph, c.Summary, c.Inserted, c.Deleted)
}
