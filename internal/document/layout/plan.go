// Package layout computes renderer-agnostic document plans: section boxes in
// millimetres with their text and table content.
package layout

// SectionKind names the blocks a plan is made of.
type SectionKind string

const (
	HeaderBlock    SectionKind = "HeaderBlock"
	PartyBlock     SectionKind = "PartyBlock"
	ItemTable      SectionKind = "ItemTable"
	TotalsBlock    SectionKind = "TotalsBlock"
	WordsBlock     SectionKind = "WordsBlock"
	SignatureBlock SectionKind = "SignatureBlock"
)

// Align is the horizontal alignment of a text run.
type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

// RowKind distinguishes table rows for the renderer.
type RowKind string

const (
	RowHeader    RowKind = "header"
	RowSubHeader RowKind = "subheader"
	RowData      RowKind = "data"
	RowFiller    RowKind = "filler"
	RowTotal     RowKind = "total"
)

// Plan is the complete layout of one document. It is not mutated after the
// planner returns it.
type Plan struct {
	Kind      string    `json:"kind"`
	Reference string    `json:"reference"`
	FileName  string    `json:"file_name"`
	Title     string    `json:"title"`
	Geometry  Geometry  `json:"geometry"`
	Pages     int       `json:"pages"`
	Sections  []Section `json:"sections"`
	Overflow  bool      `json:"overflow"`
	Warnings  []string  `json:"warnings,omitempty"`
}

// SectionsOn returns the sections placed on the given 1-based page.
func (p *Plan) SectionsOn(page int) []Section {
	if p == nil {
		return nil
	}
	out := make([]Section, 0, len(p.Sections))
	for _, s := range p.Sections {
		if s.Page == page {
			out = append(out, s)
		}
	}
	return out
}

// Section returns the first section of the given kind.
func (p *Plan) Section(kind SectionKind) (Section, bool) {
	if p == nil {
		return Section{}, false
	}
	for _, s := range p.Sections {
		if s.Kind == kind {
			return s, true
		}
	}
	return Section{}, false
}

// Section is a positioned box. Coordinates are absolute on its page.
type Section struct {
	ID     string      `json:"id"`
	Kind   SectionKind `json:"kind"`
	Page   int         `json:"page"`
	X      float64     `json:"x"`
	Y      float64     `json:"y"`
	Width  float64     `json:"width"`
	Height float64     `json:"height"`
	Body   Body        `json:"body"`
}

// Bottom is the y coordinate of the lower edge.
func (s Section) Bottom() float64 {
	return s.Y + s.Height
}

// Body is the content of a section. Lines flow in the main column; Pairs are
// label/value rows; Divider, when set, is the x offset of a second column.
type Body struct {
	Lines   []Text  `json:"lines,omitempty"`
	Pairs   []Pair  `json:"pairs,omitempty"`
	Divider float64 `json:"divider,omitempty"`
	Table   *Table  `json:"table,omitempty"`
}

// Text is a single printed line.
type Text struct {
	Text  string `json:"text"`
	Bold  bool   `json:"bold,omitempty"`
	Align Align  `json:"align,omitempty"`
	Gap   bool   `json:"gap,omitempty"`
}

// Pair is a label/value line.
type Pair struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Bold  bool   `json:"bold,omitempty"`
}

// Table is the item grid. Row offsets are relative to the section top.
type Table struct {
	Columns []Column `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// Count returns the number of rows of the given kind.
func (t *Table) Count(kind RowKind) int {
	if t == nil {
		return 0
	}
	n := 0
	for _, r := range t.Rows {
		if r.Kind == kind {
			n++
		}
	}
	return n
}

// Column is a table column; X is relative to the section's left edge.
type Column struct {
	Key   string  `json:"key"`
	Title string  `json:"title"`
	X     float64 `json:"x"`
	Width float64 `json:"width"`
	Align Align   `json:"align"`
}

// Row is one table row. Bordered rows get inner cell borders; filler rows do not.
type Row struct {
	Kind     RowKind `json:"kind"`
	Y        float64 `json:"y"`
	Height   float64 `json:"height"`
	Bordered bool    `json:"bordered"`
	Cells    []Cell  `json:"cells,omitempty"`
}

// Cell starts at column Col and spans Span columns.
type Cell struct {
	Col   int      `json:"col"`
	Span  int      `json:"span"`
	Text  string   `json:"text"`
	Lines []string `json:"lines,omitempty"`
	Align Align    `json:"align,omitempty"`
	Bold  bool     `json:"bold,omitempty"`
}
