package layout

import "math"

const epsilon = 1e-9

// Geometry is the fixed page description, in millimetres.
type Geometry struct {
	PageWidth      float64 `json:"page_width"`
	PageHeight     float64 `json:"page_height"`
	Margin         float64 `json:"margin"`
	HeaderHeight   float64 `json:"header_height"`
	LineHeight     float64 `json:"line_height"`
	Padding        float64 `json:"padding"`
	PartyMinHeight float64 `json:"party_min_height"`
	RowHeight      float64 `json:"row_height"`
	ReservedFooter float64 `json:"reserved_footer"`
	SignatureSpace float64 `json:"signature_space"`
	GlyphWidth     float64 `json:"glyph_width"`
	LeftColumn     float64 `json:"left_column"`
}

// A4 returns the default portrait A4 geometry.
func A4() Geometry {
	return Geometry{
		PageWidth:      210,
		PageHeight:     297,
		Margin:         10,
		HeaderHeight:   38,
		LineHeight:     5,
		Padding:        2,
		PartyMinHeight: 30,
		RowHeight:      7,
		ReservedFooter: 55,
		SignatureSpace: 12,
		GlyphWidth:     1.8,
		LeftColumn:     0.55,
	}
}

// Normalize fills unset fields from A4.
func (g Geometry) Normalize() Geometry {
	def := A4()
	fill := func(v *float64, d float64) {
		if *v <= 0 {
			*v = d
		}
	}
	fill(&g.PageWidth, def.PageWidth)
	fill(&g.PageHeight, def.PageHeight)
	fill(&g.Margin, def.Margin)
	fill(&g.HeaderHeight, def.HeaderHeight)
	fill(&g.LineHeight, def.LineHeight)
	fill(&g.Padding, def.Padding)
	fill(&g.PartyMinHeight, def.PartyMinHeight)
	fill(&g.RowHeight, def.RowHeight)
	fill(&g.ReservedFooter, def.ReservedFooter)
	fill(&g.SignatureSpace, def.SignatureSpace)
	fill(&g.GlyphWidth, def.GlyphWidth)
	if g.LeftColumn <= 0 || g.LeftColumn >= 1 {
		g.LeftColumn = def.LeftColumn
	}
	return g
}

// ContentWidth is the printable width between margins.
func (g Geometry) ContentWidth() float64 {
	return g.PageWidth - 2*g.Margin
}

// Bottom is the lowest y any section may reach.
func (g Geometry) Bottom() float64 {
	return g.PageHeight - g.Margin
}

// charsFor estimates how many glyphs fit in a box of the given width.
func (g Geometry) charsFor(width float64) int {
	n := floorDiv(width-2*g.Padding, g.GlyphWidth)
	if n < 1 {
		return 1
	}
	return n
}

// blockHeight is the height of a padded box holding n lines.
func (g Geometry) blockHeight(lines int) float64 {
	return 2*g.Padding + float64(lines)*g.LineHeight
}

func floorDiv(a, b float64) int {
	if a <= 0 || b <= 0 {
		return 0
	}
	return int(math.Floor(a/b + epsilon))
}
