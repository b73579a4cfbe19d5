package layout

import (
	"fmt"

	"github.com/odyssey-erp/docplan/internal/document/party"
	"github.com/odyssey-erp/docplan/internal/document/tax"
)

// Content is everything the planner places, already formatted for print.
type Content struct {
	Kind         string
	Reference    string
	FileName     string
	Title        string
	Company      []string
	PartyHeading string
	Party        party.Address
	Details      []Pair
	Mode         tax.Mode
	Rates        RateLabels
	Items        []Item
	Totals       Item
	TotalLines   []Pair
	Words        string
	Terms        []string
	Notes        string
	Signatory    string
	Warnings     []string
}

// RateLabels are the printed percentages for the tax sub-header.
type RateLabels struct {
	IGST string
	CGST string
	SGST string
}

// Item is one formatted table row.
type Item struct {
	Name     string
	Code     string
	Quantity string
	Rate     string
	Discount string
	Taxable  string
	IGST     string
	CGST     string
	SGST     string
	Total    string
}

// Planner lays out content on a fixed page geometry.
type Planner struct {
	geometry Geometry
}

// NewPlanner constructs a Planner; zero geometry fields fall back to A4.
func NewPlanner(g Geometry) *Planner {
	return &Planner{geometry: g.Normalize()}
}

// Geometry returns the normalised geometry in use.
func (p *Planner) Geometry() Geometry {
	return p.geometry
}

// Plan places every block. It never fails. A long item table continues on
// following pages; a single row taller than a page flags the plan as
// overflowing.
func (p *Planner) Plan(c Content) *Plan {
	g := p.geometry
	plan := &Plan{
		Kind:      c.Kind,
		Reference: c.Reference,
		FileName:  c.FileName,
		Title:     c.Title,
		Geometry:  g,
		Pages:     1,
		Warnings:  append([]string(nil), c.Warnings...),
	}

	y := g.Margin
	header, dropped := p.header(c, y)
	if dropped > 0 {
		plan.Warnings = append(plan.Warnings, fmt.Sprintf("header: %d company line(s) did not fit", dropped))
	}
	y = header.Bottom()

	partyBlock := p.party(c, y)
	y = partyBlock.Bottom()

	footer := p.footer(c)
	need := footer.height
	if need < g.ReservedFooter {
		need = g.ReservedFooter
	}

	tables, overflow := p.tables(c, y, need)
	last := tables[len(tables)-1]
	if overflow {
		plan.Overflow = true
		plan.Warnings = append(plan.Warnings, fmt.Sprintf("item table: a row is taller than the printable page height of %.1fmm", g.Bottom()-g.Margin))
	}

	page, y := last.Page, last.Bottom()
	if y+need > g.Bottom()+epsilon {
		page++
		y = g.Margin
	}
	plan.Pages = page

	plan.Sections = append(plan.Sections, header, partyBlock)
	plan.Sections = append(plan.Sections, tables...)
	plan.Sections = append(plan.Sections, footer.place(g, page, y)...)
	return plan
}

func (p *Planner) header(c Content, y float64) (Section, int) {
	g := p.geometry
	capacity := floorDiv(g.HeaderHeight-2*g.Padding, g.LineHeight)
	lines := make([]Text, 0, capacity)
	if c.Title != "" {
		lines = append(lines, Text{Text: c.Title, Bold: true, Align: AlignCenter})
	}
	dropped := 0
	for i, line := range c.Company {
		if len(lines) >= capacity {
			dropped = len(c.Company) - i
			break
		}
		lines = append(lines, Text{Text: line, Bold: i == 0, Align: AlignCenter})
	}
	return Section{
		ID:     "header",
		Kind:   HeaderBlock,
		Page:   1,
		X:      g.Margin,
		Y:      y,
		Width:  g.ContentWidth(),
		Height: g.HeaderHeight,
		Body:   Body{Lines: lines},
	}, dropped
}

// partyLines renders the left column of the party block.
func (p *Planner) partyLines(c Content) []Text {
	g := p.geometry
	width := g.charsFor(g.ContentWidth() / 2)
	a := c.Party

	lines := []Text{{Text: c.PartyHeading, Bold: true}}
	if a.Name != "" {
		lines = append(lines, Text{Text: a.Name, Bold: true})
	}
	for _, raw := range []string{a.AddressLine1, a.AddressLine2, a.Locality()} {
		for _, l := range Wrap(raw, width) {
			lines = append(lines, Text{Text: l})
		}
	}
	contacts := []struct{ label, value string }{
		{"Email", a.Email},
		{"Phone", a.Phone},
		{"PAN", a.TaxID},
		{"GSTIN", a.GSTIN},
	}
	for _, ct := range contacts {
		if ct.value != "" {
			lines = append(lines, Text{Text: ct.label + ": " + ct.value})
		}
	}
	return lines
}

func (p *Planner) party(c Content, y float64) Section {
	g := p.geometry
	lines := p.partyLines(c)
	height := g.PartyMinHeight
	if h := g.blockHeight(len(lines)); h > height {
		height = h
	}
	if h := g.blockHeight(len(c.Details)); h > height {
		height = h
	}
	return Section{
		ID:     "party",
		Kind:   PartyBlock,
		Page:   1,
		X:      g.Margin,
		Y:      y,
		Width:  g.ContentWidth(),
		Height: height,
		Body: Body{
			Lines:   lines,
			Pairs:   append([]Pair(nil), c.Details...),
			Divider: g.ContentWidth() / 2,
		},
	}
}

type footerLayout struct {
	words, signature, totals Body
	wordsHeight              float64
	leftHeight, rightHeight  float64
	height                   float64
}

func (p *Planner) footer(c Content) footerLayout {
	g := p.geometry
	leftWidth := g.ContentWidth() * g.LeftColumn

	words := []Text{{Text: "Amount in Words", Bold: true}}
	for _, l := range Wrap(c.Words, g.charsFor(leftWidth)) {
		words = append(words, Text{Text: l})
	}

	terms := []Text{{Text: "Terms & Conditions", Bold: true}}
	for _, term := range c.Terms {
		for _, l := range Wrap(term, g.charsFor(leftWidth)) {
			terms = append(terms, Text{Text: l})
		}
	}
	for _, l := range Wrap(c.Notes, g.charsFor(leftWidth)) {
		terms = append(terms, Text{Text: l})
	}
	signatory := []Text{
		{Text: c.Signatory, Bold: true, Align: AlignRight, Gap: true},
		{Text: "Authorised Signatory", Align: AlignRight},
	}

	f := footerLayout{
		words:     Body{Lines: words},
		signature: Body{Lines: append(terms, signatory...)},
		totals:    Body{Pairs: append([]Pair(nil), c.TotalLines...)},
	}
	f.wordsHeight = g.blockHeight(len(words))
	signatureHeight := g.blockHeight(len(terms)+len(signatory)) + g.SignatureSpace
	f.leftHeight = f.wordsHeight + signatureHeight
	f.rightHeight = g.blockHeight(len(c.TotalLines))
	f.height = f.leftHeight
	if f.rightHeight > f.height {
		f.height = f.rightHeight
	}
	return f
}

// place positions the footer columns at y; both columns end on the same edge.
func (f footerLayout) place(g Geometry, page int, y float64) []Section {
	leftWidth := g.ContentWidth() * g.LeftColumn
	rightWidth := g.ContentWidth() - leftWidth
	return []Section{
		{
			ID: "totals", Kind: TotalsBlock, Page: page,
			X: g.Margin + leftWidth, Y: y, Width: rightWidth, Height: f.height,
			Body: f.totals,
		},
		{
			ID: "words", Kind: WordsBlock, Page: page,
			X: g.Margin, Y: y, Width: leftWidth, Height: f.wordsHeight,
			Body: f.words,
		},
		{
			ID: "signature", Kind: SignatureBlock, Page: page,
			X: g.Margin, Y: y + f.wordsHeight, Width: leftWidth, Height: f.height - f.wordsHeight,
			Body: f.signature,
		},
	}
}
