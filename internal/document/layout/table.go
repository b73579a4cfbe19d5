package layout

import (
	"strconv"

	"github.com/odyssey-erp/docplan/internal/document/tax"
)

// Column keys used by renderers to style cells.
const (
	ColSerial   = "serial"
	ColName     = "name"
	ColCode     = "code"
	ColQuantity = "quantity"
	ColRate     = "rate"
	ColDiscount = "discount"
	ColTaxable  = "taxable"
	ColIGSTPct  = "igst_pct"
	ColIGSTAmt  = "igst_amount"
	ColCGSTPct  = "cgst_pct"
	ColCGSTAmt  = "cgst_amount"
	ColSGSTPct  = "sgst_pct"
	ColSGSTAmt  = "sgst_amount"
	ColTotal    = "total"
)

const (
	widthSerial   = 7
	widthCode     = 14
	widthQuantity = 12
	widthRate     = 16
	widthDiscount = 14
	widthTaxable  = 18
	widthPct      = 8
	widthAmount   = 15
	widthTotal    = 20
)

type taxGroup struct {
	title, pctKey, amtKey string
	pct                   string
	amount                func(Item) string
}

func taxGroups(mode tax.Mode, rates RateLabels) []taxGroup {
	switch mode {
	case tax.ModeInterState:
		return []taxGroup{{title: "IGST", pctKey: ColIGSTPct, amtKey: ColIGSTAmt, pct: rates.IGST, amount: func(i Item) string { return i.IGST }}}
	case tax.ModeIntraState:
		return []taxGroup{
			{title: "CGST", pctKey: ColCGSTPct, amtKey: ColCGSTAmt, pct: rates.CGST, amount: func(i Item) string { return i.CGST }},
			{title: "SGST", pctKey: ColSGSTPct, amtKey: ColSGSTAmt, pct: rates.SGST, amount: func(i Item) string { return i.SGST }},
		}
	default:
		return nil
	}
}

// columns builds the column set for the tax mode, giving the description
// whatever width the fixed columns leave.
func columns(content float64, groups []taxGroup) []Column {
	fixed := float64(widthSerial + widthCode + widthQuantity + widthRate + widthDiscount + widthTaxable + widthTotal)
	fixed += float64(len(groups) * (widthPct + widthAmount))

	cols := []Column{
		{Key: ColSerial, Title: "Sr", Width: widthSerial, Align: AlignCenter},
		{Key: ColName, Title: "Description", Width: content - fixed, Align: AlignLeft},
		{Key: ColCode, Title: "HSN/SAC", Width: widthCode, Align: AlignCenter},
		{Key: ColQuantity, Title: "Qty", Width: widthQuantity, Align: AlignRight},
		{Key: ColRate, Title: "Rate", Width: widthRate, Align: AlignRight},
		{Key: ColDiscount, Title: "Disc.", Width: widthDiscount, Align: AlignRight},
		{Key: ColTaxable, Title: "Taxable", Width: widthTaxable, Align: AlignRight},
	}
	for _, grp := range groups {
		cols = append(cols,
			Column{Key: grp.pctKey, Title: "%", Width: widthPct, Align: AlignRight},
			Column{Key: grp.amtKey, Title: "Amount", Width: widthAmount, Align: AlignRight},
		)
	}
	cols = append(cols, Column{Key: ColTotal, Title: "Total", Width: widthTotal, Align: AlignRight})

	x := 0.0
	for i := range cols {
		cols[i].X = x
		x += cols[i].Width
	}
	return cols
}

// headerRows is a single header row when exempt; otherwise a group row plus a
// %/Amount sub-header. Every page of the table starts with them.
func headerRows(g Geometry, cols []Column, groups []taxGroup) []Row {
	head := Row{Kind: RowHeader, Height: g.RowHeight, Bordered: true}
	sub := Row{Kind: RowSubHeader, Height: g.RowHeight, Bordered: true}
	for i := 0; i < 7; i++ {
		head.Cells = append(head.Cells, Cell{Col: i, Span: 1, Text: cols[i].Title, Align: AlignCenter, Bold: true})
	}
	col := 7
	for _, grp := range groups {
		head.Cells = append(head.Cells, Cell{Col: col, Span: 2, Text: grp.title, Align: AlignCenter, Bold: true})
		sub.Cells = append(sub.Cells,
			Cell{Col: col, Span: 1, Text: "%", Align: AlignCenter, Bold: true},
			Cell{Col: col + 1, Span: 1, Text: "Amount", Align: AlignCenter, Bold: true},
		)
		col += 2
	}
	head.Cells = append(head.Cells, Cell{Col: col, Span: 1, Text: cols[col].Title, Align: AlignCenter, Bold: true})
	if len(groups) == 0 {
		return []Row{head}
	}
	return []Row{head, sub}
}

// tablePart is the slice of the item table placed on one page.
type tablePart struct {
	page    int
	y       float64
	table   *Table
	offset  float64
	bodyTop float64
	data    int
}

func (t *tablePart) add(r Row) {
	r.Y = t.offset
	t.offset += r.Height
	t.table.Rows = append(t.table.Rows, r)
}

func (t *tablePart) section(g Geometry) Section {
	id := "items"
	if t.page > 1 {
		id = "items-" + strconv.Itoa(t.page)
	}
	return Section{
		ID:     id,
		Kind:   ItemTable,
		Page:   t.page,
		X:      g.Margin,
		Y:      t.y,
		Width:  g.ContentWidth(),
		Height: t.offset,
		Body:   Body{Table: t.table},
	}
}

// tables lays the item table out from y on page 1, breaking between rows onto
// continuation pages that repeat the header rows. The last data row always
// shares its page with the total row. need is the space kept below the table
// for the footer when sizing filler rows. overflow reports a single row taller
// than a whole page.
func (p *Planner) tables(c Content, y, need float64) (parts []Section, overflow bool) {
	g := p.geometry
	groups := taxGroups(c.Mode, c.Rates)
	cols := columns(g.ContentWidth(), groups)
	descChars := g.charsFor(cols[1].Width)
	header := headerRows(g, cols, groups)

	var done []*tablePart
	start := func(page int, top float64) *tablePart {
		t := &tablePart{page: page, y: top, table: &Table{Columns: cols}}
		for _, r := range header {
			t.add(r)
		}
		t.bodyTop = t.offset
		return t
	}
	cur := start(1, y)

	for i, item := range c.Items {
		lines := Wrap(item.Name, descChars)
		height := g.RowHeight
		if h := float64(len(lines))*g.LineHeight + g.Padding; h > height {
			height = h
		}
		required := height
		if i == len(c.Items)-1 {
			required += g.RowHeight
		}
		if cur.y+cur.offset+required > g.Bottom()+epsilon {
			switch {
			case cur.data > 0:
				done = append(done, cur)
				cur = start(cur.page+1, g.Margin)
			case cur.y > g.Margin+epsilon:
				cur = start(cur.page+1, g.Margin)
			}
			if cur.y+cur.offset+required > g.Bottom()+epsilon {
				overflow = true
			}
		}
		cur.add(Row{
			Kind:     RowData,
			Height:   height,
			Bordered: true,
			Cells:    valueCells(cols, groups, item, strconv.Itoa(i+1), lines, false),
		})
		cur.data++
	}

	// Filler rows pad the last part to the minimum row count without pushing
	// the footer off the page.
	minRows := floorDiv(g.Bottom()-(cur.y+cur.bodyTop)-g.RowHeight-need, g.RowHeight)
	filler := minRows - cur.data
	if room := floorDiv(g.Bottom()-(cur.y+cur.offset)-g.RowHeight-need, g.RowHeight); filler > room {
		filler = room
	}
	for i := 0; i < filler; i++ {
		cur.add(Row{Kind: RowFiller, Height: g.RowHeight})
	}
	cur.add(Row{
		Kind:     RowTotal,
		Height:   g.RowHeight,
		Bordered: true,
		Cells:    valueCells(cols, groups, c.Totals, "", nil, true),
	})
	done = append(done, cur)

	for _, t := range done {
		parts = append(parts, t.section(g))
	}
	return parts, overflow
}

func valueCells(cols []Column, groups []taxGroup, item Item, serial string, nameLines []string, total bool) []Cell {
	name := item.Name
	if total {
		name = "Total"
	}
	values := []string{serial, name, item.Code, item.Quantity, item.Rate, item.Discount, item.Taxable}
	for _, grp := range groups {
		pct := grp.pct
		if total {
			pct = ""
		}
		values = append(values, pct, grp.amount(item))
	}
	values = append(values, item.Total)

	cells := make([]Cell, len(values))
	for i, v := range values {
		cells[i] = Cell{Col: i, Span: 1, Text: v, Align: cols[i].Align, Bold: total}
	}
	if len(nameLines) > 1 {
		cells[1].Lines = nameLines
	}
	return cells
}
