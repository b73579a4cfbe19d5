package render

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/docplan/internal/document/layout"
	"github.com/odyssey-erp/docplan/internal/document/tax"
	"github.com/odyssey-erp/docplan/report"
)

type stubPDF struct {
	html  string
	paper report.Paper
	err   error
}

func (s *stubPDF) RenderHTML(_ context.Context, html string, paper report.Paper) ([]byte, error) {
	s.html, s.paper = html, paper
	if s.err != nil {
		return nil, s.err
	}
	return []byte("%PDF-1.7"), nil
}

func samplePlan(items int) *layout.Plan {
	c := layout.Content{
		Kind:         "SaleInvoice",
		Reference:    "0012",
		FileName:     "SaleInvoice_0012.pdf",
		Title:        "TAX INVOICE",
		Company:      []string{"Odyssey Traders"},
		PartyHeading: "Bill To",
		Details:      []layout.Pair{{Label: "Invoice No", Value: "0012"}},
		Mode:         tax.ModeIntraState,
		Rates:        layout.RateLabels{CGST: "9%", SGST: "9%"},
		TotalLines:   []layout.Pair{{Label: "Grand Total", Value: "289.10", Bold: true}},
		Words:        "Two Hundred and Eighty Nine Rupees Only",
		Signatory:    "For Odyssey Traders",
	}
	for i := 0; i < items; i++ {
		c.Items = append(c.Items, layout.Item{Name: fmt.Sprintf("Item <%d>", i+1), Total: "118.00"})
	}
	return layout.NewPlanner(layout.A4()).Plan(c)
}

func TestHTMLRendersEverySection(t *testing.T) {
	r, err := NewRenderer(nil)
	require.NoError(t, err)

	html, err := r.HTML(samplePlan(1))
	require.NoError(t, err)

	assert.Equal(t, 1, strings.Count(html, `class="page"`))
	for _, id := range []string{"header", "party", "items", "totals", "words", "signature"} {
		assert.Contains(t, html, `id="`+id+`"`)
	}
	assert.Contains(t, html, "TAX INVOICE")
	assert.Contains(t, html, "Item &lt;1&gt;")
	assert.Contains(t, html, "Two Hundred and Eighty Nine Rupees Only")
	assert.Contains(t, html, `class="row filler"`)
	assert.NotContains(t, html, `class="row filler bordered"`)
	assert.Contains(t, html, `class="row data bordered"`)
	assert.Contains(t, html, "size: 210.00mm 297.00mm")
}

func TestHTMLPageBreakProducesTwoPages(t *testing.T) {
	r, err := NewRenderer(nil)
	require.NoError(t, err)

	html, err := r.HTML(samplePlan(20))
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(html, `class="page"`))
	second := html[strings.Index(html, `data-page="2"`):]
	assert.Contains(t, second, `id="totals"`)
	assert.NotContains(t, second, `id="items"`)
}

func TestTableViewSpansColumns(t *testing.T) {
	plan := samplePlan(0)
	items, ok := plan.Section(layout.ItemTable)
	require.True(t, ok)

	tv := newTableView(items.Body.Table)
	head := tv.Rows[0]
	cgst := head.Cells[7]
	assert.Equal(t, "CGST", cgst.Text)
	assert.InDelta(t, 23.0, cgst.Width, 1e-9)
	assert.True(t, head.Cells[len(head.Cells)-1].Last)
}

func TestRenderConvertsThroughClient(t *testing.T) {
	client := &stubPDF{}
	r, err := NewRenderer(client)
	require.NoError(t, err)

	res, err := r.Render(context.Background(), samplePlan(2))
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.7"), res.PDF)
	assert.Equal(t, int64(8), res.Length)
	assert.Equal(t, "SaleInvoice_0012.pdf", res.FileName)
	assert.Equal(t, 1, res.Pages)
	assert.Equal(t, res.HTML, client.html)
	assert.InDelta(t, 8.2677, client.paper.Width, 1e-3)
	assert.Zero(t, client.paper.MarginTop)
}

func TestRenderErrors(t *testing.T) {
	r, err := NewRenderer(nil)
	require.NoError(t, err)
	_, err = r.Render(context.Background(), samplePlan(0))
	assert.Error(t, err)

	boom := errors.New("gotenberg down")
	r, err = NewRenderer(&stubPDF{err: boom})
	require.NoError(t, err)
	_, err = r.Render(context.Background(), samplePlan(0))
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, ErrConvert)

	_, err = r.HTML(nil)
	assert.Error(t, err)
}

func TestHTMLLongTableContinuesOnNextPage(t *testing.T) {
	r, err := NewRenderer(nil)
	require.NoError(t, err)

	html, err := r.HTML(samplePlan(40))
	require.NoError(t, err)
	require.Equal(t, 2, strings.Count(html, `class="page"`))
	assert.Equal(t, 40, strings.Count(html, `class="row data bordered"`))
	assert.Equal(t, 2, strings.Count(html, `class="row header bordered"`))

	second := html[strings.Index(html, `data-page="2"`):]
	assert.Contains(t, second, `id="items-2"`)
	assert.Contains(t, second, "Item &lt;40&gt;")
	assert.Contains(t, second, `id="totals"`)
}

func TestRenderRefusesOverflowingPlan(t *testing.T) {
	client := &stubPDF{}
	r, err := NewRenderer(client)
	require.NoError(t, err)

	plan := samplePlan(1)
	plan.Overflow = true
	_, err = r.Render(context.Background(), plan)
	assert.ErrorIs(t, err, ErrOverflow)
	assert.Empty(t, client.html)
}
