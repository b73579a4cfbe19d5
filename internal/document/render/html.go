// Package render paints layout plans as HTML and converts them to PDF.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"strconv"
	"strings"

	"github.com/odyssey-erp/docplan/internal/document/layout"
	"github.com/odyssey-erp/docplan/report"
	"github.com/odyssey-erp/docplan/web"
)

var (
	// ErrConvert wraps failures of the PDF backend.
	ErrConvert = errors.New("render: pdf conversion failed")
	// ErrOverflow rejects plans with a row that cannot fit on a page; the
	// page box would clip it.
	ErrOverflow = errors.New("render: plan overflows the page")
)

// PDFClient exposes the subset of the report client used by the renderer.
type PDFClient interface {
	RenderHTML(ctx context.Context, html string, paper report.Paper) ([]byte, error)
}

// Result carries the intermediate HTML and the PDF bytes.
type Result struct {
	FileName string
	HTML     string
	PDF      []byte
	Length   int64
	Pages    int
}

// Renderer paints plans with html/template and converts them via PDFClient.
type Renderer struct {
	tpl    *template.Template
	client PDFClient
}

// NewRenderer parses the document template and wires the PDF client. A nil
// client still allows HTML output.
func NewRenderer(client PDFClient) (*Renderer, error) {
	funcMap := template.FuncMap{
		"mm": func(v float64) string {
			return strconv.FormatFloat(v, 'f', 2, 64)
		},
	}
	tpl, err := template.New("plan.html").Funcs(funcMap).ParseFS(web.Templates, "templates/documents/plan.html")
	if err != nil {
		return nil, fmt.Errorf("render: parse template: %w", err)
	}
	return &Renderer{tpl: tpl, client: client}, nil
}

// HTML paints the plan as a self-contained HTML document, one page div per plan page.
func (r *Renderer) HTML(plan *layout.Plan) (string, error) {
	if r == nil || r.tpl == nil {
		return "", fmt.Errorf("render: renderer not initialised")
	}
	if plan == nil {
		return "", fmt.Errorf("render: nil plan")
	}
	buf := &bytes.Buffer{}
	if err := r.tpl.Execute(buf, newDocumentView(plan)); err != nil {
		return "", fmt.Errorf("render: execute template: %w", err)
	}
	return buf.String(), nil
}

// Render produces the PDF for plan.
func (r *Renderer) Render(ctx context.Context, plan *layout.Plan) (Result, error) {
	if r == nil || r.client == nil {
		return Result{}, fmt.Errorf("render: pdf client not configured")
	}
	if plan != nil && plan.Overflow {
		return Result{}, fmt.Errorf("%w: %s", ErrOverflow, plan.FileName)
	}
	html, err := r.HTML(plan)
	if err != nil {
		return Result{}, err
	}
	pdf, err := r.client.RenderHTML(ctx, html, report.PaperFromMM(plan.Geometry.PageWidth, plan.Geometry.PageHeight))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrConvert, err)
	}
	return Result{FileName: plan.FileName, HTML: html, PDF: pdf, Length: int64(len(pdf)), Pages: plan.Pages}, nil
}

type documentView struct {
	Title          string
	Reference      string
	Width          float64
	Height         float64
	Padding        float64
	LineHeight     float64
	SignatureSpace float64
	Pages          []pageView
}

type pageView struct {
	Number   int
	Sections []sectionView
}

type sectionView struct {
	ID      string
	Kind    string
	Class   string
	X       float64
	Y       float64
	Width   float64
	Height  float64
	Lines   []layout.Text
	Pairs   []layout.Pair
	Divider float64
	Table   *tableView
}

type tableView struct {
	Rows []rowView
}

type rowView struct {
	Kind     string
	Y        float64
	Height   float64
	Bordered bool
	Cells    []cellView
}

type cellView struct {
	X     float64
	Width float64
	Text  string
	Lines []string
	Align string
	Bold  bool
	Last  bool
}

func newDocumentView(plan *layout.Plan) documentView {
	g := plan.Geometry
	doc := documentView{
		Title:          plan.Title,
		Reference:      plan.Reference,
		Width:          g.PageWidth,
		Height:         g.PageHeight,
		Padding:        g.Padding,
		LineHeight:     g.LineHeight,
		SignatureSpace: g.SignatureSpace,
	}
	for page := 1; page <= plan.Pages; page++ {
		pv := pageView{Number: page}
		for _, s := range plan.SectionsOn(page) {
			pv.Sections = append(pv.Sections, newSectionView(s))
		}
		doc.Pages = append(doc.Pages, pv)
	}
	return doc
}

func newSectionView(s layout.Section) sectionView {
	sv := sectionView{
		ID:      s.ID,
		Kind:    string(s.Kind),
		Class:   strings.ToLower(strings.TrimSuffix(strings.TrimSuffix(string(s.Kind), "Block"), "Table")),
		X:       s.X,
		Y:       s.Y,
		Width:   s.Width,
		Height:  s.Height,
		Lines:   s.Body.Lines,
		Pairs:   s.Body.Pairs,
		Divider: s.Body.Divider,
	}
	if t := s.Body.Table; t != nil {
		sv.Class = "table"
		sv.Table = newTableView(t)
	}
	return sv
}

func newTableView(t *layout.Table) *tableView {
	tv := &tableView{Rows: make([]rowView, 0, len(t.Rows))}
	for _, row := range t.Rows {
		rv := rowView{Kind: string(row.Kind), Y: row.Y, Height: row.Height, Bordered: row.Bordered}
		for _, cell := range row.Cells {
			if cell.Col < 0 || cell.Col >= len(t.Columns) {
				continue
			}
			span := cell.Span
			if span < 1 {
				span = 1
			}
			end := cell.Col + span
			if end > len(t.Columns) {
				end = len(t.Columns)
			}
			width := 0.0
			for _, col := range t.Columns[cell.Col:end] {
				width += col.Width
			}
			rv.Cells = append(rv.Cells, cellView{
				X:     t.Columns[cell.Col].X,
				Width: width,
				Text:  cell.Text,
				Lines: cell.Lines,
				Align: string(cell.Align),
				Bold:  cell.Bold,
				Last:  end == len(t.Columns),
			})
		}
		tv.Rows = append(tv.Rows, rv)
	}
	return tv
}
