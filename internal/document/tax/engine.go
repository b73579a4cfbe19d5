// Package tax computes GST breakdowns for document line items.
package tax

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrNegativeTaxable is returned under PolicyReject when a discount exceeds the gross line amount.
var ErrNegativeTaxable = errors.New("tax: negative taxable value")

var hundred = decimal.NewFromInt(100)

// Mode identifies how tax is levied on a document.
type Mode string

const (
	ModeExempt     Mode = "EXEMPT"
	ModeIntraState Mode = "INTRA_STATE"
	ModeInterState Mode = "INTER_STATE"
)

// NegativePolicy decides what happens to a line whose discount exceeds its gross amount.
type NegativePolicy string

const (
	PolicyPropagate NegativePolicy = "propagate"
	PolicyClamp     NegativePolicy = "clamp"
	PolicyReject    NegativePolicy = "reject"
)

// ParsePolicy maps a configuration string onto a NegativePolicy.
func ParsePolicy(value string) (NegativePolicy, error) {
	switch NegativePolicy(strings.ToLower(strings.TrimSpace(value))) {
	case "", PolicyPropagate:
		return PolicyPropagate, nil
	case PolicyClamp:
		return PolicyClamp, nil
	case PolicyReject:
		return PolicyReject, nil
	default:
		return "", fmt.Errorf("tax: unknown negative taxable policy %q", value)
	}
}

// Rates holds the document level percentages.
type Rates struct {
	IGST float64 `json:"igst_rate"`
	CGST float64 `json:"cgst_rate"`
	SGST float64 `json:"sgst_rate"`
}

// LineItem is a single priced row of a document.
type LineItem struct {
	Name      string  `json:"name"`
	Code      string  `json:"code"`
	Unit      string  `json:"unit,omitempty"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Discount  float64 `json:"discount"`
}

// Line carries the computed amounts for one LineItem.
type Line struct {
	Taxable decimal.Decimal `json:"taxable"`
	IGST    decimal.Decimal `json:"igst"`
	CGST    decimal.Decimal `json:"cgst"`
	SGST    decimal.Decimal `json:"sgst"`
	Total   decimal.Decimal `json:"total"`
}

// Breakdown is the full tax computation for a document. Aggregates are
// unrounded sums; round with Round2 at display time.
type Breakdown struct {
	Mode     Mode            `json:"mode"`
	IGSTRate decimal.Decimal `json:"igst_rate"`
	CGSTRate decimal.Decimal `json:"cgst_rate"`
	SGSTRate decimal.Decimal `json:"sgst_rate"`
	Lines    []Line          `json:"lines"`
	Quantity decimal.Decimal `json:"quantity"`
	Taxable  decimal.Decimal `json:"taxable"`
	IGST     decimal.Decimal `json:"igst"`
	CGST     decimal.Decimal `json:"cgst"`
	SGST     decimal.Decimal `json:"sgst"`
	Total    decimal.Decimal `json:"total"`
	Warnings []string        `json:"warnings,omitempty"`
}

// TaxTotal returns the sum of all tax components.
func (b Breakdown) TaxTotal() decimal.Decimal {
	return b.IGST.Add(b.CGST).Add(b.SGST)
}

// Taxed reports whether any tax column is printed.
func (b Breakdown) Taxed() bool {
	return b.Mode != ModeExempt
}

// Engine computes tax breakdowns under a negative taxable policy.
type Engine struct {
	policy NegativePolicy
}

// NewEngine constructs an Engine. An empty policy behaves as PolicyPropagate.
func NewEngine(policy NegativePolicy) *Engine {
	if policy == "" {
		policy = PolicyPropagate
	}
	return &Engine{policy: policy}
}

// Compute derives the per-line and aggregate breakdown. Non-finite inputs are
// coerced to zero and reported in Breakdown.Warnings.
func (e *Engine) Compute(items []LineItem, rates Rates) (Breakdown, error) {
	policy := PolicyPropagate
	if e != nil && e.policy != "" {
		policy = e.policy
	}
	var warnings []string
	igstRate := sanitize(rates.IGST, "igst rate", &warnings)
	cgstRate := sanitize(rates.CGST, "cgst rate", &warnings)
	sgstRate := sanitize(rates.SGST, "sgst rate", &warnings)

	b := Breakdown{
		Mode:     ModeFor(rates),
		IGSTRate: igstRate,
		CGSTRate: cgstRate,
		SGSTRate: sgstRate,
		Lines:    make([]Line, 0, len(items)),
	}
	switch b.Mode {
	case ModeInterState:
		b.CGSTRate = decimal.Zero
		b.SGSTRate = decimal.Zero
	case ModeIntraState:
		b.IGSTRate = decimal.Zero
	default:
		b.IGSTRate, b.CGSTRate, b.SGSTRate = decimal.Zero, decimal.Zero, decimal.Zero
	}

	for i, item := range items {
		label := fmt.Sprintf("line %d", i+1)
		qty := sanitize(item.Quantity, label+" quantity", &warnings)
		price := sanitize(item.UnitPrice, label+" unit price", &warnings)
		discount := sanitize(item.Discount, label+" discount", &warnings)

		taxable := qty.Mul(price).Sub(discount)
		if taxable.IsNegative() {
			switch policy {
			case PolicyReject:
				return Breakdown{}, fmt.Errorf("%s (%s): %w", label, item.Name, ErrNegativeTaxable)
			case PolicyClamp:
				warnings = append(warnings, fmt.Sprintf("%s: negative taxable value %s clamped to 0", label, taxable.StringFixed(2)))
				taxable = decimal.Zero
			default:
				warnings = append(warnings, fmt.Sprintf("%s: negative taxable value %s", label, taxable.StringFixed(2)))
			}
		}

		line := Line{Taxable: taxable, IGST: decimal.Zero, CGST: decimal.Zero, SGST: decimal.Zero}
		if b.Mode == ModeInterState {
			line.IGST = taxable.Mul(b.IGSTRate).Div(hundred)
		} else {
			line.CGST = taxable.Mul(b.CGSTRate).Div(hundred)
			line.SGST = taxable.Mul(b.SGSTRate).Div(hundred)
		}
		line.Total = line.Taxable.Add(line.IGST).Add(line.CGST).Add(line.SGST)

		b.Lines = append(b.Lines, line)
		b.Quantity = b.Quantity.Add(qty)
		b.Taxable = b.Taxable.Add(line.Taxable)
		b.IGST = b.IGST.Add(line.IGST)
		b.CGST = b.CGST.Add(line.CGST)
		b.SGST = b.SGST.Add(line.SGST)
		b.Total = b.Total.Add(line.Total)
	}
	b.Warnings = warnings
	return b, nil
}

// ModeFor selects the levy mode from the document rates. IGST wins whenever it is set.
func ModeFor(rates Rates) Mode {
	if finite(rates.IGST) > 0 {
		return ModeInterState
	}
	if finite(rates.CGST) > 0 || finite(rates.SGST) > 0 {
		return ModeIntraState
	}
	return ModeExempt
}

// Round2 rounds a monetary amount for display.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func sanitize(v float64, field string, warnings *[]string) decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		*warnings = append(*warnings, fmt.Sprintf("%s: non-numeric value coerced to 0", field))
		return decimal.Zero
	}
	return decimal.NewFromFloat(v)
}
