package document

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/docplan/internal/document/layout"
	"github.com/odyssey-erp/docplan/internal/document/party"
	"github.com/odyssey-erp/docplan/internal/document/tax"
	"github.com/odyssey-erp/docplan/internal/document/words"
)

var grandTolerance = decimal.NewFromFloat(0.01)

// PartyResolver produces the printed counterparty address.
type PartyResolver interface {
	Resolve(ctx context.Context, snapshot *party.Address, role party.Role, partyID int64) party.Address
}

// AssemblerConfig wires the assembler collaborators.
type AssemblerConfig struct {
	Resolver PartyResolver
	Engine   *tax.Engine
	Planner  *layout.Planner
	Settings SettingsProvider
	Logger   *slog.Logger
	// Locale and CurrencySymbol apply when the settings profile leaves them empty.
	Locale         string
	CurrencySymbol string
}

// Assembler turns a Source into a layout plan.
type Assembler struct {
	resolver PartyResolver
	engine   *tax.Engine
	planner  *layout.Planner
	settings SettingsProvider
	logger   *slog.Logger
	locale   string
	symbol   string
}

// NewAssembler constructs an Assembler; unset collaborators get working defaults.
func NewAssembler(cfg AssemblerConfig) *Assembler {
	a := &Assembler{
		resolver: cfg.Resolver,
		engine:   cfg.Engine,
		planner:  cfg.Planner,
		settings: cfg.Settings,
		logger:   cfg.Logger,
		locale:   cfg.Locale,
		symbol:   cfg.CurrencySymbol,
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	if a.resolver == nil {
		a.resolver = party.NewResolver(nil, nil, a.logger)
	}
	if a.engine == nil {
		a.engine = tax.NewEngine(tax.PolicyPropagate)
	}
	if a.planner == nil {
		a.planner = layout.NewPlanner(layout.A4())
	}
	if a.settings == nil {
		a.settings = StaticSettings{}
	}
	if a.locale == "" {
		a.locale = DefaultLocale
	}
	return a
}

// Assemble resolves the party, computes tax, spells the total and lays out
// the document. Data quality problems become plan warnings; only invalid
// sources, settings failures and rejected negative lines are errors.
func (a *Assembler) Assemble(ctx context.Context, src Source) (*layout.Plan, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}
	settings, err := a.settings.Settings(ctx)
	if err != nil {
		return nil, fmt.Errorf("document: load settings: %w", err)
	}
	address := a.resolver.Resolve(ctx, src.PartySnapshot, src.Kind.Role(), src.PartyID)

	breakdown, err := a.engine.Compute(src.Lines, src.Rates)
	if err != nil {
		return nil, fmt.Errorf("document: compute tax: %w", err)
	}
	warnings := append([]string(nil), breakdown.Warnings...)

	locale, symbol := a.locale, a.symbol
	if settings.Locale != "" {
		locale = settings.Locale
	}
	if settings.CurrencySymbol != "" {
		symbol = settings.CurrencySymbol
	}
	money := newMoneyFormatter(locale, symbol)

	grand := tax.Round2(breakdown.Total)
	if stored := amount(src.Monetary.GrandTotal); !stored.IsZero() && stored.Sub(grand).Abs().GreaterThan(grandTolerance) {
		warnings = append(warnings, fmt.Sprintf("stored grand total %s differs from computed %s", stored.StringFixed(2), grand.StringFixed(2)))
	}

	amountWords, err := words.ToWords(breakdown.Total.Round(0).IntPart())
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("amount in words: %v", err))
		amountWords = ""
	}

	content := layout.Content{
		Kind:         string(src.Kind),
		Reference:    src.Reference(),
		FileName:     src.FileName(),
		Title:        src.Kind.Title(),
		Company:      settings.CompanyLines(),
		PartyHeading: src.Kind.PartyHeading(),
		Party:        address,
		Details:      details(src),
		Mode:         breakdown.Mode,
		Rates: layout.RateLabels{
			IGST: percent(breakdown.IGSTRate),
			CGST: percent(breakdown.CGSTRate),
			SGST: percent(breakdown.SGSTRate),
		},
		Items:      items(src.Lines, breakdown, money),
		Totals:     totalsRow(breakdown, money),
		TotalLines: totalLines(src, breakdown, money),
		Words:      amountWords,
		Terms:      settings.Terms,
		Notes:      strings.TrimSpace(src.Notes),
		Signatory:  signatory(settings),
		Warnings:   warnings,
	}
	plan := a.planner.Plan(content)
	if len(plan.Warnings) > 0 {
		a.logger.Warn("document plan has warnings",
			slog.String("kind", string(src.Kind)),
			slog.Int64("id", src.ID),
			slog.Any("warnings", plan.Warnings),
		)
	}
	return plan, nil
}

func details(src Source) []layout.Pair {
	pairs := []layout.Pair{{Label: src.Kind.ReferenceLabel(), Value: src.Reference()}}
	if !src.Date.IsZero() {
		pairs = append(pairs, layout.Pair{Label: "Date", Value: src.Date.Format("02-01-2006")})
	}
	if v := strings.TrimSpace(src.VehicleNumber); v != "" {
		pairs = append(pairs, layout.Pair{Label: "Vehicle No", Value: v})
	}
	return pairs
}

func items(lines []tax.LineItem, b tax.Breakdown, money moneyFormatter) []layout.Item {
	out := make([]layout.Item, 0, len(lines))
	for i, item := range lines {
		line := b.Lines[i]
		out = append(out, layout.Item{
			Name:     strings.TrimSpace(item.Name),
			Code:     strings.TrimSpace(item.Code),
			Quantity: quantity(amount(item.Quantity)),
			Rate:     money.Amount(amount(item.UnitPrice)),
			Discount: money.Amount(amount(item.Discount)),
			Taxable:  money.Amount(line.Taxable),
			IGST:     money.Amount(line.IGST),
			CGST:     money.Amount(line.CGST),
			SGST:     money.Amount(line.SGST),
			Total:    money.Amount(line.Total),
		})
	}
	return out
}

func totalsRow(b tax.Breakdown, money moneyFormatter) layout.Item {
	return layout.Item{
		Quantity: quantity(b.Quantity),
		Taxable:  money.Amount(b.Taxable),
		IGST:     money.Amount(b.IGST),
		CGST:     money.Amount(b.CGST),
		SGST:     money.Amount(b.SGST),
		Total:    money.Amount(b.Total),
	}
}

func totalLines(src Source, b tax.Breakdown, money moneyFormatter) []layout.Pair {
	grand := tax.Round2(b.Total)
	pairs := []layout.Pair{{Label: "Taxable Amount", Value: money.Money(b.Taxable)}}
	switch b.Mode {
	case tax.ModeInterState:
		pairs = append(pairs, layout.Pair{Label: "IGST (" + percent(b.IGSTRate) + ")", Value: money.Money(b.IGST)})
	case tax.ModeIntraState:
		pairs = append(pairs,
			layout.Pair{Label: "CGST (" + percent(b.CGSTRate) + ")", Value: money.Money(b.CGST)},
			layout.Pair{Label: "SGST (" + percent(b.SGSTRate) + ")", Value: money.Money(b.SGST)},
		)
	}
	if discount := amount(src.Monetary.TotalDiscount); discount.IsPositive() {
		pairs = append(pairs, layout.Pair{Label: "Discount", Value: money.Money(discount)})
	}
	pairs = append(pairs, layout.Pair{Label: "Grand Total", Value: money.Money(grand), Bold: true})
	if src.Kind.Invoice() {
		paid := amount(src.Monetary.PaidAmount)
		due := amount(src.Monetary.Due)
		// A zero stored due means it was never stored unless the invoice is settled.
		if due.IsZero() && grand.GreaterThan(paid) {
			due = grand.Sub(paid)
		}
		pairs = append(pairs,
			layout.Pair{Label: "Paid", Value: money.Money(paid)},
			layout.Pair{Label: "Balance Due", Value: money.Money(due), Bold: true},
		)
	}
	return pairs
}

func signatory(s Settings) string {
	if name := strings.TrimSpace(s.CompanyName); name != "" {
		return "For " + name
	}
	return ""
}
