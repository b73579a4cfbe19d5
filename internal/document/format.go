package document

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/odyssey-erp/docplan/internal/document/tax"
)

// DefaultLocale groups digits the Indian way (12,34,567.00).
const DefaultLocale = "en-IN"

type moneyFormatter struct {
	printer *message.Printer
	symbol  string
}

func newMoneyFormatter(locale, symbol string) moneyFormatter {
	tag, err := language.Parse(strings.TrimSpace(locale))
	if err != nil || tag == language.Und {
		tag = language.MustParse(DefaultLocale)
	}
	return moneyFormatter{printer: message.NewPrinter(tag), symbol: strings.TrimSpace(symbol)}
}

// Amount formats d with two decimals and locale grouping.
func (f moneyFormatter) Amount(d decimal.Decimal) string {
	return f.printer.Sprintf("%.2f", tax.Round2(d).InexactFloat64())
}

// Money is Amount prefixed with the currency symbol.
func (f moneyFormatter) Money(d decimal.Decimal) string {
	if f.symbol == "" {
		return f.Amount(d)
	}
	return f.symbol + " " + f.Amount(d)
}

func quantity(d decimal.Decimal) string {
	return d.Round(3).String()
}

func percent(d decimal.Decimal) string {
	return d.Round(2).String() + "%"
}

func amount(v float64) decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v)
}
