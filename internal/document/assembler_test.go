package document

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/docplan/internal/document/layout"
	"github.com/odyssey-erp/docplan/internal/document/party"
	"github.com/odyssey-erp/docplan/internal/document/tax"
)

// ============================================================================
// STUBS
// ============================================================================

type resolveCall struct {
	snapshot *party.Address
	role     party.Role
	partyID  int64
}

type stubResolver struct {
	address party.Address
	calls   []resolveCall
}

func (s *stubResolver) Resolve(_ context.Context, snapshot *party.Address, role party.Role, partyID int64) party.Address {
	s.calls = append(s.calls, resolveCall{snapshot: snapshot, role: role, partyID: partyID})
	return s.address
}

type failingSettings struct{ err error }

func (f failingSettings) Settings(context.Context) (Settings, error) {
	return Settings{}, f.err
}

func testSettings() StaticSettings {
	return StaticSettings{
		CompanyName:    "Odyssey Traders",
		AddressLines:   []string{"1 Market Street", "Pune 411001"},
		GSTIN:          "27AAAAA0000A1Z5",
		CurrencySymbol: "₹",
		Terms:          []string{"Goods once sold will not be taken back."},
	}
}

func scenarioSource() Source {
	return Source{
		Kind:    KindSaleInvoice,
		ID:      12,
		Date:    time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		Rates:   tax.Rates{CGST: 9, SGST: 9},
		PartyID: 7,
		Lines: []tax.LineItem{
			{Name: "Widget", Code: "8471", Quantity: 2, UnitPrice: 100},
			{Name: "Gadget", Code: "8473", Quantity: 1, UnitPrice: 50, Discount: 5},
		},
	}
}

func newTestAssembler(resolver PartyResolver, policy tax.NegativePolicy, settings SettingsProvider) *Assembler {
	return NewAssembler(AssemblerConfig{
		Resolver: resolver,
		Engine:   tax.NewEngine(policy),
		Planner:  layout.NewPlanner(layout.A4()),
		Settings: settings,
		Locale:   DefaultLocale,
	})
}

func pairValue(t *testing.T, plan *layout.Plan, label string) string {
	t.Helper()
	totals, ok := plan.Section(layout.TotalsBlock)
	require.True(t, ok)
	for _, p := range totals.Body.Pairs {
		if p.Label == label {
			return p.Value
		}
	}
	t.Fatalf("total line %q not found", label)
	return ""
}

func hasPair(plan *layout.Plan, kind layout.SectionKind, label string) bool {
	s, ok := plan.Section(kind)
	if !ok {
		return false
	}
	for _, p := range s.Body.Pairs {
		if p.Label == label {
			return true
		}
	}
	return false
}

// ============================================================================
// TESTS
// ============================================================================

func TestAssembleIntraStateScenario(t *testing.T) {
	resolver := &stubResolver{address: party.Address{Name: "Master Traders", City: "Pune"}}
	a := newTestAssembler(resolver, tax.PolicyPropagate, testSettings())

	src := scenarioSource()
	snapshot := &party.Address{Name: "Snapshot Name"}
	src.PartySnapshot = snapshot

	plan, err := a.Assemble(context.Background(), src)
	require.NoError(t, err)

	require.Len(t, resolver.calls, 1)
	assert.Equal(t, party.RoleCustomer, resolver.calls[0].role)
	assert.Equal(t, int64(7), resolver.calls[0].partyID)
	assert.Same(t, snapshot, resolver.calls[0].snapshot)

	assert.Equal(t, "SaleInvoice_0012.pdf", plan.FileName)
	assert.Equal(t, "0012", plan.Reference)
	assert.Equal(t, "TAX INVOICE", plan.Title)

	assert.Equal(t, "₹ 245.00", pairValue(t, plan, "Taxable Amount"))
	assert.Equal(t, "₹ 22.05", pairValue(t, plan, "CGST (9%)"))
	assert.Equal(t, "₹ 22.05", pairValue(t, plan, "SGST (9%)"))
	assert.Equal(t, "₹ 289.10", pairValue(t, plan, "Grand Total"))
	assert.Equal(t, "₹ 0.00", pairValue(t, plan, "Paid"))
	assert.False(t, hasPair(plan, layout.TotalsBlock, "Discount"))
	assert.False(t, hasPair(plan, layout.TotalsBlock, "IGST (0%)"))

	words, ok := plan.Section(layout.WordsBlock)
	require.True(t, ok)
	require.Len(t, words.Body.Lines, 2)
	assert.Equal(t, "Two Hundred and Eighty Nine Rupees Only", words.Body.Lines[1].Text)

	table, ok := plan.Section(layout.ItemTable)
	require.True(t, ok)
	rows := table.Body.Table.Rows
	require.Equal(t, layout.RowData, rows[2].Kind)
	assert.Equal(t, "Widget", rows[2].Cells[1].Text)
	assert.Equal(t, "200.00", rows[2].Cells[6].Text)
	assert.Equal(t, "18.00", rows[2].Cells[8].Text)
	assert.Equal(t, "236.00", rows[2].Cells[11].Text)
	assert.Equal(t, "4.05", rows[3].Cells[8].Text)
	last := rows[len(rows)-1]
	assert.Equal(t, layout.RowTotal, last.Kind)
	assert.Equal(t, "3", last.Cells[3].Text)
	assert.Equal(t, "289.10", last.Cells[11].Text)

	header, ok := plan.Section(layout.HeaderBlock)
	require.True(t, ok)
	assert.Equal(t, "Odyssey Traders", header.Body.Lines[1].Text)

	partyBlock, ok := plan.Section(layout.PartyBlock)
	require.True(t, ok)
	assert.Equal(t, "Bill To", partyBlock.Body.Lines[0].Text)
	assert.Equal(t, "Master Traders", partyBlock.Body.Lines[1].Text)
	assert.Equal(t, []layout.Pair{
		{Label: "Invoice No", Value: "0012"},
		{Label: "Date", Value: "01-04-2025"},
	}, partyBlock.Body.Pairs)

	assert.Empty(t, plan.Warnings)
	assert.Equal(t, "Snapshot Name", snapshot.Name)
}

func TestAssemblePurchaseOrderUsesSupplierAndSkipsPayments(t *testing.T) {
	resolver := &stubResolver{}
	a := newTestAssembler(resolver, tax.PolicyPropagate, testSettings())

	src := scenarioSource()
	src.Kind = KindPurchaseOrder
	src.ReferenceNumber = "PO/2025/7"
	src.VehicleNumber = "MH12AB1234"
	src.Rates = tax.Rates{IGST: 18}

	plan, err := a.Assemble(context.Background(), src)
	require.NoError(t, err)

	assert.Equal(t, party.RoleSupplier, resolver.calls[0].role)
	assert.Equal(t, "PurchaseOrder_PO-2025-7.pdf", plan.FileName)
	assert.Equal(t, "₹ 44.10", pairValue(t, plan, "IGST (18%)"))
	assert.False(t, hasPair(plan, layout.TotalsBlock, "Paid"))
	assert.False(t, hasPair(plan, layout.TotalsBlock, "Balance Due"))
	assert.True(t, hasPair(plan, layout.PartyBlock, "PO No"))
	assert.True(t, hasPair(plan, layout.PartyBlock, "Vehicle No"))
}

func TestAssemblePaymentLines(t *testing.T) {
	a := newTestAssembler(&stubResolver{}, tax.PolicyPropagate, testSettings())

	src := scenarioSource()
	src.Monetary = Monetary{GrandTotal: 289.10, TotalDiscount: 5, PaidAmount: 100}
	plan, err := a.Assemble(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, "₹ 5.00", pairValue(t, plan, "Discount"))
	assert.Equal(t, "₹ 100.00", pairValue(t, plan, "Paid"))
	assert.Equal(t, "₹ 189.10", pairValue(t, plan, "Balance Due"))
	assert.Empty(t, plan.Warnings)

	src.Monetary.Due = 150
	plan, err = a.Assemble(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, "₹ 150.00", pairValue(t, plan, "Balance Due"))

	src.Monetary = Monetary{GrandTotal: 289.10}
	plan, err = a.Assemble(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, "₹ 0.00", pairValue(t, plan, "Paid"))
	assert.Equal(t, "₹ 289.10", pairValue(t, plan, "Balance Due"))

	src.Monetary = Monetary{GrandTotal: 289.10, PaidAmount: 300}
	plan, err = a.Assemble(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, "₹ 0.00", pairValue(t, plan, "Balance Due"))
}

func TestAssembleWarnsOnStoredTotalMismatch(t *testing.T) {
	a := newTestAssembler(&stubResolver{}, tax.PolicyPropagate, testSettings())
	src := scenarioSource()
	src.Monetary.GrandTotal = 300

	plan, err := a.Assemble(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, plan.Warnings, 1)
	assert.Contains(t, plan.Warnings[0], "stored grand total 300.00 differs from computed 289.10")
	assert.Equal(t, "₹ 289.10", pairValue(t, plan, "Grand Total"))
}

func TestAssembleCoercesNonNumericInput(t *testing.T) {
	a := newTestAssembler(&stubResolver{}, tax.PolicyPropagate, testSettings())
	src := scenarioSource()
	src.Lines[1].UnitPrice = math.NaN()

	plan, err := a.Assemble(context.Background(), src)
	require.NoError(t, err)
	require.NotEmpty(t, plan.Warnings)
	assert.Contains(t, plan.Warnings[0], "line 2 unit price")
	assert.Equal(t, "₹ 195.00", pairValue(t, plan, "Taxable Amount"))
}

func TestAssembleWordsOutOfRangeLeavesWordsEmpty(t *testing.T) {
	a := newTestAssembler(&stubResolver{}, tax.PolicyPropagate, testSettings())
	src := scenarioSource()
	src.Rates = tax.Rates{}
	src.Lines = []tax.LineItem{{Name: "Plant", Quantity: 1, UnitPrice: 2e9}}

	plan, err := a.Assemble(context.Background(), src)
	require.NoError(t, err)
	words, ok := plan.Section(layout.WordsBlock)
	require.True(t, ok)
	assert.Len(t, words.Body.Lines, 1)
	found := false
	for _, w := range plan.Warnings {
		if strings.HasPrefix(w, "amount in words") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestAssembleRejectPolicyFails(t *testing.T) {
	a := newTestAssembler(&stubResolver{}, tax.PolicyReject, testSettings())
	src := scenarioSource()
	src.Lines[0].Discount = 500

	_, err := a.Assemble(context.Background(), src)
	require.Error(t, err)
	assert.True(t, errors.Is(err, tax.ErrNegativeTaxable))
}

func TestAssembleRejectsInvalidSource(t *testing.T) {
	a := newTestAssembler(&stubResolver{}, tax.PolicyPropagate, testSettings())
	src := scenarioSource()
	src.Kind = "CreditNote"

	_, err := a.Assemble(context.Background(), src)
	assert.ErrorIs(t, err, ErrInvalidSource)
	assert.ErrorIs(t, err, ErrUnknownKind)

	src = scenarioSource()
	src.ID = -1
	_, err = a.Assemble(context.Background(), src)
	assert.ErrorIs(t, err, ErrInvalidSource)
}

func TestAssembleSettingsFailure(t *testing.T) {
	boom := errors.New("db down")
	a := newTestAssembler(&stubResolver{}, tax.PolicyPropagate, failingSettings{err: boom})
	_, err := a.Assemble(context.Background(), scenarioSource())
	assert.ErrorIs(t, err, boom)
}

func TestAssembleIsDeterministic(t *testing.T) {
	a := newTestAssembler(&stubResolver{address: party.Address{Name: "Master"}}, tax.PolicyPropagate, testSettings())
	first, err := a.Assemble(context.Background(), scenarioSource())
	require.NoError(t, err)
	second, err := a.Assemble(context.Background(), scenarioSource())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestNewAssemblerDefaults(t *testing.T) {
	a := NewAssembler(AssemblerConfig{})
	plan, err := a.Assemble(context.Background(), scenarioSource())
	require.NoError(t, err)
	assert.Equal(t, "289.10", pairValue(t, plan, "Grand Total"))
}
