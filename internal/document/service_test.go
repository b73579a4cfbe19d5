package document

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/docplan/internal/document/party"
	"github.com/odyssey-erp/docplan/internal/document/tax"
)

type stubRepo struct {
	sources map[int64]Source
	err     error
	calls   int
}

func (s *stubRepo) Load(_ context.Context, kind Kind, id int64) (Source, error) {
	s.calls++
	if s.err != nil {
		return Source{}, s.err
	}
	src, ok := s.sources[id]
	if !ok || src.Kind != kind {
		return Source{}, ErrNotFound
	}
	return src, nil
}

type observed struct {
	kind     string
	pages    int
	warnings int
	elapsed  time.Duration
	err      error
}

type recordingObserver struct{ got []observed }

func (r *recordingObserver) ObservePlan(kind string, pages, warnings int, elapsed time.Duration, err error) {
	r.got = append(r.got, observed{kind: kind, pages: pages, warnings: warnings, elapsed: elapsed, err: err})
}

func TestServicePlan(t *testing.T) {
	repo := &stubRepo{sources: map[int64]Source{12: scenarioSource()}}
	observer := &recordingObserver{}
	svc := NewService(repo, newTestAssembler(&stubResolver{}, tax.PolicyPropagate, testSettings())).WithObserver(observer)
	tick := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	svc.WithNow(func() time.Time {
		tick = tick.Add(5 * time.Millisecond)
		return tick
	})

	plan, err := svc.Plan(context.Background(), KindSaleInvoice, 12)
	require.NoError(t, err)
	assert.Equal(t, "SaleInvoice_0012.pdf", plan.FileName)
	require.Len(t, observer.got, 1)
	assert.Equal(t, observed{kind: "SaleInvoice", pages: 1, elapsed: 5 * time.Millisecond}, observer.got[0])

	_, err = svc.Plan(context.Background(), KindSaleInvoice, 99)
	assert.ErrorIs(t, err, ErrNotFound)
	require.Len(t, observer.got, 2)
	assert.ErrorIs(t, observer.got[1].err, ErrNotFound)
}

func TestServicePlanUnknownKind(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo, NewAssembler(AssemblerConfig{}))
	_, err := svc.Plan(context.Background(), Kind("Receipt"), 1)
	assert.ErrorIs(t, err, ErrUnknownKind)
	assert.Equal(t, 0, repo.calls)
}

func TestServicePlanRepositoryError(t *testing.T) {
	boom := errors.New("connection reset")
	svc := NewService(&stubRepo{err: boom}, NewAssembler(AssemblerConfig{}))
	_, err := svc.Plan(context.Background(), KindPurchaseInvoice, 1)
	assert.ErrorIs(t, err, boom)
}

func TestParseKind(t *testing.T) {
	cases := map[string]Kind{
		"SaleInvoice":      KindSaleInvoice,
		"saleinvoice":      KindSaleInvoice,
		"sale-invoice":     KindSaleInvoice,
		" purchase-order ": KindPurchaseOrder,
		"PurchaseInvoice":  KindPurchaseInvoice,
		"sales-quotation":  KindSalesQuotation,
		"SERVICE-INVOICE":  KindServiceInvoice,
	}
	for input, want := range cases {
		got, err := ParseKind(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}
	_, err := ParseKind("credit-note")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestKindAttributes(t *testing.T) {
	assert.Len(t, Kinds(), 5)
	for _, k := range Kinds() {
		assert.True(t, k.Valid())
		assert.NotEmpty(t, k.Alias())
	}
	assert.Equal(t, party.RoleCustomer, KindSaleInvoice.Role())
	assert.Equal(t, party.RoleCustomer, KindSalesQuotation.Role())
	assert.Equal(t, party.RoleCustomer, KindServiceInvoice.Role())
	assert.Equal(t, party.RoleSupplier, KindPurchaseInvoice.Role())
	assert.Equal(t, party.RoleSupplier, KindPurchaseOrder.Role())
	assert.True(t, KindServiceInvoice.Invoice())
	assert.False(t, KindSalesQuotation.Invoice())
	assert.Equal(t, "QUOTATION", KindSalesQuotation.Title())
	assert.Equal(t, "RECEIPT", Kind("Receipt").Title())
}

func TestSourceReference(t *testing.T) {
	assert.Equal(t, "0012", Source{ID: 12}.Reference())
	assert.Equal(t, "12345", Source{ID: 12345}.Reference())
	assert.Equal(t, "INV-7", Source{ID: 12, ReferenceNumber: " INV-7 "}.Reference())
	assert.Equal(t, "SaleInvoice_A-B-C.pdf", Source{Kind: KindSaleInvoice, ReferenceNumber: `A/B\C`}.FileName())
}

func TestSettingsCompanyLines(t *testing.T) {
	s := Settings{
		CompanyName:  "Odyssey Traders",
		AddressLines: []string{"1 Market Street", " "},
		Phone:        "020 1234",
		Email:        "hello@odyssey.example",
		GSTIN:        "27AAAAA0000A1Z5",
		TaxID:        "AAAAA0000A",
	}
	assert.Equal(t, []string{
		"Odyssey Traders",
		"1 Market Street",
		"Phone: 020 1234 | Email: hello@odyssey.example",
		"GSTIN: 27AAAAA0000A1Z5 | PAN: AAAAA0000A",
	}, s.CompanyLines())
	assert.Empty(t, Settings{}.CompanyLines())
}

func TestMoneyFormatter(t *testing.T) {
	f := newMoneyFormatter("", "Rs.")
	assert.Equal(t, "Rs. 289.10", f.Money(amount(289.1)))
	assert.Equal(t, "0.00", newMoneyFormatter("en", "").Amount(amount(0)))
	assert.Equal(t, "1,234.50", newMoneyFormatter("en", "").Amount(amount(1234.5)))
	assert.Equal(t, "0.00", f.Amount(amount(0)))
	assert.Equal(t, "0.00", newMoneyFormatter("not a locale!", "").Amount(amount(0)))
}
