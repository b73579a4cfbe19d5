package document

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/odyssey-erp/docplan/internal/document/party"
	"github.com/odyssey-erp/docplan/internal/document/tax"
	"github.com/odyssey-erp/docplan/internal/platform/db"
)

// Store is the database handle the repository needs. *pgxpool.Pool satisfies it.
type Store interface {
	db.Querier
	db.Beginner
}

type kindTables struct {
	header   string
	lines    string
	foreign  string
	partyCol string
}

var tablesByKind = map[Kind]kindTables{
	KindSaleInvoice:     {header: "ar_invoices", lines: "ar_invoice_lines", foreign: "invoice_id", partyCol: "customer_id"},
	KindPurchaseInvoice: {header: "ap_invoices", lines: "ap_invoice_lines", foreign: "invoice_id", partyCol: "supplier_id"},
	KindPurchaseOrder:   {header: "pos", lines: "po_lines", foreign: "po_id", partyCol: "supplier_id"},
	KindSalesQuotation:  {header: "quotations", lines: "quotation_lines", foreign: "quotation_id", partyCol: "customer_id"},
	KindServiceInvoice:  {header: "service_invoices", lines: "service_invoice_lines", foreign: "invoice_id", partyCol: "customer_id"},
}

var partyTables = map[party.Role]string{
	party.RoleCustomer: "customers",
	party.RoleSupplier: "suppliers",
}

// PGRepository reads document sources, master parties, geography and the
// company profile from PostgreSQL.
type PGRepository struct {
	store     Store
	companyID int64
}

// NewPGRepository constructs a repository bound to one company profile.
func NewPGRepository(store Store, companyID int64) *PGRepository {
	return &PGRepository{store: store, companyID: companyID}
}

// Load fetches the header and its lines from one snapshot.
func (r *PGRepository) Load(ctx context.Context, kind Kind, id int64) (Source, error) {
	if r == nil || r.store == nil {
		return Source{}, fmt.Errorf("document: repository not initialised")
	}
	t, ok := tablesByKind[kind]
	if !ok {
		return Source{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	src := Source{Kind: kind, ID: id}
	err := db.ReadOnly(ctx, r.store, func(q db.Querier) error {
		if err := loadHeader(ctx, q, t, &src); err != nil {
			return err
		}
		lines, err := loadLines(ctx, q, t, id)
		if err != nil {
			return err
		}
		src.Lines = lines
		return nil
	})
	if err != nil {
		return Source{}, err
	}
	return src, nil
}

func loadHeader(ctx context.Context, q db.Querier, t kindTables, src *Source) error {
	query := fmt.Sprintf(`SELECT COALESCE(number,''), doc_date, COALESCE(vehicle_number,''),
    COALESCE(igst_rate,0)::float8, COALESCE(cgst_rate,0)::float8, COALESCE(sgst_rate,0)::float8,
    COALESCE(grand_total,0)::float8, COALESCE(total_discount,0)::float8, COALESCE(net_total,0)::float8,
    COALESCE(paid_amount,0)::float8, COALESCE(due_amount,0)::float8,
    party_snapshot, COALESCE(%s,0), COALESCE(notes,'')
FROM %s WHERE id = $1`, t.partyCol, t.header)

	var (
		date     pgtype.Date
		snapshot []byte
	)
	err := q.QueryRow(ctx, query, src.ID).Scan(
		&src.ReferenceNumber, &date, &src.VehicleNumber,
		&src.Rates.IGST, &src.Rates.CGST, &src.Rates.SGST,
		&src.Monetary.GrandTotal, &src.Monetary.TotalDiscount, &src.Monetary.NetTotal,
		&src.Monetary.PaidAmount, &src.Monetary.Due,
		&snapshot, &src.PartyID, &src.Notes,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: %s %d", ErrNotFound, src.Kind, src.ID)
		}
		return fmt.Errorf("document: load %s header: %w", src.Kind, err)
	}
	if date.Valid {
		src.Date = date.Time
	}
	if len(snapshot) > 0 && string(snapshot) != "null" {
		var addr party.Address
		if err := json.Unmarshal(snapshot, &addr); err != nil {
			return fmt.Errorf("document: decode party snapshot: %w", err)
		}
		src.PartySnapshot = &addr
	}
	return nil
}

func loadLines(ctx context.Context, q db.Querier, t kindTables, id int64) ([]tax.LineItem, error) {
	query := fmt.Sprintf(`SELECT COALESCE(description,''), COALESCE(hsn_code,''), COALESCE(unit,''),
    COALESCE(quantity,0)::float8, COALESCE(unit_price,0)::float8, COALESCE(discount,0)::float8
FROM %s WHERE %s = $1
ORDER BY line_no, id`, t.lines, t.foreign)
	rows, err := q.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("document: load lines: %w", err)
	}
	defer rows.Close()
	var lines []tax.LineItem
	for rows.Next() {
		var item tax.LineItem
		if err := rows.Scan(&item.Name, &item.Code, &item.Unit, &item.Quantity, &item.UnitPrice, &item.Discount); err != nil {
			return nil, fmt.Errorf("document: scan line: %w", err)
		}
		lines = append(lines, item)
	}
	return lines, rows.Err()
}

// Party implements party.Directory.
func (r *PGRepository) Party(ctx context.Context, role party.Role, id int64) (party.Record, error) {
	table, ok := partyTables[role]
	if !ok {
		return party.Record{}, fmt.Errorf("document: unknown party role %q", role)
	}
	query := fmt.Sprintf(`SELECT COALESCE(name,''), COALESCE(address_line1,''), COALESCE(address_line2,''),
    COALESCE(city,''), COALESCE(state,''), COALESCE(postal_code,''),
    COALESCE(email,''), COALESCE(phone,''), COALESCE(tax_id,''), COALESCE(gstin,''),
    COALESCE(city_id,0), COALESCE(state_id,0)
FROM %s WHERE id = $1`, table)
	var rec party.Record
	err := r.store.QueryRow(ctx, query, id).Scan(
		&rec.Name, &rec.AddressLine1, &rec.AddressLine2,
		&rec.City, &rec.State, &rec.Zip,
		&rec.Email, &rec.Phone, &rec.TaxID, &rec.GSTIN,
		&rec.CityID, &rec.StateID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return party.Record{}, fmt.Errorf("%w: %s %d", ErrNotFound, role, id)
		}
		return party.Record{}, err
	}
	return rec, nil
}

// Cities implements party.Geography.
func (r *PGRepository) Cities(ctx context.Context) ([]party.Place, error) {
	return r.places(ctx, "cities")
}

// States implements party.Geography.
func (r *PGRepository) States(ctx context.Context) ([]party.Place, error) {
	return r.places(ctx, "states")
}

func (r *PGRepository) places(ctx context.Context, table string) ([]party.Place, error) {
	rows, err := r.store.Query(ctx, fmt.Sprintf(`SELECT id, COALESCE(name,'') FROM %s ORDER BY id`, table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var places []party.Place
	for rows.Next() {
		var p party.Place
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, err
		}
		places = append(places, p)
	}
	return places, rows.Err()
}

// Settings implements SettingsProvider from the company_profiles row. A
// missing row yields an empty profile.
func (r *PGRepository) Settings(ctx context.Context) (Settings, error) {
	const query = `SELECT COALESCE(name,''), COALESCE(address_lines,'{}'), COALESCE(email,''), COALESCE(phone,''),
    COALESCE(tax_id,''), COALESCE(gstin,''), COALESCE(logo_ref,''), COALESCE(currency_symbol,''),
    COALESCE(locale,''), COALESCE(terms,'{}')
FROM company_profiles WHERE company_id = $1`
	var s Settings
	err := r.store.QueryRow(ctx, query, r.companyID).Scan(
		&s.CompanyName, &s.AddressLines, &s.Email, &s.Phone,
		&s.TaxID, &s.GSTIN, &s.LogoRef, &s.CurrencySymbol,
		&s.Locale, &s.Terms,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Settings{}, nil
		}
		return Settings{}, fmt.Errorf("document: load company profile: %w", err)
	}
	return s, nil
}
