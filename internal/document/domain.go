// Package document assembles printable document plans from stored sale,
// purchase, quotation and service records.
package document

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/docplan/internal/document/party"
	"github.com/odyssey-erp/docplan/internal/document/tax"
)

var (
	// ErrNotFound is returned when the requested document does not exist.
	ErrNotFound = errors.New("document: not found")
	// ErrUnknownKind is returned for an unsupported document kind.
	ErrUnknownKind = errors.New("document: unknown kind")
	// ErrInvalidSource is returned when a Source fails structural checks.
	ErrInvalidSource = errors.New("document: invalid source")
)

// Monetary holds the totals stored on the document header.
type Monetary struct {
	GrandTotal    float64 `json:"grand_total"`
	TotalDiscount float64 `json:"total_discount"`
	NetTotal      float64 `json:"net_total"`
	PaidAmount    float64 `json:"paid_amount"`
	Due           float64 `json:"due"`
}

// Source is a stored document header with its ordered line items.
type Source struct {
	Kind            Kind           `json:"kind" validate:"required"`
	ID              int64          `json:"id" validate:"gte=0"`
	ReferenceNumber string         `json:"reference_number,omitempty" validate:"max=64"`
	Date            time.Time      `json:"date"`
	VehicleNumber   string         `json:"vehicle_number,omitempty" validate:"max=32"`
	Rates           tax.Rates      `json:"rates"`
	Monetary        Monetary       `json:"monetary"`
	PartySnapshot   *party.Address `json:"party_snapshot,omitempty"`
	PartyID         int64          `json:"party_id" validate:"gte=0"`
	Lines           []tax.LineItem `json:"lines"`
	Notes           string         `json:"notes,omitempty"`
}

// Reference returns the printed reference, synthesising a zero padded id
// when none was stored.
func (s Source) Reference() string {
	if ref := strings.TrimSpace(s.ReferenceNumber); ref != "" {
		return ref
	}
	return fmt.Sprintf("%04d", s.ID)
}

// FileName is the download name of the rendered document.
func (s Source) FileName() string {
	ref := strings.NewReplacer("/", "-", "\\", "-").Replace(s.Reference())
	return fmt.Sprintf("%s_%s.pdf", s.Kind, ref)
}

var validate = validator.New()

// Validate performs structural checks on the source.
func (s Source) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSource, err)
	}
	if !s.Kind.Valid() {
		return fmt.Errorf("%w: %w", ErrInvalidSource, ErrUnknownKind)
	}
	return nil
}

// Settings is the company profile printed on every document.
type Settings struct {
	CompanyName    string   `json:"company_name"`
	AddressLines   []string `json:"address_lines,omitempty"`
	Email          string   `json:"email,omitempty"`
	Phone          string   `json:"phone,omitempty"`
	TaxID          string   `json:"tax_id,omitempty"`
	GSTIN          string   `json:"gstin,omitempty"`
	LogoRef        string   `json:"logo_ref,omitempty"`
	CurrencySymbol string   `json:"currency_symbol,omitempty"`
	Locale         string   `json:"locale,omitempty"`
	Terms          []string `json:"terms,omitempty"`
}

// CompanyLines returns the header lines: name, address, then contact lines.
func (s Settings) CompanyLines() []string {
	var lines []string
	if name := strings.TrimSpace(s.CompanyName); name != "" {
		lines = append(lines, name)
	}
	for _, l := range s.AddressLines {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	var contact []string
	if s.Phone != "" {
		contact = append(contact, "Phone: "+s.Phone)
	}
	if s.Email != "" {
		contact = append(contact, "Email: "+s.Email)
	}
	if len(contact) > 0 {
		lines = append(lines, strings.Join(contact, " | "))
	}
	var ids []string
	if s.GSTIN != "" {
		ids = append(ids, "GSTIN: "+s.GSTIN)
	}
	if s.TaxID != "" {
		ids = append(ids, "PAN: "+s.TaxID)
	}
	if len(ids) > 0 {
		lines = append(lines, strings.Join(ids, " | "))
	}
	return lines
}

// SettingsProvider supplies the company profile.
type SettingsProvider interface {
	Settings(ctx context.Context) (Settings, error)
}

// StaticSettings is a SettingsProvider returning a fixed profile.
type StaticSettings Settings

// Settings implements SettingsProvider.
func (s StaticSettings) Settings(context.Context) (Settings, error) {
	return Settings(s), nil
}

// Repository loads document sources.
type Repository interface {
	Load(ctx context.Context, kind Kind, id int64) (Source, error)
}
