package document

import (
	"fmt"
	"strings"

	"github.com/odyssey-erp/docplan/internal/document/party"
)

// Kind identifies the business document being composed.
type Kind string

const (
	KindSaleInvoice     Kind = "SaleInvoice"
	KindPurchaseInvoice Kind = "PurchaseInvoice"
	KindPurchaseOrder   Kind = "PurchaseOrder"
	KindSalesQuotation  Kind = "SalesQuotation"
	KindServiceInvoice  Kind = "ServiceInvoice"
)

// Kinds lists every supported kind in display order.
func Kinds() []Kind {
	return []Kind{KindSaleInvoice, KindPurchaseInvoice, KindPurchaseOrder, KindSalesQuotation, KindServiceInvoice}
}

type kindInfo struct {
	alias        string
	title        string
	partyHeading string
	refLabel     string
	role         party.Role
	invoice      bool
}

var kindTable = map[Kind]kindInfo{
	KindSaleInvoice:     {alias: "sale-invoice", title: "TAX INVOICE", partyHeading: "Bill To", refLabel: "Invoice No", role: party.RoleCustomer, invoice: true},
	KindPurchaseInvoice: {alias: "purchase-invoice", title: "PURCHASE INVOICE", partyHeading: "Supplier", refLabel: "Bill No", role: party.RoleSupplier, invoice: true},
	KindPurchaseOrder:   {alias: "purchase-order", title: "PURCHASE ORDER", partyHeading: "Supplier", refLabel: "PO No", role: party.RoleSupplier},
	KindSalesQuotation:  {alias: "sales-quotation", title: "QUOTATION", partyHeading: "Quotation For", refLabel: "Quotation No", role: party.RoleCustomer},
	KindServiceInvoice:  {alias: "service-invoice", title: "SERVICE INVOICE", partyHeading: "Bill To", refLabel: "Invoice No", role: party.RoleCustomer, invoice: true},
}

// ParseKind accepts the PascalCase name or its kebab-case alias, case-insensitively.
func ParseKind(value string) (Kind, error) {
	v := strings.TrimSpace(value)
	for kind, info := range kindTable {
		if strings.EqualFold(v, string(kind)) || strings.EqualFold(v, info.alias) {
			return kind, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, value)
}

// Valid reports whether k is a supported kind.
func (k Kind) Valid() bool {
	_, ok := kindTable[k]
	return ok
}

// Alias returns the kebab-case URL form of the kind.
func (k Kind) Alias() string {
	return kindTable[k].alias
}

// Title is the heading printed at the top of the document.
func (k Kind) Title() string {
	if info, ok := kindTable[k]; ok {
		return info.title
	}
	return strings.ToUpper(string(k))
}

// PartyHeading labels the counterparty column.
func (k Kind) PartyHeading() string {
	if info, ok := kindTable[k]; ok {
		return info.partyHeading
	}
	return "Party"
}

// ReferenceLabel labels the document number in the details column.
func (k Kind) ReferenceLabel() string {
	if info, ok := kindTable[k]; ok {
		return info.refLabel
	}
	return "Reference"
}

// Role is the master table the counterparty is read from.
func (k Kind) Role() party.Role {
	if info, ok := kindTable[k]; ok {
		return info.role
	}
	return party.RoleCustomer
}

// Invoice reports whether payment lines (paid, balance due) are printed.
func (k Kind) Invoice() bool {
	return kindTable[k].invoice
}
