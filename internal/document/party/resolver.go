// Package party resolves the customer or supplier block printed on a document.
package party

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Role selects which master table a party id refers to.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleSupplier Role = "supplier"
)

// Address is the normalised party block.
type Address struct {
	Name         string `json:"name"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2"`
	City         string `json:"city"`
	State        string `json:"state"`
	Zip          string `json:"zip"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	TaxID        string `json:"tax_id"`
	GSTIN        string `json:"gstin"`
}

// Complete reports whether every field carries a value.
func (a Address) Complete() bool {
	for _, v := range a.fields() {
		if blank(*v) {
			return false
		}
	}
	return true
}

// Locality joins city, state and zip the way it is printed.
func (a Address) Locality() string {
	place := joinNonBlank(", ", a.City, a.State)
	if blank(a.Zip) {
		return place
	}
	if place == "" {
		return strings.TrimSpace(a.Zip)
	}
	return place + " - " + strings.TrimSpace(a.Zip)
}

func (a *Address) fields() []*string {
	return []*string{
		&a.Name, &a.AddressLine1, &a.AddressLine2, &a.City, &a.State,
		&a.Zip, &a.Email, &a.Phone, &a.TaxID, &a.GSTIN,
	}
}

// Record is a master customer or supplier row. City and State may be empty
// when only the geography foreign keys are stored.
type Record struct {
	Address
	CityID  int64 `json:"city_id,omitempty"`
	StateID int64 `json:"state_id,omitempty"`
}

// Place is a geography table entry.
type Place struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Directory loads master party records.
type Directory interface {
	Party(ctx context.Context, role Role, id int64) (Record, error)
}

// Geography loads the city and state tables.
type Geography interface {
	Cities(ctx context.Context) ([]Place, error)
	States(ctx context.Context) ([]Place, error)
}

// Resolver merges a document snapshot with master data.
type Resolver struct {
	directory Directory
	geography Geography
	logger    *slog.Logger
}

// NewResolver constructs a Resolver. Either collaborator may be nil, in which
// case the corresponding fields are simply left to the snapshot.
func NewResolver(directory Directory, geography Geography, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{directory: directory, geography: geography, logger: logger}
}

// Resolve builds the party address using snapshot, then master record, then
// geography lookups. Lookup failures leave fields empty and are only logged.
func (r *Resolver) Resolve(ctx context.Context, snapshot *Address, role Role, partyID int64) Address {
	var out Address
	if snapshot != nil {
		out = *snapshot
	}
	trimAll(&out)
	if out.Complete() || partyID <= 0 || r == nil || r.directory == nil {
		return out
	}

	// Geography is fetched alongside the master record, and only for fields
	// the snapshot leaves blank. A failed master lookup cancels it.
	var (
		record            Record
		cities, states    []Place
		cityErr, stateErr error
	)
	needCity := out.City == "" && r.geography != nil
	needState := out.State == "" && r.geography != nil
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rec, err := r.directory.Party(gctx, role, partyID)
		if err != nil {
			return err
		}
		record = rec
		return nil
	})
	if needCity {
		g.Go(func() error {
			cities, cityErr = r.geography.Cities(gctx)
			return nil
		})
	}
	if needState {
		g.Go(func() error {
			states, stateErr = r.geography.States(gctx)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		r.logger.Warn("party lookup failed", slog.String("role", string(role)), slog.Int64("party_id", partyID), slog.Any("error", err))
		return out
	}

	master := record.Address
	trimAll(&master)
	if needCity && master.City == "" && record.CityID > 0 {
		if cityErr != nil {
			r.logger.Warn("city lookup failed", slog.Int64("city_id", record.CityID), slog.Any("error", cityErr))
		}
		master.City = lookup(cities, record.CityID)
	}
	if needState && master.State == "" && record.StateID > 0 {
		if stateErr != nil {
			r.logger.Warn("state lookup failed", slog.Int64("state_id", record.StateID), slog.Any("error", stateErr))
		}
		master.State = lookup(states, record.StateID)
	}

	dst := out.fields()
	src := master.fields()
	for i := range dst {
		if *dst[i] == "" {
			*dst[i] = *src[i]
		}
	}
	return out
}

func lookup(places []Place, id int64) string {
	for _, p := range places {
		if p.ID == id {
			return strings.TrimSpace(p.Name)
		}
	}
	return ""
}

func trimAll(a *Address) {
	for _, f := range a.fields() {
		*f = strings.TrimSpace(*f)
	}
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func joinNonBlank(sep string, values ...string) string {
	kept := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			kept = append(kept, v)
		}
	}
	return strings.Join(kept, sep)
}
