package app

import (
	"fmt"
	"log/slog"

	"github.com/odyssey-erp/docplan/internal/document"
	"github.com/odyssey-erp/docplan/internal/document/layout"
	"github.com/odyssey-erp/docplan/internal/document/party"
	"github.com/odyssey-erp/docplan/internal/document/render"
	"github.com/odyssey-erp/docplan/internal/document/tax"
	"github.com/odyssey-erp/docplan/report"
)

// Documents bundles the document pipeline shared by the server, the worker
// and docctl.
type Documents struct {
	Repository *document.PGRepository
	Service    *document.Service
	Renderer   *render.Renderer
	PDFClient  *report.Client
}

// NewDocuments wires repository, resolver, assembler and renderer from cfg.
// observer may be nil.
func NewDocuments(cfg *Config, store document.Store, observer document.Observer, logger *slog.Logger) (*Documents, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: documents need a config")
	}
	if logger == nil {
		logger = slog.Default()
	}
	repo := document.NewPGRepository(store, cfg.CompanyID)
	assembler := document.NewAssembler(document.AssemblerConfig{
		Resolver:       party.NewResolver(repo, repo, logger),
		Engine:         tax.NewEngine(cfg.NegativePolicy()),
		Planner:        layout.NewPlanner(cfg.Geometry()),
		Settings:       repo,
		Logger:         logger,
		Locale:         cfg.DocLocale,
		CurrencySymbol: cfg.DocCurrencySymbol,
	})
	service := document.NewService(repo, assembler)
	if observer != nil {
		service.WithObserver(observer)
	}

	client := report.NewClient(cfg.GotenbergURL, cfg.GotenbergTimeout)
	renderer, err := render.NewRenderer(client)
	if err != nil {
		return nil, err
	}
	return &Documents{Repository: repo, Service: service, Renderer: renderer, PDFClient: client}, nil
}
