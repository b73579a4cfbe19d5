package document

import (
	"context"
	"time"

	"github.com/odyssey-erp/docplan/internal/document/layout"
)

// Observer records plan outcomes, typically as metrics.
type Observer interface {
	ObservePlan(kind string, pages, warnings int, elapsed time.Duration, err error)
}

// Service loads documents and assembles their plans.
type Service struct {
	repo      Repository
	assembler *Assembler
	observer  Observer
	now       func() time.Time
}

// NewService constructs a Service instance.
func NewService(repo Repository, assembler *Assembler) *Service {
	return &Service{repo: repo, assembler: assembler, now: time.Now}
}

// WithObserver attaches an Observer.
func (s *Service) WithObserver(o Observer) *Service {
	s.observer = o
	return s
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Plan loads the document and returns its layout plan.
func (s *Service) Plan(ctx context.Context, kind Kind, id int64) (plan *layout.Plan, err error) {
	start := s.now()
	defer func() {
		if s.observer == nil {
			return
		}
		pages, warnings := 0, 0
		if plan != nil {
			pages, warnings = plan.Pages, len(plan.Warnings)
		}
		s.observer.ObservePlan(string(kind), pages, warnings, s.now().Sub(start), err)
	}()

	if !kind.Valid() {
		return nil, ErrUnknownKind
	}
	src, err := s.repo.Load(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	return s.assembler.Assemble(ctx, src)
}
