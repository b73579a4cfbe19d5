package documenthttp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/docplan/internal/document"
	"github.com/odyssey-erp/docplan/internal/document/layout"
	"github.com/odyssey-erp/docplan/internal/document/render"
	"github.com/odyssey-erp/docplan/internal/document/tax"
	"github.com/odyssey-erp/docplan/internal/platform/httpx"
)

// Planner builds the layout plan of a stored document.
type Planner interface {
	Plan(ctx context.Context, kind document.Kind, id int64) (*layout.Plan, error)
}

// Renderer paints plans as HTML and PDF.
type Renderer interface {
	HTML(plan *layout.Plan) (string, error)
	Render(ctx context.Context, plan *layout.Plan) (render.Result, error)
}

// Enqueuer submits asynchronous render jobs.
type Enqueuer interface {
	EnqueueDocumentRender(ctx context.Context, kind document.Kind, id int64) (document.RenderJob, error)
}

// JobStore reads render job state and artifacts.
type JobStore interface {
	Get(ctx context.Context, id string) (document.RenderJob, error)
	PDF(ctx context.Context, id string) (document.RenderJob, []byte, error)
}

// Options tunes the synchronous PDF route.
type Options struct {
	// PDFPerMinute caps synchronous renders per client IP. Zero means 20.
	PDFPerMinute int
	// RenderTimeout bounds one shared render. Zero means 60s.
	RenderTimeout time.Duration
}

// Handler wires HTTP endpoints for document plans, PDFs and render jobs.
type Handler struct {
	logger   *slog.Logger
	planner  Planner
	renderer Renderer
	jobs     Enqueuer
	store    JobStore
	validate *validator.Validate
	renders  singleflight.Group
	opts     Options
}

// NewHandler constructs a Handler value. jobs and store may be nil when the
// asynchronous routes are not needed.
func NewHandler(logger *slog.Logger, planner Planner, renderer Renderer, jobs Enqueuer, store JobStore, opts Options) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.PDFPerMinute <= 0 {
		opts.PDFPerMinute = 20
	}
	if opts.RenderTimeout <= 0 {
		opts.RenderTimeout = time.Minute
	}
	return &Handler{
		logger:   logger,
		planner:  planner,
		renderer: renderer,
		jobs:     jobs,
		store:    store,
		validate: validator.New(),
		opts:     opts,
	}
}

// MountRoutes registers HTTP routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/documents", func(r chi.Router) {
		r.Get("/jobs/{jobID}", h.jobStatus)
		r.Get("/jobs/{jobID}/pdf", h.jobPDF)
		r.Route("/{kind}/{id}", func(r chi.Router) {
			r.Get("/plan", h.plan)
			r.Get("/html", h.html)
			r.With(httprate.LimitByIP(h.opts.PDFPerMinute, time.Minute)).Get("/pdf", h.pdf)
			r.Post("/jobs", h.enqueue)
		})
	})
}

type documentParams struct {
	Kind string `validate:"required,max=32"`
	ID   int64  `validate:"gte=0"`
}

type jobParams struct {
	JobID string `validate:"required,uuid"`
}

func (h *Handler) documentParams(r *http.Request) (document.Kind, int64, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "id"))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("%w: document id %q is not a number", httpx.ErrValidation, raw)
	}
	params := documentParams{Kind: chi.URLParam(r, "kind"), ID: id}
	if err := h.validate.Struct(params); err != nil {
		return "", 0, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	kind, err := document.ParseKind(params.Kind)
	if err != nil {
		return "", 0, err
	}
	return kind, params.ID, nil
}

func (h *Handler) jobID(r *http.Request) (string, error) {
	params := jobParams{JobID: chi.URLParam(r, "jobID")}
	if err := h.validate.Struct(params); err != nil {
		return "", fmt.Errorf("%w: job id must be a uuid", httpx.ErrValidation)
	}
	return params.JobID, nil
}

// plan returns the layout plan as JSON.
func (h *Handler) plan(w http.ResponseWriter, r *http.Request) {
	kind, id, err := h.documentParams(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	plan, err := h.planner.Plan(r.Context(), kind, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, plan)
}

// html previews the painted document without converting it.
func (h *Handler) html(w http.ResponseWriter, r *http.Request) {
	kind, id, err := h.documentParams(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	plan, err := h.planner.Plan(r.Context(), kind, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	page, err := h.renderer.HTML(plan)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(page))
}

// pdf renders synchronously. Concurrent requests for the same document share
// one render.
func (h *Handler) pdf(w http.ResponseWriter, r *http.Request) {
	kind, id, err := h.documentParams(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	key := string(kind) + ":" + strconv.FormatInt(id, 10)
	ch := h.renders.DoChan(key, func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.opts.RenderTimeout)
		defer cancel()
		plan, err := h.planner.Plan(ctx, kind, id)
		if err != nil {
			return render.Result{}, err
		}
		return h.renderer.Render(ctx, plan)
	})
	select {
	case <-r.Context().Done():
		return
	case res := <-ch:
		if res.Err != nil {
			h.fail(w, r, res.Err)
			return
		}
		out := res.Val.(render.Result)
		writePDF(w, out.FileName, out.PDF)
	}
}

// enqueue submits an asynchronous render and returns the pending job.
func (h *Handler) enqueue(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Service Unavailable", "render queue not configured")
		return
	}
	kind, id, err := h.documentParams(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	job, err := h.jobs.EnqueueDocumentRender(r.Context(), kind, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Location", "/documents/jobs/"+job.ID)
	httpx.JSON(w, http.StatusAccepted, job)
}

// jobStatus reports the state of a render job.
func (h *Handler) jobStatus(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Service Unavailable", "artifact store not configured")
		return
	}
	id, err := h.jobID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	job, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, job)
}

// jobPDF streams the artifact of a finished job.
func (h *Handler) jobPDF(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Service Unavailable", "artifact store not configured")
		return
	}
	id, err := h.jobID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	job, pdf, err := h.store.PDF(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writePDF(w, job.FileName, pdf)
}

func writePDF(w http.ResponseWriter, fileName string, pdf []byte) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	_, _ = w.Write(pdf)
}

// fail translates document errors into httpx sentinels.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, document.ErrNotFound),
		errors.Is(err, document.ErrJobNotFound),
		errors.Is(err, document.ErrUnknownKind):
		err = fmt.Errorf("%w: %v", httpx.ErrNotFound, err)
	case errors.Is(err, document.ErrJobNotReady):
		err = fmt.Errorf("%w: %v", httpx.ErrConflict, err)
	case errors.Is(err, document.ErrInvalidSource),
		errors.Is(err, tax.ErrNegativeTaxable),
		errors.Is(err, render.ErrOverflow):
		err = fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	case errors.Is(err, render.ErrConvert):
		h.logger.Warn("document pdf conversion", slog.String("path", r.URL.Path), slog.Any("error", err))
		err = fmt.Errorf("%w: pdf backend failed", httpx.ErrUpstream)
	case errors.Is(err, httpx.ErrValidation):
	default:
		h.logger.Error("document request", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
