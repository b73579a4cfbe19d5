package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/docplan/internal/document"
	"github.com/odyssey-erp/docplan/internal/document/layout"
	"github.com/odyssey-erp/docplan/internal/document/render"
	"github.com/odyssey-erp/docplan/internal/document/tax"
	jobmetrics "github.com/odyssey-erp/docplan/internal/jobs"
)

// Planner produces the layout plan for a stored document.
type Planner interface {
	Plan(ctx context.Context, kind document.Kind, id int64) (*layout.Plan, error)
}

// PDFRenderer converts a plan to PDF bytes.
type PDFRenderer interface {
	Render(ctx context.Context, plan *layout.Plan) (render.Result, error)
}

// ArtifactWriter records the outcome of a render job.
type ArtifactWriter interface {
	MarkReady(ctx context.Context, id, fileName string, pages int, warnings []string, pdf []byte) error
	MarkFailed(ctx context.Context, id, message string) error
}

// DocumentRenderHandler processes TaskDocumentRender tasks.
type DocumentRenderHandler struct {
	planner  Planner
	renderer PDFRenderer
	store    ArtifactWriter
	metrics  *jobmetrics.Metrics
	logger   *slog.Logger
}

// NewDocumentRenderHandler wires the render task dependencies.
func NewDocumentRenderHandler(planner Planner, renderer PDFRenderer, store ArtifactWriter, metrics *jobmetrics.Metrics, logger *slog.Logger) *DocumentRenderHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentRenderHandler{planner: planner, renderer: renderer, store: store, metrics: metrics, logger: logger}
}

// TaskHandler exposes the handler for worker registration.
func (h *DocumentRenderHandler) TaskHandler() TaskHandler {
	return TaskHandler{Type: TaskDocumentRender, Handler: h.Handle}
}

// Handle plans, renders and stores one document.
func (h *DocumentRenderHandler) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := h.metrics.Track(TaskDocumentRender)

	var payload DocumentRenderPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		h.logger.Warn("document render: decode payload", slog.Any("error", err))
		return tracker.End(fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry))
	}
	if err := payload.validate(); err != nil {
		h.logger.Warn("document render: invalid payload", slog.Any("error", err))
		return tracker.End(fmt.Errorf("%v: %w", err, asynq.SkipRetry))
	}
	logger := h.logger.With(
		slog.String("job_id", payload.JobID),
		slog.String("kind", payload.Kind),
		slog.Int64("document_id", payload.DocumentID),
	)

	kind, err := document.ParseKind(payload.Kind)
	if err != nil {
		return tracker.End(h.fail(ctx, logger, payload.JobID, err, true))
	}

	plan, err := h.planner.Plan(ctx, kind, payload.DocumentID)
	if err != nil {
		return tracker.End(h.fail(ctx, logger, payload.JobID, err, permanent(err) || lastAttempt(ctx)))
	}
	res, err := h.renderer.Render(ctx, plan)
	if err != nil {
		return tracker.End(h.fail(ctx, logger, payload.JobID, err, permanent(err) || lastAttempt(ctx)))
	}
	if err := h.store.MarkReady(ctx, payload.JobID, res.FileName, res.Pages, plan.Warnings, res.PDF); err != nil {
		if errors.Is(err, document.ErrJobNotFound) {
			logger.Warn("document render: job expired before completion")
			return tracker.End(fmt.Errorf("%v: %w", err, asynq.SkipRetry))
		}
		return tracker.End(err)
	}
	h.metrics.AddPages(string(kind), res.Pages)
	logger.Info("document rendered", slog.Int("pages", res.Pages), slog.Int64("size", res.Length), slog.Int("warnings", len(plan.Warnings)))
	return tracker.End(nil)
}

// fail marks the job failed when no further attempt will run. Otherwise the
// error is returned as is so asynq retries the task.
func (h *DocumentRenderHandler) fail(ctx context.Context, logger *slog.Logger, jobID string, cause error, final bool) error {
	if !final {
		logger.Warn("document render: attempt failed", slog.Any("error", cause))
		return cause
	}
	logger.Error("document render failed", slog.Any("error", cause))
	if err := h.store.MarkFailed(ctx, jobID, cause.Error()); err != nil {
		logger.Warn("document render: mark failed", slog.Any("error", err))
	}
	return fmt.Errorf("%w: %w", cause, asynq.SkipRetry)
}

func permanent(err error) bool {
	return errors.Is(err, document.ErrNotFound) ||
		errors.Is(err, document.ErrUnknownKind) ||
		errors.Is(err, document.ErrInvalidSource) ||
		errors.Is(err, tax.ErrNegativeTaxable) ||
		errors.Is(err, render.ErrOverflow)
}

func lastAttempt(ctx context.Context) bool {
	retried, ok := asynq.GetRetryCount(ctx)
	if !ok {
		return true
	}
	max, ok := asynq.GetMaxRetry(ctx)
	if !ok {
		return true
	}
	return retried >= max
}
