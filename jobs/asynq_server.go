package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/docplan/internal/document"
	"github.com/odyssey-erp/docplan/internal/platform/httpx"
)

// Worker wraps the Asynq server.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	logger *slog.Logger
}

// TaskHandler allows injecting custom Asynq handlers during worker setup.
type TaskHandler struct {
	Type    string
	Handler asynq.HandlerFunc
}

// WorkerConfig collects dependencies required to bootstrap the worker.
type WorkerConfig struct {
	RedisOpts   asynq.RedisClientOpt
	Logger      *slog.Logger
	Concurrency int
	Handlers    []TaskHandler
}

// NewWorker constructs a Worker instance.
func NewWorker(cfg WorkerConfig) (*Worker, error) {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 5
	}
	srv := asynq.NewServer(cfg.RedisOpts, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			QueueDefault: 1,
		},
		RetryDelayFunc: func(n int, _ error, _ *asynq.Task) time.Duration {
			return time.Duration(n+1) * 10 * time.Second
		},
	})
	mux := asynq.NewServeMux()
	for _, h := range cfg.Handlers {
		if h.Type == "" || h.Handler == nil {
			continue
		}
		mux.HandleFunc(h.Type, h.Handler)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{server: srv, mux: mux, logger: logger}, nil
}

// Run starts processing jobs until context cancellation.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil {
		return errors.New("worker: not configured")
	}
	w.logger.Info("worker started", slog.String("queue", QueueDefault))
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.server.Run(w.mux)
	}()
	select {
	case <-ctx.Done():
		w.server.Shutdown()
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// TaskEnqueuer is satisfied by *asynq.Client.
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// PendingStore records render jobs as they are submitted.
type PendingStore interface {
	MarkPending(ctx context.Context, job document.RenderJob) (document.RenderJob, error)
	MarkFailed(ctx context.Context, id, message string) error
}

// Client submits jobs to the queue.
type Client struct {
	client *asynq.Client
	queue  TaskEnqueuer
	store  PendingStore
	newID  func() string
}

// NewClient constructs an Asynq client. store receives the pending job state
// before the task is enqueued.
func NewClient(redisOpts asynq.RedisClientOpt, store PendingStore) (*Client, error) {
	client := asynq.NewClient(redisOpts)
	return &Client{client: client, queue: client, store: store, newID: uuid.NewString}, nil
}

// newClientWith builds a Client around an arbitrary enqueuer.
func newClientWith(queue TaskEnqueuer, store PendingStore, newID func() string) *Client {
	if newID == nil {
		newID = uuid.NewString
	}
	return &Client{queue: queue, store: store, newID: newID}
}

// EnqueueDocumentRender records a pending job and submits the render task.
func (c *Client) EnqueueDocumentRender(ctx context.Context, kind document.Kind, id int64) (document.RenderJob, error) {
	if c == nil || c.queue == nil || c.store == nil {
		return document.RenderJob{}, errors.New("jobs: client not configured")
	}
	if !kind.Valid() {
		return document.RenderJob{}, document.ErrUnknownKind
	}
	job, err := c.store.MarkPending(ctx, document.RenderJob{ID: c.newID(), Kind: kind, DocumentID: id})
	if err != nil {
		return document.RenderJob{}, fmt.Errorf("jobs: record pending job: %w", err)
	}
	task, err := NewDocumentRenderTask(DocumentRenderPayload{JobID: job.ID, Kind: string(kind), DocumentID: id})
	if err != nil {
		return document.RenderJob{}, err
	}
	if _, err := c.queue.EnqueueContext(ctx, task); err != nil {
		_ = c.store.MarkFailed(ctx, job.ID, "enqueue: "+err.Error())
		return document.RenderJob{}, fmt.Errorf("jobs: enqueue render: %w", err)
	}
	return job, nil
}

// Close releases client resources.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// QueueInspector is satisfied by *asynq.Inspector.
type QueueInspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
}

// Handler exposes HTTP endpoints for job observability.
type Handler struct {
	inspector QueueInspector
	logger    *slog.Logger
}

// NewHandler constructs an HTTP handler for jobs endpoints.
func NewHandler(inspector QueueInspector, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{inspector: inspector, logger: logger}
}

// MountRoutes attaches job routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/health", h.health)
}

type queueHealth struct {
	Queue   string `json:"queue"`
	Pending int    `json:"pending"`
	Active  int    `json:"active"`
	Retry   int    `json:"retry"`
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if h.inspector == nil {
		httpx.JSON(w, http.StatusOK, queueHealth{Queue: QueueDefault})
		return
	}
	info, err := h.inspector.GetQueueInfo(QueueDefault)
	if err != nil {
		h.logger.Warn("jobs health", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	out := queueHealth{Queue: QueueDefault}
	if info != nil {
		out = queueHealth{Queue: info.Queue, Pending: info.Pending, Active: info.Active, Retry: info.Retry}
	}
	httpx.JSON(w, http.StatusOK, out)
}
