package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/docplan/internal/document"
)

type stubEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (s *stubEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.tasks = append(s.tasks, task)
	return &asynq.TaskInfo{ID: "task", Queue: QueueDefault}, nil
}

func TestEnqueueDocumentRender(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	queue := &stubEnqueuer{}
	client := newClientWith(queue, store, func() string { return "job-42" })

	job, err := client.EnqueueDocumentRender(ctx, document.KindPurchaseOrder, 7)
	require.NoError(t, err)
	assert.Equal(t, "job-42", job.ID)
	assert.Equal(t, document.JobPending, job.Status)

	require.Len(t, queue.tasks, 1)
	assert.Equal(t, TaskDocumentRender, queue.tasks[0].Type())
	var payload DocumentRenderPayload
	require.NoError(t, json.Unmarshal(queue.tasks[0].Payload(), &payload))
	assert.Equal(t, DocumentRenderPayload{JobID: "job-42", Kind: "PurchaseOrder", DocumentID: 7}, payload)

	stored, err := store.Get(ctx, "job-42")
	require.NoError(t, err)
	assert.Equal(t, document.JobPending, stored.Status)
}

func TestEnqueueDocumentRenderFailures(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	client := newClientWith(&stubEnqueuer{}, store, nil)
	_, err := client.EnqueueDocumentRender(ctx, document.Kind("Receipt"), 1)
	assert.ErrorIs(t, err, document.ErrUnknownKind)

	boom := errors.New("redis down")
	client = newClientWith(&stubEnqueuer{err: boom}, store, func() string { return "job-9" })
	_, err = client.EnqueueDocumentRender(ctx, document.KindSaleInvoice, 1)
	assert.ErrorIs(t, err, boom)

	job, err := store.Get(ctx, "job-9")
	require.NoError(t, err)
	assert.Equal(t, document.JobFailed, job.Status)
	assert.Contains(t, job.Error, "redis down")

	var nilClient *Client
	_, err = nilClient.EnqueueDocumentRender(ctx, document.KindSaleInvoice, 1)
	assert.Error(t, err)
	assert.NoError(t, nilClient.Close())
}

func TestNewDocumentRenderTaskValidates(t *testing.T) {
	_, err := NewDocumentRenderTask(DocumentRenderPayload{Kind: "SaleInvoice"})
	assert.Error(t, err)
	_, err = NewDocumentRenderTask(DocumentRenderPayload{JobID: "a", Kind: "SaleInvoice", DocumentID: -1})
	assert.Error(t, err)

	task, err := NewDocumentRenderTask(DocumentRenderPayload{JobID: "a", Kind: "SaleInvoice", DocumentID: 1})
	require.NoError(t, err)
	assert.Equal(t, TaskDocumentRender, task.Type())
}

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) { return s.info, s.err }

func TestJobsHealth(t *testing.T) {
	serve := func(h *Handler) *httptest.ResponseRecorder {
		r := chi.NewRouter()
		r.Route("/jobs", h.MountRoutes)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
		return rec
	}

	rec := serve(NewHandler(stubInspector{info: &asynq.QueueInfo{Queue: "default", Pending: 3, Active: 1}}, discardLogger()))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"queue":"default","pending":3,"active":1,"retry":0}`, rec.Body.String())

	rec = serve(NewHandler(nil, discardLogger()))
	assert.JSONEq(t, `{"queue":"default","pending":0,"active":0,"retry":0}`, rec.Body.String())

	rec = serve(NewHandler(stubInspector{err: errors.New("redis down")}, discardLogger()))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestNewWorkerRegistersHandlers(t *testing.T) {
	called := false
	worker, err := NewWorker(WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: "127.0.0.1:0"},
		Handlers: []TaskHandler{
			{Type: TaskDocumentRender, Handler: func(context.Context, *asynq.Task) error {
				called = true
				return nil
			}},
			{Type: "", Handler: nil},
		},
	})
	require.NoError(t, err)

	handler, pattern := worker.mux.Handler(asynq.NewTask(TaskDocumentRender, nil))
	assert.Equal(t, TaskDocumentRender, pattern)
	require.NoError(t, handler.ProcessTask(context.Background(), asynq.NewTask(TaskDocumentRender, nil)))
	assert.True(t, called)

	var nilWorker *Worker
	assert.Error(t, nilWorker.Run(context.Background()))
}
