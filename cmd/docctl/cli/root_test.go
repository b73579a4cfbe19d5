package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/docplan/internal/document"
	"github.com/odyssey-erp/docplan/internal/document/layout"
	"github.com/odyssey-erp/docplan/internal/document/render"
)

type stubPlanner struct{ err error }

func (s stubPlanner) Plan(_ context.Context, kind document.Kind, id int64) (*layout.Plan, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &layout.Plan{Kind: string(kind), FileName: string(kind) + "_0012.pdf", Pages: 1, Warnings: []string{"stored grand total differs"}}, nil
}

type stubRenderer struct{}

func (stubRenderer) HTML(plan *layout.Plan) (string, error) { return "<html>" + plan.Kind + "</html>", nil }

func (stubRenderer) Render(_ context.Context, plan *layout.Plan) (render.Result, error) {
	return render.Result{FileName: plan.FileName, PDF: []byte("%PDF-1.7"), Length: 8, Pages: plan.Pages}, nil
}

type stubQueue struct {
	kind document.Kind
	id   int64
}

func (s *stubQueue) Enqueue(_ context.Context, kind document.Kind, id int64) (document.RenderJob, error) {
	s.kind, s.id = kind, id
	return document.RenderJob{ID: "job-1", Kind: kind, DocumentID: id, Status: document.JobPending}, nil
}

func (s *stubQueue) InspectQueue(context.Context) (QueueStats, error) {
	return QueueStats{Queue: "default", Pending: 2}, nil
}

func testFactory(rt *Runtime, built *int) Factory {
	return func(context.Context) (*Runtime, func(), error) {
		*built++
		return rt, func() {}, nil
	}
}

func run(t *testing.T, factory Factory, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand(factory)
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestPlanCommandPrintsJSON(t *testing.T) {
	built := 0
	out, _, err := run(t, testFactory(&Runtime{Planner: stubPlanner{}}, &built), "plan", "sale-invoice", "12")
	require.NoError(t, err)

	var plan layout.Plan
	require.NoError(t, json.Unmarshal([]byte(out), &plan))
	assert.Equal(t, "SaleInvoice", plan.Kind)
	assert.Equal(t, 1, built)
}

func TestPlanCommandValidatesBeforeConnecting(t *testing.T) {
	built := 0
	factory := testFactory(&Runtime{Planner: stubPlanner{}}, &built)

	_, _, err := run(t, factory, "plan", "credit-note", "1")
	assert.ErrorIs(t, err, document.ErrUnknownKind)

	_, _, err = run(t, factory, "plan", "SaleInvoice", "x")
	assert.Error(t, err)

	_, _, err = run(t, factory, "plan", "SaleInvoice")
	assert.Error(t, err)
	assert.Equal(t, 0, built)
}

func TestRenderCommandWritesFile(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "out.pdf")
	built := 0

	_, stderr, err := run(t, testFactory(&Runtime{Planner: stubPlanner{}, Renderer: stubRenderer{}}, &built), "render", "SaleInvoice", "12", "-o", target)
	require.NoError(t, err)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7", string(data))
	assert.Contains(t, stderr, "1 page(s)")
	assert.Contains(t, stderr, "warning: stored grand total differs")
}

func TestRenderCommandHTMLToStdout(t *testing.T) {
	built := 0
	out, _, err := run(t, testFactory(&Runtime{Planner: stubPlanner{}, Renderer: stubRenderer{}}, &built), "render", "purchase-order", "7", "--html", "-o", "-")
	require.NoError(t, err)
	assert.Equal(t, "<html>PurchaseOrder</html>", out)
}

func TestEnqueueAndQueueCommands(t *testing.T) {
	queue := &stubQueue{}
	built := 0
	factory := testFactory(&Runtime{Queue: queue}, &built)

	out, _, err := run(t, factory, "enqueue", "service-invoice", "5")
	require.NoError(t, err)
	assert.Equal(t, document.KindServiceInvoice, queue.kind)
	assert.Equal(t, int64(5), queue.id)
	assert.Contains(t, out, `"status": "pending"`)

	out, _, err = run(t, factory, "queue")
	require.NoError(t, err)
	assert.Contains(t, out, `"pending": 2`)

	_, _, err = run(t, testFactory(&Runtime{}, &built), "enqueue", "SaleInvoice", "1")
	assert.Error(t, err)
}

func TestCommandPropagatesErrors(t *testing.T) {
	built := 0
	_, _, err := run(t, testFactory(&Runtime{Planner: stubPlanner{err: document.ErrNotFound}}, &built), "plan", "SaleInvoice", "3")
	assert.ErrorIs(t, err, document.ErrNotFound)

	boom := errors.New("pg down")
	failing := func(context.Context) (*Runtime, func(), error) { return nil, nil, boom }
	_, _, err = run(t, failing, "plan", "SaleInvoice", "3")
	assert.ErrorIs(t, err, boom)
}

func TestKindsCommand(t *testing.T) {
	out, _, err := run(t, nil, "kinds")
	require.NoError(t, err)
	assert.Contains(t, out, "sale-invoice")
	assert.Contains(t, out, "PURCHASE ORDER")
}
