package document

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupArtifactStore(t *testing.T, ttl time.Duration) (*ArtifactStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := NewArtifactStore(client, ttl)
	store.WithNow(func() time.Time { return time.Date(2025, 4, 1, 9, 30, 0, 0, time.UTC) })
	return store, mr
}

func TestArtifactStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store, mr := setupArtifactStore(t, time.Hour)

	job, err := store.MarkPending(ctx, RenderJob{ID: "job-1", Kind: KindSaleInvoice, DocumentID: 12})
	require.NoError(t, err)
	assert.Equal(t, JobPending, job.Status)
	assert.Equal(t, time.Hour, mr.TTL("docplan:job:job-1"))

	_, _, err = store.PDF(ctx, "job-1")
	assert.ErrorIs(t, err, ErrJobNotReady)

	require.NoError(t, store.MarkReady(ctx, "job-1", "SaleInvoice_0012.pdf", 2, []string{"note"}, []byte("%PDF-1.7")))

	got, pdf, err := store.PDF(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.7"), pdf)
	assert.Equal(t, JobReady, got.Status)
	assert.Equal(t, "SaleInvoice_0012.pdf", got.FileName)
	assert.Equal(t, 2, got.Pages)
	assert.Equal(t, int64(8), got.Size)
	assert.Equal(t, []string{"note"}, got.Warnings)
	assert.Equal(t, KindSaleInvoice, got.Kind)
	assert.Equal(t, int64(12), got.DocumentID)
	assert.Equal(t, time.Hour, mr.TTL("docplan:job:job-1:pdf"))

	mr.FastForward(2 * time.Hour)
	_, err = store.Get(ctx, "job-1")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestArtifactStoreMarkFailed(t *testing.T) {
	ctx := context.Background()
	store, _ := setupArtifactStore(t, 0)

	_, err := store.MarkPending(ctx, RenderJob{ID: "job-2", Kind: KindPurchaseOrder, DocumentID: 3})
	require.NoError(t, err)
	require.NoError(t, store.MarkFailed(ctx, "job-2", "  "))

	job, err := store.Get(ctx, "job-2")
	require.NoError(t, err)
	assert.Equal(t, JobFailed, job.Status)
	assert.Equal(t, "unknown error", job.Error)

	_, _, err = store.PDF(ctx, "job-2")
	assert.ErrorIs(t, err, ErrJobNotReady)
}

func TestArtifactStoreUnknownJob(t *testing.T) {
	ctx := context.Background()
	store, _ := setupArtifactStore(t, time.Minute)

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
	assert.ErrorIs(t, store.MarkReady(ctx, "missing", "x.pdf", 1, nil, nil), ErrJobNotFound)
	assert.ErrorIs(t, store.MarkFailed(ctx, "missing", "boom"), ErrJobNotFound)

	_, err = store.MarkPending(ctx, RenderJob{})
	assert.Error(t, err)
}
