package document

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// JobStatus tracks an asynchronous render.
type JobStatus string

const (
	JobPending JobStatus = "pending"
	JobReady   JobStatus = "ready"
	JobFailed  JobStatus = "failed"
)

var (
	// ErrJobNotFound is returned for unknown or expired render jobs.
	ErrJobNotFound = errors.New("document: render job not found")
	// ErrJobNotReady is returned when the PDF of a job is requested too early.
	ErrJobNotReady = errors.New("document: render job not ready")
)

// RenderJob is the stored state of one asynchronous render.
type RenderJob struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"kind"`
	DocumentID int64     `json:"document_id"`
	Status     JobStatus `json:"status"`
	FileName   string    `json:"file_name,omitempty"`
	Pages      int       `json:"pages,omitempty"`
	Size       int64     `json:"size,omitempty"`
	Warnings   []string  `json:"warnings,omitempty"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

const artifactPrefix = "docplan:job:"

// ArtifactStore keeps render job state and rendered PDFs in Redis. Both
// expire after the configured TTL.
type ArtifactStore struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

// NewArtifactStore constructs the store; ttl <= 0 defaults to 24h.
func NewArtifactStore(client *redis.Client, ttl time.Duration) *ArtifactStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &ArtifactStore{client: client, ttl: ttl, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *ArtifactStore) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func metaKey(id string) string { return artifactPrefix + id }
func pdfKey(id string) string  { return artifactPrefix + id + ":pdf" }

// MarkPending records a freshly enqueued job.
func (s *ArtifactStore) MarkPending(ctx context.Context, job RenderJob) (RenderJob, error) {
	if strings.TrimSpace(job.ID) == "" {
		return RenderJob{}, fmt.Errorf("document: render job id required")
	}
	now := s.now().UTC()
	job.Status = JobPending
	job.CreatedAt, job.UpdatedAt = now, now
	if err := s.put(ctx, s.client, job); err != nil {
		return RenderJob{}, err
	}
	return job, nil
}

// MarkReady stores the PDF and flips the job to ready in one transaction.
func (s *ArtifactStore) MarkReady(ctx context.Context, id, fileName string, pages int, warnings []string, pdf []byte) error {
	job, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	job.Status = JobReady
	job.FileName = fileName
	job.Pages = pages
	job.Size = int64(len(pdf))
	job.Warnings = warnings
	job.Error = ""
	job.UpdatedAt = s.now().UTC()
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, pdfKey(id), pdf, s.ttl)
		return s.put(ctx, pipe, job)
	})
	if err != nil {
		return fmt.Errorf("document: store artifact: %w", err)
	}
	return nil
}

// MarkFailed records the failure message.
func (s *ArtifactStore) MarkFailed(ctx context.Context, id, message string) error {
	job, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	message = strings.TrimSpace(message)
	if message == "" {
		message = "unknown error"
	}
	job.Status = JobFailed
	job.Error = message
	job.UpdatedAt = s.now().UTC()
	return s.put(ctx, s.client, job)
}

// Get loads the job state.
func (s *ArtifactStore) Get(ctx context.Context, id string) (RenderJob, error) {
	raw, err := s.client.Get(ctx, metaKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return RenderJob{}, ErrJobNotFound
	}
	if err != nil {
		return RenderJob{}, fmt.Errorf("document: load render job: %w", err)
	}
	var job RenderJob
	if err := json.Unmarshal(raw, &job); err != nil {
		return RenderJob{}, fmt.Errorf("document: decode render job: %w", err)
	}
	return job, nil
}

// PDF returns the rendered bytes of a ready job.
func (s *ArtifactStore) PDF(ctx context.Context, id string) (RenderJob, []byte, error) {
	job, err := s.Get(ctx, id)
	if err != nil {
		return RenderJob{}, nil, err
	}
	if job.Status != JobReady {
		return job, nil, ErrJobNotReady
	}
	pdf, err := s.client.Get(ctx, pdfKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return job, nil, ErrJobNotFound
	}
	if err != nil {
		return job, nil, fmt.Errorf("document: load artifact: %w", err)
	}
	return job, pdf, nil
}

func (s *ArtifactStore) put(ctx context.Context, c redis.Cmdable, job RenderJob) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return err
	}
	if err := c.Set(ctx, metaKey(job.ID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("document: save render job: %w", err)
	}
	return nil
}
