package jobs

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskDocumentRender renders a document plan to PDF and stores the artifact.
	TaskDocumentRender = "document:render"

	documentRenderRetries = 3
)

// DocumentRenderPayload identifies one asynchronous render.
type DocumentRenderPayload struct {
	JobID      string `json:"job_id"`
	Kind       string `json:"kind"`
	DocumentID int64  `json:"document_id"`
}

func (p DocumentRenderPayload) validate() error {
	switch {
	case strings.TrimSpace(p.JobID) == "":
		return fmt.Errorf("jobs: render payload missing job id")
	case strings.TrimSpace(p.Kind) == "":
		return fmt.Errorf("jobs: render payload missing kind")
	case p.DocumentID < 0:
		return fmt.Errorf("jobs: render payload has negative document id %d", p.DocumentID)
	}
	return nil
}

// NewDocumentRenderTask constructs an Asynq task.
func NewDocumentRenderTask(payload DocumentRenderPayload) (*asynq.Task, error) {
	if err := payload.validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDocumentRender, data,
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(documentRenderRetries),
		asynq.TaskID(payload.JobID),
	), nil
}
