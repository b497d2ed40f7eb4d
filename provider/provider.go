// Package provider abstracts the external rendering capability. The
// orchestrator and worker only ever see this contract, so a mock, an in-house
// renderer or a third-party API are interchangeable.
package provider

import (
	"context"
	"time"

	"render-orchestrator/dto"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// SubmitRequest is a self-contained job description. It carries everything the
// renderer needs so submission never reads back into our database.
type SubmitRequest struct {
	ProjectID string            `json:"projectId"`
	Kind      string            `json:"kind"`
	Title     string            `json:"title"`
	Content   string            `json:"content"`
	BrandID   string            `json:"brandId"`
	Options   dto.RenderOptions `json:"options"`
}

type Metadata struct {
	RenderTimeMS int64  `json:"renderTimeMs,omitempty"`
	FileSize     int64  `json:"fileSize,omitempty"`
	Resolution   string `json:"resolution,omitempty"`
	Pages        int    `json:"pages,omitempty"`
}

// Result is the polled view of an external job. A non-terminal job reports
// StatusPending; callers keep polling until Status is completed or failed.
type Result struct {
	Status    Status   `json:"status"`
	OutputURL string   `json:"outputUrl,omitempty"`
	Error     string   `json:"error,omitempty"`
	Metadata  Metadata `json:"metadata"`
}

func (r *Result) Terminal() bool {
	return r.Status == StatusCompleted || r.Status == StatusFailed
}

type Provider interface {
	// SubmitJob hands the job to the renderer and returns its opaque job id
	// without waiting for completion.
	SubmitJob(ctx context.Context, req SubmitRequest) (string, error)
	// GetJobStatus polls the renderer for the job's current result.
	GetJobStatus(ctx context.Context, jobID string) (*Result, error)
	// CancelJob is best-effort; false means the job already finished or is
	// unknown to the renderer.
	CancelJob(ctx context.Context, jobID string) (bool, error)
	SupportedFormats() []string
	EstimateRenderTime(opts dto.RenderOptions) time.Duration
}
