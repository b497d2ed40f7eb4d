package dto

import (
	"github.com/google/uuid"

	"render-orchestrator/constant"
)

// RenderOptions describes the requested output. Shared by the video render and
// print export pipelines; zero fields fall back to defaults at enqueue time.
type RenderOptions struct {
	Format      string `json:"format"`
	Quality     string `json:"quality"`
	AspectRatio string `json:"aspectRatio,omitempty"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
	Pages       int    `json:"pages,omitempty"`
}

const (
	DefaultVideoFormat = "MP4"
	DefaultPrintFormat = "PDF"
	DefaultQuality     = "HD"
	DefaultAspectRatio = "16:9"
)

func (o RenderOptions) WithVideoDefaults() RenderOptions {
	if o.Format == "" {
		o.Format = DefaultVideoFormat
	}
	if o.Quality == "" {
		o.Quality = DefaultQuality
	}
	if o.AspectRatio == "" {
		o.AspectRatio = DefaultAspectRatio
	}
	return o
}

func (o RenderOptions) WithPrintDefaults() RenderOptions {
	if o.Format == "" {
		o.Format = DefaultPrintFormat
	}
	if o.Quality == "" {
		o.Quality = DefaultQuality
	}
	return o
}

// RenderTaskPayload is the queue message for a single render/export attempt.
// It carries a denormalized snapshot of the project fields the worker needs so
// the worker does not have to re-read the project mid-flight.
type RenderTaskPayload struct {
	ProjectID uuid.UUID            `json:"projectId"`
	TenantID  uuid.UUID            `json:"tenantId"`
	Kind      constant.ProjectKind `json:"kind"`
	Title     string               `json:"title"`
	Content   string               `json:"content"`
	BrandID   uuid.UUID            `json:"brandId"`
	Options   RenderOptions        `json:"options"`
}

// BatchExportPayload is the queue message for a print batch export.
type BatchExportPayload struct {
	BatchID    string        `json:"batchId"`
	TenantID   uuid.UUID     `json:"tenantId"`
	ProjectIDs []uuid.UUID   `json:"projectIds"`
	Options    RenderOptions `json:"options"`
}

// EventPayload is the queue message for a lifecycle event publish task.
type EventPayload struct {
	RoutingKey string    `json:"routingKey"`
	ProjectID  uuid.UUID `json:"projectId"`
	TenantID   uuid.UUID `json:"tenantId"`
	Status     string    `json:"status"`
	OutputURL  string    `json:"outputUrl,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// JobResultData is what a completed attempt records on its ledger row.
type JobResultData struct {
	OutputURL    string `json:"outputUrl"`
	StorageKey   string `json:"storageKey"`
	FileSize     int64  `json:"fileSize,omitempty"`
	RenderTimeMS int64  `json:"renderTimeMs,omitempty"`
}

// BatchItemResult is the per-project outcome inside a batch export result.
type BatchItemResult struct {
	ProjectID  uuid.UUID          `json:"projectId"`
	Status     constant.JobStatus `json:"status"`
	StorageKey string             `json:"storageKey,omitempty"`
	Error      string             `json:"error,omitempty"`
}

type StartRenderResponse struct {
	JobID         string                 `json:"jobId"`
	ProjectID     uuid.UUID              `json:"projectId"`
	Status        constant.ProjectStatus `json:"status"`
	EstimatedTime int64                  `json:"estimatedTime"`
}

type RenderStatusResponse struct {
	ProjectID              uuid.UUID              `json:"projectId"`
	Status                 constant.ProjectStatus `json:"status"`
	JobStatus              string                 `json:"jobStatus,omitempty"`
	Progress               int                    `json:"progress"`
	EstimatedTimeRemaining int64                  `json:"estimatedTimeRemaining,omitempty"`
	OutputURL              string                 `json:"outputUrl,omitempty"`
}

type CancelRenderResponse struct {
	ProjectID uuid.UUID              `json:"projectId"`
	Status    constant.ProjectStatus `json:"status"`
	Cancelled bool                   `json:"cancelled"`
}

type RenderHistoryEntry struct {
	JobID       string             `json:"jobId"`
	Type        constant.JobType   `json:"type"`
	Status      constant.JobStatus `json:"status"`
	BatchJobID  string             `json:"batchJobId,omitempty"`
	Options     *RenderOptions     `json:"options,omitempty"`
	Result      *JobResultData     `json:"result,omitempty"`
	Error       string             `json:"error,omitempty"`
	CreatedAt   string             `json:"createdAt"`
	CompletedAt string             `json:"completedAt,omitempty"`
}

type BatchExportResponse struct {
	BatchID       string      `json:"batchId"`
	ProjectIDs    []uuid.UUID `json:"projectIds"`
	Status        string      `json:"status"`
	EstimatedTime int64       `json:"estimatedTime"`
}

// StartRenderRequest is the HTTP body for render/export start and retry.
type StartRenderRequest struct {
	Format      string `json:"format"`
	Quality     string `json:"quality"`
	AspectRatio string `json:"aspectRatio"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Pages       int    `json:"pages"`
}

func (r StartRenderRequest) Options() RenderOptions {
	return RenderOptions{
		Format:      r.Format,
		Quality:     r.Quality,
		AspectRatio: r.AspectRatio,
		Width:       r.Width,
		Height:      r.Height,
		Pages:       r.Pages,
	}
}

type BatchExportRequest struct {
	ProjectIDs []uuid.UUID `json:"projectIds" binding:"required,min=1"`
	Format     string      `json:"format"`
	Quality    string      `json:"quality"`
}
