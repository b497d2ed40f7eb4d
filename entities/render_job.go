package entities

import (
	"time"

	"github.com/google/uuid"

	"render-orchestrator/constant"
)

// RenderJob is the durable ledger row for one render/export attempt. The ID
// mirrors the queue task id so a queued task can always be correlated back to
// its ledger entry. Rows are never mutated after reaching a terminal status.
type RenderJob struct {
	ID          string             `json:"id"`
	ProjectID   uuid.UUID          `json:"project_id"`
	TenantID    uuid.UUID          `json:"tenant_id"`
	Type        constant.JobType   `json:"type"`
	Status      constant.JobStatus `json:"status"`
	BatchJobID  string             `json:"batch_job_id"`
	Metadata    []byte             `json:"-" gorm:"type:jsonb"`
	Result      []byte             `json:"-" gorm:"type:jsonb"`
	Error       string             `json:"error"`
	CreatedAt   time.Time          `json:"created_at"`
	CompletedAt *time.Time         `json:"completed_at"`
}

func (RenderJob) TableName() string {
	return "render_jobs"
}
