package entities

import (
	"time"

	"github.com/google/uuid"

	"render-orchestrator/constant"
)

type VideoProject struct {
	ID            uuid.UUID              `json:"id"`
	TenantID      uuid.UUID              `json:"tenant_id"`
	BrandID       uuid.UUID              `json:"brand_id"`
	Title         string                 `json:"title"`
	Script        string                 `json:"script"`
	Status        constant.ProjectStatus `json:"status"`
	OutputURL     string                 `json:"output_url"`
	ProviderJobID string                 `json:"provider_job_id"`
	RenderedAt    *time.Time             `json:"rendered_at"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

func (VideoProject) TableName() string {
	return "video_projects"
}
