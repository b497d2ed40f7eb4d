package entities

import (
	"time"

	"github.com/google/uuid"

	"render-orchestrator/constant"
)

type PrintProject struct {
	ID            uuid.UUID              `json:"id"`
	TenantID      uuid.UUID              `json:"tenant_id"`
	BrandID       uuid.UUID              `json:"brand_id"`
	Title         string                 `json:"title"`
	Content       string                 `json:"content"`
	Status        constant.ProjectStatus `json:"status"`
	ExportURL     string                 `json:"export_url"`
	ProviderJobID string                 `json:"provider_job_id"`
	ExportedAt    *time.Time             `json:"exported_at"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

func (PrintProject) TableName() string {
	return "print_projects"
}
