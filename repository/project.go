package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"render-orchestrator/constant"
	"render-orchestrator/entities"
)

func (r *repo) FindVideoProject(ctx context.Context, id, tenantID uuid.UUID) (*entities.VideoProject, error) {
	project := &entities.VideoProject{}
	err := r.GetDB().First(project, "id = ? AND tenant_id = ?", id, tenantID).Error
	if err != nil {
		return nil, err
	}

	return project, nil
}

func (r *repo) UpdateVideoStatusIf(ctx context.Context, id, tenantID uuid.UUID, from, to constant.ProjectStatus) (bool, error) {
	res := r.GetDB().Model(&entities.VideoProject{}).
		Where("id = ? AND tenant_id = ? AND status = ?", id, tenantID, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) SetVideoStatus(ctx context.Context, id uuid.UUID, status constant.ProjectStatus) error {
	return r.GetDB().Model(&entities.VideoProject{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		}).Error
}

func (r *repo) SetVideoProviderJobID(ctx context.Context, id uuid.UUID, providerJobID string) error {
	return r.GetDB().Model(&entities.VideoProject{}).Where("id = ?", id).
		Update("provider_job_id", providerJobID).Error
}

func (r *repo) SetVideoOutput(ctx context.Context, id uuid.UUID, outputURL string, renderedAt time.Time) error {
	return r.GetDB().Model(&entities.VideoProject{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      constant.ProjectStatusRendered,
			"output_url":  outputURL,
			"rendered_at": renderedAt,
			"updated_at":  time.Now(),
		}).Error
}

func (r *repo) FindPrintProject(ctx context.Context, id, tenantID uuid.UUID) (*entities.PrintProject, error) {
	project := &entities.PrintProject{}
	err := r.GetDB().First(project, "id = ? AND tenant_id = ?", id, tenantID).Error
	if err != nil {
		return nil, err
	}

	return project, nil
}

func (r *repo) UpdatePrintStatusIf(ctx context.Context, id, tenantID uuid.UUID, from, to constant.ProjectStatus) (bool, error) {
	res := r.GetDB().Model(&entities.PrintProject{}).
		Where("id = ? AND tenant_id = ? AND status = ?", id, tenantID, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) SetPrintStatus(ctx context.Context, id uuid.UUID, status constant.ProjectStatus) error {
	return r.GetDB().Model(&entities.PrintProject{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		}).Error
}

func (r *repo) SetPrintProviderJobID(ctx context.Context, id uuid.UUID, providerJobID string) error {
	return r.GetDB().Model(&entities.PrintProject{}).Where("id = ?", id).
		Update("provider_job_id", providerJobID).Error
}

func (r *repo) SetPrintOutput(ctx context.Context, id uuid.UUID, exportURL string, exportedAt time.Time) error {
	return r.GetDB().Model(&entities.PrintProject{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      constant.ProjectStatusExported,
			"export_url":  exportURL,
			"exported_at": exportedAt,
			"updated_at":  time.Now(),
		}).Error
}
