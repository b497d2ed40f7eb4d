package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"render-orchestrator/constant"
	"render-orchestrator/entities"
)

func (r *repo) CreateRenderJob(ctx context.Context, job *entities.RenderJob) error {
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	return r.GetDB().Create(job).Error
}

func (r *repo) CompleteRenderJob(ctx context.Context, id string, result []byte) error {
	now := time.Now()
	return r.GetDB().Model(&entities.RenderJob{}).
		Where("id = ? AND status = ?", id, constant.JobStatusProcessing).
		Updates(map[string]interface{}{
			"status":       constant.JobStatusCompleted,
			"result":       result,
			"completed_at": now,
		}).Error
}

func (r *repo) FailRenderJob(ctx context.Context, id string, errMsg string) error {
	now := time.Now()
	return r.GetDB().Model(&entities.RenderJob{}).
		Where("id = ? AND status IN ?", id, []constant.JobStatus{constant.JobStatusPending, constant.JobStatusProcessing}).
		Updates(map[string]interface{}{
			"status":       constant.JobStatusFailed,
			"error":        errMsg,
			"completed_at": now,
		}).Error
}

func (r *repo) ListRenderJobs(ctx context.Context, projectID, tenantID uuid.UUID) ([]*entities.RenderJob, error) {
	var jobs []*entities.RenderJob
	err := r.GetDB().
		Where("project_id = ? AND tenant_id = ?", projectID, tenantID).
		Order("created_at DESC").
		Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *repo) LatestFailedRenderJob(ctx context.Context, projectID, tenantID uuid.UUID) (*entities.RenderJob, error) {
	job := &entities.RenderJob{}
	err := r.GetDB().
		Where("project_id = ? AND tenant_id = ? AND status = ?", projectID, tenantID, constant.JobStatusFailed).
		Order("created_at DESC").
		First(job).Error
	if err != nil {
		return nil, err
	}
	return job, nil
}
