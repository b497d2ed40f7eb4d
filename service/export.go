package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"render-orchestrator/apperr"
	"render-orchestrator/constant"
	"render-orchestrator/dto"
	"render-orchestrator/provider"
	"render-orchestrator/queue"
	"render-orchestrator/repository"
	"render-orchestrator/statemachine"
)

// ExportService is the print counterpart of RenderService, plus the batch
// export operation.
type ExportService interface {
	StartExport(ctx context.Context, projectID, tenantID uuid.UUID, opts dto.RenderOptions) (*dto.StartRenderResponse, error)
	GetExportStatus(ctx context.Context, projectID, tenantID uuid.UUID) (*dto.RenderStatusResponse, error)
	CancelExport(ctx context.Context, projectID, tenantID uuid.UUID) (*dto.CancelRenderResponse, error)
	RetryExport(ctx context.Context, projectID, tenantID uuid.UUID) (*dto.StartRenderResponse, error)
	GetExportHistory(ctx context.Context, projectID, tenantID uuid.UUID) ([]dto.RenderHistoryEntry, error)
	StartBatchExport(ctx context.Context, projectIDs []uuid.UUID, tenantID uuid.UUID, opts dto.RenderOptions) (*dto.BatchExportResponse, error)
}

type exportService struct {
	repo     repository.Repository
	queue    queue.Queue
	provider provider.Provider
}

func NewExportService(repo repository.Repository, q queue.Queue, p provider.Provider) ExportService {
	return &exportService{
		repo:     repo,
		queue:    q,
		provider: p,
	}
}

func (s *exportService) StartExport(ctx context.Context, projectID, tenantID uuid.UUID, opts dto.RenderOptions) (*dto.StartRenderResponse, error) {
	project, err := s.repo.FindPrintProject(ctx, projectID, tenantID)
	if err != nil {
		if isNotFound(err) {
			return nil, apperr.NotFound("print project %s not found", projectID)
		}
		return nil, err
	}

	if strings.TrimSpace(project.Content) == "" {
		return nil, apperr.BadRequest("print project must have content before exporting")
	}

	opts = opts.WithPrintDefaults()
	if !formatSupported(s.provider, opts.Format) {
		return nil, apperr.BadRequest("format %s is not supported for print exports", opts.Format)
	}

	if project.Status.Processing() {
		return nil, apperr.BadRequest("print project is already being processed")
	}

	event := statemachine.EventStart
	if project.Status == constant.ProjectStatusFailed {
		event = statemachine.EventRetry
	}
	next, err := statemachine.Next(constant.ProjectKindPrint, project.Status, event)
	if err != nil {
		return nil, apperr.BadRequest("print project cannot be exported from state %s", project.Status)
	}

	ok, err := s.repo.UpdatePrintStatusIf(ctx, projectID, tenantID, project.Status, next)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.BadRequest("print project is already being processed")
	}

	payload := dto.RenderTaskPayload{
		ProjectID: project.ID,
		TenantID:  project.TenantID,
		Kind:      constant.ProjectKindPrint,
		Title:     project.Title,
		Content:   project.Content,
		BrandID:   project.BrandID,
		Options:   opts,
	}

	jobID, err := s.queue.Enqueue(ctx, queue.TaskPrintExport, payload)
	if err != nil {
		if _, rbErr := s.repo.UpdatePrintStatusIf(ctx, projectID, tenantID, next, project.Status); rbErr != nil {
			zerolog.Ctx(ctx).Error().Err(rbErr).Str("project_id", projectID.String()).Msg("failed to roll back status after enqueue failure")
		}
		return nil, err
	}

	zerolog.Ctx(ctx).Info().
		Str("project_id", projectID.String()).
		Str("job_id", jobID).
		Msg("export enqueued")

	return &dto.StartRenderResponse{
		JobID:         jobID,
		ProjectID:     project.ID,
		Status:        next,
		EstimatedTime: s.provider.EstimateRenderTime(opts).Milliseconds(),
	}, nil
}

func (s *exportService) GetExportStatus(ctx context.Context, projectID, tenantID uuid.UUID) (*dto.RenderStatusResponse, error) {
	project, err := s.repo.FindPrintProject(ctx, projectID, tenantID)
	if err != nil {
		if isNotFound(err) {
			return nil, apperr.NotFound("print project %s not found", projectID)
		}
		return nil, err
	}

	if !project.Status.Processing() {
		return &dto.RenderStatusResponse{
			ProjectID: project.ID,
			Status:    project.Status,
			Progress:  100,
			OutputURL: project.ExportURL,
		}, nil
	}

	task, payload, err := findActiveTask(ctx, s.queue, queue.QueueExport, projectID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return &dto.RenderStatusResponse{
			ProjectID: project.ID,
			Status:    project.Status,
			Progress:  100,
		}, nil
	}

	jobStatus := "queued"
	if project.ProviderJobID != "" {
		result, err := s.provider.GetJobStatus(ctx, project.ProviderJobID)
		if err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Str("project_id", projectID.String()).Msg("failed to poll provider for live status")
		} else {
			jobStatus = string(result.Status)
		}
	}

	estimate := s.provider.EstimateRenderTime(payload.Options)
	progress, remaining := liveProgress(project.UpdatedAt, estimate, time.Now())

	return &dto.RenderStatusResponse{
		ProjectID:              project.ID,
		Status:                 project.Status,
		JobStatus:              jobStatus,
		Progress:               progress,
		EstimatedTimeRemaining: remaining.Milliseconds(),
	}, nil
}

func (s *exportService) CancelExport(ctx context.Context, projectID, tenantID uuid.UUID) (*dto.CancelRenderResponse, error) {
	project, err := s.repo.FindPrintProject(ctx, projectID, tenantID)
	if err != nil {
		if isNotFound(err) {
			return nil, apperr.NotFound("print project %s not found", projectID)
		}
		return nil, err
	}

	if project.Status != constant.ProjectStatusExporting {
		return nil, apperr.BadRequest("print project is not currently exporting")
	}

	task, _, err := findActiveTask(ctx, s.queue, queue.QueueExport, projectID)
	if err != nil {
		return nil, err
	}
	if task != nil {
		if project.ProviderJobID != "" {
			if _, cancelErr := s.provider.CancelJob(ctx, project.ProviderJobID); cancelErr != nil {
				zerolog.Ctx(ctx).Error().Err(cancelErr).Str("project_id", projectID.String()).Msg("provider cancel failed")
			}
		}
		if rmErr := s.queue.Remove(ctx, task.Queue, task.ID); rmErr != nil {
			zerolog.Ctx(ctx).Error().Err(rmErr).Str("task_id", task.ID).Msg("failed to remove queued task")
		}
	}

	ok, err := s.repo.UpdatePrintStatusIf(ctx, projectID, tenantID, constant.ProjectStatusExporting, constant.ProjectStatusDraft)
	if err != nil {
		return nil, err
	}
	if !ok {
		current, err := s.repo.FindPrintProject(ctx, projectID, tenantID)
		if err != nil {
			return nil, err
		}
		return &dto.CancelRenderResponse{
			ProjectID: project.ID,
			Status:    current.Status,
			Cancelled: false,
		}, nil
	}

	zerolog.Ctx(ctx).Info().Str("project_id", projectID.String()).Msg("export cancelled")

	return &dto.CancelRenderResponse{
		ProjectID: project.ID,
		Status:    constant.ProjectStatusDraft,
		Cancelled: true,
	}, nil
}

func (s *exportService) RetryExport(ctx context.Context, projectID, tenantID uuid.UUID) (*dto.StartRenderResponse, error) {
	project, err := s.repo.FindPrintProject(ctx, projectID, tenantID)
	if err != nil {
		if isNotFound(err) {
			return nil, apperr.NotFound("print project %s not found", projectID)
		}
		return nil, err
	}

	if project.Status != constant.ProjectStatusFailed {
		return nil, apperr.BadRequest("print project is not in a failed state")
	}

	opts := dto.RenderOptions{}.WithPrintDefaults()
	lastFailed, err := s.repo.LatestFailedRenderJob(ctx, projectID, tenantID)
	if err != nil {
		if !isNotFound(err) {
			return nil, err
		}
	} else {
		opts = decodeOptions(lastFailed.Metadata, opts)
	}

	return s.StartExport(ctx, projectID, tenantID, opts)
}

func (s *exportService) GetExportHistory(ctx context.Context, projectID, tenantID uuid.UUID) ([]dto.RenderHistoryEntry, error) {
	if _, err := s.repo.FindPrintProject(ctx, projectID, tenantID); err != nil {
		if isNotFound(err) {
			return nil, apperr.NotFound("print project %s not found", projectID)
		}
		return nil, err
	}

	jobs, err := s.repo.ListRenderJobs(ctx, projectID, tenantID)
	if err != nil {
		return nil, err
	}

	return historyEntries(jobs), nil
}

func (s *exportService) StartBatchExport(ctx context.Context, projectIDs []uuid.UUID, tenantID uuid.UUID, opts dto.RenderOptions) (*dto.BatchExportResponse, error) {
	if len(projectIDs) == 0 {
		return nil, apperr.BadRequest("batch export requires at least one project")
	}

	opts = opts.WithPrintDefaults()
	if !formatSupported(s.provider, opts.Format) {
		return nil, apperr.BadRequest("format %s is not supported for print exports", opts.Format)
	}

	// Validate every project before touching any state; first failure wins.
	for _, id := range projectIDs {
		project, err := s.repo.FindPrintProject(ctx, id, tenantID)
		if err != nil {
			if isNotFound(err) {
				return nil, apperr.NotFound("print project %s not found", id)
			}
			return nil, err
		}
		if strings.TrimSpace(project.Content) == "" {
			return nil, apperr.BadRequest("print project %s must have content before exporting", id)
		}
		if project.Status.Processing() {
			return nil, apperr.BadRequest("print project %s is already being processed", id)
		}
	}

	marked := make([]uuid.UUID, 0, len(projectIDs))
	for _, id := range projectIDs {
		ok, err := s.repo.UpdatePrintStatusIf(ctx, id, tenantID, constant.ProjectStatusDraft, constant.ProjectStatusExporting)
		if err == nil && !ok {
			// Failed projects re-enter the batch through the retry transition.
			ok, err = s.repo.UpdatePrintStatusIf(ctx, id, tenantID, constant.ProjectStatusFailed, constant.ProjectStatusExporting)
		}
		if err != nil || !ok {
			s.rollbackBatch(ctx, marked, tenantID)
			if err != nil {
				return nil, err
			}
			return nil, apperr.BadRequest("print project %s is already being processed", id)
		}
		marked = append(marked, id)
	}

	batchID := uuid.NewString()
	payload := dto.BatchExportPayload{
		BatchID:    batchID,
		TenantID:   tenantID,
		ProjectIDs: projectIDs,
		Options:    opts,
	}

	if _, err := s.queue.Enqueue(ctx, queue.TaskBatchExport, payload); err != nil {
		s.rollbackBatch(ctx, marked, tenantID)
		return nil, err
	}

	zerolog.Ctx(ctx).Info().
		Str("batch_id", batchID).
		Int("projects", len(projectIDs)).
		Msg("batch export enqueued")

	estimate := s.provider.EstimateRenderTime(opts).Milliseconds() * int64(len(projectIDs))
	return &dto.BatchExportResponse{
		BatchID:       batchID,
		ProjectIDs:    projectIDs,
		Status:        string(constant.ProjectStatusExporting),
		EstimatedTime: estimate,
	}, nil
}

func (s *exportService) rollbackBatch(ctx context.Context, marked []uuid.UUID, tenantID uuid.UUID) {
	for _, id := range marked {
		if _, err := s.repo.UpdatePrintStatusIf(ctx, id, tenantID, constant.ProjectStatusExporting, constant.ProjectStatusDraft); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Str("project_id", id.String()).Msg("failed to roll back batch mark")
		}
	}
}
