package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"render-orchestrator/apperr"
	"render-orchestrator/constant"
	"render-orchestrator/dto"
	"render-orchestrator/entities"
	"render-orchestrator/provider"
	"render-orchestrator/queue"
	"render-orchestrator/repository"
	"render-orchestrator/statemachine"
)

// RenderService orchestrates video render attempts. It performs quick reads
// and conditional status writes on the request path and hands the long-running
// work to the queue; the worker owns everything after enqueue.
type RenderService interface {
	StartRender(ctx context.Context, projectID, tenantID uuid.UUID, opts dto.RenderOptions) (*dto.StartRenderResponse, error)
	GetRenderStatus(ctx context.Context, projectID, tenantID uuid.UUID) (*dto.RenderStatusResponse, error)
	CancelRender(ctx context.Context, projectID, tenantID uuid.UUID) (*dto.CancelRenderResponse, error)
	RetryRender(ctx context.Context, projectID, tenantID uuid.UUID) (*dto.StartRenderResponse, error)
	GetRenderHistory(ctx context.Context, projectID, tenantID uuid.UUID) ([]dto.RenderHistoryEntry, error)
}

type renderService struct {
	repo     repository.Repository
	queue    queue.Queue
	provider provider.Provider
}

func NewRenderService(repo repository.Repository, q queue.Queue, p provider.Provider) RenderService {
	return &renderService{
		repo:     repo,
		queue:    q,
		provider: p,
	}
}

func (s *renderService) StartRender(ctx context.Context, projectID, tenantID uuid.UUID, opts dto.RenderOptions) (*dto.StartRenderResponse, error) {
	project, err := s.repo.FindVideoProject(ctx, projectID, tenantID)
	if err != nil {
		if isNotFound(err) {
			return nil, apperr.NotFound("video project %s not found", projectID)
		}
		return nil, err
	}

	if strings.TrimSpace(project.Script) == "" {
		return nil, apperr.BadRequest("video project must have content before rendering")
	}

	opts = opts.WithVideoDefaults()
	if !formatSupported(s.provider, opts.Format) {
		return nil, apperr.BadRequest("format %s is not supported for video renders", opts.Format)
	}

	if project.Status.Processing() {
		return nil, apperr.BadRequest("video project is already being processed")
	}

	event := statemachine.EventStart
	if project.Status == constant.ProjectStatusFailed {
		event = statemachine.EventRetry
	}
	next, err := statemachine.Next(constant.ProjectKindVideo, project.Status, event)
	if err != nil {
		return nil, apperr.BadRequest("video project cannot be rendered from state %s", project.Status)
	}

	// Conditional write closes the race between two near-simultaneous starts:
	// only one caller observes the old status row.
	ok, err := s.repo.UpdateVideoStatusIf(ctx, projectID, tenantID, project.Status, next)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.BadRequest("video project is already being processed")
	}

	payload := dto.RenderTaskPayload{
		ProjectID: project.ID,
		TenantID:  project.TenantID,
		Kind:      constant.ProjectKindVideo,
		Title:     project.Title,
		Content:   project.Script,
		BrandID:   project.BrandID,
		Options:   opts,
	}

	jobID, err := s.queue.Enqueue(ctx, queue.TaskVideoRender, payload)
	if err != nil {
		if _, rbErr := s.repo.UpdateVideoStatusIf(ctx, projectID, tenantID, next, project.Status); rbErr != nil {
			zerolog.Ctx(ctx).Error().Err(rbErr).Str("project_id", projectID.String()).Msg("failed to roll back status after enqueue failure")
		}
		return nil, err
	}

	zerolog.Ctx(ctx).Info().
		Str("project_id", projectID.String()).
		Str("job_id", jobID).
		Msg("render enqueued")

	return &dto.StartRenderResponse{
		JobID:         jobID,
		ProjectID:     project.ID,
		Status:        next,
		EstimatedTime: s.provider.EstimateRenderTime(opts).Milliseconds(),
	}, nil
}

func (s *renderService) GetRenderStatus(ctx context.Context, projectID, tenantID uuid.UUID) (*dto.RenderStatusResponse, error) {
	project, err := s.repo.FindVideoProject(ctx, projectID, tenantID)
	if err != nil {
		if isNotFound(err) {
			return nil, apperr.NotFound("video project %s not found", projectID)
		}
		return nil, err
	}

	if !project.Status.Processing() {
		return &dto.RenderStatusResponse{
			ProjectID: project.ID,
			Status:    project.Status,
			Progress:  100,
			OutputURL: project.OutputURL,
		}, nil
	}

	task, payload, err := findActiveTask(ctx, s.queue, queue.QueueRender, projectID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		// Queued work finished (or was lost) between the status write and now;
		// report the persisted status as-is.
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

func (s *renderService) CancelRender(ctx context.Context, projectID, tenantID uuid.UUID) (*dto.CancelRenderResponse, error) {
	project, err := s.repo.FindVideoProject(ctx, projectID, tenantID)
	if err != nil {
		if isNotFound(err) {
			return nil, apperr.NotFound("video project %s not found", projectID)
		}
		return nil, err
	}

	if project.Status != constant.ProjectStatusRendering {
		return nil, apperr.BadRequest("video project is not currently rendering")
	}

	task, _, err := findActiveTask(ctx, s.queue, queue.QueueRender, projectID)
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

	// Reset only if the worker has not finished in the meantime; a render that
	// completed underneath the cancel keeps its terminal state.
	ok, err := s.repo.UpdateVideoStatusIf(ctx, projectID, tenantID, constant.ProjectStatusRendering, constant.ProjectStatusDraft)
	if err != nil {
		return nil, err
	}
	if !ok {
		current, err := s.repo.FindVideoProject(ctx, projectID, tenantID)
		if err != nil {
			return nil, err
		}
		return &dto.CancelRenderResponse{
			ProjectID: project.ID,
			Status:    current.Status,
			Cancelled: false,
		}, nil
	}

	zerolog.Ctx(ctx).Info().Str("project_id", projectID.String()).Msg("render cancelled")

	return &dto.CancelRenderResponse{
		ProjectID: project.ID,
		Status:    constant.ProjectStatusDraft,
		Cancelled: true,
	}, nil
}

func (s *renderService) RetryRender(ctx context.Context, projectID, tenantID uuid.UUID) (*dto.StartRenderResponse, error) {
	project, err := s.repo.FindVideoProject(ctx, projectID, tenantID)
	if err != nil {
		if isNotFound(err) {
			return nil, apperr.NotFound("video project %s not found", projectID)
		}
		return nil, err
	}

	if project.Status != constant.ProjectStatusFailed {
		return nil, apperr.BadRequest("video project is not in a failed state")
	}

	opts := dto.RenderOptions{}.WithVideoDefaults()
	lastFailed, err := s.repo.LatestFailedRenderJob(ctx, projectID, tenantID)
	if err != nil {
		if !isNotFound(err) {
			return nil, err
		}
	} else {
		opts = decodeOptions(lastFailed.Metadata, opts)
	}

	// Retry replays the last known options as a fresh attempt.
	return s.StartRender(ctx, projectID, tenantID, opts)
}

func (s *renderService) GetRenderHistory(ctx context.Context, projectID, tenantID uuid.UUID) ([]dto.RenderHistoryEntry, error) {
	if _, err := s.repo.FindVideoProject(ctx, projectID, tenantID); err != nil {
		if isNotFound(err) {
			return nil, apperr.NotFound("video project %s not found", projectID)
		}
		return nil, err
	}

	jobs, err := s.repo.ListRenderJobs(ctx, projectID, tenantID)
	if err != nil {
		return nil, err
	}

	return historyEntries(jobs), nil
}

func historyEntries(jobs []*entities.RenderJob) []dto.RenderHistoryEntry {
	entries := make([]dto.RenderHistoryEntry, 0, len(jobs))
	for _, job := range jobs {
		entry := dto.RenderHistoryEntry{
			JobID:      job.ID,
			Type:       job.Type,
			Status:     job.Status,
			BatchJobID: job.BatchJobID,
			Error:      job.Error,
			CreatedAt:  job.CreatedAt.Format(time.RFC3339),
		}
		if job.CompletedAt != nil {
			entry.CompletedAt = job.CompletedAt.Format(time.RFC3339)
		}
		if len(job.Metadata) > 0 {
			var opts dto.RenderOptions
			if err := json.Unmarshal(job.Metadata, &opts); err == nil {
				entry.Options = &opts
			}
		}
		if len(job.Result) > 0 {
			var result dto.JobResultData
			if err := json.Unmarshal(job.Result, &result); err == nil {
				entry.Result = &result
			}
		}
		entries = append(entries, entry)
	}
	return entries
}
