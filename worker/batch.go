package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"render-orchestrator/constant"
	"render-orchestrator/dto"
	"render-orchestrator/entities"
)

// HandleBatchExport processes a print batch sequentially. One project's
// failure is recorded on that project only; the rest of the batch continues.
func (p *Processor) HandleBatchExport(ctx context.Context, t *asynq.Task) error {
	var payload dto.BatchExportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal batch payload: %w", asynq.SkipRetry)
	}

	log := zerolog.Ctx(ctx).With().
		Str("batch_id", payload.BatchID).
		Int("projects", len(payload.ProjectIDs)).
		Logger()
	log.Info().Msg("starting batch export")

	ops := printOps{repo: p.repo}
	taskID := p.recordID(ctx)
	results := make([]dto.BatchItemResult, 0, len(payload.ProjectIDs))

	for i, projectID := range payload.ProjectIDs {
		results = append(results, p.exportBatchItem(ctx, ops, payload, projectID, fmt.Sprintf("%s:%d", taskID, i), log))
	}

	if err := p.writeBatchRecord(ctx, taskID, payload, results); err != nil {
		log.Error().Err(err).Msg("failed to write batch record")
		return err
	}

	log.Info().Msg("batch export finished")
	return nil
}

func (p *Processor) exportBatchItem(ctx context.Context, ops printOps, batch dto.BatchExportPayload, projectID uuid.UUID, recordID string, log zerolog.Logger) dto.BatchItemResult {
	itemLog := log.With().Str("project_id", projectID.String()).Logger()

	project, err := p.repo.FindPrintProject(ctx, projectID, batch.TenantID)
	if err != nil {
		itemLog.Error().Err(err).Msg("batch item lookup failed")
		return dto.BatchItemResult{ProjectID: projectID, Status: constant.JobStatusFailed, Error: err.Error()}
	}

	switch project.Status {
	case constant.ProjectStatusExported:
		// Redelivered batch: this item already finished.
		return dto.BatchItemResult{ProjectID: projectID, Status: constant.JobStatusCompleted}
	case constant.ProjectStatusDraft:
		return dto.BatchItemResult{ProjectID: projectID, Status: constant.JobStatusFailed, Error: "project no longer active"}
	case constant.ProjectStatusFailed:
		if err := ops.setStatus(ctx, projectID, constant.ProjectStatusExporting); err != nil {
			return dto.BatchItemResult{ProjectID: projectID, Status: constant.JobStatusFailed, Error: err.Error()}
		}
	}

	itemPayload := dto.RenderTaskPayload{
		ProjectID: project.ID,
		TenantID:  project.TenantID,
		Kind:      constant.ProjectKindPrint,
		Title:     project.Title,
		Content:   project.Content,
		BrandID:   project.BrandID,
		Options:   batch.Options,
	}

	if err := p.createJobRecord(ctx, recordID, batch.BatchID, constant.JobTypePrintExport, itemPayload); err != nil {
		itemLog.Error().Err(err).Msg("failed to create batch item record")
		return dto.BatchItemResult{ProjectID: projectID, Status: constant.JobStatusFailed, Error: err.Error()}
	}

	result, runErr := p.executeAttempt(ctx, ops, p.printProvider, itemPayload, itemLog)
	if runErr != nil {
		p.recordFailure(ctx, ops, itemPayload, recordID, runErr, itemLog)
		return dto.BatchItemResult{ProjectID: projectID, Status: constant.JobStatusFailed, Error: runErr.Error()}
	}

	if err := p.recordSuccess(ctx, ops, itemPayload, recordID, result, itemLog); err != nil {
		itemLog.Error().Err(err).Msg("failed to record batch item success")
		return dto.BatchItemResult{ProjectID: projectID, Status: constant.JobStatusFailed, Error: err.Error()}
	}

	return dto.BatchItemResult{ProjectID: projectID, Status: constant.JobStatusCompleted, StorageKey: result.StorageKey}
}

// writeBatchRecord persists the overall batch ledger row with the per-project
// outcomes. The batch row carries no project id of its own.
func (p *Processor) writeBatchRecord(ctx context.Context, taskID string, payload dto.BatchExportPayload, results []dto.BatchItemResult) error {
	status := constant.JobStatusCompleted
	allFailed := true
	for _, r := range results {
		if r.Status == constant.JobStatusCompleted {
			allFailed = false
			break
		}
	}
	if allFailed && len(results) > 0 {
		status = constant.JobStatusFailed
	}

	metadata, err := json.Marshal(payload.Options)
	if err != nil {
		return err
	}
	resultJSON, err := json.Marshal(results)
	if err != nil {
		return err
	}

	now := p.now()
	return p.repo.CreateRenderJob(ctx, &entities.RenderJob{
		ID:          fmt.Sprintf("%s:batch", taskID),
		ProjectID:   uuid.Nil,
		TenantID:    payload.TenantID,
		Type:        constant.JobTypePrintExport,
		Status:      status,
		BatchJobID:  payload.BatchID,
		Metadata:    metadata,
		Result:      resultJSON,
		CreatedAt:   now,
		CompletedAt: &now,
	})
}
