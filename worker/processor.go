package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"render-orchestrator/constant"
	"render-orchestrator/dto"
	"render-orchestrator/entities"
	"render-orchestrator/provider"
	"render-orchestrator/queue"
	"render-orchestrator/repository"
	"render-orchestrator/statemachine"
	"render-orchestrator/storage"
)

// ErrNonRetryable marks failures the queue must not re-drive: the renderer
// looked at the input and rejected it. Transport errors and poll timeouts stay
// retryable.
var ErrNonRetryable = errors.New("non-retryable error")

const (
	defaultPollInterval    = 5 * time.Second
	defaultMaxPollAttempts = 60
)

// Processor consumes queued render/export tasks and drives them through the
// provider until a terminal state, performing every persisted side effect.
type Processor struct {
	repo          repository.Repository
	videoProvider provider.Provider
	printProvider provider.Provider
	store         storage.BlobStore
	queue         queue.Queue

	pollInterval    time.Duration
	maxPollAttempts int
	sleep           func(ctx context.Context, d time.Duration) error
	now             func() time.Time
}

func NewProcessor(repo repository.Repository, videoProvider, printProvider provider.Provider, store storage.BlobStore, q queue.Queue) *Processor {
	return &Processor{
		repo:            repo,
		videoProvider:   videoProvider,
		printProvider:   printProvider,
		store:           store,
		queue:           q,
		pollInterval:    defaultPollInterval,
		maxPollAttempts: defaultMaxPollAttempts,
		sleep:           sleepCtx,
		now:             time.Now,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Processor) HandleVideoRender(ctx context.Context, t *asynq.Task) error {
	var payload dto.RenderTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal render payload: %w", asynq.SkipRetry)
	}
	return p.runTask(ctx, videoOps{repo: p.repo}, p.videoProvider, payload)
}

func (p *Processor) HandlePrintExport(ctx context.Context, t *asynq.Task) error {
	var payload dto.RenderTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal export payload: %w", asynq.SkipRetry)
	}
	return p.runTask(ctx, printOps{repo: p.repo}, p.printProvider, payload)
}

// runTask is the single-project pipeline behind both queue handlers. Errors
// returned from here flow back into asynq's retry policy; ErrNonRetryable is
// translated into SkipRetry so explicit provider rejections stay terminal.
func (p *Processor) runTask(ctx context.Context, ops projectOps, prov provider.Provider, payload dto.RenderTaskPayload) error {
	log := zerolog.Ctx(ctx).With().
		Str("project_id", payload.ProjectID.String()).
		Str("kind", ops.kind().String()).
		Logger()

	status, err := ops.status(ctx, payload.ProjectID, payload.TenantID)
	if err != nil {
		return err
	}

	// At-least-once delivery: a redelivered task for a finished or cancelled
	// project must not mutate anything.
	switch {
	case status == statemachine.DoneStatus(ops.kind()):
		log.Info().Msg("project already finished, skipping task")
		return nil
	case status == constant.ProjectStatusDraft:
		log.Info().Msg("project no longer active, skipping task")
		return nil
	case status == constant.ProjectStatusFailed:
		// Queue-level retry re-drives the whole task after a recorded failure.
		if err := ops.setStatus(ctx, payload.ProjectID, statemachine.ActiveStatus(ops.kind())); err != nil {
			return err
		}
	}

	recordID := p.recordID(ctx)
	if err := p.createJobRecord(ctx, recordID, "", ops.jobType(), payload); err != nil {
		return err
	}

	result, runErr := p.executeAttempt(ctx, ops, prov, payload, log)
	if runErr != nil {
		p.recordFailure(ctx, ops, payload, recordID, runErr, log)
		if errors.Is(runErr, ErrNonRetryable) {
			return fmt.Errorf("%s: %w", runErr.Error(), asynq.SkipRetry)
		}
		return runErr
	}

	if err := p.recordSuccess(ctx, ops, payload, recordID, result, log); err != nil {
		return err
	}

	log.Info().Str("output_url", result.OutputURL).Msg("task completed")
	return nil
}

// attemptResult carries everything a finished attempt persists.
type attemptResult struct {
	OutputURL    string
	StorageKey   string
	FileSize     int64
	RenderTimeMS int64
}

func (p *Processor) executeAttempt(ctx context.Context, ops projectOps, prov provider.Provider, payload dto.RenderTaskPayload, log zerolog.Logger) (*attemptResult, error) {
	providerJobID, err := prov.SubmitJob(ctx, provider.SubmitRequest{
		ProjectID: payload.ProjectID.String(),
		Kind:      ops.kind().String(),
		Title:     payload.Title,
		Content:   payload.Content,
		BrandID:   payload.BrandID.String(),
		Options:   payload.Options,
	})
	if err != nil {
		return nil, fmt.Errorf("submit to provider: %w", err)
	}
	log.Info().Str("provider_job_id", providerJobID).Msg("submitted to provider")

	if err := ops.setProviderJobID(ctx, payload.ProjectID, providerJobID); err != nil {
		return nil, err
	}

	result, err := p.pollUntilTerminal(ctx, prov, providerJobID)
	if err != nil {
		return nil, err
	}
	if result.Status == provider.StatusFailed {
		msg := result.Error
		if msg == "" {
			msg = "provider reported failure"
		}
		return nil, fmt.Errorf("%w: %s", ErrNonRetryable, msg)
	}

	now := p.now()
	key := storage.ExportKey(ops.kind().String(), payload.ProjectID.String(), payload.Options.Format, now)
	storedURL, err := p.store.UploadFromURL(ctx, key, result.OutputURL)
	if err != nil {
		return nil, fmt.Errorf("upload artifact: %w", err)
	}

	return &attemptResult{
		OutputURL:    storedURL,
		StorageKey:   key,
		FileSize:     result.Metadata.FileSize,
		RenderTimeMS: result.Metadata.RenderTimeMS,
	}, nil
}

// pollUntilTerminal sleeps and re-checks the provider up to maxPollAttempts
// times. Past the ceiling it fails closed instead of waiting indefinitely.
func (p *Processor) pollUntilTerminal(ctx context.Context, prov provider.Provider, providerJobID string) (*provider.Result, error) {
	for attempt := 1; attempt <= p.maxPollAttempts; attempt++ {
		result, err := prov.GetJobStatus(ctx, providerJobID)
		if err != nil {
			return nil, fmt.Errorf("poll provider: %w", err)
		}
		if result.Terminal() {
			return result, nil
		}
		if attempt == p.maxPollAttempts {
			break
		}
		if err := p.sleep(ctx, p.pollInterval); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("render timed out after %d polling attempts", p.maxPollAttempts)
}

func (p *Processor) recordSuccess(ctx context.Context, ops projectOps, payload dto.RenderTaskPayload, recordID string, result *attemptResult, log zerolog.Logger) error {
	now := p.now()
	if err := ops.setOutput(ctx, payload.ProjectID, result.OutputURL, now); err != nil {
		return err
	}

	resultJSON, err := json.Marshal(dto.JobResultData{
		OutputURL:    result.OutputURL,
		StorageKey:   result.StorageKey,
		FileSize:     result.FileSize,
		RenderTimeMS: result.RenderTimeMS,
	})
	if err != nil {
		return err
	}
	if err := p.repo.CompleteRenderJob(ctx, recordID, resultJSON); err != nil {
		return err
	}

	p.publishEvent(ctx, ops, payload, string(statemachine.DoneStatus(ops.kind())), result.OutputURL, "", log)
	return nil
}

// recordFailure writes the FAILED state on both the project and the ledger row
// before the error is re-raised, so the persisted record and the raised error
// always agree.
func (p *Processor) recordFailure(ctx context.Context, ops projectOps, payload dto.RenderTaskPayload, recordID string, runErr error, log zerolog.Logger) {
	// Conditional write: a cancel that already reset the project to DRAFT is
	// not overwritten by a late-failing worker.
	if _, err := ops.failIfActive(ctx, payload.ProjectID, payload.TenantID); err != nil {
		log.Error().Err(err).Msg("failed to mark project failed")
	}
	if err := p.repo.FailRenderJob(ctx, recordID, runErr.Error()); err != nil {
		log.Error().Err(err).Msg("failed to mark job record failed")
	}
	p.publishEvent(ctx, ops, payload, string(constant.ProjectStatusFailed), "", runErr.Error(), log)
	log.Error().Err(runErr).Msg("task failed")
}

func (p *Processor) createJobRecord(ctx context.Context, recordID, batchID string, jobType constant.JobType, payload dto.RenderTaskPayload) error {
	metadata, err := json.Marshal(payload.Options)
	if err != nil {
		return err
	}
	return p.repo.CreateRenderJob(ctx, &entities.RenderJob{
		ID:         recordID,
		ProjectID:  payload.ProjectID,
		TenantID:   payload.TenantID,
		Type:       jobType,
		Status:     constant.JobStatusProcessing,
		BatchJobID: batchID,
		Metadata:   metadata,
		CreatedAt:  p.now(),
	})
}

// recordID derives the ledger row id from the queue task id so attempts stay
// correlatable; queue-level retries get a distinct suffixed id because
// terminal rows are never reopened.
func (p *Processor) recordID(ctx context.Context) string {
	taskID, ok := asynq.GetTaskID(ctx)
	if !ok {
		taskID = fmt.Sprintf("task-%d", p.now().UnixNano())
	}
	retried, _ := asynq.GetRetryCount(ctx)
	if retried > 0 {
		return fmt.Sprintf("%s:%d", taskID, retried)
	}
	return taskID
}

func (p *Processor) publishEvent(ctx context.Context, ops projectOps, payload dto.RenderTaskPayload, status, outputURL, errMsg string, log zerolog.Logger) {
	routingKey := "render." + eventOutcome(errMsg)
	if ops.kind() == constant.ProjectKindPrint {
		routingKey = "export." + eventOutcome(errMsg)
	}
	event := dto.EventPayload{
		RoutingKey: routingKey,
		ProjectID:  payload.ProjectID,
		TenantID:   payload.TenantID,
		Status:     status,
		OutputURL:  outputURL,
		Error:      errMsg,
	}
	if _, err := p.queue.Enqueue(ctx, queue.TaskPublishEvent, event); err != nil {
		log.Error().Err(err).Str("routing_key", routingKey).Msg("failed to enqueue lifecycle event")
	}
}

func eventOutcome(errMsg string) string {
	if errMsg != "" {
		return "failed"
	}
	return "completed"
}
