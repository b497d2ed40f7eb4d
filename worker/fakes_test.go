package worker

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"render-orchestrator/constant"
	"render-orchestrator/dto"
	"render-orchestrator/entities"
	"render-orchestrator/provider"
	"render-orchestrator/queue"
)

type fakeRepo struct {
	mu     sync.Mutex
	videos map[uuid.UUID]*entities.VideoProject
	prints map[uuid.UUID]*entities.PrintProject
	jobs   []*entities.RenderJob
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		videos: map[uuid.UUID]*entities.VideoProject{},
		prints: map[uuid.UUID]*entities.PrintProject{},
	}
}

func (r *fakeRepo) Transaction(ctx context.Context, callback func(ctx context.Context) error, opts ...*sql.TxOptions) error {
	return callback(ctx)
}

func (r *fakeRepo) GetDB() *gorm.DB {
	return nil
}

func (r *fakeRepo) FindVideoProject(ctx context.Context, id, tenantID uuid.UUID) (*entities.VideoProject, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	project, ok := r.videos[id]
	if !ok || project.TenantID != tenantID {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *project
	return &clone, nil
}

func (r *fakeRepo) UpdateVideoStatusIf(ctx context.Context, id, tenantID uuid.UUID, from, to constant.ProjectStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	project, ok := r.videos[id]
	if !ok || project.TenantID != tenantID || project.Status != from {
		return false, nil
	}
	project.Status = to
	project.UpdatedAt = time.Now()
	return true, nil
}

func (r *fakeRepo) SetVideoStatus(ctx context.Context, id uuid.UUID, status constant.ProjectStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	project, ok := r.videos[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	project.Status = status
	return nil
}

func (r *fakeRepo) SetVideoProviderJobID(ctx context.Context, id uuid.UUID, providerJobID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	project, ok := r.videos[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	project.ProviderJobID = providerJobID
	return nil
}

func (r *fakeRepo) SetVideoOutput(ctx context.Context, id uuid.UUID, outputURL string, renderedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	project, ok := r.videos[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	project.Status = constant.ProjectStatusRendered
	project.OutputURL = outputURL
	project.RenderedAt = &renderedAt
	return nil
}

func (r *fakeRepo) FindPrintProject(ctx context.Context, id, tenantID uuid.UUID) (*entities.PrintProject, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	project, ok := r.prints[id]
	if !ok || project.TenantID != tenantID {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *project
	return &clone, nil
}

func (r *fakeRepo) UpdatePrintStatusIf(ctx context.Context, id, tenantID uuid.UUID, from, to constant.ProjectStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	project, ok := r.prints[id]
	if !ok || project.TenantID != tenantID || project.Status != from {
		return false, nil
	}
	project.Status = to
	project.UpdatedAt = time.Now()
	return true, nil
}

func (r *fakeRepo) SetPrintStatus(ctx context.Context, id uuid.UUID, status constant.ProjectStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	project, ok := r.prints[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	project.Status = status
	return nil
}

func (r *fakeRepo) SetPrintProviderJobID(ctx context.Context, id uuid.UUID, providerJobID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	project, ok := r.prints[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	project.ProviderJobID = providerJobID
	return nil
}

func (r *fakeRepo) SetPrintOutput(ctx context.Context, id uuid.UUID, exportURL string, exportedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	project, ok := r.prints[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	project.Status = constant.ProjectStatusExported
	project.ExportURL = exportURL
	project.ExportedAt = &exportedAt
	return nil
}

func (r *fakeRepo) CreateRenderJob(ctx context.Context, job *entities.RenderJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *job
	r.jobs = append(r.jobs, &clone)
	return nil
}

func (r *fakeRepo) CompleteRenderJob(ctx context.Context, id string, result []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, job := range r.jobs {
		if job.ID == id && job.Status == constant.JobStatusProcessing {
			now := time.Now()
			job.Status = constant.JobStatusCompleted
			job.Result = result
			job.CompletedAt = &now
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *fakeRepo) FailRenderJob(ctx context.Context, id string, errMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, job := range r.jobs {
		if job.ID == id && !job.Status.Terminal() {
			now := time.Now()
			job.Status = constant.JobStatusFailed
			job.Error = errMsg
			job.CompletedAt = &now
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *fakeRepo) ListRenderJobs(ctx context.Context, projectID, tenantID uuid.UUID) ([]*entities.RenderJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.RenderJob
	for _, job := range r.jobs {
		if job.ProjectID == projectID && job.TenantID == tenantID {
			clone := *job
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeRepo) LatestFailedRenderJob(ctx context.Context, projectID, tenantID uuid.UUID) (*entities.RenderJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.jobs) - 1; i >= 0; i-- {
		job := r.jobs[i]
		if job.ProjectID == projectID && job.TenantID == tenantID && job.Status == constant.JobStatusFailed {
			clone := *job
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeQueue struct {
	mu     sync.Mutex
	tasks  []queue.ActiveTask
	nextID int
}

func (q *fakeQueue) Enqueue(ctx context.Context, taskName string, payload any) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	q.nextID++
	id := fmt.Sprintf("task-%d", q.nextID)
	q.tasks = append(q.tasks, queue.ActiveTask{
		ID:      id,
		Type:    taskName,
		Payload: body,
		Queue:   queue.QueueFor(taskName),
	})
	return id, nil
}

func (q *fakeQueue) ListActive(ctx context.Context, queueName string) ([]queue.ActiveTask, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []queue.ActiveTask
	for _, t := range q.tasks {
		if t.Queue == queueName {
			out = append(out, t)
		}
	}
	return out, nil
}

func (q *fakeQueue) Remove(ctx context.Context, queueName, taskID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, t := range q.tasks {
		if t.ID == taskID && t.Queue == queueName {
			q.tasks = append(q.tasks[:i], q.tasks[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("task %s not found in queue %s", taskID, queueName)
}

func (q *fakeQueue) events(t *testing.T) []dto.EventPayload {
	t.Helper()
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []dto.EventPayload
	for _, task := range q.tasks {
		if task.Type != queue.TaskPublishEvent {
			continue
		}
		var event dto.EventPayload
		if err := json.Unmarshal(task.Payload, &event); err != nil {
			t.Fatalf("unmarshal event payload: %v", err)
		}
		out = append(out, event)
	}
	return out
}

type fakeStore struct {
	mu      sync.Mutex
	keys    []string
	sources []string
	err     error
}

func (s *fakeStore) UploadFromURL(ctx context.Context, key, sourceURL string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.keys = append(s.keys, key)
	s.sources = append(s.sources, sourceURL)
	return "assets/" + key, nil
}

// stubProvider gives per-call control where provider.Mock's uniform behavior
// is not enough, e.g. failing a single project inside a batch.
type stubProvider struct {
	mu       sync.Mutex
	submit   func(req provider.SubmitRequest) (string, error)
	status   func(jobID string) (*provider.Result, error)
	statuses int
}

func (s *stubProvider) SubmitJob(ctx context.Context, req provider.SubmitRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submit != nil {
		return s.submit(req)
	}
	return "job-" + req.ProjectID, nil
}

func (s *stubProvider) GetJobStatus(ctx context.Context, jobID string) (*provider.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses++
	if s.status != nil {
		return s.status(jobID)
	}
	return &provider.Result{Status: provider.StatusCompleted, OutputURL: "https://renderer.local/out/" + jobID}, nil
}

func (s *stubProvider) CancelJob(ctx context.Context, jobID string) (bool, error) {
	return false, nil
}

func (s *stubProvider) SupportedFormats() []string {
	return []string{"PDF"}
}

func (s *stubProvider) EstimateRenderTime(opts dto.RenderOptions) time.Duration {
	return 30 * time.Second
}
