package provider

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"render-orchestrator/dto"
)

// Mock is a deterministic in-memory Provider for tests and local development.
// A submitted job stays pending for PendingPolls status calls, then reports
// the configured terminal result.
type Mock struct {
	mu sync.Mutex

	// PendingPolls is how many GetJobStatus calls return pending before the
	// job completes. Negative means the job never terminates.
	PendingPolls int
	// FailWith, when non-empty, makes every job terminate as failed with this
	// message instead of completing.
	FailWith string
	// SubmitErr, when set, is returned by SubmitJob.
	SubmitErr error
	// OutputURL is the artifact URL reported on completion.
	OutputURL string

	jobs      map[string]*mockJob
	submitted []SubmitRequest
}

type mockJob struct {
	req   SubmitRequest
	polls int
	done  bool
}

func NewMock() *Mock {
	return &Mock{
		OutputURL: "https://renderer.local/out/artifact",
		jobs:      map[string]*mockJob{},
	}
}

func (m *Mock) SubmitJob(ctx context.Context, req SubmitRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SubmitErr != nil {
		return "", m.SubmitErr
	}
	id := uuid.NewString()
	m.jobs[id] = &mockJob{req: req}
	m.submitted = append(m.submitted, req)
	return id, nil
}

func (m *Mock) GetJobStatus(ctx context.Context, jobID string) (*Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("unknown job %s", jobID)
	}

	job.polls++
	if m.PendingPolls < 0 || job.polls <= m.PendingPolls {
		return &Result{Status: StatusPending}, nil
	}

	job.done = true
	if m.FailWith != "" {
		return &Result{Status: StatusFailed, Error: m.FailWith}, nil
	}
	return &Result{
		Status:    StatusCompleted,
		OutputURL: m.OutputURL,
		Metadata: Metadata{
			RenderTimeMS: int64(job.polls) * 100,
			FileSize:     1 << 20,
		},
	}, nil
}

func (m *Mock) CancelJob(ctx context.Context, jobID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok || job.done {
		return false, nil
	}
	delete(m.jobs, jobID)
	return true, nil
}

func (m *Mock) SupportedFormats() []string {
	return []string{"MP4", "WEBM", "PDF", "PNG"}
}

func (m *Mock) EstimateRenderTime(opts dto.RenderOptions) time.Duration {
	return 45 * time.Second
}

// Submitted returns a copy of every submit request seen so far.
func (m *Mock) Submitted() []SubmitRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SubmitRequest, len(m.submitted))
	copy(out, m.submitted)
	return out
}
