package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"render-orchestrator/apperr"
	"render-orchestrator/constant"
	"render-orchestrator/dto"
	"render-orchestrator/entities"
	"render-orchestrator/provider"
	"render-orchestrator/queue"
)

func newPrintProject(tenantID uuid.UUID, status constant.ProjectStatus) *entities.PrintProject {
	return &entities.PrintProject{
		ID:        uuid.New(),
		TenantID:  tenantID,
		BrandID:   uuid.New(),
		Title:     "Summer sale flyer",
		Content:   "Two-sided A5, hero image plus price grid.",
		Status:    status,
		CreatedAt: time.Now().Add(-time.Hour),
		UpdatedAt: time.Now().Add(-time.Hour),
	}
}

func TestStartExportDefaultsToPDF(t *testing.T) {
	repo := newFakeRepo()
	q := &fakeQueue{}
	tenantID := uuid.New()
	project := newPrintProject(tenantID, constant.ProjectStatusDraft)
	repo.prints[project.ID] = project

	svc := NewExportService(repo, q, provider.NewMock())
	resp, err := svc.StartExport(context.Background(), project.ID, tenantID, dto.RenderOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != constant.ProjectStatusExporting {
		t.Errorf("expected status EXPORTING, got %s", resp.Status)
	}

	tasks, _ := q.ListActive(context.Background(), queue.QueueExport)
	if len(tasks) != 1 {
		t.Fatalf("expected 1 queued task, got %d", len(tasks))
	}
	var payload dto.RenderTaskPayload
	if err := json.Unmarshal(tasks[0].Payload, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.Kind != constant.ProjectKindPrint {
		t.Errorf("expected print payload, got %s", payload.Kind)
	}
	if payload.Options.Format != dto.DefaultPrintFormat {
		t.Errorf("expected default format PDF, got %s", payload.Options.Format)
	}
}

func TestStartBatchExport(t *testing.T) {
	repo := newFakeRepo()
	q := &fakeQueue{}
	tenantID := uuid.New()

	ids := make([]uuid.UUID, 0, 3)
	for i := 0; i < 3; i++ {
		project := newPrintProject(tenantID, constant.ProjectStatusDraft)
		repo.prints[project.ID] = project
		ids = append(ids, project.ID)
	}

	svc := NewExportService(repo, q, provider.NewMock())
	resp, err := svc.StartBatchExport(context.Background(), ids, tenantID, dto.RenderOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.BatchID == "" {
		t.Error("expected a batch id")
	}
	if len(resp.ProjectIDs) != 3 {
		t.Errorf("expected 3 project ids, got %d", len(resp.ProjectIDs))
	}
	for _, id := range ids {
		if repo.prints[id].Status != constant.ProjectStatusExporting {
			t.Errorf("project %s expected EXPORTING, got %s", id, repo.prints[id].Status)
		}
	}

	tasks, _ := q.ListActive(context.Background(), queue.QueueExport)
	if len(tasks) != 1 {
		t.Fatalf("expected a single batch task, got %d", len(tasks))
	}
	if tasks[0].Type != queue.TaskBatchExport {
		t.Errorf("expected task %s, got %s", queue.TaskBatchExport, tasks[0].Type)
	}
	var payload dto.BatchExportPayload
	if err := json.Unmarshal(tasks[0].Payload, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.BatchID != resp.BatchID {
		t.Errorf("payload batch id %s does not match response %s", payload.BatchID, resp.BatchID)
	}
	if len(payload.ProjectIDs) != 3 {
		t.Errorf("expected 3 project ids in payload, got %d", len(payload.ProjectIDs))
	}
	if payload.Options.Format != dto.DefaultPrintFormat {
		t.Errorf("expected default format PDF, got %s", payload.Options.Format)
	}
}

func TestStartBatchExportValidatesBeforeAnyWrite(t *testing.T) {
	tenantID := uuid.New()

	tests := []struct {
		name     string
		mangle   func(p *entities.PrintProject)
		wantCode apperr.Code
	}{
		{
			name:     "empty content",
			mangle:   func(p *entities.PrintProject) { p.Content = "" },
			wantCode: apperr.CodeBadRequest,
		},
		{
			name:     "already exporting",
			mangle:   func(p *entities.PrintProject) { p.Status = constant.ProjectStatusExporting },
			wantCode: apperr.CodeBadRequest,
		},
		{
			name:     "unknown project",
			mangle:   func(p *entities.PrintProject) { p.TenantID = uuid.New() },
			wantCode: apperr.CodeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeRepo()
			q := &fakeQueue{}

			good := newPrintProject(tenantID, constant.ProjectStatusDraft)
			bad := newPrintProject(tenantID, constant.ProjectStatusDraft)
			tt.mangle(bad)
			repo.prints[good.ID] = good
			repo.prints[bad.ID] = bad

			svc := NewExportService(repo, q, provider.NewMock())
			_, err := svc.StartBatchExport(context.Background(), []uuid.UUID{good.ID, bad.ID}, tenantID, dto.RenderOptions{})
			if apperr.CodeOf(err) != tt.wantCode {
				t.Fatalf("expected code %s, got %v", tt.wantCode, err)
			}
			// The healthy project must be untouched by the rejected batch.
			if good.Status != constant.ProjectStatusDraft {
				t.Errorf("expected DRAFT, got %s", good.Status)
			}
			if tasks, _ := q.ListActive(context.Background(), queue.QueueExport); len(tasks) != 0 {
				t.Errorf("expected no queued tasks, got %d", len(tasks))
			}
		})
	}
}

func TestStartBatchExportEmpty(t *testing.T) {
	svc := NewExportService(newFakeRepo(), &fakeQueue{}, provider.NewMock())
	if _, err := svc.StartBatchExport(context.Background(), nil, uuid.New(), dto.RenderOptions{}); apperr.CodeOf(err) != apperr.CodeBadRequest {
		t.Fatalf("expected bad request, got %v", err)
	}
}

func TestStartBatchExportRollsBackOnEnqueueFailure(t *testing.T) {
	repo := newFakeRepo()
	q := &fakeQueue{enqueueErr: errors.New("redis unavailable")}
	tenantID := uuid.New()

	ids := make([]uuid.UUID, 0, 2)
	for i := 0; i < 2; i++ {
		project := newPrintProject(tenantID, constant.ProjectStatusDraft)
		repo.prints[project.ID] = project
		ids = append(ids, project.ID)
	}

	svc := NewExportService(repo, q, provider.NewMock())
	if _, err := svc.StartBatchExport(context.Background(), ids, tenantID, dto.RenderOptions{}); err == nil {
		t.Fatal("expected enqueue failure to surface")
	}
	for _, id := range ids {
		if repo.prints[id].Status != constant.ProjectStatusDraft {
			t.Errorf("project %s expected rollback to DRAFT, got %s", id, repo.prints[id].Status)
		}
	}
}

func TestStartBatchExportAcceptsFailedProjects(t *testing.T) {
	repo := newFakeRepo()
	q := &fakeQueue{}
	tenantID := uuid.New()

	draft := newPrintProject(tenantID, constant.ProjectStatusDraft)
	failed := newPrintProject(tenantID, constant.ProjectStatusFailed)
	repo.prints[draft.ID] = draft
	repo.prints[failed.ID] = failed

	svc := NewExportService(repo, q, provider.NewMock())
	if _, err := svc.StartBatchExport(context.Background(), []uuid.UUID{draft.ID, failed.ID}, tenantID, dto.RenderOptions{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if draft.Status != constant.ProjectStatusExporting || failed.Status != constant.ProjectStatusExporting {
		t.Errorf("expected both EXPORTING, got %s and %s", draft.Status, failed.Status)
	}
}

func TestCancelExport(t *testing.T) {
	repo := newFakeRepo()
	q := &fakeQueue{}
	tenantID := uuid.New()
	project := newPrintProject(tenantID, constant.ProjectStatusDraft)
	repo.prints[project.ID] = project

	svc := NewExportService(repo, q, provider.NewMock())
	if _, err := svc.StartExport(context.Background(), project.ID, tenantID, dto.RenderOptions{}); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	resp, err := svc.CancelExport(context.Background(), project.ID, tenantID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.Cancelled {
		t.Error("expected cancelled=true")
	}
	if repo.prints[project.ID].Status != constant.ProjectStatusDraft {
		t.Errorf("expected persisted status DRAFT, got %s", repo.prints[project.ID].Status)
	}
}
