package worker

import (
	"context"
	"time"

	"github.com/google/uuid"

	"render-orchestrator/constant"
	"render-orchestrator/repository"
)

// projectOps narrows the repository to the writes one project kind needs, so
// the render pipeline runs identically for video and print rows.
type projectOps interface {
	kind() constant.ProjectKind
	jobType() constant.JobType
	status(ctx context.Context, id, tenantID uuid.UUID) (constant.ProjectStatus, error)
	setStatus(ctx context.Context, id uuid.UUID, status constant.ProjectStatus) error
	setProviderJobID(ctx context.Context, id uuid.UUID, providerJobID string) error
	setOutput(ctx context.Context, id uuid.UUID, outputURL string, at time.Time) error
	failIfActive(ctx context.Context, id, tenantID uuid.UUID) (bool, error)
}

type videoOps struct {
	repo repository.Repository
}

func (o videoOps) kind() constant.ProjectKind {
	return constant.ProjectKindVideo
}

func (o videoOps) jobType() constant.JobType {
	return constant.JobTypeVideoRender
}

func (o videoOps) status(ctx context.Context, id, tenantID uuid.UUID) (constant.ProjectStatus, error) {
	project, err := o.repo.FindVideoProject(ctx, id, tenantID)
	if err != nil {
		return "", err
	}
	return project.Status, nil
}

func (o videoOps) setStatus(ctx context.Context, id uuid.UUID, status constant.ProjectStatus) error {
	return o.repo.SetVideoStatus(ctx, id, status)
}

func (o videoOps) setProviderJobID(ctx context.Context, id uuid.UUID, providerJobID string) error {
	return o.repo.SetVideoProviderJobID(ctx, id, providerJobID)
}

func (o videoOps) setOutput(ctx context.Context, id uuid.UUID, outputURL string, at time.Time) error {
	return o.repo.SetVideoOutput(ctx, id, outputURL, at)
}

func (o videoOps) failIfActive(ctx context.Context, id, tenantID uuid.UUID) (bool, error) {
	return o.repo.UpdateVideoStatusIf(ctx, id, tenantID, constant.ProjectStatusRendering, constant.ProjectStatusFailed)
}

type printOps struct {
	repo repository.Repository
}

func (o printOps) kind() constant.ProjectKind {
	return constant.ProjectKindPrint
}

func (o printOps) jobType() constant.JobType {
	return constant.JobTypePrintExport
}

func (o printOps) status(ctx context.Context, id, tenantID uuid.UUID) (constant.ProjectStatus, error) {
	project, err := o.repo.FindPrintProject(ctx, id, tenantID)
	if err != nil {
		return "", err
	}
	return project.Status, nil
}

func (o printOps) setStatus(ctx context.Context, id uuid.UUID, status constant.ProjectStatus) error {
	return o.repo.SetPrintStatus(ctx, id, status)
}

func (o printOps) setProviderJobID(ctx context.Context, id uuid.UUID, providerJobID string) error {
	return o.repo.SetPrintProviderJobID(ctx, id, providerJobID)
}

func (o printOps) setOutput(ctx context.Context, id uuid.UUID, outputURL string, at time.Time) error {
	return o.repo.SetPrintOutput(ctx, id, outputURL, at)
}

func (o printOps) failIfActive(ctx context.Context, id, tenantID uuid.UUID) (bool, error) {
	return o.repo.UpdatePrintStatusIf(ctx, id, tenantID, constant.ProjectStatusExporting, constant.ProjectStatusFailed)
}
