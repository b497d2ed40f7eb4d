package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"render-orchestrator/constant"
	"render-orchestrator/entities"
)

// Repository is the persistence boundary of the render core. Project status is
// only ever written through these methods; UpdateVideoStatusIf and
// UpdatePrintStatusIf are conditional writes so concurrent starts and cancels
// cannot race past the status precondition.
type Repository interface {
	Transaction(ctx context.Context, callback func(ctx context.Context) error, opts ...*sql.TxOptions) error
	GetDB() *gorm.DB

	FindVideoProject(ctx context.Context, id, tenantID uuid.UUID) (*entities.VideoProject, error)
	UpdateVideoStatusIf(ctx context.Context, id, tenantID uuid.UUID, from, to constant.ProjectStatus) (bool, error)
	SetVideoStatus(ctx context.Context, id uuid.UUID, status constant.ProjectStatus) error
	SetVideoProviderJobID(ctx context.Context, id uuid.UUID, providerJobID string) error
	SetVideoOutput(ctx context.Context, id uuid.UUID, outputURL string, renderedAt time.Time) error

	FindPrintProject(ctx context.Context, id, tenantID uuid.UUID) (*entities.PrintProject, error)
	UpdatePrintStatusIf(ctx context.Context, id, tenantID uuid.UUID, from, to constant.ProjectStatus) (bool, error)
	SetPrintStatus(ctx context.Context, id uuid.UUID, status constant.ProjectStatus) error
	SetPrintProviderJobID(ctx context.Context, id uuid.UUID, providerJobID string) error
	SetPrintOutput(ctx context.Context, id uuid.UUID, exportURL string, exportedAt time.Time) error

	CreateRenderJob(ctx context.Context, job *entities.RenderJob) error
	CompleteRenderJob(ctx context.Context, id string, result []byte) error
	FailRenderJob(ctx context.Context, id string, errMsg string) error
	ListRenderJobs(ctx context.Context, projectID, tenantID uuid.UUID) ([]*entities.RenderJob, error)
	LatestFailedRenderJob(ctx context.Context, projectID, tenantID uuid.UUID) (*entities.RenderJob, error)
}

type repo struct {
	db *gorm.DB
}

func NewRepo(db *sql.DB) Repository {
	gormDB, _ := gorm.Open(postgres.New(postgres.Config{
		Conn: db}),
		&gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		},
	)
	return &repo{
		db: gormDB,
	}
}

func (r *repo) GetDB() *gorm.DB {
	return r.db
}

func (r *repo) Transaction(ctx context.Context, callback func(ctx context.Context) error, opts ...*sql.TxOptions) error {
	return r.GetDB().Transaction(func(tx *gorm.DB) error {
		return callback(ctx)
	}, opts...)
}
