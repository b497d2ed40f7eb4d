package constant

type ProjectKind string

const (
	ProjectKindVideo ProjectKind = "video"
	ProjectKindPrint ProjectKind = "print"
)

func (k ProjectKind) String() string {
	return string(k)
}

type ProjectStatus string

const (
	ProjectStatusDraft     ProjectStatus = "DRAFT"
	ProjectStatusRendering ProjectStatus = "RENDERING"
	ProjectStatusExporting ProjectStatus = "EXPORTING"
	ProjectStatusRendered  ProjectStatus = "RENDERED"
	ProjectStatusExported  ProjectStatus = "EXPORTED"
	ProjectStatusFailed    ProjectStatus = "FAILED"
)

func (s ProjectStatus) Terminal() bool {
	return s == ProjectStatusRendered || s == ProjectStatusExported || s == ProjectStatusFailed
}

// Processing reports whether a render or export attempt is currently in flight.
func (s ProjectStatus) Processing() bool {
	return s == ProjectStatusRendering || s == ProjectStatusExporting
}

type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusFailed     JobStatus = "FAILED"
)

func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

type JobType string

const (
	JobTypeVideoRender JobType = "VIDEO_RENDER"
	JobTypePrintExport JobType = "PRINT_EXPORT"
)

type Environment string

const (
	EnvironmentProduction Environment = "production"
	EnvironmentStaging    Environment = "staging"
	EnvironmentDevelop    Environment = "develop"
)

func (e Environment) String() string {
	return string(e)
}
