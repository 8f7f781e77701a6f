package store

import (
	"context"
	"errors"

	"github.com/agthegodyt04-cmyk/clipper/internal/model"
)

// ErrNotFound is returned when a project, job, or asset does not exist.
var ErrNotFound = errors.New("not found")

// ErrInvalidTransition is returned when a job status transition is not allowed.
var ErrInvalidTransition = errors.New("invalid status transition")

// JobUpdate carries the optional fields of a job mutation. Nil fields are
// left untouched.
type JobUpdate struct {
	Status   *string
	Progress *int
	Stage    *string
	Result   []byte
	Error    *string
}

// Store defines the persistence operations for projects, jobs, and assets.
type Store interface {
	CreateProject(ctx context.Context, p *model.Project) error
	GetProject(ctx context.Context, id string) (*model.Project, error)
	ListProjects(ctx context.Context) ([]*model.Project, error)

	CreateJob(ctx context.Context, j *model.Job) error
	GetJob(ctx context.Context, id string) (*model.Job, error)
	ListJobsByStatus(ctx context.Context, status string) ([]*model.Job, error)
	UpdateJob(ctx context.Context, id string, u JobUpdate) (*model.Job, error)

	PutAsset(ctx context.Context, projectID, jobID, kind string, data []byte, meta map[string]string) (*model.Asset, error)
	GetAsset(ctx context.Context, id string) (*model.Asset, error)
	GetAssetBytes(ctx context.Context, id string) ([]byte, *model.Asset, error)
	ListAssets(ctx context.Context, projectID string) ([]*model.Asset, error)
	ListAssetsByJob(ctx context.Context, jobID string) ([]*model.Asset, error)

	Close() error
}
