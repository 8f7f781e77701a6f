package model

import (
	"encoding/json"
	"time"
)

// Job status constants.
const (
	StatusQueued    = "queued"
	StatusRunning   = "running"
	StatusDone      = "done"
	StatusError     = "error"
	StatusCancelled = "cancelled"
)

// Job type constants.
const (
	JobCopy       = "copy"
	JobImage      = "image"
	JobInpaint    = "inpaint"
	JobStoryboard = "storyboard"
	JobT2V        = "t2v"
)

// Asset kind constants.
const (
	AssetCopy     = "copy"
	AssetImage    = "image"
	AssetMask     = "mask"
	AssetVideo    = "video"
	AssetSubtitle = "subtitle"
	AssetMeta     = "meta"
)

// Quality modes.
const (
	ModeDraft = "draft"
	ModeHQ    = "hq"
)

// JobTypes lists every job type the pipeline accepts.
var JobTypes = []string{JobCopy, JobImage, JobInpaint, JobStoryboard, JobT2V}

// validTransitions maps each status to the set of statuses it may transition to.
// Terminal statuses have no entries: once done/error/cancelled, a job is frozen.
var validTransitions = map[string]map[string]bool{
	StatusQueued: {
		StatusRunning:   true,
		StatusError:     true,
		StatusCancelled: true,
	},
	StatusRunning: {
		StatusDone:      true,
		StatusError:     true,
		StatusCancelled: true,
	},
}

// ValidTransition reports whether transitioning from one status to another is allowed.
func ValidTransition(from, to string) bool {
	targets, ok := validTransitions[from]
	if !ok {
		return false
	}
	return targets[to]
}

// Terminal reports whether a status is final.
func Terminal(status string) bool {
	return status == StatusDone || status == StatusError || status == StatusCancelled
}

// ValidJobType reports whether t names a known job type.
func ValidJobType(t string) bool {
	for _, jt := range JobTypes {
		if jt == t {
			return true
		}
	}
	return false
}

// AssetKindForJob returns the asset kind a job type primarily produces.
func AssetKindForJob(jobType string) string {
	switch jobType {
	case JobCopy:
		return AssetCopy
	case JobImage, JobInpaint:
		return AssetImage
	case JobStoryboard, JobT2V:
		return AssetVideo
	default:
		return AssetMeta
	}
}

// Project is the campaign context generated content is scoped to.
// Projects are created explicitly and are immutable to jobs.
type Project struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	BrandName       string    `json:"brand_name"`
	Product         string    `json:"product"`
	Audience        string    `json:"audience"`
	Offer           string    `json:"offer"`
	Tone            string    `json:"tone"`
	PlatformTargets []string  `json:"platform_targets"`
	CreatedAt       time.Time `json:"created_at"`
}

// Job is one asynchronous generation request.
type Job struct {
	ID        string          `json:"id"`
	ProjectID string          `json:"project_id"`
	Type      string          `json:"type"`
	Status    string          `json:"status"`
	Progress  int             `json:"progress"`
	Stage     string          `json:"stage"`
	Params    json.RawMessage `json:"params"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Asset is one persisted artifact. Assets are append-only: they are never
// mutated after creation, only superseded by newer assets.
type Asset struct {
	ID        string            `json:"id"`
	ProjectID string            `json:"project_id"`
	JobID     string            `json:"job_id,omitempty"`
	Kind      string            `json:"kind"`
	Path      string            `json:"path"`
	Meta      map[string]string `json:"meta"`
	CreatedAt time.Time         `json:"created_at"`
}
