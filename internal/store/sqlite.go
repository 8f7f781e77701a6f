package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/agthegodyt04-cmyk/clipper/internal/model"

	_ "modernc.org/sqlite"
)

const createTables = `
CREATE TABLE IF NOT EXISTS projects (
    id               TEXT PRIMARY KEY,
    name             TEXT NOT NULL,
    brand_name       TEXT NOT NULL,
    product          TEXT NOT NULL,
    audience         TEXT NOT NULL,
    offer            TEXT NOT NULL,
    tone             TEXT NOT NULL,
    platform_targets TEXT NOT NULL,
    created_at       DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS jobs (
    id         TEXT PRIMARY KEY,
    project_id TEXT NOT NULL REFERENCES projects(id),
    type       TEXT NOT NULL,
    status     TEXT NOT NULL,
    progress   INTEGER NOT NULL DEFAULT 0,
    stage      TEXT NOT NULL DEFAULT 'queued',
    params     TEXT NOT NULL,
    result     TEXT,
    error      TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_jobs_project ON jobs(project_id);
CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
CREATE TABLE IF NOT EXISTS assets (
    id         TEXT PRIMARY KEY,
    project_id TEXT NOT NULL REFERENCES projects(id),
    job_id     TEXT,
    kind       TEXT NOT NULL,
    path       TEXT NOT NULL,
    meta       TEXT NOT NULL,
    created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_assets_project ON assets(project_id);
CREATE INDEX IF NOT EXISTS idx_assets_job ON assets(job_id)`

// Compile-time interface satisfaction check.
var _ Store = (*SQLiteStore)(nil)

// SQLiteStore implements Store using SQLite for records and a flat directory
// of id-keyed files for asset bytes.
type SQLiteStore struct {
	db      *sql.DB
	blobDir string
}

// NewSQLiteStore opens the SQLite database at dbPath, runs migrations, and
// uses blobDir for asset payloads. blobDir may be empty for tests that never
// store bytes.
func NewSQLiteStore(dbPath, blobDir string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// An in-memory database is private to each connection, so the pool must
	// stay at one connection or later connections see an empty schema.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if _, err := db.Exec(createTables); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	if blobDir != "" {
		if err := os.MkdirAll(blobDir, 0o755); err != nil {
			db.Close()
			return nil, fmt.Errorf("create blob dir: %w", err)
		}
	}

	return &SQLiteStore{db: db, blobDir: blobDir}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateProject inserts a new project record.
func (s *SQLiteStore) CreateProject(ctx context.Context, p *model.Project) error {
	targets, err := json.Marshal(p.PlatformTargets)
	if err != nil {
		return fmt.Errorf("marshal platform targets: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO projects (id, name, brand_name, product, audience, offer, tone, platform_targets, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.BrandName, p.Product, p.Audience, p.Offer, p.Tone, string(targets), p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

// GetProject retrieves a project by ID.
func (s *SQLiteStore) GetProject(ctx context.Context, id string) (*model.Project, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, brand_name, product, audience, offer, tone, platform_targets, created_at
		 FROM projects WHERE id = ?`, id)
	return scanProject(row)
}

// ListProjects returns all projects, newest first.
func (s *SQLiteStore) ListProjects(ctx context.Context) ([]*model.Project, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, brand_name, product, audience, offer, tone, platform_targets, created_at
		 FROM projects ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []*model.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}
	return projects, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(r rowScanner) (*model.Project, error) {
	p := &model.Project{}
	var targets string
	err := r.Scan(&p.ID, &p.Name, &p.BrandName, &p.Product, &p.Audience, &p.Offer, &p.Tone, &targets, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan project: %w", err)
	}
	if err := json.Unmarshal([]byte(targets), &p.PlatformTargets); err != nil {
		return nil, fmt.Errorf("unmarshal platform targets: %w", err)
	}
	return p, nil
}

// CreateJob inserts a new job record.
func (s *SQLiteStore) CreateJob(ctx context.Context, j *model.Job) error {
	var result any
	if j.Result != nil {
		result = string(j.Result)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, project_id, type, status, progress, stage, params, result, error, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.ID, j.ProjectID, j.Type, j.Status, j.Progress, j.Stage, string(j.Params), result, j.Error, j.CreatedAt, j.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// GetJob retrieves a job by ID.
func (s *SQLiteStore) GetJob(ctx context.Context, id string) (*model.Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, project_id, type, status, progress, stage, params, result, error, created_at, updated_at
		 FROM jobs WHERE id = ?`, id)
	return scanJob(row)
}

// ListJobsByStatus returns jobs with the given status, oldest first, so that
// startup requeue preserves submission order.
func (s *SQLiteStore) ListJobsByStatus(ctx context.Context, status string) ([]*model.Job, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, project_id, type, status, progress, stage, params, result, error, created_at, updated_at
		 FROM jobs WHERE status = ? ORDER BY created_at ASC, id ASC`, status)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*model.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return jobs, nil
}

func scanJob(r rowScanner) (*model.Job, error) {
	j := &model.Job{}
	var params string
	var result sql.NullString
	err := r.Scan(&j.ID, &j.ProjectID, &j.Type, &j.Status, &j.Progress, &j.Stage, &params, &result, &j.Error, &j.CreatedAt, &j.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan job: %w", err)
	}
	j.Params = json.RawMessage(params)
	if result.Valid {
		j.Result = json.RawMessage(result.String)
	}
	return j, nil
}

// UpdateJob applies a partial mutation under a transaction. Status changes
// are checked against the transition table; terminal jobs reject every
// further write. Progress only moves forward: a smaller value than the
// current one is kept at the current value.
func (s *SQLiteStore) UpdateJob(ctx context.Context, id string, u JobUpdate) (*model.Job, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	current, err := scanJob(tx.QueryRowContext(ctx,
		`SELECT id, project_id, type, status, progress, stage, params, result, error, created_at, updated_at
		 FROM jobs WHERE id = ?`, id))
	if err != nil {
		return nil, err
	}

	if model.Terminal(current.Status) {
		return nil, ErrInvalidTransition
	}
	if u.Status != nil && !model.ValidTransition(current.Status, *u.Status) {
		return nil, ErrInvalidTransition
	}

	next := *current
	if u.Status != nil {
		next.Status = *u.Status
	}
	if u.Progress != nil {
		p := *u.Progress
		if p < 0 {
			p = 0
		}
		if p > 100 {
			p = 100
		}
		if p > next.Progress {
			next.Progress = p
		}
	}
	if u.Stage != nil {
		next.Stage = *u.Stage
	}
	if u.Result != nil {
		next.Result = json.RawMessage(u.Result)
	}
	if u.Error != nil {
		next.Error = *u.Error
	}
	next.UpdatedAt = time.Now().UTC()

	var result any
	if next.Result != nil {
		result = string(next.Result)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE jobs SET status = ?, progress = ?, stage = ?, result = ?, error = ?, updated_at = ? WHERE id = ?`,
		next.Status, next.Progress, next.Stage, result, next.Error, next.UpdatedAt, id,
	); err != nil {
		return nil, fmt.Errorf("update job: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit job update: %w", err)
	}
	return &next, nil
}

// blobExt picks the file extension for an asset kind.
func blobExt(kind string) string {
	switch kind {
	case model.AssetImage, model.AssetMask:
		return ".png"
	case model.AssetVideo:
		return ".mp4"
	case model.AssetSubtitle:
		return ".srt"
	default:
		return ".json"
	}
}

// PutAsset writes the payload file first and inserts the record after, so a
// concurrent reader never sees a row whose bytes are missing.
func (s *SQLiteStore) PutAsset(ctx context.Context, projectID, jobID, kind string, data []byte, meta map[string]string) (*model.Asset, error) {
	if meta == nil {
		meta = map[string]string{}
	}
	a := &model.Asset{
		ID:        model.NewID(),
		ProjectID: projectID,
		JobID:     jobID,
		Kind:      kind,
		Meta:      meta,
		CreatedAt: time.Now().UTC(),
	}
	a.Path = filepath.Join(s.blobDir, a.ID+blobExt(kind))

	if err := os.WriteFile(a.Path, data, 0o644); err != nil {
		return nil, fmt.Errorf("write asset payload: %w", err)
	}

	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshal asset meta: %w", err)
	}
	var job any
	if jobID != "" {
		job = jobID
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO assets (id, project_id, job_id, kind, path, meta, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.ProjectID, job, a.Kind, a.Path, string(metaJSON), a.CreatedAt,
	); err != nil {
		os.Remove(a.Path)
		return nil, fmt.Errorf("insert asset: %w", err)
	}
	return a, nil
}

// GetAsset retrieves an asset record by ID.
func (s *SQLiteStore) GetAsset(ctx context.Context, id string) (*model.Asset, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, project_id, job_id, kind, path, meta, created_at FROM assets WHERE id = ?`, id)
	return scanAsset(row)
}

// GetAssetBytes returns the payload and record for an asset.
func (s *SQLiteStore) GetAssetBytes(ctx context.Context, id string) ([]byte, *model.Asset, error) {
	a, err := s.GetAsset(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	data, err := os.ReadFile(a.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("read asset payload: %w", err)
	}
	return data, a, nil
}

// ListAssets returns a project's assets ordered by creation time.
func (s *SQLiteStore) ListAssets(ctx context.Context, projectID string) ([]*model.Asset, error) {
	return s.listAssets(ctx,
		`SELECT id, project_id, job_id, kind, path, meta, created_at
		 FROM assets WHERE project_id = ? ORDER BY created_at ASC, id ASC`, projectID)
}

// ListAssetsByJob returns the assets a job produced, ordered by creation time.
func (s *SQLiteStore) ListAssetsByJob(ctx context.Context, jobID string) ([]*model.Asset, error) {
	return s.listAssets(ctx,
		`SELECT id, project_id, job_id, kind, path, meta, created_at
		 FROM assets WHERE job_id = ? ORDER BY created_at ASC, id ASC`, jobID)
}

func (s *SQLiteStore) listAssets(ctx context.Context, query, arg string) ([]*model.Asset, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	var assets []*model.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assets: %w", err)
	}
	return assets, nil
}

func scanAsset(r rowScanner) (*model.Asset, error) {
	a := &model.Asset{}
	var job sql.NullString
	var meta string
	err := r.Scan(&a.ID, &a.ProjectID, &job, &a.Kind, &a.Path, &meta, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan asset: %w", err)
	}
	if job.Valid {
		a.JobID = job.String
	}
	if err := json.Unmarshal([]byte(meta), &a.Meta); err != nil {
		return nil, fmt.Errorf("unmarshal asset meta: %w", err)
	}
	return a, nil
}
