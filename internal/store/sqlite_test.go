package store

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/agthegodyt04-cmyk/clipper/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:", t.TempDir())
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func makeTestProject() *model.Project {
	return &model.Project{
		ID:              model.NewID(),
		Name:            "Spring Launch",
		BrandName:       "Acme",
		Product:         "Widget",
		Audience:        "makers",
		Offer:           "20% off",
		Tone:            "playful",
		PlatformTargets: []string{"9:16", "1:1"},
		CreatedAt:       time.Now().UTC().Truncate(time.Second),
	}
}

func makeTestJob(projectID string) *model.Job {
	now := time.Now().UTC().Truncate(time.Second)
	return &model.Job{
		ID:        model.NewID(),
		ProjectID: projectID,
		Type:      model.JobImage,
		Status:    model.StatusQueued,
		Stage:     "queued",
		Params:    []byte(`{"prompt":"red ball","mode":"draft"}`),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func seedProject(t *testing.T, s *SQLiteStore) *model.Project {
	t.Helper()
	p := makeTestProject()
	if err := s.CreateProject(context.Background(), p); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	return p
}

func TestCreateAndGetProject(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := seedProject(t, s)

	got, err := s.GetProject(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetProject: %v", err)
	}
	if got.Name != p.Name {
		t.Errorf("Name = %q, want %q", got.Name, p.Name)
	}
	if got.BrandName != p.BrandName {
		t.Errorf("BrandName = %q, want %q", got.BrandName, p.BrandName)
	}
	if len(got.PlatformTargets) != 2 || got.PlatformTargets[0] != "9:16" {
		t.Errorf("PlatformTargets = %v", got.PlatformTargets)
	}
}

func TestGetProjectNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetProject(context.Background(), "nonexistent"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetProject error = %v, want ErrNotFound", err)
	}
}

func TestCreateAndGetJob(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := seedProject(t, s)
	j := makeTestJob(p.ID)

	if err := s.CreateJob(ctx, j); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	got, err := s.GetJob(ctx, j.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Status != model.StatusQueued {
		t.Errorf("Status = %q, want queued", got.Status)
	}
	if got.Type != model.JobImage {
		t.Errorf("Type = %q, want image", got.Type)
	}
	if got.Progress != 0 {
		t.Errorf("Progress = %d, want 0", got.Progress)
	}
	if string(got.Params) != string(j.Params) {
		t.Errorf("Params = %s", got.Params)
	}
}

func TestUpdateJobLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := seedProject(t, s)
	j := makeTestJob(p.ID)
	if err := s.CreateJob(ctx, j); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	running := model.StatusRunning
	stage := "image_generating"
	progress := 30
	got, err := s.UpdateJob(ctx, j.ID, JobUpdate{Status: &running, Stage: &stage, Progress: &progress})
	if err != nil {
		t.Fatalf("UpdateJob to running: %v", err)
	}
	if got.Status != model.StatusRunning || got.Progress != 30 || got.Stage != stage {
		t.Errorf("after running: %+v", got)
	}

	done := model.StatusDone
	full := 100
	got, err = s.UpdateJob(ctx, j.ID, JobUpdate{Status: &done, Progress: &full, Result: []byte(`{"engine":"placeholder"}`)})
	if err != nil {
		t.Fatalf("UpdateJob to done: %v", err)
	}
	if got.Status != model.StatusDone || got.Progress != 100 {
		t.Errorf("after done: %+v", got)
	}
	if string(got.Result) != `{"engine":"placeholder"}` {
		t.Errorf("Result = %s", got.Result)
	}
}

func TestUpdateJobProgressMonotonic(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := seedProject(t, s)
	j := makeTestJob(p.ID)
	if err := s.CreateJob(ctx, j); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	running := model.StatusRunning
	if _, err := s.UpdateJob(ctx, j.ID, JobUpdate{Status: &running}); err != nil {
		t.Fatalf("UpdateJob: %v", err)
	}

	high := 60
	if _, err := s.UpdateJob(ctx, j.ID, JobUpdate{Progress: &high}); err != nil {
		t.Fatalf("UpdateJob: %v", err)
	}
	low := 20
	got, err := s.UpdateJob(ctx, j.ID, JobUpdate{Progress: &low})
	if err != nil {
		t.Fatalf("UpdateJob: %v", err)
	}
	if got.Progress != 60 {
		t.Errorf("Progress = %d, want 60 (must not regress)", got.Progress)
	}

	over := 150
	got, err = s.UpdateJob(ctx, j.ID, JobUpdate{Progress: &over})
	if err != nil {
		t.Fatalf("UpdateJob: %v", err)
	}
	if got.Progress != 100 {
		t.Errorf("Progress = %d, want clamp to 100", got.Progress)
	}
}

func TestUpdateJobRejectsTerminalWrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := seedProject(t, s)
	j := makeTestJob(p.ID)
	if err := s.CreateJob(ctx, j); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	cancelled := model.StatusCancelled
	if _, err := s.UpdateJob(ctx, j.ID, JobUpdate{Status: &cancelled}); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	running := model.StatusRunning
	if _, err := s.UpdateJob(ctx, j.ID, JobUpdate{Status: &running}); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("terminal → running error = %v, want ErrInvalidTransition", err)
	}

	progress := 50
	if _, err := s.UpdateJob(ctx, j.ID, JobUpdate{Progress: &progress}); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("terminal progress write error = %v, want ErrInvalidTransition", err)
	}
}

func TestUpdateJobInvalidTransition(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := seedProject(t, s)
	j := makeTestJob(p.ID)
	if err := s.CreateJob(ctx, j); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	done := model.StatusDone
	if _, err := s.UpdateJob(ctx, j.ID, JobUpdate{Status: &done}); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("queued → done error = %v, want ErrInvalidTransition", err)
	}
}

func TestUpdateJobNotFound(t *testing.T) {
	s := newTestStore(t)
	running := model.StatusRunning
	if _, err := s.UpdateJob(context.Background(), "nonexistent", JobUpdate{Status: &running}); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateJob error = %v, want ErrNotFound", err)
	}
}

func TestListJobsByStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := seedProject(t, s)

	first := makeTestJob(p.ID)
	second := makeTestJob(p.ID)
	second.CreatedAt = first.CreatedAt.Add(time.Second)
	for _, j := range []*model.Job{first, second} {
		if err := s.CreateJob(ctx, j); err != nil {
			t.Fatalf("CreateJob: %v", err)
		}
	}

	queued, err := s.ListJobsByStatus(ctx, model.StatusQueued)
	if err != nil {
		t.Fatalf("ListJobsByStatus: %v", err)
	}
	if len(queued) != 2 {
		t.Fatalf("len = %d, want 2", len(queued))
	}
	if queued[0].ID != first.ID {
		t.Errorf("order: got %s first, want %s (oldest first)", queued[0].ID, first.ID)
	}
}

func TestPutAssetRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := seedProject(t, s)

	payload := []byte("payload-bytes")
	meta := map[string]string{"engine": "placeholder", "seed": "42"}
	a, err := s.PutAsset(ctx, p.ID, "", model.AssetImage, payload, meta)
	if err != nil {
		t.Fatalf("PutAsset: %v", err)
	}

	data, got, err := s.GetAssetBytes(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetAssetBytes: %v", err)
	}
	if !bytes.Equal(data, payload) {
		t.Errorf("payload mismatch: got %q", data)
	}
	if got.Kind != model.AssetImage {
		t.Errorf("Kind = %q, want image", got.Kind)
	}
	if got.Meta["engine"] != "placeholder" || got.Meta["seed"] != "42" {
		t.Errorf("Meta = %v", got.Meta)
	}
}

func TestGetAssetNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetAsset(context.Background(), "nonexistent"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetAsset error = %v, want ErrNotFound", err)
	}
}

func TestListAssetsOrderedByCreation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := seedProject(t, s)

	var ids []string
	for i := 0; i < 3; i++ {
		a, err := s.PutAsset(ctx, p.ID, "", model.AssetMeta, []byte("{}"), nil)
		if err != nil {
			t.Fatalf("PutAsset: %v", err)
		}
		ids = append(ids, a.ID)
	}

	assets, err := s.ListAssets(ctx, p.ID)
	if err != nil {
		t.Fatalf("ListAssets: %v", err)
	}
	if len(assets) != 3 {
		t.Fatalf("len = %d, want 3", len(assets))
	}
	for i, a := range assets {
		if a.ID != ids[i] {
			t.Errorf("assets[%d] = %s, want %s (creation order)", i, a.ID, ids[i])
		}
	}
}

func TestListAssetsByJob(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := seedProject(t, s)
	j := makeTestJob(p.ID)
	if err := s.CreateJob(ctx, j); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	if _, err := s.PutAsset(ctx, p.ID, j.ID, model.AssetImage, []byte("x"), nil); err != nil {
		t.Fatalf("PutAsset: %v", err)
	}
	if _, err := s.PutAsset(ctx, p.ID, "", model.AssetMask, []byte("y"), nil); err != nil {
		t.Fatalf("PutAsset: %v", err)
	}

	assets, err := s.ListAssetsByJob(ctx, j.ID)
	if err != nil {
		t.Fatalf("ListAssetsByJob: %v", err)
	}
	if len(assets) != 1 {
		t.Fatalf("len = %d, want 1", len(assets))
	}
	if assets[0].JobID != j.ID {
		t.Errorf("JobID = %q, want %q", assets[0].JobID, j.ID)
	}
}

func TestConcurrentReadsDuringWrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := seedProject(t, s)
	j := makeTestJob(p.ID)
	if err := s.CreateJob(ctx, j); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	running := model.StatusRunning
	if _, err := s.UpdateJob(ctx, j.ID, JobUpdate{Status: &running}); err != nil {
		t.Fatalf("UpdateJob: %v", err)
	}

	doneCh := make(chan struct{})
	go func() {
		defer close(doneCh)
		for i := 1; i <= 50; i++ {
			progress := i * 2
			if _, err := s.UpdateJob(ctx, j.ID, JobUpdate{Progress: &progress}); err != nil {
				t.Errorf("UpdateJob: %v", err)
				return
			}
		}
	}()

	// Readers must always observe a consistent record with monotonic progress.
	last := 0
	for {
		select {
		case <-doneCh:
			got, err := s.GetJob(ctx, j.ID)
			if err != nil {
				t.Fatalf("GetJob: %v", err)
			}
			if got.Progress != 100 {
				t.Errorf("final progress = %d, want 100", got.Progress)
			}
			return
		default:
			got, err := s.GetJob(ctx, j.ID)
			if err != nil {
				t.Fatalf("GetJob: %v", err)
			}
			if got.Progress < last {
				t.Fatalf("progress regressed: %d after %d", got.Progress, last)
			}
			last = got.Progress
		}
	}
}
