package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/agthegodyt04-cmyk/clipper/internal/capability"
	"github.com/agthegodyt04-cmyk/clipper/internal/config"
	"github.com/agthegodyt04-cmyk/clipper/internal/encode"
	"github.com/agthegodyt04-cmyk/clipper/internal/engine"
	"github.com/agthegodyt04-cmyk/clipper/internal/executor"
	"github.com/agthegodyt04-cmyk/clipper/internal/model"
	"github.com/agthegodyt04-cmyk/clipper/internal/pipeline"
	"github.com/agthegodyt04-cmyk/clipper/internal/store"
)

// newTestServer wires the full stack over an in-memory store. With an empty
// model dir and no runner commands configured, every chain resolves to its
// deterministic engine, so jobs complete offline.
func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Config{
		ModelDir:       t.TempDir(),
		Workers:        1,
		EncoderCommand: "encoder-not-installed",
	}

	s, err := store.NewSQLiteStore(":memory:", t.TempDir())
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	probe := capability.NewProbe(cfg)
	registry := engine.NewRegistry(cfg, probe, logger)
	stages := pipeline.Stages(pipeline.Deps{
		Store:    s,
		Resolver: registry,
		Probe:    probe,
		Encoder:  &encode.SlideshowEncoder{Command: cfg.EncoderCommand},
		Logger:   logger,
	})
	broker := executor.NewBroker()
	exec := executor.New(s, stages, broker, cfg.Workers, logger, JobObserver{})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	exec.Start(ctx)

	return NewServer(":0", s, exec, broker, probe, registry, logger)
}

// respEnvelope mirrors the response envelope with raw data for typed decoding.
type respEnvelope struct {
	OK    bool            `json:"ok"`
	Data  json.RawMessage `json:"data"`
	Error *apiError       `json:"error"`
}

func decodeEnvelope(t *testing.T, resp *http.Response, into any) *respEnvelope {
	t.Helper()
	var env respEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if into != nil && env.Data != nil {
		if err := json.Unmarshal(env.Data, into); err != nil {
			t.Fatalf("decode data: %v", err)
		}
	}
	return &env
}

// jobPoll mirrors the GET /v1/jobs/{id} payload.
type jobPoll struct {
	Job    *model.Job     `json:"job"`
	Assets []*model.Asset `json:"assets"`
}

// waitForJobStatus polls the job endpoint until the wanted status appears.
func waitForJobStatus(t *testing.T, baseURL, jobID, want string) *jobPoll {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	var last jobPoll
	for time.Now().Before(deadline) {
		resp, err := http.Get(baseURL + "/v1/jobs/" + jobID)
		if err != nil {
			t.Fatalf("GET job: %v", err)
		}
		decodeEnvelope(t, resp, &last)
		resp.Body.Close()
		if last.Job == nil {
			t.Fatalf("job %s poll returned no job record", jobID)
		}
		if last.Job.Status == want {
			return &last
		}
		if model.Terminal(last.Job.Status) {
			t.Fatalf("job %s terminal at %q (error %q), want %q", jobID, last.Job.Status, last.Job.Error, want)
		}
		time.Sleep(20 * time.Millisecond)
	}
	var seen string
	if last.Job != nil {
		seen = last.Job.Status
	}
	t.Fatalf("job %s never reached %q, last seen %q", jobID, want, seen)
	return nil
}

func TestRequestIDHeader(t *testing.T) {
	srv := newTestServer(t)
	srv.Router().Get("/test", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/test")
	if err != nil {
		t.Fatalf("GET /test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestPanicRecovery(t *testing.T) {
	srv := newTestServer(t)
	srv.Router().Get("/panic", func(w http.ResponseWriter, r *http.Request) {
		panic("test panic")
	})

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/panic")
	if err != nil {
		t.Fatalf("GET /panic: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}
}

func TestCORSHeaders(t *testing.T) {
	srv := newTestServer(t)
	srv.Router().Get("/test", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	req, _ := http.NewRequest("OPTIONS", ts.URL+"/test", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("OPTIONS /test: %v", err)
	}
	defer resp.Body.Close()

	if v := resp.Header.Get("Access-Control-Allow-Origin"); v != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want %q", v, "*")
	}
}
