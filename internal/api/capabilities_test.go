package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/agthegodyt04-cmyk/clipper/internal/engine"
	"github.com/agthegodyt04-cmyk/clipper/internal/model"
	"github.com/agthegodyt04-cmyk/clipper/internal/pipeline"
)

func TestCapabilitiesEndpoint(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/v1/capabilities")
	if err != nil {
		t.Fatalf("GET /v1/capabilities: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	var caps struct {
		Models map[string]json.RawMessage    `json:"models"`
		Chains map[string][]engine.Descriptor `json:"chains"`
	}
	decodeEnvelope(t, resp, &caps)

	chain := caps.Chains[model.JobImage]
	if len(chain) != 1 || chain[0].Name != "placeholder" {
		t.Errorf("image chain = %v, want placeholder only with no weights", chain)
	}
	if len(caps.Chains[model.JobT2V]) != 0 {
		t.Errorf("t2v chain = %v, want empty", caps.Chains[model.JobT2V])
	}
	if got := caps.Chains[model.JobCopy]; len(got) != 1 || got[0].Name != "template" {
		t.Errorf("copy chain = %v, want template only", got)
	}
}

func TestEnhancePromptEndpoint(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	project := createTestProject(t, ts.URL)
	body := `{"project_id":"` + project.ID + `","prompt":"lantern on a cliff"}`
	resp, err := http.Post(ts.URL+"/v1/enhance-prompt", "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("POST /v1/enhance-prompt: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	var enhanced pipeline.EnhancedPrompt
	decodeEnvelope(t, resp, &enhanced)
	if !strings.Contains(enhanced.Prompt, "lantern on a cliff") {
		t.Errorf("prompt = %q, want original preserved", enhanced.Prompt)
	}
	if enhanced.NegativePrompt == "" {
		t.Error("negative prompt is empty")
	}
}

func TestEnhancePromptRequiresPrompt(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/v1/enhance-prompt", "application/json", bytes.NewBufferString(`{}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}
