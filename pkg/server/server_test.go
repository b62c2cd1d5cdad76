package server

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/oarkflow/json"

	"github.com/oarkflow/script"
	"github.com/oarkflow/script/pkg/fileutil"
	"github.com/oarkflow/script/pkg/storage"
)

func newTestServer(t *testing.T, withStore bool) (*Server, Config) {
	t.Helper()
	cfg := Config{Version: "test", RequestTimeout: 5 * time.Second}
	if withStore {
		dir := t.TempDir()
		store, err := storage.New(storage.Config{Path: filepath.Join(dir, "script.db")})
		if err != nil {
			t.Fatalf("store: %v", err)
		}
		t.Cleanup(func() { store.Close() })
		transcript, err := fileutil.NewJSONAppender[storage.RunRecord](filepath.Join(dir, "transcript.json"), fileutil.WithoutSync[storage.RunRecord]())
		if err != nil {
			t.Fatalf("transcript: %v", err)
		}
		t.Cleanup(func() { transcript.Close() })
		cfg.Store = store
		cfg.Transcript = transcript
	}
	return NewServer(cfg), cfg
}

func do(t *testing.T, s *Server, method, path string, body any, out any) int {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			t.Fatalf("decode %s: %v", string(data), err)
		}
	}
	return resp.StatusCode
}

type runResponse struct {
	RunID     string   `json:"run_id"`
	SessionID string   `json:"session_id"`
	Output    string   `json:"output"`
	Warnings  []string `json:"warnings"`
	Result    string   `json:"result"`
	Error     string   `json:"error"`
	Code      string   `json:"code"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, false)
	var body map[string]any
	if status := do(t, s, http.MethodGet, "/api/health", nil, &body); status != http.StatusOK {
		t.Fatalf("unexpected status %d", status)
	}
	if body["status"] != "healthy" || body["version"] != "test" || body["storage"] != false {
		t.Fatalf("unexpected health %v", body)
	}
}

func TestExecuteOneShot(t *testing.T) {
	s, cfg := newTestServer(t, true)
	var res runResponse
	status := do(t, s, http.MethodPost, "/api/execute", ExecuteRequest{Source: `println("hi"); 6 * 7`}, &res)
	if status != http.StatusOK {
		t.Fatalf("unexpected status %d", status)
	}
	if res.Output != "hi\n" || res.Result != "42" || res.Error != "" || res.RunID == "" {
		t.Fatalf("unexpected result %+v", res)
	}

	var failed runResponse
	do(t, s, http.MethodPost, "/api/execute", ExecuteRequest{Source: `throw new IllegalStateException("nope");`}, &failed)
	if failed.Code != "THROWN" || failed.Error == "" {
		t.Fatalf("expected thrown failure, got %+v", failed)
	}

	var bad errorResponse
	if status := do(t, s, http.MethodPost, "/api/execute", ExecuteRequest{Source: "  "}, &bad); status != http.StatusBadRequest || bad.Code != codeBadRequest {
		t.Fatalf("expected bad request, got %d %+v", status, bad)
	}

	var history []storage.RunRecord
	do(t, s, http.MethodGet, "/api/history", nil, &history)
	if len(history) != 2 || history[0].Success == history[1].Success {
		t.Fatalf("expected one failed and one successful run, got %+v", history)
	}
	transcript, err := fileutil.ReadAll[storage.RunRecord](cfg.Transcript.Path())
	if err != nil || len(transcript) != 2 {
		t.Fatalf("expected 2 transcript entries, got %d (%v)", len(transcript), err)
	}
}

func TestSessionEndpoints(t *testing.T) {
	s, _ := newTestServer(t, false)
	var info struct {
		ID string `json:"id"`
	}
	if status := do(t, s, http.MethodPost, "/api/sessions", nil, &info); status != http.StatusCreated || info.ID == "" {
		t.Fatalf("create session: %d %+v", status, info)
	}
	base := "/api/sessions/" + info.ID
	var res runResponse
	do(t, s, http.MethodPost, base+"/execute", ExecuteRequest{Source: "int x = 5;"}, &res)
	if res.Error != "" || res.SessionID != info.ID {
		t.Fatalf("first run: %+v", res)
	}
	do(t, s, http.MethodPost, base+"/execute", ExecuteRequest{Source: "x * 2"}, &res)
	if res.Result != "10" {
		t.Fatalf("state not kept: %+v", res)
	}

	var list []map[string]any
	do(t, s, http.MethodGet, "/api/sessions", nil, &list)
	if len(list) != 1 || list[0]["id"] != info.ID {
		t.Fatalf("unexpected session list %v", list)
	}

	if status := do(t, s, http.MethodDelete, base, nil, nil); status != http.StatusNoContent {
		t.Fatalf("close: %d", status)
	}
	var missing errorResponse
	if status := do(t, s, http.MethodPost, base+"/execute", ExecuteRequest{Source: "x"}, &missing); status != http.StatusNotFound || missing.Code != codeNotFound {
		t.Fatalf("expected not found, got %d %+v", status, missing)
	}
}

func TestScriptEndpoints(t *testing.T) {
	s, _ := newTestServer(t, true)
	var rec storage.ScriptRecord
	status := do(t, s, http.MethodPost, "/api/scripts", ScriptRequest{Name: "greet", Source: `println("hello");`}, &rec)
	if status != http.StatusCreated || rec.ID == "" {
		t.Fatalf("create script: %d %+v", status, rec)
	}
	var conflict errorResponse
	if status := do(t, s, http.MethodPost, "/api/scripts", ScriptRequest{Name: "greet", Source: "1"}, &conflict); status != http.StatusConflict {
		t.Fatalf("expected conflict, got %d %+v", status, conflict)
	}

	var res runResponse
	do(t, s, http.MethodPost, "/api/scripts/greet/run", nil, &res)
	if res.Output != "hello\n" {
		t.Fatalf("run by name: %+v", res)
	}

	var updated storage.ScriptRecord
	do(t, s, http.MethodPut, "/api/scripts/"+rec.ID, ScriptRequest{Source: `println("bye");`, Description: "farewell"}, &updated)
	if updated.Name != "greet" || updated.Description != "farewell" {
		t.Fatalf("unexpected update %+v", updated)
	}
	do(t, s, http.MethodPost, "/api/scripts/"+rec.ID+"/run", nil, &res)
	if res.Output != "bye\n" {
		t.Fatalf("run after update: %+v", res)
	}

	var scripts []storage.ScriptRecord
	do(t, s, http.MethodGet, "/api/scripts", nil, &scripts)
	if len(scripts) != 1 {
		t.Fatalf("unexpected scripts %+v", scripts)
	}

	var history []storage.RunRecord
	do(t, s, http.MethodGet, "/api/history?limit=1", nil, &history)
	if len(history) != 1 || history[0].ScriptName != "greet" {
		t.Fatalf("unexpected history %+v", history)
	}

	if status := do(t, s, http.MethodDelete, "/api/scripts/greet", nil, nil); status != http.StatusNoContent {
		t.Fatalf("delete: %d", status)
	}
	var missing errorResponse
	if status := do(t, s, http.MethodGet, "/api/scripts/"+rec.ID, nil, &missing); status != http.StatusNotFound || missing.Code != codeNotFound {
		t.Fatalf("expected not found, got %d %+v", status, missing)
	}
}

func TestScriptsWithoutStorage(t *testing.T) {
	s, _ := newTestServer(t, false)
	var body errorResponse
	if status := do(t, s, http.MethodGet, "/api/scripts", nil, &body); status != http.StatusServiceUnavailable || body.Code != codeUnavailable {
		t.Fatalf("expected unavailable, got %d %+v", status, body)
	}
}

func TestRequestTimeoutStopsScript(t *testing.T) {
	s := NewServer(Config{
		RequestTimeout: 50 * time.Millisecond,
		ContextOptions: []script.Option{script.WithMaxLoops(1 << 30)},
	})
	var res runResponse
	do(t, s, http.MethodPost, "/api/execute", ExecuteRequest{Source: "int n = 0; while (true) { n++; }"}, &res)
	if res.Code != "CANCELED" {
		t.Fatalf("expected canceled run, got %+v", res)
	}
}
