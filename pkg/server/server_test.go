package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatooli/chatooli/pkg/config"
	"github.com/chatooli/chatooli/pkg/engine"
	"github.com/chatooli/chatooli/pkg/extract"
)

// fakeEngine plays back a scripted response and emits the scripted
// events, standing in for a model provider.
type fakeEngine struct {
	events   []engine.Event
	response *engine.Response
	err      error
	lastReq  engine.Request
}

func (f *fakeEngine) Name() string { return "fake" }

func (f *fakeEngine) Generate(ctx context.Context, req engine.Request) (*engine.Response, error) {
	return f.Stream(ctx, req, nil)
}

func (f *fakeEngine) Stream(_ context.Context, req engine.Request, emit engine.Emitter) (*engine.Response, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	if emit != nil {
		for _, e := range f.events {
			emit(e)
		}
	}
	return f.response, nil
}

func newTestServer(t *testing.T, fake *fakeEngine) *Server {
	t.Helper()

	skillsDir := t.TempDir()
	dir := filepath.Join(skillsDir, "particles")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "SKILL.md"), []byte(`---
name: particles
description: Generate swirling particle systems and trails
---
Cap the particle count at 10k.
`), 0o644))

	cfg := &config.Config{
		Host:      "127.0.0.1",
		Port:      8000,
		Workspace: t.TempDir(),
		SkillsDir: skillsDir,
		Engine:    "fake",
		MaxTokens: 1024,
	}

	s, err := NewServer(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		if s.watcher != nil {
			s.watcher.Close()
		}
	})

	s.registry = engine.NewRegistry()
	s.registry.Register(fake)
	return s
}

func postJSON(t *testing.T, s *Server, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func getPath(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHandleChat(t *testing.T) {
	fake := &fakeEngine{
		events: []engine.Event{
			{Type: engine.EventToolCall, Tool: "write_file", Input: json.RawMessage(`{"path":"wave.html","content":"<html/>"}`)},
		},
		response: &engine.Response{Text: "Wrote wave.html with swirling particles."},
	}
	s := newTestServer(t, fake)

	rec := postJSON(t, s, "/api/chat", ChatRequest{Message: "swirling particles please", Engine: "fake"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.SessionID)
	assert.Equal(t, "Wrote wave.html with swirling particles.", resp.Response)
	assert.Equal(t, []string{"wave.html"}, resp.FilesChanged)
	assert.Equal(t, []string{"particles"}, resp.Skills)

	// The matched skill body made it into the system prompt.
	assert.Contains(t, fake.lastReq.System, "Cap the particle count at 10k.")

	// Session history holds both turns.
	sess, ok := s.store.Get(resp.SessionID)
	require.True(t, ok)
	require.Len(t, sess.Messages, 2)
	assert.Equal(t, engine.RoleUser, sess.Messages[0].Role)
	assert.Equal(t, engine.RoleAssistant, sess.Messages[1].Role)
}

func TestHandleChatHistoryThreading(t *testing.T) {
	fake := &fakeEngine{response: &engine.Response{Text: "ok"}}
	s := newTestServer(t, fake)

	first := postJSON(t, s, "/api/chat", ChatRequest{Message: "first", Engine: "fake"})
	var resp ChatResponse
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &resp))

	postJSON(t, s, "/api/chat", ChatRequest{Message: "second", SessionID: resp.SessionID, Engine: "fake"})

	// The engine got prior history plus the new message.
	require.Len(t, fake.lastReq.Messages, 3)
	assert.Equal(t, "first", fake.lastReq.Messages[0].Content)
	assert.Equal(t, "ok", fake.lastReq.Messages[1].Content)
	assert.Equal(t, "second", fake.lastReq.Messages[2].Content)
}

func TestHandleChatDefaultEngine(t *testing.T) {
	fake := &fakeEngine{response: &engine.Response{Text: "ok"}}
	s := newTestServer(t, fake)

	// No engine and no model in the request: the configured default
	// engine handles the turn.
	rec := postJSON(t, s, "/api/chat", ChatRequest{Message: "hi"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, fake.lastReq.Messages, 1)
	assert.Equal(t, "hi", fake.lastReq.Messages[0].Content)
}

func TestHandleChatValidation(t *testing.T) {
	s := newTestServer(t, &fakeEngine{response: &engine.Response{Text: "x"}})

	rec := postJSON(t, s, "/api/chat", ChatRequest{Engine: "fake"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(t, s, "/api/chat", ChatRequest{Message: "hi", Engine: "nope"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown engine")
}

func TestHandleChatStream(t *testing.T) {
	// The engine emits its own response event at the end of the loop,
	// exactly as a real provider does via finish().
	fake := &fakeEngine{
		events: []engine.Event{
			{Type: engine.EventThinking, Content: "planning the sketch"},
			{Type: engine.EventCode, Language: "html", Content: "<canvas></canvas>"},
			{Type: engine.EventResponse, Content: "done"},
		},
		response: &engine.Response{
			Text:   "done",
			Blocks: []extract.CodeBlock{{Language: "html", Code: "<canvas></canvas>"}},
		},
	}
	s := newTestServer(t, fake)

	rec := postJSON(t, s, "/api/chat/stream", ChatRequest{Message: "go", Engine: "fake"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, "event: thinking")
	assert.Contains(t, body, "planning the sketch")
	assert.Contains(t, body, "event: code")
	assert.Contains(t, body, "event: done")
	assert.Contains(t, body, `"status":"complete"`)

	// Exactly one response frame: the terminal ChatResponse, not the
	// engine's own response event on top of it.
	assert.Equal(t, 1, strings.Count(body, "event: response"))
	assert.Contains(t, body, `"session_id"`)
}

func TestHandleChatStreamEngineError(t *testing.T) {
	fake := &fakeEngine{err: fmt.Errorf("provider is down")}
	s := newTestServer(t, fake)

	rec := postJSON(t, s, "/api/chat/stream", ChatRequest{Message: "go", Engine: "fake"})
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "Error: provider is down")
	assert.Contains(t, body, "event: done")
}

func TestHandleEngines(t *testing.T) {
	s := newTestServer(t, &fakeEngine{response: &engine.Response{Text: "x"}})

	rec := getPath(t, s, "/api/engines")
	require.Equal(t, http.StatusOK, rec.Code)

	var engines []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &engines))
	require.Len(t, engines, 1)
	assert.Equal(t, "fake", engines[0]["id"])
}

func TestHandleSkills(t *testing.T) {
	s := newTestServer(t, &fakeEngine{response: &engine.Response{Text: "x"}})

	rec := getPath(t, s, "/api/skills")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"particles"`)
	assert.Contains(t, rec.Body.String(), `"outcome":"parsed"`)
}

func TestSessionEndpoints(t *testing.T) {
	s := newTestServer(t, &fakeEngine{response: &engine.Response{Text: "hello"}})

	rec := getPath(t, s, "/api/sessions/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	chat := postJSON(t, s, "/api/chat", ChatRequest{Message: "hi", Engine: "fake"})
	var resp ChatResponse
	require.NoError(t, json.Unmarshal(chat.Body.Bytes(), &resp))

	rec = getPath(t, s, "/api/sessions/"+resp.SessionID)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"messages"`)

	req := httptest.NewRequest("DELETE", "/api/sessions/"+resp.SessionID, nil)
	del := httptest.NewRecorder()
	s.Handler().ServeHTTP(del, req)
	require.Equal(t, http.StatusOK, del.Code)

	rec = getPath(t, s, "/api/sessions/"+resp.SessionID)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWorkspaceEndpoints(t *testing.T) {
	s := newTestServer(t, &fakeEngine{response: &engine.Response{Text: "x"}})

	writeFile := func(rel, content string) {
		abs, err := s.state.Resolve(rel)
		require.NoError(t, err)
		require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
		require.NoError(t, os.WriteFile(abs, []byte(content), 0o644))
	}
	writeFile("sketch.html", "<html></html>")
	writeFile("shaders/noise.glsl", "void main() {}")

	t.Run("entries", func(t *testing.T) {
		rec := getPath(t, s, "/api/workspace/entries")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"name":"shaders","type":"directory"`)
		assert.Contains(t, rec.Body.String(), `"name":"sketch.html","type":"file"`)
	})

	t.Run("html file", func(t *testing.T) {
		rec := getPath(t, s, "/api/workspace/files/sketch.html")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
		assert.Equal(t, "<html></html>", rec.Body.String())
		assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	})

	t.Run("glsl falls back to text", func(t *testing.T) {
		rec := getPath(t, s, "/api/workspace/files/shaders/noise.glsl")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	})

	t.Run("missing file", func(t *testing.T) {
		rec := getPath(t, s, "/api/workspace/files/nope.html")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestAutoSaveHTML(t *testing.T) {
	s := newTestServer(t, &fakeEngine{response: &engine.Response{Text: "x"}})
	ctx := context.Background()

	t.Run("titled document gets a slug name", func(t *testing.T) {
		blocks := []extract.CodeBlock{{
			Language: "html",
			Code:     "<!DOCTYPE html><html><head><title>Particle Storm!</title></head></html>",
		}}
		files := s.autoSaveHTML(ctx, blocks, nil)
		require.Equal(t, []string{"particle-storm.html"}, files)

		abs, err := s.state.Resolve("particle-storm.html")
		require.NoError(t, err)
		content, err := os.ReadFile(abs)
		require.NoError(t, err)
		assert.Contains(t, string(content), "Particle Storm!")
	})

	t.Run("untitled document falls back to sketch.html", func(t *testing.T) {
		blocks := []extract.CodeBlock{{Language: "html", Code: "<html><body></body></html>"}}
		files := s.autoSaveHTML(ctx, blocks, nil)
		assert.Equal(t, []string{"sketch.html"}, files)
	})

	t.Run("skipped when the agent already wrote files", func(t *testing.T) {
		blocks := []extract.CodeBlock{{Language: "html", Code: "<html></html>"}}
		files := s.autoSaveHTML(ctx, blocks, []string{"existing.html"})
		assert.Equal(t, []string{"existing.html"}, files)
	})

	t.Run("non-document blocks are ignored", func(t *testing.T) {
		blocks := []extract.CodeBlock{{Language: "js", Code: "let x = 1;"}}
		assert.Empty(t, s.autoSaveHTML(ctx, blocks, nil))
	})
}

func TestWatcherBroadcast(t *testing.T) {
	w := &Watcher{subscribers: make(map[chan engine.Event]struct{})}

	events, cancel := w.Subscribe()
	w.broadcast(engine.Event{Type: engine.EventFilesChanged, Files: []string{"sketch.html"}})

	e := <-events
	assert.Equal(t, engine.EventFilesChanged, e.Type)
	assert.Equal(t, []string{"sketch.html"}, e.Files)

	cancel()
	w.broadcast(engine.Event{Type: engine.EventFilesChanged})
	select {
	case _, ok := <-events:
		assert.False(t, ok, "channel should not receive after unsubscribe")
	default:
	}
}
