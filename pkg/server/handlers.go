package server

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/chatooli/chatooli/pkg/engine"
	"github.com/chatooli/chatooli/pkg/extract"
	"github.com/chatooli/chatooli/pkg/logger"
	"github.com/chatooli/chatooli/pkg/prompt"
	"github.com/chatooli/chatooli/pkg/skills"
)

// ChatRequest is the body of /api/chat and /api/chat/stream.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
	Engine    string `json:"engine"`
	Model     string `json:"model"`
}

// ChatResponse is the terminal payload of both chat endpoints.
type ChatResponse struct {
	SessionID    string              `json:"session_id"`
	Response     string              `json:"response"`
	CodeBlocks   []extract.CodeBlock `json:"code_blocks"`
	FilesChanged []string            `json:"files_changed"`
	Skills       []string            `json:"skills"`
}

// runChat executes one conversation turn: history assembly, skill
// matching, the engine loop, auto-save, and session bookkeeping. The
// emitter receives progress events; pass nil for the non-streaming path.
func (s *Server) runChat(r *http.Request, req ChatRequest, emit engine.Emitter) (*ChatResponse, error) {
	ctx := r.Context()

	sessionID := s.store.Append(req.SessionID, engine.RoleUser, req.Message)
	history := s.store.History(sessionID)
	history = history[:len(history)-1]

	system, matched := prompt.System(s.index, req.Message)
	matchedNames := skills.MatchedNames(matched)

	engineName := req.Engine
	model := req.Model
	if engineName == "" {
		if model != "" {
			engineName, model = engine.ResolveModel(model)
		} else {
			engineName = s.config.Engine
		}
	}
	eng, ok := s.registry.Get(engineName)
	if !ok {
		return nil, errors.Errorf("unknown engine %q", engineName)
	}

	var filesChanged []string
	collector := func(e engine.Event) {
		if e.Type == engine.EventToolCall {
			if path, ok := changedPath(e); ok {
				filesChanged = append(filesChanged, path)
			}
		}
		if emit != nil {
			emit(e)
		}
	}

	resp, err := eng.Stream(ctx, engine.Request{
		System:    system,
		Messages:  append(history, engine.Message{Role: engine.RoleUser, Content: req.Message}),
		Model:     model,
		MaxTokens: s.config.MaxTokens,
		Tools:     s.tools,
		State:     s.state,
	}, collector)
	if err != nil {
		return nil, err
	}

	filesChanged = s.autoSaveHTML(ctx, resp.Blocks, filesChanged)
	s.store.Append(sessionID, engine.RoleAssistant, resp.Text)

	return &ChatResponse{
		SessionID:    sessionID,
		Response:     resp.Text,
		CodeBlocks:   resp.Blocks,
		FilesChanged: dedupe(filesChanged),
		Skills:       matchedNames,
	}, nil
}

// changedPath extracts the target path from a mutating tool call.
func changedPath(e engine.Event) (string, bool) {
	if e.Tool != "write_file" && e.Tool != "edit_file" {
		return "", false
	}
	var input struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal(e.Input, &input); err != nil || input.Path == "" {
		return "", false
	}
	return input.Path, true
}

func dedupe(paths []string) []string {
	if paths == nil {
		return []string{}
	}
	seen := make(map[string]struct{}, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.Wrap(err, "decoding request"))
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, errors.New("message is required"))
		return
	}

	resp, err := s.runChat(r, req, nil)
	if err != nil {
		logger.G(r.Context()).WithError(err).Error("chat failed")
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.Wrap(err, "decoding request"))
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, errors.New("message is required"))
		return
	}

	sse, err := newSSEWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	sse.send(engine.EventThinking, map[string]string{"status": "Agent is thinking..."})

	resp, err := s.runChat(r, req, func(e engine.Event) {
		// The terminal ChatResponse frame below is the response event
		// clients render; relaying the engine's would send it twice.
		if e.Type == engine.EventResponse {
			return
		}
		sse.send(e.Type, e)
	})
	if err != nil {
		logger.G(r.Context()).WithError(err).Error("chat stream failed")
		sse.send(engine.EventResponse, ChatResponse{
			SessionID:    req.SessionID,
			Response:     fmt.Sprintf("Error: %v", err),
			CodeBlocks:   []extract.CodeBlock{},
			FilesChanged: []string{},
			Skills:       []string{},
		})
		sse.send(engine.EventDone, map[string]string{"status": "complete"})
		return
	}

	sse.send(engine.EventResponse, resp)
	sse.send(engine.EventDone, map[string]string{"status": "complete"})
}

func (s *Server) handleEngines(w http.ResponseWriter, _ *http.Request) {
	type engineInfo struct {
		ID             string `json:"id"`
		Name           string `json:"name"`
		SupportsModels bool   `json:"supports_models"`
	}

	engines := make([]engineInfo, 0)
	for _, name := range s.registry.Names() {
		engines = append(engines, engineInfo{ID: name, Name: name, SupportsModels: true})
	}
	writeJSON(w, http.StatusOK, engines)
}

func (s *Server) handleSkills(w http.ResponseWriter, _ *http.Request) {
	type skillInfo struct {
		Name        string   `json:"name"`
		Description string   `json:"description"`
		Keywords    []string `json:"keywords"`
		Outcome     string   `json:"outcome"`
	}

	out := make([]skillInfo, 0, len(s.index.Skills()))
	for _, sk := range s.index.Skills() {
		out = append(out, skillInfo{
			Name:        sk.Name,
			Description: sk.Description,
			Keywords:    sk.Keywords,
			Outcome:     sk.Outcome.String(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	sess, ok := s.store.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, errors.Errorf("session %s not found", id))
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.store.Delete(id)
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared", "session_id": id})
}

func (s *Server) handleWorkspaceEntries(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		path = "."
	}

	entries, err := s.state.Entries(path)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"path": path, "entries": entries})
}

// mimeFallbacks covers creative-coding file types the platform MIME
// database usually does not know. They are served as text so the
// preview can fetch them.
var mimeFallbacks = map[string]string{
	".glsl": "text/plain",
	".frag": "text/plain",
	".vert": "text/plain",
	".wgsl": "text/plain",
	".obj":  "text/plain",
	".mtl":  "text/plain",
}

func (s *Server) handleWorkspaceFile(w http.ResponseWriter, r *http.Request) {
	relPath := mux.Vars(r)["path"]

	abs, err := s.state.Resolve(relPath)
	if err != nil {
		writeError(w, http.StatusForbidden, err)
		return
	}

	info, err := os.Stat(abs)
	if err != nil || info.IsDir() {
		writeError(w, http.StatusNotFound, errors.Errorf("file not found: %s", relPath))
		return
	}

	content, err := os.ReadFile(abs)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	ext := strings.ToLower(filepath.Ext(abs))
	mimeType := mime.TypeByExtension(ext)
	if mimeType == "" {
		mimeType = mimeFallbacks[ext]
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	w.Write(content)
}
