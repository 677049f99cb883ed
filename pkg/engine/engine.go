// Package engine drives conversations with model providers. An engine
// runs the tool-use loop: it sends the conversation, executes any tool
// calls the model makes against the workspace, feeds the results back,
// and repeats until the model answers in plain text or the turn cap is
// hit. Progress is reported through an event emitter so the HTTP layer
// can relay it over SSE.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"go.opentelemetry.io/otel/attribute"

	"github.com/chatooli/chatooli/pkg/extract"
	"github.com/chatooli/chatooli/pkg/logger"
	"github.com/chatooli/chatooli/pkg/telemetry"
	"github.com/chatooli/chatooli/pkg/workspace"
)

// MaxTurns caps the number of model round-trips in a single request so
// a confused model cannot loop on tool calls forever.
const MaxTurns = 20

// Event types relayed to clients during generation.
const (
	EventThinking     = "thinking"
	EventToolCall     = "tool_call"
	EventToolResult   = "tool_result"
	EventCode         = "code"
	EventResponse     = "response"
	EventDone         = "done"
	EventError        = "error"
	EventFilesChanged = "files_changed"
)

// Event is a single progress notification during generation.
type Event struct {
	Type      string          `json:"type"`
	Content   string          `json:"content,omitempty"`
	Tool      string          `json:"tool,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	Language  string          `json:"language,omitempty"`
	SessionID string          `json:"session_id,omitempty"`
	Skills    []string        `json:"skills,omitempty"`
	Path      string          `json:"path,omitempty"`
	Files     []string        `json:"files,omitempty"`
}

// Emitter receives events as they happen. Emitters must not block for
// long; slow consumers stall the generation loop.
type Emitter func(Event)

func discard(Event) {}

// Message is one turn of plain-text conversation history.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Conversation roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Request is everything an engine needs for one generation: the system
// prompt with skill context already injected, the conversation so far,
// and the tool surface bound to a workspace.
type Request struct {
	System    string
	Messages  []Message
	Model     string
	MaxTokens int
	Tools     []workspace.Tool
	State     *workspace.State
}

// Response is the final model answer with its code blocks extracted.
type Response struct {
	Text   string              `json:"text"`
	Blocks []extract.CodeBlock `json:"blocks"`
}

// Engine is a model provider driving the tool-use loop.
type Engine interface {
	Name() string
	Generate(ctx context.Context, req Request) (*Response, error)
	Stream(ctx context.Context, req Request, emit Emitter) (*Response, error)
}

// Registry holds the configured engines in registration order.
type Registry struct {
	engines map[string]Engine
	order   []string
}

func NewRegistry() *Registry {
	return &Registry{engines: make(map[string]Engine)}
}

func (r *Registry) Register(e Engine) {
	if _, exists := r.engines[e.Name()]; !exists {
		r.order = append(r.order, e.Name())
	}
	r.engines[e.Name()] = e
}

func (r *Registry) Get(name string) (Engine, bool) {
	e, ok := r.engines[name]
	return e, ok
}

// Names returns the registered engine names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// ResolveModel maps a model spec to an engine name and model ID. A spec
// of the form "engine/model" is split as-is; a bare model name is
// routed by its family prefix. An empty spec picks the default engine
// with its configured default model.
func ResolveModel(spec string) (engineName, model string) {
	if spec == "" {
		return "anthropic", ""
	}
	if engine, rest, found := strings.Cut(spec, "/"); found {
		return engine, rest
	}

	lowered := strings.ToLower(spec)
	switch {
	case strings.HasPrefix(lowered, "claude"):
		return "anthropic", spec
	case strings.HasPrefix(lowered, "gpt"), strings.HasPrefix(lowered, "o1"),
		strings.HasPrefix(lowered, "o3"), strings.HasPrefix(lowered, "o4"):
		return "openai", spec
	}
	return "anthropic", spec
}

// runTool validates and executes a model-requested tool call, emitting
// the call and its result. All failure modes are folded into the result
// so the model can see what went wrong and recover.
func runTool(ctx context.Context, state *workspace.State, tools []workspace.Tool, name, params string, emit Emitter) workspace.ToolResult {
	callEvent := Event{Type: EventToolCall, Tool: name}
	if json.Valid([]byte(params)) {
		callEvent.Input = json.RawMessage(params)
	}
	emit(callEvent)

	var result workspace.ToolResult
	tool, ok := workspace.FromName(tools, name)
	switch {
	case !ok:
		result = workspace.ToolResult{Error: fmt.Sprintf("unknown tool %q", name)}
	default:
		if err := tool.ValidateInput(state, params); err != nil {
			result = workspace.ToolResult{Error: err.Error()}
			break
		}

		attrs := []attribute.KeyValue{attribute.String("tool", name)}
		if kvs, err := tool.TracingKVs(params); err == nil {
			attrs = append(attrs, kvs...)
		}
		_ = telemetry.WithSpan(ctx, "tool."+name, func(ctx context.Context) error {
			result = tool.Execute(ctx, state, params)
			if result.Error != "" {
				return fmt.Errorf("%s", result.Error)
			}
			return nil
		}, attrs...)
	}

	if result.Error != "" {
		logger.G(ctx).WithField("tool", name).WithField("error", result.Error).Debug("tool call failed")
	}
	emit(Event{Type: EventToolResult, Tool: name, Content: result.String()})
	return result
}

// finish emits the code and response events for a final answer and
// packages it up.
func finish(text string, emit Emitter) *Response {
	blocks := extract.CodeBlocks(text)
	for _, b := range blocks {
		emit(Event{Type: EventCode, Language: b.Language, Content: b.Code})
	}
	emit(Event{Type: EventResponse, Content: text})
	return &Response{Text: text, Blocks: blocks}
}

// retryOptions is the shared backoff policy for provider API calls.
func retryOptions(ctx context.Context) []retry.Option {
	return []retry.Option{
		retry.Attempts(3),
		retry.Delay(500 * time.Millisecond),
		retry.MaxDelay(5 * time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	}
}
