// Package workspace implements the sandboxed file workspace the agent
// works in, together with the tool set exposed to the model: file
// reads and writes, search, code execution, and the art-director
// critique loop. Every path a tool touches is resolved against the
// workspace root and refused if it escapes.
package workspace

import (
	"context"
	"fmt"

	"github.com/invopop/jsonschema"
	"go.opentelemetry.io/otel/attribute"
)

// Tool is a single capability exposed to the model. Parameters arrive
// as the raw JSON string produced by the model so each tool owns its
// own decoding and validation.
type Tool interface {
	GenerateSchema() *jsonschema.Schema
	Name() string
	Description() string
	ValidateInput(state *State, parameters string) error
	Execute(ctx context.Context, state *State, parameters string) ToolResult
	TracingKVs(parameters string) ([]attribute.KeyValue, error)
}

// ToolResult carries a tool's output back into the conversation. Both
// fields may be set; the error comes first in the rendered form so the
// model sees failures before partial output.
type ToolResult struct {
	Result string `json:"result"`
	Error  string `json:"error"`
}

func (t *ToolResult) String() string {
	out := ""
	if t.Error != "" {
		out = fmt.Sprintf(`<error>
%s
</error>
`, t.Error)
	}
	if t.Result != "" {
		out += fmt.Sprintf(`<result>
%s
</result>
`, t.Result)
	}
	return out
}

// GenerateSchema produces the JSON schema for a tool input struct.
func GenerateSchema[T any]() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T

	return reflector.Reflect(v)
}

// CritiqueFunc produces design feedback for a sketch. It is injected
// into the art-director tool so the tool layer never depends on a
// concrete model engine.
type CritiqueFunc func(ctx context.Context, description, code string) (string, error)

// DefaultTools returns the full tool set in stable order. A nil
// critique leaves the art-director tool out.
func DefaultTools(critique CritiqueFunc) []Tool {
	tools := []Tool{
		&ReadFileTool{},
		&WriteFileTool{},
		&EditFileTool{},
		&ListFilesTool{},
		&GlobFilesTool{},
		&GrepFilesTool{},
		&RunCodeTool{},
		&SetPreviewTool{},
		&GetPreviewTool{},
	}
	if critique != nil {
		tools = append(tools, &ArtDirectorTool{Critique: critique})
	}
	return tools
}

// FromName finds a tool by name within a tool set.
func FromName(tools []Tool, name string) (Tool, bool) {
	for _, t := range tools {
		if t.Name() == name {
			return t, true
		}
	}
	return nil, false
}
