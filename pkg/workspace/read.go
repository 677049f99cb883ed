package workspace

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"

	"github.com/chatooli/chatooli/pkg/utils"
)

// ReadFileTool returns a workspace file's content with line numbers so
// follow-up edits can reference exact lines.
type ReadFileTool struct{}

// ReadFileInput defines the input parameters for read_file
type ReadFileInput struct {
	Path   string `json:"path" jsonschema:"description=Workspace-relative path of the file to read"`
	Offset int    `json:"offset,omitempty" jsonschema:"description=1-indexed line to start reading from (default: 1)"`
	Limit  int    `json:"limit,omitempty" jsonschema:"description=Maximum number of lines to return (default: all)"`
}

func (t *ReadFileTool) Name() string {
	return "read_file"
}

func (t *ReadFileTool) Description() string {
	return `Read a file from the workspace. Returns the content with line numbers prefixed, e.g. "12: <body>". Use offset and limit to page through large files.`
}

func (t *ReadFileTool) GenerateSchema() *jsonschema.Schema {
	return GenerateSchema[ReadFileInput]()
}

func (t *ReadFileTool) ValidateInput(state *State, parameters string) error {
	var input ReadFileInput
	if err := json.Unmarshal([]byte(parameters), &input); err != nil {
		return err
	}
	if input.Path == "" {
		return errors.New("path is required")
	}
	if input.Offset < 0 || input.Limit < 0 {
		return errors.New("offset and limit must be non-negative")
	}
	_, err := state.Resolve(input.Path)
	return err
}

func (t *ReadFileTool) TracingKVs(parameters string) ([]attribute.KeyValue, error) {
	var input ReadFileInput
	if err := json.Unmarshal([]byte(parameters), &input); err != nil {
		return nil, err
	}
	return []attribute.KeyValue{
		attribute.String("path", input.Path),
		attribute.Int("offset", input.Offset),
		attribute.Int("limit", input.Limit),
	}, nil
}

func (t *ReadFileTool) Execute(_ context.Context, state *State, parameters string) ToolResult {
	var input ReadFileInput
	if err := json.Unmarshal([]byte(parameters), &input); err != nil {
		return ToolResult{Error: err.Error()}
	}

	abs, err := state.Resolve(input.Path)
	if err != nil {
		return ToolResult{Error: err.Error()}
	}
	if utils.IsBinaryFile(abs) {
		return ToolResult{Error: fmt.Sprintf("%s is a binary file", input.Path)}
	}

	content, err := os.ReadFile(abs)
	if err != nil {
		return ToolResult{Error: fmt.Sprintf("reading %s: %v", input.Path, err)}
	}

	lines := strings.Split(string(content), "\n")
	offset := input.Offset
	if offset < 1 {
		offset = 1
	}
	if offset > len(lines) {
		return ToolResult{Error: fmt.Sprintf("offset %d is past the end of %s (%d lines)", offset, input.Path, len(lines))}
	}
	lines = lines[offset-1:]
	if input.Limit > 0 && input.Limit < len(lines) {
		lines = lines[:input.Limit]
	}

	return ToolResult{Result: utils.ContentWithLineNumber(lines, offset)}
}
