package workspace

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

// WriteFileTool creates or overwrites a workspace file, creating parent
// directories as needed.
type WriteFileTool struct{}

// WriteFileInput defines the input parameters for write_file
type WriteFileInput struct {
	Path    string `json:"path" jsonschema:"description=Workspace-relative path of the file to write"`
	Content string `json:"content" jsonschema:"description=Full content of the file"`
}

func (t *WriteFileTool) Name() string {
	return "write_file"
}

func (t *WriteFileTool) Description() string {
	return `Write a file in the workspace, overwriting any existing content. Parent directories are created automatically. Use this for new files or full rewrites; prefer edit_file for small changes.`
}

func (t *WriteFileTool) GenerateSchema() *jsonschema.Schema {
	return GenerateSchema[WriteFileInput]()
}

func (t *WriteFileTool) ValidateInput(state *State, parameters string) error {
	var input WriteFileInput
	if err := json.Unmarshal([]byte(parameters), &input); err != nil {
		return err
	}
	if input.Path == "" {
		return errors.New("path is required")
	}
	_, err := state.Resolve(input.Path)
	return err
}

func (t *WriteFileTool) TracingKVs(parameters string) ([]attribute.KeyValue, error) {
	var input WriteFileInput
	if err := json.Unmarshal([]byte(parameters), &input); err != nil {
		return nil, err
	}
	return []attribute.KeyValue{
		attribute.String("path", input.Path),
		attribute.Int("bytes", len(input.Content)),
	}, nil
}

func (t *WriteFileTool) Execute(_ context.Context, state *State, parameters string) ToolResult {
	var input WriteFileInput
	if err := json.Unmarshal([]byte(parameters), &input); err != nil {
		return ToolResult{Error: err.Error()}
	}

	abs, err := state.Resolve(input.Path)
	if err != nil {
		return ToolResult{Error: err.Error()}
	}

	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return ToolResult{Error: fmt.Sprintf("creating directories for %s: %v", input.Path, err)}
	}
	if err := os.WriteFile(abs, []byte(input.Content), 0o644); err != nil {
		return ToolResult{Error: fmt.Sprintf("writing %s: %v", input.Path, err)}
	}

	return ToolResult{Result: fmt.Sprintf("Wrote %d bytes to %s", len(input.Content), input.Path)}
}
