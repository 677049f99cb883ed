package workspace

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

// SetPreviewTool points the UI preview pane at a workspace file.
type SetPreviewTool struct{}

// SetPreviewInput defines the input parameters for set_preview
type SetPreviewInput struct {
	Path string `json:"path" jsonschema:"description=Workspace-relative path of the HTML file to show in the preview pane"`
}

func (t *SetPreviewTool) Name() string {
	return "set_preview"
}

func (t *SetPreviewTool) Description() string {
	return `Set the file shown in the designer's preview pane. Call this after writing or updating a sketch so the result is visible immediately.`
}

func (t *SetPreviewTool) GenerateSchema() *jsonschema.Schema {
	return GenerateSchema[SetPreviewInput]()
}

func (t *SetPreviewTool) ValidateInput(state *State, parameters string) error {
	var input SetPreviewInput
	if err := json.Unmarshal([]byte(parameters), &input); err != nil {
		return err
	}
	if input.Path == "" {
		return errors.New("path is required")
	}
	_, err := state.Resolve(input.Path)
	return err
}

func (t *SetPreviewTool) TracingKVs(parameters string) ([]attribute.KeyValue, error) {
	var input SetPreviewInput
	if err := json.Unmarshal([]byte(parameters), &input); err != nil {
		return nil, err
	}
	return []attribute.KeyValue{
		attribute.String("path", input.Path),
	}, nil
}

func (t *SetPreviewTool) Execute(_ context.Context, state *State, parameters string) ToolResult {
	var input SetPreviewInput
	if err := json.Unmarshal([]byte(parameters), &input); err != nil {
		return ToolResult{Error: err.Error()}
	}

	abs, err := state.Resolve(input.Path)
	if err != nil {
		return ToolResult{Error: err.Error()}
	}
	if _, err := os.Stat(abs); err != nil {
		return ToolResult{Error: fmt.Sprintf("cannot preview %s: %v", input.Path, err)}
	}

	state.SetPreview(input.Path)
	return ToolResult{Result: fmt.Sprintf("Preview set to %s", input.Path)}
}

// GetPreviewTool reports which file the preview pane currently shows.
type GetPreviewTool struct{}

// GetPreviewInput defines the input parameters for get_preview
type GetPreviewInput struct{}

func (t *GetPreviewTool) Name() string {
	return "get_preview"
}

func (t *GetPreviewTool) Description() string {
	return `Return the workspace-relative path currently shown in the preview pane, if any.`
}

func (t *GetPreviewTool) GenerateSchema() *jsonschema.Schema {
	return GenerateSchema[GetPreviewInput]()
}

func (t *GetPreviewTool) ValidateInput(_ *State, _ string) error {
	return nil
}

func (t *GetPreviewTool) TracingKVs(_ string) ([]attribute.KeyValue, error) {
	return nil, nil
}

func (t *GetPreviewTool) Execute(_ context.Context, state *State, _ string) ToolResult {
	preview := state.Preview()
	if preview == "" {
		return ToolResult{Result: "No preview is set"}
	}
	return ToolResult{Result: preview}
}
