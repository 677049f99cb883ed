package workspace

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/aymanbagabas/go-udiff"
	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"

	"github.com/chatooli/chatooli/pkg/utils"
)

// EditFileTool replaces the first occurrence of a text span in a
// workspace file and reports the change as a unified diff.
type EditFileTool struct{}

// EditFileInput defines the input parameters for edit_file
type EditFileInput struct {
	Path    string `json:"path" jsonschema:"description=Workspace-relative path of the file to edit"`
	OldText string `json:"old_text" jsonschema:"description=Exact text to replace; only the first occurrence is changed"`
	NewText string `json:"new_text" jsonschema:"description=Replacement text"`
}

func (t *EditFileTool) Name() string {
	return "edit_file"
}

func (t *EditFileTool) Description() string {
	return `Edit a workspace file by replacing the first occurrence of old_text with new_text. old_text must match the file exactly, including whitespace. The result includes a unified diff of the change.`
}

func (t *EditFileTool) GenerateSchema() *jsonschema.Schema {
	return GenerateSchema[EditFileInput]()
}

func (t *EditFileTool) ValidateInput(state *State, parameters string) error {
	var input EditFileInput
	if err := json.Unmarshal([]byte(parameters), &input); err != nil {
		return err
	}
	if input.Path == "" {
		return errors.New("path is required")
	}
	if input.OldText == "" {
		return errors.New("old_text is required")
	}
	if input.OldText == input.NewText {
		return errors.New("old_text and new_text are identical")
	}
	_, err := state.Resolve(input.Path)
	return err
}

func (t *EditFileTool) TracingKVs(parameters string) ([]attribute.KeyValue, error) {
	var input EditFileInput
	if err := json.Unmarshal([]byte(parameters), &input); err != nil {
		return nil, err
	}
	return []attribute.KeyValue{
		attribute.String("path", input.Path),
	}, nil
}

func (t *EditFileTool) Execute(_ context.Context, state *State, parameters string) ToolResult {
	var input EditFileInput
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

	raw, err := os.ReadFile(abs)
	if err != nil {
		return ToolResult{Error: fmt.Sprintf("reading %s: %v", input.Path, err)}
	}
	old := string(raw)

	idx := strings.Index(old, input.OldText)
	if idx == -1 {
		return ToolResult{Error: fmt.Sprintf("old_text not found in %s; read the file again and copy the text exactly", input.Path)}
	}

	updated := old[:idx] + input.NewText + old[idx+len(input.OldText):]
	if err := os.WriteFile(abs, []byte(updated), 0o644); err != nil {
		return ToolResult{Error: fmt.Sprintf("writing %s: %v", input.Path, err)}
	}

	diff := udiff.Unified("a/"+input.Path, "b/"+input.Path, old, updated)
	return ToolResult{Result: fmt.Sprintf("Edited %s\n\n%s", input.Path, diff)}
}
