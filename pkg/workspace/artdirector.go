package workspace

import (
	"context"
	"encoding/json"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

// ArtDirectorTool asks a second model pass for design critique of a
// sketch. The critique function is injected so this package stays free
// of engine dependencies.
type ArtDirectorTool struct {
	Critique CritiqueFunc
}

// ArtDirectorInput defines the input parameters for consult_art_director
type ArtDirectorInput struct {
	Description string `json:"description" jsonschema:"description=What the sketch is trying to achieve, in one or two sentences"`
	Code        string `json:"code" jsonschema:"description=The current sketch source to critique"`
}

func (t *ArtDirectorTool) Name() string {
	return "consult_art_director"
}

func (t *ArtDirectorTool) Description() string {
	return `Ask the art director for critique of a sketch: composition, color, motion, and polish. Use it once a sketch works but before calling it finished.`
}

func (t *ArtDirectorTool) GenerateSchema() *jsonschema.Schema {
	return GenerateSchema[ArtDirectorInput]()
}

func (t *ArtDirectorTool) ValidateInput(_ *State, parameters string) error {
	var input ArtDirectorInput
	if err := json.Unmarshal([]byte(parameters), &input); err != nil {
		return err
	}
	if input.Code == "" {
		return errors.New("code is required")
	}
	return nil
}

func (t *ArtDirectorTool) TracingKVs(parameters string) ([]attribute.KeyValue, error) {
	var input ArtDirectorInput
	if err := json.Unmarshal([]byte(parameters), &input); err != nil {
		return nil, err
	}
	return []attribute.KeyValue{
		attribute.Int("code_bytes", len(input.Code)),
	}, nil
}

func (t *ArtDirectorTool) Execute(ctx context.Context, _ *State, parameters string) ToolResult {
	var input ArtDirectorInput
	if err := json.Unmarshal([]byte(parameters), &input); err != nil {
		return ToolResult{Error: err.Error()}
	}

	critique, err := t.Critique(ctx, input.Description, input.Code)
	if err != nil {
		return ToolResult{Error: errors.Wrap(err, "art director unavailable").Error()}
	}
	return ToolResult{Result: critique}
}
