package workspace

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

const maxGlobResults = 100

// GlobFilesTool finds workspace files matching a doublestar pattern.
type GlobFilesTool struct{}

// GlobFilesInput defines the input parameters for glob_files
type GlobFilesInput struct {
	Pattern string `json:"pattern" jsonschema:"description=Glob pattern relative to the workspace root, ** is supported (e.g. sketches/**/*.html)"`
}

func (t *GlobFilesTool) Name() string {
	return "glob_files"
}

func (t *GlobFilesTool) Description() string {
	return `Find workspace files by glob pattern. Supports ** for recursive matching. Results are sorted and capped at 100.`
}

func (t *GlobFilesTool) GenerateSchema() *jsonschema.Schema {
	return GenerateSchema[GlobFilesInput]()
}

func (t *GlobFilesTool) ValidateInput(_ *State, parameters string) error {
	var input GlobFilesInput
	if err := json.Unmarshal([]byte(parameters), &input); err != nil {
		return err
	}
	if input.Pattern == "" {
		return errors.New("pattern is required")
	}
	if !doublestar.ValidatePattern(input.Pattern) {
		return errors.Errorf("invalid glob pattern %q", input.Pattern)
	}
	return nil
}

func (t *GlobFilesTool) TracingKVs(parameters string) ([]attribute.KeyValue, error) {
	var input GlobFilesInput
	if err := json.Unmarshal([]byte(parameters), &input); err != nil {
		return nil, err
	}
	return []attribute.KeyValue{
		attribute.String("pattern", input.Pattern),
	}, nil
}

func (t *GlobFilesTool) Execute(_ context.Context, state *State, parameters string) ToolResult {
	var input GlobFilesInput
	if err := json.Unmarshal([]byte(parameters), &input); err != nil {
		return ToolResult{Error: err.Error()}
	}

	matches, err := doublestar.Glob(os.DirFS(state.Root()), input.Pattern)
	if err != nil {
		return ToolResult{Error: fmt.Sprintf("globbing %q: %v", input.Pattern, err)}
	}

	sort.Strings(matches)
	truncated := false
	if len(matches) > maxGlobResults {
		matches = matches[:maxGlobResults]
		truncated = true
	}

	if len(matches) == 0 {
		return ToolResult{Result: fmt.Sprintf("No files match %q", input.Pattern)}
	}

	var b strings.Builder
	for _, m := range matches {
		b.WriteString(m)
		b.WriteString("\n")
	}
	if truncated {
		b.WriteString(fmt.Sprintf("\n[Results truncated to %d files. Narrow the pattern to see the rest.]\n", maxGlobResults))
	}

	return ToolResult{Result: strings.TrimRight(b.String(), "\n")}
}
