package workspace

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	"github.com/invopop/jsonschema"
	"go.opentelemetry.io/otel/attribute"
)

// defaultIgnores hides tooling noise from directory listings.
var defaultIgnores = []glob.Glob{
	glob.MustCompile(".*"),
	glob.MustCompile("__pycache__"),
	glob.MustCompile("node_modules"),
	glob.MustCompile("*.pyc"),
}

// ListFilesTool renders a directory tree of the workspace.
type ListFilesTool struct{}

// ListFilesInput defines the input parameters for list_files
type ListFilesInput struct {
	Path      string `json:"path,omitempty" jsonschema:"description=Workspace-relative directory to list (default: workspace root)"`
	Recursive bool   `json:"recursive,omitempty" jsonschema:"description=Descend into subdirectories (default: top level only)"`
}

func (t *ListFilesTool) Name() string {
	return "list_files"
}

func (t *ListFilesTool) Description() string {
	return `List files and directories in the workspace as a tree. Hidden files and dependency directories are omitted. Set recursive to descend into subdirectories.`
}

func (t *ListFilesTool) GenerateSchema() *jsonschema.Schema {
	return GenerateSchema[ListFilesInput]()
}

func (t *ListFilesTool) ValidateInput(state *State, parameters string) error {
	var input ListFilesInput
	if err := json.Unmarshal([]byte(parameters), &input); err != nil {
		return err
	}
	_, err := state.Resolve(input.Path)
	return err
}

func (t *ListFilesTool) TracingKVs(parameters string) ([]attribute.KeyValue, error) {
	var input ListFilesInput
	if err := json.Unmarshal([]byte(parameters), &input); err != nil {
		return nil, err
	}
	return []attribute.KeyValue{
		attribute.String("path", input.Path),
		attribute.Bool("recursive", input.Recursive),
	}, nil
}

func (t *ListFilesTool) Execute(_ context.Context, state *State, parameters string) ToolResult {
	var input ListFilesInput
	if err := json.Unmarshal([]byte(parameters), &input); err != nil {
		return ToolResult{Error: err.Error()}
	}

	abs, err := state.Resolve(input.Path)
	if err != nil {
		return ToolResult{Error: err.Error()}
	}

	info, err := os.Stat(abs)
	if err != nil {
		return ToolResult{Error: fmt.Sprintf("listing %s: %v", input.Path, err)}
	}
	if !info.IsDir() {
		return ToolResult{Error: fmt.Sprintf("%s is not a directory", input.Path)}
	}

	var b strings.Builder
	root := input.Path
	if root == "" {
		root = "."
	}
	b.WriteString(root + "/\n")
	if err := renderTree(&b, abs, "", input.Recursive); err != nil {
		return ToolResult{Error: fmt.Sprintf("listing %s: %v", input.Path, err)}
	}

	return ToolResult{Result: strings.TrimRight(b.String(), "\n")}
}

func ignored(name string) bool {
	for _, g := range defaultIgnores {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// renderTree writes dir's entries using the conventional box-drawing
// connectors, directories first within each level.
func renderTree(b *strings.Builder, dir, prefix string, recursive bool) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	var kept []os.DirEntry
	for _, e := range entries {
		if !ignored(e.Name()) {
			kept = append(kept, e)
		}
	}
	sort.Slice(kept, func(i, j int) bool {
		if kept[i].IsDir() != kept[j].IsDir() {
			return kept[i].IsDir()
		}
		return kept[i].Name() < kept[j].Name()
	})

	for i, e := range kept {
		connector := "├── "
		childPrefix := prefix + "│   "
		if i == len(kept)-1 {
			connector = "└── "
			childPrefix = prefix + "    "
		}

		if e.IsDir() {
			fmt.Fprintf(b, "%s%s%s/\n", prefix, connector, e.Name())
			if !recursive {
				continue
			}
			if err := renderTree(b, filepath.Join(dir, e.Name()), childPrefix, recursive); err != nil {
				return err
			}
		} else {
			fmt.Fprintf(b, "%s%s%s\n", prefix, connector, e.Name())
		}
	}
	return nil
}
