package workspace

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"

	"github.com/chatooli/chatooli/pkg/utils"
)

const maxGrepResults = 100

// GrepFilesTool searches workspace file contents with a regular
// expression.
type GrepFilesTool struct{}

// GrepFilesInput defines the input parameters for grep_files
type GrepFilesInput struct {
	Pattern string `json:"pattern" jsonschema:"description=Regular expression to search for (Go/RE2 syntax)"`
	Include string `json:"include,omitempty" jsonschema:"description=Optional glob restricting which files are searched (e.g. **/*.js)"`
}

func (t *GrepFilesTool) Name() string {
	return "grep_files"
}

func (t *GrepFilesTool) Description() string {
	return `Search workspace file contents with a regular expression. Each match is reported as path:line: text. Binary and hidden files are skipped; output is capped at 100 matches.`
}

func (t *GrepFilesTool) GenerateSchema() *jsonschema.Schema {
	return GenerateSchema[GrepFilesInput]()
}

func (t *GrepFilesTool) ValidateInput(_ *State, parameters string) error {
	var input GrepFilesInput
	if err := json.Unmarshal([]byte(parameters), &input); err != nil {
		return err
	}
	if input.Pattern == "" {
		return errors.New("pattern is required")
	}
	if _, err := regexp.Compile(input.Pattern); err != nil {
		return errors.Wrap(err, "invalid regular expression")
	}
	if input.Include != "" && !doublestar.ValidatePattern(input.Include) {
		return errors.Errorf("invalid include glob %q", input.Include)
	}
	return nil
}

func (t *GrepFilesTool) TracingKVs(parameters string) ([]attribute.KeyValue, error) {
	var input GrepFilesInput
	if err := json.Unmarshal([]byte(parameters), &input); err != nil {
		return nil, err
	}
	return []attribute.KeyValue{
		attribute.String("pattern", input.Pattern),
		attribute.String("include", input.Include),
	}, nil
}

func (t *GrepFilesTool) Execute(ctx context.Context, state *State, parameters string) ToolResult {
	var input GrepFilesInput
	if err := json.Unmarshal([]byte(parameters), &input); err != nil {
		return ToolResult{Error: err.Error()}
	}

	re, err := regexp.Compile(input.Pattern)
	if err != nil {
		return ToolResult{Error: err.Error()}
	}

	var hits []string
	truncated := false

	walkErr := filepath.WalkDir(state.Root(), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if ignored(d.Name()) && path != state.Root() {
				return filepath.SkipDir
			}
			return nil
		}
		if ignored(d.Name()) {
			return nil
		}

		rel := state.Rel(path)
		if input.Include != "" {
			ok, _ := doublestar.Match(input.Include, rel)
			if !ok {
				return nil
			}
		}
		if utils.IsBinaryFile(path) {
			return nil
		}

		f, err := os.Open(path)
		if err != nil {
			return nil
		}
		defer f.Close()

		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		lineNo := 0
		for scanner.Scan() {
			lineNo++
			if re.MatchString(scanner.Text()) {
				hits = append(hits, fmt.Sprintf("%s:%d: %s", rel, lineNo, scanner.Text()))
				if len(hits) >= maxGrepResults {
					truncated = true
					return filepath.SkipAll
				}
			}
		}
		return nil
	})
	if walkErr != nil {
		return ToolResult{Error: fmt.Sprintf("searching workspace: %v", walkErr)}
	}

	if len(hits) == 0 {
		return ToolResult{Result: fmt.Sprintf("No matches for %q", input.Pattern)}
	}

	out := strings.Join(hits, "\n")
	if truncated {
		out += fmt.Sprintf("\n\n[Results truncated to %d matches. Narrow the pattern to see the rest.]", maxGrepResults)
	}
	return ToolResult{Result: out}
}
