package workspace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

const (
	runCodeTimeout   = 30 * time.Second
	maxRunCodeOutput = 16 * 1024
)

// runners maps a language to the interpreter invocation and the
// temp-file extension it expects.
var runners = map[string]struct {
	bin string
	ext string
}{
	"python":     {bin: "python3", ext: ".py"},
	"javascript": {bin: "node", ext: ".js"},
}

// RunCodeTool executes a short script in the workspace, for quick math,
// data generation, or verifying a snippet before it goes into a sketch.
type RunCodeTool struct{}

// RunCodeInput defines the input parameters for run_code
type RunCodeInput struct {
	Language string `json:"language" jsonschema:"description=Script language,enum=python,enum=javascript"`
	Code     string `json:"code" jsonschema:"description=Script source to execute"`
}

func (t *RunCodeTool) Name() string {
	return "run_code"
}

func (t *RunCodeTool) Description() string {
	return `Execute a short python or javascript script with the workspace as its working directory and return stdout and stderr. Scripts are killed after 30 seconds. Use this for calculations and data generation, not for long-running programs.`
}

func (t *RunCodeTool) GenerateSchema() *jsonschema.Schema {
	return GenerateSchema[RunCodeInput]()
}

func (t *RunCodeTool) ValidateInput(_ *State, parameters string) error {
	var input RunCodeInput
	if err := json.Unmarshal([]byte(parameters), &input); err != nil {
		return err
	}
	if input.Code == "" {
		return errors.New("code is required")
	}
	if _, ok := runners[input.Language]; !ok {
		return errors.Errorf("unsupported language %q (use python or javascript)", input.Language)
	}
	return nil
}

func (t *RunCodeTool) TracingKVs(parameters string) ([]attribute.KeyValue, error) {
	var input RunCodeInput
	if err := json.Unmarshal([]byte(parameters), &input); err != nil {
		return nil, err
	}
	return []attribute.KeyValue{
		attribute.String("language", input.Language),
		attribute.Int("code_bytes", len(input.Code)),
	}, nil
}

func (t *RunCodeTool) Execute(ctx context.Context, state *State, parameters string) ToolResult {
	var input RunCodeInput
	if err := json.Unmarshal([]byte(parameters), &input); err != nil {
		return ToolResult{Error: err.Error()}
	}

	runner, ok := runners[input.Language]
	if !ok {
		return ToolResult{Error: fmt.Sprintf("unsupported language %q", input.Language)}
	}

	tmp, err := os.CreateTemp("", "chatooli-run-*"+runner.ext)
	if err != nil {
		return ToolResult{Error: fmt.Sprintf("creating script file: %v", err)}
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(input.Code); err != nil {
		tmp.Close()
		return ToolResult{Error: fmt.Sprintf("writing script file: %v", err)}
	}
	tmp.Close()

	ctx, cancel := context.WithTimeout(ctx, runCodeTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, runner.bin, tmp.Name())
	cmd.Dir = state.Root()

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	runErr := cmd.Run()

	output := out.String()
	if len(output) > maxRunCodeOutput {
		output = output[:maxRunCodeOutput] + "\n...(output truncated)"
	}

	if ctx.Err() == context.DeadlineExceeded {
		return ToolResult{Error: fmt.Sprintf("script timed out after %s", runCodeTimeout), Result: output}
	}
	if runErr != nil {
		return ToolResult{Error: fmt.Sprintf("script failed: %v", runErr), Result: output}
	}

	if strings.TrimSpace(output) == "" {
		output = "(no output)"
	}
	return ToolResult{Result: output}
}
