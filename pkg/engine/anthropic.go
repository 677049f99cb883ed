package engine

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/avast/retry-go/v4"
	"github.com/pkg/errors"

	"github.com/chatooli/chatooli/pkg/logger"
	"github.com/chatooli/chatooli/pkg/workspace"
)

const defaultAnthropicModel = string(anthropic.ModelClaudeSonnet4_20250514)

// AnthropicEngine drives the tool-use loop against the Anthropic
// Messages API. Credentials come from the environment via the SDK
// (ANTHROPIC_API_KEY).
type AnthropicEngine struct {
	client anthropic.Client
	model  string
}

// NewAnthropicEngine creates the engine with a default model used when
// a request does not name one.
func NewAnthropicEngine(model string) *AnthropicEngine {
	if model == "" {
		model = defaultAnthropicModel
	}
	return &AnthropicEngine{
		client: anthropic.NewClient(),
		model:  model,
	}
}

func (e *AnthropicEngine) Name() string {
	return "anthropic"
}

func (e *AnthropicEngine) Generate(ctx context.Context, req Request) (*Response, error) {
	return e.Stream(ctx, req, discard)
}

func (e *AnthropicEngine) Stream(ctx context.Context, req Request, emit Emitter) (*Response, error) {
	if emit == nil {
		emit = discard
	}

	model := e.model
	if req.Model != "" {
		model = req.Model
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 8192
	}

	messages := make([]anthropic.MessageParam, 0, len(req.Messages))
	for _, m := range req.Messages {
		if m.Role == RoleAssistant {
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		} else {
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	for turn := 0; turn < MaxTurns; turn++ {
		params := anthropic.MessageNewParams{
			MaxTokens: int64(maxTokens),
			System: []anthropic.TextBlockParam{
				{Text: req.System},
			},
			Messages: messages,
			Model:    anthropic.Model(model),
			Tools:    toAnthropicTools(req.Tools),
		}

		var response *anthropic.Message
		err := retry.Do(func() error {
			var apiErr error
			response, apiErr = e.client.Messages.New(ctx, params)
			return apiErr
		}, retryOptions(ctx)...)
		if err != nil {
			return nil, errors.Wrap(err, "sending message to anthropic")
		}

		messages = append(messages, response.ToParam())

		hasToolUse := false
		for _, block := range response.Content {
			if _, ok := block.AsAny().(anthropic.ToolUseBlock); ok {
				hasToolUse = true
				break
			}
		}

		var finalText string
		var results []anthropic.ContentBlockParamUnion
		for _, block := range response.Content {
			switch variant := block.AsAny().(type) {
			case anthropic.TextBlock:
				if hasToolUse {
					emit(Event{Type: EventThinking, Content: variant.Text})
				} else {
					finalText = variant.Text
				}
			case anthropic.ToolUseBlock:
				input := variant.JSON.Input.Raw()
				output := runTool(ctx, req.State, req.Tools, block.Name, input, emit)
				results = append(results, anthropic.NewToolResultBlock(block.ID, output.String(), output.Error != ""))
			}
		}

		if !hasToolUse {
			return finish(finalText, emit), nil
		}

		logger.G(ctx).WithField("turn", turn+1).WithField("tool_calls", len(results)).Debug("continuing tool-use loop")
		messages = append(messages, anthropic.NewUserMessage(results...))
	}

	return nil, errors.Errorf("model did not settle within %d turns", MaxTurns)
}

func toAnthropicTools(tools []workspace.Tool) []anthropic.ToolUnionParam {
	anthropicTools := make([]anthropic.ToolUnionParam, len(tools))
	for i, tool := range tools {
		anthropicTools[i] = anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        tool.Name(),
				Description: anthropic.String(tool.Description()),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: tool.GenerateSchema().Properties,
				},
			},
		}
	}
	return anthropicTools
}
