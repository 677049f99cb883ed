package engine

import (
	"context"
	"encoding/json"

	"github.com/avast/retry-go/v4"
	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"

	"github.com/chatooli/chatooli/pkg/logger"
	"github.com/chatooli/chatooli/pkg/workspace"
)

const defaultOpenAIModel = openai.GPT4Dot1

// OpenAIEngine drives the tool-use loop against the OpenAI chat
// completions API.
type OpenAIEngine struct {
	client *openai.Client
	model  string
}

// NewOpenAIEngine creates the engine. An empty model falls back to the
// package default.
func NewOpenAIEngine(apiKey, model string) *OpenAIEngine {
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAIEngine{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

func (e *OpenAIEngine) Name() string {
	return "openai"
}

func (e *OpenAIEngine) Generate(ctx context.Context, req Request) (*Response, error) {
	return e.Stream(ctx, req, discard)
}

func (e *OpenAIEngine) Stream(ctx context.Context, req Request, emit Emitter) (*Response, error) {
	if emit == nil {
		emit = discard
	}

	model := e.model
	if req.Model != "" {
		model = req.Model
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	for _, m := range req.Messages {
		role := openai.ChatMessageRoleUser
		if m.Role == RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	for turn := 0; turn < MaxTurns; turn++ {
		request := openai.ChatCompletionRequest{
			Model:     model,
			Messages:  messages,
			MaxTokens: req.MaxTokens,
		}
		if len(req.Tools) > 0 {
			request.Tools = toOpenAITools(req.Tools)
			request.ToolChoice = "auto"
		}

		var response openai.ChatCompletionResponse
		err := retry.Do(func() error {
			var apiErr error
			response, apiErr = e.client.CreateChatCompletion(ctx, request)
			return apiErr
		}, retryOptions(ctx)...)
		if err != nil {
			return nil, errors.Wrap(err, "sending message to openai")
		}
		if len(response.Choices) == 0 {
			return nil, errors.New("openai returned no choices")
		}

		assistantMessage := response.Choices[0].Message
		messages = append(messages, assistantMessage)

		if len(assistantMessage.ToolCalls) == 0 {
			return finish(assistantMessage.Content, emit), nil
		}

		if assistantMessage.Content != "" {
			emit(Event{Type: EventThinking, Content: assistantMessage.Content})
		}

		logger.G(ctx).WithField("turn", turn+1).WithField("tool_calls", len(assistantMessage.ToolCalls)).Debug("continuing tool-use loop")
		for _, call := range assistantMessage.ToolCalls {
			output := runTool(ctx, req.State, req.Tools, call.Function.Name, call.Function.Arguments, emit)
			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    output.String(),
				ToolCallID: call.ID,
			})
		}
	}

	return nil, errors.Errorf("model did not settle within %d turns", MaxTurns)
}

func toOpenAITools(tools []workspace.Tool) []openai.Tool {
	openaiTools := make([]openai.Tool, len(tools))
	for i, tool := range tools {
		schemaBytes, _ := json.Marshal(tool.GenerateSchema())
		var jsonSchema map[string]interface{}
		json.Unmarshal(schemaBytes, &jsonSchema)

		openaiTools[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Name(),
				Description: tool.Description(),
				Parameters:  jsonSchema,
			},
		}
	}
	return openaiTools
}
