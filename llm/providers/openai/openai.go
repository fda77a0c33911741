// Package openai implements the llm.LLM interface against the OpenAI Chat
// Completions API. Tool declarations and requested tool calls map onto the
// engine's FunctionCall model.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/deepnoodle-ai/taskloop/llm"
	"github.com/deepnoodle-ai/taskloop/retry"
)

var (
	DefaultModel     = "gpt-4o"
	DefaultEndpoint  = "https://api.openai.com/v1/chat/completions"
	DefaultMaxTokens = 4096
)

var _ llm.LLM = &Provider{}

type Provider struct {
	apiKey     string
	endpoint   string
	model      string
	maxTokens  int
	maxRetries int
	client     *http.Client
}

// New returns a Provider configured from the given options. The API key
// defaults to the OPENAI_API_KEY environment variable.
func New(opts ...Option) *Provider {
	p := &Provider{
		apiKey:     os.Getenv("OPENAI_API_KEY"),
		endpoint:   DefaultEndpoint,
		model:      DefaultModel,
		maxTokens:  DefaultMaxTokens,
		maxRetries: 3,
		client:     http.DefaultClient,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) Name() string {
	return "openai/" + p.model
}

func (p *Provider) Generate(ctx context.Context, messages []*llm.Message, opts ...llm.Option) (*llm.Response, error) {
	var config llm.Config
	config.Apply(opts)

	if len(messages) == 0 {
		return nil, fmt.Errorf("no messages provided")
	}

	model := config.Model
	if model == "" {
		model = p.model
	}
	maxTokens := config.MaxTokens
	if maxTokens == nil {
		maxTokens = &p.maxTokens
	}

	msgs := encodeMessages(messages)
	if config.SystemPrompt != "" {
		msgs = append([]Message{{Role: "system", Content: config.SystemPrompt}}, msgs...)
	}

	var tools []Tool
	for _, tool := range config.Tools {
		tools = append(tools, Tool{
			Type: "function",
			Function: ToolFunction{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			},
		})
	}
	toolChoice := config.ToolChoice
	if toolChoice == "" && len(tools) > 0 {
		toolChoice = "auto"
	}

	reqBody := Request{
		Model:       model,
		Messages:    msgs,
		MaxTokens:   maxTokens,
		Temperature: config.Temperature,
		Tools:       tools,
		ToolChoice:  toolChoice,
	}
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("error marshaling request: %w", err)
	}

	var result Response
	err = retry.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, "POST", p.endpoint, bytes.NewBuffer(jsonBody))
		if err != nil {
			return fmt.Errorf("error creating request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
		req.Header.Set("Content-Type", "application/json")
		resp, err := p.client.Do(req)
		if err != nil {
			return fmt.Errorf("error making request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			apiErr := llm.NewError(resp.StatusCode, string(body))
			if !shouldRetry(resp.StatusCode) {
				return retry.MarkPermanent(apiErr)
			}
			return apiErr
		}
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return fmt.Errorf("error decoding response: %w", err)
		}
		return nil
	}, retry.WithMaxRetries(p.maxRetries))
	if err != nil {
		return nil, err
	}

	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("empty response from openai api")
	}
	return decodeResponse(&result, model), nil
}

// shouldRetry reports whether the given status code should trigger a retry.
func shouldRetry(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests ||
		statusCode == http.StatusInternalServerError ||
		statusCode == http.StatusServiceUnavailable ||
		statusCode == http.StatusGatewayTimeout
}

func encodeMessages(messages []*llm.Message) []Message {
	msgs := make([]Message, 0, len(messages))
	for _, message := range messages {
		msg := Message{
			Role:       string(message.Role),
			Content:    message.Content,
			ToolCallID: message.ToolCallID,
		}
		for _, call := range message.FunctionCalls {
			msg.ToolCalls = append(msg.ToolCalls, ToolCall{
				ID:   call.ID,
				Type: "function",
				Function: ToolCallFunction{
					Name:      call.Name,
					Arguments: string(call.Arguments),
				},
			})
		}
		msgs = append(msgs, msg)
	}
	return msgs
}

func decodeResponse(result *Response, model string) *llm.Response {
	choice := result.Choices[0]
	message := &llm.Message{
		Role:      llm.Assistant,
		Content:   choice.Message.Content,
		Timestamp: time.Now(),
	}
	for _, toolCall := range choice.Message.ToolCalls {
		message.FunctionCalls = append(message.FunctionCalls, &llm.FunctionCall{
			ID:        toolCall.ID,
			Name:      toolCall.Function.Name,
			Arguments: json.RawMessage(toolCall.Function.Arguments),
		})
	}
	return &llm.Response{
		ID:         result.ID,
		Model:      model,
		StopReason: choice.FinishReason,
		Message:    message,
		Usage: llm.Usage{
			InputTokens:  result.Usage.PromptTokens,
			OutputTokens: result.Usage.CompletionTokens,
		},
	}
}
