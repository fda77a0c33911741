package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/deepnoodle-ai/taskloop/llm"
	"github.com/deepnoodle-ai/taskloop/schema"
	"github.com/stretchr/testify/require"
)

func TestGenerateTextResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "gpt-4o", req.Model)
		require.Len(t, req.Messages, 2) // system prompt + user message
		require.Equal(t, "system", req.Messages[0].Role)

		json.NewEncoder(w).Encode(Response{
			ID: "chatcmpl-1",
			Choices: []Choice{{
				Message:      Message{Role: "assistant", Content: "done"},
				FinishReason: "stop",
			}},
			Usage: Usage{PromptTokens: 10, CompletionTokens: 2},
		})
	}))
	defer server.Close()

	provider := New(WithAPIKey("test-key"), WithEndpoint(server.URL))
	response, err := provider.Generate(context.Background(),
		[]*llm.Message{llm.NewUserMessage("hello")},
		llm.WithSystemPrompt("be brief"))
	require.NoError(t, err)
	require.Equal(t, "done", response.Text())
	require.Empty(t, response.FunctionCalls())
	require.Equal(t, 10, response.Usage.InputTokens)
	require.Equal(t, 2, response.Usage.OutputTokens)
}

func TestGenerateDecodesToolCalls(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Tools, 1)
		require.Equal(t, "function", req.Tools[0].Type)
		require.Equal(t, "file-write", req.Tools[0].Function.Name)
		require.Equal(t, "auto", req.ToolChoice)

		json.NewEncoder(w).Encode(Response{
			ID: "chatcmpl-2",
			Choices: []Choice{{
				Message: Message{
					Role: "assistant",
					ToolCalls: []ToolCall{{
						ID:   "call_abc",
						Type: "function",
						Function: ToolCallFunction{
							Name:      "file-write",
							Arguments: `{"path":"hello.txt","content":"hi"}`,
						},
					}},
				},
				FinishReason: "tool_calls",
			}},
		})
	}))
	defer server.Close()

	provider := New(WithAPIKey("test-key"), WithEndpoint(server.URL))
	response, err := provider.Generate(context.Background(),
		[]*llm.Message{llm.NewUserMessage("write hello")},
		llm.WithTools(llm.Tool{
			Name:       "file-write",
			Parameters: schema.New(map[string]*schema.Property{"path": {Type: "string"}}),
		}))
	require.NoError(t, err)

	calls := response.FunctionCalls()
	require.Len(t, calls, 1)
	require.Equal(t, "call_abc", calls[0].ID)
	require.Equal(t, "file-write", calls[0].Name)
	require.JSONEq(t, `{"path":"hello.txt","content":"hi"}`, string(calls[0].Arguments))
}

func TestGenerateClassifiesErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(error) bool
	}{
		{"auth", http.StatusUnauthorized, llm.IsAuth},
		{"rate limit", http.StatusTooManyRequests, llm.IsRateLimit},
		{"unavailable", http.StatusServiceUnavailable, llm.IsUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			}))
			defer server.Close()

			provider := New(
				WithAPIKey("test-key"),
				WithEndpoint(server.URL),
				WithMaxRetries(0),
			)
			_, err := provider.Generate(context.Background(),
				[]*llm.Message{llm.NewUserMessage("hello")})
			require.Error(t, err)
			require.True(t, tt.check(err))
		})
	}
}

func TestGenerateHonorsCancellation(t *testing.T) {
	started := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		time.Sleep(5 * time.Second)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	provider := New(WithAPIKey("test-key"), WithEndpoint(server.URL), WithMaxRetries(0))
	_, err := provider.Generate(ctx, []*llm.Message{llm.NewUserMessage("hello")})
	require.Error(t, err)
	require.ErrorIs(t, err, context.Canceled)
}
