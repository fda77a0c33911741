package resume

import (
	"fmt"
	"testing"
	"time"

	"github.com/deepnoodle-ai/taskloop/llm"
	"github.com/deepnoodle-ai/taskloop/state"
	"github.com/stretchr/testify/require"
)

func testMetadata(now time.Time) WorkflowMetadata {
	return WorkflowMetadata{
		WorkflowID:              "wf-1",
		OriginalWorkflowHash:    HashContent("task: do things"),
		OriginalWorkflowContent: "task: do things",
		StartTime:               now.Add(-time.Hour),
		LastActivity:            now,
		AvailableTools:          []string{"file_read", "file_write"},
	}
}

func TestCodecRoundTrip(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	ec := state.NewExecutionContext("wf-1")
	ec.SetVariable("goal", "write report", "user", "initial input")
	ec.SetVariable("draft_path", "out/report.md", "file_write", "tool result")
	result := "ok"
	ec.RecordTool(&state.CompletedTool{
		FunctionName: "file_write",
		Parameters:   map[string]any{"path": "out/report.md"},
		Result:       &result,
		ExecutedAt:   now.Add(-time.Minute),
		Success:      true,
	})
	ec.AddInsight("report should be in markdown")

	messages := []*llm.Message{
		llm.NewUserMessage("write the report"),
		{
			Role: llm.Assistant,
			FunctionCalls: []*llm.FunctionCall{{
				ID:        "call-1",
				Name:      "file_write",
				Arguments: []byte(`{"path":"out/report.md"}`),
			}},
		},
		llm.NewToolResultMessage("call-1", "ok"),
		llm.NewAssistantMessage("done"),
	}

	codec := NewCodec(CodecOptions{})
	snap := codec.ToSnapshot(ec, messages, testMetadata(now))

	require.Equal(t, "wf-1", snap.Metadata.WorkflowID)
	require.Equal(t, 2, snap.Metadata.CurrentStep)
	require.Len(t, snap.CompletedTools, 1)
	require.Len(t, snap.ChatHistory, 4)

	restored, history := codec.FromSnapshot(snap)
	require.Equal(t, "wf-1", restored.WorkflowID())
	require.Equal(t, 2, restored.CurrentStep())
	require.Equal(t, map[string]any{
		"goal":       "write report",
		"draft_path": "out/report.md",
	}, restored.VariableMap())
	require.Len(t, restored.CompletedTools(), 1)
	require.Len(t, restored.History(), 1)
	require.Equal(t, []string{"report should be in markdown"}, restored.KeyInsights())

	// Function-call metadata survives the round trip.
	require.Len(t, history, 4)
	require.Len(t, history[1].FunctionCalls, 1)
	require.Equal(t, "file_write", history[1].FunctionCalls[0].Name)
	require.Equal(t, "call-1", history[2].ToolCallID)
}

func TestCodecMessageSuffixPreserved(t *testing.T) {
	now := time.Now()
	ec := state.NewExecutionContext("wf-1")
	var messages []*llm.Message
	for i := 0; i < 35; i++ {
		messages = append(messages, llm.NewUserMessage(fmt.Sprintf("message %d", i)))
	}

	codec := NewCodec(CodecOptions{MaxChatMessages: 20})
	snap := codec.ToSnapshot(ec, messages, testMetadata(now))
	require.Len(t, snap.ChatHistory, 20)
	for i, msg := range snap.ChatHistory {
		require.Equal(t, fmt.Sprintf("message %d", i+15), msg.Content)
	}

	// Truncation is paired with summarization, never applied alone.
	require.NotEmpty(t, snap.Evolution.KeyInsights)
	require.Contains(t, snap.Evolution.KeyInsights[len(snap.Evolution.KeyInsights)-1],
		"15 messages truncated")
}

func TestCodecPruningBounds(t *testing.T) {
	now := time.Now()
	ec := state.NewExecutionContext("wf-1")
	for i := 0; i < 80; i++ {
		ec.RecordTool(&state.CompletedTool{
			FunctionName: fmt.Sprintf("tool_%d", i),
			ExecutedAt:   now.Add(time.Duration(i) * time.Second),
			Success:      i%3 != 0,
		})
	}
	for i := 0; i < 45; i++ {
		ec.SetVariable(fmt.Sprintf("var_%d", i), i, "tool", "")
	}
	for i := 0; i < 15; i++ {
		ec.AddInsight(fmt.Sprintf("insight %d", i))
	}
	var messages []*llm.Message
	for i := 0; i < 60; i++ {
		messages = append(messages, llm.NewUserMessage(fmt.Sprintf("m%d", i)))
	}

	codec := NewCodec(CodecOptions{})
	snap := codec.ToSnapshot(ec, messages, testMetadata(now))

	require.Len(t, snap.CompletedTools, 50)
	require.Len(t, snap.ChatHistory, 20)
	require.Equal(t, 30, snap.Variables.Len())
	require.LessOrEqual(t, len(snap.Evolution.KeyInsights), 10)
}

func TestCodecDropsFailedToolsFirst(t *testing.T) {
	now := time.Now()
	ec := state.NewExecutionContext("wf-1")
	// 4 tools, alternating failure, with a limit of 2: the two oldest
	// failures go first, leaving the successful ones.
	for i := 0; i < 4; i++ {
		ec.RecordTool(&state.CompletedTool{
			FunctionName: fmt.Sprintf("tool_%d", i),
			ExecutedAt:   now.Add(time.Duration(i) * time.Second),
			Success:      i%2 == 1,
		})
	}

	codec := NewCodec(CodecOptions{MaxCompletedTools: 2})
	snap := codec.ToSnapshot(ec, nil, testMetadata(now))
	require.Len(t, snap.CompletedTools, 2)
	require.Equal(t, "tool_1", snap.CompletedTools[0].FunctionName)
	require.Equal(t, "tool_3", snap.CompletedTools[1].FunctionName)
}

func TestCodecVariablePruningPrefersCriticalAndRecent(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	ec := state.NewExecutionContext("wf-1")
	ec.SetVariable("scratch_a", 1, "tool", "")
	ec.SetVariable("scratch_b", 2, "tool", "")
	ec.SetVariable("output_path", "out.txt", "tool", "")
	ec.SetVariable("scratch_c", 3, "tool", "")

	codec := NewCodec(CodecOptions{MaxVariables: 2})
	snap := codec.ToSnapshot(ec, nil, testMetadata(now))

	require.Equal(t, 2, snap.Variables.Len())
	_, ok := snap.Variables.Get("output_path")
	require.True(t, ok, "critical-name variable must survive pruning")

	// Kept variables retain their insertion order.
	var keys []string
	for pair := snap.Variables.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	require.Equal(t, []string{"output_path", "scratch_c"}, keys)
}

func TestCodecDeterministic(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	build := func() []string {
		ec := state.NewExecutionContext("wf-1")
		for i := 0; i < 40; i++ {
			ec.SetVariable(fmt.Sprintf("var_%d", i), i, "tool", "")
		}
		snap := NewCodec(CodecOptions{}).ToSnapshot(
			ec, []*llm.Message{llm.NewUserMessage("go")}, testMetadata(now))
		var keys []string
		for pair := snap.Variables.Oldest(); pair != nil; pair = pair.Next() {
			keys = append(keys, pair.Key)
		}
		return keys
	}
	first := build()
	require.Len(t, first, 30)
	for i := 0; i < 5; i++ {
		require.Equal(t, first, build())
	}
}
