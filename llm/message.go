package llm

import (
	"encoding/json"
	"strings"
	"time"
)

// Role indicates who produced a message in a conversation.
type Role string

const (
	User      Role = "user"
	Assistant Role = "assistant"
	System    Role = "system"
	ToolRole  Role = "tool"
)

func (r Role) String() string {
	return string(r)
}

// FunctionCall is a tool invocation requested by the model.
type FunctionCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// Message is one entry in a chat history. Assistant messages may carry
// requested function calls; tool messages carry the result of one call,
// correlated via ToolCallID.
type Message struct {
	Role          Role            `json:"role"`
	Content       string          `json:"content,omitempty"`
	FunctionCalls []*FunctionCall `json:"function_calls,omitempty"`
	ToolCallID    string          `json:"tool_call_id,omitempty"`
	Timestamp     time.Time       `json:"timestamp,omitzero"`
}

// Copy returns a deep copy of the message.
func (m *Message) Copy() *Message {
	dup := *m
	if len(m.FunctionCalls) > 0 {
		dup.FunctionCalls = make([]*FunctionCall, len(m.FunctionCalls))
		for i, call := range m.FunctionCalls {
			callCopy := *call
			if call.Arguments != nil {
				callCopy.Arguments = append(json.RawMessage(nil), call.Arguments...)
			}
			dup.FunctionCalls[i] = &callCopy
		}
	}
	return &dup
}

// Summary returns a one-line description of the message, used when older
// history is folded into key insights.
func (m *Message) Summary() string {
	if len(m.FunctionCalls) > 0 {
		names := make([]string, len(m.FunctionCalls))
		for i, call := range m.FunctionCalls {
			names[i] = call.Name
		}
		return string(m.Role) + " requested: " + strings.Join(names, ", ")
	}
	text := strings.TrimSpace(m.Content)
	if len(text) > 120 {
		text = text[:120] + "..."
	}
	return string(m.Role) + ": " + text
}

// NewUserMessage creates a user message with the given text.
func NewUserMessage(text string) *Message {
	return &Message{Role: User, Content: text, Timestamp: time.Now()}
}

// NewSystemMessage creates a system message with the given text.
func NewSystemMessage(text string) *Message {
	return &Message{Role: System, Content: text, Timestamp: time.Now()}
}

// NewAssistantMessage creates an assistant message with the given text.
func NewAssistantMessage(text string) *Message {
	return &Message{Role: Assistant, Content: text, Timestamp: time.Now()}
}

// NewToolResultMessage creates a tool message carrying the result of the
// function call identified by toolCallID.
func NewToolResultMessage(toolCallID, content string) *Message {
	return &Message{
		Role:       ToolRole,
		Content:    content,
		ToolCallID: toolCallID,
		Timestamp:  time.Now(),
	}
}
