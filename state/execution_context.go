// Package state holds the live, in-memory state of one workflow execution:
// the accumulated variables, the log of completed tool calls, and the
// conversation store. The durable form of this state is produced by the
// resume package; nothing here touches disk.
package state

import (
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Status describes where an execution currently is in its lifecycle.
// Advisory only; it is never used to compute progress.
type Status string

const (
	StatusCreated       Status = "created"
	StatusRendering     Status = "rendering"
	StatusAwaitingModel Status = "awaiting_model"
	StatusExecutingTool Status = "executing_tool"
	StatusCompleted     Status = "completed"
	StatusFailed        Status = "failed"
	StatusCancelled     Status = "cancelled"
)

// HistoryEntry records one step attempt in the execution history.
type HistoryEntry struct {
	Name      string    `json:"name"`
	Kind      string    `json:"kind"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at,omitzero"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
}

// CompletedTool records one finished tool invocation. Immutable once
// recorded.
type CompletedTool struct {
	FunctionName string         `json:"function_name"`
	Parameters   map[string]any `json:"parameters,omitempty"`
	Result       *string        `json:"result,omitempty"`
	ExecutedAt   time.Time      `json:"executed_at"`
	Success      bool           `json:"success"`
	Reasoning    string         `json:"reasoning,omitempty"`
}

// ContextChange is one entry in the variable audit trail.
type ContextChange struct {
	Timestamp time.Time `json:"timestamp"`
	Key       string    `json:"key"`
	OldValue  any       `json:"old_value,omitempty"`
	NewValue  any       `json:"new_value"`
	Source    string    `json:"source"`
	Reasoning string    `json:"reasoning,omitempty"`
}

// ContextEvolution is the derived audit trail of how variables changed
// over the course of an execution.
type ContextEvolution struct {
	CurrentContext map[string]any   `json:"current_context"`
	KeyInsights    []string         `json:"key_insights,omitempty"`
	Changes        []*ContextChange `json:"changes,omitempty"`
}

// ExecutionContext is the live, mutable state of one task execution. It is
// owned exclusively by the orchestrator for the duration of a run and is
// not safe for concurrent use.
type ExecutionContext struct {
	workflowID  string
	status      Status
	currentStep int
	startTime   time.Time
	variables   *orderedmap.OrderedMap[string, any]
	history     []*HistoryEntry
	tools       []*CompletedTool
	insights    []string
	changes     []*ContextChange
}

// NewExecutionContext creates a fresh context for the given workflow id.
func NewExecutionContext(workflowID string) *ExecutionContext {
	return &ExecutionContext{
		workflowID: workflowID,
		status:     StatusCreated,
		startTime:  time.Now(),
		variables:  orderedmap.New[string, any](),
	}
}

func (c *ExecutionContext) WorkflowID() string {
	return c.workflowID
}

func (c *ExecutionContext) Status() Status {
	return c.status
}

// SetStatus updates the lifecycle status.
func (c *ExecutionContext) SetStatus(status Status) {
	c.status = status
}

func (c *ExecutionContext) CurrentStep() int {
	return c.currentStep
}

// AdvanceStep increments the informational step counter.
func (c *ExecutionContext) AdvanceStep() {
	c.currentStep++
}

func (c *ExecutionContext) StartTime() time.Time {
	return c.startTime
}

// SetVariable records a named value and appends a ContextChange describing
// who changed it and why. Last writer wins.
func (c *ExecutionContext) SetVariable(key string, value any, source, reasoning string) {
	oldValue, existed := c.variables.Get(key)
	c.variables.Set(key, value)
	change := &ContextChange{
		Timestamp: time.Now(),
		Key:       key,
		NewValue:  value,
		Source:    source,
		Reasoning: reasoning,
	}
	if existed {
		change.OldValue = oldValue
	}
	c.changes = append(c.changes, change)
}

// Variable returns the current value of a variable.
func (c *ExecutionContext) Variable(key string) (any, bool) {
	return c.variables.Get(key)
}

// Variables returns the variables as an ordered map. Callers must not
// mutate the returned map directly; use SetVariable.
func (c *ExecutionContext) Variables() *orderedmap.OrderedMap[string, any] {
	return c.variables
}

// VariableMap returns a plain map copy of the current variables, for
// template rendering.
func (c *ExecutionContext) VariableMap() map[string]any {
	result := make(map[string]any, c.variables.Len())
	for pair := c.variables.Oldest(); pair != nil; pair = pair.Next() {
		result[pair.Key] = pair.Value
	}
	return result
}

// RecordTool appends a completed tool invocation and a matching history
// entry.
func (c *ExecutionContext) RecordTool(tool *CompletedTool) {
	c.tools = append(c.tools, tool)
	entry := &HistoryEntry{
		Name:      tool.FunctionName,
		Kind:      "tool",
		StartedAt: tool.ExecutedAt,
		EndedAt:   tool.ExecutedAt,
		Success:   tool.Success,
	}
	if !tool.Success {
		entry.Error = tool.Reasoning
	}
	c.history = append(c.history, entry)
}

// CompletedTools returns the recorded tool invocations in order.
func (c *ExecutionContext) CompletedTools() []*CompletedTool {
	return c.tools
}

// History returns the execution history in order.
func (c *ExecutionContext) History() []*HistoryEntry {
	return c.history
}

// AddInsight appends a key insight to the evolution trail.
func (c *ExecutionContext) AddInsight(insight string) {
	c.insights = append(c.insights, insight)
}

// KeyInsights returns the recorded insights in order.
func (c *ExecutionContext) KeyInsights() []string {
	return c.insights
}

// Changes returns the variable audit trail in order.
func (c *ExecutionContext) Changes() []*ContextChange {
	return c.changes
}

// Evolution builds the derived audit trail view of the current state.
func (c *ExecutionContext) Evolution() *ContextEvolution {
	return &ContextEvolution{
		CurrentContext: c.VariableMap(),
		KeyInsights:    append([]string(nil), c.insights...),
		Changes:        append([]*ContextChange(nil), c.changes...),
	}
}

// Restore rebuilds a context from previously persisted state. Restored
// variables do not generate new ContextChange entries.
func (c *ExecutionContext) Restore(
	startTime time.Time,
	currentStep int,
	variables *orderedmap.OrderedMap[string, any],
	tools []*CompletedTool,
	insights []string,
	changes []*ContextChange,
) {
	if !startTime.IsZero() {
		c.startTime = startTime
	}
	c.currentStep = currentStep
	if variables != nil {
		for pair := variables.Oldest(); pair != nil; pair = pair.Next() {
			c.variables.Set(pair.Key, pair.Value)
		}
	}
	c.insights = append([]string(nil), insights...)
	c.changes = append([]*ContextChange(nil), changes...)
	for _, tool := range tools {
		c.RecordTool(tool)
	}
}
