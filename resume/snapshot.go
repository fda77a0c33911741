// Package resume provides durable checkpoints for workflow executions: a
// codec that compresses live state into a bounded snapshot, a file store
// that writes snapshots atomically, and a validator that decides whether a
// stored snapshot is safe to resume against possibly-changed workflow text.
package resume

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/deepnoodle-ai/taskloop/llm"
	"github.com/deepnoodle-ai/taskloop/state"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// WorkflowMetadata identifies the workflow an execution belongs to and
// carries advisory progress markers.
type WorkflowMetadata struct {
	WorkflowID              string    `json:"workflow_id"`
	WorkflowFilePath        string    `json:"workflow_file_path,omitempty"`
	OriginalWorkflowHash    string    `json:"original_workflow_hash"`
	OriginalWorkflowContent string    `json:"original_workflow_content"`
	CurrentPhase            string    `json:"current_phase,omitempty"`
	CurrentStrategy         string    `json:"current_strategy,omitempty"`
	StartTime               time.Time `json:"start_time"`
	LastActivity            time.Time `json:"last_activity"`
	AvailableTools          []string  `json:"available_tools,omitempty"`
	CurrentStep             int       `json:"current_step"`
}

// Snapshot is the durable serialization of one execution. It is
// self-contained: reconstructing a continuable conversation requires no
// lookups beyond this structure.
type Snapshot struct {
	Metadata       WorkflowMetadata                    `json:"workflow_metadata"`
	CompletedTools []*state.CompletedTool              `json:"completed_tools"`
	ChatHistory    []*llm.Message                      `json:"chat_history"`
	Evolution      *state.ContextEvolution             `json:"context_evolution"`
	Variables      *orderedmap.OrderedMap[string, any] `json:"workflow_variables"`
}

// SnapshotSummary is the metadata-only view used for listings.
type SnapshotSummary struct {
	WorkflowID   string    `json:"workflow_id"`
	LastActivity time.Time `json:"last_activity"`
	CurrentPhase string    `json:"current_phase,omitempty"`
	ToolCount    int       `json:"tool_count"`
}

// HashContent returns the hex-encoded SHA-256 of workflow source text.
func HashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
