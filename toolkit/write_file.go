package toolkit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/deepnoodle-ai/taskloop"
	"github.com/deepnoodle-ai/taskloop/schema"
)

var _ taskloop.TypedTool[*WriteFileInput] = &WriteFileTool{}

// WriteFileInput is the input for the file_write tool.
type WriteFileInput struct {
	// Path to write to. Required. Parent directories are created.
	Path string `json:"path"`

	// Content to write. Replaces any existing content.
	Content string `json:"content"`
}

// WriteFileTool writes text content to a file, creating parent
// directories as needed.
type WriteFileTool struct{}

// NewWriteFileTool creates a write tool.
func NewWriteFileTool() *taskloop.TypedToolAdapter[*WriteFileInput] {
	return taskloop.ToolAdapter(&WriteFileTool{})
}

func (t *WriteFileTool) Name() string {
	return "file_write"
}

func (t *WriteFileTool) Description() string {
	return "Write text content to a file, replacing any existing content. Parent directories are created automatically."
}

func (t *WriteFileTool) Schema() schema.Schema {
	return schema.New(map[string]*schema.Property{
		"path": {
			Type:        "string",
			Description: "The path of the file to write",
		},
		"content": {
			Type:        "string",
			Description: "The full content to write to the file",
		},
	}, "path", "content")
}

func (t *WriteFileTool) Call(ctx context.Context, input *WriteFileInput) (*taskloop.ToolResult, error) {
	if input == nil || input.Path == "" {
		return taskloop.NewToolResultError("Error: no file path provided"), nil
	}
	if dir := filepath.Dir(input.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return taskloop.NewToolResultError(fmt.Sprintf(
				"Error: failed to create directory %s: %s", dir, err.Error())), nil
		}
	}
	if err := os.WriteFile(input.Path, []byte(input.Content), 0644); err != nil {
		return taskloop.NewToolResultError(fmt.Sprintf(
			"Error: failed to write %s: %s", input.Path, err.Error())), nil
	}
	return taskloop.NewToolResult(fmt.Sprintf(
		"Wrote %d bytes to %s", len(input.Content), input.Path)).
		WithVariables(map[string]any{
			"last_written_path": filepath.Clean(input.Path),
		}), nil
}
