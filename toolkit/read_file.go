// Package toolkit provides the built-in filesystem tools workflows can
// declare.
package toolkit

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/deepnoodle-ai/taskloop"
	"github.com/deepnoodle-ai/taskloop/schema"
)

var _ taskloop.TypedTool[*ReadFileInput] = &ReadFileTool{}

// DefaultReadFileMaxSize is the largest file the read tool returns whole.
const DefaultReadFileMaxSize = 1024 * 100

// ReadFileInput is the input for the file_read tool.
type ReadFileInput struct {
	// Path to the file to read. Required.
	Path string `json:"path"`
}

// ReadFileToolOptions configures a ReadFileTool.
type ReadFileToolOptions struct {
	// MaxSize is the maximum file size in bytes. Defaults to
	// DefaultReadFileMaxSize.
	MaxSize int
}

// ReadFileTool reads text file contents from the filesystem. Binary files
// are detected and refused rather than returned garbled.
type ReadFileTool struct {
	maxSize int
}

// NewReadFileTool creates a read tool with the given options.
func NewReadFileTool(options ReadFileToolOptions) *taskloop.TypedToolAdapter[*ReadFileInput] {
	if options.MaxSize == 0 {
		options.MaxSize = DefaultReadFileMaxSize
	}
	return taskloop.ToolAdapter(&ReadFileTool{maxSize: options.MaxSize})
}

func (t *ReadFileTool) Name() string {
	return "file_read"
}

func (t *ReadFileTool) Description() string {
	return "Read a text file from the filesystem and return its contents."
}

func (t *ReadFileTool) Schema() schema.Schema {
	return schema.New(map[string]*schema.Property{
		"path": {
			Type:        "string",
			Description: "The path to the file to read",
		},
	}, "path")
}

func (t *ReadFileTool) Call(ctx context.Context, input *ReadFileInput) (*taskloop.ToolResult, error) {
	if input == nil || input.Path == "" {
		return taskloop.NewToolResultError("Error: no file path provided"), nil
	}

	// Open first and stat the handle to avoid TOCTOU races.
	file, err := os.Open(input.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return taskloop.NewToolResultError(fmt.Sprintf(
				"Error: file not found: %s", input.Path)), nil
		}
		return taskloop.NewToolResultError(fmt.Sprintf(
			"Error: failed to open %s: %s", input.Path, err.Error())), nil
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return taskloop.NewToolResultError(fmt.Sprintf(
			"Error: failed to stat %s: %s", input.Path, err.Error())), nil
	}
	if info.IsDir() {
		return taskloop.NewToolResultError(fmt.Sprintf(
			"Error: %s is a directory, not a file", input.Path)), nil
	}
	if info.Size() > int64(t.maxSize) {
		return taskloop.NewToolResultError(fmt.Sprintf(
			"Error: %s is too large (%d bytes, limit %d)",
			input.Path, info.Size(), t.maxSize)), nil
	}

	content, err := io.ReadAll(file)
	if err != nil {
		return taskloop.NewToolResultError(fmt.Sprintf(
			"Error: failed to read %s: %s", input.Path, err.Error())), nil
	}
	if isBinaryContent(content) {
		return taskloop.NewToolResultError(fmt.Sprintf(
			"Error: %s appears to be a binary file", input.Path)), nil
	}

	return taskloop.NewToolResult(string(content)).WithVariables(map[string]any{
		"last_read_path": filepath.Clean(input.Path),
	}), nil
}

// isBinaryContent checks for null bytes and a high ratio of control
// characters in the first 512 bytes.
func isBinaryContent(content []byte) bool {
	if bytes.Contains(content, []byte{0}) {
		return true
	}
	sample := content
	if len(sample) > 512 {
		sample = sample[:512]
	}
	controlCount := 0
	for _, b := range sample {
		if b < 32 && b != '\t' && b != '\n' && b != '\r' {
			controlCount++
		}
	}
	return len(sample) > 0 && controlCount > len(sample)/10
}
