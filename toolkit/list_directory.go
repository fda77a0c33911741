package toolkit

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/deepnoodle-ai/taskloop"
	"github.com/deepnoodle-ai/taskloop/schema"
)

var _ taskloop.TypedTool[*ListDirectoryInput] = &ListDirectoryTool{}

// ListDirectoryInput is the input for the list_directory tool.
type ListDirectoryInput struct {
	// Path of the directory to list. Defaults to the current directory.
	Path string `json:"path,omitempty"`
}

// ListDirectoryTool lists the entries of a directory, directories first.
type ListDirectoryTool struct{}

// NewListDirectoryTool creates a directory listing tool.
func NewListDirectoryTool() *taskloop.TypedToolAdapter[*ListDirectoryInput] {
	return taskloop.ToolAdapter(&ListDirectoryTool{})
}

func (t *ListDirectoryTool) Name() string {
	return "list_directory"
}

func (t *ListDirectoryTool) Description() string {
	return "List the files and subdirectories in a directory."
}

func (t *ListDirectoryTool) Schema() schema.Schema {
	return schema.New(map[string]*schema.Property{
		"path": {
			Type:        "string",
			Description: "The directory to list. Defaults to the current directory.",
		},
	})
}

func (t *ListDirectoryTool) Call(ctx context.Context, input *ListDirectoryInput) (*taskloop.ToolResult, error) {
	path := "."
	if input != nil && input.Path != "" {
		path = input.Path
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return taskloop.NewToolResultError(fmt.Sprintf(
			"Error: failed to list %s: %s", path, err.Error())), nil
	}

	var dirs, files []string
	for _, entry := range entries {
		if entry.IsDir() {
			dirs = append(dirs, entry.Name()+"/")
		} else {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(dirs)
	sort.Strings(files)

	if len(dirs) == 0 && len(files) == 0 {
		return taskloop.NewToolResult(fmt.Sprintf("%s is empty", path)), nil
	}
	return taskloop.NewToolResult(strings.Join(append(dirs, files...), "\n")), nil
}
