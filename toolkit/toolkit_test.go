package toolkit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadFileTool(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "note.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0644))

	tool := NewReadFileTool(ReadFileToolOptions{})

	t.Run("reads text file", func(t *testing.T) {
		result, err := tool.Call(ctx, json.RawMessage(fmt.Sprintf(`{"path":%q}`, path)))
		require.NoError(t, err)
		require.False(t, result.IsError)
		require.Equal(t, "hello world", result.Content)
		require.Equal(t, path, result.Variables["last_read_path"])
	})

	t.Run("missing file", func(t *testing.T) {
		result, err := tool.Call(ctx, json.RawMessage(`{"path":"/no/such/file"}`))
		require.NoError(t, err)
		require.True(t, result.IsError)
		require.Contains(t, result.Content, "not found")
	})

	t.Run("directory", func(t *testing.T) {
		result, err := tool.Call(ctx, json.RawMessage(fmt.Sprintf(`{"path":%q}`, dir)))
		require.NoError(t, err)
		require.True(t, result.IsError)
		require.Contains(t, result.Content, "directory")
	})

	t.Run("binary file", func(t *testing.T) {
		binPath := filepath.Join(dir, "blob.bin")
		require.NoError(t, os.WriteFile(binPath, []byte{0x00, 0x01, 0x02, 'a'}, 0644))
		result, err := tool.Call(ctx, json.RawMessage(fmt.Sprintf(`{"path":%q}`, binPath)))
		require.NoError(t, err)
		require.True(t, result.IsError)
		require.Contains(t, result.Content, "binary")
	})

	t.Run("too large", func(t *testing.T) {
		small := NewReadFileTool(ReadFileToolOptions{MaxSize: 4})
		result, err := small.Call(ctx, json.RawMessage(fmt.Sprintf(`{"path":%q}`, path)))
		require.NoError(t, err)
		require.True(t, result.IsError)
		require.Contains(t, result.Content, "too large")
	})

	t.Run("missing path", func(t *testing.T) {
		result, err := tool.Call(ctx, json.RawMessage(`{}`))
		require.NoError(t, err)
		require.True(t, result.IsError)
	})
}

func TestWriteFileTool(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	tool := NewWriteFileTool()

	path := filepath.Join(dir, "nested", "out.txt")
	result, err := tool.Call(ctx, json.RawMessage(fmt.Sprintf(
		`{"path":%q,"content":"written by tool"}`, path)))
	require.NoError(t, err)
	require.False(t, result.IsError)
	require.Equal(t, path, result.Variables["last_written_path"])

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "written by tool", string(content))

	result, err = tool.Call(ctx, json.RawMessage(`{"content":"no path"}`))
	require.NoError(t, err)
	require.True(t, result.IsError)
}

func TestListDirectoryTool(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("b"), 0644))

	tool := NewListDirectoryTool()
	result, err := tool.Call(ctx, json.RawMessage(fmt.Sprintf(`{"path":%q}`, dir)))
	require.NoError(t, err)
	require.False(t, result.IsError)
	require.Equal(t, "sub/\na.txt\nb.txt", result.Content)

	result, err = tool.Call(ctx, json.RawMessage(`{"path":"/no/such/dir"}`))
	require.NoError(t, err)
	require.True(t, result.IsError)

	empty := t.TempDir()
	result, err = tool.Call(ctx, json.RawMessage(fmt.Sprintf(`{"path":%q}`, empty)))
	require.NoError(t, err)
	require.Contains(t, result.Content, "is empty")
}
