package resume

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/deepnoodle-ai/taskloop/slogger"
)

// ErrSnapshotCorrupt indicates a snapshot file exists but cannot be
// decoded. Callers must surface this; resuming from scratch silently is
// not permitted.
var ErrSnapshotCorrupt = errors.New("snapshot corrupt")

const (
	// DefaultCompressThreshold is the serialized size above which
	// snapshots are gzip-compressed before writing.
	DefaultCompressThreshold = 256 * 1024

	// DefaultRetention is how long snapshots are kept by Cleanup.
	DefaultRetention = 7 * 24 * time.Hour
)

var gzipMagic = []byte{0x1f, 0x8b}

// FileStore persists one snapshot per workflow id under a directory.
// Writes are atomic: a backup of the prior file is taken, new content goes
// to a temp file, and the temp file is renamed over the live one. A .tmp
// or .backup sibling may transiently exist and is never authoritative.
type FileStore struct {
	dir               string
	compressThreshold int
	logger            slogger.Logger
}

// FileStoreOption configures a FileStore.
type FileStoreOption func(*FileStore)

// WithCompressThreshold overrides the compression threshold in bytes.
func WithCompressThreshold(n int) FileStoreOption {
	return func(s *FileStore) { s.compressThreshold = n }
}

// WithStoreLogger sets the logger used for store operations.
func WithStoreLogger(logger slogger.Logger) FileStoreOption {
	return func(s *FileStore) { s.logger = logger }
}

// NewFileStore creates a store rooted at dir, creating it if needed.
func NewFileStore(dir string, opts ...FileStoreOption) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create resume directory: %w", err)
	}
	s := &FileStore{
		dir:               dir,
		compressThreshold: DefaultCompressThreshold,
		logger:            slogger.DefaultLogger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func validateID(workflowID string) error {
	if workflowID == "" {
		return errors.New("workflow id is required")
	}
	if strings.ContainsAny(workflowID, "/\\") || strings.Contains(workflowID, "..") {
		return fmt.Errorf("invalid workflow id %q", workflowID)
	}
	return nil
}

func (s *FileStore) path(workflowID string) string {
	return filepath.Join(s.dir, workflowID+".json")
}

// Save writes a snapshot for the given workflow id. If any step of the
// write fails, the previous snapshot is restored from its backup before
// the error is returned.
func (s *FileStore) Save(workflowID string, snap *Snapshot) error {
	if err := validateID(workflowID); err != nil {
		return err
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize snapshot: %w", err)
	}
	if len(data) > s.compressThreshold {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(data); err != nil {
			return fmt.Errorf("failed to compress snapshot: %w", err)
		}
		if err := zw.Close(); err != nil {
			return fmt.Errorf("failed to compress snapshot: %w", err)
		}
		data = buf.Bytes()
	}

	live := s.path(workflowID)
	tmpPath := live + ".tmp"
	backupPath := live + ".backup"

	hadPrior := false
	if _, err := os.Stat(live); err == nil {
		hadPrior = true
		if err := copyFile(live, backupPath); err != nil {
			return fmt.Errorf("failed to back up snapshot: %w", err)
		}
	}

	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		s.restoreBackup(live, backupPath, tmpPath, hadPrior)
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmpPath, live); err != nil {
		s.restoreBackup(live, backupPath, tmpPath, hadPrior)
		return fmt.Errorf("failed to finalize snapshot: %w", err)
	}
	if hadPrior {
		if err := os.Remove(backupPath); err != nil {
			s.logger.Warn("failed to remove snapshot backup",
				"workflow_id", workflowID, "error", err)
		}
	}
	return nil
}

func (s *FileStore) restoreBackup(live, backupPath, tmpPath string, hadPrior bool) {
	os.Remove(tmpPath)
	if hadPrior {
		if err := os.Rename(backupPath, live); err != nil {
			s.logger.Error("failed to restore snapshot backup",
				"path", live, "error", err)
		}
	}
}

// Load reads the snapshot for the given workflow id. Returns (nil, nil)
// when no snapshot exists. A file that exists but cannot be decoded
// yields ErrSnapshotCorrupt.
func (s *FileStore) Load(workflowID string) (*Snapshot, error) {
	if err := validateID(workflowID); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(workflowID))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return decodeSnapshot(workflowID, data)
}

func decodeSnapshot(workflowID string, data []byte) (*Snapshot, error) {
	if bytes.HasPrefix(data, gzipMagic) {
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrSnapshotCorrupt, workflowID, err)
		}
		data, err = io.ReadAll(zr)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrSnapshotCorrupt, workflowID, err)
		}
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSnapshotCorrupt, workflowID, err)
	}
	if snap.Metadata.WorkflowID == "" {
		return nil, fmt.Errorf("%w: %s: missing workflow metadata", ErrSnapshotCorrupt, workflowID)
	}
	return &snap, nil
}

// Delete removes the snapshot and any transient siblings for the given
// workflow id. Deleting a missing snapshot is not an error.
func (s *FileStore) Delete(workflowID string) error {
	if err := validateID(workflowID); err != nil {
		return err
	}
	live := s.path(workflowID)
	for _, path := range []string{live, live + ".tmp", live + ".backup"} {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to delete snapshot: %w", err)
		}
	}
	return nil
}

// List enumerates stored snapshots, newest activity first. Entries that
// fail to decode are skipped with a warning rather than failing the whole
// listing.
func (s *FileStore) List() ([]*SnapshotSummary, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read resume directory: %w", err)
	}
	var summaries []*SnapshotSummary
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		workflowID := strings.TrimSuffix(name, ".json")
		snap, err := s.Load(workflowID)
		if err != nil || snap == nil {
			if err != nil {
				s.logger.Warn("skipping unreadable snapshot",
					"workflow_id", workflowID, "error", err)
			}
			continue
		}
		summaries = append(summaries, &SnapshotSummary{
			WorkflowID:   snap.Metadata.WorkflowID,
			LastActivity: snap.Metadata.LastActivity,
			CurrentPhase: snap.Metadata.CurrentPhase,
			ToolCount:    len(snap.CompletedTools),
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].LastActivity.After(summaries[j].LastActivity)
	})
	return summaries, nil
}

// Cleanup deletes snapshots whose last activity is older than the
// retention window, along with stale .tmp and .backup siblings. Returns
// the number of snapshots removed.
func (s *FileStore) Cleanup(retention time.Duration) (int, error) {
	if retention <= 0 {
		retention = DefaultRetention
	}
	cutoff := time.Now().Add(-retention)
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read resume directory: %w", err)
	}
	removed := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(name, ".tmp") || strings.HasSuffix(name, ".backup") {
			os.Remove(filepath.Join(s.dir, name))
			continue
		}
		if !strings.HasSuffix(name, ".json") {
			continue
		}
		workflowID := strings.TrimSuffix(name, ".json")
		snap, err := s.Load(workflowID)
		if err != nil || snap == nil {
			continue
		}
		if snap.Metadata.LastActivity.Before(cutoff) {
			if err := s.Delete(workflowID); err != nil {
				return removed, err
			}
			removed++
		}
	}
	return removed, nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0644)
}
