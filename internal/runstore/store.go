package runstore

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"
)

// Store manages run records on disk, one directory per run.
type Store struct {
	baseDir string // defaults to ~/.changegate/runs
}

// NewStore creates a Store rooted at baseDir.
func NewStore(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// DefaultStore returns a Store at ~/.changegate/runs, creating the
// directory if needed.
func DefaultStore() (*Store, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("get home dir: %w", err)
	}
	dir := filepath.Join(home, ".changegate", "runs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return &Store{baseDir: dir}, nil
}

// BaseDir returns the store's root directory.
func (s *Store) BaseDir() string {
	return s.baseDir
}

// NewID returns a fresh run id. ULIDs sort by creation time, so directory
// listings come out chronological for free.
func NewID() string {
	return ulid.Make().String()
}

func (s *Store) runDir(id string) string {
	return filepath.Join(s.baseDir, id)
}

func (s *Store) recordPath(id string) string {
	return filepath.Join(s.runDir(id), "run.json")
}

// Create initialises a new run record on disk.
func (s *Store) Create(id, task, taskType, repoPath string) (*Record, error) {
	dir := s.runDir(id)
	if _, err := os.Stat(dir); err == nil {
		return nil, fmt.Errorf("run %s already exists", id)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir run dir: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	rec := &Record{
		ID:        id,
		Task:      task,
		TaskType:  taskType,
		RepoPath:  repoPath,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := writeJSON(s.recordPath(id), rec); err != nil {
		return nil, fmt.Errorf("write run.json: %w", err)
	}
	return rec, nil
}

// Get reads the record for a run.
func (s *Store) Get(id string) (*Record, error) {
	var rec Record
	if err := readJSON(s.recordPath(id), &rec); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("run %s not found", id)
		}
		return nil, err
	}
	return &rec, nil
}

// Update performs an atomic read-modify-write of the run record.
func (s *Store) Update(id string, fn func(*Record)) error {
	rec, err := s.Get(id)
	if err != nil {
		return err
	}
	fn(rec)
	rec.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	return writeJSON(s.recordPath(id), rec)
}

// List returns all runs, newest first, optionally filtered by status.
// Pass "" to return all runs.
func (s *Store) List(statusFilter Status) ([]Record, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read dir %s: %w", s.baseDir, err)
	}

	var records []Record
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		rec, err := s.Get(entry.Name())
		if err != nil {
			continue // skip broken entries
		}
		if statusFilter == "" || rec.Status == statusFilter {
			records = append(records, *rec)
		}
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].ID > records[j].ID
	})
	return records, nil
}

// Delete removes all data for a run.
func (s *Store) Delete(id string) error {
	dir := s.runDir(id)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return fmt.Errorf("run %s not found", id)
	}
	return os.RemoveAll(dir)
}

// SaveArtifact writes a named artifact (prompt, raw diff, explanation) into
// the run directory.
func (s *Store) SaveArtifact(id, name, content string) error {
	if _, err := s.Get(id); err != nil {
		return err
	}
	return writeFileAtomic(filepath.Join(s.runDir(id), name), []byte(content))
}

// GetArtifact reads a named artifact from the run directory.
func (s *Store) GetArtifact(id, name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.runDir(id), name))
	if err != nil {
		return "", err
	}
	return string(data), nil
}
