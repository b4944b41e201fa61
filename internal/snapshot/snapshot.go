// Package snapshot keeps copies of compose documents taken before each
// applied change-set.
package snapshot

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// DirName is the snapshot directory created next to a compose file
const DirName = ".compose-edit"

// ErrNotFound is returned for an unknown snapshot id
var ErrNotFound = errors.New("snapshot not found")

// Snapshot is a saved copy of a compose document
type Snapshot struct {
	Version   string    `json:"version"`
	ID        string    `json:"id"`
	Stack     string    `json:"stack"`
	CreatedAt time.Time `json:"created_at"`
	Source    string    `json:"source"` // compose file path
	Content   string    `json:"content"`
	Message   string    `json:"message,omitempty"`
}

// Manager handles snapshot operations for one directory
type Manager struct {
	baseDir string
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewManager creates a snapshot manager
func NewManager(baseDir string) *Manager {
	if baseDir == "" {
		baseDir = DirName
	}
	return &Manager{baseDir: baseDir, entropy: ulid.Monotonic(rand.Reader, 0)}
}

// Dir returns the snapshot directory
func (m *Manager) Dir() string { return m.baseDir }

func (m *Manager) newID(now time.Time) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return strings.ToLower(ulid.MustNew(ulid.Timestamp(now), m.entropy).String())
}

// Save stores content as a new snapshot and returns it
func (m *Manager) Save(stack, source string, content []byte, message string) (*Snapshot, error) {
	if err := os.MkdirAll(m.baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	now := time.Now().UTC()
	snap := &Snapshot{
		Version:   "1.0",
		ID:        m.newID(now),
		Stack:     stack,
		CreatedAt: now,
		Source:    source,
		Content:   string(content),
		Message:   message,
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := os.WriteFile(m.path(snap.ID), data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write snapshot: %w", err)
	}
	return snap, nil
}

// Load loads a snapshot by id
func (m *Manager) Load(id string) (*Snapshot, error) {
	data, err := os.ReadFile(m.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read snapshot %s: %w", id, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", id, err)
	}
	return &snap, nil
}

// List returns all snapshots, newest first. Unreadable files are skipped.
func (m *Manager) List() ([]*Snapshot, error) {
	entries, err := os.ReadDir(m.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}

	var snaps []*Snapshot
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		snap, err := m.Load(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			continue
		}
		snaps = append(snaps, snap)
	}

	// ulids sort by creation time
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].ID > snaps[j].ID })
	return snaps, nil
}

// Delete removes a snapshot
func (m *Manager) Delete(id string) error {
	if err := os.Remove(m.path(id)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s: %w", id, ErrNotFound)
		}
		return fmt.Errorf("failed to delete snapshot %s: %w", id, err)
	}
	return nil
}

// Exists checks if a snapshot exists
func (m *Manager) Exists(id string) bool {
	_, err := os.Stat(m.path(id))
	return err == nil
}

func (m *Manager) path(id string) string {
	return filepath.Join(m.baseDir, sanitizeFilename(id)+".json")
}

// sanitizeFilename keeps an id from escaping the snapshot directory
func sanitizeFilename(name string) string {
	var sb strings.Builder
	for _, r := range name {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_':
			sb.WriteRune(r)
		case r == ' ' || r == '/' || r == '\\':
			sb.WriteByte('_')
		}
	}
	if sb.Len() == 0 {
		return "default"
	}
	return sb.String()
}
