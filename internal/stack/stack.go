// Package stack serves compose stacks from local directories. Each server id
// maps to a root directory whose subdirectories are stacks.
package stack

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/stackgen-cli/compose-edit/internal/models"
	"github.com/stackgen-cli/compose-edit/internal/mutate"
	"github.com/stackgen-cli/compose-edit/internal/parser"
	"github.com/stackgen-cli/compose-edit/internal/snapshot"
)

var (
	ErrUnknownServer = errors.New("unknown server")
	ErrStackNotFound = errors.New("stack not found")
	ErrInvalidStack  = errors.New("invalid stack name")
)

// Option configures a Manager
type Option func(*Manager)

// WithLogger sets the manager logger
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// Manager reads and rewrites compose files. Writers to the same stack are
// serialized; previews never write.
type Manager struct {
	servers map[string]string
	logger  *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
	snaps map[string]*snapshot.Manager
}

// NewManager creates a manager over server id -> root directory
func NewManager(servers map[string]string, opts ...Option) *Manager {
	m := &Manager{
		servers: servers,
		logger:  slog.Default(),
		locks:   make(map[string]*sync.Mutex),
		snaps:   make(map[string]*snapshot.Manager),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) lock(ref models.StackRef) func() {
	m.mu.Lock()
	l, ok := m.locks[ref.String()]
	if !ok {
		l = &sync.Mutex{}
		m.locks[ref.String()] = l
	}
	m.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// snapshots returns the one snapshot manager kept for a stack, so ids
// minted for it share a monotonic source.
func (m *Manager) snapshots(ref models.StackRef, dir string) *snapshot.Manager {
	m.mu.Lock()
	defer m.mu.Unlock()
	sm, ok := m.snaps[ref.String()]
	if !ok {
		sm = snapshot.NewManager(filepath.Join(dir, snapshot.DirName))
		m.snaps[ref.String()] = sm
	}
	return sm
}

// resolve returns the stack directory and its compose file
func (m *Manager) resolve(ref models.StackRef) (string, string, error) {
	root, ok := m.servers[ref.Server]
	if !ok {
		return "", "", fmt.Errorf("%s: %w", ref.Server, ErrUnknownServer)
	}
	if !models.ValidServiceName(ref.Stack) {
		return "", "", fmt.Errorf("%q: %w", ref.Stack, ErrInvalidStack)
	}
	dir := filepath.Join(root, ref.Stack)
	path, err := parser.ResolveComposePath(dir)
	if err != nil {
		return "", "", fmt.Errorf("%s: %w: %v", ref, ErrStackNotFound, err)
	}
	return dir, path, nil
}

// Stacks lists the stacks of a server, sorted
func (m *Manager) Stacks(server string) ([]string, error) {
	root, ok := m.servers[server]
	if !ok {
		return nil, fmt.Errorf("%s: %w", server, ErrUnknownServer)
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to list stacks: %w", err)
	}

	var stacks []string
	for _, entry := range entries {
		if !entry.IsDir() || !models.ValidServiceName(entry.Name()) {
			continue
		}
		if _, err := parser.ResolveComposePath(filepath.Join(root, entry.Name())); err == nil {
			stacks = append(stacks, entry.Name())
		}
	}
	sort.Strings(stacks)
	return stacks, nil
}

// Fetch returns the raw document of a stack
func (m *Manager) Fetch(ctx context.Context, ref models.StackRef) (*models.RawCompose, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	_, path, err := m.resolve(ref)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read compose file: %w", err)
	}
	raw, err := parser.DecodeRaw(data)
	if err != nil {
		return nil, err
	}
	raw.ComposeFile = filepath.Base(path)
	return raw, nil
}

// Update applies a change-set. A preview returns both renderings and leaves
// the file alone; otherwise the original is snapshotted and the file is
// replaced atomically.
func (m *Manager) Update(ctx context.Context, ref models.StackRef, req models.UpdateRequest) (*models.UpdateResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir, path, err := m.resolve(ref)
	if err != nil {
		return nil, err
	}

	unlock := m.lock(ref)
	defer unlock()

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read compose file: %w", err)
	}
	out, err := mutate.Apply(src, req.Changes)
	if err != nil {
		return nil, err
	}

	if req.Preview {
		return &models.UpdateResponse{
			Success:      true,
			OriginalYAML: string(src),
			ModifiedYAML: string(out),
		}, nil
	}

	snap, err := m.snapshots(ref, dir).Save(ref.String(), path, src, "")
	if err != nil {
		return nil, err
	}
	if err := writeAtomic(path, out); err != nil {
		return nil, err
	}

	m.logger.Info("compose file updated", "stack", ref.String(), "file", path, "snapshot", snap.ID)
	return &models.UpdateResponse{
		Success: true,
		Message: fmt.Sprintf("applied, snapshot %s", snap.ID),
	}, nil
}

// Snapshots returns the snapshot manager of a stack
func (m *Manager) Snapshots(ref models.StackRef) (*snapshot.Manager, error) {
	dir, _, err := m.resolve(ref)
	if err != nil {
		return nil, err
	}
	return m.snapshots(ref, dir), nil
}

// writeAtomic replaces path through a temporary file in the same directory
func writeAtomic(path string, data []byte) error {
	mode := os.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".compose-edit-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set file mode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace compose file: %w", err)
	}
	return nil
}
