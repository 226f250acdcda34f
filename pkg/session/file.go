package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SnapshotMeta is written next to every saved snapshot.
type SnapshotMeta struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Brush     string    `json:"brush"`
	Segments  int       `json:"segments"`
	Particles int       `json:"particles"`
	Prompt    string    `json:"prompt,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// SnapshotStore saves snapshots as PNG files with a JSON sidecar.
type SnapshotStore struct {
	mu      sync.Mutex
	baseDir string
}

// NewSnapshotStore creates the store directory.
// If baseDir is empty, defaults to ~/Pictures/chromascribe.
func NewSnapshotStore(baseDir string) (*SnapshotStore, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home dir: %w", err)
		}
		baseDir = filepath.Join(home, "Pictures", "chromascribe")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	return &SnapshotStore{baseDir: baseDir}, nil
}

func (s *SnapshotStore) imagePath(id string) string {
	return filepath.Join(s.baseDir, "chroma-scribe-"+id+".png")
}

func (s *SnapshotStore) metaPath(id string) string {
	return filepath.Join(s.baseDir, "chroma-scribe-"+id+".json")
}

// Save writes png and its metadata and returns the image path. An empty
// meta.ID gets a fresh uuid.
func (s *SnapshotStore) Save(ctx context.Context, png []byte, meta SnapshotMeta) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if meta.ID == "" {
		meta.ID = uuid.NewString()
	}
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now()
	}

	path := s.imagePath(meta.ID)
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot meta: %w", err)
	}
	if err := os.WriteFile(s.metaPath(meta.ID), data, 0o644); err != nil {
		return "", fmt.Errorf("write snapshot meta: %w", err)
	}
	return path, nil
}

// Get returns the metadata of a saved snapshot, or nil if it doesn't exist.
func (s *SnapshotStore) Get(ctx context.Context, id string) (*SnapshotMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.metaPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read snapshot meta: %w", err)
	}
	var meta SnapshotMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parse snapshot meta: %w", err)
	}
	return &meta, nil
}

// List returns every snapshot's metadata, newest first. Unreadable
// sidecars are skipped.
func (s *SnapshotStore) List(ctx context.Context) ([]SnapshotMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("read snapshot dir: %w", err)
	}
	var out []SnapshotMeta
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" || !strings.HasPrefix(name, "chroma-scribe-") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.baseDir, name))
		if err != nil {
			continue
		}
		var meta SnapshotMeta
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}
		out = append(out, meta)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Delete removes a snapshot and its sidecar.
func (s *SnapshotStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range []string{s.imagePath(id), s.metaPath(id)} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove snapshot: %w", err)
		}
	}
	return nil
}

// Path returns the base directory for snapshots.
func (s *SnapshotStore) Path() string {
	return s.baseDir
}

// SaveSnapshot captures the current frame and saves it with the session's
// metadata.
func (c *Controller) SaveSnapshot(ctx context.Context, store *SnapshotStore) (string, error) {
	png, err := c.Snapshot(ctx)
	if err != nil {
		return "", err
	}
	st := c.Status()
	path, err := store.Save(ctx, png, SnapshotMeta{
		SessionID: st.ID,
		Brush:     st.Brush.String(),
		Segments:  st.Canvas.Permanent(),
		Particles: st.Canvas.Particles,
	})
	if err != nil {
		return "", err
	}
	c.logger.Info("snapshot saved", "path", path, "bytes", len(png))
	return path, nil
}
