package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"replayscraper/pkg/logger"
	"replayscraper/pkg/showdown"
)

// snapshotVersion is bumped when the file layout changes
const snapshotVersion = 1

// Snapshot is the on-disk form of the references still waiting in the queue
// when the harvester stopped
type Snapshot struct {
	Version    int                  `json:"version"`
	CreatedAt  time.Time            `json:"created_at"`
	References []showdown.Reference `json:"references"`
}

// Manager reads and writes the pending-queue snapshot
type Manager struct {
	path   string
	logger logger.Logger
}

// NewManager creates a manager for the snapshot file at path
func NewManager(path string, log logger.Logger) *Manager {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Manager{
		path:   path,
		logger: log.WithField("component", "checkpoint"),
	}
}

// Path returns the snapshot file path
func (m *Manager) Path() string {
	return m.path
}

// Load returns the saved references, or nil when no snapshot exists
func (m *Manager) Load() ([]showdown.Reference, error) {
	file, err := os.Open(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer file.Close()

	var snap Snapshot
	if err := json.NewDecoder(file).Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}

	m.logger.InfoWithFields("Snapshot loaded", map[string]interface{}{
		"references": len(snap.References),
		"created_at": snap.CreatedAt,
	})
	return snap.References, nil
}

// Save writes refs atomically. Saving an empty list removes the snapshot.
func (m *Manager) Save(refs []showdown.Reference) error {
	if len(refs) == 0 {
		return m.Delete()
	}

	if dir := filepath.Dir(m.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create snapshot directory: %w", err)
		}
	}

	tempPath := m.path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary snapshot file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	err = encoder.Encode(Snapshot{
		Version:    snapshotVersion,
		CreatedAt:  time.Now(),
		References: refs,
	})
	if err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync snapshot file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close snapshot file: %w", err)
	}

	if err := os.Rename(tempPath, m.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace snapshot file: %w", err)
	}

	m.logger.InfoWithFields("Snapshot saved", map[string]interface{}{
		"references": len(refs),
		"path":       m.path,
	})
	return nil
}

// Delete removes the snapshot file
func (m *Manager) Delete() error {
	if err := os.Remove(m.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

// Exists checks if a snapshot file exists
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.path)
	return err == nil
}
