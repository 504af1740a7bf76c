package coordination

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/BradenHooton/gatekeeper/internal/models"
)

// Broadcaster shares a found password between sibling attack instances.
//
// It is an advisory signal, not a lock. Writes are last-write-wins, readers
// see a publish eventually (within one poll interval for pollers), nothing
// is ordered, and two instances that match at nearly the same time may both
// publish. Implementations must treat unreadable data as "nothing found".
type Broadcaster interface {
	Publish(ctx context.Context, finding models.Finding) error
	Poll(ctx context.Context) (*models.Finding, error)
	Reset(ctx context.Context) error
}

// FileBroadcaster keeps the finding in a JSON file on a shared filesystem
type FileBroadcaster struct {
	path   string
	logger *slog.Logger
}

// NewFileBroadcaster creates a FileBroadcaster at path
func NewFileBroadcaster(path string, logger *slog.Logger) *FileBroadcaster {
	return &FileBroadcaster{path: path, logger: logger}
}

// Path returns the shared file location
func (b *FileBroadcaster) Path() string {
	return b.path
}

// Publish writes finding to a temporary file and renames it into place so
// pollers never read a half-written record
func (b *FileBroadcaster) Publish(ctx context.Context, finding models.Finding) error {
	data, err := json.MarshalIndent(finding, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode finding: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(b.path), ".found-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write finding: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write finding: %w", err)
	}
	if err := os.Rename(tmpName, b.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to publish finding: %w", err)
	}

	b.logger.Info("finding published", slog.String("path", b.path))
	return nil
}

// Poll returns the published finding, or nil when there is none. A
// malformed file reads as nil.
func (b *FileBroadcaster) Poll(ctx context.Context) (*models.Finding, error) {
	data, err := os.ReadFile(b.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read found flag: %w", err)
	}

	var finding models.Finding
	if err := json.Unmarshal(data, &finding); err != nil || finding.Password == "" {
		b.logger.Debug("ignoring malformed found flag", slog.String("path", b.path))
		return nil, nil
	}
	return &finding, nil
}

// Reset removes the shared file
func (b *FileBroadcaster) Reset(ctx context.Context) error {
	if err := os.Remove(b.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove found flag: %w", err)
	}
	b.logger.Info("found flag reset", slog.String("path", b.path))
	return nil
}
