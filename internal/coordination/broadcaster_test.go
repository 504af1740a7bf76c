package coordination

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/BradenHooton/gatekeeper/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newFileBroadcaster(t *testing.T) *FileBroadcaster {
	t.Helper()
	return NewFileBroadcaster(filepath.Join(t.TempDir(), ".password_found.lock"), discardLogger())
}

func TestFileBroadcaster_PublishPoll(t *testing.T) {
	b := newFileBroadcaster(t)
	ctx := context.Background()

	finding := models.Finding{
		Username:   "admin",
		Password:   "sunshine1",
		Timestamp:  "2024-03-01T12:00:00Z",
		InstanceID: 2,
		RunID:      "run-7",
	}
	require.NoError(t, b.Publish(ctx, finding))

	got, err := b.Poll(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, finding, *got)

	entries, err := os.ReadDir(filepath.Dir(b.Path()))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files are cleaned up")
}

func TestFileBroadcaster_LastWriteWins(t *testing.T) {
	b := newFileBroadcaster(t)
	ctx := context.Background()

	require.NoError(t, b.Publish(ctx, models.Finding{Username: "admin", Password: "first"}))
	require.NoError(t, b.Publish(ctx, models.Finding{Username: "admin", Password: "second"}))

	got, err := b.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, "second", got.Password)
}

func TestFileBroadcaster_MissingReadsAsNothing(t *testing.T) {
	got, err := newFileBroadcaster(t).Poll(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestFileBroadcaster_MalformedReadsAsNothing(t *testing.T) {
	b := newFileBroadcaster(t)

	for _, content := range []string{"{not json", "", `{"username":"admin"}`} {
		require.NoError(t, os.WriteFile(b.Path(), []byte(content), 0o644))
		got, err := b.Poll(context.Background())
		assert.NoError(t, err)
		assert.Nil(t, got, "content %q", content)
	}
}

func TestFileBroadcaster_Reset(t *testing.T) {
	b := newFileBroadcaster(t)
	ctx := context.Background()

	require.NoError(t, b.Reset(ctx), "reset without file is fine")
	require.NoError(t, b.Publish(ctx, models.Finding{Username: "admin", Password: "x"}))
	require.NoError(t, b.Reset(ctx))

	got, err := b.Poll(ctx)
	assert.NoError(t, err)
	assert.Nil(t, got)
}
