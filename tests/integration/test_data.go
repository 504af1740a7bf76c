package integration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/BradenHooton/gatekeeper/internal/models"
)

// TestCredentials mirror the weak passwords of data/users.json
var TestCredentials = []models.Credential{
	{Username: "admin", Password: "sunshine1"},
	{Username: "alice", Password: "Dragon2023!"},
	{Username: "guest", Password: "guest"},
}

// WriteDictionary writes words one per line and returns the path
func WriteDictionary(t *testing.T, words ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dictionary.txt")
	if err := os.WriteFile(path, []byte(strings.Join(words, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("failed to write dictionary: %v", err)
	}
	return path
}
