package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/BradenHooton/gatekeeper/internal/models"
	"github.com/go-playground/validator/v10"
)

// CredentialRepository is the read-only username to password mapping the
// login server authenticates against. It is loaded once and never mutated,
// so it needs no locking.
type CredentialRepository struct {
	passwords map[string]string
}

// NewCredentialRepository builds a repository from in-memory credentials.
// Later duplicates of a username replace earlier ones.
func NewCredentialRepository(credentials []models.Credential) *CredentialRepository {
	passwords := make(map[string]string, len(credentials))
	for _, c := range credentials {
		passwords[c.Username] = c.Password
	}
	return &CredentialRepository{passwords: passwords}
}

// LoadCredentialRepository reads a JSON array of {username, password} objects
func LoadCredentialRepository(path string) (*CredentialRepository, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file %s: %w", path, err)
	}

	var credentials []models.Credential
	if err := json.Unmarshal(data, &credentials); err != nil {
		return nil, fmt.Errorf("failed to parse credentials file %s: %w", path, err)
	}

	validate := validator.New()
	for i, c := range credentials {
		if err := validate.Struct(c); err != nil {
			return nil, fmt.Errorf("invalid credential at index %d: %w", i, err)
		}
	}

	return NewCredentialRepository(credentials), nil
}

// GetPassword returns the stored password for username
func (r *CredentialRepository) GetPassword(ctx context.Context, username string) (string, error) {
	password, ok := r.passwords[username]
	if !ok {
		return "", models.ErrNotFound
	}
	return password, nil
}

// Count returns the number of stored users
func (r *CredentialRepository) Count() int {
	return len(r.passwords)
}
