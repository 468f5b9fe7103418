package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// ErrNoAPIKey means no usable Redmine API key is on disk.
var ErrNoAPIKey = errors.New("redmine api key not configured")

type keyFile struct {
	RedmineAPIKey string    `json:"redmine_api_key"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// FileKeyStore keeps the Redmine API key in a JSON file. The file is re-read
// on every call so an operator can rotate the key without a restart.
type FileKeyStore struct {
	path string
	mu   sync.RWMutex
}

func NewFileKeyStore(path string) *FileKeyStore {
	return &FileKeyStore{path: path}
}

func (s *FileKeyStore) Path() string {
	return s.path
}

func (s *FileKeyStore) APIKey() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s not found", ErrNoAPIKey, s.path)
		}
		return "", err
	}
	var kf keyFile
	if err := json.Unmarshal(b, &kf); err != nil {
		return "", fmt.Errorf("parse %s: %w", s.path, err)
	}
	key := strings.TrimSpace(kf.RedmineAPIKey)
	if key == "" {
		return "", fmt.Errorf("%w: %s has no redmine_api_key", ErrNoAPIKey, s.path)
	}
	return key, nil
}

func (s *FileKeyStore) Configured() bool {
	_, err := s.APIKey()
	return err == nil
}

func (s *FileKeyStore) Save(apiKey string) error {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return errors.New("api key is empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(keyFile{RedmineAPIKey: apiKey, UpdatedAt: time.Now().UTC()}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, b, 0o600)
}
