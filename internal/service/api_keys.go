package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/MattewMattew/ManagmentBoard/internal/client/redmine"
	"github.com/MattewMattew/ManagmentBoard/internal/credentials"
)

type APIKeyStore interface {
	APIKeySource
	Save(apiKey string) error
}

type APIKeyService struct {
	Keys   APIKeyStore
	Client *redmine.Client
}

type APIKeyStatus struct {
	Configured bool `json:"configured"`
	// Valid is set only when verification was requested and a key exists.
	Valid *bool  `json:"valid,omitempty"`
	Error string `json:"error,omitempty"`
}

// Status reports whether a key is on disk; with verify it also asks Redmine
// whether the key is accepted.
func (s *APIKeyService) Status(ctx context.Context, verify bool) (APIKeyStatus, error) {
	if s == nil || s.Keys == nil {
		return APIKeyStatus{}, fmt.Errorf("api key store is nil")
	}
	key, err := s.Keys.APIKey()
	if err != nil {
		if errors.Is(err, credentials.ErrNoAPIKey) {
			return APIKeyStatus{Configured: false}, nil
		}
		return APIKeyStatus{}, err
	}
	status := APIKeyStatus{Configured: true}
	if !verify || s.Client == nil {
		return status, nil
	}
	valid := true
	if _, err := s.Client.CurrentUser(ctx, key); err != nil {
		var apiErr *redmine.APIError
		if !errors.As(err, &apiErr) {
			return status, err
		}
		valid = false
		status.Error = fmt.Sprintf("redmine rejected key (%d)", apiErr.Status)
	}
	status.Valid = &valid
	return status, nil
}

func (s *APIKeyService) Save(apiKey string) error {
	if s == nil || s.Keys == nil {
		return fmt.Errorf("api key store is nil")
	}
	return s.Keys.Save(apiKey)
}
