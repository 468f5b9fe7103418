// Package memory is an in-process Repository for service tests. InTx
// snapshots state and restores it when fn fails, so batch atomicity behaves
// like the SQL store.
package memory

import (
	"context"
	"sort"
	"sync"

	"gorm.io/gorm"

	"github.com/MattewMattew/ManagmentBoard/internal/models"
	"github.com/MattewMattew/ManagmentBoard/internal/repository"
)

type Store struct {
	mu     sync.Mutex
	nextID uint64
	issues map[int64]models.Issue
	runs   map[string]models.SyncRun

	// FailUpsertOn makes the Nth UpsertIssuesTx call (1-based) apply its rows
	// and then return the error, so the enclosing InTx has to roll back.
	FailUpsertOn  int
	FailUpsertErr error
	upserts       int
}

func New() *Store {
	return &Store{
		issues: make(map[int64]models.Issue),
		runs:   make(map[string]models.SyncRun),
	}
}

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	s.mu.Lock()
	snapshot := make(map[int64]models.Issue, len(s.issues))
	for k, v := range s.issues {
		snapshot[k] = v
	}
	nextID := s.nextID
	s.mu.Unlock()

	if err := fn(nil); err != nil {
		s.mu.Lock()
		s.issues = snapshot
		s.nextID = nextID
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Store) UpsertIssuesTx(ctx context.Context, _ *gorm.DB, items []models.Issue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts++
	for _, item := range items {
		existing, ok := s.issues[item.RemoteID]
		if ok {
			existing.Payload = append(existing.Payload[:0:0], item.Payload...)
			existing.UpdatedAt = item.UpdatedAt
			s.issues[item.RemoteID] = existing
			continue
		}
		s.nextID++
		item.ID = s.nextID
		item.Payload = append(item.Payload[:0:0], item.Payload...)
		s.issues[item.RemoteID] = item
	}
	if s.FailUpsertOn > 0 && s.upserts == s.FailUpsertOn {
		return s.FailUpsertErr
	}
	return nil
}

func (s *Store) ListIssues(ctx context.Context, params repository.ListIssuesParams) ([]models.Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Issue, 0, len(s.issues))
	for _, item := range s.issues {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RemoteID < out[j].RemoteID })
	if params.Limit <= 0 {
		return out, nil
	}
	offset := params.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(out) {
		return []models.Issue{}, nil
	}
	end := offset + params.Limit
	if end > len(out) {
		end = len(out)
	}
	return out[offset:end], nil
}

func (s *Store) CountIssues(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.issues)), nil
}

func (s *Store) GetIssueByRemoteID(ctx context.Context, remoteID int64) (*models.Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.issues[remoteID]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (s *Store) SaveSyncRun(ctx context.Context, run *models.SyncRun) error {
	if run == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = *run
	return nil
}

func (s *Store) ListSyncRuns(ctx context.Context, limit int) ([]models.SyncRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.SyncRun, 0, len(s.runs))
	for _, run := range s.runs {
		out = append(out, run)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var _ repository.Repository = (*Store)(nil)
