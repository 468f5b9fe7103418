package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MattewMattew/ManagmentBoard/internal/client/redmine"
	"github.com/MattewMattew/ManagmentBoard/internal/lock"
	"github.com/MattewMattew/ManagmentBoard/internal/models"
	"github.com/MattewMattew/ManagmentBoard/internal/repository"
)

const (
	TriggerHTTP = "http"
	TriggerCron = "cron"
	TriggerCLI  = "cli"

	issueSyncLockKey = "sync:issues"
)

var ErrSyncInProgress = errors.New("issue sync already in progress")

type IssueSyncService struct {
	Fetcher   *IssueFetcher
	Committer *IssueCommitter
	Runs      repository.SyncRunRepository
	Locker    lock.Locker
	Logger    *zap.Logger

	Filter    redmine.ListIssuesRequest
	PageSize  int
	BatchSize int
	LockTTL   time.Duration
	// CommitPartial writes the records of a failed fetch before returning
	// the fetch error.
	CommitPartial bool
}

type SyncResult struct {
	RunID     string `json:"run_id"`
	Status    string `json:"status"`
	ItemCount int    `json:"item_count"`
	Fetched   int    `json:"fetched"`
	Batches   int    `json:"batches"`
}

// Run mirrors the full filtered remote issue set into the store. Fetch and
// commit errors are returned as-is (*FetchError, *BatchError) so callers can
// classify them.
func (s *IssueSyncService) Run(ctx context.Context, trigger string) (SyncResult, error) {
	if s == nil || s.Fetcher == nil || s.Committer == nil {
		return SyncResult{}, fmt.Errorf("issue sync service is not initialized")
	}
	if s.Locker != nil {
		token, ok, err := s.Locker.TryLock(ctx, issueSyncLockKey, s.LockTTL)
		if err != nil {
			return SyncResult{}, fmt.Errorf("acquire sync lock: %w", err)
		}
		if !ok {
			return SyncResult{}, ErrSyncInProgress
		}
		defer func() {
			if err := s.Locker.Unlock(context.WithoutCancel(ctx), issueSyncLockKey, token); err != nil && s.Logger != nil {
				s.Logger.Warn("release sync lock failed", zap.Error(err))
			}
		}()
	}

	run := &models.SyncRun{
		ID:        uuid.NewString(),
		Trigger:   trigger,
		Status:    models.SyncRunRunning,
		StartedAt: time.Now().UTC(),
	}
	s.saveRun(ctx, run)
	result := SyncResult{RunID: run.ID, Status: run.Status}
	if s.Logger != nil {
		s.Logger.Info("issue sync started", zap.String("run_id", run.ID), zap.String("trigger", trigger))
	}

	fetched, err := s.Fetcher.FetchAll(ctx, s.Filter, s.PageSize)
	result.Fetched = len(fetched.Records)
	if err != nil {
		var fetchErr *FetchError
		if s.CommitPartial && errors.As(err, &fetchErr) && len(fetchErr.Records) > 0 {
			committed, commitErr := s.Committer.Commit(ctx, fetchErr.Records, s.BatchSize)
			result.ItemCount = committed
			result.Batches = batchCount(committed, s.batchSize())
			result.Status = models.SyncRunPartial
			s.finishRun(ctx, run, result, errors.Join(err, commitErr))
			if commitErr != nil {
				return result, errors.Join(err, commitErr)
			}
			return result, err
		}
		result.Status = models.SyncRunFailed
		s.finishRun(ctx, run, result, err)
		return result, err
	}

	committed, err := s.Committer.Commit(ctx, fetched.Records, s.BatchSize)
	result.ItemCount = committed
	result.Batches = batchCount(committed, s.batchSize())
	if err != nil {
		result.Status = models.SyncRunFailed
		s.finishRun(ctx, run, result, err)
		return result, err
	}
	result.Status = models.SyncRunSucceeded
	s.finishRun(ctx, run, result, nil)
	return result, nil
}

// ListRuns returns the most recent sync runs, newest first.
func (s *IssueSyncService) ListRuns(ctx context.Context, limit int) ([]models.SyncRun, error) {
	if s == nil || s.Runs == nil {
		return nil, nil
	}
	return s.Runs.ListSyncRuns(ctx, limit)
}

func (s *IssueSyncService) batchSize() int {
	if s.BatchSize <= 0 {
		return defaultBatchSize
	}
	return s.BatchSize
}

func (s *IssueSyncService) finishRun(ctx context.Context, run *models.SyncRun, result SyncResult, err error) {
	now := time.Now().UTC()
	run.Status = result.Status
	run.Fetched = result.Fetched
	run.Committed = result.ItemCount
	run.Batches = result.Batches
	run.FinishedAt = &now
	if err != nil {
		msg := err.Error()
		run.Error = &msg
	}
	s.saveRun(ctx, run)
	if s.Logger == nil {
		return
	}
	fields := []zap.Field{
		zap.String("run_id", run.ID),
		zap.String("status", run.Status),
		zap.Int("fetched", run.Fetched),
		zap.Int("committed", run.Committed),
		zap.Int("batches", run.Batches),
		zap.Duration("elapsed", now.Sub(run.StartedAt)),
	}
	if err != nil {
		s.Logger.Warn("issue sync failed", append(fields, zap.Error(err))...)
		return
	}
	s.Logger.Info("issue sync finished", fields...)
}

// saveRun is best-effort: run bookkeeping never fails a sync.
func (s *IssueSyncService) saveRun(ctx context.Context, run *models.SyncRun) {
	if s.Runs == nil {
		return
	}
	if err := s.Runs.SaveSyncRun(context.WithoutCancel(ctx), run); err != nil && s.Logger != nil {
		s.Logger.Warn("record sync run failed", zap.String("run_id", run.ID), zap.Error(err))
	}
}
