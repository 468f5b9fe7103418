package gormrepository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/MattewMattew/ManagmentBoard/internal/models"
	"github.com/MattewMattew/ManagmentBoard/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return errors.New("store is not initialized")
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

// UpsertIssuesTx inserts new remote ids and, for existing ones, replaces
// payload and updated_at only. created_at keeps its first-seen value.
func (s *Store) UpsertIssuesTx(ctx context.Context, tx *gorm.DB, items []models.Issue) error {
	if len(items) == 0 {
		return nil
	}
	if tx == nil {
		return errors.New("upsert issues: nil transaction")
	}
	return createInBatches(tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "remote_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"payload",
			"updated_at",
		}),
	}), items, 500)
}

func (s *Store) ListIssues(ctx context.Context, params repository.ListIssuesParams) ([]models.Issue, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.Issue{}).Order("remote_id asc")
	if params.Limit > 0 {
		query = query.Limit(params.Limit).Offset(normalizeOffset(params.Offset))
	}
	var items []models.Issue
	if err := query.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountIssues(ctx context.Context) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Issue{}).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) GetIssueByRemoteID(ctx context.Context, remoteID int64) (*models.Issue, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Issue
	err := s.db.WithContext(ctx).First(&item, "remote_id = ?", remoteID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) SaveSyncRun(ctx context.Context, run *models.SyncRun) error {
	if s == nil || s.db == nil || run == nil {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"status",
			"fetched",
			"committed",
			"batches",
			"error",
			"finished_at",
		}),
	}).Create(run).Error
}

func (s *Store) ListSyncRuns(ctx context.Context, limit int) ([]models.SyncRun, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var runs []models.SyncRun
	if err := s.db.WithContext(ctx).
		Order("started_at desc").
		Limit(normalizeLimit(limit, 20)).
		Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

func createInBatches[T any](db *gorm.DB, items []T, batchSize int) error {
	if len(items) == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = 200
	}
	for i := 0; i < len(items); i += batchSize {
		end := i + batchSize
		if end > len(items) {
			end = len(items)
		}
		if err := db.CreateInBatches(items[i:end], batchSize).Error; err != nil {
			return err
		}
	}
	return nil
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 500 {
		return 500
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

var _ repository.Repository = (*Store)(nil)
