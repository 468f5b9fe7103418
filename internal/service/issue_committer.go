package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/MattewMattew/ManagmentBoard/internal/models"
	"github.com/MattewMattew/ManagmentBoard/internal/repository"
)

const defaultBatchSize = 100

type IssueCommitter struct {
	Store  repository.IssueRepository
	Logger *zap.Logger
	Now    func() time.Time
}

// BatchError reports the batch that was rolled back. Index is zero-based;
// Committed counts records from earlier batches that stay durable.
type BatchError struct {
	Index     int
	Total     int
	Committed int
	Err       error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("commit batch %d/%d failed after %d committed records: %v", e.Index+1, e.Total, e.Committed, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

// Commit writes records in contiguous batches, one transaction per batch,
// strictly in order. The first failing batch is rolled back and aborts the
// rest; earlier batches are already committed.
func (c *IssueCommitter) Commit(ctx context.Context, records []json.RawMessage, batchSize int) (int, error) {
	if c == nil || c.Store == nil {
		return 0, fmt.Errorf("issue store is nil")
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	total := batchCount(len(records), batchSize)
	committed := 0
	for i := 0; i < total; i++ {
		start := i * batchSize
		end := start + batchSize
		if end > len(records) {
			end = len(records)
		}
		batch := records[start:end]
		now := c.now()
		err := c.Store.InTx(ctx, func(tx *gorm.DB) error {
			items, err := buildIssueBatch(batch, now)
			if err != nil {
				return err
			}
			return c.Store.UpsertIssuesTx(ctx, tx, items)
		})
		if err != nil {
			if c.Logger != nil {
				c.Logger.Warn("issue batch rolled back",
					zap.Int("batch", i+1),
					zap.Int("batches", total),
					zap.Int("committed", committed),
					zap.Error(err),
				)
			}
			return committed, &BatchError{Index: i, Total: total, Committed: committed, Err: err}
		}
		committed += len(batch)
		if c.Logger != nil {
			c.Logger.Debug("issue batch committed",
				zap.Int("batch", i+1),
				zap.Int("batches", total),
				zap.Int("size", len(batch)),
			)
		}
	}
	return committed, nil
}

func (c *IssueCommitter) now() time.Time {
	if c.Now != nil {
		return c.Now().UTC()
	}
	return time.Now().UTC()
}

// buildIssueBatch keys every record by its remote id. A repeated id inside
// one batch keeps the later record in the position of the first.
func buildIssueBatch(records []json.RawMessage, now time.Time) ([]models.Issue, error) {
	items := make([]models.Issue, 0, len(records))
	seen := make(map[int64]int, len(records))
	for i, raw := range records {
		item, err := issueFromRecord(raw, now)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		if idx, ok := seen[item.RemoteID]; ok {
			items[idx] = item
			continue
		}
		seen[item.RemoteID] = len(items)
		items = append(items, item)
	}
	return items, nil
}

func issueFromRecord(raw json.RawMessage, now time.Time) (models.Issue, error) {
	if !gjson.ValidBytes(raw) {
		return models.Issue{}, fmt.Errorf("invalid json payload")
	}
	id := gjson.GetBytes(raw, "id")
	if id.Type != gjson.Number || id.Float() != float64(id.Int()) || id.Int() <= 0 {
		return models.Issue{}, fmt.Errorf("missing or non-integer id %q", id.Raw)
	}
	item := models.Issue{
		RemoteID:  id.Int(),
		Payload:   datatypes.JSON(append([]byte(nil), raw...)),
		UpdatedAt: now,
	}
	if createdOn := gjson.GetBytes(raw, "created_on"); createdOn.Type == gjson.String {
		if ts, err := time.Parse(time.RFC3339, createdOn.Str); err == nil {
			ts = ts.UTC()
			item.CreatedAt = &ts
		}
	}
	return item, nil
}

func batchCount(n, size int) int {
	if n <= 0 || size <= 0 {
		return 0
	}
	return (n + size - 1) / size
}
