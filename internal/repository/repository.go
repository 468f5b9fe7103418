package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/MattewMattew/ManagmentBoard/internal/models"
)

// IssueRepository is the store surface used by the sync pipeline and the
// read API. Writes happen inside InTx; the tx handle is passed back to the
// *Tx methods so every write of a batch shares one transaction.
type IssueRepository interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error
	UpsertIssuesTx(ctx context.Context, tx *gorm.DB, items []models.Issue) error
	ListIssues(ctx context.Context, params ListIssuesParams) ([]models.Issue, error)
	CountIssues(ctx context.Context) (int64, error)
	GetIssueByRemoteID(ctx context.Context, remoteID int64) (*models.Issue, error)
}

type SyncRunRepository interface {
	SaveSyncRun(ctx context.Context, run *models.SyncRun) error
	ListSyncRuns(ctx context.Context, limit int) ([]models.SyncRun, error)
}

type Repository interface {
	IssueRepository
	SyncRunRepository
}

// ListIssuesParams pages the stored issues by remote id. Limit <= 0 returns
// every row.
type ListIssuesParams struct {
	Limit  int
	Offset int
}
