package models

import "time"

const (
	SyncRunRunning   = "running"
	SyncRunSucceeded = "succeeded"
	SyncRunPartial   = "partial"
	SyncRunFailed    = "failed"
)

type SyncRun struct {
	ID         string     `gorm:"primaryKey;type:varchar(36)"`
	Trigger    string     `gorm:"type:varchar(16);not null"`
	Status     string     `gorm:"type:varchar(16);not null;index"`
	Fetched    int        `gorm:"not null;default:0"`
	Committed  int        `gorm:"not null;default:0"`
	Batches    int        `gorm:"not null;default:0"`
	Error      *string    `gorm:"type:text"`
	StartedAt  time.Time  `gorm:"not null;index"`
	FinishedAt *time.Time
}

func (SyncRun) TableName() string {
	return "sync_runs"
}
