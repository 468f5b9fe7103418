package models

import (
	"time"

	"gorm.io/datatypes"
)

// Issue is the local mirror of one remote Redmine issue. Payload holds the
// remote record verbatim; RemoteID is the upsert key.
type Issue struct {
	ID        uint64         `gorm:"primaryKey;autoIncrement"`
	RemoteID  int64          `gorm:"uniqueIndex;not null"`
	Payload   datatypes.JSON `gorm:"not null"`
	CreatedAt *time.Time     `gorm:"autoCreateTime:false"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime:false;index"`
}

func (Issue) TableName() string {
	return "issues"
}
