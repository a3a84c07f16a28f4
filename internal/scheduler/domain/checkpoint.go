package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Checkpoint records how far the due/overdue scan got on a given day.
type Checkpoint struct {
	RunDate         string       `gorm:"primaryKey;type:varchar(10)"`
	LastDormitoryID snowflake.ID `gorm:"not null"`
	Completed       bool         `gorm:"not null"`
	DueSoonCount    int          `gorm:"not null"`
	OverdueCount    int          `gorm:"not null"`
	FailedCount     int          `gorm:"not null"`
	UpdatedAt       time.Time    `gorm:"not null"`
}

func (Checkpoint) TableName() string { return "scan_checkpoints" }

type CheckpointRepository interface {
	Find(ctx context.Context, runDate string) (*Checkpoint, error)
	Save(ctx context.Context, cp *Checkpoint) error
}
