package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, r *Reading) error
	FindByPeriod(ctx context.Context, db *gorm.DB, roomID snowflake.ID, month, year int, kind Kind) (*Reading, error)
	FindLatestBefore(ctx context.Context, db *gorm.DB, roomID snowflake.ID, month, year int, kind Kind) (*Reading, error)
	List(ctx context.Context, db *gorm.DB, dormitoryID snowflake.ID, filter ListRequest) ([]Reading, error)
	CountForRoom(ctx context.Context, db *gorm.DB, roomID snowflake.ID, month, year int) (int64, error)
}
