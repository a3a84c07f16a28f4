package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/dormitory/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, bill *Bill) error
	InsertPayment(ctx context.Context, db *gorm.DB, payment *Payment) error
	FindByID(ctx context.Context, db *gorm.DB, dormitoryID, id snowflake.ID) (*Bill, error)
	FindByPeriod(ctx context.Context, db *gorm.DB, dormitoryID, roomID snowflake.ID, month, year int) (*Bill, error)
	List(ctx context.Context, db *gorm.DB, dormitoryID snowflake.ID, filter ListRequest, page pagination.Pagination) ([]*Bill, error)
	ListDueBetween(ctx context.Context, db *gorm.DB, dormitoryID snowflake.ID, after, until time.Time) ([]*Bill, error)
	ListPastDue(ctx context.Context, db *gorm.DB, dormitoryID snowflake.ID, before time.Time, includeUnnotified bool) ([]*Bill, error)

	// UpdateState writes the mutable money and status columns when the row is
	// still at expectedVersion, bumping the version. It reports false when the
	// row moved on.
	UpdateState(ctx context.Context, db *gorm.DB, bill *Bill, expectedVersion int64) (bool, error)

	// ClaimFlag sets flag when it is still false and reports whether this
	// caller flipped it.
	ClaimFlag(ctx context.Context, db *gorm.DB, id snowflake.ID, flag Flag) (bool, error)
	ReleaseFlag(ctx context.Context, db *gorm.DB, id snowflake.ID, flag Flag) error
}
