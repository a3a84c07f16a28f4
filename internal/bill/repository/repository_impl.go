package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/dormitory/internal/bill/domain"
	"github.com/railzwaylabs/dormitory/pkg/db/pagination"
	"gorm.io/gorm"
)

const defaultPageSize = 50

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, bill *domain.Bill) error {
	return db.WithContext(ctx).Create(bill).Error
}

func (r *repo) InsertPayment(ctx context.Context, db *gorm.DB, payment *domain.Payment) error {
	return db.WithContext(ctx).Create(payment).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, dormitoryID, id snowflake.ID) (*domain.Bill, error) {
	var bill domain.Bill
	err := withChildren(db.WithContext(ctx)).
		Where("dormitory_id = ? AND id = ?", dormitoryID, id).
		First(&bill).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &bill, nil
}

func (r *repo) FindByPeriod(ctx context.Context, db *gorm.DB, dormitoryID, roomID snowflake.ID, month, year int) (*domain.Bill, error) {
	var bill domain.Bill
	err := db.WithContext(ctx).
		Where("dormitory_id = ? AND room_id = ? AND month = ? AND year = ?", dormitoryID, roomID, month, year).
		First(&bill).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &bill, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, dormitoryID snowflake.ID, filter domain.ListRequest, page pagination.Pagination) ([]*domain.Bill, error) {
	stmt := withChildren(db.WithContext(ctx)).Where("dormitory_id = ?", dormitoryID)
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.Month > 0 {
		stmt = stmt.Where("month = ?", filter.Month)
	}
	if filter.Year > 0 {
		stmt = stmt.Where("year = ?", filter.Year)
	}
	if filter.RoomID != 0 {
		stmt = stmt.Where("room_id = ?", filter.RoomID)
	}

	cursor, err := pagination.DecodeCursor(page.PageToken)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		lastID, err := strconv.ParseInt(cursor.ID, 10, 64)
		if err != nil {
			return nil, pagination.ErrInvalidCursor
		}
		stmt = stmt.Where("id < ?", lastID)
	}

	size := page.PageSize
	if size <= 0 {
		size = defaultPageSize
	}

	var bills []*domain.Bill
	if err := stmt.Order("id DESC").Limit(size + 1).Find(&bills).Error; err != nil {
		return nil, err
	}
	return bills, nil
}

func (r *repo) ListDueBetween(ctx context.Context, db *gorm.DB, dormitoryID snowflake.ID, after, until time.Time) ([]*domain.Bill, error) {
	var bills []*domain.Bill
	err := db.WithContext(ctx).
		Where("dormitory_id = ? AND status IN ? AND reminder_notified = ? AND due_date > ? AND due_date <= ?",
			dormitoryID, domain.OpenStatuses, false, after.UTC(), until.UTC()).
		Order("due_date ASC, id ASC").
		Find(&bills).Error
	return bills, err
}

// ListPastDue returns open bills whose due date has passed. With
// includeUnnotified it also returns overdue bills whose notice has not gone
// out yet.
func (r *repo) ListPastDue(ctx context.Context, db *gorm.DB, dormitoryID snowflake.ID, before time.Time, includeUnnotified bool) ([]*domain.Bill, error) {
	status := db.Session(&gorm.Session{NewDB: true}).Where("status IN ?", domain.OpenStatuses)
	if includeUnnotified {
		status = status.Or("status = ? AND overdue_notified = ?", domain.StatusOverdue, false)
	}

	var bills []*domain.Bill
	err := db.WithContext(ctx).
		Where("dormitory_id = ? AND due_date < ?", dormitoryID, before.UTC()).
		Where(status).
		Order("due_date ASC, id ASC").
		Find(&bills).Error
	return bills, err
}

func (r *repo) UpdateState(ctx context.Context, db *gorm.DB, bill *domain.Bill, expectedVersion int64) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE bills
		 SET paid_amount = ?, remaining_amount = ?, status = ?, paid_at = ?, cancelled_at = ?,
		     updated_at = ?, version = version + 1
		 WHERE id = ? AND version = ?`,
		bill.PaidAmount,
		bill.Remaining(),
		bill.Status,
		bill.PaidAt,
		bill.CancelledAt,
		bill.UpdatedAt,
		bill.ID,
		expectedVersion,
	)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected != 1 {
		return false, nil
	}
	bill.Version = expectedVersion + 1
	return true, nil
}

func (r *repo) ClaimFlag(ctx context.Context, db *gorm.DB, id snowflake.ID, flag domain.Flag) (bool, error) {
	column, err := flagColumn(flag)
	if err != nil {
		return false, err
	}
	res := db.WithContext(ctx).Exec(
		fmt.Sprintf(`UPDATE bills SET %s = ? WHERE id = ? AND %s = ?`, column, column),
		true, id, false,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) ReleaseFlag(ctx context.Context, db *gorm.DB, id snowflake.ID, flag domain.Flag) error {
	column, err := flagColumn(flag)
	if err != nil {
		return err
	}
	return db.WithContext(ctx).Exec(
		fmt.Sprintf(`UPDATE bills SET %s = ? WHERE id = ?`, column),
		false, id,
	).Error
}

func flagColumn(flag domain.Flag) (string, error) {
	switch flag {
	case domain.FlagCreated, domain.FlagReminder, domain.FlagOverdue:
		return string(flag), nil
	}
	return "", fmt.Errorf("unknown bill flag %q", flag)
}

func withChildren(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("position ASC") }).
		Preload("Payments", func(tx *gorm.DB) *gorm.DB { return tx.Order("paid_at ASC, id ASC") })
}
