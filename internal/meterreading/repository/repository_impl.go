package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/dormitory/internal/meterreading/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const readingColumns = `id, dormitory_id, room_id, month, year, kind, previous_value, current_value, units_used, read_at, created_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, m *domain.Reading) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO meter_readings (`+readingColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID,
		m.DormitoryID,
		m.RoomID,
		m.Month,
		m.Year,
		m.Kind,
		m.Previous,
		m.Current,
		m.UnitsUsed,
		m.ReadAt,
		m.CreatedAt,
	).Error
}

func (r *repo) FindByPeriod(ctx context.Context, db *gorm.DB, roomID snowflake.ID, month, year int, kind domain.Kind) (*domain.Reading, error) {
	var reading domain.Reading
	err := db.WithContext(ctx).Raw(
		`SELECT `+readingColumns+`
		 FROM meter_readings WHERE room_id = ? AND month = ? AND year = ? AND kind = ?`,
		roomID, month, year, kind,
	).Scan(&reading).Error
	if err != nil {
		return nil, err
	}
	if reading.ID == 0 {
		return nil, nil
	}
	return &reading, nil
}

func (r *repo) FindLatestBefore(ctx context.Context, db *gorm.DB, roomID snowflake.ID, month, year int, kind domain.Kind) (*domain.Reading, error) {
	var reading domain.Reading
	err := db.WithContext(ctx).Raw(
		`SELECT `+readingColumns+`
		 FROM meter_readings
		 WHERE room_id = ? AND kind = ? AND (year < ? OR (year = ? AND month < ?))
		 ORDER BY year DESC, month DESC
		 LIMIT 1`,
		roomID, kind, year, year, month,
	).Scan(&reading).Error
	if err != nil {
		return nil, err
	}
	if reading.ID == 0 {
		return nil, nil
	}
	return &reading, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, dormitoryID snowflake.ID, filter domain.ListRequest) ([]domain.Reading, error) {
	where := []string{"dormitory_id = ?"}
	args := []any{dormitoryID}
	if filter.Month > 0 {
		where = append(where, "month = ?")
		args = append(args, filter.Month)
	}
	if filter.Year > 0 {
		where = append(where, "year = ?")
		args = append(args, filter.Year)
	}
	if filter.RoomID != 0 {
		where = append(where, "room_id = ?")
		args = append(args, filter.RoomID)
	}
	if filter.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, filter.Kind)
	}

	var readings []domain.Reading
	err := db.WithContext(ctx).Raw(
		`SELECT `+readingColumns+`
		 FROM meter_readings
		 WHERE `+strings.Join(where, " AND ")+`
		 ORDER BY year DESC, month DESC, room_id ASC, kind ASC`,
		args...,
	).Scan(&readings).Error
	if err != nil {
		return nil, err
	}
	return readings, nil
}

func (r *repo) CountForRoom(ctx context.Context, db *gorm.DB, roomID snowflake.ID, month, year int) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM meter_readings WHERE room_id = ? AND month = ? AND year = ?`,
		roomID, month, year,
	).Scan(&count).Error
	return count, err
}
