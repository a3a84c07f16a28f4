package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type Service interface {
	Record(ctx context.Context, req RecordRequest) (*Reading, error)
	List(ctx context.Context, dormitoryID snowflake.ID, req ListRequest) ([]Reading, error)
	HasReading(ctx context.Context, roomID snowflake.ID, month, year int) (bool, error)
}

type RecordRequest struct {
	DormitoryID snowflake.ID `json:"-"`
	RoomID      snowflake.ID `json:"room_id,string"`
	Month       int          `json:"month"`
	Year        int          `json:"year"`
	Kind        Kind         `json:"kind"`
	// Previous defaults to the room's last reading of the same kind.
	Previous *decimal.Decimal `json:"previous"`
	Current  decimal.Decimal  `json:"current"`
	ReadAt   *time.Time       `json:"read_at"`
}

type ListRequest struct {
	Month  int
	Year   int
	RoomID snowflake.ID
	Kind   Kind
}

var (
	ErrInvalidKind      = errors.New("invalid_meter_kind")
	ErrInvalidPeriod    = errors.New("invalid_period")
	ErrInvalidReading   = errors.New("invalid_meter_reading")
	ErrDuplicateReading = errors.New("duplicate_meter_reading")
)

func ValidPeriod(month, year int) bool {
	return month >= 1 && month <= 12 && year >= 2000
}
