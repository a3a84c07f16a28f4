package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type Kind string

const (
	KindWater    Kind = "water"
	KindElectric Kind = "electric"
)

func (k Kind) Valid() bool {
	return k == KindWater || k == KindElectric
}

// Reading is one meter read for a room in a billing cycle.
type Reading struct {
	ID          snowflake.ID    `json:"id" gorm:"primaryKey"`
	DormitoryID snowflake.ID    `json:"dormitory_id" gorm:"not null;index:idx_meter_readings_dorm_period,priority:1"`
	RoomID      snowflake.ID    `json:"room_id" gorm:"not null;uniqueIndex:ux_meter_readings_room_period_kind,priority:1"`
	Month       int             `json:"month" gorm:"not null;uniqueIndex:ux_meter_readings_room_period_kind,priority:3;index:idx_meter_readings_dorm_period,priority:3"`
	Year        int             `json:"year" gorm:"not null;uniqueIndex:ux_meter_readings_room_period_kind,priority:2;index:idx_meter_readings_dorm_period,priority:2"`
	Kind        Kind            `json:"kind" gorm:"type:varchar(16);not null;uniqueIndex:ux_meter_readings_room_period_kind,priority:4"`
	Previous    decimal.Decimal `json:"previous" gorm:"column:previous_value;type:numeric(12,2);not null"`
	Current     decimal.Decimal `json:"current" gorm:"column:current_value;type:numeric(12,2);not null"`
	UnitsUsed   decimal.Decimal `json:"units_used" gorm:"type:numeric(12,2);not null"`
	ReadAt      time.Time       `json:"read_at" gorm:"not null"`
	CreatedAt   time.Time       `json:"created_at" gorm:"not null"`
}

func (Reading) TableName() string { return "meter_readings" }
