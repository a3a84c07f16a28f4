package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusPending       Status = "pending"
	StatusPartiallyPaid Status = "partially_paid"
	StatusPaid          Status = "paid"
	StatusOverdue       Status = "overdue"
	StatusCancelled     Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPartiallyPaid, StatusPaid, StatusOverdue, StatusCancelled:
		return true
	}
	return false
}

func (s Status) Terminal() bool {
	return s == StatusPaid || s == StatusCancelled
}

// OpenStatuses are the statuses the due/overdue scan looks at.
var OpenStatuses = []Status{StatusPending, StatusPartiallyPaid}

type Category string

const (
	CategoryRent        Category = "rent"
	CategoryWater       Category = "water"
	CategoryElectric    Category = "electric"
	CategoryMaintenance Category = "maintenance"
	CategoryOther       Category = "other"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryRent, CategoryWater, CategoryElectric, CategoryMaintenance, CategoryOther:
		return true
	}
	return false
}

func (c Category) Metered() bool {
	return c == CategoryWater || c == CategoryElectric
}

type Method string

const (
	MethodCash         Method = "cash"
	MethodBankTransfer Method = "bank_transfer"
	MethodPromptPay    Method = "promptpay"
	MethodOther        Method = "other"
)

func (m Method) Valid() bool {
	switch m {
	case MethodCash, MethodBankTransfer, MethodPromptPay, MethodOther:
		return true
	}
	return false
}

// Flag names a notification-sent column on bills.
type Flag string

const (
	FlagCreated  Flag = "created_notified"
	FlagReminder Flag = "reminder_notified"
	FlagOverdue  Flag = "overdue_notified"
)

type Bill struct {
	ID          snowflake.ID `json:"id" gorm:"primaryKey"`
	DormitoryID snowflake.ID `json:"dormitory_id" gorm:"not null;uniqueIndex:ux_bills_dorm_room_period,priority:1;index:idx_bills_dorm_status_due,priority:1"`
	RoomID      snowflake.ID `json:"room_id" gorm:"not null;uniqueIndex:ux_bills_dorm_room_period,priority:2"`
	TenantID    snowflake.ID `json:"tenant_id" gorm:"not null;index"`
	RoomNumber  string       `json:"room_number" gorm:"type:varchar(32);not null"`
	Month       int          `json:"month" gorm:"not null;uniqueIndex:ux_bills_dorm_room_period,priority:4"`
	Year        int          `json:"year" gorm:"not null;uniqueIndex:ux_bills_dorm_room_period,priority:3"`

	TotalAmount     decimal.Decimal `json:"total_amount" gorm:"type:numeric(12,2);not null"`
	PaidAmount      decimal.Decimal `json:"paid_amount" gorm:"type:numeric(12,2);not null"`
	RemainingAmount decimal.Decimal `json:"remaining_amount" gorm:"type:numeric(12,2);not null"`

	Status      Status     `json:"status" gorm:"type:varchar(20);not null;index:idx_bills_dorm_status_due,priority:2"`
	DueDate     time.Time  `json:"due_date" gorm:"not null;index:idx_bills_dorm_status_due,priority:3"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	Notes       *string    `json:"notes,omitempty" gorm:"type:text"`

	CreatedNotified  bool `json:"created_notified" gorm:"not null"`
	ReminderNotified bool `json:"reminder_notified" gorm:"not null"`
	OverdueNotified  bool `json:"overdue_notified" gorm:"not null"`

	Version   int64     `json:"version" gorm:"not null"`
	CreatedAt time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null"`

	Items    []LineItem `json:"items" gorm:"foreignKey:BillID"`
	Payments []Payment  `json:"payments" gorm:"foreignKey:BillID"`
}

func (Bill) TableName() string { return "bills" }

// Remaining is always derived; the stored column only serves queries.
func (b *Bill) Remaining() decimal.Decimal {
	return b.TotalAmount.Sub(b.PaidAmount)
}

// UtilityReading is the meter detail attached to a water or electric item.
type UtilityReading struct {
	Previous  decimal.Decimal  `json:"previous"`
	Current   decimal.Decimal  `json:"current"`
	UnitsUsed decimal.Decimal  `json:"units_used"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
}

type LineItem struct {
	ID       snowflake.ID                        `json:"id" gorm:"primaryKey"`
	BillID   snowflake.ID                        `json:"bill_id" gorm:"not null;index"`
	Position int                                 `json:"position" gorm:"not null"`
	Name     string                              `json:"name" gorm:"type:text;not null"`
	Amount   decimal.Decimal                     `json:"amount" gorm:"type:numeric(12,2);not null"`
	Category Category                            `json:"category" gorm:"type:varchar(20);not null"`
	Reading  datatypes.JSONType[*UtilityReading] `json:"reading" gorm:"column:reading"`
}

func (LineItem) TableName() string { return "bill_items" }

type Payment struct {
	ID          snowflake.ID    `json:"id" gorm:"primaryKey"`
	BillID      snowflake.ID    `json:"bill_id" gorm:"not null;index"`
	Amount      decimal.Decimal `json:"amount" gorm:"type:numeric(12,2);not null"`
	Method      Method          `json:"method" gorm:"type:varchar(20);not null"`
	PaidAt      time.Time       `json:"paid_at" gorm:"not null"`
	Reference   *string         `json:"reference,omitempty" gorm:"type:text"`
	EvidenceURL *string         `json:"evidence_url,omitempty" gorm:"type:text"`
	RecordedBy  string          `json:"recorded_by" gorm:"type:text;not null"`
	CreatedAt   time.Time       `json:"created_at" gorm:"not null"`
}

func (Payment) TableName() string { return "bill_payments" }
