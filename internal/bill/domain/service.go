package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/dormitory/pkg/db/pagination"
	"github.com/shopspring/decimal"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Bill, error)
	RecordPayment(ctx context.Context, req RecordPaymentRequest) (*Bill, error)
	TransitionToOverdue(ctx context.Context, dormitoryID, billID snowflake.ID, now time.Time) (*Bill, error)
	SendDueReminder(ctx context.Context, dormitoryID, billID snowflake.ID, now time.Time) (bool, error)
	ResendOverdueNotice(ctx context.Context, dormitoryID, billID snowflake.ID) (bool, error)
	Cancel(ctx context.Context, dormitoryID, billID snowflake.ID) (*Bill, error)

	Get(ctx context.Context, dormitoryID, billID snowflake.ID) (*Bill, error)
	List(ctx context.Context, dormitoryID snowflake.ID, req ListRequest) (ListResponse, error)
	ListDueSoon(ctx context.Context, dormitoryID snowflake.ID, now time.Time) ([]*Bill, error)
	ListOverdue(ctx context.Context, dormitoryID snowflake.ID, now time.Time) ([]*Bill, error)
}

type CreateRequest struct {
	DormitoryID snowflake.ID
	RoomID      snowflake.ID
	TenantID    snowflake.ID
	Month       int
	Year        int
	DueDate     time.Time
	Items       []ItemInput
	Notes       *string
}

type ItemInput struct {
	Name     string
	Amount   decimal.Decimal
	Category Category
	Reading  *ReadingInput
}

type ReadingInput struct {
	Previous  decimal.Decimal
	Current   decimal.Decimal
	UnitPrice *decimal.Decimal
}

type RecordPaymentRequest struct {
	DormitoryID snowflake.ID
	BillID      snowflake.ID
	Amount      decimal.Decimal
	Method      Method
	PaidAt      *time.Time
	Reference   *string
	EvidenceURL *string
	RecordedBy  string
}

type ListRequest struct {
	Status    Status
	Month     int
	Year      int
	RoomID    snowflake.ID
	PageToken string
	PageSize  int32
}

type ListResponse struct {
	Bills    []*Bill              `json:"bills"`
	PageInfo *pagination.PageInfo `json:"page_info,omitempty"`
}

var (
	ErrNotFound           = errors.New("bill_not_found")
	ErrInvalidState       = errors.New("invalid_bill_state")
	ErrInvalidAmount      = errors.New("invalid_amount")
	ErrInvalidPeriod      = errors.New("invalid_period")
	ErrMissingRoom        = errors.New("missing_room")
	ErrMissingTenant      = errors.New("missing_tenant")
	ErrTenantRoomMismatch = errors.New("tenant_room_mismatch")
	ErrMissingDueDate     = errors.New("missing_due_date")
	ErrMissingItems       = errors.New("missing_items")
	ErrInvalidItem        = errors.New("invalid_item")
	ErrInvalidCategory    = errors.New("invalid_category")
	ErrInvalidReading     = errors.New("invalid_utility_reading")
	ErrInvalidMethod      = errors.New("invalid_payment_method")
	ErrInvalidStatus      = errors.New("invalid_status")
	ErrDuplicateBill      = errors.New("duplicate_bill")
	ErrConcurrentUpdate   = errors.New("concurrent_update")
	ErrNotificationFailed = errors.New("notification_failed")
	ErrNotEligible        = errors.New("bill_not_eligible")
)

// NotEligibleError is returned by Create when the tenant's room cannot be
// billed for the cycle yet. It matches ErrNotEligible.
type NotEligibleError struct {
	Reason string
}

func (e *NotEligibleError) Error() string {
	return ErrNotEligible.Error() + ": " + e.Reason
}

func (e *NotEligibleError) Is(target error) bool {
	return target == ErrNotEligible
}
