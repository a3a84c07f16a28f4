// Package eligibility decides whether a tenant's room can be billed for a
// cycle.
package eligibility

import (
	"strings"

	roomdomain "github.com/railzwaylabs/dormitory/internal/room/domain"
)

const (
	ReasonNoRoom      = "no room record"
	ReasonNoMeter     = "meter not yet read this cycle"
	ReasonMovingOut   = "room flagged for move-out"
	ReasonReadyToBill = "ready to bill"
)

// Snapshot is the derived view of a tenant at billing time.
type Snapshot struct {
	RoomNumber      string                  `json:"room_number"`
	HasMeterReading bool                    `json:"has_meter_reading"`
	TenantStatus    roomdomain.TenantStatus `json:"tenant_status"`
}

type Result struct {
	CanCreateBill bool   `json:"can_create_bill"`
	Reason        string `json:"reason"`
}

// Evaluate applies the rules in order; the first failing rule decides.
func Evaluate(s Snapshot) Result {
	switch {
	case strings.TrimSpace(s.RoomNumber) == "":
		return Result{Reason: ReasonNoRoom}
	case !s.HasMeterReading:
		return Result{Reason: ReasonNoMeter}
	case s.TenantStatus == roomdomain.TenantMovingOut:
		return Result{Reason: ReasonMovingOut}
	default:
		return Result{CanCreateBill: true, Reason: ReasonReadyToBill}
	}
}
