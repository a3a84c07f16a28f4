package eligibility

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	meterdomain "github.com/railzwaylabs/dormitory/internal/meterreading/domain"
	roomdomain "github.com/railzwaylabs/dormitory/internal/room/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("eligibility.service",
	fx.Provide(NewService),
)

// Entry is one tenant's evaluated eligibility for a cycle.
type Entry struct {
	TenantID   snowflake.ID `json:"tenant_id"`
	TenantName string       `json:"tenant_name"`
	RoomID     snowflake.ID `json:"room_id"`
	Snapshot   Snapshot     `json:"snapshot"`
	Result     Result       `json:"result"`
}

type Params struct {
	fx.In

	Log    *zap.Logger
	Rooms  roomdomain.Service
	Meters meterdomain.Service
}

type Service struct {
	log    *zap.Logger
	rooms  roomdomain.Service
	meters meterdomain.Service
}

func NewService(p Params) *Service {
	return &Service{
		log:    p.Log.Named("eligibility.service"),
		rooms:  p.Rooms,
		meters: p.Meters,
	}
}

// ListForCycle evaluates every current tenant of the dormitory for the given
// month and year.
func (s *Service) ListForCycle(ctx context.Context, dormitoryID snowflake.ID, month, year int) ([]Entry, error) {
	if !meterdomain.ValidPeriod(month, year) {
		return nil, meterdomain.ErrInvalidPeriod
	}

	tenants, err := s.rooms.ListTenants(ctx, dormitoryID, roomdomain.TenantActive, roomdomain.TenantMovingOut)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(tenants))
	for _, tenant := range tenants {
		snap, err := s.snapshot(ctx, tenant, month, year)
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{
			TenantID:   tenant.ID,
			TenantName: tenant.Name,
			RoomID:     tenant.RoomID,
			Snapshot:   snap,
			Result:     Evaluate(snap),
		})
	}
	return entries, nil
}

func (s *Service) snapshot(ctx context.Context, tenant roomdomain.Tenant, month, year int) (Snapshot, error) {
	snap := Snapshot{TenantStatus: tenant.Status}

	room, err := s.rooms.GetRoom(ctx, tenant.DormitoryID, tenant.RoomID)
	if errors.Is(err, roomdomain.ErrRoomNotFound) {
		return snap, nil
	}
	if err != nil {
		return snap, err
	}
	snap.RoomNumber = room.Number

	snap.HasMeterReading, err = s.meters.HasReading(ctx, room.ID, month, year)
	return snap, err
}
