package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	dormitorydomain "github.com/railzwaylabs/dormitory/internal/dormitory/domain"
	"github.com/railzwaylabs/dormitory/internal/room/domain"
	"github.com/railzwaylabs/dormitory/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log         *zap.Logger
	GenID       *snowflake.Node
	Repo        domain.Repository
	Dormitories dormitorydomain.Service
}

type Service struct {
	log         *zap.Logger
	genID       *snowflake.Node
	repo        domain.Repository
	dormitories dormitorydomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		log:         p.Log.Named("room.service"),
		genID:       p.GenID,
		repo:        p.Repo,
		dormitories: p.Dormitories,
	}
}

func (s *Service) CreateRoom(ctx context.Context, req domain.CreateRoomRequest) (*domain.Room, error) {
	if _, err := s.dormitories.Get(ctx, req.DormitoryID); err != nil {
		return nil, err
	}

	number := strings.TrimSpace(req.Number)
	if number == "" {
		return nil, domain.ErrInvalidRoomNumber
	}
	if req.MonthlyRent.IsNegative() {
		return nil, domain.ErrInvalidRent
	}

	existing, err := s.repo.FindRoomByNumber(ctx, req.DormitoryID, number)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrDuplicateRoom
	}

	now := time.Now().UTC()
	room := &domain.Room{
		ID:          s.genID.Generate(),
		DormitoryID: req.DormitoryID,
		Number:      number,
		Floor:       req.Floor,
		MonthlyRent: req.MonthlyRent.Round(2),
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.InsertRoom(ctx, room); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, domain.ErrDuplicateRoom
		}
		return nil, err
	}
	return room, nil
}

func (s *Service) GetRoom(ctx context.Context, dormitoryID, id snowflake.ID) (*domain.Room, error) {
	room, err := s.repo.FindRoom(ctx, dormitoryID, id)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, domain.ErrRoomNotFound
	}
	return room, nil
}

func (s *Service) ListRooms(ctx context.Context, dormitoryID snowflake.ID) ([]domain.Room, error) {
	return s.repo.ListRooms(ctx, dormitoryID)
}

func (s *Service) CreateTenant(ctx context.Context, req domain.CreateTenantRequest) (*domain.Tenant, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidTenantName
	}

	room, err := s.GetRoom(ctx, req.DormitoryID, req.RoomID)
	if err != nil {
		return nil, err
	}

	occupants, err := s.repo.ListTenants(ctx, req.DormitoryID, domain.TenantActive, domain.TenantMovingOut)
	if err != nil {
		return nil, err
	}
	for _, t := range occupants {
		if t.RoomID == room.ID {
			return nil, domain.ErrRoomOccupied
		}
	}

	now := time.Now().UTC()
	moveIn := now
	if req.MoveInDate != nil {
		moveIn = req.MoveInDate.UTC()
	}

	tenant := &domain.Tenant{
		ID:          s.genID.Generate(),
		DormitoryID: req.DormitoryID,
		RoomID:      room.ID,
		Name:        name,
		Phone:       trimmed(req.Phone),
		LineUserID:  trimmed(req.LineUserID),
		Status:      domain.TenantActive,
		MoveInDate:  moveIn,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.InsertTenant(ctx, tenant); err != nil {
		return nil, err
	}

	s.log.Info("tenant moved in",
		zap.String("dormitory_id", req.DormitoryID.String()),
		zap.String("room", room.Number),
		zap.String("tenant_id", tenant.ID.String()),
	)
	return tenant, nil
}

func (s *Service) GetTenant(ctx context.Context, dormitoryID, id snowflake.ID) (*domain.Tenant, error) {
	tenant, err := s.repo.FindTenant(ctx, dormitoryID, id)
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, domain.ErrTenantNotFound
	}
	return tenant, nil
}

func (s *Service) ListTenants(ctx context.Context, dormitoryID snowflake.ID, statuses ...domain.TenantStatus) ([]domain.Tenant, error) {
	return s.repo.ListTenants(ctx, dormitoryID, statuses...)
}

// UpdateTenantStatus moves a tenant between active and moving_out, or
// checks them out as inactive. Inactive is final.
func (s *Service) UpdateTenantStatus(ctx context.Context, req domain.UpdateTenantStatusRequest) (*domain.Tenant, error) {
	if !req.Status.Valid() {
		return nil, domain.ErrInvalidStatus
	}

	tenant, err := s.GetTenant(ctx, req.DormitoryID, req.TenantID)
	if err != nil {
		return nil, err
	}
	if tenant.Status == domain.TenantInactive {
		return nil, domain.ErrInvalidStatus
	}
	if tenant.Status == req.Status {
		return tenant, nil
	}

	now := time.Now().UTC()
	tenant.Status = req.Status
	switch req.Status {
	case domain.TenantInactive:
		moveOut := now
		if req.MoveOutDate != nil {
			moveOut = req.MoveOutDate.UTC()
		}
		tenant.MoveOutDate = &moveOut
	case domain.TenantMovingOut:
		if req.MoveOutDate != nil {
			moveOut := req.MoveOutDate.UTC()
			tenant.MoveOutDate = &moveOut
		}
	case domain.TenantActive:
		tenant.MoveOutDate = nil
	}
	tenant.UpdatedAt = now

	if err := s.repo.SaveTenant(ctx, tenant); err != nil {
		return nil, err
	}
	return tenant, nil
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}
