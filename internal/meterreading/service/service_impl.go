package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/dormitory/internal/clock"
	dormitorydomain "github.com/railzwaylabs/dormitory/internal/dormitory/domain"
	"github.com/railzwaylabs/dormitory/internal/meterreading/domain"
	notificationdomain "github.com/railzwaylabs/dormitory/internal/notification/domain"
	"github.com/railzwaylabs/dormitory/internal/notification/message"
	notificationservice "github.com/railzwaylabs/dormitory/internal/notification/service"
	roomdomain "github.com/railzwaylabs/dormitory/internal/room/domain"
	"github.com/railzwaylabs/dormitory/pkg/db"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        domain.Repository
	Rooms       roomdomain.Service
	Dormitories dormitorydomain.Service
	Notifier    *notificationservice.Notifier `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        domain.Repository
	rooms       roomdomain.Service
	dormitories dormitorydomain.Service
	notifier    *notificationservice.Notifier
}

func New(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("meterreading.service"),
		genID:       p.GenID,
		clock:       clk,
		repo:        p.Repo,
		rooms:       p.Rooms,
		dormitories: p.Dormitories,
		notifier:    p.Notifier,
	}
}

func (s *Service) Record(ctx context.Context, req domain.RecordRequest) (*domain.Reading, error) {
	if !req.Kind.Valid() {
		return nil, domain.ErrInvalidKind
	}
	if !domain.ValidPeriod(req.Month, req.Year) {
		return nil, domain.ErrInvalidPeriod
	}
	if req.Current.IsNegative() {
		return nil, domain.ErrInvalidReading
	}

	room, err := s.rooms.GetRoom(ctx, req.DormitoryID, req.RoomID)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByPeriod(ctx, s.db, room.ID, req.Month, req.Year, req.Kind)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrDuplicateReading
	}

	previous := decimal.Zero
	if req.Previous != nil {
		previous = *req.Previous
	} else {
		last, err := s.repo.FindLatestBefore(ctx, s.db, room.ID, req.Month, req.Year, req.Kind)
		if err != nil {
			return nil, err
		}
		if last != nil {
			previous = last.Current
		}
	}
	if previous.IsNegative() || req.Current.LessThan(previous) {
		return nil, domain.ErrInvalidReading
	}

	now := s.clock.Now(ctx).UTC().Truncate(time.Second)
	readAt := now
	if req.ReadAt != nil {
		readAt = req.ReadAt.UTC().Truncate(time.Second)
	}

	reading := &domain.Reading{
		ID:          s.genID.Generate(),
		DormitoryID: req.DormitoryID,
		RoomID:      room.ID,
		Month:       req.Month,
		Year:        req.Year,
		Kind:        req.Kind,
		Previous:    previous,
		Current:     req.Current,
		UnitsUsed:   req.Current.Sub(previous),
		ReadAt:      readAt,
		CreatedAt:   now,
	}
	if err := s.repo.Insert(ctx, s.db, reading); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, domain.ErrDuplicateReading
		}
		return nil, err
	}

	s.notifyReading(ctx, room, reading)
	return reading, nil
}

func (s *Service) notifyReading(ctx context.Context, room *roomdomain.Room, reading *domain.Reading) {
	if s.notifier == nil {
		return
	}

	view := message.ReadingView{
		RoomNumber: room.Number,
		Kind:       string(reading.Kind),
		Month:      reading.Month,
		Year:       reading.Year,
		Previous:   reading.Previous,
		Current:    reading.Current,
		UnitsUsed:  reading.UnitsUsed,
	}
	if dorm, err := s.dormitories.Get(ctx, reading.DormitoryID); err == nil {
		view.DormitoryName = dorm.Name
	}

	if _, err := s.notifier.Notify(ctx, reading.DormitoryID, notificationdomain.EventUtilityReading, 0, view); err != nil {
		s.log.Warn("utility reading notification failed",
			zap.String("dormitory_id", reading.DormitoryID.String()),
			zap.String("reading_id", reading.ID.String()),
			zap.Error(err))
	}
}

func (s *Service) List(ctx context.Context, dormitoryID snowflake.ID, req domain.ListRequest) ([]domain.Reading, error) {
	if req.Kind != "" && !req.Kind.Valid() {
		return nil, domain.ErrInvalidKind
	}
	return s.repo.List(ctx, s.db, dormitoryID, req)
}

// HasReading reports whether any meter was read for the room in the cycle.
func (s *Service) HasReading(ctx context.Context, roomID snowflake.ID, month, year int) (bool, error) {
	n, err := s.repo.CountForRoom(ctx, s.db, roomID, month, year)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
