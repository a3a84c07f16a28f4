package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/dormitory/internal/bill/domain"
	"github.com/railzwaylabs/dormitory/internal/clock"
	"github.com/railzwaylabs/dormitory/internal/config"
	dormitorydomain "github.com/railzwaylabs/dormitory/internal/dormitory/domain"
	"github.com/railzwaylabs/dormitory/internal/eligibility"
	meterdomain "github.com/railzwaylabs/dormitory/internal/meterreading/domain"
	notificationdomain "github.com/railzwaylabs/dormitory/internal/notification/domain"
	"github.com/railzwaylabs/dormitory/internal/notification/message"
	notificationservice "github.com/railzwaylabs/dormitory/internal/notification/service"
	"github.com/railzwaylabs/dormitory/internal/observability"
	roomdomain "github.com/railzwaylabs/dormitory/internal/room/domain"
	"github.com/railzwaylabs/dormitory/pkg/db"
	"github.com/railzwaylabs/dormitory/pkg/db/pagination"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const defaultReminderWindow = 72 * time.Hour

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Cfg         config.Config
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        domain.Repository
	Rooms       roomdomain.Service
	Meters      meterdomain.Service
	Dormitories dormitorydomain.Service
	Notifier    *notificationservice.Notifier `optional:"true"`
	Metrics     *observability.Metrics        `optional:"true"`
}

type Service struct {
	db             *gorm.DB
	log            *zap.Logger
	genID          *snowflake.Node
	clock          clock.Clock
	repo           domain.Repository
	rooms          roomdomain.Service
	meters         meterdomain.Service
	dormitories    dormitorydomain.Service
	notifier       *notificationservice.Notifier
	metrics        *observability.Metrics
	reminderWindow time.Duration
}

func New(p Params) domain.Service {
	window := p.Cfg.Scheduler.ReminderWindow
	if window <= 0 {
		window = defaultReminderWindow
	}
	clk := p.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Service{
		db:             p.DB,
		log:            p.Log.Named("bill.service"),
		genID:          p.GenID,
		clock:          clk,
		repo:           p.Repo,
		rooms:          p.Rooms,
		meters:         p.Meters,
		dormitories:    p.Dormitories,
		notifier:       p.Notifier,
		metrics:        p.Metrics,
		reminderWindow: window,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Bill, error) {
	switch {
	case req.Month < 1 || req.Month > 12 || req.Year < 2000:
		return nil, domain.ErrInvalidPeriod
	case req.RoomID == 0:
		return nil, domain.ErrMissingRoom
	case req.TenantID == 0:
		return nil, domain.ErrMissingTenant
	case req.DueDate.IsZero():
		return nil, domain.ErrMissingDueDate
	case len(req.Items) == 0:
		return nil, domain.ErrMissingItems
	}

	items, err := s.buildItems(req.Items)
	if err != nil {
		return nil, err
	}

	dorm, err := s.dormitories.Get(ctx, req.DormitoryID)
	if err != nil {
		return nil, err
	}
	room, err := s.rooms.GetRoom(ctx, req.DormitoryID, req.RoomID)
	if err != nil {
		return nil, err
	}
	tenant, err := s.rooms.GetTenant(ctx, req.DormitoryID, req.TenantID)
	if err != nil {
		return nil, err
	}
	if tenant.RoomID != room.ID {
		return nil, domain.ErrTenantRoomMismatch
	}
	if err := s.checkEligible(ctx, room, tenant, req.Month, req.Year); err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByPeriod(ctx, s.db, req.DormitoryID, room.ID, req.Month, req.Year)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrDuplicateBill
	}

	now := s.now(ctx)
	total := domain.SumItems(items)
	bill := &domain.Bill{
		ID:              s.genID.Generate(),
		DormitoryID:     req.DormitoryID,
		RoomID:          room.ID,
		TenantID:        tenant.ID,
		RoomNumber:      room.Number,
		Month:           req.Month,
		Year:            req.Year,
		TotalAmount:     total,
		PaidAmount:      decimal.Zero,
		RemainingAmount: total,
		Status:          domain.StatusPending,
		DueDate:         req.DueDate.UTC().Truncate(time.Second),
		Notes:           trimmed(req.Notes),
		CreatedAt:       now,
		UpdatedAt:       now,
		Items:           items,
		Payments:        []domain.Payment{},
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.repo.Insert(ctx, tx, bill)
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, domain.ErrDuplicateBill
		}
		return nil, err
	}

	s.metrics.IncBillCreated(bill.DormitoryID.String())
	s.log.Info("bill created",
		zap.String("dormitory_id", bill.DormitoryID.String()),
		zap.String("bill_id", bill.ID.String()),
		zap.String("room", bill.RoomNumber),
		zap.String("total", bill.TotalAmount.StringFixed(2)),
	)

	if _, err := s.notifyOnce(ctx, bill, notificationdomain.EventBillCreated, domain.FlagCreated, dorm.Name); err != nil {
		s.logNotifyError(bill, notificationdomain.EventBillCreated, err)
	}
	return bill, nil
}

// checkEligible runs the billing rules against the tenant's current snapshot.
func (s *Service) checkEligible(ctx context.Context, room *roomdomain.Room, tenant *roomdomain.Tenant, month, year int) error {
	hasReading, err := s.meters.HasReading(ctx, room.ID, month, year)
	if err != nil {
		return err
	}
	result := eligibility.Evaluate(eligibility.Snapshot{
		RoomNumber:      room.Number,
		HasMeterReading: hasReading,
		TenantStatus:    tenant.Status,
	})
	if !result.CanCreateBill {
		return &domain.NotEligibleError{Reason: result.Reason}
	}
	return nil
}

func (s *Service) buildItems(inputs []domain.ItemInput) ([]domain.LineItem, error) {
	items := make([]domain.LineItem, 0, len(inputs))
	for i, in := range inputs {
		name := strings.TrimSpace(in.Name)
		if name == "" {
			return nil, domain.ErrInvalidItem
		}
		if in.Amount.IsNegative() {
			return nil, domain.ErrInvalidAmount
		}

		category := in.Category
		if category == "" {
			category = domain.CategoryOther
		}
		if !category.Valid() {
			return nil, domain.ErrInvalidCategory
		}

		item := domain.LineItem{
			ID:       s.genID.Generate(),
			Position: i,
			Name:     name,
			Amount:   in.Amount.Round(2),
			Category: category,
		}

		if in.Reading != nil {
			r := in.Reading
			if !category.Metered() || r.Previous.IsNegative() || r.Current.LessThan(r.Previous) {
				return nil, domain.ErrInvalidReading
			}
			if r.UnitPrice != nil && r.UnitPrice.IsNegative() {
				return nil, domain.ErrInvalidReading
			}
			item.Reading = datatypes.NewJSONType(&domain.UtilityReading{
				Previous:  r.Previous,
				Current:   r.Current,
				UnitsUsed: r.Current.Sub(r.Previous),
				UnitPrice: r.UnitPrice,
			})
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *Service) RecordPayment(ctx context.Context, req domain.RecordPaymentRequest) (*domain.Bill, error) {
	bill, err := s.Get(ctx, req.DormitoryID, req.BillID)
	if err != nil {
		return nil, err
	}
	if bill.Status.Terminal() {
		return nil, domain.ErrInvalidState
	}
	if !req.Method.Valid() {
		return nil, domain.ErrInvalidMethod
	}

	now := s.now(ctx)
	paidAt := now
	if req.PaidAt != nil {
		paidAt = req.PaidAt.UTC().Truncate(time.Second)
	}
	recordedBy := strings.TrimSpace(req.RecordedBy)
	if recordedBy == "" {
		recordedBy = "system"
	}

	payment := domain.Payment{
		ID:          s.genID.Generate(),
		BillID:      bill.ID,
		Amount:      req.Amount.Round(2),
		Method:      req.Method,
		PaidAt:      paidAt,
		Reference:   trimmed(req.Reference),
		EvidenceURL: trimmed(req.EvidenceURL),
		RecordedBy:  recordedBy,
		CreatedAt:   now,
	}

	version := bill.Version
	if err := bill.ApplyPayment(payment); err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := s.repo.UpdateState(ctx, tx, bill, version)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrConcurrentUpdate
		}
		return s.repo.InsertPayment(ctx, tx, &payment)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncPayment(string(payment.Method))
	s.metrics.IncTransition(string(bill.Status))
	s.log.Info("payment recorded",
		zap.String("bill_id", bill.ID.String()),
		zap.String("amount", payment.Amount.StringFixed(2)),
		zap.String("status", string(bill.Status)),
	)

	if s.notifier != nil {
		view := s.view(ctx, bill, "")
		view.PaymentAmount = payment.Amount
		view.PaymentMethod = string(payment.Method)
		if _, err := s.notifier.Notify(ctx, bill.DormitoryID, notificationdomain.EventPaymentReceived, bill.ID, view); err != nil {
			s.logNotifyError(bill, notificationdomain.EventPaymentReceived, err)
		}
	}
	return bill, nil
}

func (s *Service) TransitionToOverdue(ctx context.Context, dormitoryID, billID snowflake.ID, now time.Time) (*domain.Bill, error) {
	bill, err := s.Get(ctx, dormitoryID, billID)
	if err != nil {
		return nil, err
	}

	version := bill.Version
	if err := bill.MarkOverdue(now.UTC().Truncate(time.Second)); err != nil {
		return nil, err
	}
	if err := s.updateState(ctx, bill, version); err != nil {
		return nil, err
	}

	s.metrics.IncTransition(string(bill.Status))
	s.log.Info("bill overdue",
		zap.String("dormitory_id", bill.DormitoryID.String()),
		zap.String("bill_id", bill.ID.String()),
	)

	if _, err := s.notifyOnce(ctx, bill, notificationdomain.EventBillOverdue, domain.FlagOverdue, ""); err != nil {
		s.logNotifyError(bill, notificationdomain.EventBillOverdue, err)
	}
	return bill, nil
}

// SendDueReminder sends the reminder for a bill falling due within the
// reminder window. It reports whether a message went out; a bill that was
// already reminded is a no-op.
func (s *Service) SendDueReminder(ctx context.Context, dormitoryID, billID snowflake.ID, now time.Time) (bool, error) {
	bill, err := s.Get(ctx, dormitoryID, billID)
	if err != nil {
		return false, err
	}
	if !bill.ReminderDue(now.UTC(), s.reminderWindow) {
		return false, domain.ErrInvalidState
	}
	if bill.ReminderNotified {
		return false, nil
	}
	return s.notifyOnce(ctx, bill, notificationdomain.EventBillDueReminder, domain.FlagReminder, "")
}

// ResendOverdueNotice retries the overdue notice for a bill that is already
// overdue but whose notice never went out.
func (s *Service) ResendOverdueNotice(ctx context.Context, dormitoryID, billID snowflake.ID) (bool, error) {
	bill, err := s.Get(ctx, dormitoryID, billID)
	if err != nil {
		return false, err
	}
	if bill.Status != domain.StatusOverdue {
		return false, domain.ErrInvalidState
	}
	if bill.OverdueNotified {
		return false, nil
	}
	return s.notifyOnce(ctx, bill, notificationdomain.EventBillOverdue, domain.FlagOverdue, "")
}

func (s *Service) Cancel(ctx context.Context, dormitoryID, billID snowflake.ID) (*domain.Bill, error) {
	bill, err := s.Get(ctx, dormitoryID, billID)
	if err != nil {
		return nil, err
	}

	version := bill.Version
	if err := bill.Cancel(s.now(ctx)); err != nil {
		return nil, err
	}
	if err := s.updateState(ctx, bill, version); err != nil {
		return nil, err
	}

	s.metrics.IncTransition(string(bill.Status))
	s.log.Info("bill cancelled", zap.String("bill_id", bill.ID.String()))
	return bill, nil
}

func (s *Service) Get(ctx context.Context, dormitoryID, billID snowflake.ID) (*domain.Bill, error) {
	bill, err := s.repo.FindByID(ctx, s.db, dormitoryID, billID)
	if err != nil {
		return nil, err
	}
	if bill == nil {
		return nil, domain.ErrNotFound
	}
	return bill, nil
}

func (s *Service) List(ctx context.Context, dormitoryID snowflake.ID, req domain.ListRequest) (domain.ListResponse, error) {
	if req.Status != "" && !req.Status.Valid() {
		return domain.ListResponse{}, domain.ErrInvalidStatus
	}
	if req.Month < 0 || req.Month > 12 {
		return domain.ListResponse{}, domain.ErrInvalidPeriod
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	bills, err := s.repo.List(ctx, s.db, dormitoryID, req, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  int(pageSize),
	})
	if err != nil {
		return domain.ListResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(bills, pageSize, func(b *domain.Bill) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        b.ID.String(),
			CreatedAt: b.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if len(bills) > int(pageSize) {
		bills = bills[:pageSize]
	}

	return domain.ListResponse{Bills: bills, PageInfo: pageInfo}, nil
}

// ListDueSoon returns open, not yet reminded bills due in (now, now+window].
func (s *Service) ListDueSoon(ctx context.Context, dormitoryID snowflake.ID, now time.Time) ([]*domain.Bill, error) {
	now = now.UTC()
	return s.repo.ListDueBetween(ctx, s.db, dormitoryID, now, now.Add(s.reminderWindow))
}

// ListOverdue returns bills past their due date that still need a status
// change. Overdue bills still waiting on their notice are included only while
// the dormitory has a channel that would carry it.
func (s *Service) ListOverdue(ctx context.Context, dormitoryID snowflake.ID, now time.Time) ([]*domain.Bill, error) {
	ch, err := s.notifier.Channel(ctx, dormitoryID, notificationdomain.EventBillOverdue)
	if err != nil {
		s.log.Warn("resolve overdue channel", zap.String("dormitory_id", dormitoryID.String()), zap.Error(err))
	}
	return s.repo.ListPastDue(ctx, s.db, dormitoryID, now.UTC(), err != nil || ch != nil)
}

func (s *Service) updateState(ctx context.Context, bill *domain.Bill, version int64) error {
	ok, err := s.repo.UpdateState(ctx, s.db, bill, version)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrConcurrentUpdate
	}
	return nil
}

// notifyOnce claims flag before sending and gives it back when delivery
// fails, so only one caller ever sends and a failed send is retried later.
func (s *Service) notifyOnce(ctx context.Context, bill *domain.Bill, event notificationdomain.EventType, flag domain.Flag, dormitoryName string) (bool, error) {
	if s.notifier == nil {
		return false, nil
	}

	ch, err := s.notifier.Channel(ctx, bill.DormitoryID, event)
	if err != nil || ch == nil {
		return false, err
	}

	claimed, err := s.repo.ClaimFlag(ctx, s.db, bill.ID, flag)
	if err != nil || !claimed {
		return false, err
	}

	if err := s.notifier.Deliver(ctx, ch, event, bill.ID, s.view(ctx, bill, dormitoryName)); err != nil {
		if releaseErr := s.repo.ReleaseFlag(context.WithoutCancel(ctx), s.db, bill.ID, flag); releaseErr != nil {
			s.log.Error("failed to release notification flag",
				zap.String("bill_id", bill.ID.String()),
				zap.String("flag", string(flag)),
				zap.Error(releaseErr))
		}
		return false, fmt.Errorf("%w: %w", domain.ErrNotificationFailed, err)
	}

	switch flag {
	case domain.FlagCreated:
		bill.CreatedNotified = true
	case domain.FlagReminder:
		bill.ReminderNotified = true
	case domain.FlagOverdue:
		bill.OverdueNotified = true
	}
	return true, nil
}

func (s *Service) view(ctx context.Context, bill *domain.Bill, dormitoryName string) message.BillView {
	if dormitoryName == "" {
		if dorm, err := s.dormitories.Get(ctx, bill.DormitoryID); err == nil {
			dormitoryName = dorm.Name
		}
	}
	return message.BillView{
		DormitoryName: dormitoryName,
		RoomNumber:    bill.RoomNumber,
		Month:         bill.Month,
		Year:          bill.Year,
		TotalAmount:   bill.TotalAmount,
		PaidAmount:    bill.PaidAmount,
		Remaining:     bill.Remaining(),
		DueDate:       bill.DueDate,
	}
}

func (s *Service) logNotifyError(bill *domain.Bill, event notificationdomain.EventType, err error) {
	s.log.Warn("bill notification not delivered",
		zap.String("dormitory_id", bill.DormitoryID.String()),
		zap.String("bill_id", bill.ID.String()),
		zap.String("event", string(event)),
		zap.Error(err))
}

func (s *Service) now(ctx context.Context) time.Time {
	return s.clock.Now(ctx).UTC().Truncate(time.Second)
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
