package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/dormitory/internal/bill/domain"
	"github.com/railzwaylabs/dormitory/internal/bill/repository"
	"github.com/railzwaylabs/dormitory/internal/bill/service"
	"github.com/railzwaylabs/dormitory/internal/clock"
	"github.com/railzwaylabs/dormitory/internal/config"
	"github.com/railzwaylabs/dormitory/internal/dbtest"
	dormitorydomain "github.com/railzwaylabs/dormitory/internal/dormitory/domain"
	dormitoryrepo "github.com/railzwaylabs/dormitory/internal/dormitory/repository"
	dormitoryservice "github.com/railzwaylabs/dormitory/internal/dormitory/service"
	meterdomain "github.com/railzwaylabs/dormitory/internal/meterreading/domain"
	meterrepo "github.com/railzwaylabs/dormitory/internal/meterreading/repository"
	meterservice "github.com/railzwaylabs/dormitory/internal/meterreading/service"
	notificationdomain "github.com/railzwaylabs/dormitory/internal/notification/domain"
	"github.com/railzwaylabs/dormitory/internal/notification/notificationtest"
	notificationservice "github.com/railzwaylabs/dormitory/internal/notification/service"
	roomdomain "github.com/railzwaylabs/dormitory/internal/room/domain"
	roomrepo "github.com/railzwaylabs/dormitory/internal/room/repository"
	roomservice "github.com/railzwaylabs/dormitory/internal/room/service"
	"github.com/railzwaylabs/dormitory/internal/security/vault"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var today = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	db       *gorm.DB
	svc      domain.Service
	repo     domain.Repository
	rec      *notificationtest.Recorder
	channel  *notificationdomain.Channel
	dorm     *dormitorydomain.Dormitory
	room     *roomdomain.Room
	tenant   *roomdomain.Tenant
	newBill  func(t *testing.T, amounts ...int64) *domain.Bill
	rooms    roomdomain.Service
	meters   meterdomain.Service
	services service.Params
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db := dbtest.Open(t)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	v, err := vault.NewFactory(vault.Config{Provider: "plaintext"})
	require.NoError(t, err)

	dorms := dormitoryservice.New(dormitoryservice.Params{Log: zap.NewNop(), GenID: node, Repo: dormitoryrepo.New(db), Vault: v})
	rooms := roomservice.New(roomservice.Params{Log: zap.NewNop(), GenID: node, Repo: roomrepo.New(db), Dormitories: dorms})

	dorm, err := dorms.Create(ctx, dormitorydomain.CreateRequest{Name: "Baan Suan"})
	require.NoError(t, err)
	room, err := rooms.CreateRoom(ctx, roomdomain.CreateRoomRequest{DormitoryID: dorm.ID, Number: "101", MonthlyRent: decimal.NewFromInt(3000)})
	require.NoError(t, err)
	tenant, err := rooms.CreateTenant(ctx, roomdomain.CreateTenantRequest{DormitoryID: dorm.ID, RoomID: room.ID, Name: "Somchai"})
	require.NoError(t, err)

	meters := meterservice.New(meterservice.Params{
		DB: db, Log: zap.NewNop(), GenID: node, Clock: clock.Fixed{T: today},
		Repo: meterrepo.Provide(), Rooms: rooms, Dormitories: dorms,
	})

	rec := &notificationtest.Recorder{}
	channel := notificationtest.AllEvents(dorm.ID)
	notifier := notificationservice.NewNotifier(notificationservice.NotifierParams{
		Log:      zap.NewNop(),
		Resolver: notificationtest.Resolver{dorm.ID: channel},
		Sender:   rec,
	})

	repo := repository.Provide()
	params := service.Params{
		DB:          db,
		Log:         zap.NewNop(),
		Cfg:         config.Config{Scheduler: config.SchedulerConfig{ReminderWindow: 72 * time.Hour}},
		GenID:       node,
		Clock:       clock.Fixed{T: today},
		Repo:        repo,
		Rooms:       rooms,
		Meters:      meters,
		Dormitories: dorms,
		Notifier:    notifier,
	}
	svc := service.New(params)

	f := &fixture{
		db: db, svc: svc, repo: repo, rec: rec, channel: channel,
		dorm: dorm, room: room, tenant: tenant, rooms: rooms, meters: meters, services: params,
	}
	// Every 2026 cycle is read so bills for it are eligible.
	for m := 1; m <= 12; m++ {
		f.read(t, m, 2026)
	}
	month := 0
	f.newBill = func(t *testing.T, amounts ...int64) *domain.Bill {
		t.Helper()
		month++
		items := make([]domain.ItemInput, 0, len(amounts))
		for _, a := range amounts {
			items = append(items, domain.ItemInput{Name: "Rent", Amount: decimal.NewFromInt(a), Category: domain.CategoryRent})
		}
		bill, err := svc.Create(ctx, domain.CreateRequest{
			DormitoryID: dorm.ID,
			RoomID:      room.ID,
			TenantID:    tenant.ID,
			Month:       month,
			Year:        2026,
			DueDate:     today.AddDate(0, 0, 2),
			Items:       items,
		})
		require.NoError(t, err)
		return bill
	}
	return f
}

func (f *fixture) read(t *testing.T, month, year int) {
	t.Helper()
	_, err := f.meters.Record(context.Background(), meterdomain.RecordRequest{
		DormitoryID: f.dorm.ID,
		RoomID:      f.room.ID,
		Month:       month,
		Year:        year,
		Kind:        meterdomain.KindWater,
		Current:     decimal.NewFromInt(int64(year*100 + month)),
	})
	require.NoError(t, err)
}

func (f *fixture) reload(t *testing.T, id snowflake.ID) *domain.Bill {
	t.Helper()
	bill, err := f.svc.Get(context.Background(), f.dorm.ID, id)
	require.NoError(t, err)
	return bill
}

func (f *fixture) pay(ctx context.Context, bill *domain.Bill, amount int64) (*domain.Bill, error) {
	return f.svc.RecordPayment(ctx, domain.RecordPaymentRequest{
		DormitoryID: f.dorm.ID,
		BillID:      bill.ID,
		Amount:      decimal.NewFromInt(amount),
		Method:      domain.MethodCash,
	})
}

func TestCreateBill(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	bill, err := f.svc.Create(ctx, domain.CreateRequest{
		DormitoryID: f.dorm.ID,
		RoomID:      f.room.ID,
		TenantID:    f.tenant.ID,
		Month:       3,
		Year:        2026,
		DueDate:     time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC),
		Items: []domain.ItemInput{
			{Name: "Rent", Amount: decimal.NewFromInt(3000), Category: domain.CategoryRent},
			{Name: "Water", Amount: decimal.RequireFromString("120.50"), Category: domain.CategoryWater, Reading: &domain.ReadingInput{
				Previous: decimal.NewFromInt(100),
				Current:  decimal.NewFromInt(115),
			}},
			{Name: "Internet", Amount: decimal.NewFromInt(200)},
		},
	})
	require.NoError(t, err)

	assert.True(t, bill.TotalAmount.Equal(decimal.RequireFromString("3320.50")))
	assert.True(t, bill.PaidAmount.IsZero())
	assert.True(t, bill.Remaining().Equal(bill.TotalAmount))
	assert.Equal(t, domain.StatusPending, bill.Status)
	assert.Equal(t, "101", bill.RoomNumber)

	stored := f.reload(t, bill.ID)
	require.Len(t, stored.Items, 3)
	assert.Equal(t, "Water", stored.Items[1].Name)
	assert.Equal(t, domain.CategoryOther, stored.Items[2].Category)
	reading := stored.Items[1].Reading.Data()
	require.NotNil(t, reading)
	assert.True(t, reading.UnitsUsed.Equal(decimal.NewFromInt(15)))
	assert.Nil(t, stored.Items[0].Reading.Data())
	assert.True(t, stored.RemainingAmount.Equal(stored.TotalAmount))

	assert.True(t, stored.CreatedNotified)
	assert.False(t, stored.ReminderNotified)
	assert.False(t, stored.OverdueNotified)
	require.Equal(t, 1, f.rec.Count(notificationdomain.EventBillCreated))
	text := f.rec.Messages()[0].Text
	assert.Contains(t, text, "room 101")
	assert.Contains(t, text, "March 2026")
	assert.Contains(t, text, "฿3,320.50")
	assert.Contains(t, text, "05 Mar 2026")
}

func TestCreateBillTotalsMatchItems(t *testing.T) {
	f := setup(t)
	for _, amounts := range [][]int64{{0}, {4500}, {3000, 250, 180}, {1, 2, 3, 4, 5}} {
		bill := f.newBill(t, amounts...)
		var sum int64
		for _, a := range amounts {
			sum += a
		}
		assert.True(t, bill.TotalAmount.Equal(decimal.NewFromInt(sum)))
		assert.True(t, bill.PaidAmount.IsZero())
		assert.True(t, bill.Remaining().Equal(decimal.NewFromInt(sum)))
		assert.Equal(t, domain.StatusPending, bill.Status)
	}
}

func TestCreateBillValidation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	valid := func() domain.CreateRequest {
		return domain.CreateRequest{
			DormitoryID: f.dorm.ID,
			RoomID:      f.room.ID,
			TenantID:    f.tenant.ID,
			Month:       4,
			Year:        2026,
			DueDate:     time.Date(2026, 4, 5, 0, 0, 0, 0, time.UTC),
			Items:       []domain.ItemInput{{Name: "Rent", Amount: decimal.NewFromInt(3000)}},
		}
	}

	tests := []struct {
		name   string
		mutate func(r *domain.CreateRequest)
		want   error
	}{
		{"no items", func(r *domain.CreateRequest) { r.Items = nil }, domain.ErrMissingItems},
		{"no room", func(r *domain.CreateRequest) { r.RoomID = 0 }, domain.ErrMissingRoom},
		{"no tenant", func(r *domain.CreateRequest) { r.TenantID = 0 }, domain.ErrMissingTenant},
		{"no due date", func(r *domain.CreateRequest) { r.DueDate = time.Time{} }, domain.ErrMissingDueDate},
		{"bad month", func(r *domain.CreateRequest) { r.Month = 13 }, domain.ErrInvalidPeriod},
		{"blank item name", func(r *domain.CreateRequest) { r.Items[0].Name = "  " }, domain.ErrInvalidItem},
		{"negative amount", func(r *domain.CreateRequest) { r.Items[0].Amount = decimal.NewFromInt(-1) }, domain.ErrInvalidAmount},
		{"unknown category", func(r *domain.CreateRequest) { r.Items[0].Category = "parking" }, domain.ErrInvalidCategory},
		{"reading on rent", func(r *domain.CreateRequest) {
			r.Items[0].Category = domain.CategoryRent
			r.Items[0].Reading = &domain.ReadingInput{Previous: decimal.Zero, Current: decimal.NewFromInt(1)}
		}, domain.ErrInvalidReading},
		{"reading going backwards", func(r *domain.CreateRequest) {
			r.Items[0].Category = domain.CategoryElectric
			r.Items[0].Reading = &domain.ReadingInput{Previous: decimal.NewFromInt(10), Current: decimal.NewFromInt(9)}
		}, domain.ErrInvalidReading},
		{"unknown room", func(r *domain.CreateRequest) { r.RoomID = snowflake.ID(77) }, roomdomain.ErrRoomNotFound},
		{"unknown tenant", func(r *domain.CreateRequest) { r.TenantID = snowflake.ID(77) }, roomdomain.ErrTenantNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid()
			tt.mutate(&req)
			_, err := f.svc.Create(ctx, req)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	assert.Zero(t, f.rec.Count(notificationdomain.EventBillCreated))
}

func TestCreateBillRejectsDuplicatePeriod(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	req := domain.CreateRequest{
		DormitoryID: f.dorm.ID,
		RoomID:      f.room.ID,
		TenantID:    f.tenant.ID,
		Month:       5,
		Year:        2026,
		DueDate:     time.Date(2026, 5, 5, 0, 0, 0, 0, time.UTC),
		Items:       []domain.ItemInput{{Name: "Rent", Amount: decimal.NewFromInt(3000)}},
	}
	_, err := f.svc.Create(ctx, req)
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, req)
	assert.ErrorIs(t, err, domain.ErrDuplicateBill)

	var count int64
	require.NoError(t, f.db.Model(&domain.Bill{}).Where("month = ? AND year = ?", 5, 2026).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCreateBillRequiresEligibility(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	req := domain.CreateRequest{
		DormitoryID: f.dorm.ID,
		RoomID:      f.room.ID,
		TenantID:    f.tenant.ID,
		Month:       1,
		Year:        2027,
		DueDate:     time.Date(2027, 2, 5, 0, 0, 0, 0, time.UTC),
		Items:       []domain.ItemInput{{Name: "Rent", Amount: decimal.NewFromInt(3000)}},
	}

	_, err := f.svc.Create(ctx, req)
	require.ErrorIs(t, err, domain.ErrNotEligible)
	var notEligible *domain.NotEligibleError
	require.ErrorAs(t, err, &notEligible)
	assert.Equal(t, "meter not yet read this cycle", notEligible.Reason)

	f.read(t, 1, 2027)
	_, err = f.rooms.UpdateTenantStatus(ctx, roomdomain.UpdateTenantStatusRequest{
		DormitoryID: f.dorm.ID,
		TenantID:    f.tenant.ID,
		Status:      roomdomain.TenantMovingOut,
	})
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, req)
	require.ErrorAs(t, err, &notEligible)
	assert.Equal(t, "room flagged for move-out", notEligible.Reason)

	var count int64
	require.NoError(t, f.db.Model(&domain.Bill{}).Where("year = ?", 2027).Count(&count).Error)
	assert.Zero(t, count)
	assert.Zero(t, f.rec.Count(notificationdomain.EventBillCreated))

	_, err = f.rooms.UpdateTenantStatus(ctx, roomdomain.UpdateTenantStatusRequest{
		DormitoryID: f.dorm.ID,
		TenantID:    f.tenant.ID,
		Status:      roomdomain.TenantActive,
	})
	require.NoError(t, err)
	bill, err := f.svc.Create(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, bill.Status)
}

func TestCreateBillWithoutCreatedEvent(t *testing.T) {
	f := setup(t)
	f.channel.Events[string(notificationdomain.EventBillCreated)] = false

	bill := f.newBill(t, 3000)
	assert.False(t, f.reload(t, bill.ID).CreatedNotified)
	assert.Zero(t, len(f.rec.Messages()))
}

func TestCreateBillSurvivesNotificationFailure(t *testing.T) {
	f := setup(t)
	f.rec.SetErr(errors.New("line down"))

	bill := f.newBill(t, 3000)
	stored := f.reload(t, bill.ID)
	assert.Equal(t, domain.StatusPending, stored.Status)
	assert.False(t, stored.CreatedNotified)
}

func TestRecordFullPayment(t *testing.T) {
	f := setup(t)
	bill := f.newBill(t, 2500, 500)

	paid, err := f.pay(context.Background(), bill, 3000)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, paid.Status)
	assert.True(t, paid.Remaining().IsZero())
	require.NotNil(t, paid.PaidAt)

	stored := f.reload(t, bill.ID)
	assert.Equal(t, domain.StatusPaid, stored.Status)
	assert.True(t, stored.RemainingAmount.IsZero())
	assert.Equal(t, int64(1), stored.Version)
	assert.Equal(t, 1, f.rec.Count(notificationdomain.EventPaymentReceived))
}

func TestRecordPartialPayment(t *testing.T) {
	f := setup(t)
	bill := f.newBill(t, 3000)
	before := bill.Remaining()

	partial, err := f.pay(context.Background(), bill, 1200)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPartiallyPaid, partial.Status)
	assert.True(t, partial.Remaining().Equal(before.Sub(decimal.NewFromInt(1200))))
	assert.Nil(t, partial.PaidAt)

	text := f.rec.Messages()[len(f.rec.Messages())-1].Text
	assert.Contains(t, text, "฿1,200.00")
	assert.Contains(t, text, "Remaining: ฿1,800.00")
}

func TestTwoPaymentsSettleBill(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	bill := f.newBill(t, 3000)

	_, err := f.pay(ctx, bill, 1000)
	require.NoError(t, err)
	_, err = f.pay(ctx, bill, 2000)
	require.NoError(t, err)

	stored := f.reload(t, bill.ID)
	assert.True(t, stored.PaidAmount.Equal(decimal.NewFromInt(3000)))
	assert.True(t, stored.RemainingAmount.IsZero())
	assert.Equal(t, domain.StatusPaid, stored.Status)
	assert.Len(t, stored.Payments, 2)
}

func TestRecordPaymentRejectsBadAmounts(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	bill := f.newBill(t, 3000)

	for _, amount := range []int64{0, -5, 3001} {
		_, err := f.pay(ctx, bill, amount)
		assert.ErrorIs(t, err, domain.ErrInvalidAmount, "amount %d", amount)
	}

	_, err := f.svc.RecordPayment(ctx, domain.RecordPaymentRequest{
		DormitoryID: f.dorm.ID, BillID: bill.ID, Amount: decimal.NewFromInt(10), Method: "cheque",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidMethod)

	stored := f.reload(t, bill.ID)
	assert.True(t, stored.PaidAmount.IsZero())
	assert.Empty(t, stored.Payments)
}

func TestRecordPaymentOnTerminalBill(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	paid := f.newBill(t, 1000)
	_, err := f.pay(ctx, paid, 1000)
	require.NoError(t, err)

	cancelled := f.newBill(t, 1000)
	_, err = f.svc.Cancel(ctx, f.dorm.ID, cancelled.ID)
	require.NoError(t, err)

	for _, b := range []*domain.Bill{paid, cancelled} {
		before := f.reload(t, b.ID)
		for _, amount := range []int64{1, 500, 0} {
			_, err := f.pay(ctx, b, amount)
			assert.ErrorIs(t, err, domain.ErrInvalidState)
		}
		after := f.reload(t, b.ID)
		assert.Equal(t, before.Status, after.Status)
		assert.True(t, before.PaidAmount.Equal(after.PaidAmount))
		assert.Equal(t, before.Version, after.Version)
		assert.Len(t, after.Payments, len(before.Payments))
	}
}

// racingRepo lets another writer update the bill right after it was read.
type racingRepo struct {
	domain.Repository
	race func()
}

func (r *racingRepo) FindByID(ctx context.Context, db *gorm.DB, dormitoryID, id snowflake.ID) (*domain.Bill, error) {
	bill, err := r.Repository.FindByID(ctx, db, dormitoryID, id)
	if r.race != nil {
		race := r.race
		r.race = nil
		race()
	}
	return bill, err
}

func TestRecordPaymentDetectsConcurrentUpdate(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	bill := f.newBill(t, 3000)

	racing := &racingRepo{Repository: f.repo}
	params := f.services
	params.Repo = racing
	contended := service.New(params)

	racing.race = func() {
		_, err := f.pay(ctx, bill, 1000)
		require.NoError(t, err)
	}

	_, err := contended.RecordPayment(ctx, domain.RecordPaymentRequest{
		DormitoryID: f.dorm.ID, BillID: bill.ID, Amount: decimal.NewFromInt(500), Method: domain.MethodCash,
	})
	assert.ErrorIs(t, err, domain.ErrConcurrentUpdate)

	stored := f.reload(t, bill.ID)
	assert.True(t, stored.PaidAmount.Equal(decimal.NewFromInt(1000)))
	assert.Len(t, stored.Payments, 1)
}

func TestTransitionToOverdue(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	bill := f.newBill(t, 3000)

	_, err := f.svc.TransitionToOverdue(ctx, f.dorm.ID, bill.ID, bill.DueDate)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	_, err = f.svc.TransitionToOverdue(ctx, f.dorm.ID, bill.ID, bill.DueDate.Add(-time.Hour))
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	later := bill.DueDate.Add(24 * time.Hour)
	overdue, err := f.svc.TransitionToOverdue(ctx, f.dorm.ID, bill.ID, later)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOverdue, overdue.Status)
	assert.True(t, overdue.OverdueNotified)
	assert.Equal(t, 1, f.rec.Count(notificationdomain.EventBillOverdue))

	_, err = f.svc.TransitionToOverdue(ctx, f.dorm.ID, bill.ID, later)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	assert.Equal(t, 1, f.rec.Count(notificationdomain.EventBillOverdue))

	// overdue bills can still be settled
	partial, err := f.pay(ctx, bill, 1000)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPartiallyPaid, partial.Status)
	settled, err := f.pay(ctx, bill, 2000)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, settled.Status)

	_, err = f.svc.TransitionToOverdue(ctx, f.dorm.ID, bill.ID, later)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestOverdueNoticeRetriedAfterFailure(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	bill := f.newBill(t, 3000)
	later := bill.DueDate.Add(24 * time.Hour)

	f.rec.SetErr(errors.New("webhook 500"))
	overdue, err := f.svc.TransitionToOverdue(ctx, f.dorm.ID, bill.ID, later)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOverdue, overdue.Status)
	assert.False(t, f.reload(t, bill.ID).OverdueNotified)

	pending, err := f.svc.ListOverdue(ctx, f.dorm.ID, later)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	f.rec.SetErr(nil)
	sent, err := f.svc.ResendOverdueNotice(ctx, f.dorm.ID, bill.ID)
	require.NoError(t, err)
	assert.True(t, sent)
	assert.True(t, f.reload(t, bill.ID).OverdueNotified)

	pending, err = f.svc.ListOverdue(ctx, f.dorm.ID, later)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestListOverdueSkipsUnnotifiedWithoutOverdueChannel(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	notified := f.newBill(t, 3000)
	pending := f.newBill(t, 3000)
	later := pending.DueDate.Add(24 * time.Hour)

	_, err := f.svc.TransitionToOverdue(ctx, f.dorm.ID, notified.ID, later)
	require.NoError(t, err)
	f.channel.Events[string(notificationdomain.EventBillOverdue)] = false
	_, err = f.svc.TransitionToOverdue(ctx, f.dorm.ID, pending.ID, later)
	require.NoError(t, err)
	assert.False(t, f.reload(t, pending.ID).OverdueNotified)

	listed, err := f.svc.ListOverdue(ctx, f.dorm.ID, later)
	require.NoError(t, err)
	assert.Empty(t, listed)

	f.channel.Events[string(notificationdomain.EventBillOverdue)] = true
	listed, err = f.svc.ListOverdue(ctx, f.dorm.ID, later)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, pending.ID, listed[0].ID)
}

func TestSendDueReminderOnlyOnce(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	bill := f.newBill(t, 3000)

	sent, err := f.svc.SendDueReminder(ctx, f.dorm.ID, bill.ID, today)
	require.NoError(t, err)
	assert.True(t, sent)

	sent, err = f.svc.SendDueReminder(ctx, f.dorm.ID, bill.ID, today)
	require.NoError(t, err)
	assert.False(t, sent)

	assert.Equal(t, 1, f.rec.Count(notificationdomain.EventBillDueReminder))
	assert.True(t, f.reload(t, bill.ID).ReminderNotified)
}

func TestSendDueReminderOutsideWindow(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	bill := f.newBill(t, 3000)

	_, err := f.svc.SendDueReminder(ctx, f.dorm.ID, bill.ID, bill.DueDate.Add(-4*24*time.Hour))
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	_, err = f.svc.SendDueReminder(ctx, f.dorm.ID, bill.ID, bill.DueDate)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	assert.Zero(t, f.rec.Count(notificationdomain.EventBillDueReminder))
}

func TestFailedReminderReleasesFlag(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	bill := f.newBill(t, 3000)

	f.rec.SetErr(errors.New("timeout"))
	sent, err := f.svc.SendDueReminder(ctx, f.dorm.ID, bill.ID, today)
	assert.ErrorIs(t, err, domain.ErrNotificationFailed)
	assert.False(t, sent)
	assert.False(t, f.reload(t, bill.ID).ReminderNotified)

	f.rec.SetErr(nil)
	sent, err = f.svc.SendDueReminder(ctx, f.dorm.ID, bill.ID, today)
	require.NoError(t, err)
	assert.True(t, sent)
}

func TestClaimFlagIsCompareAndSet(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.channel.Active = false
	bill := f.newBill(t, 3000)

	first, err := f.repo.ClaimFlag(ctx, f.db, bill.ID, domain.FlagReminder)
	require.NoError(t, err)
	second, err := f.repo.ClaimFlag(ctx, f.db, bill.ID, domain.FlagReminder)
	require.NoError(t, err)
	assert.True(t, first)
	assert.False(t, second)

	_, err = f.repo.ClaimFlag(ctx, f.db, bill.ID, domain.Flag("paid_at"))
	assert.Error(t, err)
}

func TestCancelBill(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	bill := f.newBill(t, 3000)
	sentBefore := len(f.rec.Messages())

	cancelled, err := f.svc.Cancel(ctx, f.dorm.ID, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)

	_, err = f.svc.Cancel(ctx, f.dorm.ID, bill.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	assert.Len(t, f.rec.Messages(), sentBefore)

	_, err = f.svc.Cancel(ctx, f.dorm.ID, snowflake.ID(1))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListBills(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	first := f.newBill(t, 1000)
	second := f.newBill(t, 2000)
	third := f.newBill(t, 3000)
	_, err := f.pay(ctx, second, 2000)
	require.NoError(t, err)

	all, err := f.svc.List(ctx, f.dorm.ID, domain.ListRequest{})
	require.NoError(t, err)
	require.Len(t, all.Bills, 3)
	assert.Equal(t, third.ID, all.Bills[0].ID)
	assert.False(t, all.PageInfo.HasMore)

	paid, err := f.svc.List(ctx, f.dorm.ID, domain.ListRequest{Status: domain.StatusPaid})
	require.NoError(t, err)
	require.Len(t, paid.Bills, 1)
	assert.Equal(t, second.ID, paid.Bills[0].ID)

	byMonth, err := f.svc.List(ctx, f.dorm.ID, domain.ListRequest{Month: first.Month, Year: 2026})
	require.NoError(t, err)
	require.Len(t, byMonth.Bills, 1)
	assert.Equal(t, first.ID, byMonth.Bills[0].ID)

	page, err := f.svc.List(ctx, f.dorm.ID, domain.ListRequest{PageSize: 2})
	require.NoError(t, err)
	require.Len(t, page.Bills, 2)
	require.True(t, page.PageInfo.HasMore)

	rest, err := f.svc.List(ctx, f.dorm.ID, domain.ListRequest{PageSize: 2, PageToken: page.PageInfo.NextPageToken})
	require.NoError(t, err)
	require.Len(t, rest.Bills, 1)
	assert.Equal(t, first.ID, rest.Bills[0].ID)

	_, err = f.svc.List(ctx, f.dorm.ID, domain.ListRequest{Status: "draft"})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}
