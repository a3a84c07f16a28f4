package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bwmarrin/snowflake"
	billdomain "github.com/railzwaylabs/dormitory/internal/bill/domain"
	billrepo "github.com/railzwaylabs/dormitory/internal/bill/repository"
	billservice "github.com/railzwaylabs/dormitory/internal/bill/service"
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
	"github.com/railzwaylabs/dormitory/internal/scheduler/domain"
	"github.com/railzwaylabs/dormitory/internal/scheduler/repository"
	"github.com/railzwaylabs/dormitory/internal/security/vault"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var scanTime = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// flakySender fails every message for the dormitories listed in failFor.
type flakySender struct {
	rec     *notificationtest.Recorder
	failFor map[snowflake.ID]bool
}

func (s *flakySender) Send(ctx context.Context, ch notificationdomain.Channel, msg notificationdomain.Message) error {
	if s.failFor[ch.DormitoryID] {
		return errors.New("destination unreachable")
	}
	return s.rec.Send(ctx, ch, msg)
}

type scanFixture struct {
	t           *testing.T
	node        *snowflake.Node
	dorms       dormitorydomain.Service
	rooms       roomdomain.Service
	meters      meterdomain.Service
	bills       billdomain.Service
	checkpoints domain.CheckpointRepository
	resolver    notificationtest.Resolver
	sender      *flakySender
	rec         *notificationtest.Recorder
	redis       *miniredis.Miniredis
	scheduler   *Scheduler
}

func newScanFixture(t *testing.T) *scanFixture {
	t.Helper()
	db := dbtest.Open(t)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	v, err := vault.NewFactory(vault.Config{Provider: "plaintext"})
	require.NoError(t, err)

	cfg := config.Config{Scheduler: config.SchedulerConfig{
		Spec:           "0 8 * * *",
		Timezone:       "UTC",
		LockTTL:        time.Minute,
		ReminderWindow: 72 * time.Hour,
	}}
	clk := clock.Fixed{T: scanTime}

	rec := &notificationtest.Recorder{}
	sender := &flakySender{rec: rec, failFor: map[snowflake.ID]bool{}}
	resolver := notificationtest.Resolver{}
	notifier := notificationservice.NewNotifier(notificationservice.NotifierParams{
		Log: zap.NewNop(), Resolver: resolver, Sender: sender,
	})

	dorms := dormitoryservice.New(dormitoryservice.Params{Log: zap.NewNop(), GenID: node, Repo: dormitoryrepo.New(db), Vault: v})
	rooms := roomservice.New(roomservice.Params{Log: zap.NewNop(), GenID: node, Repo: roomrepo.New(db), Dormitories: dorms})
	meters := meterservice.New(meterservice.Params{
		DB: db, Log: zap.NewNop(), GenID: node, Clock: clk,
		Repo: meterrepo.Provide(), Rooms: rooms, Dormitories: dorms,
	})
	bills := billservice.New(billservice.Params{
		DB: db, Log: zap.NewNop(), Cfg: cfg, GenID: node, Clock: clk,
		Repo: billrepo.Provide(), Rooms: rooms, Dormitories: dorms, Meters: meters, Notifier: notifier,
	})

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	checkpoints := repository.NewCheckpointRepository(db)
	s, err := New(Params{
		Log:         zap.NewNop(),
		Cfg:         cfg,
		Clock:       clk,
		Bills:       bills,
		Dormitories: dorms,
		Checkpoints: checkpoints,
		Locker:      NewLocker(client),
	})
	require.NoError(t, err)

	return &scanFixture{
		t: t, node: node, dorms: dorms, rooms: rooms, meters: meters, bills: bills, checkpoints: checkpoints,
		resolver: resolver, sender: sender, rec: rec, redis: mr, scheduler: s,
	}
}

type tenancy struct {
	dorm   *dormitorydomain.Dormitory
	room   *roomdomain.Room
	tenant *roomdomain.Tenant
}

func (f *scanFixture) addDormitory(name string) tenancy {
	f.t.Helper()
	ctx := context.Background()

	dorm, err := f.dorms.Create(ctx, dormitorydomain.CreateRequest{Name: name})
	require.NoError(f.t, err)
	room, err := f.rooms.CreateRoom(ctx, roomdomain.CreateRoomRequest{DormitoryID: dorm.ID, Number: "101", MonthlyRent: decimal.NewFromInt(3000)})
	require.NoError(f.t, err)
	tenant, err := f.rooms.CreateTenant(ctx, roomdomain.CreateTenantRequest{DormitoryID: dorm.ID, RoomID: room.ID, Name: "Malee"})
	require.NoError(f.t, err)

	f.resolver[dorm.ID] = notificationtest.AllEvents(dorm.ID)
	return tenancy{dorm: dorm, room: room, tenant: tenant}
}

func (f *scanFixture) addBill(tn tenancy, month int, due time.Time) *billdomain.Bill {
	f.t.Helper()
	zero := decimal.Zero
	_, err := f.meters.Record(context.Background(), meterdomain.RecordRequest{
		DormitoryID: tn.dorm.ID,
		RoomID:      tn.room.ID,
		Month:       month,
		Year:        2026,
		Kind:        meterdomain.KindWater,
		Previous:    &zero,
		Current:     decimal.NewFromInt(int64(10 * month)),
	})
	require.NoError(f.t, err)

	bill, err := f.bills.Create(context.Background(), billdomain.CreateRequest{
		DormitoryID: tn.dorm.ID,
		RoomID:      tn.room.ID,
		TenantID:    tn.tenant.ID,
		Month:       month,
		Year:        2026,
		DueDate:     due,
		Items:       []billdomain.ItemInput{{Name: "Rent", Amount: decimal.NewFromInt(3000), Category: billdomain.CategoryRent}},
	})
	require.NoError(f.t, err)
	return bill
}

func (f *scanFixture) reload(bill *billdomain.Bill) *billdomain.Bill {
	f.t.Helper()
	got, err := f.bills.Get(context.Background(), bill.DormitoryID, bill.ID)
	require.NoError(f.t, err)
	return got
}

func day(offset int) time.Time {
	return time.Date(2026, 3, 1+offset, 0, 0, 0, 0, time.UTC)
}

func TestRunScanRemindsOnce(t *testing.T) {
	f := newScanFixture(t)
	ctx := context.Background()
	tn := f.addDormitory("Baan Suan")
	bill := f.addBill(tn, 3, day(2))

	first, err := f.scheduler.RunScan(ctx, scanTime)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-01", first.RunDate)
	assert.Equal(t, 1, first.DueSoonCount)
	assert.Equal(t, 1, first.NotificationsSent)
	assert.Zero(t, first.FailedCount)
	assert.True(t, f.reload(bill).ReminderNotified)

	second, err := f.scheduler.RunScan(ctx, scanTime.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, second.Resumed)
	assert.Zero(t, second.DueSoonCount)
	assert.Zero(t, second.NotificationsSent)

	assert.Equal(t, 1, f.rec.Count(notificationdomain.EventBillDueReminder))
}

func TestRunScanIgnoresBillsOutsideWindow(t *testing.T) {
	f := newScanFixture(t)
	tn := f.addDormitory("Baan Suan")
	far := f.addBill(tn, 3, day(10))

	result, err := f.scheduler.RunScan(context.Background(), scanTime)
	require.NoError(t, err)
	assert.Zero(t, result.DueSoonCount)
	assert.Zero(t, result.OverdueCount)
	assert.False(t, f.reload(far).ReminderNotified)
}

func TestRunScanEscalatesOverdue(t *testing.T) {
	f := newScanFixture(t)
	ctx := context.Background()
	tn := f.addDormitory("Baan Suan")
	late := f.addBill(tn, 2, day(-1))

	result, err := f.scheduler.RunScan(ctx, scanTime)
	require.NoError(t, err)
	assert.Equal(t, 1, result.OverdueCount)
	assert.Equal(t, 1, result.NotificationsSent)

	got := f.reload(late)
	assert.Equal(t, billdomain.StatusOverdue, got.Status)
	assert.True(t, got.OverdueNotified)

	again, err := f.scheduler.RunScan(ctx, scanTime.Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, again.OverdueCount)
	assert.Equal(t, 1, f.rec.Count(notificationdomain.EventBillOverdue))
}

func TestRunScanRetriesUndeliveredOverdueNotice(t *testing.T) {
	f := newScanFixture(t)
	ctx := context.Background()
	tn := f.addDormitory("Baan Suan")
	late := f.addBill(tn, 2, day(-1))

	f.sender.failFor[tn.dorm.ID] = true
	first, err := f.scheduler.RunScan(ctx, scanTime)
	require.NoError(t, err)
	assert.Equal(t, 1, first.OverdueCount)
	assert.Zero(t, first.NotificationsSent)
	assert.Equal(t, billdomain.StatusOverdue, f.reload(late).Status)
	assert.False(t, f.reload(late).OverdueNotified)

	delete(f.sender.failFor, tn.dorm.ID)
	second, err := f.scheduler.RunScan(ctx, scanTime.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, second.OverdueCount)
	assert.Equal(t, 1, second.NotificationsSent)
	assert.True(t, f.reload(late).OverdueNotified)
	assert.Equal(t, 1, f.rec.Count(notificationdomain.EventBillOverdue))
}

func TestRunScanDoesNotRecountUnnotifiedOverdue(t *testing.T) {
	f := newScanFixture(t)
	ctx := context.Background()
	tn := f.addDormitory("Baan Suan")
	late := f.addBill(tn, 2, day(-1))
	delete(f.resolver, tn.dorm.ID)

	first, err := f.scheduler.RunScan(ctx, scanTime)
	require.NoError(t, err)
	assert.Equal(t, 1, first.OverdueCount)
	assert.Zero(t, first.NotificationsSent)
	assert.Zero(t, first.FailedCount)

	got := f.reload(late)
	assert.Equal(t, billdomain.StatusOverdue, got.Status)
	assert.False(t, got.OverdueNotified)

	for i := 1; i <= 2; i++ {
		next, err := f.scheduler.RunScan(ctx, scanTime.Add(time.Duration(i)*24*time.Hour))
		require.NoError(t, err)
		assert.Zero(t, next.OverdueCount, "day %d", i)
		assert.Zero(t, next.NotificationsSent, "day %d", i)
		assert.Zero(t, next.FailedCount, "day %d", i)
	}

	overdue, err := f.bills.ListOverdue(ctx, tn.dorm.ID, scanTime.Add(72*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, overdue)
	assert.Zero(t, f.rec.Count(notificationdomain.EventBillOverdue))
}

func TestRunScanCountsOverdueNoticeOnceChannelReturns(t *testing.T) {
	f := newScanFixture(t)
	ctx := context.Background()
	tn := f.addDormitory("Baan Suan")
	late := f.addBill(tn, 2, day(-1))
	channel := f.resolver[tn.dorm.ID]
	channel.Events[string(notificationdomain.EventBillOverdue)] = false

	first, err := f.scheduler.RunScan(ctx, scanTime)
	require.NoError(t, err)
	assert.Equal(t, 1, first.OverdueCount)
	assert.Zero(t, first.NotificationsSent)

	second, err := f.scheduler.RunScan(ctx, scanTime.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, second.OverdueCount)

	channel.Events[string(notificationdomain.EventBillOverdue)] = true
	third, err := f.scheduler.RunScan(ctx, scanTime.Add(48*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, third.OverdueCount)
	assert.Equal(t, 1, third.NotificationsSent)
	assert.True(t, f.reload(late).OverdueNotified)
	assert.Equal(t, 1, f.rec.Count(notificationdomain.EventBillOverdue))
}

func TestRunScanIsolatesFailures(t *testing.T) {
	f := newScanFixture(t)
	broken := f.addDormitory("Broken Hall")
	healthy := f.addDormitory("Baan Suan")
	brokenBill := f.addBill(broken, 3, day(2))
	healthyBill := f.addBill(healthy, 3, day(2))

	f.sender.failFor[broken.dorm.ID] = true
	result, err := f.scheduler.RunScan(context.Background(), scanTime)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Dormitories)
	assert.Equal(t, 1, result.FailedCount)
	assert.Equal(t, 1, result.DueSoonCount)
	assert.False(t, f.reload(brokenBill).ReminderNotified)
	assert.True(t, f.reload(healthyBill).ReminderNotified)
}

func TestRunScanResumesFromCheckpoint(t *testing.T) {
	f := newScanFixture(t)
	ctx := context.Background()
	first := f.addDormitory("First")
	second := f.addDormitory("Second")
	skipped := f.addBill(first, 3, day(2))
	pending := f.addBill(second, 3, day(2))

	require.NoError(t, f.checkpoints.Save(ctx, &domain.Checkpoint{
		RunDate:         "2026-03-01",
		LastDormitoryID: first.dorm.ID,
		DueSoonCount:    4,
		UpdatedAt:       scanTime,
	}))

	result, err := f.scheduler.RunScan(ctx, scanTime)
	require.NoError(t, err)
	assert.True(t, result.Resumed)
	assert.Equal(t, 1, result.Dormitories)
	assert.Equal(t, 5, result.DueSoonCount)
	assert.False(t, f.reload(skipped).ReminderNotified)
	assert.True(t, f.reload(pending).ReminderNotified)

	cp, err := f.checkpoints.Find(ctx, "2026-03-01")
	require.NoError(t, err)
	require.NotNil(t, cp)
	assert.True(t, cp.Completed)
	assert.Equal(t, second.dorm.ID, cp.LastDormitoryID)
}

func TestRunScanRestartsAfterCompletedRun(t *testing.T) {
	f := newScanFixture(t)
	ctx := context.Background()
	tn := f.addDormitory("Baan Suan")

	require.NoError(t, f.checkpoints.Save(ctx, &domain.Checkpoint{
		RunDate:         "2026-03-01",
		LastDormitoryID: tn.dorm.ID,
		Completed:       true,
		UpdatedAt:       scanTime,
	}))
	bill := f.addBill(tn, 3, day(2))

	result, err := f.scheduler.RunScan(ctx, scanTime)
	require.NoError(t, err)
	assert.False(t, result.Resumed)
	assert.Equal(t, 1, result.DueSoonCount)
	assert.True(t, f.reload(bill).ReminderNotified)
}

func TestRunScanSkipsWhenLocked(t *testing.T) {
	f := newScanFixture(t)
	tn := f.addDormitory("Baan Suan")
	bill := f.addBill(tn, 3, day(2))

	require.NoError(t, f.redis.Set(scanLockKey, "another-instance"))

	_, err := f.scheduler.RunScan(context.Background(), scanTime)
	assert.ErrorIs(t, err, ErrScanInProgress)
	assert.False(t, f.reload(bill).ReminderNotified)

	f.redis.Del(scanLockKey)
	_, err = f.scheduler.RunScan(context.Background(), scanTime)
	require.NoError(t, err)
	assert.False(t, f.redis.Exists(scanLockKey))
}

func TestRunScanUsesSchedulerTimezoneForRunDate(t *testing.T) {
	f := newScanFixture(t)
	f.scheduler.loc = time.FixedZone("ICT", 7*3600)

	result, err := f.scheduler.RunScan(context.Background(), time.Date(2026, 3, 1, 18, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "2026-03-02", result.RunDate)
}

func TestNewRejectsUnknownTimezone(t *testing.T) {
	_, err := New(Params{
		Log: zap.NewNop(),
		Cfg: config.Config{Scheduler: config.SchedulerConfig{Timezone: "Mars/Olympus"}},
	})
	assert.Error(t, err)
}
