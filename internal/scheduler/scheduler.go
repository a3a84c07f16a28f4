package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	billdomain "github.com/railzwaylabs/dormitory/internal/bill/domain"
	"github.com/railzwaylabs/dormitory/internal/clock"
	"github.com/railzwaylabs/dormitory/internal/config"
	dormitorydomain "github.com/railzwaylabs/dormitory/internal/dormitory/domain"
	"github.com/railzwaylabs/dormitory/internal/observability"
	"github.com/railzwaylabs/dormitory/internal/scheduler/domain"
	"github.com/robfig/cron/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	scanLockKey     = "dormitory:scan:due-overdue"
	runDateLayout   = "2006-01-02"
	defaultSpec     = "0 8 * * *"
	defaultLockTTL  = 15 * time.Minute
	defaultTimezone = "Asia/Bangkok"
)

var ErrScanInProgress = errors.New("scan_in_progress")

// ScanResult summarises one due/overdue scan. Counts cover the whole run
// date, including work done before a resume.
type ScanResult struct {
	RunDate           string `json:"run_date"`
	DueSoonCount      int    `json:"due_soon_count"`
	OverdueCount      int    `json:"overdue_count"`
	FailedCount       int    `json:"failed_count"`
	NotificationsSent int    `json:"notifications_sent"`
	Dormitories       int    `json:"dormitories"`
	Resumed           bool   `json:"resumed"`
}

type Params struct {
	fx.In

	Log         *zap.Logger
	Cfg         config.Config
	Clock       clock.Clock
	Bills       billdomain.Service
	Dormitories dormitorydomain.Service
	Checkpoints domain.CheckpointRepository
	Locker      Locker
	Metrics     *observability.Metrics `optional:"true"`
}

type Scheduler struct {
	log         *zap.Logger
	clock       clock.Clock
	bills       billdomain.Service
	dormitories dormitorydomain.Service
	checkpoints domain.CheckpointRepository
	locker      Locker
	metrics     *observability.Metrics

	spec    string
	loc     *time.Location
	lockTTL time.Duration
}

func New(p Params) (*Scheduler, error) {
	spec := p.Cfg.Scheduler.Spec
	if spec == "" {
		spec = defaultSpec
	}
	tz := p.Cfg.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, err
	}
	lockTTL := p.Cfg.Scheduler.LockTTL
	if lockTTL <= 0 {
		lockTTL = defaultLockTTL
	}

	return &Scheduler{
		log:         p.Log.Named("scheduler"),
		clock:       p.Clock,
		bills:       p.Bills,
		dormitories: p.Dormitories,
		checkpoints: p.Checkpoints,
		locker:      p.Locker,
		metrics:     p.Metrics,
		spec:        spec,
		loc:         loc,
		lockTTL:     lockTTL,
	}, nil
}

// RunScan sends due reminders and escalates overdue bills for every active
// dormitory. A run interrupted part way resumes after the last finished
// dormitory; a run after a completed one on the same date starts over and
// relies on the bill notification flags to stay idempotent.
func (s *Scheduler) RunScan(ctx context.Context, now time.Time) (ScanResult, error) {
	now = now.UTC()

	release, ok, err := s.locker.Acquire(ctx, scanLockKey, s.lockTTL)
	if err != nil {
		s.metrics.IncScanRun("error")
		return ScanResult{}, err
	}
	if !ok {
		s.metrics.IncScanRun("skipped")
		return ScanResult{}, ErrScanInProgress
	}
	defer release()

	runDate := now.In(s.loc).Format(runDateLayout)
	cp, err := s.checkpoints.Find(ctx, runDate)
	if err != nil {
		s.metrics.IncScanRun("error")
		return ScanResult{}, err
	}
	if cp == nil || cp.Completed {
		cp = &domain.Checkpoint{RunDate: runDate}
	}

	result := ScanResult{
		RunDate:      runDate,
		DueSoonCount: cp.DueSoonCount,
		OverdueCount: cp.OverdueCount,
		FailedCount:  cp.FailedCount,
		Resumed:      cp.LastDormitoryID != 0,
	}

	s.log.Info("scan started",
		zap.String("run_date", runDate),
		zap.Bool("resumed", result.Resumed),
		zap.String("after_dormitory_id", cp.LastDormitoryID.String()),
	)

	dorms, err := s.dormitories.ListActiveAfter(ctx, cp.LastDormitoryID)
	if err != nil {
		s.metrics.IncScanRun("error")
		return result, err
	}

	for _, dorm := range dorms {
		if err := ctx.Err(); err != nil {
			s.metrics.IncScanRun("interrupted")
			return result, err
		}

		run := s.scanDormitory(ctx, dorm.ID, now)
		result.DueSoonCount += run.dueSoon
		result.OverdueCount += run.overdue
		result.FailedCount += run.failed
		result.NotificationsSent += run.sent
		result.Dormitories++

		cp.LastDormitoryID = dorm.ID
		cp.DueSoonCount = result.DueSoonCount
		cp.OverdueCount = result.OverdueCount
		cp.FailedCount = result.FailedCount
		cp.UpdatedAt = s.clock.Now(ctx)
		if err := s.checkpoints.Save(ctx, cp); err != nil {
			s.metrics.IncScanRun("error")
			return result, err
		}
	}

	cp.Completed = true
	cp.UpdatedAt = s.clock.Now(ctx)
	if err := s.checkpoints.Save(ctx, cp); err != nil {
		s.metrics.IncScanRun("error")
		return result, err
	}

	s.metrics.IncScanRun("completed")
	s.log.Info("scan completed",
		zap.String("run_date", runDate),
		zap.Int("dormitories", result.Dormitories),
		zap.Int("due_soon", result.DueSoonCount),
		zap.Int("overdue", result.OverdueCount),
		zap.Int("failed", result.FailedCount),
		zap.Int("notifications_sent", result.NotificationsSent),
	)
	return result, nil
}

type dormitoryRun struct {
	dueSoon int
	overdue int
	failed  int
	sent    int
}

// scanDormitory handles one dormitory. A failing bill is logged and counted
// without stopping the rest.
func (s *Scheduler) scanDormitory(ctx context.Context, dormitoryID snowflake.ID, now time.Time) dormitoryRun {
	var run dormitoryRun
	log := s.log.With(zap.String("dormitory_id", dormitoryID.String()))

	dueSoon, err := s.bills.ListDueSoon(ctx, dormitoryID, now)
	if err != nil {
		log.Error("list due soon bills failed", zap.Error(err))
		run.failed++
	}
	for _, bill := range dueSoon {
		sent, err := s.bills.SendDueReminder(ctx, dormitoryID, bill.ID, now)
		if err != nil {
			log.Warn("due reminder failed", zap.String("bill_id", bill.ID.String()), zap.Error(err))
			run.failed++
			continue
		}
		run.dueSoon++
		if sent {
			run.sent++
		}
	}

	overdue, err := s.bills.ListOverdue(ctx, dormitoryID, now)
	if err != nil {
		log.Error("list overdue bills failed", zap.Error(err))
		run.failed++
	}
	for _, bill := range overdue {
		escalated, sent, err := s.escalate(ctx, bill, now)
		if err != nil {
			log.Warn("overdue escalation failed", zap.String("bill_id", bill.ID.String()), zap.Error(err))
			run.failed++
			continue
		}
		if escalated {
			run.overdue++
		}
		if sent {
			run.sent++
		}
	}

	s.metrics.AddScanBills("due_soon", run.dueSoon)
	s.metrics.AddScanBills("overdue", run.overdue)
	s.metrics.AddScanBills("failed", run.failed)
	return run
}

// escalate moves a bill to overdue, or retries the notice of a bill that is
// already overdue. A retry only counts as an escalation once the notice is
// actually sent.
func (s *Scheduler) escalate(ctx context.Context, bill *billdomain.Bill, now time.Time) (escalated, sent bool, err error) {
	if bill.Status == billdomain.StatusOverdue {
		sent, err = s.bills.ResendOverdueNotice(ctx, bill.DormitoryID, bill.ID)
		return sent, sent, err
	}
	updated, err := s.bills.TransitionToOverdue(ctx, bill.DormitoryID, bill.ID, now)
	if err != nil {
		return false, false, err
	}
	return true, updated.OverdueNotified, nil
}

// RunForever triggers RunScan on the configured cron spec until ctx ends.
func (s *Scheduler) RunForever(ctx context.Context) {
	c := cron.New(
		cron.WithLocation(s.loc),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{log: s.log.Sugar()})),
	)

	_, err := c.AddFunc(s.spec, func() {
		runCtx, cancel := context.WithTimeout(ctx, s.lockTTL)
		defer cancel()
		if _, err := s.RunScan(runCtx, s.clock.Now(runCtx)); err != nil {
			s.log.Error("scheduled scan failed", zap.Error(err))
		}
	})
	if err != nil {
		s.log.Error("invalid scheduler spec", zap.String("spec", s.spec), zap.Error(err))
		return
	}

	s.log.Info("scheduler started", zap.String("spec", s.spec), zap.String("timezone", s.loc.String()))
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	s.log.Info("scheduler stopped")
}

type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
