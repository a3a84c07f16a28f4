package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/dormitory/internal/bill"
	"github.com/railzwaylabs/dormitory/internal/clock"
	"github.com/railzwaylabs/dormitory/internal/config"
	"github.com/railzwaylabs/dormitory/internal/dormitory"
	"github.com/railzwaylabs/dormitory/internal/eligibility"
	"github.com/railzwaylabs/dormitory/internal/meterreading"
	"github.com/railzwaylabs/dormitory/internal/migration"
	"github.com/railzwaylabs/dormitory/internal/notification"
	"github.com/railzwaylabs/dormitory/internal/observability"
	"github.com/railzwaylabs/dormitory/internal/redis"
	"github.com/railzwaylabs/dormitory/internal/room"
	"github.com/railzwaylabs/dormitory/internal/scheduler"
	"github.com/railzwaylabs/dormitory/internal/security/vault"
	"github.com/railzwaylabs/dormitory/internal/server"
	"github.com/railzwaylabs/dormitory/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "dormitory",
		Short:   "Dormitory billing service",
		Version: readVersionFromEnv(),
	}
	root.AddCommand(newMigrateCmd(), newServeCmd(), newSchedulerCmd(), newAllCmd(), newScanCmd())
	return root
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate()
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			runServe()
			return nil
		},
	}
}

func newSchedulerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scheduler",
		Short: "Run the daily due/overdue scan on its cron schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			runScheduler()
			return nil
		},
	}
}

func newAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "all",
		Short: "Run migrations, then start the HTTP API and scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runMigrate(); err != nil {
				return err
			}
			runMonolith()
			return nil
		},
	}
}

func newScanCmd() *cobra.Command {
	var at string
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run one due/overdue scan and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScanOnce(cmd.Context(), at)
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "evaluate the scan as of this RFC3339 instant")
	return cmd
}

// domainModules wires every service the API and scheduler depend on.
func domainModules() fx.Option {
	return fx.Options(
		clock.Module,
		redis.Module,
		vault.Module,
		notification.Module,
		dormitory.Module,
		room.Module,
		meterreading.Module,
		eligibility.Module,
		bill.Module,
		scheduler.Module,
	)
}

func baseModules() fx.Option {
	return fx.Options(
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
	)
}

func runMigrate() error {
	app := fx.New(
		baseModules(),
		migration.Module,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("migrate failed: %w", err)
	}
	_ = app.Stop(context.Background())
	return nil
}

func runServe() {
	app := fx.New(
		baseModules(),
		domainModules(),
		server.Module,
	)
	app.Run()
}

func runScheduler() {
	app := fx.New(
		baseModules(),
		domainModules(),
		fx.Invoke(scheduler.Start),
	)
	app.Run()
}

func runMonolith() {
	app := fx.New(
		baseModules(),
		domainModules(),
		server.Module,
		fx.Invoke(scheduler.Start),
	)
	app.Run()
}

func runScanOnce(ctx context.Context, at string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var (
		sched *scheduler.Scheduler
		clk   clock.Clock
		log   *zap.Logger
	)
	app := fx.New(
		baseModules(),
		domainModules(),
		fx.Populate(&sched, &clk, &log),
		fx.NopLogger,
	)

	startCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return err
	}
	defer func() { _ = app.Stop(context.Background()) }()

	if at = strings.TrimSpace(at); at != "" {
		t, err := time.Parse(time.RFC3339, at)
		if err != nil {
			return fmt.Errorf("invalid --at: %w", err)
		}
		ctx = clock.WithTime(ctx, t)
	}

	result, err := sched.RunScan(ctx, clk.Now(ctx))
	if err != nil {
		return err
	}
	log.Info("scan finished",
		zap.String("run_date", result.RunDate),
		zap.Int("due_soon", result.DueSoonCount),
		zap.Int("overdue", result.OverdueCount),
		zap.Int("failed", result.FailedCount),
	)
	return nil
}

func registerSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNode)
}

func readVersionFromEnv() string {
	if v := strings.TrimSpace(os.Getenv("APP_VERSION")); v != "" {
		return v
	}
	return "dev"
}
