package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	billdomain "github.com/railzwaylabs/dormitory/internal/bill/domain"
	"github.com/railzwaylabs/dormitory/internal/clock"
	"github.com/railzwaylabs/dormitory/internal/config"
	dormitorydomain "github.com/railzwaylabs/dormitory/internal/dormitory/domain"
	"github.com/railzwaylabs/dormitory/internal/eligibility"
	meterdomain "github.com/railzwaylabs/dormitory/internal/meterreading/domain"
	roomdomain "github.com/railzwaylabs/dormitory/internal/room/domain"
	"github.com/railzwaylabs/dormitory/internal/scheduler"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) {
		s.RegisterRoutes()
	}),
	fx.Invoke(RunHTTP),
)

type Params struct {
	fx.In

	Cfg      config.Config
	Log      *zap.Logger
	DB       *gorm.DB
	Engine   *gin.Engine
	Gatherer prometheus.Gatherer
	Clock    clock.Clock

	Dormitories dormitorydomain.Service
	Rooms       roomdomain.Service
	Meters      meterdomain.Service
	Eligibility *eligibility.Service
	Bills       billdomain.Service
	Scheduler   *scheduler.Scheduler
}

type Server struct {
	cfg      config.Config
	log      *zap.Logger
	db       *gorm.DB
	engine   *gin.Engine
	gatherer prometheus.Gatherer
	clock    clock.Clock

	dormitorySvc   dormitorydomain.Service
	roomSvc        roomdomain.Service
	meterSvc       meterdomain.Service
	eligibilitySvc *eligibility.Service
	billSvc        billdomain.Service
	scheduler      *scheduler.Scheduler
}

func NewServer(p Params) *Server {
	return &Server{
		cfg:            p.Cfg,
		log:            p.Log.Named("server"),
		db:             p.DB,
		engine:         p.Engine,
		gatherer:       p.Gatherer,
		clock:          p.Clock,
		dormitorySvc:   p.Dormitories,
		roomSvc:        p.Rooms,
		meterSvc:       p.Meters,
		eligibilitySvc: p.Eligibility,
		billSvc:        p.Bills,
		scheduler:      p.Scheduler,
	}
}

func NewEngine(cfg config.Config, log *zap.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery(), RequestLogger(log.Named("http")))
	return engine
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) RegisterRoutes() {
	r := s.engine

	r.GET("/healthz", s.Healthz)
	if s.gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api")
	api.GET("/cron/check-notifications", s.CronSecretRequired(), s.CheckNotifications)

	api.POST("/dormitories", s.CreateDormitory)
	api.GET("/dormitories", s.ListDormitories)

	dorm := api.Group("/dormitories/:id", s.DormitoryContext())
	{
		dorm.GET("", s.GetDormitory)

		dorm.PUT("/notification-config", s.UpsertNotificationConfig)
		dorm.GET("/notification-config", s.GetNotificationConfig)
		dorm.PUT("/promptpay-config", s.UpsertPromptPayConfig)
		dorm.GET("/promptpay-config", s.GetPromptPayConfig)

		dorm.POST("/rooms", s.CreateRoom)
		dorm.GET("/rooms", s.ListRooms)
		dorm.POST("/rooms/:roomId/tenants", s.CreateTenant)
		dorm.GET("/tenants", s.ListTenants)
		dorm.PATCH("/tenants/:tenantId/status", s.UpdateTenantStatus)

		dorm.POST("/meter-readings", s.RecordMeterReading)
		dorm.GET("/meter-readings", s.ListMeterReadings)

		dorm.GET("/billing/eligibility", s.ListBillingEligibility)

		dorm.POST("/bills", s.CreateBill)
		dorm.GET("/bills", s.ListBills)
		dorm.GET("/bills/:billId", s.GetBill)
		dorm.POST("/bills/:billId/payments", s.RecordPayment)
		dorm.POST("/bills/:billId/cancel", s.CancelBill)
		dorm.GET("/bills/:billId/promptpay", s.GetBillPromptPay)
	}
}

func (s *Server) Healthz(c *gin.Context) {
	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		s.log.Warn("health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// RunHTTP serves the engine for the lifetime of the fx app.
func RunHTTP(lc fx.Lifecycle, cfg config.Config, engine *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           engine,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
