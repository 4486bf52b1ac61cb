package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/clinic-scheduler/internal/api/router"
	"github.com/wolfman30/clinic-scheduler/internal/appointments"
	"github.com/wolfman30/clinic-scheduler/internal/availability"
	"github.com/wolfman30/clinic-scheduler/internal/changefeed"
	appconfig "github.com/wolfman30/clinic-scheduler/internal/config"
	"github.com/wolfman30/clinic-scheduler/internal/dashboard"
	"github.com/wolfman30/clinic-scheduler/internal/database"
	"github.com/wolfman30/clinic-scheduler/internal/doctors"
	"github.com/wolfman30/clinic-scheduler/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/clinic-scheduler/internal/http/middleware"
	"github.com/wolfman30/clinic-scheduler/internal/observability/metrics"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

// API is the assembled HTTP surface plus the resources it holds open.
type API struct {
	Handler http.Handler
	Feed    changefeed.Feed
	Cache   *dashboard.DoctorCache

	pool   *pgxpool.Pool
	sqlDB  *sql.DB
	redis  *redis.Client
	logger *logging.Logger
}

type stores struct {
	doctors      doctors.Repository
	availability availability.Repository
	appointments appointments.Repository
}

// BuildAPI wires storage, services and handlers. Without DATABASE_URL the
// repositories are in memory, which only suits local runs.
func BuildAPI(ctx context.Context, cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) (*API, error) {
	if cfg == nil {
		return nil, errors.New("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	loc, err := time.LoadLocation(cfg.DefaultTimezone)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: DEFAULT_TIMEZONE: %w", err)
	}

	api := &API{logger: logger}
	var st stores
	if cfg.DatabaseURL != "" {
		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		api.pool = pool
		api.sqlDB = stdlib.OpenDBFromPool(pool)
		if cfg.AutoMigrate {
			applied, err := database.MigrateUp(api.sqlDB)
			if err != nil {
				api.Close()
				return nil, err
			}
			logger.Info("schema migrated", "applied", applied)
		}
		st = stores{
			doctors:      doctors.NewPostgresRepository(pool),
			availability: availability.NewPostgresRepository(pool),
			appointments: appointments.NewPostgresRepository(pool, cfg.BookingSerializeRetries),
		}
	} else {
		logger.Warn("DATABASE_URL not set; using in-memory repositories")
		appts := appointments.NewInMemoryRepository()
		avail := availability.NewInMemoryRepository()
		docs := doctors.NewInMemoryRepository(doctors.InMemoryCascade{
			DeleteRules:        avail.DeleteRulesByDoctor,
			DeleteExceptions:   avail.DeleteExceptionsByDoctor,
			CancelAppointments: appts.CancelByDoctor,
		})
		appts.GuardDoctors(docs.Hold)
		st = stores{
			doctors:      docs,
			availability: avail,
			appointments: appts,
		}
	}

	api.redis = BuildRedisClient(ctx, cfg, logger, true)
	api.Feed = BuildFeed(api.redis, cfg, logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	webhookMetrics := metrics.NewWebhookMetrics(reg)

	doctorSvc := doctors.NewService(st.doctors, api.Feed, logger)
	availSvc := availability.NewService(st.availability, doctorSvc, api.Feed, logger)
	apptSvc := appointments.NewService(st.appointments, doctorSvc, api.Feed, logger, appointments.Options{
		Window: appointments.Window{
			MinLead:    cfg.BookingMinLeadTime,
			MaxHorizon: cfg.BookingMaxHorizon,
		},
		WebhookDuration: cfg.WebhookDurationMinutes,
		ManualDuration:  cfg.ManualDurationMinutes,
		DefaultLocation: loc,
	})
	api.Cache = dashboard.NewDoctorCache(doctorSvc, cfg.DoctorCacheTTL, logger)

	webhooks := handlers.NewRetellWebhookHandler(apptSvc, nil, webhookMetrics, logger)
	if store := BuildArchive(cfg, awsCfg, logger); store != nil {
		webhooks = handlers.NewRetellWebhookHandler(apptSvc, store, webhookMetrics, logger)
		logger.Info("webhook payload archive enabled", "bucket", cfg.PayloadArchiveBucket)
	}

	routerCfg := &router.Config{
		Logger:              logger,
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
		MetricsHandler:      promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		RetellWebhooks:      webhooks,
		RetellWebhookSecret: cfg.RetellWebhookSecret,
		Auth: httpmiddleware.AuthConfig{
			Region:      cfg.CognitoRegion,
			UserPoolID:  cfg.CognitoUserPoolID,
			ClientID:    cfg.CognitoClientID,
			StaffSecret: cfg.AdminJWTSecret,
		},
		Doctors:      doctors.NewHandler(doctorSvc, logger),
		Availability: availability.NewHandler(availSvc, logger),
		Appointments: appointments.NewHandler(apptSvc, api.Cache, logger),
		AdminLive:    handlers.NewAdminLiveHandler(api.Feed, logger),
	}
	if cfg.WebhookRateLimitRPS > 0 {
		routerCfg.WebhookRateLimiter = httpmiddleware.NewRateLimiter(ctx, cfg.WebhookRateLimitRPS, cfg.WebhookRateLimitBurst)
	}
	if api.sqlDB != nil {
		routerCfg.DB = api.sqlDB
		routerCfg.AdminDashboard = handlers.NewAdminDashboardHandler(api.sqlDB, apptSvc, api.Cache, reg, loc, logger)
	}
	if cfg.RetellWebhookSecret == "" {
		logger.Warn("RETELL_WEBHOOK_SECRET not set; every webhook call will be rejected")
	}
	api.Handler = router.New(routerCfg)
	return api, nil
}

// Run keeps the doctor cache in step with the change feed until ctx is done.
func (a *API) Run(ctx context.Context) {
	if err := a.Cache.Run(ctx, a.Feed); err != nil && !errors.Is(err, context.Canceled) {
		a.logger.Error("doctor cache listener stopped", "error", err)
	}
}

// Close releases the database and Redis connections.
func (a *API) Close() {
	if a.sqlDB != nil {
		_ = a.sqlDB.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}
