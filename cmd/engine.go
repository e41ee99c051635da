package cmd

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/cache"
	"github.com/spec-kit/sla-engine/internal/calendar"
	"github.com/spec-kit/sla-engine/internal/config"
	"github.com/spec-kit/sla-engine/internal/consistency"
	"github.com/spec-kit/sla-engine/internal/events"
	"github.com/spec-kit/sla-engine/internal/integrity"
	"github.com/spec-kit/sla-engine/internal/observability"
	"github.com/spec-kit/sla-engine/internal/persistence"
	"github.com/spec-kit/sla-engine/internal/repository"
	"github.com/spec-kit/sla-engine/internal/sla"
	"github.com/spec-kit/sla-engine/internal/worker"
)

// app wires every engine component from configuration. Subcommands build it,
// use what they need and Close it.
type app struct {
	cfg    *config.Config
	logger *zap.Logger

	postgres *persistence.Postgres
	redis    *persistence.Redis

	dispatcher   events.Dispatcher
	metrics      *observability.Metrics
	tracker      *sla.Tracker
	monitor      *sla.Monitor
	synchronizer *consistency.Synchronizer
	enforcer     *integrity.Enforcer
	manager      *integrity.Manager
	scheduler    *worker.Scheduler
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	postgres, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	redisConn := persistence.NewRedis(cfg.Redis, logger)

	pool := postgres.PoolHandle()
	if pool != nil && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pool, cfg.Postgres.MigrationsDir, logger); err != nil {
			return nil, fmt.Errorf("migrations: %w", err)
		}
	}

	tickets := repository.NewTicketRepository(pool)
	tracking := repository.NewTrackingRepository(pool)
	entities := repository.NewEntityRepository(pool)
	metricRepo := repository.NewResponseMetricRepository(pool)
	rules := cache.NewCachedSlaRuleRepository(
		repository.NewSlaRuleRepository(pool), redisConn.ClientHandle(), cfg.Engine.CacheTTL, logger)
	hours := cache.NewCachedBusinessHoursRepository(
		repository.NewBusinessHoursRepository(pool), redisConn.ClientHandle(), cfg.Engine.CacheTTL, logger)

	dispatcher := events.NewInMemoryDispatcher(logger)
	metrics := observability.NewMetrics()

	cal := calendar.New(hours, cfg.Engine.CalendarWalkDays, logger)
	resolver := sla.NewResolver(rules, entities, logger)
	tracker := sla.NewTracker(tickets, tracking, resolver, cal, dispatcher, logger)
	monitor := sla.NewMonitor(tickets, tracking, rules, dispatcher, logger)

	tx := repository.NewTxRunner(pool)
	synchronizer := consistency.NewSynchronizer(
		tickets, tracking, metricRepo, tracker, tx, dispatcher, metrics, logger)

	manager := integrity.NewManager(repository.NewSchemaStore(pool), logger)
	enforcer := integrity.NewEnforcer(
		repository.NewIntegrityStore(pool), tickets, manager, cfg.Engine.NeutralRating, logger)

	scheduler := worker.NewScheduler(synchronizer, enforcer, manager, monitor, cfg.Scheduler,
		time.Duration(cfg.Engine.BreachWarningMinutes)*time.Minute, logger)

	return &app{
		cfg:          cfg,
		logger:       logger,
		postgres:     postgres,
		redis:        redisConn,
		dispatcher:   dispatcher,
		metrics:      metrics,
		tracker:      tracker,
		monitor:      monitor,
		synchronizer: synchronizer,
		enforcer:     enforcer,
		manager:      manager,
		scheduler:    scheduler,
	}, nil
}

func (a *app) Close() {
	a.redis.Close()
	a.postgres.Close()
	_ = a.logger.Sync()
}
