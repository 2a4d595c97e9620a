// Package app is the composition root. Bootstrap stays
// orchestration-only: construction and wiring, no business logic.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/riverqueue/river"

	"tribe-notify.io/notify/internal/api/handlers"
	"tribe-notify.io/notify/internal/api/middleware"
	"tribe-notify.io/notify/internal/config"
	"tribe-notify.io/notify/internal/domain"
	"tribe-notify.io/notify/internal/infrastructure"
	"tribe-notify.io/notify/internal/jobs"
	"tribe-notify.io/notify/internal/notification"
	"tribe-notify.io/notify/internal/pkg/logger"
	"tribe-notify.io/notify/internal/pkg/worker"
	"tribe-notify.io/notify/internal/repository"
	"tribe-notify.io/notify/internal/service"
	"tribe-notify.io/notify/internal/transport"
)

const tokenIssuer = "tribe-notify"

// Application holds composed application dependencies.
type Application struct {
	Config *config.Config
	Router *gin.Engine
	DB     *infrastructure.DatabaseClients
	Pools  *worker.Pools
	Engine *notification.Engine
}

// Bootstrap initializes all dependencies using manual DI.
func Bootstrap(ctx context.Context, cfg *config.Config) (*Application, error) {
	db, err := infrastructure.NewDatabaseClients(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	if cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("auto-migrate: %w", err)
		}
	}

	pools, err := worker.NewPools(ctx, worker.PoolConfig{
		GeneralPoolSize:  cfg.Worker.GeneralPoolSize,
		DeliveryPoolSize: cfg.Worker.DeliveryPoolSize,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init worker pools: %w", err)
	}

	store := repository.New(db.Pool)
	registry := newTransportRegistry(cfg.Delivery)

	engine, err := notification.New(notification.Params{
		Store:        store,
		Sender:       registry,
		DeliveryPool: pools.Delivery,
		Policy:       domain.DegradationPolicy(cfg.Delivery.DegradationPolicy),
		DigestHour:   cfg.Digest.DeliveryHour,
		Location:     cfg.Digest.Location(),
		BatchSize:    cfg.Delivery.BatchSize,
		MaxAttempts:  cfg.Delivery.MaxAttempts,
		RetryBackoff: cfg.Delivery.RetryBackoff,
		Logger:       logger.L(),
	})
	if err != nil {
		pools.Shutdown()
		db.Close()
		return nil, fmt.Errorf("init notification engine: %w", err)
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, jobs.NewDeliverySweepWorker(engine, cfg.Delivery.BatchSize))
	river.AddWorker(workers, jobs.NewJobCleanupWorker(store, cfg.Delivery.JobRetention))
	if err := db.InitRiverClient(workers, cfg.River); err != nil {
		pools.Shutdown()
		db.Close()
		return nil, fmt.Errorf("init river workers: %w", err)
	}

	// The sweep drains due jobs every interval and once at startup so a
	// restart never strands overdue deliveries. Cleanup runs daily.
	db.RiverClient.PeriodicJobs().Add(
		river.NewPeriodicJob(
			river.PeriodicInterval(cfg.Delivery.SweepInterval),
			func() (river.JobArgs, *river.InsertOpts) {
				return jobs.DeliverySweepArgs{}, nil
			},
			&river.PeriodicJobOpts{RunOnStart: true},
		),
	)
	db.RiverClient.PeriodicJobs().Add(
		river.NewPeriodicJob(
			river.PeriodicInterval(24*time.Hour),
			func() (river.JobArgs, *river.InsertOpts) {
				return jobs.JobCleanupArgs{}, nil
			},
			&river.PeriodicJobOpts{RunOnStart: true},
		),
	)

	prefTokens := service.NewPreferenceTokenManager(
		[]byte(cfg.Security.PreferenceSigningKey),
		tokenIssuer,
		cfg.Security.PreferenceTokenTTL,
		store,
	)

	jwtCfg := middleware.JWTConfig{
		SigningKey: []byte(cfg.Security.JWTSigningKey),
		Issuer:     tokenIssuer,
		ExpiresIn:  24 * time.Hour,
	}

	server := handlers.NewServer(handlers.ServerDeps{
		Pool:       db.Pool,
		Store:      store,
		Engine:     engine,
		PrefTokens: prefTokens,
		Pools:      pools,
		JWTCfg:     jwtCfg,
	})

	return &Application{
		Config: cfg,
		Router: newRouter(cfg, server, jwtCfg.SigningKey),
		DB:     db,
		Pools:  pools,
		Engine: engine,
	}, nil
}

// newTransportRegistry wires the configured channel providers. Channels
// without a base URL stay unregistered; jobs for them fail delivery and
// retry, which surfaces the misconfiguration in logs instead of
// silently dropping jobs.
func newTransportRegistry(cfg config.DeliveryConfig) *transport.Registry {
	registry := transport.NewRegistry()
	if cfg.Email.BaseURL != "" {
		registry.Register(domain.ChannelEmail, transport.NewEmailTransport(cfg.Email))
	}
	if cfg.SMS.BaseURL != "" {
		registry.Register(domain.ChannelSMS, transport.NewSMSTransport(cfg.SMS))
	}
	if cfg.WhatsApp.BaseURL != "" {
		registry.Register(domain.ChannelWhatsApp, transport.NewWhatsAppTransport(cfg.WhatsApp))
	}
	return registry
}
