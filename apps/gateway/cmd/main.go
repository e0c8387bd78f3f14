package main

import (
	"context"
	"net/http"
	"time"

	"github.com/pitabwire/frame"
	"github.com/pitabwire/frame/cache"
	"github.com/pitabwire/frame/cache/jetstreamkv"
	"github.com/pitabwire/frame/cache/valkey"
	"github.com/pitabwire/frame/config"
	"github.com/pitabwire/frame/data"
	"github.com/pitabwire/frame/datastore"
	"github.com/pitabwire/util"

	"github.com/shahadathhs/service-media/apps/default/service/repository"
	gtwconfig "github.com/shahadathhs/service-media/apps/gateway/config"
	"github.com/shahadathhs/service-media/apps/gateway/service/auth"
	"github.com/shahadathhs/service-media/apps/gateway/service/business"
	"github.com/shahadathhs/service-media/apps/gateway/service/handlers"
	"github.com/shahadathhs/service-media/apps/gateway/service/queues"
	"github.com/shahadathhs/service-media/internal/health"
)

const gracefulShutdownTimeout = 30 * time.Second

func main() {
	ctx := context.Background()

	// Initialize configuration
	cfg, err := config.LoadWithOIDC[gtwconfig.GatewayConfig](ctx)
	if err != nil {
		util.Log(ctx).With("err", err).Error("could not process configs")
		return
	}

	// Validate configuration (fail-fast on invalid config)
	if err = cfg.Validate(); err != nil {
		util.Log(ctx).With("err", err).Error("invalid configuration")
		return
	}

	if cfg.Name() == "" {
		cfg.ServiceName = "service_media_gateway"
	}

	rawCache, err := setupCache(ctx, cfg)
	if err != nil {
		util.Log(ctx).WithError(err).Fatal("could not setup cache")
	}

	// Create service - the datastore backs identity resolution against the
	// shared user table
	ctx, svc := frame.NewServiceWithContext(ctx, frame.WithConfig(&cfg),
		frame.WithCache(cfg.CacheName, rawCache), frame.WithDatastore())
	defer svc.Stop(ctx)
	log := svc.Log(ctx)

	qManager := svc.QueueManager()
	workMan := svc.WorkManager()
	dbPool := svc.DatastoreManager().GetPool(ctx, datastore.DefaultPoolName)

	// Token verification and identity resolution
	verifier := auth.NewJWTVerifier(cfg.JWTSecret)
	resolver := auth.NewDatastoreResolver(repository.NewUserRepository(ctx, dbPool, workMan))

	// Setup connection manager
	connectionManager := business.NewConnectionManager(
		ctx,
		verifier,
		resolver,
		rawCache,
		cfg.MaxConnections,
		cfg.HandshakeTimeoutSec,
		cfg.ConnectionTimeoutSec,
		cfg.HeartbeatIntervalSec,
		cfg.MaxEventsPerSecond,
	)
	// Graceful shutdown: drain connections and stop background tasks.
	// Defers run LIFO: connectionManager shuts down before svc.Stop.
	defer func() {
		drainCtx, drainCancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
		defer drainCancel()
		if shutdownErr := connectionManager.Shutdown(drainCtx); shutdownErr != nil {
			util.Log(drainCtx).WithError(shutdownErr).Error("connection manager shutdown error")
		}
		connectionManager.DrainConnections(drainCtx)
	}()

	// Subscribe to this shard's notification delivery queue
	notificationQueueSubscriber := frame.WithRegisterSubscriber(
		cfg.NotificationQueueName(), cfg.NotificationQueueURI(),
		queues.NewNotificationDeliveryQueueHandler(&cfg, qManager, connectionManager.Dispatcher()),
	)

	// Setup the websocket endpoint and health checks
	gatewayHandler := handlers.NewGatewayHandler(svc, connectionManager, cfg.Origins(), cfg.WriteTimeoutSec)
	healthHandler := health.NewHandler()
	healthHandler.AddChecker(health.NewDatabaseChecker(dbPool, 5*time.Second))
	healthHandler.AddChecker(health.NewCacheChecker(rawCache, 5*time.Second))

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", healthHandler.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)
	mux.Handle("/", gatewayHandler.Handler())

	// Initialize the service with all options
	svc.Init(ctx, notificationQueueSubscriber, frame.WithHTTPHandler(mux))

	// Start the service
	err = svc.Run(ctx, "")
	if err != nil {
		log.WithError(err).Fatal("could not run Server")
	}
}

func setupCache(_ context.Context, cfg gtwconfig.GatewayConfig) (cache.RawCache, error) {
	cacheDSN := data.DSN(cfg.CacheURI)

	cacheOptions := []cache.Option{
		cache.WithDSN(cacheDSN),
	}

	if cfg.CacheCredentialsFile != "" {
		cacheOptions = append(cacheOptions, cache.WithCredsFile(cfg.CacheCredentialsFile))
	}

	switch {
	case cacheDSN.IsNats():
		// Setup cache for connection metadata
		return jetstreamkv.New(cacheOptions...)
	case cacheDSN.IsRedis():
		return valkey.New(cacheOptions...)
	default:
		return cache.NewInMemoryCache(), nil
	}
}
