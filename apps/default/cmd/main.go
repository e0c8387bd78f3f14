package main

import (
	"context"
	"net/http"
	"time"

	"github.com/pitabwire/frame"
	"github.com/pitabwire/frame/config"
	"github.com/pitabwire/frame/datastore"
	"github.com/pitabwire/frame/datastore/pool"
	"github.com/pitabwire/util"

	mconfig "github.com/shahadathhs/service-media/apps/default/config"
	"github.com/shahadathhs/service-media/apps/default/service/business"
	"github.com/shahadathhs/service-media/apps/default/service/handlers"
	"github.com/shahadathhs/service-media/apps/default/service/queues"
	"github.com/shahadathhs/service-media/apps/default/service/repository"
	"github.com/shahadathhs/service-media/apps/default/service/storage"
	"github.com/shahadathhs/service-media/apps/gateway/service/auth"
	"github.com/shahadathhs/service-media/internal/health"
)

// runService initializes and starts the media service with all dependencies.
func runService(ctx context.Context) error {
	// Initialize configuration
	cfg, err := config.LoadWithOIDC[mconfig.MediaConfig](ctx)
	if err != nil {
		util.Log(ctx).With("err", err).Error("could not process configs")
		return err
	}

	// Validate configuration (fail-fast on invalid config)
	if err = cfg.Validate(); err != nil {
		util.Log(ctx).With("err", err).Error("invalid configuration")
		return err
	}

	if cfg.Name() == "" {
		cfg.ServiceName = "service_media"
	}

	// Create service
	ctx, svc := frame.NewServiceWithContext(ctx, frame.WithConfig(&cfg), frame.WithDatastore())
	defer svc.Stop(ctx)
	log := svc.Log(ctx)

	queueMan := svc.QueueManager()
	workMan := svc.WorkManager()
	dbPool := svc.DatastoreManager().GetPool(ctx, datastore.DefaultPoolName)

	// Handle database migration if requested
	if handleDatabaseMigration(ctx, svc, cfg) {
		return nil
	}

	// Setup AWS backed storage and transcoding
	s3Client, mcClient, err := storage.NewAWSClients(ctx, storage.AWSClientOptions{
		Region:               cfg.AWSRegion,
		AccessKeyID:          cfg.AWSAccessKeyID,
		SecretAccessKey:      cfg.AWSSecretAccessKey,
		MediaConvertEndpoint: cfg.AWSMediaConvertEndpoint,
	})
	if err != nil {
		log.WithError(err).Fatal("main -- Could not setup aws clients")
	}

	objectStore := storage.NewS3Storage(s3Client, cfg.AWSS3BucketName, cfg.AWSRegion)
	converter := storage.NewMediaConvertMerger(
		mcClient, cfg.AWSS3BucketName, cfg.AWSRegion, cfg.AWSMediaConvertRoleARN,
	)

	// Setup repositories and business services
	fileRepo := repository.NewFileInstanceRepository(ctx, dbPool, workMan)
	mergeRepo := repository.NewVideoMergeJobRepository(ctx, dbPool, workMan)

	notifier := business.NewQueueNotifier(&cfg, queueMan)
	fileBusiness := business.NewFileBusiness(&cfg, fileRepo, objectStore, workMan, notifier)
	mergeBusiness := business.NewMergeBusiness(
		&cfg, fileRepo, mergeRepo, objectStore, converter, workMan, notifier,
	)

	// Poll unfinished merge jobs and push status transitions to users
	poller := queues.NewMergeStatusPoller(&cfg, mergeRepo, converter, notifier, workMan)
	poller.Start(ctx)
	defer poller.Stop()

	verifier := auth.NewJWTVerifier(cfg.JWTSecret)
	mediaHandler := handlers.NewMediaHandler(fileBusiness, mergeBusiness, verifier, cfg.MaxUploadSizeMB)

	// Setup health checks
	healthHandler := setupHealthChecks(ctx, dbPool)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", healthHandler.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)
	mux.Handle("/", mediaHandler.Handler())

	serviceOptions := []frame.Option{frame.WithHTTPHandler(mux)}

	// Register one delivery publisher per gateway shard
	for i := range cfg.TotalShards {
		notificationQueuePublisher := frame.WithRegisterPublisher(
			cfg.NotificationQueueName(i),
			cfg.QueueNotificationDeliveryURI[i],
		)
		serviceOptions = append(serviceOptions, notificationQueuePublisher)
	}

	// Initialize the service with all options
	svc.Init(ctx, serviceOptions...)

	// Start the service
	return svc.Run(ctx, "")
}

func main() {
	ctx := context.Background()
	if err := runService(ctx); err != nil {
		util.Log(ctx).WithError(err).Fatal("could not run service")
	}
}

// setupHealthChecks creates the health check handler with database checker.
func setupHealthChecks(_ context.Context, dbPool pool.Pool) *health.Handler {
	handler := health.NewHandler()

	dbChecker := health.NewDatabaseChecker(dbPool, 5*time.Second)
	handler.AddChecker(dbChecker)

	return handler
}

// handleDatabaseMigration performs database migration if configured to do so.
func handleDatabaseMigration(ctx context.Context, svc *frame.Service, cfg mconfig.MediaConfig) bool {
	if !cfg.DoDatabaseMigrate() {
		return false
	}

	err := repository.Migrate(ctx, svc, cfg.GetDatabaseMigrationPath())
	if err != nil {
		util.Log(ctx).WithError(err).Fatal("main -- Could not migrate successfully")
	}
	return true
}
