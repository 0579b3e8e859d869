package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"conference/internal/core/domain"
	"conference/internal/core/services"
	httphandlers "conference/internal/handlers/http"
	"conference/internal/infrastructure/backend"
	"conference/internal/infrastructure/locking"
	"conference/internal/infrastructure/monitoring"
	"conference/internal/infrastructure/notify"
	"conference/internal/infrastructure/outbox"
	"conference/internal/infrastructure/repositories/postgres"
	"conference/internal/infrastructure/scheduler"
	storageinfra "conference/internal/infrastructure/storage"
	"conference/pkg/circuitbreaker"
	"conference/pkg/config"
	"conference/pkg/distributed"
	"conference/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	configPaths := []string{
		"configs/config.yaml",
		"./configs/config.yaml",
		"/etc/conference/config.yaml",
		"config.yaml",
	}

	var cfg *config.Config
	var err error
	for _, path := range configPaths {
		cfg, err = config.Load(path)
		if err == nil {
			break
		}
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	zapLogger := logger.New(cfg.Logging.Level)
	defer zapLogger.Sync()
	log := zapLogger.Sugar()

	publicKey, err := jwt.ParseRSAPublicKeyFromPEM([]byte(cfg.Auth.JWTPublicKeyPEM))
	if err != nil {
		log.Fatalw("failed to parse jwt public key", "error", err)
	}

	db, err := gorm.Open(gormpostgres.Open(cfg.Postgres.DSN), &gorm.Config{})
	if err != nil {
		log.Fatalw("failed to connect to postgres", "error", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(cfg.Postgres.PoolSize)
		sqlDB.SetMaxIdleConns(cfg.Postgres.IdleSize)
		sqlDB.SetConnMaxLifetime(cfg.Postgres.MaxLifetime)
	}
	if err := postgres.Migrate(db); err != nil {
		log.Fatalw("failed to run database migrations", "error", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	defer redisClient.Close()

	amqpConn, err := amqp.Dial(cfg.Bus.AMQPURL)
	if err != nil {
		log.Fatalw("failed to connect to rabbitmq", "error", err)
	}
	defer amqpConn.Close()

	minioClient, err := minio.New(cfg.Recording.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Recording.AccessKey, cfg.Recording.SecretKey, ""),
		Secure: cfg.Recording.UseSSL,
	})
	if err != nil {
		log.Fatalw("failed to build recording storage client", "error", err)
	}

	// Repositories
	uow := postgres.NewUnitOfWork(db)
	rooms := postgres.NewRoomRepository(db)
	rtcs := postgres.NewRTCRepository(db)
	agents := postgres.NewAgentRepository(db)
	conns := postgres.NewAgentConnectionRepository(db)
	backends := postgres.NewBackendRepository(db)
	streams := postgres.NewStreamRepository(db)
	recordings := postgres.NewRecordingRepository(db)
	writerConfigs := postgres.NewWriterConfigRepository(db)
	readerConfigs := postgres.NewReaderConfigRepository(db)
	groups := postgres.NewGroupRepository(db)
	orphans := postgres.NewOrphanedRoomRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)

	// Notification transport (C5)
	hub := notify.NewHub(5*time.Second, log)
	broker := notify.NewBroker(redisClient, hub, log)
	bus, err := notify.NewBus(amqpConn, log)
	if err != nil {
		log.Fatalw("failed to open event bus channel", "error", err)
	}
	dispatcher := notify.NewDispatcher(broker, bus)
	notifier := services.NewOutboxNotifier(outboxRepo)

	// Backend transport and health (C2, C3)
	janusClient := backend.NewJanusClient()
	healthPool := backend.NewHealthPool(circuitbreaker.Config{
		FailureThreshold:    cfg.Backend.CircuitBreakerThreshold,
		SuccessThreshold:    2,
		Timeout:             cfg.Backend.CircuitBreakerResetTimeout,
		MaxRequestsHalfOpen: 1,
	})
	prometheusCollector := monitoring.NewPrometheusCollector()
	engine := backend.NewEngine(janusClient, backend.Timeouts{
		Default:             cfg.Backend.DefaultTimeout,
		StreamUpload:        cfg.Backend.StreamUploadTimeout,
		WatchdogCheckPeriod: cfg.Backend.TransactionWatchdogPeriod,
	}, prometheusCollector)
	balancer := services.NewBalancer(backends, healthPool, prometheusCollector)

	// Distributed locking (room read-modify-write) and recording storage
	lockManager := distributed.NewLockManager(redisClient, "conference:lock")
	roomLock := locking.NewRoomLock(lockManager, log)
	recordingStorage := storageinfra.NewRecordingStorage(minioClient, cfg.Recording.Bucket)

	// Core services (C4, C6, C7)
	roomService := services.NewRoomService(rooms, agents, rtcs, orphans, notifier, uow, roomLock)
	rtcService := services.NewRTCService(rooms, rtcs, agents, conns, streams, engine, balancer, notifier, uow)
	signalService := services.NewSignalService(conns, engine)
	configService := services.NewConfigService(writerConfigs, readerConfigs, conns, rtcs, groups, engine, notifier, uow)
	groupService := services.NewGroupService(rooms, groups, notifier, uow)
	streamQueryService := services.NewStreamQueryService(streams)
	vacuumService := services.NewVacuumService(rooms, agents, conns, streams, recordings, orphans, backends, recordingStorage, engine, notifier, uow, log)
	_ = services.NewBackendEventService(conns, streams, backends, engine, notifier, uow)
	videoGroupOrchestrator := services.NewVideoGroupOrchestrator(rooms, rtcs, agents, groups, readerConfigs, conns, engine, notifier, uow, log)

	// Drive room.enter's in_progress -> ready transition off broker
	// subscription confirmation (spec §4.1), instead of a dedicated route.
	hub.OnSubscribe(func(topic string, r *http.Request) {
		roomID, agentID, ok := parseRoomEventsSubscription(topic, r)
		if !ok {
			return
		}
		if err := roomService.ConfirmEntered(context.Background(), agentID, roomID); err != nil {
			log.Warnw("confirm-entered on subscribe failed", "room_id", roomID, "error", err)
		}
	})

	// Background workers
	ctx, cancel := context.WithCancel(context.Background())
	go engine.Run(ctx)
	go outbox.NewWorker(outboxRepo, dispatcher, prometheusCollector, log,
		cfg.Outbox.MessagesPerTry, cfg.Outbox.PollInterval, cfg.Outbox.MaxDeliveryInterval).Run(ctx)
	vac := scheduler.NewVacuumScheduler(vacuumService, cfg.Vacuum.SweepInterval, prometheusCollector, log)
	go vac.Run(ctx)

	// Video-group intent consumer (spec §4.4): this service both produces
	// (groupService.Update) and consumes its own VideoGroup intents.
	if err := bus.Consume(ctx, []domain.EventKind{
		domain.EventVideoGroupCreate, domain.EventVideoGroupUpdate, domain.EventVideoGroupDelete,
	}, func(ctx context.Context, env notify.Envelope) error {
		data, err := json.Marshal(env.Data)
		if err != nil {
			return err
		}
		var intent domain.VideoGroupIntent
		if err := json.Unmarshal(data, &intent); err != nil {
			return err
		}
		return videoGroupOrchestrator.HandleIntent(ctx, intent)
	}); err != nil {
		log.Fatalw("failed to start video group intent consumer", "error", err)
	}

	// Health checks
	healthChecker := monitoring.NewHealthChecker()
	healthChecker.AddPostgresCheck(db, 30*time.Second, 2*time.Second)
	healthChecker.AddRedisCheck(redisClient, 30*time.Second, 2*time.Second)
	healthChecker.AddBusCheck(amqpConn, 30*time.Second, 2*time.Second)
	healthChecker.AddCircuitBreakerCheck(healthPool.OpenCount, 30*time.Second, 2*time.Second)
	healthChecker.StartBackgroundChecks(ctx)

	// HTTP surface
	handlers := httphandlers.Handlers{
		Room:   httphandlers.NewRoomHandler(roomService),
		RTC:    httphandlers.NewRTCHandler(rtcService),
		Signal: httphandlers.NewSignalHandler(signalService),
		Config: httphandlers.NewConfigHandler(configService),
		Group:  httphandlers.NewGroupHandler(groupService),
		Stream: httphandlers.NewStreamHandler(streamQueryService),
		System: httphandlers.NewSystemHandler(vacuumService, healthChecker),
	}

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := httphandlers.NewRouter(cfg, publicKey, handlers, hub, log)

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infow("starting conference signaling server", "address", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Fatalw("server failed", "error", err)
	case sig := <-sigChan:
		log.Infow("received shutdown signal", "signal", sig)
	}

	log.Info("shutting down conference signaling server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("error during server shutdown", "error", err)
		if closeErr := srv.Close(); closeErr != nil {
			log.Errorw("error force closing server", "error", closeErr)
		}
	}

	// Stop background workers and let the outbox worker's in-flight poll
	// finish delivering before the process exits (spec §5 graceful drain).
	cancel()
	vac.Stop()
	time.Sleep(cfg.Outbox.DrainDeadline)

	log.Info("conference signaling server stopped")
}

// parseRoomEventsSubscription extracts (room, agent) from a
// rooms/:room_id/events subscription topic, using the X-Agent-Label/
// X-Agent-Audience headers OptionalAuthMiddleware would otherwise have
// stashed on the request context (unavailable here since the websocket
// upgrade bypasses gin's context) — read straight off the request instead.
func parseRoomEventsSubscription(topic string, r *http.Request) (domain.RoomID, domain.AgentID, bool) {
	const prefix = "rooms/"
	const suffix = "/events"
	if len(topic) <= len(prefix)+len(suffix) || topic[:len(prefix)] != prefix {
		return domain.RoomID{}, domain.AgentID{}, false
	}
	raw := topic[len(prefix) : len(topic)-len(suffix)]
	roomID, err := domain.ParseRoomID(raw)
	if err != nil {
		return domain.RoomID{}, domain.AgentID{}, false
	}
	label := r.Header.Get("X-Agent-Label")
	if label == "" {
		return domain.RoomID{}, domain.AgentID{}, false
	}
	return roomID, domain.AgentID{Label: label, Audience: r.Header.Get("X-Agent-Audience")}, true
}
