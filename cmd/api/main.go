package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/bhadrakali/chit-ledger/internal/config"
	"github.com/bhadrakali/chit-ledger/internal/handlers"
	"github.com/bhadrakali/chit-ledger/internal/ledger"
	"github.com/bhadrakali/chit-ledger/internal/notify"
	"github.com/bhadrakali/chit-ledger/internal/queue"
	"github.com/bhadrakali/chit-ledger/internal/reconcile"
	"github.com/bhadrakali/chit-ledger/internal/remote"
	"github.com/bhadrakali/chit-ledger/internal/repository"
	xhttp "github.com/bhadrakali/chit-ledger/pkg/http"
	"github.com/bhadrakali/chit-ledger/pkg/logger"
	"github.com/bhadrakali/chit-ledger/pkg/pg"
	"github.com/bhadrakali/chit-ledger/pkg/prom"
	"github.com/bhadrakali/chit-ledger/pkg/redis"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {

	err := config.Load(argContainsEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}

	// transport (tcp for now)
	s := xhttp.NewServer(xhttp.DefaultServerOption)
	s.Server.ReadBufferSize = 1024 * 16
	s.Server.WriteBufferSize = 1024 * 16
	s.Use(xhttp.CompressMiddleware(6))
	s.Use(xhttp.TimeoutMiddleware(time.Second * 5))
	s.Use(xhttp.RequestLoggerMiddleware)
	s.Use(xhttp.RecoverMiddleware)
	s.Router = xhttp.CreateDefaultRouter()

	// local snapshot store
	db, err := gorm.Open(sqlite.Open(config.Get().SQLitePath), &gorm.Config{})
	if err != nil {
		logger.Error("failed opening sqlite store", "path", config.Get().SQLitePath, "error", err)
		return
	}
	snapshots := repository.NewSnapshotRepository(db)
	if err := snapshots.Migrate(); err != nil {
		logger.Error("failed migrating sqlite store", "error", err)
		return
	}

	var opts []ledger.Option
	if config.Get().AdminSeedPasswordHash != "" {
		opts = append(opts, ledger.WithAdminSeed(config.Get().AdminSeedUsername, config.Get().AdminSeedPasswordHash))
	}

	book, err := ledger.New(snapshots, opts...)
	if err != nil {
		logger.Error("failed loading ledger", "error", err)
		return
	}

	var hostname string
	hostname, err = os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	err = prom.Create(hostname, config.Get().AppEnv, config.Get().PromNamespace)
	if err != nil {
		logger.Error("failed to create prometheus metrics", "error", err)
		return
	}

	// remote snapshot store, picked by mode
	store, err := buildRemoteStore()
	if err != nil {
		logger.Error("failed building remote store", "mode", config.Get().RemoteMode, "error", err)
		return
	}

	engine := reconcile.NewEngine(book, store)
	scheduler := reconcile.NewScheduler(engine, reconcile.SchedulerConfig{
		Debounce:    config.Get().SyncDebounce,
		SyncTimeout: config.Get().SyncTimeout,
	})
	book.SetDirtySignal(scheduler)

	// reminder outbox, only when redis is configured
	var reminders handlers.ReminderService
	if config.Get().RedisAddr != "" {
		redisAdap, err := redis.NewRedisAdapter("default", config.Get().RedisUniversalKeyPrefix, &redis.Options{
			Addrs:      []string{config.Get().RedisAddr},
			ClientName: "default",
			DB:         config.Get().RedisDatabase,
			Username:   config.Get().RedisUsername,
			Password:   config.Get().RedisPassword,
		})
		if err != nil {
			logger.Error("failed connecting to redis", "error", err)
			return
		}
		q, err := queue.NewQueue(redisAdap, queue.Config{
			Name:              config.Get().QueueName,
			ConsumerGroup:     config.Get().QueueConsumerGroup,
			ConsumerName:      config.Get().QueueConsumerName,
			MaxRetries:        config.Get().QueueMaxRetries,
			VisibilityTimeout: config.Get().QueueVisibilityTimeout,
			PollInterval:      config.Get().QueuePollInterval,
			BatchSize:         config.Get().QueueBatchSize,
			MaxLen:            config.Get().QueueMaxLen,
			EnableDLQ:         config.Get().QueueEnableDLQ,
		})
		if err != nil {
			logger.Error("failed creating outbox queue", "error", err)
			return
		}
		outbox := notify.NewOutbox(book, q, redisAdap, notify.OutboxConfig{
			DedupTTL: config.Get().NotifyDedupTTL,
		})
		book.SetNotifier(outbox)
		reminders = outbox
	} else {
		logger.Warn("redis not configured, reminders and receipts are disabled")
	}

	// v1 handlers
	ledgerHandler := handlers.NewLedgerHandler(book, reminders)
	syncHandler := handlers.NewSyncHandler(scheduler, book)
	healthHandler := handlers.NewHealthHandler(nil)

	g := s.Router.Group("/api/v1")
	handlers.RegisterLedgerRoutes(g, ledgerHandler)
	handlers.RegisterSyncRoutes(g, syncHandler)
	handlers.RegisterHealthRoutes(g, healthHandler)

	if config.Get().AppDebugMetricsAddr != "" {
		go func() {
			prom.ListenAndServer(config.Get().AppDebugMetricsAddr, "/metrics")
		}()
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		var err = s.ListenAndServe(config.Get().HttpListenAddr)
		if err != nil {
			logger.Error("error in running http-server", "error", err)
		}
	}()

	<-c
	// flush pending changes before the process dies
	scheduler.SyncNow()
	scheduler.Close()
	s.Shutdown()
}

func buildRemoteStore() (remote.Store, error) {
	switch config.Get().RemoteMode {
	case "rest":
		return remote.NewRESTStore(remote.RESTConfig{
			BaseURL:    config.Get().RemoteBaseURL,
			APIKey:     config.Get().RemoteAPIKey,
			Table:      config.Get().RemoteTable,
			RowID:      config.Get().RemoteRowID,
			Timeout:    config.Get().RemoteTimeout,
			MaxRetries: config.Get().RemoteMaxRetries,
		})
	case "postgres":
		readConf := pg.Config{
			User:     config.Get().PostgresReadUser,
			Host:     config.Get().PostgresReadHost,
			Port:     config.Get().PostgresReadPort,
			Password: config.Get().PostgresReadPassword,
			Database: config.Get().PostgresReadDatabase,
		}
		writeConf := pg.Config{
			User:     config.Get().PostgresWriteUser,
			Host:     config.Get().PostgresWriteHost,
			Port:     config.Get().PostgresWritePort,
			Password: config.Get().PostgresWritePassword,
			Database: config.Get().PostgresWriteDatabase,
		}
		db, err := pg.CreateReadWrite(readConf, writeConf, config.Get().AppEnv == "dev")
		if err != nil {
			return nil, err
		}
		return remote.NewPostgresStore(db, config.Get().RemoteRowID), nil
	default:
		return remote.Disabled{}, nil
	}
}

func argContainsEnvPath() string {
	for _, v := range os.Args {
		if strings.Contains(v, "--env=") {
			s := strings.Split(v, "=")
			if _, err := os.Open(s[1]); err != nil {
				logger.Error("failed to open the passed env file, got error" + err.Error())
				return ""
			}
			return s[1]
		}
	}
	return ""
}
