package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bhadrakali/chit-ledger/internal/config"
	"github.com/bhadrakali/chit-ledger/internal/notify"
	"github.com/bhadrakali/chit-ledger/internal/queue"
	"github.com/bhadrakali/chit-ledger/pkg/logger"
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

	// deliver through the webhook bridge when configured, otherwise just
	// log the wa.me link for manual forwarding
	var sender notify.Sender = notify.LogSender{}
	if config.Get().NotifyWebhookURL != "" {
		sender = &notify.WebhookSender{
			URL:     config.Get().NotifyWebhookURL,
			Timeout: 10 * time.Second,
		}
	}

	dispatcher := notify.NewDispatcher(q, sender, notify.DispatcherConfig{
		Workers: config.Get().NotifyWorkers,
	})

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

	if config.Get().AppDebugMetricsAddr != "" {
		go func() {
			prom.ListenAndServer(config.Get().AppDebugMetricsAddr, "/metrics")
		}()
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := dispatcher.Start(); err != nil {
			logger.Error("failed to start dispatcher", "error", err)
		}
	}()

	<-c
	if err := dispatcher.Stop(10 * time.Second); err != nil {
		logger.Error("dispatcher shutdown error", "error", err)
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
