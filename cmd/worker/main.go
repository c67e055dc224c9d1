package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/CGImain/product-calculator-for-chemo/internal/common"
	"github.com/CGImain/product-calculator-for-chemo/internal/config"
	"github.com/CGImain/product-calculator-for-chemo/internal/mailer"
	"github.com/CGImain/product-calculator-for-chemo/internal/obs"
	"github.com/CGImain/product-calculator-for-chemo/internal/quotation"
	"github.com/CGImain/product-calculator-for-chemo/internal/queue"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().
		Str("component", "worker").
		Str("env", cfg.AppEnv).
		Logger()

	obs.MustRegisterDomainMetrics("cgi", nil)

	var sender common.EmailSender = common.NopEmailSender{}
	if cfg.EmailConfigured() {
		sender = mailer.New(mailer.Config{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.EmailFrom,
			FromName: cfg.EmailName,
		})
	} else {
		logger.Warn().Msg("smtp not configured, queued emails will be dropped")
	}

	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.QueueConcurrency,
		Queues:      map[string]int{queue.DefaultQueue: 1},
	})

	mux := asynq.NewServeMux()
	consumer := &quotation.Consumer{Sender: sender, Log: logger}
	consumer.Register(mux)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		logger.Info().Msg("shutting down worker")
		srv.Shutdown()
	}()

	logger.Info().Int("concurrency", cfg.QueueConcurrency).Msg("worker starting")
	if err := srv.Run(mux); err != nil {
		logger.Fatal().Err(err).Msg("worker exited unexpectedly")
	}
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}
