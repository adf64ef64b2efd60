package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"donation_bot/internal/catalog"
	"donation_bot/internal/config"
	"donation_bot/internal/conversation"
	"donation_bot/internal/domain"
	"donation_bot/internal/feature/user"
	"donation_bot/internal/i18n"
	"donation_bot/internal/logging"
	"donation_bot/internal/metrics"
	"donation_bot/internal/server"
	"donation_bot/internal/session"
	"donation_bot/internal/store"
	"donation_bot/internal/telegram"
)

const (
	mongoConnectTimeout     = 10 * time.Second
	mongoIndexTimeout       = 5 * time.Second
	mongoDisconnectTimeout  = 5 * time.Second
	redisConnectTimeout     = 5 * time.Second
	webhookSetupTimeout     = 10 * time.Second
	telegramShutdownTimeout = 10 * time.Second
	httpShutdownTimeout     = 5 * time.Second
)

func main() {
	configOnly := flag.Bool("config-only", false, "load and print configuration then exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.Error("configuration error", logging.Fields{"error": err})
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.Setup(cfg)
	if err != nil {
		logging.Error("logger setup error", logging.Fields{"error": err})
		fmt.Fprintf(os.Stderr, "logger setup error: %v\n", err)
		os.Exit(1)
	}

	if *configOnly {
		logging.Info("configuration check", logging.Fields{"event": "config_only"})
		fmt.Println("configuration check: ok")
		fmt.Println(config.FormatRedacted(cfg))
		return
	}

	logger.WithFields(logging.Fields{
		"event":    "startup",
		"mongo_db": cfg.MongoDB,
		"run_mode": cfg.RunMode,
	}).Info("configuration loaded")

	connectCtx, cancel := context.WithTimeout(context.Background(), mongoConnectTimeout)
	mongoManager, err := store.NewManager(connectCtx, cfg)
	cancel()
	if err != nil {
		fatal(logger, "mongo connection error", err)
	}

	logger.WithField("event", "mongo_connect").Info("connected to mongo")

	indexCtx, cancelIndexes := context.WithTimeout(context.Background(), mongoIndexTimeout)
	err = mongoManager.EnsureBaseIndexes(indexCtx)
	cancelIndexes()
	if err != nil {
		fatal(logger, "mongo index setup error", err)
	}

	logger.WithField("event", "mongo_indexes").Info("ensured base mongo indexes")

	translator, err := i18n.Load(cfg.DefaultLocale)
	if err != nil {
		fatal(logger, "locale setup error", err)
	}

	promSink, err := metrics.NewPrometheus(prometheus.DefaultRegisterer)
	if err != nil {
		fatal(logger, "metrics setup error", err)
	}
	recorder := metrics.NewMulti(logger, promSink, store.NewEventLog(mongoManager.Events()))

	sessions, closeSessions, err := newSessionStore(cfg, logger)
	if err != nil {
		fatal(logger, "session store setup error", err)
	}

	options := catalog.New(mongoManager.Donations())

	tgClient, err := telegram.NewClient(cfg, logger,
		telegram.WithUserRegistrar(user.NewRegistrar(mongoManager.Users(), logger)),
		telegram.WithLanguageLookup(domain.NewUserRepository(mongoManager.Users())),
	)
	if err != nil {
		fatal(logger, "telegram client setup error", err)
	}

	sender := tgClient.Sender()
	flow := conversation.NewFlow(sessions, sender, translator, recorder, options, cfg.DefaultLocale, logger)
	menu := conversation.NewMenu(options, sender, translator, cfg.DefaultConfessionID, cfg.DefaultLocale, logger)
	tgClient.RegisterDonations(flow, menu)

	logger.WithField("event", "telegram_ready").Info("telegram client initialized")

	serverOpts := []server.Option{server.WithMetrics(promhttp.Handler())}
	if cfg.IsWebhook() {
		serverOpts = append(serverOpts, server.WithWebhook(tgClient, telegram.NewNormalizer(cfg.FixWrappedIDs), cfg.WebhookSecret, promSink))
	}
	httpServer := server.NewServer(cfg.HTTPPort, mongoManager, logger, serverOpts...)

	httpErr := make(chan error, 1)
	go func() {
		httpErr <- httpServer.ListenAndServe()
	}()

	signalCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	telegramCtx, cancelTelegram := context.WithCancel(context.Background())
	tgDone := make(chan struct{})

	if cfg.IsWebhook() {
		setupCtx, cancelSetup := context.WithTimeout(context.Background(), webhookSetupTimeout)
		err := tgClient.SetWebhook(setupCtx, cfg.WebhookURL, cfg.WebhookSecret)
		cancelSetup()
		if err != nil {
			fatal(logger, "webhook setup error", err)
		}
		close(tgDone)
	} else {
		setupCtx, cancelSetup := context.WithTimeout(context.Background(), webhookSetupTimeout)
		if err := tgClient.DeleteWebhook(setupCtx); err != nil {
			logger.WithField("event", "telegram_webhook_delete_failed").WithError(err).Warn("failed to clear webhook before polling")
		}
		cancelSetup()

		go func() {
			tgClient.Start(telegramCtx)
			close(tgDone)
		}()
	}

	select {
	case <-signalCtx.Done():
		logger.WithField("event", "shutdown_signal").Info("received termination signal, shutting down")
	case err := <-httpErr:
		if err != nil {
			logger.WithField("event", "http_failed").WithError(err).Error("http server stopped unexpectedly")
		}
	case <-pollingDone(cfg, tgDone):
		logger.WithField("event", "telegram_stopped_early").Warn("telegram client stopped before shutdown signal")
	}

	cancelTelegram()

	waitCtx, cancelWait := context.WithTimeout(context.Background(), telegramShutdownTimeout)
	select {
	case <-tgDone:
	case <-waitCtx.Done():
		logger.WithField("event", "telegram_shutdown_timeout").Warn("timed out waiting for telegram client to stop")
	}
	cancelWait()

	httpCtx, cancelHTTP := context.WithTimeout(context.Background(), httpShutdownTimeout)
	if err := httpServer.Shutdown(httpCtx); err != nil {
		logger.WithError(err).Error("http shutdown error")
	}
	cancelHTTP()

	if err := closeSessions(); err != nil {
		logger.WithError(err).Error("session store close error")
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), mongoDisconnectTimeout)
	if err := mongoManager.Close(shutdownCtx); err != nil {
		logger.WithError(err).Error("mongo disconnect error")
	} else {
		logger.WithField("event", "mongo_disconnect").Info("mongo client disconnected")
	}
	cancelShutdown()

	logger.WithField("event", "shutdown_complete").Info("shutdown complete")
}

// newSessionStore uses redis when REDIS_URL is set so dialogues survive
// restarts and are shared between replicas.
func newSessionStore(cfg config.Config, logger *logrus.Entry) (session.Store, func() error, error) {
	if cfg.RedisURL == "" {
		logger.WithField("event", "session_store").Info("using in-memory session store")
		return session.NewMemory(cfg.SessionTTL), func() error { return nil }, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisConnectTimeout)
	defer cancel()

	client, err := session.NewRedisClient(ctx, cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, nil, err
	}

	logger.WithField("event", "session_store").Info("using redis session store")
	return session.NewRedis(client, cfg.SessionTTL), client.Close, nil
}

// pollingDone only fires for polling mode; in webhook mode tgDone is closed
// immediately and must not end the process.
func pollingDone(cfg config.Config, tgDone <-chan struct{}) <-chan struct{} {
	if cfg.IsWebhook() {
		return nil
	}
	return tgDone
}

func fatal(logger *logrus.Entry, msg string, err error) {
	logger.WithError(err).Error(msg)
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	os.Exit(1)
}
