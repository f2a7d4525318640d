package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/inngest/inngestgo"
	"github.com/shampsdev/gopadel-sub001/internal/catalog"
	"github.com/shampsdev/gopadel-sub001/internal/club"
	"github.com/shampsdev/gopadel-sub001/internal/config"
	"github.com/shampsdev/gopadel-sub001/internal/database"
	server "github.com/shampsdev/gopadel-sub001/internal/http"
	"github.com/shampsdev/gopadel-sub001/internal/identity"
	"github.com/shampsdev/gopadel-sub001/internal/inngest"
	"github.com/shampsdev/gopadel-sub001/internal/leaderboard"
	"github.com/shampsdev/gopadel-sub001/internal/metrics"
	"github.com/shampsdev/gopadel-sub001/internal/notifier"
	"github.com/shampsdev/gopadel-sub001/internal/notifier/slack"
	"github.com/shampsdev/gopadel-sub001/internal/notifier/telegram"
	"github.com/shampsdev/gopadel-sub001/internal/payment"
	"github.com/shampsdev/gopadel-sub001/internal/payment/yookassa"
	"github.com/shampsdev/gopadel-sub001/internal/processor"
	"github.com/shampsdev/gopadel-sub001/internal/pubsub"
	"github.com/shampsdev/gopadel-sub001/internal/registration"
	"github.com/shampsdev/gopadel-sub001/internal/scheduler"
	"github.com/shampsdev/gopadel-sub001/internal/store"
	"github.com/shampsdev/gopadel-sub001/internal/waitlist"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Start profiling timer
	startTime := time.Now()
	log.SetFormatter(log.JSONFormatter)
	cfg := config.Load()
	db, dbTeardown, err := database.InitDB(cfg.DBName, cfg.Turso.PrimaryURL, cfg.Turso.AuthToken, cfg.MigrationsDir)
	dbInitDuration := time.Since(startTime)
	log.Info("Database initialization time recorded", "duration_ms", dbInitDuration.Milliseconds())
	if err != nil {
		log.Fatalf("Failed to initialize database: %s", err)
	}
	defer func() {
		log.Info("Closing database connection")
		dbTeardown()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clubStore := club.New(db)
	participation := store.New(db)
	metricsSvc := metrics.NewService()
	metricsHandler := metrics.NewMetricsHandler()

	var (
		ps    pubsub.PubSubClient
		local *pubsub.Local
		nc    *pubsub.NATSClient
	)
	switch cfg.PubSub.Backend {
	case "gcp":
		ps = pubsub.New(cfg.PubSub.ProjectID)
		if cfg.PubSub.PushToken == "" {
			log.Warn("PUBSUB_PUSH_TOKEN is not set, /pubsub pushes are accepted without a token")
		}
	case "nats":
		nc, err = pubsub.NewNATS(cfg.PubSub.NATSURL, cfg.PubSub.NATSToken)
		if err != nil {
			log.Fatalf("Failed to connect to NATS: %s", err)
		}
		ps = nc
	default:
		local = pubsub.NewLocal()
		ps = local
	}
	defer ps.Close()

	var notifiers notifier.Multi
	var slackNotifier *slack.Notifier
	if cfg.Slack.Token != "" {
		slackNotifier = slack.NewNotifier(cfg.Slack.Token, cfg.Slack.ChannelID, cfg.DryRun, metricsSvc)
		notifiers = append(notifiers, slackNotifier)
	}
	if cfg.Telegram.BotToken != "" {
		tg, err := telegram.NewNotifier(cfg.Telegram.BotToken, cfg.DryRun, metricsSvc)
		if err != nil {
			log.Fatalf("Failed to initialize telegram bot: %s", err)
		}
		notifiers = append(notifiers, tg)
	}

	registrations := registration.New(participation, ps, metricsSvc)
	waitlistManager := waitlist.New(participation, registrations, metricsSvc)
	var payments *payment.Coordinator
	if cfg.Payment.Enabled() {
		gateway := yookassa.NewClient(cfg.Payment.ShopID, cfg.Payment.SecretKey)
		gateway.BaseURL = cfg.Payment.BaseURL
		payments = payment.New(participation, gateway, ps, metricsSvc, cfg.Payment.Currency)
	}
	proc := processor.New(participation, waitlistManager, notifiers, metricsSvc, cfg.AutoPromote)

	lifecycleHandler := pubsub.Handler(proc.Handle)
	var inngestHandler http.Handler
	jobs := scheduler.Config{
		ReconcileInterval: cfg.Jobs.ReconcileInterval,
		ReconcileAfter:    cfg.Jobs.ReconcileAfter,
		AuditInterval:     cfg.Jobs.AuditInterval,
	}
	if cfg.Inngest.Enabled() {
		options := inngestgo.ClientOpts{
			AppID:      cfg.Inngest.AppID,
			SigningKey: &cfg.Inngest.SigningKey,
			EventKey:   &cfg.Inngest.EventKey,
		}
		inngestProvider, err := inngestgo.NewClient(options)
		if err != nil {
			log.Fatalf("Failed to initialize inngest: %s", err)
		}
		inngestClient, err := inngest.New(inngestProvider, proc, cfg.Inngest.AuditCron)
		if err != nil {
			log.Fatalf("Failed to register inngest functions: %s", err)
		}
		inngestHandler = inngestClient.Serve()
		lifecycleHandler = inngest.Forwarder(inngestClient, proc)
		// The audit runs as an Inngest cron instead.
		jobs.AuditInterval = 0
	}
	if local != nil {
		local.SetHandler(lifecycleHandler)
	}

	var reconciler scheduler.Reconciler
	if payments != nil {
		reconciler = payments
	}
	sched, err := scheduler.New(jobs, reconciler, proc)
	if err != nil {
		log.Fatalf("Failed to initialize scheduler: %s", err)
	}

	services := server.Services{
		DB:            db,
		Members:       clubStore,
		Events:        catalog.New(participation),
		Registrations: registrations,
		Waitlist:      waitlistManager,
		Payments:      payments,
		Leaderboard:   leaderboard.New(participation),
		Identity:      identity.NewJWTResolver(cfg.AuthSecret),
		Lifecycle:     lifecycleHandler,
		PubSub:        ps,
		Inngest:       inngestHandler,
	}
	if slackNotifier != nil {
		services.SlackFormatter = slackNotifier
	}
	s := server.NewServer(services, metricsSvc, metricsHandler, cfg)

	// --- Record startup time ---
	startupDuration := time.Since(startTime)
	metricsSvc.SetStartupTime(startupDuration.Seconds())
	log.Info("Startup time recorded", "duration_ms", startupDuration.Milliseconds())

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Server started", "port", cfg.Port, "pubsub", cfg.PubSub.Backend, "payments", payments != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return sched.Run(gctx)
	})
	if nc != nil {
		g.Go(func() error {
			return nc.Consume(gctx, lifecycleHandler)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutdown signal received")

		// Create a context with a timeout for the shutdown.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("Server shutdown failed", "error", err)
			return err
		}
		log.Info("Server gracefully stopped")
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("Server process exited with error", "error", err)
	}
	log.Info("Server process shutting down")
}
