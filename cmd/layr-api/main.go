// Command layr-api runs the Layr HTTP API.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/layr-ng/layr-api/pkg/access"
	"github.com/layr-ng/layr-api/pkg/api"
	"github.com/layr-ng/layr-api/pkg/auth"
	"github.com/layr-ng/layr-api/pkg/config"
	"github.com/layr-ng/layr-api/pkg/diagrams"
	"github.com/layr-ng/layr-api/pkg/email"
	"github.com/layr-ng/layr-api/pkg/jobs"
	"github.com/layr-ng/layr-api/pkg/middleware"
	"github.com/layr-ng/layr-api/pkg/notifications"
	"github.com/layr-ng/layr-api/pkg/observability"
	"github.com/layr-ng/layr-api/pkg/plan"
	"github.com/layr-ng/layr-api/pkg/sequence"
	"github.com/layr-ng/layr-api/pkg/storage"
	"github.com/layr-ng/layr-api/pkg/storage/postgres"
	"github.com/layr-ng/layr-api/pkg/subscriptions"
	"github.com/layr-ng/layr-api/pkg/teams"
	"github.com/layr-ng/layr-api/pkg/users"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "layr-api: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.WithField("environment", cfg.Environment).Info("starting layr-api")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Connect(ctx, postgres.ConnectionConfig{
		URL:         cfg.Database.URL,
		MaxConns:    cfg.Database.MaxConns,
		MinConns:    cfg.Database.MinConns,
		Timeout:     cfg.Database.Timeout,
		MaxLifetime: cfg.Database.MaxLifetime,
	})
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	if err := postgres.RunMigrations(ctx, db, logger); err != nil {
		return fmt.Errorf("migrations failed: %w", err)
	}

	var metrics *observability.Metrics
	registry := prometheus.NewRegistry()
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(registry)
		postgres.StartStatsReporter(ctx, db, metrics, 0)
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis connection failed: %w", err)
		}
	}

	tokens, err := auth.NewTokenManager(auth.Options{
		SessionSecret:    cfg.Auth.SessionSecret,
		TeamInviteSecret: cfg.Auth.TeamInviteSecret,
		SessionTTL:       cfg.Auth.SessionTTL,
		ResetTokenTTL:    cfg.Auth.ResetTokenTTL,
		InviteTokenTTL:   cfg.Auth.InviteTokenTTL,
		CookieName:       cfg.Auth.CookieName,
		CookieSecure:     cfg.Auth.CookieSecure,
	})
	if err != nil {
		return err
	}

	var mail email.Sender = email.NoopSender{}
	if cfg.Mail.Host != "" {
		mail = email.NewSMTPSender(email.SMTPConfig{
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			User:     cfg.Mail.User,
			Password: cfg.Mail.Password,
			From:     cfg.Mail.From,
		}, logger)
	} else {
		logger.Warn("SMTP is not configured, outbound mail is disabled")
	}

	var thumbnails diagrams.ThumbnailStore
	if cfg.Thumbnails.S3Bucket != "" {
		s3Client, err := storage.NewS3Client(ctx, storage.Config{
			Bucket:     cfg.Thumbnails.S3Bucket,
			Region:     cfg.Thumbnails.S3Region,
			Endpoint:   cfg.Thumbnails.S3Endpoint,
			PathPrefix: cfg.Thumbnails.PathPrefix,
		})
		if err != nil {
			return fmt.Errorf("thumbnail storage setup failed: %w", err)
		}
		thumbnails = s3Client
	} else {
		logger.Warn("S3 is not configured, thumbnail uploads are disabled")
	}

	// Stores.
	userStore := users.NewPostgresStore(db)
	notificationStore := notifications.NewPostgresStore(db)
	diagramStore := diagrams.NewPostgresStore(db, notificationStore)
	teamStore := teams.NewPostgresStore(db)
	subscriptionStore := subscriptions.NewPostgresStore(db)
	sequenceStore := sequence.NewPostgresStore(db)

	// Services.
	userSvc := users.NewService(userStore, tokens, mail, logger, cfg.ClientURL)
	diagramSvc := diagrams.NewService(diagramStore, thumbnails, logger, metrics)
	teamSvc := teams.NewService(teamStore, userStore, tokens, mail, logger, cfg.ClientURL)
	notificationSvc := notifications.NewService(notificationStore)
	subscriptionSvc := subscriptions.NewService(
		subscriptionStore,
		subscriptions.NewFlutterwaveGateway(cfg.Payment.FlutterwaveSecretKey, cfg.Payment.VerifyBaseURL),
		userStore,
		cfg.Pricing,
		logger,
	)
	assistant := sequence.NewWorkersAI(sequence.WorkersAIConfig{
		AccountID: cfg.AI.CloudflareAccountID,
		APIToken:  cfg.AI.CloudflareAPIToken,
		Model:     cfg.AI.Model,
	})
	sequenceSvc := sequence.NewService(assistant, sequenceStore, diagramStore, logger)

	checker := access.NewChecker(access.NewPostgresStore(db), logger, metrics)
	gate := plan.NewGate(plan.NewPostgresStore(db), logger, metrics)

	rateLimit := buildRateLimiter(ctx, redisClient)

	server := api.NewServer(api.Dependencies{
		Logger:        logger,
		Tokens:        tokens,
		Session:       middleware.NewSession(tokens),
		Users:         userSvc,
		Diagrams:      diagramSvc,
		Teams:         teamSvc,
		Subscriptions: subscriptionSvc,
		Notifications: notificationSvc,
		Sequence:      sequenceSvc,
		Access:        checker,
		Gate:          gate,
		RateLimit:     rateLimit,
	})

	scheduler := jobs.NewScheduler(subscriptionSvc, teamStore, logger)
	if err := scheduler.Start(); err != nil {
		return fmt.Errorf("scheduler start failed: %w", err)
	}

	apiServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: healthMux(db, redisClient, registry, cfg.Observability.MetricsEnabled),
	}

	shutdown := observability.NewShutdownManager(logger, apiServer, cfg.Server.ShutdownTimeout)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return healthServer.Shutdown(ctx)
	})
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		scheduler.Stop()
		return nil
	})
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		cancel()
		if redisClient != nil {
			redisClient.Close()
		}
		return db.Close()
	})

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.WithField("addr", apiServer.Addr).Info("API server listening")
		if err := apiServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		logger.WithField("addr", healthServer.Addr).Info("health server listening")
		if err := healthServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(shutdown.WaitForShutdown)

	return g.Wait()
}

func buildRateLimiter(ctx context.Context, redisClient *redis.Client) mux.MiddlewareFunc {
	if redisClient != nil {
		return middleware.NewDistributedRateLimitMiddleware(redisClient).Handler
	}
	limiter := middleware.NewRateLimitMiddleware()
	limiter.StartCleanup(ctx)
	return limiter.Handler
}

func healthMux(db *sql.DB, redisClient *redis.Client, registry *prometheus.Registry, metricsEnabled bool) http.Handler {
	checker := observability.NewHealthChecker(db, redisClient)

	m := http.NewServeMux()
	m.HandleFunc("/healthz", checker.Liveness)
	m.HandleFunc("/readyz", checker.Readiness)
	if metricsEnabled {
		m.Handle("/metrics", observability.MetricsHandler(registry))
	}
	return m
}
