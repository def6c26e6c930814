package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/edasaruhan/FTL-Ethiopia-ML2-Gr16/internal/accounts"
	"github.com/edasaruhan/FTL-Ethiopia-ML2-Gr16/internal/auth"
	"github.com/edasaruhan/FTL-Ethiopia-ML2-Gr16/internal/blob"
	"github.com/edasaruhan/FTL-Ethiopia-ML2-Gr16/internal/chatbot"
	"github.com/edasaruhan/FTL-Ethiopia-ML2-Gr16/internal/config"
	"github.com/edasaruhan/FTL-Ethiopia-ML2-Gr16/internal/db"
	apphttp "github.com/edasaruhan/FTL-Ethiopia-ML2-Gr16/internal/http"
	"github.com/edasaruhan/FTL-Ethiopia-ML2-Gr16/internal/inference"
	"github.com/edasaruhan/FTL-Ethiopia-ML2-Gr16/internal/inference/tflite"
	"github.com/edasaruhan/FTL-Ethiopia-ML2-Gr16/internal/logging"
	"github.com/edasaruhan/FTL-Ethiopia-ML2-Gr16/internal/messaging"
	"github.com/edasaruhan/FTL-Ethiopia-ML2-Gr16/internal/patient"
	"github.com/edasaruhan/FTL-Ethiopia-ML2-Gr16/internal/screening"
	"github.com/edasaruhan/FTL-Ethiopia-ML2-Gr16/internal/telemetry"
)

const jwksRefresh = 15 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Fatal("screening service stopped")
	}
}

func run(cfg *config.Config, logger *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry.Enabled {
		provider, err := telemetry.InitProvider(ctx, cfg.Telemetry, cfg.Environment, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize telemetry: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := provider.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Warn("telemetry shutdown failed")
			}
		}()
	}
	metrics, err := telemetry.InitMetrics()
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}

	database, err := db.Connect(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer database.Close()

	if cfg.Database.AutoMigrate {
		if err := migrate(cfg.Database, logger); err != nil {
			return err
		}
	}

	verifier, issuer, closeKeys, err := setupAuth(cfg.Auth, logger)
	if err != nil {
		return err
	}
	defer closeKeys()

	perms, err := auth.LoadPermissions(cfg.Auth.PermissionsPath)
	if err != nil {
		return fmt.Errorf("failed to load permissions: %w", err)
	}

	// An untyped nil keeps the service's Classifier interface nil when the
	// model is missing.
	var classifier screening.Classifier
	if rt, err := tflite.Load(cfg.Inference.ModelPath, cfg.Inference.Threads); err != nil {
		logger.WithError(err).WithField("model_path", cfg.Inference.ModelPath).
			Error("failed to load model; uploads will be rejected")
	} else {
		c := inference.NewClassifier(rt, cfg.Inference.Timeout, logger)
		defer c.Close()
		classifier = c
		logger.WithField("model_path", cfg.Inference.ModelPath).Info("model loaded")
	}

	store, err := blob.Open(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to open blob store: %w", err)
	}

	publisher := newPublisher(cfg.RabbitMQ, logger)
	defer publisher.Close()

	loc, err := time.LoadLocation(cfg.Database.TimeZone)
	if err != nil {
		return fmt.Errorf("invalid database timezone %q: %w", cfg.Database.TimeZone, err)
	}

	var tokenIssuer accounts.TokenIssuer
	if issuer != nil {
		tokenIssuer = issuer
	}
	accountService := accounts.NewService(accounts.NewRepository(database), tokenIssuer, publisher, metrics, logger, 0)
	patientService := patient.NewService(patient.NewRepository(database), publisher, metrics, logger)
	screeningService := screening.NewService(screening.NewRepository(database), classifier, store, publisher, metrics, logger,
		screening.Options{
			KeyPrefix:      cfg.Storage.Prefix,
			MaxUploadBytes: cfg.Inference.MaxUploadBytes,
			Location:       loc,
		})
	var media *screening.MediaHandler
	if local, ok := store.(*blob.Local); ok {
		media = screening.NewMediaHandler(screeningService, local, logger)
	}
	chatService, closeCache := newChatService(ctx, cfg, database, metrics, logger)
	defer closeCache()

	router := apphttp.SetupRouter(apphttp.Deps{
		ServiceName:    cfg.Telemetry.ServiceName,
		Verifier:       verifier,
		Permissions:    perms,
		Logger:         logger,
		Metrics:        metrics,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Accounts:       accounts.NewHandler(accountService, logger),
		Patients:       patient.NewHandler(patientService, logger),
		Screenings:     screening.NewHandler(screeningService, cfg.Inference.MaxUploadBytes, logger),
		Chatbot:        chatbot.NewHandler(chatService, logger),
		Media:          media,
		ModelLoaded:    func() bool { return classifier != nil },
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("port", cfg.Server.Port).Info("screening service listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

func migrate(cfg config.DatabaseConfig, logger *logrus.Logger) error {
	runner, err := db.NewMigrationRunner(cfg.URL(), logger)
	if err != nil {
		return err
	}
	defer runner.Close()
	return runner.Up()
}

// setupAuth verifies tokens against an external JWKS when one is configured,
// otherwise signs and verifies locally. The returned Signer is nil in JWKS mode.
func setupAuth(cfg config.AuthConfig, logger logrus.FieldLogger) (*auth.Verifier, *auth.Signer, func(), error) {
	authCfg := auth.Config{
		Issuer:   cfg.Issuer,
		JWKSURL:  cfg.JWKSURL,
		Audience: cfg.Audience,
		TokenTTL: cfg.TokenTTL,
	}

	if cfg.JWKSURL != "" {
		jwks, err := auth.NewJWKS(cfg.JWKSURL, jwksRefresh, logger)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to fetch JWKS: %w", err)
		}
		logger.WithField("jwks_url", cfg.JWKSURL).Info("verifying tokens against external JWKS; local login disabled")
		return auth.NewVerifier(authCfg, jwks), nil, jwks.Close, nil
	}

	key, err := auth.LoadSigningKey(cfg.SigningKeyPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load signing key: %w", err)
	}
	signer := auth.NewSigner(key, authCfg)
	return auth.NewVerifier(authCfg, signer.KeySource()), signer, func() {}, nil
}

func newPublisher(cfg config.RabbitMQConfig, logger logrus.FieldLogger) messaging.PublisherInterface {
	if !cfg.Enabled {
		return messaging.NoopPublisher{}
	}
	publisher, err := messaging.NewPublisher(cfg, logger)
	if err != nil {
		logger.WithError(err).Warn("RabbitMQ unavailable; events will not be published")
		return messaging.NoopPublisher{}
	}
	return publisher
}

// newChatService wires the optional search, LLM and cache backends. Missing
// API keys leave the corresponding backend nil.
func newChatService(ctx context.Context, cfg *config.Config, database *sql.DB, metrics chatbot.MetricsRecorder,
	logger logrus.FieldLogger) (*chatbot.Service, func()) {
	var searcher chatbot.Searcher
	if cfg.Chatbot.SearchAPIKey != "" {
		searcher = chatbot.NewSerperClient(chatbot.SearchConfig{
			URL:       cfg.Chatbot.SearchURL,
			APIKey:    cfg.Chatbot.SearchAPIKey,
			Limit:     cfg.Chatbot.SearchLimit,
			Timeout:   cfg.Chatbot.Timeout,
			RateLimit: cfg.Chatbot.RateLimit,
		}, logger)
	}

	var generator chatbot.Generator
	if cfg.Chatbot.LLMAPIKey != "" {
		generator = chatbot.NewGeminiClient(chatbot.LLMConfig{
			BaseURL:   cfg.Chatbot.LLMURL,
			APIKey:    cfg.Chatbot.LLMAPIKey,
			Model:     cfg.Chatbot.LLMModel,
			Timeout:   cfg.Chatbot.Timeout,
			RateLimit: cfg.Chatbot.RateLimit,
		}, logger)
	} else {
		logger.Warn("chatbot.llm_api_key not set; chatbot disabled")
	}

	var cache chatbot.SearchCache = chatbot.NoopCache{}
	closeCache := func() {}
	if cfg.Redis.URL != "" {
		client, err := chatbot.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			logger.WithError(err).Warn("redis unavailable; search results will not be cached")
		} else {
			cache = chatbot.NewRedisCache(client, cfg.Chatbot.CacheTTL)
			closeCache = func() { client.Close() }
		}
	}

	return chatbot.NewService(chatbot.NewRepository(database), searcher, generator, cache, metrics, logger), closeCache
}
