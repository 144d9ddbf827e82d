package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/samber/lo"

	"github.com/mstgnz/unipay/handler"
	"github.com/mstgnz/unipay/infra/config"
	"github.com/mstgnz/unipay/infra/logger"
	"github.com/mstgnz/unipay/infra/middle"
	"github.com/mstgnz/unipay/infra/opensearch"
	"github.com/mstgnz/unipay/provider"
	"github.com/mstgnz/unipay/provider/gateways"
	"github.com/mstgnz/unipay/router"
)

var (
	appConfig        *config.AppConfig
	openSearchLogger *opensearch.Logger
)

func init() {
	// Load Env
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}
	// init conf
	_ = config.App()
	appConfig = config.GetAppConfig()

	// Initialize OpenSearch client and logger
	if appConfig.EnableLogging {
		osClient, err := opensearch.NewClient(appConfig)
		if err != nil {
			log.Printf("Failed to initialize OpenSearch client: %v", err)
			log.Println("Continuing without OpenSearch logging...")
		} else {
			openSearchLogger = opensearch.NewLogger(osClient)
			log.Println("OpenSearch logging initialized successfully")
		}
	} else {
		log.Println("OpenSearch logging is disabled")
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// the sink and auditor stay untyped nil when OpenSearch is off
	var (
		sink   logger.Sink
		events handler.ConfigureEventReader
		opts   []provider.Option
	)
	if openSearchLogger != nil {
		sink, events = openSearchLogger, openSearchLogger
		opts = append(opts, provider.WithAuditor(openSearchLogger))
	}
	logger.InitGlobalLogger(sink)
	opts = append(opts, provider.WithLogger(logger.GetGlobalLogger()))

	var resolver config.SecretResolver
	if config.GetBoolEnv("GCP_SECRET_MANAGER_ENABLED", false) {
		sm, err := config.NewSecretManagerResolver(ctx)
		if err != nil {
			logger.Fatal("Failed to create Secret Manager client", err)
		}
		defer sm.Close()
		resolver = sm
	}

	storage, err := config.NewProfileStorage(appConfig.ProfileDBPath)
	if err != nil {
		logger.Warn("Profile storage disabled", logger.LogContext{
			Fields: map[string]any{"path": appConfig.ProfileDBPath, "error": err.Error()},
		})
	} else {
		defer storage.Close()
	}

	container := provider.NewContainer(gateways.NewFactory(), opts...)

	source, err := applyStartupConfig(ctx, container, storage, appConfig.ServicesConfigFile, resolver)
	switch {
	case err != nil:
		logger.Error("Startup configuration rejected, starting unconfigured", err, logger.LogContext{
			Fields: map[string]any{"source": source, "hints": errors.GetAllHints(err)},
		})
	case source == "":
		logger.Info("No startup configuration, waiting for POST /v1/configure")
	default:
		logger.Info("Startup configuration applied", logger.LogContext{
			ServicesID: container.Current().ID,
			Provider:   string(container.Current().Provider),
			Fields:     map[string]any{"source": source},
		})
	}

	if appConfig.APIKey == "" {
		logger.Warn("API_KEY is not set, every /v1 request will be rejected")
	}

	r := router.New(router.Dependencies{
		Container:   container,
		Service:     provider.NewTransactionService(container),
		Profiles:    storage,
		Events:      events,
		RateLimiter: middle.NewRateLimiter(ctx),
		APIKey:      appConfig.APIKey,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", appConfig.Port),
		Handler:           r,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Run your HTTP server in a goroutine
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server failed", err)
		}
	}()

	logger.Info("API is running", logger.LogContext{Fields: map[string]any{"port": appConfig.Port}})

	// Block until a signal is received
	<-ctx.Done()

	logger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", err)
	}
}

// applyStartupConfig installs the last applied profile, else the services
// config file or UNIPAY_* environment. It returns the source it used, "" when
// there was nothing to apply.
func applyStartupConfig(ctx context.Context, container *provider.Container, storage *config.ProfileStorage, path string, resolver config.SecretResolver) (string, error) {
	if storage != nil {
		profile, err := storage.LastApplied()
		switch {
		case err == nil:
			source := "profile:" + profile.Name
			if _, err := container.Apply(&profile.Config, profile.Name); err != nil {
				return source, err
			}
			return source, storage.MarkApplied(profile.Name, container.Current().ConfiguredAt)
		case !errors.Is(err, config.ErrProfileNotFound):
			return "profile", err
		}
	}

	if path == "" && !hasEnvConfig(os.Environ()) {
		return "", nil
	}

	source := lo.Ternary(path != "", "file:"+path, "env")
	cfg, err := config.LoadServicesConfig(ctx, path, resolver)
	if err != nil {
		return source, err
	}
	return source, container.Configure(cfg)
}

// hasEnvConfig reports whether any UNIPAY_* variable other than the config
// file path is set
func hasEnvConfig(environ []string) bool {
	return lo.ContainsBy(environ, func(kv string) bool {
		key, value, _ := strings.Cut(kv, "=")
		return value != "" &&
			strings.HasPrefix(key, config.EnvPrefix+"_") &&
			key != config.EnvPrefix+"_CONFIG_FILE"
	})
}
