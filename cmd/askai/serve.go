package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/whitelabel-ai/askai-service/internal/chat"
	"github.com/whitelabel-ai/askai-service/internal/llm/provider"
	"github.com/whitelabel-ai/askai-service/internal/observability"
	"github.com/whitelabel-ai/askai-service/internal/retrieval"
	"github.com/whitelabel-ai/askai-service/internal/server"
	"github.com/whitelabel-ai/askai-service/internal/suggestion"
	"github.com/whitelabel-ai/askai-service/pkg/config"
	metrics "github.com/whitelabel-ai/askai-service/pkg/observability"
	"github.com/whitelabel-ai/askai-service/pkg/security"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}

	cmd.Flags().IntVar(&port, "port", 8080, "HTTP port (overrides config and PORT)")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting askai",
		zap.String("version", Version),
		zap.Int("port", cfg.Server.Port),
		zap.String("provider", cfg.LLM.Provider),
		zap.String("suggestion_store", cfg.Suggestions.Backend),
	)

	if err := observability.InitFromEnv(logger); err != nil {
		logger.Warn("tracing disabled", zap.Error(err))
	}
	metrics.InitMetrics()

	if cfg.Auth.JWTSecret == config.Default().Auth.JWTSecret {
		logger.Warn("using the development JWT secret; set JWT_SECRET in production")
	}
	issuer, err := security.NewTokenIssuer(cfg.Auth.JWTSecret)
	if err != nil {
		return err
	}

	llm, err := buildProvider(cfg.LLM)
	if err != nil {
		return err
	}
	if llm == nil {
		logger.Warn("completion provider not configured; chat and ask-ai will fail",
			zap.String("provider", cfg.LLM.Provider))
	} else {
		logger.Info("completion provider ready",
			zap.String("provider", llm.Name()),
			zap.String("api_key", security.MaskSecret(cfg.LLM.APIKey)))
	}

	store, pinger, err := buildStore(cfg.Suggestions)
	if err != nil {
		return err
	}
	engine := suggestion.NewEngine(store)
	defer func() { _ = engine.Close() }()

	orch := chat.NewOrchestrator(llm, buildAggregator(cfg.Retrieval, logger), engine,
		chat.WithLogger(logger),
		chat.WithCompletionTimeout(cfg.LLM.Timeout),
		chat.WithMaxTokens(cfg.LLM.MaxTokens),
		chat.WithModel(cfg.LLM.Model),
		chat.WithProviderName(cfg.LLM.Provider),
	)

	health := metrics.NewHealthChecker(Version)
	health.RegisterCheck(metrics.PingCheck())
	health.RegisterCheck(metrics.ProviderCheck(orch.Configured))
	if pinger != nil {
		health.RegisterCheck(metrics.StoreCheck(pinger))
	}

	srv := server.New(server.Config{
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
	}, issuer, orch,
		server.WithLogger(logger),
		server.WithRateLimiter(security.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)),
		server.WithAuditLogger(security.NewZapAuditLogger(logger)),
		server.WithHealthChecker(health),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http shutdown", zap.Error(err))
		}
		if err := observability.Shutdown(shutdownCtx); err != nil {
			logger.Warn("tracing shutdown", zap.Error(err))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	logger.Info("stopped")
	return nil
}

// buildProvider returns nil, without error, when the provider's credential
// is missing so the service can still start and report misconfiguration.
func buildProvider(cfg config.LLMConfig) (provider.Provider, error) {
	p, err := provider.New(cfg.Provider, provider.Config{
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		BaseURL: cfg.BaseURL,
		Region:  cfg.Region,
	})
	if errors.Is(err, provider.ErrMissingCredential) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("build %s provider: %w", cfg.Provider, err)
	}
	return provider.NewInstrumentedProvider(p), nil
}

// buildStore opens the configured suggestion store. The ping function is
// non-nil for remote stores that deserve a health check.
func buildStore(cfg config.SuggestionsConfig) (suggestion.Store, func(context.Context) error, error) {
	switch cfg.Backend {
	case "redis":
		store, err := suggestion.NewRedisStore(suggestion.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
			TTL:      cfg.TTL,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("open redis suggestion store: %w", err)
		}
		return store, store.Ping, nil
	default:
		return suggestion.NewMemoryStore(suggestion.MemoryOptions{
			MaxEntries: cfg.MaxEntries,
			TTL:        cfg.TTL,
		}), nil, nil
	}
}

func buildAggregator(cfg config.RetrievalConfig, logger *zap.Logger) *retrieval.Aggregator {
	guard := security.NewSSRFValidator(security.SSRFConfig{AllowPrivate: cfg.AllowPrivateNetworks})
	client := guard.HTTPClient(cfg.Timeout)
	templates := retrieval.NewTemplateSearcher(client, cfg.UserAgent, cfg.TemplatesURL, cfg.ImportBaseURL)

	opts := []retrieval.Option{
		retrieval.WithTimeout(cfg.Timeout),
		retrieval.WithLogger(logger),
	}
	if cfg.EnrichSummaries {
		opts = append(opts, retrieval.WithEnricher(templates))
	}

	return retrieval.NewAggregator(
		retrieval.NewDocsSearcher(client, cfg.UserAgent, cfg.DocsURL, cfg.DocsSite),
		retrieval.NewForumSearcher(client, cfg.UserAgent, cfg.ForumURL),
		templates,
		opts...,
	)
}
