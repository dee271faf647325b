// Command spbridge runs the Amazon marketplace tool bridge: an HTTP server
// exposing SP-API backed tools behind authentication and rate limiting.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sellerops/spbridge/auth"
	"github.com/sellerops/spbridge/cache"
	"github.com/sellerops/spbridge/config"
	"github.com/sellerops/spbridge/gate"
	"github.com/sellerops/spbridge/health"
	"github.com/sellerops/spbridge/observe"
	"github.com/sellerops/spbridge/ratelimit"
	"github.com/sellerops/spbridge/server"
	"github.com/sellerops/spbridge/spapi"
	"github.com/sellerops/spbridge/tools"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "spbridge:", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	observer, err := observe.NewObserver(ctx, cfg.Observe)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		observer.Shutdown(shutdownCtx)
	}()

	logger := observer.Logger()
	metrics, err := observe.NewMetrics(observer.Meter())
	if err != nil {
		return err
	}
	tracer := observe.NewTracer(observer.Tracer())

	secret := []byte(cfg.SecretKey)
	codec := auth.NewTokenCodec(auth.TokenCodecConfig{
		Secret: secret,
		TTL:    cfg.TokenTTL,
	})
	credStore := auth.NewCredentialStore(auth.CredentialStoreConfig{
		Pairs:      cfg.APIKeys,
		Production: cfg.Production(),
		Logger:     logger,
	})
	verifier := auth.NewSignatureVerifier(auth.SignatureVerifierConfig{
		Secret:       secret,
		ReplayWindow: cfg.ReplayWindow,
	})
	resolver := auth.NewDefaultResolver(auth.ResolverConfig{
		PublicPaths: []string{"/health", "/docs"},
		Logger:      logger,
	}, codec, credStore, verifier)

	limiterCfg := ratelimit.Config{Tiers: cfg.RateTiers}
	var redisStore *ratelimit.RedisStore
	if cfg.RedisAddr != "" {
		redisStore, err = ratelimit.NewRedisStore(ratelimit.RedisStoreConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer redisStore.Close()
		limiterCfg.Store = redisStore
	}
	limiter := ratelimit.NewLimiter(limiterCfg)

	g := gate.New(gate.Config{
		Resolver: resolver,
		Limiter:  limiter,
		Logger:   logger,
		Metrics:  metrics,
		FailOpen: cfg.FailOpen,
	})

	api := spapi.NewClient(spapi.Config{
		Endpoint:      cfg.Amazon.Endpoint,
		MarketplaceID: cfg.Amazon.MarketplaceID,
		SellerID:      cfg.Amazon.SellerID,
		RefreshToken:  cfg.Amazon.RefreshToken,
		ClientID:      cfg.Amazon.ClientID,
		ClientSecret:  cfg.Amazon.ClientSecret,
		Logger:        logger,
		Metrics:       metrics,
	})

	registry := tools.NewRegistry(tools.RegistryConfig{
		Cache:   cache.NewResultCache(cache.NewMemoryCache(), cfg.CacheTTL),
		Logger:  logger,
		Metrics: metrics,
		Tracer:  tracer,
	})
	if err := tools.RegisterAmazonTools(registry, api); err != nil {
		return err
	}

	checks := health.NewRegistry()
	checks.Register("credentials", func(context.Context) health.Result {
		if cfg.Amazon.RefreshToken == "" {
			return health.Degraded("marketplace credentials not configured")
		}
		return health.Healthy("configured")
	})
	if redisStore != nil {
		checks.Register("redis", func(ctx context.Context) health.Result {
			if err := redisStore.Ping(ctx); err != nil {
				return health.Unhealthy("redis unreachable", err)
			}
			return health.Healthy("connected")
		})
	}

	srv, err := server.New(server.Config{
		Addr:        cfg.ListenAddr,
		Gate:        g,
		Registry:    registry,
		Health:      checks,
		ServiceName: cfg.Observe.ServiceName,
		Version:     cfg.Observe.Version,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "starting bridge",
		observe.F("addr", cfg.ListenAddr),
		observe.F("environment", cfg.Environment))
	return srv.Run(ctx)
}
