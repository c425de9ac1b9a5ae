// Command server runs the identity verification gateway.
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

	"golang.org/x/sync/errgroup"

	"kyc-gateway/internal/audit"
	"kyc-gateway/internal/gateway"
	router "kyc-gateway/internal/http"
	"kyc-gateway/internal/kyc"
	"kyc-gateway/internal/kyc/store"
	documentstore "kyc-gateway/internal/kyc/store/document"
	profilestore "kyc-gateway/internal/kyc/store/profile"
	"kyc-gateway/internal/platform/config"
	"kyc-gateway/internal/platform/httpserver"
	"kyc-gateway/internal/platform/logger"
	"kyc-gateway/internal/platform/middleware"
	"kyc-gateway/internal/platform/postgres"
	platformredis "kyc-gateway/internal/platform/redis"
	"kyc-gateway/internal/vault"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server exited: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	log := logger.New(cfg.Server.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Document number encryption. Production refuses to start without an
	// explicit key; everywhere else a seed-derived dev key is acceptable.
	var sealer vault.Sealer
	if cfg.Vault.Key != "" {
		v, err := vault.New(cfg.Vault.Key)
		if err != nil {
			return fmt.Errorf("vault: %w", err)
		}
		sealer = v
	} else {
		if cfg.Server.IsProduction() {
			return errors.New("VAULT_KEY is required in production")
		}
		log.Warn("VAULT_KEY not set, using development key")
		sealer = vault.NewDev("kyc-gateway-dev")
	}

	checks := map[string]router.HealthChecker{}

	// Stores: postgres when a DSN is configured, in-memory otherwise.
	var (
		documents kyc.DocumentStore
		profiles  kyc.ProfileStore
		storeTx   kyc.StoreTx
		db        *sql.DB
	)
	if cfg.Postgres.DSN != "" {
		var err error
		db, err = postgres.Open(ctx, cfg.Postgres.DSN)
		if err != nil {
			return err
		}
		defer db.Close()
		documents = documentstore.NewPostgres(db)
		profiles = profilestore.NewPostgres(db)
		storeTx = store.NewSQLRunner(db)
		checks["postgres"] = dbHealth{db}
		log.Info("using postgres stores")
	} else {
		documents = documentstore.NewInMemory()
		profiles = profilestore.NewInMemory()
		storeTx = store.NoopRunner{}
		log.Warn("POSTGRES_DSN not set, using in-memory stores")
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		checks["redis"] = redisClient
	}

	gw, err := buildGateway(cfg, redisClient)
	if err != nil {
		return err
	}

	// Audit pipeline: publisher feeds a worker that fans out to sinks.
	publisher := audit.NewPublisher(1024, log)
	var sinks []audit.Sink
	if db != nil {
		sinks = append(sinks, audit.NewPostgresStore(db))
	} else {
		sinks = append(sinks, audit.NewInMemoryStore())
	}
	if cfg.Audit.KafkaBrokers != "" {
		kafkaSink, err := audit.NewKafkaSink(cfg.Audit.KafkaBrokers, cfg.Audit.Topic)
		if err != nil {
			return fmt.Errorf("kafka audit sink: %w", err)
		}
		defer kafkaSink.Close()
		sinks = append(sinks, kafkaSink)
		log.Info("kafka audit sink enabled", "topic", cfg.Audit.Topic)
	}
	worker := audit.NewWorker(publisher.Inbox(), log, sinks...)

	svc := kyc.NewService(gw, documents, profiles, storeTx, sealer,
		kyc.WithLogger(log),
		kyc.WithMetrics(kyc.NewMetrics()),
		kyc.WithAuditPublisher(publisher),
		kyc.WithProviderPayloadCapture(cfg.Audit.CaptureProviderPayload),
	)
	handler := kyc.NewHandler(svc,
		kyc.WithHandlerLogger(log),
		kyc.WithDevCodeEcho(!cfg.Server.IsProduction()),
	)

	srv := httpserver.New(cfg.Server.Addr, router.New(router.Deps{
		Handler:   handler,
		Validator: middleware.NewJWTValidator(cfg.Server.JWTSigningKey),
		Logger:    log,
		Checks:    checks,
	}))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := worker.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		log.Info("server listening", "addr", cfg.Server.Addr, "environment", cfg.Server.Environment)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func buildGateway(cfg config.Config, redisClient *platformredis.Client) (gateway.Gateway, error) {
	switch cfg.Provider.Mode {
	case config.ProviderModeLive:
		if cfg.Provider.BaseURL == "" || cfg.Provider.APIKey == "" {
			return nil, errors.New("PROVIDER_BASE_URL and PROVIDER_API_KEY are required in live mode")
		}
		return gateway.NewLive(cfg.Provider.BaseURL, cfg.Provider.APIKey, cfg.Provider.Timeout), nil
	case config.ProviderModeSandbox:
		var challenges gateway.ChallengeStore
		if redisClient != nil {
			challenges = gateway.NewRedisChallengeStore(redisClient.Client)
		} else {
			challenges = gateway.NewInMemoryChallengeStore()
		}
		return gateway.NewSandbox(challenges, cfg.Provider.ChallengeTTL), nil
	default:
		return nil, fmt.Errorf("unknown provider mode %q", cfg.Provider.Mode)
	}
}

type dbHealth struct{ db *sql.DB }

func (h dbHealth) Health(ctx context.Context) error { return h.db.PingContext(ctx) }
