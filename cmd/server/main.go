// Command server runs the keygate HTTP API: public activation and trial
// endpoints, the token-guarded admin remediation gateway, and the audit
// pipeline. Storage is selected by configuration: Postgres plus Redis for
// production, fully in-memory when no DSN is set.
package main

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	adminPkg "keygate/internal/admin"
	"keygate/internal/artifact"
	licensingHandler "keygate/internal/licensing/handler"
	"keygate/internal/licensing/metrics"
	"keygate/internal/licensing/models"
	activationSvc "keygate/internal/licensing/service/activation"
	lifecycleSvc "keygate/internal/licensing/service/lifecycle"
	rebindSvc "keygate/internal/licensing/service/rebind"
	trialSvc "keygate/internal/licensing/service/trial"
	attemptStorePkg "keygate/internal/licensing/store/attempt"
	licenseStorePkg "keygate/internal/licensing/store/license"
	rebindStorePkg "keygate/internal/licensing/store/rebind"
	trialStorePkg "keygate/internal/licensing/store/trial"
	"keygate/internal/platform/config"
	"keygate/internal/platform/httpserver"
	"keygate/internal/platform/kafka"
	"keygate/internal/platform/logger"
	"keygate/internal/platform/postgres"
	"keygate/internal/platform/redis"
	httptransport "keygate/internal/transport/http"
	"keygate/pkg/domain"
	audit "keygate/pkg/platform/audit"
	auditConsumer "keygate/pkg/platform/audit/consumer"
	auditMemory "keygate/pkg/platform/audit/store/memory"
	auditPostgres "keygate/pkg/platform/audit/store/postgres"
	auditWorker "keygate/pkg/platform/audit/worker"
	"keygate/pkg/platform/tx"
)

const (
	artifactIssuerName = "keygate"
	shutdownTimeout    = 10 * time.Second
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(context.Background(), cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

// Store interfaces are restated here so the memory and Postgres branches can
// share one wiring path below.
type licenseStore interface {
	Create(ctx context.Context, l *models.License) error
	FindByKey(ctx context.Context, key domain.LicenseKey) (*models.License, error)
	Execute(ctx context.Context, key domain.LicenseKey, validate func(*models.License) error, mutate func(*models.License)) (*models.License, error)
}

type trialStore interface {
	Create(ctx context.Context, tr *models.Trial) error
	FindByKey(ctx context.Context, key domain.TrialKey) (*models.Trial, error)
	Execute(ctx context.Context, key domain.TrialKey, validate func(*models.Trial) error, mutate func(*models.Trial)) (*models.Trial, error)
}

type rebindStore interface {
	Put(ctx context.Context, e *models.RebindException) error
	Get(ctx context.Context, key domain.LicenseKey) (*models.RebindException, error)
	Delete(ctx context.Context, key domain.LicenseKey) error
}

type attemptStore interface {
	Append(ctx context.Context, a models.ActivationAttempt) error
	ListByLicenseKey(ctx context.Context, key domain.LicenseKey, limit int) ([]models.ActivationAttempt, error)
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	signingKey, err := loadSigningKey(cfg.SigningKey, log)
	if err != nil {
		return err
	}
	issuer := artifact.NewIssuer(signingKey, artifactIssuerName)

	var (
		licenses   licenseStore
		trials     trialStore
		rebinds    rebindStore
		attempts   attemptStore
		auditStore audit.Store
		runner     tx.Runner = tx.NoopRunner{}
		db         *sql.DB
		checks     = map[string]httptransport.HealthChecker{}
	)

	if cfg.PostgresDSN != "" {
		db, err = postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return err
		}
		defer db.Close()

		licensePG := licenseStorePkg.NewPostgresStore(db)
		trialPG := trialStorePkg.NewPostgresStore(db)
		attemptPG := attemptStorePkg.NewPostgresStore(db)

		// Without a broker nothing drains the outbox, so the store
		// materializes entries directly and the admin audit views stay
		// current.
		var auditPG *auditPostgres.Store
		if len(cfg.Kafka.Brokers) > 0 {
			auditPG = auditPostgres.New(db)
		} else {
			auditPG = auditPostgres.NewDirect(db)
			log.Warn("no kafka brokers configured, audit entries materialize directly")
		}
		for _, ensure := range []func(context.Context) error{
			licensePG.EnsureSchema,
			trialPG.EnsureSchema,
			attemptPG.EnsureSchema,
			auditPG.EnsureSchema,
		} {
			if err := ensure(ctx); err != nil {
				return err
			}
		}

		licenses = licensePG
		trials = trialPG
		attempts = attemptPG
		auditStore = auditPG
		runner = tx.NewSQLRunner(db)
		checks["postgres"] = dbHealth{db}
		log.Info("using postgres stores")
	} else {
		licenses = licenseStorePkg.NewInMemoryStore()
		trials = trialStorePkg.NewInMemoryStore()
		attempts = attemptStorePkg.NewInMemoryStore()
		auditStore = auditMemory.NewInMemoryStore()
		log.Warn("no postgres DSN configured, running with in-memory stores")
	}

	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		rebinds = rebindStorePkg.NewRedisStore(redisClient)
		checks["redis"] = redisClient
		log.Info("using redis rebind exception store")
	} else {
		rebinds = rebindStorePkg.NewInMemoryStore()
	}

	m := metrics.New()
	audits := audit.NewPublisher(auditStore)

	activations := activationSvc.NewService(licenses, rebinds, attempts, issuer, m, log)
	lifecycles := lifecycleSvc.NewService(licenses, log)
	rebindGrants := rebindSvc.NewService(licenses, rebinds, log)
	trialOps := trialSvc.NewService(trials, log)

	gateway := adminPkg.NewGateway(lifecycles, rebindGrants, trialOps, audits, runner, m, log)
	adminHandler := adminPkg.NewHandler(gateway, licenses, attempts, rebindGrants, log)
	publicHandler := licensingHandler.New(activations, trialOps, log)

	router := httptransport.NewRouter(httptransport.Options{
		Licensing:        publicHandler,
		Admin:            adminHandler,
		AdminCredentials: cfg.AdminCredentials,
		Checks:           checks,
		Logger:           log,
	})
	srv := httpserver.New(cfg.Addr, router)

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("starting keygate", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	// The Kafka leg only runs with both a durable outbox and a broker; the
	// other wirings (memory store, direct materialization) keep entries
	// queryable without it.
	if db != nil && len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return err
		}
		defer producer.Close()
		if err := producer.EnsureTopic(ctx, 1, 1); err != nil {
			return err
		}

		worker := auditWorker.New(db, producer, log)
		group.Go(func() error {
			if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("audit outbox worker: %w", err)
			}
			return nil
		})

		materializer := auditConsumer.New(auditPostgres.New(db), log)
		consumer, err := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.ConsumerGroup, cfg.Kafka.Topic, materializer, log)
		if err != nil {
			return err
		}
		group.Go(func() error {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("audit consumer: %w", err)
			}
			return nil
		})
		log.Info("audit pipeline started", "topic", cfg.Kafka.Topic, "group", cfg.Kafka.ConsumerGroup)
	}

	err = group.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// loadSigningKey decodes the configured Ed25519 seed, or mints an ephemeral
// keypair for development. The public key is logged either way so a verifier
// can be pointed at this instance.
func loadSigningKey(encoded string, log *slog.Logger) (ed25519.PrivateKey, error) {
	if encoded == "" {
		pub, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("generate dev signing key: %w", err)
		}
		log.Warn("no signing key configured, generated ephemeral dev key",
			"public_key", base64.RawURLEncoding.EncodeToString(pub))
		return priv, nil
	}
	seed, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode signing key: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("signing key must be a %d-byte Ed25519 seed, got %d bytes", ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	log.Info("loaded signing key",
		"public_key", base64.RawURLEncoding.EncodeToString(priv.Public().(ed25519.PublicKey)))
	return priv, nil
}

// dbHealth adapts *sql.DB to the router's health check interface.
type dbHealth struct {
	db *sql.DB
}

func (h dbHealth) Health(ctx context.Context) error {
	return h.db.PingContext(ctx)
}
