// Command server runs the consent service: the consent lifecycle API, the
// authorization check API, the consent-guarded FDX resource endpoints, and
// the admin audit view, with health probes and Prometheus metrics alongside.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/markcoleman/Aggregator-the-agitator/internal/admin"
	"github.com/markcoleman/Aggregator-the-agitator/internal/audit"
	consenthandler "github.com/markcoleman/Aggregator-the-agitator/internal/consent/handler"
	consentmetrics "github.com/markcoleman/Aggregator-the-agitator/internal/consent/metrics"
	consentservice "github.com/markcoleman/Aggregator-the-agitator/internal/consent/service"
	consentstore "github.com/markcoleman/Aggregator-the-agitator/internal/consent/store"
	"github.com/markcoleman/Aggregator-the-agitator/internal/decision"
	decisionadapters "github.com/markcoleman/Aggregator-the-agitator/internal/decision/adapters"
	decisionhandler "github.com/markcoleman/Aggregator-the-agitator/internal/decision/handler"
	decisionmetrics "github.com/markcoleman/Aggregator-the-agitator/internal/decision/metrics"
	"github.com/markcoleman/Aggregator-the-agitator/internal/fdx"
	fdxhandler "github.com/markcoleman/Aggregator-the-agitator/internal/fdx/handler"
	fdxstore "github.com/markcoleman/Aggregator-the-agitator/internal/fdx/store"
	jwttoken "github.com/markcoleman/Aggregator-the-agitator/internal/jwt_token"
	"github.com/markcoleman/Aggregator-the-agitator/internal/platform/config"
	"github.com/markcoleman/Aggregator-the-agitator/internal/platform/health"
	"github.com/markcoleman/Aggregator-the-agitator/internal/platform/httpserver"
	"github.com/markcoleman/Aggregator-the-agitator/internal/platform/kafka/producer"
	"github.com/markcoleman/Aggregator-the-agitator/internal/platform/logger"
	"github.com/markcoleman/Aggregator-the-agitator/internal/platform/metrics"
	pmw "github.com/markcoleman/Aggregator-the-agitator/internal/platform/middleware"
	platformredis "github.com/markcoleman/Aggregator-the-agitator/internal/platform/redis"
	"github.com/markcoleman/Aggregator-the-agitator/internal/platform/tracer"
	id "github.com/markcoleman/Aggregator-the-agitator/pkg/domain"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

// run wires the dependency graph and serves until a shutdown signal. Kept
// separate from main so every resource can be released through defers.
func run(cfg config.Server, log *slog.Logger) error {
	startupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sink, memSink, deps, err := buildAuditPipeline(startupCtx, cfg, log)
	if err != nil {
		return err
	}
	defer deps.Close(log)

	publisher := audit.NewPublisher(sink,
		audit.WithLogger(log),
		audit.WithAsyncBuffer(cfg.Audit.Buffer),
		audit.WithSampler(audit.NewSampler(cfg.Audit.SampleRate)),
		audit.WithMetrics(audit.NewMetrics()),
	)
	// Drain buffered events before the sink connections close.
	defer publisher.Close()

	tr := tracer.NewOTel()

	consentStore := consentstore.NewInMemoryStore()
	consentSvc := consentservice.New(consentStore,
		consentservice.WithLogger(log),
		consentservice.WithMetrics(consentmetrics.New()),
		consentservice.WithAuditLogger(audit.NewLogger(log, publisher)),
		consentservice.WithTracer(tr),
		consentservice.WithMaxTTL(cfg.ConsentMaxTTL),
	)

	decider := decision.New(
		decisionadapters.NewConsentAdapter(consentStore, consentSvc),
		decision.WithLogger(log),
		decision.WithMetrics(decisionmetrics.New()),
		decision.WithAuditPort(publisher),
		decision.WithTracer(tr),
	)

	fdxStore := fdxstore.NewInMemoryStore()
	fdxstore.SeedDemoData(fdxStore)
	guard := fdx.NewGuard(decider, fdxStore, log, fdx.WithAuditEmitter(publisher))

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)
	validator := jwttoken.NewJWTServiceAdapter(jwtService)

	httpMetrics := metrics.New()
	healthHandler := health.New(cfg.Environment)
	registerHealthChecks(healthHandler, deps)

	r := chi.NewRouter()
	r.Use(pmw.Recovery(log))
	r.Use(pmw.RequestID)
	r.Use(pmw.RequestTime)
	r.Use(pmw.ClientMetadata)
	r.Use(pmw.Logger(log))
	r.Use(pmw.Timeout(cfg.RequestTimeout))
	r.Use(pmw.ContentTypeJSON)
	r.Use(httpMetrics.Middleware)

	// Probes and metrics stay unauthenticated.
	healthHandler.Register(r)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Group(func(api chi.Router) {
		api.Use(pmw.RequireAuth(validator, log))

		consenthandler.New(consentSvc, log).Register(api)
		decisionhandler.New(decider, log).Register(api)

		api.Group(func(fdxAPI chi.Router) {
			fdxAPI.Use(pmw.ExtractVersion(id.APIVersionV6))
			fdxAPI.Use(pmw.ValidateTokenVersion(log))
			fdxhandler.New(fdxStore, guard, log).Register(fdxAPI)
		})

		// The admin audit view reads the memory sink; without one there is
		// nothing to serve.
		if memSink != nil {
			api.Group(func(adminAPI chi.Router) {
				if cfg.AdminAPIToken != "" {
					adminAPI.Use(pmw.RequireAdminToken(cfg.AdminAPIToken, log))
				}
				admin.New(memSink, log).Register(adminAPI)
			})
		}
	})

	srv := httpserver.New(cfg.Addr, r)
	log.Info("starting consent service",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
		"audit_sinks", cfg.Audit.Sinks,
	)
	return httpserver.Run(srv, log, shutdownTimeout)
}

// externalDeps tracks the connections behind the configured audit sinks so
// shutdown can close them after the publisher drains.
type externalDeps struct {
	kafka *producer.Producer
	redis *platformredis.Client
	db    *sql.DB
}

func (d *externalDeps) Close(log *slog.Logger) {
	if d.kafka != nil {
		if err := d.kafka.Close(); err != nil {
			log.Error("failed to close kafka producer", "error", err)
		}
	}
	if d.redis != nil {
		if err := d.redis.Close(); err != nil {
			log.Error("failed to close redis client", "error", err)
		}
	}
	if d.db != nil {
		if err := d.db.Close(); err != nil {
			log.Error("failed to close postgres pool", "error", err)
		}
	}
}

// buildAuditPipeline assembles the audit sinks named in AUDIT_SINKS. A
// selected sink that cannot be reached fails startup: compliance events must
// never be silently lost. The memory sink instance is returned separately so
// the admin endpoints can query it.
func buildAuditPipeline(ctx context.Context, cfg config.Server, log *slog.Logger) (audit.Sink, *audit.MemorySink, *externalDeps, error) {
	deps := &externalDeps{}
	var sinks []audit.Sink
	var memSink *audit.MemorySink

	for _, name := range cfg.Audit.Sinks {
		switch name {
		case "memory":
			memSink = audit.NewMemorySink()
			sinks = append(sinks, memSink)

		case "kafka":
			p, err := producer.New(producer.Config{
				Brokers:         cfg.Kafka.Brokers,
				Acks:            cfg.Kafka.Acks,
				Retries:         cfg.Kafka.Retries,
				DeliveryTimeout: cfg.Kafka.DeliveryTimeout,
			}, log)
			if err != nil {
				deps.Close(log)
				return nil, nil, nil, fmt.Errorf("kafka audit sink: %w", err)
			}
			deps.kafka = p
			if err := producer.EnsureTopic(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic, 3, 1); err != nil {
				deps.Close(log)
				return nil, nil, nil, fmt.Errorf("kafka audit sink: %w", err)
			}
			sinks = append(sinks, audit.NewKafkaSink(p, cfg.Kafka.Topic))

		case "redis":
			client, err := platformredis.New(cfg.Redis)
			if err != nil {
				deps.Close(log)
				return nil, nil, nil, fmt.Errorf("redis audit sink: %w", err)
			}
			if client == nil {
				deps.Close(log)
				return nil, nil, nil, errors.New("redis audit sink selected but REDIS_URL is not set")
			}
			deps.redis = client
			sinks = append(sinks, audit.NewRedisSink(client.Client, cfg.Redis.Stream, cfg.Redis.MaxLen))

		case "postgres":
			if cfg.Postgres.DSN == "" {
				deps.Close(log)
				return nil, nil, nil, errors.New("postgres audit sink selected but POSTGRES_DSN is not set")
			}
			db, err := sql.Open("pgx", cfg.Postgres.DSN)
			if err != nil {
				deps.Close(log)
				return nil, nil, nil, fmt.Errorf("postgres audit sink: %w", err)
			}
			deps.db = db
			if err := db.PingContext(ctx); err != nil {
				deps.Close(log)
				return nil, nil, nil, fmt.Errorf("postgres audit sink: %w", err)
			}
			pgSink := audit.NewPostgresSink(db)
			if err := pgSink.EnsureSchema(ctx); err != nil {
				deps.Close(log)
				return nil, nil, nil, fmt.Errorf("postgres audit sink: %w", err)
			}
			sinks = append(sinks, pgSink)

		default:
			deps.Close(log)
			return nil, nil, nil, fmt.Errorf("unknown audit sink %q", name)
		}
	}

	if len(sinks) == 0 {
		log.Warn("no audit sinks configured, system events will be discarded")
		return audit.NoopSink{}, nil, deps, nil
	}
	return audit.NewMultiSink(sinks...), memSink, deps, nil
}

func registerHealthChecks(h *health.Handler, deps *externalDeps) {
	if deps.kafka != nil {
		h.RegisterCheck("kafka", func(ctx context.Context) error {
			if !deps.kafka.Healthy(ctx) {
				return errors.New("kafka brokers unreachable")
			}
			return nil
		})
	}
	if deps.redis != nil {
		h.RegisterCheck("redis", deps.redis.Health)
	}
	if deps.db != nil {
		h.RegisterCheck("postgres", deps.db.PingContext)
	}
}
