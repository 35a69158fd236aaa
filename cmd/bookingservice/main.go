package main

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/example/wrenchly/internal/auth"
	"github.com/example/wrenchly/internal/booking/domain"
	"github.com/example/wrenchly/internal/booking/handler"
	"github.com/example/wrenchly/internal/booking/repository"
	bookingservice "github.com/example/wrenchly/internal/booking/service"
	"github.com/example/wrenchly/internal/matching"
	"github.com/example/wrenchly/internal/mechanic"
	outboxworker "github.com/example/wrenchly/internal/outbox"
	"github.com/example/wrenchly/internal/pricing"
	"github.com/example/wrenchly/internal/tracking"
	"github.com/example/wrenchly/pkg/observability"
	outboxpkg "github.com/example/wrenchly/pkg/outbox"
)

type appConfig struct {
	HTTPAddr    string
	GRPCAddr    string
	JWTSecret   string
	TokenTTL    time.Duration
	PostgresDSN string
	RedisAddr   string
	NATSURL     string
	IdemTTL     time.Duration
	OutboxPoll  time.Duration
	OutboxBatch int
	OutboxRetry int
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := observability.SetupLogger("booking-service")
	defer logger.Sync() //nolint:errcheck

	shutdown, err := observability.SetupTracer(ctx, "booking-service")
	if err != nil {
		logger.Warn("tracer setup failed", zap.Error(err))
	} else {
		defer shutdown(context.Background())
	}

	cfg := loadConfig()

	var db *sql.DB
	if cfg.PostgresDSN != "" {
		db, err = sql.Open("pgx", cfg.PostgresDSN)
		if err != nil {
			logger.Fatal("postgres connect", zap.Error(err))
		}
		db.SetMaxOpenConns(10)
		db.SetConnMaxLifetime(5 * time.Minute)
		if err := db.PingContext(ctx); err != nil {
			logger.Fatal("postgres ping", zap.Error(err))
		}
		defer db.Close()
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Fatal("redis ping", zap.Error(err))
		}
		defer redisClient.Close()
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		if conn, err := nats.Connect(cfg.NATSURL, nats.Name("bookingservice")); err == nil {
			natsConn = conn
			defer conn.Drain()
		} else {
			logger.Warn("nats connection failed", zap.Error(err))
		}
	}

	memDirectory := repository.NewMemoryDirectory(domain.SystemClock{})
	var mechanics domain.MechanicDirectory = memDirectory
	repo := repository.NewMemoryRepository()

	var idem domain.IdempotencyRepository
	if redisClient != nil {
		idem = repository.NewRedisIdempotencyRepo(redisClient, "", cfg.IdemTTL)
	} else {
		idem = repository.NewMemoryIdempotencyRepo()
	}

	var geo matching.GeoIndex
	if redisClient != nil {
		redisGeo := matching.NewRedisGeoIndex(redisClient, "")
		geo = redisGeo
		// Every mechanic write that carries a coordinate, registration
		// included, must reach the shared index.
		mechanics = matching.NewIndexedDirectory(mechanics, redisGeo)
	} else {
		geo = matching.NewMemoryGeoIndex(mechanics)
	}
	policy := matching.NewPolicy(geo, mechanics)

	publisher := buildPublisher(ctx, db, natsConn, logger)

	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
	authSvc := auth.NewService(mechanics, memDirectory, issuer, domain.SystemClock{})
	ledger := bookingservice.NewLedger(repo, mechanics, memDirectory, pricing.NewResolver(), publisher, domain.SystemClock{}, idem)

	r := chi.NewRouter()
	r.Mount("/v1/auth", auth.NewHTTP(authSvc).Router())
	r.Mount("/v1/bookings", handler.NewHTTP(ledger, cfg.JWTSecret).Router())
	r.Mount("/v1/mechanics", mechanic.NewHTTP(mechanics, policy, cfg.JWTSecret).Router())
	r.Mount("/observability", observability.MetricsRouter())

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	if db != nil && natsConn != nil {
		worker := outboxworker.NewWorker(db, natsConn, logger.Named("outbox"), outboxworker.WorkerConfig{
			PollInterval: cfg.OutboxPoll,
			BatchSize:    cfg.OutboxBatch,
			RetryMax:     cfg.OutboxRetry,
		})
		go func() {
			if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("outbox worker stopped", zap.Error(err))
			}
		}()
	}

	grpcServer := grpc.NewServer()
	tracking.RegisterTrackingServer(grpcServer, tracking.NewServer(mechanics, logger.Named("tracking")))
	go func() {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			logger.Fatal("grpc listen", zap.Error(err))
		}
		logger.Info("tracking grpc listening", zap.String("addr", cfg.GRPCAddr))
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("grpc server", zap.Error(err))
		}
	}()

	go func() {
		logger.Info("booking service listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	grpcServer.GracefulStop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

// buildPublisher prefers the staged outbox when Postgres is configured so
// events survive broker outages; otherwise events go straight to NATS. An
// absent broker leaves the direct publisher as a no-op.
func buildPublisher(ctx context.Context, db *sql.DB, natsConn *nats.Conn, logger *zap.Logger) domain.EventPublisher {
	const subject = "booking.events"
	if db != nil && natsConn != nil {
		if err := outboxworker.EnsureSchema(ctx, db); err != nil {
			logger.Fatal("outbox schema", zap.Error(err))
		}
		return outboxworker.NewStore(db, subject)
	}
	if natsConn == nil {
		logger.Warn("no broker configured, booking events will not be delivered")
	}
	return outboxpkg.NewPublisher(natsConn, subject)
}

func loadConfig() appConfig {
	return appConfig{
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),
		GRPCAddr:    getenv("GRPC_ADDR", ":9090"),
		JWTSecret:   getenv("JWT_SECRET", "dev-secret"),
		TokenTTL:    time.Duration(parseIntEnv("TOKEN_TTL_HOURS", 24)) * time.Hour,
		PostgresDSN: firstNonEmpty(os.Getenv("POSTGRES_DSN"), os.Getenv("DATABASE_URL")),
		RedisAddr:   os.Getenv("REDIS_ADDR"),
		NATSURL:     os.Getenv("NATS_URL"),
		IdemTTL:     time.Duration(parseIntEnv("IDEMPOTENCY_TTL_HOURS", 24)) * time.Hour,
		OutboxPoll:  time.Duration(parseIntEnv("OUTBOX_POLL_MS", 200)) * time.Millisecond,
		OutboxBatch: parseIntEnv("OUTBOX_BATCH", 100),
		OutboxRetry: parseIntEnv("OUTBOX_RETRY_MAX", 3),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func parseIntEnv(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}
