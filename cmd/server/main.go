// server runs the gRPC backend: session auth, tenant scoping, restriction
// enforcement, and audit recording around every registered service.
package main

import (
	"context"
	"crypto"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coder/quartz"
	"google.golang.org/grpc/health/grpc_health_v1"

	"classtrack/backend/internal/audit"
	auditdomain "classtrack/backend/internal/audit/domain"
	auditrepo "classtrack/backend/internal/audit/repository"
	"classtrack/backend/internal/audit/stream"
	billingrepo "classtrack/backend/internal/billing/repository"
	"classtrack/backend/internal/config"
	"classtrack/backend/internal/db"
	"classtrack/backend/internal/logger"
	"classtrack/backend/internal/restriction"
	"classtrack/backend/internal/restriction/engine"
	"classtrack/backend/internal/security"
	"classtrack/backend/internal/server"
	"classtrack/backend/internal/server/interceptors"
	sessionrepo "classtrack/backend/internal/session/repository"
	sessionservice "classtrack/backend/internal/session/service"
	"classtrack/backend/internal/store"
	"classtrack/backend/internal/telemetry/otel"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	zlog := logger.New(cfg.LogLevel)
	defer func() { _ = zlog.Sync() }()

	sqlDB, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		zlog.Fatalw("database connect failed", "error", err)
	}
	defer sqlDB.Close()

	priv, pub, err := loadKeys(cfg)
	if err != nil {
		zlog.Fatalw("jwt keys", "error", err)
	}
	tokens := security.NewTokenProvider(priv, pub, cfg.JWTIssuer, cfg.JWTAudience)

	ctx := context.Background()
	providers, err := otel.NewProviders(ctx, cfg.OTLPEndpoint, "classtrack-backend", false)
	if err != nil {
		zlog.Fatalw("otel setup failed", "error", err)
	}
	providers.SetGlobal()

	kafkaProducer, err := stream.NewKafkaProducer(cfg.AuditKafkaBrokersList(), cfg.AuditKafkaTopic)
	if err != nil {
		zlog.Fatalw("kafka producer", "error", err)
	}
	var auditStream audit.Producer
	if kafkaProducer != nil {
		auditStream = kafkaProducer
		defer kafkaProducer.Close()
	}

	auditLogger := audit.NewLogger(
		auditrepo.NewPostgresRepository(sqlDB),
		auditStream,
		zlog,
		func(ctx context.Context) (string, string) {
			return interceptors.ClientIP(ctx), interceptors.UserAgent(ctx)
		},
		func(ctx context.Context) auditdomain.Actor {
			userID, _ := interceptors.GetUserID(ctx)
			role, _ := interceptors.GetRole(ctx)
			return auditdomain.Actor{ID: userID, Role: role}
		},
	)

	sessions := sessionservice.NewService(
		sessionrepo.NewPostgresRepository(sqlDB), tokens, auditLogger, cfg.IPHashPepper, zlog)

	evaluator, err := engine.NewOPAEvaluator()
	if err != nil {
		zlog.Fatalw("restriction policy", "error", err)
	}
	gate := restriction.NewGate(
		billingrepo.NewPostgresRepository(sqlDB),
		// The gate counts usage on the system path, without a request-bound
		// tenant context.
		store.NewPostgres(sqlDB),
		evaluator,
		quartz.NewReal(),
		zlog,
		cfg.UsageCollection,
		int64(cfg.FreePlanEntityLimit),
		cfg.RestrictionGraceDays,
		cfg.CacheTTL(),
	)

	srv, hs := server.New(server.Deps{
		Sessions: sessions,
		Gate:     gate,
		Audit:    auditLogger,
	})

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		zlog.Fatalw("listen failed", "addr", cfg.GRPCAddr, "error", err)
	}
	defer lis.Close()

	go func() {
		zlog.Infow("gRPC server listening", "addr", cfg.GRPCAddr, "env", cfg.Env)
		hs.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
		if err := srv.Serve(lis); err != nil {
			zlog.Fatalw("serve failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	zlog.Info("shutting down")
	hs.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	srv.GracefulStop()
	auditLogger.Flush(5 * time.Second)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := providers.Shutdown(shutdownCtx); err != nil {
		zlog.Warnw("telemetry shutdown", "error", err)
	}
	zlog.Info("stopped")
}

// loadKeys parses the configured signing key pair. In development an ephemeral
// pair is generated when none is configured; production requires real keys.
func loadKeys(cfg *config.Config) (crypto.Signer, crypto.PublicKey, error) {
	if cfg.JWTPrivateKey == "" && cfg.JWTPublicKey == "" && !cfg.Production() {
		return security.GenerateEphemeralKeyPair()
	}
	priv, err := security.ParsePrivateKey(cfg.JWTPrivateKey)
	if err != nil {
		return nil, nil, err
	}
	pub, err := security.ParsePublicKey(cfg.JWTPublicKey)
	if err != nil {
		return nil, nil, err
	}
	return priv, pub, nil
}
