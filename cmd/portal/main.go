package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/Skotchmaster/mentor_portal/internal/events"
	"github.com/Skotchmaster/mentor_portal/internal/gate"
	"github.com/Skotchmaster/mentor_portal/internal/httpserver"
	"github.com/Skotchmaster/mentor_portal/internal/httpserver/middleware"
	"github.com/Skotchmaster/mentor_portal/internal/metrics"
	"github.com/Skotchmaster/mentor_portal/internal/models"
	"github.com/Skotchmaster/mentor_portal/internal/repo"
	"github.com/Skotchmaster/mentor_portal/internal/revocation"
	"github.com/Skotchmaster/mentor_portal/internal/service"
	"github.com/Skotchmaster/mentor_portal/pkg/config"
	"github.com/Skotchmaster/mentor_portal/pkg/cookies"
	"github.com/Skotchmaster/mentor_portal/pkg/db"
	pkg_hash "github.com/Skotchmaster/mentor_portal/pkg/hash"
	"github.com/Skotchmaster/mentor_portal/pkg/logging"
	"github.com/Skotchmaster/mentor_portal/pkg/rbac"
	"github.com/Skotchmaster/mentor_portal/pkg/tokens"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("load .env: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	gdb, err := db.Open(initCtx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}
	if err := db.Migrate(gdb, &models.User{}); err != nil {
		log.Fatalf("db migrate error: %v", err)
	}

	hasher, err := pkg_hash.NewHasher(cfg.BcryptCost)
	if err != nil {
		log.Fatalf("hasher: %v", err)
	}
	if hasher.Cost() < pkg_hash.MinRecommendedCost {
		logger.Warn("bcrypt_cost_below_recommended", "cost", hasher.Cost(), "recommended", pkg_hash.MinRecommendedCost)
	}

	access, err := tokens.NewCodec(tokens.TypeAccess, cfg.JWTAccessSecret, cfg.AccessTokenTTL)
	if err != nil {
		log.Fatalf("access codec: %v", err)
	}
	refresh, err := tokens.NewCodec(tokens.TypeRefresh, cfg.JWTRefreshSecret, cfg.RefreshTokenTTL)
	if err != nil {
		log.Fatalf("refresh codec: %v", err)
	}

	var (
		epochs      revocation.EpochStore = revocation.Nop{}
		redisClient *redis.Client
	)
	if cfg.RedisURL != "" {
		redisClient, err = revocation.NewRedisClient(initCtx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		epochs = revocation.NewRedisStore(redisClient, cfg.AccessTokenTTL+time.Minute)
	} else {
		logger.Info("session_revocation_disabled")
	}

	var publisher events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	}

	m := metrics.New()
	users := &repo.GormRepo{DB: gdb}

	authSvc := &service.AuthService{
		Repo:         users,
		Hasher:       hasher,
		Access:       access,
		RefreshCodec: refresh,
		Epochs:       epochs,
		Events:       publisher,
		Metrics:      m,
	}
	userSvc := &service.UserService{
		Repo:   users,
		Hasher: hasher,
		Epochs: epochs,
		Events: publisher,
	}

	e := httpserver.New(&httpserver.Deps{
		Auth:           &httpserver.AuthHTTP{Svc: authSvc, Cookies: cookies.Factory{Secure: cfg.CookieSecure}},
		Users:          &httpserver.UsersHTTP{Svc: userSvc, Table: rbac.Default},
		Gate:           &gate.Gate{Table: rbac.Default, Verifier: authSvc, Metrics: m},
		Metrics:        m,
		Logger:         logger,
		AuthLimiter:    middleware.NewRateLimiter(cfg.LoginRatePerSec, cfg.LoginRateBurst),
		AllowedOrigins: cfg.AllowedOrigins,
		TrustedProxies: cfg.TrustedProxies,
		Ready:          func(ctx context.Context) error { return db.Ping(ctx, gdb) },
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		logger.Info("server_started", "addr", srv.Addr, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server_shutdown_failed", "error", err)
	}
	closeAll(logger, gdb, redisClient, publisher)
	logger.Info("server_stopped")
}

func closeAll(l *slog.Logger, gdb *gorm.DB, rc *redis.Client, p events.Publisher) {
	if err := p.Close(); err != nil {
		l.Error("kafka_close_failed", "error", err)
	}
	if rc != nil {
		if err := rc.Close(); err != nil {
			l.Error("redis_close_failed", "error", err)
		}
	}
	if err := db.Close(gdb); err != nil {
		l.Error("db_close_failed", "error", err)
	}
}
