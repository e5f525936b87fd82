package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/campushub/auth-service/handlers"
	"github.com/campushub/auth-service/internal/auth"
	"github.com/campushub/auth-service/internal/config"
	"github.com/campushub/auth-service/internal/oidc"
	"github.com/campushub/auth-service/internal/sessions"
	"github.com/campushub/auth-service/internal/tokens"
	"github.com/campushub/auth-service/internal/users"
	"github.com/campushub/auth-service/pkg/logger"
	"github.com/campushub/auth-service/pkg/metrics"
	"github.com/campushub/auth-service/pkg/middleware"
)

// identityVerifier is satisfied by both the OIDC and the insecure verifier.
type identityVerifier interface {
	auth.IdentityVerifier
	Ready(ctx context.Context) bool
}

func main() {
	// LOG_LEVEL: debug|info|warn|error|fatal
	logger.Init(os.Getenv("LOG_LEVEL"))
	defer logger.Sync()
	logger.Debugf("startup: LOG_LEVEL=%s", logger.LevelString())

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: store=%s mongo=%v postgres=%v redis=%v firebase=%v env=%s",
		cfg.Users.Store, cfg.MongoDB.URI != "", cfg.Postgres.URL != "", cfg.Redis.Host != "", cfg.Firebase.Issuer != "", cfg.Server.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, closeRepo, err := users.Open(ctx, cfg)
	if err != nil {
		logger.Fatalf("failed to open user directory: %v", err)
	}
	defer closeRepo()

	verifier, err := newVerifier(cfg)
	if err != nil {
		logger.Fatalf("failed to configure identity verifier: %v", err)
	}

	issuer, err := tokens.NewIssuer(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Expiration)
	if err != nil {
		logger.Fatalf("failed to configure token issuer: %v", err)
	}

	handoff := sessions.NewMemoryStore(cfg.Handoff.TTL)
	go handoff.Run(ctx, cfg.Handoff.SweepInterval)

	userSvc := users.NewService(repo, cfg.Users.BcryptCost, cfg.Users.DefaultProfilePicture)
	authSvc := auth.NewService(userSvc, verifier, issuer, handoff)

	if !cfg.Server.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(middleware.RequestID(), middleware.SecureHeaders(), middleware.CORS(cfg.CORS.AllowedOrigins))

	oidcReady := func(ctx context.Context) error {
		if !verifier.Ready(ctx) {
			return oidc.ErrProviderUnavailable
		}
		return nil
	}
	checks := map[string]handlers.Check{
		"users": userSvc.Ping,
		"oidc":  oidcReady,
	}

	// Optional global rate limiter (per-user when authenticated, otherwise per-IP)
	if cfg.RateLimit.Enabled {
		var rdb *redis.Client
		if cfg.RateLimit.UseRedis && cfg.Redis.Host != "" {
			rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Host + ":" + cfg.Redis.Port, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
			defer rdb.Close()
			if err := rdb.Ping(ctx).Err(); err != nil {
				logger.Warnf("redis ping failed (%s:%s): %v", cfg.Redis.Host, cfg.Redis.Port, err)
			} else {
				logger.Infof("connected to Redis for rate limiting: %s:%s", cfg.Redis.Host, cfg.Redis.Port)
			}
			checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		}
		win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
		r.Use(middleware.RedisRateLimitMiddleware(rdb, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
	}

	handlers.NewHealthHandler(checks).Register(r)
	handlers.NewAuthHandler(authSvc, issuer, cfg.Server.IsDevelopment()).Register(r.Group("/api"))
	handlers.RegisterSwagger(r)

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.NoRoute(handlers.NotFound)

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Infof("starting auth service on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("graceful shutdown failed: %v", err)
	}
}

func newVerifier(cfg *config.Config) (identityVerifier, error) {
	if cfg.Firebase.AllowInsecure {
		logger.Warn("ALLOW_INSECURE_TOKEN=true: federated token signatures are NOT verified")
		return oidc.NewInsecureVerifier(), nil
	}
	if cfg.Firebase.Issuer == "" || cfg.Firebase.ClientID == "" {
		return nil, errors.New("FIREBASE_PROJECT_ID (or OIDC_ISSUER and OIDC_CLIENT_ID) is required")
	}
	return oidc.NewVerifier(cfg.Firebase.Issuer, cfg.Firebase.ClientID), nil
}
