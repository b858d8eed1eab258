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

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"hackattend/internal/attendance"
	"hackattend/internal/auth"
	"hackattend/internal/cloudinary"
	"hackattend/internal/config"
	"hackattend/internal/directory"
	"hackattend/internal/handler"
	"hackattend/internal/httpmiddleware"
	"hackattend/internal/logging"
	"hackattend/internal/photos"
	"hackattend/internal/queue"
	"hackattend/internal/records"
	"hackattend/internal/session"
	"hackattend/internal/store"
)

func main() {
	cfg := config.Load()

	logger, err := logging.New(logging.Config{Level: cfg.LogLevel, Dev: cfg.LogDev, File: cfg.LogFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Sugar()

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg, log); err != nil {
		log.Fatalw("http server failed", "err", err)
	}
}

func runHTTP(cfg config.App, log *zap.SugaredLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, store.Options{
		Backend:     cfg.StoreBackend,
		DataDir:     cfg.DataDir,
		DatabaseURL: cfg.DatabaseURL,
		SQLitePath:  cfg.SQLitePath,
		RedisAddr:   cfg.RedisAddr,
		RedisPrefix: cfg.RedisPrefix,
	})
	if err != nil {
		return fmt.Errorf("open record store: %w", err)
	}
	defer st.Close()
	log.Infow("record store ready", "backend", cfg.StoreBackend)
	repo := records.NewRepository(st, log.Named("records"))

	var redisClient *store.Redis
	needRedis := cfg.SessionBackend == "redis" || cfg.QueueBackend == "redis"
	if needRedis {
		redisClient = store.NewRedis(cfg.RedisAddr)
		defer redisClient.Client.Close()
		if !redisClient.Healthy(ctx) {
			log.Warnw("redis not reachable", "addr", cfg.RedisAddr)
		}
	}

	var sessStore session.Store = session.NewMemoryStore()
	if cfg.SessionBackend == "redis" {
		sessStore = session.NewRedisStore(redisClient.Client, cfg.RedisPrefix)
	}
	sessions := session.NewManager(sessStore)

	hasher := auth.BcryptHasher{Cost: cfg.BcryptCost}
	signer := auth.Signer{Issuer: cfg.JWTIssuer, Key: cfg.JWTSigningKey, TTL: cfg.SessionTTL}
	authSvc := auth.NewService(repo, sessions, hasher, signer, log.Named("auth"))
	if err := authSvc.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	// Photos are queued only when someone can upload them.
	var photoQueue queue.Queue
	switch {
	case cfg.QueueBackend == "redis":
		photoQueue = queue.NewRedisQueue(redisClient.Client, cfg.RedisPrefix+"jobs")
	case cfg.CloudinaryConfigured():
		photoQueue = queue.NewInMemory(64)
	default:
		log.Infow("cloudinary not configured, profile photos stay inline")
	}

	dir := directory.NewService(repo, sessions, hasher, photoQueue, log.Named("directory"))
	att := attendance.NewService(repo, log.Named("attendance"))

	if mem, ok := photoQueue.(*queue.InMemory); ok {
		cdn := cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
		off := photos.NewOffloader(dir, cdn, 30*time.Second, log.Named("photos"))
		go func() {
			if err := off.Run(ctx, mem); err != nil && !errors.Is(err, context.Canceled) {
				log.Warnw("photo offloader stopped", "err", err)
			}
		}()
		log.Infow("cloudinary configured", "cloud", cfg.CloudinaryCloudName)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestLogger(log.Named("http"), "/healthz", "/metrics"))
	corsCfg := cors.DefaultConfig()
	corsCfg.AllowOriginFunc = func(string) bool { return true }
	corsCfg.AllowCredentials = true
	corsCfg.AddAllowHeaders("Authorization")
	corsCfg.MaxAge = 24 * time.Hour
	r.Use(cors.New(corsCfg))
	r.Use(httpmiddleware.SecurityHeaders())
	r.Use(httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).Middleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	h := handler.New(authSvc, dir, att, repo, handler.Options{
		CookieSecure: cfg.CookieSecure,
		SessionTTL:   cfg.SessionTTL,
	}, log.Named("handler"))
	h.Register(r)
	h.RegisterPages(r, cfg.FrontendDir)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infow("starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Infow("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warnw("server forced shutdown", "err", err)
	}
	log.Infow("server exited")
	return nil
}
