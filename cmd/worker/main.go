package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hackattend/internal/cloudinary"
	"hackattend/internal/config"
	"hackattend/internal/directory"
	"hackattend/internal/logging"
	"hackattend/internal/photos"
	"hackattend/internal/queue"
	"hackattend/internal/records"
	"hackattend/internal/session"
	"hackattend/internal/store"
)

// Worker consumes photo jobs from Redis and moves inline profile photos to
// Cloudinary.
func main() {
	cfg := config.Load()
	logger, err := logging.New(logging.Config{Level: cfg.LogLevel, Dev: cfg.LogDev, File: cfg.LogFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.QueueBackend != "redis" {
		log.Fatalw("worker needs QUEUE_BACKEND=redis; with the memory queue the api uploads photos itself")
	}
	if !cfg.CloudinaryConfigured() {
		log.Fatalw("cloudinary not configured (CLOUDINARY_CLOUD_NAME / API_KEY / API_SECRET)")
	}

	st, err := store.Open(ctx, store.Options{
		Backend:     cfg.StoreBackend,
		DataDir:     cfg.DataDir,
		DatabaseURL: cfg.DatabaseURL,
		SQLitePath:  cfg.SQLitePath,
		RedisAddr:   cfg.RedisAddr,
		RedisPrefix: cfg.RedisPrefix,
	})
	if err != nil {
		log.Fatalw("open record store failed", "err", err)
	}
	defer st.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Client.Close()
	if !redisClient.Healthy(ctx) {
		log.Warnw("redis not reachable, worker will keep retrying", "addr", cfg.RedisAddr)
	}

	// Refreshing sessions only reaches the api when they live in Redis.
	var sessions directory.SessionRefresher
	if cfg.SessionBackend == "redis" {
		sessions = session.NewManager(session.NewRedisStore(redisClient.Client, cfg.RedisPrefix))
	}

	repo := records.NewRepository(st, log.Named("records"))
	dir := directory.NewService(repo, sessions, nil, nil, log.Named("directory"))
	cdn := cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
	off := photos.NewOffloader(dir, cdn, 30*time.Second, log.Named("photos"))

	q := queue.NewRedisQueue(redisClient.Client, cfg.RedisPrefix+"jobs")
	log.Infow("worker started, waiting for messages")
	if err := off.Run(ctx, q); err != nil && !errors.Is(err, context.Canceled) {
		log.Errorw("worker stopped", "err", err)
		return
	}
	log.Infow("worker stopped")
}
