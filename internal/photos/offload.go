// Package photos moves inline profile photos to the CDN in the background.
package photos

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"hackattend/internal/cloudinary"
	"hackattend/internal/metrics"
	"hackattend/internal/queue"
)

// Uploader stores an image and returns where it is hosted.
type Uploader interface {
	UploadDataURL(ctx context.Context, dataURL, publicID string) (*cloudinary.UploadResult, error)
}

// Directory is the part of the directory service the offloader uses.
type Directory interface {
	PendingPhoto(ctx context.Context, userID string) string
	CompletePhotoUpload(ctx context.Context, userID, inline, url string) (bool, error)
}

// Offloader consumes photo jobs.
type Offloader struct {
	dir     Directory
	up      Uploader
	log     *zap.SugaredLogger
	timeout time.Duration
}

// NewOffloader creates an offloader. Each upload is bounded by timeout.
func NewOffloader(dir Directory, up Uploader, timeout time.Duration, log *zap.SugaredLogger) *Offloader {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Offloader{dir: dir, up: up, log: log, timeout: timeout}
}

// Run handles messages until ctx ends or the queue closes.
func (o *Offloader) Run(ctx context.Context, q queue.Queue) error {
	messages, err := q.Consume(ctx)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}
	for msg := range messages {
		if msg.Type != queue.TypeProfilePhoto {
			o.log.Debugw("skipping message", "type", msg.Type)
			continue
		}
		if err := o.Handle(ctx, string(msg.Body)); err != nil {
			o.log.Warnw("photo offload failed", "user_id", string(msg.Body), "err", err)
		}
	}
	return ctx.Err()
}

// Handle uploads the inline photo of userID, if it still has one, and swaps in
// the hosted url.
func (o *Offloader) Handle(ctx context.Context, userID string) error {
	inline := o.dir.PendingPhoto(ctx, userID)
	if inline == "" {
		metrics.PhotoOffloads.WithLabelValues("skipped").Inc()
		return nil
	}

	upCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	res, err := o.up.UploadDataURL(upCtx, inline, userID)
	if err != nil {
		metrics.PhotoOffloads.WithLabelValues("failed").Inc()
		return err
	}

	swapped, err := o.dir.CompletePhotoUpload(ctx, userID, inline, res.SecureURL)
	if err != nil {
		metrics.PhotoOffloads.WithLabelValues("failed").Inc()
		return fmt.Errorf("save hosted photo: %w", err)
	}
	if !swapped {
		metrics.PhotoOffloads.WithLabelValues("stale").Inc()
		o.log.Infow("photo changed during upload", "user_id", userID)
		return nil
	}
	metrics.PhotoOffloads.WithLabelValues("ok").Inc()
	o.log.Infow("photo offloaded", "user_id", userID, "url", res.SecureURL)
	return nil
}
