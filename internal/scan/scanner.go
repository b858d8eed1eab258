// Package scan runs the station-side loop that reads QR codes from a camera
// feed and submits them for the selected event.
package scan

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"hackattend/internal/model"
	"hackattend/internal/qr"
)

// Submitter records a decoded payload at an event.
type Submitter interface {
	Submit(ctx context.Context, eventID, payload string) (model.AttendanceRecord, error)
}

// Result is the outcome of one submission, shown to the operator until
// Expires.
type Result struct {
	EventID string
	Record  *model.AttendanceRecord
	Err     error
	Message string
	Expires time.Time
}

// OK reports whether attendance was recorded.
func (r Result) OK() bool { return r.Err == nil }

// Options tunes the loop.
type Options struct {
	Interval  time.Duration
	ResultTTL time.Duration
}

// Scanner owns at most one running loop. Selecting another event stops the
// current loop and releases its frame source before the next one starts.
type Scanner struct {
	open    Opener
	sub     Submitter
	opts    Options
	log     *zap.SugaredLogger
	results chan Result

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	event  string
}

// NewScanner creates an idle scanner.
func NewScanner(open Opener, sub Submitter, opts Options, log *zap.SugaredLogger) *Scanner {
	if opts.Interval <= 0 {
		opts.Interval = 100 * time.Millisecond
	}
	if opts.ResultTTL <= 0 {
		opts.ResultTTL = 2 * time.Second
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Scanner{open: open, sub: sub, opts: opts, log: log, results: make(chan Result, 16)}
}

// Results delivers submission outcomes. Results are dropped when nobody reads.
func (s *Scanner) Results() <-chan Result { return s.results }

// Event returns the event currently being scanned, or "".
func (s *Scanner) Event() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.event
}

// Select starts scanning for eventID, stopping any previous loop first.
func (s *Scanner) Select(ctx context.Context, eventID string) error {
	if eventID == "" {
		return model.Validation("Please select an event")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()

	src, err := s.open(ctx)
	if err != nil {
		return fmt.Errorf("open frame source: %w", err)
	}
	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel, s.done, s.event = cancel, done, eventID

	go func() {
		defer close(done)
		defer func() {
			if err := src.Close(); err != nil {
				s.log.Warnw("close frame source", "err", err)
			}
		}()
		s.loop(loopCtx, eventID, src)
	}()
	s.log.Infow("scanning started", "event_id", eventID)
	return nil
}

// Stop ends the current loop, if any, and waits for it to release its source.
func (s *Scanner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Scanner) stopLocked() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.log.Infow("scanning stopped", "event_id", s.event)
	s.cancel, s.done, s.event = nil, nil, ""
}

func (s *Scanner) loop(ctx context.Context, eventID string, src FrameSource) {
	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	var inView string
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		frame, err := src.Frame(ctx)
		if err != nil {
			if !errors.Is(err, ErrNoFrame) && ctx.Err() == nil {
				s.log.Debugw("read frame failed", "err", err)
			}
			continue
		}
		text, err := qr.Decode(frame)
		if err != nil {
			inView = ""
			continue
		}
		if text == inView {
			continue
		}
		inView = text
		s.publish(s.submit(ctx, eventID, text))
	}
}

func (s *Scanner) submit(ctx context.Context, eventID, text string) Result {
	res := Result{EventID: eventID, Expires: time.Now().Add(s.opts.ResultTTL)}
	p, err := qr.ParsePayload(text)
	if err != nil {
		res.Err = model.Validation("Invalid QR code")
		res.Message = "Invalid QR code"
		return res
	}
	rec, err := s.sub.Submit(ctx, eventID, text)
	if err != nil {
		res.Err = err
		res.Message = model.Message(err, "Error recording attendance")
		return res
	}
	res.Record = &rec
	res.Message = p.Name + " - Attendance recorded"
	return res
}

func (s *Scanner) publish(r Result) {
	select {
	case s.results <- r:
	default:
		s.log.Warnw("scan result dropped", "message", r.Message)
	}
}
