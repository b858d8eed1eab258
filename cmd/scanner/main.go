package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"hackattend/internal/apiclient"
	"hackattend/internal/config"
	"hackattend/internal/logging"
	"hackattend/internal/model"
	"hackattend/internal/scan"
)

// Scanner station: polls a snapshot file written by a camera capture tool,
// decodes QR codes and records attendance through the API.
func main() {
	cfg := config.Load()
	server := flag.String("server", envOr("HACKATTEND_SERVER", "http://localhost:"+cfg.HTTPPort), "API base URL")
	email := flag.String("email", os.Getenv("HACKATTEND_EMAIL"), "Admin email")
	password := flag.String("password", os.Getenv("HACKATTEND_PASSWORD"), "Admin password")
	eventID := flag.String("event", "", "Event ID to record attendance for")
	frame := flag.String("frame", "frame.png", "Snapshot file kept up to date by the capture tool")
	list := flag.Bool("list", false, "List active events and exit")
	flag.Parse()

	logger, err := logging.New(logging.Config{Level: cfg.LogLevel, Dev: cfg.LogDev, File: cfg.LogFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := apiclient.New(*server)
	if _, err := client.Login(ctx, *email, *password); err != nil {
		fmt.Println("Error:", model.Message(err, err.Error()))
		os.Exit(1)
	}

	if *list || *eventID == "" {
		events, err := client.Events(ctx, model.EventActive)
		if err != nil {
			fmt.Println("Error:", model.Message(err, err.Error()))
			os.Exit(1)
		}
		for _, e := range events {
			fmt.Printf("%s  %s  %s %s-%s\n", e.ID, e.Name, e.Date, e.StartTime, e.EndTime)
		}
		if *eventID == "" && !*list {
			fmt.Println("--event required")
			os.Exit(1)
		}
		return
	}

	open := func(context.Context) (scan.FrameSource, error) {
		return &scan.FileSource{Path: *frame}, nil
	}
	s := scan.NewScanner(open, client, scan.Options{
		Interval:  cfg.ScanInterval,
		ResultTTL: cfg.ScanResultTTL,
	}, log.Named("scan"))
	if err := s.Select(ctx, *eventID); err != nil {
		fmt.Println("Error:", model.Message(err, err.Error()))
		os.Exit(1)
	}
	defer s.Stop()

	fmt.Printf("Scanning %s for event %s. Ctrl-C to stop.\n", *frame, *eventID)
	var showing *scan.Result
	tick := time.NewTicker(cfg.ScanInterval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case r := <-s.Results():
			showing = &r
			mark := "x"
			if r.OK() {
				mark = "ok"
			}
			fmt.Printf("[%s] %s\n", mark, r.Message)
		case now := <-tick.C:
			if showing != nil && now.After(showing.Expires) {
				showing = nil
				fmt.Println(strings.Repeat("-", 20))
			}
		}
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
