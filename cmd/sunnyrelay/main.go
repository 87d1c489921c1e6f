package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/sunnyrelay/sunnyrelay/pkg/log"
	"github.com/sunnyrelay/sunnyrelay/pkg/relay"
	"github.com/sunnyrelay/sunnyrelay/pkg/server"
	"github.com/sunnyrelay/sunnyrelay/pkg/storage"
	"github.com/sunnyrelay/sunnyrelay/pkg/sunnyportal"

	"github.com/levenlabs/go-lflag"
	"github.com/levenlabs/go-llog"
)

func main() {
	// init packages
	s := storage.Configured()
	p := sunnyportal.Configured()
	r := relay.Configured(p, s)

	// init server
	srv := server.Configured(r, s)

	// parse flags
	lflag.Configure()

	var level slog.Level
	// lflag automatically sets llog's level, but we need to set the slog level
	switch llog.GetLevel() {
	case llog.DebugLevel:
		level = slog.LevelDebug
	case llog.InfoLevel:
		level = slog.LevelInfo
	case llog.WarnLevel:
		level = slog.LevelWarn
	case llog.ErrorLevel:
		level = slog.LevelError
	default:
		panic(fmt.Errorf("unknown log level: %s", llog.GetLevel().String()))
	}
	log.SetDefaultLogLevel(level)

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	slog.Debug("logger configured", slog.String("level", level.String()))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// If initialization inside lflag.Do failed, we wouldn't be here (panic).
	defer func() {
		if err := s.Close(); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to close storage", "error", err)
		}
	}()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := r.Run(ctx); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "relay failed", "error", err)
		}
	}()

	// Run will block until context is canceled or error happens
	err := srv.Run(ctx)
	// the relay only stops on cancel
	cancel()
	wg.Wait()
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "server failed", "error", err)
		s.Close()
		os.Exit(1)
	}
	log.Ctx(ctx).InfoContext(ctx, "server exited cleanly")
}
