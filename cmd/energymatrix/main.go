package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/raterudder/energymatrix/pkg/display"
	"github.com/raterudder/energymatrix/pkg/ess"
	"github.com/raterudder/energymatrix/pkg/log"
	"github.com/raterudder/energymatrix/pkg/mqtt"
	"github.com/raterudder/energymatrix/pkg/server"
	"github.com/raterudder/energymatrix/pkg/utility"
	"github.com/raterudder/energymatrix/pkg/weather"

	"github.com/levenlabs/go-lflag"
	"github.com/levenlabs/go-llog"
)

func main() {
	// register flags for every component
	e := ess.Configured()
	prices, plan, layout := utility.Configured()
	gw := weather.Configured()
	sink, builder := display.Configured()
	pub := mqtt.Configured()

	// the server wires the components into the poll loop
	srv := server.Configured(e, prices, plan, layout, gw, sink, builder, pub)

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

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	log.SetDefaultLogLevel(level)
	slog.Debug("logger configured", slog.String("level", level.String()))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	defer func() {
		if err := e.Close(); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to close ess connection", "error", err)
		}
	}()

	// blocks until SIGINT/SIGTERM
	if err := srv.Run(ctx); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "server failed", "error", err)
		os.Exit(1)
	}
	log.Ctx(ctx).InfoContext(ctx, "server exited cleanly")
}
