package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/raterudder/energymatrix/pkg/common"
	"github.com/raterudder/energymatrix/pkg/controller"
	"github.com/raterudder/energymatrix/pkg/log"
	"github.com/raterudder/energymatrix/pkg/metrics"
)

// loop runs cycles until ctx is canceled, sleeping pollInterval between them.
func (s *Server) loop(ctx context.Context) {
	log.Ctx(ctx).InfoContext(
		ctx,
		"starting poll loop",
		slog.Duration("interval", s.pollInterval),
		slog.Duration("cycleTimeout", s.cycleTimeout),
	)
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Ctx(ctx).InfoContext(ctx, "poll loop stopped")
			return
		case <-timer.C:
		}
		s.runCycle(ctx)
		timer.Reset(s.pollInterval)
	}
}

// runCycle runs one cycle and pushes the result to the display and broker. It
// never returns an error: a failed cycle is logged and the next one starts
// after the usual interval.
func (s *Server) runCycle(ctx context.Context) {
	ctx = log.WithAttrs(ctx, slog.String("cycleID", uuid.NewString()))
	ctx, cancel := context.WithTimeout(ctx, s.cycleTimeout)
	defer cancel()

	start := time.Now()
	sample, err := s.controller.Cycle(ctx)
	elapsed := time.Since(start)
	if err != nil {
		result := metrics.ResultError
		if common.IsTimeout(err) {
			result = metrics.ResultTimeout
		}
		stage := controller.StageOf(err)
		s.metrics.ObserveCycle(result, string(stage), elapsed.Seconds())
		log.Ctx(ctx).ErrorContext(
			ctx,
			"cycle failed",
			slog.String("stage", string(stage)),
			slog.String("result", result),
			slog.Duration("elapsed", elapsed),
			slog.Any("error", err),
		)
		s.recordFailure(err, start)
		return
	}
	s.metrics.ObserveCycle(metrics.ResultSuccess, "", elapsed.Seconds())
	s.metrics.SetSample(sample)

	blocks := s.builder.Build(sample)
	sendErr := s.sink.Send(ctx, blocks)
	s.metrics.ObserveSend(sendErr)
	if sendErr != nil {
		level := slog.LevelError
		if errors.Is(sendErr, context.Canceled) {
			level = slog.LevelInfo
		}
		log.Ctx(ctx).Log(ctx, level, "failed to send to display", slog.Any("error", sendErr))
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, sample); err != nil {
			log.Ctx(ctx).WarnContext(ctx, "failed to publish sample", slog.Any("error", err))
		}
	}

	s.recordSuccess(sample, blocks, sendErr)
	log.Ctx(ctx).DebugContext(
		ctx,
		"cycle finished",
		slog.Duration("elapsed", time.Since(start)),
		slog.Int("blocks", len(blocks)),
	)
}
