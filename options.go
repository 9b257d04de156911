// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"errors"
	"time"

	"github.com/joeycumines/logiface"
)

// loopOptions holds configuration options for Loop creation.
type loopOptions struct {
	logger      *logiface.Logger[logiface.Event]
	logRates    map[time.Duration]int
	metricsIdle bool
}

// --- Loop Options ---

// LoopOption configures a Loop instance.
type LoopOption interface {
	applyLoop(*loopOptions) error
}

// loopOptionImpl implements LoopOption.
type loopOptionImpl struct {
	applyLoopFunc func(*loopOptions) error
}

func (l *loopOptionImpl) applyLoop(opts *loopOptions) error {
	return l.applyLoopFunc(opts)
}

// WithLogger sets the structured logger used for diagnostics, such as
// recovered callback panics and poll failures. A nil logger disables
// logging, which is the default.
func WithLogger(logger *logiface.Logger[logiface.Event]) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithLogRateLimit sets the per category rate limits applied to repeated
// diagnostics, keyed by window. A nil or empty map disables rate limiting.
//
// Example:
//
//	loop, err := uv.NewLoop(
//	    uv.WithLogger(logger),
//	    uv.WithLogRateLimit(map[time.Duration]int{
//	        time.Second: 5,
//	        time.Minute: 30,
//	    }),
//	)
func WithLogRateLimit(rates map[time.Duration]int) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		for window, limit := range rates {
			if window <= 0 || limit <= 0 {
				return errors.New("uv: log rate limits must be positive")
			}
		}
		opts.logRates = rates
		return nil
	}}
}

// WithMetricsIdleTime enables accounting of the time spent blocked waiting
// for events, see [Loop.MetricsIdleTime].
func WithMetricsIdleTime(enabled bool) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		opts.metricsIdle = enabled
		return nil
	}}
}

// resolveLoopOptions applies LoopOption instances to loopOptions.
func resolveLoopOptions(opts []LoopOption) (*loopOptions, error) {
	cfg := &loopOptions{
		logRates: defaultLogRates,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyLoop(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
