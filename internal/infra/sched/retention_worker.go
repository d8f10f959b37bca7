// Package sched holds the background maintenance workers.
package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// SweepFunc performs one maintenance pass and returns how many records
// it removed.
type SweepFunc func() int

type target struct {
	name  string
	sweep SweepFunc
}

// RetentionWorker periodically runs registered sweeps: terminal job
// records past their retention window and cache entries past TTL or over
// the byte budget.
type RetentionWorker struct {
	interval time.Duration
	targets  []target
	log      *zerolog.Logger
}

func NewRetentionWorker(interval time.Duration, logger *zerolog.Logger) *RetentionWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	wlog := logger.With().Str("component", "RetentionWorker").Logger()
	return &RetentionWorker{interval: interval, log: &wlog}
}

// Register adds a named sweep target. Not safe to call after Run starts.
func (w *RetentionWorker) Register(name string, sweep SweepFunc) {
	w.targets = append(w.targets, target{name: name, sweep: sweep})
}

func (w *RetentionWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("starting retention worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("stopping retention worker")
			return ctx.Err()
		case <-ticker.C:
			for _, t := range w.targets {
				if n := t.sweep(); n > 0 {
					w.log.Debug().Str("target", t.name).Int("removed", n).Msg("sweep pass")
				}
			}
		}
	}
}
