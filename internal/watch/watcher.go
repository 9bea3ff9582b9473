// Package watch polls the translation history on a schedule and reports
// jobs that finished since the last poll.
package watch

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/marcus-qen/tradutor/internal/records"
)

const (
	tickInterval = 10 * time.Second
	pollPageSize = 100
)

// Source lists translation records. *records.Service satisfies it.
type Source interface {
	List(ctx context.Context, q records.Query) (*records.Page, error)
}

// Cache persists polled records locally. *records.Cache satisfies it; nil
// disables caching.
type Cache interface {
	Upsert([]records.Record) error
}

// Watcher polls the record source and invokes the callback when a record
// reaches a terminal status.
type Watcher struct {
	source   Source
	cache    Cache
	schedule string
	onDone   func(records.Record)
	logger   *zap.Logger

	mu       sync.Mutex
	cancel   context.CancelFunc
	ticker   *time.Ticker
	lastPoll time.Time
	seen     map[string]string // record id -> last observed status
	wg       sync.WaitGroup
}

// New creates a watcher. schedule is either a Go duration ("30s", "5m") or
// a standard cron expression. onDone fires once per record when it first
// shows up as DONE or ERROR.
func New(source Source, cache Cache, schedule string, onDone func(records.Record), logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if _, err := nextDue(schedule, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("watch schedule %q: %w", schedule, err)
	}
	return &Watcher{
		source:   source,
		cache:    cache,
		schedule: schedule,
		onDone:   onDone,
		logger:   logger,
		seen:     make(map[string]string),
	}, nil
}

// Start starts the polling loop. It is safe to call Start multiple times.
func (w *Watcher) Start(ctx context.Context) {
	w.mu.Lock()
	if w.ticker != nil {
		w.mu.Unlock()
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.ticker = time.NewTicker(tickInterval)
	ticker := w.ticker
	w.mu.Unlock()

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.pollOnce(loopCtx, time.Now().UTC())
		for {
			select {
			case <-loopCtx.Done():
				return
			case now := <-ticker.C:
				if w.due(now.UTC()) {
					w.pollOnce(loopCtx, now.UTC())
				}
			}
		}
	}()
}

// Stop stops the polling loop and waits for an in-flight poll to finish.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.ticker == nil {
		w.mu.Unlock()
		return
	}
	w.ticker.Stop()
	w.ticker = nil
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	w.mu.Unlock()

	w.wg.Wait()
}

func (w *Watcher) due(now time.Time) bool {
	w.mu.Lock()
	anchor := w.lastPoll
	w.mu.Unlock()
	if anchor.IsZero() {
		return true
	}
	next, err := nextDue(w.schedule, anchor)
	if err != nil {
		return false
	}
	return !next.After(now)
}

func (w *Watcher) pollOnce(ctx context.Context, now time.Time) {
	w.mu.Lock()
	w.lastPoll = now
	w.mu.Unlock()

	page, err := w.source.List(ctx, records.Query{Size: pollPageSize})
	if err != nil {
		w.logger.Warn("poll records failed", zap.Error(err))
		return
	}

	if w.cache != nil {
		if err := w.cache.Upsert(page.Records); err != nil {
			w.logger.Warn("cache records failed", zap.Error(err))
		}
	}

	var finished []records.Record
	w.mu.Lock()
	for _, rec := range page.Records {
		if rec.ID == "" {
			continue
		}
		previous, known := w.seen[rec.ID]
		w.seen[rec.ID] = rec.Status
		if !terminal(rec.Status) {
			continue
		}
		if known && previous == rec.Status {
			continue
		}
		finished = append(finished, rec)
	}
	w.mu.Unlock()

	for _, rec := range finished {
		w.logger.Info("translation finished",
			zap.String("id", rec.ID),
			zap.String("file", rec.Filename),
			zap.String("status", rec.Status))
		if w.onDone != nil {
			w.onDone(rec)
		}
	}
}

func terminal(status string) bool {
	switch status {
	case records.StatusDone, records.StatusError:
		return true
	}
	return false
}

// nextDue returns when the schedule fires next after anchor. A plain
// duration means a fixed interval; anything else must parse as a standard
// cron expression.
func nextDue(schedule string, anchor time.Time) (time.Time, error) {
	schedule = strings.TrimSpace(schedule)
	if schedule == "" {
		return time.Time{}, fmt.Errorf("schedule is required")
	}
	if interval, err := time.ParseDuration(schedule); err == nil {
		if interval <= 0 {
			return time.Time{}, fmt.Errorf("interval must be > 0")
		}
		return anchor.Add(interval), nil
	}
	spec, err := cron.ParseStandard(schedule)
	if err != nil {
		return time.Time{}, err
	}
	return spec.Next(anchor), nil
}
