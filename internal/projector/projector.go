package projector

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	v1 "github.com/kickback-hq/kickback/internal/api/v1"
	"github.com/kickback-hq/kickback/internal/core/storage"
)

const (
	// DefaultName is the cursor row key for the daily search projection.
	DefaultName = "search_signals_projector"

	defaultBatchSize = 500
)

// Projector incrementally folds new signals into per-(document, day)
// daily aggregates and advances a durable watermark.
//
// The projector itself is stateless: every RunOnce reads the cursor from
// the store, so any number of invocations — the continuous worker, the
// admin trigger — operate against the same durable state.
type Projector struct {
	signals    storage.SignalStore
	aggregates AggregateStore
	name       string
	batchSize  int
	now        func() time.Time
}

// Option customizes a Projector.
type Option func(*Projector)

// WithName overrides the projection's cursor row key.
func WithName(name string) Option {
	return func(p *Projector) { p.name = name }
}

// WithBatchSize overrides how many signals one RunOnce folds at most.
func WithBatchSize(size int) Option {
	return func(p *Projector) {
		if size > 0 {
			p.batchSize = size
		}
	}
}

// WithClock overrides the time source. Used by tests to pin the recency
// score's age computation.
func WithClock(now func() time.Time) Option {
	return func(p *Projector) { p.now = now }
}

// New creates a Projector reading from signals and writing to aggregates.
func New(signals storage.SignalStore, aggregates AggregateStore, opts ...Option) *Projector {
	if signals == nil {
		panic("projector: signal store must not be nil")
	}
	if aggregates == nil {
		panic("projector: aggregate store must not be nil")
	}

	p := &Projector{
		signals:    signals,
		aggregates: aggregates,
		name:       DefaultName,
		batchSize:  defaultBatchSize,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RunOnce folds one batch of signals past the watermark and returns how
// many it processed. An empty batch returns 0 and touches nothing, so the
// call is safe to repeat when caught up.
//
// The aggregate upserts and the cursor advance are applied as one atomic
// unit by the store; a failure anywhere leaves durable state untouched.
// Store errors propagate uncaught — retry policy belongs to the caller.
func (p *Projector) RunOnce(ctx context.Context) (int, error) {
	cursor, err := p.aggregates.ReadCursor(ctx, p.name)
	if err != nil {
		return 0, fmt.Errorf("read cursor: %w", err)
	}

	signals, err := p.signals.FetchBatch(ctx, cursor, p.batchSize)
	if err != nil {
		return 0, fmt.Errorf("fetch batch: %w", err)
	}

	if len(signals) == 0 {
		slog.Debug("[Projector] Caught up", "projection", p.name, "cursor", cursor)
		return 0, nil
	}

	groups, maxID := fold(signals, cursor)

	now := p.now()
	rows := make([]v1.DailyAggregate, 0, len(groups))
	for key, c := range groups {
		rows = append(rows, v1.DailyAggregate{
			DocID:        key.docID,
			Day:          key.day,
			Views:        c.views,
			Edits:        c.edits,
			RecencyScore: recencyScore(c.views, c.edits, key.day, now),
		})
	}

	if err := p.aggregates.Apply(ctx, p.name, rows, maxID); err != nil {
		return 0, fmt.Errorf("apply aggregates: %w", err)
	}

	slog.Info("[Projector] Advanced",
		"projection", p.name,
		"processed", len(signals),
		"aggregates", len(rows),
		"cursor_advanced", fmt.Sprintf("%d -> %d", cursor, maxID))

	return len(signals), nil
}

// RunForever repeatedly calls RunOnce until ctx is cancelled. When caught
// up (0 processed) it sleeps for idleSleep before retrying; otherwise it
// loops immediately to drain the backlog.
//
// Errors from RunOnce are returned to the caller, which owns the retry
// and backoff policy. There is no special shutdown sequence: every
// iteration is a self-contained committed unit.
func (p *Projector) RunForever(ctx context.Context, idleSleep time.Duration) error {
	slog.Info("[Projector] Starting worker loop",
		"projection", p.name,
		"batch_size", p.batchSize,
		"idle_sleep", idleSleep)

	for {
		if err := ctx.Err(); err != nil {
			slog.Info("[Projector] Stopping (context cancelled)", "projection", p.name)
			return err
		}

		processed, err := p.RunOnce(ctx)
		if err != nil {
			return err
		}

		if processed > 0 {
			continue
		}

		select {
		case <-time.After(idleSleep):
		case <-ctx.Done():
			slog.Info("[Projector] Stopping (context cancelled)", "projection", p.name)
			return ctx.Err()
		}
	}
}
