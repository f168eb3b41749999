package projector

import (
	"context"

	v1 "github.com/kickback-hq/kickback/internal/api/v1"
)

// AggregateStore is the interface for durable daily-aggregate persistence.
// The projector flushes each folded batch through this interface.
//
// Contract: Apply and the cursor advance are atomically linked — a single
// database transaction. This prevents the crash scenario where aggregates
// are written but the cursor is not (double-counting on the next run), or
// the cursor advances past unwritten aggregates (lost counts).
//
// Cursor invariant: "cursor N means every signal up to ID N is folded in,
// and none after." The cursor only ever moves forward.
type AggregateStore interface {
	// Apply upserts all aggregate rows and advances the named cursor in
	// one transaction. cursor is the highest signal ID in the batch.
	// Upserts overwrite the existing (doc, day) row with the batch's own
	// counts; they do not accumulate.
	Apply(ctx context.Context, name string, rows []v1.DailyAggregate, cursor int64) error

	// ReadCursor returns the named projection's watermark.
	// Returns 0 if the projection never ran.
	ReadCursor(ctx context.Context, name string) (int64, error)
}
