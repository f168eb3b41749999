package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	v1 "github.com/kickback-hq/kickback/internal/api/v1"
	"github.com/shopspring/decimal"
)

const (
	querySelectCursorForUpdate = `
		SELECT last_signal_id
		FROM projector_state
		WHERE name = $1
		FOR UPDATE
	`

	queryInitCursorRow = `
		INSERT INTO projector_state (name, last_signal_id, updated_at)
		VALUES ($1, 0, $2)
		ON CONFLICT (name) DO NOTHING
	`

	// queryUpsertDaily replaces the counters for a (doc_id, day) key.
	// Overwrite, not accumulate: each flush writes the batch's own counts.
	queryUpsertDaily = `
		INSERT INTO search_signals_daily (doc_id, day, views, edits, recency_score)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (doc_id, day)
		DO UPDATE SET
			views         = EXCLUDED.views,
			edits         = EXCLUDED.edits,
			recency_score = EXCLUDED.recency_score
	`

	queryUpdateCursor = `
		UPDATE projector_state
		SET last_signal_id = $1, updated_at = $2
		WHERE name = $3
	`

	queryReadCursor = `SELECT last_signal_id FROM projector_state WHERE name = $1`

	queryLeaderboard = `
		SELECT doc_id, day, views, edits, recency_score
		FROM search_signals_daily
		WHERE day >= $1
		ORDER BY recency_score DESC
		LIMIT $2
	`

	queryDailyForDoc = `
		SELECT doc_id, day, views, edits, recency_score
		FROM search_signals_daily
		WHERE doc_id = $1
		ORDER BY day DESC
	`
)

// AggregateAdapter persists the daily aggregate projection and its cursor.
// Upserts and the cursor advance are a single transaction — the atomicity
// contract that makes a crash mid-flush unobservable.
type AggregateAdapter struct {
	db *sql.DB
}

// NewAggregateAdapter creates a new AggregateAdapter sharing the given connection.
func NewAggregateAdapter(db *sql.DB) *AggregateAdapter {
	return &AggregateAdapter{db: db}
}

// Apply upserts all aggregate rows and advances the named cursor in one
// transaction. cursor is the highest signal ID folded into this batch.
//
// The cursor row is locked first and writes with cursor <= the durable
// value are skipped entirely, so the watermark never moves backward and
// two racing projector instances cannot interleave their commits.
func (a *AggregateAdapter) Apply(ctx context.Context, name string, rows []v1.DailyAggregate, cursor int64) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("aggregate apply: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var durableCursor int64
	err = tx.QueryRowContext(ctx, querySelectCursorForUpdate, name).Scan(&durableCursor)
	if err == sql.ErrNoRows {
		_, err = tx.ExecContext(ctx, queryInitCursorRow, name, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("aggregate apply: init cursor row: %w", err)
		}

		err = tx.QueryRowContext(ctx, querySelectCursorForUpdate, name).Scan(&durableCursor)
		if err != nil {
			return fmt.Errorf("aggregate apply: read initialized cursor for update: %w", err)
		}
	}
	if err != nil {
		return fmt.Errorf("aggregate apply: read cursor for update: %w", err)
	}

	if cursor <= durableCursor {
		slog.Warn("[AggregateAdapter] Skipping stale/no-op apply",
			"projection", name,
			"cursor", cursor,
			"durable_cursor", durableCursor,
			"rows", len(rows))
		return nil
	}

	upsertStmt, err := tx.PrepareContext(ctx, queryUpsertDaily)
	if err != nil {
		return fmt.Errorf("aggregate apply: prepare upsert: %w", err)
	}
	defer upsertStmt.Close()

	for _, row := range rows {
		if _, err := upsertStmt.ExecContext(ctx,
			row.DocID,
			row.Day,
			row.Views,
			row.Edits,
			row.RecencyScore,
		); err != nil {
			return fmt.Errorf("aggregate apply: upsert doc=%d day=%s: %w",
				row.DocID, row.Day.Format("2006-01-02"), err)
		}
	}

	// Cursor advance rides the same transaction as the upserts.
	result, err := tx.ExecContext(ctx, queryUpdateCursor, cursor, time.Now().UTC(), name)
	if err != nil {
		return fmt.Errorf("aggregate apply: write cursor: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("aggregate apply: check cursor write: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("aggregate apply: cursor row missing (projection=%s)", name)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("aggregate apply: commit: %w", err)
	}

	slog.Info("[AggregateAdapter] Applied batch",
		"projection", name,
		"rows", len(rows),
		"cursor", cursor)
	return nil
}

// ReadCursor returns the named projection's watermark.
// Returns 0 if the projection never ran (meaning "fold from the beginning").
func (a *AggregateAdapter) ReadCursor(ctx context.Context, name string) (int64, error) {
	var cursor int64
	err := a.db.QueryRowContext(ctx, queryReadCursor, name).Scan(&cursor)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read cursor: %w", err)
	}
	return cursor, nil
}

// Leaderboard returns aggregate rows with day >= since, ordered by recency
// score descending. Serves the trending query.
func (a *AggregateAdapter) Leaderboard(ctx context.Context, since time.Time, limit int) ([]v1.DailyAggregate, error) {
	rows, err := a.db.QueryContext(ctx, queryLeaderboard, since, limit)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()

	return scanAggregateRows(rows)
}

// DailyForDoc returns all aggregate rows for one document, newest day first.
func (a *AggregateAdapter) DailyForDoc(ctx context.Context, docID int64) ([]v1.DailyAggregate, error) {
	rows, err := a.db.QueryContext(ctx, queryDailyForDoc, docID)
	if err != nil {
		return nil, fmt.Errorf("query daily aggregates: %w", err)
	}
	defer rows.Close()

	return scanAggregateRows(rows)
}

func scanAggregateRows(rows *sql.Rows) ([]v1.DailyAggregate, error) {
	var results []v1.DailyAggregate
	for rows.Next() {
		var agg v1.DailyAggregate
		var scoreStr string

		if err := rows.Scan(&agg.DocID, &agg.Day, &agg.Views, &agg.Edits, &scoreStr); err != nil {
			return nil, fmt.Errorf("scan aggregate row: %w", err)
		}

		score, err := decimal.NewFromString(scoreStr)
		if err != nil {
			return nil, fmt.Errorf("parse recency score %q: %w", scoreStr, err)
		}
		agg.RecencyScore = score

		results = append(results, agg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate aggregate rows: %w", err)
	}

	return results, nil
}
