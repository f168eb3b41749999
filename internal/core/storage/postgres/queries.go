package postgres

// SQL queries for the signal log and permission lookups.

const (
	// querySaveSignal appends a signal to the log. The unique constraint
	// on idem_key makes duplicate submissions conflict; ON CONFLICT DO
	// NOTHING then returns no rows (sql.ErrNoRows) for duplicates.
	// RETURNING retrieves the auto-assigned id so the caller can hand it
	// back to the client and the projector can use it as a watermark.
	querySaveSignal = `
		INSERT INTO signals (doc_id, user_id, kind, occurred_at, idem_key)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (idem_key) DO NOTHING
		RETURNING id
	`

	// queryFetchBatch fetches signals after a watermark in strict total
	// order. Used by the projector to fold batches without skipping or
	// double-reading rows at batch boundaries.
	queryFetchBatch = `
		SELECT id, doc_id, user_id, kind, occurred_at, idem_key
		FROM signals
		WHERE id > $1
		ORDER BY id ASC
		LIMIT $2
	`

	queryGetRole = `
		SELECT role
		FROM permissions
		WHERE doc_id = $1 AND user_id = $2
	`
)
