package postgres

import (
	"database/sql"
	"fmt"

	v1 "github.com/kickback-hq/kickback/internal/api/v1"
)

// nullableString maps "" to SQL NULL. The unique constraint on idem_key
// must not fire for signals submitted without a token.
func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

type scanner interface {
	Scan(dest ...interface{}) error
}

// scanSignalRow scans a database row into a Signal struct.
// Compatible with both sql.Row (single) and sql.Rows (multiple).
func scanSignalRow(row scanner) (*v1.Signal, error) {
	var sig v1.Signal
	var kind string
	var idemKey sql.NullString

	err := row.Scan(
		&sig.ID,
		&sig.DocID,
		&sig.UserID,
		&kind,
		&sig.OccurredAt,
		&idemKey,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan signal row: %w", err)
	}

	sig.Kind = v1.Kind(kind)
	if idemKey.Valid {
		sig.IdemKey = idemKey.String
	}

	return &sig, nil
}
