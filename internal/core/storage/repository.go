package storage

import (
	"context"
	"errors"

	v1 "github.com/kickback-hq/kickback/internal/api/v1"
)

// ErrDuplicateSignal is returned when a signal with the same idem_key
// already exists in the durable store.
var ErrDuplicateSignal = errors.New("signal already exists")

// SignalStore defines the interface for the append-only signal log.
type SignalStore interface {
	// SaveSignal persists a signal and populates its ID from the
	// database sequence. Returns ErrDuplicateSignal when the signal's
	// idem_key is already taken.
	SaveSignal(ctx context.Context, signal *v1.Signal) error

	// FetchBatch fetches up to limit signals with ID strictly greater
	// than afterID, ordered ascending by ID. afterID=0 means "from the
	// beginning".
	FetchBatch(ctx context.Context, afterID int64, limit int) ([]*v1.Signal, error)
}

// PermissionStore resolves the role a user holds on a document.
type PermissionStore interface {
	// GetRole returns the user's role on the document, or ("", false)
	// when the user holds no role at all.
	GetRole(ctx context.Context, docID, userID int64) (v1.PermissionRole, bool, error)
}
