package v1

import (
	"fmt"
	"time"
)

// Kind classifies a recorded user action against a document.
type Kind string

const (
	KindCreate Kind = "create"
	KindUpdate Kind = "update"
	KindView   Kind = "view"
)

// Valid reports whether k is one of the recognized signal kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindCreate, KindUpdate, KindView:
		return true
	}
	return false
}

// Signal is the atomic unit of the system: one immutable user action
// against a document. Signals are append-only; the database assigns a
// strictly increasing ID on insert and rows are never mutated afterwards.
type Signal struct {
	// ID is assigned by the database (BIGSERIAL) and provides the strict
	// total order the projector's watermark is built on. Zero until saved.
	ID int64 `json:"id"`

	// DocID identifies the document the action was taken against.
	DocID int64 `json:"doc_id"`

	// UserID identifies the actor.
	UserID int64 `json:"user_id"`

	// Kind is one of create/update/view.
	Kind Kind `json:"kind"`

	// OccurredAt is when the action happened (client-side clock).
	OccurredAt time.Time `json:"occurred_at"`

	// IdemKey is an optional client-supplied idempotency token. When
	// present it is globally unique: the signals table enforces a unique
	// constraint, so a repeated submission surfaces as a conflict.
	IdemKey string `json:"idem_key,omitempty"`
}

// Validate ensures the signal has all required attributes.
func (s *Signal) Validate() error {
	if s.DocID <= 0 {
		return fmt.Errorf("doc_id is required")
	}

	if s.UserID <= 0 {
		return fmt.Errorf("user_id is required")
	}

	if !s.Kind.Valid() {
		return fmt.Errorf("kind must be one of create, update, view")
	}

	if s.OccurredAt.IsZero() {
		return fmt.Errorf("occurred_at is required")
	}

	return nil
}
