package v1

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailyAggregate is one row of the search_signals_daily projection:
// per-(document, calendar day) view/edit counts plus a recency score
// used for leaderboard ordering.
type DailyAggregate struct {
	DocID int64 `json:"doc_id"`

	// Day is the UTC calendar day the counts belong to (midnight UTC).
	Day time.Time `json:"day"`

	Views int64 `json:"views"`
	Edits int64 `json:"edits"`

	// RecencyScore rewards edits over views and decays with age.
	// Stored as NUMERIC(12,4).
	RecencyScore decimal.Decimal `json:"recency_score"`
}

// PermissionRole is the role a user holds on a document.
type PermissionRole string

const (
	RoleViewer PermissionRole = "viewer"
	RoleEditor PermissionRole = "editor"
	RoleOwner  PermissionRole = "owner"
)

// CanSubmit reports whether a holder of this role may submit a signal of
// the given kind. Anyone with a role may record a view; create and update
// signals require write access.
func (r PermissionRole) CanSubmit(kind Kind) bool {
	if kind == KindView {
		return true
	}
	return r == RoleEditor || r == RoleOwner
}
