package projector

import (
	"time"

	v1 "github.com/kickback-hq/kickback/internal/api/v1"
	"github.com/shopspring/decimal"
)

// freshnessWindowDays is how long a day's aggregate keeps earning a
// freshness bonus. Beyond it the bonus floors at zero.
const freshnessWindowDays = 10

var two = decimal.NewFromInt(2)

type aggregateKey struct {
	docID int64
	day   time.Time
}

type counters struct {
	views int64
	edits int64
}

// isView is the two-variant classification of signal kinds: view signals
// count as views, everything else (create, update) counts as an edit.
// Kind granularity beyond view/edit is deliberately discarded here.
func isView(k v1.Kind) bool {
	return k == v1.KindView
}

// dayOf normalizes a timestamp to its UTC calendar day (midnight UTC).
func dayOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// fold groups a batch of signals by (document, day) and counts views and
// edits per group. Returns the grouped counters and the maximum signal ID
// observed, starting from afterID.
func fold(signals []*v1.Signal, afterID int64) (map[aggregateKey]*counters, int64) {
	groups := make(map[aggregateKey]*counters)
	maxID := afterID

	for _, sig := range signals {
		if sig.ID > maxID {
			maxID = sig.ID
		}

		key := aggregateKey{docID: sig.DocID, day: dayOf(sig.OccurredAt)}
		c := groups[key]
		if c == nil {
			c = &counters{}
			groups[key] = c
		}

		if isView(sig.Kind) {
			c.views++
		} else {
			c.edits++
		}
	}

	return groups, maxID
}

// recencyScore computes views + 2*edits + max(0, 10 - ageDays), where
// ageDays is the whole-day distance from the group's day to now. The score
// is computed from the batch's own counts only.
func recencyScore(views, edits int64, day time.Time, now time.Time) decimal.Decimal {
	score := decimal.NewFromInt(views).Add(decimal.NewFromInt(edits).Mul(two))

	ageDays := int64(dayOf(now).Sub(day).Hours() / 24)
	if bonus := freshnessWindowDays - ageDays; bonus > 0 {
		score = score.Add(decimal.NewFromInt(bonus))
	}

	return score
}
