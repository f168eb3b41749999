package search

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	v1 "github.com/kickback-hq/kickback/internal/api/v1"
)

// ErrInvalidWindow is returned for window strings that are not of the
// form "<n>d" or "<n>h".
var ErrInvalidWindow = errors.New("invalid window")

// AggregateReader is the query side of the daily aggregate table.
type AggregateReader interface {
	// Leaderboard returns aggregate rows with day >= since, ordered by
	// recency score descending.
	Leaderboard(ctx context.Context, since time.Time, limit int) ([]v1.DailyAggregate, error)

	// DailyForDoc returns all aggregate rows for one document, newest
	// day first.
	DailyForDoc(ctx context.Context, docID int64) ([]v1.DailyAggregate, error)
}

// Service serves the trending and per-document query paths off the
// projection. It never reads the raw signal log.
type Service struct {
	reader AggregateReader
	now    func() time.Time
}

// NewService creates the search service.
func NewService(reader AggregateReader) *Service {
	if reader == nil {
		panic("search: aggregate reader must not be nil")
	}
	return &Service{reader: reader, now: time.Now}
}

// Leaderboard returns the top documents by recency score for a trailing
// window such as "7d" or "48h".
func (s *Service) Leaderboard(ctx context.Context, window string, limit int) ([]v1.DailyAggregate, error) {
	since, err := s.parseWindow(window)
	if err != nil {
		return nil, err
	}
	return s.reader.Leaderboard(ctx, since, limit)
}

// Daily returns the per-day aggregate history for one document.
func (s *Service) Daily(ctx context.Context, docID int64) ([]v1.DailyAggregate, error) {
	return s.reader.DailyForDoc(ctx, docID)
}

// parseWindow turns a trailing-window string ("7d", "48h") into the
// earliest UTC calendar day it covers.
func (s *Service) parseWindow(window string) (time.Time, error) {
	var delta time.Duration
	switch {
	case strings.HasSuffix(window, "d"):
		days, err := strconv.Atoi(strings.TrimSuffix(window, "d"))
		if err != nil {
			return time.Time{}, fmt.Errorf("%w %q", ErrInvalidWindow, window)
		}
		delta = time.Duration(days) * 24 * time.Hour
	case strings.HasSuffix(window, "h"):
		hours, err := strconv.Atoi(strings.TrimSuffix(window, "h"))
		if err != nil {
			return time.Time{}, fmt.Errorf("%w %q", ErrInvalidWindow, window)
		}
		delta = time.Duration(hours) * time.Hour
	default:
		return time.Time{}, fmt.Errorf("%w %q (want e.g. 7d or 48h)", ErrInvalidWindow, window)
	}

	since := s.now().UTC().Add(-delta)
	return time.Date(since.Year(), since.Month(), since.Day(), 0, 0, 0, 0, time.UTC), nil
}
