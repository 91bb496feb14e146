// Package store defines the persistence interface for the history engine.
// Implementations include Redis (the canonical record store layout),
// PostgreSQL (JSONB-backed alternative), and in-memory (for testing).
package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/tipfolio/history-engine/internal/model"
)

// ErrNotFound is returned when no document exists for the requested key.
var ErrNotFound = errors.New("store: not found")

// Store is the record-store interface. Day documents are stored as opaque
// JSON and normalized by the caller; monthly summaries are written back as
// a recompute-on-read cache.
type Store interface {
	// GetMonthDays returns all raw day documents of one month, keyed by
	// YYYY-MM-DD date. An empty month yields an empty map, not an error.
	GetMonthDays(ctx context.Context, category, month string) (map[string]json.RawMessage, error)

	// GetDay returns one raw day document, or ErrNotFound.
	GetDay(ctx context.Context, category, month, date string) (json.RawMessage, error)

	// SaveDay writes one day document, overwriting any prior value.
	SaveDay(ctx context.Context, category, month, date string, doc []byte) error

	// SaveMonthlySummary overwrites the cached summary for a month.
	SaveMonthlySummary(ctx context.Context, category, month string, summary *model.MonthlySummary) error

	// GetYearSummaries returns the cached monthly summaries of one year,
	// keyed by YYYY-MM month. Months never cached are simply absent.
	GetYearSummaries(ctx context.Context, category, year string) (map[string]model.MonthlySummary, error)
}
