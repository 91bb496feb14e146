package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tipfolio/history-engine/internal/model"
)

// PostgresStore implements Store using PostgreSQL. Day documents and cached
// summaries are kept as JSONB, mirroring the Redis layout:
//
//	daily_records(category TEXT, month TEXT, date TEXT, doc JSONB,
//	              PRIMARY KEY (category, date))
//	monthly_summaries(category TEXT, month TEXT, doc JSONB,
//	                  PRIMARY KEY (category, month))
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) GetMonthDays(ctx context.Context, category, month string) (map[string]json.RawMessage, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT date, doc FROM daily_records
		 WHERE category = $1 AND month = $2`, category, month)
	if err != nil {
		return nil, fmt.Errorf("get month %s/%s: %w", category, month, err)
	}
	defer rows.Close()

	days := make(map[string]json.RawMessage)
	for rows.Next() {
		var date string
		var doc []byte
		if err := rows.Scan(&date, &doc); err != nil {
			return nil, err
		}
		days[date] = json.RawMessage(doc)
	}
	return days, rows.Err()
}

func (s *PostgresStore) GetDay(ctx context.Context, category, month, date string) (json.RawMessage, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx,
		`SELECT doc FROM daily_records
		 WHERE category = $1 AND date = $2`, category, date).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get day %s/%s: %w", category, date, err)
	}
	return json.RawMessage(doc), nil
}

func (s *PostgresStore) SaveDay(ctx context.Context, category, month, date string, doc []byte) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO daily_records (category, month, date, doc)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (category, date) DO UPDATE SET month = $2, doc = $4`,
		category, month, date, doc)
	if err != nil {
		return fmt.Errorf("save day %s/%s: %w", category, date, err)
	}
	return nil
}

func (s *PostgresStore) SaveMonthlySummary(ctx context.Context, category, month string, summary *model.MonthlySummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal summary %s/%s: %w", category, month, err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO monthly_summaries (category, month, doc)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (category, month) DO UPDATE SET doc = $3`,
		category, month, data)
	if err != nil {
		return fmt.Errorf("save summary %s/%s: %w", category, month, err)
	}
	return nil
}

func (s *PostgresStore) GetYearSummaries(ctx context.Context, category, year string) (map[string]model.MonthlySummary, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT month, doc FROM monthly_summaries
		 WHERE category = $1 AND month LIKE $2 || '-%'`, category, year)
	if err != nil {
		return nil, fmt.Errorf("get summaries %s/%s: %w", category, year, err)
	}
	defer rows.Close()

	summaries := make(map[string]model.MonthlySummary)
	for rows.Next() {
		var month string
		var doc []byte
		if err := rows.Scan(&month, &doc); err != nil {
			return nil, err
		}
		var summary model.MonthlySummary
		if json.Unmarshal(doc, &summary) != nil {
			continue // unreadable cache entry, next month read rewrites it
		}
		summaries[month] = summary
	}
	return summaries, rows.Err()
}
