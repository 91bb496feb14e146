package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/tipfolio/history-engine/internal/model"
)

// RedisStore implements Store on the canonical record-store layout:
// one hash per (category, month) mapping date → JSON(DailyRecord), and one
// hash per category mapping month → JSON(MonthlySummary). Pre-migration
// installs kept everything under a single key per category; reads fall back
// to that legacy key when a month hash is empty.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func daysKey(category, month string) string { return fmt.Sprintf("%s:%s", category, month) }
func summariesKey(category string) string   { return fmt.Sprintf("%s:summaries", category) }
func legacyKey(category string) string      { return category }

func (s *RedisStore) GetMonthDays(ctx context.Context, category, month string) (map[string]json.RawMessage, error) {
	fields, err := s.rdb.HGetAll(ctx, daysKey(category, month)).Result()
	if err != nil {
		return nil, fmt.Errorf("get month %s/%s: %w", category, month, err)
	}

	if len(fields) == 0 {
		return s.legacyMonthDays(ctx, category, month)
	}

	days := make(map[string]json.RawMessage, len(fields))
	for date, doc := range fields {
		days[date] = json.RawMessage(doc)
	}
	return days, nil
}

// legacyMonthDays reads the pre-migration single-key document (one JSON
// object of date → day for the whole category) and filters it to the
// requested month.
func (s *RedisStore) legacyMonthDays(ctx context.Context, category, month string) (map[string]json.RawMessage, error) {
	data, err := s.rdb.Get(ctx, legacyKey(category)).Bytes()
	if err == redis.Nil {
		return map[string]json.RawMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get legacy %s: %w", category, err)
	}

	days, err := filterLegacyDays(data, month)
	if err != nil {
		return nil, fmt.Errorf("parse legacy %s: %w", category, err)
	}
	return days, nil
}

// filterLegacyDays parses a pre-migration whole-category document (one JSON
// object of date → day) and keeps only the requested month's days. Day
// documents pass through untouched.
func filterLegacyDays(data []byte, month string) (map[string]json.RawMessage, error) {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}

	days := make(map[string]json.RawMessage)
	for date, doc := range all {
		if strings.HasPrefix(date, month+"-") {
			days[date] = doc
		}
	}
	return days, nil
}

func (s *RedisStore) GetDay(ctx context.Context, category, month, date string) (json.RawMessage, error) {
	doc, err := s.rdb.HGet(ctx, daysKey(category, month), date).Bytes()
	if err == nil {
		return json.RawMessage(doc), nil
	}
	if err != redis.Nil {
		return nil, fmt.Errorf("get day %s/%s: %w", category, date, err)
	}

	// Month hash miss: the day may still live under the legacy key.
	days, err := s.legacyMonthDays(ctx, category, month)
	if err != nil {
		return nil, err
	}
	if doc, ok := days[date]; ok {
		return doc, nil
	}
	return nil, ErrNotFound
}

func (s *RedisStore) SaveDay(ctx context.Context, category, month, date string, doc []byte) error {
	if err := s.rdb.HSet(ctx, daysKey(category, month), date, doc).Err(); err != nil {
		return fmt.Errorf("save day %s/%s: %w", category, date, err)
	}
	return nil
}

func (s *RedisStore) SaveMonthlySummary(ctx context.Context, category, month string, summary *model.MonthlySummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal summary %s/%s: %w", category, month, err)
	}
	if err := s.rdb.HSet(ctx, summariesKey(category), month, data).Err(); err != nil {
		return fmt.Errorf("save summary %s/%s: %w", category, month, err)
	}
	return nil
}

func (s *RedisStore) GetYearSummaries(ctx context.Context, category, year string) (map[string]model.MonthlySummary, error) {
	fields, err := s.rdb.HGetAll(ctx, summariesKey(category)).Result()
	if err != nil {
		return nil, fmt.Errorf("get summaries %s: %w", category, err)
	}

	summaries := make(map[string]model.MonthlySummary)
	for month, doc := range fields {
		if !strings.HasPrefix(month, year+"-") {
			continue
		}
		var s model.MonthlySummary
		if json.Unmarshal([]byte(doc), &s) != nil {
			continue // unreadable cache entry, next month read rewrites it
		}
		summaries[month] = s
	}
	return summaries, nil
}
