package store

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/tipfolio/history-engine/internal/model"
)

// MemoryStore implements Store with in-memory maps. Used for testing and
// development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu        sync.RWMutex
	days      map[string]map[string][]byte // category:month → date → doc
	summaries map[string]map[string][]byte // category → month → JSON summary
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		days:      make(map[string]map[string][]byte),
		summaries: make(map[string]map[string][]byte),
	}
}

func (s *MemoryStore) GetMonthDays(_ context.Context, category, month string) (map[string]json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]json.RawMessage)
	for date, doc := range s.days[daysKey(category, month)] {
		out[date] = append(json.RawMessage(nil), doc...)
	}
	return out, nil
}

func (s *MemoryStore) GetDay(_ context.Context, category, month, date string) (json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.days[daysKey(category, month)][date]
	if !ok {
		return nil, ErrNotFound
	}
	return append(json.RawMessage(nil), doc...), nil
}

func (s *MemoryStore) SaveDay(_ context.Context, category, month, date string, doc []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := daysKey(category, month)
	if s.days[key] == nil {
		s.days[key] = make(map[string][]byte)
	}
	s.days[key][date] = append([]byte(nil), doc...)
	return nil
}

func (s *MemoryStore) SaveMonthlySummary(_ context.Context, category, month string, summary *model.MonthlySummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.summaries[category] == nil {
		s.summaries[category] = make(map[string][]byte)
	}
	s.summaries[category][month] = data
	return nil
}

func (s *MemoryStore) GetYearSummaries(_ context.Context, category, year string) (map[string]model.MonthlySummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]model.MonthlySummary)
	for month, doc := range s.summaries[category] {
		if !strings.HasPrefix(month, year+"-") {
			continue
		}
		var summary model.MonthlySummary
		if json.Unmarshal(doc, &summary) != nil {
			continue
		}
		out[month] = summary
	}
	return out, nil
}
