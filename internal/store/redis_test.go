package store

import (
	"encoding/json"
	"testing"
)

func TestFilterLegacyDays_MonthPrefix(t *testing.T) {
	doc := []byte(`{
		"2025-03-01": {"bets":[]},
		"2025-03-15": {"bets":[{"type":"safe","stake":6}]},
		"2025-02-28": {"bets":[]},
		"2025-12-03": {"bets":[]}
	}`)

	days, err := filterLegacyDays(doc, "2025-03")
	if err != nil {
		t.Fatalf("failed to filter legacy doc: %v", err)
	}
	if len(days) != 2 {
		t.Fatalf("expected 2 days for 2025-03, got %d", len(days))
	}
	if _, ok := days["2025-03-01"]; !ok {
		t.Error("missing 2025-03-01")
	}
	if _, ok := days["2025-02-28"]; ok {
		t.Error("2025-02-28 belongs to another month")
	}
	// 2025-12-03 contains "03" but not as the month.
	if _, ok := days["2025-12-03"]; ok {
		t.Error("2025-12-03 belongs to another month")
	}

	// Day documents pass through untouched.
	var day struct {
		Bets []json.RawMessage `json:"bets"`
	}
	if err := json.Unmarshal(days["2025-03-15"], &day); err != nil {
		t.Fatalf("filtered doc mangled: %v", err)
	}
	if len(day.Bets) != 1 {
		t.Errorf("expected 1 bet in passed-through doc, got %d", len(day.Bets))
	}
}

func TestFilterLegacyDays_Empty(t *testing.T) {
	days, err := filterLegacyDays([]byte(`{}`), "2025-03")
	if err != nil {
		t.Fatalf("empty legacy doc must not error: %v", err)
	}
	if len(days) != 0 {
		t.Errorf("expected no days, got %d", len(days))
	}
}

func TestFilterLegacyDays_Malformed(t *testing.T) {
	if _, err := filterLegacyDays([]byte(`{{{not json`), "2025-03"); err == nil {
		t.Error("expected error for malformed legacy document")
	}
	if _, err := filterLegacyDays([]byte(`[1,2,3]`), "2025-03"); err == nil {
		t.Error("expected error for non-object legacy document")
	}
}
