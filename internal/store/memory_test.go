package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/tipfolio/history-engine/internal/model"
	"github.com/tipfolio/history-engine/internal/store"
)

func TestMemoryStore_DayRoundtrip(t *testing.T) {
	ms := store.NewMemoryStore()
	ctx := context.Background()

	doc := []byte(`{"bets":[{"type":"safe","status":"WON"}]}`)
	if err := ms.SaveDay(ctx, model.CategoryDailyBets, "2025-03", "2025-03-01", doc); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, err := ms.GetDay(ctx, model.CategoryDailyBets, "2025-03", "2025-03-01")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if string(got) != string(doc) {
		t.Errorf("got %s, want %s", got, doc)
	}

	days, err := ms.GetMonthDays(ctx, model.CategoryDailyBets, "2025-03")
	if err != nil {
		t.Fatalf("get month failed: %v", err)
	}
	if len(days) != 1 {
		t.Errorf("expected 1 day, got %d", len(days))
	}
}

func TestMemoryStore_DayNotFound(t *testing.T) {
	ms := store.NewMemoryStore()

	_, err := ms.GetDay(context.Background(), model.CategoryDailyBets, "2025-03", "2025-03-01")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_CategoriesIsolated(t *testing.T) {
	ms := store.NewMemoryStore()
	ctx := context.Background()

	ms.SaveDay(ctx, model.CategoryDailyBets, "2025-03", "2025-03-01", []byte(`{}`))

	if _, err := ms.GetDay(ctx, model.CategoryStakazo, "2025-03", "2025-03-01"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound across categories, got %v", err)
	}
}

func TestMemoryStore_YearSummariesFiltered(t *testing.T) {
	ms := store.NewMemoryStore()
	ctx := context.Background()

	s := &model.MonthlySummary{TotalProfit: decimal.NewFromInt(5)}
	ms.SaveMonthlySummary(ctx, model.CategoryDailyBets, "2024-12", s)
	ms.SaveMonthlySummary(ctx, model.CategoryDailyBets, "2025-01", s)
	ms.SaveMonthlySummary(ctx, model.CategoryDailyBets, "2025-02", s)

	got, err := ms.GetYearSummaries(ctx, model.CategoryDailyBets, "2025")
	if err != nil {
		t.Fatalf("get summaries failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 summaries for 2025, got %d", len(got))
	}
	if _, ok := got["2024-12"]; ok {
		t.Error("summary from another year leaked into result")
	}
}

func TestMemoryStore_SummaryOverwrite(t *testing.T) {
	ms := store.NewMemoryStore()
	ctx := context.Background()

	ms.SaveMonthlySummary(ctx, model.CategoryDailyBets, "2025-01",
		&model.MonthlySummary{TotalProfit: decimal.NewFromInt(1)})
	ms.SaveMonthlySummary(ctx, model.CategoryDailyBets, "2025-01",
		&model.MonthlySummary{TotalProfit: decimal.NewFromInt(7)})

	got, _ := ms.GetYearSummaries(ctx, model.CategoryDailyBets, "2025")
	if !got["2025-01"].TotalProfit.Equal(decimal.NewFromInt(7)) {
		t.Errorf("totalProfit = %s, want 7 (last writer wins)", got["2025-01"].TotalProfit)
	}
}
