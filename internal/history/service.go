// Package history provides the HTTP handlers and business logic for the
// betting-history engine: month/year statistics, settlement updates, and
// day publication.
//
// All monetary values use shopspring/decimal — never float64 for money.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tipfolio/history-engine/internal/metrics"
	"github.com/tipfolio/history-engine/internal/model"
	"github.com/tipfolio/history-engine/internal/normalize"
	"github.com/tipfolio/history-engine/internal/stats"
	"github.com/tipfolio/history-engine/internal/store"
)

// Service handles history operations. Each request runs to completion on
// its own; concurrent recomputations of the same month are tolerated
// because the aggregation is a pure function of the stored data and the
// cache write is idempotent (last writer wins).
type Service struct {
	store store.Store
	hub   *WSHub // optional WebSocket hub for settlement broadcasts
	loc   *time.Location
	now   func() time.Time
}

// NewService creates a new history service. Pass nil for hub if WebSocket
// broadcasting is not needed; loc bounds "today" for future-date exclusion
// (nil means UTC).
func NewService(st store.Store, hub *WSHub, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{store: st, hub: hub, loc: loc, now: time.Now}
}

// WithClock replaces the service clock. Used by tests to pin "today".
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) today() time.Time {
	return s.now().In(s.loc)
}

// --- Request/Response types ---

// MonthHistoryResponse is the JSON body for GET /history?month=YYYY-MM.
type MonthHistoryResponse struct {
	Month string                       `json:"month"`
	Stats model.MonthlySummary         `json:"stats"`
	Days  map[string]model.DailyRecord `json:"days"`
}

// YearHistoryResponse is the JSON body for GET /history?year=YYYY. Stats
// holds whatever monthly summaries are cached — no recompute, no zero-fill.
type YearHistoryResponse struct {
	Year   string                          `json:"year"`
	Stats  map[string]model.MonthlySummary `json:"stats"`
	Totals model.AnnualTotals              `json:"totals"`
}

// SelectionUpdate describes one selection mutation inside an update request.
type SelectionUpdate struct {
	SelectionID string          `json:"selectionId"`
	NewStatus   string          `json:"newStatus,omitempty"`
	NewPick     string          `json:"newPick,omitempty"`
	Result      string          `json:"result,omitempty"`
	Odd         decimal.Decimal `json:"odd,omitempty"`
}

// UpdateBetRequest is the JSON body for POST /update-bet. Either a bet-level
// status override (no selection fields) or one-or-more selection updates;
// selection updates re-derive the bet status and discard any prior override.
type UpdateBetRequest struct {
	Date        string            `json:"date"`
	Category    string            `json:"category,omitempty"`
	BetType     string            `json:"betType"`
	SelectionID string            `json:"selectionId,omitempty"`
	NewStatus   string            `json:"newStatus,omitempty"`
	NewPick     string            `json:"newPick,omitempty"`
	Updates     []SelectionUpdate `json:"updates,omitempty"`
}

// UpdateBetResponse is the JSON body returned from POST /update-bet.
type UpdateBetResponse struct {
	Success bool      `json:"success"`
	Bet     model.Bet `json:"bet"`
}

// PublishDayRequest is the JSON body for POST /days. Bets is the raw bets
// payload in either supported shape; it goes through the same normalization
// as stored documents.
type PublishDayRequest struct {
	Date     string          `json:"date"`
	Category string          `json:"category,omitempty"`
	Bets     json.RawMessage `json:"bets"`
}

// PublishDayResponse is the JSON body returned from POST /days.
type PublishDayResponse struct {
	Success bool              `json:"success"`
	Day     model.DailyRecord `json:"day"`
}

// --- HTTP Handlers ---

// GetHistory handles GET /api/v1/history.
// ?month=YYYY-MM recomputes and returns that month; ?year=YYYY returns the
// cached monthly summaries of the year.
func (s *Service) GetHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	category := q.Get("category")
	if category == "" {
		category = model.CategoryDailyBets
	}
	if !model.ValidCategory(category) {
		writeError(w, "unknown category: "+category, http.StatusBadRequest)
		return
	}

	if month := q.Get("month"); month != "" {
		s.monthHistory(w, r, category, month)
		return
	}
	if year := q.Get("year"); year != "" {
		s.yearHistory(w, r, category, year)
		return
	}
	writeError(w, "month or year query parameter is required", http.StatusBadRequest)
}

func (s *Service) monthHistory(w http.ResponseWriter, r *http.Request, category, month string) {
	if _, err := time.Parse(stats.MonthKey, month); err != nil {
		writeError(w, "invalid month, expected YYYY-MM", http.StatusBadRequest)
		return
	}

	summary, days, err := s.recomputeMonth(r.Context(), category, month)
	if err != nil {
		writeError(w, "failed to load month", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, MonthHistoryResponse{
		Month: month,
		Stats: summary,
		Days:  days,
	})
}

func (s *Service) yearHistory(w http.ResponseWriter, r *http.Request, category, year string) {
	if _, err := time.Parse("2006", year); err != nil {
		writeError(w, "invalid year, expected YYYY", http.StatusBadRequest)
		return
	}

	summaries, err := s.store.GetYearSummaries(r.Context(), category, year)
	if err != nil {
		writeError(w, "failed to load year summaries", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, YearHistoryResponse{
		Year:   year,
		Stats:  summaries,
		Totals: stats.Annual(summaries),
	})
}

// UpdateBet handles POST /api/v1/update-bet.
// Mutates one bet (or selections within it) for a day, re-derives status
// and profit, recomputes the day and the whole month, and persists both.
func (s *Service) UpdateBet(w http.ResponseWriter, r *http.Request) {
	var req UpdateBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.Date == "" {
		writeError(w, "date is required", http.StatusBadRequest)
		return
	}
	if _, err := time.Parse(stats.DateKey, req.Date); err != nil {
		writeError(w, "invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	if req.BetType == "" {
		writeError(w, "betType is required", http.StatusBadRequest)
		return
	}
	category := req.Category
	if category == "" {
		category = model.CategoryDailyBets
	}
	if !model.ValidCategory(category) {
		writeError(w, "unknown category: "+category, http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	month := req.Date[:len("2006-01")]

	doc, err := s.store.GetDay(ctx, category, month, req.Date)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, "no record for date "+req.Date, http.StatusNotFound)
		return
	}
	if err != nil {
		writeError(w, "failed to load day", http.StatusInternalServerError)
		return
	}

	rec, err := normalize.ParseDailyRecord(req.Date, doc)
	if err != nil {
		writeError(w, "stored day document is unreadable", http.StatusInternalServerError)
		return
	}

	bet := findBet(&rec, req.BetType)
	if bet == nil {
		writeError(w, "bet not found for type "+req.BetType, http.StatusNotFound)
		return
	}

	// A top-level selectionId is shorthand for a single-entry updates list.
	updates := req.Updates
	if req.SelectionID != "" {
		updates = append([]SelectionUpdate{{
			SelectionID: req.SelectionID,
			NewStatus:   req.NewStatus,
			NewPick:     req.NewPick,
		}}, updates...)
	}

	touched := false
	for _, u := range updates {
		sel := findSelection(bet, u.SelectionID)
		if sel == nil {
			writeError(w, "selection not found: "+u.SelectionID, http.StatusNotFound)
			return
		}
		if u.NewStatus != "" {
			sel.Status = normalize.Status(u.NewStatus)
			touched = true
		}
		if u.NewPick != "" {
			sel.Pick = u.NewPick
			touched = true
		}
		if u.Result != "" {
			sel.Result = u.Result
			touched = true
		}
		if u.Odd.IsPositive() {
			sel.Odd = u.Odd
			touched = true
		}
	}

	switch {
	case touched:
		// Selection edits re-derive the bet status; a prior manual
		// override does not survive them.
		if status, odd, ok := normalize.DeriveStatus(bet.Selections); ok {
			bet.Status = status
			if status == model.StatusWon && odd.IsPositive() {
				bet.TotalOdd = odd
			}
		}
	case req.NewStatus != "":
		// Manual bet-level override: wins for this write only, until the
		// next selection edit re-derives.
		bet.Status = normalize.Status(req.NewStatus)
	default:
		writeError(w, "nothing to update", http.StatusBadRequest)
		return
	}

	normalize.RecomputeDay(&rec)

	out, err := json.Marshal(rec)
	if err != nil {
		writeError(w, "failed to encode day", http.StatusInternalServerError)
		return
	}
	if err := s.store.SaveDay(ctx, category, month, req.Date, out); err != nil {
		writeError(w, "failed to save day", http.StatusInternalServerError)
		return
	}

	monthProfit := ""
	summary, _, err := s.recomputeMonth(ctx, category, month)
	if err != nil {
		// Day write already succeeded; the month cache catches up on the
		// next read. No month figure is broadcast for this write.
		slog.Error("month recompute after update failed",
			"category", category, "month", month, "err", err)
	} else {
		monthProfit = summary.TotalProfit.String()
	}

	metrics.BetUpdates.WithLabelValues(bet.Status).Inc()
	slog.Info("bet updated",
		"category", category,
		"date", req.Date,
		"bet_type", bet.Type,
		"status", bet.Status,
		"day_profit", rec.DayProfit.String(),
	)

	if s.hub != nil {
		s.hub.Broadcast(WSMessage{
			Type:        "bet_updated",
			Category:    category,
			Date:        req.Date,
			BetType:     bet.Type,
			Status:      bet.Status,
			DayProfit:   rec.DayProfit.String(),
			MonthProfit: monthProfit,
		})
	}

	writeJSON(w, http.StatusOK, UpdateBetResponse{Success: true, Bet: *bet})
}

// PublishDay handles POST /api/v1/days.
// Creates or replaces one day's bets, minting selection IDs so later
// settlement updates can target individual legs.
func (s *Service) PublishDay(w http.ResponseWriter, r *http.Request) {
	var req PublishDayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.Date == "" {
		writeError(w, "date is required", http.StatusBadRequest)
		return
	}
	if _, err := time.Parse(stats.DateKey, req.Date); err != nil {
		writeError(w, "invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	category := req.Category
	if category == "" {
		category = model.CategoryDailyBets
	}
	if !model.ValidCategory(category) {
		writeError(w, "unknown category: "+category, http.StatusBadRequest)
		return
	}
	if len(req.Bets) == 0 {
		writeError(w, "bets is required", http.StatusBadRequest)
		return
	}

	raw, err := json.Marshal(map[string]json.RawMessage{"bets": req.Bets})
	if err != nil {
		writeError(w, "invalid bets payload", http.StatusBadRequest)
		return
	}
	rec, err := normalize.ParseDailyRecord(req.Date, raw)
	if err != nil {
		writeError(w, "invalid bets payload", http.StatusBadRequest)
		return
	}

	// Mint IDs for new selections so /update-bet can address them.
	for i := range rec.Bets {
		for j := range rec.Bets[i].Selections {
			if rec.Bets[i].Selections[j].ID == "" {
				rec.Bets[i].Selections[j].ID = uuid.New().String()
			}
		}
	}

	ctx := r.Context()
	month := req.Date[:len("2006-01")]

	out, err := json.Marshal(rec)
	if err != nil {
		writeError(w, "failed to encode day", http.StatusInternalServerError)
		return
	}
	if err := s.store.SaveDay(ctx, category, month, req.Date, out); err != nil {
		writeError(w, "failed to save day", http.StatusInternalServerError)
		return
	}

	monthProfit := ""
	summary, _, err := s.recomputeMonth(ctx, category, month)
	if err != nil {
		slog.Error("month recompute after publish failed",
			"category", category, "month", month, "err", err)
	} else {
		monthProfit = summary.TotalProfit.String()
	}

	metrics.DaysPublished.WithLabelValues(category).Inc()
	slog.Info("day published",
		"category", category,
		"date", req.Date,
		"bets", len(rec.Bets),
	)

	if s.hub != nil {
		s.hub.Broadcast(WSMessage{
			Type:        "day_published",
			Category:    category,
			Date:        req.Date,
			DayProfit:   rec.DayProfit.String(),
			MonthProfit: monthProfit,
		})
	}

	writeJSON(w, http.StatusCreated, PublishDayResponse{Success: true, Day: rec})
}

// --- Internals ---

// recomputeMonth loads and normalizes a month's day documents, aggregates
// them against today, and writes the summary back through the cache. A
// failed cache write is logged and counted but never fails the caller
// (read path does not depend on write success).
func (s *Service) recomputeMonth(ctx context.Context, category, month string) (model.MonthlySummary, map[string]model.DailyRecord, error) {
	raw, err := s.store.GetMonthDays(ctx, category, month)
	if err != nil {
		return model.MonthlySummary{}, nil, err
	}

	days := make(map[string]model.DailyRecord, len(raw))
	for date, doc := range raw {
		rec, err := normalize.ParseDailyRecord(date, doc)
		if err != nil {
			// One malformed day must not abort the month: treat it as
			// zero activity and keep going.
			slog.Warn("skipping unreadable day", "category", category, "date", date, "err", err)
			metrics.ParseFailures.Inc()
			continue
		}
		days[date] = rec
	}

	monthStart, _ := time.Parse(stats.MonthKey, month)

	began := time.Now()
	summary := stats.Aggregate(days, monthStart, s.today())
	metrics.AggregationDuration.Observe(time.Since(began).Seconds())
	metrics.MonthAggregations.WithLabelValues(category).Inc()

	if err := s.store.SaveMonthlySummary(ctx, category, month, &summary); err != nil {
		slog.Error("summary cache write failed",
			"category", category, "month", month, "err", err)
		metrics.SummaryCacheWriteFailures.Inc()
	}

	return summary, days, nil
}

func findBet(rec *model.DailyRecord, betType string) *model.Bet {
	want := strings.ToLower(strings.TrimSpace(betType))
	for i := range rec.Bets {
		if rec.Bets[i].Type == want {
			return &rec.Bets[i]
		}
	}
	return nil
}

func findSelection(bet *model.Bet, id string) *model.Selection {
	for i := range bet.Selections {
		if bet.Selections[i].ID == id {
			return &bet.Selections[i]
		}
	}
	return nil
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"success": false, "error": message})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
