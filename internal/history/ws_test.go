package history_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/tipfolio/history-engine/internal/history"
	"github.com/tipfolio/history-engine/internal/model"
	"github.com/tipfolio/history-engine/internal/store"
)

// monthFailStore wraps MemoryStore but fails whole-month reads, simulating
// a store outage between the day write and the month recompute.
type monthFailStore struct {
	*store.MemoryStore
}

func (s *monthFailStore) GetMonthDays(context.Context, string, string) (map[string]json.RawMessage, error) {
	return nil, errors.New("month scan unavailable")
}

// newWSServer starts an HTTP server with a live hub and one connected
// WebSocket client.
func newWSServer(t *testing.T, st store.Store) (*httptest.Server, *websocket.Conn) {
	t.Helper()

	hub := history.NewWSHub()
	go hub.Run()
	svc := history.NewService(st, hub, time.UTC).WithClock(func() time.Time { return today })

	r := chi.NewRouter()
	r.Get("/api/v1/ws", hub.HandleWS)
	r.Post("/api/v1/update-bet", svc.UpdateBet)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("ws dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	// Give the hub a moment to process the registration.
	time.Sleep(50 * time.Millisecond)
	return srv, conn
}

func postUpdate(t *testing.T, srv *httptest.Server, req history.UpdateBetRequest) {
	t.Helper()
	body, _ := json.Marshal(req)
	resp, err := http.Post(srv.URL+"/api/v1/update-bet", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("update request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func readWS(t *testing.T, conn *websocket.Conn) history.WSMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ws read failed: %v", err)
	}
	var msg history.WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("ws message not json: %v", err)
	}
	return msg
}

func TestUpdateBet_BroadcastsMonthProfit(t *testing.T) {
	ms := store.NewMemoryStore()
	seedDay(t, ms, model.CategoryDailyBets, "2025-03-01",
		`{"bets":[{"type":"safe","stake":6,"totalOdd":2.0,"status":"PENDING"}]}`)

	srv, conn := newWSServer(t, ms)
	postUpdate(t, srv, history.UpdateBetRequest{
		Date:      "2025-03-01",
		BetType:   "safe",
		NewStatus: "WON",
	})

	msg := readWS(t, conn)
	if msg.Type != "bet_updated" {
		t.Errorf("type = %s, want bet_updated", msg.Type)
	}
	if msg.DayProfit != "6" {
		t.Errorf("day_profit = %q, want 6", msg.DayProfit)
	}
	if msg.MonthProfit != "6" {
		t.Errorf("month_profit = %q, want 6", msg.MonthProfit)
	}
}

func TestUpdateBet_OmitsMonthProfitWhenRecomputeFails(t *testing.T) {
	ms := store.NewMemoryStore()
	seedDay(t, ms, model.CategoryDailyBets, "2025-03-01",
		`{"bets":[{"type":"safe","stake":6,"totalOdd":2.0,"status":"PENDING"}]}`)

	srv, conn := newWSServer(t, &monthFailStore{MemoryStore: ms})
	postUpdate(t, srv, history.UpdateBetRequest{
		Date:      "2025-03-01",
		BetType:   "safe",
		NewStatus: "WON",
	})

	msg := readWS(t, conn)
	if msg.Type != "bet_updated" {
		t.Errorf("type = %s, want bet_updated", msg.Type)
	}
	if msg.DayProfit != "6" {
		t.Errorf("day_profit = %q, want 6", msg.DayProfit)
	}
	// The month figure is stale when the recompute failed; clients must not
	// receive a fabricated zero.
	if msg.MonthProfit != "" {
		t.Errorf("month_profit = %q, want omitted", msg.MonthProfit)
	}
}
