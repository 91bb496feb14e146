// Package model defines the core domain types shared across the history engine.
// All monetary values use shopspring/decimal — never float64 for money.
package model

import (
	"github.com/shopspring/decimal"
)

// Canonical settlement statuses. Legacy Spanish spellings are mapped onto
// these during normalization and never appear past the ingestion boundary.
const (
	StatusWon     = "WON"
	StatusLost    = "LOST"
	StatusPending = "PENDING"
	StatusVoid    = "VOID"
)

// Day-level statuses.
const (
	DayPending  = "PENDING"
	DayFinished = "FINISHED"
)

// Bet types. The type governs the default stake when none is stored.
const (
	TypeSafe    = "safe"
	TypeValue   = "value"
	TypeFunbet  = "funbet"
	TypeStakazo = "stakazo"
)

// KnownTypes lists the bet-type vocabulary in display order.
var KnownTypes = []string{TypeSafe, TypeValue, TypeFunbet, TypeStakazo}

// DefaultStakes maps bet type to the stake applied when a bet carries none.
var DefaultStakes = map[string]decimal.Decimal{
	TypeSafe:    decimal.NewFromInt(6),
	TypeValue:   decimal.NewFromInt(3),
	TypeFunbet:  decimal.NewFromInt(1),
	TypeStakazo: decimal.NewFromInt(10),
}

// Record-store categories. Each category has its own day documents and its
// own summary cache.
const (
	CategoryDailyBets = "daily_bets"
	CategoryStakazo   = "daily_bets_stakazo"
)

// ValidCategory reports whether c is one of the supported store categories.
func ValidCategory(c string) bool {
	return c == CategoryDailyBets || c == CategoryStakazo
}

// Sport buckets for accuracy stats. Anything not recognizably basketball
// lands in football.
const (
	SportFootball   = "football"
	SportBasketball = "basketball"
)

// IsSettled reports whether a status represents a known outcome.
// PENDING and VOID are not settled.
func IsSettled(status string) bool {
	return status == StatusWon || status == StatusLost
}

// Selection is one leg of a (possibly multi-leg) bet.
type Selection struct {
	ID     string          `json:"id,omitempty"`
	Match  string          `json:"match"`
	Pick   string          `json:"pick"`
	Odd    decimal.Decimal `json:"odd"`
	Status string          `json:"status"`
	Sport  string          `json:"sport,omitempty"`
	Result string          `json:"result,omitempty"`
}

// Bet is one wagered ticket for a day. Stake, totalOdd and profit are
// always normalized values: profit is recomputed from stake and odd for
// settled bets, never trusted from storage.
type Bet struct {
	Type       string          `json:"type"`
	Stake      decimal.Decimal `json:"stake"`
	TotalOdd   decimal.Decimal `json:"totalOdd"`
	Status     string          `json:"status"`
	Profit     decimal.Decimal `json:"profit"`
	Selections []Selection     `json:"selections"`
}

// DailyRecord is one calendar day's betting activity. DayProfit and Status
// are derived from the bets on every read (self-healing against upstream
// drift).
type DailyRecord struct {
	Date      string          `json:"date"`
	DayProfit decimal.Decimal `json:"dayProfit"`
	Status    string          `json:"status"`
	Bets      []Bet           `json:"bets"`
}

// TypePerformance is the per-bet-type breakdown inside a monthly summary.
type TypePerformance struct {
	Profit    decimal.Decimal `json:"profit"`
	Stake     decimal.Decimal `json:"stake"`
	Yield     decimal.Decimal `json:"yield"`
	TotalBets int             `json:"totalBets"`
	WonBets   int             `json:"wonBets"`
}

// SportAccuracy is the per-sport selection accuracy inside a monthly summary.
type SportAccuracy struct {
	TotalSelections    int             `json:"totalSelections"`
	WonSelections      int             `json:"wonSelections"`
	AccuracyPercentage decimal.Decimal `json:"accuracyPercentage"`
}

// EvolutionPoint is one entry of the day-by-day cumulative profit series.
type EvolutionPoint struct {
	Date              string          `json:"date"`
	DailyProfit       decimal.Decimal `json:"dailyProfit"`
	AccumulatedProfit decimal.Decimal `json:"accumulatedProfit"`
}

// MonthlySummary aggregates all daily records of one month whose date is
// not in the future. It is a derived, disposable view: fully recomputed on
// every month read and written back to the summary cache.
type MonthlySummary struct {
	TotalProfit       decimal.Decimal            `json:"totalProfit"`
	TotalStake        decimal.Decimal            `json:"totalStake"`
	Yield             decimal.Decimal            `json:"yield"`
	ProfitFactor      decimal.Decimal            `json:"profitFactor"`
	MaxDrawdown       decimal.Decimal            `json:"maxDrawdown"`
	WinRateDays       decimal.Decimal            `json:"winRateDays"`
	PerformanceByType map[string]TypePerformance `json:"performanceByType"`
	AccuracyBySport   map[string]SportAccuracy   `json:"accuracyBySport"`
	ChartEvolution    []EvolutionPoint           `json:"chartEvolution"`
}

// AnnualTotals is the sum over the cached monthly summaries of one year.
// Months with no cached summary contribute nothing (no zero-fill).
type AnnualTotals struct {
	TotalProfit decimal.Decimal `json:"totalProfit"`
	TotalStake  decimal.Decimal `json:"totalStake"`
	Yield       decimal.Decimal `json:"yield"`
}
