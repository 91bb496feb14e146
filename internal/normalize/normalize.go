// Package normalize turns raw stored bet documents of unknown shape into
// canonical model types. Day documents arrive either with an array of bets
// or with a legacy dict keyed by bet type; statuses may use legacy Spanish
// spellings; odds and stakes may be JSON numbers or quoted strings. All of
// that is resolved here, once — nothing past this package branches on shape.
package normalize

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tipfolio/history-engine/internal/model"
)

// legacyStatuses maps pre-migration Spanish spellings to canonical values.
var legacyStatuses = map[string]string{
	"GANADA":    model.StatusWon,
	"PERDIDA":   model.StatusLost,
	"PENDIENTE": model.StatusPending,
	"NULA":      model.StatusVoid,
}

// Status normalizes a stored status string to the canonical vocabulary.
// Unrecognized text passes through uppercased; empty means PENDING.
func Status(s string) string {
	up := strings.ToUpper(strings.TrimSpace(s))
	if up == "" {
		return model.StatusPending
	}
	if canonical, ok := legacyStatuses[up]; ok {
		return canonical
	}
	return up
}

// Sport buckets a free-text sport label into football or basketball.
// Anything not recognizably basketball defaults to football.
func Sport(s string) string {
	low := strings.ToLower(strings.TrimSpace(s))
	if strings.Contains(low, "basket") || strings.Contains(low, "balonc") || strings.Contains(low, "nba") {
		return model.SportBasketball
	}
	return model.SportFootball
}

// Profit computes a bet's profit from its settled status, stake and total
// odd. Stored profits are never trusted for settled bets — this formula is
// the source of truth.
func Profit(status string, stake, totalOdd decimal.Decimal) decimal.Decimal {
	switch status {
	case model.StatusWon:
		return stake.Mul(totalOdd.Sub(decimal.NewFromInt(1)))
	case model.StatusLost:
		return stake.Neg()
	default:
		return decimal.Zero
	}
}

// DeriveStatus derives a bet's effective status from its selections:
// any LOST leg loses the bet; else any PENDING leg keeps it pending; else
// all-VOID voids it; otherwise the bet is WON and the returned odd is the
// product of the won legs' odds (VOID legs count as odd 1). The second
// return is meaningful only when the derived status is WON. ok is false
// when there are no selections to derive from.
func DeriveStatus(sels []model.Selection) (status string, totalOdd decimal.Decimal, ok bool) {
	if len(sels) == 0 {
		return "", decimal.Zero, false
	}

	anyLost, anyPending, allVoid := false, false, true
	odd := decimal.NewFromInt(1)

	for _, sel := range sels {
		switch sel.Status {
		case model.StatusLost:
			anyLost = true
			allVoid = false
		case model.StatusWon:
			allVoid = false
			if sel.Odd.IsPositive() {
				odd = odd.Mul(sel.Odd)
			}
		case model.StatusVoid:
			// Voided legs drop out of the combined odd.
		default:
			anyPending = true
			allVoid = false
		}
	}

	switch {
	case anyLost:
		return model.StatusLost, decimal.Zero, true
	case anyPending:
		return model.StatusPending, decimal.Zero, true
	case allVoid:
		return model.StatusVoid, decimal.Zero, true
	default:
		return model.StatusWon, odd, true
	}
}

// flexDecimal accepts JSON numbers and quoted numeric strings; anything
// malformed or null is treated as absent (zero).
type flexDecimal struct {
	decimal.Decimal
}

func (f *flexDecimal) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		f.Decimal = decimal.Zero
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		f.Decimal = decimal.Zero
		return nil
	}
	f.Decimal = d
	return nil
}

type rawSelection struct {
	ID     string      `json:"id"`
	Match  string      `json:"match"`
	Pick   string      `json:"pick"`
	Odd    flexDecimal `json:"odd"`
	Status string      `json:"status"`
	Sport  string      `json:"sport"`
	Result string      `json:"result"`
}

type rawBet struct {
	Type       string         `json:"type"`
	Stake      flexDecimal    `json:"stake"`
	TotalOdd   flexDecimal    `json:"totalOdd"`
	Odd        flexDecimal    `json:"odd"` // legacy dict shape
	Status     string         `json:"status"`
	Profit     flexDecimal    `json:"profit"` // ignored for settled bets
	Selections []rawSelection `json:"selections"`
}

type rawDay struct {
	Date      string          `json:"date"`
	DayProfit flexDecimal     `json:"dayProfit"`
	Status    string          `json:"status"`
	Bets      json.RawMessage `json:"bets"`
}

func normalizeSelection(rs rawSelection) model.Selection {
	return model.Selection{
		ID:     rs.ID,
		Match:  rs.Match,
		Pick:   rs.Pick,
		Odd:    rs.Odd.Decimal,
		Status: Status(rs.Status),
		Sport:  rs.Sport,
		Result: rs.Result,
	}
}

func normalizeBet(rb rawBet) model.Bet {
	typ := strings.ToLower(strings.TrimSpace(rb.Type))

	stake := rb.Stake.Decimal
	if stake.IsZero() {
		if def, ok := model.DefaultStakes[typ]; ok {
			stake = def
		}
	}

	totalOdd := rb.TotalOdd.Decimal
	if totalOdd.IsZero() {
		totalOdd = rb.Odd.Decimal // legacy bets store the combined odd as "odd"
	}

	sels := make([]model.Selection, 0, len(rb.Selections))
	for _, rs := range rb.Selections {
		sels = append(sels, normalizeSelection(rs))
	}

	b := model.Bet{
		Type:       typ,
		Stake:      stake,
		TotalOdd:   totalOdd,
		Status:     Status(rb.Status),
		Selections: sels,
	}
	b.Profit = Profit(b.Status, b.Stake, b.TotalOdd)
	return b
}

// ParseBet normalizes a single raw bet document. Malformed JSON yields a
// defaulted pending bet rather than an error.
func ParseBet(data []byte) model.Bet {
	var rb rawBet
	if err := json.Unmarshal(data, &rb); err != nil {
		return model.Bet{Status: model.StatusPending, Selections: []model.Selection{}}
	}
	return normalizeBet(rb)
}

// parseBets decodes the bets field of a day document, which is either an
// array of bets or a legacy dict keyed by bet type.
func parseBets(data json.RawMessage) ([]model.Bet, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}

	var arr []rawBet
	if err := json.Unmarshal(data, &arr); err == nil {
		bets := make([]model.Bet, 0, len(arr))
		for _, rb := range arr {
			bets = append(bets, normalizeBet(rb))
		}
		return bets, nil
	}

	var dict map[string]rawBet
	if err := json.Unmarshal(data, &dict); err != nil {
		return nil, fmt.Errorf("bets field is neither array nor dict: %w", err)
	}

	// Sort keys so the resolved order is stable across reads.
	keys := make([]string, 0, len(dict))
	for k := range dict {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	bets := make([]model.Bet, 0, len(dict))
	for _, k := range keys {
		rb := dict[k]
		if strings.TrimSpace(rb.Type) == "" {
			rb.Type = k // legacy dicts key bets by type
		}
		bets = append(bets, normalizeBet(rb))
	}
	return bets, nil
}

// ParseDailyRecord normalizes one stored day document. The date key from
// the store wins over any date embedded in the document. The returned
// record has its day profit and status recomputed from the normalized bets;
// stored values are ignored. An error means the whole document is
// unreadable (ParseFailure) — callers skip the day and keep aggregating.
func ParseDailyRecord(date string, data []byte) (model.DailyRecord, error) {
	var rd rawDay
	if err := json.Unmarshal(data, &rd); err != nil {
		return model.DailyRecord{}, fmt.Errorf("daily record %s: %w", date, err)
	}

	bets, err := parseBets(rd.Bets)
	if err != nil {
		return model.DailyRecord{}, fmt.Errorf("daily record %s: %w", date, err)
	}

	rec := model.DailyRecord{Date: date, Bets: bets}
	RecomputeDay(&rec)
	return rec, nil
}

// RecomputeDay re-derives each bet's profit plus the day's total profit and
// status from the bets currently on the record. Called after normalization
// and after every settlement mutation.
func RecomputeDay(rec *model.DailyRecord) {
	total := decimal.Zero
	settled := false

	for i := range rec.Bets {
		b := &rec.Bets[i]
		b.Profit = Profit(b.Status, b.Stake, b.TotalOdd)
		total = total.Add(b.Profit)
		if model.IsSettled(b.Status) {
			settled = true
		}
	}

	rec.DayProfit = total
	rec.Status = DayStatus(settled)
}

// DayStatus maps "has at least one settled bet" to the day-level status.
func DayStatus(settled bool) string {
	if settled {
		return model.DayFinished
	}
	return model.DayPending
}
