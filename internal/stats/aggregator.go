// Package stats computes monthly and annual betting-performance summaries.
//
// A monthly summary is a pure function of the month's normalized daily
// records and of "today": future dates never contribute to any statistic.
// Summaries are recomputed from scratch on every read — the cached copy in
// the record store is a disposable view, never a source of truth.
package stats

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/tipfolio/history-engine/internal/model"
	"github.com/tipfolio/history-engine/internal/normalize"
)

var hundred = decimal.NewFromInt(100)

// DateKey is the store key format for daily records.
const DateKey = "2006-01-02"

// MonthKey is the store key format for months.
const MonthKey = "2006-01"

// typeAcc accumulates the per-bet-type breakdown during the reduction.
type typeAcc struct {
	profit    decimal.Decimal
	stake     decimal.Decimal
	totalBets int
	wonBets   int
}

// sportAcc accumulates the per-sport selection accuracy.
type sportAcc struct {
	total int
	won   int
}

// Aggregate reduces one month of normalized daily records into a
// MonthlySummary. days is keyed by DateKey-formatted date; month names the
// target month (any instant within it); today bounds the series — dates
// after today are excluded from every statistic and from the evolution.
//
// Single pass, O(days × bets × selections).
func Aggregate(days map[string]model.DailyRecord, month, today time.Time) model.MonthlySummary {
	year, mon := month.Year(), month.Month()
	daysInMonth := time.Date(year, mon+1, 0, 0, 0, 0, 0, time.UTC).Day()
	todayDate := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)

	totalProfit := decimal.Zero
	totalStake := decimal.Zero
	grossProfit := decimal.Zero
	grossLoss := decimal.Zero
	settledDays, wonDays := 0, 0

	byType := make(map[string]*typeAcc, len(model.KnownTypes))
	for _, t := range model.KnownTypes {
		byType[t] = &typeAcc{profit: decimal.Zero, stake: decimal.Zero}
	}
	bySport := map[string]*sportAcc{
		model.SportFootball:   {},
		model.SportBasketball: {},
	}

	evolution := make([]model.EvolutionPoint, 0, daysInMonth)
	accumulated := decimal.Zero
	peak := decimal.Zero
	peakSet := false
	maxDrawdown := decimal.Zero

	for d := 1; d <= daysInMonth; d++ {
		date := time.Date(year, mon, d, 0, 0, 0, 0, time.UTC)
		if date.After(todayDate) {
			break
		}
		key := date.Format(DateKey)

		dayProfit := decimal.Zero
		daySettled := false

		if rec, ok := days[key]; ok {
			for _, bet := range rec.Bets {
				dayProfit = dayProfit.Add(bet.Profit)

				if model.IsSettled(bet.Status) {
					daySettled = true
					totalProfit = totalProfit.Add(bet.Profit)
					totalStake = totalStake.Add(bet.Stake)

					if bet.Profit.IsPositive() {
						grossProfit = grossProfit.Add(bet.Profit)
					} else if bet.Profit.IsNegative() {
						grossLoss = grossLoss.Add(bet.Profit.Abs())
					}

					acc, ok := byType[bet.Type]
					if !ok {
						acc = &typeAcc{profit: decimal.Zero, stake: decimal.Zero}
						byType[bet.Type] = acc
					}
					acc.profit = acc.profit.Add(bet.Profit)
					acc.stake = acc.stake.Add(bet.Stake)
					acc.totalBets++
					if bet.Status == model.StatusWon {
						acc.wonBets++
					}
				}

				countSelections(bet, bySport)
			}

			if daySettled {
				settledDays++
				if dayProfit.IsPositive() {
					wonDays++
				}
			}
		}

		accumulated = accumulated.Add(dayProfit)
		if !peakSet || accumulated.GreaterThan(peak) {
			peak = accumulated
			peakSet = true
		}
		if dd := peak.Sub(accumulated); dd.GreaterThan(maxDrawdown) {
			maxDrawdown = dd
		}

		evolution = append(evolution, model.EvolutionPoint{
			Date:              key,
			DailyProfit:       dayProfit.Round(2),
			AccumulatedProfit: accumulated.Round(2),
		})
	}

	return model.MonthlySummary{
		TotalProfit:       totalProfit.Round(2),
		TotalStake:        totalStake.Round(2),
		Yield:             ratio(totalProfit, totalStake),
		ProfitFactor:      profitFactor(grossProfit, grossLoss),
		MaxDrawdown:       maxDrawdown.Round(2),
		WinRateDays:       intRatio(wonDays, settledDays),
		PerformanceByType: finalizeTypes(byType),
		AccuracyBySport:   finalizeSports(bySport),
		ChartEvolution:    evolution,
	}
}

// countSelections routes a bet's settled selections into the per-sport
// accuracy buckets. A bet without selections counts as a single selection
// carrying the bet's own status (sport unknown, so football).
func countSelections(bet model.Bet, bySport map[string]*sportAcc) {
	if len(bet.Selections) == 0 {
		if model.IsSettled(bet.Status) {
			acc := bySport[model.SportFootball]
			acc.total++
			if bet.Status == model.StatusWon {
				acc.won++
			}
		}
		return
	}

	for _, sel := range bet.Selections {
		if !model.IsSettled(sel.Status) {
			continue
		}
		acc := bySport[normalize.Sport(sel.Sport)]
		acc.total++
		if sel.Status == model.StatusWon {
			acc.won++
		}
	}
}

// Annual sums whatever cached monthly summaries exist for a year. It never
// recomputes from raw daily data, and months absent from the cache simply
// contribute nothing.
func Annual(summaries map[string]model.MonthlySummary) model.AnnualTotals {
	profit := decimal.Zero
	stake := decimal.Zero
	for _, s := range summaries {
		profit = profit.Add(s.TotalProfit)
		stake = stake.Add(s.TotalStake)
	}
	return model.AnnualTotals{
		TotalProfit: profit.Round(2),
		TotalStake:  stake.Round(2),
		Yield:       ratio(profit, stake),
	}
}

// ratio returns profit/stake as a percentage, 0 when stake is zero.
func ratio(profit, stake decimal.Decimal) decimal.Decimal {
	if stake.IsZero() {
		return decimal.Zero
	}
	return profit.Div(stake).Mul(hundred).Round(2)
}

// intRatio returns won/total as a percentage, 0 when total is zero.
func intRatio(won, total int) decimal.Decimal {
	if total == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(won)).
		Div(decimal.NewFromInt(int64(total))).
		Mul(hundred).Round(2)
}

// profitFactor is grossProfit/grossLoss. With zero gross loss the source
// product reports the gross profit itself (finite stand-in for "unbounded"),
// or 0 when there is no gross profit either.
func profitFactor(grossProfit, grossLoss decimal.Decimal) decimal.Decimal {
	if grossLoss.IsZero() {
		if grossProfit.IsPositive() {
			return grossProfit.Round(2)
		}
		return decimal.Zero
	}
	return grossProfit.Div(grossLoss).Round(2)
}

func finalizeTypes(byType map[string]*typeAcc) map[string]model.TypePerformance {
	out := make(map[string]model.TypePerformance, len(byType))
	for t, acc := range byType {
		out[t] = model.TypePerformance{
			Profit:    acc.profit.Round(2),
			Stake:     acc.stake.Round(2),
			Yield:     ratio(acc.profit, acc.stake),
			TotalBets: acc.totalBets,
			WonBets:   acc.wonBets,
		}
	}
	return out
}

func finalizeSports(bySport map[string]*sportAcc) map[string]model.SportAccuracy {
	out := make(map[string]model.SportAccuracy, len(bySport))
	for sport, acc := range bySport {
		out[sport] = model.SportAccuracy{
			TotalSelections:    acc.total,
			WonSelections:      acc.won,
			AccuracyPercentage: intRatio(acc.won, acc.total),
		}
	}
	return out
}
