package processors

import (
	"fmt"
	"math"
	"time"

	"github.com/gonzalo891751/argfolio/src/models"
	"github.com/shopspring/decimal"
)

// interestScale: interest amounts are rounded to 8 decimals so the same walk
// always produces byte-identical movements.
const interestScale = 8

// YieldMetrics are the projections a remunerated cash account's summary card
// shows. Rates are ratios (0.325 for a 32.5% TNA → tea ≈ 0.3838).
type YieldMetrics struct {
	TNA              float64         `json:"tna"`
	DailyRate        float64         `json:"daily_rate"`
	TEA              float64         `json:"tea"`
	InterestTomorrow decimal.Decimal `json:"interest_tomorrow"`
	Projected30d     decimal.Decimal `json:"projected_30d"`
	Projected1y      decimal.Decimal `json:"projected_1y"`
}

// ComputeYieldMetrics converts a TNA (Argentine nominal annual rate, in
// percent) into its daily-compounded projections over the given balance.
func ComputeYieldMetrics(balance decimal.Decimal, tna float64) YieldMetrics {
	dailyRate := tna / 100 / 365
	return YieldMetrics{
		TNA:              tna,
		DailyRate:        dailyRate,
		TEA:              math.Pow(1+dailyRate, 365) - 1,
		InterestTomorrow: balance.Mul(decimal.NewFromFloat(dailyRate)).Round(interestScale),
		Projected30d:     balance.Mul(decimal.NewFromFloat(math.Pow(1+dailyRate, 30) - 1)).Round(interestScale),
		Projected1y:      balance.Mul(decimal.NewFromFloat(math.Pow(1+dailyRate, 365) - 1)).Round(interestScale),
	}
}

// AccrualMovementID builds the deterministic id that makes daily accrual
// idempotent: one id per (account, date), upserted, never re-inserted.
func AccrualMovementID(accountID, date string) string {
	return fmt.Sprintf("interest:%s:%s", accountID, date)
}

// GenerateAccrualMovements walks day by day from the account's watermark up
// to (and including) today, compounding the running balance and emitting one
// synthetic INTEREST movement per elapsed day. It returns the movements and
// the new watermark; persisting both atomically is the caller's job.
//
// The walk is pure: running it twice over the same range yields identical
// movements with identical ids. An account whose watermark is already at
// today short-circuits to zero work. An account with no watermark yet is
// bootstrapped: the watermark jumps to today and nothing is credited
// retroactively.
func GenerateAccrualMovements(account models.Account, balance decimal.Decimal, today string) ([]models.Movement, string, error) {
	yield := account.CashYield
	if yield == nil || !yield.Enabled {
		return nil, "", fmt.Errorf("account %q has no enabled cash yield", account.ID)
	}
	if yield.Compounding != "" && yield.Compounding != "daily" {
		return nil, "", fmt.Errorf("unsupported compounding %q for account %q", yield.Compounding, account.ID)
	}

	todayDate, err := time.Parse("2006-01-02", today)
	if err != nil {
		return nil, "", fmt.Errorf("invalid accrual date %q: %w", today, err)
	}

	if yield.LastAccruedDate == "" {
		return nil, today, nil
	}
	last, err := time.Parse("2006-01-02", yield.LastAccruedDate)
	if err != nil {
		return nil, "", fmt.Errorf("invalid watermark %q for account %q: %w", yield.LastAccruedDate, account.ID, err)
	}
	if !last.Before(todayDate) {
		// Up to date (or the clock moved backward): the watermark never
		// regresses, so there is nothing to do.
		return nil, yield.LastAccruedDate, nil
	}

	tna, _ := yield.TNA.Float64()
	dailyRate := decimal.NewFromFloat(tna / 100 / 365)
	currency := yield.Currency
	if currency == "" {
		currency = account.Currency
	}

	var movements []models.Movement
	running := balance
	for d := last.AddDate(0, 0, 1); !d.After(todayDate); d = d.AddDate(0, 0, 1) {
		day := d.Format("2006-01-02")
		interest := running.Mul(dailyRate).Round(interestScale)
		movements = append(movements, models.Movement{
			ID:            AccrualMovementID(account.ID, day),
			InstrumentID:  models.CashInstrumentID(currency),
			AccountID:     account.ID,
			Type:          models.MovementInterest,
			Datetime:      day + "T00:00:00Z",
			Quantity:      interest,
			UnitPrice:     decimal.NewFromInt(1),
			TradeCurrency: currency,
			Note:          "interés diario cuenta remunerada",
		})
		running = running.Add(interest)
	}
	return movements, today, nil
}

// CashBalance nets the signed quantities of a cash pseudo-instrument's
// movements. Dividends credited in cash count as inflows here.
func CashBalance(movements []models.Movement) decimal.Decimal {
	balance := decimal.Zero
	for _, m := range movements {
		switch {
		case m.Type.IsInflow() || m.Type == models.MovementDividend:
			balance = balance.Add(m.Quantity)
		case m.Type.IsOutflow():
			balance = balance.Sub(m.Quantity)
		}
	}
	return balance
}
