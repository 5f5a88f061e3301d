package processors

import (
	"sort"

	"github.com/gonzalo891751/argfolio/src/models"
	"github.com/shopspring/decimal"
)

// costScale bounds the precision of derived unit costs so that division does
// not produce unbounded decimals.
const costScale = 8

// FifoResult is the output of one lot computation.
type FifoResult struct {
	Lots     []models.InventoryLot
	Warnings []models.OversellWarning
}

// RemainingQuantity sums the open lots.
func (r FifoResult) RemainingQuantity() decimal.Decimal {
	total := decimal.Zero
	for _, lot := range r.Lots {
		total = total.Add(lot.Quantity)
	}
	return total
}

// BuildFifoLots matches the movements of one (instrument, account) pair into
// remaining cost-basis lots, consuming oldest lots first on each disposal.
//
// The input may arrive in any order and is never mutated: movements are
// sorted internally by datetime, tie-broken by id, so any permutation of the
// same set yields the same lot list. Overselling clamps the position at zero
// and is reported as a warning, not an error.
func BuildFifoLots(movements []models.Movement) (FifoResult, error) {
	sorted := make([]models.Movement, len(movements))
	copy(sorted, movements)
	for i := range sorted {
		if err := sorted[i].Validate(); err != nil {
			return FifoResult{}, err
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Datetime != sorted[j].Datetime {
			return sorted[i].Datetime < sorted[j].Datetime
		}
		return sorted[i].ID < sorted[j].ID
	})

	var result FifoResult
	for _, m := range sorted {
		switch {
		case m.Type.IsInflow():
			if m.Quantity.IsZero() {
				continue
			}
			unitArs, unitUsd := unitCosts(m)
			result.Lots = append(result.Lots, models.InventoryLot{
				Date:        dateOf(m.Datetime),
				Quantity:    m.Quantity,
				UnitCostArs: unitArs,
				UnitCostUsd: unitUsd,
			})
		case m.Type.IsOutflow():
			result.Lots, result.Warnings = consume(result.Lots, result.Warnings, m)
		default:
			// DIVIDEND: cash income, recorded against the cash account's own
			// movement log; it does not touch this instrument's lot queue.
		}
	}
	return result, nil
}

// unitCosts derives the dual-currency unit cost of an inflow. The cost in the
// trade currency is exact (price plus prorated fee); the other leg needs the
// FX rate captured at trade time and stays nil without it.
func unitCosts(m models.Movement) (unitArs, unitUsd *decimal.Decimal) {
	effective := m.UnitPrice
	if m.FeeAmount != nil && m.Quantity.IsPositive() {
		// Fees in another currency cannot be prorated without a rate for
		// that pair, so they are left out of the basis.
		if m.FeeCurrency == "" || m.FeeCurrency == m.TradeCurrency {
			effective = effective.Add(m.FeeAmount.DivRound(m.Quantity, costScale))
		}
	}

	if models.IsUsdCurrency(m.TradeCurrency) {
		unitUsd = &effective
		if m.FxAtTrade != nil {
			ars := effective.Mul(*m.FxAtTrade).Round(costScale)
			unitArs = &ars
		}
		return unitArs, unitUsd
	}

	unitArs = &effective
	if m.FxAtTrade != nil {
		usd := effective.DivRound(*m.FxAtTrade, costScale)
		unitUsd = &usd
	}
	return unitArs, unitUsd
}

// consume applies a SELL/WITHDRAW against the open lots, oldest first.
// Partially consumed lots keep their original unit costs.
func consume(lots []models.InventoryLot, warnings []models.OversellWarning, m models.Movement) ([]models.InventoryLot, []models.OversellWarning) {
	remaining := m.Quantity
	out := lots[:0]
	for _, lot := range lots {
		if remaining.IsZero() {
			out = append(out, lot)
			continue
		}
		if lot.Quantity.GreaterThan(remaining) {
			lot.Quantity = lot.Quantity.Sub(remaining)
			remaining = decimal.Zero
			out = append(out, lot)
		} else {
			remaining = remaining.Sub(lot.Quantity)
		}
	}
	if remaining.IsPositive() {
		warnings = append(warnings, models.OversellWarning{
			MovementID: m.ID,
			Requested:  m.Quantity,
			Available:  m.Quantity.Sub(remaining),
		})
	}
	return out, warnings
}

// dateOf trims an ISO-8601 datetime to its date part.
func dateOf(datetime string) string {
	if len(datetime) >= 10 {
		return datetime[:10]
	}
	return datetime
}
