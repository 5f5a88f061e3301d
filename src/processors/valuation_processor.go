package processors

import (
	"github.com/gonzalo891751/argfolio/src/models"
	"github.com/shopspring/decimal"
)

// ValuationInput bundles everything needed to value one asset row. Price and
// Fx may be nil/partial; every figure that depends on a missing piece of data
// comes out nil instead of guessing a rate of 1.
type ValuationInput struct {
	Instrument models.Instrument
	AccountID  string
	Lots       []models.InventoryLot
	Price      *models.PriceInfo
	Fx         *models.FxBoard
	// UsdReferenceRate is the configured CCL/MEP preference for categories
	// that do not force a board leg of their own.
	UsdReferenceRate string
}

// ComputeAssetMetrics combines FIFO lots, a live price and the FX board into
// the dual-currency row the asset table shows. The secondary currency leg is
// always derived from the primary one, never independently stored, so the two
// figures cannot diverge.
func ComputeAssetMetrics(in ValuationInput) models.AssetRowMetrics {
	info := in.Instrument.Category.Info()

	row := models.AssetRowMetrics{
		InstrumentID: in.Instrument.ID,
		AccountID:    in.AccountID,
		Ticker:       in.Instrument.Ticker,
		Category:     in.Instrument.Category,
		Quantity:     decimal.Zero,
		PriceStatus:  "UNAVAILABLE",
	}

	for _, lot := range in.Lots {
		row.Quantity = row.Quantity.Add(lot.Quantity)
	}

	row.InvestedArs = sumLotCost(in.Lots, func(l models.InventoryLot) *decimal.Decimal { return l.UnitCostArs })
	row.InvestedUsd = sumLotCost(in.Lots, func(l models.InventoryLot) *decimal.Decimal { return l.UnitCostUsd })
	if row.Quantity.IsPositive() {
		row.AvgCostArs = divPtr(row.InvestedArs, row.Quantity)
		row.AvgCostUsd = divPtr(row.InvestedUsd, row.Quantity)
	}

	rate := referenceRate(in.Fx, info, in.UsdReferenceRate)

	if in.Price != nil && in.Price.Status == "OK" {
		row.PriceStatus = "OK"
		row.ChangePct1d = in.Price.ChangePct1d
		price := decimal.NewFromFloat(in.Price.Price)

		if info.UsdPrimary {
			row.CurrentPriceUsd = &price
			row.ValueUsd = mulPtr(&price, row.Quantity)
			if rate != nil {
				row.CurrentPriceArs = mulRate(&price, *rate)
				row.ValueArs = mulRate(row.ValueUsd, *rate)
			}
		} else {
			row.CurrentPriceArs = &price
			row.ValueArs = mulPtr(&price, row.Quantity)
			if rate != nil {
				row.CurrentPriceUsd = divRate(&price, *rate)
				row.ValueUsd = divRate(row.ValueArs, *rate)
			}
		}
	}

	row.PnlArs = subPtr(row.ValueArs, row.InvestedArs)
	row.PnlUsd = subPtr(row.ValueUsd, row.InvestedUsd)

	// ROI is computed on the primary leg; a zero or unknown basis (airdrops,
	// missing FX) leaves it null, never NaN or Inf.
	if info.UsdPrimary {
		row.PnlPct = pctOf(row.PnlUsd, row.InvestedUsd)
	} else {
		row.PnlPct = pctOf(row.PnlArs, row.InvestedArs)
	}

	return row
}

// referenceRate resolves which FX midpoint converts between the two legs.
func referenceRate(fx *models.FxBoard, info models.CategoryInfo, preferred string) *float64 {
	leg := info.RefRate
	if leg == "" {
		leg = preferred
	}
	quote := fx.Rate(leg)
	if quote == nil || quote.Mid() <= 0 {
		return nil
	}
	mid := quote.Mid()
	return &mid
}

// sumLotCost totals quantity × unit cost across lots. If any lot with
// quantity left has an unknown cost in that currency, the whole aggregate is
// unknown: a partially summed basis would understate the investment.
func sumLotCost(lots []models.InventoryLot, cost func(models.InventoryLot) *decimal.Decimal) *decimal.Decimal {
	total := decimal.Zero
	any := false
	for _, lot := range lots {
		if lot.Quantity.IsZero() {
			continue
		}
		c := cost(lot)
		if c == nil {
			return nil
		}
		total = total.Add(lot.Quantity.Mul(*c))
		any = true
	}
	if !any {
		total = decimal.Zero
	}
	return &total
}

func mulPtr(d *decimal.Decimal, q decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	v := d.Mul(q)
	return &v
}

func divPtr(d *decimal.Decimal, q decimal.Decimal) *decimal.Decimal {
	if d == nil || q.IsZero() {
		return nil
	}
	v := d.DivRound(q, costScale)
	return &v
}

func mulRate(d *decimal.Decimal, rate float64) *decimal.Decimal {
	if d == nil {
		return nil
	}
	v := d.Mul(decimal.NewFromFloat(rate)).Round(costScale)
	return &v
}

func divRate(d *decimal.Decimal, rate float64) *decimal.Decimal {
	if d == nil || rate == 0 {
		return nil
	}
	v := d.DivRound(decimal.NewFromFloat(rate), costScale)
	return &v
}

func subPtr(a, b *decimal.Decimal) *decimal.Decimal {
	if a == nil || b == nil {
		return nil
	}
	v := a.Sub(*b)
	return &v
}

// pctOf returns pnl/invested as a ratio, or nil when the basis is zero or
// unknown.
func pctOf(pnl, invested *decimal.Decimal) *float64 {
	if pnl == nil || invested == nil || invested.IsZero() {
		return nil
	}
	ratio, _ := pnl.DivRound(*invested, costScale).Float64()
	return &ratio
}
