package models

import "github.com/shopspring/decimal"

// InventoryLot is a remaining tranche of a position, tagged with its original
// acquisition cost. Lots are derived from the movement log on every read and
// never persisted, so the breakdown always reflects the current log.
//
// A nil unit cost means the cost in that currency is unknown (the movement
// carried no usable FX rate); it is never assumed to be 1:1.
type InventoryLot struct {
	Date        string           `json:"date"` // acquisition date (YYYY-MM-DD)
	Quantity    decimal.Decimal  `json:"quantity"`
	UnitCostArs *decimal.Decimal `json:"unit_cost_ars,omitempty"`
	UnitCostUsd *decimal.Decimal `json:"unit_cost_usd,omitempty"`
}

// OversellWarning reports a SELL/WITHDRAW that exceeded available FIFO
// inventory. The engine clamps the position at zero and keeps going; the
// warning is surfaced upstream instead of aborting the batch.
type OversellWarning struct {
	MovementID string          `json:"movement_id"`
	Requested  decimal.Decimal `json:"requested"`
	Available  decimal.Decimal `json:"available"`
}

// AssetRowMetrics is the per-(instrument, account) aggregate the asset table
// renders. Pointer fields are nil when the figure cannot be computed (zero
// cost basis, missing FX, missing price); they must render as "—", never NaN.
type AssetRowMetrics struct {
	InstrumentID string        `json:"instrument_id"`
	AccountID    string        `json:"account_id"`
	Ticker       string        `json:"ticker"`
	Category     AssetCategory `json:"category"`

	Quantity decimal.Decimal `json:"quantity"`

	AvgCostArs  *decimal.Decimal `json:"avg_cost_ars,omitempty"`
	AvgCostUsd  *decimal.Decimal `json:"avg_cost_usd,omitempty"`
	InvestedArs *decimal.Decimal `json:"invested_ars,omitempty"`
	InvestedUsd *decimal.Decimal `json:"invested_usd,omitempty"`

	CurrentPriceArs *decimal.Decimal `json:"current_price_ars,omitempty"`
	CurrentPriceUsd *decimal.Decimal `json:"current_price_usd,omitempty"`
	ValueArs        *decimal.Decimal `json:"value_ars,omitempty"`
	ValueUsd        *decimal.Decimal `json:"value_usd,omitempty"`

	PnlArs *decimal.Decimal `json:"pnl_ars,omitempty"`
	PnlUsd *decimal.Decimal `json:"pnl_usd,omitempty"`
	PnlPct *float64         `json:"pnl_pct,omitempty"`

	ChangePct1d *float64 `json:"change_pct_1d,omitempty"`
	PriceStatus string   `json:"price_status"` // "OK" or "UNAVAILABLE"
}

// PortfolioSummary totals the rows that could be valued in each currency.
type PortfolioSummary struct {
	TotalValueArs *decimal.Decimal `json:"total_value_ars,omitempty"`
	TotalValueUsd *decimal.Decimal `json:"total_value_usd,omitempty"`
	AssetCount    int              `json:"asset_count"`
}
