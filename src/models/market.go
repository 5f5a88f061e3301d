package models

import "time"

// FxQuote is one leg of the Argentine FX board, with separate buy/sell prices.
type FxQuote struct {
	Buy  float64 `json:"buy"`
	Sell float64 `json:"sell"`
}

// Mid returns the midpoint used for valuation.
func (q FxQuote) Mid() float64 {
	return (q.Buy + q.Sell) / 2
}

// FxBoard carries the usual Argentine reference dollars. A nil leg means the
// provider had no quote for it; dependent USD/ARS figures then resolve to
// null rather than assuming a rate.
type FxBoard struct {
	Oficial   *FxQuote  `json:"oficial,omitempty"`
	Blue      *FxQuote  `json:"blue,omitempty"`
	Mep       *FxQuote  `json:"mep,omitempty"`
	Ccl       *FxQuote  `json:"ccl,omitempty"`
	Cripto    *FxQuote  `json:"cripto,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Rate returns the named leg of the board, or nil if missing.
func (b *FxBoard) Rate(name string) *FxQuote {
	if b == nil {
		return nil
	}
	switch name {
	case "oficial":
		return b.Oficial
	case "blue":
		return b.Blue
	case "mep":
		return b.Mep
	case "ccl":
		return b.Ccl
	case "cripto":
		return b.Cripto
	}
	return nil
}

// PriceInfo is a live quote for one instrument, in the instrument's primary
// currency.
type PriceInfo struct {
	Status      string   `json:"status"` // "OK" or "UNAVAILABLE"
	Price       float64  `json:"price"`
	Currency    string   `json:"currency"`
	ChangePct1d *float64 `json:"change_pct_1d,omitempty"`
}
