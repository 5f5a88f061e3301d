package models

// AssetCategory drives currency primacy and which reference rate derives the
// secondary leg. Keeping this as a table avoids isUsdPrimary conditionals
// scattered through the valuation code.
type AssetCategory string

const (
	CategoryCashArs AssetCategory = "CASH_ARS"
	CategoryCashUsd AssetCategory = "CASH_USD"
	CategoryCedear  AssetCategory = "CEDEAR"
	CategoryAccion  AssetCategory = "ACCION"
	CategoryFci     AssetCategory = "FCI"
	CategoryCrypto  AssetCategory = "CRYPTO"
	CategoryStable  AssetCategory = "STABLE"
)

// CategoryInfo describes how assets of a category are valued.
type CategoryInfo struct {
	// UsdPrimary: quotes and cost basis are USD-first; the ARS leg is derived.
	// Otherwise ARS-first with a derived USD leg.
	UsdPrimary bool
	// RefRate forces a specific FX board leg ("cripto", "oficial", ...).
	// Empty means use the user's configured CCL/MEP preference.
	RefRate string
}

var categoryTable = map[AssetCategory]CategoryInfo{
	CategoryCashArs: {UsdPrimary: false},
	CategoryCashUsd: {UsdPrimary: true},
	CategoryCedear:  {UsdPrimary: false},
	CategoryAccion:  {UsdPrimary: false},
	CategoryFci:     {UsdPrimary: false},
	CategoryCrypto:  {UsdPrimary: true, RefRate: "cripto"},
	CategoryStable:  {UsdPrimary: true, RefRate: "cripto"},
}

// Info returns the valuation strategy for the category. Unknown categories
// fall back to ARS-primary, which is the safe default for local listings.
func (c AssetCategory) Info() CategoryInfo {
	if info, ok := categoryTable[c]; ok {
		return info
	}
	return CategoryInfo{UsdPrimary: false}
}

// Valid reports whether the category is one of the known values.
func (c AssetCategory) Valid() bool {
	_, ok := categoryTable[c]
	return ok
}

// Instrument identifies something that can be held: a CEDEAR, a local stock,
// an FCI share class, a crypto asset or a cash pseudo-instrument.
type Instrument struct {
	ID       string        `json:"id"`
	Ticker   string        `json:"ticker"`
	Name     string        `json:"name,omitempty"`
	Category AssetCategory `json:"category"`
	Currency string        `json:"currency"` // currency the instrument trades in
	// QuoteSymbol is the symbol used against the quote provider
	// (e.g. "GGAL.BA" for a CEDEAR, "BTC-USD" for crypto). Empty means no
	// live quote is available for this instrument.
	QuoteSymbol string `json:"quote_symbol,omitempty"`
}
