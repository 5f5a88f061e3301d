package models

import "github.com/shopspring/decimal"

// CashYieldConfig governs daily interest accrual for a remunerated cash
// account (cuenta remunerada, e.g. Mercado Pago / money-market FCI).
type CashYieldConfig struct {
	Enabled     bool            `json:"enabled"`
	TNA         decimal.Decimal `json:"tna"`         // nominal annual rate, e.g. 32.5 means 32.5%
	Currency    string          `json:"currency"`    // currency the interest is credited in
	Compounding string          `json:"compounding"` // only "daily" is supported
	// LastAccruedDate is the watermark: the last date (YYYY-MM-DD) through
	// which interest has been credited. It only ever moves forward.
	LastAccruedDate string `json:"last_accrued_date"`
}

// Account groups movements under one broker/wallet/bank identity.
type Account struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Currency  string           `json:"currency"`
	CashYield *CashYieldConfig `json:"cash_yield,omitempty"`
}

// CashInstrumentID is the implicit instrument that cash movements of an
// account reference: deposits, withdrawals and accrued interest all live on
// this pseudo-instrument so the FIFO engine can treat cash like any holding.
func CashInstrumentID(currency string) string {
	return "cash:" + currency
}
