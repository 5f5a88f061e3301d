package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MovementType classifies a financial event in the append-only movement log.
type MovementType string

const (
	MovementBuy      MovementType = "BUY"
	MovementSell     MovementType = "SELL"
	MovementDeposit  MovementType = "DEPOSIT"
	MovementWithdraw MovementType = "WITHDRAW"
	MovementDividend MovementType = "DIVIDEND"
	MovementInterest MovementType = "INTEREST"
)

// Movement is an immutable financial event recorded against one
// (instrument, account) pair. Corrections are modeled as new offsetting
// movements; rows are never updated in place.
type Movement struct {
	ID            string           `json:"id"`
	InstrumentID  string           `json:"instrument_id"`
	AccountID     string           `json:"account_id"`
	Type          MovementType     `json:"type"`
	Datetime      string           `json:"datetime"` // ISO-8601; lexicographic order == chronological order
	Quantity      decimal.Decimal  `json:"quantity"`
	UnitPrice     decimal.Decimal  `json:"unit_price"`
	TradeCurrency string           `json:"trade_currency"`
	FxAtTrade     *decimal.Decimal `json:"fx_at_trade,omitempty"` // ARS per USD at trade time
	FeeAmount     *decimal.Decimal `json:"fee_amount,omitempty"`
	FeeCurrency   string           `json:"fee_currency,omitempty"`
	Note          string           `json:"note,omitempty"`
}

// MalformedMovementError reports a movement that cannot participate in lot
// computation. It is never silently coerced to zero.
type MalformedMovementError struct {
	MovementID string
	Reason     string
}

func (e *MalformedMovementError) Error() string {
	return fmt.Sprintf("malformed movement %q: %s", e.MovementID, e.Reason)
}

// IsInflow reports whether the movement type increases the position.
// Daily interest credits open cash lots just like deposits do.
func (t MovementType) IsInflow() bool {
	return t == MovementBuy || t == MovementDeposit || t == MovementInterest
}

// IsOutflow reports whether the movement type decreases the position.
func (t MovementType) IsOutflow() bool {
	return t == MovementSell || t == MovementWithdraw
}

// IsUsdCurrency reports whether a currency code is treated as a dollar leg.
// Stablecoins are valued 1:1 with USD for cost-basis purposes.
func IsUsdCurrency(currency string) bool {
	switch strings.ToUpper(currency) {
	case "USD", "USDT", "USDC":
		return true
	}
	return false
}

// Validate checks the movement for the fields required by the FIFO engine.
func (m *Movement) Validate() error {
	if m.ID == "" {
		return &MalformedMovementError{MovementID: m.ID, Reason: "missing id"}
	}
	if m.AccountID == "" {
		return &MalformedMovementError{MovementID: m.ID, Reason: "missing account_id"}
	}
	if m.InstrumentID == "" {
		return &MalformedMovementError{MovementID: m.ID, Reason: "missing instrument_id"}
	}
	switch m.Type {
	case MovementBuy, MovementSell, MovementDeposit, MovementWithdraw, MovementDividend, MovementInterest:
	default:
		return &MalformedMovementError{MovementID: m.ID, Reason: fmt.Sprintf("unknown type %q", m.Type)}
	}
	if m.Datetime == "" {
		return &MalformedMovementError{MovementID: m.ID, Reason: "missing datetime"}
	}
	if m.Quantity.IsNegative() {
		return &MalformedMovementError{MovementID: m.ID, Reason: "negative quantity"}
	}
	if m.UnitPrice.IsNegative() {
		return &MalformedMovementError{MovementID: m.ID, Reason: "negative unit_price"}
	}
	if m.TradeCurrency == "" {
		return &MalformedMovementError{MovementID: m.ID, Reason: "missing trade_currency"}
	}
	if m.FxAtTrade != nil && !m.FxAtTrade.IsPositive() {
		return &MalformedMovementError{MovementID: m.ID, Reason: "fx_at_trade must be positive when present"}
	}
	if m.FeeAmount != nil && m.FeeAmount.IsNegative() {
		return &MalformedMovementError{MovementID: m.ID, Reason: "negative fee_amount"}
	}
	return nil
}
