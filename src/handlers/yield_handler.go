package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gonzalo891751/argfolio/src/logger"
	"github.com/gonzalo891751/argfolio/src/models"
	"github.com/gonzalo891751/argfolio/src/processors"
	"github.com/gonzalo891751/argfolio/src/services"
	"github.com/gonzalo891751/argfolio/src/utils"
)

type YieldHandler struct {
	accounts  services.AccountStore
	movements services.MovementStore
	accrual   services.AccrualService
}

func NewYieldHandler(accounts services.AccountStore, movements services.MovementStore, accrual services.AccrualService) *YieldHandler {
	return &YieldHandler{
		accounts:  accounts,
		movements: movements,
		accrual:   accrual,
	}
}

// HandleGetYieldMetrics returns TEA and interest projections for one
// remunerated account's current cash balance.
func (h *YieldHandler) HandleGetYieldMetrics(w http.ResponseWriter, r *http.Request) {
	accountID := r.URL.Query().Get("account_id")
	if accountID == "" {
		utils.SendJSONError(w, "account_id is required", http.StatusBadRequest)
		return
	}

	account, err := h.accounts.GetAccount(accountID)
	if err != nil {
		utils.SendJSONError(w, "account not found", http.StatusNotFound)
		return
	}
	yield := account.CashYield
	if yield == nil || !yield.Enabled {
		utils.SendJSONError(w, "account has no enabled cash yield", http.StatusBadRequest)
		return
	}

	currency := yield.Currency
	if currency == "" {
		currency = account.Currency
	}
	cashMovements, err := h.movements.ListMovements(accountID, models.CashInstrumentID(currency))
	if err != nil {
		utils.SendJSONError(w, fmt.Sprintf("Error querying cash movements: %v", err), http.StatusInternalServerError)
		return
	}
	balance := processors.CashBalance(cashMovements)

	tna, _ := yield.TNA.Float64()
	metrics := processors.ComputeYieldMetrics(balance, tna)

	payload := struct {
		AccountID string                  `json:"account_id"`
		Currency  string                  `json:"currency"`
		Balance   string                  `json:"balance"`
		Metrics   processors.YieldMetrics `json:"metrics"`
		Watermark string                  `json:"last_accrued_date,omitempty"`
	}{accountID, currency, balance.String(), metrics, yield.LastAccruedDate}
	utils.WriteJSON(w, payload, http.StatusOK)
}

// HandleRunAccrual credits pending daily interest. With account_id it accrues
// one account, otherwise every enabled one. Re-running on the same day
// credits nothing.
func (h *YieldHandler) HandleRunAccrual(w http.ResponseWriter, r *http.Request) {
	today := r.URL.Query().Get("date")
	if today == "" {
		today = time.Now().Format("2006-01-02")
	}

	var credited int
	var err error
	accountID := r.URL.Query().Get("account_id")
	if accountID != "" {
		credited, err = h.accrual.RunAccount(accountID, today)
	} else {
		credited, err = h.accrual.RunAll(today)
	}
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAccountNotFound):
			utils.SendJSONError(w, "account not found", http.StatusNotFound)
		case errors.Is(err, services.ErrYieldNotConfigured):
			utils.SendJSONError(w, "account has no enabled cash yield", http.StatusBadRequest)
		default:
			logger.FromContext(r.Context()).Error("Accrual run failed", "accountID", accountID, "error", err)
			utils.SendJSONError(w, fmt.Sprintf("Error running accrual: %v", err), http.StatusInternalServerError)
		}
		return
	}

	utils.WriteJSON(w, map[string]any{"date": today, "movements_credited": credited}, http.StatusOK)
}
