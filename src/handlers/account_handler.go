package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gonzalo891751/argfolio/src/models"
	"github.com/gonzalo891751/argfolio/src/services"
	"github.com/gonzalo891751/argfolio/src/utils"
	"github.com/google/uuid"
)

type AccountHandler struct {
	accounts  services.AccountStore
	portfolio services.PortfolioService
}

func NewAccountHandler(accounts services.AccountStore, portfolio services.PortfolioService) *AccountHandler {
	return &AccountHandler{
		accounts:  accounts,
		portfolio: portfolio,
	}
}

func (h *AccountHandler) HandleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var a models.Account
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if a.Name == "" || a.Currency == "" {
		utils.SendJSONError(w, "name and currency are required", http.StatusBadRequest)
		return
	}
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.CashYield != nil && a.CashYield.Compounding == "" {
		a.CashYield.Compounding = "daily"
	}

	if err := h.accounts.InsertAccount(a); err != nil {
		utils.SendJSONError(w, fmt.Sprintf("Error saving account: %v", err), http.StatusInternalServerError)
		return
	}
	utils.WriteJSON(w, a, http.StatusCreated)
}

func (h *AccountHandler) HandleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accounts.ListAccounts()
	if err != nil {
		utils.SendJSONError(w, fmt.Sprintf("Error querying accounts: %v", err), http.StatusInternalServerError)
		return
	}
	if accounts == nil {
		accounts = []models.Account{}
	}
	utils.WriteJSON(w, accounts, http.StatusOK)
}

// HandleUpdateCashYield replaces an account's yield configuration (TNA
// changes, enable/disable). The accrual watermark survives unless the caller
// sends one explicitly.
func (h *AccountHandler) HandleUpdateCashYield(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "id")

	var cfg models.CashYieldConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if cfg.Compounding == "" {
		cfg.Compounding = "daily"
	}
	if cfg.Compounding != "daily" {
		utils.SendJSONError(w, "only daily compounding is supported", http.StatusBadRequest)
		return
	}
	if cfg.TNA.IsNegative() {
		utils.SendJSONError(w, "tna must not be negative", http.StatusBadRequest)
		return
	}

	if err := h.accounts.UpdateCashYield(accountID, &cfg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			utils.SendJSONError(w, "account not found", http.StatusNotFound)
			return
		}
		utils.SendJSONError(w, fmt.Sprintf("Error updating cash yield: %v", err), http.StatusInternalServerError)
		return
	}
	h.portfolio.InvalidateAccount(accountID)
	utils.WriteJSON(w, cfg, http.StatusOK)
}
