package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gonzalo891751/argfolio/src/logger"
	"github.com/gonzalo891751/argfolio/src/models"
	"github.com/gonzalo891751/argfolio/src/services"
	"github.com/gonzalo891751/argfolio/src/utils"
)

type PortfolioHandler struct {
	portfolio services.PortfolioService
}

func NewPortfolioHandler(portfolio services.PortfolioService) *PortfolioHandler {
	return &PortfolioHandler{portfolio: portfolio}
}

// HandleGetAssetRows returns the valued asset table of one account.
func (h *PortfolioHandler) HandleGetAssetRows(w http.ResponseWriter, r *http.Request) {
	accountID := r.URL.Query().Get("account_id")
	if accountID == "" {
		utils.SendJSONError(w, "account_id is required", http.StatusBadRequest)
		return
	}

	rows, err := h.portfolio.GetAssetRows(accountID)
	if err != nil {
		if errors.Is(err, services.ErrAccountNotFound) {
			utils.SendJSONError(w, "account not found", http.StatusNotFound)
			return
		}
		logger.FromContext(r.Context()).Error("Failed to compute asset rows", "accountID", accountID, "error", err)
		utils.SendJSONError(w, fmt.Sprintf("Error computing asset rows: %v", err), http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []models.AssetRowMetrics{}
	}
	utils.WriteJSON(w, rows, http.StatusOK)
}

// HandleGetLots returns the FIFO lot breakdown the asset drawer shows,
// including any oversell warnings found in the history.
func (h *PortfolioHandler) HandleGetLots(w http.ResponseWriter, r *http.Request) {
	accountID := r.URL.Query().Get("account_id")
	instrumentID := r.URL.Query().Get("instrument_id")
	if accountID == "" || instrumentID == "" {
		utils.SendJSONError(w, "account_id and instrument_id are required", http.StatusBadRequest)
		return
	}

	result, err := h.portfolio.GetLots(accountID, instrumentID)
	if err != nil {
		var malformed *models.MalformedMovementError
		if errors.As(err, &malformed) {
			utils.SendJSONError(w, malformed.Error(), http.StatusUnprocessableEntity)
			return
		}
		utils.SendJSONError(w, fmt.Sprintf("Error computing lots: %v", err), http.StatusInternalServerError)
		return
	}

	payload := struct {
		Lots     []models.InventoryLot    `json:"lots"`
		Warnings []models.OversellWarning `json:"warnings,omitempty"`
	}{Lots: result.Lots, Warnings: result.Warnings}
	if payload.Lots == nil {
		payload.Lots = []models.InventoryLot{}
	}
	utils.WriteJSON(w, payload, http.StatusOK)
}

// HandleGetSummary returns dual-currency portfolio totals.
func (h *PortfolioHandler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.portfolio.GetSummary()
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to compute portfolio summary", "error", err)
		utils.SendJSONError(w, fmt.Sprintf("Error computing summary: %v", err), http.StatusInternalServerError)
		return
	}
	utils.WriteJSON(w, summary, http.StatusOK)
}
