package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gonzalo891751/argfolio/src/logger"
	"github.com/gonzalo891751/argfolio/src/services"
	"github.com/gonzalo891751/argfolio/src/utils"
)

type MarketHandler struct {
	priceService services.PriceService
}

func NewMarketHandler(priceService services.PriceService) *MarketHandler {
	return &MarketHandler{priceService: priceService}
}

// HandleGetFxBoard returns the Argentine FX board (oficial/blue/mep/ccl/cripto).
func (h *MarketHandler) HandleGetFxBoard(w http.ResponseWriter, r *http.Request) {
	board, err := h.priceService.GetFxBoard()
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to fetch FX board", "error", err)
		utils.SendJSONError(w, fmt.Sprintf("Error fetching FX rates: %v", err), http.StatusBadGateway)
		return
	}
	utils.WriteJSON(w, board, http.StatusOK)
}

// HandleGetQuotes returns live quotes for a comma-separated symbol list.
func (h *MarketHandler) HandleGetQuotes(w http.ResponseWriter, r *http.Request) {
	tickersParam := r.URL.Query().Get("tickers")
	if tickersParam == "" {
		utils.SendJSONError(w, "tickers is required", http.StatusBadRequest)
		return
	}
	symbols := strings.Split(tickersParam, ",")
	for i := range symbols {
		symbols[i] = strings.TrimSpace(symbols[i])
	}

	utils.WriteJSON(w, h.priceService.GetQuotes(symbols), http.StatusOK)
}
