package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gonzalo891751/argfolio/src/models"
	"github.com/gonzalo891751/argfolio/src/services"
	"github.com/gonzalo891751/argfolio/src/utils"
	"github.com/google/uuid"
)

type InstrumentHandler struct {
	instruments services.InstrumentStore
}

func NewInstrumentHandler(instruments services.InstrumentStore) *InstrumentHandler {
	return &InstrumentHandler{instruments: instruments}
}

func (h *InstrumentHandler) HandleCreateInstrument(w http.ResponseWriter, r *http.Request) {
	var i models.Instrument
	if err := json.NewDecoder(r.Body).Decode(&i); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if i.Ticker == "" || i.Currency == "" {
		utils.SendJSONError(w, "ticker and currency are required", http.StatusBadRequest)
		return
	}
	if !i.Category.Valid() {
		utils.SendJSONError(w, fmt.Sprintf("unknown category %q", i.Category), http.StatusBadRequest)
		return
	}
	if i.ID == "" {
		i.ID = uuid.New().String()
	}

	if err := h.instruments.InsertInstrument(i); err != nil {
		utils.SendJSONError(w, fmt.Sprintf("Error saving instrument: %v", err), http.StatusInternalServerError)
		return
	}
	utils.WriteJSON(w, i, http.StatusCreated)
}

func (h *InstrumentHandler) HandleListInstruments(w http.ResponseWriter, r *http.Request) {
	instruments, err := h.instruments.ListInstruments()
	if err != nil {
		utils.SendJSONError(w, fmt.Sprintf("Error querying instruments: %v", err), http.StatusInternalServerError)
		return
	}
	if instruments == nil {
		instruments = []models.Instrument{}
	}
	utils.WriteJSON(w, instruments, http.StatusOK)
}
