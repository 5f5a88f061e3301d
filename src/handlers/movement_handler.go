package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gonzalo891751/argfolio/src/logger"
	"github.com/gonzalo891751/argfolio/src/models"
	"github.com/gonzalo891751/argfolio/src/services"
	"github.com/gonzalo891751/argfolio/src/utils"
	"github.com/google/uuid"
)

type MovementHandler struct {
	movements services.MovementStore
	portfolio services.PortfolioService
}

func NewMovementHandler(movements services.MovementStore, portfolio services.PortfolioService) *MovementHandler {
	return &MovementHandler{
		movements: movements,
		portfolio: portfolio,
	}
}

func (h *MovementHandler) HandleCreateMovement(w http.ResponseWriter, r *http.Request) {
	var m models.Movement
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if err := m.Validate(); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.movements.InsertMovement(m); err != nil {
		logger.FromContext(r.Context()).Error("Failed to insert movement", "movementID", m.ID, "error", err)
		utils.SendJSONError(w, fmt.Sprintf("Error saving movement: %v", err), http.StatusInternalServerError)
		return
	}
	h.portfolio.InvalidateAccount(m.AccountID)

	utils.WriteJSON(w, m, http.StatusCreated)
}

func (h *MovementHandler) HandleListMovements(w http.ResponseWriter, r *http.Request) {
	accountID := r.URL.Query().Get("account_id")
	if accountID == "" {
		utils.SendJSONError(w, "account_id is required", http.StatusBadRequest)
		return
	}

	var movements []models.Movement
	var err error
	if instrumentID := r.URL.Query().Get("instrument_id"); instrumentID != "" {
		movements, err = h.movements.ListMovements(accountID, instrumentID)
	} else {
		movements, err = h.movements.ListAccountMovements(accountID)
	}
	if err != nil {
		utils.SendJSONError(w, fmt.Sprintf("Error querying movements: %v", err), http.StatusInternalServerError)
		return
	}
	if movements == nil {
		movements = []models.Movement{}
	}
	utils.WriteJSON(w, movements, http.StatusOK)
}

func (h *MovementHandler) HandleDeleteMovement(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	// The owning account is looked up first so the cached report can always
	// be invalidated after the delete.
	m, err := h.movements.GetMovement(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			utils.SendJSONError(w, "movement not found", http.StatusNotFound)
			return
		}
		logger.FromContext(r.Context()).Error("Failed to load movement", "movementID", id, "error", err)
		utils.SendJSONError(w, fmt.Sprintf("Error loading movement: %v", err), http.StatusInternalServerError)
		return
	}

	if err := h.movements.DeleteMovement(id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			utils.SendJSONError(w, "movement not found", http.StatusNotFound)
			return
		}
		logger.FromContext(r.Context()).Error("Failed to delete movement", "movementID", id, "error", err)
		utils.SendJSONError(w, fmt.Sprintf("Error deleting movement: %v", err), http.StatusInternalServerError)
		return
	}
	h.portfolio.InvalidateAccount(m.AccountID)
	w.WriteHeader(http.StatusNoContent)
}
