package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/gonzalo891751/argfolio/src/logger"
	"github.com/gonzalo891751/argfolio/src/models"
	"github.com/gonzalo891751/argfolio/src/processors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	os.Exit(m.Run())
}

// stubMovementStore keeps movements in a map, mirroring the store's not-found
// semantics.
type stubMovementStore struct {
	movements map[string]models.Movement
}

func newStubMovementStore() *stubMovementStore {
	return &stubMovementStore{movements: make(map[string]models.Movement)}
}

func (s *stubMovementStore) InsertMovement(m models.Movement) error {
	s.movements[m.ID] = m
	return nil
}

func (s *stubMovementStore) GetMovement(id string) (models.Movement, error) {
	m, ok := s.movements[id]
	if !ok {
		return models.Movement{}, sql.ErrNoRows
	}
	return m, nil
}

func (s *stubMovementStore) UpsertMovements(movements []models.Movement) (int, error) {
	inserted := 0
	for _, m := range movements {
		if _, ok := s.movements[m.ID]; !ok {
			s.movements[m.ID] = m
			inserted++
		}
	}
	return inserted, nil
}

func (s *stubMovementStore) ListMovements(accountID, instrumentID string) ([]models.Movement, error) {
	var out []models.Movement
	for _, m := range s.movements {
		if m.AccountID == accountID && m.InstrumentID == instrumentID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *stubMovementStore) ListAccountMovements(accountID string) ([]models.Movement, error) {
	var out []models.Movement
	for _, m := range s.movements {
		if m.AccountID == accountID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *stubMovementStore) AllMovements() ([]models.Movement, error) {
	var out []models.Movement
	for _, m := range s.movements {
		out = append(out, m)
	}
	return out, nil
}

func (s *stubMovementStore) DeleteMovement(id string) error {
	if _, ok := s.movements[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.movements, id)
	return nil
}

func (s *stubMovementStore) CommitAccrual(accountID string, movements []models.Movement, watermark string) (int, error) {
	return s.UpsertMovements(movements)
}

// stubPortfolio records invalidations.
type stubPortfolio struct {
	invalidated []string
}

func (s *stubPortfolio) GetAssetRows(accountID string) ([]models.AssetRowMetrics, error) {
	return nil, nil
}

func (s *stubPortfolio) GetLots(accountID, instrumentID string) (processors.FifoResult, error) {
	return processors.FifoResult{}, nil
}

func (s *stubPortfolio) GetSummary() (models.PortfolioSummary, error) {
	return models.PortfolioSummary{}, nil
}

func (s *stubPortfolio) InvalidateAccount(accountID string) {
	s.invalidated = append(s.invalidated, accountID)
}

func TestHandleCreateMovement(t *testing.T) {
	store := newStubMovementStore()
	portfolio := &stubPortfolio{}
	handler := NewMovementHandler(store, portfolio)

	body := `{
		"instrument_id": "inst-ggal",
		"account_id": "acc-1",
		"type": "BUY",
		"datetime": "2024-01-10T14:30:00Z",
		"quantity": "10",
		"unit_price": "5300.50",
		"trade_currency": "ARS"
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/movements", strings.NewReader(body))
	rec := httptest.NewRecorder()

	handler.HandleCreateMovement(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created models.Movement
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID, "an id is generated when the client omits one")
	assert.Contains(t, store.movements, created.ID)
	assert.Equal(t, []string{"acc-1"}, portfolio.invalidated,
		"writes must invalidate the account's cached report")
}

func TestHandleCreateMovement_RejectsInvalidPayloads(t *testing.T) {
	handler := NewMovementHandler(newStubMovementStore(), &stubPortfolio{})

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"type": `},
		{"negative quantity", `{"instrument_id":"i","account_id":"a","type":"BUY","datetime":"2024-01-01T00:00:00Z","quantity":"-1","unit_price":"100","trade_currency":"ARS"}`},
		{"unknown type", `{"instrument_id":"i","account_id":"a","type":"SHORT","datetime":"2024-01-01T00:00:00Z","quantity":"1","unit_price":"100","trade_currency":"ARS"}`},
		{"missing account", `{"instrument_id":"i","type":"BUY","datetime":"2024-01-01T00:00:00Z","quantity":"1","unit_price":"100","trade_currency":"ARS"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/movements", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			handler.HandleCreateMovement(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestHandleListMovements(t *testing.T) {
	store := newStubMovementStore()
	handler := NewMovementHandler(store, &stubPortfolio{})

	req := httptest.NewRequest(http.MethodGet, "/api/movements", nil)
	rec := httptest.NewRecorder()
	handler.HandleListMovements(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "account_id is mandatory")

	req = httptest.NewRequest(http.MethodGet, "/api/movements?account_id=acc-1", nil)
	rec = httptest.NewRecorder()
	handler.HandleListMovements(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String(), "an empty log is an empty array, not null")
}

func TestHandleDeleteMovement(t *testing.T) {
	store := newStubMovementStore()
	portfolio := &stubPortfolio{}
	handler := NewMovementHandler(store, portfolio)

	store.movements["m1"] = models.Movement{ID: "m1", AccountID: "acc-1"}

	r := chi.NewRouter()
	r.Delete("/api/movements/{id}", handler.HandleDeleteMovement)

	// No account hint from the client: the owning account is resolved from
	// the movement itself and its cached report is still invalidated.
	req := httptest.NewRequest(http.MethodDelete, "/api/movements/m1", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotContains(t, store.movements, "m1")
	assert.Equal(t, []string{"acc-1"}, portfolio.invalidated)

	req = httptest.NewRequest(http.MethodDelete, "/api/movements/m1", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Len(t, portfolio.invalidated, 1, "a failed delete must not invalidate anything")
}
