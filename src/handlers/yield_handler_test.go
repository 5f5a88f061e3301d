package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gonzalo891751/argfolio/src/models"
	"github.com/gonzalo891751/argfolio/src/services"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAccountStore struct {
	accounts map[string]models.Account
}

func (s *stubAccountStore) InsertAccount(a models.Account) error {
	s.accounts[a.ID] = a
	return nil
}

func (s *stubAccountStore) UpsertAccounts(accounts []models.Account) (int, error) {
	inserted := 0
	for _, a := range accounts {
		if _, ok := s.accounts[a.ID]; !ok {
			s.accounts[a.ID] = a
			inserted++
		}
	}
	return inserted, nil
}

func (s *stubAccountStore) GetAccount(id string) (models.Account, error) {
	a, ok := s.accounts[id]
	if !ok {
		return models.Account{}, sql.ErrNoRows
	}
	return a, nil
}

func (s *stubAccountStore) ListAccounts() ([]models.Account, error) {
	var out []models.Account
	for _, a := range s.accounts {
		out = append(out, a)
	}
	return out, nil
}

func (s *stubAccountStore) UpdateCashYield(accountID string, yield *models.CashYieldConfig) error {
	a, ok := s.accounts[accountID]
	if !ok {
		return sql.ErrNoRows
	}
	a.CashYield = yield
	s.accounts[accountID] = a
	return nil
}

type stubAccrual struct {
	credited int
	err      error
	lastDate string
}

func (s *stubAccrual) RunAccount(accountID string, today string) (int, error) {
	s.lastDate = today
	return s.credited, s.err
}

func (s *stubAccrual) RunAll(today string) (int, error) {
	s.lastDate = today
	return s.credited, s.err
}

func mustDec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestHandleGetYieldMetrics(t *testing.T) {
	accounts := &stubAccountStore{accounts: map[string]models.Account{
		"acc-mp": {
			ID: "acc-mp", Name: "Mercado Pago", Currency: "ARS",
			CashYield: &models.CashYieldConfig{
				Enabled: true, TNA: mustDec("36.5"), Currency: "ARS",
				Compounding: "daily", LastAccruedDate: "2024-01-03",
			},
		},
		"acc-plain": {ID: "acc-plain", Name: "Banco", Currency: "ARS"},
	}}
	movements := newStubMovementStore()
	movements.movements["m1"] = models.Movement{
		ID: "m1", InstrumentID: models.CashInstrumentID("ARS"), AccountID: "acc-mp",
		Type: models.MovementDeposit, Datetime: "2024-01-01T00:00:00Z",
		Quantity: mustDec("100000"), UnitPrice: mustDec("1"), TradeCurrency: "ARS",
	}

	handler := NewYieldHandler(accounts, movements, &stubAccrual{})

	req := httptest.NewRequest(http.MethodGet, "/api/yield?account_id=acc-mp", nil)
	rec := httptest.NewRecorder()
	handler.HandleGetYieldMetrics(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var payload struct {
		AccountID string `json:"account_id"`
		Balance   string `json:"balance"`
		Metrics   struct {
			TNA float64 `json:"tna"`
			TEA float64 `json:"tea"`
		} `json:"metrics"`
		Watermark string `json:"last_accrued_date"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "acc-mp", payload.AccountID)
	assert.Equal(t, "100000", payload.Balance)
	assert.Equal(t, 36.5, payload.Metrics.TNA)
	assert.Greater(t, payload.Metrics.TEA, 0.365)
	assert.Equal(t, "2024-01-03", payload.Watermark)

	// Not configured and not found both refuse cleanly.
	rec = httptest.NewRecorder()
	handler.HandleGetYieldMetrics(rec, httptest.NewRequest(http.MethodGet, "/api/yield?account_id=acc-plain", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	handler.HandleGetYieldMetrics(rec, httptest.NewRequest(http.MethodGet, "/api/yield?account_id=acc-ghost", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleRunAccrual(t *testing.T) {
	accrual := &stubAccrual{credited: 3}
	handler := NewYieldHandler(&stubAccountStore{accounts: map[string]models.Account{}}, newStubMovementStore(), accrual)

	req := httptest.NewRequest(http.MethodPost, "/api/accrue?account_id=acc-mp&date=2024-01-04", nil)
	rec := httptest.NewRecorder()
	handler.HandleRunAccrual(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2024-01-04", accrual.lastDate)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "2024-01-04", payload["date"])
	assert.Equal(t, float64(3), payload["movements_credited"])
}

func TestHandleRunAccrual_MapsServiceErrors(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{services.ErrAccountNotFound, http.StatusNotFound},
		{services.ErrYieldNotConfigured, http.StatusBadRequest},
	}
	for _, tt := range tests {
		handler := NewYieldHandler(&stubAccountStore{accounts: map[string]models.Account{}}, newStubMovementStore(), &stubAccrual{err: tt.err})
		req := httptest.NewRequest(http.MethodPost, "/api/accrue?account_id=acc-x&date=2024-01-04", nil)
		rec := httptest.NewRecorder()
		handler.HandleRunAccrual(rec, req)
		assert.Equal(t, tt.code, rec.Code, "error %v", tt.err)
	}
}
