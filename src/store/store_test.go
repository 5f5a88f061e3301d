package store

import (
	"database/sql"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/gonzalo891751/argfolio/src/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// newTestStore opens an in-memory sqlite database and applies the real
// migration files, so the tests run against the production schema.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec("PRAGMA foreign_keys = ON;")
	require.NoError(t, err)

	dir := filepath.Join("..", "..", "db", "migrations")
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	var ups []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".up.sql") {
			ups = append(ups, e.Name())
		}
	}
	sort.Strings(ups)
	require.NotEmpty(t, ups, "no migration files found")

	for _, name := range ups {
		ddl, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		_, err = db.Exec(string(ddl))
		require.NoError(t, err, "applying %s", name)
	}
	return New(db)
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func TestStore_MovementRoundTrip(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.InsertAccount(models.Account{ID: "acc-1", Name: "Broker", Currency: "ARS"}))

	original := models.Movement{
		ID:            "m1",
		InstrumentID:  "inst-ggal",
		AccountID:     "acc-1",
		Type:          models.MovementBuy,
		Datetime:      "2024-01-10T14:30:00Z",
		Quantity:      dec("10.5"),
		UnitPrice:     dec("5300.123456"),
		TradeCurrency: "ARS",
		FxAtTrade:     decPtr("1180.25"),
		FeeAmount:     decPtr("12.50"),
		FeeCurrency:   "ARS",
		Note:          "compra mensual",
	}
	require.NoError(t, s.InsertMovement(original))

	// A second movement with every nullable field empty.
	bare := models.Movement{
		ID:            "m2",
		InstrumentID:  "inst-ggal",
		AccountID:     "acc-1",
		Type:          models.MovementSell,
		Datetime:      "2024-02-01T10:00:00Z",
		Quantity:      dec("3"),
		UnitPrice:     dec("6000"),
		TradeCurrency: "ARS",
	}
	require.NoError(t, s.InsertMovement(bare))

	movements, err := s.ListMovements("acc-1", "inst-ggal")
	require.NoError(t, err)
	require.Len(t, movements, 2)

	got := movements[0]
	assert.Equal(t, original.ID, got.ID)
	assert.Equal(t, original.Type, got.Type)
	assert.Equal(t, original.Datetime, got.Datetime)
	assert.True(t, got.Quantity.Equal(original.Quantity))
	assert.True(t, got.UnitPrice.Equal(original.UnitPrice), "decimals stored as TEXT lose nothing")
	require.NotNil(t, got.FxAtTrade)
	assert.True(t, got.FxAtTrade.Equal(dec("1180.25")))
	require.NotNil(t, got.FeeAmount)
	assert.True(t, got.FeeAmount.Equal(dec("12.50")))
	assert.Equal(t, "compra mensual", got.Note)

	assert.Nil(t, movements[1].FxAtTrade)
	assert.Nil(t, movements[1].FeeAmount)
	assert.Empty(t, movements[1].FeeCurrency)
}

func TestStore_InsertMovementRejectsDuplicateID(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.InsertAccount(models.Account{ID: "acc-1", Name: "Broker", Currency: "ARS"}))

	m := models.Movement{
		ID: "m1", InstrumentID: "inst-1", AccountID: "acc-1",
		Type: models.MovementBuy, Datetime: "2024-01-01T00:00:00Z",
		Quantity: dec("1"), UnitPrice: dec("100"), TradeCurrency: "ARS",
	}
	require.NoError(t, s.InsertMovement(m))
	assert.Error(t, s.InsertMovement(m))
}

func TestStore_UpsertMovementsCountsOnlyNewRows(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.InsertAccount(models.Account{ID: "acc-1", Name: "Broker", Currency: "ARS"}))

	batch := []models.Movement{
		{ID: "m1", InstrumentID: "inst-1", AccountID: "acc-1", Type: models.MovementBuy,
			Datetime: "2024-01-01T00:00:00Z", Quantity: dec("1"), UnitPrice: dec("100"), TradeCurrency: "ARS"},
		{ID: "m2", InstrumentID: "inst-1", AccountID: "acc-1", Type: models.MovementBuy,
			Datetime: "2024-01-02T00:00:00Z", Quantity: dec("2"), UnitPrice: dec("110"), TradeCurrency: "ARS"},
	}

	inserted, err := s.UpsertMovements(batch)
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)

	inserted, err = s.UpsertMovements(batch)
	require.NoError(t, err)
	assert.Equal(t, 0, inserted, "existing ids are ignored, not duplicated")

	all, err := s.AllMovements()
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestStore_DeleteMovement(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.InsertAccount(models.Account{ID: "acc-1", Name: "Broker", Currency: "ARS"}))
	require.NoError(t, s.InsertMovement(models.Movement{
		ID: "m1", InstrumentID: "inst-1", AccountID: "acc-1", Type: models.MovementBuy,
		Datetime: "2024-01-01T00:00:00Z", Quantity: dec("1"), UnitPrice: dec("100"), TradeCurrency: "ARS",
	}))

	got, err := s.GetMovement("m1")
	require.NoError(t, err)
	assert.Equal(t, "acc-1", got.AccountID)

	require.NoError(t, s.DeleteMovement("m1"))
	assert.ErrorIs(t, s.DeleteMovement("m1"), sql.ErrNoRows)

	_, err = s.GetMovement("m1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestStore_CommitAccrualIsAtomicAndMonotonic(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.InsertAccount(models.Account{
		ID: "acc-mp", Name: "Mercado Pago", Currency: "ARS",
		CashYield: &models.CashYieldConfig{
			Enabled: true, TNA: dec("36.5"), Currency: "ARS",
			Compounding: "daily", LastAccruedDate: "2024-01-01",
		},
	}))

	credits := []models.Movement{
		{ID: "interest:acc-mp:2024-01-02", InstrumentID: "cash:ARS", AccountID: "acc-mp",
			Type: models.MovementInterest, Datetime: "2024-01-02T00:00:00Z",
			Quantity: dec("100"), UnitPrice: dec("1"), TradeCurrency: "ARS"},
		{ID: "interest:acc-mp:2024-01-03", InstrumentID: "cash:ARS", AccountID: "acc-mp",
			Type: models.MovementInterest, Datetime: "2024-01-03T00:00:00Z",
			Quantity: dec("100.01"), UnitPrice: dec("1"), TradeCurrency: "ARS"},
	}

	inserted, err := s.CommitAccrual("acc-mp", credits, "2024-01-03")
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)

	account, err := s.GetAccount("acc-mp")
	require.NoError(t, err)
	require.NotNil(t, account.CashYield)
	assert.Equal(t, "2024-01-03", account.CashYield.LastAccruedDate)

	// Re-committing the same credits inserts nothing.
	inserted, err = s.CommitAccrual("acc-mp", credits, "2024-01-03")
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)

	// An older watermark never wins.
	_, err = s.CommitAccrual("acc-mp", nil, "2023-12-31")
	require.NoError(t, err)
	account, err = s.GetAccount("acc-mp")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-03", account.CashYield.LastAccruedDate)
}

func TestStore_AccountYieldRoundTrip(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.InsertAccount(models.Account{ID: "acc-plain", Name: "Banco", Currency: "ARS"}))
	require.NoError(t, s.InsertAccount(models.Account{
		ID: "acc-mp", Name: "Mercado Pago", Currency: "ARS",
		CashYield: &models.CashYieldConfig{
			Enabled: true, TNA: dec("32.5"), Currency: "ARS",
			Compounding: "daily", LastAccruedDate: "2024-03-01",
		},
	}))

	plain, err := s.GetAccount("acc-plain")
	require.NoError(t, err)
	assert.Nil(t, plain.CashYield)

	mp, err := s.GetAccount("acc-mp")
	require.NoError(t, err)
	require.NotNil(t, mp.CashYield)
	assert.True(t, mp.CashYield.Enabled)
	assert.True(t, mp.CashYield.TNA.Equal(dec("32.5")))
	assert.Equal(t, "daily", mp.CashYield.Compounding)
	assert.Equal(t, "2024-03-01", mp.CashYield.LastAccruedDate)

	_, err = s.GetAccount("acc-ghost")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestStore_UpdateCashYieldPreservesWatermark(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.InsertAccount(models.Account{
		ID: "acc-mp", Name: "Mercado Pago", Currency: "ARS",
		CashYield: &models.CashYieldConfig{
			Enabled: true, TNA: dec("32.5"), Currency: "ARS",
			Compounding: "daily", LastAccruedDate: "2024-03-01",
		},
	}))

	// Rate change without a watermark keeps the stored one.
	require.NoError(t, s.UpdateCashYield("acc-mp", &models.CashYieldConfig{
		Enabled: true, TNA: dec("40"), Currency: "ARS", Compounding: "daily",
	}))

	account, err := s.GetAccount("acc-mp")
	require.NoError(t, err)
	require.NotNil(t, account.CashYield)
	assert.True(t, account.CashYield.TNA.Equal(dec("40")))
	assert.Equal(t, "2024-03-01", account.CashYield.LastAccruedDate,
		"changing the rate must not reset the accrual watermark")

	assert.ErrorIs(t, s.UpdateCashYield("acc-ghost", &models.CashYieldConfig{Enabled: true}), sql.ErrNoRows)
}

func TestStore_UpdateCashYieldNilDisablesButKeepsWatermark(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.InsertAccount(models.Account{
		ID: "acc-mp", Name: "Mercado Pago", Currency: "ARS",
		CashYield: &models.CashYieldConfig{
			Enabled: true, TNA: dec("32.5"), Currency: "ARS",
			Compounding: "daily", LastAccruedDate: "2024-03-01",
		},
	}))

	require.NoError(t, s.UpdateCashYield("acc-mp", nil))
	account, err := s.GetAccount("acc-mp")
	require.NoError(t, err)
	assert.Nil(t, account.CashYield)

	// Re-enabling without a watermark picks up the preserved one instead of
	// opening a retroactive accrual window.
	require.NoError(t, s.UpdateCashYield("acc-mp", &models.CashYieldConfig{
		Enabled: true, TNA: dec("30"), Currency: "ARS", Compounding: "daily",
	}))
	account, err = s.GetAccount("acc-mp")
	require.NoError(t, err)
	require.NotNil(t, account.CashYield)
	assert.Equal(t, "2024-03-01", account.CashYield.LastAccruedDate)
}

func TestStore_InstrumentRoundTrip(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.InsertInstrument(models.Instrument{
		ID: "inst-ggal", Ticker: "GGAL", Name: "Grupo Galicia",
		Category: models.CategoryCedear, Currency: "ARS", QuoteSymbol: "GGAL.BA",
	}))
	require.NoError(t, s.InsertInstrument(models.Instrument{
		ID: "inst-btc", Ticker: "BTC", Category: models.CategoryCrypto,
		Currency: "USD", QuoteSymbol: "BTC-USD",
	}))

	// Tickers are unique.
	err := s.InsertInstrument(models.Instrument{
		ID: "inst-dup", Ticker: "GGAL", Category: models.CategoryCedear, Currency: "ARS",
	})
	assert.Error(t, err)

	got, err := s.GetInstrument("inst-ggal")
	require.NoError(t, err)
	assert.Equal(t, "Grupo Galicia", got.Name)
	assert.Equal(t, models.CategoryCedear, got.Category)

	all, err := s.ListInstruments()
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = s.GetInstrument("inst-ghost")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
