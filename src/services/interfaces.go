package services

import (
	"errors"
	"io"

	"github.com/gonzalo891751/argfolio/src/models"
	"github.com/gonzalo891751/argfolio/src/processors"
)

// Define common service errors
var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrInstrumentNotFound = errors.New("instrument not found")
	ErrYieldNotConfigured = errors.New("account has no enabled cash yield")
)

// MovementStore is the persistence boundary of the movement log.
type MovementStore interface {
	InsertMovement(m models.Movement) error
	GetMovement(id string) (models.Movement, error)
	UpsertMovements(movements []models.Movement) (int, error)
	ListMovements(accountID, instrumentID string) ([]models.Movement, error)
	ListAccountMovements(accountID string) ([]models.Movement, error)
	AllMovements() ([]models.Movement, error)
	DeleteMovement(id string) error
	// CommitAccrual must persist the movements and advance the watermark
	// atomically; the watermark never moves backward.
	CommitAccrual(accountID string, movements []models.Movement, watermark string) (int, error)
}

// AccountStore is the persistence boundary for accounts.
type AccountStore interface {
	InsertAccount(a models.Account) error
	UpsertAccounts(accounts []models.Account) (int, error)
	GetAccount(id string) (models.Account, error)
	ListAccounts() ([]models.Account, error)
	UpdateCashYield(accountID string, yield *models.CashYieldConfig) error
}

// InstrumentStore is the persistence boundary for instruments.
type InstrumentStore interface {
	InsertInstrument(i models.Instrument) error
	UpsertInstruments(instruments []models.Instrument) (int, error)
	GetInstrument(id string) (models.Instrument, error)
	ListInstruments() ([]models.Instrument, error)
}

// PriceService fetches live market data.
type PriceService interface {
	// GetFxBoard returns the Argentine FX board. Legs the provider cannot
	// quote are nil.
	GetFxBoard() (*models.FxBoard, error)
	// GetQuotes returns a quote per symbol. A symbol that cannot be fetched
	// comes back with Status "UNAVAILABLE" instead of failing the batch.
	GetQuotes(symbols []string) map[string]models.PriceInfo
}

// PortfolioService derives asset rows, lot breakdowns and totals from the
// movement log plus live prices.
type PortfolioService interface {
	GetAssetRows(accountID string) ([]models.AssetRowMetrics, error)
	GetLots(accountID, instrumentID string) (processors.FifoResult, error)
	GetSummary() (models.PortfolioSummary, error)
	// InvalidateAccount must be called after every write touching the
	// account's movements.
	InvalidateAccount(accountID string)
}

// AccrualService credits daily interest for remunerated cash accounts.
type AccrualService interface {
	// RunAccount accrues one account up to today and returns how many
	// movements were newly credited. A second run for the same day is a
	// no-op returning 0.
	RunAccount(accountID string, today string) (int, error)
	// RunAll accrues every enabled account.
	RunAll(today string) (int, error)
}

// BackupService round-trips the whole dataset through a JSONL stream.
type BackupService interface {
	Export(w io.Writer) error
	Import(r io.Reader) (ImportSummary, error)
}

// ImportSummary reports the outcome of a backup merge.
type ImportSummary struct {
	AccountsAdded    int `json:"accounts_added"`
	InstrumentsAdded int `json:"instruments_added"`
	MovementsAdded   int `json:"movements_added"`
	LinesSkipped     int `json:"lines_skipped"`
}
