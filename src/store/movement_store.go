package store

import (
	"database/sql"
	"fmt"

	"github.com/gonzalo891751/argfolio/src/models"
	"github.com/shopspring/decimal"
)

// Store persists accounts, instruments and the append-only movement log in
// sqlite. Decimals travel as TEXT so no precision is lost in the roundtrip.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const movementColumns = `id, instrument_id, account_id, type, datetime, quantity, unit_price,
	trade_currency, fx_at_trade, fee_amount, fee_currency, note`

// InsertMovement appends one movement. The id must be unique; duplicates are
// rejected so corrections stay explicit offsetting movements.
func (s *Store) InsertMovement(m models.Movement) error {
	_, err := s.db.Exec(`
		INSERT INTO movements (`+movementColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.InstrumentID, m.AccountID, string(m.Type), m.Datetime,
		m.Quantity.String(), m.UnitPrice.String(), m.TradeCurrency,
		decimalToNull(m.FxAtTrade), decimalToNull(m.FeeAmount), nullableString(m.FeeCurrency), nullableString(m.Note))
	if err != nil {
		return fmt.Errorf("inserting movement %q: %w", m.ID, err)
	}
	return nil
}

// UpsertMovements inserts movements, silently skipping ids that already
// exist. It reports how many rows were actually inserted, which is what makes
// backup merges and accrual re-runs idempotent.
func (s *Store) UpsertMovements(movements []models.Movement) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning upsert transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	inserted, err := upsertMovementsTx(tx, movements)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing upsert transaction: %w", err)
	}
	committed = true
	return inserted, nil
}

func upsertMovementsTx(tx *sql.Tx, movements []models.Movement) (int, error) {
	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO movements (` + movementColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing movement upsert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, m := range movements {
		res, err := stmt.Exec(
			m.ID, m.InstrumentID, m.AccountID, string(m.Type), m.Datetime,
			m.Quantity.String(), m.UnitPrice.String(), m.TradeCurrency,
			decimalToNull(m.FxAtTrade), decimalToNull(m.FeeAmount), nullableString(m.FeeCurrency), nullableString(m.Note))
		if err != nil {
			return 0, fmt.Errorf("upserting movement %q: %w", m.ID, err)
		}
		n, _ := res.RowsAffected()
		inserted += int(n)
	}
	return inserted, nil
}

// GetMovement fetches one movement by id, or sql.ErrNoRows.
func (s *Store) GetMovement(id string) (models.Movement, error) {
	rows, err := s.db.Query(`
		SELECT `+movementColumns+`
		FROM movements WHERE id = ?`, id)
	if err != nil {
		return models.Movement{}, fmt.Errorf("querying movement %q: %w", id, err)
	}
	movements, err := scanMovements(rows)
	if err != nil {
		return models.Movement{}, err
	}
	if len(movements) == 0 {
		return models.Movement{}, sql.ErrNoRows
	}
	return movements[0], nil
}

// ListMovements returns the movements of one (instrument, account) pair.
func (s *Store) ListMovements(accountID, instrumentID string) ([]models.Movement, error) {
	rows, err := s.db.Query(`
		SELECT `+movementColumns+`
		FROM movements
		WHERE account_id = ? AND instrument_id = ?
		ORDER BY datetime, id`, accountID, instrumentID)
	if err != nil {
		return nil, fmt.Errorf("querying movements for account %q instrument %q: %w", accountID, instrumentID, err)
	}
	return scanMovements(rows)
}

// ListAccountMovements returns every movement of one account.
func (s *Store) ListAccountMovements(accountID string) ([]models.Movement, error) {
	rows, err := s.db.Query(`
		SELECT `+movementColumns+`
		FROM movements
		WHERE account_id = ?
		ORDER BY datetime, id`, accountID)
	if err != nil {
		return nil, fmt.Errorf("querying movements for account %q: %w", accountID, err)
	}
	return scanMovements(rows)
}

// AllMovements returns the full log, for backup export.
func (s *Store) AllMovements() ([]models.Movement, error) {
	rows, err := s.db.Query(`
		SELECT ` + movementColumns + `
		FROM movements
		ORDER BY datetime, id`)
	if err != nil {
		return nil, fmt.Errorf("querying all movements: %w", err)
	}
	return scanMovements(rows)
}

// DeleteMovement removes a movement by id. This is the only destructive
// operation on the log and always an explicit user action.
func (s *Store) DeleteMovement(id string) error {
	res, err := s.db.Exec(`DELETE FROM movements WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting movement %q: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CommitAccrual persists accrued interest movements and advances the
// account's watermark in one transaction: either both land or neither does,
// so a partial failure can never re-credit interest.
func (s *Store) CommitAccrual(accountID string, movements []models.Movement, watermark string) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning accrual transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	inserted, err := upsertMovementsTx(tx, movements)
	if err != nil {
		return 0, err
	}

	// The watermark only moves forward.
	_, err = tx.Exec(`
		UPDATE accounts
		SET yield_last_accrued = ?
		WHERE id = ? AND (yield_last_accrued IS NULL OR yield_last_accrued < ?)`,
		watermark, accountID, watermark)
	if err != nil {
		return 0, fmt.Errorf("advancing accrual watermark for account %q: %w", accountID, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing accrual transaction: %w", err)
	}
	committed = true
	return inserted, nil
}

func scanMovements(rows *sql.Rows) ([]models.Movement, error) {
	defer rows.Close()
	var movements []models.Movement
	for rows.Next() {
		var (
			m                          models.Movement
			typ, quantity, unitPrice   string
			fx, fee, feeCurrency, note sql.NullString
		)
		if err := rows.Scan(&m.ID, &m.InstrumentID, &m.AccountID, &typ, &m.Datetime,
			&quantity, &unitPrice, &m.TradeCurrency, &fx, &fee, &feeCurrency, &note); err != nil {
			return nil, fmt.Errorf("scanning movement: %w", err)
		}
		m.Type = models.MovementType(typ)
		var err error
		if m.Quantity, err = decimal.NewFromString(quantity); err != nil {
			return nil, fmt.Errorf("parsing quantity of movement %q: %w", m.ID, err)
		}
		if m.UnitPrice, err = decimal.NewFromString(unitPrice); err != nil {
			return nil, fmt.Errorf("parsing unit_price of movement %q: %w", m.ID, err)
		}
		if m.FxAtTrade, err = nullToDecimal(fx); err != nil {
			return nil, fmt.Errorf("parsing fx_at_trade of movement %q: %w", m.ID, err)
		}
		if m.FeeAmount, err = nullToDecimal(fee); err != nil {
			return nil, fmt.Errorf("parsing fee_amount of movement %q: %w", m.ID, err)
		}
		m.FeeCurrency = feeCurrency.String
		m.Note = note.String
		movements = append(movements, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating movements: %w", err)
	}
	return movements, nil
}

func decimalToNull(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func nullToDecimal(s sql.NullString) (*decimal.Decimal, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
