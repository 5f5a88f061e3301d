package store

import (
	"database/sql"
	"fmt"

	"github.com/gonzalo891751/argfolio/src/models"
	"github.com/shopspring/decimal"
)

// InsertAccount creates an account, optionally with its yield config.
func (s *Store) InsertAccount(a models.Account) error {
	enabled, tna, currency, compounding, lastAccrued := flattenYield(a.CashYield)
	_, err := s.db.Exec(`
		INSERT INTO accounts (id, name, currency, yield_enabled, yield_tna, yield_currency, yield_compounding, yield_last_accrued)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Name, a.Currency, enabled, tna, currency, compounding, lastAccrued)
	if err != nil {
		return fmt.Errorf("inserting account %q: %w", a.ID, err)
	}
	return nil
}

// UpsertAccounts inserts accounts that do not exist yet (backup merge).
func (s *Store) UpsertAccounts(accounts []models.Account) (int, error) {
	inserted := 0
	for _, a := range accounts {
		enabled, tna, currency, compounding, lastAccrued := flattenYield(a.CashYield)
		res, err := s.db.Exec(`
			INSERT OR IGNORE INTO accounts (id, name, currency, yield_enabled, yield_tna, yield_currency, yield_compounding, yield_last_accrued)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			a.ID, a.Name, a.Currency, enabled, tna, currency, compounding, lastAccrued)
		if err != nil {
			return inserted, fmt.Errorf("upserting account %q: %w", a.ID, err)
		}
		n, _ := res.RowsAffected()
		inserted += int(n)
	}
	return inserted, nil
}

// GetAccount fetches one account, or sql.ErrNoRows.
func (s *Store) GetAccount(id string) (models.Account, error) {
	row := s.db.QueryRow(`
		SELECT id, name, currency, yield_enabled, yield_tna, yield_currency, yield_compounding, yield_last_accrued
		FROM accounts WHERE id = ?`, id)
	return scanAccount(row)
}

// ListAccounts returns all accounts.
func (s *Store) ListAccounts() ([]models.Account, error) {
	rows, err := s.db.Query(`
		SELECT id, name, currency, yield_enabled, yield_tna, yield_currency, yield_compounding, yield_last_accrued
		FROM accounts ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("querying accounts: %w", err)
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating accounts: %w", err)
	}
	return accounts, nil
}

// UpdateCashYield replaces an account's yield configuration. The watermark is
// kept unless the new config carries one explicitly; a nil config disables the
// yield but still preserves it, so a disable/re-enable cycle cannot trigger
// retroactive accrual.
func (s *Store) UpdateCashYield(accountID string, yield *models.CashYieldConfig) error {
	enabled, tna, currency, compounding, lastAccrued := flattenYield(yield)
	var res sql.Result
	var err error
	if yield == nil || yield.LastAccruedDate == "" {
		res, err = s.db.Exec(`
			UPDATE accounts SET yield_enabled = ?, yield_tna = ?, yield_currency = ?, yield_compounding = ?
			WHERE id = ?`, enabled, tna, currency, compounding, accountID)
	} else {
		res, err = s.db.Exec(`
			UPDATE accounts SET yield_enabled = ?, yield_tna = ?, yield_currency = ?, yield_compounding = ?, yield_last_accrued = ?
			WHERE id = ?`, enabled, tna, currency, compounding, lastAccrued, accountID)
	}
	if err != nil {
		return fmt.Errorf("updating cash yield for account %q: %w", accountID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (models.Account, error) {
	var (
		a                                       models.Account
		enabled                                 int
		tna, currency, compounding, lastAccrued sql.NullString
	)
	if err := row.Scan(&a.ID, &a.Name, &a.Currency, &enabled, &tna, &currency, &compounding, &lastAccrued); err != nil {
		return a, err
	}
	if enabled != 0 || tna.Valid {
		cfg := &models.CashYieldConfig{
			Enabled:         enabled != 0,
			Currency:        currency.String,
			Compounding:     compounding.String,
			LastAccruedDate: lastAccrued.String,
		}
		if tna.Valid && tna.String != "" {
			d, err := decimal.NewFromString(tna.String)
			if err != nil {
				return a, fmt.Errorf("parsing yield_tna of account %q: %w", a.ID, err)
			}
			cfg.TNA = d
		}
		a.CashYield = cfg
	}
	return a, nil
}

func flattenYield(y *models.CashYieldConfig) (enabled int, tna, currency, compounding, lastAccrued any) {
	if y == nil {
		return 0, nil, nil, nil, nil
	}
	if y.Enabled {
		enabled = 1
	}
	return enabled, y.TNA.String(), nullableString(y.Currency), nullableString(y.Compounding), nullableString(y.LastAccruedDate)
}
