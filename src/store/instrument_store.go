package store

import (
	"database/sql"
	"fmt"

	"github.com/gonzalo891751/argfolio/src/models"
)

// InsertInstrument registers an instrument.
func (s *Store) InsertInstrument(i models.Instrument) error {
	_, err := s.db.Exec(`
		INSERT INTO instruments (id, ticker, name, category, currency, quote_symbol)
		VALUES (?, ?, ?, ?, ?, ?)`,
		i.ID, i.Ticker, nullableString(i.Name), string(i.Category), i.Currency, nullableString(i.QuoteSymbol))
	if err != nil {
		return fmt.Errorf("inserting instrument %q: %w", i.ID, err)
	}
	return nil
}

// UpsertInstruments inserts instruments that do not exist yet (backup merge).
func (s *Store) UpsertInstruments(instruments []models.Instrument) (int, error) {
	inserted := 0
	for _, i := range instruments {
		res, err := s.db.Exec(`
			INSERT OR IGNORE INTO instruments (id, ticker, name, category, currency, quote_symbol)
			VALUES (?, ?, ?, ?, ?, ?)`,
			i.ID, i.Ticker, nullableString(i.Name), string(i.Category), i.Currency, nullableString(i.QuoteSymbol))
		if err != nil {
			return inserted, fmt.Errorf("upserting instrument %q: %w", i.ID, err)
		}
		n, _ := res.RowsAffected()
		inserted += int(n)
	}
	return inserted, nil
}

// GetInstrument fetches one instrument, or sql.ErrNoRows.
func (s *Store) GetInstrument(id string) (models.Instrument, error) {
	row := s.db.QueryRow(`
		SELECT id, ticker, name, category, currency, quote_symbol
		FROM instruments WHERE id = ?`, id)
	return scanInstrument(row)
}

// ListInstruments returns all registered instruments.
func (s *Store) ListInstruments() ([]models.Instrument, error) {
	rows, err := s.db.Query(`
		SELECT id, ticker, name, category, currency, quote_symbol
		FROM instruments ORDER BY ticker`)
	if err != nil {
		return nil, fmt.Errorf("querying instruments: %w", err)
	}
	defer rows.Close()

	var instruments []models.Instrument
	for rows.Next() {
		i, err := scanInstrument(rows)
		if err != nil {
			return nil, err
		}
		instruments = append(instruments, i)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating instruments: %w", err)
	}
	return instruments, nil
}

func scanInstrument(row rowScanner) (models.Instrument, error) {
	var (
		i                 models.Instrument
		category          string
		name, quoteSymbol sql.NullString
	)
	if err := row.Scan(&i.ID, &i.Ticker, &name, &category, &i.Currency, &quoteSymbol); err != nil {
		return i, err
	}
	i.Name = name.String
	i.Category = models.AssetCategory(category)
	i.QuoteSymbol = quoteSymbol.String
	return i, nil
}
