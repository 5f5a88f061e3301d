package services

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/gonzalo891751/argfolio/src/logger"
	"github.com/gonzalo891751/argfolio/src/models"
)

// The backup format is JSONL: one object per line with a "kind" discriminator
// ("account", "instrument", "movement"). Human readable, diffable, and easy
// to merge back into the database by id.

type backupLine struct {
	Kind       string             `json:"kind"`
	Account    *models.Account    `json:"account,omitempty"`
	Instrument *models.Instrument `json:"instrument,omitempty"`
	Movement   *models.Movement   `json:"movement,omitempty"`
}

type backupServiceImpl struct {
	movements   MovementStore
	accounts    AccountStore
	instruments InstrumentStore
	portfolio   PortfolioService
}

// NewBackupService round-trips the dataset: exporting then importing yields
// an identical movement set by id, with no duplicates.
func NewBackupService(movements MovementStore, accounts AccountStore, instruments InstrumentStore, portfolio PortfolioService) BackupService {
	return &backupServiceImpl{
		movements:   movements,
		accounts:    accounts,
		instruments: instruments,
		portfolio:   portfolio,
	}
}

func (s *backupServiceImpl) Export(w io.Writer) error {
	enc := json.NewEncoder(w)

	accounts, err := s.accounts.ListAccounts()
	if err != nil {
		return fmt.Errorf("exporting accounts: %w", err)
	}
	for i := range accounts {
		if err := enc.Encode(backupLine{Kind: "account", Account: &accounts[i]}); err != nil {
			return fmt.Errorf("writing account line: %w", err)
		}
	}

	instruments, err := s.instruments.ListInstruments()
	if err != nil {
		return fmt.Errorf("exporting instruments: %w", err)
	}
	for i := range instruments {
		if err := enc.Encode(backupLine{Kind: "instrument", Instrument: &instruments[i]}); err != nil {
			return fmt.Errorf("writing instrument line: %w", err)
		}
	}

	movements, err := s.movements.AllMovements()
	if err != nil {
		return fmt.Errorf("exporting movements: %w", err)
	}
	for i := range movements {
		if err := enc.Encode(backupLine{Kind: "movement", Movement: &movements[i]}); err != nil {
			return fmt.Errorf("writing movement line: %w", err)
		}
	}
	return nil
}

func (s *backupServiceImpl) Import(r io.Reader) (ImportSummary, error) {
	var summary ImportSummary
	var accounts []models.Account
	var instruments []models.Instrument
	var movements []models.Movement

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var parsed backupLine
		if err := json.Unmarshal([]byte(line), &parsed); err != nil {
			return summary, fmt.Errorf("cannot parse backup line %d: %w", lineNo, err)
		}
		switch {
		case parsed.Kind == "account" && parsed.Account != nil:
			accounts = append(accounts, *parsed.Account)
		case parsed.Kind == "instrument" && parsed.Instrument != nil:
			instruments = append(instruments, *parsed.Instrument)
		case parsed.Kind == "movement" && parsed.Movement != nil:
			if err := parsed.Movement.Validate(); err != nil {
				return summary, fmt.Errorf("backup line %d: %w", lineNo, err)
			}
			movements = append(movements, *parsed.Movement)
		default:
			logger.L.Warn("Skipping unrecognized backup line", "line", lineNo, "kind", parsed.Kind)
			summary.LinesSkipped++
		}
	}
	if err := scanner.Err(); err != nil {
		return summary, fmt.Errorf("reading backup stream: %w", err)
	}

	// Upsert order matters: movements reference accounts via foreign key.
	var err error
	if summary.AccountsAdded, err = s.accounts.UpsertAccounts(accounts); err != nil {
		return summary, err
	}
	if summary.InstrumentsAdded, err = s.instruments.UpsertInstruments(instruments); err != nil {
		return summary, err
	}
	if summary.MovementsAdded, err = s.movements.UpsertMovements(movements); err != nil {
		return summary, err
	}

	for _, a := range accounts {
		s.portfolio.InvalidateAccount(a.ID)
	}
	logger.L.Info("Backup import completed",
		"accountsAdded", summary.AccountsAdded,
		"instrumentsAdded", summary.InstrumentsAdded,
		"movementsAdded", summary.MovementsAdded,
		"linesSkipped", summary.LinesSkipped)
	return summary, nil
}
