package services

import (
	"fmt"

	"github.com/gonzalo891751/argfolio/src/logger"
	"github.com/gonzalo891751/argfolio/src/models"
	"github.com/gonzalo891751/argfolio/src/processors"
)

type accrualServiceImpl struct {
	movements MovementStore
	accounts  AccountStore
	portfolio PortfolioService
}

// NewAccrualService credits daily interest on remunerated cash accounts.
// Idempotency comes from two layers: deterministic movement ids upserted with
// insert-or-ignore, and a watermark that only advances — both inside one
// store transaction.
func NewAccrualService(movements MovementStore, accounts AccountStore, portfolio PortfolioService) AccrualService {
	return &accrualServiceImpl{
		movements: movements,
		accounts:  accounts,
		portfolio: portfolio,
	}
}

func (s *accrualServiceImpl) RunAccount(accountID string, today string) (int, error) {
	account, err := s.accounts.GetAccount(accountID)
	if err != nil {
		return 0, ErrAccountNotFound
	}
	return s.accrue(account, today)
}

func (s *accrualServiceImpl) RunAll(today string) (int, error) {
	accounts, err := s.accounts.ListAccounts()
	if err != nil {
		return 0, err
	}

	total := 0
	for _, account := range accounts {
		if account.CashYield == nil || !account.CashYield.Enabled {
			continue
		}
		credited, err := s.accrue(account, today)
		if err != nil {
			return total, fmt.Errorf("accruing account %q: %w", account.ID, err)
		}
		total += credited
	}
	return total, nil
}

func (s *accrualServiceImpl) accrue(account models.Account, today string) (int, error) {
	yield := account.CashYield
	if yield == nil || !yield.Enabled {
		return 0, ErrYieldNotConfigured
	}

	currency := yield.Currency
	if currency == "" {
		currency = account.Currency
	}
	cashMovements, err := s.movements.ListMovements(account.ID, models.CashInstrumentID(currency))
	if err != nil {
		return 0, err
	}
	balance := processors.CashBalance(cashMovements)

	movements, watermark, err := processors.GenerateAccrualMovements(account, balance, today)
	if err != nil {
		return 0, err
	}
	if len(movements) == 0 && watermark == yield.LastAccruedDate {
		// Already up to date: a re-run for the same day is a no-op.
		return 0, nil
	}

	credited, err := s.movements.CommitAccrual(account.ID, movements, watermark)
	if err != nil {
		return 0, err
	}
	if credited > 0 {
		s.portfolio.InvalidateAccount(account.ID)
	}

	logger.L.Info("Accrual completed", "accountID", account.ID,
		"daysWalked", len(movements), "movementsCredited", credited, "watermark", watermark)
	return credited, nil
}
