package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/gonzalo891751/argfolio/src/config"
	"github.com/gonzalo891751/argfolio/src/logger"
	"github.com/gonzalo891751/argfolio/src/models"
	"github.com/gonzalo891751/argfolio/src/processors"
	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
)

const (
	ckAssetRows = "res_asset_rows_account_%s"

	DefaultCacheExpiration = 15 * time.Minute
	CacheCleanupInterval   = 30 * time.Minute
)

type portfolioServiceImpl struct {
	movements    MovementStore
	accounts     AccountStore
	instruments  InstrumentStore
	priceService PriceService
	reportCache  *cache.Cache
}

// NewPortfolioService wires the movement log, the instrument registry and the
// live feeds into the engine. Results are cached per account and explicitly
// invalidated after every write (cache-aside).
func NewPortfolioService(
	movements MovementStore,
	accounts AccountStore,
	instruments InstrumentStore,
	priceService PriceService,
	reportCache *cache.Cache,
) PortfolioService {
	return &portfolioServiceImpl{
		movements:    movements,
		accounts:     accounts,
		instruments:  instruments,
		priceService: priceService,
		reportCache:  reportCache,
	}
}

func (s *portfolioServiceImpl) GetAssetRows(accountID string) ([]models.AssetRowMetrics, error) {
	cacheKey := fmt.Sprintf(ckAssetRows, accountID)
	if cached, found := s.reportCache.Get(cacheKey); found {
		return cached.([]models.AssetRowMetrics), nil
	}

	if _, err := s.accounts.GetAccount(accountID); err != nil {
		return nil, ErrAccountNotFound
	}

	movements, err := s.movements.ListAccountMovements(accountID)
	if err != nil {
		return nil, err
	}

	// Group the account's log per instrument; each group is an independent
	// FIFO computation over a fresh immutable snapshot.
	byInstrument := make(map[string][]models.Movement)
	for _, m := range movements {
		byInstrument[m.InstrumentID] = append(byInstrument[m.InstrumentID], m)
	}

	instruments, symbols, err := s.resolveInstruments(byInstrument)
	if err != nil {
		return nil, err
	}

	fx, err := s.priceService.GetFxBoard()
	if err != nil {
		logger.L.Warn("FX board unavailable, USD/ARS derived legs will be null", "error", err)
		fx = nil
	}
	quotes := s.priceService.GetQuotes(symbols)

	rows := make([]models.AssetRowMetrics, 0, len(byInstrument))
	for instrumentID, movs := range byInstrument {
		result, err := processors.BuildFifoLots(movs)
		if err != nil {
			return nil, fmt.Errorf("building lots for instrument %q: %w", instrumentID, err)
		}
		for _, w := range result.Warnings {
			logger.L.Warn("Oversell detected in movement history",
				"accountID", accountID, "instrumentID", instrumentID,
				"movementID", w.MovementID, "requested", w.Requested, "available", w.Available)
		}

		instrument := instruments[instrumentID]
		var price *models.PriceInfo
		if instrument.QuoteSymbol != "" {
			if info, ok := quotes[instrument.QuoteSymbol]; ok {
				price = &info
			}
		}
		if price == nil {
			price = s.syntheticPrice(instrument)
		}

		rows = append(rows, processors.ComputeAssetMetrics(processors.ValuationInput{
			Instrument:       instrument,
			AccountID:        accountID,
			Lots:             result.Lots,
			Price:            price,
			Fx:               fx,
			UsdReferenceRate: config.Cfg.UsdReferenceRate,
		}))
	}

	s.reportCache.Set(cacheKey, rows, cache.DefaultExpiration)
	return rows, nil
}

func (s *portfolioServiceImpl) GetLots(accountID, instrumentID string) (processors.FifoResult, error) {
	movements, err := s.movements.ListMovements(accountID, instrumentID)
	if err != nil {
		return processors.FifoResult{}, err
	}
	return processors.BuildFifoLots(movements)
}

func (s *portfolioServiceImpl) GetSummary() (models.PortfolioSummary, error) {
	accounts, err := s.accounts.ListAccounts()
	if err != nil {
		return models.PortfolioSummary{}, err
	}

	var summary models.PortfolioSummary
	totalArs, totalUsd := decimal.Zero, decimal.Zero
	hasArs, hasUsd := false, false
	for _, account := range accounts {
		rows, err := s.GetAssetRows(account.ID)
		if err != nil {
			return models.PortfolioSummary{}, err
		}
		for _, row := range rows {
			if row.Quantity.IsZero() {
				continue
			}
			summary.AssetCount++
			if row.ValueArs != nil {
				totalArs = totalArs.Add(*row.ValueArs)
				hasArs = true
			}
			if row.ValueUsd != nil {
				totalUsd = totalUsd.Add(*row.ValueUsd)
				hasUsd = true
			}
		}
	}
	if hasArs {
		summary.TotalValueArs = &totalArs
	}
	if hasUsd {
		summary.TotalValueUsd = &totalUsd
	}
	return summary, nil
}

func (s *portfolioServiceImpl) InvalidateAccount(accountID string) {
	s.reportCache.Delete(fmt.Sprintf(ckAssetRows, accountID))
}

// resolveInstruments loads the instrument record of every held position and
// collects the quote symbols worth fetching. Cash pseudo-instruments need no
// registry entry.
func (s *portfolioServiceImpl) resolveInstruments(byInstrument map[string][]models.Movement) (map[string]models.Instrument, []string, error) {
	instruments := make(map[string]models.Instrument, len(byInstrument))
	var symbols []string
	for instrumentID, movs := range byInstrument {
		if cash, ok := cashInstrument(instrumentID); ok {
			instruments[instrumentID] = cash
			continue
		}
		instrument, err := s.instruments.GetInstrument(instrumentID)
		if err != nil {
			return nil, nil, errors.Join(ErrInstrumentNotFound, fmt.Errorf("instrument %q referenced by %d movements", instrumentID, len(movs)))
		}
		instruments[instrumentID] = instrument
		if instrument.QuoteSymbol != "" {
			symbols = append(symbols, instrument.QuoteSymbol)
		}
	}
	return instruments, symbols, nil
}

// cashInstrument materializes the implicit "cash:<currency>" instrument.
func cashInstrument(instrumentID string) (models.Instrument, bool) {
	const prefix = "cash:"
	if len(instrumentID) <= len(prefix) || instrumentID[:len(prefix)] != prefix {
		return models.Instrument{}, false
	}
	currency := instrumentID[len(prefix):]
	category := models.CategoryCashArs
	if models.IsUsdCurrency(currency) {
		category = models.CategoryCashUsd
	}
	return models.Instrument{
		ID:       instrumentID,
		Ticker:   currency,
		Name:     "Efectivo " + currency,
		Category: category,
		Currency: currency,
	}, true
}

// syntheticPrice prices what has no live feed: one unit of cash is worth
// exactly one unit of its currency. Anything else stays UNAVAILABLE.
func (s *portfolioServiceImpl) syntheticPrice(instrument models.Instrument) *models.PriceInfo {
	switch instrument.Category {
	case models.CategoryCashArs, models.CategoryCashUsd, models.CategoryStable:
		return &models.PriceInfo{Status: "OK", Price: 1, Currency: instrument.Currency}
	}
	return &models.PriceInfo{Status: "UNAVAILABLE"}
}
