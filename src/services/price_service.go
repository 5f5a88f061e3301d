package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gonzalo891751/argfolio/src/logger"
	"github.com/gonzalo891751/argfolio/src/models"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

const (
	ckFxBoard  = "market_fx_board"
	ckQuoteFmt = "market_quote_%s"

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
)

// --- API Response Structs ---

// dolarApiQuote is one entry of DolarAPI's /v1/dolares board.
type dolarApiQuote struct {
	Casa   string  `json:"casa"` // "oficial", "blue", "bolsa", "contadoconliqui", "cripto"
	Compra float64 `json:"compra"`
	Venta  float64 `json:"venta"`
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Currency           string  `json:"currency"`
				Symbol             string  `json:"symbol"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				ChartPreviousClose float64 `json:"chartPreviousClose"`
			} `json:"meta"`
		} `json:"result"`
		Error interface{} `json:"error"`
	} `json:"chart"`
}

// --- Service Implementation ---

type priceServiceImpl struct {
	httpClient      http.Client
	dolarApiBaseURL string
	quoteApiBaseURL string
	marketCache     *cache.Cache
	fxTTL           time.Duration
	quoteTTL        time.Duration
	limiter         *rate.Limiter
}

// NewPriceService builds the live-market client: FX board from DolarAPI,
// instrument quotes from the Yahoo chart API, both cached and rate-limited.
func NewPriceService(dolarApiBaseURL, quoteApiBaseURL string, fxTTL, quoteTTL time.Duration) PriceService {
	return &priceServiceImpl{
		httpClient:      http.Client{Timeout: 20 * time.Second},
		dolarApiBaseURL: strings.TrimRight(dolarApiBaseURL, "/"),
		quoteApiBaseURL: strings.TrimRight(quoteApiBaseURL, "/"),
		marketCache:     cache.New(quoteTTL, 2*quoteTTL),
		fxTTL:           fxTTL,
		quoteTTL:        quoteTTL,
		limiter:         rate.NewLimiter(rate.Every(200*time.Millisecond), 5),
	}
}

func (s *priceServiceImpl) GetFxBoard() (*models.FxBoard, error) {
	if cached, found := s.marketCache.Get(ckFxBoard); found {
		return cached.(*models.FxBoard), nil
	}

	if err := s.limiter.Wait(context.Background()); err != nil {
		return nil, err
	}

	reqURL := s.dolarApiBaseURL + "/v1/dolares"
	req, err := http.NewRequest(http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching FX board: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("FX provider returned %s", resp.Status)
	}

	var quotes []dolarApiQuote
	if err := json.NewDecoder(resp.Body).Decode(&quotes); err != nil {
		return nil, fmt.Errorf("decoding FX board response: %w", err)
	}

	board := &models.FxBoard{FetchedAt: time.Now()}
	for _, q := range quotes {
		if q.Compra <= 0 && q.Venta <= 0 {
			continue
		}
		quote := &models.FxQuote{Buy: q.Compra, Sell: q.Venta}
		switch q.Casa {
		case "oficial":
			board.Oficial = quote
		case "blue":
			board.Blue = quote
		case "bolsa":
			board.Mep = quote
		case "contadoconliqui":
			board.Ccl = quote
		case "cripto":
			board.Cripto = quote
		}
	}

	s.marketCache.Set(ckFxBoard, board, s.fxTTL)
	logger.L.Debug("FX board refreshed", "oficial", board.Oficial != nil, "mep", board.Mep != nil, "ccl", board.Ccl != nil)
	return board, nil
}

func (s *priceServiceImpl) GetQuotes(symbols []string) map[string]models.PriceInfo {
	results := make(map[string]models.PriceInfo, len(symbols))
	for _, symbol := range symbols {
		if symbol == "" {
			continue
		}
		results[symbol] = models.PriceInfo{Status: "UNAVAILABLE"}
	}

	for symbol := range results {
		cacheKey := fmt.Sprintf(ckQuoteFmt, symbol)
		if cached, found := s.marketCache.Get(cacheKey); found {
			results[symbol] = cached.(models.PriceInfo)
			continue
		}

		info, err := s.fetchQuote(symbol)
		if err != nil {
			// A missing quote must not sink the whole table; the row renders
			// with its price status instead.
			logger.L.Warn("Failed to fetch quote", "symbol", symbol, "error", err)
			continue
		}
		s.marketCache.Set(cacheKey, info, s.quoteTTL)
		results[symbol] = info
	}
	return results
}

func (s *priceServiceImpl) fetchQuote(symbol string) (models.PriceInfo, error) {
	if err := s.limiter.Wait(context.Background()); err != nil {
		return models.PriceInfo{Status: "UNAVAILABLE"}, err
	}

	reqURL := fmt.Sprintf("%s/v8/finance/chart/%s?range=1d&interval=1d", s.quoteApiBaseURL, url.PathEscape(symbol))
	req, err := http.NewRequest(http.MethodGet, reqURL, nil)
	if err != nil {
		return models.PriceInfo{Status: "UNAVAILABLE"}, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return models.PriceInfo{Status: "UNAVAILABLE"}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.PriceInfo{Status: "UNAVAILABLE"}, fmt.Errorf("quote provider returned %s", resp.Status)
	}

	var chart chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&chart); err != nil {
		return models.PriceInfo{Status: "UNAVAILABLE"}, fmt.Errorf("decoding chart response: %w", err)
	}
	if len(chart.Chart.Result) == 0 {
		return models.PriceInfo{Status: "UNAVAILABLE"}, fmt.Errorf("empty chart result for %q", symbol)
	}

	meta := chart.Chart.Result[0].Meta
	if meta.RegularMarketPrice <= 0 {
		return models.PriceInfo{Status: "UNAVAILABLE"}, fmt.Errorf("no market price for %q", symbol)
	}

	info := models.PriceInfo{
		Status:   "OK",
		Price:    meta.RegularMarketPrice,
		Currency: meta.Currency,
	}
	if meta.ChartPreviousClose > 0 {
		change := (meta.RegularMarketPrice/meta.ChartPreviousClose - 1) * 100
		info.ChangePct1d = &change
	}
	return info, nil
}
