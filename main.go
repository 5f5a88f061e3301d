package main

import (
	"encoding/json"
	stdlog "log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gonzalo891751/argfolio/src/config"
	"github.com/gonzalo891751/argfolio/src/database"
	"github.com/gonzalo891751/argfolio/src/handlers"
	"github.com/gonzalo891751/argfolio/src/logger"
	"github.com/gonzalo891751/argfolio/src/services"
	"github.com/gonzalo891751/argfolio/src/store"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

var limiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 30)

func rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			logger.L.Warn("Rate limit exceeded", "path", r.URL.Path)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func enableCORS(next http.Handler) http.Handler {
	allowed := make(map[string]bool, len(config.Cfg.AllowedOrigins))
	for _, origin := range config.Cfg.AllowedOrigins {
		allowed[origin] = true
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowed[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE, PATCH")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization, X-Requested-With")
		} else if origin == "" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)

	logger.L.Info("Argfolio backend server starting...")

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)
	database.RunMigrations(config.Cfg.MigrationsPath)

	reportCache := cache.New(services.DefaultCacheExpiration, services.CacheCleanupInterval)

	db := store.New(database.DB)

	priceService := services.NewPriceService(
		config.Cfg.DolarApiBaseURL,
		config.Cfg.QuoteApiBaseURL,
		config.Cfg.FxCacheTTL,
		config.Cfg.QuoteCacheTTL,
	)
	portfolioService := services.NewPortfolioService(db, db, db, priceService, reportCache)
	accrualService := services.NewAccrualService(db, db, portfolioService)
	backupService := services.NewBackupService(db, db, db, portfolioService)

	movementHandler := handlers.NewMovementHandler(db, portfolioService)
	accountHandler := handlers.NewAccountHandler(db, portfolioService)
	instrumentHandler := handlers.NewInstrumentHandler(db)
	portfolioHandler := handlers.NewPortfolioHandler(portfolioService)
	yieldHandler := handlers.NewYieldHandler(db, db, accrualService)
	marketHandler := handlers.NewMarketHandler(priceService)
	backupHandler := handlers.NewBackupHandler(backupService)

	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(handlers.ContextualLoggerMiddleware)
	r.Use(enableCORS)
	r.Use(rateLimitMiddleware)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"message": "Argfolio Backend is running"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/movements", movementHandler.HandleCreateMovement)
		r.Get("/movements", movementHandler.HandleListMovements)
		r.Delete("/movements/{id}", movementHandler.HandleDeleteMovement)

		r.Post("/accounts", accountHandler.HandleCreateAccount)
		r.Get("/accounts", accountHandler.HandleListAccounts)
		r.Put("/accounts/{id}/yield", accountHandler.HandleUpdateCashYield)

		r.Post("/instruments", instrumentHandler.HandleCreateInstrument)
		r.Get("/instruments", instrumentHandler.HandleListInstruments)

		r.Get("/portfolio/assets", portfolioHandler.HandleGetAssetRows)
		r.Get("/portfolio/lots", portfolioHandler.HandleGetLots)
		r.Get("/portfolio/summary", portfolioHandler.HandleGetSummary)

		r.Get("/yield", yieldHandler.HandleGetYieldMetrics)
		r.Post("/accrue", yieldHandler.HandleRunAccrual)

		r.Get("/market/fx", marketHandler.HandleGetFxBoard)
		r.Get("/market/quotes", marketHandler.HandleGetQuotes)

		r.Get("/backup/export", backupHandler.HandleExport)
		r.Post("/backup/import", backupHandler.HandleImport)
	})

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.L.Info("Server starting", "address", serverAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		stdlog.Fatalf("Failed to start server: %v", err)
	}
}
