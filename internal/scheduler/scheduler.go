// Package scheduler keeps the watchlist warm. On a cron schedule it resolves
// recent prices for every active symbol and a market-wide news query, so
// interactive requests land on a store that is already sufficient.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/yourorg/market-insights/internal/config"
	"github.com/yourorg/market-insights/internal/model"
	"github.com/yourorg/market-insights/internal/service"
)

// refreshTimeout bounds one full watchlist sweep.
const refreshTimeout = 10 * time.Minute

// Refresher runs scheduled watchlist refreshes through the resolve services,
// so refreshed data takes exactly the path interactive queries take.
type Refresher struct {
	cron    *cron.Cron
	symbols *service.SymbolService
	prices  *service.PriceService
	news    *service.NewsService
	cfg     config.RefreshConfig
	logger  *zap.Logger
}

// NewRefresher creates a watchlist refresher.
func NewRefresher(symbols *service.SymbolService, prices *service.PriceService, news *service.NewsService, cfg config.RefreshConfig, logger *zap.Logger) *Refresher {
	return &Refresher{
		cron:    cron.New(cron.WithSeconds()),
		symbols: symbols,
		prices:  prices,
		news:    news,
		cfg:     cfg,
		logger:  logger,
	}
}

// Start registers the refresh job and starts the scheduler.
func (r *Refresher) Start() error {
	if _, err := r.cron.AddFunc(r.cfg.CronSpec, r.refreshAll); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}
	r.cron.Start()
	r.logger.Info("Watchlist refresher started", zap.String("cron", r.cfg.CronSpec))
	return nil
}

// Stop stops the scheduler. Already-running jobs finish.
func (r *Refresher) Stop() {
	r.cron.Stop()
	r.logger.Info("Watchlist refresher stopped")
}

// RunNow executes one refresh sweep immediately.
func (r *Refresher) RunNow() {
	r.refreshAll()
}

func (r *Refresher) refreshAll() {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	symbols, err := r.symbols.ListActive(ctx)
	if err != nil {
		r.logger.Error("Refresh sweep aborted, symbol listing failed", zap.Error(err))
		return
	}

	start := time.Now()
	refreshed, failed := 0, 0
	for _, sym := range symbols {
		if ctx.Err() != nil {
			r.logger.Warn("Refresh sweep timed out",
				zap.Int("refreshed", refreshed),
				zap.Int("remaining", len(symbols)-refreshed-failed))
			return
		}
		result, err := r.prices.ResolvePrices(ctx, &model.PriceSeriesQuery{
			Ticker: sym.Ticker,
			Days:   r.cfg.LookbackDays,
		})
		if err != nil {
			failed++
			r.logger.Warn("Price refresh failed",
				zap.Error(err),
				zap.String("ticker", sym.Ticker))
			continue
		}
		refreshed++
		r.logger.Debug("Price refresh completed",
			zap.String("ticker", sym.Ticker),
			zap.String("provenance", string(result.Provenance)))
	}

	if _, err := r.news.ResolveNews(ctx, &model.NewsQuery{Freshness: model.FreshnessLive}); err != nil {
		r.logger.Warn("Market news refresh failed", zap.Error(err))
	}

	r.logger.Info("Refresh sweep completed",
		zap.Int("refreshed", refreshed),
		zap.Int("failed", failed),
		zap.Duration("took", time.Since(start)))
}
