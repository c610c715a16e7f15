package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"StockPull/internal/domain/models"
	drepo "StockPull/internal/domain/repository"
	"StockPull/internal/services/indicators"
	"StockPull/pkg/cache"
	"StockPull/pkg/logger"

	"golang.org/x/sync/errgroup"
)

const (
	quoteKeyPrefix        = "quote"
	fundamentalsKeyPrefix = "fundamentals"
)

// FetcherConfig tunes the Quote Fetcher caches and foreign fallback.
type FetcherConfig struct {
	QuoteTTL         time.Duration
	FundamentalsTTL  time.Duration
	ForeignExchanges []string
}

// QuoteFetcher builds one Quote per ticker from the upstream quote service.
// It never returns an error: every failure ends up in Quote.Note.
type QuoteFetcher struct {
	cfg          FetcherConfig
	market       drepo.MarketData
	universe     drepo.Universe
	quotes       cache.Store[models.Quote]
	fundamentals cache.Store[models.Fundamentals]
	log          *logger.Logger
	metrics      drepo.Metrics
}

func NewQuoteFetcher(
	cfg FetcherConfig,
	market drepo.MarketData,
	universe drepo.Universe,
	quotes cache.Store[models.Quote],
	fundamentals cache.Store[models.Fundamentals],
	log *logger.Logger,
	metrics drepo.Metrics,
) *QuoteFetcher {
	return &QuoteFetcher{
		cfg:          cfg,
		market:       market,
		universe:     universe,
		quotes:       quotes,
		fundamentals: fundamentals,
		log:          log.Named("fetcher"),
		metrics:      metrics,
	}
}

// Configured reports whether upstream credentials are present.
func (f *QuoteFetcher) Configured() bool { return f.market.Configured() }

// Fetch returns the quote for ticker, keyed back to the caller's spelling.
func (f *QuoteFetcher) Fetch(ctx context.Context, ticker string) (q models.Quote) {
	defer func() {
		if r := recover(); r != nil {
			f.metrics.RecordError("fetch_panic")
			f.log.Error("quote fetch panicked", logger.String("ticker", ticker), logger.Any("panic", r))
			q = models.Quote{Ticker: ticker, Note: fmt.Sprintf("internal error: %v", r)}
		}
	}()

	t := models.NormalizeTicker(ticker)
	switch t.Market {
	case models.MarketDomestic:
		return f.cachedQuote(ctx, t.Symbol, f.fetchDomestic).WithTicker(ticker)
	case models.MarketForeign:
		return f.cachedQuote(ctx, t.Symbol, f.fetchForeign).WithTicker(ticker)
	default:
		f.metrics.RecordNote("invalid_ticker")
		return models.Quote{Ticker: ticker, Note: "invalid ticker symbol"}
	}
}

func (f *QuoteFetcher) cachedQuote(ctx context.Context, symbol string, load func(context.Context, string) models.Quote) models.Quote {
	key := cache.GenerateKey(quoteKeyPrefix, symbol)
	if q, err := f.quotes.Get(ctx, key); err == nil {
		f.metrics.RecordCacheLookup(quoteKeyPrefix, true)
		return q
	}
	f.metrics.RecordCacheLookup(quoteKeyPrefix, false)

	q := load(ctx, symbol)
	// A caller that gave up must not leave its failure behind for others.
	if ctx.Err() != nil {
		return q
	}
	if err := f.quotes.Set(ctx, key, q, f.cfg.QuoteTTL); err != nil {
		f.log.Warn("quote cache write failed", logger.String("ticker", symbol), logger.Error(err))
	}
	return q
}

// fetchDomestic issues spot, fundamentals and daily bars concurrently and
// combines them once all three have settled.
func (f *QuoteFetcher) fetchDomestic(ctx context.Context, code string) models.Quote {
	var (
		spot    models.SpotQuote
		spotErr error
		fund    *models.Fundamentals
		bars    []models.DailyBar
		barsErr error
	)

	// No WithContext: one failed call must not cancel its siblings.
	var g errgroup.Group
	g.Go(func() error {
		spotErr = recovered(func() (err error) {
			spot, err = f.market.DomesticSpot(ctx, code)
			return err
		})
		return nil
	})
	g.Go(func() error {
		if err := recovered(func() error {
			fund = f.fundamentalsFor(ctx, code)
			return nil
		}); err != nil {
			f.log.Warn("fundamentals lookup panicked", logger.String("ticker", code), logger.Error(err))
		}
		return nil
	})
	g.Go(func() error {
		barsErr = recovered(func() (err error) {
			bars, err = f.market.DomesticDailyBars(ctx, code)
			return err
		})
		return nil
	})
	_ = g.Wait()

	if spotErr == nil && !spot.HasPrice() {
		spotErr = errors.New("no price in response")
	}
	if spotErr != nil {
		f.metrics.RecordNote("spot_failed")
		f.log.Debug("domestic spot failed", logger.String("ticker", code), logger.Error(spotErr))
		return models.Quote{Ticker: code, Note: "quote unavailable: " + spotErr.Error()}
	}

	q := models.Quote{
		Ticker:       code,
		Price:        spot.Price,
		ChangePct:    spot.ChangePct,
		Volume:       spot.Volume,
		Fundamentals: fund,
	}

	if barsErr != nil {
		f.metrics.RecordNote("bars_failed")
		f.log.Debug("daily bars failed", logger.String("ticker", code), logger.Error(barsErr))
		return q
	}
	q.Technical = indicators.Snapshot(indicators.PrepareBars(bars))
	return q
}

// fundamentalsFor reads through the long-lived fundamentals cache. Failures
// are not cached so the next fetch retries.
func (f *QuoteFetcher) fundamentalsFor(ctx context.Context, code string) *models.Fundamentals {
	key := cache.GenerateKey(fundamentalsKeyPrefix, code)
	if fund, err := f.fundamentals.Get(ctx, key); err == nil {
		f.metrics.RecordCacheLookup(fundamentalsKeyPrefix, true)
		return &fund
	}
	f.metrics.RecordCacheLookup(fundamentalsKeyPrefix, false)

	fund, err := f.market.DomesticFundamentals(ctx, code)
	if err != nil || fund == nil {
		f.metrics.RecordNote("fundamentals_failed")
		f.log.Debug("fundamentals failed", logger.String("ticker", code), logger.Error(err))
		return nil
	}
	if err := f.fundamentals.Set(ctx, key, *fund, f.cfg.FundamentalsTTL); err != nil {
		f.log.Warn("fundamentals cache write failed", logger.String("ticker", code), logger.Error(err))
	}
	return fund
}

// fetchForeign tries the known exchange for symbol, or every fallback
// exchange in order, until one returns a positive price.
func (f *QuoteFetcher) fetchForeign(ctx context.Context, symbol string) models.Quote {
	exchanges := f.cfg.ForeignExchanges
	if ex, ok := f.universe.ForeignExchange(symbol); ok {
		exchanges = []string{ex}
	}

	var lastErr error
	for _, ex := range exchanges {
		spot, err := f.market.ForeignSpot(ctx, ex, symbol)
		if err != nil {
			lastErr = err
			continue
		}
		if spot.HasPrice() {
			return models.Quote{
				Ticker:    symbol,
				Price:     spot.Price,
				ChangePct: spot.ChangePct,
				Volume:    spot.Volume,
				Note:      "exchange=" + ex,
			}
		}
	}

	f.metrics.RecordNote("foreign_no_price")
	note := fmt.Sprintf("no price on %s", strings.Join(exchanges, ","))
	if lastErr != nil {
		note += ": " + lastErr.Error()
	}
	f.log.Debug("foreign quote failed", logger.String("ticker", symbol), logger.String("note", note))
	return models.Quote{Ticker: symbol, Note: note}
}

// recovered runs fn, turning a panic into an error so one failing endpoint
// cannot take down the whole fetch.
func recovered(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
