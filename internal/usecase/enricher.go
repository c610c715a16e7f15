package usecase

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"StockPull/internal/domain/models"
	drepo "StockPull/internal/domain/repository"
	"StockPull/pkg/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultWorkers = 2

	// NoteNotConfigured is attached to every quote when upstream credentials
	// are missing.
	NoteNotConfigured = "quote service not configured"
)

// QuoteSource fetches one quote without ever failing.
type QuoteSource interface {
	Configured() bool
	Fetch(ctx context.Context, ticker string) models.Quote
}

// Enricher runs the Quote Fetcher over batches with a fixed number of
// workers and pairs verified candidates with their quotes.
type Enricher struct {
	quotes   QuoteSource
	verifier *Verifier
	workers  int
	log      *logger.Logger
	metrics  drepo.Metrics
	now      func() time.Time
}

func NewEnricher(quotes QuoteSource, verifier *Verifier, workers int, log *logger.Logger, metrics drepo.Metrics) *Enricher {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Enricher{
		quotes:   quotes,
		verifier: verifier,
		workers:  workers,
		log:      log.Named("enricher"),
		metrics:  metrics,
		now:      time.Now,
	}
}

// FetchAll returns exactly one quote per input ticker, at the same index,
// keyed by the original ticker string.
func (e *Enricher) FetchAll(ctx context.Context, tickers []string) []models.Quote {
	out := make([]models.Quote, len(tickers))
	if len(tickers) == 0 {
		return out
	}

	if !e.quotes.Configured() {
		for i, t := range tickers {
			out[i] = models.Quote{Ticker: t, Note: NoteNotConfigured}
		}
		e.metrics.RecordNote("not_configured")
		e.log.Warn("quote service not configured, skipping fetch", logger.Int("tickers", len(tickers)))
		return out
	}

	start := e.now()
	workers := min(e.workers, len(tickers))

	var (
		next atomic.Int64
		g    errgroup.Group
	)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for {
				i := int(next.Add(1) - 1)
				if i >= len(tickers) {
					return nil
				}
				out[i] = e.fetchOne(ctx, tickers[i])
			}
		})
	}
	_ = g.Wait()

	elapsed := e.now().Sub(start)
	e.metrics.RecordLatency("fetch_all", elapsed.Seconds())
	e.log.Info("batch fetched",
		logger.Int("tickers", len(tickers)),
		logger.Int("workers", workers),
		logger.Int("with_note", countNotes(out)),
		logger.Duration("elapsed_ms", elapsed),
	)
	return out
}

// fetchOne guards the worker against a fetcher that breaks its no-panic
// contract.
func (e *Enricher) fetchOne(ctx context.Context, ticker string) (q models.Quote) {
	defer func() {
		if r := recover(); r != nil {
			e.metrics.RecordError("worker_panic")
			e.log.Error("worker recovered from panic", logger.String("ticker", ticker), logger.Any("panic", r))
			q = models.Quote{Ticker: ticker, Note: fmt.Sprintf("internal error: %v", r)}
		}
	}()
	q = e.quotes.Fetch(ctx, ticker)
	q.Ticker = ticker
	return q
}

// Verify runs the candidate verifier.
func (e *Enricher) Verify(candidates []models.Candidate) []models.Candidate {
	return e.verifier.Verify(candidates)
}

// Enrich verifies a batch of model candidates and attaches a quote to every
// verified one. Unverified candidates are returned without a quote.
func (e *Enricher) Enrich(ctx context.Context, batch *models.CandidateBatch) *models.EnrichmentResult {
	candidates := e.verifier.Verify(models.CandidatesFromRaw(batch.Candidates))

	var (
		tickers []string
		slots   []int
	)
	for i, c := range candidates {
		if c.Verified {
			tickers = append(tickers, c.Ticker)
			slots = append(slots, i)
		}
	}
	quotes := e.FetchAll(ctx, tickers)

	enriched := make([]models.EnrichedCandidate, len(candidates))
	for i, c := range candidates {
		enriched[i] = models.EnrichedCandidate{Candidate: c}
	}
	for j, i := range slots {
		q := quotes[j]
		enriched[i].Quote = &q
	}

	return &models.EnrichmentResult{
		ID:          uuid.NewString(),
		RequestID:   batch.RequestID,
		Headline:    batch.Headline,
		Candidates:  enriched,
		GeneratedAt: e.now().UTC(),
	}
}

func countNotes(quotes []models.Quote) int {
	n := 0
	for _, q := range quotes {
		if q.Note != "" {
			n++
		}
	}
	return n
}
