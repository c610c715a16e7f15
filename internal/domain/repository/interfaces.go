package repository

import (
	"context"

	"StockPull/internal/domain/models"
)

// TokenSource hands out bearer tokens for the upstream quote service.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	// Invalidate forgets token if it is still the current one.
	Invalidate(token string)
}

// MarketData is the upstream quote service as seen by the fetcher.
type MarketData interface {
	Configured() bool
	DomesticSpot(ctx context.Context, code string) (models.SpotQuote, error)
	DomesticFundamentals(ctx context.Context, code string) (*models.Fundamentals, error)
	DomesticDailyBars(ctx context.Context, code string) ([]models.DailyBar, error)
	ForeignSpot(ctx context.Context, exchange, symbol string) (models.SpotQuote, error)
}

// Universe is the read-only reference ticker universe.
type Universe interface {
	HasDomestic(ticker string) bool
	HasForeign(ticker string) bool
	ResolveDomesticName(normalizedName string) (string, bool)
	ForeignExchange(ticker string) (string, bool)
}

// ResultPublisher ships enrichment results to downstream consumers.
type ResultPublisher interface {
	Publish(ctx context.Context, r *models.EnrichmentResult) error
	Close() error
}

type Metrics interface {
	RecordUpstreamCall(endpoint, result string)
	RecordCacheLookup(cache string, hit bool)
	RecordTokenRefresh(result string)
	RecordNote(kind string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
