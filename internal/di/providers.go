package di

import (
	"fmt"
	"time"

	"StockPull/internal/domain/models"
	"StockPull/internal/domain/repository"
	"StockPull/internal/handler/api"
	internalrepo "StockPull/internal/repository"
	"StockPull/internal/service/kis"
	"StockPull/internal/service/ratelimit"
	"StockPull/internal/usecase"
	"StockPull/pkg/cache"
	"StockPull/pkg/config"
	xhttp "StockPull/pkg/http"
	"StockPull/pkg/http/middleware"
	pkgkafka "StockPull/pkg/kafka"
	"StockPull/pkg/logger"
	"StockPull/pkg/metrics"
	"StockPull/pkg/server"

	"github.com/redis/go-redis/v9"
)

// ProvideKafkaProducer creates a Kafka producer, or nil when the pipeline is
// disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, func(), error) {
	if !cfg.Kafka.Enabled {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(-1),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, func() { _ = producer.Close() }, nil
}

// ProvideLogger builds the root logger. When a producer is available error
// logs are aggregated and shipped to the logs topic.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*logger.Logger, func(), error) {
	l, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	if producer == nil {
		return l, func() {}, nil
	}
	l.AddCollector(&logger.CollectionConfig{
		Topic:     cfg.Kafka.LogsTopic,
		Publisher: producer,
	})
	return l, l.RemoveCollector, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(cfg *config.Config) repository.Metrics {
	if !cfg.Metrics.Enabled {
		return metrics.Noop{}
	}
	return metrics.New(nil)
}

// ProvideKISClient creates the authenticated quote service client.
func ProvideKISClient(cfg *config.Config, log *logger.Logger, m repository.Metrics) *kis.Client {
	c := kis.New(kis.Config{
		BaseURL:           cfg.KIS.BaseURL,
		AppKey:            cfg.KIS.AppKey,
		AppSecret:         cfg.KIS.AppSecret,
		RequestTimeout:    cfg.KIS.RequestTimeout,
		PaceDelay:         cfg.KIS.PaceDelay,
		RateLimit:         cfg.KIS.RateLimit,
		TokenRetryBackoff: cfg.KIS.TokenRetryBackoff,
		BarLookbackDays:   cfg.KIS.BarLookbackDays,
	}, log, m)
	if !c.Configured() {
		log.Warn("quote service credentials missing, quotes will carry a not-configured note")
	}
	return c
}

// ProvideUniverse loads the reference ticker universe.
func ProvideUniverse(cfg *config.Config, log *logger.Logger) (*internalrepo.StaticUniverse, error) {
	u, err := internalrepo.LoadUniverse(internalrepo.UniverseConfig{
		Dir:             cfg.Universe.Dir,
		DomesticTickers: cfg.Universe.DomesticTickers,
		ForeignTickers:  cfg.Universe.ForeignTickers,
		DomesticNames:   cfg.Universe.DomesticNames,
		ForeignExchange: cfg.Universe.ForeignExchange,
	}, log.Named("universe"))
	if err != nil {
		return nil, fmt.Errorf("universe: %w", err)
	}
	return u, nil
}

// ProvideRedisClient connects to Redis, or returns nil when the shared cache
// is disabled.
func ProvideRedisClient(cfg *config.Config) (*redis.Client, func(), error) {
	if !cfg.Redis.Enabled {
		return nil, func() {}, nil
	}
	rc, err := cache.NewRedisClient(
		cache.WithRedisAddr(cfg.Redis.Addr),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPool(cfg.Redis.PoolSize, 2, 30*time.Second),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("redis: %w", err)
	}
	return rc, func() { _ = rc.Close() }, nil
}

// QuoteCache is the short-lived quote store.
type QuoteCache cache.Store[models.Quote]

// FundamentalsCache is the long-lived fundamentals store.
type FundamentalsCache cache.Store[models.Fundamentals]

// ProvideQuoteCache layers the in-process cache over Redis when available.
// The cleanup stops the in-process sweeper.
func ProvideQuoteCache(cfg *config.Config, rc *redis.Client) (QuoteCache, func()) {
	return newStore[models.Quote](cfg, rc)
}

func ProvideFundamentalsCache(cfg *config.Config, rc *redis.Client) (FundamentalsCache, func()) {
	return newStore[models.Fundamentals](cfg, rc)
}

func newStore[V any](cfg *config.Config, rc *redis.Client) (cache.Store[V], func()) {
	l1 := cache.NewMemory[V](cache.WithMemoryCleanup(time.Minute))
	cleanup := func() { _ = l1.Close() }
	if rc == nil {
		return l1, cleanup
	}
	return cache.NewLayered[V](l1, cache.NewRedis[V](rc, cfg.Redis.Prefix)), cleanup
}

// ProvideQuoteFetcher creates the per-ticker fetch use case.
func ProvideQuoteFetcher(
	cfg *config.Config,
	market *kis.Client,
	universe *internalrepo.StaticUniverse,
	quotes QuoteCache,
	fundamentals FundamentalsCache,
	log *logger.Logger,
	m repository.Metrics,
) *usecase.QuoteFetcher {
	exchanges := cfg.Enrich.ForeignExchanges
	if len(exchanges) == 0 {
		exchanges = kis.ForeignExchanges
	}
	return usecase.NewQuoteFetcher(
		usecase.FetcherConfig{
			QuoteTTL:         cfg.Enrich.QuoteTTL,
			FundamentalsTTL:  cfg.Enrich.FundamentalsTTL,
			ForeignExchanges: exchanges,
		},
		market,
		universe,
		quotes,
		fundamentals,
		log,
		m,
	)
}

func ProvideVerifier(cfg *config.Config, universe *internalrepo.StaticUniverse) *usecase.Verifier {
	return usecase.NewVerifier(universe, cfg.Enrich.MaxCandidates)
}

// ProvideEnricher creates the batch scheduler.
func ProvideEnricher(
	cfg *config.Config,
	fetcher *usecase.QuoteFetcher,
	verifier *usecase.Verifier,
	log *logger.Logger,
	m repository.Metrics,
) *usecase.Enricher {
	return usecase.NewEnricher(fetcher, verifier, cfg.Enrich.Workers, log, m)
}

// ProvideResultPublisher wraps the producer, or returns nil without one.
func ProvideResultPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.ResultPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaResultPublisher(producer, cfg.Kafka.ResultsTopic)
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML, or nil
// when the pipeline is disabled.
func ProvideKafkaConsumer(cfg *config.Config, log *logger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(log,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Workers),
		pkgkafka.WithConsumerRetry(cfg.Kafka.RetryMax, cfg.Kafka.BackoffMin, cfg.Kafka.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.DLQTopic),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.TraceHook())
	return consumer, nil
}

// ProvideKafkaCandidatesHandler registers the handler for the candidates topic.
func ProvideKafkaCandidatesHandler(
	cfg *config.Config,
	enricher *usecase.Enricher,
	publisher repository.ResultPublisher,
	log *logger.Logger,
	m repository.Metrics,
) pkgkafka.MessageHandler {
	if publisher == nil {
		return nil
	}
	return usecase.NewKafkaCandidatesHandler(cfg.Kafka.CandidatesTopic, enricher, publisher, log, m)
}

// ProvideHealth reports readiness for /healthz.
func ProvideHealth(cfg *config.Config, market *kis.Client, rc *redis.Client, producer *pkgkafka.Producer) func() api.Health {
	state := func(on bool) string {
		if on {
			return "enabled"
		}
		return "disabled"
	}
	return func() api.Health {
		return api.Health{
			Configured: market.Configured(),
			Components: map[string]string{
				"redis":   state(rc != nil),
				"kafka":   state(producer != nil),
				"metrics": state(cfg.Metrics.Enabled),
			},
		}
	}
}

func ProvideEnrichHandler(log *logger.Logger, enricher *usecase.Enricher, health func() api.Health) *api.EnrichEchoHandler {
	return api.NewEnrichEchoHandler(log, enricher, health)
}

func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.Server.RateLimit, cfg.Server.RateBurst)
}

// ProvideHTTPServer creates the Echo server with every route registered.
func ProvideHTTPServer(cfg *config.Config, log *logger.Logger, h *api.EnrichEchoHandler, limiter *ratelimit.Limiter) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(log, []xhttp.Handler{h},
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(metricsPath),
		xhttp.WithMiddleware(middleware.RateLimit(limiter, "/healthz", metricsPath)),
	)
}

// ProvideApp assembles the application. The consumer is only kept when a
// handler exists for it.
func ProvideApp(
	log *logger.Logger,
	httpServer *xhttp.Server,
	consumer *pkgkafka.Consumer,
	handler pkgkafka.MessageHandler,
) *server.App {
	if handler == nil {
		consumer = nil
	}
	return server.New(log, httpServer, consumer, handler, nil)
}
