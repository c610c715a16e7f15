package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"StockPull/internal/domain/models"
	drepo "StockPull/internal/domain/repository"
	pkgkafka "StockPull/pkg/kafka"
	"StockPull/pkg/logger"
)

// KafkaCandidatesHandler consumes candidate batches, enriches them and
// publishes the result.
type KafkaCandidatesHandler struct {
	topic     string
	enricher  *Enricher
	publisher drepo.ResultPublisher
	log       *logger.Logger
	metrics   drepo.Metrics
}

func NewKafkaCandidatesHandler(topic string, enricher *Enricher, publisher drepo.ResultPublisher, log *logger.Logger, metrics drepo.Metrics) *KafkaCandidatesHandler {
	return &KafkaCandidatesHandler{
		topic:     topic,
		enricher:  enricher,
		publisher: publisher,
		log:       log.Named("candidates-handler"),
		metrics:   metrics,
	}
}

func (h *KafkaCandidatesHandler) Topic() string { return h.topic }

// Handle rejects undecodable payloads outright; they are retried and then
// parked on the DLQ by the consumer. Publish failures are returned so the
// batch is retried.
func (h *KafkaCandidatesHandler) Handle(ctx context.Context, b []byte) error {
	var batch models.CandidateBatch
	if err := json.Unmarshal(b, &batch); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return fmt.Errorf("decode candidate batch: %w", err)
	}
	if batch.RequestID == "" {
		batch.RequestID = pkgkafka.TraceID(ctx)
	}

	start := time.Now()
	result := h.enricher.Enrich(ctx, &batch)
	h.metrics.RecordLatency("enrich_batch", time.Since(start).Seconds())

	if err := h.publisher.Publish(ctx, result); err != nil {
		h.metrics.RecordError("result_publish")
		return err
	}
	h.log.Info("enrichment published",
		logger.String("request_id", result.RequestID),
		logger.String("result_id", result.ID),
		logger.Int("candidates", len(result.Candidates)),
	)
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaCandidatesHandler)(nil)
