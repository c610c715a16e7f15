package kafka

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricsOnce sync.Once

	producedTotal   *prometheus.CounterVec
	producedBytes   *prometheus.CounterVec
	produceLatency  *prometheus.HistogramVec
	consumedTotal   *prometheus.CounterVec
	handleLatency   *prometheus.HistogramVec
	dlqTotal        *prometheus.CounterVec
	queueDepthGauge *prometheus.GaugeVec
)

func initMetricsOnce() {
	metricsOnce.Do(func() {
		producedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{Name: "stockpull_kafka_produced_messages_total", Help: "Messages published to Kafka"},
			[]string{"topic", "compression", "result"},
		)
		producedBytes = promauto.NewCounterVec(
			prometheus.CounterOpts{Name: "stockpull_kafka_produced_bytes_total", Help: "Payload bytes published"},
			[]string{"topic"},
		)
		produceLatency = promauto.NewHistogramVec(
			prometheus.HistogramOpts{Name: "stockpull_kafka_publish_seconds", Help: "Publish latency", Buckets: prometheus.DefBuckets},
			[]string{"topic"},
		)
		consumedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{Name: "stockpull_kafka_consumed_messages_total", Help: "Messages handled by result"},
			[]string{"topic", "result"},
		)
		handleLatency = promauto.NewHistogramVec(
			prometheus.HistogramOpts{Name: "stockpull_kafka_handle_seconds", Help: "Handling time per message including retries", Buckets: prometheus.DefBuckets},
			[]string{"topic"},
		)
		dlqTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{Name: "stockpull_kafka_dlq_messages_total", Help: "Messages sent to the dead letter topic"},
			[]string{"topic"},
		)
		queueDepthGauge = promauto.NewGaugeVec(
			prometheus.GaugeOpts{Name: "stockpull_kafka_consumer_queue_depth", Help: "Messages waiting for a worker"},
			[]string{"topic"},
		)
	})
}

func observeProduce(topic, comp string, bytes int, dur time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	producedTotal.WithLabelValues(topic, comp, result).Inc()
	producedBytes.WithLabelValues(topic).Add(float64(bytes))
	produceLatency.WithLabelValues(topic).Observe(dur.Seconds())
}

func observeHandle(topic string, dur time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	consumedTotal.WithLabelValues(topic, result).Inc()
	handleLatency.WithLabelValues(topic).Observe(dur.Seconds())
}
