package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Partition outcome labels reported per processed unit of work.
const (
	PartitionOutcomeSucceeded = "succeeded"
	PartitionOutcomeFailed    = "failed"
	PartitionOutcomeDropped   = "dropped"
	PartitionOutcomeParked    = "parked"
	PartitionOutcomeSkipped   = "skipped_leased"
	PartitionOutcomeDeferred  = "deferred"
)

// Data-quality flag labels.
const (
	FlagIncompleteCost       = "incomplete_cost"
	FlagRefundRateOutOfRange = "refund_rate_out_of_range"
)

// Config carries the constant labels attached to every series.
type Config struct {
	ServiceName string
	Environment string
}

// AggregatorMetrics captures aggregation engine health signals.
type AggregatorMetrics struct {
	cycleRuns         prometheus.Counter
	cycleDuration     prometheus.Observer
	partitions        *prometheus.CounterVec
	partitionDuration prometheus.Observer
	dirtyMarks        prometheus.Counter
	qualityFlags      *prometheus.CounterVec
}

var (
	aggregatorMetricsOnce sync.Once
	aggregatorMetrics     *AggregatorMetrics
)

// Aggregator returns the singleton aggregator metrics registry.
func Aggregator() *AggregatorMetrics {
	return AggregatorWithConfig(Config{})
}

// AggregatorWithConfig returns the singleton aggregator metrics registry using config labels.
func AggregatorWithConfig(cfg Config) *AggregatorMetrics {
	aggregatorMetricsOnce.Do(func() {
		aggregatorMetrics = newAggregatorMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return aggregatorMetrics
}

// ResetAggregatorMetricsForTest resets the metrics singleton for tests.
func ResetAggregatorMetricsForTest() {
	aggregatorMetricsOnce = sync.Once{}
	aggregatorMetrics = nil
}

func newAggregatorMetrics(registerer prometheus.Registerer, cfg Config) *AggregatorMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "commercepulse"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	cycleRuns := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "commercepulse_aggregator_cycle_runs_total",
		Help:        "Number of aggregation cycles started.",
		ConstLabels: constLabels,
	})
	cycleDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "commercepulse_aggregator_cycle_duration_seconds",
		Help:        "Wall time of a full aggregation cycle.",
		ConstLabels: constLabels,
		Buckets:     prometheus.ExponentialBuckets(0.01, 2, 14),
	})
	partitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "commercepulse_aggregator_partitions_total",
		Help:        "Partitions handled per cycle, by outcome.",
		ConstLabels: constLabels,
	}, []string{"outcome"})
	partitionDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "commercepulse_aggregator_partition_duration_seconds",
		Help:        "Wall time of a single partition recomputation.",
		ConstLabels: constLabels,
		Buckets:     prometheus.ExponentialBuckets(0.005, 2, 12),
	})
	dirtyMarks := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "commercepulse_aggregator_dirty_marks_total",
		Help:        "Dirty-partition marks received from ingestion.",
		ConstLabels: constLabels,
	})
	qualityFlags := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "commercepulse_aggregator_data_quality_flags_total",
		Help:        "Data-quality flags attached to committed rollups.",
		ConstLabels: constLabels,
	}, []string{"flag"})

	registerer.MustRegister(cycleRuns, cycleDuration, partitions, partitionDuration, dirtyMarks, qualityFlags)

	return &AggregatorMetrics{
		cycleRuns:         cycleRuns,
		cycleDuration:     cycleDuration,
		partitions:        partitions,
		partitionDuration: partitionDuration,
		dirtyMarks:        dirtyMarks,
		qualityFlags:      qualityFlags,
	}
}

func (m *AggregatorMetrics) IncCycleRun() {
	if m == nil {
		return
	}
	m.cycleRuns.Inc()
}

func (m *AggregatorMetrics) ObserveCycleDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.cycleDuration.Observe(d.Seconds())
}

func (m *AggregatorMetrics) IncPartition(outcome string) {
	if m == nil {
		return
	}
	m.partitions.WithLabelValues(outcome).Inc()
}

func (m *AggregatorMetrics) ObservePartitionDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.partitionDuration.Observe(d.Seconds())
}

func (m *AggregatorMetrics) IncDirtyMark() {
	if m == nil {
		return
	}
	m.dirtyMarks.Inc()
}

func (m *AggregatorMetrics) IncQualityFlag(flag string) {
	if m == nil {
		return
	}
	m.qualityFlags.WithLabelValues(flag).Inc()
}
