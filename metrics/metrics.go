package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/wagervs/go-token-distributor/entities"
)

type DistributionMetrics struct {
	batchSizeGauge        prometheus.Gauge
	recordedItemCount     prometheus.Counter
	skippedItemCount      prometheus.Counter
	failedItemCount       prometheus.Counter
	unconfirmedItemCount  prometheus.Counter
	completedRecordsGauge prometheus.Gauge
}

func NewDistributionMetrics(namespace string) *DistributionMetrics {
	m := DistributionMetrics{
		batchSizeGauge: promauto.NewGauge(prometheus.GaugeOpts{
			Name: fmt.Sprintf("%s_batch_size", namespace),
			Help: "The number of work items in the current batch",
		}),
		recordedItemCount: promauto.NewCounter(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_recorded_item_count", namespace),
			Help: "The total number of items submitted and durably recorded",
		}),
		skippedItemCount: promauto.NewCounter(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_skipped_item_count", namespace),
			Help: "The total number of items skipped because they were already recorded",
		}),
		failedItemCount: promauto.NewCounter(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_failed_item_count", namespace),
			Help: "The total number of items that failed",
		}),
		unconfirmedItemCount: promauto.NewCounter(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_unconfirmed_item_count", namespace),
			Help: "The total number of items submitted without obtaining a settlement token",
		}),
		completedRecordsGauge: promauto.NewGauge(prometheus.GaugeOpts{
			Name: fmt.Sprintf("%s_completed_records", namespace),
			Help: "The number of records in the completion ledger",
		}),
	}
	return &m
}

func (m *DistributionMetrics) SetBatchSize(size int) {
	m.batchSizeGauge.Set(float64(size))
}

func (m *DistributionMetrics) SetCompletedRecords(count int) {
	m.completedRecordsGauge.Set(float64(count))
}

func (m *DistributionMetrics) AddSummary(summary entities.Summary) {
	m.recordedItemCount.Add(float64(summary.Recorded))
	m.skippedItemCount.Add(float64(summary.Skipped))
	m.failedItemCount.Add(float64(summary.Failed))
	m.unconfirmedItemCount.Add(float64(summary.Unconfirmed))
}
