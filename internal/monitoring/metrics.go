// Package monitoring provides per-stage metrics collection for preprocessing runs.
//
// A MetricsCollector keeps an in-memory record of every stage it times and
// mirrors the same figures into a Prometheus registry, which can be written
// out as a node-exporter textfile at the end of a run.
package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "trafficprep"

// StageMetrics represents the metrics for a single pipeline stage.
type StageMetrics struct {
	Stage      string        `json:"stage"`
	Duration   time.Duration `json:"duration"`
	RowsIn     int           `json:"rows_in"`
	RowsOut    int           `json:"rows_out"`
	ColumnsIn  int           `json:"columns_in"`
	ColumnsOut int           `json:"columns_out"`
}

// StageResult is what a timed stage reports back about its output.
type StageResult struct {
	Rows    int
	Columns int
}

// MetricsCollector collects and stores metrics for pipeline stages.
type MetricsCollector struct {
	mu      sync.RWMutex
	metrics []StageMetrics
	enabled bool

	registry      *prometheus.Registry
	stageDuration *prometheus.GaugeVec
	stageRows     *prometheus.GaugeVec
	rowsRemoved   *prometheus.CounterVec
	cellsMissing  *prometheus.CounterVec
}

// NewMetricsCollector creates a new metrics collector with its own registry.
func NewMetricsCollector(enabled bool) *MetricsCollector {
	mc := &MetricsCollector{
		metrics:  make([]StageMetrics, 0),
		enabled:  enabled,
		registry: prometheus.NewRegistry(),
		stageDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time spent in each preprocessing stage.",
		}, []string{"stage"}),
		stageRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stage_rows",
			Help:      "Rows leaving each preprocessing stage.",
		}, []string{"stage"}),
		rowsRemoved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_removed_total",
			Help:      "Rows discarded by row validation, by rule.",
		}, []string{"rule"}),
		cellsMissing: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cells_missing_total",
			Help:      "Cells that could not be parsed and became missing, by column.",
		}, []string{"column"}),
	}
	mc.registry.MustRegister(mc.stageDuration, mc.stageRows, mc.rowsRemoved, mc.cellsMissing)
	return mc
}

// IsEnabled returns whether metrics collection is enabled.
func (mc *MetricsCollector) IsEnabled() bool {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return mc.enabled
}

// RecordStage executes fn and records its duration and shape change.
// A nil collector just runs fn.
func (mc *MetricsCollector) RecordStage(stage string, rowsIn, columnsIn int, fn func() (StageResult, error)) error {
	if mc == nil || !mc.IsEnabled() {
		_, err := fn()
		return err
	}

	start := time.Now()
	out, err := fn()
	duration := time.Since(start)
	if err != nil {
		return err
	}

	mc.mu.Lock()
	mc.metrics = append(mc.metrics, StageMetrics{
		Stage:      stage,
		Duration:   duration,
		RowsIn:     rowsIn,
		RowsOut:    out.Rows,
		ColumnsIn:  columnsIn,
		ColumnsOut: out.Columns,
	})
	mc.mu.Unlock()

	mc.stageDuration.WithLabelValues(stage).Set(duration.Seconds())
	mc.stageRows.WithLabelValues(stage).Set(float64(out.Rows))
	return nil
}

// RecordRowsRemoved adds n to the removal counter for rule.
func (mc *MetricsCollector) RecordRowsRemoved(rule string, n int) {
	if mc == nil || !mc.IsEnabled() {
		return
	}
	mc.rowsRemoved.WithLabelValues(rule).Add(float64(n))
}

// RecordCellsMissing adds n to the parse-degradation counter for column.
func (mc *MetricsCollector) RecordCellsMissing(column string, n int) {
	if mc == nil || !mc.IsEnabled() {
		return
	}
	mc.cellsMissing.WithLabelValues(column).Add(float64(n))
}

// GetMetrics returns a copy of all collected stage metrics.
func (mc *MetricsCollector) GetMetrics() []StageMetrics {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	result := make([]StageMetrics, len(mc.metrics))
	copy(result, mc.metrics)
	return result
}

// WriteTextfile writes the current metrics in the Prometheus text format,
// atomically replacing path.
func (mc *MetricsCollector) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, mc.registry)
}

// GetSummary returns a summary of collected metrics.
func (mc *MetricsCollector) GetSummary() MetricsSummary {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	if len(mc.metrics) == 0 {
		return MetricsSummary{}
	}

	var totalDuration time.Duration
	stageDurations := make(map[string]time.Duration, len(mc.metrics))
	for _, metric := range mc.metrics {
		totalDuration += metric.Duration
		stageDurations[metric.Stage] += metric.Duration
	}

	first, last := mc.metrics[0], mc.metrics[len(mc.metrics)-1]
	return MetricsSummary{
		TotalStages:    len(mc.metrics),
		TotalDuration:  totalDuration,
		RowsIn:         first.RowsIn,
		RowsOut:        last.RowsOut,
		ColumnsIn:      first.ColumnsIn,
		ColumnsOut:     last.ColumnsOut,
		StageDurations: stageDurations,
	}
}

// MetricsSummary provides aggregate statistics for a run.
type MetricsSummary struct {
	TotalStages    int                      `json:"total_stages"`
	TotalDuration  time.Duration            `json:"total_duration"`
	RowsIn         int                      `json:"rows_in"`
	RowsOut        int                      `json:"rows_out"`
	ColumnsIn      int                      `json:"columns_in"`
	ColumnsOut     int                      `json:"columns_out"`
	StageDurations map[string]time.Duration `json:"stage_durations"`
}
