package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "taskdesk"

// Metrics holds all taskdesk metric instruments.
type Metrics struct {
	Transitions   metric.Int64Counter
	TasksCreated  metric.Int64Counter
	BulkItems     metric.Int64Counter
	BulkFailures  metric.Int64Counter
	QueryDuration metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.Transitions, err = meter.Int64Counter("taskdesk.task.transitions",
		metric.WithDescription("Number of task lifecycle transitions applied"))
	if err != nil {
		return nil, err
	}

	m.TasksCreated, err = meter.Int64Counter("taskdesk.tasks.created",
		metric.WithDescription("Number of tasks created"))
	if err != nil {
		return nil, err
	}

	m.BulkItems, err = meter.Int64Counter("taskdesk.bulk.items",
		metric.WithDescription("Number of items processed by bulk operations"))
	if err != nil {
		return nil, err
	}

	m.BulkFailures, err = meter.Int64Counter("taskdesk.bulk.failures",
		metric.WithDescription("Number of bulk items that failed"))
	if err != nil {
		return nil, err
	}

	m.QueryDuration, err = meter.Float64Histogram("taskdesk.query.duration_seconds",
		metric.WithDescription("List/count query duration in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
