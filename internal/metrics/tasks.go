package metrics

import "github.com/prometheus/client_golang/prometheus"

// Background pipeline Prometheus metrics.
var (
	TasksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "memoir",
			Name:      "pipeline_tasks_total",
			Help:      "Total pipeline task executions by terminal status",
		},
		[]string{"task", "status"}, // status: ok / error / dropped
	)

	TaskDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "memoir",
			Name:      "pipeline_task_duration_seconds",
			Help:      "Pipeline task execution duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 300},
		},
		[]string{"task"},
	)

	TaskRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "memoir",
			Name:      "pipeline_task_retries_total",
			Help:      "Total pipeline task retry attempts",
		},
		[]string{"task"},
	)

	QueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "memoir",
			Name:      "pipeline_queue_depth",
			Help:      "Number of tasks waiting in the pipeline queue",
		},
	)
)

var taskMetricsRegistered bool

// RegisterTaskMetrics registers pipeline metrics. Must be called once from main.
func RegisterTaskMetrics() {
	if taskMetricsRegistered {
		return
	}
	prometheus.MustRegister(TasksTotal)
	prometheus.MustRegister(TaskDuration)
	prometheus.MustRegister(TaskRetriesTotal)
	prometheus.MustRegister(QueueDepth)
	taskMetricsRegistered = true
}
