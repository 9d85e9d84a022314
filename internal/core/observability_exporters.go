package core

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// PrometheusMetricsRecorder exports service operation counts and latencies.
type PrometheusMetricsRecorder struct {
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
}

// NewPrometheusMetricsRecorder registers the service collectors with reg.
func NewPrometheusMetricsRecorder(reg prometheus.Registerer) (*PrometheusMetricsRecorder, error) {
	rec := &PrometheusMetricsRecorder{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "missioncore",
			Subsystem: "service",
			Name:      "operations_total",
			Help:      "Service operations by name and outcome.",
		}, []string{"operation", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "missioncore",
			Subsystem: "service",
			Name:      "operation_duration_seconds",
			Help:      "Service operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{rec.operations, rec.latency} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return rec, nil
}

// Observe records a service operation outcome.
func (r *PrometheusMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	status := string(AuditStatusError)
	if success {
		status = string(AuditStatusSuccess)
	}
	r.operations.WithLabelValues(operation, status).Inc()
	r.latency.WithLabelValues(operation).Observe(duration.Seconds())
}

// LogrusLogger adapts a logrus logger to the service Logger interface.
type LogrusLogger struct {
	log logrus.FieldLogger
}

// NewLogrusLogger wraps log.
func NewLogrusLogger(log logrus.FieldLogger) LogrusLogger {
	return LogrusLogger{log: log}
}

func (l LogrusLogger) entry(args []any) *logrus.Entry {
	fields := make(logrus.Fields, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			continue
		}
		fields[key] = args[i+1]
	}
	return l.log.WithFields(fields)
}

// Debug logs at debug level.
func (l LogrusLogger) Debug(msg string, args ...any) { l.entry(args).Debug(msg) }

// Info logs at info level.
func (l LogrusLogger) Info(msg string, args ...any) { l.entry(args).Info(msg) }

// Warn logs at warn level.
func (l LogrusLogger) Warn(msg string, args ...any) { l.entry(args).Warn(msg) }

// Error logs at error level.
func (l LogrusLogger) Error(msg string, args ...any) { l.entry(args).Error(msg) }

// LogrusAuditRecorder writes audit entries as structured log lines.
type LogrusAuditRecorder struct {
	log logrus.FieldLogger
}

// NewLogrusAuditRecorder wraps log.
func NewLogrusAuditRecorder(log logrus.FieldLogger) *LogrusAuditRecorder {
	return &LogrusAuditRecorder{log: log}
}

// Record logs the entry; failures are logged at warn level.
func (r *LogrusAuditRecorder) Record(_ context.Context, entry AuditEntry) {
	e := r.log.WithFields(logrus.Fields{
		"audit":       true,
		"operation":   entry.Operation,
		"entity":      entry.Entity,
		"action":      entry.Action,
		"entity_id":   entry.EntityID,
		"status":      entry.Status,
		"duration_ms": entry.Duration.Milliseconds(),
	})
	if entry.Status == AuditStatusError {
		e.WithField("error", entry.Error).Warn("service operation failed")
		return
	}
	e.Info("service operation")
}

// LogrusTracer emits one debug line per finished span.
type LogrusTracer struct {
	log   logrus.FieldLogger
	clock Clock
}

// NewLogrusTracer wraps log.
func NewLogrusTracer(log logrus.FieldLogger) *LogrusTracer {
	return &LogrusTracer{log: log, clock: ClockFunc(time.Now)}
}

// Start implements Tracer.
func (t *LogrusTracer) Start(ctx context.Context, operation string) (context.Context, TraceSpan) {
	return ctx, &logrusSpan{tracer: t, operation: operation, started: t.clock.Now()}
}

type logrusSpan struct {
	tracer    *LogrusTracer
	operation string
	started   time.Time
}

func (s *logrusSpan) End(err error) {
	e := s.tracer.log.WithFields(logrus.Fields{
		"span":        s.operation,
		"duration_ms": s.tracer.clock.Now().Sub(s.started).Milliseconds(),
	})
	if err != nil {
		e = e.WithError(err)
	}
	e.Debug("span finished")
}
