package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

func TestPrometheusMetricsRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	ctx := context.Background()
	rec.Observe(ctx, "create_scientist", true, 5*time.Millisecond)
	rec.Observe(ctx, "create_scientist", false, time.Millisecond)
	rec.Observe(ctx, "", true, time.Millisecond)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	counts := map[string]float64{}
	var samples uint64
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			switch family.GetName() {
			case "missioncore_service_operations_total":
				labels := map[string]string{}
				for _, pair := range metric.GetLabel() {
					labels[pair.GetName()] = pair.GetValue()
				}
				counts[labels["operation"]+"/"+labels["status"]] += metric.GetCounter().GetValue()
			case "missioncore_service_operation_duration_seconds":
				samples += metric.GetHistogram().GetSampleCount()
			}
		}
	}
	if counts["create_scientist/success"] != 1 || counts["create_scientist/error"] != 1 || len(counts) != 2 {
		t.Fatalf("unexpected counters: %#v", counts)
	}
	if samples != 2 {
		t.Fatalf("expected 2 histogram samples, got %d", samples)
	}

	if _, err := NewPrometheusMetricsRecorder(reg); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
	if _, err := NewPrometheusMetricsRecorder(nil); err != nil {
		t.Fatalf("nil registerer: %v", err)
	}
}

func TestLogrusLoggerFields(t *testing.T) {
	log, hook := logtest.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	logger := NewLogrusLogger(log)
	logger.Info("scientist archived", "scientist_id", int64(3), 42, "dropped", "key")
	entry := hook.LastEntry()
	if entry == nil || entry.Message != "scientist archived" || entry.Level != logrus.InfoLevel {
		t.Fatalf("unexpected entry: %#v", entry)
	}
	if entry.Data["scientist_id"] != int64(3) || len(entry.Data) != 1 {
		t.Fatalf("unexpected fields: %#v", entry.Data)
	}
	logger.Debug("d")
	logger.Warn("w")
	logger.Error("e")
	levels := []logrus.Level{logrus.InfoLevel, logrus.DebugLevel, logrus.WarnLevel, logrus.ErrorLevel}
	for i, entry := range hook.AllEntries() {
		if entry.Level != levels[i] {
			t.Fatalf("entry %d: expected %s, got %s", i, levels[i], entry.Level)
		}
	}
}

func TestLogrusAuditRecorder(t *testing.T) {
	log, hook := logtest.NewNullLogger()
	rec := NewLogrusAuditRecorder(log)
	rec.Record(context.Background(), AuditEntry{Operation: "delete_scientist", Entity: EntityScientist, Action: ActionDelete, EntityID: 4, Status: AuditStatusSuccess})
	if entry := hook.LastEntry(); entry.Level != logrus.InfoLevel || entry.Data["operation"] != "delete_scientist" || entry.Data["entity_id"] != int64(4) {
		t.Fatalf("unexpected success entry: %#v", entry)
	}
	rec.Record(context.Background(), AuditEntry{Operation: "delete_scientist", Status: AuditStatusError, Error: "boom"})
	if entry := hook.LastEntry(); entry.Level != logrus.WarnLevel || entry.Data["error"] != "boom" {
		t.Fatalf("unexpected failure entry: %#v", entry)
	}
}

func TestLogrusTracerSpans(t *testing.T) {
	log, hook := logtest.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	tracer := NewLogrusTracer(log)
	_, span := tracer.Start(context.Background(), "create_mission")
	span.End(errors.New("invalid"))
	entry := hook.LastEntry()
	if entry == nil || entry.Data["span"] != "create_mission" || entry.Data[logrus.ErrorKey] == nil {
		t.Fatalf("unexpected span entry: %#v", entry)
	}
}
