package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestJobMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewJobMetrics(reg)
	job := "session-sweep"
	metrics.ObserveDuration(job, 250*time.Millisecond)
	metrics.IncSuccess(job)
	metrics.IncFailure(job)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "storefront_job_success_total", "job", job); err != nil {
		t.Fatalf("fetch success: %v", err)
	} else if got != 1 {
		t.Fatalf("expected success=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "storefront_job_failure_total", "job", job); err != nil {
		t.Fatalf("fetch failure: %v", err)
	} else if got != 1 {
		t.Fatalf("expected failure=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "storefront_job_duration_seconds", "job", job); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestStorefrontMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewStorefront(reg)
	m.IncMutation("cart", "add")
	m.IncMutation("cart", "add")
	m.IncPersistenceFailure("orders")
	m.IncTransition("submitting", "confirmed")
	m.IncOrder("orange-money", "confirmed")
	m.ObservePayment("orange-money", "confirmed", 3*time.Second)
	m.SetActiveSessions(4)
	m.SetBreakerState("storage", "open")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "storefront_session_mutations_total", "op", "add"); err != nil || got != 2 {
		t.Fatalf("expected 2 cart mutations, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "storefront_persistence_failures_total", "key", "orders"); err != nil || got != 1 {
		t.Fatalf("expected 1 persistence failure, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "storefront_orders_total", "method", "orange-money"); err != nil || got != 1 {
		t.Fatalf("expected 1 order, got %f (%v)", got, err)
	}
	if got, err := fetchHistogramSum(mfs, "storefront_payment_duration_seconds", "outcome", "confirmed"); err != nil || got != 3 {
		t.Fatalf("expected payment sum 3, got %f (%v)", got, err)
	}
	if mf := findMetricFamily(mfs, "storefront_active_sessions"); mf == nil || mf.GetMetric()[0].GetGauge().GetValue() != 4 {
		t.Fatalf("expected active sessions gauge of 4")
	}
	if mf := findMetricFamily(mfs, "storefront_storage_breaker_state"); mf == nil || mf.GetMetric()[0].GetGauge().GetValue() != 2 {
		t.Fatalf("expected open breaker gauge of 2")
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Storefront
	m.IncMutation("cart", "add")
	m.ObservePayment("", "", time.Second)
	m.SetActiveSessions(1)

	var j *JobMetrics
	j.IncSuccess("sweep")

	NewStorefront(nil).IncOrder("cash-delivery", "confirmed")
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
