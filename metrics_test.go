package minmotion

import (
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetricsRegisters(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := NewMetrics(reg)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	metrics.updated(filterMahony, modeIMU, NewQuaternion(2, 0, 0, 0))
	metrics.skip(filterMadgwick, reasonMag)

	expected := `
# HELP minmotion_quaternion_norm_deviation Absolute deviation from 1 of the estimate norm after the last update.
# TYPE minmotion_quaternion_norm_deviation gauge
minmotion_quaternion_norm_deviation{filter="mahony"} 1
# HELP minmotion_skipped_updates_total Number of update steps (or corrective terms) skipped because of degenerate input.
# TYPE minmotion_skipped_updates_total counter
minmotion_skipped_updates_total{filter="madgwick",reason="magnetometer"} 1
# HELP minmotion_updates_total Number of completed filter update steps.
# TYPE minmotion_updates_total counter
minmotion_updates_total{filter="mahony",mode="imu"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected)); err != nil {
		t.Error(err)
	}

	var are prometheus.AlreadyRegisteredError
	if _, err := NewMetrics(reg); !errors.As(err, &are) {
		t.Errorf("second registration: got %v, want AlreadyRegisteredError", err)
	}
}

func TestNilMetrics(t *testing.T) {
	var metrics *Metrics
	metrics.updated(filterMadgwick, modeMARG, Identity())
	metrics.skip(filterMadgwick, reasonStep)

	m, err := NewMadgwick(DefaultMadgwickConfig(), WithMadgwickMetrics(nil))
	if err != nil {
		t.Fatalf("NewMadgwick: %v", err)
	}
	if err := m.Update(Vec{X: 1}, Vec{Z: 1}, Vec{X: 1}); err != nil {
		t.Errorf("Update without metrics: %v", err)
	}
}

func TestFiltersShareMetrics(t *testing.T) {
	metrics, err := NewMetrics(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	madgwick, err := NewMadgwick(DefaultMadgwickConfig(), WithMadgwickMetrics(metrics))
	if err != nil {
		t.Fatalf("NewMadgwick: %v", err)
	}
	mahony, err := NewMahony(DefaultMahonyConfig(), WithMahonyMetrics(metrics))
	if err != nil {
		t.Fatalf("NewMahony: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := madgwick.UpdateIMU(Vec{Y: 0.2}, Vec{X: 0.1, Z: 1}); err != nil {
			t.Fatal(err)
		}
		if err := mahony.UpdateIMU(Vec{Y: 0.2}, Vec{X: 0.1, Z: 1}); err != nil {
			t.Fatal(err)
		}
	}

	if n := testutil.CollectAndCount(metrics.updates); n != 2 {
		t.Errorf("%d update series, want 2", n)
	}
	if n := testutil.ToFloat64(metrics.updates.WithLabelValues(filterMadgwick, modeIMU)); n != 3 {
		t.Errorf("madgwick updates = %f, want 3", n)
	}
	if d := testutil.ToFloat64(metrics.normDeviation.WithLabelValues(filterMahony)); d > 1e-12 {
		t.Errorf("norm deviation %g", d)
	}
}
