package minmotion

import (
	"math"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	filterMadgwick = "madgwick"
	filterMahony   = "mahony"

	modeIMU  = "imu"
	modeMARG = "marg"

	reasonGyro  = "gyroscope"
	reasonAccel = "accelerometer"
	reasonMag   = "magnetometer"
	reasonStep  = "zero_step"
)

// Metrics exposes filter activity as prometheus collectors. A nil *Metrics
// records nothing.
type Metrics struct {
	updates       *prometheus.CounterVec
	skipped       *prometheus.CounterVec
	normDeviation *prometheus.GaugeVec
}

// NewMetrics creates the filter collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "minmotion",
			Name:      "updates_total",
			Help:      "Number of completed filter update steps.",
		}, []string{"filter", "mode"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "minmotion",
			Name:      "skipped_updates_total",
			Help:      "Number of update steps (or corrective terms) skipped because of degenerate input.",
		}, []string{"filter", "reason"}),
		normDeviation: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "minmotion",
			Name:      "quaternion_norm_deviation",
			Help:      "Absolute deviation from 1 of the estimate norm after the last update.",
		}, []string{"filter"}),
	}

	for _, c := range []prometheus.Collector{m.updates, m.skipped, m.normDeviation} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) updated(filter, mode string, q Quaternion) {
	if m == nil {
		return
	}
	m.updates.WithLabelValues(filter, mode).Inc()
	m.normDeviation.WithLabelValues(filter).Set(math.Abs(q.Norm() - 1))
}

func (m *Metrics) skip(filter, reason string) {
	if m == nil {
		return
	}
	m.skipped.WithLabelValues(filter, reason).Inc()
}
