package minmotion

import (
	"bytes"
	"errors"
	"log/slog"
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"gonum.org/v1/gonum/spatial/r3"
)

func newTestMahony(t *testing.T, config MahonyConfig, options ...func(*Mahony)) *Mahony {
	t.Helper()
	m, err := NewMahony(config, options...)
	if err != nil {
		t.Fatalf("NewMahony: %v", err)
	}
	return m
}

func randomVec(r *rand.Rand, scale float64) Vec {
	return Vec{X: scale * r.NormFloat64(), Y: scale * r.NormFloat64(), Z: scale * r.NormFloat64()}
}

func TestNewMahonyValidation(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*MahonyConfig)
	}{
		{"zero sample period", func(c *MahonyConfig) { c.SamplePeriod = 0 }},
		{"infinite sample period", func(c *MahonyConfig) { c.SamplePeriod = math.Inf(1) }},
		{"nan kp", func(c *MahonyConfig) { c.Kp = math.NaN() }},
		{"infinite ki", func(c *MahonyConfig) { c.Ki = math.Inf(-1) }},
		{"nan quaternion", func(c *MahonyConfig) { c.InitialQuaternion = NewQuaternion(math.NaN(), 0, 0, 0) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultMahonyConfig()
			tt.modify(&config)
			if _, err := NewMahony(config); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("got error %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestMahonyIntegralHeldAtZero(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	config := DefaultMahonyConfig()
	config.InitialQuaternion = NewQuaternion(0.7, 0.5, -0.1, 0.3)
	m := newTestMahony(t, config)

	for i := 0; i < 200; i++ {
		if err := m.UpdateIMU(randomVec(r, 0.5), randomVec(r, 9.81)); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if e := m.IntegralError(); e != (Vec{}) {
			t.Fatalf("step %d: integral error %v, want zero", i, e)
		}
	}
	if r3.Norm(m.LastError()) == 0 {
		t.Error("test inputs produced no error")
	}
}

func TestMahonyIntegralAccumulates(t *testing.T) {
	config := DefaultMahonyConfig()
	config.Ki = 0.3
	config.InitialQuaternion = QuaternionFromAngleAxis(0.4, 0, 1, 0)
	m := newTestMahony(t, config)

	if err := m.UpdateIMU(Vec{}, Vec{Z: 1}); err != nil {
		t.Fatalf("UpdateIMU: %v", err)
	}
	e := m.LastError()
	if r3.Norm(e) == 0 {
		t.Fatal("no error after a tilted step")
	}
	if got, want := m.IntegralError(), r3.Scale(config.SamplePeriod, e); got != want {
		t.Errorf("integral error %v, want %v", got, want)
	}

	sum := m.IntegralError()
	for i := 0; i < 10; i++ {
		if err := m.UpdateIMU(Vec{}, Vec{Z: 1}); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		sum = r3.Add(sum, r3.Scale(config.SamplePeriod, m.LastError()))
	}
	if d := r3.Norm(r3.Sub(m.IntegralError(), sum)); d > Tolerance {
		t.Errorf("integral error %v, want %v", m.IntegralError(), sum)
	}

	m.Reset()
	if m.IntegralError() != (Vec{}) || m.LastError() != (Vec{}) {
		t.Errorf("Reset kept errors %v, %v", m.IntegralError(), m.LastError())
	}
	if q := m.Quaternion(); !quaternionsClose(q, config.InitialQuaternion, Tolerance) {
		t.Errorf("Reset estimate %s, want %s", q, config.InitialQuaternion)
	}
}

func TestMahonyUnitNorm(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	config := DefaultMahonyConfig()
	config.Kp = 2
	config.Ki = 0.1
	m := newTestMahony(t, config)

	for i := 0; i < 1000; i++ {
		if err := m.UpdateIMU(randomVec(r, 2), randomVec(r, 9.81)); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if n := m.Quaternion().Norm(); math.Abs(n-1) > 1e-6 {
			t.Fatalf("step %d: norm %f", i, n)
		}
	}
}

func TestMahonyInvertedGravity(t *testing.T) {
	// Identity is an equilibrium of the error, start slightly off it
	config := DefaultMahonyConfig()
	config.InitialQuaternion = QuaternionFromAngleAxis(math.Pi/180, 1/math.Sqrt2, 1/math.Sqrt2, 0)
	m := newTestMahony(t, config)

	var (
		prev   = math.Inf(-1)
		peaked bool
	)
	for i := 0; i < 20*256; i++ {
		if err := m.UpdateIMU(Vec{}, Vec{Z: -1}); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}

		e := r3.Norm(m.LastError())
		if peaked && e > prev+1e-12 {
			t.Fatalf("step %d: error grew from %g to %g", i, prev, e)
		}
		if e < prev {
			peaked = true
		}
		prev = e
	}

	if !peaked {
		t.Error("error never started decreasing")
	}
	if prev > 1e-4 {
		t.Errorf("final error %g", prev)
	}

	angle, _, _, z := m.AngleAxis()
	if math.Abs(angle-math.Pi) > 1e-3 {
		t.Errorf("angle %f, want ~pi", angle)
	}
	if math.Abs(z) > 1e-3 {
		t.Errorf("rotation axis has vertical component %f", z)
	}
	if m.IntegralError() != (Vec{}) {
		t.Errorf("integral error %v with Ki = 0", m.IntegralError())
	}
}

func TestMahonyLevelsTilt(t *testing.T) {
	config := DefaultMahonyConfig()
	config.Kp = 2
	config.InitialQuaternion = QuaternionFromAngleAxis(-0.5, 0, 1, 0)
	m := newTestMahony(t, config)

	for i := 0; i < 10*256; i++ {
		if err := m.UpdateIMU(Vec{}, Vec{Z: 9.81}); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}

	if a := rotationAngle(m.Quaternion()); a > 0.1 {
		t.Errorf("estimate %f° away from level", a)
	}
}

func TestMahonyDegenerateReading(t *testing.T) {
	var logs bytes.Buffer
	metrics, err := NewMetrics(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	config := DefaultMahonyConfig()
	config.Ki = 0.5
	m := newTestMahony(t, config,
		WithMahonyLogger(slog.New(slog.NewTextHandler(&logs, nil))),
		WithMahonyMetrics(metrics))

	for i := 0; i < 5; i++ {
		if err := m.UpdateIMU(Vec{X: 0.1}, Vec{X: 0.3, Z: 1}); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	q, eInt, last := m.Quaternion(), m.IntegralError(), m.LastError()

	err = m.UpdateIMU(Vec{X: 0.1}, Vec{})
	if !errors.Is(err, ErrDegenerateSensorReading) {
		t.Errorf("got error %v, want ErrDegenerateSensorReading", err)
	}
	if m.Quaternion() != q || m.IntegralError() != eInt || m.LastError() != last {
		t.Error("filter state changed on a degenerate reading")
	}
	if !strings.Contains(logs.String(), "level=WARN") || !strings.Contains(logs.String(), "sensor=accelerometer") {
		t.Errorf("missing warning, logged %q", logs.String())
	}

	if n := testutil.ToFloat64(metrics.skipped.WithLabelValues(filterMahony, reasonAccel)); n != 1 {
		t.Errorf("skipped = %f, want 1", n)
	}
	if n := testutil.ToFloat64(metrics.updates.WithLabelValues(filterMahony, modeIMU)); n != 5 {
		t.Errorf("updates = %f, want 5", n)
	}
}

func TestMahonyNonFiniteReading(t *testing.T) {
	config := DefaultMahonyConfig()
	config.Ki = 0.5
	config.InitialQuaternion = QuaternionFromAngleAxis(0.5, 0, 1, 0)
	m := newTestMahony(t, config, WithMahonyLogger(discardLogger()))

	for i := 0; i < 10; i++ {
		if err := m.UpdateIMU(Vec{X: 0.1}, Vec{X: 0.3, Z: 1}); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	q, eInt, last := m.Quaternion(), m.IntegralError(), m.LastError()
	if eInt == (Vec{}) {
		t.Fatal("integral error not accumulated")
	}

	nan, inf := math.NaN(), math.Inf(1)
	tests := []struct {
		name        string
		gyro, accel Vec
	}{
		{"nan gyro", Vec{X: nan}, Vec{Z: 1}},
		{"inf gyro", Vec{Y: inf}, Vec{Z: 1}},
		{"nan accel", Vec{}, Vec{X: nan, Z: 1}},
		{"inf accel", Vec{}, Vec{X: inf, Z: 1}},
		{"negative inf accel", Vec{}, Vec{Z: -inf}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := m.UpdateIMU(tt.gyro, tt.accel); !errors.Is(err, ErrDegenerateSensorReading) {
				t.Errorf("got error %v, want ErrDegenerateSensorReading", err)
			}
			if m.Quaternion() != q || m.IntegralError() != eInt || m.LastError() != last {
				t.Errorf("state changed: q %s, integral %v, last %v", m.Quaternion(), m.IntegralError(), m.LastError())
			}
		})
	}
}
