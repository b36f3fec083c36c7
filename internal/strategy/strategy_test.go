package strategy

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"SignalFoundry/internal/filter"
	"SignalFoundry/internal/markov"
	"SignalFoundry/internal/model"
	"SignalFoundry/internal/qlearn"
)

type fixedGenerator struct {
	name    string
	signals model.SignalSeries
}

func (g fixedGenerator) Name() string { return g.name }

func (g fixedGenerator) GenerateSignals(*Frame) (model.SignalSeries, error) {
	return g.signals, nil
}

func series(vals ...int) model.SignalSeries {
	out := make(model.SignalSeries, len(vals))
	for i, v := range vals {
		out[i] = model.Signal(v)
	}
	return out
}

func frameFrom(t *testing.T, closes []float64) *Frame {
	t.Helper()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ps := &model.PriceSeries{Symbol: "TEST"}
	for i, c := range closes {
		ps.Bars = append(ps.Bars, model.OHLCV{
			Time: start.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, Volume: 1000,
		})
	}
	kf, err := filter.NewKalman(filter.DefaultProcessNoise, filter.DefaultObservationNoise)
	if err != nil {
		t.Fatalf("kalman: %v", err)
	}
	ff, err := filter.NewFourier(filter.DefaultKeepRatio)
	if err != nil {
		t.Fatalf("fourier: %v", err)
	}
	f, err := NewFrame(ps, kf, ff)
	if err != nil {
		t.Fatalf("frame: %v", err)
	}
	return f
}

func equalSignals(a, b model.SignalSeries) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestCombine_AllAgree(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	s := make(model.SignalSeries, 50)
	for i := range s {
		s[i] = model.Signal(rng.Intn(3) - 1)
	}
	got, err := Combine([]model.SignalSeries{s, s, s}, []float64{0.2, 0.5, 0.3})
	if err != nil {
		t.Fatalf("combine: %v", err)
	}
	if !equalSignals(got, s) {
		t.Errorf("unanimous ensemble diverged:\n got %v\nwant %v", got, s)
	}
}

func TestCombine_Weighted(t *testing.T) {
	got, err := Combine(
		[]model.SignalSeries{series(1, 1, 0), series(-1, -1, 0), series(-1, 0, -1)},
		[]float64{0.5, 0.3, 0.2},
	)
	if err != nil {
		t.Fatalf("combine: %v", err)
	}
	want := series(0, 1, -1)
	if !equalSignals(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestCombine_LengthMismatch(t *testing.T) {
	_, err := Combine([]model.SignalSeries{series(1, 0), series(1)}, []float64{0.5, 0.5})
	if !errors.Is(err, ErrLengthMismatch) {
		t.Errorf("expected ErrLengthMismatch, got %v", err)
	}
}

func TestNewMeta_Weights(t *testing.T) {
	gens := []Generator{
		fixedGenerator{name: "a"}, fixedGenerator{name: "b"}, fixedGenerator{name: "c"},
	}
	m, err := NewMeta(gens, nil)
	if err != nil {
		t.Fatalf("meta: %v", err)
	}
	for _, w := range m.Weights() {
		if math.Abs(w-1.0/3) > 1e-12 {
			t.Errorf("default weight %v, want 1/3", w)
		}
	}

	m, err = NewMeta(gens, []float64{2, 1, 1})
	if err != nil {
		t.Fatalf("meta: %v", err)
	}
	if w := m.Weights()[0]; math.Abs(w-0.5) > 1e-12 {
		t.Errorf("normalized weight %v, want 0.5", w)
	}

	bad := [][]float64{{1, -1, 1}, {0, 0, 0}, {1, 1}, {math.NaN(), 1, 1}}
	for _, w := range bad {
		if _, err := NewMeta(gens, w); !errors.Is(err, ErrInvalidWeights) {
			t.Errorf("weights %v: expected ErrInvalidWeights, got %v", w, err)
		}
	}
	if _, err := NewMeta(nil, nil); !errors.Is(err, ErrNoGenerators) {
		t.Errorf("expected ErrNoGenerators, got %v", err)
	}
}

func TestMeta_Evaluate(t *testing.T) {
	f := frameFrom(t, []float64{10, 11, 12, 13})
	m, err := NewMeta([]Generator{
		fixedGenerator{name: "up", signals: series(1, 1, 1, 0)},
		fixedGenerator{name: "down", signals: series(-1, 0, -1, 0)},
		fixedGenerator{name: "mixed", signals: series(1, -1, 0, 0)},
	}, nil)
	if err != nil {
		t.Fatalf("meta: %v", err)
	}
	b, err := m.Evaluate(f)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(b.Components) != 3 || b.Components[1].Name != "down" {
		t.Fatalf("unexpected components %+v", b.Components)
	}
	if want := series(1, 0, 0, 0); !equalSignals(b.Final, want) {
		t.Errorf("final %v, want %v", b.Final, want)
	}
}

func TestMeta_MisalignedGenerator(t *testing.T) {
	f := frameFrom(t, []float64{10, 11, 12})
	m, _ := NewMeta([]Generator{fixedGenerator{name: "short", signals: series(1)}}, nil)
	if _, err := m.GenerateSignals(f); !errors.Is(err, ErrLengthMismatch) {
		t.Errorf("expected ErrLengthMismatch, got %v", err)
	}
}

func TestTrailingStop_Apply(t *testing.T) {
	tests := []struct {
		name   string
		raw    model.SignalSeries
		closes []float64
		want   model.SignalSeries
	}{
		{"long stopped", series(1, 0, 0, 0), []float64{100, 99, 96.9, 95}, series(1, 0, -1, 0)},
		{"repeat suppressed", series(1, 1, 1), []float64{100, 101, 102}, series(1, 0, 0)},
		{"flip", series(1, -1, 0), []float64{100, 101, 102}, series(1, -1, 0)},
		{"short stopped", series(-1, 0, 0), []float64{100, 102, 103.5}, series(-1, 0, 1)},
		{"reopen after stop", series(1, 0, 1), []float64{100, 96, 96}, series(1, -1, 1)},
		{"flat stays flat", series(0, 0, 0), []float64{100, 50, 200}, series(0, 0, 0)},
		{"repeat within band keeps entry", series(1, 1, 0), []float64{100, 110, 96.5}, series(1, 0, -1)},
		{"repeat beyond stop is held", series(1, 1, 0), []float64{100, 95, 95}, series(1, 0, -1)},
		{"short repeat beyond stop is held", series(-1, -1, 0), []float64{100, 110, 110}, series(-1, 0, 1)},
	}
	stop, err := NewTrailingStop(DefaultStopPct)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := stop.Apply(tt.raw, tt.closes)
			if err != nil {
				t.Fatalf("apply: %v", err)
			}
			if !equalSignals(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTrailingStop_NoConsecutiveRepeatsFromFlat(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	n := 300
	raw := make(model.SignalSeries, n)
	closes := make([]float64, n)
	price := 100.0
	for i := range raw {
		raw[i] = model.Signal(rng.Intn(3) - 1)
		price *= 1 + (rng.Float64()-0.5)*0.01
		closes[i] = price
	}
	stop, _ := NewTrailingStop(0.5)
	got, err := stop.Apply(raw, closes)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	last := model.Hold
	for i, s := range got {
		if s == model.Hold {
			continue
		}
		if s == last {
			t.Fatalf("bar %d: repeated %v without a stop move", i, s)
		}
		last = s
	}
}

func TestTrailingStop_Errors(t *testing.T) {
	for _, pct := range []float64{0, -0.1, 1} {
		if _, err := NewTrailingStop(pct); err == nil {
			t.Errorf("pct %v: expected error", pct)
		}
	}
	stop, _ := NewTrailingStop(DefaultStopPct)
	if _, err := stop.Apply(series(1, 0), []float64{1}); !errors.Is(err, ErrLengthMismatch) {
		t.Errorf("expected ErrLengthMismatch, got %v", err)
	}
}

func TestStopped_WrapsGenerator(t *testing.T) {
	f := frameFrom(t, []float64{100, 101, 102, 103})
	stop, _ := NewTrailingStop(DefaultStopPct)
	g := WithTrailingStop(fixedGenerator{name: "always", signals: series(1, 1, 1, 1)}, stop)
	if g.Name() != "always" {
		t.Errorf("name %q", g.Name())
	}
	got, err := g.GenerateSignals(f)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if want := series(1, 0, 0, 0); !equalSignals(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestKalmanTrend_RisingSeries(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	f := frameFrom(t, closes)
	got, err := NewKalmanTrend(DefaultSlopeThreshold).GenerateSignals(f)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got[0] != model.Hold {
		t.Errorf("first bar %v, want HOLD", got[0])
	}
	for i := 1; i < len(got); i++ {
		if got[i] != model.Buy {
			t.Errorf("bar %d: %v, want BUY", i, got[i])
		}
	}
}

func TestFourierCycle_ResidualDirection(t *testing.T) {
	f := &Frame{
		Close:   []float64{100, 100, 10, 10, 10},
		Kalman:  []float64{100, 100, 10, 10, 10},
		Fourier: []float64{105, 95, 10, 10.005, 9.995},
	}
	got, err := NewFourierCycle(DefaultCycleThreshold).GenerateSignals(f)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	// close below the low-pass value sells, above it buys
	if want := series(-1, 1, 0, 0, 0); !equalSignals(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestFrame_ColumnMismatch(t *testing.T) {
	f := &Frame{Close: []float64{1, 2}, Kalman: []float64{1}, Fourier: []float64{1, 2}}
	if _, err := NewKalmanTrend(0).GenerateSignals(f); !errors.Is(err, ErrLengthMismatch) {
		t.Errorf("expected ErrLengthMismatch, got %v", err)
	}
}

func TestMarkov_AlternatingSeries(t *testing.T) {
	closes := make([]float64, 12)
	for i := range closes {
		closes[i] = 100 + float64(i%2)
	}
	f := frameFrom(t, closes)
	m, err := markov.New(1, markov.WithArgmax())
	if err != nil {
		t.Fatalf("markov: %v", err)
	}
	got, err := NewMarkov(m, 0.002, 0).GenerateSignals(f)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	// flat -> up, up -> down, down -> up
	want := series(1, -1, 1, -1, 1, -1, 1, -1, 1, -1, 1, 0)
	if !equalSignals(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}

	gated, err := NewMarkov(m, 0.002, 1.1).GenerateSignals(f)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if gated.Trades() != 0 {
		t.Errorf("confidence gate let %d trades through", gated.Trades())
	}
}

func TestMarkov_InsufficientData(t *testing.T) {
	f := frameFrom(t, []float64{100, 101})
	m, _ := markov.New(3)
	if _, err := NewMarkov(m, 0.002, 0).GenerateSignals(f); !errors.Is(err, markov.ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
}

func TestQLearning_Reproducible(t *testing.T) {
	closes := make([]float64, 80)
	for i := range closes {
		closes[i] = 100 + 5*math.Sin(float64(i)/6) + float64(i)*0.1
	}
	f := frameFrom(t, closes)

	run := func() (model.SignalSeries, []float64) {
		table, err := qlearn.NewQTable(qlearn.DefaultParams(), rand.New(rand.NewSource(3)))
		if err != nil {
			t.Fatalf("qtable: %v", err)
		}
		s, strengths, err := NewQLearning(table, DefaultQLearningConfig()).Evaluate(f)
		if err != nil {
			t.Fatalf("evaluate: %v", err)
		}
		return s, strengths
	}
	a, strengths := run()
	b, _ := run()
	if len(a) != len(closes) {
		t.Fatalf("len %d, want %d", len(a), len(closes))
	}
	if !equalSignals(a, b) {
		t.Error("same seed produced different signals")
	}
	for i, s := range strengths {
		if math.Abs(s) > DefaultQLearningConfig().Multiplier {
			t.Errorf("bar %d: strength %v exceeds multiplier", i, s)
		}
		if model.Signal(math.Copysign(1, s)) != a[i] && a[i] != model.Hold {
			t.Errorf("bar %d: signal %v disagrees with strength %v", i, a[i], s)
		}
	}
}
