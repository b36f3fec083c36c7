package markov

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"SignalFoundry/internal/model"
)

func symbols(vals ...int) []model.StateSymbol {
	out := make([]model.StateSymbol, len(vals))
	for i, v := range vals {
		out[i] = model.StateSymbol(v)
	}
	return out
}

func TestFit_DistributionsSumToOne(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	seq := make([]model.StateSymbol, 500)
	for i := range seq {
		seq[i] = model.StateSymbol(rng.Intn(model.NumSymbols))
	}
	for order := 1; order <= 3; order++ {
		m, err := New(order, WithArgmax())
		if err != nil {
			t.Fatalf("new: %v", err)
		}
		if err := m.Fit(seq); err != nil {
			t.Fatalf("fit: %v", err)
		}
		for key, dist := range m.table {
			sum := 0.0
			for _, p := range dist {
				if p < 0 {
					t.Errorf("order %d history %q: negative probability %v", order, key, p)
				}
				sum += p
			}
			if math.Abs(sum-1) > 1e-9 {
				t.Errorf("order %d history %q: sum %.12f", order, key, sum)
			}
		}
	}
}

func TestFit_ConstantFlatSequence(t *testing.T) {
	seq := symbols(1, 1, 1, 1, 1, 1, 1, 1, 1, 1)
	m, _ := New(2, WithArgmax())
	if err := m.Fit(seq); err != nil {
		t.Fatalf("fit: %v", err)
	}
	dist, ok := m.Distribution(symbols(1, 1))
	if !ok {
		t.Fatal("expected flat-flat history to be present")
	}
	if math.Abs(dist[model.Flat]-1) > 1e-9 {
		t.Errorf("expected self-transition ~1.0, got %.4f", dist[model.Flat])
	}
	if m.Histories() != 1 {
		t.Errorf("expected exactly one history, got %d", m.Histories())
	}
	next, conf := m.Predict(symbols(1, 1))
	if next != model.Flat || conf != 1 {
		t.Errorf("expected (flat, 1), got (%s, %.2f)", next, conf)
	}
}

func TestPredict_UnseenHistory(t *testing.T) {
	m, _ := New(2)
	if err := m.Fit(symbols(1, 1, 1, 2, 2, 2)); err != nil {
		t.Fatalf("fit: %v", err)
	}
	next, conf := m.Predict(symbols(0, 0))
	if next != model.Flat || conf != 0 {
		t.Errorf("unseen history: expected (flat, 0), got (%s, %.2f)", next, conf)
	}
	next, conf = m.Predict(symbols(2))
	if next != model.Flat || conf != 0 {
		t.Errorf("short history: expected (flat, 0), got (%s, %.2f)", next, conf)
	}
	if _, ok := m.Distribution(symbols(0, 0)); ok {
		t.Error("unseen history must not be synthesized")
	}
}

func TestPredict_UsesLastNSymbols(t *testing.T) {
	m, _ := New(1, WithArgmax())
	if err := m.Fit(symbols(0, 2, 0, 2, 0, 2)); err != nil {
		t.Fatalf("fit: %v", err)
	}
	if next, _ := m.Predict(symbols(2, 2, 2, 0)); next != model.Up {
		t.Errorf("expected up after down, got %s", next)
	}
	if next, _ := m.Predict(symbols(0, 0, 2)); next != model.Down {
		t.Errorf("expected down after up, got %s", next)
	}
}

func TestPredict_ArgmaxTieBreaksLowest(t *testing.T) {
	m, _ := New(1, WithArgmax())
	// history "1" is followed by 0 once and 2 once
	if err := m.Fit(symbols(1, 0, 1, 2)); err != nil {
		t.Fatalf("fit: %v", err)
	}
	next, conf := m.Predict(symbols(1))
	if next != model.Down || conf != 0.5 {
		t.Errorf("expected (down, 0.5), got (%s, %.2f)", next, conf)
	}
}

func TestPredict_SeededSamplingIsReproducible(t *testing.T) {
	seq := symbols(1, 0, 1, 2, 1, 1, 0, 1, 2, 2, 1, 0)
	run := func() []model.StateSymbol {
		m, _ := New(1, WithRand(rand.New(rand.NewSource(42))))
		if err := m.Fit(seq); err != nil {
			t.Fatalf("fit: %v", err)
		}
		out := make([]model.StateSymbol, 50)
		for i := range out {
			out[i], _ = m.Predict(symbols(1))
		}
		return out
	}
	a, b := run(), run()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("sample %d differs: %s vs %s", i, a[i], b[i])
		}
	}
}

func TestSample_NeverPicksZeroProbability(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	dist := []float64{0, 0.3, 0.7}
	for i := 0; i < 1000; i++ {
		if got := sample(rng, dist); got == 0 {
			t.Fatal("sampled a zero-probability symbol")
		}
	}
}

func TestNewAndFit_Errors(t *testing.T) {
	if _, err := New(0); !errors.Is(err, ErrInvalidOrder) {
		t.Errorf("expected ErrInvalidOrder, got %v", err)
	}
	m, _ := New(3)
	if err := m.Fit(symbols(1, 1, 1)); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
	if err := m.Fit(symbols(1, 1, 5, 1)); !errors.Is(err, ErrInvalidSymbol) {
		t.Errorf("expected ErrInvalidSymbol, got %v", err)
	}
}

func TestFit_DiscardsPreviousTable(t *testing.T) {
	m, _ := New(1, WithArgmax())
	_ = m.Fit(symbols(0, 0, 0, 0))
	_ = m.Fit(symbols(2, 2, 2, 2))
	if _, ok := m.Distribution(symbols(0)); ok {
		t.Error("refit should discard histories from the previous dataset")
	}
}
