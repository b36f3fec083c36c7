package qlearn

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"SignalFoundry/internal/model"
)

func newTable(t *testing.T, p Params, seed int64) *QTable {
	t.Helper()
	q, err := NewQTable(p, rand.New(rand.NewSource(seed)))
	if err != nil {
		t.Fatalf("new qtable: %v", err)
	}
	return q
}

func TestQTable_UntouchedState(t *testing.T) {
	q := newTable(t, DefaultParams(), 1)
	s := State{1, 2, 3, 4}
	if a := q.Greedy(s); a != 0 {
		t.Errorf("greedy on zero row = %d, want 0", a)
	}
	if c := q.Confidence(s); c != 0 {
		t.Errorf("confidence on zero row = %v, want 0", c)
	}
	if q.Len() != 1 {
		t.Errorf("lookup should create one row, got %d", q.Len())
	}
}

func TestQTable_Update(t *testing.T) {
	q := newTable(t, DefaultParams(), 1)
	s, next := State{0, 0, 0, 0}, State{1, 1, 1, 1}

	q.Update(s, 2, 1.0, next)
	if v := q.Values(s)[2]; math.Abs(v-0.1) > 1e-12 {
		t.Fatalf("first update = %v, want 0.1", v)
	}
	q.Update(s, 2, 1.0, next)
	if v := q.Values(s)[2]; math.Abs(v-0.19) > 1e-12 {
		t.Fatalf("second update = %v, want 0.19", v)
	}

	// bootstrap from the next state's best value
	q.Update(next, 0, 2.0, s)
	want := 0.1 * (2.0 + 0.9*0.19)
	if v := q.Values(next)[0]; math.Abs(v-want) > 1e-12 {
		t.Errorf("bootstrapped update = %v, want %v", v, want)
	}
}

func TestQTable_Confidence(t *testing.T) {
	q := newTable(t, DefaultParams(), 1)
	s := State{}
	*q.row(s) = [NumActions]float64{-1, 1, 2}
	want := 2 / (4 + confidenceEps)
	if c := q.Confidence(s); math.Abs(c-want) > 1e-12 {
		t.Errorf("confidence = %v, want %v", c, want)
	}
	if a := q.Greedy(s); a != 2 {
		t.Errorf("greedy = %d, want 2", a)
	}
}

func TestQTable_GreedyTieLowestIndex(t *testing.T) {
	q := newTable(t, DefaultParams(), 1)
	s := State{}
	*q.row(s) = [NumActions]float64{0.5, 0.5, 0.5}
	if a := q.Greedy(s); a != 0 {
		t.Errorf("tie greedy = %d, want 0", a)
	}
}

func TestQTable_EpsilonZeroIsGreedy(t *testing.T) {
	p := DefaultParams()
	p.Epsilon = 0
	q := newTable(t, p, 3)
	s := State{}
	*q.row(s) = [NumActions]float64{0, 0, 1}
	for i := 0; i < 100; i++ {
		if a := q.SelectAction(s); a != 2 {
			t.Fatalf("iteration %d: action %d, want 2", i, a)
		}
	}
}

func TestQTable_TrainRisingMarketPrefersBuy(t *testing.T) {
	p := DefaultParams()
	p.Epsilon = 1
	q := newTable(t, p, 42)

	n := 50
	states := make([]State, n)
	prices := make([]float64, n)
	for i := range prices {
		prices[i] = 100 + float64(i)
	}
	if err := q.Train(states, prices, 100); err != nil {
		t.Fatalf("train: %v", err)
	}
	if a := q.Greedy(State{}); Actions[a] != model.Buy {
		t.Errorf("greedy action %v, want BUY (values %v)", Actions[a], q.Values(State{}))
	}
}

func TestQTable_TrainReproducible(t *testing.T) {
	states := []State{{0, 1, 2, 3}, {1, 1, 1, 1}, {0, 1, 2, 3}, {2, 2, 2, 2}, {1, 1, 1, 1}}
	prices := []float64{10, 11, 10.5, 12, 11}
	a := newTable(t, DefaultParams(), 9)
	b := newTable(t, DefaultParams(), 9)
	if err := a.Train(states, prices, 20); err != nil {
		t.Fatal(err)
	}
	if err := b.Train(states, prices, 20); err != nil {
		t.Fatal(err)
	}
	for _, s := range states {
		if a.Values(s) != b.Values(s) {
			t.Errorf("state %v: %v != %v", s, a.Values(s), b.Values(s))
		}
	}
}

func TestQTable_TrainLengthMismatch(t *testing.T) {
	q := newTable(t, DefaultParams(), 1)
	err := q.Train(make([]State, 3), []float64{1, 2}, 1)
	if !errors.Is(err, ErrLengthMismatch) {
		t.Errorf("expected ErrLengthMismatch, got %v", err)
	}
}

func TestNewQTable_InvalidParams(t *testing.T) {
	cases := []Params{
		{LearningRate: 0, Discount: 0.9, Epsilon: 0.1},
		{LearningRate: 0.1, Discount: 1.5, Epsilon: 0.1},
		{LearningRate: 0.1, Discount: 0.9, Epsilon: -0.1},
	}
	for _, p := range cases {
		if _, err := NewQTable(p, rand.New(rand.NewSource(1))); err == nil {
			t.Errorf("params %+v: expected error", p)
		}
	}
	if _, err := NewQTable(DefaultParams(), nil); err == nil {
		t.Error("nil rng: expected error")
	}
}

func TestReward(t *testing.T) {
	tests := []struct {
		action model.Signal
		want   float64
	}{
		{model.Buy, 2},
		{model.Sell, -2},
		{model.Hold, 0},
	}
	for _, tt := range tests {
		if got := Reward(tt.action, 10, 12); got != tt.want {
			t.Errorf("Reward(%v) = %v, want %v", tt.action, got, tt.want)
		}
	}
}

func TestCut(t *testing.T) {
	got := Cut([]float64{1, 2, 3, 4, 5}, 2)
	want := []float64{0, 0, 0, 1, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Cut[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestCut_ConstantAndMissing(t *testing.T) {
	got := Cut([]float64{3, 3, math.NaN(), 3}, 10)
	for i, v := range got {
		if i == 2 {
			if !math.IsNaN(v) {
				t.Errorf("NaN input should stay NaN, got %v", v)
			}
			continue
		}
		if v != 4 {
			t.Errorf("constant input bucket = %v, want 4", v)
		}
	}
}

func TestSanitizeState(t *testing.T) {
	s := SanitizeState([NumFeatures]float64{math.NaN(), 3, math.Inf(1), 9})
	if s != (State{0, 3, 0, 9}) {
		t.Errorf("sanitized = %v", s)
	}
}

func TestBuildStates(t *testing.T) {
	n := 60
	trend := make([]float64, n)
	spectral := make([]float64, n)
	for i := 0; i < n; i++ {
		trend[i] = 100 + math.Sin(float64(i)/5)*3
		spectral[i] = trend[i] + math.Cos(float64(i)/3)
	}
	states, err := BuildStates(trend, spectral, DefaultBins, DefaultWindow)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(states) != n {
		t.Fatalf("len = %d, want %d", len(states), n)
	}
	for i, s := range states {
		for f, b := range s {
			if b < 0 || b >= DefaultBins {
				t.Errorf("bar %d feature %d: bucket %d out of range", i, f, b)
			}
		}
	}

	if _, err := BuildStates(trend, spectral[:10], DefaultBins, DefaultWindow); !errors.Is(err, ErrLengthMismatch) {
		t.Errorf("expected ErrLengthMismatch, got %v", err)
	}
}
