package qlearn

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"SignalFoundry/internal/model"
)

// NumActions is the size of the fixed action set.
const NumActions = 3

// Actions maps action indices to signals.
var Actions = [NumActions]model.Signal{model.Sell, model.Hold, model.Buy}

// confidenceEps keeps Confidence finite for an all-zero row.
const confidenceEps = 1e-6

// Params holds the temporal-difference hyperparameters.
type Params struct {
	LearningRate float64
	Discount     float64
	Epsilon      float64
}

// DefaultParams returns lr 0.1, discount 0.9, epsilon 0.1.
func DefaultParams() Params {
	return Params{LearningRate: 0.1, Discount: 0.9, Epsilon: 0.1}
}

func (p Params) validate() error {
	switch {
	case p.LearningRate <= 0 || p.LearningRate > 1:
		return fmt.Errorf("learning rate %v out of (0, 1]", p.LearningRate)
	case p.Discount < 0 || p.Discount > 1:
		return fmt.Errorf("discount %v out of [0, 1]", p.Discount)
	case p.Epsilon < 0 || p.Epsilon > 1:
		return fmt.Errorf("epsilon %v out of [0, 1]", p.Epsilon)
	}
	return nil
}

// QTable maps states to action values. Rows are created with zeros on first
// access and never removed.
type QTable struct {
	params Params
	rng    *rand.Rand
	q      map[State]*[NumActions]float64
}

// NewQTable creates an empty table. rng drives epsilon-greedy exploration.
func NewQTable(params Params, rng *rand.Rand) (*QTable, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, errors.New("qtable requires a random source")
	}
	return &QTable{params: params, rng: rng, q: make(map[State]*[NumActions]float64)}, nil
}

func (t *QTable) row(s State) *[NumActions]float64 {
	r, ok := t.q[s]
	if !ok {
		r = new([NumActions]float64)
		t.q[s] = r
	}
	return r
}

// Values returns a copy of the action values for s.
func (t *QTable) Values(s State) [NumActions]float64 {
	return *t.row(s)
}

// Len returns the number of states seen so far.
func (t *QTable) Len() int { return len(t.q) }

// Reset drops every learned row.
func (t *QTable) Reset() { t.q = make(map[State]*[NumActions]float64) }

// Update applies one temporal-difference step.
func (t *QTable) Update(s State, action int, reward float64, next State) {
	maxNext := maxOf(t.row(next))
	r := t.row(s)
	r[action] += t.params.LearningRate * (reward + t.params.Discount*maxNext - r[action])
}

// SelectAction picks a uniformly random action with probability epsilon and
// the greedy action otherwise.
func (t *QTable) SelectAction(s State) int {
	if t.rng.Float64() < t.params.Epsilon {
		return t.rng.Intn(NumActions)
	}
	return t.Greedy(s)
}

// Greedy returns the highest-valued action for s. Ties go to the lowest index.
func (t *QTable) Greedy(s State) int {
	r := t.row(s)
	best := 0
	for a := 1; a < NumActions; a++ {
		if r[a] > r[best] {
			best = a
		}
	}
	return best
}

// Confidence is the best value divided by the sum of absolute values.
func (t *QTable) Confidence(s State) float64 {
	r := t.row(s)
	sum := 0.0
	for _, v := range r {
		sum += math.Abs(v)
	}
	return maxOf(r) / (sum + confidenceEps)
}

// Train replays the state path for the given number of episodes, updating at
// every transition with the realized next-bar price change as reward.
func (t *QTable) Train(states []State, prices []float64, episodes int) error {
	if len(states) != len(prices) {
		return fmt.Errorf("states %d vs prices %d: %w", len(states), len(prices), ErrLengthMismatch)
	}
	if episodes < 0 {
		return fmt.Errorf("episodes %d must be non-negative", episodes)
	}
	for ep := 0; ep < episodes; ep++ {
		for i := 0; i+1 < len(states); i++ {
			a := t.SelectAction(states[i])
			t.Update(states[i], a, Reward(Actions[a], prices[i], prices[i+1]), states[i+1])
		}
	}
	return nil
}

// Reward is the price change captured by taking action at now and exiting at next.
func Reward(action model.Signal, now, next float64) float64 {
	switch action {
	case model.Buy:
		return next - now
	case model.Sell:
		return now - next
	default:
		return 0
	}
}

func maxOf(r *[NumActions]float64) float64 {
	m := r[0]
	for _, v := range r[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
