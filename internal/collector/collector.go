package collector

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"SignalFoundry/internal/model"
)

// MockFetcher returns deterministic data for development and testing.
type MockFetcher struct {
	Price     float64
	Seed      int64
	End       time.Time
	DailyData []model.OHLCV
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchDailyBars(_ context.Context, _ string, days int) ([]model.OHLCV, error) {
	if m.DailyData != nil {
		return m.DailyData, nil
	}
	end := m.End
	if end.IsZero() {
		end = time.Now().UTC().Truncate(24 * time.Hour)
	}
	return generateMockBars(m.Price, days, m.Seed, end), nil
}

// generateMockBars produces a drifting cycle with seeded noise so every
// generator has something to react to.
func generateMockBars(basePrice float64, count int, seed int64, end time.Time) []model.OHLCV {
	rng := rand.New(rand.NewSource(seed))
	bars := make([]model.OHLCV, count)
	for i := 0; i < count; i++ {
		cycle := math.Sin(2 * math.Pi * float64(i) / 40)
		p := basePrice * (1 + 0.0005*float64(i) + 0.03*cycle + 0.005*rng.NormFloat64())
		bars[i] = model.OHLCV{
			Time:   end.AddDate(0, 0, -(count - 1 - i)),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}

// Collector fetches a symbol's history and hands it over as a validated series.
type Collector struct {
	Fetcher Fetcher
	Symbol  string
	Days    int
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, symbol string, days int) *Collector {
	return &Collector{Fetcher: fetcher, Symbol: symbol, Days: days}
}

// Collect fetches daily bars and checks them against the input contract.
func (c *Collector) Collect(ctx context.Context) (*model.PriceSeries, error) {
	bars, err := c.Fetcher.FetchDailyBars(ctx, c.Symbol, c.Days)
	if err != nil {
		return nil, fmt.Errorf("fetch daily bars: %w", err)
	}
	// The fetcher may hand back a slice it still owns.
	bars = append([]model.OHLCV(nil), bars...)
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })

	series := &model.PriceSeries{
		Symbol:    c.Symbol,
		Bars:      bars,
		FetchedAt: time.Now(),
	}
	if err := series.Validate(); err != nil {
		return nil, fmt.Errorf("%s via %s: %w", c.Symbol, c.Fetcher.Name(), err)
	}
	return series, nil
}
