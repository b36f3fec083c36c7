package filter

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/dsp/fourier"
)

// DefaultKeepRatio keeps the lowest 5% of frequency bins.
const DefaultKeepRatio = 0.05

// Fourier is a batch low-pass filter that zeroes all but the lowest-frequency bins.
type Fourier struct {
	keepRatio float64
}

// NewFourier creates a filter retaining keepRatio of the bins, in (0, 1].
func NewFourier(keepRatio float64) (*Fourier, error) {
	if !(keepRatio > 0 && keepRatio <= 1) {
		return nil, fmt.Errorf("keep ratio %v: %w", keepRatio, ErrInvalidParam)
	}
	return &Fourier{keepRatio: keepRatio}, nil
}

// Apply reconstructs the series from its lowest |frequency| bins.
// At least the zero-frequency bin is always kept.
func (f *Fourier) Apply(series []float64) []float64 {
	n := len(series)
	out := make([]float64, n)
	if n == 0 {
		return out
	}

	fft := fourier.NewCmplxFFT(n)
	seq := make([]complex128, n)
	for i, v := range series {
		seq[i] = complex(v, 0)
	}
	coeff := fft.Coefficients(nil, seq)

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return math.Abs(fft.Freq(order[a])) < math.Abs(fft.Freq(order[b]))
	})

	cutoff := int(float64(n) * f.keepRatio)
	if cutoff < 1 {
		cutoff = 1
	}
	filtered := make([]complex128, n)
	for _, idx := range order[:cutoff] {
		filtered[idx] = coeff[idx]
	}

	// Sequence is unnormalized.
	recon := fft.Sequence(nil, filtered)
	scale := 1 / float64(n)
	for i, c := range recon {
		out[i] = real(c) * scale
	}
	return out
}
