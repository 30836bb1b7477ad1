// Package noise provides seeded coherent-noise fields for terrain generation.
// Fields are evaluated on demand; nothing is precomputed or stored.
package noise

import (
	opensimplex "github.com/ojrac/opensimplex-go"
)

// Params controls the fractal layering of a field.
type Params struct {
	Frequency   float64 // base sampling frequency
	Octaves     int     // number of layered frequencies
	Persistence float64 // amplitude falloff per octave
}

// Field is a continuous scalar field over 2D coordinates derived from a seed.
// The same (seed, x, y) always yields the same value, and nearby coordinates
// yield nearby values.
type Field struct {
	noise opensimplex.Noise
	p     Params
}

// New creates a field for the given seed. Zero or negative octave counts are
// treated as a single octave; a zero frequency samples the noise directly.
func New(seed int64, p Params) *Field {
	if p.Octaves < 1 {
		p.Octaves = 1
	}
	if p.Frequency <= 0 {
		p.Frequency = 1
	}
	if p.Persistence <= 0 {
		p.Persistence = 0.5
	}
	return &Field{
		noise: opensimplex.NewNormalized(seed),
		p:     p,
	}
}

// Sample returns the field value at (x, y), in [0, 1].
// Octaves are layered with doubling frequency and decaying amplitude, then
// normalized by the total amplitude.
func (f *Field) Sample(x, y float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0
	freq := f.p.Frequency

	for i := 0; i < f.p.Octaves; i++ {
		total += f.noise.Eval2(x*freq, y*freq) * amplitude
		maxVal += amplitude
		amplitude *= f.p.Persistence
		freq *= 2
	}

	return total / maxVal
}
