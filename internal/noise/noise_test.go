package noise

import (
	"math"
	"testing"
)

func TestSampleDeterministic(t *testing.T) {
	p := Params{Frequency: 0.01, Octaves: 4, Persistence: 0.5}
	a := New(42, p)
	b := New(42, p)

	for x := 0; x < 20; x++ {
		for y := 0; y < 20; y++ {
			fx, fy := float64(x)*3.7, float64(y)*5.1
			va := a.Sample(fx, fy)
			vb := b.Sample(fx, fy)
			if va != vb {
				t.Fatalf("Sample(%v, %v) differs across identical fields: %v vs %v", fx, fy, va, vb)
			}
			if va != a.Sample(fx, fy) {
				t.Fatalf("Sample(%v, %v) not stable on repeat call", fx, fy)
			}
		}
	}
}

func TestSampleRange(t *testing.T) {
	f := New(7, Params{Frequency: 0.05, Octaves: 6, Persistence: 0.7})

	for x := 0; x < 50; x++ {
		for y := 0; y < 50; y++ {
			v := f.Sample(float64(x), float64(y))
			if v < 0 || v > 1 {
				t.Fatalf("Sample(%d, %d) = %v, outside [0, 1]", x, y, v)
			}
		}
	}
}

func TestSampleContinuity(t *testing.T) {
	f := New(99, Params{Frequency: 0.01, Octaves: 4, Persistence: 0.5})

	const delta = 0.01
	for x := 0; x < 30; x++ {
		for y := 0; y < 30; y++ {
			fx, fy := float64(x), float64(y)
			v := f.Sample(fx, fy)
			vx := f.Sample(fx+delta, fy)
			vy := f.Sample(fx, fy+delta)
			if math.Abs(v-vx) > 0.05 || math.Abs(v-vy) > 0.05 {
				t.Fatalf("discontinuity near (%v, %v): %v vs %v / %v", fx, fy, v, vx, vy)
			}
		}
	}
}

func TestSeedsProduceDistinctFields(t *testing.T) {
	p := Params{Frequency: 0.02, Octaves: 4, Persistence: 0.5}
	a := New(1, p)
	b := New(2, p)

	diffs := 0
	for x := 0; x < 30; x++ {
		for y := 0; y < 30; y++ {
			if a.Sample(float64(x), float64(y)) != b.Sample(float64(x), float64(y)) {
				diffs++
			}
		}
	}
	if diffs == 0 {
		t.Fatal("different seeds produced identical fields")
	}
}

func TestParamsSanitized(t *testing.T) {
	f := New(5, Params{})
	v := f.Sample(1.5, 2.5)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		t.Fatalf("zero-value params produced %v", v)
	}
}
