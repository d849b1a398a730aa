package embedding

import (
	"testing"
)

func TestCosine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		a, b   []float32
		expect float64
	}{
		{name: "identical", a: []float32{1, 2, 3}, b: []float32{1, 2, 3}, expect: 1},
		{name: "opposite", a: []float32{1, 0}, b: []float32{-2, 0}, expect: -1},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 5}, expect: 0},
		{name: "zero vector", a: []float32{0, 0}, b: []float32{1, 1}, expect: 0},
		{name: "length mismatch", a: []float32{1}, b: []float32{1, 1}, expect: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Cosine(tt.a, tt.b)
			if d := got - tt.expect; d > 1e-9 || d < -1e-9 {
				t.Fatalf("expected %v, got %v", tt.expect, got)
			}
		})
	}
}

func TestSquaredL2(t *testing.T) {
	t.Parallel()

	if got := SquaredL2([]float32{1, 2}, []float32{4, 6}); got != 25 {
		t.Fatalf("expected 25, got %v", got)
	}
	if got := SquaredL2([]float32{1, 2, 2}, []float32{1, 2}); got != 4 {
		t.Fatalf("expected 4, got %v", got)
	}
}

func TestBlend(t *testing.T) {
	t.Parallel()

	tests := []struct {
		rule, sim, expect float64
	}{
		{rule: 0.4, sim: 0.3, expect: 0.7},
		{rule: 0.9, sim: 0.8, expect: 1},
		{rule: 0.1, sim: -0.6, expect: 0},
	}

	for _, tt := range tests {
		got := Blend(tt.rule, tt.sim)
		if d := got - tt.expect; d > 1e-9 || d < -1e-9 {
			t.Fatalf("Blend(%v, %v) = %v, expected %v", tt.rule, tt.sim, got, tt.expect)
		}
	}
}

func TestNormalizeL2(t *testing.T) {
	t.Parallel()

	v := []float32{3, 4}
	NormalizeL2(v)
	if v[0] != 0.6 || v[1] != 0.8 {
		t.Fatalf("unexpected normalised vector %v", v)
	}

	zero := []float32{0, 0}
	NormalizeL2(zero)
	if zero[0] != 0 || zero[1] != 0 {
		t.Fatalf("zero vector must stay zero, got %v", zero)
	}
}
