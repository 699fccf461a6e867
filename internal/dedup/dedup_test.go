package dedup

import (
	"math"
	"testing"

	"github.com/rs/zerolog"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float32
	}{
		{"identical", []float32{1, 0, 0}, []float32{1, 0, 0}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"scaled", []float32{1, 2, 3}, []float32{2, 4, 6}, 1},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
		{"length mismatch", []float32{1, 0}, []float32{1, 0, 0}, 0},
		{"empty", nil, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if math.Abs(float64(got-tt.want)) > 1e-6 {
				t.Errorf("CosineSimilarity() = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestCosineSimilaritySymmetric(t *testing.T) {
	a := []float32{0.3, -0.2, 0.9, 0.1}
	b := []float32{0.1, 0.5, 0.4, -0.7}

	if CosineSimilarity(a, b) != CosineSimilarity(b, a) {
		t.Error("cosine similarity must be symmetric")
	}
}

func TestIsDuplicate(t *testing.T) {
	nop := zerolog.Nop()
	d := New(0.85, &nop)

	refs := [][]float32{
		{0, 1, 0},
		{1, 0, 0},
	}

	t.Run("match short-circuits to first hit", func(t *testing.T) {
		dup, idx := d.IsDuplicate([]float32{0, 0.99, 0.01}, refs)
		if !dup || idx != 0 {
			t.Errorf("expected duplicate at index 0, got %v %d", dup, idx)
		}
	})

	t.Run("below threshold", func(t *testing.T) {
		dup, idx := d.IsDuplicate([]float32{0.7, 0.7, 0}, refs)
		if dup || idx != -1 {
			t.Errorf("expected no duplicate, got %v %d", dup, idx)
		}
	})

	t.Run("zero-norm candidate", func(t *testing.T) {
		dup, idx := d.IsDuplicate([]float32{0, 0, 0}, refs)
		if dup || idx != -1 {
			t.Errorf("zero-norm candidate must not be a duplicate, got %v %d", dup, idx)
		}
	})

	t.Run("no references", func(t *testing.T) {
		dup, _ := d.IsDuplicate([]float32{1, 0, 0}, nil)
		if dup {
			t.Error("expected no duplicate with empty reference window")
		}
	})

	t.Run("exact threshold is a duplicate", func(t *testing.T) {
		exact := New(1.0, &nop)

		dup, idx := exact.IsDuplicate([]float32{2, 0, 0}, refs)
		if !dup || idx != 1 {
			t.Errorf("expected duplicate at index 1, got %v %d", dup, idx)
		}
	})
}
