package embeddings

import (
	"context"
	"testing"
)

func TestSplitBatches(t *testing.T) {
	tests := []struct {
		name  string
		count int
		size  int
		want  []int
	}{
		{"empty", 0, 32, []int{}},
		{"single partial", 5, 32, []int{5}},
		{"exact", 64, 32, []int{32, 32}},
		{"remainder", 70, 32, []int{32, 32, 6}},
		{"size one", 3, 1, []int{1, 1, 1}},
		{"zero size treated as one", 2, 0, []int{1, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			texts := make([]string, tt.count)
			for i := range texts {
				texts[i] = "t"
			}

			batches := splitBatches(texts, tt.size)
			if len(batches) != len(tt.want) {
				t.Fatalf("expected %d batches, got %d", len(tt.want), len(batches))
			}

			for i, b := range batches {
				if len(b) != tt.want[i] {
					t.Errorf("batch %d: expected %d texts, got %d", i, tt.want[i], len(b))
				}
			}
		})
	}
}

func TestMockDeterministic(t *testing.T) {
	m := NewMock(64)

	first, err := m.EmbedBatch(context.Background(), []string{"скидка на смартфон", "другой текст"})
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}

	second, err := m.EmbedBatch(context.Background(), []string{"скидка на смартфон"})
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}

	if len(first) != 2 || len(first[0]) != 64 {
		t.Fatalf("unexpected shape: %d x %d", len(first), len(first[0]))
	}

	for i := range first[0] {
		if first[0][i] != second[0][i] {
			t.Fatal("same text produced different vectors")
		}
	}

	var norm float64
	for _, v := range first[0] {
		norm += float64(v) * float64(v)
	}

	if norm < 0.99 || norm > 1.01 {
		t.Errorf("expected unit vector, squared norm %f", norm)
	}
}
