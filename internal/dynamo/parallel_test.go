package dynamo

import (
	"errors"
	"testing"
)

func TestParallelFor_CoversRange(t *testing.T) {
	for _, n := range []int{0, 1, 7, 100, 1013} {
		hits := make([]int, n)
		ParallelFor(n, 8, func(start, end int) {
			for i := start; i < end; i++ {
				hits[i]++
			}
		})
		for i, h := range hits {
			if h != 1 {
				t.Fatalf("n=%d: index %d visited %d times", n, i, h)
			}
		}
	}
}

func TestParallelForErr_ReturnsError(t *testing.T) {
	boom := errors.New("boom")
	err := ParallelForErr(1000, 10, func(start, end int) error {
		if start <= 500 && 500 < end {
			return boom
		}
		return nil
	})
	if !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}
}
