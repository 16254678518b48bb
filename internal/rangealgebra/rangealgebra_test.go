package rangealgebra

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func intOrd() Ordering[int] {
	return Ordering[int]{
		Less: func(a, b int) bool { return a < b },
		Next: func(x int) int { return x + 1 },
	}
}

func TestMergeEmpty(t *testing.T) {
	if got := Merge([]Range[int]{}, intOrd()); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestMergeAdjacentAndOverlapping(t *testing.T) {
	in := []Range[int]{{10, 20}, {1, 5}, {21, 30}, {6, 9}, {25, 40}}
	want := []Range[int]{{1, 40}}
	got := Merge(in, intOrd())
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("merge mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeIsIdempotent(t *testing.T) {
	in := []Range[int]{{10, 20}, {1, 5}, {21, 30}, {6, 9}, {25, 40}, {100, 105}}
	once := Merge(in, intOrd())
	twice := Merge(once, intOrd())
	if diff := cmp.Diff(once, twice); diff != "" {
		t.Fatalf("merge not idempotent (-once +twice):\n%s", diff)
	}
}

func TestMergePreservesMembership(t *testing.T) {
	in := []Range[int]{{10, 20}, {1, 5}, {21, 30}, {6, 9}}
	out := Merge(in, intOrd())
	for _, r := range in {
		for x := r.Lo; x <= r.Hi; x++ {
			count := 0
			for _, o := range out {
				if x >= o.Lo && x <= o.Hi {
					count++
				}
			}
			if count != 1 {
				t.Fatalf("value %d covered by %d output ranges, want 1", x, count)
			}
		}
	}
}

func TestMergeDisjoint(t *testing.T) {
	in := []Range[int]{{1, 2}, {10, 12}}
	want := []Range[int]{{1, 2}, {10, 12}}
	got := Merge(in, intOrd())
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("merge mismatch (-want +got):\n%s", diff)
	}
}
