package interval

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

type span struct {
	low, high int64
	id        int
}

func collect(tree *Tree[int], low, high int64) []int {
	var got []int
	tree.Enumerate(low, high, func(id int) {
		got = append(got, id)
	})
	sort.Ints(got)
	return got
}

func TestEmpty(t *testing.T) {
	tree := New[int]()
	require.Equal(t, 0, tree.Len())
	require.Empty(t, collect(tree, 0, 100))
}

func TestStabbingQueries(t *testing.T) {
	spans := []span{
		{1, 5, 0},
		{2, 2, 1},
		{4, 10, 2},
		{7, 8, 3},
		{10, 20, 4},
		{15, 15, 5},
	}
	tree := New[int]()
	for _, s := range spans {
		tree.Insert(s.low, s.high, s.id)
	}
	require.Equal(t, len(spans), tree.Len())

	tests := []struct {
		name      string
		low, high int64
		want      []int
	}{
		{"point before all", 0, 0, nil},
		{"point at low edge", 1, 1, []int{0}},
		{"point hits two", 2, 2, []int{0, 1}},
		{"point in overlap", 4, 4, []int{0, 2}},
		{"point between", 6, 6, []int{2}},
		{"point at shared boundary", 10, 10, []int{2, 4}},
		{"point inside widest", 17, 17, []int{4}},
		{"point after all", 25, 25, nil},
		{"range covering everything", 0, 30, []int{0, 1, 2, 3, 4, 5}},
		{"range in the middle", 6, 9, []int{2, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := collect(tree, tt.low, tt.high)
			if tt.want == nil {
				require.Empty(t, got)
			} else {
				require.Equal(t, tt.want, got)
			}
		})
	}
}

func TestMatchesBruteForce(t *testing.T) {
	// Deterministic pseudo-random intervals, checked against a linear scan
	// at every point.
	var spans []span
	seed := int64(12345)
	next := func(n int64) int64 {
		seed = (seed*6364136223846793005 + 1442695040888963407) % (1 << 31)
		if seed < 0 {
			seed = -seed
		}
		return seed % n
	}
	tree := New[int]()
	for i := 0; i < 200; i++ {
		low := next(500)
		high := low + next(40)
		spans = append(spans, span{low, high, i})
		tree.Insert(low, high, i)
	}

	for point := int64(0); point < 550; point += 7 {
		var want []int
		for _, s := range spans {
			if s.low <= point && point <= s.high {
				want = append(want, s.id)
			}
		}
		sort.Ints(want)
		got := collect(tree, point, point)
		require.Equal(t, want, got, "point %d", point)
	}
}

func TestInsertAfterQueryRebuilds(t *testing.T) {
	tree := New[int]()
	tree.Insert(1, 3, 0)
	require.Equal(t, []int{0}, collect(tree, 2, 2))

	tree.Insert(2, 5, 1)
	require.Equal(t, []int{0, 1}, collect(tree, 2, 2))
}
