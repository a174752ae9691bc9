package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datallboy/fanout/internal/domain"
)

func makeUnits(n int) []domain.TransferUnit {
	units := make([]domain.TransferUnit, n)
	for i := range units {
		units[i] = domain.TransferUnit{
			Source:      fmt.Sprintf("http://example.com/%d.jpg", i),
			Destination: fmt.Sprintf("/out/%d.jpg", i),
		}
	}
	return units
}

func partitionSizes(parts []domain.Partition) []int {
	sizes := make([]int, len(parts))
	for i, p := range parts {
		sizes[i] = len(p.Units)
	}
	return sizes
}

func TestSplitExamples(t *testing.T) {
	tests := []struct {
		name string
		n, k int
		want []int
	}{
		{name: "even", n: 32, k: 16, want: []int{2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2}},
		{name: "remainder folds into last", n: 17, k: 16, want: []int{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 2}},
		{name: "fewer units than workers", n: 3, k: 16, want: []int{1, 1, 1}},
		{name: "single worker", n: 5, k: 1, want: []int{5}},
		{name: "ten over three", n: 10, k: 3, want: []int{3, 3, 4}},
		{name: "zero workers means one", n: 4, k: 0, want: []int{4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parts := Split(makeUnits(tt.n), tt.k)
			assert.Equal(t, tt.want, partitionSizes(parts))
		})
	}
}

func TestSplitEmpty(t *testing.T) {
	assert.Empty(t, Split(nil, 16))
	assert.Empty(t, Split([]domain.TransferUnit{}, 4))
}

func TestSplitCoversEveryUnitOnceInOrder(t *testing.T) {
	for n := 1; n <= 40; n++ {
		for k := 1; k <= 20; k++ {
			units := makeUnits(n)
			parts := Split(units, k)

			require.LessOrEqual(t, len(parts), k, "n=%d k=%d", n, k)
			require.LessOrEqual(t, len(parts), n, "n=%d k=%d", n, k)

			var flat []domain.TransferUnit
			for i, p := range parts {
				require.Equal(t, i, p.WorkerID)
				require.NotEmpty(t, p.Units, "n=%d k=%d", n, k)
				flat = append(flat, p.Units...)
			}
			require.Equal(t, units, flat, "n=%d k=%d", n, k)
		}
	}
}

func TestSplitPartitionsDoNotAlias(t *testing.T) {
	units := makeUnits(4)
	parts := Split(units, 2)
	require.Len(t, parts, 2)

	grown := append(parts[0].Units, domain.TransferUnit{Source: "x"})
	assert.Equal(t, "x", grown[2].Source)
	assert.Equal(t, units[2], parts[1].Units[0], "appending to one partition must not overwrite the next")
}
