package tpf

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func maskFromRows(rows [][]int) Mask {
	m := NewMask(len(rows), len(rows[0]))
	for y, row := range rows {
		for x, v := range row {
			m.Set(y, x, v != 0)
		}
	}
	return m
}

func TestMaskRoll_Identity(t *testing.T) {
	m := maskFromRows([][]int{
		{0, 1, 0},
		{1, 1, 1},
		{0, 1, 0},
	})
	assert.Equal(t, m.Bits, m.Roll(0, 0).Bits)
}

func TestMaskRoll_ShiftsWithWrap(t *testing.T) {
	m := maskFromRows([][]int{
		{1, 0, 0},
		{0, 0, 0},
		{0, 0, 0},
	})

	down := m.Roll(1, 0)
	assert.True(t, down.At(1, 0))
	assert.False(t, down.At(0, 0))

	// Rolling off the bottom edge wraps to the top.
	wrapped := m.Roll(-1, 0)
	assert.True(t, wrapped.At(2, 0))

	diag := m.Roll(2, 2)
	assert.True(t, diag.At(2, 2))
}

func TestMaskRoll_PreservesCount(t *testing.T) {
	m := maskFromRows([][]int{
		{0, 1, 1},
		{1, 1, 0},
		{0, 0, 1},
	})
	for _, shift := range [][2]int{{1, 0}, {0, 1}, {-2, 3}, {5, -7}} {
		r := m.Roll(shift[0], shift[1])
		assert.Equal(t, m.Count(), r.Count(), "shift %v", shift)
	}
}

func TestMaskRoll_FullPeriodIsIdentity(t *testing.T) {
	m := maskFromRows([][]int{
		{0, 1, 0, 0},
		{1, 1, 1, 0},
	})
	r := m.Roll(2, 4)
	if diff := cmp.Diff(m.Bits, r.Bits); diff != "" {
		t.Errorf("full-period roll changed mask (-want +got):\n%s", diff)
	}
}

func TestStampAt(t *testing.T) {
	s := Stamp{Data: []float64{1, 2, 3, 4, 5, 6}, Height: 2, Width: 3}
	assert.Equal(t, 1.0, s.At(0, 0))
	assert.Equal(t, 6.0, s.At(1, 2))
}

func TestMedian(t *testing.T) {
	assert.Equal(t, 2.0, median([]float64{3, 1, 2}))
	assert.Equal(t, 2.5, median([]float64{4, 1, 2, 3}))
}
