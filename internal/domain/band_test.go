package domain

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func band(id int64, from, to, cost float64) DistanceBand {
	return DistanceBand{ID: id, ZoneID: 1, FromKm: from, ToKm: to, Cost: cost, IsActive: true}
}

func TestFindApplicable(t *testing.T) {
	bands := []DistanceBand{band(2, 2, 5, 8), band(1, 0, 2, 5)}

	t.Run("Inside Band", func(t *testing.T) {
		b, ok := FindApplicable(bands, 2.5)
		require.True(t, ok)
		assert.Equal(t, int64(2), b.ID)
	})

	t.Run("Upper Bound Exclusive", func(t *testing.T) {
		b, ok := FindApplicable(bands, 2.0)
		require.True(t, ok)
		assert.Equal(t, int64(2), b.ID)
	})

	t.Run("Zero Distance", func(t *testing.T) {
		b, ok := FindApplicable(bands, 0)
		require.True(t, ok)
		assert.Equal(t, int64(1), b.ID)
	})

	t.Run("Not Covered", func(t *testing.T) {
		_, ok := FindApplicable(bands, 7.0)
		assert.False(t, ok)
		_, ok = FindApplicable(bands, -1)
		assert.False(t, ok)
	})

	t.Run("Inactive Ignored", func(t *testing.T) {
		inactive := band(3, 5, 10, 9)
		inactive.IsActive = false
		_, ok := FindApplicable(append(bands, inactive), 7.0)
		assert.False(t, ok)
	})

	t.Run("Overlap Picks Lowest From", func(t *testing.T) {
		overlapping := []DistanceBand{band(10, 1, 6, 20), band(11, 0, 4, 10)}
		b, ok := FindApplicable(overlapping, 3)
		require.True(t, ok)
		assert.Equal(t, int64(11), b.ID)
	})

	t.Run("Input Not Reordered", func(t *testing.T) {
		in := []DistanceBand{band(2, 2, 5, 8), band(1, 0, 2, 5)}
		FindApplicable(in, 1)
		assert.Equal(t, int64(2), in[0].ID)
	})
}

func TestDetectGaps(t *testing.T) {
	t.Run("Leading And Inner Gaps", func(t *testing.T) {
		bands := []DistanceBand{band(2, 5, 8, 7), band(1, 1, 3, 4)}
		gaps := DetectGaps(bands)
		assert.Equal(t, []DistanceRange{{FromKm: 0, ToKm: 1}, {FromKm: 3, ToKm: 5}}, gaps)
		assert.False(t, IsCoverageComplete(bands))
	})

	t.Run("Contiguous", func(t *testing.T) {
		bands := []DistanceBand{band(1, 0, 3, 4), band(2, 3, 6, 6)}
		assert.Empty(t, DetectGaps(bands))
		assert.True(t, IsCoverageComplete(bands))
	})

	t.Run("Long Band Swallows Later Ones", func(t *testing.T) {
		bands := []DistanceBand{band(1, 0, 10, 4), band(2, 2, 3, 6), band(3, 5, 12, 9)}
		assert.Empty(t, DetectGaps(bands))
	})

	t.Run("Empty", func(t *testing.T) {
		assert.Nil(t, DetectGaps(nil))
		assert.False(t, IsCoverageComplete(nil))
	})
}

func TestGapComplement(t *testing.T) {
	bands := []DistanceBand{band(1, 0.5, 2, 1), band(2, 2, 3.5, 2), band(3, 6, 9, 3), band(4, 12, 20, 4)}
	gaps := DetectGaps(bands)

	var pieces []DistanceRange
	for _, b := range bands {
		pieces = append(pieces, b.Range())
	}
	pieces = append(pieces, gaps...)
	sort.Slice(pieces, func(i, j int) bool { return pieces[i].FromKm < pieces[j].FromKm })

	// The pieces tile [0, max) exactly: each one starts where the previous ended.
	assert.Equal(t, 0.0, pieces[0].FromKm)
	for i := 1; i < len(pieces); i++ {
		assert.Equal(t, pieces[i-1].ToKm, pieces[i].FromKm, "piece %d", i)
	}
	assert.Equal(t, 20.0, pieces[len(pieces)-1].ToKm)
}

func TestDetectOverlaps(t *testing.T) {
	bands := []DistanceBand{band(1, 0, 4, 1), band(2, 3, 6, 2), band(3, 6, 9, 3), band(4, 5, 7, 4)}
	overlaps := DetectOverlaps(bands)

	require.Len(t, overlaps, 3)
	assert.Equal(t, BandOverlap{FirstBandID: 1, SecondBandID: 2, Range: DistanceRange{FromKm: 3, ToKm: 4}}, overlaps[0])
	assert.Equal(t, BandOverlap{FirstBandID: 2, SecondBandID: 4, Range: DistanceRange{FromKm: 5, ToKm: 6}}, overlaps[1])
	assert.Equal(t, BandOverlap{FirstBandID: 4, SecondBandID: 3, Range: DistanceRange{FromKm: 6, ToKm: 7}}, overlaps[2])

	assert.Empty(t, DetectOverlaps([]DistanceBand{band(1, 0, 3, 1), band(2, 3, 6, 2)}), "touching bands do not overlap")
}

func TestCoveredLength(t *testing.T) {
	bands := []DistanceBand{band(1, 0, 4, 1), band(2, 3, 6, 2), band(3, 8, 10, 3)}
	assert.Equal(t, 8.0, CoveredLength(bands))
	assert.Equal(t, 10.0, MaxDistance(bands))
}
