package domain

import (
	"context"
	"math"
	"sort"
	"time"
)

// DistanceBand maps the half-open distance range [FromKm, ToKm) to a shipping cost.
type DistanceBand struct {
	ID           int64     `json:"id"`
	ZoneID       int32     `json:"zoneId"`
	FromKm       float64   `json:"fromKm"`
	ToKm         float64   `json:"toKm"`
	Cost         float64   `json:"cost"`
	ExtraMinutes int       `json:"extraMinutes"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (b DistanceBand) Covers(distanceKm float64) bool {
	return b.FromKm <= distanceKm && distanceKm < b.ToKm
}

func (b DistanceBand) Overlaps(o DistanceBand) bool {
	return !(b.ToKm <= o.FromKm || o.ToKm <= b.FromKm)
}

func (b DistanceBand) Range() DistanceRange {
	return DistanceRange{FromKm: b.FromKm, ToKm: b.ToKm}
}

type DistanceRange struct {
	FromKm float64 `json:"fromKm"`
	ToKm   float64 `json:"toKm"`
}

func (r DistanceRange) Length() float64 {
	return r.ToKm - r.FromKm
}

// BandOverlap is a pair of active bands whose ranges intersect.
type BandOverlap struct {
	FirstBandID  int64         `json:"firstBandId"`
	SecondBandID int64         `json:"secondBandId"`
	Range        DistanceRange `json:"range"`
}

// activeBands returns a sorted copy of the active bands; the input is never reordered.
// Order is ascending FromKm, then ascending id.
func activeBands(bands []DistanceBand) []DistanceBand {
	out := make([]DistanceBand, 0, len(bands))
	for _, b := range bands {
		if b.IsActive {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].FromKm != out[j].FromKm {
			return out[i].FromKm < out[j].FromKm
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// FindApplicable returns the band covering distanceKm. When imported data
// overlaps, the band with the lowest FromKm wins.
func FindApplicable(bands []DistanceBand, distanceKm float64) (DistanceBand, bool) {
	if math.IsNaN(distanceKm) || distanceKm < 0 {
		return DistanceBand{}, false
	}
	for _, b := range activeBands(bands) {
		if b.Covers(distanceKm) {
			return b, true
		}
	}
	return DistanceBand{}, false
}

// DetectGaps lists uncovered ranges between 0 and the furthest band end.
func DetectGaps(bands []DistanceBand) []DistanceRange {
	sorted := activeBands(bands)
	if len(sorted) == 0 {
		return nil
	}

	var gaps []DistanceRange
	if sorted[0].FromKm > 0 {
		gaps = append(gaps, DistanceRange{FromKm: 0, ToKm: sorted[0].FromKm})
	}

	// reach is the furthest end seen so far; a long band can swallow later ones.
	reach := sorted[0].ToKm
	for _, b := range sorted[1:] {
		if reach < b.FromKm {
			gaps = append(gaps, DistanceRange{FromKm: reach, ToKm: b.FromKm})
		}
		if b.ToKm > reach {
			reach = b.ToKm
		}
	}
	return gaps
}

func DetectOverlaps(bands []DistanceBand) []BandOverlap {
	sorted := activeBands(bands)
	var overlaps []BandOverlap
	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			a, b := sorted[i], sorted[j]
			if !a.Overlaps(b) {
				continue
			}
			overlaps = append(overlaps, BandOverlap{
				FirstBandID:  a.ID,
				SecondBandID: b.ID,
				Range: DistanceRange{
					FromKm: math.Max(a.FromKm, b.FromKm),
					ToKm:   math.Min(a.ToKm, b.ToKm),
				},
			})
		}
	}
	return overlaps
}

// IsCoverageComplete is true when the active bands start at 0 and leave no holes.
func IsCoverageComplete(bands []DistanceBand) bool {
	sorted := activeBands(bands)
	if len(sorted) == 0 || sorted[0].FromKm != 0 {
		return false
	}
	return len(DetectGaps(sorted)) == 0
}

// CoveredLength is the length of the union of active band ranges.
func CoveredLength(bands []DistanceBand) float64 {
	sorted := activeBands(bands)
	if len(sorted) == 0 {
		return 0
	}
	total := 0.0
	cur := sorted[0].Range()
	for _, b := range sorted[1:] {
		if b.FromKm <= cur.ToKm {
			cur.ToKm = math.Max(cur.ToKm, b.ToKm)
			continue
		}
		total += cur.Length()
		cur = b.Range()
	}
	return total + cur.Length()
}

// MaxDistance is the furthest ToKm among active bands.
func MaxDistance(bands []DistanceBand) float64 {
	furthest := 0.0
	for _, b := range bands {
		if b.IsActive && b.ToKm > furthest {
			furthest = b.ToKm
		}
	}
	return furthest
}

type BandRepository interface {
	ListBandsByZone(ctx context.Context, zoneID int32) ([]DistanceBand, error)
	ListAllBands(ctx context.Context) ([]DistanceBand, error)
	GetBandByID(ctx context.Context, id int64) (*DistanceBand, error)
	CreateBand(ctx context.Context, band *DistanceBand) (*DistanceBand, error)
	UpdateBand(ctx context.Context, band *DistanceBand) (*DistanceBand, error)
	DeleteBand(ctx context.Context, id int64) error
}
