package domain

import (
	"math"
	"sort"
	"time"
)

type CoverageLevel string

const (
	CoverageFull    CoverageLevel = "full"
	CoveragePartial CoverageLevel = "partial"
	CoverageNone    CoverageLevel = "none"
)

// DayCoverage summarizes one weekday across all active zones.
type DayCoverage struct {
	Weekday     Weekday       `json:"weekday"`
	Name        string        `json:"name"`
	Level       CoverageLevel `json:"level"`
	OpenZones   int           `json:"openZones"`
	ActiveZones int           `json:"activeZones"`
}

// WeeklyCoverage classifies each weekday as fully, partially or not covered.
func WeeklyCoverage(zones []Zone, schedules []ScheduleEntry) []DayCoverage {
	days := make([]DayCoverage, 0, len(Weekdays))
	for _, wd := range Weekdays {
		day := DayCoverage{Weekday: wd, Name: wd.String()}
		for _, z := range zones {
			if !z.IsActive {
				continue
			}
			day.ActiveZones++
			if openOn(z, schedules, wd) {
				day.OpenZones++
			}
		}
		switch {
		case day.ActiveZones > 0 && day.OpenZones == day.ActiveZones:
			day.Level = CoverageFull
		case day.OpenZones > 0:
			day.Level = CoveragePartial
		default:
			day.Level = CoverageNone
		}
		days = append(days, day)
	}
	return days
}

// ScheduleConflict is a zone/weekday holding more than one active entry.
type ScheduleConflict struct {
	ZoneID   int32   `json:"zoneId"`
	Weekday  Weekday `json:"weekday"`
	EntryIDs []int64 `json:"entryIds"`
}

func ScheduleConflicts(schedules []ScheduleEntry) []ScheduleConflict {
	sorted := make([]ScheduleEntry, 0, len(schedules))
	for _, s := range schedules {
		if s.IsActive {
			sorted = append(sorted, s)
		}
	}
	sortSchedules(sorted)

	var conflicts []ScheduleConflict
	for i := 0; i < len(sorted); {
		j := i + 1
		for j < len(sorted) && sorted[j].ZoneID == sorted[i].ZoneID && sorted[j].Weekday == sorted[i].Weekday {
			j++
		}
		if j-i > 1 {
			c := ScheduleConflict{ZoneID: sorted[i].ZoneID, Weekday: sorted[i].Weekday}
			for _, s := range sorted[i:j] {
				c.EntryIDs = append(c.EntryIDs, s.ID)
			}
			conflicts = append(conflicts, c)
		}
		i = j
	}
	return conflicts
}

type GapFillBasis string

const (
	BasisInterpolated GapFillBasis = "interpolated"
	BasisLowerOnly    GapFillBasis = "lower_neighbor"
	BasisUpperOnly    GapFillBasis = "upper_neighbor"
	BasisDefault      GapFillBasis = "default"
)

const (
	lowerNeighborFactor = 1.2
	upperNeighborFactor = 0.8
)

type GapFillDefaults struct {
	Cost         float64
	ExtraMinutes int
}

// GapSuggestion is advisory output; it is never written back to the band table.
type GapSuggestion struct {
	Gap                   DistanceRange `json:"gap"`
	SuggestedCost         float64       `json:"suggestedCost"`
	SuggestedExtraMinutes int           `json:"suggestedExtraMinutes"`
	Basis                 GapFillBasis  `json:"basis"`
	LowerBandID           *int64        `json:"lowerBandId,omitempty"`
	UpperBandID           *int64        `json:"upperBandId,omitempty"`
}

// SuggestGapFill estimates a cost for an uncovered range from the bands around it.
func SuggestGapFill(gap DistanceRange, bands []DistanceBand, defaults GapFillDefaults) GapSuggestion {
	var lower, upper *DistanceBand
	for _, b := range activeBands(bands) {
		if b.ToKm <= gap.FromKm && (lower == nil || b.ToKm > lower.ToKm) {
			lower = &b
		}
		if b.FromKm >= gap.ToKm && upper == nil {
			upper = &b
		}
	}

	s := GapSuggestion{Gap: gap}
	switch {
	case lower != nil && upper != nil:
		s.Basis = BasisInterpolated
		s.SuggestedCost = (lower.Cost + upper.Cost) / 2
		s.SuggestedExtraMinutes = int(math.Round(float64(lower.ExtraMinutes+upper.ExtraMinutes) / 2))
	case lower != nil:
		s.Basis = BasisLowerOnly
		s.SuggestedCost = lower.Cost * lowerNeighborFactor
		s.SuggestedExtraMinutes = int(math.Round(float64(lower.ExtraMinutes) * lowerNeighborFactor))
	case upper != nil:
		s.Basis = BasisUpperOnly
		s.SuggestedCost = upper.Cost * upperNeighborFactor
		s.SuggestedExtraMinutes = int(math.Round(float64(upper.ExtraMinutes) * upperNeighborFactor))
	default:
		s.Basis = BasisDefault
		s.SuggestedCost = defaults.Cost
		s.SuggestedExtraMinutes = defaults.ExtraMinutes
	}
	s.SuggestedCost = roundCents(s.SuggestedCost)
	if lower != nil {
		id := lower.ID
		s.LowerBandID = &id
	}
	if upper != nil {
		id := upper.ID
		s.UpperBandID = &id
	}
	return s
}

// ZoneCoverageReport is the administrative view of one zone's tables.
type ZoneCoverageReport struct {
	ZoneID                  int32                `json:"zoneId"`
	ZoneKey                 string               `json:"zoneKey"`
	Gaps                    []DistanceRange      `json:"gaps"`
	Overlaps                []BandOverlap        `json:"overlaps"`
	Complete                bool                 `json:"complete"`
	MaxDistanceKm           float64              `json:"maxDistanceKm"`
	BandCoveragePercent     float64              `json:"bandCoveragePercent"`
	OpenWeekdays            []Weekday            `json:"openWeekdays"`
	ScheduleCoveragePercent float64              `json:"scheduleCoveragePercent"`
	Conflicts               []ScheduleConflict   `json:"conflicts"`
	Suggestions             []GapSuggestion      `json:"suggestions"`
	// MalformedExceptions lists stored exception rows that resolution skips.
	MalformedExceptions     []MalformedException `json:"malformedExceptions,omitempty"`
	GeneratedAt             time.Time            `json:"generatedAt"`
}

func BuildZoneReport(zone Zone, bands []DistanceBand, schedules []ScheduleEntry, defaults GapFillDefaults, now time.Time) ZoneCoverageReport {
	r := ZoneCoverageReport{
		ZoneID:        zone.ID,
		ZoneKey:       zone.Key,
		Gaps:          DetectGaps(bands),
		Overlaps:      DetectOverlaps(bands),
		Complete:      IsCoverageComplete(bands),
		MaxDistanceKm: MaxDistance(bands),
		Conflicts:     ScheduleConflicts(schedules),
		GeneratedAt:   now,
	}
	if r.MaxDistanceKm > 0 {
		r.BandCoveragePercent = roundCents(CoveredLength(bands) / r.MaxDistanceKm * 100)
	}

	for _, wd := range Weekdays {
		if openOn(zone, schedules, wd) {
			r.OpenWeekdays = append(r.OpenWeekdays, wd)
		}
	}
	r.ScheduleCoveragePercent = roundCents(float64(len(r.OpenWeekdays)) / float64(len(Weekdays)) * 100)

	for _, gap := range r.Gaps {
		r.Suggestions = append(r.Suggestions, SuggestGapFill(gap, bands, defaults))
	}
	return r
}

// ZoneCoverageRow is one line of the all-zones summary.
type ZoneCoverageRow struct {
	ZoneID   int32  `json:"zoneId"`
	ZoneKey  string `json:"zoneKey"`
	IsActive bool   `json:"isActive"`
	Complete bool   `json:"complete"`
	Gaps     int    `json:"gaps"`
	Overlaps int    `json:"overlaps"`
}

type CoverageSummary struct {
	Days             []DayCoverage      `json:"days"`
	FullyCoveredDays int                `json:"fullyCoveredDays"`
	Conflicts        []ScheduleConflict `json:"conflicts"`
	Zones            []ZoneCoverageRow  `json:"zones"`
	GeneratedAt      time.Time          `json:"generatedAt"`
}

func BuildCoverageSummary(zones []Zone, schedules []ScheduleEntry, bands []DistanceBand, now time.Time) CoverageSummary {
	s := CoverageSummary{
		Days:        WeeklyCoverage(zones, schedules),
		Conflicts:   ScheduleConflicts(schedules),
		GeneratedAt: now,
	}
	for _, d := range s.Days {
		if d.Level == CoverageFull {
			s.FullyCoveredDays++
		}
	}

	byZone := make(map[int32][]DistanceBand)
	for _, b := range bands {
		byZone[b.ZoneID] = append(byZone[b.ZoneID], b)
	}
	sortedZones := append([]Zone(nil), zones...)
	sort.Slice(sortedZones, func(i, j int) bool { return sortedZones[i].ID < sortedZones[j].ID })
	for _, z := range sortedZones {
		zb := byZone[z.ID]
		s.Zones = append(s.Zones, ZoneCoverageRow{
			ZoneID:   z.ID,
			ZoneKey:  z.Key,
			IsActive: z.IsActive,
			Complete: IsCoverageComplete(zb),
			Gaps:     len(DetectGaps(zb)),
			Overlaps: len(DetectOverlaps(zb)),
		})
	}
	return s
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
