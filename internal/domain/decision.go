package domain

import "time"

type AppliedSource string

const (
	SourceSchedule  AppliedSource = "schedule"
	SourceBand      AppliedSource = "band"
	SourceException AppliedSource = "exception"
)

const (
	ReasonNoBand           = "no band covers distance"
	ReasonZoneNotFound     = "zone not found"
	ReasonZoneInactive     = "zone is inactive"
	ReasonNoSchedule       = "no schedule for weekday"
	ReasonOutsideHours     = "outside operating hours"
	ReasonClosedForDay     = "closed for the day"
	ReasonUnavailableDate  = "unavailable on this date"
	ReasonOutsideSpecialHr = "outside special hours"
)

type MinuteRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Decision is the resolved outcome for one zone, instant and distance.
// It is recomputed on every query and never stored.
type Decision struct {
	Available     bool          `json:"available"`
	Cost          *float64      `json:"cost"`
	ExtraMinutes  *MinuteRange  `json:"extraMinutes,omitempty"`
	AppliedSource AppliedSource `json:"appliedSource"`
	Reason        string        `json:"reason,omitempty"`
	BandID        *int64        `json:"bandId,omitempty"`
	ExceptionIDs  []int64       `json:"exceptionIds,omitempty"`
}

// ZoneSnapshot is the read-only view of one zone's tables used for a single resolution.
type ZoneSnapshot struct {
	Zone       Zone
	Schedules  []ScheduleEntry
	Bands      []DistanceBand
	Exceptions []Exception
}

// dateOverrides holds the first applicable exception of each kind, by id.
type dateOverrides struct {
	unavailable *Exception
	hours       *Exception
	cost        *Exception
	estimate    *Exception
}

func collectOverrides(exceptions []Exception, zoneID int32, date Date, t TimeOfDay) dateOverrides {
	var ov dateOverrides
	for _, e := range ExceptionsOn(exceptions, zoneID, date) {
		if !e.AppliesAt(t) {
			continue
		}
		switch e.Rule.(type) {
		case Unavailable:
			if ov.unavailable == nil {
				ov.unavailable = &e
			}
		case SpecialHours:
			if ov.hours == nil {
				ov.hours = &e
			}
		case SpecialCost:
			if ov.cost == nil {
				ov.cost = &e
			}
		case SpecialTimeEstimate:
			if ov.estimate == nil {
				ov.estimate = &e
			}
		}
	}
	return ov
}

// Resolve combines exceptions, the weekly schedule and distance bands into a Decision.
// The instant is read in its own location, so callers convert it to the service time
// zone first. Resolve is pure: it never mutates the snapshot.
//
// Precedence on the same field: unavailable > special-hours > special-cost > special-time-estimate.
func Resolve(snap ZoneSnapshot, instant time.Time, distanceKm float64) Decision {
	zone := snap.Zone
	if !zone.IsActive {
		return Decision{AppliedSource: SourceSchedule, Reason: ReasonZoneInactive}
	}

	date := DateOf(instant)
	tod := TimeOfDayOf(instant)
	ov := collectOverrides(snap.Exceptions, zone.ID, date, tod)

	if ov.unavailable != nil {
		reason := ov.unavailable.Reason
		if reason == "" {
			reason = ReasonUnavailableDate
		}
		return Decision{
			AppliedSource: SourceException,
			Reason:        reason,
			ExceptionIDs:  []int64{ov.unavailable.ID},
		}
	}

	var contributed []int64
	if ov.hours != nil {
		contributed = append(contributed, ov.hours.ID)
		window := ov.hours.Rule.(SpecialHours).Window
		if !window.Contains(tod) {
			return Decision{
				AppliedSource: SourceException,
				Reason:        ReasonOutsideSpecialHr,
				ExceptionIDs:  contributed,
			}
		}
	} else if closed, reason := closedBySchedule(zone, snap.Schedules, ISOWeekday(instant), tod); closed {
		return Decision{AppliedSource: SourceSchedule, Reason: reason}
	}

	d := Decision{Available: true, AppliedSource: SourceBand}
	if band, ok := FindApplicable(snap.Bands, distanceKm); ok {
		cost := band.Cost
		id := band.ID
		d.Cost = &cost
		d.ExtraMinutes = &MinuteRange{Min: band.ExtraMinutes, Max: band.ExtraMinutes}
		d.BandID = &id
	} else {
		d.Reason = ReasonNoBand
	}

	if ov.cost != nil {
		amount := ov.cost.Rule.(SpecialCost).Amount
		d.Cost = &amount
		d.Reason = ""
		d.AppliedSource = SourceException
		contributed = append(contributed, ov.cost.ID)
	}
	if ov.estimate != nil {
		est := ov.estimate.Rule.(SpecialTimeEstimate)
		d.ExtraMinutes = &MinuteRange{Min: est.MinMinutes, Max: est.MaxMinutes}
		d.AppliedSource = SourceException
		contributed = append(contributed, ov.estimate.ID)
	}
	d.ExceptionIDs = contributed
	return d
}

func closedBySchedule(zone Zone, entries []ScheduleEntry, weekday Weekday, t TimeOfDay) (bool, string) {
	entry := ScheduleFor(entries, zone.ID, weekday)
	if entry == nil {
		if zone.Available24h {
			return false, ""
		}
		return true, ReasonNoSchedule
	}
	if entry.IsOpenAt(t) {
		return false, ""
	}
	if entry.Kind == ScheduleClosed {
		return true, ReasonClosedForDay
	}
	return true, ReasonOutsideHours
}
