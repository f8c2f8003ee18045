package domain

import (
	"context"
	"sort"
	"time"
)

type ScheduleKind string

const (
	ScheduleClosed   ScheduleKind = "closed"
	ScheduleFullDay  ScheduleKind = "full_day"
	ScheduleWindowed ScheduleKind = "windowed"
)

var ScheduleKinds = []ScheduleKind{ScheduleClosed, ScheduleFullDay, ScheduleWindowed}

// ScheduleEntry is a zone's operating-hours rule for one weekday.
// Window is set only for windowed entries.
type ScheduleEntry struct {
	ID        int64        `json:"id"`
	ZoneID    int32        `json:"zoneId"`
	Weekday   Weekday      `json:"weekday"`
	Kind      ScheduleKind `json:"kind"`
	Window    *TimeWindow  `json:"window,omitempty"`
	IsActive  bool         `json:"isActive"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// WindowDuration returns the open hours of the entry.
// Windows crossing midnight wrap, so 22:00-02:00 is 4 hours.
func (e ScheduleEntry) WindowDuration() float64 {
	switch e.Kind {
	case ScheduleFullDay:
		return 24
	case ScheduleWindowed:
		if e.Window == nil {
			return 0
		}
		return e.Window.Hours()
	default:
		return 0
	}
}

func (e ScheduleEntry) IsOpenAt(t TimeOfDay) bool {
	switch e.Kind {
	case ScheduleFullDay:
		return true
	case ScheduleWindowed:
		return e.Window != nil && e.Window.Contains(t)
	default:
		return false
	}
}

// OpensDuringDay is true for every kind except closed.
func (e ScheduleEntry) OpensDuringDay() bool {
	return e.Kind == ScheduleFullDay || (e.Kind == ScheduleWindowed && e.Window != nil)
}

// ScheduleFor picks the active entry of a zone for a weekday. Duplicate
// entries (bulk imports) resolve to the lowest id.
func ScheduleFor(entries []ScheduleEntry, zoneID int32, weekday Weekday) *ScheduleEntry {
	var found *ScheduleEntry
	for i := range entries {
		e := entries[i]
		if !e.IsActive || e.ZoneID != zoneID || e.Weekday != weekday {
			continue
		}
		if found == nil || e.ID < found.ID {
			found = &e
		}
	}
	return found
}

// openOn reports whether the zone serves deliveries at some point on the weekday.
func openOn(zone Zone, entries []ScheduleEntry, weekday Weekday) bool {
	if e := ScheduleFor(entries, zone.ID, weekday); e != nil {
		return e.OpensDuringDay()
	}
	return zone.Available24h
}

func sortSchedules(entries []ScheduleEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].ZoneID != entries[j].ZoneID {
			return entries[i].ZoneID < entries[j].ZoneID
		}
		if entries[i].Weekday != entries[j].Weekday {
			return entries[i].Weekday < entries[j].Weekday
		}
		return entries[i].ID < entries[j].ID
	})
}

type ScheduleRepository interface {
	ListSchedulesByZone(ctx context.Context, zoneID int32) ([]ScheduleEntry, error)
	ListAllSchedules(ctx context.Context) ([]ScheduleEntry, error)
	GetScheduleByID(ctx context.Context, id int64) (*ScheduleEntry, error)
	CreateSchedule(ctx context.Context, entry *ScheduleEntry) (*ScheduleEntry, error)
	UpdateSchedule(ctx context.Context, entry *ScheduleEntry) (*ScheduleEntry, error)
	DeleteSchedule(ctx context.Context, id int64) error
}
