package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2024-01-15 is a Monday.
var monday = Date{Year: 2024, Month: time.January, Day: 15}

func at(clock string) time.Time {
	tod := MustTimeOfDay(clock)
	return monday.In(time.UTC).Add(tod.Duration())
}

func exception(id int64, rule ExceptionRule) Exception {
	return Exception{ID: id, ZoneID: 1, Date: monday, Rule: rule, IsActive: true}
}

func baseSnapshot() ZoneSnapshot {
	return ZoneSnapshot{
		Zone:      Zone{ID: 1, Key: "north", IsActive: true},
		Schedules: []ScheduleEntry{windowed(1, 1, 1, "09:00", "21:00")},
		Bands: []DistanceBand{
			{ID: 1, ZoneID: 1, FromKm: 0, ToKm: 3, Cost: 60, IsActive: true},
			{ID: 2, ZoneID: 1, FromKm: 3, ToKm: 8, Cost: 80, ExtraMinutes: 15, IsActive: true},
		},
	}
}

func TestResolveSchedule(t *testing.T) {
	snap := baseSnapshot()

	t.Run("Open Within Hours", func(t *testing.T) {
		d := Resolve(snap, at("10:00"), 4)
		assert.True(t, d.Available)
		require.NotNil(t, d.Cost)
		assert.Equal(t, 80.0, *d.Cost)
		assert.Equal(t, &MinuteRange{Min: 15, Max: 15}, d.ExtraMinutes)
		assert.Equal(t, SourceBand, d.AppliedSource)
		require.NotNil(t, d.BandID)
		assert.Equal(t, int64(2), *d.BandID)
		assert.Empty(t, d.ExceptionIDs)
	})

	t.Run("Window End Inclusive", func(t *testing.T) {
		d := Resolve(snap, at("21:00:00"), 1)
		assert.True(t, d.Available)
	})

	t.Run("Outside Hours", func(t *testing.T) {
		d := Resolve(snap, at("21:00:01"), 1)
		assert.False(t, d.Available)
		assert.Nil(t, d.Cost)
		assert.Equal(t, SourceSchedule, d.AppliedSource)
		assert.Equal(t, ReasonOutsideHours, d.Reason)
	})

	t.Run("No Entry For Weekday", func(t *testing.T) {
		d := Resolve(snap, at("10:00").Add(24*time.Hour), 1)
		assert.False(t, d.Available)
		assert.Equal(t, SourceSchedule, d.AppliedSource)
		assert.Equal(t, ReasonNoSchedule, d.Reason)
	})

	t.Run("No Band Covers Distance", func(t *testing.T) {
		d := Resolve(snap, at("10:00"), 8)
		assert.True(t, d.Available)
		assert.Nil(t, d.Cost)
		assert.Equal(t, SourceBand, d.AppliedSource)
		assert.Equal(t, ReasonNoBand, d.Reason)
	})

	t.Run("Inactive Zone", func(t *testing.T) {
		inactive := baseSnapshot()
		inactive.Zone.IsActive = false
		d := Resolve(inactive, at("10:00"), 1)
		assert.False(t, d.Available)
		assert.Equal(t, SourceSchedule, d.AppliedSource)
		assert.Equal(t, ReasonZoneInactive, d.Reason)
	})
}

func TestResolveAvailable24h(t *testing.T) {
	snap := baseSnapshot()
	snap.Zone.Available24h = true

	t.Run("Weekday Without Entry Is Open", func(t *testing.T) {
		d := Resolve(snap, at("03:00").Add(24*time.Hour), 1)
		assert.True(t, d.Available)
		assert.Equal(t, SourceBand, d.AppliedSource)
	})

	t.Run("Explicit Entry Wins", func(t *testing.T) {
		d := Resolve(snap, at("03:00"), 1)
		assert.False(t, d.Available)
		assert.Equal(t, ReasonOutsideHours, d.Reason)
	})

	t.Run("Closed Entry Wins", func(t *testing.T) {
		closed := snap
		closed.Schedules = []ScheduleEntry{{ID: 7, ZoneID: 1, Weekday: 1, Kind: ScheduleClosed, IsActive: true}}
		d := Resolve(closed, at("12:00"), 1)
		assert.False(t, d.Available)
		assert.Equal(t, ReasonClosedForDay, d.Reason)
	})
}

func TestResolveMidnightWindow(t *testing.T) {
	snap := baseSnapshot()
	snap.Schedules = []ScheduleEntry{windowed(1, 1, 1, "22:00", "02:00")}

	assert.True(t, Resolve(snap, at("23:30"), 1).Available)
	assert.True(t, Resolve(snap, at("01:00"), 1).Available)
	assert.False(t, Resolve(snap, at("12:00"), 1).Available)
}

func TestResolveExceptions(t *testing.T) {
	hours := func(start, end string) SpecialHours {
		return SpecialHours{Window: TimeWindow{Start: MustTimeOfDay(start), End: MustTimeOfDay(end)}}
	}

	t.Run("Unavailable", func(t *testing.T) {
		snap := baseSnapshot()
		exc := exception(3, Unavailable{})
		exc.Reason = "public holiday"
		snap.Exceptions = []Exception{exc}

		d := Resolve(snap, at("10:00"), 1)
		assert.False(t, d.Available)
		assert.Equal(t, SourceException, d.AppliedSource)
		assert.Equal(t, "public holiday", d.Reason)
		assert.Equal(t, []int64{3}, d.ExceptionIDs)
	})

	t.Run("Unavailable Default Reason", func(t *testing.T) {
		snap := baseSnapshot()
		snap.Exceptions = []Exception{exception(3, Unavailable{})}
		assert.Equal(t, ReasonUnavailableDate, Resolve(snap, at("10:00"), 1).Reason)
	})

	t.Run("Unavailable Beats Cost Override", func(t *testing.T) {
		snap := baseSnapshot()
		snap.Exceptions = []Exception{exception(4, SpecialCost{Amount: 1}), exception(9, Unavailable{})}
		d := Resolve(snap, at("10:00"), 1)
		assert.False(t, d.Available)
		assert.Nil(t, d.Cost)
		assert.Equal(t, []int64{9}, d.ExceptionIDs)
	})

	t.Run("Special Hours Replace Schedule", func(t *testing.T) {
		snap := baseSnapshot()
		snap.Exceptions = []Exception{exception(5, hours("22:00", "23:00"))}

		d := Resolve(snap, at("22:30"), 1)
		assert.True(t, d.Available)
		assert.Equal(t, SourceBand, d.AppliedSource)
		require.NotNil(t, d.Cost)
		assert.Equal(t, 60.0, *d.Cost)
		assert.Equal(t, []int64{5}, d.ExceptionIDs)

		d = Resolve(snap, at("10:00"), 1)
		assert.False(t, d.Available)
		assert.Equal(t, SourceException, d.AppliedSource)
		assert.Equal(t, ReasonOutsideSpecialHr, d.Reason)
	})

	t.Run("Special Hours Open Closed Day", func(t *testing.T) {
		snap := baseSnapshot()
		snap.Schedules = []ScheduleEntry{{ID: 1, ZoneID: 1, Weekday: 1, Kind: ScheduleClosed, IsActive: true}}
		snap.Exceptions = []Exception{exception(5, hours("10:00", "12:00"))}
		assert.True(t, Resolve(snap, at("11:00"), 1).Available)
	})

	t.Run("Cost And Estimate Overrides", func(t *testing.T) {
		snap := baseSnapshot()
		snap.Exceptions = []Exception{
			exception(6, SpecialCost{Amount: 120}),
			exception(7, SpecialTimeEstimate{MinMinutes: 30, MaxMinutes: 45}),
		}

		d := Resolve(snap, at("10:00"), 1)
		assert.True(t, d.Available)
		assert.Equal(t, SourceException, d.AppliedSource)
		require.NotNil(t, d.Cost)
		assert.Equal(t, 120.0, *d.Cost)
		assert.Equal(t, &MinuteRange{Min: 30, Max: 45}, d.ExtraMinutes)
		assert.Equal(t, []int64{6, 7}, d.ExceptionIDs)
		require.NotNil(t, d.BandID)
		assert.Equal(t, int64(1), *d.BandID)
	})

	t.Run("Cost Override Without Band", func(t *testing.T) {
		snap := baseSnapshot()
		snap.Exceptions = []Exception{exception(6, SpecialCost{Amount: 200})}

		d := Resolve(snap, at("10:00"), 50)
		assert.True(t, d.Available)
		require.NotNil(t, d.Cost)
		assert.Equal(t, 200.0, *d.Cost)
		assert.Empty(t, d.Reason)
		assert.Equal(t, SourceException, d.AppliedSource)
	})

	t.Run("Same Kind Lowest ID Wins", func(t *testing.T) {
		snap := baseSnapshot()
		snap.Exceptions = []Exception{exception(12, SpecialCost{Amount: 12}), exception(8, SpecialCost{Amount: 8})}

		d := Resolve(snap, at("10:00"), 1)
		require.NotNil(t, d.Cost)
		assert.Equal(t, 8.0, *d.Cost)
	})

	t.Run("Bound Limits Exception", func(t *testing.T) {
		snap := baseSnapshot()
		exc := exception(3, Unavailable{})
		exc.Bound = &TimeWindow{Start: MustTimeOfDay("12:00"), End: MustTimeOfDay("14:00")}
		snap.Exceptions = []Exception{exc}

		assert.True(t, Resolve(snap, at("10:00"), 1).Available)
		assert.False(t, Resolve(snap, at("13:00"), 1).Available)
	})

	t.Run("Inactive And Other Dates Ignored", func(t *testing.T) {
		snap := baseSnapshot()
		inactive := exception(3, Unavailable{})
		inactive.IsActive = false
		otherDay := exception(4, Unavailable{})
		otherDay.Date = Date{Year: 2024, Month: time.January, Day: 16}
		otherZone := exception(5, Unavailable{})
		otherZone.ZoneID = 2
		snap.Exceptions = []Exception{inactive, otherDay, otherZone}

		d := Resolve(snap, at("10:00"), 1)
		assert.True(t, d.Available)
		assert.Equal(t, SourceBand, d.AppliedSource)
	})
}

func TestResolveIsPure(t *testing.T) {
	snap := baseSnapshot()
	snap.Bands = []DistanceBand{snap.Bands[1], snap.Bands[0]}
	snap.Exceptions = []Exception{exception(6, SpecialCost{Amount: 120})}
	before := ZoneSnapshot{
		Zone:       snap.Zone,
		Schedules:  append([]ScheduleEntry(nil), snap.Schedules...),
		Bands:      append([]DistanceBand(nil), snap.Bands...),
		Exceptions: append([]Exception(nil), snap.Exceptions...),
	}

	first := Resolve(snap, at("10:00"), 4)
	second := Resolve(snap, at("10:00"), 4)

	assert.Equal(t, first, second)
	assert.Equal(t, before, snap)
}
