package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestExceptionRecordToException(t *testing.T) {
	t.Run("Special Hours", func(t *testing.T) {
		rec := ExceptionRecord{
			ZoneID: 3, Date: "2024-12-24", Kind: ExceptionSpecialHours,
			Start: ptr(MustTimeOfDay("10:00")), End: ptr(MustTimeOfDay("14:00")), IsActive: true,
		}
		exc, verr := rec.ToException()
		require.Nil(t, verr)
		assert.Equal(t, SpecialHours{Window: TimeWindow{Start: MustTimeOfDay("10:00"), End: MustTimeOfDay("14:00")}}, exc.Rule)
		assert.Nil(t, exc.Bound)
	})

	t.Run("Special Hours Missing Window", func(t *testing.T) {
		rec := ExceptionRecord{ZoneID: 3, Date: "2024-12-24", Kind: ExceptionSpecialHours}
		_, verr := rec.ToException()
		require.NotNil(t, verr)
		assert.Contains(t, verr.Messages, "special-hours requires start and end")
	})

	t.Run("Special Cost Bounded", func(t *testing.T) {
		rec := ExceptionRecord{
			ZoneID: 3, Date: "2024-12-24", Kind: ExceptionSpecialCost, SpecialCost: ptr(0.0),
			Start: ptr(MustTimeOfDay("18:00")), End: ptr(MustTimeOfDay("20:00")), IsActive: true,
		}
		exc, verr := rec.ToException()
		require.Nil(t, verr)
		assert.Equal(t, SpecialCost{Amount: 0}, exc.Rule)
		require.NotNil(t, exc.Bound)
		assert.True(t, exc.AppliesAt(MustTimeOfDay("19:00")))
		assert.False(t, exc.AppliesAt(MustTimeOfDay("21:00")))
	})

	t.Run("Collects Every Problem", func(t *testing.T) {
		rec := ExceptionRecord{
			ZoneID: 3, Date: "tomorrow", Kind: ExceptionSpecialTimeEstimate,
			SpecialTimeMin: ptr(-5), SpecialTimeMax: ptr(-10),
		}
		_, verr := rec.ToException()
		require.NotNil(t, verr)
		assert.Len(t, verr.Messages, 3)
		assert.True(t, strings.HasPrefix(verr.Messages[0], "date:"))
	})

	t.Run("Unknown Kind", func(t *testing.T) {
		rec := ExceptionRecord{ZoneID: 3, Date: "2024-12-24", Kind: "holiday"}
		_, verr := rec.ToException()
		require.NotNil(t, verr)
		assert.Contains(t, verr.Error(), "kind must be one of")
	})
}

func TestExceptionJSONIsFlat(t *testing.T) {
	exc := Exception{
		ID: 7, ZoneID: 2, Date: Date{Year: 2024, Month: 12, Day: 31},
		Rule: SpecialTimeEstimate{MinMinutes: 30, MaxMinutes: 60}, Reason: "New Year rush", IsActive: true,
	}
	data, err := json.Marshal(exc)
	require.NoError(t, err)

	var rec ExceptionRecord
	require.NoError(t, json.Unmarshal(data, &rec))
	assert.Equal(t, ExceptionSpecialTimeEstimate, rec.Kind)
	assert.Equal(t, "2024-12-31", rec.Date)
	assert.Equal(t, 30, *rec.SpecialTimeMin)
	assert.Equal(t, 60, *rec.SpecialTimeMax)
	assert.Nil(t, rec.SpecialCost)
}

func TestExceptionsOn(t *testing.T) {
	day := Date{Year: 2024, Month: 12, Day: 25}
	list := []Exception{
		{ID: 5, ZoneID: 1, Date: day, Rule: Unavailable{}, IsActive: true},
		{ID: 2, ZoneID: 1, Date: day, Rule: SpecialCost{Amount: 3}, IsActive: true},
		{ID: 1, ZoneID: 2, Date: day, Rule: Unavailable{}, IsActive: true},
		{ID: 3, ZoneID: 1, Date: Date{Year: 2024, Month: 12, Day: 26}, Rule: Unavailable{}, IsActive: true},
	}
	got := ExceptionsOn(list, 1, day)
	require.Len(t, got, 2)
	assert.Equal(t, int64(2), got[0].ID)
	assert.Equal(t, int64(5), got[1].ID)
}

func TestDecodeExceptionRecords(t *testing.T) {
	recs := []ExceptionRecord{
		{ID: 1, ZoneID: 3, Date: "2024-12-24", Kind: ExceptionSpecialCost},
		{ID: 2, ZoneID: 3, Date: "2024-12-24", Kind: ExceptionUnavailable, IsActive: true},
		{ID: 3, ZoneID: 3, Date: "2024-12-24", Kind: ExceptionSpecialHours,
			Start: ptr(MustTimeOfDay("10:00")), End: ptr(MustTimeOfDay("10:00"))},
	}

	valid, malformed := DecodeExceptionRecords(recs)
	require.Len(t, valid, 1)
	assert.Equal(t, int64(2), valid[0].ID)

	require.Len(t, malformed, 2)
	assert.Equal(t, MalformedException{
		ID: 1, ZoneID: 3, Date: "2024-12-24", Kind: ExceptionSpecialCost,
		Problems: []string{"special-cost requires specialCost"},
	}, malformed[0])
	assert.Equal(t, int64(3), malformed[1].ID)
	assert.Contains(t, malformed[1].Problems, "start and end must not be equal")
}
