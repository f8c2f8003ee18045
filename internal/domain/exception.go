package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

type ExceptionKind string

const (
	ExceptionUnavailable         ExceptionKind = "unavailable"
	ExceptionSpecialHours        ExceptionKind = "special-hours"
	ExceptionSpecialCost         ExceptionKind = "special-cost"
	ExceptionSpecialTimeEstimate ExceptionKind = "special-time-estimate"
)

// Listed in precedence order: earlier kinds win conflicts on the same field.
var ExceptionKinds = []ExceptionKind{
	ExceptionUnavailable,
	ExceptionSpecialHours,
	ExceptionSpecialCost,
	ExceptionSpecialTimeEstimate,
}

// ExceptionRule is the kind-specific payload of an Exception.
type ExceptionRule interface {
	Kind() ExceptionKind
}

type Unavailable struct{}

type SpecialHours struct {
	Window TimeWindow
}

type SpecialCost struct {
	Amount float64
}

type SpecialTimeEstimate struct {
	MinMinutes int
	MaxMinutes int
}

func (Unavailable) Kind() ExceptionKind         { return ExceptionUnavailable }
func (SpecialHours) Kind() ExceptionKind        { return ExceptionSpecialHours }
func (SpecialCost) Kind() ExceptionKind         { return ExceptionSpecialCost }
func (SpecialTimeEstimate) Kind() ExceptionKind { return ExceptionSpecialTimeEstimate }

// Exception overrides a zone's schedule or bands for one calendar date.
// Bound optionally limits non special-hours rules to part of that day.
type Exception struct {
	ID        int64
	ZoneID    int32
	Date      Date
	Rule      ExceptionRule
	Bound     *TimeWindow
	Reason    string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AppliesAt reports whether the exception is in force on its date at t.
// Special hours always apply on their date; their window decides availability instead.
func (e Exception) AppliesAt(t TimeOfDay) bool {
	if !e.IsActive || e.Rule == nil {
		return false
	}
	if _, ok := e.Rule.(SpecialHours); ok {
		return true
	}
	return e.Bound == nil || e.Bound.Contains(t)
}

// ExceptionRecord is the flat shape used on the wire and in storage.
type ExceptionRecord struct {
	ID             int64         `json:"id"`
	ZoneID         int32         `json:"zoneId"`
	Date           string        `json:"date"`
	Kind           ExceptionKind `json:"kind"`
	Start          *TimeOfDay    `json:"start,omitempty"`
	End            *TimeOfDay    `json:"end,omitempty"`
	SpecialCost    *float64      `json:"specialCost,omitempty"`
	SpecialTimeMin *int          `json:"specialTimeMin,omitempty"`
	SpecialTimeMax *int          `json:"specialTimeMax,omitempty"`
	Reason         string        `json:"reason"`
	IsActive       bool          `json:"isActive"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

// Record flattens the exception.
func (e Exception) Record() ExceptionRecord {
	rec := ExceptionRecord{
		ID:        e.ID,
		ZoneID:    e.ZoneID,
		Date:      e.Date.String(),
		Reason:    e.Reason,
		IsActive:  e.IsActive,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
	if e.Bound != nil {
		start, end := e.Bound.Start, e.Bound.End
		rec.Start, rec.End = &start, &end
	}
	switch r := e.Rule.(type) {
	case Unavailable:
		rec.Kind = ExceptionUnavailable
	case SpecialHours:
		rec.Kind = ExceptionSpecialHours
		start, end := r.Window.Start, r.Window.End
		rec.Start, rec.End = &start, &end
	case SpecialCost:
		rec.Kind = ExceptionSpecialCost
		amount := r.Amount
		rec.SpecialCost = &amount
	case SpecialTimeEstimate:
		rec.Kind = ExceptionSpecialTimeEstimate
		lo, hi := r.MinMinutes, r.MaxMinutes
		rec.SpecialTimeMin, rec.SpecialTimeMax = &lo, &hi
	}
	return rec
}

func (e Exception) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Record())
}

// ToException checks the per-kind field requirements and builds the typed exception.
// Every problem is reported, not only the first.
func (r ExceptionRecord) ToException() (Exception, *ValidationError) {
	verr := &ValidationError{}

	date, err := ParseDate(r.Date)
	if err != nil {
		verr.Add(fmt.Sprintf("date: %v", err))
	}

	var window *TimeWindow
	switch {
	case r.Start != nil && r.End != nil:
		if *r.Start == *r.End {
			verr.Add("start and end must not be equal")
		} else {
			window = &TimeWindow{Start: *r.Start, End: *r.End}
		}
	case r.Start != nil || r.End != nil:
		verr.Add("start and end must be provided together")
	}

	exc := Exception{
		ID:        r.ID,
		ZoneID:    r.ZoneID,
		Date:      date,
		Reason:    r.Reason,
		IsActive:  r.IsActive,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}

	switch r.Kind {
	case ExceptionUnavailable:
		exc.Rule = Unavailable{}
		exc.Bound = window
	case ExceptionSpecialHours:
		if r.Start == nil || r.End == nil {
			verr.Add("special-hours requires start and end")
		} else if window != nil {
			exc.Rule = SpecialHours{Window: *window}
		}
	case ExceptionSpecialCost:
		switch {
		case r.SpecialCost == nil:
			verr.Add("special-cost requires specialCost")
		case *r.SpecialCost < 0:
			verr.Add("specialCost must be greater than or equal to 0")
		default:
			exc.Rule = SpecialCost{Amount: *r.SpecialCost}
		}
		exc.Bound = window
	case ExceptionSpecialTimeEstimate:
		if r.SpecialTimeMin == nil || r.SpecialTimeMax == nil {
			verr.Add("special-time-estimate requires specialTimeMin and specialTimeMax")
			break
		}
		lo, hi := *r.SpecialTimeMin, *r.SpecialTimeMax
		if lo < 0 || hi < 0 {
			verr.Add("specialTimeMin and specialTimeMax must be greater than or equal to 0")
		}
		if lo > hi {
			verr.Add("specialTimeMin must be less than or equal to specialTimeMax")
		}
		exc.Rule = SpecialTimeEstimate{MinMinutes: lo, MaxMinutes: hi}
		exc.Bound = window
	default:
		verr.Add(fmt.Sprintf("kind must be one of %v", ExceptionKinds))
	}

	if !verr.Empty() {
		return Exception{}, verr
	}
	return exc, nil
}

// MalformedException is a stored row that breaks the per-kind rules, e.g. a
// special-cost row imported without an amount. Resolve never sees it.
type MalformedException struct {
	ID       int64         `json:"id"`
	ZoneID   int32         `json:"zoneId"`
	Date     string        `json:"date"`
	Kind     ExceptionKind `json:"kind"`
	Problems []string      `json:"problems"`
}

// DecodeExceptionRecords splits stored records into usable exceptions and the
// rows that cannot be rebuilt. Order is preserved in both.
func DecodeExceptionRecords(recs []ExceptionRecord) ([]Exception, []MalformedException) {
	valid := make([]Exception, 0, len(recs))
	var malformed []MalformedException
	for _, rec := range recs {
		exc, verr := rec.ToException()
		if verr != nil {
			malformed = append(malformed, MalformedException{
				ID:       rec.ID,
				ZoneID:   rec.ZoneID,
				Date:     rec.Date,
				Kind:     rec.Kind,
				Problems: verr.Messages,
			})
			continue
		}
		valid = append(valid, exc)
	}
	return valid, malformed
}

// ExceptionsOn filters exceptions of a zone for a date, ordered by id.
func ExceptionsOn(exceptions []Exception, zoneID int32, date Date) []Exception {
	var out []Exception
	for _, e := range exceptions {
		if e.ZoneID == zoneID && e.Date == date {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type ExceptionRepository interface {
	ListExceptionsByZone(ctx context.Context, zoneID int32) ([]Exception, error)
	FindExceptionsForDate(ctx context.Context, zoneID int32, date Date) ([]Exception, error)
	GetExceptionByID(ctx context.Context, id int64) (*Exception, error)
	CreateException(ctx context.Context, exc *Exception) (*Exception, error)
	UpdateException(ctx context.Context, exc *Exception) (*Exception, error)
	DeleteException(ctx context.Context, id int64) error
	// FindMalformedExceptions lists stored rows of the zone that list and find
	// calls skip.
	FindMalformedExceptions(ctx context.Context, zoneID int32) ([]MalformedException, error)
}
