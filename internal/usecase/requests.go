package usecase

import (
	"fmt"

	"zone-coverage-backend/internal/domain"
)

// CreateScheduleRequest is the payload for a new weekly schedule entry.
// start/end are "HH:MM[:SS]" and only allowed for windowed entries.
type CreateScheduleRequest struct {
	Weekday  int     `json:"weekday" validate:"required,min=1,max=7"`
	Kind     string  `json:"kind" validate:"required,oneof=closed full_day windowed"`
	Start    *string `json:"start,omitempty"`
	End      *string `json:"end,omitempty"`
	IsActive *bool   `json:"isActive,omitempty"`
}

// UpdateScheduleRequest changes only the fields that are present.
type UpdateScheduleRequest struct {
	Weekday  *int    `json:"weekday,omitempty"`
	Kind     *string `json:"kind,omitempty"`
	Start    *string `json:"start,omitempty"`
	End      *string `json:"end,omitempty"`
	IsActive *bool   `json:"isActive,omitempty"`
}

// mergeOnto fills absent fields from the stored entry. A window is carried
// over only while the merged entry stays windowed.
func (r UpdateScheduleRequest) mergeOnto(e domain.ScheduleEntry) CreateScheduleRequest {
	merged := CreateScheduleRequest{
		Weekday:  int(e.Weekday),
		Kind:     string(e.Kind),
		Start:    r.Start,
		End:      r.End,
		IsActive: &e.IsActive,
	}
	if r.Weekday != nil {
		merged.Weekday = *r.Weekday
	}
	if r.Kind != nil {
		merged.Kind = *r.Kind
	}
	if r.IsActive != nil {
		merged.IsActive = r.IsActive
	}
	if merged.Kind == string(domain.ScheduleWindowed) && e.Window != nil {
		if merged.Start == nil {
			s := e.Window.Start.String()
			merged.Start = &s
		}
		if merged.End == nil {
			s := e.Window.End.String()
			merged.End = &s
		}
	}
	return merged
}

// toEntry checks the kind-dependent window rules. Field tags are validated separately.
func (r CreateScheduleRequest) toEntry(zoneID int32, verr *domain.ValidationError) domain.ScheduleEntry {
	entry := domain.ScheduleEntry{
		ZoneID:   zoneID,
		Weekday:  domain.Weekday(r.Weekday),
		Kind:     domain.ScheduleKind(r.Kind),
		IsActive: boolOr(r.IsActive, true),
	}

	if entry.Kind != domain.ScheduleWindowed {
		if r.Start != nil || r.End != nil {
			verr.Add("start and end are only allowed for windowed entries")
		}
		return entry
	}

	if r.Start == nil || r.End == nil {
		verr.Add("windowed entries require start and end")
		return entry
	}
	w, err := domain.ParseTimeWindow(*r.Start, *r.End)
	if err != nil {
		verr.Add(err.Error())
		return entry
	}
	entry.Window = &w
	return entry
}

// CreateBandRequest is the payload for a new distance band [fromKm, toKm).
type CreateBandRequest struct {
	FromKm       *float64 `json:"fromKm" validate:"required,gte=0"`
	ToKm         *float64 `json:"toKm" validate:"required,gte=0"`
	Cost         *float64 `json:"cost" validate:"required,gte=0"`
	ExtraMinutes *int     `json:"extraMinutes,omitempty" validate:"omitempty,gte=0"`
	IsActive     *bool    `json:"isActive,omitempty"`
}

type UpdateBandRequest struct {
	FromKm       *float64 `json:"fromKm,omitempty"`
	ToKm         *float64 `json:"toKm,omitempty"`
	Cost         *float64 `json:"cost,omitempty"`
	ExtraMinutes *int     `json:"extraMinutes,omitempty"`
	IsActive     *bool    `json:"isActive,omitempty"`
}

func (r UpdateBandRequest) mergeOnto(b domain.DistanceBand) CreateBandRequest {
	merged := CreateBandRequest{
		FromKm:       &b.FromKm,
		ToKm:         &b.ToKm,
		Cost:         &b.Cost,
		ExtraMinutes: &b.ExtraMinutes,
		IsActive:     &b.IsActive,
	}
	if r.FromKm != nil {
		merged.FromKm = r.FromKm
	}
	if r.ToKm != nil {
		merged.ToKm = r.ToKm
	}
	if r.Cost != nil {
		merged.Cost = r.Cost
	}
	if r.ExtraMinutes != nil {
		merged.ExtraMinutes = r.ExtraMinutes
	}
	if r.IsActive != nil {
		merged.IsActive = r.IsActive
	}
	return merged
}

func (r CreateBandRequest) toBand(zoneID int32, verr *domain.ValidationError) domain.DistanceBand {
	band := domain.DistanceBand{ZoneID: zoneID, IsActive: boolOr(r.IsActive, true)}
	if r.FromKm != nil {
		band.FromKm = *r.FromKm
	}
	if r.ToKm != nil {
		band.ToKm = *r.ToKm
	}
	if r.Cost != nil {
		band.Cost = *r.Cost
	}
	if r.ExtraMinutes != nil {
		band.ExtraMinutes = *r.ExtraMinutes
	}
	if r.FromKm != nil && r.ToKm != nil && band.ToKm <= band.FromKm {
		verr.Add("toKm must be greater than fromKm")
	}
	return band
}

// CreateExceptionRequest is the flat wire form of an exception. Which of the
// optional fields are required depends on kind.
type CreateExceptionRequest struct {
	Date           string   `json:"date"`
	Kind           string   `json:"kind"`
	Start          *string  `json:"start,omitempty"`
	End            *string  `json:"end,omitempty"`
	SpecialCost    *float64 `json:"specialCost,omitempty"`
	SpecialTimeMin *int     `json:"specialTimeMin,omitempty"`
	SpecialTimeMax *int     `json:"specialTimeMax,omitempty"`
	Reason         string   `json:"reason" validate:"max=255"`
	IsActive       *bool    `json:"isActive,omitempty"`
}

type UpdateExceptionRequest struct {
	Date           *string  `json:"date,omitempty"`
	Kind           *string  `json:"kind,omitempty"`
	Start          *string  `json:"start,omitempty"`
	End            *string  `json:"end,omitempty"`
	SpecialCost    *float64 `json:"specialCost,omitempty"`
	SpecialTimeMin *int     `json:"specialTimeMin,omitempty"`
	SpecialTimeMax *int     `json:"specialTimeMax,omitempty"`
	Reason         *string  `json:"reason,omitempty"`
	IsActive       *bool    `json:"isActive,omitempty"`
}

// mergeOnto overlays the update on the stored exception. Changing kind drops
// the payload fields of the old kind unless they are sent again.
func (r UpdateExceptionRequest) mergeOnto(e domain.Exception) CreateExceptionRequest {
	rec := e.Record()
	merged := CreateExceptionRequest{
		Date:     rec.Date,
		Kind:     string(rec.Kind),
		Reason:   rec.Reason,
		IsActive: &rec.IsActive,
	}
	if r.Kind == nil || *r.Kind == string(rec.Kind) {
		merged.Start = timeString(rec.Start)
		merged.End = timeString(rec.End)
		merged.SpecialCost = rec.SpecialCost
		merged.SpecialTimeMin = rec.SpecialTimeMin
		merged.SpecialTimeMax = rec.SpecialTimeMax
	} else {
		merged.Kind = *r.Kind
	}
	if r.Date != nil {
		merged.Date = *r.Date
	}
	if r.Start != nil {
		merged.Start = r.Start
	}
	if r.End != nil {
		merged.End = r.End
	}
	if r.SpecialCost != nil {
		merged.SpecialCost = r.SpecialCost
	}
	if r.SpecialTimeMin != nil {
		merged.SpecialTimeMin = r.SpecialTimeMin
	}
	if r.SpecialTimeMax != nil {
		merged.SpecialTimeMax = r.SpecialTimeMax
	}
	if r.Reason != nil {
		merged.Reason = *r.Reason
	}
	if r.IsActive != nil {
		merged.IsActive = r.IsActive
	}
	return merged
}

func (r CreateExceptionRequest) toException(zoneID int32, verr *domain.ValidationError) domain.Exception {
	rec := domain.ExceptionRecord{
		ZoneID:         zoneID,
		Date:           r.Date,
		Kind:           domain.ExceptionKind(r.Kind),
		SpecialCost:    r.SpecialCost,
		SpecialTimeMin: r.SpecialTimeMin,
		SpecialTimeMax: r.SpecialTimeMax,
		Reason:         r.Reason,
		IsActive:       boolOr(r.IsActive, true),
	}
	rec.Start = parseTimeField("start", r.Start, verr)
	rec.End = parseTimeField("end", r.End, verr)

	exc, kindErr := rec.ToException()
	if kindErr != nil {
		verr.Messages = append(verr.Messages, kindErr.Messages...)
	}
	return exc
}

func parseTimeField(name string, raw *string, verr *domain.ValidationError) *domain.TimeOfDay {
	if raw == nil {
		return nil
	}
	t, err := domain.ParseTimeOfDay(*raw)
	if err != nil {
		verr.Add(fmt.Sprintf("%s: %v", name, err))
		return nil
	}
	return &t
}

func timeString(t *domain.TimeOfDay) *string {
	if t == nil {
		return nil
	}
	s := t.String()
	return &s
}

func boolOr(b *bool, fallback bool) bool {
	if b == nil {
		return fallback
	}
	return *b
}
