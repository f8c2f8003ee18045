package pgxrepo

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"zone-coverage-backend/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

func numericToFloat64(n pgtype.Numeric) float64 {
	if !n.Valid {
		return 0
	}
	f, _ := n.Float64Value()
	return f.Float64
}

func float64ToNumeric(f float64) (pgtype.Numeric, error) {
	var n pgtype.Numeric
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return n, fmt.Errorf("numeric value %v is not finite", f)
	}
	if err := n.Scan(strconv.FormatFloat(f, 'f', -1, 64)); err != nil {
		return n, fmt.Errorf("numeric value %v: %w", f, err)
	}
	return n, nil
}

func float64PtrToNumeric(f *float64) (pgtype.Numeric, error) {
	if f == nil {
		return pgtype.Numeric{}, nil
	}
	return float64ToNumeric(*f)
}

func numericToFloat64Ptr(n pgtype.Numeric) *float64 {
	if !n.Valid {
		return nil
	}
	f, _ := n.Float64Value()
	val := f.Float64
	return &val
}

func timeOfDayToPg(t *domain.TimeOfDay) pgtype.Time {
	if t == nil {
		return pgtype.Time{}
	}
	return pgtype.Time{Microseconds: int64(*t) * int64(time.Second/time.Microsecond), Valid: true}
}

func pgToTimeOfDay(t pgtype.Time) *domain.TimeOfDay {
	if !t.Valid {
		return nil
	}
	tod := domain.TimeOfDay(t.Microseconds / int64(time.Second/time.Microsecond))
	return &tod
}

func windowToPg(w *domain.TimeWindow) (pgtype.Time, pgtype.Time) {
	if w == nil {
		return pgtype.Time{}, pgtype.Time{}
	}
	return timeOfDayToPg(&w.Start), timeOfDayToPg(&w.End)
}

func pgToWindow(start, end pgtype.Time) *domain.TimeWindow {
	s, e := pgToTimeOfDay(start), pgToTimeOfDay(end)
	if s == nil || e == nil {
		return nil
	}
	return &domain.TimeWindow{Start: *s, End: *e}
}

func dateToPg(d domain.Date) pgtype.Date {
	return pgtype.Date{Time: d.In(time.UTC), Valid: true}
}

func int32PtrToInt(v *int32) *int {
	if v == nil {
		return nil
	}
	i := int(*v)
	return &i
}

func intPtrToInt32(v *int) *int32 {
	if v == nil {
		return nil
	}
	i := int32(*v)
	return &i
}

// notFound maps pgx.ErrNoRows onto domain.ErrNotFound.
func notFound(err error, what string, id any) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s %v: %w", what, id, domain.ErrNotFound)
	}
	return fmt.Errorf("%s %v: %w", what, id, err)
}
