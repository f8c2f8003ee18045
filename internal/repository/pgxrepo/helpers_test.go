package pgxrepo

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"zone-coverage-backend/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumericConversions(t *testing.T) {
	n, err := float64ToNumeric(12.75)
	require.NoError(t, err)
	assert.True(t, n.Valid)
	assert.Equal(t, 12.75, numericToFloat64(n))

	n, err = float64PtrToNumeric(nil)
	require.NoError(t, err)
	assert.Nil(t, numericToFloat64Ptr(n))

	v := 3.5
	n, err = float64PtrToNumeric(&v)
	require.NoError(t, err)
	got := numericToFloat64Ptr(n)
	require.NotNil(t, got)
	assert.Equal(t, 3.5, *got)

	t.Run("Non Finite Values Rejected", func(t *testing.T) {
		for _, f := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
			_, err := float64ToNumeric(f)
			assert.Error(t, err, "%v", f)
			_, err = float64PtrToNumeric(&f)
			assert.Error(t, err, "%v", f)
		}
	})

	t.Run("Band Numerics Report The Column", func(t *testing.T) {
		_, _, _, err := bandNumerics(&domain.DistanceBand{FromKm: 0, ToKm: math.Inf(1), Cost: 10})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "to_km")

		from, to, cost, err := bandNumerics(&domain.DistanceBand{FromKm: 0, ToKm: 2.5, Cost: 40})
		require.NoError(t, err)
		assert.Equal(t, 0.0, numericToFloat64(from))
		assert.Equal(t, 2.5, numericToFloat64(to))
		assert.Equal(t, 40.0, numericToFloat64(cost))
	})
}

func TestTimeConversions(t *testing.T) {
	tod := domain.MustTimeOfDay("22:30:15")
	pg := timeOfDayToPg(&tod)
	assert.Equal(t, int64(81015)*1_000_000, pg.Microseconds)
	assert.Equal(t, tod, *pgToTimeOfDay(pg))

	w := &domain.TimeWindow{Start: domain.MustTimeOfDay("22:00"), End: domain.MustTimeOfDay("02:00")}
	assert.Equal(t, w, pgToWindow(windowToPg(w)))
	assert.Nil(t, pgToWindow(windowToPg(nil)))
}

func TestDateToPg(t *testing.T) {
	d := domain.Date{Year: 2024, Month: 12, Day: 25}
	pg := dateToPg(d)
	assert.True(t, pg.Valid)
	assert.Equal(t, d, domain.DateOf(pg.Time))
}

func TestNotFound(t *testing.T) {
	err := notFound(pgx.ErrNoRows, "band", int64(4))
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, "band 4: record not found", err.Error())

	other := notFound(fmt.Errorf("boom"), "band", int64(4))
	assert.False(t, errors.Is(other, domain.ErrNotFound))
}

func TestCompactSQL(t *testing.T) {
	sql := `
		SELECT id, zone_id
		FROM   distance_bands
		WHERE  zone_id = $1`
	assert.Equal(t, "SELECT id, zone_id FROM distance_bands WHERE zone_id = $1", compactSQL(sql))
}
