package usecase

import (
	"context"
	"strings"
	"testing"
	"time"

	"zone-coverage-backend/internal/domain"
	infracache "zone-coverage-backend/internal/infrastructure/cache"
	"zone-coverage-backend/internal/infrastructure/lock"
	"zone-coverage-backend/internal/repository/memory"
	"zone-coverage-backend/pkg/storage"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeArchive struct {
	uploads   map[string][]byte
	lastLimit int32
}

func (a *fakeArchive) UploadJSON(_ context.Context, key string, data []byte) (string, error) {
	if a.uploads == nil {
		a.uploads = make(map[string][]byte)
	}
	a.uploads[key] = data
	return "https://cdn.example.com/" + key, nil
}

func (a *fakeArchive) List(_ context.Context, prefix string, limit int32) ([]storage.Object, error) {
	a.lastLimit = limit
	var out []storage.Object
	for key, data := range a.uploads {
		if strings.HasPrefix(key, prefix) {
			out = append(out, storage.Object{Key: key, Size: int64(len(data))})
		}
	}
	return out, nil
}

func newCoverageFixture(t *testing.T, archive SnapshotArchive) (*CoverageUsecase, *memory.Store, domain.Zone) {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	zone := store.SaveZone(domain.Zone{Key: "north", Label: "North", IsActive: true})
	store.SaveZone(domain.Zone{Key: "south", Label: "South", IsActive: true, Available24h: true})

	for _, b := range []domain.DistanceBand{
		{ZoneID: zone.ID, FromKm: 2, ToKm: 4, Cost: 10, IsActive: true},
		{ZoneID: zone.ID, FromKm: 3, ToKm: 6, Cost: 20, IsActive: true},
	} {
		_, err := store.CreateBand(ctx, &b)
		require.NoError(t, err)
	}

	c := infracache.NewMemoryCache(time.Minute, time.Minute)
	uc := NewCoverageUsecase(store, store, store, store, c, time.Minute, domain.GapFillDefaults{Cost: 10, ExtraMinutes: 15}, archive)
	uc.now = func() time.Time { return fixedNow }
	return uc, store, zone
}

func TestAnalyzeZone(t *testing.T) {
	ctx := context.Background()
	uc, store, zone := newCoverageFixture(t, nil)

	report, err := uc.AnalyzeZone(ctx, zone.ID)
	require.NoError(t, err)
	assert.Equal(t, []domain.DistanceRange{{FromKm: 0, ToKm: 2}}, report.Gaps)
	assert.Len(t, report.Overlaps, 1)
	assert.False(t, report.Complete)
	require.Len(t, report.Suggestions, 1)
	assert.Equal(t, domain.BasisUpperOnly, report.Suggestions[0].Basis)

	t.Run("Cached Until Invalidated", func(t *testing.T) {
		_, err := store.CreateBand(ctx, &domain.DistanceBand{ZoneID: zone.ID, FromKm: 0, ToKm: 2, Cost: 5, IsActive: true})
		require.NoError(t, err)

		again, err := uc.AnalyzeZone(ctx, zone.ID)
		require.NoError(t, err)
		assert.Same(t, report, again)

		invalidateCoverage(uc.cache, zone.ID)
		fresh, err := uc.AnalyzeZone(ctx, zone.ID)
		require.NoError(t, err)
		assert.Empty(t, fresh.Gaps)
	})

	t.Run("Unknown Zone", func(t *testing.T) {
		_, err := uc.AnalyzeZone(ctx, 404)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

// writeDuringRead runs write once, after the wrapped read has fetched its rows.
type writeDuringRead struct {
	domain.BandRepository
	write func()
}

func (r *writeDuringRead) afterRead() {
	if w := r.write; w != nil {
		r.write = nil
		w()
	}
}

func (r *writeDuringRead) ListBandsByZone(ctx context.Context, zoneID int32) ([]domain.DistanceBand, error) {
	bands, err := r.BandRepository.ListBandsByZone(ctx, zoneID)
	r.afterRead()
	return bands, err
}

func (r *writeDuringRead) ListAllBands(ctx context.Context) ([]domain.DistanceBand, error) {
	bands, err := r.BandRepository.ListAllBands(ctx)
	r.afterRead()
	return bands, err
}

func TestCoverageCacheSkipsReportsOvertakenByWrites(t *testing.T) {
	ctx := context.Background()
	uc, store, zone := newCoverageFixture(t, nil)
	rules := NewZoneRulesUsecase(store, store, store, store, memory.NewTransactionManager(),
		lock.NewMemoryLocker(time.Second), uc.cache, time.UTC)
	bands := &writeDuringRead{BandRepository: store}
	uc.bandRepo = bands

	fillGap := func() {
		_, err := rules.CreateBand(ctx, zone.ID, CreateBandRequest{FromKm: ptr(0.0), ToKm: ptr(2.0), Cost: ptr(5.0)})
		require.NoError(t, err)
	}

	t.Run("Zone Report", func(t *testing.T) {
		bands.write = fillGap
		stale, err := uc.AnalyzeZone(ctx, zone.ID)
		require.NoError(t, err)
		assert.Len(t, stale.Gaps, 1, "built from rows read before the write")

		fresh, err := uc.AnalyzeZone(ctx, zone.ID)
		require.NoError(t, err)
		assert.Empty(t, fresh.Gaps)

		cached, err := uc.AnalyzeZone(ctx, zone.ID)
		require.NoError(t, err)
		assert.Same(t, fresh, cached)
	})

	t.Run("Summary", func(t *testing.T) {
		bands.write = func() {
			_, err := rules.CreateBand(ctx, zone.ID, CreateBandRequest{FromKm: ptr(8.0), ToKm: ptr(9.0), Cost: ptr(30.0)})
			require.NoError(t, err)
		}
		stale, err := uc.AnalyzeAllZones(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, stale.Zones[0].Gaps)

		fresh, err := uc.AnalyzeAllZones(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, fresh.Zones[0].Gaps)
	})
}

type auditedExceptions struct {
	domain.ExceptionRepository
	malformed []domain.MalformedException
}

func (a auditedExceptions) FindMalformedExceptions(context.Context, int32) ([]domain.MalformedException, error) {
	return a.malformed, nil
}

func TestAnalyzeZoneReportsMalformedExceptions(t *testing.T) {
	uc, store, zone := newCoverageFixture(t, nil)
	bad := []domain.MalformedException{{
		ID: 7, ZoneID: zone.ID, Date: "2024-01-20", Kind: domain.ExceptionSpecialCost,
		Problems: []string{"special-cost requires specialCost"},
	}}
	uc.excRepo = auditedExceptions{ExceptionRepository: store, malformed: bad}

	report, err := uc.AnalyzeZone(context.Background(), zone.ID)
	require.NoError(t, err)
	assert.Equal(t, bad, report.MalformedExceptions)
}

func TestAnalyzeAllZones(t *testing.T) {
	uc, _, _ := newCoverageFixture(t, nil)

	summary, err := uc.AnalyzeAllZones(context.Background())
	require.NoError(t, err)
	require.Len(t, summary.Days, 7)
	// North has no schedule and is not 24h; south is open every day.
	for _, d := range summary.Days {
		assert.Equal(t, domain.CoveragePartial, d.Level)
	}
	require.Len(t, summary.Zones, 2)
	assert.Equal(t, 1, summary.Zones[0].Overlaps)
	assert.Equal(t, fixedNow, summary.GeneratedAt)
}

func TestArchiveSnapshot(t *testing.T) {
	ctx := context.Background()

	t.Run("Disabled Without Archive", func(t *testing.T) {
		uc, _, _ := newCoverageFixture(t, nil)
		_, err := uc.ArchiveSnapshot(ctx)
		assert.ErrorIs(t, err, ErrArchiveDisabled)
		_, err = uc.ListSnapshots(ctx, 10)
		assert.ErrorIs(t, err, ErrArchiveDisabled)
	})

	t.Run("Uploads Reports", func(t *testing.T) {
		archive := &fakeArchive{}
		uc, _, _ := newCoverageFixture(t, archive)

		res, err := uc.ArchiveSnapshot(ctx)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(res.Key, "coverage-snapshots/20240115T120000Z-"))
		assert.True(t, strings.HasSuffix(res.Key, ".json"))
		assert.Equal(t, "https://cdn.example.com/"+res.Key, res.URL)
		assert.Equal(t, 2, res.Zones)
		assert.Equal(t, 1, res.Warnings)

		var snap CoverageSnapshot
		require.NoError(t, json.Unmarshal(archive.uploads[res.Key], &snap))
		assert.Len(t, snap.Zones, 2)
		assert.Equal(t, res.Bytes, len(archive.uploads[res.Key]))

		objects, err := uc.ListSnapshots(ctx, 1000)
		require.NoError(t, err)
		assert.Len(t, objects, 1)
		assert.Equal(t, int32(snapshotListLimit), archive.lastLimit)

		_, err = uc.ListSnapshots(ctx, 0)
		require.NoError(t, err)
		assert.Equal(t, int32(1), archive.lastLimit)
	})
}
