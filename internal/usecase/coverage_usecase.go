package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"zone-coverage-backend/internal/domain"
	"zone-coverage-backend/pkg/cache"
	"zone-coverage-backend/pkg/logger"
	"zone-coverage-backend/pkg/storage"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

const (
	coverageAllKey     = "coverage:all"
	coverageZonePrefix = "coverage:zone:"
	// Generation counters sit outside the "coverage:" prefix so clearing
	// reports never resets them.
	coverageAllGenKey     = "coverage-gen:all"
	coverageZoneGenPrefix = "coverage-gen:zone:"
	snapshotPrefix     = "coverage-snapshots/"
	snapshotListLimit  = 100
)

var ErrArchiveDisabled = errors.New("coverage snapshot archive is not configured")

func coverageZoneKey(zoneID int32) string {
	return fmt.Sprintf("%s%d", coverageZonePrefix, zoneID)
}

func coverageZoneGenKey(zoneID int32) string {
	return fmt.Sprintf("%s%d", coverageZoneGenPrefix, zoneID)
}

// invalidateCoverage drops the cached reports a write to zoneID can change.
// The generations are bumped first so a report built from pre-write data
// cannot be stored afterwards (see storeIfCurrent).
func invalidateCoverage(c cache.CacheService, zoneID int32) {
	c.Incr(coverageZoneGenKey(zoneID))
	c.Incr(coverageAllGenKey)
	c.Delete(coverageZoneKey(zoneID))
	c.Delete(coverageAllKey)
}

func coverageGeneration(c cache.CacheService, genKey string) int64 {
	v, _ := c.Get(genKey)
	n, _ := v.(int64)
	return n
}

// storeIfCurrent caches value, then takes it back out if a write bumped
// genKey after gen was read. Checking after the Set closes the window
// between the check and the store.
func storeIfCurrent(c cache.CacheService, key, genKey string, gen int64, value any, ttl time.Duration) {
	c.Set(key, value, ttl)
	if coverageGeneration(c, genKey) != gen {
		c.Delete(key)
	}
}

// SnapshotArchive stores serialized coverage snapshots. *storage.R2Storage implements it.
type SnapshotArchive interface {
	UploadJSON(ctx context.Context, key string, data []byte) (string, error)
	List(ctx context.Context, prefix string, limit int32) ([]storage.Object, error)
}

// CoverageSnapshot is the archived document.
type CoverageSnapshot struct {
	GeneratedAt time.Time                   `json:"generatedAt"`
	Summary     domain.CoverageSummary      `json:"summary"`
	Zones       []domain.ZoneCoverageReport `json:"zones"`
}

type SnapshotResult struct {
	Key      string `json:"key"`
	URL      string `json:"url"`
	Zones    int    `json:"zones"`
	Bytes    int    `json:"bytes"`
	Warnings int    `json:"warnings"`
}

// CoverageUsecase runs the read-only analytics. Results are cached until the
// TTL passes or a write to the zone invalidates them.
type CoverageUsecase struct {
	zoneRepo     domain.ZoneRepository
	scheduleRepo domain.ScheduleRepository
	bandRepo     domain.BandRepository
	excRepo      domain.ExceptionRepository
	cache        cache.CacheService
	ttl          time.Duration
	defaults     domain.GapFillDefaults
	archive      SnapshotArchive
	now          func() time.Time
}

// NewCoverageUsecase accepts a nil archive; snapshot endpoints then report ErrArchiveDisabled.
func NewCoverageUsecase(
	zoneRepo domain.ZoneRepository,
	scheduleRepo domain.ScheduleRepository,
	bandRepo domain.BandRepository,
	excRepo domain.ExceptionRepository,
	cache cache.CacheService,
	ttl time.Duration,
	defaults domain.GapFillDefaults,
	archive SnapshotArchive,
) *CoverageUsecase {
	return &CoverageUsecase{
		zoneRepo:     zoneRepo,
		scheduleRepo: scheduleRepo,
		bandRepo:     bandRepo,
		excRepo:      excRepo,
		cache:        cache,
		ttl:          ttl,
		defaults:     defaults,
		archive:      archive,
		now:          time.Now,
	}
}

func (uc *CoverageUsecase) AnalyzeZone(ctx context.Context, zoneID int32) (*domain.ZoneCoverageReport, error) {
	key := coverageZoneKey(zoneID)
	if cached, found := uc.cache.Get(key); found {
		if report, ok := cached.(*domain.ZoneCoverageReport); ok {
			return report, nil
		}
	}

	genKey := coverageZoneGenKey(zoneID)
	gen := coverageGeneration(uc.cache, genKey)

	zone, err := uc.zoneRepo.GetZoneByID(ctx, zoneID)
	if err != nil {
		return nil, err
	}
	bands, err := uc.bandRepo.ListBandsByZone(ctx, zoneID)
	if err != nil {
		return nil, err
	}
	schedules, err := uc.scheduleRepo.ListSchedulesByZone(ctx, zoneID)
	if err != nil {
		return nil, err
	}

	malformed, err := uc.excRepo.FindMalformedExceptions(ctx, zoneID)
	if err != nil {
		return nil, err
	}

	report := domain.BuildZoneReport(*zone, bands, schedules, uc.defaults, uc.now())
	report.MalformedExceptions = malformed
	if len(report.Overlaps) > 0 || len(report.Conflicts) > 0 || len(malformed) > 0 {
		logger.WithZone(ctx, zoneID).Warn().
			Int("overlaps", len(report.Overlaps)).Int("conflicts", len(report.Conflicts)).
			Int("malformed_exceptions", len(malformed)).
			Msg("Data integrity warning in zone rules")
	}
	storeIfCurrent(uc.cache, key, genKey, gen, &report, uc.ttl)
	return &report, nil
}

type allZonesData struct {
	zones     []domain.Zone
	schedules []domain.ScheduleEntry
	bands     []domain.DistanceBand
}

func (uc *CoverageUsecase) load(ctx context.Context) (*allZonesData, error) {
	zones, err := uc.zoneRepo.ListZones(ctx)
	if err != nil {
		return nil, err
	}
	schedules, err := uc.scheduleRepo.ListAllSchedules(ctx)
	if err != nil {
		return nil, err
	}
	bands, err := uc.bandRepo.ListAllBands(ctx)
	if err != nil {
		return nil, err
	}
	return &allZonesData{zones: zones, schedules: schedules, bands: bands}, nil
}

func (uc *CoverageUsecase) AnalyzeAllZones(ctx context.Context) (*domain.CoverageSummary, error) {
	if cached, found := uc.cache.Get(coverageAllKey); found {
		if summary, ok := cached.(*domain.CoverageSummary); ok {
			return summary, nil
		}
	}

	gen := coverageGeneration(uc.cache, coverageAllGenKey)
	data, err := uc.load(ctx)
	if err != nil {
		return nil, err
	}
	summary := domain.BuildCoverageSummary(data.zones, data.schedules, data.bands, uc.now())
	storeIfCurrent(uc.cache, coverageAllKey, coverageAllGenKey, gen, &summary, uc.ttl)
	return &summary, nil
}

// ArchiveSnapshot builds fresh reports for every zone, bypassing the cache,
// and uploads them as one JSON document.
func (uc *CoverageUsecase) ArchiveSnapshot(ctx context.Context) (*SnapshotResult, error) {
	if uc.archive == nil {
		return nil, ErrArchiveDisabled
	}

	data, err := uc.load(ctx)
	if err != nil {
		return nil, err
	}
	now := uc.now()

	bandsByZone := make(map[int32][]domain.DistanceBand)
	for _, b := range data.bands {
		bandsByZone[b.ZoneID] = append(bandsByZone[b.ZoneID], b)
	}
	schedulesByZone := make(map[int32][]domain.ScheduleEntry)
	for _, s := range data.schedules {
		schedulesByZone[s.ZoneID] = append(schedulesByZone[s.ZoneID], s)
	}

	snap := CoverageSnapshot{
		GeneratedAt: now,
		Summary:     domain.BuildCoverageSummary(data.zones, data.schedules, data.bands, now),
	}
	warnings := len(snap.Summary.Conflicts)
	for _, z := range snap.Summary.Zones {
		warnings += z.Overlaps
	}
	for _, z := range data.zones {
		snap.Zones = append(snap.Zones, domain.BuildZoneReport(z, bandsByZone[z.ID], schedulesByZone[z.ID], uc.defaults, now))
	}

	body, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encode coverage snapshot: %w", err)
	}
	key := fmt.Sprintf("%s%s-%s.json", snapshotPrefix, now.UTC().Format("20060102T150405Z"), uuid.NewString()[:8])
	url, err := uc.archive.UploadJSON(ctx, key, body)
	if err != nil {
		return nil, err
	}

	logger.WithContext(ctx).Info().Str("key", key).Int("zones", len(snap.Zones)).Int("bytes", len(body)).Msg("Coverage snapshot archived")
	return &SnapshotResult{Key: key, URL: url, Zones: len(snap.Zones), Bytes: len(body), Warnings: warnings}, nil
}

// ListSnapshots returns up to limit archived snapshots; limit is clamped to
// [1, snapshotListLimit].
func (uc *CoverageUsecase) ListSnapshots(ctx context.Context, limit int) ([]storage.Object, error) {
	if uc.archive == nil {
		return nil, ErrArchiveDisabled
	}
	limit = min(max(limit, 1), snapshotListLimit)
	return uc.archive.List(ctx, snapshotPrefix, int32(limit))
}
