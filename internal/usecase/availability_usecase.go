package usecase

import (
	"context"
	"errors"
	"time"

	"zone-coverage-backend/internal/domain"

	"golang.org/x/sync/errgroup"
)

// AvailabilityUsecase answers "can we deliver here, now, this far, and for how much".
// Decisions are computed per call and never cached.
type AvailabilityUsecase struct {
	zoneRepo      domain.ZoneRepository
	scheduleRepo  domain.ScheduleRepository
	bandRepo      domain.BandRepository
	exceptionRepo domain.ExceptionRepository
	loc           *time.Location
}

func NewAvailabilityUsecase(
	zoneRepo domain.ZoneRepository,
	scheduleRepo domain.ScheduleRepository,
	bandRepo domain.BandRepository,
	exceptionRepo domain.ExceptionRepository,
	loc *time.Location,
) *AvailabilityUsecase {
	if loc == nil {
		loc = time.UTC
	}
	return &AvailabilityUsecase{
		zoneRepo:      zoneRepo,
		scheduleRepo:  scheduleRepo,
		bandRepo:      bandRepo,
		exceptionRepo: exceptionRepo,
		loc:           loc,
	}
}

// Resolve only returns an error when the store fails. Unknown zones and data
// quality problems come back as a Decision.
func (uc *AvailabilityUsecase) Resolve(ctx context.Context, zoneID int32, instant time.Time, distanceKm float64) (domain.Decision, error) {
	zone, err := uc.zoneRepo.GetZoneByID(ctx, zoneID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Decision{AppliedSource: domain.SourceSchedule, Reason: domain.ReasonZoneNotFound}, nil
		}
		return domain.Decision{}, err
	}

	local := instant.In(uc.loc)
	snap := domain.ZoneSnapshot{Zone: *zone}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snap.Schedules, err = uc.scheduleRepo.ListSchedulesByZone(gctx, zoneID)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Bands, err = uc.bandRepo.ListBandsByZone(gctx, zoneID)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Exceptions, err = uc.exceptionRepo.FindExceptionsForDate(gctx, zoneID, domain.DateOf(local))
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.Decision{}, err
	}

	return domain.Resolve(snap, local, distanceKm), nil
}
