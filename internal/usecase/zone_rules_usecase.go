package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"zone-coverage-backend/internal/domain"
	"zone-coverage-backend/pkg/cache"
	"zone-coverage-backend/pkg/logger"

	"github.com/go-playground/validator/v10"
)

// ZoneRulesUsecase is the only write path for schedules, bands and exceptions.
// Every write validates fields first, then takes the zone lock and runs the
// structural checks and the store call inside one transaction.
type ZoneRulesUsecase struct {
	zoneRepo      domain.ZoneRepository
	scheduleRepo  domain.ScheduleRepository
	bandRepo      domain.BandRepository
	exceptionRepo domain.ExceptionRepository
	txManager     domain.TransactionManager
	locker        domain.ZoneLocker
	cache         cache.CacheService
	validate      *validator.Validate
	loc           *time.Location
	now           func() time.Time
}

func NewZoneRulesUsecase(
	zoneRepo domain.ZoneRepository,
	scheduleRepo domain.ScheduleRepository,
	bandRepo domain.BandRepository,
	exceptionRepo domain.ExceptionRepository,
	txManager domain.TransactionManager,
	locker domain.ZoneLocker,
	cache cache.CacheService,
	loc *time.Location,
) *ZoneRulesUsecase {
	if loc == nil {
		loc = time.UTC
	}
	return &ZoneRulesUsecase{
		zoneRepo:      zoneRepo,
		scheduleRepo:  scheduleRepo,
		bandRepo:      bandRepo,
		exceptionRepo: exceptionRepo,
		txManager:     txManager,
		locker:        locker,
		cache:         cache,
		validate:      newValidator(),
		loc:           loc,
		now:           time.Now,
	}
}

func (uc *ZoneRulesUsecase) checkFields(req any, verr *domain.ValidationError) {
	if err := uc.validate.Struct(req); err != nil {
		verr.Messages = append(verr.Messages, formatValidationErrors(err)...)
	}
}

// write runs fn under the zone lock inside a transaction and drops cached
// analytics for the zone once it commits.
func (uc *ZoneRulesUsecase) write(ctx context.Context, zoneID int32, fn func(ctx context.Context) error) error {
	unlock, err := uc.locker.Lock(ctx, zoneID)
	if err != nil {
		logger.WithZone(ctx, zoneID).Warn().Err(err).Msg("Zone lock not acquired")
		return err
	}
	defer unlock()

	if err := uc.txManager.Do(ctx, fn); err != nil {
		return err
	}
	invalidateCoverage(uc.cache, zoneID)
	return nil
}

// requireZone reports a missing zone as a validation message.
func (uc *ZoneRulesUsecase) requireZone(ctx context.Context, zoneID int32, verr *domain.ValidationError) error {
	if _, err := uc.zoneRepo.GetZoneByID(ctx, zoneID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			verr.Add(fmt.Sprintf("zone %d does not exist", zoneID))
			return nil
		}
		return err
	}
	return nil
}

// --- Schedules ---

func (uc *ZoneRulesUsecase) ListSchedules(ctx context.Context, zoneID int32) ([]domain.ScheduleEntry, error) {
	if _, err := uc.zoneRepo.GetZoneByID(ctx, zoneID); err != nil {
		return nil, err
	}
	return uc.scheduleRepo.ListSchedulesByZone(ctx, zoneID)
}

func (uc *ZoneRulesUsecase) CreateSchedule(ctx context.Context, zoneID int32, req CreateScheduleRequest) (*domain.ScheduleEntry, error) {
	verr := &domain.ValidationError{}
	uc.checkFields(req, verr)
	entry := req.toEntry(zoneID, verr)
	if !verr.Empty() {
		return nil, verr
	}

	var saved *domain.ScheduleEntry
	err := uc.write(ctx, zoneID, func(ctx context.Context) error {
		if err := uc.checkSchedule(ctx, entry, verr); err != nil {
			return err
		}
		if !verr.Empty() {
			return verr
		}
		var err error
		saved, err = uc.scheduleRepo.CreateSchedule(ctx, &entry)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.WithContext(ctx).Info().Int32("zone_id", zoneID).Int64("schedule_id", saved.ID).
		Int("weekday", int(saved.Weekday)).Str("kind", string(saved.Kind)).Msg("Schedule entry created")
	return saved, nil
}

func (uc *ZoneRulesUsecase) UpdateSchedule(ctx context.Context, id int64, req UpdateScheduleRequest) (*domain.ScheduleEntry, error) {
	current, err := uc.scheduleRepo.GetScheduleByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var saved *domain.ScheduleEntry
	err = uc.write(ctx, current.ZoneID, func(ctx context.Context) error {
		// Re-read under the lock; the entry may have changed meanwhile.
		current, err := uc.scheduleRepo.GetScheduleByID(ctx, id)
		if err != nil {
			return err
		}
		verr := &domain.ValidationError{}
		merged := req.mergeOnto(*current)
		uc.checkFields(merged, verr)
		entry := merged.toEntry(current.ZoneID, verr)
		if !verr.Empty() {
			return verr
		}
		entry.ID = current.ID
		if err := uc.checkSchedule(ctx, entry, verr); err != nil {
			return err
		}
		if !verr.Empty() {
			return verr
		}
		saved, err = uc.scheduleRepo.UpdateSchedule(ctx, &entry)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.WithContext(ctx).Info().Int32("zone_id", saved.ZoneID).Int64("schedule_id", saved.ID).Msg("Schedule entry updated")
	return saved, nil
}

func (uc *ZoneRulesUsecase) DeleteSchedule(ctx context.Context, id int64) error {
	current, err := uc.scheduleRepo.GetScheduleByID(ctx, id)
	if err != nil {
		return err
	}
	err = uc.write(ctx, current.ZoneID, func(ctx context.Context) error {
		return uc.scheduleRepo.DeleteSchedule(ctx, id)
	})
	if err != nil {
		return err
	}
	logger.WithContext(ctx).Info().Int32("zone_id", current.ZoneID).Int64("schedule_id", id).Msg("Schedule entry deleted")
	return nil
}

// checkSchedule enforces at most one active entry per (zone, weekday).
// An entry never conflicts with itself, so updates in place pass.
func (uc *ZoneRulesUsecase) checkSchedule(ctx context.Context, entry domain.ScheduleEntry, verr *domain.ValidationError) error {
	if err := uc.requireZone(ctx, entry.ZoneID, verr); err != nil || !verr.Empty() {
		return err
	}
	if !entry.IsActive {
		return nil
	}
	existing, err := uc.scheduleRepo.ListSchedulesByZone(ctx, entry.ZoneID)
	if err != nil {
		return err
	}
	for _, e := range existing {
		if e.ID == entry.ID || !e.IsActive || e.Weekday != entry.Weekday {
			continue
		}
		verr.Add(fmt.Sprintf("zone %d already has a schedule entry for %s (id %d)", entry.ZoneID, entry.Weekday, e.ID))
	}
	return nil
}

// --- Distance bands ---

func (uc *ZoneRulesUsecase) ListBands(ctx context.Context, zoneID int32) ([]domain.DistanceBand, error) {
	if _, err := uc.zoneRepo.GetZoneByID(ctx, zoneID); err != nil {
		return nil, err
	}
	return uc.bandRepo.ListBandsByZone(ctx, zoneID)
}

func (uc *ZoneRulesUsecase) CreateBand(ctx context.Context, zoneID int32, req CreateBandRequest) (*domain.DistanceBand, error) {
	verr := &domain.ValidationError{}
	uc.checkFields(req, verr)
	band := req.toBand(zoneID, verr)
	if !verr.Empty() {
		return nil, verr
	}

	var saved *domain.DistanceBand
	err := uc.write(ctx, zoneID, func(ctx context.Context) error {
		if err := uc.checkBand(ctx, band, verr); err != nil {
			return err
		}
		if !verr.Empty() {
			return verr
		}
		var err error
		saved, err = uc.bandRepo.CreateBand(ctx, &band)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.WithContext(ctx).Info().Int32("zone_id", zoneID).Int64("band_id", saved.ID).
		Float64("from_km", saved.FromKm).Float64("to_km", saved.ToKm).Msg("Distance band created")
	return saved, nil
}

func (uc *ZoneRulesUsecase) UpdateBand(ctx context.Context, id int64, req UpdateBandRequest) (*domain.DistanceBand, error) {
	current, err := uc.bandRepo.GetBandByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var saved *domain.DistanceBand
	err = uc.write(ctx, current.ZoneID, func(ctx context.Context) error {
		current, err := uc.bandRepo.GetBandByID(ctx, id)
		if err != nil {
			return err
		}
		verr := &domain.ValidationError{}
		merged := req.mergeOnto(*current)
		uc.checkFields(merged, verr)
		band := merged.toBand(current.ZoneID, verr)
		if !verr.Empty() {
			return verr
		}
		band.ID = current.ID
		if err := uc.checkBand(ctx, band, verr); err != nil {
			return err
		}
		if !verr.Empty() {
			return verr
		}
		saved, err = uc.bandRepo.UpdateBand(ctx, &band)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.WithContext(ctx).Info().Int32("zone_id", saved.ZoneID).Int64("band_id", saved.ID).Msg("Distance band updated")
	return saved, nil
}

func (uc *ZoneRulesUsecase) DeleteBand(ctx context.Context, id int64) error {
	current, err := uc.bandRepo.GetBandByID(ctx, id)
	if err != nil {
		return err
	}
	err = uc.write(ctx, current.ZoneID, func(ctx context.Context) error {
		return uc.bandRepo.DeleteBand(ctx, id)
	})
	if err != nil {
		return err
	}
	logger.WithContext(ctx).Info().Int32("zone_id", current.ZoneID).Int64("band_id", id).Msg("Distance band deleted")
	return nil
}

// checkBand rejects a band that would overlap another active band of the zone.
func (uc *ZoneRulesUsecase) checkBand(ctx context.Context, band domain.DistanceBand, verr *domain.ValidationError) error {
	if err := uc.requireZone(ctx, band.ZoneID, verr); err != nil || !verr.Empty() {
		return err
	}
	if !band.IsActive {
		return nil
	}
	existing, err := uc.bandRepo.ListBandsByZone(ctx, band.ZoneID)
	if err != nil {
		return err
	}
	for _, b := range existing {
		if b.ID == band.ID || !b.IsActive || !b.Overlaps(band) {
			continue
		}
		verr.Add(fmt.Sprintf("band [%g, %g) overlaps band %d [%g, %g)", band.FromKm, band.ToKm, b.ID, b.FromKm, b.ToKm))
	}
	return nil
}

// --- Exceptions ---

func (uc *ZoneRulesUsecase) ListExceptions(ctx context.Context, zoneID int32) ([]domain.Exception, error) {
	if _, err := uc.zoneRepo.GetZoneByID(ctx, zoneID); err != nil {
		return nil, err
	}
	return uc.exceptionRepo.ListExceptionsByZone(ctx, zoneID)
}

// today is the current calendar date in the service time zone.
func (uc *ZoneRulesUsecase) today() domain.Date {
	return domain.DateOf(uc.now().In(uc.loc))
}

func (uc *ZoneRulesUsecase) CreateException(ctx context.Context, zoneID int32, req CreateExceptionRequest) (*domain.Exception, error) {
	verr := &domain.ValidationError{}
	uc.checkFields(req, verr)
	exc := req.toException(zoneID, verr)
	// Past dates are rejected on create only; updates keep historical rows editable.
	if !exc.Date.IsZero() && exc.Date.Before(uc.today()) {
		verr.Add(fmt.Sprintf("date %s is in the past", exc.Date))
	}
	if !verr.Empty() {
		return nil, verr
	}

	var saved *domain.Exception
	err := uc.write(ctx, zoneID, func(ctx context.Context) error {
		if err := uc.requireZone(ctx, zoneID, verr); err != nil {
			return err
		}
		if !verr.Empty() {
			return verr
		}
		var err error
		saved, err = uc.exceptionRepo.CreateException(ctx, &exc)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.WithContext(ctx).Info().Int32("zone_id", zoneID).Int64("exception_id", saved.ID).
		Str("date", saved.Date.String()).Str("kind", string(saved.Rule.Kind())).Msg("Exception created")
	return saved, nil
}

func (uc *ZoneRulesUsecase) UpdateException(ctx context.Context, id int64, req UpdateExceptionRequest) (*domain.Exception, error) {
	current, err := uc.exceptionRepo.GetExceptionByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var saved *domain.Exception
	err = uc.write(ctx, current.ZoneID, func(ctx context.Context) error {
		current, err := uc.exceptionRepo.GetExceptionByID(ctx, id)
		if err != nil {
			return err
		}
		verr := &domain.ValidationError{}
		merged := req.mergeOnto(*current)
		uc.checkFields(merged, verr)
		exc := merged.toException(current.ZoneID, verr)
		if err := uc.requireZone(ctx, current.ZoneID, verr); err != nil {
			return err
		}
		if !verr.Empty() {
			return verr
		}
		exc.ID = current.ID
		saved, err = uc.exceptionRepo.UpdateException(ctx, &exc)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.WithContext(ctx).Info().Int32("zone_id", saved.ZoneID).Int64("exception_id", saved.ID).Msg("Exception updated")
	return saved, nil
}

func (uc *ZoneRulesUsecase) DeleteException(ctx context.Context, id int64) error {
	current, err := uc.exceptionRepo.GetExceptionByID(ctx, id)
	if err != nil {
		return err
	}
	err = uc.write(ctx, current.ZoneID, func(ctx context.Context) error {
		return uc.exceptionRepo.DeleteException(ctx, id)
	})
	if err != nil {
		return err
	}
	logger.WithContext(ctx).Info().Int32("zone_id", current.ZoneID).Int64("exception_id", id).Msg("Exception deleted")
	return nil
}
