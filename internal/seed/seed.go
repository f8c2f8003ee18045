// Package seed loads zones and their rule tables from a JSON file. Zones are
// written directly; rules go through ZoneRulesUsecase so seeded data passes
// the same validation as admin writes.
package seed

import (
	"context"
	"fmt"
	"os"
	"strings"

	"zone-coverage-backend/internal/domain"
	"zone-coverage-backend/internal/usecase"
	"zone-coverage-backend/pkg/logger"
	"zone-coverage-backend/pkg/utils"

	"github.com/goccy/go-json"
)

type ZoneSeed struct {
	Key          string                           `json:"key"`
	Label        string                           `json:"label"`
	IsActive     *bool                            `json:"isActive,omitempty"`
	Available24h bool                             `json:"available24h"`
	Schedules    []usecase.CreateScheduleRequest  `json:"schedules"`
	Bands        []usecase.CreateBandRequest      `json:"bands"`
	Exceptions   []usecase.CreateExceptionRequest `json:"exceptions"`
}

type File struct {
	Zones []ZoneSeed `json:"zones"`
}

// ZoneWriter inserts or refreshes a zone by key and returns it with its id.
type ZoneWriter func(ctx context.Context, z domain.Zone) (*domain.Zone, error)

type Result struct {
	Zones      int
	Skipped    int
	Schedules  int
	Bands      int
	Exceptions int
}

func Load(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("seed: read %q: %w", path, err)
	}

	var f File
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("seed: parse %q: %w", path, err)
	}

	seen := make(map[string]int, len(f.Zones))
	for i := range f.Zones {
		z := &f.Zones[i]
		z.Label = strings.TrimSpace(z.Label)
		if z.Label == "" {
			return nil, fmt.Errorf("seed: zone at index %d: label cannot be empty", i)
		}
		if z.Key == "" {
			z.Key = utils.GenerateSlug(z.Label)
		}
		if prev, dup := seen[z.Key]; dup {
			return nil, fmt.Errorf("seed: zone at index %d: key %q already used at index %d", i, z.Key, prev)
		}
		seen[z.Key] = i
	}
	return &f, nil
}

// Apply writes every zone, then seeds the rules of zones that have none yet.
// Zones that already carry rules are left alone so Apply can be rerun.
func Apply(ctx context.Context, f *File, writeZone ZoneWriter, rules *usecase.ZoneRulesUsecase) (Result, error) {
	var res Result
	for _, zs := range f.Zones {
		active := true
		if zs.IsActive != nil {
			active = *zs.IsActive
		}
		zone, err := writeZone(ctx, domain.Zone{
			Key:          zs.Key,
			Label:        zs.Label,
			IsActive:     active,
			Available24h: zs.Available24h,
		})
		if err != nil {
			return res, fmt.Errorf("seed: zone %q: %w", zs.Key, err)
		}
		res.Zones++

		empty, err := hasNoRules(ctx, rules, zone.ID)
		if err != nil {
			return res, fmt.Errorf("seed: zone %q: %w", zs.Key, err)
		}
		if !empty {
			logger.WithZone(ctx, zone.ID).Info().Str("key", zone.Key).Msg("Zone already has rules, skipping")
			res.Skipped++
			continue
		}

		for i, req := range zs.Schedules {
			if _, err := rules.CreateSchedule(ctx, zone.ID, req); err != nil {
				return res, fmt.Errorf("seed: zone %q schedule %d: %w", zs.Key, i, err)
			}
			res.Schedules++
		}
		for i, req := range zs.Bands {
			if _, err := rules.CreateBand(ctx, zone.ID, req); err != nil {
				return res, fmt.Errorf("seed: zone %q band %d: %w", zs.Key, i, err)
			}
			res.Bands++
		}
		for i, req := range zs.Exceptions {
			if _, err := rules.CreateException(ctx, zone.ID, req); err != nil {
				return res, fmt.Errorf("seed: zone %q exception %d: %w", zs.Key, i, err)
			}
			res.Exceptions++
		}
	}
	return res, nil
}

func hasNoRules(ctx context.Context, rules *usecase.ZoneRulesUsecase, zoneID int32) (bool, error) {
	schedules, err := rules.ListSchedules(ctx, zoneID)
	if err != nil {
		return false, err
	}
	bands, err := rules.ListBands(ctx, zoneID)
	if err != nil {
		return false, err
	}
	exceptions, err := rules.ListExceptions(ctx, zoneID)
	if err != nil {
		return false, err
	}
	return len(schedules)+len(bands)+len(exceptions) == 0, nil
}
